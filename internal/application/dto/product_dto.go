package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateProductRequest entrada para crear un producto. El stock inicia en 0.
type CreateProductRequest struct {
	SKU        string          `json:"sku" validate:"required,min=1,max=50"`
	Name       string          `json:"name" validate:"required,min=1,max=200"`
	CategoryID string          `json:"category_id" validate:"required,uuid"`
	SupplierID string          `json:"supplier_id" validate:"required,uuid"`
	Price      decimal.Decimal `json:"price"`
}

// UpdateProductRequest entrada para actualizar un producto (sin stock).
type UpdateProductRequest struct {
	SKU        *string          `json:"sku" validate:"omitempty,min=1,max=50"`
	Name       *string          `json:"name" validate:"omitempty,min=1,max=200"`
	CategoryID *string          `json:"category_id"`
	SupplierID *string          `json:"supplier_id"`
	Price      *decimal.Decimal `json:"price"`
}

// ProductResponse salida de un producto.
type ProductResponse struct {
	ID           string          `json:"id"`
	SKU          string          `json:"sku"`
	Name         string          `json:"name"`
	CategoryID   string          `json:"category_id"`
	CategoryName string          `json:"category_name"`
	SupplierID   string          `json:"supplier_id"`
	SupplierName string          `json:"supplier_name"`
	Price        decimal.Decimal `json:"price"`
	Stock        int             `json:"stock_actual"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// ProductListResponse lista paginada de productos.
type ProductListResponse struct {
	Items []ProductResponse `json:"items"`
	Page  PageResponse      `json:"page"`
}

// LowStockItemDTO producto bajo el umbral, con el déficit respecto al umbral.
type LowStockItemDTO struct {
	ProductID    string `json:"product_id"`
	SKU          string `json:"sku"`
	ProductName  string `json:"product_name"`
	CategoryName string `json:"category_name"`
	SupplierName string `json:"supplier_name"`
	Stock        int    `json:"stock_actual"`
	Threshold    int    `json:"threshold"`
	Deficit      int    `json:"deficit"`  // Threshold - Stock
	Priority     int    `json:"priority"` // 1 = más urgente
}

// LowStockResponse reporte de productos bajo stock.
type LowStockResponse struct {
	Threshold int               `json:"threshold"`
	Items     []LowStockItemDTO `json:"items"`
}
