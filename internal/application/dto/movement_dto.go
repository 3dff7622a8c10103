package dto

import "time"

// CreateMovementRequest body para POST /api/movements.
type CreateMovementRequest struct {
	ProductID   string     `json:"product_id" validate:"required,uuid"`
	WarehouseID string     `json:"warehouse_id" validate:"required,uuid"`
	Kind        string     `json:"kind" validate:"required,oneof=INCOMING OUTGOING SHRINKAGE"`
	Quantity    int        `json:"quantity" validate:"required,gt=0"`
	Date        *time.Time `json:"date,omitempty"`
	Note        string     `json:"note,omitempty"`
}

// UpdateMovementRequest body para PUT/PATCH /api/movements/:id.
// En PATCH los campos ausentes no cambian; en PUT product_id, warehouse_id, kind y quantity son obligatorios.
type UpdateMovementRequest struct {
	ProductID   *string    `json:"product_id"`
	WarehouseID *string    `json:"warehouse_id"`
	Kind        *string    `json:"kind"`
	Quantity    *int       `json:"quantity"`
	Date        *time.Time `json:"date"`
	Note        *string    `json:"note"`
}

// MovementResponse salida de un movimiento con los campos de presentación.
type MovementResponse struct {
	ID            string    `json:"id"`
	ProductID     string    `json:"product_id"`
	ProductSKU    string    `json:"product_sku"`
	ProductName   string    `json:"product_name"`
	WarehouseID   string    `json:"warehouse_id"`
	WarehouseName string    `json:"warehouse_name"`
	Kind          string    `json:"kind"`
	Quantity      int       `json:"quantity"`
	Date          time.Time `json:"date"`
	Note          string    `json:"note"`
	CreatedBy     string    `json:"created_by,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// MovementListResponse lista paginada de movimientos (más recientes primero).
type MovementListResponse struct {
	Items []MovementResponse `json:"items"`
	Page  PageResponse       `json:"page"`
}

// ProductHistoryResponse historial de un producto: identidad "SKU - Nombre" y sus movimientos.
type ProductHistoryResponse struct {
	ProductID string             `json:"product_id"`
	Product   string             `json:"product"`
	Stock     int                `json:"stock_actual"`
	Movements []MovementResponse `json:"movements"`
}
