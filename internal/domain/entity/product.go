package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product representa un producto del inventario.
// Stock es stock_actual: solo lo modifica el ledger de movimientos y nunca es negativo.
type Product struct {
	ID           string
	SKU          string // único
	Name         string
	CategoryID   string
	CategoryName string // solo lectura (join)
	SupplierID   string
	SupplierName string // solo lectura (join)
	Price        decimal.Decimal
	Stock        int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Label devuelve la identidad legible "SKU - Nombre".
func (p *Product) Label() string {
	return p.SKU + " - " + p.Name
}
