package entity

import "time"

// Supplier representa un proveedor de productos.
type Supplier struct {
	ID           string
	BusinessName string // razón social
	TaxID        string // RUT
	Email        string
	Phone        string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
