package entity

import "time"

// Warehouse representa una bodega. (Name, Location) es único.
type Warehouse struct {
	ID        string
	Name      string
	Location  string
	CreatedAt time.Time
	UpdatedAt time.Time
}
