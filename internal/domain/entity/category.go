package entity

import "time"

// Category agrupa productos del catálogo. Name es único.
type Category struct {
	ID          string
	Name        string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
