package repository

import (
	"context"

	"github.com/jhoicas/inventario-core/internal/domain/entity"
)

// WarehouseRepository define el puerto de persistencia para Warehouse (DIP).
type WarehouseRepository interface {
	Create(ctx context.Context, warehouse *entity.Warehouse) error
	GetByID(ctx context.Context, id string) (*entity.Warehouse, error)
	Update(ctx context.Context, warehouse *entity.Warehouse) error
	List(ctx context.Context, f ListFilter) ([]*entity.Warehouse, error)
	Delete(ctx context.Context, id string) error
}
