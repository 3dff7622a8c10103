package repository

import (
	"context"

	"github.com/jhoicas/inventario-core/internal/domain/entity"
)

// MovementRepository define el puerto de persistencia para movimientos de stock.
// Los listados se ordenan del más reciente al más antiguo.
type MovementRepository interface {
	Create(ctx context.Context, movement *entity.Movement) error
	GetByID(ctx context.Context, id string) (*entity.Movement, error)
	// GetForUpdate bloquea la fila del movimiento (SELECT FOR UPDATE).
	GetForUpdate(ctx context.Context, id string) (*entity.Movement, error)
	Update(ctx context.Context, movement *entity.Movement) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, f ListFilter) ([]*entity.Movement, error)
	ListByProduct(ctx context.Context, productID string) ([]*entity.Movement, error)
}
