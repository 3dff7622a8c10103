package repository

import (
	"context"

	"github.com/jhoicas/inventario-core/internal/domain/entity"
)

// ProductRepository define el puerto de persistencia para Product (DIP).
// Update nunca modifica Stock; el stock solo cambia con UpdateStock dentro de una transacción del ledger.
type ProductRepository interface {
	Create(ctx context.Context, product *entity.Product) error
	GetByID(ctx context.Context, id string) (*entity.Product, error)
	GetBySKU(ctx context.Context, sku string) (*entity.Product, error)
	// GetForUpdate bloquea la fila del producto (SELECT FOR UPDATE) hasta el fin de la transacción.
	GetForUpdate(ctx context.Context, id string) (*entity.Product, error)
	Update(ctx context.Context, product *entity.Product) error
	UpdateStock(ctx context.Context, id string, stock int) error
	List(ctx context.Context, f ProductFilter) ([]*entity.Product, error)
	Delete(ctx context.Context, id string) error
}
