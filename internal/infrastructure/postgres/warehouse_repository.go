package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/inventario-core/internal/domain"
	"github.com/jhoicas/inventario-core/internal/domain/entity"
	"github.com/jhoicas/inventario-core/internal/domain/repository"
)

var _ repository.WarehouseRepository = (*WarehouseRepo)(nil)

var warehouseColumns = map[string]string{
	"name":       "name",
	"location":   "location",
	"created_at": "created_at",
}

// WarehouseRepo implementación del puerto WarehouseRepository sobre PostgreSQL.
type WarehouseRepo struct {
	pool *pgxpool.Pool
}

// NewWarehouseRepository construye el adaptador de persistencia para bodegas.
func NewWarehouseRepository(pool *pgxpool.Pool) *WarehouseRepo {
	return &WarehouseRepo{pool: pool}
}

// Create persiste una nueva bodega. (name, location) repetido devuelve domain.ErrDuplicate.
func (r *WarehouseRepo) Create(ctx context.Context, warehouse *entity.Warehouse) error {
	query := `
		INSERT INTO warehouses (id, name, location, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)`
	_, err := r.pool.Exec(ctx, query,
		warehouse.ID, warehouse.Name, warehouse.Location, warehouse.CreatedAt, warehouse.UpdatedAt,
	)
	return mapError("insert warehouse", err)
}

// GetByID obtiene una bodega por ID.
func (r *WarehouseRepo) GetByID(ctx context.Context, id string) (*entity.Warehouse, error) {
	if !isUUID(id) {
		return nil, nil
	}
	query := `SELECT id, name, location, created_at, updated_at FROM warehouses WHERE id = $1`
	var w entity.Warehouse
	err := r.pool.QueryRow(ctx, query, id).Scan(&w.ID, &w.Name, &w.Location, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, mapError("get warehouse", err)
	}
	return &w, nil
}

// Update actualiza una bodega.
func (r *WarehouseRepo) Update(ctx context.Context, warehouse *entity.Warehouse) error {
	if !isUUID(warehouse.ID) {
		return domain.ErrNotFound
	}
	query := `UPDATE warehouses SET name = $2, location = $3, updated_at = $4 WHERE id = $1`
	cmd, err := r.pool.Exec(ctx, query, warehouse.ID, warehouse.Name, warehouse.Location, warehouse.UpdatedAt)
	if err != nil {
		return mapError("update warehouse", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// List lista bodegas con búsqueda por nombre o ubicación.
func (r *WarehouseRepo) List(ctx context.Context, f repository.ListFilter) ([]*entity.Warehouse, error) {
	query := `
		SELECT id, name, location, created_at, updated_at FROM warehouses
		WHERE ($1 = '' OR name ILIKE '%' || $1 || '%' OR location ILIKE '%' || $1 || '%')
		ORDER BY ` + orderClause(f.OrderBy, warehouseColumns, "name ASC") + `, id
		LIMIT $2 OFFSET $3`
	rows, err := r.pool.Query(ctx, query, f.Search, limitArg(f.Limit), f.Offset)
	if err != nil {
		return nil, mapError("list warehouses", err)
	}
	defer rows.Close()
	list := make([]*entity.Warehouse, 0)
	for rows.Next() {
		var w entity.Warehouse
		if err := rows.Scan(&w.ID, &w.Name, &w.Location, &w.CreatedAt, &w.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan warehouse: %w", err)
		}
		list = append(list, &w)
	}
	return list, rows.Err()
}

// Delete elimina una bodega. Con movimientos asociados devuelve domain.ErrReferenced.
func (r *WarehouseRepo) Delete(ctx context.Context, id string) error {
	if !isUUID(id) {
		return domain.ErrNotFound
	}
	cmd, err := r.pool.Exec(ctx, `DELETE FROM warehouses WHERE id = $1`, id)
	if err != nil {
		return mapError("delete warehouse", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
