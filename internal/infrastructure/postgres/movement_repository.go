package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/inventario-core/internal/domain"
	"github.com/jhoicas/inventario-core/internal/domain/entity"
	"github.com/jhoicas/inventario-core/internal/domain/repository"
)

var _ repository.MovementRepository = (*MovementRepo)(nil)

const movementSelect = `
		SELECT m.id, m.product_id, p.sku, p.name, m.warehouse_id, w.name, m.kind, m.quantity,
		       m.date, m.note, m.created_by, m.created_at, m.updated_at
		FROM movements m
		JOIN products p ON p.id = m.product_id
		JOIN warehouses w ON w.id = m.warehouse_id`

var movementColumns = map[string]string{
	"date":       "m.date",
	"quantity":   "m.quantity",
	"kind":       "m.kind",
	"created_at": "m.created_at",
}

// MovementRepo implementación sobre PostgreSQL (usable con pool o tx).
type MovementRepo struct {
	q Querier
}

// NewMovementRepository construye el adaptador. Pasar pool o tx (Querier).
func NewMovementRepository(q Querier) *MovementRepo {
	return &MovementRepo{q: q}
}

// Create persiste un movimiento de inventario.
func (r *MovementRepo) Create(ctx context.Context, movement *entity.Movement) error {
	if movement.ID == "" {
		movement.ID = uuid.New().String()
	}
	query := `
		INSERT INTO movements (id, product_id, warehouse_id, kind, quantity, date, note, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.q.Exec(ctx, query,
		movement.ID, movement.ProductID, movement.WarehouseID, string(movement.Kind), movement.Quantity,
		movement.Date, movement.Note, nullable(movement.CreatedBy), movement.CreatedAt, movement.UpdatedAt,
	)
	if err != nil {
		return mapError("create movement", err)
	}
	return nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func scanMovement(row pgx.Row) (*entity.Movement, error) {
	var m entity.Movement
	var kind string
	var createdBy *string
	err := row.Scan(&m.ID, &m.ProductID, &m.ProductSKU, &m.ProductName, &m.WarehouseID, &m.WarehouseName,
		&kind, &m.Quantity, &m.Date, &m.Note, &createdBy, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	m.Kind = entity.MovementKind(kind)
	if createdBy != nil {
		m.CreatedBy = *createdBy
	}
	return &m, nil
}

func (r *MovementRepo) getOne(ctx context.Context, op, query, id string) (*entity.Movement, error) {
	if !isUUID(id) {
		return nil, nil
	}
	m, err := scanMovement(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, mapError(op, err)
	}
	return m, nil
}

// GetByID obtiene un movimiento por ID.
func (r *MovementRepo) GetByID(ctx context.Context, id string) (*entity.Movement, error) {
	return r.getOne(ctx, "get movement", movementSelect+` WHERE m.id = $1`, id)
}

// GetForUpdate bloquea la fila del movimiento. El producto ya debe estar bloqueado por el llamador.
func (r *MovementRepo) GetForUpdate(ctx context.Context, id string) (*entity.Movement, error) {
	return r.getOne(ctx, "get movement for update", movementSelect+` WHERE m.id = $1 FOR UPDATE OF m`, id)
}

// Update reescribe bodega, tipo, cantidad, fecha y nota. El producto de un movimiento no cambia.
func (r *MovementRepo) Update(ctx context.Context, movement *entity.Movement) error {
	if !isUUID(movement.ID) {
		return domain.ErrNotFound
	}
	query := `
		UPDATE movements SET warehouse_id = $2, kind = $3, quantity = $4, date = $5, note = $6, updated_at = $7
		WHERE id = $1`
	cmd, err := r.q.Exec(ctx, query,
		movement.ID, movement.WarehouseID, string(movement.Kind), movement.Quantity,
		movement.Date, movement.Note, movement.UpdatedAt,
	)
	if err != nil {
		return mapError("update movement", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete elimina un movimiento por ID.
func (r *MovementRepo) Delete(ctx context.Context, id string) error {
	if !isUUID(id) {
		return domain.ErrNotFound
	}
	cmd, err := r.q.Exec(ctx, `DELETE FROM movements WHERE id = $1`, id)
	if err != nil {
		return mapError("delete movement", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// List lista movimientos con búsqueda por SKU, nombre de producto, bodega, tipo y nota.
func (r *MovementRepo) List(ctx context.Context, f repository.ListFilter) ([]*entity.Movement, error) {
	query := movementSelect + `
		WHERE ($1 = '' OR p.sku ILIKE '%' || $1 || '%' OR p.name ILIKE '%' || $1 || '%'
		       OR w.name ILIKE '%' || $1 || '%' OR m.kind ILIKE '%' || $1 || '%' OR m.note ILIKE '%' || $1 || '%')
		ORDER BY ` + orderClause(f.OrderBy, movementColumns, "m.date DESC") + `, m.seq DESC
		LIMIT $2 OFFSET $3`
	return r.list(ctx, "list movements", query, f.Search, limitArg(f.Limit), f.Offset)
}

// ListByProduct lista los movimientos de un producto, más recientes primero.
func (r *MovementRepo) ListByProduct(ctx context.Context, productID string) ([]*entity.Movement, error) {
	if !isUUID(productID) {
		return []*entity.Movement{}, nil
	}
	query := movementSelect + ` WHERE m.product_id = $1 ORDER BY m.date DESC, m.seq DESC`
	return r.list(ctx, "list movements by product", query, productID)
}

func (r *MovementRepo) list(ctx context.Context, op, query string, args ...any) ([]*entity.Movement, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError(op, err)
	}
	defer rows.Close()
	list := make([]*entity.Movement, 0)
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return nil, fmt.Errorf("scan movement: %w", err)
		}
		list = append(list, m)
	}
	return list, rows.Err()
}
