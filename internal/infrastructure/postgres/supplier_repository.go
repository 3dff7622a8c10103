package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/inventario-core/internal/domain"
	"github.com/jhoicas/inventario-core/internal/domain/entity"
	"github.com/jhoicas/inventario-core/internal/domain/repository"
)

var _ repository.SupplierRepository = (*SupplierRepo)(nil)

var supplierColumns = map[string]string{
	"business_name": "business_name",
	"tax_id":        "tax_id",
	"created_at":    "created_at",
}

// SupplierRepo implementación del puerto SupplierRepository sobre PostgreSQL.
type SupplierRepo struct {
	q Querier
}

// NewSupplierRepository construye el adaptador de persistencia para proveedores.
func NewSupplierRepository(q Querier) *SupplierRepo {
	return &SupplierRepo{q: q}
}

// Create persiste un nuevo proveedor.
func (r *SupplierRepo) Create(ctx context.Context, s *entity.Supplier) error {
	query := `
		INSERT INTO suppliers (id, business_name, tax_id, email, phone, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.q.Exec(ctx, query, s.ID, s.BusinessName, s.TaxID, s.Email, s.Phone, s.CreatedAt, s.UpdatedAt)
	return mapError("insert supplier", err)
}

// GetByID obtiene un proveedor por ID.
func (r *SupplierRepo) GetByID(ctx context.Context, id string) (*entity.Supplier, error) {
	if !isUUID(id) {
		return nil, nil
	}
	var s entity.Supplier
	err := r.q.QueryRow(ctx, `
		SELECT id, business_name, tax_id, email, phone, created_at, updated_at
		FROM suppliers WHERE id = $1`, id,
	).Scan(&s.ID, &s.BusinessName, &s.TaxID, &s.Email, &s.Phone, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, mapError("get supplier", err)
	}
	return &s, nil
}

// Update actualiza los datos del proveedor.
func (r *SupplierRepo) Update(ctx context.Context, s *entity.Supplier) error {
	if !isUUID(s.ID) {
		return domain.ErrNotFound
	}
	cmd, err := r.q.Exec(ctx, `
		UPDATE suppliers SET business_name = $2, tax_id = $3, email = $4, phone = $5, updated_at = $6
		WHERE id = $1`,
		s.ID, s.BusinessName, s.TaxID, s.Email, s.Phone, s.UpdatedAt,
	)
	if err != nil {
		return mapError("update supplier", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// List lista proveedores con búsqueda por razón social, RUT o email.
func (r *SupplierRepo) List(ctx context.Context, f repository.ListFilter) ([]*entity.Supplier, error) {
	query := `
		SELECT id, business_name, tax_id, email, phone, created_at, updated_at FROM suppliers
		WHERE ($1 = '' OR business_name ILIKE '%' || $1 || '%' OR tax_id ILIKE '%' || $1 || '%'
		       OR email ILIKE '%' || $1 || '%')
		ORDER BY ` + orderClause(f.OrderBy, supplierColumns, "business_name ASC") + `, id
		LIMIT $2 OFFSET $3`
	rows, err := r.q.Query(ctx, query, f.Search, limitArg(f.Limit), f.Offset)
	if err != nil {
		return nil, mapError("list suppliers", err)
	}
	defer rows.Close()
	list := make([]*entity.Supplier, 0)
	for rows.Next() {
		var s entity.Supplier
		if err := rows.Scan(&s.ID, &s.BusinessName, &s.TaxID, &s.Email, &s.Phone, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan supplier: %w", err)
		}
		list = append(list, &s)
	}
	return list, rows.Err()
}

// Delete elimina un proveedor. Con productos asociados devuelve domain.ErrReferenced.
func (r *SupplierRepo) Delete(ctx context.Context, id string) error {
	if !isUUID(id) {
		return domain.ErrNotFound
	}
	cmd, err := r.q.Exec(ctx, `DELETE FROM suppliers WHERE id = $1`, id)
	if err != nil {
		return mapError("delete supplier", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
