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

var _ repository.ProductRepository = (*ProductRepo)(nil)

const productSelect = `
		SELECT p.id, p.sku, p.name, p.category_id, c.name, p.supplier_id, s.business_name,
		       p.price, p.stock_actual, p.created_at, p.updated_at
		FROM products p
		JOIN categories c ON c.id = p.category_id
		JOIN suppliers s ON s.id = p.supplier_id`

var productColumns = map[string]string{
	"sku":          "p.sku",
	"name":         "p.name",
	"price":        "p.price",
	"stock_actual": "p.stock_actual",
	"created_at":   "p.created_at",
}

// ProductRepo implementación del puerto ProductRepository sobre PostgreSQL (usable con pool o tx).
type ProductRepo struct {
	q Querier
}

// NewProductRepository construye el adaptador de persistencia para productos. Pasar pool o tx (Querier).
func NewProductRepository(q Querier) *ProductRepo {
	return &ProductRepo{q: q}
}

// Create persiste un nuevo producto. stock_actual inicia en 0.
func (r *ProductRepo) Create(ctx context.Context, product *entity.Product) error {
	query := `
		INSERT INTO products (id, sku, name, category_id, supplier_id, price, stock_actual, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, 0, $7, $8)`
	_, err := r.q.Exec(ctx, query,
		product.ID, product.SKU, product.Name, product.CategoryID, product.SupplierID,
		product.Price, product.CreatedAt, product.UpdatedAt,
	)
	if err != nil {
		return mapError("insert product", err)
	}
	return nil
}

func scanProduct(row pgx.Row) (*entity.Product, error) {
	var p entity.Product
	err := row.Scan(&p.ID, &p.SKU, &p.Name, &p.CategoryID, &p.CategoryName, &p.SupplierID, &p.SupplierName,
		&p.Price, &p.Stock, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *ProductRepo) getOne(ctx context.Context, op, query string, arg any) (*entity.Product, error) {
	p, err := scanProduct(r.q.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, mapError(op, err)
	}
	return p, nil
}

// GetByID obtiene un producto por ID.
func (r *ProductRepo) GetByID(ctx context.Context, id string) (*entity.Product, error) {
	if !isUUID(id) {
		return nil, nil
	}
	return r.getOne(ctx, "get product", productSelect+` WHERE p.id = $1`, id)
}

// GetBySKU obtiene un producto por SKU normalizado.
func (r *ProductRepo) GetBySKU(ctx context.Context, sku string) (*entity.Product, error) {
	return r.getOne(ctx, "get product by sku", productSelect+` WHERE p.sku = $1`, sku)
}

// GetForUpdate obtiene el producto y bloquea su fila (SELECT FOR UPDATE OF p) hasta el fin de la tx.
func (r *ProductRepo) GetForUpdate(ctx context.Context, id string) (*entity.Product, error) {
	if !isUUID(id) {
		return nil, nil
	}
	return r.getOne(ctx, "get product for update", productSelect+` WHERE p.id = $1 FOR UPDATE OF p`, id)
}

// Update actualiza un producto existente. No modifica stock_actual (se maneja vía movimientos).
func (r *ProductRepo) Update(ctx context.Context, product *entity.Product) error {
	if !isUUID(product.ID) {
		return domain.ErrNotFound
	}
	query := `
		UPDATE products SET sku = $2, name = $3, category_id = $4, supplier_id = $5, price = $6, updated_at = $7
		WHERE id = $1`
	cmd, err := r.q.Exec(ctx, query,
		product.ID, product.SKU, product.Name, product.CategoryID, product.SupplierID,
		product.Price, product.UpdatedAt,
	)
	if err != nil {
		return mapError("update product", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// UpdateStock fija stock_actual. Solo lo usa el ledger con la fila bloqueada.
func (r *ProductRepo) UpdateStock(ctx context.Context, id string, stock int) error {
	if !isUUID(id) {
		return domain.ErrNotFound
	}
	cmd, err := r.q.Exec(ctx,
		`UPDATE products SET stock_actual = $2, updated_at = now() WHERE id = $1`,
		id, stock,
	)
	if err != nil {
		return mapError("update product stock", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// List lista productos con búsqueda, filtro stock_actual < StockBelow y paginación.
func (r *ProductRepo) List(ctx context.Context, f repository.ProductFilter) ([]*entity.Product, error) {
	query := productSelect + `
		WHERE ($1 = '' OR p.sku ILIKE '%' || $1 || '%' OR p.name ILIKE '%' || $1 || '%'
		       OR c.name ILIKE '%' || $1 || '%' OR s.business_name ILIKE '%' || $1 || '%')
		  AND ($2::int IS NULL OR p.stock_actual < $2)
		ORDER BY ` + orderClause(f.OrderBy, productColumns, "p.sku ASC") + `, p.id
		LIMIT $3 OFFSET $4`
	rows, err := r.q.Query(ctx, query, f.Search, f.StockBelow, limitArg(f.Limit), f.Offset)
	if err != nil {
		return nil, mapError("list products", err)
	}
	defer rows.Close()
	list := make([]*entity.Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

// Delete elimina un producto por ID. Con movimientos asociados devuelve domain.ErrReferenced.
func (r *ProductRepo) Delete(ctx context.Context, id string) error {
	if !isUUID(id) {
		return domain.ErrNotFound
	}
	cmd, err := r.q.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return mapError("delete product", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
