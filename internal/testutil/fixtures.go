package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/inventario-core/internal/domain/entity"
)

// Catalog ids de una categoría, un proveedor y una bodega sembrados.
type Catalog struct {
	CategoryID  string
	SupplierID  string
	WarehouseID string
}

// SeedCatalog crea una categoría, un proveedor y una bodega.
func SeedCatalog(t *testing.T, s *Store) Catalog {
	t.Helper()
	ctx := context.Background()
	now := time.Now()
	c := Catalog{
		CategoryID:  uuid.New().String(),
		SupplierID:  uuid.New().String(),
		WarehouseID: uuid.New().String(),
	}
	must(t, s.Categories().Create(ctx, &entity.Category{ID: c.CategoryID, Name: "Abarrotes", CreatedAt: now, UpdatedAt: now}))
	must(t, s.Suppliers().Create(ctx, &entity.Supplier{ID: c.SupplierID, BusinessName: "Distribuidora Central", TaxID: "76.123.456-7", CreatedAt: now, UpdatedAt: now}))
	must(t, s.Warehouses().Create(ctx, &entity.Warehouse{ID: c.WarehouseID, Name: "Principal", Location: "Santiago", CreatedAt: now, UpdatedAt: now}))
	return c
}

// SeedProduct crea un producto con stock 0 en el catálogo dado y devuelve su id.
func SeedProduct(t *testing.T, s *Store, c Catalog, sku, name string) string {
	t.Helper()
	now := time.Now()
	id := uuid.New().String()
	must(t, s.Products().Create(context.Background(), &entity.Product{
		ID:         id,
		SKU:        sku,
		Name:       name,
		CategoryID: c.CategoryID,
		SupplierID: c.SupplierID,
		Price:      decimal.NewFromInt(1000),
		CreatedAt:  now,
		UpdatedAt:  now,
	}))
	return id
}

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
}
