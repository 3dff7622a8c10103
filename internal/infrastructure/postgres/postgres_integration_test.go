package postgres_test

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appinventory "github.com/jhoicas/inventario-core/internal/application/inventory"
	"github.com/jhoicas/inventario-core/internal/domain"
	"github.com/jhoicas/inventario-core/internal/domain/entity"
	"github.com/jhoicas/inventario-core/internal/domain/repository"
	"github.com/jhoicas/inventario-core/internal/infrastructure/postgres"
	"github.com/jhoicas/inventario-core/pkg/config"
)

// openTestDB abre TEST_DATABASE_URL, aplica el esquema y vacía las tablas. Sin la variable el test se omite.
func openTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL no definido; se omiten tests de integración")
	}
	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, config.DBConfig{DatabaseURL: url, MaxConns: 5})
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, postgres.Migrate(ctx, pool))
	_, err = pool.Exec(ctx, `TRUNCATE movements, products, warehouses, suppliers, categories, users CASCADE`)
	require.NoError(t, err)
	return pool
}

type pgFixture struct {
	pool        *pgxpool.Pool
	products    *postgres.ProductRepo
	movements   *postgres.MovementRepo
	warehouses  *postgres.WarehouseRepo
	categories  *postgres.CategoryRepo
	suppliers   *postgres.SupplierRepo
	ledger      *appinventory.StockLedger
	productID   string
	warehouseID string
	categoryID  string
}

func newPGFixture(t *testing.T) *pgFixture {
	pool := openTestDB(t)
	ctx := context.Background()
	f := &pgFixture{
		pool:       pool,
		products:   postgres.NewProductRepository(pool),
		movements:  postgres.NewMovementRepository(pool),
		warehouses: postgres.NewWarehouseRepository(pool),
		categories: postgres.NewCategoryRepository(pool),
		suppliers:  postgres.NewSupplierRepository(pool),
	}
	f.ledger = appinventory.NewStockLedger(
		postgres.NewTxRunner(pool, 2*time.Second), f.products, f.movements, f.warehouses,
		appinventory.LedgerConfig{MaxAttempts: 3, Backoff: 10 * time.Millisecond}, zerolog.Nop(),
	)

	now := time.Now().UTC()
	cat := &entity.Category{ID: uuid.New().String(), Name: "Abarrotes", CreatedAt: now, UpdatedAt: now}
	sup := &entity.Supplier{ID: uuid.New().String(), BusinessName: "Distribuidora Central", TaxID: "76.123.456-7", CreatedAt: now, UpdatedAt: now}
	wh := &entity.Warehouse{ID: uuid.New().String(), Name: "Principal", Location: "Santiago", CreatedAt: now, UpdatedAt: now}
	require.NoError(t, f.categories.Create(ctx, cat))
	require.NoError(t, f.suppliers.Create(ctx, sup))
	require.NoError(t, f.warehouses.Create(ctx, wh))
	p := &entity.Product{
		ID: uuid.New().String(), SKU: "ARZ-001", Name: "Arroz 1kg", CategoryID: cat.ID, SupplierID: sup.ID,
		Price: decimal.RequireFromString("1290.50"), CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, f.products.Create(ctx, p))
	f.productID, f.warehouseID, f.categoryID = p.ID, wh.ID, cat.ID
	return f
}

func (f *pgFixture) move(kind entity.MovementKind, qty int) (*entity.Movement, error) {
	return f.ledger.CreateMovement(context.Background(), appinventory.CreateMovementInput{
		ProductID: f.productID, WarehouseID: f.warehouseID, Kind: kind, Quantity: qty,
	})
}

func (f *pgFixture) stock(t *testing.T) int {
	t.Helper()
	p, err := f.products.GetByID(context.Background(), f.productID)
	require.NoError(t, err)
	require.NotNil(t, p)
	return p.Stock
}

func TestPostgres_LedgerRoundTrip(t *testing.T) {
	f := newPGFixture(t)

	in, err := f.move(entity.MovementIncoming, 10)
	require.NoError(t, err)
	assert.Equal(t, "ARZ-001", in.ProductSKU)
	assert.Equal(t, "Principal", in.WarehouseName)

	_, err = f.move(entity.MovementOutgoing, 11)
	ve, ok := domain.AsValidationError(err)
	require.True(t, ok, "se esperaba ValidationError, got %v", err)
	require.NotNil(t, ve.Available)
	assert.Equal(t, 10, *ve.Available)
	assert.Equal(t, 10, f.stock(t))

	qty := 4
	_, err = f.ledger.UpdateMovement(context.Background(), in.ID, appinventory.UpdateMovementInput{Quantity: &qty})
	require.NoError(t, err)
	assert.Equal(t, 4, f.stock(t))

	movs, err := f.movements.ListByProduct(context.Background(), f.productID)
	require.NoError(t, err)
	require.Len(t, movs, 1)
	assert.Equal(t, 4, movs[0].Quantity)

	require.NoError(t, f.ledger.DeleteMovement(context.Background(), in.ID))
	assert.Equal(t, 0, f.stock(t))
}

func TestPostgres_ConcurrentOutgoing(t *testing.T) {
	f := newPGFixture(t)
	_, err := f.move(entity.MovementIncoming, 10)
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.move(entity.MovementOutgoing, 6)
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 4, f.stock(t))
}

func TestPostgres_ReferentialProtection(t *testing.T) {
	f := newPGFixture(t)
	ctx := context.Background()
	_, err := f.move(entity.MovementIncoming, 1)
	require.NoError(t, err)

	assert.ErrorIs(t, f.products.Delete(ctx, f.productID), domain.ErrReferenced)
	assert.ErrorIs(t, f.warehouses.Delete(ctx, f.warehouseID), domain.ErrReferenced)
	assert.ErrorIs(t, f.categories.Delete(ctx, f.categoryID), domain.ErrReferenced)
}

func TestPostgres_StockCheckConstraint(t *testing.T) {
	f := newPGFixture(t)
	err := postgres.NewTxRunner(f.pool, time.Second).Run(context.Background(),
		func(_ repository.MovementRepository, products repository.ProductRepository) error {
			return products.UpdateStock(context.Background(), f.productID, -1)
		})
	assert.True(t, errors.Is(err, domain.ErrNegativeStock), "got %v", err)
	assert.Equal(t, 0, f.stock(t))
}

func TestPostgres_ListFilters(t *testing.T) {
	f := newPGFixture(t)
	ctx := context.Background()

	below := 1
	list, err := f.products.List(ctx, repository.ProductFilter{StockBelow: &below})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Abarrotes", list[0].CategoryName)
	assert.True(t, decimal.RequireFromString("1290.50").Equal(list[0].Price))

	list, err = f.products.List(ctx, repository.ProductFilter{ListFilter: repository.ListFilter{Search: "arroz"}})
	require.NoError(t, err)
	assert.Len(t, list, 1)

	list, err = f.products.List(ctx, repository.ProductFilter{ListFilter: repository.ListFilter{Search: "fideos"}})
	require.NoError(t, err)
	assert.Empty(t, list)

	dup := &entity.Category{ID: uuid.New().String(), Name: "Abarrotes", CreatedAt: time.Now(), UpdatedAt: time.Now()}
	assert.ErrorIs(t, f.categories.Create(ctx, dup), domain.ErrDuplicate)
}

func TestPostgres_LockTimeoutIsRetryable(t *testing.T) {
	f := newPGFixture(t)
	ctx := context.Background()

	holder, err := f.pool.Begin(ctx)
	require.NoError(t, err)
	defer func() { _ = holder.Rollback(ctx) }()
	_, err = holder.Exec(ctx, `SELECT 1 FROM products WHERE id = $1 FOR UPDATE`, f.productID)
	require.NoError(t, err)

	err = postgres.NewTxRunner(f.pool, 50*time.Millisecond).Run(ctx,
		func(_ repository.MovementRepository, products repository.ProductRepository) error {
			_, err := products.GetForUpdate(ctx, f.productID)
			return err
		})
	assert.ErrorIs(t, err, domain.ErrLockTimeout)
}

func TestPostgres_IDMalformadoEsInexistente(t *testing.T) {
	f := newPGFixture(t)
	ctx := context.Background()

	m, err := f.movements.GetByID(ctx, "abc")
	require.NoError(t, err)
	assert.Nil(t, m)

	_, err = f.ledger.CreateMovement(ctx, appinventory.CreateMovementInput{
		ProductID: "abc", WarehouseID: f.warehouseID, Kind: entity.MovementIncoming, Quantity: 1,
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, f.products.Delete(ctx, "abc"), domain.ErrNotFound)
}

func TestPostgres_MigracionIdempotente(t *testing.T) {
	pool := openTestDB(t)
	ctx := context.Background()

	require.NoError(t, postgres.Migrate(ctx, pool))
	v, err := postgres.SchemaVersion(ctx, pool)
	require.NoError(t, err)
	assert.Equal(t, int32(1), v)
}

func TestPostgres_EntradaConsumidaNoSeEditaNiElimina(t *testing.T) {
	f := newPGFixture(t)
	ctx := context.Background()
	in, err := f.move(entity.MovementIncoming, 10)
	require.NoError(t, err)
	_, err = f.move(entity.MovementOutgoing, 8)
	require.NoError(t, err)

	qty := 9
	_, err = f.ledger.UpdateMovement(ctx, in.ID, appinventory.UpdateMovementInput{Quantity: &qty})
	assert.ErrorIs(t, err, domain.ErrNegativeStock)
	assert.ErrorIs(t, f.ledger.DeleteMovement(ctx, in.ID), domain.ErrNegativeStock)

	assert.Equal(t, 2, f.stock(t))
	stored, err := f.movements.GetByID(ctx, in.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, stored.Quantity)
}
