package features

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/cucumber/godog"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	appinventory "github.com/jhoicas/inventario-core/internal/application/inventory"
	"github.com/jhoicas/inventario-core/internal/domain"
	"github.com/jhoicas/inventario-core/internal/domain/entity"
	"github.com/jhoicas/inventario-core/internal/domain/inventory"
	"github.com/jhoicas/inventario-core/internal/testutil"
)

type ledgerTestContext struct {
	store       *testutil.Store
	ledger      *appinventory.StockLedger
	productID   string
	warehouseID string
	first       *entity.Movement
	last        *entity.Movement
	err         error
	concurrent  []error
}

func (c *ledgerTestContext) reset() {
	c.store = testutil.NewStore()
	c.ledger = appinventory.NewStockLedger(c.store, c.store.Products(), c.store.Movements(), c.store.Warehouses(),
		appinventory.LedgerConfig{MaxAttempts: 3, Backoff: time.Millisecond}, zerolog.Nop())
	c.productID, c.warehouseID = "", ""
	c.first, c.last, c.err, c.concurrent = nil, nil, nil, nil
}

func (c *ledgerTestContext) aProductWithStock(sku string, stock int) error {
	ctx := context.Background()
	now := time.Now()
	category := &entity.Category{ID: uuid.New().String(), Name: "General", CreatedAt: now, UpdatedAt: now}
	supplier := &entity.Supplier{ID: uuid.New().String(), BusinessName: "Proveedor", TaxID: "1-9", CreatedAt: now, UpdatedAt: now}
	warehouse := &entity.Warehouse{ID: uuid.New().String(), Name: "Principal", Location: "Centro", CreatedAt: now, UpdatedAt: now}
	product := &entity.Product{
		ID: uuid.New().String(), SKU: sku, Name: sku, CategoryID: category.ID, SupplierID: supplier.ID,
		Price: decimal.NewFromInt(1), CreatedAt: now, UpdatedAt: now,
	}
	if err := c.store.Categories().Create(ctx, category); err != nil {
		return err
	}
	if err := c.store.Suppliers().Create(ctx, supplier); err != nil {
		return err
	}
	if err := c.store.Warehouses().Create(ctx, warehouse); err != nil {
		return err
	}
	if err := c.store.Products().Create(ctx, product); err != nil {
		return err
	}
	c.productID, c.warehouseID = product.ID, warehouse.ID
	if stock > 0 {
		if _, err := c.register(entity.MovementIncoming, stock); err != nil {
			return err
		}
	}
	return nil
}

func (c *ledgerTestContext) register(kind entity.MovementKind, qty int) (*entity.Movement, error) {
	return c.ledger.CreateMovement(context.Background(), appinventory.CreateMovementInput{
		ProductID:   c.productID,
		WarehouseID: c.warehouseID,
		Kind:        kind,
		Quantity:    qty,
	})
}

func (c *ledgerTestContext) iRegisterAMovement(kind string, qty int) error {
	m, err := c.register(entity.MovementKind(kind), qty)
	c.err = err
	if err == nil {
		c.last = m
		if c.first == nil {
			c.first = m
		}
	}
	return nil
}

// target resuelve "first" (primer movimiento registrado en el escenario) o "last".
func (c *ledgerTestContext) target(which string) (*entity.Movement, error) {
	m := c.last
	if which == "first" {
		m = c.first
	}
	if m == nil {
		return nil, errors.New("no hay movimiento previo")
	}
	return m, nil
}

func (c *ledgerTestContext) iEditAMovement(which, kind string, qty int) error {
	target, err := c.target(which)
	if err != nil {
		return err
	}
	k := entity.MovementKind(kind)
	m, err := c.ledger.UpdateMovement(context.Background(), target.ID, appinventory.UpdateMovementInput{Kind: &k, Quantity: &qty})
	c.err = err
	if err == nil && which == "last" {
		c.last = m
	}
	return nil
}

func (c *ledgerTestContext) iDeleteAMovement(which string) error {
	target, err := c.target(which)
	if err != nil {
		return err
	}
	c.err = c.ledger.DeleteMovement(context.Background(), target.ID)
	return nil
}

func (c *ledgerTestContext) movementsRegisteredConcurrently(kind string, qty int) error {
	var wg sync.WaitGroup
	start := make(chan struct{})
	c.concurrent = make([]error, 2)
	for i := range c.concurrent {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, c.concurrent[i] = c.register(entity.MovementKind(kind), qty)
		}(i)
	}
	close(start)
	wg.Wait()
	return nil
}

func (c *ledgerTestContext) theMovementIsAccepted() error {
	if c.err != nil {
		return fmt.Errorf("se esperaba éxito, error: %v", c.err)
	}
	return nil
}

func (c *ledgerTestContext) theMovementIsRejectedWith(reason string) error {
	if c.err == nil {
		return errors.New("se esperaba un rechazo")
	}
	switch reason {
	case "insufficient stock":
		if !errors.Is(c.err, domain.ErrInsufficientStock) {
			return fmt.Errorf("se esperaba stock insuficiente, error: %v", c.err)
		}
	case "negative stock":
		if !errors.Is(c.err, domain.ErrNegativeStock) {
			return fmt.Errorf("se esperaba stock negativo, error: %v", c.err)
		}
	case "invalid quantity":
		ve, ok := domain.AsValidationError(c.err)
		if !ok || ve.Field != "quantity" || ve.Available != nil {
			return fmt.Errorf("se esperaba cantidad inválida, error: %v", c.err)
		}
	default:
		return fmt.Errorf("motivo desconocido %q", reason)
	}
	return nil
}

func (c *ledgerTestContext) theAvailableStockReportedIs(n int) error {
	ve, ok := domain.AsValidationError(c.err)
	if !ok || ve.Available == nil {
		return fmt.Errorf("el error no informa disponible: %v", c.err)
	}
	if *ve.Available != n {
		return fmt.Errorf("disponible %d, se esperaba %d", *ve.Available, n)
	}
	return nil
}

func (c *ledgerTestContext) theProductStockIs(n int) error {
	if got := c.store.Stock(c.productID); got != n {
		return fmt.Errorf("stock %d, se esperaba %d", got, n)
	}
	return nil
}

func (c *ledgerTestContext) theStockEqualsTheNetOfItsMovements() error {
	stock := c.store.Stock(c.productID)
	net := inventory.NetStock(c.store.MovementsOf(c.productID))
	if stock != net {
		return fmt.Errorf("stock %d distinto del neto de movimientos %d", stock, net)
	}
	return nil
}

func (c *ledgerTestContext) exactlyNOfThemSucceed(n int) error {
	ok := 0
	for _, err := range c.concurrent {
		if err == nil {
			ok++
		} else if !errors.Is(err, domain.ErrInsufficientStock) {
			return fmt.Errorf("error inesperado: %v", err)
		}
	}
	if ok != n {
		return fmt.Errorf("%d éxitos, se esperaban %d", ok, n)
	}
	return nil
}

func InitializeScenario(ctx *godog.ScenarioContext) {
	tc := &ledgerTestContext{}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		tc.reset()
		return ctx, nil
	})

	qty := func(fn func(string, int) error) func(string, string) error {
		return func(kind, n string) error {
			v, err := strconv.Atoi(n)
			if err != nil {
				return err
			}
			return fn(kind, v)
		}
	}

	// Given
	ctx.Step(`^a product "([^"]*)" with stock (\d+)$`, tc.aProductWithStock)

	// When
	ctx.Step(`^I register an? (INCOMING|OUTGOING|SHRINKAGE) movement of (-?\d+) units?$`, qty(tc.iRegisterAMovement))
	ctx.Step(`^I edit the (first|last) movement to (INCOMING|OUTGOING|SHRINKAGE) of (\d+) units?$`, func(which, kind, n string) error {
		return qty(func(kind string, v int) error { return tc.iEditAMovement(which, kind, v) })(kind, n)
	})
	ctx.Step(`^I delete the (first|last) movement$`, tc.iDeleteAMovement)
	ctx.Step(`^two (INCOMING|OUTGOING|SHRINKAGE) movements of (\d+) units are registered concurrently$`, qty(tc.movementsRegisteredConcurrently))

	// Then
	ctx.Step(`^the movement is accepted$`, tc.theMovementIsAccepted)
	ctx.Step(`^the movement is rejected with "([^"]*)"$`, tc.theMovementIsRejectedWith)
	ctx.Step(`^the available stock reported is (\d+)$`, tc.theAvailableStockReportedIs)
	ctx.Step(`^the product stock is (\d+)$`, tc.theProductStockIs)
	ctx.Step(`^the stock equals the net of its movements$`, tc.theStockEqualsTheNetOfItsMovements)
	ctx.Step(`^exactly (\d+) of them succeeds?$`, tc.exactlyNOfThemSucceed)
}

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"stock_ledger.feature"},
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
