package inventory_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appinventory "github.com/jhoicas/inventario-core/internal/application/inventory"
	"github.com/jhoicas/inventario-core/internal/domain"
	"github.com/jhoicas/inventario-core/internal/domain/entity"
	"github.com/jhoicas/inventario-core/internal/domain/inventory"
	"github.com/jhoicas/inventario-core/internal/domain/repository"
	"github.com/jhoicas/inventario-core/internal/testutil"
)

type ledgerFixture struct {
	store     *testutil.Store
	ledger    *appinventory.StockLedger
	catalog   testutil.Catalog
	productID string
}

func newLedgerFixture(t *testing.T) *ledgerFixture {
	t.Helper()
	s := testutil.NewStore()
	c := testutil.SeedCatalog(t, s)
	pid := testutil.SeedProduct(t, s, c, "ARZ-001", "Arroz 1kg")
	l := appinventory.NewStockLedger(s, s.Products(), s.Movements(), s.Warehouses(),
		appinventory.LedgerConfig{MaxAttempts: 3, Backoff: time.Millisecond}, zerolog.Nop())
	return &ledgerFixture{store: s, ledger: l, catalog: c, productID: pid}
}

func (f *ledgerFixture) create(kind entity.MovementKind, qty int) (*entity.Movement, error) {
	return f.ledger.CreateMovement(context.Background(), appinventory.CreateMovementInput{
		UserID:      "user-1",
		ProductID:   f.productID,
		WarehouseID: f.catalog.WarehouseID,
		Kind:        kind,
		Quantity:    qty,
	})
}

func (f *ledgerFixture) mustCreate(t *testing.T, kind entity.MovementKind, qty int) *entity.Movement {
	t.Helper()
	m, err := f.create(kind, qty)
	require.NoError(t, err)
	return m
}

// withStock lleva el producto al stock indicado con una entrada.
func (f *ledgerFixture) withStock(t *testing.T, stock int) {
	t.Helper()
	if stock > 0 {
		f.mustCreate(t, entity.MovementIncoming, stock)
	}
	require.Equal(t, stock, f.store.Stock(f.productID))
}

func (f *ledgerFixture) assertInvariant(t *testing.T) {
	t.Helper()
	stock := f.store.Stock(f.productID)
	assert.GreaterOrEqual(t, stock, 0)
	assert.Equal(t, inventory.NetStock(f.store.MovementsOf(f.productID)), stock)
}

func intPtr(n int) *int { return &n }

func kindPtr(k entity.MovementKind) *entity.MovementKind { return &k }

// ──────────────────────────────────────────────────────────────────────────────
// Escenarios
// ──────────────────────────────────────────────────────────────────────────────

func TestLedger_EscenarioA_SalidaTotalLuegoRechazo(t *testing.T) {
	f := newLedgerFixture(t)
	f.withStock(t, 10)

	f.mustCreate(t, entity.MovementOutgoing, 10)
	assert.Equal(t, 0, f.store.Stock(f.productID))

	_, err := f.create(entity.MovementOutgoing, 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInsufficientStock))
	assert.Equal(t, 0, f.store.Stock(f.productID))
	f.assertInvariant(t)
}

func TestLedger_EscenarioB_EdicionDeEntrada(t *testing.T) {
	f := newLedgerFixture(t)
	f.withStock(t, 5)

	m := f.mustCreate(t, entity.MovementIncoming, 3)
	assert.Equal(t, 8, f.store.Stock(f.productID))

	updated, err := f.ledger.UpdateMovement(context.Background(), m.ID, appinventory.UpdateMovementInput{Quantity: intPtr(1)})
	require.NoError(t, err)
	assert.Equal(t, 1, updated.Quantity)
	assert.Equal(t, 6, f.store.Stock(f.productID))
	f.assertInvariant(t)
}

func TestLedger_EscenarioC_MermaSinStock(t *testing.T) {
	f := newLedgerFixture(t)

	_, err := f.create(entity.MovementShrinkage, 1)
	require.Error(t, err)
	ve, ok := domain.AsValidationError(err)
	require.True(t, ok)
	assert.Equal(t, "quantity", ve.Field)
	require.NotNil(t, ve.Available)
	assert.Equal(t, 0, *ve.Available)
	assert.Contains(t, ve.Message, "No hay stock suficiente")
	assert.Equal(t, 0, f.store.Stock(f.productID))
}

// ──────────────────────────────────────────────────────────────────────────────
// Crear
// ──────────────────────────────────────────────────────────────────────────────

func TestLedger_CreateDevuelveCamposDePresentacion(t *testing.T) {
	f := newLedgerFixture(t)
	m := f.mustCreate(t, entity.MovementIncoming, 4)

	assert.NotEmpty(t, m.ID)
	assert.Equal(t, "ARZ-001", m.ProductSKU)
	assert.Equal(t, "Arroz 1kg", m.ProductName)
	assert.Equal(t, "Principal", m.WarehouseName)
	assert.Equal(t, "user-1", m.CreatedBy)
	assert.False(t, m.Date.IsZero())
}

func TestLedger_CreateCantidadInvalidaNoTocaNada(t *testing.T) {
	f := newLedgerFixture(t)
	f.withStock(t, 3)
	commits := f.store.Commits()

	for _, qty := range []int{0, -2} {
		_, err := f.create(entity.MovementIncoming, qty)
		require.Error(t, err)
		assert.True(t, errors.Is(err, domain.ErrInvalidInput))
		assert.False(t, errors.Is(err, domain.ErrInsufficientStock))
	}
	assert.Equal(t, commits, f.store.Commits())
	assert.Equal(t, 3, f.store.Stock(f.productID))
}

func TestLedger_CreateReferenciasInexistentes(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()

	_, err := f.ledger.CreateMovement(ctx, appinventory.CreateMovementInput{
		ProductID: "no-existe", WarehouseID: f.catalog.WarehouseID,
		Kind: entity.MovementIncoming, Quantity: 1,
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.ledger.CreateMovement(ctx, appinventory.CreateMovementInput{
		ProductID: f.productID, WarehouseID: "no-existe",
		Kind: entity.MovementIncoming, Quantity: 1,
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.ledger.CreateMovement(ctx, appinventory.CreateMovementInput{
		ProductID: f.productID, WarehouseID: f.catalog.WarehouseID,
		Kind: entity.MovementKind("TRANSFER"), Quantity: 1,
	})
	ve, ok := domain.AsValidationError(err)
	require.True(t, ok)
	assert.Equal(t, "kind", ve.Field)
}

// ──────────────────────────────────────────────────────────────────────────────
// Editar
// ──────────────────────────────────────────────────────────────────────────────

func TestLedger_EdicionInfactibleRevierteTodo(t *testing.T) {
	f := newLedgerFixture(t)
	f.withStock(t, 10)
	out := f.mustCreate(t, entity.MovementOutgoing, 4)
	require.Equal(t, 6, f.store.Stock(f.productID))

	_, err := f.ledger.UpdateMovement(context.Background(), out.ID, appinventory.UpdateMovementInput{Quantity: intPtr(11)})
	require.Error(t, err)
	ve, ok := domain.AsValidationError(err)
	require.True(t, ok)
	assert.Equal(t, 10, *ve.Available, "el disponible es el stock con la salida revertida")

	assert.Equal(t, 6, f.store.Stock(f.productID), "la reversión no se confirma")
	stored, err := f.store.Movements().GetByID(context.Background(), out.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, stored.Quantity)
	f.assertInvariant(t)
}

func TestLedger_EdicionHastaElDisponibleRevertido(t *testing.T) {
	f := newLedgerFixture(t)
	f.withStock(t, 10)
	out := f.mustCreate(t, entity.MovementOutgoing, 4)

	_, err := f.ledger.UpdateMovement(context.Background(), out.ID, appinventory.UpdateMovementInput{Quantity: intPtr(10)})
	require.NoError(t, err)
	assert.Equal(t, 0, f.store.Stock(f.productID))
	f.assertInvariant(t)
}

func TestLedger_EdicionCambiaTipo(t *testing.T) {
	f := newLedgerFixture(t)
	f.withStock(t, 5)
	m := f.mustCreate(t, entity.MovementOutgoing, 2)
	require.Equal(t, 3, f.store.Stock(f.productID))

	_, err := f.ledger.UpdateMovement(context.Background(), m.ID, appinventory.UpdateMovementInput{
		Kind: kindPtr(entity.MovementIncoming),
	})
	require.NoError(t, err)
	assert.Equal(t, 7, f.store.Stock(f.productID))
	f.assertInvariant(t)
}

func TestLedger_EdicionDeEntradaConsumida(t *testing.T) {
	f := newLedgerFixture(t)
	in := f.mustCreate(t, entity.MovementIncoming, 10)
	f.mustCreate(t, entity.MovementOutgoing, 8)
	ctx := context.Background()

	// deshacer la entrada dejaría -8: se rechaza aunque la nueva cantidad cubriría el faltante
	for _, qty := range []int{9, 5} {
		_, err := f.ledger.UpdateMovement(ctx, in.ID, appinventory.UpdateMovementInput{Quantity: intPtr(qty)})
		assert.ErrorIs(t, err, domain.ErrNegativeStock)
		var neg *domain.NegativeStockError
		require.ErrorAs(t, err, &neg)
		assert.Equal(t, -8, neg.Stock+neg.Delta)

		assert.Equal(t, 2, f.store.Stock(f.productID))
		stored, err := f.store.Movements().GetByID(ctx, in.ID)
		require.NoError(t, err)
		assert.Equal(t, 10, stored.Quantity)
	}
	f.assertInvariant(t)
}

func TestLedger_EdicionNoPermiteCambiarProducto(t *testing.T) {
	f := newLedgerFixture(t)
	m := f.mustCreate(t, entity.MovementIncoming, 1)
	other := testutil.SeedProduct(t, f.store, f.catalog, "AZU-001", "Azúcar")

	_, err := f.ledger.UpdateMovement(context.Background(), m.ID, appinventory.UpdateMovementInput{ProductID: &other})
	ve, ok := domain.AsValidationError(err)
	require.True(t, ok)
	assert.Equal(t, "product_id", ve.Field)

	same := f.productID
	_, err = f.ledger.UpdateMovement(context.Background(), m.ID, appinventory.UpdateMovementInput{ProductID: &same, Note: strPtr("ok")})
	assert.NoError(t, err)
}

func TestLedger_EdicionMovimientoInexistente(t *testing.T) {
	f := newLedgerFixture(t)
	_, err := f.ledger.UpdateMovement(context.Background(), "no-existe", appinventory.UpdateMovementInput{Quantity: intPtr(1)})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func strPtr(s string) *string { return &s }

// Propiedad: editar equivale a eliminar y volver a crear con los nuevos valores.
func TestLedger_EdicionEquivaleAEliminarYCrear(t *testing.T) {
	type edit struct {
		kind entity.MovementKind
		qty  int
	}
	cases := []struct {
		initial  int
		original edit
		next     edit
	}{
		{10, edit{entity.MovementOutgoing, 4}, edit{entity.MovementOutgoing, 7}},
		{10, edit{entity.MovementOutgoing, 4}, edit{entity.MovementShrinkage, 10}},
		{10, edit{entity.MovementOutgoing, 4}, edit{entity.MovementOutgoing, 11}},
		{5, edit{entity.MovementIncoming, 3}, edit{entity.MovementIncoming, 1}},
		{5, edit{entity.MovementIncoming, 3}, edit{entity.MovementOutgoing, 5}},
		{5, edit{entity.MovementIncoming, 3}, edit{entity.MovementOutgoing, 6}},
		{0, edit{entity.MovementIncoming, 2}, edit{entity.MovementShrinkage, 1}},
	}
	for _, tc := range cases {
		ctx := context.Background()

		a := newLedgerFixture(t)
		a.withStock(t, tc.initial)
		ma := a.mustCreate(t, tc.original.kind, tc.original.qty)
		_, errEdit := a.ledger.UpdateMovement(ctx, ma.ID, appinventory.UpdateMovementInput{
			Kind: kindPtr(tc.next.kind), Quantity: intPtr(tc.next.qty),
		})

		b := newLedgerFixture(t)
		b.withStock(t, tc.initial)
		mb := b.mustCreate(t, tc.original.kind, tc.original.qty)
		stockBefore := b.store.Stock(b.productID)
		require.NoError(t, b.ledger.DeleteMovement(ctx, mb.ID))
		_, errCreate := b.create(tc.next.kind, tc.next.qty)
		if errCreate != nil {
			// el par eliminar+crear fallido deja el estado previo al eliminar
			_, err := b.create(tc.original.kind, tc.original.qty)
			require.NoError(t, err)
			require.Equal(t, stockBefore, b.store.Stock(b.productID))
		}

		assert.Equal(t, errCreate == nil, errEdit == nil, "caso %+v", tc)
		assert.Equal(t, b.store.Stock(b.productID), a.store.Stock(a.productID), "caso %+v", tc)
		a.assertInvariant(t)
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Eliminar
// ──────────────────────────────────────────────────────────────────────────────

func TestLedger_EliminarRevierteEfecto(t *testing.T) {
	f := newLedgerFixture(t)
	f.withStock(t, 10)
	out := f.mustCreate(t, entity.MovementShrinkage, 3)
	require.Equal(t, 7, f.store.Stock(f.productID))

	require.NoError(t, f.ledger.DeleteMovement(context.Background(), out.ID))
	assert.Equal(t, 10, f.store.Stock(f.productID))
	m, err := f.store.Movements().GetByID(context.Background(), out.ID)
	require.NoError(t, err)
	assert.Nil(t, m)
	f.assertInvariant(t)
}

func TestLedger_EliminarEntradaConsumidaSeRechaza(t *testing.T) {
	f := newLedgerFixture(t)
	in := f.mustCreate(t, entity.MovementIncoming, 10)
	f.mustCreate(t, entity.MovementOutgoing, 8)

	err := f.ledger.DeleteMovement(context.Background(), in.ID)
	assert.ErrorIs(t, err, domain.ErrNegativeStock)
	assert.False(t, errors.Is(err, domain.ErrInsufficientStock))
	assert.Equal(t, 2, f.store.Stock(f.productID))
	assert.Len(t, f.store.MovementsOf(f.productID), 2)
}

func TestLedger_EliminarInexistente(t *testing.T) {
	f := newLedgerFixture(t)
	assert.ErrorIs(t, f.ledger.DeleteMovement(context.Background(), "no-existe"), domain.ErrNotFound)
}

// ──────────────────────────────────────────────────────────────────────────────
// Invariante en secuencias
// ──────────────────────────────────────────────────────────────────────────────

func TestLedger_SecuenciaMixtaMantieneInvariante(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	ops := []struct {
		kind entity.MovementKind
		qty  int
	}{
		{entity.MovementIncoming, 7}, {entity.MovementOutgoing, 3}, {entity.MovementShrinkage, 5},
		{entity.MovementIncoming, 2}, {entity.MovementOutgoing, 9}, {entity.MovementShrinkage, 1},
		{entity.MovementIncoming, 12}, {entity.MovementOutgoing, 12},
	}
	var created []*entity.Movement
	for _, op := range ops {
		if m, err := f.create(op.kind, op.qty); err == nil {
			created = append(created, m)
		}
		f.assertInvariant(t)
	}
	for i, m := range created {
		if i%2 == 0 {
			_ = f.ledger.DeleteMovement(ctx, m.ID)
		} else {
			_, _ = f.ledger.UpdateMovement(ctx, m.ID, appinventory.UpdateMovementInput{Quantity: intPtr(m.Quantity + 1)})
		}
		f.assertInvariant(t)
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Concurrencia y bloqueos
// ──────────────────────────────────────────────────────────────────────────────

func TestLedger_SalidasConcurrentesSoloUnaGana(t *testing.T) {
	for i := 0; i < 20; i++ {
		f := newLedgerFixture(t)
		f.withStock(t, 10)

		var wg sync.WaitGroup
		start := make(chan struct{})
		errs := make([]error, 2)
		for g := 0; g < 2; g++ {
			wg.Add(1)
			go func(g int) {
				defer wg.Done()
				<-start
				_, errs[g] = f.create(entity.MovementOutgoing, 6)
			}(g)
		}
		close(start)
		wg.Wait()

		ok := 0
		for _, err := range errs {
			if err == nil {
				ok++
			} else {
				assert.ErrorIs(t, err, domain.ErrInsufficientStock)
			}
		}
		assert.Equal(t, 1, ok)
		assert.Equal(t, 4, f.store.Stock(f.productID))
		f.assertInvariant(t)
	}
}

func TestLedger_ReintentaAnteBloqueoAgotado(t *testing.T) {
	f := newLedgerFixture(t)
	f.store.FailNextLocks(2)

	_, err := f.create(entity.MovementIncoming, 5)
	require.NoError(t, err)
	assert.Equal(t, 5, f.store.Stock(f.productID))
	assert.Equal(t, 2, f.store.Rollbacks())
}

func TestLedger_ReintentosAgotadosDevuelveErrLockTimeout(t *testing.T) {
	f := newLedgerFixture(t)
	f.store.FailNextLocks(3)

	_, err := f.create(entity.MovementIncoming, 5)
	assert.ErrorIs(t, err, domain.ErrLockTimeout)
	assert.Equal(t, 0, f.store.Stock(f.productID))
}

func TestLedger_ReintentosAgotadosSeRegistranComoAdvertencia(t *testing.T) {
	var buf bytes.Buffer
	s := testutil.NewStore()
	c := testutil.SeedCatalog(t, s)
	pid := testutil.SeedProduct(t, s, c, "ARZ-001", "Arroz 1kg")
	l := appinventory.NewStockLedger(s, s.Products(), s.Movements(), s.Warehouses(),
		appinventory.LedgerConfig{MaxAttempts: 2, Backoff: time.Millisecond}, zerolog.New(&buf))
	s.FailNextLocks(2)

	_, err := l.CreateMovement(context.Background(), appinventory.CreateMovementInput{
		UserID: "user-1", ProductID: pid, WarehouseID: c.WarehouseID, Kind: entity.MovementIncoming, Quantity: 1,
	})
	require.ErrorIs(t, err, domain.ErrLockTimeout)

	var levels []string
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var entry struct {
			Level string `json:"level"`
		}
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		levels = append(levels, entry.Level)
	}
	assert.NotEmpty(t, levels)
	assert.NotContains(t, levels, "error")
	assert.Equal(t, "warn", levels[len(levels)-1])
}

func TestLedger_EsperaDeBloqueoAgotadaEsReintentable(t *testing.T) {
	f := newLedgerFixture(t)
	f.withStock(t, 1)
	f.store.SetLockTimeout(20 * time.Millisecond)

	release := make(chan struct{})
	locked := make(chan struct{})
	go func() {
		_ = f.store.Run(context.Background(), func(_ repository.MovementRepository, p repository.ProductRepository) error {
			_, err := p.GetForUpdate(context.Background(), f.productID)
			close(locked)
			<-release
			return err
		})
	}()
	<-locked

	_, err := f.create(entity.MovementOutgoing, 1)
	assert.ErrorIs(t, err, domain.ErrLockTimeout)
	close(release)

	_, err = f.create(entity.MovementOutgoing, 1)
	assert.NoError(t, err)
	assert.Equal(t, 0, f.store.Stock(f.productID))
}
