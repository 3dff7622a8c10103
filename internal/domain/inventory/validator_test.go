package inventory_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventario-core/internal/domain"
	"github.com/jhoicas/inventario-core/internal/domain/entity"
	"github.com/jhoicas/inventario-core/internal/domain/inventory"
)

var allKinds = []entity.MovementKind{
	entity.MovementIncoming,
	entity.MovementOutgoing,
	entity.MovementShrinkage,
}

// ──────────────────────────────────────────────────────────────────────────────
// Factibilidad
// ──────────────────────────────────────────────────────────────────────────────

func TestFeasible_EntradaSiempreFactible(t *testing.T) {
	assert.True(t, inventory.Feasible(0, entity.MovementIncoming, 1000, nil))
}

func TestFeasible_SalidaHastaElStockDisponible(t *testing.T) {
	assert.True(t, inventory.Feasible(10, entity.MovementOutgoing, 10, nil))
	assert.False(t, inventory.Feasible(10, entity.MovementOutgoing, 11, nil))
	assert.False(t, inventory.Feasible(0, entity.MovementShrinkage, 1, nil))
}

func TestFeasible_EdicionDeshaceElEfectoPrevio(t *testing.T) {
	// stock 8 tras una entrada de 3: en edición la base es 5.
	prior := &inventory.Effect{Kind: entity.MovementIncoming, Quantity: 3}
	assert.Equal(t, 5, inventory.Baseline(8, prior))
	assert.True(t, inventory.Feasible(8, entity.MovementOutgoing, 5, prior))
	assert.False(t, inventory.Feasible(8, entity.MovementOutgoing, 6, prior))

	// stock 2 tras una salida de 4: en edición la base es 6.
	prior = &inventory.Effect{Kind: entity.MovementOutgoing, Quantity: 4}
	assert.Equal(t, 6, inventory.Baseline(2, prior))
	assert.True(t, inventory.Feasible(2, entity.MovementShrinkage, 6, prior))
}

// Propiedad: infactible sii tipo de salida y cantidad > base.
func TestFeasible_PropiedadExhaustiva(t *testing.T) {
	for stock := 0; stock <= 12; stock++ {
		for _, kind := range allKinds {
			for qty := 1; qty <= 15; qty++ {
				for _, prior := range priorsFor(stock) {
					base := inventory.Baseline(stock, prior)
					want := kind == entity.MovementIncoming || qty <= base
					assert.Equal(t, want, inventory.Feasible(stock, kind, qty, prior),
						"stock=%d kind=%s qty=%d prior=%v", stock, kind, qty, prior)
				}
			}
		}
	}
}

func priorsFor(stock int) []*inventory.Effect {
	out := []*inventory.Effect{nil}
	for q := 1; q <= 4; q++ {
		out = append(out, &inventory.Effect{Kind: entity.MovementOutgoing, Quantity: q})
		out = append(out, &inventory.Effect{Kind: entity.MovementShrinkage, Quantity: q})
	}
	// Entradas por encima del stock: base negativa (entrada ya consumida).
	for q := 1; q <= stock+4; q++ {
		out = append(out, &inventory.Effect{Kind: entity.MovementIncoming, Quantity: q})
	}
	return out
}

// ──────────────────────────────────────────────────────────────────────────────
// CheckFeasible: errores de validación
// ──────────────────────────────────────────────────────────────────────────────

func TestCheckFeasible_CantidadCeroEsErrorDeValidacion(t *testing.T) {
	for _, kind := range allKinds {
		err := inventory.CheckFeasible(100, kind, 0, nil)
		require.Error(t, err)
		ve, ok := domain.AsValidationError(err)
		require.True(t, ok)
		assert.Equal(t, "quantity", ve.Field)
		assert.Nil(t, ve.Available, "cantidad inválida no es un fallo de stock")
		assert.True(t, errors.Is(err, domain.ErrInvalidInput))
		assert.False(t, errors.Is(err, domain.ErrInsufficientStock))
	}
	assert.Error(t, inventory.CheckFeasible(100, entity.MovementIncoming, -3, nil))
}

func TestCheckFeasible_TipoDesconocido(t *testing.T) {
	err := inventory.CheckFeasible(10, entity.MovementKind("TRANSFER"), 1, nil)
	ve, ok := domain.AsValidationError(err)
	require.True(t, ok)
	assert.Equal(t, "kind", ve.Field)
}

func TestCheckFeasible_StockInsuficienteInformaDisponible(t *testing.T) {
	err := inventory.CheckFeasible(0, entity.MovementShrinkage, 1, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInsufficientStock))
	ve, ok := domain.AsValidationError(err)
	require.True(t, ok)
	require.NotNil(t, ve.Available)
	assert.Equal(t, 0, *ve.Available)
	assert.Contains(t, ve.Message, "disponible: 0")
}

func TestCheckFeasible_DisponibleEnEdicionEsLaBase(t *testing.T) {
	prior := &inventory.Effect{Kind: entity.MovementOutgoing, Quantity: 2}
	err := inventory.CheckFeasible(3, entity.MovementOutgoing, 9, prior)
	ve, ok := domain.AsValidationError(err)
	require.True(t, ok)
	require.NotNil(t, ve.Available)
	assert.Equal(t, 5, *ve.Available)
}

func TestNormalizeSKU(t *testing.T) {
	assert.Equal(t, "CAFE-01", inventory.NormalizeSKU("  café-01 "))
	assert.Equal(t, "ANON-N", inventory.NormalizeSKU("anon-ñ"))
	assert.Equal(t, "ABC", inventory.NormalizeSKU("abc"))
}

func TestFeasible_EntradaConsumidaEnEdicion(t *testing.T) {
	// Entrada de 10 de la que ya salieron 8: stock 2, base al deshacerla = -8.
	prior := &inventory.Effect{Kind: entity.MovementIncoming, Quantity: 10}
	assert.Equal(t, -8, inventory.Baseline(2, prior))
	assert.True(t, inventory.Feasible(2, entity.MovementIncoming, 1, prior))
	assert.True(t, inventory.Feasible(2, entity.MovementIncoming, 9, prior))
	assert.False(t, inventory.Feasible(2, entity.MovementOutgoing, 1, prior))
	assert.False(t, inventory.Feasible(2, entity.MovementShrinkage, 1, prior))

	err := inventory.CheckFeasible(2, entity.MovementOutgoing, 1, prior)
	ve, ok := domain.AsValidationError(err)
	require.True(t, ok)
	require.NotNil(t, ve.Available)
	assert.Equal(t, 0, *ve.Available)
	assert.NoError(t, inventory.CheckFeasible(2, entity.MovementIncoming, 9, prior))
}
