package pdf

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appinventory "github.com/jhoicas/inventario-core/internal/application/inventory"
	"github.com/jhoicas/inventario-core/internal/domain/entity"
)

func TestFormatMoney(t *testing.T) {
	cases := map[string]string{
		"0":       "0",
		"999":     "999",
		"25000":   "25.000",
		"1000000": "1.000.000",
		"-1500":   "-1.500",
	}
	for in, want := range cases {
		assert.Equal(t, want, formatMoney(in), in)
	}
}

func TestKindLabel(t *testing.T) {
	assert.Equal(t, "Entrada", kindLabel(entity.MovementIncoming))
	assert.Equal(t, "Salida", kindLabel(entity.MovementOutgoing))
	assert.Equal(t, "Merma", kindLabel(entity.MovementShrinkage))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "corta", truncate("corta", 10))
	assert.Equal(t, "abcd…", truncate("abcdefgh", 5))
}

func TestRenderKardex(t *testing.T) {
	g := NewKardexGenerator()
	product := &entity.Product{
		SKU: "ARZ-001", Name: "Arroz 1kg", CategoryName: "Abarrotes", SupplierName: "Distribuidora Central",
		Price: decimal.NewFromInt(1290), Stock: 7,
	}
	day := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	lines := []appinventory.KardexLine{
		{Date: day, Kind: entity.MovementIncoming, Warehouse: "Principal", In: 10, Balance: 10},
		{Date: day.Add(time.Hour), Kind: entity.MovementShrinkage, Warehouse: "Principal", Note: "bolsa rota", Out: 3, Balance: 7},
	}

	doc, err := g.RenderKardex(context.Background(), product, lines)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(doc, []byte("%PDF")))

	empty, err := g.RenderKardex(context.Background(), product, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, empty)
}
