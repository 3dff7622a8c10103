// Package pdf genera el kardex de un producto en PDF: encabezado con la identidad
// del producto y una tabla de movimientos en orden cronológico con el saldo acumulado.
//
// Layout de la página A4:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  HEADER: SKU - Nombre        │  KARDEX + fecha de emisión    │
//	│  Categoría / Proveedor / Precio / Stock actual              │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TABLA: Fecha | Tipo | Bodega | Nota | Entrada | Salida | Saldo │
//	│  ─────────────────────────────────────────────────────────  │
//	│  FOOTER: totales de entradas, salidas y saldo final        │
//	└─────────────────────────────────────────────────────────────┘
package pdf

import (
	"context"
	"fmt"
	"strconv"
	"time"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"

	appinventory "github.com/jhoicas/inventario-core/internal/application/inventory"
	"github.com/jhoicas/inventario-core/internal/domain/entity"
)

var _ appinventory.KardexRenderer = (*KardexGenerator)(nil)

// ── Paleta de colores ─────────────────────────────────────────────────────────

var (
	colorPrimary = &props.Color{Red: 0, Green: 70, Blue: 127}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
	colorDanger  = &props.Color{Red: 170, Green: 30, Blue: 30}
)

// ── Generator ─────────────────────────────────────────────────────────────────

// KardexGenerator implementa inventory.KardexRenderer usando Maroto v2.
type KardexGenerator struct {
	now func() time.Time
}

// NewKardexGenerator construye el generador.
func NewKardexGenerator() *KardexGenerator { return &KardexGenerator{now: time.Now} }

// RenderKardex genera el PDF y devuelve sus bytes.
func (g *KardexGenerator) RenderKardex(
	_ context.Context,
	product *entity.Product,
	lines []appinventory.KardexLine,
) ([]byte, error) {
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle("Kardex "+product.SKU, true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(headerRow(product, g.now()))
	m.AddRows(productRow(product))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))

	m.AddRows(tableHeaderRow())
	if len(lines) == 0 {
		m.AddRows(row.New(8).Add(col.New(12).Add(
			text.New("Sin movimientos registrados.", props.Text{
				Size: 8, Align: align.Center, Color: colorGray, Top: 2,
			}),
		)))
	}
	for _, r := range tableDetailRows(lines) {
		m.AddRows(r)
	}

	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))
	m.AddRows(totalsRow(lines))

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar documento: %w", err)
	}
	return doc.GetBytes(), nil
}

// ── Secciones ─────────────────────────────────────────────────────────────────

func headerRow(product *entity.Product, issued time.Time) core.Row {
	return row.New(16).Add(
		col.New(8).Add(
			text.New(product.Label(), props.Text{
				Style: fontstyle.Bold, Size: 13, Color: colorPrimary, Top: 1,
			}),
		),
		col.New(4).Add(
			text.New("KARDEX DE PRODUCTO", props.Text{
				Style: fontstyle.Bold, Size: 8, Align: align.Right, Color: colorPrimary, Top: 1,
			}),
			text.New("Emitido: "+issued.Format("02/01/2006 15:04"), props.Text{
				Size: 8, Align: align.Right, Top: 7, Color: colorGray,
			}),
		),
	)
}

func productRow(product *entity.Product) core.Row {
	return row.New(10).Add(
		col.New(12).Add(
			text.New(fmt.Sprintf("Categoría: %s   |   Proveedor: %s   |   Precio: $%s   |   Stock actual: %d",
				nonEmpty(product.CategoryName, "—"),
				nonEmpty(product.SupplierName, "—"),
				formatMoney(product.Price.StringFixed(0)),
				product.Stock,
			), props.Text{Size: 8, Top: 2, Color: colorGray}),
		),
	)
}

func tableHeaderRow() core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 8, Align: a, Color: colorPrimary, Top: 2, Left: 1, Right: 1,
		}))
	}
	return row.New(8).Add(
		h("Fecha", 2, align.Left),
		h("Tipo", 1, align.Left),
		h("Bodega", 2, align.Left),
		h("Nota", 4, align.Left),
		h("Entrada", 1, align.Right),
		h("Salida", 1, align.Right),
		h("Saldo", 1, align.Right),
	)
}

func tableDetailRows(lines []appinventory.KardexLine) []core.Row {
	result := make([]core.Row, 0, len(lines))
	for _, l := range lines {
		outColor := colorGray
		if l.Kind == entity.MovementShrinkage {
			outColor = colorDanger
		}
		result = append(result, row.New(6).Add(
			col.New(2).Add(text.New(l.Date.Format("02/01/2006 15:04"), props.Text{Size: 7.5, Top: 1, Left: 1})),
			col.New(1).Add(text.New(kindLabel(l.Kind), props.Text{Size: 7.5, Top: 1})),
			col.New(2).Add(text.New(l.Warehouse, props.Text{Size: 7.5, Top: 1})),
			col.New(4).Add(text.New(truncate(l.Note, 60), props.Text{Size: 7.5, Top: 1, Color: colorGray})),
			col.New(1).Add(text.New(quantity(l.In), props.Text{Size: 7.5, Align: align.Right, Top: 1, Right: 1})),
			col.New(1).Add(text.New(quantity(l.Out), props.Text{Size: 7.5, Align: align.Right, Top: 1, Right: 1, Color: outColor})),
			col.New(1).Add(text.New(formatMoney(strconv.Itoa(l.Balance)), props.Text{
				Style: fontstyle.Bold, Size: 7.5, Align: align.Right, Top: 1, Right: 1,
			})),
		))
	}
	return result
}

func totalsRow(lines []appinventory.KardexLine) core.Row {
	in, out, balance := 0, 0, 0
	for _, l := range lines {
		in += l.In
		out += l.Out
		balance = l.Balance
	}
	label := func(s string) core.Component {
		return text.New(s, props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right, Right: 2})
	}
	value := func(s string) core.Component {
		return text.New(s, props.Text{Size: 9, Align: align.Right, Right: 1})
	}
	return row.New(18).Add(
		col.New(6),
		col.New(3).Add(
			label("Total entradas:"),
			label("Total salidas:"),
			label("Saldo final:"),
		),
		col.New(3).Add(
			value(formatMoney(strconv.Itoa(in))),
			value(formatMoney(strconv.Itoa(out))),
			value(formatMoney(strconv.Itoa(balance))),
		),
	)
}

// ── helpers ───────────────────────────────────────────────────────────────────

func kindLabel(k entity.MovementKind) string {
	switch k {
	case entity.MovementIncoming:
		return "Entrada"
	case entity.MovementOutgoing:
		return "Salida"
	case entity.MovementShrinkage:
		return "Merma"
	}
	return string(k)
}

func quantity(n int) string {
	if n == 0 {
		return ""
	}
	return formatMoney(strconv.Itoa(n))
}

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// formatMoney inserta puntos de miles en un string numérico sin decimales.
// Ej: "25000" → "25.000", "1000000" → "1.000.000", "-1500" → "-1.500"
func formatMoney(s string) string {
	sign := ""
	if len(s) > 0 && s[0] == '-' {
		sign, s = "-", s[1:]
	}
	n := len(s)
	if n <= 3 {
		return sign + s
	}
	buf := make([]byte, 0, n+n/3)
	for i, c := range []byte(s) {
		if i > 0 && (n-i)%3 == 0 {
			buf = append(buf, '.')
		}
		buf = append(buf, c)
	}
	return sign + string(buf)
}
