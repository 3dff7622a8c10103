// Package xlsx exporta reportes de inventario a hojas de cálculo con excelize.
package xlsx

import (
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/jhoicas/inventario-core/internal/application/dto"
	appinventory "github.com/jhoicas/inventario-core/internal/application/inventory"
)

var _ appinventory.LowStockExporter = (*LowStockExporter)(nil)

const lowStockSheet = "Bajo stock"

var lowStockHeaders = []string{"Prioridad", "SKU", "Producto", "Categoría", "Proveedor", "Stock actual", "Umbral", "Déficit"}

var lowStockWidths = []float64{10, 16, 36, 20, 28, 13, 10, 10}

// LowStockExporter genera el reporte de bajo stock como .xlsx.
type LowStockExporter struct{}

// NewLowStockExporter construye el exportador.
func NewLowStockExporter() *LowStockExporter { return &LowStockExporter{} }

// ExportLowStock escribe una fila por producto en el orden del reporte y devuelve el archivo.
func (e *LowStockExporter) ExportLowStock(_ context.Context, report *dto.LowStockResponse) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", lowStockSheet); err != nil {
		return nil, fmt.Errorf("xlsx: renombrar hoja: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
		Border: []excelize.Border{
			{Type: "bottom", Color: "#000000", Style: 1},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("xlsx: estilo: %w", err)
	}

	for i, h := range lowStockHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(lowStockSheet, cell, h)
		_ = f.SetCellStyle(lowStockSheet, cell, cell, headerStyle)
	}

	for i, item := range report.Items {
		row := i + 2
		values := []any{
			item.Priority, item.SKU, item.ProductName, item.CategoryName, item.SupplierName,
			item.Stock, item.Threshold, item.Deficit,
		}
		for c, v := range values {
			cell, _ := excelize.CoordinatesToCellName(c+1, row)
			if err := f.SetCellValue(lowStockSheet, cell, v); err != nil {
				return nil, fmt.Errorf("xlsx: celda %s: %w", cell, err)
			}
		}
	}

	summaryRow := len(report.Items) + 3
	_ = f.SetCellValue(lowStockSheet, fmt.Sprintf("A%d", summaryRow), "Umbral")
	_ = f.SetCellValue(lowStockSheet, fmt.Sprintf("B%d", summaryRow), report.Threshold)
	_ = f.SetCellValue(lowStockSheet, fmt.Sprintf("C%d", summaryRow), fmt.Sprintf("Productos bajo el umbral: %d", len(report.Items)))

	for i, w := range lowStockWidths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		_ = f.SetColWidth(lowStockSheet, col, col, w)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx: escribir: %w", err)
	}
	return buf.Bytes(), nil
}
