package inventory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jhoicas/inventario-core/internal/application/dto"
	"github.com/jhoicas/inventario-core/internal/domain"
	"github.com/jhoicas/inventario-core/internal/domain/repository"
)

// DefaultLowStockThreshold umbral por defecto del reporte de bajo stock.
const DefaultLowStockThreshold = 5

// LowStockExporter exporta el reporte de bajo stock a una hoja de cálculo.
type LowStockExporter interface {
	ExportLowStock(ctx context.Context, report *dto.LowStockResponse) ([]byte, error)
}

// LowStockUseCase lista los productos con stock_actual por debajo de un umbral,
// priorizados por déficit para armar la lista de reposición.
type LowStockUseCase struct {
	productRepo repository.ProductRepository
	exporter    LowStockExporter
}

// NewLowStockUseCase construye el caso de uso de bajo stock.
func NewLowStockUseCase(productRepo repository.ProductRepository, exporter LowStockExporter) *LowStockUseCase {
	return &LowStockUseCase{productRepo: productRepo, exporter: exporter}
}

// Report devuelve los productos con stock < threshold.
// Orden: mayor déficit primero, luego SKU. Priority 1 = más urgente.
func (uc *LowStockUseCase) Report(ctx context.Context, threshold int) (*dto.LowStockResponse, error) {
	if threshold < 0 {
		return nil, domain.NewValidationError("threshold", "El umbral debe ser un entero no negativo.")
	}
	products, err := uc.productRepo.List(ctx, repository.ProductFilter{StockBelow: &threshold})
	if err != nil {
		return nil, err
	}

	items := make([]dto.LowStockItemDTO, 0, len(products))
	for _, p := range products {
		if p.Stock >= threshold {
			continue
		}
		items = append(items, dto.LowStockItemDTO{
			ProductID:    p.ID,
			SKU:          p.SKU,
			ProductName:  p.Name,
			CategoryName: p.CategoryName,
			SupplierName: p.SupplierName,
			Stock:        p.Stock,
			Threshold:    threshold,
			Deficit:      threshold - p.Stock,
		})
	}

	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Deficit != items[j].Deficit {
			return items[i].Deficit > items[j].Deficit
		}
		return items[i].SKU < items[j].SKU
	})
	for i := range items {
		items[i].Priority = i + 1
	}

	return &dto.LowStockResponse{Threshold: threshold, Items: items}, nil
}

// ExportXLSX genera el reporte como hoja de cálculo y el nombre de archivo sugerido.
func (uc *LowStockUseCase) ExportXLSX(ctx context.Context, threshold int) ([]byte, string, error) {
	if uc.exporter == nil {
		return nil, "", fmt.Errorf("bajo stock: exportador no configurado")
	}
	report, err := uc.Report(ctx, threshold)
	if err != nil {
		return nil, "", err
	}
	data, err := uc.exporter.ExportLowStock(ctx, report)
	if err != nil {
		return nil, "", fmt.Errorf("bajo stock: exportar: %w", err)
	}
	return data, fmt.Sprintf("bajo-stock-%s.xlsx", time.Now().Format("20060102")), nil
}
