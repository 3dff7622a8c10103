package inventory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jhoicas/inventario-core/internal/application/dto"
	"github.com/jhoicas/inventario-core/internal/domain"
	"github.com/jhoicas/inventario-core/internal/domain/entity"
	"github.com/jhoicas/inventario-core/internal/domain/repository"
)

// KardexLine una línea del kardex: el movimiento y el saldo acumulado después de aplicarlo.
type KardexLine struct {
	Date      time.Time
	Kind      entity.MovementKind
	Warehouse string
	Note      string
	In        int
	Out       int
	Balance   int
}

// KardexRenderer genera la representación PDF del kardex de un producto.
type KardexRenderer interface {
	RenderKardex(ctx context.Context, product *entity.Product, lines []KardexLine) ([]byte, error)
}

// HistoryUseCase historial de movimientos por producto (JSON y kardex PDF).
type HistoryUseCase struct {
	productRepo  repository.ProductRepository
	movementRepo repository.MovementRepository
	renderer     KardexRenderer
}

// NewHistoryUseCase construye el caso de uso. renderer puede ser nil si no se expone el PDF.
func NewHistoryUseCase(
	productRepo repository.ProductRepository,
	movementRepo repository.MovementRepository,
	renderer KardexRenderer,
) *HistoryUseCase {
	return &HistoryUseCase{productRepo: productRepo, movementRepo: movementRepo, renderer: renderer}
}

// ProductHistory devuelve "SKU - Nombre" y los movimientos del producto, más recientes primero.
func (uc *HistoryUseCase) ProductHistory(ctx context.Context, productID string) (*dto.ProductHistoryResponse, error) {
	product, movs, err := uc.load(ctx, productID)
	if err != nil {
		return nil, err
	}
	return &dto.ProductHistoryResponse{
		ProductID: product.ID,
		Product:   product.Label(),
		Stock:     product.Stock,
		Movements: toMovementResponses(movs),
	}, nil
}

// KardexPDF genera el kardex en PDF y el nombre de archivo sugerido.
func (uc *HistoryUseCase) KardexPDF(ctx context.Context, productID string) ([]byte, string, error) {
	if uc.renderer == nil {
		return nil, "", fmt.Errorf("kardex: generador PDF no configurado")
	}
	product, movs, err := uc.load(ctx, productID)
	if err != nil {
		return nil, "", err
	}
	doc, err := uc.renderer.RenderKardex(ctx, product, BuildKardex(movs))
	if err != nil {
		return nil, "", fmt.Errorf("kardex: %w", err)
	}
	return doc, fmt.Sprintf("kardex-%s.pdf", product.SKU), nil
}

func (uc *HistoryUseCase) load(ctx context.Context, productID string) (*entity.Product, []*entity.Movement, error) {
	product, err := uc.productRepo.GetByID(ctx, productID)
	if err != nil {
		return nil, nil, err
	}
	if product == nil {
		return nil, nil, domain.ErrNotFound
	}
	movs, err := uc.movementRepo.ListByProduct(ctx, productID)
	if err != nil {
		return nil, nil, err
	}
	return product, movs, nil
}

// BuildKardex ordena los movimientos cronológicamente y calcula el saldo acumulado desde 0.
// El saldo final coincide con stock_actual.
func BuildKardex(movs []*entity.Movement) []KardexLine {
	sorted := make([]*entity.Movement, len(movs))
	copy(sorted, movs)
	// ListByProduct entrega del más reciente al más antiguo; invertir conserva el desempate por inserción.
	for i, j := 0, len(sorted)-1; i < j; i, j = i+1, j-1 {
		sorted[i], sorted[j] = sorted[j], sorted[i]
	}
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	lines := make([]KardexLine, 0, len(sorted))
	balance := 0
	for _, m := range sorted {
		line := KardexLine{Date: m.Date, Kind: m.Kind, Warehouse: m.WarehouseName, Note: m.Note}
		if m.Kind == entity.MovementIncoming {
			line.In = m.Quantity
			balance += m.Quantity
		} else {
			line.Out = m.Quantity
			balance -= m.Quantity
		}
		line.Balance = balance
		lines = append(lines, line)
	}
	return lines
}
