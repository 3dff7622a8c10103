package inventory

import (
	"context"

	"github.com/jhoicas/inventario-core/internal/application/dto"
	"github.com/jhoicas/inventario-core/internal/domain"
	"github.com/jhoicas/inventario-core/internal/domain/entity"
	"github.com/jhoicas/inventario-core/internal/domain/repository"
)

var movementOrdering = []string{"date", "quantity", "kind", "created_at"}

// MovementUseCase expone el ledger a la capa HTTP: traduce DTOs a entradas del ledger
// y entidades a respuestas. Las lecturas no toman bloqueos.
type MovementUseCase struct {
	ledger       *StockLedger
	movementRepo repository.MovementRepository
}

// NewMovementUseCase construye el caso de uso de movimientos.
func NewMovementUseCase(ledger *StockLedger, movementRepo repository.MovementRepository) *MovementUseCase {
	return &MovementUseCase{ledger: ledger, movementRepo: movementRepo}
}

// Create registra un movimiento (POST).
func (uc *MovementUseCase) Create(ctx context.Context, userID string, in dto.CreateMovementRequest) (*dto.MovementResponse, error) {
	mov, err := uc.ledger.CreateMovement(ctx, CreateMovementInput{
		UserID:      userID,
		ProductID:   in.ProductID,
		WarehouseID: in.WarehouseID,
		Kind:        entity.ParseMovementKind(in.Kind),
		Quantity:    in.Quantity,
		Date:        in.Date,
		Note:        in.Note,
	})
	if err != nil {
		return nil, err
	}
	return toMovementResponse(mov), nil
}

// Replace reemplaza un movimiento completo (PUT): producto, bodega, tipo y cantidad son obligatorios.
func (uc *MovementUseCase) Replace(ctx context.Context, id string, in dto.UpdateMovementRequest) (*dto.MovementResponse, error) {
	switch {
	case in.ProductID == nil || *in.ProductID == "":
		return nil, domain.NewValidationError("product_id", "El producto es requerido.")
	case in.WarehouseID == nil || *in.WarehouseID == "":
		return nil, domain.NewValidationError("warehouse_id", "La bodega es requerida.")
	case in.Kind == nil:
		return nil, domain.NewValidationError("kind", "El tipo es requerido.")
	case in.Quantity == nil:
		return nil, domain.NewValidationError("quantity", "La cantidad es requerida.")
	}
	if in.Note == nil {
		empty := ""
		in.Note = &empty
	}
	return uc.Update(ctx, id, in)
}

// Update aplica una edición parcial (PATCH).
func (uc *MovementUseCase) Update(ctx context.Context, id string, in dto.UpdateMovementRequest) (*dto.MovementResponse, error) {
	patch := UpdateMovementInput{
		ProductID:   in.ProductID,
		WarehouseID: in.WarehouseID,
		Quantity:    in.Quantity,
		Date:        in.Date,
		Note:        in.Note,
	}
	if in.Kind != nil {
		k := entity.ParseMovementKind(*in.Kind)
		patch.Kind = &k
	}
	mov, err := uc.ledger.UpdateMovement(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	return toMovementResponse(mov), nil
}

// Delete elimina un movimiento revirtiendo su efecto.
func (uc *MovementUseCase) Delete(ctx context.Context, id string) error {
	return uc.ledger.DeleteMovement(ctx, id)
}

// GetByID obtiene un movimiento con sus campos de presentación.
func (uc *MovementUseCase) GetByID(ctx context.Context, id string) (*dto.MovementResponse, error) {
	mov, err := uc.movementRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if mov == nil {
		return nil, domain.ErrNotFound
	}
	return toMovementResponse(mov), nil
}

// List lista movimientos, más recientes primero salvo que se indique ordering.
func (uc *MovementUseCase) List(ctx context.Context, page dto.PageRequest) (*dto.MovementListResponse, error) {
	page.DefaultPage()
	f, err := repository.NewListFilter(page.Search, page.Ordering, page.FetchLimit(), page.Offset, movementOrdering...)
	if err != nil {
		return nil, err
	}
	list, err := uc.movementRepo.List(ctx, f)
	if err != nil {
		return nil, err
	}
	list, meta := dto.PageOf(page, list)
	return &dto.MovementListResponse{
		Items: toMovementResponses(list),
		Page:  meta,
	}, nil
}

func toMovementResponses(list []*entity.Movement) []dto.MovementResponse {
	items := make([]dto.MovementResponse, 0, len(list))
	for _, m := range list {
		items = append(items, *toMovementResponse(m))
	}
	return items
}

func toMovementResponse(m *entity.Movement) *dto.MovementResponse {
	if m == nil {
		return nil
	}
	return &dto.MovementResponse{
		ID:            m.ID,
		ProductID:     m.ProductID,
		ProductSKU:    m.ProductSKU,
		ProductName:   m.ProductName,
		WarehouseID:   m.WarehouseID,
		WarehouseName: m.WarehouseName,
		Kind:          string(m.Kind),
		Quantity:      m.Quantity,
		Date:          m.Date,
		Note:          m.Note,
		CreatedBy:     m.CreatedBy,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}
