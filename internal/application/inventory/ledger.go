package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jhoicas/inventario-core/internal/domain"
	"github.com/jhoicas/inventario-core/internal/domain/entity"
	"github.com/jhoicas/inventario-core/internal/domain/inventory"
	"github.com/jhoicas/inventario-core/internal/domain/repository"
)

// LedgerConfig reintentos ante bloqueos agotados (lock_timeout, deadlock).
type LedgerConfig struct {
	MaxAttempts int
	Backoff     time.Duration
}

// StockLedger es el único componente que modifica stock_actual. Crear, editar y eliminar
// movimientos comparten el mismo protocolo: bloquear el producto (y el movimiento), revertir
// el efecto previo si existe, validar, persistir y aplicar el nuevo efecto, todo en una transacción.
type StockLedger struct {
	txRunner      TxRunner
	productRepo   repository.ProductRepository
	movementRepo  repository.MovementRepository
	warehouseRepo repository.WarehouseRepository
	cfg           LedgerConfig
	log           zerolog.Logger
	now           func() time.Time
}

// NewStockLedger construye el ledger.
func NewStockLedger(
	txRunner TxRunner,
	productRepo repository.ProductRepository,
	movementRepo repository.MovementRepository,
	warehouseRepo repository.WarehouseRepository,
	cfg LedgerConfig,
	log zerolog.Logger,
) *StockLedger {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	return &StockLedger{
		txRunner:      txRunner,
		productRepo:   productRepo,
		movementRepo:  movementRepo,
		warehouseRepo: warehouseRepo,
		cfg:           cfg,
		log:           log.With().Str("component", "stock_ledger").Logger(),
		now:           time.Now,
	}
}

// CreateMovementInput entrada para registrar un movimiento.
type CreateMovementInput struct {
	UserID      string
	ProductID   string
	WarehouseID string
	Kind        entity.MovementKind
	Quantity    int
	Date        *time.Time
	Note        string
}

// UpdateMovementInput cambios sobre un movimiento existente; nil = sin cambio.
// El producto no puede cambiar: un movimiento solo afecta a un producto.
type UpdateMovementInput struct {
	ProductID   *string
	WarehouseID *string
	Kind        *entity.MovementKind
	Quantity    *int
	Date        *time.Time
	Note        *string
}

// CreateMovement valida contra el stock actual bajo bloqueo, persiste el movimiento y aplica su efecto.
func (l *StockLedger) CreateMovement(ctx context.Context, in CreateMovementInput) (*entity.Movement, error) {
	if in.ProductID == "" {
		return nil, domain.NewValidationError("product_id", "El producto es requerido.")
	}
	if in.WarehouseID == "" {
		return nil, domain.NewValidationError("warehouse_id", "La bodega es requerida.")
	}
	if err := inventory.ValidateKind(in.Kind); err != nil {
		return nil, err
	}
	if err := inventory.ValidateQuantity(in.Quantity); err != nil {
		return nil, err
	}
	warehouse, err := l.warehouse(ctx, in.WarehouseID)
	if err != nil {
		return nil, err
	}

	now := l.now()
	date := now
	if in.Date != nil && !in.Date.IsZero() {
		date = *in.Date
	}

	var created *entity.Movement
	err = l.runWithRetry(ctx, "create", func(movRepo repository.MovementRepository, productRepo repository.ProductRepository) error {
		created = nil
		product, err := lockProduct(ctx, productRepo, in.ProductID)
		if err != nil {
			return err
		}
		if err := inventory.CheckFeasible(product.Stock, in.Kind, in.Quantity, nil); err != nil {
			return err
		}
		mov := &entity.Movement{
			ID:          uuid.New().String(),
			ProductID:   product.ID,
			WarehouseID: warehouse.ID,
			Kind:        in.Kind,
			Quantity:    in.Quantity,
			Date:        date,
			Note:        in.Note,
			CreatedAt:   now,
			CreatedBy:   in.UserID,
			UpdatedAt:   now,
		}
		if err := movRepo.Create(ctx, mov); err != nil {
			return err
		}
		if err := l.applyEffect(ctx, productRepo, product, inventory.EffectOf(mov)); err != nil {
			return err
		}
		withDisplay(mov, product, warehouse)
		created = mov
		return nil
	})
	l.logOutcome("create", in.ProductID, err)
	if err != nil {
		return nil, err
	}
	return created, nil
}

// UpdateMovement revierte el efecto anterior, valida el nuevo contra el stock revertido,
// persiste y aplica. Si la reversión dejaría el stock negativo (entrada ya consumida) o la
// validación falla, nada se confirma (rollback).
func (l *StockLedger) UpdateMovement(ctx context.Context, id string, in UpdateMovementInput) (*entity.Movement, error) {
	current, err := l.movementRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, domain.ErrNotFound
	}
	if in.ProductID != nil && *in.ProductID != current.ProductID {
		return nil, domain.NewValidationError("product_id",
			"No se puede cambiar el producto de un movimiento; elimínelo y registre uno nuevo.")
	}
	if in.Kind != nil {
		if err := inventory.ValidateKind(*in.Kind); err != nil {
			return nil, err
		}
	}
	if in.Quantity != nil {
		if err := inventory.ValidateQuantity(*in.Quantity); err != nil {
			return nil, err
		}
	}
	warehouseID := current.WarehouseID
	if in.WarehouseID != nil {
		warehouseID = *in.WarehouseID
	}
	warehouse, err := l.warehouse(ctx, warehouseID)
	if err != nil {
		return nil, err
	}

	var updated *entity.Movement
	err = l.runWithRetry(ctx, "update", func(movRepo repository.MovementRepository, productRepo repository.ProductRepository) error {
		updated = nil
		product, mov, err := lockProductAndMovement(ctx, productRepo, movRepo, current.ProductID, id)
		if err != nil {
			return err
		}
		next := *mov
		applyPatch(&next, in)
		next.WarehouseID = warehouse.ID
		next.UpdatedAt = l.now()

		if err := l.reverseEffect(ctx, productRepo, product, inventory.EffectOf(mov)); err != nil {
			return err
		}
		if err := inventory.CheckFeasible(product.Stock, next.Kind, next.Quantity, nil); err != nil {
			return err
		}
		if err := movRepo.Update(ctx, &next); err != nil {
			return err
		}
		if err := l.applyEffect(ctx, productRepo, product, inventory.EffectOf(&next)); err != nil {
			return err
		}
		withDisplay(&next, product, warehouse)
		updated = &next
		return nil
	})
	l.logOutcome("update", current.ProductID, err)
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteMovement revierte el efecto del movimiento y elimina la fila.
func (l *StockLedger) DeleteMovement(ctx context.Context, id string) error {
	current, err := l.movementRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if current == nil {
		return domain.ErrNotFound
	}
	err = l.runWithRetry(ctx, "delete", func(movRepo repository.MovementRepository, productRepo repository.ProductRepository) error {
		product, mov, err := lockProductAndMovement(ctx, productRepo, movRepo, current.ProductID, id)
		if err != nil {
			return err
		}
		if err := l.reverseEffect(ctx, productRepo, product, inventory.EffectOf(mov)); err != nil {
			return err
		}
		return movRepo.Delete(ctx, id)
	})
	l.logOutcome("delete", current.ProductID, err)
	return err
}

// applyEffect aplica el efecto sobre el producto bloqueado y persiste el nuevo stock.
func (l *StockLedger) applyEffect(ctx context.Context, productRepo repository.ProductRepository, product *entity.Product, e inventory.Effect) error {
	next, err := inventory.Apply(product.ID, product.Stock, e)
	if err != nil {
		return err
	}
	return setStock(ctx, productRepo, product, next)
}

// reverseEffect deshace el efecto sobre el producto bloqueado y persiste el nuevo stock.
func (l *StockLedger) reverseEffect(ctx context.Context, productRepo repository.ProductRepository, product *entity.Product, e inventory.Effect) error {
	next, err := inventory.Reverse(product.ID, product.Stock, e)
	if err != nil {
		return err
	}
	return setStock(ctx, productRepo, product, next)
}

func setStock(ctx context.Context, productRepo repository.ProductRepository, product *entity.Product, stock int) error {
	if err := productRepo.UpdateStock(ctx, product.ID, stock); err != nil {
		return err
	}
	product.Stock = stock
	return nil
}

// runWithRetry ejecuta fn en una transacción; si el motor agota la espera de bloqueo
// (o detecta deadlock) reintenta con backoff lineal hasta MaxAttempts.
func (l *StockLedger) runWithRetry(
	ctx context.Context,
	op string,
	fn func(movRepo repository.MovementRepository, productRepo repository.ProductRepository) error,
) error {
	for attempt := 1; ; attempt++ {
		err := l.txRunner.Run(ctx, fn)
		if err == nil || !errors.Is(err, domain.ErrLockTimeout) || attempt >= l.cfg.MaxAttempts {
			return err
		}
		l.log.Warn().Str("op", op).Int("attempt", attempt).Int("max_attempts", l.cfg.MaxAttempts).
			Msg("bloqueo no disponible, reintentando")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(l.cfg.Backoff * time.Duration(attempt)):
		}
	}
}

func (l *StockLedger) logOutcome(op, productID string, err error) {
	switch {
	case err == nil:
		l.log.Debug().Str("op", op).Str("product_id", productID).Msg("movimiento confirmado")
	case errors.Is(err, domain.ErrNegativeStock):
		l.log.Warn().Err(err).Str("op", op).Str("product_id", productID).
			Msg("stock negativo detectado bajo bloqueo, transacción revertida")
	case errors.Is(err, domain.ErrLockTimeout):
		l.log.Warn().Err(err).Str("op", op).Str("product_id", productID).Int("max_attempts", l.cfg.MaxAttempts).
			Msg("reintentos agotados esperando el bloqueo, operación reintentable")
	case isRejection(err):
		l.log.Debug().Err(err).Str("op", op).Str("product_id", productID).Msg("movimiento rechazado")
	default:
		l.log.Error().Err(err).Str("op", op).Str("product_id", productID).Msg("transacción revertida")
	}
}

func isRejection(err error) bool {
	_, ok := domain.AsValidationError(err)
	return ok || errors.Is(err, domain.ErrNotFound)
}

func (l *StockLedger) warehouse(ctx context.Context, id string) (*entity.Warehouse, error) {
	wh, err := l.warehouseRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if wh == nil {
		return nil, domain.ErrNotFound
	}
	return wh, nil
}

func lockProduct(ctx context.Context, productRepo repository.ProductRepository, productID string) (*entity.Product, error) {
	product, err := productRepo.GetForUpdate(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, domain.ErrNotFound
	}
	return product, nil
}

// lockProductAndMovement bloquea siempre en orden producto -> movimiento.
func lockProductAndMovement(
	ctx context.Context,
	productRepo repository.ProductRepository,
	movRepo repository.MovementRepository,
	productID, movementID string,
) (*entity.Product, *entity.Movement, error) {
	product, err := lockProduct(ctx, productRepo, productID)
	if err != nil {
		return nil, nil, err
	}
	mov, err := movRepo.GetForUpdate(ctx, movementID)
	if err != nil {
		return nil, nil, err
	}
	if mov == nil {
		return nil, nil, domain.ErrNotFound
	}
	if mov.ProductID != product.ID {
		return nil, nil, domain.ErrConflict
	}
	return product, mov, nil
}

func applyPatch(m *entity.Movement, in UpdateMovementInput) {
	if in.Kind != nil {
		m.Kind = *in.Kind
	}
	if in.Quantity != nil {
		m.Quantity = *in.Quantity
	}
	if in.Date != nil && !in.Date.IsZero() {
		m.Date = *in.Date
	}
	if in.Note != nil {
		m.Note = *in.Note
	}
}

func withDisplay(m *entity.Movement, p *entity.Product, w *entity.Warehouse) {
	m.ProductSKU = p.SKU
	m.ProductName = p.Name
	m.WarehouseName = w.Name
}
