package inventory

import (
	"github.com/jhoicas/inventario-core/internal/domain"
	"github.com/jhoicas/inventario-core/internal/domain/entity"
)

// ValidateKind verifica que el tipo sea INCOMING, OUTGOING o SHRINKAGE.
func ValidateKind(kind entity.MovementKind) error {
	if !kind.Valid() {
		return domain.NewValidationError("kind", "Tipo inválido. Use INCOMING, OUTGOING o SHRINKAGE.")
	}
	return nil
}

// ValidateQuantity rechaza cantidades no positivas. Es independiente de la factibilidad:
// una cantidad 0 siempre es un error de validación.
func ValidateQuantity(quantity int) error {
	if quantity <= 0 {
		return domain.NewValidationError("quantity", "La cantidad debe ser mayor a cero.")
	}
	return nil
}

// Baseline stock contra el que se evalúa un movimiento. En edición, prior es el
// efecto del movimiento que se reemplaza y se deshace antes de evaluar.
func Baseline(productStock int, prior *Effect) int {
	if prior == nil {
		return productStock
	}
	return productStock - prior.Delta()
}

// Feasible: una salida o merma es infactible si quantity supera la base; una entrada siempre es factible.
// Función pura: no valida la cantidad ni el tipo.
func Feasible(productStock int, kind entity.MovementKind, quantity int, prior *Effect) bool {
	outflow := kind == entity.MovementOutgoing || kind == entity.MovementShrinkage
	return !(outflow && quantity > Baseline(productStock, prior))
}

// CheckFeasible valida tipo, cantidad y factibilidad. Si no hay stock suficiente devuelve
// un *domain.ValidationError con el disponible.
func CheckFeasible(productStock int, kind entity.MovementKind, quantity int, prior *Effect) error {
	if err := ValidateKind(kind); err != nil {
		return err
	}
	if err := ValidateQuantity(quantity); err != nil {
		return err
	}
	if !Feasible(productStock, kind, quantity, prior) {
		return domain.NewInsufficientStockError(max(Baseline(productStock, prior), 0))
	}
	return nil
}
