package inventory

import (
	"github.com/jhoicas/inventario-core/internal/domain"
	"github.com/jhoicas/inventario-core/internal/domain/entity"
)

// Effect efecto de un movimiento sobre el stock (tipo + cantidad positiva).
type Effect struct {
	Kind     entity.MovementKind
	Quantity int
}

// EffectOf devuelve el efecto de un movimiento persistido.
func EffectOf(m *entity.Movement) Effect {
	return Effect{Kind: m.Kind, Quantity: m.Quantity}
}

// Delta variación con signo que el efecto aplica al stock: +q para entradas, -q para salidas y mermas.
func (e Effect) Delta() int {
	if e.Kind == entity.MovementIncoming {
		return e.Quantity
	}
	return -e.Quantity
}

// Apply aplica el efecto sobre stock. Falla con *domain.NegativeStockError si el resultado es negativo.
func Apply(productID string, stock int, e Effect) (int, error) {
	return shift(productID, stock, e.Delta())
}

// Reverse deshace el efecto sobre stock (inverso de Apply).
func Reverse(productID string, stock int, e Effect) (int, error) {
	return shift(productID, stock, -e.Delta())
}

func shift(productID string, stock, delta int) (int, error) {
	next := stock + delta
	if next < 0 {
		return stock, &domain.NegativeStockError{ProductID: productID, Stock: stock, Delta: delta}
	}
	return next, nil
}

// NetStock suma el efecto de todos los movimientos (invariante: debe igualar el stock del producto).
func NetStock(movements []*entity.Movement) int {
	total := 0
	for _, m := range movements {
		total += EffectOf(m).Delta()
	}
	return total
}
