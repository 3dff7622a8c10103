package entity

import (
	"strings"
	"time"
)

// MovementKind tipo de movimiento de inventario.
type MovementKind string

// Tipos de movimiento de inventario.
const (
	MovementIncoming  MovementKind = "INCOMING"  // entrada
	MovementOutgoing  MovementKind = "OUTGOING"  // salida
	MovementShrinkage MovementKind = "SHRINKAGE" // merma
)

// Valid indica si el tipo es uno de los conocidos.
func (k MovementKind) Valid() bool {
	switch k {
	case MovementIncoming, MovementOutgoing, MovementShrinkage:
		return true
	}
	return false
}

// ParseMovementKind normaliza el tipo recibido por la API. Acepta también los
// nombres en español (ENTRADA, SALIDA, MERMA). Un valor desconocido se devuelve tal cual
// para que la validación lo rechace.
func ParseMovementKind(s string) MovementKind {
	switch k := strings.ToUpper(strings.TrimSpace(s)); k {
	case "ENTRADA":
		return MovementIncoming
	case "SALIDA":
		return MovementOutgoing
	case "MERMA":
		return MovementShrinkage
	default:
		return MovementKind(k)
	}
}

// Movement representa un movimiento de stock de un producto en una bodega.
// Quantity siempre es positiva; el signo lo determina Kind.
type Movement struct {
	ID          string
	ProductID   string
	WarehouseID string
	Kind        MovementKind
	Quantity    int
	Date        time.Time
	Note        string
	CreatedAt   time.Time
	CreatedBy   string
	UpdatedAt   time.Time

	// Campos de lectura (join), no se persisten.
	ProductSKU    string
	ProductName   string
	WarehouseName string
}
