package domain

import (
	"errors"
	"fmt"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound           = errors.New("recurso no encontrado")
	ErrUserNotFound       = errors.New("usuario no encontrado")
	ErrEmailAlreadyExists = errors.New("el email ya está registrado")
	ErrInvalidInput       = errors.New("entrada inválida")
	ErrDuplicate          = errors.New("recurso duplicado")
	ErrReferenced         = errors.New("el recurso está referenciado por otros registros")
	ErrUnauthorized       = errors.New("no autorizado")
	ErrForbidden          = errors.New("acceso denegado")
	ErrConflict           = errors.New("conflicto con el estado actual")
	ErrInsufficientStock  = errors.New("stock insuficiente")
	ErrNegativeStock      = errors.New("el stock quedaría negativo")
	ErrLockTimeout        = errors.New("tiempo de espera de bloqueo agotado, reintente")
)

// ValidationError error corregible por el cliente, asociado a un campo.
// Available solo se informa cuando el motivo es stock insuficiente.
type ValidationError struct {
	Field     string
	Message   string
	Available *int
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Unwrap permite errors.Is(err, ErrInsufficientStock) o errors.Is(err, ErrInvalidInput).
func (e *ValidationError) Unwrap() error {
	if e.Available != nil {
		return ErrInsufficientStock
	}
	return ErrInvalidInput
}

// NewValidationError construye un error de validación para un campo.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// NewInsufficientStockError construye el error de stock insuficiente con el disponible.
func NewInsufficientStockError(available int) *ValidationError {
	return &ValidationError{
		Field:     "quantity",
		Message:   fmt.Sprintf("No hay stock suficiente (disponible: %d).", available),
		Available: &available,
	}
}

// NegativeStockError guarda del invariante: el ledger detectó bajo bloqueo que
// aplicar o revertir un efecto dejaría el stock por debajo de cero.
type NegativeStockError struct {
	ProductID string
	Stock     int
	Delta     int
}

func (e *NegativeStockError) Error() string {
	return fmt.Sprintf("stock negativo para producto %s: %d %+d", e.ProductID, e.Stock, e.Delta)
}

func (e *NegativeStockError) Unwrap() error { return ErrNegativeStock }

// AsValidationError extrae un *ValidationError de la cadena de errores.
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
