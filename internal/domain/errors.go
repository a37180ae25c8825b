package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Errores de dominio (sin dependencias de infraestructura).
// Los casos de uso envuelven estos sentinels con fmt.Errorf("%w: ...") y los
// handlers los distinguen con errors.Is.
var (
	ErrValidation             = errors.New("entrada inválida")
	ErrNotFound               = errors.New("recurso no encontrado")
	ErrInvalidState           = errors.New("operación no permitida para el estado actual")
	ErrInsufficientStock      = errors.New("stock insuficiente")
	ErrDataIntegrity          = errors.New("violación de integridad de datos")
	ErrTransientStore         = errors.New("error transitorio del almacenamiento")
	ErrConcurrentModification = errors.New("modificación concurrente detectada")
	ErrIdempotencyInFlight    = errors.New("solicitud con la misma clave de idempotencia en curso")
	ErrDuplicateBlocked       = errors.New("solicitud duplicada bloqueada")
	ErrUnauthorized           = errors.New("no autorizado")
)

// InsufficientStockError detalla qué par (bodega, producto) quedaría negativo.
// errors.Is(err, ErrInsufficientStock) es verdadero para este tipo.
type InsufficientStockError struct {
	WarehouseID string
	ProductID   string
	OnHand      decimal.Decimal
	Delta       decimal.Decimal
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("%s: producto %s en bodega %s (disponible %s, delta %s)",
		ErrInsufficientStock, e.ProductID, e.WarehouseID, e.OnHand.String(), e.Delta.String())
}

// Is permite errors.Is(err, ErrInsufficientStock).
func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// Validation construye un error de validación con detalle.
func Validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// NotFound construye un error de recurso inexistente o inactivo.
func NotFound(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

// InvalidState construye un error de transición no permitida.
func InvalidState(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidState, fmt.Sprintf(format, args...))
}

// DataIntegrity construye un error fatal de integridad.
func DataIntegrity(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrDataIntegrity, fmt.Sprintf(format, args...))
}
