package repository

import (
	"context"
	"time"

	"github.com/jhoicas/inventory-ledger/internal/domain/entity"
)

// PostedLineFilter filtra las líneas de movimientos Posted (ventana sobre posted_at).
type PostedLineFilter struct {
	WarehouseID *string
	ProductID   *string
	From        *time.Time
	To          *time.Time
}

// InventoryMovementRepository define el puerto de persistencia para movimientos y sus líneas.
// Solo cambian estado, sellos y cabecera en Draft; las líneas se reemplazan con borrado lógico.
type InventoryMovementRepository interface {
	Create(ctx context.Context, movement *entity.Movement) error
	// GetByID devuelve nil, nil si no existe o está borrado lógicamente.
	GetByID(ctx context.Context, id string) (*entity.Movement, error)
	// GetByIDForUpdate bloquea la cabecera para serializar transiciones del mismo movimiento.
	GetByIDForUpdate(ctx context.Context, id string) (*entity.Movement, error)
	UpdateHeader(ctx context.Context, movement *entity.Movement) error
	UpdateStatus(ctx context.Context, movement *entity.Movement) error

	ListActiveLines(ctx context.Context, movementID string) ([]*entity.MovementLine, error)
	AddLines(ctx context.Context, lines []*entity.MovementLine) error
	SoftDeleteLines(ctx context.Context, movementID string) error

	ListPostedLines(ctx context.Context, filter PostedLineFilter) ([]entity.PostedLine, error)
}
