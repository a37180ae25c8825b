package repository

import (
	"context"

	"github.com/jhoicas/inventory-ledger/internal/domain/entity"
)

// IdempotencyRepository define el puerto del ledger de idempotencia.
type IdempotencyRepository interface {
	// Find devuelve nil, nil si no hay registro para la tupla.
	Find(ctx context.Context, key, endpoint, callerID string) (*entity.IdempotencyRecord, error)
	// CreateInFlight inserta el registro en curso; domain.ErrIdempotencyInFlight si la tupla ya existe.
	CreateInFlight(ctx context.Context, record *entity.IdempotencyRecord) error
	// Settle marca el registro como completado una sola vez.
	Settle(ctx context.Context, record *entity.IdempotencyRecord) error
}
