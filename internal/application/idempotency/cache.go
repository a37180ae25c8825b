package idempotency

import (
	"context"
	"time"

	"github.com/jhoicas/inventory-ledger/internal/domain/entity"
)

// ReplayCache guarda registros liquidados para repetirlos sin ir a la BD.
// Solo se guardan registros completados; la fuente de verdad sigue siendo el repositorio.
type ReplayCache interface {
	Get(ctx context.Context, key string) (*entity.IdempotencyRecord, bool, error)
	Set(ctx context.Context, key string, record *entity.IdempotencyRecord, ttl time.Duration) error
}

// NoopReplayCache desactiva la caché.
type NoopReplayCache struct{}

func (NoopReplayCache) Get(_ context.Context, _ string) (*entity.IdempotencyRecord, bool, error) {
	return nil, false, nil
}

func (NoopReplayCache) Set(_ context.Context, _ string, _ *entity.IdempotencyRecord, _ time.Duration) error {
	return nil
}
