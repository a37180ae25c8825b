package memory

import (
	"context"

	"github.com/jhoicas/inventory-ledger/internal/domain"
	"github.com/jhoicas/inventory-ledger/internal/domain/entity"
	"github.com/jhoicas/inventory-ledger/internal/domain/repository"
)

var _ repository.IdempotencyRepository = (*IdempotencyRepo)(nil)

// IdempotencyRepo ledger de idempotencia en memoria. Usa su propio mutex: no participa
// de las transacciones del ledger de inventario, igual que en PostgreSQL.
type IdempotencyRepo struct{ s *Store }

func idemKey(key, endpoint, callerID string) string {
	return endpoint + "\x00" + callerID + "\x00" + key
}

func (r *IdempotencyRepo) Find(ctx context.Context, key, endpoint, callerID string) (*entity.IdempotencyRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.idemMu.Lock()
	defer r.s.idemMu.Unlock()
	rec, ok := r.s.idem[idemKey(key, endpoint, callerID)]
	if !ok {
		return nil, nil
	}
	rec.ResponseBody = append([]byte(nil), rec.ResponseBody...)
	return &rec, nil
}

func (r *IdempotencyRepo) CreateInFlight(ctx context.Context, rec *entity.IdempotencyRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.idemMu.Lock()
	defer r.s.idemMu.Unlock()
	k := idemKey(rec.Key, rec.Endpoint, rec.CallerID)
	if _, ok := r.s.idem[k]; ok {
		return domain.ErrIdempotencyInFlight
	}
	cp := *rec
	cp.Completed = false
	r.s.idem[k] = cp
	return nil
}

func (r *IdempotencyRepo) Settle(_ context.Context, rec *entity.IdempotencyRecord) error {
	r.s.idemMu.Lock()
	defer r.s.idemMu.Unlock()
	k := idemKey(rec.Key, rec.Endpoint, rec.CallerID)
	cur, ok := r.s.idem[k]
	if !ok || cur.ID != rec.ID {
		return domain.NotFound("registro de idempotencia %s", rec.ID)
	}
	if cur.Completed {
		return domain.InvalidState("registro de idempotencia %s ya liquidado", rec.ID)
	}
	cp := *rec
	cp.ResponseBody = append([]byte(nil), rec.ResponseBody...)
	r.s.idem[k] = cp
	return nil
}
