package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/inventory-ledger/internal/domain"
	"github.com/jhoicas/inventory-ledger/internal/domain/entity"
	"github.com/jhoicas/inventory-ledger/internal/domain/repository"
)

var _ repository.IdempotencyRepository = (*IdempotencyRepo)(nil)

// IdempotencyRepo persiste el ledger de idempotencia. Trabaja fuera de la
// transacción del caso de uso: el registro en curso debe ser visible de inmediato.
type IdempotencyRepo struct {
	q   Querier
	now func() time.Time
}

// NewIdempotencyRepository construye el adaptador con el pool.
func NewIdempotencyRepository(q Querier) *IdempotencyRepo {
	return &IdempotencyRepo{q: q, now: func() time.Time { return time.Now().UTC() }}
}

// Find busca el registro vivo de la tupla (key, endpoint, caller).
func (r *IdempotencyRepo) Find(ctx context.Context, key, endpoint, callerID string) (*entity.IdempotencyRecord, error) {
	var rec entity.IdempotencyRecord
	err := r.q.QueryRow(ctx, `
		SELECT id, idem_key, endpoint, caller_id, completed, success, status_code,
		       response_body, error_message, created_at, updated_at, completed_at
		FROM idempotency_records
		WHERE idem_key = $1 AND endpoint = $2 AND caller_id = $3 AND NOT is_deleted`,
		key, endpoint, callerID,
	).Scan(&rec.ID, &rec.Key, &rec.Endpoint, &rec.CallerID, &rec.Completed, &rec.Success, &rec.StatusCode,
		&rec.ResponseBody, &rec.ErrorMessage, &rec.CreatedAt, &rec.UpdatedAt, &rec.CompletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, classify("find idempotency record", err)
	}
	return &rec, nil
}

// CreateInFlight reserva la tupla; el constraint único resuelve la carrera entre réplicas.
func (r *IdempotencyRepo) CreateInFlight(ctx context.Context, rec *entity.IdempotencyRecord) error {
	now := r.now()
	rec.CreatedAt, rec.UpdatedAt = now, now
	rec.Completed = false
	_, err := r.q.Exec(ctx, `
		INSERT INTO idempotency_records (id, idem_key, endpoint, caller_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		rec.ID, rec.Key, rec.Endpoint, rec.CallerID, rec.CreatedAt, rec.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrIdempotencyInFlight
		}
		return classify("create idempotency record", err)
	}
	return nil
}

// Settle completa el registro una única vez.
func (r *IdempotencyRepo) Settle(ctx context.Context, rec *entity.IdempotencyRecord) error {
	now := r.now()
	cmd, err := r.q.Exec(ctx, `
		UPDATE idempotency_records
		SET completed = TRUE, success = $2, status_code = $3, response_body = $4,
		    error_message = $5, updated_at = $6, completed_at = $6
		WHERE id = $1 AND NOT completed`,
		rec.ID, rec.Success, rec.StatusCode, rec.ResponseBody, rec.ErrorMessage, now)
	if err != nil {
		return classify("settle idempotency record", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.InvalidState("registro de idempotencia %s ya completado o inexistente", rec.ID)
	}
	rec.Completed = true
	rec.UpdatedAt = now
	rec.CompletedAt = &now
	return nil
}
