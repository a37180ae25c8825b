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

var _ repository.WarehouseRepository = (*WarehouseRepo)(nil)

// WarehouseRepo implementación del puerto WarehouseRepository sobre PostgreSQL (usable con pool o tx).
type WarehouseRepo struct {
	q Querier
}

// NewWarehouseRepository construye el adaptador de persistencia para bodegas.
func NewWarehouseRepository(q Querier) *WarehouseRepo {
	return &WarehouseRepo{q: q}
}

// GetByID obtiene una bodega por ID.
func (r *WarehouseRepo) GetByID(ctx context.Context, id string) (*entity.Warehouse, error) {
	query := `
		SELECT id, code, name, address, active, created_at, updated_at
		FROM warehouses WHERE id = $1`
	var w entity.Warehouse
	err := r.q.QueryRow(ctx, query, id).Scan(
		&w.ID, &w.Code, &w.Name, &w.Address, &w.Active, &w.CreatedAt, &w.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, classify("get warehouse", err)
	}
	return &w, nil
}

// Upsert crea o actualiza la bodega por ID (carga de catálogo).
func (r *WarehouseRepo) Upsert(ctx context.Context, w *entity.Warehouse) error {
	query := `
		INSERT INTO warehouses (id, code, name, address, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE
		SET code = EXCLUDED.code, name = EXCLUDED.name, address = EXCLUDED.address,
		    active = EXCLUDED.active, updated_at = EXCLUDED.updated_at
		RETURNING created_at`
	now := time.Now().UTC()
	w.UpdatedAt = now
	if w.CreatedAt.IsZero() {
		w.CreatedAt = now
	}
	err := r.q.QueryRow(ctx, query,
		w.ID, w.Code, w.Name, w.Address, w.Active, w.CreatedAt, w.UpdatedAt,
	).Scan(&w.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Validation("código de bodega %s duplicado", w.Code)
		}
		return classify("upsert warehouse", err)
	}
	return nil
}
