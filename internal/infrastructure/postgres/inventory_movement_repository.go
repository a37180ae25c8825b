package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/inventory-ledger/internal/domain"
	"github.com/jhoicas/inventory-ledger/internal/domain/entity"
	"github.com/jhoicas/inventory-ledger/internal/domain/repository"
)

var _ repository.InventoryMovementRepository = (*InventoryMovementRepo)(nil)

// InventoryMovementRepo implementación sobre PostgreSQL (usable con pool o tx).
type InventoryMovementRepo struct {
	q   Querier
	now func() time.Time
}

// NewInventoryMovementRepository construye el adaptador. Pasar pool o tx (Querier).
func NewInventoryMovementRepository(q Querier) *InventoryMovementRepo {
	return &InventoryMovementRepo{q: q, now: func() time.Time { return time.Now().UTC() }}
}

const movementColumns = `id, warehouse_id, kind, status, reference_no, notes,
	posted_at, posted_by, cancelled_at, cancelled_by,
	created_at, created_by, updated_at, updated_by`

// Create persiste la cabecera de un movimiento en Draft.
func (r *InventoryMovementRepo) Create(ctx context.Context, m *entity.Movement) error {
	repository.StampCreated(ctx, &m.Record, r.now())
	query := `
		INSERT INTO inventory_movements (` + movementColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`
	_, err := r.q.Exec(ctx, query,
		m.ID, m.WarehouseID, string(m.Kind), int16(m.Status), m.ReferenceNo, m.Notes,
		m.PostedAt, m.PostedBy, m.CancelledAt, m.CancelledBy,
		m.CreatedAt, m.CreatedBy, m.UpdatedAt, m.UpdatedBy,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.DataIntegrity("movimiento %s duplicado", m.ID)
		}
		return classify("create inventory movement", err)
	}
	return nil
}

// GetByID obtiene un movimiento vivo por ID.
func (r *InventoryMovementRepo) GetByID(ctx context.Context, id string) (*entity.Movement, error) {
	return r.get(ctx, id, "")
}

// GetByIDForUpdate bloquea la cabecera (SELECT FOR UPDATE).
func (r *InventoryMovementRepo) GetByIDForUpdate(ctx context.Context, id string) (*entity.Movement, error) {
	return r.get(ctx, id, " FOR UPDATE")
}

func (r *InventoryMovementRepo) get(ctx context.Context, id, suffix string) (*entity.Movement, error) {
	query := `SELECT ` + movementColumns + `
		FROM inventory_movements WHERE id = $1 AND NOT is_deleted` + suffix
	m, err := scanMovement(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, classify("get movement", err)
	}
	return m, nil
}

func scanMovement(row pgx.Row) (*entity.Movement, error) {
	var (
		m      entity.Movement
		kind   string
		status int16
	)
	if err := row.Scan(
		&m.ID, &m.WarehouseID, &kind, &status, &m.ReferenceNo, &m.Notes,
		&m.PostedAt, &m.PostedBy, &m.CancelledAt, &m.CancelledBy,
		&m.CreatedAt, &m.CreatedBy, &m.UpdatedAt, &m.UpdatedBy,
	); err != nil {
		return nil, err
	}
	m.Kind = entity.MovementKind(kind)
	s, ok := entity.ParseMovementStatus(status)
	if !ok {
		return nil, domain.DataIntegrity("movimiento %s con estado desconocido %d", m.ID, status)
	}
	m.Status = s
	return &m, nil
}

// UpdateHeader modifica reference_no y notes; solo aplica a movimientos en Draft.
func (r *InventoryMovementRepo) UpdateHeader(ctx context.Context, m *entity.Movement) error {
	repository.StampUpdated(ctx, &m.Record, r.now())
	cmd, err := r.q.Exec(ctx, `
		UPDATE inventory_movements
		SET reference_no = $2, notes = $3, updated_at = $4, updated_by = $5
		WHERE id = $1 AND status = $6 AND NOT is_deleted`,
		m.ID, m.ReferenceNo, m.Notes, m.UpdatedAt, m.UpdatedBy, int16(entity.MovementStatusDraft),
	)
	if err != nil {
		return classify("update movement header", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.InvalidState("el movimiento %s ya no está en Draft", m.ID)
	}
	return nil
}

// UpdateStatus persiste el estado y los sellos de posteo/anulación.
func (r *InventoryMovementRepo) UpdateStatus(ctx context.Context, m *entity.Movement) error {
	repository.StampUpdated(ctx, &m.Record, r.now())
	cmd, err := r.q.Exec(ctx, `
		UPDATE inventory_movements
		SET status = $2, posted_at = $3, posted_by = $4, cancelled_at = $5, cancelled_by = $6,
		    updated_at = $7, updated_by = $8
		WHERE id = $1 AND NOT is_deleted`,
		m.ID, int16(m.Status), m.PostedAt, m.PostedBy, m.CancelledAt, m.CancelledBy,
		m.UpdatedAt, m.UpdatedBy,
	)
	if err != nil {
		return classify("update movement status", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.NotFound("movimiento %s", m.ID)
	}
	return nil
}

// ListActiveLines devuelve las líneas no borradas en orden de inserción.
func (r *InventoryMovementRepo) ListActiveLines(ctx context.Context, movementID string) ([]*entity.MovementLine, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, movement_id, product_id, quantity, created_at, created_by, updated_at, updated_by
		FROM inventory_movement_lines
		WHERE movement_id = $1 AND NOT is_deleted
		ORDER BY seq`, movementID)
	if err != nil {
		return nil, classify("list movement lines", err)
	}
	defer rows.Close()
	list := []*entity.MovementLine{}
	for rows.Next() {
		var l entity.MovementLine
		if err := rows.Scan(&l.ID, &l.MovementID, &l.ProductID, &l.Quantity,
			&l.CreatedAt, &l.CreatedBy, &l.UpdatedAt, &l.UpdatedBy); err != nil {
			return nil, fmt.Errorf("scan movement line: %w", err)
		}
		list = append(list, &l)
	}
	return list, classify("list movement lines", rows.Err())
}

// AddLines inserta las líneas en un solo batch.
func (r *InventoryMovementRepo) AddLines(ctx context.Context, lines []*entity.MovementLine) error {
	if len(lines) == 0 {
		return nil
	}
	now := r.now()
	batch := &pgx.Batch{}
	for _, l := range lines {
		repository.StampCreated(ctx, &l.Record, now)
		batch.Queue(`
			INSERT INTO inventory_movement_lines
				(id, movement_id, product_id, quantity, created_at, created_by, updated_at, updated_by)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			l.ID, l.MovementID, l.ProductID, l.Quantity, l.CreatedAt, l.CreatedBy, l.UpdatedAt, l.UpdatedBy)
	}
	br := sendBatch(ctx, r.q, batch)
	defer br.Close()
	for range lines {
		if _, err := br.Exec(); err != nil {
			return classify("add movement lines", err)
		}
	}
	return nil
}

// SoftDeleteLines borra lógicamente todas las líneas activas del movimiento.
func (r *InventoryMovementRepo) SoftDeleteLines(ctx context.Context, movementID string) error {
	var rec entity.Record
	repository.StampDeleted(ctx, &rec, r.now())
	_, err := r.q.Exec(ctx, `
		UPDATE inventory_movement_lines
		SET is_deleted = TRUE, deleted_at = $2, deleted_by = $3, updated_at = $2, updated_by = $3
		WHERE movement_id = $1 AND NOT is_deleted`,
		movementID, rec.DeletedAt, rec.DeletedBy)
	if err != nil {
		return classify("soft delete movement lines", err)
	}
	return nil
}

// ListPostedLines proyecta las líneas activas de movimientos Posted.
// La ventana [From, To] es inclusiva y se evalúa sobre posted_at.
func (r *InventoryMovementRepo) ListPostedLines(ctx context.Context, f repository.PostedLineFilter) ([]entity.PostedLine, error) {
	query := `
		SELECT m.id, m.warehouse_id, l.product_id, m.kind, l.quantity, m.posted_at
		FROM inventory_movement_lines l
		JOIN inventory_movements m ON m.id = l.movement_id
		WHERE m.status = $1 AND NOT m.is_deleted AND NOT l.is_deleted`
	args := []any{int16(entity.MovementStatusPosted)}
	pos := 2
	if f.WarehouseID != nil {
		query += fmt.Sprintf(" AND m.warehouse_id = $%d", pos)
		args = append(args, *f.WarehouseID)
		pos++
	}
	if f.ProductID != nil {
		query += fmt.Sprintf(" AND l.product_id = $%d", pos)
		args = append(args, *f.ProductID)
		pos++
	}
	if f.From != nil {
		query += fmt.Sprintf(" AND m.posted_at >= $%d", pos)
		args = append(args, *f.From)
		pos++
	}
	if f.To != nil {
		query += fmt.Sprintf(" AND m.posted_at <= $%d", pos)
		args = append(args, *f.To)
	}
	query += " ORDER BY m.warehouse_id, l.product_id, m.posted_at, l.seq"

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, classify("list posted lines", err)
	}
	defer rows.Close()
	var list []entity.PostedLine
	for rows.Next() {
		var (
			pl   entity.PostedLine
			kind string
		)
		if err := rows.Scan(&pl.MovementID, &pl.WarehouseID, &pl.ProductID, &kind, &pl.Quantity, &pl.PostedAt); err != nil {
			return nil, fmt.Errorf("scan posted line: %w", err)
		}
		pl.Kind = entity.MovementKind(kind)
		list = append(list, pl)
	}
	return list, classify("list posted lines", rows.Err())
}

// sendBatch usa SendBatch del pool o de la tx.
func sendBatch(ctx context.Context, q Querier, b *pgx.Batch) pgx.BatchResults {
	type batcher interface {
		SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
	}
	return q.(batcher).SendBatch(ctx, b)
}
