package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/inventory-ledger/internal/domain"
	"github.com/jhoicas/inventory-ledger/internal/domain/entity"
	"github.com/jhoicas/inventory-ledger/internal/domain/repository"
)

var _ repository.BalanceRepository = (*BalanceRepo)(nil)

// BalanceRepo implementación sobre PostgreSQL de inventory_balances.
type BalanceRepo struct {
	q   Querier
	now func() time.Time
}

// NewBalanceRepository construye el adaptador. Pasar pool o tx (Querier).
func NewBalanceRepository(q Querier) *BalanceRepo {
	return &BalanceRepo{q: q, now: func() time.Time { return time.Now().UTC() }}
}

const balanceColumns = `id, warehouse_id, product_id, on_hand, version,
	created_at, created_by, updated_at, updated_by`

func scanBalance(row pgx.Row) (*entity.Balance, error) {
	var b entity.Balance
	if err := row.Scan(&b.ID, &b.WarehouseID, &b.ProductID, &b.OnHand, &b.Version,
		&b.CreatedAt, &b.CreatedBy, &b.UpdatedAt, &b.UpdatedBy); err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *BalanceRepo) get(ctx context.Context, warehouseID, productID, suffix string) (*entity.Balance, error) {
	query := `SELECT ` + balanceColumns + `
		FROM inventory_balances
		WHERE warehouse_id = $1 AND product_id = $2 AND NOT is_deleted` + suffix
	b, err := scanBalance(r.q.QueryRow(ctx, query, warehouseID, productID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, classify("get balance", err)
	}
	return b, nil
}

// Get devuelve el saldo del par o nil si no hay fila.
func (r *BalanceRepo) Get(ctx context.Context, warehouseID, productID string) (*entity.Balance, error) {
	return r.get(ctx, warehouseID, productID, "")
}

// GetForUpdate bloquea la fila del par.
func (r *BalanceRepo) GetForUpdate(ctx context.Context, warehouseID, productID string) (*entity.Balance, error) {
	return r.get(ctx, warehouseID, productID, " FOR UPDATE")
}

// EnsureForUpdate inserta la fila en cero si falta (ON CONFLICT DO NOTHING) y la bloquea.
func (r *BalanceRepo) EnsureForUpdate(ctx context.Context, warehouseID, productID string) (*entity.Balance, error) {
	var rec entity.Record
	repository.StampCreated(ctx, &rec, r.now())
	_, err := r.q.Exec(ctx, `
		INSERT INTO inventory_balances
			(id, warehouse_id, product_id, on_hand, version, created_at, created_by, updated_at, updated_by)
		VALUES ($1, $2, $3, $4, 0, $5, $6, $7, $8)
		ON CONFLICT (warehouse_id, product_id) DO NOTHING`,
		uuid.New().String(), warehouseID, productID, decimal.Zero,
		rec.CreatedAt, rec.CreatedBy, rec.UpdatedAt, rec.UpdatedBy)
	if err != nil {
		return nil, classify("ensure balance", err)
	}
	b, err := r.GetForUpdate(ctx, warehouseID, productID)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, domain.DataIntegrity("saldo de bodega %s producto %s borrado lógicamente", warehouseID, productID)
	}
	return b, nil
}

// CreateIfMissing inserta la fila; si el par ya existe no la toca y devuelve false.
func (r *BalanceRepo) CreateIfMissing(ctx context.Context, b *entity.Balance) (bool, error) {
	if b.OnHand.IsNegative() {
		return false, domain.DataIntegrity("saldo negativo para bodega %s producto %s", b.WarehouseID, b.ProductID)
	}
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	repository.StampCreated(ctx, &b.Record, r.now())
	b.Version = 0
	cmd, err := r.q.Exec(ctx, `
		INSERT INTO inventory_balances
			(id, warehouse_id, product_id, on_hand, version, created_at, created_by, updated_at, updated_by)
		VALUES ($1, $2, $3, $4, 0, $5, $6, $7, $8)
		ON CONFLICT (warehouse_id, product_id) DO NOTHING`,
		b.ID, b.WarehouseID, b.ProductID, b.OnHand,
		b.CreatedAt, b.CreatedBy, b.UpdatedAt, b.UpdatedBy)
	if err != nil {
		return false, classify("create balance", err)
	}
	return cmd.RowsAffected() == 1, nil
}

// Update escribe on_hand si la versión leída sigue vigente y la incrementa.
func (r *BalanceRepo) Update(ctx context.Context, b *entity.Balance) error {
	if b.OnHand.IsNegative() {
		return domain.DataIntegrity("saldo negativo para bodega %s producto %s", b.WarehouseID, b.ProductID)
	}
	repository.StampUpdated(ctx, &b.Record, r.now())
	cmd, err := r.q.Exec(ctx, `
		UPDATE inventory_balances
		SET on_hand = $3, version = version + 1, updated_at = $4, updated_by = $5
		WHERE warehouse_id = $1 AND product_id = $2 AND version = $6 AND NOT is_deleted`,
		b.WarehouseID, b.ProductID, b.OnHand, b.UpdatedAt, b.UpdatedBy, b.Version)
	if err != nil {
		return classify("update balance", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrConcurrentModification
	}
	b.Version++
	return nil
}

// ListForUpdate bloquea las filas del filtro en orden (bodega, producto).
func (r *BalanceRepo) ListForUpdate(ctx context.Context, f repository.BalanceFilter) ([]*entity.Balance, error) {
	return r.list(ctx, f, " FOR UPDATE")
}

// List devuelve los saldos del filtro sin bloquear.
func (r *BalanceRepo) List(ctx context.Context, f repository.BalanceFilter) ([]*entity.Balance, error) {
	return r.list(ctx, f, "")
}

func (r *BalanceRepo) list(ctx context.Context, f repository.BalanceFilter, suffix string) ([]*entity.Balance, error) {
	query := `SELECT ` + balanceColumns + ` FROM inventory_balances WHERE NOT is_deleted`
	var args []any
	pos := 1
	if f.WarehouseID != nil {
		query += fmt.Sprintf(" AND warehouse_id = $%d", pos)
		args = append(args, *f.WarehouseID)
		pos++
	}
	if f.ProductID != nil {
		query += fmt.Sprintf(" AND product_id = $%d", pos)
		args = append(args, *f.ProductID)
	}
	query += " ORDER BY warehouse_id, product_id" + suffix

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, classify("list balances", err)
	}
	defer rows.Close()
	list := []*entity.Balance{}
	for rows.Next() {
		b, err := scanBalance(rows)
		if err != nil {
			return nil, fmt.Errorf("scan balance: %w", err)
		}
		list = append(list, b)
	}
	return list, classify("list balances", rows.Err())
}
