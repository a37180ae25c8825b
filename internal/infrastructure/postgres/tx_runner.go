package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/jhoicas/inventory-ledger/internal/application/inventory"
)

// Ensure TxRunner implements inventory.TxRunner.
var _ inventory.TxRunner = (*TxRunner)(nil)

// ledgerLockKey identifica el candado consultivo del ledger de inventario.
const ledgerLockKey int64 = 0x1d6e_d6e7

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL.
// Cada transacción toma primero el candado consultivo del ledger: compartido para
// posteos/anulaciones/ediciones y exclusivo para la conciliación con escritura.
type TxRunner struct {
	pool    *pgxpool.Pool
	retries int
	log     zerolog.Logger
}

// NewTxRunner construye el runner con el pool. retries es el número de reintentos
// ante errores transitorios (serialización, deadlock, lock timeout, corte de conexión).
func NewTxRunner(pool *pgxpool.Pool, retries int, log zerolog.Logger) *TxRunner {
	return &TxRunner{pool: pool, retries: retries, log: log.With().Str("component", "tx_runner").Logger()}
}

// Run ejecuta fn con el candado compartido del ledger.
func (r *TxRunner) Run(ctx context.Context, fn func(repos inventory.Repos) error) error {
	return r.run(ctx, "SELECT pg_advisory_xact_lock_shared($1)", fn)
}

// RunExclusive ejecuta fn con el candado exclusivo del ledger.
func (r *TxRunner) RunExclusive(ctx context.Context, fn func(repos inventory.Repos) error) error {
	return r.run(ctx, "SELECT pg_advisory_xact_lock($1)", fn)
}

func (r *TxRunner) run(ctx context.Context, lockSQL string, fn func(repos inventory.Repos) error) error {
	var err error
	for attempt := 0; ; attempt++ {
		err = r.once(ctx, lockSQL, fn)
		if err == nil || !isRetryable(err) || attempt >= r.retries {
			return err
		}
		r.log.Warn().Err(err).Int("attempt", attempt+1).Msg("transacción abortada por conflicto, reintentando")
		select {
		case <-ctx.Done():
			return err
		case <-time.After(time.Duration(attempt+1) * 20 * time.Millisecond):
		}
	}
}

// once inicia una transacción, ejecuta fn con repos atados a la tx y hace Commit o Rollback.
func (r *TxRunner) once(ctx context.Context, lockSQL string, fn func(repos inventory.Repos) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return classify("begin transaction", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, lockSQL, ledgerLockKey); err != nil {
		return classify("ledger lock", err)
	}
	if err := fn(ReposFor(tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return classify("commit transaction", err)
	}
	return nil
}

// ReposFor ata los repositorios del ledger a un Querier (pool o tx).
func ReposFor(q Querier) inventory.Repos {
	return inventory.Repos{
		Movements:  NewInventoryMovementRepository(q),
		Balances:   NewBalanceRepository(q),
		Warehouses: NewWarehouseRepository(q),
		Products:   NewProductRepository(q),
	}
}
