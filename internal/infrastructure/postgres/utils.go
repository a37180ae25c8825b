package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/jhoicas/inventory-ledger/internal/domain"
)

// Querier abstrae pool y tx para que los repositorios funcionen con ambos.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Códigos SQLSTATE que el ledger distingue.
const (
	codeUniqueViolation      = "23505"
	codeCheckViolation       = "23514"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeLockNotAvailable     = "55P03"
	codeQueryCanceled        = "57014"
)

// isUniqueViolation verifica si un error es una violación de constraint único (23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == codeUniqueViolation
	}
	return strings.Contains(err.Error(), codeUniqueViolation)
}

// classify envuelve err con el sentinel de dominio que corresponde:
// conflictos de concurrencia y cortes de conexión son transitorios (se reintentan),
// un CHECK violado es un error de integridad. El resto se devuelve con contexto.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeSerializationFailure, codeDeadlockDetected, codeLockNotAvailable, codeQueryCanceled:
			return fmt.Errorf("%w: %s: %v", domain.ErrTransientStore, op, err)
		case codeCheckViolation:
			return fmt.Errorf("%w: %s: %s", domain.ErrDataIntegrity, op, pgErr.ConstraintName)
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	if pgconn.SafeToRetry(err) || pgconn.Timeout(err) {
		return fmt.Errorf("%w: %s: %v", domain.ErrTransientStore, op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// isRetryable indica si la transacción completa puede reintentarse.
func isRetryable(err error) bool {
	return errors.Is(err, domain.ErrTransientStore) || errors.Is(err, domain.ErrConcurrentModification)
}
