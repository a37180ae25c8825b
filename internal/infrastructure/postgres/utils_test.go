package postgres

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/inventory-ledger/internal/domain"
)

func TestClassify_CodigosTransitorios(t *testing.T) {
	for _, code := range []string{codeSerializationFailure, codeDeadlockDetected, codeLockNotAvailable, codeQueryCanceled} {
		err := classify("op", &pgconn.PgError{Code: code})
		assert.ErrorIs(t, err, domain.ErrTransientStore, "código %s debe ser transitorio", code)
		assert.True(t, isRetryable(err))
	}
}

func TestClassify_CheckEsIntegridad(t *testing.T) {
	err := classify("update balance", &pgconn.PgError{Code: codeCheckViolation, ConstraintName: "inventory_balances_on_hand_chk"})
	assert.ErrorIs(t, err, domain.ErrDataIntegrity)
	assert.Contains(t, err.Error(), "inventory_balances_on_hand_chk")
	assert.False(t, isRetryable(err))
}

func TestClassify_OtrosErrores(t *testing.T) {
	assert.NoError(t, classify("op", nil))

	base := errors.New("boom")
	err := classify("get balance", base)
	assert.ErrorIs(t, err, base)
	assert.NotErrorIs(t, err, domain.ErrTransientStore)
	assert.Contains(t, err.Error(), "get balance")

	pgErr := &pgconn.PgError{Code: "42P01"}
	assert.ErrorIs(t, classify("op", pgErr), pgErr)
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(&pgconn.PgError{Code: codeUniqueViolation}))
	assert.False(t, isUniqueViolation(&pgconn.PgError{Code: codeCheckViolation}))
}

func TestIsRetryable_ConflictoDeVersion(t *testing.T) {
	assert.True(t, isRetryable(domain.ErrConcurrentModification))
	assert.False(t, isRetryable(domain.ErrInsufficientStock))
}
