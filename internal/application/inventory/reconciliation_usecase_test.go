package inventory_test

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventory-ledger/internal/application/dto"
	"github.com/jhoicas/inventory-ledger/internal/application/inventory"
	"github.com/jhoicas/inventory-ledger/internal/domain"
	"github.com/jhoicas/inventory-ledger/internal/domain/entity"
	"github.com/jhoicas/inventory-ledger/internal/infrastructure/memory"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

// reconFixture postea un histórico conocido:
//   - W/P:  IN 10, OUT 4 → 6
//   - W/P2: IN 3 → 3
//   - W2/P3: ADJUSTMENT 2 → 2
func reconFixture(t *testing.T, maxCreates int) (*inventory.ReconciliationUseCase, *memory.Store, *auditMock) {
	t.Helper()
	uc, store, audit := newFixture(t)
	ctx := userCtx()
	for _, id := range []string{
		draft(t, uc, testWarehouse, "IN", lineSpec{testProduct, "10"}, lineSpec{"P2", "3"}),
		draft(t, uc, testWarehouse, "OUT", lineSpec{testProduct, "4"}),
		draft(t, uc, "W2", "ADJUSTMENT", lineSpec{"P3", "2"}),
	} {
		_, err := uc.Post(ctx, id)
		require.NoError(t, err)
	}
	return inventory.NewReconciliationUseCase(store, audit, zerolog.Nop(), maxCreates), store, audit
}

func boolPtr(b bool) *bool { return &b }

func strPtr(s string) *string { return &s }

// ──────────────────────────────────────────────────────────────────────────────
// run
// ──────────────────────────────────────────────────────────────────────────────

func TestReconcile_SafeModeNoTocaFilasExistentes(t *testing.T) {
	rc, store, _ := reconFixture(t, 0)
	ctx := userCtx()
	store.SetBalance(testWarehouse, testProduct, dec("99"))

	resp, err := rc.Run(ctx, dto.ReconcileRequest{})
	require.NoError(t, err)
	assert.True(t, resp.SafeMode, "safe mode por defecto")
	assert.Equal(t, 3, resp.AffectedPairs)
	assert.Equal(t, 3, resp.Unchanged)
	assert.Zero(t, resp.UpdatedExisting)
	assert.Empty(t, resp.Diffs)
	assert.True(t, onHand(t, store, testWarehouse, testProduct).Equal(dec("99")), "la divergencia se mantiene")
}

func TestReconcile_ModoCompletoCorrigeDivergencias(t *testing.T) {
	rc, store, audit := reconFixture(t, 0)
	ctx := userCtx()
	store.SetBalance(testWarehouse, testProduct, dec("99"))
	store.SetBalance(testWarehouse, "P2", dec("0"))

	resp, err := rc.Run(ctx, dto.ReconcileRequest{SafeMode: boolPtr(false)})
	require.NoError(t, err)
	assert.Equal(t, 2, resp.UpdatedExisting)
	assert.Equal(t, 1, resp.Unchanged)
	require.Len(t, resp.Diffs, 2)
	assert.Equal(t, dto.DiffActionUpdate, resp.Diffs[0].Action)
	assert.True(t, resp.Diffs[0].Delta.Equal(dec("-93")))

	assert.True(t, onHand(t, store, testWarehouse, testProduct).Equal(dec("6")))
	assert.True(t, onHand(t, store, testWarehouse, "P2").Equal(dec("3")))
	assert.True(t, onHand(t, store, "W2", "P3").Equal(dec("2")))

	b, err := store.Balances().Get(ctx, testWarehouse, testProduct)
	require.NoError(t, err)
	assert.Equal(t, testUser, b.UpdatedBy, "la corrección se sella con el usuario")

	audit.AssertCalled(t, "Record", mock.Anything, mock.MatchedBy(func(e entity.AuditEntry) bool {
		return e.Action == entity.AuditActionReconcile && e.Success && e.Payload["updated_existing"] == 2
	}))
}

func TestReconcile_DryRunReportaLoMismoSinPersistir(t *testing.T) {
	rc, store, _ := reconFixture(t, 0)
	ctx := userCtx()
	store.SetBalance(testWarehouse, testProduct, dec("1"))

	dry, err := rc.Run(ctx, dto.ReconcileRequest{SafeMode: boolPtr(false), DryRun: true})
	require.NoError(t, err)
	assert.True(t, dry.DryRun)
	require.Len(t, dry.Diffs, 1)
	assert.True(t, dry.Diffs[0].CurrentOnHand.Equal(dec("1")))
	assert.True(t, dry.Diffs[0].ComputedOnHand.Equal(dec("6")))
	assert.True(t, onHand(t, store, testWarehouse, testProduct).Equal(dec("1")), "dry run no persiste")

	wet, err := rc.Run(ctx, dto.ReconcileRequest{SafeMode: boolPtr(false)})
	require.NoError(t, err)
	assert.Equal(t, dry.Diffs, wet.Diffs, "el diff simulado es el que aplica la corrida real")
	assert.Equal(t, dry.UpdatedExisting, wet.UpdatedExisting)
	assert.True(t, onHand(t, store, testWarehouse, testProduct).Equal(dec("6")))
}

func TestReconcile_CreaFilasFaltantesConTotalCalculado(t *testing.T) {
	rc, store, _ := reconFixture(t, 0)
	ctx := userCtx()
	store.RemoveBalance(testWarehouse, testProduct)

	dry, err := rc.Run(ctx, dto.ReconcileRequest{DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, 1, dry.MissingCreated)
	require.Len(t, dry.Diffs, 1)
	assert.Equal(t, dto.DiffActionCreate, dry.Diffs[0].Action)
	assert.True(t, dry.Diffs[0].ComputedOnHand.Equal(dec("6")), "se crea con el total, no con cero")
	assert.True(t, onHand(t, store, testWarehouse, testProduct).IsZero(), "dry run no crea la fila")

	wet, err := rc.Run(ctx, dto.ReconcileRequest{})
	require.NoError(t, err)
	assert.Equal(t, dry.Diffs, wet.Diffs)
	assert.Equal(t, 2, wet.Unchanged)
	b, err := store.Balances().Get(ctx, testWarehouse, testProduct)
	require.NoError(t, err)
	require.NotNil(t, b)
	assert.True(t, b.OnHand.Equal(dec("6")))
	assert.Equal(t, testUser, b.CreatedBy)
}

func TestReconcile_FiltrosYVentana(t *testing.T) {
	rc, store, _ := reconFixture(t, 0)
	ctx := userCtx()
	store.SetBalance(testWarehouse, testProduct, dec("50"))
	store.SetBalance("W2", "P3", dec("50"))

	resp, err := rc.Run(ctx, dto.ReconcileRequest{WarehouseID: strPtr("W2"), SafeMode: boolPtr(false)})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.AffectedPairs)
	assert.True(t, onHand(t, store, "W2", "P3").Equal(dec("2")))
	assert.True(t, onHand(t, store, testWarehouse, testProduct).Equal(dec("50")), "fuera del filtro no se toca")

	future := time.Now().UTC().Add(time.Hour)
	resp, err = rc.Run(ctx, dto.ReconcileRequest{FromUTC: &future, SafeMode: boolPtr(false)})
	require.NoError(t, err)
	assert.Zero(t, resp.AffectedPairs, "ventana sin líneas")

	past := future.Add(-2 * time.Hour)
	_, err = rc.Run(ctx, dto.ReconcileRequest{FromUTC: &future, ToUTC: &past})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestReconcile_VentanaConSalidaNetaSeReporta(t *testing.T) {
	uc, store, audit := newFixture(t)
	ctx := userCtx()
	t0 := time.Date(2026, 1, 10, 8, 0, 0, 0, time.UTC)
	t1 := t0.Add(24 * time.Hour)

	uc.SetClock(func() time.Time { return t0 })
	in := draft(t, uc, testWarehouse, "IN", lineSpec{testProduct, "5"})
	_, err := uc.Post(ctx, in)
	require.NoError(t, err)
	uc.SetClock(func() time.Time { return t1 })
	out := draft(t, uc, testWarehouse, "OUT", lineSpec{testProduct, "5"})
	_, err = uc.Post(ctx, out)
	require.NoError(t, err)

	// Una ventana que solo ve el OUT produce un total negativo.
	rc := inventory.NewReconciliationUseCase(store, audit, zerolog.Nop(), 0)
	resp, err := rc.Run(ctx, dto.ReconcileRequest{FromUTC: &t1})
	require.NoError(t, err, "safe mode no escribe la fila existente")
	assert.Equal(t, 1, resp.Unchanged)
	assert.Empty(t, resp.Diffs)

	resp, err = rc.Run(ctx, dto.ReconcileRequest{FromUTC: &t1, SafeMode: boolPtr(false), DryRun: true})
	require.NoError(t, err, "el dry run devuelve el diff completo")
	assert.Equal(t, 1, resp.UpdatedExisting)
	require.Len(t, resp.Diffs, 1)
	assert.True(t, resp.Diffs[0].ComputedOnHand.Equal(dec("-5")))
	assert.True(t, resp.Diffs[0].Delta.Equal(dec("-5")))

	resp, err = rc.Run(ctx, dto.ReconcileRequest{FromUTC: &t1, SafeMode: boolPtr(false)})
	assert.ErrorIs(t, err, domain.ErrDataIntegrity, "escribir un saldo negativo es integridad")
	assert.Nil(t, resp)
	assert.True(t, onHand(t, store, testWarehouse, testProduct).IsZero(), "nada se escribe")
	audit.AssertCalled(t, "Record", mock.Anything, mock.MatchedBy(func(e entity.AuditEntry) bool {
		return e.Action == entity.AuditActionReconcile && !e.Success
	}))

	store.RemoveBalance(testWarehouse, testProduct)
	resp, err = rc.Run(ctx, dto.ReconcileRequest{FromUTC: &t1, DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.MissingCreated)
	require.Len(t, resp.Diffs, 1)
	assert.Equal(t, dto.DiffActionCreate, resp.Diffs[0].Action)
	assert.True(t, resp.Diffs[0].ComputedOnHand.Equal(dec("-5")))

	_, err = rc.Run(ctx, dto.ReconcileRequest{FromUTC: &t1})
	assert.ErrorIs(t, err, domain.ErrDataIntegrity, "no se crea una fila negativa")

	resp, err = rc.Run(ctx, dto.ReconcileRequest{FromUTC: &t0, ToUTC: &t1, DryRun: true})
	require.NoError(t, err, "la ventana cerrada incluye ambos extremos")
	assert.Equal(t, 1, resp.AffectedPairs)
}

// ──────────────────────────────────────────────────────────────────────────────
// sync_missing
// ──────────────────────────────────────────────────────────────────────────────

func TestSyncMissing_RespetaElTope(t *testing.T) {
	uc, store, audit := newFixture(t)
	ctx := userCtx()
	for _, w := range []string{testWarehouse, "W2"} {
		id := draft(t, uc, w, "IN", lineSpec{testProduct, "1"}, lineSpec{"P2", "1"}, lineSpec{"P3", "1"})
		_, err := uc.Post(ctx, id)
		require.NoError(t, err)
		for _, p := range []string{testProduct, "P2", "P3"} {
			store.RemoveBalance(w, p)
		}
	}
	rc := inventory.NewReconciliationUseCase(store, audit, zerolog.Nop(), 4)

	resp, err := rc.SyncMissingBalances(ctx, dto.SyncMissingBalancesRequest{MaxCreates: 100})
	require.NoError(t, err)
	assert.Equal(t, 4, resp.MaxCreates, "se ajusta al máximo configurado")
	assert.Equal(t, 6, resp.ConsideredPairs)
	assert.Equal(t, 4, resp.Created)
	assert.Equal(t, 2, resp.Remaining)
	require.Len(t, resp.CreatedRows, 4)
	for _, row := range resp.CreatedRows {
		assert.True(t, row.OnHand.IsZero(), "se crean con cero")
	}

	resp, err = rc.SyncMissingBalances(ctx, dto.SyncMissingBalancesRequest{MaxCreates: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Created)
	assert.Equal(t, 4, resp.SkippedExisting)
	assert.Equal(t, 1, resp.Remaining)
	created, err := store.Balances().Get(ctx, "W2", "P2")
	require.NoError(t, err)
	require.NotNil(t, created, "se crean en orden de bodega y producto")
	assert.True(t, created.OnHand.Equal(decimal.Zero))
	missing, err := store.Balances().Get(ctx, "W2", "P3")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestSyncMissing_CreaConCeroYNoModificaExistentes(t *testing.T) {
	rc, store, _ := reconFixture(t, 0)
	ctx := userCtx()
	store.SetBalance(testWarehouse, testProduct, dec("42"))

	resp, err := rc.SyncMissingBalances(ctx, dto.SyncMissingBalancesRequest{})
	require.NoError(t, err)
	assert.Equal(t, inventory.DefaultMaxCreates, resp.MaxCreates)
	assert.Equal(t, 3, resp.ConsideredPairs)
	assert.Equal(t, 3, resp.SkippedExisting)
	assert.Zero(t, resp.Created)
	assert.True(t, onHand(t, store, testWarehouse, testProduct).Equal(dec("42")))

	resp, err = rc.SyncMissingBalances(ctx, dto.SyncMissingBalancesRequest{ProductID: strPtr("P3")})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.ConsideredPairs, "el filtro por producto limita los pares")
}
