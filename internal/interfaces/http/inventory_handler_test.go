package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventory-ledger/internal/application/catalog"
	"github.com/jhoicas/inventory-ledger/internal/application/dto"
	"github.com/jhoicas/inventory-ledger/internal/application/idempotency"
	"github.com/jhoicas/inventory-ledger/internal/application/inventory"
	"github.com/jhoicas/inventory-ledger/internal/infrastructure/memory"
	"github.com/jhoicas/inventory-ledger/internal/infrastructure/pdf"
	apphttp "github.com/jhoicas/inventory-ledger/internal/interfaces/http"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

const idemHeader = "Idempotency-Key"

// buildLedgerApp arma el router completo sobre el store en memoria con bodega W y producto P.
func buildLedgerApp(t *testing.T) (*fiber.App, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	store.AddWarehouse("W", "W01", "Bodega principal")
	store.AddProduct("P", "SKU-P", "Producto P")

	log := zerolog.Nop()
	movements := inventory.NewMovementUseCase(store, store.Movements(), store.Balances(), store.Warehouses(), nil, log)
	recon := inventory.NewReconciliationUseCase(store, nil, log, 0)
	gw := idempotency.NewGateway(store.Idempotency(), nil, idempotency.Options{}, log)

	app := fiber.New()
	apphttp.Router(app, apphttp.RouterDeps{
		MovementUC:        movements,
		ReconciliationUC:  recon,
		CatalogUC:         catalog.NewCatalogUseCase(store, log),
		Gateway:           gw,
		IdempotencyHeader: idemHeader,
		JWTSecret:         testJWTSecret,
		VoucherRenderer:   pdf.NewMarotoVoucherRenderer(),
		Log:               log,
	})
	return app, store
}

type call struct {
	method string
	path   string
	body   any
	role   string
	key    string
}

func send(t *testing.T, app *fiber.App, c call) (*http.Response, []byte) {
	t.Helper()
	var rdr io.Reader
	if c.body != nil {
		raw, err := json.Marshal(c.body)
		require.NoError(t, err)
		rdr = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(c.method, c.path, rdr)
	req.Header.Set("Content-Type", "application/json")
	role := c.role
	if role == "" {
		role = "bodeguero"
	}
	req.Header.Set("Authorization", tokenForRole(t, role))
	if c.key != "" {
		req.Header.Set(idemHeader, c.key)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

// newMovement crea un borrador con una línea y devuelve su ID.
func newMovement(t *testing.T, app *fiber.App, kind, qty string) string {
	t.Helper()
	resp, body := send(t, app, call{method: http.MethodPost, path: "/api/inventory/movements",
		body: dto.CreateMovementRequest{WarehouseID: "W", Kind: kind, ReferenceNo: "REF-" + kind}})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var m dto.MovementResponse
	require.NoError(t, json.Unmarshal(body, &m))

	resp, body = send(t, app, call{method: http.MethodPost, path: "/api/inventory/movements/" + m.ID + "/lines",
		body: map[string]string{"product_id": "P", "quantity": qty}})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	return m.ID
}

func onHandOf(t *testing.T, app *fiber.App) string {
	t.Helper()
	resp, body := send(t, app, call{method: http.MethodGet, path: "/api/inventory/balances/W/P", role: "auditor"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var b dto.BalanceResponse
	require.NoError(t, json.Unmarshal(body, &b))
	return b.OnHand.String()
}

func errorCode(t *testing.T, body []byte) dto.ErrorResponse {
	t.Helper()
	var e dto.ErrorResponse
	require.NoError(t, json.Unmarshal(body, &e))
	return e
}

// ──────────────────────────────────────────────────────────────────────────────
// Ciclo de vida
// ──────────────────────────────────────────────────────────────────────────────

func TestMovimientos_CicloCompleto(t *testing.T) {
	app, _ := buildLedgerApp(t)

	id := newMovement(t, app, "in", "10")
	resp, body := send(t, app, call{method: http.MethodPost, path: "/api/inventory/movements/" + id + "/post"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var m dto.MovementResponse
	require.NoError(t, json.Unmarshal(body, &m))
	assert.Equal(t, "Posted", m.Status)
	assert.Equal(t, testUserID, m.PostedBy, "posted_by es el usuario del token")
	assert.Equal(t, "10", onHandOf(t, app))

	resp, body = send(t, app, call{method: http.MethodGet, path: "/api/inventory/movements/" + id, role: "auditor"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &m))
	require.Len(t, m.Lines, 1)

	resp, body = send(t, app, call{method: http.MethodPost, path: "/api/inventory/movements/" + id + "/cancel"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Equal(t, "0", onHandOf(t, app), "anular revierte el posteo")

	resp, body = send(t, app, call{method: http.MethodPost, path: "/api/inventory/movements/" + id + "/cancel"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "INVALID_STATE", errorCode(t, body).Code)
}

func TestMovimientos_ComprobantePDF(t *testing.T) {
	app, _ := buildLedgerApp(t)
	id := newMovement(t, app, "IN", "7")

	resp, body := send(t, app, call{method: http.MethodGet, path: "/api/inventory/movements/" + id + "/voucher", role: "auditor"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(body, []byte("%PDF")))

	resp, _ = send(t, app, call{method: http.MethodGet, path: "/api/inventory/movements/no-existe/voucher", role: "auditor"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestMovimientos_StockInsuficienteConDetalle(t *testing.T) {
	app, _ := buildLedgerApp(t)
	id := newMovement(t, app, "OUT", "3")

	resp, body := send(t, app, call{method: http.MethodPost, path: "/api/inventory/movements/" + id + "/post"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	var e struct {
		Code    string                       `json:"code"`
		Details dto.InsufficientStockDetails `json:"details"`
	}
	require.NoError(t, json.Unmarshal(body, &e))
	assert.Equal(t, "INSUFFICIENT_STOCK", e.Code)
	assert.Equal(t, "P", e.Details.ProductID)
	assert.Equal(t, "0", e.Details.OnHand)
	assert.Equal(t, "-3", e.Details.Delta)
}

func TestMovimientos_ErroresDeEntrada(t *testing.T) {
	app, _ := buildLedgerApp(t)

	resp, body := send(t, app, call{method: http.MethodPost, path: "/api/inventory/movements",
		body: dto.CreateMovementRequest{WarehouseID: "W", Kind: "TRANSFER", ReferenceNo: "R"}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION", errorCode(t, body).Code)

	resp, body = send(t, app, call{method: http.MethodPost, path: "/api/inventory/movements",
		body: dto.CreateMovementRequest{WarehouseID: "NO", Kind: "IN", ReferenceNo: "R"}})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NOT_FOUND", errorCode(t, body).Code)

	resp, _ = send(t, app, call{method: http.MethodGet, path: "/api/inventory/movements/no-existe", role: "auditor"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = send(t, app, call{method: http.MethodGet, path: "/api/inventory/balances/W/P", role: "auditor"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode, "sin posteos no hay fila de saldo")
}

func TestMovimientos_AuditorNoEscribe(t *testing.T) {
	app, _ := buildLedgerApp(t)
	resp, _ := send(t, app, call{method: http.MethodPost, path: "/api/inventory/movements", role: "auditor",
		body: dto.CreateMovementRequest{WarehouseID: "W", Kind: "IN", ReferenceNo: "R"}})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

// ──────────────────────────────────────────────────────────────────────────────
// Idempotencia
// ──────────────────────────────────────────────────────────────────────────────

func TestIdempotencia_PosteoRepetidoNoAplicaDosVeces(t *testing.T) {
	app, _ := buildLedgerApp(t)
	id := newMovement(t, app, "IN", "10")
	post := call{method: http.MethodPost, path: "/api/inventory/movements/" + id + "/post", key: "k-post-1"}

	first, firstBody := send(t, app, post)
	require.Equal(t, http.StatusOK, first.StatusCode)
	assert.Empty(t, first.Header.Get(apphttp.HeaderReplayed))

	second, secondBody := send(t, app, post)
	assert.Equal(t, http.StatusOK, second.StatusCode, "la repetición devuelve el status original")
	assert.Equal(t, "true", second.Header.Get(apphttp.HeaderReplayed))
	assert.Equal(t, firstBody, secondBody, "la repetición es idéntica byte a byte")
	assert.Equal(t, "10", onHandOf(t, app), "el saldo se aplica una sola vez")

	// Sin clave, el segundo posteo choca con el estado.
	resp, _ := send(t, app, call{method: http.MethodPost, path: "/api/inventory/movements/" + id + "/post"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestIdempotencia_FalloTambienSeRepite(t *testing.T) {
	app, _ := buildLedgerApp(t)
	id := newMovement(t, app, "OUT", "5")
	post := call{method: http.MethodPost, path: "/api/inventory/movements/" + id + "/post", key: "k-out"}

	first, firstBody := send(t, app, post)
	require.Equal(t, http.StatusConflict, first.StatusCode)

	second, secondBody := send(t, app, post)
	assert.Equal(t, http.StatusConflict, second.StatusCode)
	assert.Equal(t, "true", second.Header.Get(apphttp.HeaderReplayed))
	assert.Equal(t, firstBody, secondBody)
}

func TestIdempotencia_ClavePorLlamador(t *testing.T) {
	app, _ := buildLedgerApp(t)
	body := dto.CreateMovementRequest{WarehouseID: "W", Kind: "IN", ReferenceNo: "R-1"}

	resp, a := send(t, app, call{method: http.MethodPost, path: "/api/inventory/movements", body: body, key: "same"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp, b := send(t, app, call{method: http.MethodPost, path: "/api/inventory/movements", body: body, key: "same", role: "admin"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "true", resp.Header.Get(apphttp.HeaderReplayed), "mismo usuario, misma clave: se repite aunque cambie el rol")
	assert.Equal(t, a, b)
}

// ──────────────────────────────────────────────────────────────────────────────
// Conciliación y catálogo
// ──────────────────────────────────────────────────────────────────────────────

func TestConciliacion_SoloAdmin(t *testing.T) {
	app, store := buildLedgerApp(t)
	id := newMovement(t, app, "IN", "4")
	resp, _ := send(t, app, call{method: http.MethodPost, path: "/api/inventory/movements/" + id + "/post"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	store.RemoveBalance("W", "P")

	resp, _ = send(t, app, call{method: http.MethodPost, path: "/api/inventory/reconciliation/run", body: dto.ReconcileRequest{DryRun: true}})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, body := send(t, app, call{method: http.MethodPost, path: "/api/inventory/reconciliation/run", role: "admin",
		body: dto.ReconcileRequest{DryRun: true}})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var out dto.ReconcileResponse
	require.NoError(t, json.Unmarshal(body, &out))
	assert.True(t, out.SafeMode, "safe_mode por defecto")
	assert.Equal(t, 1, out.MissingCreated)
	require.Len(t, out.Diffs, 1)
	assert.Equal(t, "4", out.Diffs[0].ComputedOnHand.String())

	resp, body = send(t, app, call{method: http.MethodPost, path: "/api/inventory/reconciliation/sync-missing", role: "admin"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var sync dto.SyncMissingBalancesResponse
	require.NoError(t, json.Unmarshal(body, &sync))
	assert.Equal(t, 1, sync.Created)
	assert.Equal(t, "0", onHandOf(t, app), "sync-missing crea la fila en cero")
}

func TestCatalogo_UpsertYLectura(t *testing.T) {
	app, _ := buildLedgerApp(t)

	resp, body := send(t, app, call{method: http.MethodPut, path: "/api/catalog/products/P9", role: "admin",
		body: dto.UpsertProductRequest{SKU: "SKU-9", Name: "Tuerca"}})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	resp, _ = send(t, app, call{method: http.MethodPut, path: "/api/catalog/products/P9",
		body: dto.UpsertProductRequest{SKU: "SKU-9", Name: "Tuerca"}})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode, "bodeguero no modifica el catálogo")

	resp, body = send(t, app, call{method: http.MethodGet, path: "/api/catalog/products/P9", role: "auditor"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var p dto.ProductResponse
	require.NoError(t, json.Unmarshal(body, &p))
	assert.Equal(t, "UND", p.UnitMeasure)
}

func TestHealth(t *testing.T) {
	app := fiber.New()
	apphttp.Router(app, apphttp.RouterDeps{JWTSecret: testJWTSecret, Log: zerolog.Nop(),
		Health: func(_ context.Context) error { return errors.New("db caída") }})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}
