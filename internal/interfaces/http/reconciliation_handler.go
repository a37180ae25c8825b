package http

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/inventory-ledger/internal/application/dto"
	"github.com/jhoicas/inventory-ledger/internal/application/idempotency"
	"github.com/jhoicas/inventory-ledger/internal/application/inventory"
)

const (
	EndpointSyncMissing = "reconciliation.sync_missing"
	EndpointReconcile   = "reconciliation.run"
)

// ReconciliationHandler expone la conciliación de saldos (solo admin).
type ReconciliationHandler struct {
	uc     *inventory.ReconciliationUseCase
	writes writeExecutor
}

// NewReconciliationHandler construye el handler.
func NewReconciliationHandler(uc *inventory.ReconciliationUseCase, gw *idempotency.Gateway, idemHeader string, log zerolog.Logger) *ReconciliationHandler {
	return &ReconciliationHandler{uc: uc, writes: writeExecutor{gw: gw, header: idemHeader, log: log}}
}

// SyncMissing godoc
// @Summary      Crear filas de saldo faltantes (on_hand 0)
// @Description  Solo agrega filas para pares con líneas posteadas; nunca modifica saldos existentes.
// @Tags         reconciliation
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body      dto.SyncMissingBalancesRequest  true  "filtros y max_creates"
// @Success      200   {object}  dto.SyncMissingBalancesResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Router       /api/inventory/reconciliation/sync-missing [post]
func (h *ReconciliationHandler) SyncMissing(c *fiber.Ctx) error {
	var in dto.SyncMissingBalancesRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&in); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
		}
	}
	return h.writes.run(c, EndpointSyncMissing, fiber.StatusOK, func(ctx context.Context) (any, error) {
		return h.uc.SyncMissingBalances(ctx, in)
	})
}

// Run godoc
// @Summary      Recalcular saldos desde las líneas posteadas
// @Description  safe_mode (por defecto true) solo crea filas faltantes; dry_run no escribe.
// @Tags         reconciliation
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body      dto.ReconcileRequest  true  "filtros, ventana, safe_mode, dry_run"
// @Success      200   {object}  dto.ReconcileResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Failure      500   {object}  dto.ErrorResponse  "DATA_INTEGRITY"
// @Router       /api/inventory/reconciliation/run [post]
func (h *ReconciliationHandler) Run(c *fiber.Ctx) error {
	var in dto.ReconcileRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&in); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
		}
	}
	return h.writes.run(c, EndpointReconcile, fiber.StatusOK, func(ctx context.Context) (any, error) {
		return h.uc.Run(ctx, in)
	})
}
