package http

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/inventory-ledger/internal/application/dto"
	"github.com/jhoicas/inventory-ledger/internal/application/idempotency"
	"github.com/jhoicas/inventory-ledger/internal/application/inventory"
)

// Identificadores de endpoint para el ledger de idempotencia.
const (
	EndpointCreateMovement = "movements.create"
	EndpointUpdateHeader   = "movements.update_header"
	EndpointAddLine        = "movements.add_line"
	EndpointReplaceLines   = "movements.replace_lines"
	EndpointPost           = "movements.post"
	EndpointCancel         = "movements.cancel"
)

// InventoryHandler maneja las peticiones HTTP de movimientos y saldos (protegido).
type InventoryHandler struct {
	uc     *inventory.MovementUseCase
	writes writeExecutor
	log    zerolog.Logger
}

// NewInventoryHandler construye el handler. idemHeader es el header de la clave de idempotencia.
func NewInventoryHandler(uc *inventory.MovementUseCase, gw *idempotency.Gateway, idemHeader string, log zerolog.Logger) *InventoryHandler {
	return &InventoryHandler{
		uc:     uc,
		writes: writeExecutor{gw: gw, header: idemHeader, log: log},
		log:    log,
	}
}

// CreateMovement godoc
// @Summary      Crear movimiento en borrador
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key  header  string                     false  "clave de idempotencia"
// @Param        body             body    dto.CreateMovementRequest  true   "warehouse_id, kind (IN/OUT/ADJUSTMENT), reference_no"
// @Success      201  {object}  dto.MovementResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/inventory/movements [post]
func (h *InventoryHandler) CreateMovement(c *fiber.Ctx) error {
	var in dto.CreateMovementRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	return h.writes.run(c, EndpointCreateMovement, fiber.StatusCreated, func(ctx context.Context) (any, error) {
		return h.uc.CreateDraft(ctx, in)
	})
}

// GetMovement godoc
// @Summary      Obtener movimiento con sus líneas activas
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        id   path      string  true  "ID del movimiento"
// @Success      200  {object}  dto.MovementResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/inventory/movements/{id} [get]
func (h *InventoryHandler) GetMovement(c *fiber.Ctx) error {
	resp, err := h.uc.GetMovement(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(resp)
}

// UpdateMovementHeader godoc
// @Summary      Editar referencia/notas de un borrador
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                           true  "ID del movimiento"
// @Param        body  body  dto.UpdateMovementHeaderRequest  true  "reference_no, notes"
// @Success      200  {object}  dto.MovementResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/inventory/movements/{id} [patch]
func (h *InventoryHandler) UpdateMovementHeader(c *fiber.Ctx) error {
	var in dto.UpdateMovementHeaderRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	id := c.Params("id")
	return h.writes.run(c, EndpointUpdateHeader, fiber.StatusOK, func(ctx context.Context) (any, error) {
		return h.uc.UpdateDraftHeader(ctx, id, in)
	})
}

// AddLine godoc
// @Summary      Agregar línea a un borrador
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                   true  "ID del movimiento"
// @Param        body  body  dto.MovementLineRequest  true  "product_id, quantity > 0"
// @Success      201  {object}  dto.MovementResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/inventory/movements/{id}/lines [post]
func (h *InventoryHandler) AddLine(c *fiber.Ctx) error {
	var in dto.MovementLineRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	id := c.Params("id")
	return h.writes.run(c, EndpointAddLine, fiber.StatusCreated, func(ctx context.Context) (any, error) {
		return h.uc.AddLine(ctx, id, in)
	})
}

// ReplaceLines godoc
// @Summary      Reemplazar todas las líneas de un borrador
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                           true  "ID del movimiento"
// @Param        body  body  dto.ReplaceMovementLinesRequest  true  "lines"
// @Success      200  {object}  dto.MovementResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/inventory/movements/{id}/lines [put]
func (h *InventoryHandler) ReplaceLines(c *fiber.Ctx) error {
	var in dto.ReplaceMovementLinesRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	id := c.Params("id")
	return h.writes.run(c, EndpointReplaceLines, fiber.StatusOK, func(ctx context.Context) (any, error) {
		return h.uc.ReplaceLines(ctx, id, in)
	})
}

// PostMovement godoc
// @Summary      Postear movimiento (aplica deltas a los saldos)
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        id   path      string  true  "ID del movimiento"
// @Success      200  {object}  dto.MovementResponse
// @Failure      409  {object}  dto.ErrorResponse  "INVALID_STATE o INSUFFICIENT_STOCK"
// @Router       /api/inventory/movements/{id}/post [post]
func (h *InventoryHandler) PostMovement(c *fiber.Ctx) error {
	id := c.Params("id")
	return h.writes.run(c, EndpointPost, fiber.StatusOK, func(ctx context.Context) (any, error) {
		return h.uc.Post(ctx, id)
	})
}

// CancelMovement godoc
// @Summary      Anular movimiento posteado (revierte los deltas)
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        id   path      string  true  "ID del movimiento"
// @Success      200  {object}  dto.MovementResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Failure      500  {object}  dto.ErrorResponse  "DATA_INTEGRITY"
// @Router       /api/inventory/movements/{id}/cancel [post]
func (h *InventoryHandler) CancelMovement(c *fiber.Ctx) error {
	id := c.Params("id")
	return h.writes.run(c, EndpointCancel, fiber.StatusOK, func(ctx context.Context) (any, error) {
		return h.uc.Cancel(ctx, id)
	})
}

// GetBalance godoc
// @Summary      Saldo de un producto en una bodega
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        warehouseId  path  string  true  "ID de la bodega"
// @Param        productId    path  string  true  "ID del producto"
// @Success      200  {object}  dto.BalanceResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/inventory/balances/{warehouseId}/{productId} [get]
func (h *InventoryHandler) GetBalance(c *fiber.Ctx) error {
	resp, err := h.uc.GetBalance(c.UserContext(), c.Params("warehouseId"), c.Params("productId"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(resp)
}
