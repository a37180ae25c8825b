package http

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/inventory-ledger/internal/application/dto"
	"github.com/jhoicas/inventory-ledger/internal/domain"
)

// errorResponse traduce un error de dominio a status HTTP + cuerpo.
// Los 5xx no exponen el detalle interno.
func errorResponse(err error) (int, dto.ErrorResponse) {
	var stockErr *domain.InsufficientStockError
	switch {
	case errors.As(err, &stockErr):
		return fiber.StatusConflict, dto.ErrorResponse{
			Code:    "INSUFFICIENT_STOCK",
			Message: "stock insuficiente",
			Details: dto.InsufficientStockDetails{
				WarehouseID: stockErr.WarehouseID,
				ProductID:   stockErr.ProductID,
				OnHand:      stockErr.OnHand.String(),
				Delta:       stockErr.Delta.String(),
			},
		}
	case errors.Is(err, domain.ErrValidation):
		return fiber.StatusBadRequest, dto.ErrorResponse{Code: "VALIDATION", Message: err.Error()}
	case errors.Is(err, domain.ErrNotFound):
		return fiber.StatusNotFound, dto.ErrorResponse{Code: "NOT_FOUND", Message: err.Error()}
	case errors.Is(err, domain.ErrInvalidState):
		return fiber.StatusConflict, dto.ErrorResponse{Code: "INVALID_STATE", Message: err.Error()}
	case errors.Is(err, domain.ErrIdempotencyInFlight):
		return fiber.StatusConflict, dto.ErrorResponse{Code: "IDEMPOTENCY_IN_FLIGHT", Message: "hay una solicitud en curso con la misma clave"}
	case errors.Is(err, domain.ErrDuplicateBlocked):
		return fiber.StatusConflict, dto.ErrorResponse{Code: "DUPLICATE_BLOCKED", Message: "solicitud duplicada bloqueada"}
	case errors.Is(err, domain.ErrUnauthorized):
		return fiber.StatusUnauthorized, dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "no autorizado"}
	case errors.Is(err, domain.ErrDataIntegrity):
		return fiber.StatusInternalServerError, dto.ErrorResponse{Code: "DATA_INTEGRITY", Message: "inconsistencia de datos detectada"}
	case errors.Is(err, domain.ErrTransientStore), errors.Is(err, domain.ErrConcurrentModification),
		errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return fiber.StatusServiceUnavailable, dto.ErrorResponse{Code: "TRANSIENT_STORE", Message: "almacenamiento no disponible, reintente"}
	default:
		return fiber.StatusInternalServerError, dto.ErrorResponse{Code: "INTERNAL", Message: "error interno"}
	}
}

// writeError responde con el error mapeado y registra los 5xx.
func writeError(c *fiber.Ctx, log zerolog.Logger, err error) error {
	status, body := errorResponse(err)
	if status >= fiber.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.Path()).Str("code", body.Code).Msg("error atendiendo la petición")
	}
	return c.Status(status).JSON(body)
}
