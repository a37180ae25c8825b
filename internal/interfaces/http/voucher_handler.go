package http

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/inventory-ledger/internal/application/inventory"
)

// VoucherHandler sirve el comprobante PDF de un movimiento (protegido).
type VoucherHandler struct {
	uc       *inventory.MovementUseCase
	renderer inventory.VoucherRenderer
	log      zerolog.Logger
}

// NewVoucherHandler construye el handler.
func NewVoucherHandler(uc *inventory.MovementUseCase, renderer inventory.VoucherRenderer, log zerolog.Logger) *VoucherHandler {
	return &VoucherHandler{uc: uc, renderer: renderer, log: log}
}

// GetVoucher godoc
// @Summary      Comprobante PDF del movimiento
// @Tags         inventory
// @Security     Bearer
// @Produce      application/pdf
// @Param        id   path  string  true  "ID del movimiento"
// @Success      200  {file}    binary
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/inventory/movements/{id}/voucher [get]
func (h *VoucherHandler) GetVoucher(c *fiber.Ctx) error {
	v, err := h.uc.Voucher(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	doc, err := h.renderer.RenderMovementVoucher(c.UserContext(), v)
	if err != nil {
		return writeError(c, h.log, err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`inline; filename="movimiento-%s.pdf"`, v.Movement.ID))
	return c.Send(doc)
}
