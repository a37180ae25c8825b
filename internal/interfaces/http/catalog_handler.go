package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/inventory-ledger/internal/application/catalog"
	"github.com/jhoicas/inventory-ledger/internal/application/dto"
)

// CatalogHandler maneja bodegas y productos (protegido).
type CatalogHandler struct {
	uc  *catalog.CatalogUseCase
	log zerolog.Logger
}

// NewCatalogHandler construye el handler.
func NewCatalogHandler(uc *catalog.CatalogUseCase, log zerolog.Logger) *CatalogHandler {
	return &CatalogHandler{uc: uc, log: log}
}

// UpsertWarehouse godoc
// @Summary      Crear o actualizar bodega
// @Tags         catalog
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                      true  "ID de la bodega"
// @Param        body  body  dto.UpsertWarehouseRequest  true  "code, name, address, active"
// @Success      200   {object}  dto.WarehouseResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/catalog/warehouses/{id} [put]
func (h *CatalogHandler) UpsertWarehouse(c *fiber.Ctx) error {
	var in dto.UpsertWarehouseRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	out, err := h.uc.UpsertWarehouse(c.UserContext(), c.Params("id"), in)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(out)
}

// GetWarehouse godoc
// @Summary      Obtener bodega por ID
// @Tags         catalog
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la bodega"
// @Success      200  {object}  dto.WarehouseResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/catalog/warehouses/{id} [get]
func (h *CatalogHandler) GetWarehouse(c *fiber.Ctx) error {
	out, err := h.uc.GetWarehouse(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(out)
}

// UpsertProduct godoc
// @Summary      Crear o actualizar producto
// @Tags         catalog
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                    true  "ID del producto"
// @Param        body  body  dto.UpsertProductRequest  true  "sku, name, unit_measure, active"
// @Success      200   {object}  dto.ProductResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/catalog/products/{id} [put]
func (h *CatalogHandler) UpsertProduct(c *fiber.Ctx) error {
	var in dto.UpsertProductRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	out, err := h.uc.UpsertProduct(c.UserContext(), c.Params("id"), in)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(out)
}

// GetProduct godoc
// @Summary      Obtener producto por ID
// @Tags         catalog
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del producto"
// @Success      200  {object}  dto.ProductResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/catalog/products/{id} [get]
func (h *CatalogHandler) GetProduct(c *fiber.Ctx) error {
	out, err := h.uc.GetProduct(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(out)
}
