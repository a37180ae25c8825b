package http

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/inventory-ledger/internal/application/catalog"
	"github.com/jhoicas/inventory-ledger/internal/application/dto"
	"github.com/jhoicas/inventory-ledger/internal/application/idempotency"
	"github.com/jhoicas/inventory-ledger/internal/application/inventory"
	"github.com/jhoicas/inventory-ledger/pkg/jwt"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	MovementUC        *inventory.MovementUseCase
	ReconciliationUC  *inventory.ReconciliationUseCase
	CatalogUC         *catalog.CatalogUseCase
	Gateway           *idempotency.Gateway
	IdempotencyHeader string
	JWTSecret         string
	AuditFailures     bool
	// VoucherRenderer genera el comprobante PDF; nil deja la ruta sin registrar.
	VoucherRenderer inventory.VoucherRenderer
	// Health verifica el almacenamiento para /health; nil = siempre ok.
	Health func(ctx context.Context) error
	Log    zerolog.Logger
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	app.Get("/health", healthHandler(deps.Health))

	api := app.Group("/api")

	// Rutas protegidas (requieren Bearer Token)
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret), FailureAudit(deps.AuditFailures))
	readers := RequireRole(jwt.RoleAdmin, jwt.RoleBodeguero, jwt.RoleAuditor)
	writers := RequireRole(jwt.RoleAdmin, jwt.RoleBodeguero)
	admins := RequireRole(jwt.RoleAdmin)

	// Movimientos y saldos
	inv := protected.Group("/inventory")
	invHandler := NewInventoryHandler(deps.MovementUC, deps.Gateway, deps.IdempotencyHeader, deps.Log)
	inv.Post("/movements", writers, invHandler.CreateMovement)
	inv.Get("/movements/:id", readers, invHandler.GetMovement)
	inv.Patch("/movements/:id", writers, invHandler.UpdateMovementHeader)
	inv.Post("/movements/:id/lines", writers, invHandler.AddLine)
	inv.Put("/movements/:id/lines", writers, invHandler.ReplaceLines)
	inv.Post("/movements/:id/post", writers, invHandler.PostMovement)
	inv.Post("/movements/:id/cancel", writers, invHandler.CancelMovement)
	inv.Get("/balances/:warehouseId/:productId", readers, invHandler.GetBalance)
	if deps.VoucherRenderer != nil {
		voucher := NewVoucherHandler(deps.MovementUC, deps.VoucherRenderer, deps.Log)
		inv.Get("/movements/:id/voucher", readers, voucher.GetVoucher)
	}

	// Conciliación (solo admin)
	recHandler := NewReconciliationHandler(deps.ReconciliationUC, deps.Gateway, deps.IdempotencyHeader, deps.Log)
	inv.Post("/reconciliation/sync-missing", admins, recHandler.SyncMissing)
	inv.Post("/reconciliation/run", admins, recHandler.Run)

	// Catálogo
	cat := protected.Group("/catalog")
	catHandler := NewCatalogHandler(deps.CatalogUC, deps.Log)
	cat.Put("/warehouses/:id", admins, catHandler.UpsertWarehouse)
	cat.Get("/warehouses/:id", readers, catHandler.GetWarehouse)
	cat.Put("/products/:id", admins, catHandler.UpsertProduct)
	cat.Get("/products/:id", readers, catHandler.GetProduct)
}

func healthHandler(check func(ctx context.Context) error) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if check != nil {
			ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
			defer cancel()
			if err := check(ctx); err != nil {
				return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{Code: "UNHEALTHY", Message: "almacenamiento no disponible"})
			}
		}
		return c.JSON(fiber.Map{"status": "ok"})
	}
}
