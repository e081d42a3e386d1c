package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/agrovida/agrostock-api/internal/application/stock"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Allocator      *stock.AllocatorUseCase
	BatchAdmin     *stock.BatchAdminUseCase
	Reporting      *stock.ReportingUseCase
	Reconciliation *stock.ReconciliationUseCase
	JWTSecret      string
}

// Router registra las rutas de la API. Todas las rutas de stock requieren Bearer Token.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))

	stockHandler := NewStockHandler(deps.Allocator, deps.Reporting, deps.Reconciliation)
	batchHandler := NewBatchHandler(deps.BatchAdmin)

	// Movimientos de stock (entradas y consumos FEFO).
	// Las entradas las registran admin y capataz; los consumos cualquier rol operativo.
	stockGroup := protected.Group("/stock")
	stockGroup.Post("/entries", RequireRole(RoleAdmin, RoleCapataz), stockHandler.RecordEntry)
	stockGroup.Post("/consumptions", RequireRole(RoleAdmin, RoleCapataz, RoleOperario), stockHandler.Consume)
	stockGroup.Post("/consumptions/by-type", RequireRole(RoleAdmin, RoleCapataz, RoleOperario), stockHandler.ConsumeByType)
	stockGroup.Get("/alerts/low", stockHandler.LowStockAlerts)
	stockGroup.Get("/lots/:lotId/movements", stockHandler.MovementsByLot)
	stockGroup.Get("/:productId", stockHandler.CurrentStock)
	stockGroup.Get("/:productId/movements", stockHandler.Movements)
	stockGroup.Get("/:productId/batches", batchHandler.ListByProduct)

	// Conciliación (backfill de lotes y migración de saldos heredados): solo admin.
	reconGroup := protected.Group("/reconciliation", RequireRole(RoleAdmin))
	reconGroup.Post("/backfill", stockHandler.Backfill)
	reconGroup.Post("/legacy-sync/:productId", stockHandler.SyncLegacy)

	// Administración de lotes de compra
	batches := protected.Group("/batches")
	batches.Get("/expiring", batchHandler.ListExpiring)
	batches.Patch("/:id", RequireRole(RoleAdmin, RoleCapataz), batchHandler.Adjust)
	batches.Delete("/:id", RequireRole(RoleAdmin, RoleCapataz), batchHandler.SoftDelete)
}
