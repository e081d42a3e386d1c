package http

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/agrovida/agrostock-api/internal/application/dto"
	"github.com/agrovida/agrostock-api/internal/application/stock"
)

// StockHandler maneja las peticiones HTTP del motor de stock (protegido).
type StockHandler struct {
	allocator      *stock.AllocatorUseCase
	reporting      *stock.ReportingUseCase
	reconciliation *stock.ReconciliationUseCase
}

// NewStockHandler construye el handler.
func NewStockHandler(
	allocator *stock.AllocatorUseCase,
	reporting *stock.ReportingUseCase,
	reconciliation *stock.ReconciliationUseCase,
) *StockHandler {
	return &StockHandler{allocator: allocator, reporting: reporting, reconciliation: reconciliation}
}

// RecordEntry registra una recepción de compra (lote + consolidado + movimiento ENTRY).
func (h *StockHandler) RecordEntry(c *fiber.Ctx) error {
	userID := GetUserID(c)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	var in dto.RecordEntryRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	result, err := h.allocator.RecordEntry(c.Context(), userID, in)
	if err != nil {
		return mapDomainError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(result)
}

// Consume registra un consumo FEFO de un producto. La respuesta informa consumo parcial
// o bloqueo por vencimiento; ninguno de los dos es un estado de error HTTP.
func (h *StockHandler) Consume(c *fiber.Ctx) error {
	userID := GetUserID(c)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	var in dto.ConsumeRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	result, err := h.allocator.ConsumeByProduct(c.Context(), userID, in)
	if err != nil {
		return mapDomainError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(result)
}

// ConsumeByType registra un consumo FEFO sobre todos los productos de un tipo.
func (h *StockHandler) ConsumeByType(c *fiber.Ctx) error {
	userID := GetUserID(c)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	var in dto.ConsumeByTypeRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	result, err := h.allocator.ConsumeByType(c.Context(), userID, in)
	if err != nil {
		return mapDomainError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(result)
}

// CurrentStock devuelve el saldo consolidado de un producto.
func (h *StockHandler) CurrentStock(c *fiber.Ctx) error {
	productID := c.Params("productId")
	qty, err := h.reporting.CurrentStock(c.Context(), productID)
	if err != nil {
		return mapDomainError(c, err)
	}
	return c.JSON(fiber.Map{"product_id": productID, "quantity_on_hand": qty})
}

// Movements lista los movimientos de un producto con filtros de fecha y paginación.
func (h *StockHandler) Movements(c *fiber.Ctx) error {
	productID := c.Params("productId")
	from, err := parseDateQuery(c, "from")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "from inválido (RFC 3339)"})
	}
	to, err := parseDateQuery(c, "to")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "to inválido (RFC 3339)"})
	}
	var page dto.PageRequest
	if err := c.QueryParser(&page); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "paginación inválida"})
	}
	movements, err := h.reporting.MovementsByProduct(c.Context(), productID, from, to, page)
	if err != nil {
		return mapDomainError(c, err)
	}
	return c.JSON(movements)
}

// MovementsByLot lista los consumos asociados a un lote operativo (corral/grupo).
func (h *StockHandler) MovementsByLot(c *fiber.Ctx) error {
	movements, err := h.reporting.MovementsByLot(c.Context(), c.Params("lotId"))
	if err != nil {
		return mapDomainError(c, err)
	}
	return c.JSON(movements)
}

// LowStockAlerts devuelve los productos bajo su umbral mínimo.
func (h *StockHandler) LowStockAlerts(c *fiber.Ctx) error {
	alerts, err := h.reporting.LowStockAlerts(c.Context())
	if err != nil {
		return mapDomainError(c, err)
	}
	return c.JSON(alerts)
}

// Backfill concilia consolidado vs lotes, sintetizando lotes de recuperación.
func (h *StockHandler) Backfill(c *fiber.Ctx) error {
	userID := GetUserID(c)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	productID := c.Query("product_id")
	onlyStockControlled := c.QueryBool("only_stock_controlled", false)
	reports, err := h.reconciliation.BackfillMissingBatches(c.Context(), productID, onlyStockControlled)
	if err != nil {
		return mapDomainError(c, err)
	}
	return c.JSON(reports)
}

// SyncLegacy migra el saldo "a mano" heredado de un producto al consolidado.
func (h *StockHandler) SyncLegacy(c *fiber.Ctx) error {
	userID := GetUserID(c)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	result, err := h.reconciliation.SyncFromExternalQuantity(c.Context(), userID, c.Params("productId"))
	if err != nil {
		return mapDomainError(c, err)
	}
	if result == nil {
		return c.JSON(fiber.Map{"message": "nada que migrar"})
	}
	return c.Status(fiber.StatusCreated).JSON(result)
}

// parseDateQuery interpreta un query param como RFC 3339 o fecha simple (2006-01-02).
func parseDateQuery(c *fiber.Ctx, name string) (*time.Time, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
