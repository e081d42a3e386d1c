package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/agrovida/agrostock-api/internal/application/dto"
	"github.com/agrovida/agrostock-api/internal/application/stock"
)

// BatchHandler maneja la administración de lotes de compra (protegido).
type BatchHandler struct {
	admin *stock.BatchAdminUseCase
}

// NewBatchHandler construye el handler.
func NewBatchHandler(admin *stock.BatchAdminUseCase) *BatchHandler {
	return &BatchHandler{admin: admin}
}

// ListByProduct lista los lotes activos de un producto en orden FEFO.
func (h *BatchHandler) ListByProduct(c *fiber.Ctx) error {
	batches, err := h.admin.ListActiveByProduct(c.Context(), c.Params("productId"))
	if err != nil {
		return mapDomainError(c, err)
	}
	return c.JSON(batches)
}

// ListExpiring lista lotes vencidos o por vencer. Query: product_id, days, include_expired.
func (h *BatchHandler) ListExpiring(c *fiber.Ctx) error {
	days := c.QueryInt("days", 30)
	includeExpired := c.QueryBool("include_expired", true)
	alerts, err := h.admin.ListExpiring(c.Context(), c.Query("product_id"), days, includeExpired)
	if err != nil {
		return mapDomainError(c, err)
	}
	return c.JSON(alerts)
}

// Adjust edita metadatos de un lote; si cambia el contenido concilia el consolidado.
func (h *BatchHandler) Adjust(c *fiber.Ctx) error {
	userID := GetUserID(c)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	var in dto.AdjustBatchRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	batch, err := h.admin.AdjustMetadata(c.Context(), userID, c.Params("id"), in)
	if err != nil {
		return mapDomainError(c, err)
	}
	return c.JSON(batch)
}

// SoftDelete desactiva un lote sin tocar cantidades ni consolidado.
func (h *BatchHandler) SoftDelete(c *fiber.Ctx) error {
	userID := GetUserID(c)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	reason := c.Query("reason")
	if err := h.admin.SoftDelete(c.Context(), c.Params("id"), reason); err != nil {
		return mapDomainError(c, err)
	}
	return c.JSON(fiber.Map{"message": "lote desactivado"})
}
