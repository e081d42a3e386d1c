package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// RecordEntryRequest body para POST /api/stock/entries (recepción de compra).
type RecordEntryRequest struct {
	ProductID            string           `json:"product_id"`
	LotCode              string           `json:"lot_code,omitempty"`
	ControlUnit          string           `json:"control_unit,omitempty"` // vacío = unidad por defecto del producto
	BaseUnitContent      decimal.Decimal  `json:"base_unit_content"`
	ControlUnitsReceived decimal.Decimal  `json:"control_units_received"`
	ExpirationDate       *time.Time       `json:"expiration_date,omitempty"`
	ProviderID           string           `json:"provider_id,omitempty"`
	UnitCostControl      *decimal.Decimal `json:"unit_cost_control,omitempty"`
	Notes                string           `json:"notes,omitempty"`
	Date                 *time.Time       `json:"date,omitempty"` // fecha histórica para backfill
}

// EntryResultDTO respuesta de una entrada registrada.
type EntryResultDTO struct {
	BatchID           string          `json:"batch_id"`
	MovementID        string          `json:"movement_id"`
	BaseUnitsReceived decimal.Decimal `json:"base_units_received"`
	StockAfter        decimal.Decimal `json:"stock_after"`
}

// ConsumeRequest body para POST /api/stock/consumptions (producto único).
type ConsumeRequest struct {
	ProductID    string          `json:"product_id"`
	Quantity     decimal.Decimal `json:"quantity"` // unidades base
	RelatedLotID string          `json:"related_lot_id,omitempty"`
	Notes        string          `json:"notes,omitempty"`
	Date         *time.Time      `json:"date,omitempty"`
}

// ConsumeByTypeRequest body para POST /api/stock/consumptions cuando se consume
// por tipo de producto (ej. "cualquier concentrado de engorde").
type ConsumeByTypeRequest struct {
	TypeID              string          `json:"type_id"`
	Quantity            decimal.Decimal `json:"quantity"`
	RelatedLotID        string          `json:"related_lot_id,omitempty"`
	Notes               string          `json:"notes,omitempty"`
	OnlyStockControlled bool            `json:"only_stock_controlled,omitempty"`
	Date                *time.Time      `json:"date,omitempty"`
}

// AllocationDetailDTO extracción aplicada sobre un lote concreto, en orden FEFO.
type AllocationDetailDTO struct {
	BatchID   string          `json:"batch_id"`
	LotCode   string          `json:"lot_code,omitempty"`
	ProductID string          `json:"product_id"`
	BaseUnits decimal.Decimal `json:"base_units"`
	Remaining decimal.Decimal `json:"remaining"` // restante del lote tras la extracción
}

// AllocationResultDTO resultado de un consumo FEFO. El cumplimiento parcial no es error:
// Pending > 0 informa el faltante; BlockedByExpiration indica existencias todas vencidas.
type AllocationResultDTO struct {
	Requested           decimal.Decimal       `json:"requested"`
	Consumed            decimal.Decimal       `json:"consumed"`
	Pending             decimal.Decimal       `json:"pending"`
	BlockedByExpiration bool                  `json:"blocked_by_expiration"`
	Details             []AllocationDetailDTO `json:"details"`
	MovementIDs         []string              `json:"movement_ids"`
}

// BatchDTO proyección de un lote de compra para respuestas HTTP.
type BatchDTO struct {
	ID                    string           `json:"id"`
	ProductID             string           `json:"product_id"`
	LotCode               string           `json:"lot_code,omitempty"`
	ControlUnit           string           `json:"control_unit"`
	BaseUnitContent       decimal.Decimal  `json:"base_unit_content"`
	ControlUnitsReceived  decimal.Decimal  `json:"control_units_received"`
	BaseUnitsReceived     decimal.Decimal  `json:"base_units_received"`
	ControlUnitsRemaining decimal.Decimal  `json:"control_units_remaining"`
	BaseUnitsRemaining    decimal.Decimal  `json:"base_units_remaining"`
	ExpirationDate        *time.Time       `json:"expiration_date,omitempty"`
	ReceivedAt            time.Time        `json:"received_at"`
	UnitCostBase          *decimal.Decimal `json:"unit_cost_base,omitempty"`
	Active                bool             `json:"active"`
}

// AdjustBatchRequest body para PATCH /api/batches/:id (solo metadatos; si cambia el
// contenido se recalculan restantes y se concilia el consolidado).
type AdjustBatchRequest struct {
	LotCode              *string          `json:"lot_code,omitempty"`
	ExpirationDate       *time.Time       `json:"expiration_date,omitempty"`
	ClearExpiration      bool             `json:"clear_expiration,omitempty"`
	UnitCostControl      *decimal.Decimal `json:"unit_cost_control,omitempty"`
	BaseUnitContent      *decimal.Decimal `json:"base_unit_content,omitempty"`
	ControlUnitsReceived *decimal.Decimal `json:"control_units_received,omitempty"`
	Notes                string           `json:"notes,omitempty"`
}

// MovementDTO proyección de un movimiento del libro de stock.
type MovementDTO struct {
	ID           string          `json:"id"`
	ProductID    string          `json:"product_id"`
	Kind         string          `json:"kind"`
	Quantity     decimal.Decimal `json:"quantity"`
	StockBefore  decimal.Decimal `json:"stock_before"`
	StockAfter   decimal.Decimal `json:"stock_after"`
	RelatedLotID string          `json:"related_lot_id,omitempty"`
	UserID       string          `json:"user_id,omitempty"`
	Notes        string          `json:"notes,omitempty"`
	Date         time.Time       `json:"date"`
}

// LowStockAlertDTO producto con saldo consolidado bajo su umbral mínimo.
type LowStockAlertDTO struct {
	ProductID        string          `json:"product_id"`
	QuantityOnHand   decimal.Decimal `json:"quantity_on_hand"`
	MinimumThreshold decimal.Decimal `json:"minimum_threshold"`
	BaseUnit         string          `json:"base_unit,omitempty"`
}

// ExpiryAlertDTO lote próximo a vencer (o ya vencido con restante > 0).
type ExpiryAlertDTO struct {
	BatchID            string          `json:"batch_id"`
	ProductID          string          `json:"product_id"`
	LotCode            string          `json:"lot_code,omitempty"`
	BaseUnitsRemaining decimal.Decimal `json:"base_units_remaining"`
	ExpirationDate     time.Time       `json:"expiration_date"`
	Expired            bool            `json:"expired"`
}

// BackfillReportDTO resultado de la conciliación consolidado vs lotes de un producto.
type BackfillReportDTO struct {
	ProductID      string          `json:"product_id"`
	Consolidated   decimal.Decimal `json:"consolidated"`
	BatchSum       decimal.Decimal `json:"batch_sum"`
	Difference     decimal.Decimal `json:"difference"`
	SyntheticBatch string          `json:"synthetic_batch_id,omitempty"` // vacío si no hubo desvío
}
