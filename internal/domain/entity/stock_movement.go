package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tipos de movimiento de stock.
const (
	MovementKindENTRY       = "ENTRY"       // entrada por compra
	MovementKindCONSUMPTION = "CONSUMPTION" // salida por consumo (alimentación, tratamiento)
	MovementKindADJUSTMENT  = "ADJUSTMENT"  // ajuste administrativo
)

// StockMovement representa un movimiento del libro de stock (solo inserción, inmutable).
// Quantity es siempre positiva; el sentido lo da Kind. Date puede ser una fecha histórica
// cuando el movimiento proviene de un evento operativo pasado (backfill); CreatedAt es
// siempre el instante de procesamiento.
type StockMovement struct {
	ID           string
	ProductID    string
	Kind         string
	Quantity     decimal.Decimal
	StockBefore  decimal.Decimal // saldo consolidado antes del movimiento
	StockAfter   decimal.Decimal // saldo consolidado después del movimiento
	RelatedLotID string          // lote operativo (corral/grupo de animales) en consumos
	UserID       string
	Notes        string
	Date         time.Time
	CreatedAt    time.Time
}

// ConsumptionDetail registra cuánto se extrajo de cada lote de compra dentro de un
// movimiento CONSUMPTION (necesario para reconstruir la asignación FEFO en auditoría).
type ConsumptionDetail struct {
	ID           string
	MovementID   string
	BatchID      string
	BaseUnits    decimal.Decimal
	ControlUnits decimal.Decimal
	CreatedAt    time.Time
}
