package entity

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/agrovida/agrostock-api/internal/domain"
)

// Batch representa un lote de compra de un producto: una recepción con su propia
// cantidad restante, factor de conversión a unidad base y vencimiento opcional.
// Las cantidades restantes solo decrecen; al llegar a cero el lote se desactiva.
type Batch struct {
	ID        string
	ProductID string
	LotCode   string // código del lote del proveedor; los lotes sintéticos de conciliación usan un marcador

	ControlUnit           string          // unidad de compra (ej. "bulto", "frasco")
	BaseUnitContent       decimal.Decimal // unidades base contenidas en una unidad de control; > 0
	ControlUnitsReceived  decimal.Decimal // > 0
	BaseUnitsReceived     decimal.Decimal // BaseUnitContent × ControlUnitsReceived, fijo desde la creación
	ControlUnitsRemaining decimal.Decimal
	BaseUnitsRemaining    decimal.Decimal

	ExpirationDate *time.Time // nil = no vence
	ReceivedAt     time.Time

	UnitCostBase    *decimal.Decimal // costo por unidad base (opcional, valoración)
	UnitCostControl *decimal.Decimal // costo por unidad de control (opcional)
	ProviderID      string

	Active    bool // true mientras BaseUnitsRemaining > 0 y no haya borrado administrativo
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsExpired indica si el lote está vencido respecto a la fecha dada, con granularidad
// de día: un lote que vence hoy sigue siendo elegible durante todo el día de hoy.
// Sin fecha de vencimiento el lote nunca vence.
func (b *Batch) IsExpired(asOf time.Time) bool {
	if b.ExpirationDate == nil {
		return false
	}
	startOfDay := time.Date(asOf.Year(), asOf.Month(), asOf.Day(), 0, 0, 0, 0, asOf.Location())
	return b.ExpirationDate.Before(startOfDay)
}

// ExpiresWithin indica si el lote vence dentro de los próximos días (sin estar ya vencido).
func (b *Batch) ExpiresWithin(asOf time.Time, days int) bool {
	if b.ExpirationDate == nil || b.IsExpired(asOf) {
		return false
	}
	return b.ExpirationDate.Before(asOf.AddDate(0, 0, days))
}

// HasStock indica si el lote tiene cantidad disponible.
func (b *Batch) HasStock() bool {
	return b.Active && b.BaseUnitsRemaining.GreaterThan(decimal.Zero)
}

// ApplyConsumption descuenta baseUnits del restante del lote y, proporcionalmente,
// de las unidades de control. Al llegar exactamente a cero el lote se desactiva
// (consumido por completo, irreversible). Devuelve las unidades de control consumidas.
func (b *Batch) ApplyConsumption(baseUnits decimal.Decimal, now time.Time) (decimal.Decimal, error) {
	if baseUnits.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, domain.ErrInvalidQuantity
	}
	if baseUnits.GreaterThan(b.BaseUnitsRemaining) {
		return decimal.Zero, domain.ErrInsufficientBatchStock
	}

	b.BaseUnitsRemaining = b.BaseUnitsRemaining.Sub(baseUnits)

	controlUnits := decimal.Zero
	if b.BaseUnitContent.GreaterThan(decimal.Zero) {
		controlUnits = baseUnits.Div(b.BaseUnitContent)
		b.ControlUnitsRemaining = b.ControlUnitsRemaining.Sub(controlUnits)
		if b.ControlUnitsRemaining.LessThan(decimal.Zero) {
			b.ControlUnitsRemaining = decimal.Zero
		}
	}
	if b.BaseUnitsRemaining.IsZero() {
		b.ControlUnitsRemaining = decimal.Zero
		b.Active = false
	}
	b.UpdatedAt = now
	return controlUnits, nil
}

// RecomputeContent recalcula las cantidades restantes tras editar el contenido por unidad
// de control o las unidades recibidas, preservando lo ya consumido:
//
//	consumido = totalAnterior − restanteAnterior
//	nuevoRestante = max(0, nuevoTotal − consumido)
//
// Devuelve el delta firmado del restante en unidades base para que el caller
// concilie el stock consolidado.
func (b *Batch) RecomputeContent(newContent, newReceived decimal.Decimal, now time.Time) (decimal.Decimal, error) {
	if newContent.LessThanOrEqual(decimal.Zero) || newReceived.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, domain.ErrInvalidQuantity
	}
	consumed := b.BaseUnitsReceived.Sub(b.BaseUnitsRemaining)
	newTotal := newContent.Mul(newReceived)
	newRemaining := newTotal.Sub(consumed)
	if newRemaining.LessThan(decimal.Zero) {
		newRemaining = decimal.Zero
	}
	delta := newRemaining.Sub(b.BaseUnitsRemaining)

	b.BaseUnitContent = newContent
	b.ControlUnitsReceived = newReceived
	b.BaseUnitsReceived = newTotal
	b.BaseUnitsRemaining = newRemaining
	b.ControlUnitsRemaining = newRemaining.Div(newContent)
	b.Active = newRemaining.GreaterThan(decimal.Zero)
	b.UpdatedAt = now
	return delta, nil
}
