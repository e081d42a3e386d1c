package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// ConsolidatedStock representa el saldo agregado de un producto en unidades base
// (registro único por producto, materializado para lecturas rápidas).
// Es el sistema de registro: la conciliación nunca lo reduce para igualar los lotes.
type ConsolidatedStock struct {
	ProductID        string
	QuantityOnHand   decimal.Decimal // unidades base; Σ restante de lotes activos en operación normal
	AverageUnitCost  decimal.Decimal // costo promedio ponderado, se actualiza solo en entradas
	MinimumThreshold decimal.Decimal // umbral para alertas de stock bajo
	BaseUnit         string
	UpdatedAt        time.Time
}
