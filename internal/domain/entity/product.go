package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product representa un producto del catálogo de la finca (alimento, medicamento, insumo).
// El catálogo es un colaborador de solo lectura para el motor de stock: aquí solo viven
// los campos que el motor necesita (unidad de control por defecto, tipo y bandera de
// control de stock).
type Product struct {
	ID              string
	Name            string
	TypeID          string          // tipo de producto (ej. concentrado, sal mineralizada)
	BaseUnit        string          // unidad base para la matemática de stock (ej. "kg", "ml")
	ControlUnit     string          // unidad de control por defecto (ej. "bulto", "frasco")
	StockControlled bool            // si false, el consumo por tipo puede omitirlo
	LegacyOnHand    decimal.Decimal // saldo "a mano" heredado del sistema anterior (solo migración)
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
