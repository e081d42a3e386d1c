package entity_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrovida/agrostock-api/internal/domain"
	"github.com/agrovida/agrostock-api/internal/domain/entity"
)

var testNow = time.Date(2024, 1, 5, 10, 0, 0, 0, time.UTC)

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

// newBatch construye un lote de 4 bultos de 25 kg (100 kg en unidades base).
func newBatch() *entity.Batch {
	return &entity.Batch{
		ID:                    "b1",
		ProductID:             "p1",
		ControlUnit:           "bulto",
		BaseUnitContent:       d("25"),
		ControlUnitsReceived:  d("4"),
		BaseUnitsReceived:     d("100"),
		ControlUnitsRemaining: d("4"),
		BaseUnitsRemaining:    d("100"),
		ReceivedAt:            testNow.AddDate(0, 0, -10),
		Active:                true,
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Tests IsExpired / ExpiresWithin
// ──────────────────────────────────────────────────────────────────────────────

func TestIsExpired_SinFechaNuncaVence(t *testing.T) {
	b := newBatch()
	assert.False(t, b.IsExpired(testNow))
}

// El vencimiento es a granularidad de día: un lote cuya fecha de vencimiento es hoy
// (guardada como medianoche) sigue elegible durante todo el día de hoy.
func TestIsExpired_VenceHoySigueElegible(t *testing.T) {
	b := newBatch()
	hoy := time.Date(testNow.Year(), testNow.Month(), testNow.Day(), 0, 0, 0, 0, time.UTC)
	b.ExpirationDate = &hoy

	assert.False(t, b.IsExpired(testNow), "vence hoy: elegible hasta el final del día")
	assert.True(t, b.IsExpired(testNow.AddDate(0, 0, 1)), "mañana sí está vencido")
}

func TestIsExpired_FechaAnteriorEstaVencido(t *testing.T) {
	b := newBatch()
	exp := testNow.AddDate(0, 0, -1)
	b.ExpirationDate = &exp
	assert.True(t, b.IsExpired(testNow))
}

func TestExpiresWithin_VentanaDeDias(t *testing.T) {
	b := newBatch()
	exp := testNow.AddDate(0, 0, 10)
	b.ExpirationDate = &exp

	assert.True(t, b.ExpiresWithin(testNow, 30), "vence dentro de la ventana de 30 días")
	assert.False(t, b.ExpiresWithin(testNow, 5), "fuera de la ventana de 5 días")

	vencida := testNow.AddDate(0, 0, -2)
	b.ExpirationDate = &vencida
	assert.False(t, b.ExpiresWithin(testNow, 30), "un lote ya vencido no cuenta como por vencer")
}

// ──────────────────────────────────────────────────────────────────────────────
// Tests ApplyConsumption
// ──────────────────────────────────────────────────────────────────────────────

// Consumir 25 kg de un lote de 100 kg (bultos de 25) descuenta 1 bulto.
func TestApplyConsumption_DescuentaProporcionalEnUnidadesDeControl(t *testing.T) {
	b := newBatch()

	controlUnits, err := b.ApplyConsumption(d("25"), testNow)
	require.NoError(t, err)

	assert.True(t, controlUnits.Equal(d("1")), "25 kg equivalen a 1 bulto")
	assert.True(t, b.BaseUnitsRemaining.Equal(d("75")))
	assert.True(t, b.ControlUnitsRemaining.Equal(d("3")))
	assert.True(t, b.Active, "con restante > 0 el lote sigue activo")
}

// Al llegar exactamente a cero el lote se desactiva y el restante de control se anula.
func TestApplyConsumption_SaldoCeroDesactivaElLote(t *testing.T) {
	b := newBatch()

	_, err := b.ApplyConsumption(d("100"), testNow)
	require.NoError(t, err)

	assert.True(t, b.BaseUnitsRemaining.IsZero())
	assert.True(t, b.ControlUnitsRemaining.IsZero())
	assert.False(t, b.Active, "un lote drenado por completo queda inactivo")
}

func TestApplyConsumption_CantidadNoPositivaEsError(t *testing.T) {
	b := newBatch()
	_, err := b.ApplyConsumption(decimal.Zero, testNow)
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
}

// Pedir más de lo que queda en el lote es un error y no muta nada.
func TestApplyConsumption_SobregiroEsErrorSinMutacion(t *testing.T) {
	b := newBatch()
	_, err := b.ApplyConsumption(d("100.01"), testNow)

	assert.ErrorIs(t, err, domain.ErrInsufficientBatchStock)
	assert.True(t, b.BaseUnitsRemaining.Equal(d("100")), "un sobregiro no debe tocar el restante")
	assert.True(t, b.Active)
}

// ──────────────────────────────────────────────────────────────────────────────
// Tests RecomputeContent
// ──────────────────────────────────────────────────────────────────────────────

// Tras consumir 30 kg, corregir el contenido de 25 a 30 kg por bulto preserva lo
// consumido: nuevo total 120, restante 90, delta +20.
func TestRecomputeContent_PreservaConsumidoYDevuelveDelta(t *testing.T) {
	b := newBatch()
	_, err := b.ApplyConsumption(d("30"), testNow)
	require.NoError(t, err)

	delta, err := b.RecomputeContent(d("30"), d("4"), testNow)
	require.NoError(t, err)

	assert.True(t, delta.Equal(d("20")), "delta esperado +20, obtenido %s", delta)
	assert.True(t, b.BaseUnitsReceived.Equal(d("120")))
	assert.True(t, b.BaseUnitsRemaining.Equal(d("90")))
	assert.True(t, b.ControlUnitsRemaining.Equal(d("3")))
	assert.True(t, b.Active)
}

// Reducir el total por debajo de lo consumido no deja restantes negativos.
func TestRecomputeContent_RestanteNuncaNegativo(t *testing.T) {
	b := newBatch()
	_, err := b.ApplyConsumption(d("80"), testNow)
	require.NoError(t, err)

	// Nuevo total 50 < consumido 80: el restante se fija en cero.
	delta, err := b.RecomputeContent(d("25"), d("2"), testNow)
	require.NoError(t, err)

	assert.True(t, delta.Equal(d("-20")), "el delta refleja la caída del restante (20 → 0)")
	assert.True(t, b.BaseUnitsRemaining.IsZero())
	assert.False(t, b.Active, "sin restante el lote queda inactivo")
}

func TestRecomputeContent_ValoresNoPositivosSonError(t *testing.T) {
	b := newBatch()
	_, err := b.RecomputeContent(decimal.Zero, d("4"), testNow)
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)

	_, err = b.RecomputeContent(d("25"), decimal.Zero, testNow)
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
}
