package stock

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/agrovida/agrostock-api/internal/domain"
	"github.com/agrovida/agrostock-api/internal/domain/entity"
)

// AllocationLine es la extracción planificada sobre un lote de compra concreto.
type AllocationLine struct {
	Batch     *entity.Batch
	BaseUnits decimal.Decimal
	Remaining decimal.Decimal // restante del lote después de aplicar la extracción
}

// Plan es el resultado de planificar un consumo FEFO sobre un conjunto de lotes.
// El cumplimiento parcial no es un error: Pending informa el faltante.
type Plan struct {
	Requested           decimal.Decimal
	Consumed            decimal.Decimal
	Pending             decimal.Decimal
	BlockedByExpiration bool // hay existencias pero todas vencidas; no se consumió nada
	Lines               []AllocationLine
	ByProduct           map[string]decimal.Decimal // subtotal consumido por producto
	ProductOrder        []string                   // productos con subtotal > 0, en orden de aparición FEFO
}

// Partition separa los lotes en elegibles y vencidos respecto a asOf.
// Un lote sin fecha de vencimiento siempre es elegible.
func Partition(batches []*entity.Batch, asOf time.Time) (eligible, expired []*entity.Batch) {
	for _, b := range batches {
		if b.IsExpired(asOf) {
			expired = append(expired, b)
			continue
		}
		eligible = append(eligible, b)
	}
	return eligible, expired
}

// SortFEFO ordena los lotes en orden First-Expired-First-Out: vencimiento ascendente
// con los lotes sin vencimiento al final; a igual vencimiento, recepción más antigua
// primero (aproxima FIFO cuando los vencimientos no distinguen).
func SortFEFO(batches []*entity.Batch) {
	sort.SliceStable(batches, func(i, j int) bool {
		bi, bj := batches[i], batches[j]
		switch {
		case bi.ExpirationDate == nil && bj.ExpirationDate == nil:
			return bi.ReceivedAt.Before(bj.ReceivedAt)
		case bi.ExpirationDate == nil:
			return false
		case bj.ExpirationDate == nil:
			return true
		case bi.ExpirationDate.Equal(*bj.ExpirationDate):
			return bi.ReceivedAt.Before(bj.ReceivedAt)
		default:
			return bi.ExpirationDate.Before(*bj.ExpirationDate)
		}
	})
}

// BuildPlan calcula la asignación FEFO de requested unidades base sobre los lotes dados
// (de uno o varios productos). No muta los lotes: las líneas registran la extracción y el
// restante resultante. Falla solo ante cantidad no positiva; la insuficiencia de stock se
// reporta en Pending y el bloqueo por vencimiento en BlockedByExpiration.
func BuildPlan(batches []*entity.Batch, requested decimal.Decimal, asOf time.Time) (*Plan, error) {
	if requested.LessThanOrEqual(decimal.Zero) {
		return nil, domain.ErrInvalidQuantity
	}

	eligible, expired := Partition(batches, asOf)
	SortFEFO(eligible)

	plan := &Plan{
		Requested: requested,
		Consumed:  decimal.Zero,
		ByProduct: make(map[string]decimal.Decimal),
	}

	toSatisfy := requested
	for _, b := range eligible {
		if toSatisfy.LessThanOrEqual(decimal.Zero) {
			break
		}
		if !b.BaseUnitsRemaining.GreaterThan(decimal.Zero) {
			continue
		}
		draw := decimal.Min(b.BaseUnitsRemaining, toSatisfy)
		plan.Lines = append(plan.Lines, AllocationLine{
			Batch:     b,
			BaseUnits: draw,
			Remaining: b.BaseUnitsRemaining.Sub(draw),
		})
		if _, seen := plan.ByProduct[b.ProductID]; !seen {
			plan.ProductOrder = append(plan.ProductOrder, b.ProductID)
		}
		plan.ByProduct[b.ProductID] = plan.ByProduct[b.ProductID].Add(draw)
		plan.Consumed = plan.Consumed.Add(draw)
		toSatisfy = toSatisfy.Sub(draw)
	}

	plan.Pending = requested.Sub(plan.Consumed)
	if plan.Pending.LessThan(decimal.Zero) {
		plan.Pending = decimal.Zero
	}

	// Bloqueo por vencimiento: existe stock pero todo está vencido.
	if plan.Consumed.IsZero() && len(expired) > 0 {
		plan.BlockedByExpiration = true
		for _, b := range eligible {
			if b.BaseUnitsRemaining.GreaterThan(decimal.Zero) {
				plan.BlockedByExpiration = false
				break
			}
		}
	}
	return plan, nil
}
