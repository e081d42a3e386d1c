package stock

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/agrovida/agrostock-api/internal/application/dto"
	"github.com/agrovida/agrostock-api/internal/domain/entity"
	"github.com/agrovida/agrostock-api/internal/domain/repository"
)

// ReportingUseCase expone las lecturas del núcleo de stock para reportes y alertas.
// No muta nada: recibe únicamente las superficies de solo lectura.
type ReportingUseCase struct {
	stockReader repository.ConsolidatedStockReader
	movRepo     repository.StockMovementRepository
}

// NewReportingUseCase construye el caso de uso de reportes.
func NewReportingUseCase(
	stockReader repository.ConsolidatedStockReader,
	movRepo repository.StockMovementRepository,
) *ReportingUseCase {
	return &ReportingUseCase{stockReader: stockReader, movRepo: movRepo}
}

// CurrentStock devuelve el saldo consolidado del producto en unidades base (cero si no hay registro).
func (uc *ReportingUseCase) CurrentStock(ctx context.Context, productID string) (decimal.Decimal, error) {
	return uc.stockReader.CurrentStock(ctx, productID)
}

// LowStockAlerts devuelve los productos con saldo consolidado bajo su umbral mínimo.
func (uc *ReportingUseCase) LowStockAlerts(ctx context.Context) ([]dto.LowStockAlertDTO, error) {
	records, err := uc.stockReader.ListBelowThreshold(ctx)
	if err != nil {
		return nil, err
	}
	alerts := make([]dto.LowStockAlertDTO, 0, len(records))
	for _, r := range records {
		alerts = append(alerts, dto.LowStockAlertDTO{
			ProductID:        r.ProductID,
			QuantityOnHand:   r.QuantityOnHand,
			MinimumThreshold: r.MinimumThreshold,
			BaseUnit:         r.BaseUnit,
		})
	}
	return alerts, nil
}

// MovementsByProduct lista los movimientos de un producto en un rango de fechas.
func (uc *ReportingUseCase) MovementsByProduct(ctx context.Context, productID string, from, to *time.Time, page dto.PageRequest) ([]dto.MovementDTO, error) {
	page.DefaultPage()
	movements, err := uc.movRepo.ListByProduct(ctx, productID, from, to, page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}
	return movementsToDTO(movements), nil
}

// MovementsByLot lista los consumos asociados a un lote operativo (corral/grupo).
func (uc *ReportingUseCase) MovementsByLot(ctx context.Context, relatedLotID string) ([]dto.MovementDTO, error) {
	movements, err := uc.movRepo.ListByRelatedLot(ctx, relatedLotID)
	if err != nil {
		return nil, err
	}
	return movementsToDTO(movements), nil
}

// ConsumptionDetails devuelve el detalle por lote de compra de un movimiento CONSUMPTION.
func (uc *ReportingUseCase) ConsumptionDetails(ctx context.Context, movementID string) ([]*entity.ConsumptionDetail, error) {
	return uc.movRepo.ListDetails(ctx, movementID)
}

// SumsByKind devuelve los totales por tipo de movimiento agrupados por producto.
func (uc *ReportingUseCase) SumsByKind(ctx context.Context, productID string, from, to *time.Time) ([]repository.KindSum, error) {
	return uc.movRepo.SumByKind(ctx, productID, from, to)
}

func movementsToDTO(movements []*entity.StockMovement) []dto.MovementDTO {
	out := make([]dto.MovementDTO, 0, len(movements))
	for _, m := range movements {
		out = append(out, dto.MovementDTO{
			ID:           m.ID,
			ProductID:    m.ProductID,
			Kind:         m.Kind,
			Quantity:     m.Quantity,
			StockBefore:  m.StockBefore,
			StockAfter:   m.StockAfter,
			RelatedLotID: m.RelatedLotID,
			UserID:       m.UserID,
			Notes:        m.Notes,
			Date:         m.Date,
		})
	}
	return out
}
