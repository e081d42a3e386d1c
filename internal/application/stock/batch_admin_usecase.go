package stock

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/agrovida/agrostock-api/internal/application/dto"
	"github.com/agrovida/agrostock-api/internal/domain"
	"github.com/agrovida/agrostock-api/internal/domain/entity"
	"github.com/agrovida/agrostock-api/internal/domain/repository"
	"github.com/agrovida/agrostock-api/pkg/logger"
)

// BatchAdminUseCase administra lotes de compra: borrado administrativo, edición de
// metadatos (con reconciliación del consolidado si cambia el contenido) y listados
// de vencimiento para reportes.
type BatchAdminUseCase struct {
	txRunner  TxRunner
	batchRepo repository.BatchRepository
	log       *logger.Logger
}

// NewBatchAdminUseCase construye el caso de uso.
func NewBatchAdminUseCase(txRunner TxRunner, batchRepo repository.BatchRepository, log *logger.Logger) *BatchAdminUseCase {
	return &BatchAdminUseCase{txRunner: txRunner, batchRepo: batchRepo, log: log}
}

// SoftDelete marca el lote como inactivo sin tocar cantidades ni el consolidado.
// El consolidado es el sistema de registro y conserva su último valor conocido;
// el desvío resultante es una política deliberada, no un defecto.
func (uc *BatchAdminUseCase) SoftDelete(ctx context.Context, batchID, reason string) error {
	batch, err := uc.batchRepo.GetByID(ctx, batchID)
	if err != nil {
		return err
	}
	if batch == nil {
		return domain.ErrUnknownBatch
	}
	if err := uc.batchRepo.Deactivate(ctx, batchID, reason); err != nil {
		return err
	}
	if batch.BaseUnitsRemaining.GreaterThan(decimal.Zero) {
		uc.log.Warn().
			Str("batch_id", batchID).
			Str("product_id", batch.ProductID).
			Str("remaining", batch.BaseUnitsRemaining.String()).
			Msg("lote desactivado con restante > 0; el consolidado conserva el valor previo")
	}
	return nil
}

// AdjustMetadata edita campos no cuantitativos del lote. Si cambian los campos de
// contenido (contenido por unidad de control o unidades recibidas) recalcula los
// restantes preservando lo consumido y concilia el consolidado con el delta firmado,
// dejando un movimiento ADJUSTMENT en el libro. Todo en una sola transacción.
func (uc *BatchAdminUseCase) AdjustMetadata(ctx context.Context, userID, batchID string, in dto.AdjustBatchRequest) (*dto.BatchDTO, error) {
	var out *dto.BatchDTO
	err := uc.txRunner.Run(ctx, func(
		batchRepo repository.BatchRepository,
		stockRepo repository.ConsolidatedStockRepository,
		movRepo repository.StockMovementRepository,
	) error {
		// Lectura con bloqueo de fila: el recálculo de restantes reescribe cantidades,
		// y una lectura sin bloqueo perdería el descuento de un consumo concurrente.
		batch, err := batchRepo.GetByIDForUpdate(ctx, batchID)
		if err != nil {
			return err
		}
		if batch == nil {
			return domain.ErrUnknownBatch
		}
		now := time.Now()

		if in.LotCode != nil {
			batch.LotCode = *in.LotCode
		}
		if in.ClearExpiration {
			batch.ExpirationDate = nil
		} else if in.ExpirationDate != nil {
			batch.ExpirationDate = in.ExpirationDate
		}
		if in.UnitCostControl != nil {
			batch.UnitCostControl = in.UnitCostControl
			if batch.BaseUnitContent.GreaterThan(decimal.Zero) {
				c := in.UnitCostControl.Div(batch.BaseUnitContent)
				batch.UnitCostBase = &c
			}
		}

		delta := decimal.Zero
		if in.BaseUnitContent != nil || in.ControlUnitsReceived != nil {
			newContent := batch.BaseUnitContent
			if in.BaseUnitContent != nil {
				newContent = *in.BaseUnitContent
			}
			newReceived := batch.ControlUnitsReceived
			if in.ControlUnitsReceived != nil {
				newReceived = *in.ControlUnitsReceived
			}
			delta, err = batch.RecomputeContent(newContent, newReceived, now)
			if err != nil {
				return err
			}
		}
		batch.UpdatedAt = now
		if err := batchRepo.UpdateMetadata(ctx, batch); err != nil {
			return err
		}

		if !delta.IsZero() {
			record, err := stockRepo.GetForUpdate(ctx, batch.ProductID)
			if err != nil {
				return err
			}
			stockBefore := record.QuantityOnHand
			newQty := stockBefore.Add(delta)
			if newQty.LessThan(decimal.Zero) {
				uc.log.Warn().
					Str("batch_id", batchID).
					Str("delta", delta.String()).
					Msg("ajuste de contenido dejaría consolidado negativo; se fija en cero")
				newQty = decimal.Zero
			}
			record.QuantityOnHand = newQty
			record.UpdatedAt = now
			if err := stockRepo.Upsert(ctx, record); err != nil {
				return err
			}
			mov := &entity.StockMovement{
				ID:          uuid.New().String(),
				ProductID:   batch.ProductID,
				Kind:        entity.MovementKindADJUSTMENT,
				Quantity:    delta.Abs(),
				StockBefore: stockBefore,
				StockAfter:  newQty,
				UserID:      userID,
				Notes:       adjustmentNote(in.Notes, delta),
				Date:        now,
				CreatedAt:   now,
			}
			if err := movRepo.Create(ctx, mov); err != nil {
				return err
			}
		}

		out = batchToDTO(batch)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListExpiring devuelve lotes activos vencidos o por vencer dentro de days días.
// productID vacío cubre todos los productos.
func (uc *BatchAdminUseCase) ListExpiring(ctx context.Context, productID string, days int, includeExpired bool) ([]dto.ExpiryAlertDTO, error) {
	now := time.Now()
	batches, err := uc.batchRepo.ListExpiring(ctx, productID, now, days, includeExpired)
	if err != nil {
		return nil, err
	}
	alerts := make([]dto.ExpiryAlertDTO, 0, len(batches))
	for _, b := range batches {
		if b.ExpirationDate == nil {
			continue
		}
		alerts = append(alerts, dto.ExpiryAlertDTO{
			BatchID:            b.ID,
			ProductID:          b.ProductID,
			LotCode:            b.LotCode,
			BaseUnitsRemaining: b.BaseUnitsRemaining,
			ExpirationDate:     *b.ExpirationDate,
			Expired:            b.IsExpired(now),
		})
	}
	return alerts, nil
}

// ListActiveByProduct proyección de los lotes activos de un producto en orden FEFO.
func (uc *BatchAdminUseCase) ListActiveByProduct(ctx context.Context, productID string) ([]dto.BatchDTO, error) {
	batches, err := uc.batchRepo.ListActiveByProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	out := make([]dto.BatchDTO, 0, len(batches))
	for _, b := range batches {
		out = append(out, *batchToDTO(b))
	}
	return out, nil
}

func adjustmentNote(notes string, delta decimal.Decimal) string {
	base := "ajuste por edición de contenido del lote (delta " + delta.String() + ")"
	if notes == "" {
		return base
	}
	return notes + "; " + base
}

func batchToDTO(b *entity.Batch) *dto.BatchDTO {
	return &dto.BatchDTO{
		ID:                    b.ID,
		ProductID:             b.ProductID,
		LotCode:               b.LotCode,
		ControlUnit:           b.ControlUnit,
		BaseUnitContent:       b.BaseUnitContent,
		ControlUnitsReceived:  b.ControlUnitsReceived,
		BaseUnitsReceived:     b.BaseUnitsReceived,
		ControlUnitsRemaining: b.ControlUnitsRemaining,
		BaseUnitsRemaining:    b.BaseUnitsRemaining,
		ExpirationDate:        b.ExpirationDate,
		ReceivedAt:            b.ReceivedAt,
		UnitCostBase:          b.UnitCostBase,
		Active:                b.Active,
	}
}
