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

// SyntheticLotCode marca los lotes creados por la conciliación para cubrir saldo
// consolidado sin respaldo en lotes (datos heredados o borrados administrativos).
const SyntheticLotCode = "CONCILIACION-SALDO"

// ReconciliationUseCase detecta y repara el desvío entre el stock consolidado y la suma
// de restantes de lotes activos. El consolidado es autoritativo: la reparación es siempre
// aditiva (lotes sintéticos), nunca reduce el consolidado ni borra historial del libro.
type ReconciliationUseCase struct {
	txRunner    TxRunner
	productRepo repository.ProductRepository
	batchRepo   repository.BatchRepository
	stockReader repository.ConsolidatedStockReader
	log         *logger.Logger
}

// NewReconciliationUseCase construye el caso de uso.
func NewReconciliationUseCase(
	txRunner TxRunner,
	productRepo repository.ProductRepository,
	batchRepo repository.BatchRepository,
	stockReader repository.ConsolidatedStockReader,
	log *logger.Logger,
) *ReconciliationUseCase {
	return &ReconciliationUseCase{
		txRunner:    txRunner,
		productRepo: productRepo,
		batchRepo:   batchRepo,
		stockReader: stockReader,
		log:         log,
	}
}

// BackfillMissingBatches compara, producto a producto, el consolidado contra la suma de
// restantes de lotes activos; cuando el consolidado excede la suma sintetiza un lote de
// recuperación (sin vencimiento, código marcador) por la diferencia, para que el FEFO
// tenga de dónde drenar. productID vacío recorre todos los productos.
func (uc *ReconciliationUseCase) BackfillMissingBatches(ctx context.Context, productID string, onlyStockControlled bool) ([]dto.BackfillReportDTO, error) {
	var products []*entity.Product
	if productID != "" {
		p, err := uc.productRepo.GetByID(ctx, productID)
		if err != nil {
			return nil, err
		}
		if p == nil {
			return nil, domain.ErrUnknownProduct
		}
		products = []*entity.Product{p}
	} else {
		var err error
		products, err = uc.productRepo.ListAll(ctx, onlyStockControlled)
		if err != nil {
			return nil, err
		}
	}

	reports := make([]dto.BackfillReportDTO, 0, len(products))
	for _, p := range products {
		report, err := uc.backfillProduct(ctx, p)
		if err != nil {
			return reports, err
		}
		reports = append(reports, *report)
	}
	return reports, nil
}

func (uc *ReconciliationUseCase) backfillProduct(ctx context.Context, product *entity.Product) (*dto.BackfillReportDTO, error) {
	report := &dto.BackfillReportDTO{ProductID: product.ID}

	err := uc.txRunner.Run(ctx, func(
		batchRepo repository.BatchRepository,
		stockRepo repository.ConsolidatedStockRepository,
		movRepo repository.StockMovementRepository,
	) error {
		record, err := stockRepo.GetForUpdate(ctx, product.ID)
		if err != nil {
			return err
		}
		batches, err := batchRepo.ListActiveForUpdate(ctx, product.ID)
		if err != nil {
			return err
		}
		batchSum := decimal.Zero
		for _, b := range batches {
			batchSum = batchSum.Add(b.BaseUnitsRemaining)
		}

		report.Consolidated = record.QuantityOnHand
		report.BatchSum = batchSum
		report.Difference = record.QuantityOnHand.Sub(batchSum)
		if report.Difference.LessThanOrEqual(decimal.Zero) {
			// Lotes iguales o por encima del consolidado: el consolidado manda y no se reduce.
			return nil
		}

		now := time.Now()
		synthetic := &entity.Batch{
			ID:                    uuid.New().String(),
			ProductID:             product.ID,
			LotCode:               SyntheticLotCode,
			ControlUnit:           product.ControlUnit,
			BaseUnitContent:       decimal.NewFromInt(1),
			ControlUnitsReceived:  report.Difference,
			BaseUnitsReceived:     report.Difference,
			ControlUnitsRemaining: report.Difference,
			BaseUnitsRemaining:    report.Difference,
			ReceivedAt:            now,
			Active:                true,
			CreatedAt:             now,
			UpdatedAt:             now,
		}
		if err := batchRepo.Create(ctx, synthetic); err != nil {
			return err
		}
		report.SyntheticBatch = synthetic.ID
		return nil
	})
	if err != nil {
		return nil, err
	}

	if report.SyntheticBatch != "" {
		uc.log.Warn().
			Str("product_id", product.ID).
			Str("consolidated", report.Consolidated.String()).
			Str("batch_sum", report.BatchSum.String()).
			Str("difference", report.Difference.String()).
			Str("synthetic_batch_id", report.SyntheticBatch).
			Msg("desvío consolidado vs lotes corregido con lote sintético")
	}
	return report, nil
}

// SyncFromExternalQuantity es un auxiliar de migración de una sola vez: si el consolidado
// del producto está en cero y el saldo "a mano" heredado es positivo, registra una entrada
// por ese monto (lote sin vencimiento, movimiento ENTRY con nota de migración). El cero
// del consolidado se verifica de nuevo con bloqueo de fila dentro de la transacción, para
// que dos llamadas concurrentes no dupliquen el saldo heredado.
func (uc *ReconciliationUseCase) SyncFromExternalQuantity(ctx context.Context, userID, productID string) (*dto.EntryResultDTO, error) {
	product, err := uc.productRepo.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, domain.ErrUnknownProduct
	}
	current, err := uc.stockReader.CurrentStock(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !current.IsZero() || product.LegacyOnHand.LessThanOrEqual(decimal.Zero) {
		// Nada que migrar: consolidado ya poblado o sin saldo heredado.
		return nil, nil
	}

	var out *dto.EntryResultDTO
	err = uc.txRunner.Run(ctx, func(
		batchRepo repository.BatchRepository,
		stockRepo repository.ConsolidatedStockRepository,
		movRepo repository.StockMovementRepository,
	) error {
		record, err := stockRepo.GetForUpdate(ctx, productID)
		if err != nil {
			return err
		}
		if !record.QuantityOnHand.IsZero() {
			// Otra llamada migró el saldo entre la lectura previa y el bloqueo.
			return nil
		}

		now := time.Now()
		batch := &entity.Batch{
			ID:                    uuid.New().String(),
			ProductID:             productID,
			LotCode:               SyntheticLotCode,
			ControlUnit:           product.ControlUnit,
			BaseUnitContent:       decimal.NewFromInt(1),
			ControlUnitsReceived:  product.LegacyOnHand,
			BaseUnitsReceived:     product.LegacyOnHand,
			ControlUnitsRemaining: product.LegacyOnHand,
			BaseUnitsRemaining:    product.LegacyOnHand,
			ReceivedAt:            now,
			Active:                true,
			CreatedAt:             now,
			UpdatedAt:             now,
		}
		if err := batchRepo.Create(ctx, batch); err != nil {
			return err
		}

		if record.BaseUnit == "" {
			record.BaseUnit = product.BaseUnit
		}
		record.QuantityOnHand = product.LegacyOnHand
		record.UpdatedAt = now
		if err := stockRepo.Upsert(ctx, record); err != nil {
			return err
		}

		mov := &entity.StockMovement{
			ID:          uuid.New().String(),
			ProductID:   productID,
			Kind:        entity.MovementKindENTRY,
			Quantity:    product.LegacyOnHand,
			StockBefore: decimal.Zero,
			StockAfter:  record.QuantityOnHand,
			UserID:      userID,
			Notes:       "migración de saldo heredado",
			Date:        now,
			CreatedAt:   now,
		}
		if err := movRepo.Create(ctx, mov); err != nil {
			return err
		}
		out = &dto.EntryResultDTO{
			BatchID:           batch.ID,
			MovementID:        mov.ID,
			BaseUnitsReceived: product.LegacyOnHand,
			StockAfter:        record.QuantityOnHand,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		return nil, nil
	}
	uc.log.Info().
		Str("product_id", productID).
		Str("base_units", product.LegacyOnHand.String()).
		Msg("saldo heredado migrado al stock consolidado")
	return out, nil
}
