package stock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/agrovida/agrostock-api/internal/application/dto"
	"github.com/agrovida/agrostock-api/internal/domain"
	"github.com/agrovida/agrostock-api/internal/domain/entity"
	"github.com/agrovida/agrostock-api/internal/domain/repository"
	domstock "github.com/agrovida/agrostock-api/internal/domain/stock"
	"github.com/agrovida/agrostock-api/pkg/logger"
)

// AllocatorUseCase registra entradas de compra y consumos FEFO de forma transaccional,
// con bloqueo de fila (SELECT FOR UPDATE) sobre lotes y consolidado, y Commit/Rollback
// por producto. En consumos por tipo cada producto es su propia unidad atómica: un fallo
// en el producto B no revierte lo ya confirmado para el producto A (decisión deliberada
// de disponibilidad sobre una transacción gigante entre productos).
type AllocatorUseCase struct {
	txRunner    TxRunner
	productRepo repository.ProductRepository
	batchRepo   repository.BatchRepository // lecturas de planeación, fuera de transacción
	log         *logger.Logger
}

// NewAllocatorUseCase construye el caso de uso.
func NewAllocatorUseCase(
	txRunner TxRunner,
	productRepo repository.ProductRepository,
	batchRepo repository.BatchRepository,
	log *logger.Logger,
) *AllocatorUseCase {
	return &AllocatorUseCase{
		txRunner:    txRunner,
		productRepo: productRepo,
		batchRepo:   batchRepo,
		log:         log,
	}
}

// consumeParams campos comunes a toda asignación de consumo.
type consumeParams struct {
	relatedLotID string
	userID       string
	notes        string
	movementDate time.Time // fecha mostrada en el libro; puede ser histórica
	asOf         time.Time // referencia de vencimiento, siempre el presente
}

// ConsumeByProduct satisface una solicitud de consumo de un producto drenando sus lotes
// en orden FEFO. El cumplimiento parcial no es error: Pending informa el faltante y
// BlockedByExpiration señala existencias completas pero vencidas.
func (uc *AllocatorUseCase) ConsumeByProduct(ctx context.Context, userID string, in dto.ConsumeRequest) (*dto.AllocationResultDTO, error) {
	if in.Quantity.LessThanOrEqual(decimal.Zero) {
		return nil, domain.ErrInvalidQuantity
	}
	product, err := uc.productRepo.GetByID(ctx, in.ProductID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, domain.ErrUnknownProduct
	}

	now := time.Now()
	params := consumeParams{
		relatedLotID: in.RelatedLotID,
		userID:       userID,
		notes:        in.Notes,
		movementDate: movementDate(in.Date, now),
		asOf:         now,
	}

	result := &dto.AllocationResultDTO{
		Requested: in.Quantity,
		Consumed:  decimal.Zero,
		Pending:   in.Quantity,
	}
	if err := uc.allocateProduct(ctx, in.ProductID, in.Quantity, params, result); err != nil {
		return nil, err
	}
	uc.logOutcome(in.ProductID, result)
	return result, nil
}

// ConsumeByType satisface una solicitud de consumo sobre todos los productos de un tipo,
// drenando los lotes del conjunto completo en un único orden FEFO global. El subtotal de
// cada producto se confirma en su propia transacción, producto a producto.
func (uc *AllocatorUseCase) ConsumeByType(ctx context.Context, userID string, in dto.ConsumeByTypeRequest) (*dto.AllocationResultDTO, error) {
	if in.Quantity.LessThanOrEqual(decimal.Zero) {
		return nil, domain.ErrInvalidQuantity
	}
	products, err := uc.productRepo.ListByType(ctx, in.TypeID, in.OnlyStockControlled)
	if err != nil {
		return nil, err
	}
	if len(products) == 0 {
		return nil, domain.ErrUnknownProduct
	}
	ids := make([]string, 0, len(products))
	for _, p := range products {
		ids = append(ids, p.ID)
	}

	now := time.Now()
	params := consumeParams{
		relatedLotID: in.RelatedLotID,
		userID:       userID,
		notes:        in.Notes,
		movementDate: movementDate(in.Date, now),
		asOf:         now,
	}

	// Plan global sobre una lectura sin bloqueo: decide el reparto entre productos.
	// La asignación autoritativa se recalcula después dentro de la tx de cada producto.
	candidates, err := uc.batchRepo.ListActiveByProducts(ctx, ids)
	if err != nil {
		return nil, err
	}
	globalPlan, err := domstock.BuildPlan(candidates, in.Quantity, params.asOf)
	if err != nil {
		return nil, err
	}

	result := &dto.AllocationResultDTO{
		Requested:           in.Quantity,
		Consumed:            decimal.Zero,
		Pending:             in.Quantity,
		BlockedByExpiration: globalPlan.BlockedByExpiration,
	}
	for _, productID := range globalPlan.ProductOrder {
		subtotal := globalPlan.ByProduct[productID]
		if err := uc.allocateProduct(ctx, productID, subtotal, params, result); err != nil {
			// Los productos ya confirmados permanecen confirmados (unidad atómica por producto).
			uc.log.Error().Err(err).
				Str("type_id", in.TypeID).
				Str("product_id", productID).
				Str("consumed_so_far", result.Consumed.String()).
				Msg("consumo por tipo interrumpido; productos previos ya confirmados")
			return nil, fmt.Errorf("consumo por tipo, producto %s: %w", productID, err)
		}
	}
	if result.Consumed.GreaterThan(decimal.Zero) {
		result.BlockedByExpiration = false
	}
	uc.logOutcome("tipo:"+in.TypeID, result)
	return result, nil
}

// allocateProduct aplica hasta target unidades base contra los lotes de un producto en
// una única transacción: relee los lotes con FOR UPDATE (esa relectura es la autoritativa,
// nunca el plan previo), descuenta lote a lote, descuenta el consolidado y escribe
// exactamente un movimiento CONSUMPTION con un detalle por lote tocado.
func (uc *AllocatorUseCase) allocateProduct(
	ctx context.Context,
	productID string,
	target decimal.Decimal,
	params consumeParams,
	result *dto.AllocationResultDTO,
) error {
	return uc.txRunner.Run(ctx, func(
		batchRepo repository.BatchRepository,
		stockRepo repository.ConsolidatedStockRepository,
		movRepo repository.StockMovementRepository,
	) error {
		batches, err := batchRepo.ListActiveForUpdate(ctx, productID)
		if err != nil {
			return err
		}
		plan, err := domstock.BuildPlan(batches, target, params.asOf)
		if err != nil {
			return err
		}
		if plan.BlockedByExpiration {
			result.BlockedByExpiration = true
		}
		if plan.Consumed.IsZero() {
			// Nada que aplicar: la tx confirma sin mutaciones.
			return nil
		}

		now := time.Now()
		details := make([]*entity.ConsumptionDetail, 0, len(plan.Lines))
		for _, line := range plan.Lines {
			controlUnits, err := line.Batch.ApplyConsumption(line.BaseUnits, now)
			if err != nil {
				return err
			}
			if err := batchRepo.UpdateQuantities(ctx, line.Batch); err != nil {
				return err
			}
			details = append(details, &entity.ConsumptionDetail{
				ID:           uuid.New().String(),
				BatchID:      line.Batch.ID,
				BaseUnits:    line.BaseUnits,
				ControlUnits: controlUnits,
				CreatedAt:    now,
			})
			result.Details = append(result.Details, dto.AllocationDetailDTO{
				BatchID:   line.Batch.ID,
				LotCode:   line.Batch.LotCode,
				ProductID: productID,
				BaseUnits: line.BaseUnits,
				Remaining: line.Batch.BaseUnitsRemaining,
			})
		}

		record, err := stockRepo.GetForUpdate(ctx, productID)
		if err != nil {
			return err
		}
		if record.QuantityOnHand.LessThan(plan.Consumed) {
			return domain.ErrInsufficientStock
		}
		stockBefore := record.QuantityOnHand
		record.QuantityOnHand = stockBefore.Sub(plan.Consumed)
		record.UpdatedAt = now
		if err := stockRepo.Upsert(ctx, record); err != nil {
			return err
		}

		mov := &entity.StockMovement{
			ID:           uuid.New().String(),
			ProductID:    productID,
			Kind:         entity.MovementKindCONSUMPTION,
			Quantity:     plan.Consumed,
			StockBefore:  stockBefore,
			StockAfter:   record.QuantityOnHand,
			RelatedLotID: params.relatedLotID,
			UserID:       params.userID,
			Notes:        params.notes,
			Date:         params.movementDate,
			CreatedAt:    now,
		}
		if err := movRepo.Create(ctx, mov); err != nil {
			return err
		}
		for _, d := range details {
			d.MovementID = mov.ID
			if err := movRepo.CreateDetail(ctx, d); err != nil {
				return err
			}
		}

		result.Consumed = result.Consumed.Add(plan.Consumed)
		result.Pending = result.Requested.Sub(result.Consumed)
		if result.Pending.LessThan(decimal.Zero) {
			result.Pending = decimal.Zero
		}
		result.MovementIDs = append(result.MovementIDs, mov.ID)
		return nil
	})
}

// RecordEntry registra una recepción de compra: crea el lote, incrementa el consolidado
// (recalculando el costo promedio ponderado si hay costo) y escribe el movimiento ENTRY,
// siempre en ese orden y como una sola unidad atómica.
func (uc *AllocatorUseCase) RecordEntry(ctx context.Context, userID string, in dto.RecordEntryRequest) (*dto.EntryResultDTO, error) {
	if in.BaseUnitContent.LessThanOrEqual(decimal.Zero) || in.ControlUnitsReceived.LessThanOrEqual(decimal.Zero) {
		return nil, domain.ErrInvalidQuantity
	}
	product, err := uc.productRepo.GetByID(ctx, in.ProductID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, domain.ErrUnknownProduct
	}

	now := time.Now()
	controlUnit := in.ControlUnit
	if controlUnit == "" {
		controlUnit = product.ControlUnit
	}
	baseReceived := in.BaseUnitContent.Mul(in.ControlUnitsReceived)

	var unitCostBase *decimal.Decimal
	if in.UnitCostControl != nil && in.UnitCostControl.GreaterThan(decimal.Zero) {
		c := in.UnitCostControl.Div(in.BaseUnitContent)
		unitCostBase = &c
	}

	batch := &entity.Batch{
		ID:                    uuid.New().String(),
		ProductID:             in.ProductID,
		LotCode:               in.LotCode,
		ControlUnit:           controlUnit,
		BaseUnitContent:       in.BaseUnitContent,
		ControlUnitsReceived:  in.ControlUnitsReceived,
		BaseUnitsReceived:     baseReceived,
		ControlUnitsRemaining: in.ControlUnitsReceived,
		BaseUnitsRemaining:    baseReceived,
		ExpirationDate:        in.ExpirationDate,
		ReceivedAt:            movementDate(in.Date, now),
		UnitCostBase:          unitCostBase,
		UnitCostControl:       in.UnitCostControl,
		ProviderID:            in.ProviderID,
		Active:                true,
		CreatedAt:             now,
		UpdatedAt:             now,
	}

	var out dto.EntryResultDTO
	err = uc.txRunner.Run(ctx, func(
		batchRepo repository.BatchRepository,
		stockRepo repository.ConsolidatedStockRepository,
		movRepo repository.StockMovementRepository,
	) error {
		if err := batchRepo.Create(ctx, batch); err != nil {
			return err
		}
		record, err := stockRepo.GetForUpdate(ctx, in.ProductID)
		if err != nil {
			return err
		}
		if record.BaseUnit == "" {
			record.BaseUnit = product.BaseUnit
		}
		stockBefore := record.QuantityOnHand
		if unitCostBase != nil {
			record.AverageUnitCost = domstock.WeightedAverageCost(
				stockBefore, record.AverageUnitCost, baseReceived, *unitCostBase,
			)
		}
		record.QuantityOnHand = stockBefore.Add(baseReceived)
		record.UpdatedAt = now
		if err := stockRepo.Upsert(ctx, record); err != nil {
			return err
		}

		mov := &entity.StockMovement{
			ID:          uuid.New().String(),
			ProductID:   in.ProductID,
			Kind:        entity.MovementKindENTRY,
			Quantity:    baseReceived,
			StockBefore: stockBefore,
			StockAfter:  record.QuantityOnHand,
			UserID:      userID,
			Notes:       in.Notes,
			Date:        movementDate(in.Date, now),
			CreatedAt:   now,
		}
		if err := movRepo.Create(ctx, mov); err != nil {
			return err
		}
		out = dto.EntryResultDTO{
			BatchID:           batch.ID,
			MovementID:        mov.ID,
			BaseUnitsReceived: baseReceived,
			StockAfter:        record.QuantityOnHand,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.log.Debug().
		Str("product_id", in.ProductID).
		Str("batch_id", out.BatchID).
		Str("base_units", baseReceived.String()).
		Msg("entrada de stock registrada")
	return &out, nil
}

// movementDate devuelve la fecha histórica si el caller la suministró, o now.
func movementDate(historical *time.Time, now time.Time) time.Time {
	if historical != nil {
		return *historical
	}
	return now
}

func (uc *AllocatorUseCase) logOutcome(target string, result *dto.AllocationResultDTO) {
	switch {
	case result.BlockedByExpiration:
		uc.log.Warn().
			Str("target", target).
			Str("requested", result.Requested.String()).
			Msg("consumo bloqueado: existencias vencidas en su totalidad")
	case result.Pending.GreaterThan(decimal.Zero):
		uc.log.Warn().
			Str("target", target).
			Str("consumed", result.Consumed.String()).
			Str("pending", result.Pending.String()).
			Msg("consumo parcial: stock insuficiente para la cantidad solicitada")
	default:
		uc.log.Debug().
			Str("target", target).
			Str("consumed", result.Consumed.String()).
			Msg("consumo FEFO aplicado")
	}
}
