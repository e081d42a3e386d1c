package stock_test

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	appstock "github.com/agrovida/agrostock-api/internal/application/stock"
	"github.com/agrovida/agrostock-api/internal/domain"
	"github.com/agrovida/agrostock-api/internal/domain/entity"
	"github.com/agrovida/agrostock-api/internal/domain/repository"
	domstock "github.com/agrovida/agrostock-api/internal/domain/stock"
	"github.com/agrovida/agrostock-api/pkg/logger"
)

// ──────────────────────────────────────────────────────────────────────────────
// Dobles en memoria de los puertos de persistencia. Reproducen el contrato
// observable (orden FEFO en listados, creación perezosa del consolidado,
// libro solo-inserción) sin base de datos.
// ──────────────────────────────────────────────────────────────────────────────

type fakeBatchRepo struct {
	batches map[string]*entity.Batch

	lockedGets int // lecturas por ID con bloqueo de fila
}

func newFakeBatchRepo() *fakeBatchRepo {
	return &fakeBatchRepo{batches: make(map[string]*entity.Batch)}
}

func (r *fakeBatchRepo) Create(_ context.Context, b *entity.Batch) error {
	if _, ok := r.batches[b.ID]; ok {
		return domain.ErrDuplicate
	}
	r.batches[b.ID] = b
	return nil
}

func (r *fakeBatchRepo) GetByID(_ context.Context, id string) (*entity.Batch, error) {
	return r.batches[id], nil
}

func (r *fakeBatchRepo) GetByIDForUpdate(_ context.Context, id string) (*entity.Batch, error) {
	r.lockedGets++
	return r.batches[id], nil
}

func (r *fakeBatchRepo) ListActiveByProduct(ctx context.Context, productID string) ([]*entity.Batch, error) {
	return r.ListActiveByProducts(ctx, []string{productID})
}

func (r *fakeBatchRepo) ListActiveByProducts(_ context.Context, productIDs []string) ([]*entity.Batch, error) {
	wanted := make(map[string]bool, len(productIDs))
	for _, id := range productIDs {
		wanted[id] = true
	}
	var list []*entity.Batch
	for _, b := range r.batches {
		if wanted[b.ProductID] && b.Active && b.BaseUnitsRemaining.GreaterThan(decimal.Zero) {
			list = append(list, b)
		}
	}
	domstock.SortFEFO(list)
	return list, nil
}

func (r *fakeBatchRepo) ListActiveForUpdate(ctx context.Context, productID string) ([]*entity.Batch, error) {
	return r.ListActiveByProduct(ctx, productID)
}

func (r *fakeBatchRepo) ListExpiring(_ context.Context, productID string, asOf time.Time, days int, includeExpired bool) ([]*entity.Batch, error) {
	var list []*entity.Batch
	for _, b := range r.batches {
		if !b.Active || !b.BaseUnitsRemaining.GreaterThan(decimal.Zero) || b.ExpirationDate == nil {
			continue
		}
		if productID != "" && b.ProductID != productID {
			continue
		}
		if b.IsExpired(asOf) {
			if includeExpired {
				list = append(list, b)
			}
			continue
		}
		if b.ExpiresWithin(asOf, days) {
			list = append(list, b)
		}
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].ExpirationDate.Before(*list[j].ExpirationDate)
	})
	return list, nil
}

func (r *fakeBatchRepo) UpdateQuantities(_ context.Context, b *entity.Batch) error {
	if _, ok := r.batches[b.ID]; !ok {
		return domain.ErrUnknownBatch
	}
	r.batches[b.ID] = b
	return nil
}

func (r *fakeBatchRepo) UpdateMetadata(_ context.Context, b *entity.Batch) error {
	return r.UpdateQuantities(context.Background(), b)
}

func (r *fakeBatchRepo) Deactivate(_ context.Context, id, _ string) error {
	b, ok := r.batches[id]
	if !ok {
		return domain.ErrUnknownBatch
	}
	b.Active = false
	return nil
}

type fakeStockRepo struct {
	records map[string]*entity.ConsolidatedStock
}

func newFakeStockRepo() *fakeStockRepo {
	return &fakeStockRepo{records: make(map[string]*entity.ConsolidatedStock)}
}

func (r *fakeStockRepo) Get(_ context.Context, productID string) (*entity.ConsolidatedStock, error) {
	if rec, ok := r.records[productID]; ok {
		return rec, nil
	}
	return &entity.ConsolidatedStock{ProductID: productID}, nil
}

func (r *fakeStockRepo) GetForUpdate(_ context.Context, productID string) (*entity.ConsolidatedStock, error) {
	if rec, ok := r.records[productID]; ok {
		return rec, nil
	}
	rec := &entity.ConsolidatedStock{ProductID: productID}
	r.records[productID] = rec
	return rec, nil
}

func (r *fakeStockRepo) Upsert(_ context.Context, rec *entity.ConsolidatedStock) error {
	r.records[rec.ProductID] = rec
	return nil
}

func (r *fakeStockRepo) CurrentStock(_ context.Context, productID string) (decimal.Decimal, error) {
	if rec, ok := r.records[productID]; ok {
		return rec.QuantityOnHand, nil
	}
	return decimal.Zero, nil
}

func (r *fakeStockRepo) ListBelowThreshold(_ context.Context) ([]*entity.ConsolidatedStock, error) {
	var list []*entity.ConsolidatedStock
	for _, rec := range r.records {
		if rec.MinimumThreshold.GreaterThan(decimal.Zero) && rec.QuantityOnHand.LessThan(rec.MinimumThreshold) {
			list = append(list, rec)
		}
	}
	return list, nil
}

type fakeMovementRepo struct {
	movements []*entity.StockMovement
	details   []*entity.ConsumptionDetail
}

func newFakeMovementRepo() *fakeMovementRepo { return &fakeMovementRepo{} }

func (r *fakeMovementRepo) Create(_ context.Context, m *entity.StockMovement) error {
	r.movements = append(r.movements, m)
	return nil
}

func (r *fakeMovementRepo) CreateDetail(_ context.Context, d *entity.ConsumptionDetail) error {
	r.details = append(r.details, d)
	return nil
}

func (r *fakeMovementRepo) GetByID(_ context.Context, id string) (*entity.StockMovement, error) {
	for _, m := range r.movements {
		if m.ID == id {
			return m, nil
		}
	}
	return nil, nil
}

func (r *fakeMovementRepo) ListByProduct(_ context.Context, productID string, _, _ *time.Time, _, _ int) ([]*entity.StockMovement, error) {
	var list []*entity.StockMovement
	for _, m := range r.movements {
		if m.ProductID == productID {
			list = append(list, m)
		}
	}
	return list, nil
}

func (r *fakeMovementRepo) ListByRelatedLot(_ context.Context, relatedLotID string) ([]*entity.StockMovement, error) {
	var list []*entity.StockMovement
	for _, m := range r.movements {
		if m.RelatedLotID == relatedLotID {
			list = append(list, m)
		}
	}
	return list, nil
}

func (r *fakeMovementRepo) ListDetails(_ context.Context, movementID string) ([]*entity.ConsumptionDetail, error) {
	var list []*entity.ConsumptionDetail
	for _, d := range r.details {
		if d.MovementID == movementID {
			list = append(list, d)
		}
	}
	return list, nil
}

func (r *fakeMovementRepo) SumByKind(_ context.Context, productID string, _, _ *time.Time) ([]repository.KindSum, error) {
	totals := make(map[string]map[string]decimal.Decimal)
	for _, m := range r.movements {
		if productID != "" && m.ProductID != productID {
			continue
		}
		if totals[m.ProductID] == nil {
			totals[m.ProductID] = make(map[string]decimal.Decimal)
		}
		totals[m.ProductID][m.Kind] = totals[m.ProductID][m.Kind].Add(m.Quantity)
	}
	var sums []repository.KindSum
	for pid, kinds := range totals {
		for kind, total := range kinds {
			sums = append(sums, repository.KindSum{ProductID: pid, Kind: kind, Total: total})
		}
	}
	sort.Slice(sums, func(i, j int) bool {
		if sums[i].ProductID != sums[j].ProductID {
			return sums[i].ProductID < sums[j].ProductID
		}
		return sums[i].Kind < sums[j].Kind
	})
	return sums, nil
}

type fakeProductRepo struct {
	products map[string]*entity.Product
}

func newFakeProductRepo(products ...*entity.Product) *fakeProductRepo {
	r := &fakeProductRepo{products: make(map[string]*entity.Product)}
	for _, p := range products {
		r.products[p.ID] = p
	}
	return r
}

func (r *fakeProductRepo) Create(_ context.Context, p *entity.Product) error {
	r.products[p.ID] = p
	return nil
}

func (r *fakeProductRepo) GetByID(_ context.Context, id string) (*entity.Product, error) {
	return r.products[id], nil
}

func (r *fakeProductRepo) ListByType(_ context.Context, typeID string, onlyStockControlled bool) ([]*entity.Product, error) {
	var list []*entity.Product
	for _, p := range r.products {
		if p.TypeID != typeID {
			continue
		}
		if onlyStockControlled && !p.StockControlled {
			continue
		}
		list = append(list, p)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list, nil
}

func (r *fakeProductRepo) ListAll(_ context.Context, onlyStockControlled bool) ([]*entity.Product, error) {
	var list []*entity.Product
	for _, p := range r.products {
		if onlyStockControlled && !p.StockControlled {
			continue
		}
		list = append(list, p)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list, nil
}

// fakeTxRunner ejecuta el callback directamente sobre los dobles compartidos.
// No reproduce rollback: los tests de atomicidad real viven en integración.
type fakeTxRunner struct {
	batches   *fakeBatchRepo
	stock     *fakeStockRepo
	movements *fakeMovementRepo
}

var _ appstock.TxRunner = (*fakeTxRunner)(nil)

func (r *fakeTxRunner) Run(ctx context.Context, fn func(
	batchRepo repository.BatchRepository,
	stockRepo repository.ConsolidatedStockRepository,
	movRepo repository.StockMovementRepository,
) error) error {
	return fn(r.batches, r.stock, r.movements)
}

// testEnv agrupa los dobles y los casos de uso ya cableados.
type testEnv struct {
	batches   *fakeBatchRepo
	stock     *fakeStockRepo
	movements *fakeMovementRepo
	products  *fakeProductRepo

	allocator      *appstock.AllocatorUseCase
	batchAdmin     *appstock.BatchAdminUseCase
	reconciliation *appstock.ReconciliationUseCase
	reporting      *appstock.ReportingUseCase
}

func newTestEnv(products ...*entity.Product) *testEnv {
	env := &testEnv{
		batches:   newFakeBatchRepo(),
		stock:     newFakeStockRepo(),
		movements: newFakeMovementRepo(),
		products:  newFakeProductRepo(products...),
	}
	runner := &fakeTxRunner{batches: env.batches, stock: env.stock, movements: env.movements}
	log := logger.Nop()
	env.allocator = appstock.NewAllocatorUseCase(runner, env.products, env.batches, log)
	env.batchAdmin = appstock.NewBatchAdminUseCase(runner, env.batches, log)
	env.reconciliation = appstock.NewReconciliationUseCase(runner, env.products, env.batches, env.stock, log)
	env.reporting = appstock.NewReportingUseCase(env.stock, env.movements)
	return env
}
