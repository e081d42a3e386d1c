package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/agrovida/agrostock-api/internal/domain/entity"
	"github.com/agrovida/agrostock-api/internal/domain/repository"
)

var _ repository.ConsolidatedStockRepository = (*ConsolidatedStockRepo)(nil)

// ConsolidatedStockRepo implementación del stock consolidado sobre PostgreSQL
// (usable con pool o tx). La escritura solo se ejercita vía TxRunner.
type ConsolidatedStockRepo struct {
	q Querier
}

// NewConsolidatedStockRepository construye el adaptador. Pasar pool o tx (Querier).
func NewConsolidatedStockRepository(q Querier) *ConsolidatedStockRepo {
	return &ConsolidatedStockRepo{q: q}
}

const consolidatedColumns = `product_id, quantity_on_hand, average_unit_cost, minimum_threshold, base_unit, updated_at`

// Get obtiene el registro del producto, o un registro en cero si no existe aún
// (creación perezosa: la fila real aparece con el primer Upsert).
func (r *ConsolidatedStockRepo) Get(ctx context.Context, productID string) (*entity.ConsolidatedStock, error) {
	query := `SELECT ` + consolidatedColumns + ` FROM consolidated_stock WHERE product_id = $1`
	rec, err := scanConsolidated(r.q.QueryRow(ctx, query, productID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return zeroRecord(productID), nil
		}
		return nil, fmt.Errorf("get consolidated stock: %w", err)
	}
	return rec, nil
}

// GetForUpdate obtiene el registro y bloquea la fila (SELECT FOR UPDATE). Si no existe,
// la crea en cero primero para tener una fila que bloquear.
func (r *ConsolidatedStockRepo) GetForUpdate(ctx context.Context, productID string) (*entity.ConsolidatedStock, error) {
	insert := `
		INSERT INTO consolidated_stock (product_id, quantity_on_hand, average_unit_cost, minimum_threshold, base_unit, updated_at)
		VALUES ($1, 0, 0, 0, '', now())
		ON CONFLICT (product_id) DO NOTHING`
	if _, err := r.q.Exec(ctx, insert, productID); err != nil {
		return nil, fmt.Errorf("ensure consolidated stock: %w", err)
	}
	query := `SELECT ` + consolidatedColumns + ` FROM consolidated_stock WHERE product_id = $1 FOR UPDATE`
	rec, err := scanConsolidated(r.q.QueryRow(ctx, query, productID))
	if err != nil {
		return nil, fmt.Errorf("get consolidated stock for update: %w", err)
	}
	return rec, nil
}

// Upsert inserta o actualiza el registro consolidado del producto.
func (r *ConsolidatedStockRepo) Upsert(ctx context.Context, rec *entity.ConsolidatedStock) error {
	query := `
		INSERT INTO consolidated_stock (product_id, quantity_on_hand, average_unit_cost, minimum_threshold, base_unit, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (product_id)
		DO UPDATE SET quantity_on_hand = EXCLUDED.quantity_on_hand,
		              average_unit_cost = EXCLUDED.average_unit_cost,
		              minimum_threshold = EXCLUDED.minimum_threshold,
		              base_unit = EXCLUDED.base_unit,
		              updated_at = EXCLUDED.updated_at`
	_, err := r.q.Exec(ctx, query,
		rec.ProductID, rec.QuantityOnHand, rec.AverageUnitCost, rec.MinimumThreshold, rec.BaseUnit, rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert consolidated stock: %w", err)
	}
	return nil
}

// CurrentStock devuelve el saldo del producto en unidades base (cero si no hay registro).
func (r *ConsolidatedStockRepo) CurrentStock(ctx context.Context, productID string) (decimal.Decimal, error) {
	query := `SELECT quantity_on_hand FROM consolidated_stock WHERE product_id = $1`
	var qty decimal.Decimal
	err := r.q.QueryRow(ctx, query, productID).Scan(&qty)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, nil
		}
		return decimal.Zero, fmt.Errorf("current stock: %w", err)
	}
	return qty, nil
}

// ListBelowThreshold devuelve los productos con saldo bajo su umbral mínimo (> 0).
func (r *ConsolidatedStockRepo) ListBelowThreshold(ctx context.Context) ([]*entity.ConsolidatedStock, error) {
	query := `SELECT ` + consolidatedColumns + `
		FROM consolidated_stock
		WHERE minimum_threshold > 0 AND quantity_on_hand < minimum_threshold
		ORDER BY quantity_on_hand - minimum_threshold ASC`
	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list below threshold: %w", err)
	}
	defer rows.Close()
	var list []*entity.ConsolidatedStock
	for rows.Next() {
		rec, err := scanConsolidated(rows)
		if err != nil {
			return nil, fmt.Errorf("scan consolidated stock: %w", err)
		}
		list = append(list, rec)
	}
	return list, rows.Err()
}

func scanConsolidated(row pgx.Row) (*entity.ConsolidatedStock, error) {
	var rec entity.ConsolidatedStock
	err := row.Scan(
		&rec.ProductID, &rec.QuantityOnHand, &rec.AverageUnitCost,
		&rec.MinimumThreshold, &rec.BaseUnit, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func zeroRecord(productID string) *entity.ConsolidatedStock {
	return &entity.ConsolidatedStock{
		ProductID:        productID,
		QuantityOnHand:   decimal.Zero,
		AverageUnitCost:  decimal.Zero,
		MinimumThreshold: decimal.Zero,
	}
}
