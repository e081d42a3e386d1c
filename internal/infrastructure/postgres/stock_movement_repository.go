package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/agrovida/agrostock-api/internal/domain/entity"
	"github.com/agrovida/agrostock-api/internal/domain/repository"
)

var _ repository.StockMovementRepository = (*StockMovementRepo)(nil)

const movementColumns = `id, product_id, kind, quantity, stock_before, stock_after, related_lot_id, user_id, notes, date, created_at`

// StockMovementRepo implementación del libro de movimientos sobre PostgreSQL
// (usable con pool o tx). Solo inserción: no hay UPDATE ni DELETE sobre estas tablas.
type StockMovementRepo struct {
	q Querier
}

// NewStockMovementRepository construye el adaptador. Pasar pool o tx (Querier).
func NewStockMovementRepository(q Querier) *StockMovementRepo {
	return &StockMovementRepo{q: q}
}

// Create persiste un movimiento del libro de stock.
func (r *StockMovementRepo) Create(ctx context.Context, m *entity.StockMovement) error {
	query := `
		INSERT INTO stock_movements (` + movementColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := r.q.Exec(ctx, query,
		m.ID, m.ProductID, m.Kind, m.Quantity, m.StockBefore, m.StockAfter,
		nullIfEmpty(m.RelatedLotID), nullIfEmpty(m.UserID), nullIfEmpty(m.Notes),
		m.Date, m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create stock movement: %w", err)
	}
	return nil
}

// CreateDetail persiste el detalle de consumo de un lote dentro de un movimiento.
func (r *StockMovementRepo) CreateDetail(ctx context.Context, d *entity.ConsumptionDetail) error {
	query := `
		INSERT INTO consumption_details (id, movement_id, batch_id, base_units, control_units, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.q.Exec(ctx, query, d.ID, d.MovementID, d.BatchID, d.BaseUnits, d.ControlUnits, d.CreatedAt)
	if err != nil {
		return fmt.Errorf("create consumption detail: %w", err)
	}
	return nil
}

// GetByID obtiene un movimiento por ID. Devuelve nil si no existe.
func (r *StockMovementRepo) GetByID(ctx context.Context, id string) (*entity.StockMovement, error) {
	query := `SELECT ` + movementColumns + ` FROM stock_movements WHERE id = $1`
	m, err := scanMovement(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get movement: %w", err)
	}
	return m, nil
}

// ListByProduct lista movimientos de un producto en un rango de fechas.
func (r *StockMovementRepo) ListByProduct(ctx context.Context, productID string, from, to *time.Time, limit, offset int) ([]*entity.StockMovement, error) {
	query := `SELECT ` + movementColumns + ` FROM stock_movements WHERE product_id = $1`
	args := []any{productID}
	pos := 2
	if from != nil {
		query += fmt.Sprintf(" AND date >= $%d", pos)
		args = append(args, *from)
		pos++
	}
	if to != nil {
		query += fmt.Sprintf(" AND date <= $%d", pos)
		args = append(args, *to)
		pos++
	}
	query += fmt.Sprintf(" ORDER BY date DESC LIMIT $%d OFFSET $%d", pos, pos+1)
	args = append(args, limit, offset)
	return r.list(ctx, query, args...)
}

// ListByRelatedLot lista los movimientos asociados a un lote operativo.
func (r *StockMovementRepo) ListByRelatedLot(ctx context.Context, relatedLotID string) ([]*entity.StockMovement, error) {
	query := `SELECT ` + movementColumns + ` FROM stock_movements WHERE related_lot_id = $1 ORDER BY date DESC`
	return r.list(ctx, query, relatedLotID)
}

// ListDetails devuelve los detalles de consumo de un movimiento, en orden de inserción
// (que es el orden FEFO de la asignación).
func (r *StockMovementRepo) ListDetails(ctx context.Context, movementID string) ([]*entity.ConsumptionDetail, error) {
	query := `
		SELECT id, movement_id, batch_id, base_units, control_units, created_at
		FROM consumption_details WHERE movement_id = $1 ORDER BY created_at ASC, id ASC`
	rows, err := r.q.Query(ctx, query, movementID)
	if err != nil {
		return nil, fmt.Errorf("list consumption details: %w", err)
	}
	defer rows.Close()
	var list []*entity.ConsumptionDetail
	for rows.Next() {
		var d entity.ConsumptionDetail
		if err := rows.Scan(&d.ID, &d.MovementID, &d.BatchID, &d.BaseUnits, &d.ControlUnits, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan consumption detail: %w", err)
		}
		list = append(list, &d)
	}
	return list, rows.Err()
}

// SumByKind devuelve los totales por tipo de movimiento agrupados por producto.
func (r *StockMovementRepo) SumByKind(ctx context.Context, productID string, from, to *time.Time) ([]repository.KindSum, error) {
	query := `SELECT product_id, kind, COALESCE(SUM(quantity), 0) FROM stock_movements WHERE 1=1`
	var args []any
	pos := 1
	if productID != "" {
		query += fmt.Sprintf(" AND product_id = $%d", pos)
		args = append(args, productID)
		pos++
	}
	if from != nil {
		query += fmt.Sprintf(" AND date >= $%d", pos)
		args = append(args, *from)
		pos++
	}
	if to != nil {
		query += fmt.Sprintf(" AND date <= $%d", pos)
		args = append(args, *to)
		pos++
	}
	query += ` GROUP BY product_id, kind ORDER BY product_id, kind`

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sum by kind: %w", err)
	}
	defer rows.Close()
	var sums []repository.KindSum
	for rows.Next() {
		var s repository.KindSum
		if err := rows.Scan(&s.ProductID, &s.Kind, &s.Total); err != nil {
			return nil, fmt.Errorf("scan kind sum: %w", err)
		}
		sums = append(sums, s)
	}
	return sums, rows.Err()
}

func (r *StockMovementRepo) list(ctx context.Context, query string, args ...any) ([]*entity.StockMovement, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list movements: %w", err)
	}
	defer rows.Close()
	var list []*entity.StockMovement
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return nil, fmt.Errorf("scan movement: %w", err)
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

func scanMovement(row pgx.Row) (*entity.StockMovement, error) {
	var m entity.StockMovement
	var relatedLotID, userID, notes *string
	err := row.Scan(
		&m.ID, &m.ProductID, &m.Kind, &m.Quantity, &m.StockBefore, &m.StockAfter,
		&relatedLotID, &userID, &notes, &m.Date, &m.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if relatedLotID != nil {
		m.RelatedLotID = *relatedLotID
	}
	if userID != nil {
		m.UserID = *userID
	}
	if notes != nil {
		m.Notes = *notes
	}
	return &m, nil
}
