package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/agrovida/agrostock-api/internal/domain"
	"github.com/agrovida/agrostock-api/internal/domain/entity"
	"github.com/agrovida/agrostock-api/internal/domain/repository"
)

var _ repository.BatchRepository = (*BatchRepo)(nil)

const batchColumns = `
	id, product_id, lot_code, control_unit, base_unit_content,
	control_units_received, base_units_received, control_units_remaining, base_units_remaining,
	expiration_date, received_at, unit_cost_base, unit_cost_control, provider_id,
	active, created_at, updated_at`

// fefoOrder: vencimiento ascendente con nulos al final, recepción como desempate.
const fefoOrder = ` ORDER BY expiration_date ASC NULLS LAST, received_at ASC`

// BatchRepo implementación de BatchRepository sobre PostgreSQL (usable con pool o tx).
type BatchRepo struct {
	q Querier
}

// NewBatchRepository construye el adaptador de lotes de compra. Pasar pool o tx (Querier).
func NewBatchRepository(q Querier) *BatchRepo {
	return &BatchRepo{q: q}
}

// Create persiste un nuevo lote de compra.
func (r *BatchRepo) Create(ctx context.Context, b *entity.Batch) error {
	query := `
		INSERT INTO purchase_batches (` + batchColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`
	_, err := r.q.Exec(ctx, query,
		b.ID, b.ProductID, nullIfEmpty(b.LotCode), b.ControlUnit, b.BaseUnitContent,
		b.ControlUnitsReceived, b.BaseUnitsReceived, b.ControlUnitsRemaining, b.BaseUnitsRemaining,
		b.ExpirationDate, b.ReceivedAt, b.UnitCostBase, b.UnitCostControl, nullIfEmpty(b.ProviderID),
		b.Active, b.CreatedAt, b.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("create batch: %w", domain.ErrDuplicate)
		}
		return fmt.Errorf("create batch: %w", err)
	}
	return nil
}

// GetByID obtiene un lote por ID. Devuelve nil si no existe.
func (r *BatchRepo) GetByID(ctx context.Context, id string) (*entity.Batch, error) {
	query := `SELECT ` + batchColumns + ` FROM purchase_batches WHERE id = $1`
	b, err := scanBatch(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get batch: %w", err)
	}
	return b, nil
}

// GetByIDForUpdate obtiene un lote por ID bloqueando la fila (SELECT FOR UPDATE).
// Un consumo concurrente que ya tenga la fila por ListActiveForUpdate serializa
// aquí a quien quiera recalcular restantes. Devuelve nil si no existe.
func (r *BatchRepo) GetByIDForUpdate(ctx context.Context, id string) (*entity.Batch, error) {
	query := `SELECT ` + batchColumns + ` FROM purchase_batches WHERE id = $1 FOR UPDATE`
	b, err := scanBatch(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get batch for update: %w", err)
	}
	return b, nil
}

// ListActiveByProduct devuelve los lotes activos del producto en orden FEFO.
func (r *BatchRepo) ListActiveByProduct(ctx context.Context, productID string) ([]*entity.Batch, error) {
	query := `SELECT ` + batchColumns + `
		FROM purchase_batches
		WHERE product_id = $1 AND active AND base_units_remaining > 0` + fefoOrder
	return r.list(ctx, query, productID)
}

// ListActiveByProducts devuelve los lotes activos de un conjunto de productos en orden FEFO global.
func (r *BatchRepo) ListActiveByProducts(ctx context.Context, productIDs []string) ([]*entity.Batch, error) {
	query := `SELECT ` + batchColumns + `
		FROM purchase_batches
		WHERE product_id = ANY($1) AND active AND base_units_remaining > 0` + fefoOrder
	return r.list(ctx, query, productIDs)
}

// ListActiveForUpdate devuelve los lotes activos del producto en orden FEFO bloqueando
// las filas (SELECT FOR UPDATE). Dos consumos concurrentes del mismo producto se
// serializan aquí en lugar de leer restantes obsoletos.
func (r *BatchRepo) ListActiveForUpdate(ctx context.Context, productID string) ([]*entity.Batch, error) {
	query := `SELECT ` + batchColumns + `
		FROM purchase_batches
		WHERE product_id = $1 AND active AND base_units_remaining > 0` + fefoOrder + `
		FOR UPDATE`
	return r.list(ctx, query, productID)
}

// ListExpiring devuelve lotes activos cuyo vencimiento cae dentro de los próximos days
// días. Con includeExpired también los ya vencidos con restante > 0. productID vacío
// cubre todos los productos.
func (r *BatchRepo) ListExpiring(ctx context.Context, productID string, asOf time.Time, days int, includeExpired bool) ([]*entity.Batch, error) {
	limit := asOf.AddDate(0, 0, days)
	query := `SELECT ` + batchColumns + `
		FROM purchase_batches
		WHERE active AND base_units_remaining > 0
		  AND expiration_date IS NOT NULL AND expiration_date < $1`
	args := []any{limit}
	pos := 2
	if !includeExpired {
		query += fmt.Sprintf(" AND expiration_date >= $%d", pos)
		args = append(args, asOf)
		pos++
	}
	if productID != "" {
		query += fmt.Sprintf(" AND product_id = $%d", pos)
		args = append(args, productID)
	}
	query += ` ORDER BY expiration_date ASC`
	return r.list(ctx, query, args...)
}

// UpdateQuantities persiste restantes y bandera de actividad tras un consumo o recálculo.
func (r *BatchRepo) UpdateQuantities(ctx context.Context, b *entity.Batch) error {
	query := `
		UPDATE purchase_batches
		SET control_units_remaining = $2, base_units_remaining = $3, active = $4, updated_at = $5
		WHERE id = $1`
	tag, err := r.q.Exec(ctx, query, b.ID, b.ControlUnitsRemaining, b.BaseUnitsRemaining, b.Active, b.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update batch quantities: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUnknownBatch
	}
	return nil
}

// UpdateMetadata persiste campos editables del lote, incluidos los restantes
// recalculados cuando cambió el contenido.
func (r *BatchRepo) UpdateMetadata(ctx context.Context, b *entity.Batch) error {
	query := `
		UPDATE purchase_batches
		SET lot_code = $2, expiration_date = $3, unit_cost_base = $4, unit_cost_control = $5,
		    base_unit_content = $6, control_units_received = $7, base_units_received = $8,
		    control_units_remaining = $9, base_units_remaining = $10, active = $11, updated_at = $12
		WHERE id = $1`
	tag, err := r.q.Exec(ctx, query,
		b.ID, nullIfEmpty(b.LotCode), b.ExpirationDate, b.UnitCostBase, b.UnitCostControl,
		b.BaseUnitContent, b.ControlUnitsReceived, b.BaseUnitsReceived,
		b.ControlUnitsRemaining, b.BaseUnitsRemaining, b.Active, b.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update batch metadata: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUnknownBatch
	}
	return nil
}

// Deactivate marca el lote como inactivo sin alterar cantidades (borrado administrativo).
func (r *BatchRepo) Deactivate(ctx context.Context, id, reason string) error {
	query := `
		UPDATE purchase_batches
		SET active = false, deactivation_reason = $2, updated_at = now()
		WHERE id = $1`
	tag, err := r.q.Exec(ctx, query, id, nullIfEmpty(reason))
	if err != nil {
		return fmt.Errorf("deactivate batch: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUnknownBatch
	}
	return nil
}

func (r *BatchRepo) list(ctx context.Context, query string, args ...any) ([]*entity.Batch, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}
	defer rows.Close()
	var list []*entity.Batch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, fmt.Errorf("scan batch: %w", err)
		}
		list = append(list, b)
	}
	return list, rows.Err()
}

func scanBatch(row pgx.Row) (*entity.Batch, error) {
	var b entity.Batch
	var lotCode, providerID *string
	err := row.Scan(
		&b.ID, &b.ProductID, &lotCode, &b.ControlUnit, &b.BaseUnitContent,
		&b.ControlUnitsReceived, &b.BaseUnitsReceived, &b.ControlUnitsRemaining, &b.BaseUnitsRemaining,
		&b.ExpirationDate, &b.ReceivedAt, &b.UnitCostBase, &b.UnitCostControl, &providerID,
		&b.Active, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if lotCode != nil {
		b.LotCode = *lotCode
	}
	if providerID != nil {
		b.ProviderID = *providerID
	}
	return &b, nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
