package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/agrovida/agrostock-api/internal/domain"
	"github.com/agrovida/agrostock-api/internal/domain/entity"
	"github.com/agrovida/agrostock-api/internal/domain/repository"
)

var _ repository.ProductRepository = (*ProductRepo)(nil)

const productColumns = `id, name, type_id, base_unit, control_unit, stock_controlled, legacy_on_hand, created_at, updated_at`

// ProductRepo implementación del puerto ProductRepository sobre PostgreSQL
// (usable con pool o tx). El catálogo se administra en otro sistema; aquí solo
// se resuelven productos y tipos para el motor de stock.
type ProductRepo struct {
	q Querier
}

// NewProductRepository construye el adaptador de catálogo. Pasar pool o tx (Querier).
func NewProductRepository(q Querier) *ProductRepo {
	return &ProductRepo{q: q}
}

// Create persiste un producto (siembra y tests de integración).
func (r *ProductRepo) Create(ctx context.Context, p *entity.Product) error {
	query := `
		INSERT INTO products (` + productColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.q.Exec(ctx, query,
		p.ID, p.Name, nullIfEmpty(p.TypeID), p.BaseUnit, p.ControlUnit,
		p.StockControlled, p.LegacyOnHand, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("create product: %w", err)
	}
	return nil
}

// GetByID obtiene un producto por ID. Devuelve nil si no existe.
func (r *ProductRepo) GetByID(ctx context.Context, id string) (*entity.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`
	p, err := scanProduct(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

// ListByType devuelve los productos del tipo dado.
func (r *ProductRepo) ListByType(ctx context.Context, typeID string, onlyStockControlled bool) ([]*entity.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE type_id = $1`
	if onlyStockControlled {
		query += ` AND stock_controlled`
	}
	query += ` ORDER BY name ASC`
	return r.list(ctx, query, typeID)
}

// ListAll devuelve todos los productos (conciliación masiva).
func (r *ProductRepo) ListAll(ctx context.Context, onlyStockControlled bool) ([]*entity.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products`
	if onlyStockControlled {
		query += ` WHERE stock_controlled`
	}
	query += ` ORDER BY name ASC`
	return r.list(ctx, query)
}

func (r *ProductRepo) list(ctx context.Context, query string, args ...any) ([]*entity.Product, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()
	var list []*entity.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

func scanProduct(row pgx.Row) (*entity.Product, error) {
	var p entity.Product
	var typeID *string
	err := row.Scan(
		&p.ID, &p.Name, &typeID, &p.BaseUnit, &p.ControlUnit,
		&p.StockControlled, &p.LegacyOnHand, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if typeID != nil {
		p.TypeID = *typeID
	}
	return &p, nil
}
