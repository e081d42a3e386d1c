package repository

import (
	"context"

	"github.com/agrovida/agrostock-api/internal/domain/entity"
)

// ProductRepository define el puerto de lectura del catálogo de productos.
// El motor de stock no administra el catálogo; solo resuelve productos y tipos.
type ProductRepository interface {
	Create(ctx context.Context, product *entity.Product) error
	GetByID(ctx context.Context, id string) (*entity.Product, error)

	// ListByType devuelve los productos del tipo dado; con onlyStockControlled
	// se omiten los que no llevan control de stock.
	ListByType(ctx context.Context, typeID string, onlyStockControlled bool) ([]*entity.Product, error)

	// ListAll devuelve todos los productos (usado por la conciliación masiva).
	ListAll(ctx context.Context, onlyStockControlled bool) ([]*entity.Product, error)
}
