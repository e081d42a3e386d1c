package repository

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/agrovida/agrostock-api/internal/domain/entity"
)

// ConsolidatedStockReader es la superficie de solo lectura del stock consolidado.
// Es lo único que reciben los handlers y los casos de uso de reportes.
type ConsolidatedStockReader interface {
	// Get devuelve el registro del producto, o un registro en cero si no existe aún.
	Get(ctx context.Context, productID string) (*entity.ConsolidatedStock, error)
	// CurrentStock devuelve el saldo en unidades base (cero si no hay registro).
	CurrentStock(ctx context.Context, productID string) (decimal.Decimal, error)
	// ListBelowThreshold devuelve los productos con saldo bajo su umbral mínimo.
	ListBelowThreshold(ctx context.Context) ([]*entity.ConsolidatedStock, error)
}

// ConsolidatedStockRepository añade la superficie de escritura. Las implementaciones
// ligadas a transacción solo las construye el TxRunner y solo las consumen el asignador
// FEFO y la conciliación: el resto de la aplicación no debe escribir el consolidado.
type ConsolidatedStockRepository interface {
	ConsolidatedStockReader

	// GetForUpdate obtiene (creando en cero si no existe) y bloquea la fila (SELECT FOR UPDATE).
	GetForUpdate(ctx context.Context, productID string) (*entity.ConsolidatedStock, error)
	Upsert(ctx context.Context, record *entity.ConsolidatedStock) error
}
