package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/agrovida/agrostock-api/internal/domain/entity"
)

// KindSum es el agregado de cantidades por tipo de movimiento para un producto.
type KindSum struct {
	ProductID string
	Kind      string
	Total     decimal.Decimal
}

// StockMovementRepository define el puerto del libro de movimientos (solo inserción).
// Los registros y sus detalles de consumo son inmutables una vez escritos.
type StockMovementRepository interface {
	Create(ctx context.Context, movement *entity.StockMovement) error
	CreateDetail(ctx context.Context, detail *entity.ConsumptionDetail) error

	GetByID(ctx context.Context, id string) (*entity.StockMovement, error)
	ListByProduct(ctx context.Context, productID string, from, to *time.Time, limit, offset int) ([]*entity.StockMovement, error)
	ListByRelatedLot(ctx context.Context, relatedLotID string) ([]*entity.StockMovement, error)
	ListDetails(ctx context.Context, movementID string) ([]*entity.ConsumptionDetail, error)

	// SumByKind devuelve los totales por tipo de movimiento agrupados por producto.
	// productID vacío cubre todos los productos.
	SumByKind(ctx context.Context, productID string, from, to *time.Time) ([]KindSum, error)
}
