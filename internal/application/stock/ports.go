package stock

import (
	"context"

	"github.com/agrovida/agrostock-api/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción de BD, pasando repositorios
// atados a esa tx. Garantiza la atomicidad de cada unidad por producto: o se aplican
// todos los descuentos de lotes, el descuento consolidado y las escrituras del libro,
// o no se aplica ninguno.
//
// Los repositorios de escritura del consolidado solo existen dentro del callback;
// fuera de este paquete la aplicación únicamente ve ConsolidatedStockReader.
type TxRunner interface {
	Run(ctx context.Context, fn func(
		batchRepo repository.BatchRepository,
		stockRepo repository.ConsolidatedStockRepository,
		movRepo repository.StockMovementRepository,
	) error) error
}
