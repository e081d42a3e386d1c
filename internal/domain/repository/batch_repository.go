package repository

import (
	"context"
	"time"

	"github.com/agrovida/agrostock-api/internal/domain/entity"
)

// BatchRepository define el puerto de persistencia para lotes de compra.
// "Activo" significa: sin borrado administrativo y con restante > 0.
type BatchRepository interface {
	Create(ctx context.Context, batch *entity.Batch) error
	GetByID(ctx context.Context, id string) (*entity.Batch, error)

	// GetByIDForUpdate obtiene el lote bloqueando la fila (SELECT FOR UPDATE).
	// Obligatorio para toda lectura que derive en reescritura de restantes;
	// solo dentro de una transacción.
	GetByIDForUpdate(ctx context.Context, id string) (*entity.Batch, error)

	// ListActiveByProduct devuelve los lotes activos del producto en orden FEFO
	// (vencimiento ascendente con nulos al final, recepción como desempate).
	ListActiveByProduct(ctx context.Context, productID string) ([]*entity.Batch, error)
	ListActiveByProducts(ctx context.Context, productIDs []string) ([]*entity.Batch, error)

	// ListActiveForUpdate devuelve los lotes activos del producto en orden FEFO
	// bloqueando las filas (SELECT FOR UPDATE). Solo dentro de una transacción.
	ListActiveForUpdate(ctx context.Context, productID string) ([]*entity.Batch, error)

	// ListExpiring devuelve lotes activos con vencimiento dentro de los próximos days días
	// (ya vencidos incluidos si includeExpired). productID vacío cubre todos los productos.
	ListExpiring(ctx context.Context, productID string, asOf time.Time, days int, includeExpired bool) ([]*entity.Batch, error)

	// UpdateQuantities persiste restantes y bandera de actividad tras un consumo o recálculo.
	UpdateQuantities(ctx context.Context, batch *entity.Batch) error

	// UpdateMetadata persiste campos no cuantitativos (código de lote, fechas, costos)
	// junto con los restantes recalculados si el contenido cambió.
	UpdateMetadata(ctx context.Context, batch *entity.Batch) error

	// Deactivate marca el lote como inactivo sin alterar cantidades (borrado administrativo).
	Deactivate(ctx context.Context, id, reason string) error
}
