package domain

import "errors"

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound     = errors.New("recurso no encontrado")
	ErrInvalidInput = errors.New("entrada inválida")
	ErrDuplicate    = errors.New("recurso duplicado")

	// Errores del núcleo de stock por lotes de compra.
	ErrInvalidQuantity        = errors.New("cantidad inválida")
	ErrUnknownProduct         = errors.New("producto no encontrado")
	ErrUnknownBatch           = errors.New("lote de compra no encontrado")
	ErrInsufficientStock      = errors.New("stock consolidado insuficiente")
	ErrInsufficientBatchStock = errors.New("stock insuficiente en el lote de compra")
)
