package repository

import (
	"context"

	"github.com/jhoicas/storeflow-api/internal/domain/entity"
)

// ProductFilter filtros de listado del catálogo.
type ProductFilter struct {
	Search   string // coincide con nombre o SKU (sin distinguir mayúsculas)
	Category string
	LowStock bool // solo productos con Quantity <= MinStock
}

// ProductRepository define el puerto de persistencia para Product (DIP).
// GetByID/GetForUpdate devuelven (nil, nil) si el producto no existe.
type ProductRepository interface {
	Create(ctx context.Context, product *entity.Product) error
	GetByID(ctx context.Context, id string) (*entity.Product, error)
	GetBySKU(ctx context.Context, sku string) (*entity.Product, error)
	// GetForUpdate lee el producto bloqueando su fila hasta el fin de la transacción.
	GetForUpdate(ctx context.Context, id string) (*entity.Product, error)
	// Update modifica solo datos de catálogo; nunca Quantity.
	Update(ctx context.Context, product *entity.Product) error
	// UpdateQuantity escribe el saldo nuevo (uso exclusivo del ledger).
	// expectedVersion es la versión leída; si cambió se devuelve domain.ErrWriteConflict.
	UpdateQuantity(ctx context.Context, productID string, quantity, expectedVersion int64) error
	List(ctx context.Context, filter ProductFilter, limit, offset int) ([]*entity.Product, error)
	Delete(ctx context.Context, id string) error
}
