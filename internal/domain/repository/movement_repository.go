package repository

import (
	"context"
	"time"

	"github.com/jhoicas/storeflow-api/internal/domain/entity"
)

// MovementFilter filtros del historial. Los campos vacíos no filtran.
type MovementFilter struct {
	ProductID   string
	WarehouseID string // coincide con WarehouseID, FromWarehouseID o ToWarehouseID
	Kind        entity.MovementKind
	From, To    *time.Time // From inclusivo, To exclusivo
	Limit       int
	Offset      int
}

// MovementRepository puerto del ledger: solo inserción y lectura (append-only).
type MovementRepository interface {
	// Create agrega un movimiento. Si ID está vacío se genera uno.
	Create(ctx context.Context, movement *entity.Movement) error
	GetByID(ctx context.Context, id string) (*entity.Movement, error)
	// List devuelve movimientos ordenados por CreatedAt descendente.
	List(ctx context.Context, filter MovementFilter) ([]*entity.Movement, error)
	ExistsForProduct(ctx context.Context, productID string) (bool, error)
	ExistsForWarehouse(ctx context.Context, warehouseID string) (bool, error)
}

// SequenceRepository contador diario de salidas, del lado del store.
type SequenceRepository interface {
	// Next incrementa y devuelve la secuencia del día (la primera del día es 1).
	Next(ctx context.Context, day string) (int64, error)
}
