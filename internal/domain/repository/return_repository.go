package repository

import (
	"context"

	"github.com/jhoicas/storeflow-api/internal/domain/entity"
)

// ReturnRepository define el puerto de persistencia para devoluciones.
type ReturnRepository interface {
	Create(ctx context.Context, ret *entity.ReturnRequest) error
	GetByID(ctx context.Context, id string) (*entity.ReturnRequest, error)
	// GetForUpdate bloquea la devolución para revisarla dentro de una transacción.
	GetForUpdate(ctx context.Context, id string) (*entity.ReturnRequest, error)
	Update(ctx context.Context, ret *entity.ReturnRequest) error
	// List ordena por fecha de creación descendente; status vacío = todos.
	List(ctx context.Context, status entity.ReturnStatus, limit, offset int) ([]*entity.ReturnRequest, error)
}
