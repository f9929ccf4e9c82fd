package repository

import (
	"context"

	"github.com/jhoicas/storeflow-api/internal/domain/entity"
)

// UserRepository define el puerto de persistencia para User (DIP).
type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	GetByID(ctx context.Context, id string) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	// List ordena por fecha de creación descendente.
	List(ctx context.Context, limit, offset int) ([]*entity.User, error)
}
