package ports

import (
	"context"

	"livecart/internal/core/domain"
)

type RoomRepository interface {
	Create(ctx context.Context, room *domain.Room) error
	GetByID(ctx context.Context, id domain.RoomID) (*domain.Room, error)
	Update(ctx context.Context, room *domain.Room) error
	Delete(ctx context.Context, id domain.RoomID) error
	ListActive(ctx context.Context) ([]*domain.Room, error)
}

type CatalogRepository interface {
	GetByID(ctx context.Context, id domain.ProductID) (*domain.Product, error)
	List(ctx context.Context) ([]*domain.Product, error)
}

type OrderRepository interface {
	Create(ctx context.Context, order *domain.Order) error
	ListByUser(ctx context.Context, userID domain.UserID) ([]*domain.Order, error)
}

type UserRepository interface {
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	Create(ctx context.Context, user *domain.User) error
}
