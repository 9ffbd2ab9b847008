package ports

import (
	"context"

	"livecart/internal/core/domain"
)

type RoomService interface {
	CreateRoom(ctx context.Context, title string, seller domain.UserID) (*domain.Room, error)
	GetRoom(ctx context.Context, id domain.RoomID) (*domain.Room, error)
	ListRooms(ctx context.Context) ([]*domain.Room, error)
	// Join is the admission check: it fails for unknown or ended rooms and
	// returns the room snapshot a participant sees before opening the channel.
	Join(ctx context.Context, id domain.RoomID, userID domain.UserID, role domain.Role) (*domain.Room, error)
	Leave(ctx context.Context, id domain.RoomID, userID domain.UserID) error
	EndRoom(ctx context.Context, id domain.RoomID) error
	SetViewerCount(ctx context.Context, id domain.RoomID, count int) error
}

type CatalogService interface {
	GetProduct(ctx context.Context, id domain.ProductID) (*domain.Product, error)
	ListProducts(ctx context.Context) ([]*domain.Product, error)
}

type OrderService interface {
	PlaceOrder(ctx context.Context, userID domain.UserID, productID domain.ProductID, roomID domain.RoomID, quantity int) (*domain.Order, error)
	ListOrders(ctx context.Context, userID domain.UserID) ([]*domain.Order, error)
}
