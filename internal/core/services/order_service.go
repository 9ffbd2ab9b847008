package services

import (
	"context"
	"fmt"
	"time"

	"livecart/internal/core/domain"
	"livecart/internal/core/ports"
	"livecart/pkg/validation"

	"github.com/google/uuid"
)

type orderService struct {
	orderRepo   ports.OrderRepository
	catalogRepo ports.CatalogRepository
}

func NewOrderService(orderRepo ports.OrderRepository, catalogRepo ports.CatalogRepository) ports.OrderService {
	return &orderService{orderRepo: orderRepo, catalogRepo: catalogRepo}
}

func (s *orderService) PlaceOrder(ctx context.Context, userID domain.UserID, productID domain.ProductID, roomID domain.RoomID, quantity int) (*domain.Order, error) {
	if err := validation.ValidateUserID(int64(userID)); err != nil {
		return nil, err
	}
	if quantity <= 0 {
		return nil, fmt.Errorf("quantity must be positive")
	}

	product, err := s.catalogRepo.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	order := &domain.Order{
		ID:         domain.OrderID(uuid.NewString()),
		UserID:     userID,
		ProductID:  productID,
		RoomID:     roomID,
		Quantity:   quantity,
		TotalCents: product.PriceCents * int64(quantity),
		CreatedAt:  time.Now(),
	}

	if err := s.orderRepo.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to store order: %w", err)
	}
	return order, nil
}

func (s *orderService) ListOrders(ctx context.Context, userID domain.UserID) ([]*domain.Order, error) {
	return s.orderRepo.ListByUser(ctx, userID)
}
