package memory

import (
	"context"
	"sort"
	"sync"

	"livecart/internal/core/domain"
	"livecart/internal/core/ports"
)

type MemoryOrderRepository struct {
	orders map[domain.OrderID]*domain.Order
	mu     sync.RWMutex
}

func NewMemoryOrderRepository() ports.OrderRepository {
	return &MemoryOrderRepository{
		orders: make(map[domain.OrderID]*domain.Order),
	}
}

func (r *MemoryOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *order
	r.orders[order.ID] = &stored
	return nil
}

func (r *MemoryOrderRepository) ListByUser(ctx context.Context, userID domain.UserID) ([]*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*domain.Order
	for _, order := range r.orders {
		if order.UserID == userID {
			o := *order
			out = append(out, &o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })

	return out, nil
}
