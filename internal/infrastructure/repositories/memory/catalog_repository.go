package memory

import (
	"context"
	"sort"
	"sync"

	"livecart/internal/core/domain"
	"livecart/internal/core/ports"
)

type MemoryCatalogRepository struct {
	products map[domain.ProductID]*domain.Product
	mu       sync.RWMutex
}

// NewMemoryCatalogRepository seeds the catalog up front; there is no write
// path, the selection a seller can share is fixed for the process lifetime.
func NewMemoryCatalogRepository(seed []domain.Product) ports.CatalogRepository {
	products := make(map[domain.ProductID]*domain.Product, len(seed))
	for i := range seed {
		p := seed[i]
		products[p.ID] = &p
	}
	return &MemoryCatalogRepository{products: products}
}

func (r *MemoryCatalogRepository) GetByID(ctx context.Context, id domain.ProductID) (*domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	product, exists := r.products[id]
	if !exists {
		return nil, domain.ErrProductNotFound
	}

	out := *product
	return &out, nil
}

func (r *MemoryCatalogRepository) List(ctx context.Context) ([]*domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.Product, 0, len(r.products))
	for _, product := range r.products {
		p := *product
		out = append(out, &p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	return out, nil
}
