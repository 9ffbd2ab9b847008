package services

import (
	"context"
	"time"

	"livecart/internal/core/domain"
	"livecart/internal/core/ports"
	"livecart/pkg/cache"
	"livecart/pkg/validation"
)

const catalogListKey = "catalog:list"

type catalogService struct {
	catalogRepo ports.CatalogRepository
	cache       *cache.Cache
}

// NewCatalogService returns a catalog service that caches listings for
// cacheTTL. The catalog changes rarely compared to how often viewers load it.
func NewCatalogService(catalogRepo ports.CatalogRepository, cacheTTL time.Duration) ports.CatalogService {
	return &catalogService{
		catalogRepo: catalogRepo,
		cache:       cache.New(cacheTTL),
	}
}

func (s *catalogService) GetProduct(ctx context.Context, id domain.ProductID) (*domain.Product, error) {
	if err := validation.ValidateProductID(string(id)); err != nil {
		return nil, err
	}

	if v, ok := s.cache.Get("catalog:product:" + string(id)); ok {
		return v.(*domain.Product), nil
	}

	product, err := s.catalogRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.cache.Set("catalog:product:"+string(id), product)
	return product, nil
}

func (s *catalogService) ListProducts(ctx context.Context) ([]*domain.Product, error) {
	if v, ok := s.cache.Get(catalogListKey); ok {
		return v.([]*domain.Product), nil
	}

	products, err := s.catalogRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	s.cache.Set(catalogListKey, products)
	return products, nil
}
