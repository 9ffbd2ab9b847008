package services

import (
	"context"
	"testing"
	"time"

	"livecart/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockCatalogRepository struct {
	mock.Mock
}

func (m *MockCatalogRepository) GetByID(ctx context.Context, id domain.ProductID) (*domain.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *MockCatalogRepository) List(ctx context.Context) ([]*domain.Product, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Product), args.Error(1)
}

type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *MockOrderRepository) ListByUser(ctx context.Context, userID domain.UserID) ([]*domain.Order, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Order), args.Error(1)
}

func TestOrderService_PlaceOrder(t *testing.T) {
	ctx := context.Background()
	mug := &domain.Product{ID: "sku-mug", Name: "Ceramic Mug", PriceCents: 1800}

	t.Run("prices the order from the catalog", func(t *testing.T) {
		catalog := new(MockCatalogRepository)
		catalog.On("GetByID", ctx, domain.ProductID("sku-mug")).Return(mug, nil)
		orders := new(MockOrderRepository)
		orders.On("Create", ctx, mock.AnythingOfType("*domain.Order")).Return(nil)

		svc := NewOrderService(orders, catalog)
		order, err := svc.PlaceOrder(ctx, 20, "sku-mug", "room-1", 3)
		require.NoError(t, err)

		assert.NotEmpty(t, order.ID)
		assert.Equal(t, domain.UserID(20), order.UserID)
		assert.Equal(t, domain.RoomID("room-1"), order.RoomID)
		assert.Equal(t, 3, order.Quantity)
		assert.Equal(t, int64(5400), order.TotalCents)
		orders.AssertExpectations(t)
	})

	t.Run("rejects unknown product", func(t *testing.T) {
		catalog := new(MockCatalogRepository)
		catalog.On("GetByID", ctx, domain.ProductID("sku-missing")).Return(nil, domain.ErrProductNotFound)
		orders := new(MockOrderRepository)

		svc := NewOrderService(orders, catalog)
		_, err := svc.PlaceOrder(ctx, 20, "sku-missing", "room-1", 1)
		assert.ErrorIs(t, err, domain.ErrProductNotFound)
		orders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("rejects non-positive quantity", func(t *testing.T) {
		svc := NewOrderService(new(MockOrderRepository), new(MockCatalogRepository))
		_, err := svc.PlaceOrder(ctx, 20, "sku-mug", "room-1", 0)
		assert.Error(t, err)
	})
}

func TestOrderService_ListOrders(t *testing.T) {
	ctx := context.Background()
	stored := []*domain.Order{
		{ID: "order-1", UserID: 20, ProductID: "sku-mug", Quantity: 1, CreatedAt: time.Now()},
	}

	orders := new(MockOrderRepository)
	orders.On("ListByUser", ctx, domain.UserID(20)).Return(stored, nil)

	svc := NewOrderService(orders, new(MockCatalogRepository))
	got, err := svc.ListOrders(ctx, 20)
	require.NoError(t, err)
	assert.Equal(t, stored, got)
}

func TestCatalogService_CachesReads(t *testing.T) {
	ctx := context.Background()
	mug := &domain.Product{ID: "sku-mug", Name: "Ceramic Mug", PriceCents: 1800}

	catalog := new(MockCatalogRepository)
	catalog.On("GetByID", ctx, domain.ProductID("sku-mug")).Return(mug, nil).Once()
	catalog.On("List", ctx).Return([]*domain.Product{mug}, nil).Once()

	svc := NewCatalogService(catalog, time.Minute)

	for i := 0; i < 3; i++ {
		got, err := svc.GetProduct(ctx, "sku-mug")
		require.NoError(t, err)
		assert.Equal(t, mug, got)

		list, err := svc.ListProducts(ctx)
		require.NoError(t, err)
		assert.Len(t, list, 1)
	}
	catalog.AssertExpectations(t)
}
