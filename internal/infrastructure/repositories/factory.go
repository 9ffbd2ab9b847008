package repositories

import (
	"context"

	"livecart/internal/core/domain"
	"livecart/internal/core/ports"
	"livecart/internal/infrastructure/repositories/memory"
	redisrepo "livecart/internal/infrastructure/repositories/redis"
	"livecart/pkg/config"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RepositoryFactory creates repositories with fallback support
type RepositoryFactory struct {
	useRedis    bool
	redisClient *redis.Client
	logger      *zap.SugaredLogger
}

// NewRepositoryFactory creates a new repository factory
func NewRepositoryFactory(cfg *config.Config, logger *zap.SugaredLogger) (*RepositoryFactory, error) {
	factory := &RepositoryFactory{
		useRedis: cfg.Redis.Enabled,
		logger:   logger,
	}

	// Try to connect to Redis if enabled
	if cfg.Redis.Enabled {
		client, err := redisrepo.NewRedisClient(
			cfg.Redis.Address,
			cfg.Redis.Password,
			cfg.Redis.DB,
			cfg.Redis.PoolSize,
			logger,
		)
		if err != nil {
			logger.Warnw("failed to connect to Redis, falling back to memory repositories",
				"error", err,
			)
			factory.useRedis = false
		} else {
			factory.redisClient = client
			logger.Info("using Redis repositories")
		}
	}

	if !factory.useRedis {
		logger.Info("using memory repositories")
	}

	return factory, nil
}

// CreateRoomRepository creates a room repository (Redis or memory with fallback)
func (f *RepositoryFactory) CreateRoomRepository() ports.RoomRepository {
	if f.useRedis && f.redisClient != nil {
		return redisrepo.NewRedisRoomRepository(f.redisClient)
	}
	return memory.NewMemoryRoomRepository()
}

// CreateCatalogRepository creates the catalog repository. The catalog is a
// fixed in-process seed; Redis adds nothing for read-only data.
func (f *RepositoryFactory) CreateCatalogRepository(seed []domain.Product) ports.CatalogRepository {
	return memory.NewMemoryCatalogRepository(seed)
}

// CreateOrderRepository creates the order repository (always memory for now)
func (f *RepositoryFactory) CreateOrderRepository() ports.OrderRepository {
	return memory.NewMemoryOrderRepository()
}

// CreateUserRepository creates the user repository (always memory for now)
func (f *RepositoryFactory) CreateUserRepository() ports.UserRepository {
	return memory.NewMemoryUserRepository()
}

// RedisClient exposes the shared Redis connection for components that need
// raw pub/sub access. Nil when running on memory repositories.
func (f *RepositoryFactory) RedisClient() *redis.Client {
	if !f.useRedis {
		return nil
	}
	return f.redisClient
}

// Close closes Redis connection if used
func (f *RepositoryFactory) Close() error {
	if f.redisClient != nil {
		return redisrepo.CloseRedisClient(f.redisClient)
	}
	return nil
}

// HealthCheck checks Redis connection health
func (f *RepositoryFactory) HealthCheck(ctx context.Context) error {
	if f.useRedis && f.redisClient != nil {
		return f.redisClient.Ping(ctx).Err()
	}
	return nil
}
