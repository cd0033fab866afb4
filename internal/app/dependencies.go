package app

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/shopcore/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/shopcore/internal/health"
	"github.com/vladislavdragonenkov/shopcore/internal/metrics"
	"github.com/vladislavdragonenkov/shopcore/internal/service/catalog"
	"github.com/vladislavdragonenkov/shopcore/internal/service/orders"
	"github.com/vladislavdragonenkov/shopcore/internal/storage/cached"
	"github.com/vladislavdragonenkov/shopcore/internal/storage/memory"
	"github.com/vladislavdragonenkov/shopcore/internal/storage/postgres"
	redisstore "github.com/vladislavdragonenkov/shopcore/internal/storage/redis"
)

// Dependencies содержит собранный граф зависимостей приложения.
type Dependencies struct {
	Products domain.ProductRepository
	Orders   domain.OrderRepository
	Timeline domain.TimelineRepository
	Outbox   domain.OutboxRepository

	Catalog      *catalog.Service
	OrderService *orders.Service

	Logger *log.Entry

	store      *postgres.Store
	redisCache *redisstore.Cache
}

// NewDependencies собирает хранилища и сервисы по конфигурации.
// Репозиторий каталога всегда оборачивается в cache-aside декоратор:
// либо поверх Redis, либо поверх процессного кэша.
func NewDependencies(ctx context.Context, cfg Config, logger *log.Entry) (*Dependencies, error) {
	if logger == nil {
		logger = log.WithField("component", "app")
	}

	deps := &Dependencies{Logger: logger}

	var productStore domain.ProductRepository

	switch cfg.StorageDriver {
	case StorageDriverPostgres:
		store, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		if cfg.PostgresAutoMigrate {
			if err := store.EnsureSchema(ctx); err != nil {
				_ = store.Close()
				return nil, fmt.Errorf("apply migrations: %w", err)
			}
		}
		deps.store = store
		productStore = postgres.NewProductStore(store)
		deps.Orders = postgres.NewOrderRepository(store)
		deps.Outbox = postgres.NewOutboxRepository(store)
		deps.Timeline = postgres.NewTimelineRepository(store)
		logger.Info("postgres storage initialized")
	case StorageDriverMemory, "":
		productStore = memory.NewProductStore()
		deps.Orders = memory.NewOrderRepository()
		deps.Outbox = memory.NewOutboxRepository()
		deps.Timeline = memory.NewTimelineRepository()
		logger.Info("in-memory storage initialized")
	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", cfg.StorageDriver)
	}

	var cache domain.CacheStore
	if cfg.RedisAddr != "" {
		redisCache, err := redisstore.Open(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			deps.Close()
			return nil, fmt.Errorf("open redis: %w", err)
		}
		deps.redisCache = redisCache
		cache = redisCache
		logger.WithField("addr", cfg.RedisAddr).Info("redis cache initialized")
	} else {
		cache = memory.NewCache()
		logger.Info("in-process cache initialized")
	}

	deps.Products = cached.NewProductRepository(
		productStore,
		cache,
		metrics.NewCacheMetrics(),
		logger.WithField("component", "product-cache"),
	)

	deps.Catalog = catalog.NewService(deps.Products, deps.Outbox, logger.WithField("component", "catalog-service"))
	deps.OrderService = orders.NewService(deps.Orders, deps.Timeline, deps.Outbox, logger.WithField("component", "orders-service"))

	return deps, nil
}

// RegisterHealthChecks добавляет проверки внешних зависимостей.
func (d *Dependencies) RegisterHealthChecks(handler *healthcheck.Handler) {
	if d.store != nil {
		store := d.store
		handler.RegisterChecker("postgres", healthcheck.NewSimpleChecker("postgres", func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return store.Ping(ctx)
		}))
	}
	if d.redisCache != nil {
		cache := d.redisCache
		handler.RegisterChecker("redis", healthcheck.NewSimpleChecker("redis", func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return cache.Ping(ctx)
		}))
	}
}

// Close освобождает внешние подключения.
func (d *Dependencies) Close() {
	if d.redisCache != nil {
		if err := d.redisCache.Close(); err != nil {
			d.Logger.WithError(err).Warn("failed to close redis client")
		}
	}
	if d.store != nil {
		if err := d.store.Close(); err != nil {
			d.Logger.WithError(err).Warn("failed to close postgres store")
		}
	}
}
