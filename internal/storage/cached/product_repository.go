// Package cached реализует cache-aside декоратор над хранилищем каталога:
// точечные чтения идут через кэш, записи всегда попадают в backing store
// и синхронно инвалидируют устаревшие ключи.
package cached

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/shopcore/internal/domain"
	"github.com/vladislavdragonenkov/shopcore/internal/metrics"
)

const (
	// productCacheTTL фиксирован и не настраивается на уровне вызова.
	productCacheTTL = 5 * time.Minute

	productKeyPrefix = "product:"
	// productsPattern покрывает кэш коллекций каталога — он отделён
	// от точечных ключей product:{id}.
	productsPattern = "products:*"
)

// ProductRepository оборачивает backing store кэшем.
//
// Инвалидация выполняется в момент staging записи, до коммита unit of
// work (store работает под read-committed). Падение между инвалидацией
// и коммитом безопасно: кэш просто пуст, следующий читатель заполнит
// его из хранилища; окно устаревшего перезаполнения закрывается TTL.
type ProductRepository struct {
	store   domain.ProductRepository
	cache   domain.CacheStore
	metrics *metrics.CacheMetrics
	logger  *log.Entry
}

// NewProductRepository создаёт cache-aside репозиторий каталога.
// Нулевые metrics и logger заменяются значениями по умолчанию.
func NewProductRepository(store domain.ProductRepository, cache domain.CacheStore, cacheMetrics *metrics.CacheMetrics, logger *log.Entry) *ProductRepository {
	if logger == nil {
		logger = log.WithField("component", "cached-product-repository")
	}
	if cacheMetrics == nil {
		cacheMetrics = metrics.NewCacheMetrics()
	}
	return &ProductRepository{
		store:   store,
		cache:   cache,
		metrics: cacheMetrics,
		logger:  logger,
	}
}

func productKey(id string) string {
	return productKeyPrefix + id
}

// GetByID возвращает товар из кэша; при промахе читает хранилище и
// заполняет кэш с фиксированным TTL.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	start := time.Now()
	defer func() {
		r.metrics.RecordLookupDuration("get_by_id", time.Since(start))
	}()

	key := productKey(id)
	payload, found, err := r.cache.Get(ctx, key)
	if err != nil {
		// Недоступный кэш не валит чтение: падаем в хранилище.
		r.logger.WithError(err).WithField("key", key).Warn("cache get failed, falling back to store")
	}
	if err == nil && found {
		var product domain.Product
		if unmarshalErr := json.Unmarshal(payload, &product); unmarshalErr == nil {
			r.metrics.RecordCacheHit()
			return &product, nil
		}
		r.logger.WithField("key", key).Warn("corrupted cache entry, evicting")
		if removeErr := r.cache.Remove(ctx, key); removeErr != nil {
			r.logger.WithError(removeErr).WithField("key", key).Warn("failed to evict corrupted cache entry")
		}
	}

	r.metrics.RecordCacheMiss()
	r.metrics.RecordStoreRead()

	product, err := r.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, nil
	}

	if encoded, marshalErr := json.Marshal(product); marshalErr == nil {
		if setErr := r.cache.Set(ctx, key, encoded, productCacheTTL); setErr != nil {
			r.logger.WithError(setErr).WithField("key", key).Warn("failed to populate cache")
		}
	}
	return product, nil
}

// GetBySKU всегда читает хранилище: SKU-поиск используется для проверки
// уникальности и должен видеть последнее закоммиченное состояние.
func (r *ProductRepository) GetBySKU(ctx context.Context, sku string) (*domain.Product, error) {
	start := time.Now()
	defer func() {
		r.metrics.RecordLookupDuration("get_by_sku", time.Since(start))
	}()

	r.metrics.RecordStoreRead()
	return r.store.GetBySKU(ctx, sku)
}

// Add ставит новый товар в pending-набор хранилища и сбрасывает кэш
// коллекций. Точечный ключ нового id не заполняется: первое чтение —
// принудительный промах с заполнением из хранилища.
func (r *ProductRepository) Add(ctx context.Context, product *domain.Product) error {
	if err := r.store.Add(ctx, product); err != nil {
		return err
	}
	if err := r.cache.RemoveByPattern(ctx, productsPattern); err != nil {
		return fmt.Errorf("evict collection cache: %w", err)
	}
	r.metrics.RecordEviction("add")
	return nil
}

// Update ставит изменение в pending-набор и инвалидирует и точечный
// ключ, и кэш коллекций.
func (r *ProductRepository) Update(ctx context.Context, product *domain.Product) error {
	if err := r.store.Update(ctx, product); err != nil {
		return err
	}
	return r.invalidate(ctx, product.ID, "update")
}

// Delete ставит удаление в pending-набор и инвалидирует оба пути кэша.
func (r *ProductRepository) Delete(ctx context.Context, product *domain.Product) error {
	if err := r.store.Delete(ctx, product); err != nil {
		return err
	}
	return r.invalidate(ctx, product.ID, "delete")
}

func (r *ProductRepository) invalidate(ctx context.Context, id, operation string) error {
	if err := r.cache.Remove(ctx, productKey(id)); err != nil {
		return fmt.Errorf("evict product cache: %w", err)
	}
	if err := r.cache.RemoveByPattern(ctx, productsPattern); err != nil {
		return fmt.Errorf("evict collection cache: %w", err)
	}
	r.metrics.RecordEviction(operation)
	return nil
}

// GetPaginated выполняет выборку напрямую из хранилища, минуя кэш.
func (r *ProductRepository) GetPaginated(ctx context.Context, req domain.ProductPageRequest) (*domain.ProductPage, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	defer func() {
		r.metrics.RecordLookupDuration("get_paginated", time.Since(start))
	}()

	r.metrics.RecordStoreRead()
	return r.store.GetPaginated(ctx, req)
}

// SearchProducts выполняет поиск напрямую из хранилища, минуя кэш.
func (r *ProductRepository) SearchProducts(ctx context.Context, term string) ([]*domain.Product, error) {
	start := time.Now()
	defer func() {
		r.metrics.RecordLookupDuration("search", time.Since(start))
	}()

	r.metrics.RecordStoreRead()
	return r.store.SearchProducts(ctx, term)
}

// GetStockLevels выполняет массовое чтение остатков напрямую из хранилища.
func (r *ProductRepository) GetStockLevels(ctx context.Context, ids []string) (map[string]int32, error) {
	r.metrics.RecordStoreRead()
	return r.store.GetStockLevels(ctx, ids)
}

// Commit передаёт коммит unit of work хранилищу; кэш в коммите не участвует.
func (r *ProductRepository) Commit(ctx context.Context) error {
	return r.store.Commit(ctx)
}

var _ domain.ProductRepository = (*ProductRepository)(nil)
