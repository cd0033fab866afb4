package cached_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/shopcore/internal/domain"
	"github.com/vladislavdragonenkov/shopcore/internal/metrics"
	"github.com/vladislavdragonenkov/shopcore/internal/storage/cached"
	"github.com/vladislavdragonenkov/shopcore/internal/storage/memory"
)

// spyStore считает обращения к backing store.
type spyStore struct {
	products map[string]*domain.Product

	getByIDCalls   int
	getBySKUCalls  int
	paginatedCalls int
	searchCalls    int
	stockCalls     int
	commits        int
}

func newSpyStore(products ...*domain.Product) *spyStore {
	s := &spyStore{products: make(map[string]*domain.Product)}
	for _, p := range products {
		s.products[p.ID] = p
	}
	return s
}

func (s *spyStore) GetByID(_ context.Context, id string) (*domain.Product, error) {
	s.getByIDCalls++
	return s.products[id], nil
}

func (s *spyStore) GetBySKU(_ context.Context, sku string) (*domain.Product, error) {
	s.getBySKUCalls++
	for _, p := range s.products {
		if p.SKU == sku {
			return p, nil
		}
	}
	return nil, nil
}

func (s *spyStore) Add(_ context.Context, product *domain.Product) error {
	s.products[product.ID] = product
	return nil
}

func (s *spyStore) Update(_ context.Context, product *domain.Product) error {
	s.products[product.ID] = product
	return nil
}

func (s *spyStore) Delete(_ context.Context, product *domain.Product) error {
	delete(s.products, product.ID)
	return nil
}

func (s *spyStore) GetPaginated(_ context.Context, req domain.ProductPageRequest) (*domain.ProductPage, error) {
	s.paginatedCalls++
	return &domain.ProductPage{PageIndex: req.PageIndex, PageSize: req.PageSize}, nil
}

func (s *spyStore) SearchProducts(_ context.Context, _ string) ([]*domain.Product, error) {
	s.searchCalls++
	return nil, nil
}

func (s *spyStore) GetStockLevels(_ context.Context, ids []string) (map[string]int32, error) {
	s.stockCalls++
	levels := make(map[string]int32)
	for _, id := range ids {
		if p, ok := s.products[id]; ok {
			levels[id] = p.StockQuantity
		}
	}
	return levels, nil
}

func (s *spyStore) Commit(_ context.Context) error {
	s.commits++
	return nil
}

var _ domain.ProductRepository = (*spyStore)(nil)

func testProduct(t *testing.T) *domain.Product {
	t.Helper()

	product, err := domain.NewProduct("keyboard", "mechanical", "acme", "KB-001", 2500, 10)
	require.NoError(t, err)
	product.ClearEvents()
	return product
}

func newCachedRepo(store domain.ProductRepository, cache domain.CacheStore) *cached.ProductRepository {
	return cached.NewProductRepository(store, cache, metrics.NewCacheMetrics(), nil)
}

func TestNewProductRepository_NilMetricsAndLogger(t *testing.T) {
	ctx := context.Background()
	product := testProduct(t)
	store := newSpyStore(product)

	// Конструктор подставляет метрики и логгер по умолчанию.
	repo := cached.NewProductRepository(store, memory.NewCache(), nil, nil)

	got, err := repo.GetByID(ctx, product.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, product.SKU, got.SKU)
}

func TestGetByID_SecondReadServedFromCache(t *testing.T) {
	ctx := context.Background()
	product := testProduct(t)
	store := newSpyStore(product)
	repo := newCachedRepo(store, memory.NewCache())

	first, err := repo.GetByID(ctx, product.ID)
	require.NoError(t, err)
	require.NotNil(t, first)
	require.Equal(t, 1, store.getByIDCalls)

	// Повторное чтение в пределах TTL не должно трогать хранилище.
	second, err := repo.GetByID(ctx, product.ID)
	require.NoError(t, err)
	require.NotNil(t, second)
	require.Equal(t, product.SKU, second.SKU)
	require.Equal(t, 1, store.getByIDCalls)
}

func TestGetByID_MissingProductNotCached(t *testing.T) {
	ctx := context.Background()
	store := newSpyStore()
	repo := newCachedRepo(store, memory.NewCache())

	product, err := repo.GetByID(ctx, "missing")
	require.NoError(t, err)
	require.Nil(t, product)

	// Отрицательные результаты не кэшируются.
	_, err = repo.GetByID(ctx, "missing")
	require.NoError(t, err)
	require.Equal(t, 2, store.getByIDCalls)
}

func TestUpdate_ForcesNextReadToStore(t *testing.T) {
	ctx := context.Background()
	product := testProduct(t)
	store := newSpyStore(product)
	repo := newCachedRepo(store, memory.NewCache())

	_, err := repo.GetByID(ctx, product.ID)
	require.NoError(t, err)
	require.Equal(t, 1, store.getByIDCalls)

	require.NoError(t, product.UpdateStock(3))
	product.ClearEvents()
	require.NoError(t, repo.Update(ctx, product))

	// Следующее чтение — принудительный промах независимо от остатка TTL.
	got, err := repo.GetByID(ctx, product.ID)
	require.NoError(t, err)
	require.Equal(t, int32(3), got.StockQuantity)
	require.Equal(t, 2, store.getByIDCalls)
}

func TestDelete_InvalidatesPerIDKey(t *testing.T) {
	ctx := context.Background()
	product := testProduct(t)
	store := newSpyStore(product)
	repo := newCachedRepo(store, memory.NewCache())

	_, err := repo.GetByID(ctx, product.ID)
	require.NoError(t, err)

	require.NoError(t, repo.Delete(ctx, product))

	got, err := repo.GetByID(ctx, product.ID)
	require.NoError(t, err)
	require.Nil(t, got)
	require.Equal(t, 2, store.getByIDCalls)
}

func TestAdd_EvictsCollectionCacheOnly(t *testing.T) {
	ctx := context.Background()
	existing := testProduct(t)
	store := newSpyStore(existing)
	cache := memory.NewCache()
	repo := newCachedRepo(store, cache)

	// Прогреваем точечный ключ и имитируем кэш коллекции.
	_, err := repo.GetByID(ctx, existing.ID)
	require.NoError(t, err)
	require.NoError(t, cache.Set(ctx, "products:page:1", []byte("page"), time.Minute))

	newcomer, err := domain.NewProduct("mouse", "", "acme", "MS-001", 1000, 5)
	require.NoError(t, err)
	require.NoError(t, repo.Add(ctx, newcomer))

	// Кэш коллекции сброшен, точечный ключ существующего товара жив.
	_, found, err := cache.Get(ctx, "products:page:1")
	require.NoError(t, err)
	require.False(t, found)

	_, err = repo.GetByID(ctx, existing.ID)
	require.NoError(t, err)
	require.Equal(t, 1, store.getByIDCalls)

	// Точечный ключ нового товара не заполнялся: первое чтение идёт в хранилище.
	_, err = repo.GetByID(ctx, newcomer.ID)
	require.NoError(t, err)
	require.Equal(t, 2, store.getByIDCalls)
}

func TestGetBySKU_AlwaysHitsStore(t *testing.T) {
	ctx := context.Background()
	product := testProduct(t)
	store := newSpyStore(product)
	repo := newCachedRepo(store, memory.NewCache())

	for i := 0; i < 2; i++ {
		got, err := repo.GetBySKU(ctx, product.SKU)
		require.NoError(t, err)
		require.NotNil(t, got)
	}
	require.Equal(t, 2, store.getBySKUCalls)
}

func TestGetPaginated_BypassesCacheAndValidates(t *testing.T) {
	ctx := context.Background()
	store := newSpyStore()
	repo := newCachedRepo(store, memory.NewCache())

	_, err := repo.GetPaginated(ctx, domain.ProductPageRequest{PageIndex: 0, PageSize: 10})
	require.ErrorIs(t, err, domain.ErrPageInvalid)
	require.Equal(t, 0, store.paginatedCalls)

	for i := 0; i < 2; i++ {
		_, err := repo.GetPaginated(ctx, domain.ProductPageRequest{PageIndex: 1, PageSize: 10})
		require.NoError(t, err)
	}
	require.Equal(t, 2, store.paginatedCalls)
}

func TestCommit_PassesThrough(t *testing.T) {
	ctx := context.Background()
	store := newSpyStore()
	repo := newCachedRepo(store, memory.NewCache())

	require.NoError(t, repo.Commit(ctx))
	require.Equal(t, 1, store.commits)
}
