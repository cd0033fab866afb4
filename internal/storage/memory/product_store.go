package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/vladislavdragonenkov/shopcore/internal/domain"
)

// stagedOp — отложенная операция записи; применяется при Commit.
type stagedOp struct {
	kind    string // "add" | "update" | "delete"
	product domain.Product
}

// productStoreInMemory — in-memory реализация ProductRepository для
// локальной разработки и тестов. Записи копятся в pending-наборе и
// применяются атомарно при Commit, как у SQL-хранилища.
type productStoreInMemory struct {
	mu      sync.RWMutex
	items   map[string]domain.Product
	pending []stagedOp
}

// NewProductStore возвращает in-memory хранилище каталога.
func NewProductStore() domain.ProductRepository {
	return &productStoreInMemory{
		items: make(map[string]domain.Product),
	}
}

func (s *productStoreInMemory) GetByID(_ context.Context, id string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	product, ok := s.items[id]
	if !ok {
		return nil, nil
	}
	return cloneProduct(product, domain.IncludeAll), nil
}

func (s *productStoreInMemory) GetBySKU(_ context.Context, sku string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, product := range s.items {
		if product.SKU == sku {
			return cloneProduct(product, domain.IncludeAll), nil
		}
	}
	return nil, nil
}

func (s *productStoreInMemory) Add(_ context.Context, product *domain.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pending = append(s.pending, stagedOp{kind: "add", product: *cloneProduct(*product, domain.IncludeAll)})
	return nil
}

func (s *productStoreInMemory) Update(_ context.Context, product *domain.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pending = append(s.pending, stagedOp{kind: "update", product: *cloneProduct(*product, domain.IncludeAll)})
	return nil
}

func (s *productStoreInMemory) Delete(_ context.Context, product *domain.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pending = append(s.pending, stagedOp{kind: "delete", product: *cloneProduct(*product, 0)})
	return nil
}

// Commit применяет pending-набор. При нарушении уникальности (id или SKU
// нового товара) набор очищается, состояние остаётся прежним.
func (s *productStoreInMemory) Commit(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ops := s.pending
	s.pending = nil

	for _, op := range ops {
		if op.kind != "add" {
			continue
		}
		if _, exists := s.items[op.product.ID]; exists {
			return domain.ErrVersionConflict
		}
		for _, existing := range s.items {
			if existing.SKU == op.product.SKU {
				return domain.ErrDuplicateSKU
			}
		}
	}

	for _, op := range ops {
		switch op.kind {
		case "add", "update":
			s.items[op.product.ID] = op.product
		case "delete":
			delete(s.items, op.product.ID)
		}
	}
	return nil
}

func (s *productStoreInMemory) GetPaginated(_ context.Context, req domain.ProductPageRequest) (*domain.ProductPage, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]domain.Product, 0, len(s.items))
	for _, product := range s.items {
		if req.Filter != nil && !matchesFilter(product, *req.Filter) {
			continue
		}
		matched = append(matched, product)
	}

	sortProducts(matched, req.OrderBy)

	total := int64(len(matched))
	offset := req.Offset()
	if offset > len(matched) {
		offset = len(matched)
	}
	end := offset + req.PageSize
	if end > len(matched) {
		end = len(matched)
	}

	page := &domain.ProductPage{
		Items:      make([]*domain.Product, 0, end-offset),
		TotalCount: total,
		PageIndex:  req.PageIndex,
		PageSize:   req.PageSize,
	}
	for _, product := range matched[offset:end] {
		page.Items = append(page.Items, cloneProduct(product, req.Include))
	}
	return page, nil
}

func (s *productStoreInMemory) SearchProducts(_ context.Context, term string) ([]*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	needle := strings.ToLower(term)
	matched := make([]domain.Product, 0)
	for _, product := range s.items {
		if !product.Active {
			continue
		}
		haystack := strings.ToLower(product.Name + " " + product.Description + " " + product.Brand + " " + product.SKU)
		if strings.Contains(haystack, needle) {
			matched = append(matched, product)
		}
	}

	sortProducts(matched, domain.OrderByNameAsc)
	if len(matched) > domain.SearchLimit {
		matched = matched[:domain.SearchLimit]
	}

	result := make([]*domain.Product, 0, len(matched))
	for _, product := range matched {
		result = append(result, cloneProduct(product, domain.IncludeAll))
	}
	return result, nil
}

func (s *productStoreInMemory) GetStockLevels(_ context.Context, ids []string) (map[string]int32, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	levels := make(map[string]int32, len(ids))
	for _, id := range ids {
		if product, ok := s.items[id]; ok {
			levels[id] = product.StockQuantity
		}
	}
	return levels, nil
}

func matchesFilter(product domain.Product, filter domain.ProductFilter) bool {
	if filter.Brand != "" && product.Brand != filter.Brand {
		return false
	}
	if filter.ActiveOnly && !product.Active {
		return false
	}
	if filter.MinPriceMinor > 0 && product.PriceMinor < filter.MinPriceMinor {
		return false
	}
	if filter.MaxPriceMinor > 0 && product.PriceMinor > filter.MaxPriceMinor {
		return false
	}
	if filter.CategoryID != "" {
		found := false
		for _, category := range product.Categories {
			if category.ID == filter.CategoryID {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func sortProducts(products []domain.Product, orderBy domain.ProductOrderBy) {
	sort.Slice(products, func(i, j int) bool {
		switch orderBy {
		case domain.OrderByPriceAsc:
			return products[i].PriceMinor < products[j].PriceMinor
		case domain.OrderByPriceDesc:
			return products[i].PriceMinor > products[j].PriceMinor
		case domain.OrderByNewest:
			return products[i].CreatedAt.After(products[j].CreatedAt)
		default:
			return products[i].Name < products[j].Name
		}
	})
}

// cloneProduct копирует товар, отрезая незапрошенные коллекции и
// очищая очередь событий: хранилище не владеет событиями агрегата.
func cloneProduct(product domain.Product, include domain.ProductInclude) *domain.Product {
	clone := product
	clone.ClearEvents()

	clone.Variants = nil
	clone.Images = nil
	clone.Categories = nil
	if include.Has(domain.IncludeVariants) && len(product.Variants) > 0 {
		clone.Variants = append([]domain.ProductVariant(nil), product.Variants...)
	}
	if include.Has(domain.IncludeImages) && len(product.Images) > 0 {
		clone.Images = append([]domain.ProductImage(nil), product.Images...)
	}
	if include.Has(domain.IncludeCategories) && len(product.Categories) > 0 {
		clone.Categories = append([]domain.ProductCategory(nil), product.Categories...)
	}
	return &clone
}

var _ domain.ProductRepository = (*productStoreInMemory)(nil)
