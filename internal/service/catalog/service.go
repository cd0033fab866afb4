// Package catalog реализует операции над товарами: мутации проходят через
// агрегат, накопленные доменные события уходят в transactional outbox в той
// же единице работы, что и запись в хранилище.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/shopcore/internal/domain"
)

// Service — сервис каталога поверх ProductRepository.
type Service struct {
	products domain.ProductRepository
	outbox   domain.OutboxRepository
	logger   *log.Entry
}

// NewService конструирует сервис каталога.
func NewService(products domain.ProductRepository, outbox domain.OutboxRepository, logger *log.Entry) *Service {
	if logger == nil {
		logger = log.WithField("component", "catalog-service")
	}
	return &Service{
		products: products,
		outbox:   outbox,
		logger:   logger,
	}
}

// CreateProductInput — параметры создания товара.
type CreateProductInput struct {
	Name          string
	Description   string
	Brand         string
	SKU           string
	PriceMinor    int64
	StockQuantity int32
}

// CreateProduct создаёт товар. SKU проверяется на уникальность до создания:
// проверка идёт напрямую в хранилище, минуя кэш.
func (s *Service) CreateProduct(ctx context.Context, input CreateProductInput) (*domain.Product, error) {
	existing, err := s.products.GetBySKU(ctx, input.SKU)
	if err != nil {
		return nil, fmt.Errorf("check sku uniqueness: %w", err)
	}
	if existing != nil {
		return nil, domain.ErrDuplicateSKU
	}

	product, err := domain.NewProduct(
		input.Name, input.Description, input.Brand, input.SKU,
		input.PriceMinor, input.StockQuantity,
	)
	if err != nil {
		return nil, err
	}

	if err := s.products.Add(ctx, product); err != nil {
		return nil, fmt.Errorf("stage product: %w", err)
	}
	if err := s.drainEvents(product.ID, product.Events()); err != nil {
		return nil, err
	}
	product.ClearEvents()

	if err := s.products.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit product: %w", err)
	}

	s.logger.WithFields(log.Fields{
		"product_id": product.ID,
		"sku":        product.SKU,
	}).Info("product created")

	return product, nil
}

// GetProduct возвращает товар со всеми коллекциями.
func (s *Service) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	product, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, domain.ErrProductNotFound
	}
	return product, nil
}

// GetProductBySKU ищет товар по бизнес-ключу.
func (s *Service) GetProductBySKU(ctx context.Context, sku string) (*domain.Product, error) {
	product, err := s.products.GetBySKU(ctx, sku)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, domain.ErrProductNotFound
	}
	return product, nil
}

// ListProducts возвращает страницу каталога.
func (s *Service) ListProducts(ctx context.Context, req domain.ProductPageRequest) (*domain.ProductPage, error) {
	return s.products.GetPaginated(ctx, req)
}

// SearchProducts выполняет полнотекстовый поиск по активным товарам.
func (s *Service) SearchProducts(ctx context.Context, term string) ([]*domain.Product, error) {
	return s.products.SearchProducts(ctx, term)
}

// GetStockLevels возвращает остатки по списку товаров.
func (s *Service) GetStockLevels(ctx context.Context, ids []string) (map[string]int32, error) {
	return s.products.GetStockLevels(ctx, ids)
}

// UpdateStock устанавливает новый остаток товара.
func (s *Service) UpdateStock(ctx context.Context, id string, quantity int32) (*domain.Product, error) {
	return s.mutate(ctx, id, func(p *domain.Product) error {
		return p.UpdateStock(quantity)
	})
}

// UpdatePrice устанавливает новую цену товара.
func (s *Service) UpdatePrice(ctx context.Context, id string, priceMinor int64) (*domain.Product, error) {
	return s.mutate(ctx, id, func(p *domain.Product) error {
		return p.UpdatePrice(priceMinor)
	})
}

// AddVariant добавляет вариант товара.
func (s *Service) AddVariant(ctx context.Context, id, name, value string, priceAdjustmentMinor int64) (*domain.Product, error) {
	return s.mutate(ctx, id, func(p *domain.Product) error {
		p.AddVariant(name, value, priceAdjustmentMinor)
		return nil
	})
}

// AddImage добавляет изображение товара.
func (s *Service) AddImage(ctx context.Context, id, url string, isMain bool) (*domain.Product, error) {
	return s.mutate(ctx, id, func(p *domain.Product) error {
		p.AddImage(url, isMain)
		return nil
	})
}

// AddCategory привязывает товар к категории.
func (s *Service) AddCategory(ctx context.Context, id, categoryID, categoryName string) (*domain.Product, error) {
	return s.mutate(ctx, id, func(p *domain.Product) error {
		p.AddCategory(categoryID, categoryName)
		return nil
	})
}

// DeactivateProduct снимает товар с продажи. Операция необратима.
func (s *Service) DeactivateProduct(ctx context.Context, id string) (*domain.Product, error) {
	return s.mutate(ctx, id, func(p *domain.Product) error {
		p.Deactivate()
		return nil
	})
}

// DeleteProduct удаляет товар из каталога.
func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	product, err := s.products.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if product == nil {
		return domain.ErrProductNotFound
	}

	if err := s.products.Delete(ctx, product); err != nil {
		return fmt.Errorf("stage delete: %w", err)
	}
	if err := s.products.Commit(ctx); err != nil {
		return fmt.Errorf("commit delete: %w", err)
	}

	s.logger.WithField("product_id", id).Info("product deleted")
	return nil
}

// mutate — общий цикл fetch -> мутация агрегата -> stage -> outbox -> commit.
func (s *Service) mutate(ctx context.Context, id string, fn func(*domain.Product) error) (*domain.Product, error) {
	product, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, domain.ErrProductNotFound
	}

	if err := fn(product); err != nil {
		return nil, err
	}

	if err := s.products.Update(ctx, product); err != nil {
		return nil, fmt.Errorf("stage product update: %w", err)
	}
	if err := s.drainEvents(product.ID, product.Events()); err != nil {
		return nil, err
	}
	product.ClearEvents()

	if err := s.products.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit product update: %w", err)
	}

	return product, nil
}

// drainEvents кладёт доменные события агрегата в outbox.
func (s *Service) drainEvents(productID string, events []domain.Event) error {
	if s.outbox == nil {
		return nil
	}

	for _, event := range events {
		payload, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("marshal %s event: %w", event.EventName(), err)
		}
		if _, err := s.outbox.Enqueue(domain.OutboxMessage{
			AggregateType: domain.AggregateTypeProduct,
			AggregateID:   productID,
			EventType:     event.EventName(),
			Payload:       payload,
		}); err != nil {
			return fmt.Errorf("enqueue %s event: %w", event.EventName(), err)
		}
	}

	return nil
}
