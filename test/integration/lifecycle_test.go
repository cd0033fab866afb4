// Package integration проверяет сквозные сценарии сервиса на in-memory
// хранилище: каталог, жизненный цикл заказа и публикацию событий
// через outbox worker.
package integration

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/vladislavdragonenkov/shopcore/internal/domain"
	"github.com/vladislavdragonenkov/shopcore/internal/service/catalog"
	"github.com/vladislavdragonenkov/shopcore/internal/service/orders"
	"github.com/vladislavdragonenkov/shopcore/internal/service/outbox"
	"github.com/vladislavdragonenkov/shopcore/internal/storage/memory"
)

// capturePublisher накапливает опубликованные outbox-сообщения.
type capturePublisher struct {
	mu       sync.Mutex
	messages []domain.OutboxMessage
}

func (p *capturePublisher) Publish(event domain.OutboxMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, event)
	return nil
}

func (p *capturePublisher) published() []domain.OutboxMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.OutboxMessage, len(p.messages))
	copy(out, p.messages)
	return out
}

// LifecycleTestSuite тестирует полный путь события: мутация агрегата,
// запись в outbox, публикация worker'ом.
type LifecycleTestSuite struct {
	suite.Suite

	outboxRepo domain.OutboxRepository
	timeline   domain.TimelineRepository
	catalog    *catalog.Service
	orders     *orders.Service
	publisher  *capturePublisher
	worker     *outbox.Worker
}

func (s *LifecycleTestSuite) SetupTest() {
	baseLogger := log.New()
	baseLogger.SetLevel(log.WarnLevel) // Уменьшаем шум в тестах
	logger := baseLogger.WithField("component", "integration-test")

	products := memory.NewProductStore()
	orderRepo := memory.NewOrderRepository()
	s.timeline = memory.NewTimelineRepository()
	s.outboxRepo = memory.NewOutboxRepository()

	s.catalog = catalog.NewService(products, s.outboxRepo, logger)
	s.orders = orders.NewService(orderRepo, s.timeline, s.outboxRepo, logger)

	s.publisher = &capturePublisher{}
	s.worker = outbox.NewWorker(
		s.outboxRepo,
		s.publisher,
		outbox.WithLogger(logger),
	)
}

func (s *LifecycleTestSuite) sampleOrderInput() orders.CreateOrderInput {
	address := domain.NewAddress("ул. Ленина, 1", "Москва", "Московская обл.", "RU", "101000")
	return orders.CreateOrderInput{
		CustomerID:      "customer-123",
		CustomerName:    "Иван Петров",
		ShippingAddress: address,
		BillingAddress:  address,
		PaymentMethodID: "pm-1",
		Items: []orders.OrderItemInput{
			{ProductID: "prod-laptop", ProductName: "Ноутбук", UnitPriceMinor: 199900, Quantity: 1},
			{ProductID: "prod-mouse", ProductName: "Мышь", UnitPriceMinor: 2900, Quantity: 2},
		},
	}
}

func (s *LifecycleTestSuite) TestOrderLifecyclePublishesEvents() {
	order, err := s.orders.CreateOrder(s.sampleOrderInput())
	require.NoError(s.T(), err)
	require.Equal(s.T(), domain.OrderStatusPending, order.Status)

	_, err = s.orders.SubmitForValidation(order.ID)
	require.NoError(s.T(), err)
	_, err = s.orders.ConfirmStock(order.ID)
	require.NoError(s.T(), err)
	_, err = s.orders.MarkPaid(order.ID)
	require.NoError(s.T(), err)
	shipped, err := s.orders.MarkShipped(order.ID)
	require.NoError(s.T(), err)
	require.Equal(s.T(), domain.OrderStatusShipped, shipped.Status)

	stats, err := s.outboxRepo.Stats()
	require.NoError(s.T(), err)
	require.Equal(s.T(), 5, stats.PendingCount)

	s.worker.ProcessOnce(context.Background())

	stats, err = s.outboxRepo.Stats()
	require.NoError(s.T(), err)
	require.Zero(s.T(), stats.PendingCount)

	published := s.publisher.published()
	require.Len(s.T(), published, 5)

	wantTypes := []string{
		domain.EventOrderCreated,
		domain.EventOrderAwaitingValidation,
		domain.EventOrderStockConfirmed,
		domain.EventOrderPaid,
		domain.EventOrderShipped,
	}
	for i, msg := range published {
		require.Equal(s.T(), wantTypes[i], msg.EventType)
		require.Equal(s.T(), domain.AggregateTypeOrder, msg.AggregateType)
		require.Equal(s.T(), order.ID, msg.AggregateID)
		require.True(s.T(), json.Valid(msg.Payload))
	}

	timeline, err := s.timeline.List(order.ID)
	require.NoError(s.T(), err)
	require.Len(s.T(), timeline, 5)
	require.Equal(s.T(), domain.OrderStatusShipped, timeline[4].Status)
}

func (s *LifecycleTestSuite) TestCanceledOrderLeavesTrace() {
	order, err := s.orders.CreateOrder(s.sampleOrderInput())
	require.NoError(s.T(), err)

	_, err = s.orders.SubmitForValidation(order.ID)
	require.NoError(s.T(), err)
	canceled, err := s.orders.CancelOrder(order.ID)
	require.NoError(s.T(), err)
	require.Equal(s.T(), domain.OrderStatusCanceled, canceled.Status)

	// Отгруженный заказ отменить нельзя, проверяем на втором заказе.
	other, err := s.orders.CreateOrder(s.sampleOrderInput())
	require.NoError(s.T(), err)
	_, err = s.orders.SubmitForValidation(other.ID)
	require.NoError(s.T(), err)
	_, err = s.orders.ConfirmStock(other.ID)
	require.NoError(s.T(), err)
	_, err = s.orders.MarkPaid(other.ID)
	require.NoError(s.T(), err)
	_, err = s.orders.MarkShipped(other.ID)
	require.NoError(s.T(), err)
	_, err = s.orders.CancelOrder(other.ID)
	require.Error(s.T(), err)

	s.worker.ProcessOnce(context.Background())

	var canceledEvents int
	for _, msg := range s.publisher.published() {
		if msg.EventType == domain.EventOrderCanceled {
			canceledEvents++
		}
	}
	require.Equal(s.T(), 1, canceledEvents)
}

func (s *LifecycleTestSuite) TestCatalogEventsFlowThroughOutbox() {
	ctx := context.Background()

	product, err := s.catalog.CreateProduct(ctx, catalog.CreateProductInput{
		Name:          "Кроссовки беговые",
		Description:   "Лёгкая модель",
		Brand:         "Ascent",
		SKU:           "RUN-100",
		PriceMinor:    12900,
		StockQuantity: 40,
	})
	require.NoError(s.T(), err)

	_, err = s.catalog.UpdatePrice(ctx, product.ID, 11900)
	require.NoError(s.T(), err)
	_, err = s.catalog.UpdateStock(ctx, product.ID, 35)
	require.NoError(s.T(), err)

	s.worker.ProcessOnce(ctx)

	published := s.publisher.published()
	require.Len(s.T(), published, 3)

	wantTypes := []string{
		domain.EventProductCreated,
		domain.EventProductPriceChanged,
		domain.EventProductStockUpdated,
	}
	for i, msg := range published {
		require.Equal(s.T(), wantTypes[i], msg.EventType)
		require.Equal(s.T(), domain.AggregateTypeProduct, msg.AggregateType)
		require.Equal(s.T(), product.ID, msg.AggregateID)
	}
}

func (s *LifecycleTestSuite) TestMixedAggregatesKeepOutboxOrder() {
	ctx := context.Background()

	product, err := s.catalog.CreateProduct(ctx, catalog.CreateProductInput{
		Name:          "Футболка",
		Description:   "Хлопок",
		Brand:         "Basic",
		SKU:           "TSH-001",
		PriceMinor:    1900,
		StockQuantity: 100,
	})
	require.NoError(s.T(), err)

	order, err := s.orders.CreateOrder(s.sampleOrderInput())
	require.NoError(s.T(), err)

	_, err = s.catalog.DeactivateProduct(ctx, product.ID)
	require.NoError(s.T(), err)

	s.worker.ProcessOnce(ctx)

	published := s.publisher.published()
	require.Len(s.T(), published, 3)
	require.Equal(s.T(), domain.EventProductCreated, published[0].EventType)
	require.Equal(s.T(), domain.EventOrderCreated, published[1].EventType)
	require.Equal(s.T(), domain.EventProductDeactivated, published[2].EventType)
	require.Equal(s.T(), order.ID, published[1].AggregateID)
}

func TestLifecycleTestSuite(t *testing.T) {
	suite.Run(t, new(LifecycleTestSuite))
}
