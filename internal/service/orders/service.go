// Package orders реализует команды жизненного цикла заказа. Каждая
// успешная смена статуса оставляет след в трёх местах: в агрегате,
// в outbox (для внешних подписчиков) и в timeline (для истории заказа).
package orders

import (
	"encoding/json"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/shopcore/internal/domain"
)

// Service — сервис заказов поверх OrderRepository.
type Service struct {
	orders   domain.OrderRepository
	timeline domain.TimelineRepository
	outbox   domain.OutboxRepository
	logger   *log.Entry
}

// NewService конструирует сервис заказов.
func NewService(
	orders domain.OrderRepository,
	timeline domain.TimelineRepository,
	outbox domain.OutboxRepository,
	logger *log.Entry,
) *Service {
	if logger == nil {
		logger = log.WithField("component", "orders-service")
	}
	return &Service{
		orders:   orders,
		timeline: timeline,
		outbox:   outbox,
		logger:   logger,
	}
}

// OrderItemInput — позиция заказа при создании.
type OrderItemInput struct {
	ProductID      string
	ProductName    string
	UnitPriceMinor int64
	DiscountMinor  int64
	Quantity       int32
	ImageURL       string
}

// CreateOrderInput — параметры создания заказа.
type CreateOrderInput struct {
	CustomerID      string
	CustomerName    string
	ShippingAddress domain.Address
	BillingAddress  domain.Address
	PaymentMethodID string
	Items           []OrderItemInput
}

// CreateOrder создаёт заказ в статусе pending.
func (s *Service) CreateOrder(input CreateOrderInput) (*domain.Order, error) {
	order, err := domain.NewOrder(
		input.CustomerID, input.CustomerName,
		input.ShippingAddress, input.BillingAddress,
		input.PaymentMethodID,
	)
	if err != nil {
		return nil, err
	}

	for _, item := range input.Items {
		if err := order.AddItem(
			item.ProductID, item.ProductName,
			item.UnitPriceMinor, item.DiscountMinor,
			item.ImageURL, item.Quantity,
		); err != nil {
			return nil, err
		}
	}

	if err := s.orders.Create(order); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	if err := s.recordChanges(order); err != nil {
		return nil, err
	}

	s.logger.WithFields(log.Fields{
		"order_id":     order.ID,
		"order_number": order.OrderNumber,
		"customer_id":  order.CustomerID,
	}).Info("order created")

	return order, nil
}

// GetOrder возвращает заказ по id.
func (s *Service) GetOrder(id string) (*domain.Order, error) {
	order, err := s.orders.Get(id)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, domain.ErrOrderNotFound
	}
	return order, nil
}

// ListOrders возвращает заказы клиента, свежие первыми.
func (s *Service) ListOrders(customerID string, limit int) ([]*domain.Order, error) {
	return s.orders.ListByCustomer(customerID, limit)
}

// GetTimeline возвращает историю статусов заказа.
func (s *Service) GetTimeline(orderID string) ([]domain.TimelineEvent, error) {
	return s.timeline.List(orderID)
}

// AddItem добавляет позицию в заказ; повторное добавление того же товара
// наращивает количество.
func (s *Service) AddItem(orderID string, item OrderItemInput) (*domain.Order, error) {
	return s.mutate(orderID, func(o *domain.Order) error {
		return o.AddItem(
			item.ProductID, item.ProductName,
			item.UnitPriceMinor, item.DiscountMinor,
			item.ImageURL, item.Quantity,
		)
	})
}

// RemoveItem убирает позицию из заказа.
func (s *Service) RemoveItem(orderID, productID string) (*domain.Order, error) {
	return s.mutate(orderID, func(o *domain.Order) error {
		o.RemoveItem(productID)
		return nil
	})
}

// SubmitForValidation переводит заказ в awaiting_validation.
func (s *Service) SubmitForValidation(orderID string) (*domain.Order, error) {
	return s.mutate(orderID, (*domain.Order).MarkAwaitingValidation)
}

// ConfirmStock подтверждает резерв остатков по заказу.
func (s *Service) ConfirmStock(orderID string) (*domain.Order, error) {
	return s.mutate(orderID, (*domain.Order).ConfirmStock)
}

// MarkPaid фиксирует оплату заказа.
func (s *Service) MarkPaid(orderID string) (*domain.Order, error) {
	return s.mutate(orderID, (*domain.Order).MarkPaid)
}

// MarkShipped фиксирует отгрузку заказа.
func (s *Service) MarkShipped(orderID string) (*domain.Order, error) {
	return s.mutate(orderID, (*domain.Order).MarkShipped)
}

// CancelOrder отменяет заказ. Отгруженный заказ отменить нельзя.
func (s *Service) CancelOrder(orderID string) (*domain.Order, error) {
	return s.mutate(orderID, (*domain.Order).Cancel)
}

// mutate — общий цикл load -> команда агрегата -> save -> outbox/timeline.
func (s *Service) mutate(orderID string, fn func(*domain.Order) error) (*domain.Order, error) {
	order, err := s.orders.Get(orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, domain.ErrOrderNotFound
	}

	if err := fn(order); err != nil {
		return nil, err
	}

	if err := s.orders.Save(order); err != nil {
		return nil, fmt.Errorf("save order: %w", err)
	}
	if err := s.recordChanges(order); err != nil {
		return nil, err
	}

	return order, nil
}

// recordChanges отправляет накопленные события в outbox и пишет запись
// истории по текущему статусу.
func (s *Service) recordChanges(order *domain.Order) error {
	events := order.Events()
	order.ClearEvents()

	for _, event := range events {
		payload, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("marshal %s event: %w", event.EventName(), err)
		}
		if s.outbox != nil {
			if _, err := s.outbox.Enqueue(domain.OutboxMessage{
				AggregateType: domain.AggregateTypeOrder,
				AggregateID:   order.ID,
				EventType:     event.EventName(),
				Payload:       payload,
			}); err != nil {
				return fmt.Errorf("enqueue %s event: %w", event.EventName(), err)
			}
		}
	}

	// Timeline фиксирует только смену статуса, не правки позиций.
	if s.timeline != nil && len(events) > 0 {
		if err := s.timeline.Append(domain.TimelineEvent{
			OrderID:     order.ID,
			Status:      order.Status,
			Description: order.Description,
			Occurred:    time.Now().UTC(),
		}); err != nil {
			s.logger.WithError(err).WithField("order_id", order.ID).Warn("failed to append timeline event")
		}
	}

	return nil
}
