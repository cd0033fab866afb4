package domain

import "time"

// Event — доменное событие, зафиксированное успешной мутацией агрегата.
// Очередь событий агрегата выгребается ровно один раз слоем,
// который коммитит unit of work и публикует события через outbox.
type Event interface {
	// EventName возвращает тип события для маршрутизации и outbox.
	EventName() string
}

// Типы событий. Используются и как event_type в outbox-сообщениях.
const (
	EventOrderCreated            = "order.created"
	EventOrderAwaitingValidation = "order.awaiting_validation"
	EventOrderStockConfirmed     = "order.stock_confirmed"
	EventOrderPaid               = "order.paid"
	EventOrderShipped            = "order.shipped"
	EventOrderCanceled           = "order.canceled"
	EventProductCreated          = "product.created"
	EventProductStockUpdated     = "product.stock_updated"
	EventProductPriceChanged     = "product.price_changed"
	EventProductDeactivated      = "product.deactivated"
)

// eventRecorder — append-only буфер событий, встраиваемый в агрегаты.
// Снаружи доступны только Events (копия) и ClearEvents; добавление — только
// изнутри доменных операций.
type eventRecorder struct {
	events []Event
}

func (r *eventRecorder) record(event Event) {
	r.events = append(r.events, event)
}

// Events возвращает копию очереди событий в порядке возникновения.
func (r *eventRecorder) Events() []Event {
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// ClearEvents очищает очередь. Вызывается после успешного коммита агрегата.
func (r *eventRecorder) ClearEvents() {
	r.events = nil
}

// OrderCreatedEvent фиксирует создание заказа.
type OrderCreatedEvent struct {
	OrderID     string    `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	CustomerID  string    `json:"customer_id"`
	CreatedAt   time.Time `json:"created_at"`
}

func (OrderCreatedEvent) EventName() string { return EventOrderCreated }

// OrderAwaitingValidationEvent несёт снимок позиций для проверки остатков.
type OrderAwaitingValidationEvent struct {
	OrderID string      `json:"order_id"`
	Items   []OrderItem `json:"items"`
}

func (OrderAwaitingValidationEvent) EventName() string { return EventOrderAwaitingValidation }

// OrderStockConfirmedEvent фиксирует подтверждение остатков по заказу.
type OrderStockConfirmedEvent struct {
	OrderID string `json:"order_id"`
}

func (OrderStockConfirmedEvent) EventName() string { return EventOrderStockConfirmed }

// OrderPaidEvent несёт снимок позиций на момент оплаты.
type OrderPaidEvent struct {
	OrderID string      `json:"order_id"`
	Items   []OrderItem `json:"items"`
}

func (OrderPaidEvent) EventName() string { return EventOrderPaid }

// OrderShippedEvent фиксирует отгрузку заказа.
type OrderShippedEvent struct {
	OrderID string `json:"order_id"`
}

func (OrderShippedEvent) EventName() string { return EventOrderShipped }

// OrderCanceledEvent фиксирует отмену заказа.
type OrderCanceledEvent struct {
	OrderID string `json:"order_id"`
}

func (OrderCanceledEvent) EventName() string { return EventOrderCanceled }

// ProductCreatedEvent фиксирует появление товара в каталоге.
type ProductCreatedEvent struct {
	ProductID string `json:"product_id"`
	SKU       string `json:"sku"`
}

func (ProductCreatedEvent) EventName() string { return EventProductCreated }

// ProductStockUpdatedEvent несёт новый остаток товара.
type ProductStockUpdatedEvent struct {
	ProductID string `json:"product_id"`
	Quantity  int32  `json:"quantity"`
}

func (ProductStockUpdatedEvent) EventName() string { return EventProductStockUpdated }

// ProductPriceChangedEvent несёт старую и новую цену.
type ProductPriceChangedEvent struct {
	ProductID     string `json:"product_id"`
	OldPriceMinor int64  `json:"old_price_minor"`
	NewPriceMinor int64  `json:"new_price_minor"`
}

func (ProductPriceChangedEvent) EventName() string { return EventProductPriceChanged }

// ProductDeactivatedEvent фиксирует снятие товара с продажи.
type ProductDeactivatedEvent struct {
	ProductID string `json:"product_id"`
}

func (ProductDeactivatedEvent) EventName() string { return EventProductDeactivated }
