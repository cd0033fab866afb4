package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// OrderStatus описывает жизненный цикл заказа.
// Переходы строго вперёд по фиксированной цепочке; отмена возможна
// из любого статуса, кроме shipped.
type OrderStatus string

const (
	// OrderStatusPending — заказ создан, проверка остатков ещё не запускалась.
	OrderStatusPending OrderStatus = "pending"
	// OrderStatusAwaitingValidation — позиции отправлены на проверку остатков.
	OrderStatusAwaitingValidation OrderStatus = "awaiting_validation"
	// OrderStatusStockConfirmed — склад подтвердил наличие всех позиций.
	OrderStatusStockConfirmed OrderStatus = "stock_confirmed"
	// OrderStatusPaid — оплата подтверждена.
	OrderStatusPaid OrderStatus = "paid"
	// OrderStatusShipped — заказ отгружен; терминальный статус.
	OrderStatusShipped OrderStatus = "shipped"
	// OrderStatusCanceled — заказ отменён до отгрузки.
	OrderStatusCanceled OrderStatus = "canceled"
)

// Денежные константы расчёта итогов (в минимальных единицах валюты).
const (
	taxRatePercent = 18

	shippingStandardMinor = 1500
	shippingReducedMinor  = 1000

	reducedShippingThresholdMinor = 10000
	freeShippingThresholdMinor    = 50000
)

// OrderItem — позиция заказа со снимком данных товара на момент добавления.
type OrderItem struct {
	ProductID      string `json:"product_id"`
	ProductName    string `json:"product_name"`
	UnitPriceMinor int64  `json:"unit_price_minor"`
	// DiscountMinor учитывается в позиции, но в subtotal пока не применяется.
	DiscountMinor int64  `json:"discount_minor"`
	Quantity      int32  `json:"quantity"`
	ImageURL      string `json:"image_url"`
}

// Order — корень агрегата заказа. Все мутации проходят через доменные
// операции; прямое присваивание полей снаружи не предусмотрено.
type Order struct {
	ID              string
	OrderNumber     string
	CustomerID      string
	CustomerName    string
	ShippingAddress Address
	BillingAddress  Address
	PaymentMethodID string
	Status          OrderStatus
	Description     string
	Items           []OrderItem

	SubtotalMinor int64
	TaxMinor      int64
	ShippingMinor int64
	// DiscountMinor — скидка уровня заказа; зарезервирована, ни одна
	// операция её пока не заполняет.
	DiscountMinor int64

	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time

	eventRecorder
}

// NewOrder создаёт заказ в статусе pending и ставит событие о создании.
func NewOrder(customerID, customerName string, shipping, billing Address, paymentMethodID string) (*Order, error) {
	if customerID == "" {
		return nil, ErrCustomerRequired
	}
	if shipping.IsZero() || billing.IsZero() {
		return nil, ErrAddressRequired
	}

	now := time.Now().UTC()
	order := &Order{
		ID:              uuid.NewString(),
		OrderNumber:     newOrderNumber(now),
		CustomerID:      customerID,
		CustomerName:    customerName,
		ShippingAddress: shipping,
		BillingAddress:  billing,
		PaymentMethodID: paymentMethodID,
		Status:          OrderStatusPending,
		Items:           make([]OrderItem, 0),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	order.record(OrderCreatedEvent{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		CustomerID:  customerID,
		CreatedAt:   now,
	})
	return order, nil
}

// newOrderNumber формирует читаемый номер вида ORD-YYYYMMDD-XXXXXXXX.
func newOrderNumber(now time.Time) string {
	token := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:8]
	return "ORD-" + now.Format("20060102") + "-" + token
}

// AddItem добавляет позицию. Если товар уже есть в заказе, количество
// суммируется с существующей позицией, дубликат не создаётся.
func (o *Order) AddItem(productID, productName string, unitPriceMinor, discountMinor int64, imageURL string, quantity int32) error {
	if productID == "" {
		return ErrProductIDRequired
	}
	if quantity <= 0 {
		return ErrQuantityInvalid
	}

	merged := false
	for i := range o.Items {
		if o.Items[i].ProductID == productID {
			o.Items[i].Quantity += quantity
			merged = true
			break
		}
	}
	if !merged {
		o.Items = append(o.Items, OrderItem{
			ProductID:      productID,
			ProductName:    productName,
			UnitPriceMinor: unitPriceMinor,
			DiscountMinor:  discountMinor,
			Quantity:       quantity,
			ImageURL:       imageURL,
		})
	}

	o.recalculateTotals()
	o.touch()
	return nil
}

// RemoveItem убирает позицию по товару; отсутствие позиции не считается ошибкой.
func (o *Order) RemoveItem(productID string) {
	for i := range o.Items {
		if o.Items[i].ProductID == productID {
			o.Items = append(o.Items[:i], o.Items[i+1:]...)
			o.recalculateTotals()
			o.touch()
			return
		}
	}
}

// recalculateTotals пересчитывает суммы как чистую функцию от текущих позиций.
func (o *Order) recalculateTotals() {
	var subtotal int64
	for _, item := range o.Items {
		// TODO: вычитать item.DiscountMinor, когда продукт согласует правила скидок.
		subtotal += int64(item.Quantity) * item.UnitPriceMinor
	}

	o.SubtotalMinor = subtotal
	o.TaxMinor = subtotal * taxRatePercent / 100
	o.ShippingMinor = shippingCostFor(subtotal)
}

// shippingCostFor возвращает стоимость доставки по трёхступенчатой шкале.
func shippingCostFor(subtotalMinor int64) int64 {
	switch {
	case subtotalMinor >= freeShippingThresholdMinor:
		return 0
	case subtotalMinor >= reducedShippingThresholdMinor:
		return shippingReducedMinor
	default:
		return shippingStandardMinor
	}
}

// TotalMinor — итог заказа; не хранится, выводится из текущих сумм.
func (o *Order) TotalMinor() int64 {
	return o.SubtotalMinor + o.TaxMinor + o.ShippingMinor - o.DiscountMinor
}

// MarkAwaitingValidation переводит заказ на проверку остатков.
func (o *Order) MarkAwaitingValidation() error {
	if o.Status != OrderStatusPending {
		return newStateError(o.Status, OrderStatusAwaitingValidation)
	}
	o.Status = OrderStatusAwaitingValidation
	o.Description = "order sent for stock validation"
	o.record(OrderAwaitingValidationEvent{OrderID: o.ID, Items: o.itemsSnapshot()})
	o.touch()
	return nil
}

// ConfirmStock фиксирует подтверждение наличия всех позиций.
func (o *Order) ConfirmStock() error {
	if o.Status != OrderStatusAwaitingValidation {
		return newStateError(o.Status, OrderStatusStockConfirmed)
	}
	o.Status = OrderStatusStockConfirmed
	o.Description = "all items were confirmed with available stock"
	o.record(OrderStockConfirmedEvent{OrderID: o.ID})
	o.touch()
	return nil
}

// MarkPaid фиксирует подтверждённую оплату.
func (o *Order) MarkPaid() error {
	if o.Status != OrderStatusStockConfirmed {
		return newStateError(o.Status, OrderStatusPaid)
	}
	o.Status = OrderStatusPaid
	o.Description = "payment was confirmed"
	o.record(OrderPaidEvent{OrderID: o.ID, Items: o.itemsSnapshot()})
	o.touch()
	return nil
}

// MarkShipped фиксирует отгрузку заказа.
func (o *Order) MarkShipped() error {
	if o.Status != OrderStatusPaid {
		return newStateError(o.Status, OrderStatusShipped)
	}
	o.Status = OrderStatusShipped
	o.Description = "order was shipped"
	o.record(OrderShippedEvent{OrderID: o.ID})
	o.touch()
	return nil
}

// Cancel отменяет заказ. Отгруженный заказ отменить нельзя.
func (o *Order) Cancel() error {
	if o.Status == OrderStatusShipped {
		return newStateError(o.Status, OrderStatusCanceled)
	}
	o.Status = OrderStatusCanceled
	o.Description = "order was canceled"
	o.record(OrderCanceledEvent{OrderID: o.ID})
	o.touch()
	return nil
}

// itemsSnapshot возвращает копию позиций для событий.
func (o *Order) itemsSnapshot() []OrderItem {
	snapshot := make([]OrderItem, len(o.Items))
	copy(snapshot, o.Items)
	return snapshot
}

func (o *Order) touch() {
	o.UpdatedAt = time.Now().UTC()
}
