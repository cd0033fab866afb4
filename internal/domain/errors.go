package domain

import (
	"errors"
	"fmt"
)

var (
	// Ошибка отсутствующего идентификатора покупателя.
	ErrCustomerRequired = errors.New("customer_id is required")
	// Ошибка незаполненного адреса доставки или оплаты.
	ErrAddressRequired = errors.New("shipping and billing addresses are required")
	// Ошибка отсутствующего идентификатора товара в позиции заказа.
	ErrProductIDRequired = errors.New("product_id is required")
	// Ошибка отсутствующего названия товара.
	ErrProductNameRequired = errors.New("product name is required")
	// Ошибка отсутствующего SKU.
	ErrSKURequired = errors.New("product sku is required")
	// Ошибка неположительной цены (<= 0).
	ErrPriceInvalid = errors.New("price_minor must be greater than zero")
	// Ошибка отрицательного остатка на складе.
	ErrStockNegative = errors.New("stock quantity must be non-negative")
	// Ошибка при некорректном количестве товара (<= 0).
	ErrQuantityInvalid = errors.New("item quantity must be greater than zero")
	// Ошибка некорректных параметров страницы (page_index и page_size должны быть >= 1).
	ErrPageInvalid = errors.New("page_index and page_size must be positive")
	// ErrVersionConflict сигнализирует о конфликте версий при сохранении агрегата.
	ErrVersionConflict = errors.New("aggregate version conflict")
	// ErrDuplicateSKU возвращается хранилищем при нарушении уникальности SKU.
	ErrDuplicateSKU = errors.New("product sku already exists")
	// ErrOutboxPublish — ошибка при публикации сообщения из outbox.
	ErrOutboxPublish = errors.New("outbox publish failed")
	// ErrProductNotFound возвращается сервисным слоем, когда товар отсутствует.
	ErrProductNotFound = errors.New("product not found")
	// ErrOrderNotFound возвращается сервисным слоем, когда заказ отсутствует.
	ErrOrderNotFound = errors.New("order not found")
)

// StateError описывает недопустимый переход статуса заказа.
// Несёт текущий и запрошенный статусы, чтобы граница сервиса могла
// назвать оба в ответе пользователю.
type StateError struct {
	Current   OrderStatus
	Attempted OrderStatus
}

func (e *StateError) Error() string {
	return fmt.Sprintf("invalid order status transition: %s -> %s", e.Current, e.Attempted)
}

func newStateError(current, attempted OrderStatus) error {
	return &StateError{Current: current, Attempted: attempted}
}

// IsStateError проверяет, является ли ошибка нарушением жизненного цикла заказа.
func IsStateError(err error) bool {
	var se *StateError
	return errors.As(err, &se)
}

// IsVersionConflict проверяет, является ли ошибка конфликтом версий.
func IsVersionConflict(err error) bool {
	return errors.Is(err, ErrVersionConflict)
}
