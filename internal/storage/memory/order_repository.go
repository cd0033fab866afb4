package memory

import (
	"sort"
	"sync"

	"github.com/vladislavdragonenkov/shopcore/internal/domain"
)

// orderRepositoryInMemory — простая in-memory реализация OrderRepository.
type orderRepositoryInMemory struct {
	mu    sync.RWMutex
	items map[string]domain.Order
}

// NewOrderRepository возвращает in-memory репозиторий для локальной разработки и тестов.
func NewOrderRepository() domain.OrderRepository {
	return &orderRepositoryInMemory{
		items: make(map[string]domain.Order),
	}
}

// Create сохраняет новый заказ, если ID ещё не занят.
func (r *orderRepositoryInMemory) Create(order *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[order.ID]; exists {
		return domain.ErrVersionConflict
	}
	r.items[order.ID] = *cloneOrder(order)
	return nil
}

// Get возвращает заказ или nil, nil, если его нет.
func (r *orderRepositoryInMemory) Get(id string) (*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.items[id]
	if !ok {
		return nil, nil
	}
	return cloneOrder(&order), nil
}

// ListByCustomer возвращает заказы клиента, ограничивая выборку limit (если >0).
func (r *orderRepositoryInMemory) ListByCustomer(customerID string, limit int) ([]*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*domain.Order, 0, len(r.items))
	for id := range r.items {
		order := r.items[id]
		if order.CustomerID != customerID {
			continue
		}
		result = append(result, cloneOrder(&order))
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}

	return result, nil
}

// Save перезаписывает заказ, проверяя версию (optimistic locking).
func (r *orderRepositoryInMemory) Save(order *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.items[order.ID]
	if !ok {
		return domain.ErrVersionConflict
	}
	if current.Version != order.Version {
		return domain.ErrVersionConflict
	}

	stored := *cloneOrder(order)
	stored.Version++
	r.items[order.ID] = stored
	order.Version = stored.Version
	return nil
}

// cloneOrder копирует заказ вместе с позициями, очищая очередь событий:
// события принадлежат агрегату в памяти, а не хранилищу.
func cloneOrder(order *domain.Order) *domain.Order {
	clone := *order
	clone.ClearEvents()
	clone.Items = append([]domain.OrderItem(nil), order.Items...)
	return &clone
}

var _ domain.OrderRepository = (*orderRepositoryInMemory)(nil)
