package domain

import (
	"context"
	"time"
)

// ProductInclude — битовая маска связанных коллекций, которые нужно
// загрузить вместе с товаром.
type ProductInclude uint8

const (
	IncludeVariants ProductInclude = 1 << iota
	IncludeImages
	IncludeCategories

	IncludeAll = IncludeVariants | IncludeImages | IncludeCategories
)

// Has проверяет наличие флага в маске.
func (i ProductInclude) Has(flag ProductInclude) bool {
	return i&flag != 0
}

// ProductOrderBy задаёт сортировку страницы каталога.
type ProductOrderBy string

const (
	// OrderByNameAsc — сортировка по умолчанию.
	OrderByNameAsc   ProductOrderBy = "name_asc"
	OrderByPriceAsc  ProductOrderBy = "price_asc"
	OrderByPriceDesc ProductOrderBy = "price_desc"
	OrderByNewest    ProductOrderBy = "newest"
)

// ProductFilter — предикат выборки каталога. Нулевые поля не фильтруют.
type ProductFilter struct {
	Brand         string
	CategoryID    string
	ActiveOnly    bool
	MinPriceMinor int64
	MaxPriceMinor int64
}

// IsZero сообщает, что фильтр не задан.
func (f ProductFilter) IsZero() bool {
	return f == ProductFilter{}
}

// ProductPageRequest описывает запрос страницы каталога. PageIndex
// начинается с 1.
type ProductPageRequest struct {
	PageIndex int
	PageSize  int
	Filter    *ProductFilter
	OrderBy   ProductOrderBy
	Include   ProductInclude
}

// Validate отсеивает параметры, которые дали бы отрицательный offset.
func (r ProductPageRequest) Validate() error {
	if r.PageIndex < 1 || r.PageSize < 1 {
		return ErrPageInvalid
	}
	return nil
}

// Offset возвращает количество пропускаемых строк.
func (r ProductPageRequest) Offset() int {
	return (r.PageIndex - 1) * r.PageSize
}

// ProductPage — страница каталога вместе с общим числом подходящих строк.
type ProductPage struct {
	Items      []*Product
	TotalCount int64
	PageIndex  int
	PageSize   int
}

// SearchLimit — жёсткий предел результатов полнотекстового поиска,
// не параметр пагинации.
const SearchLimit = 50

// ProductRepository — доступ к каталогу для application-слоя.
// Отсутствие товара на чтении — это результат nil, nil, а не ошибка:
// 404-семантику выбирает граница сервиса. Записи только ставятся
// в pending-набор хранилища; атомарно применяет их Commit.
type ProductRepository interface {
	// GetByID загружает товар со всеми связанными коллекциями.
	GetByID(ctx context.Context, id string) (*Product, error)
	// GetBySKU всегда читает хранилище напрямую, минуя кэш: SKU-поиск
	// используется для проверки уникальности и должен видеть последнее
	// закоммиченное состояние.
	GetBySKU(ctx context.Context, sku string) (*Product, error)
	Add(ctx context.Context, product *Product) error
	Update(ctx context.Context, product *Product) error
	Delete(ctx context.Context, product *Product) error
	// GetPaginated выполняет выборку с фильтром и сортировкой; кэш не участвует.
	GetPaginated(ctx context.Context, req ProductPageRequest) (*ProductPage, error)
	// SearchProducts ищет подстроку в name/description/brand/sku без учёта
	// регистра; только активные товары, не более SearchLimit результатов.
	SearchProducts(ctx context.Context, term string) ([]*Product, error)
	// GetStockLevels возвращает остатки только по существующим id;
	// отсутствующие id просто опускаются.
	GetStockLevels(ctx context.Context, ids []string) (map[string]int32, error)
	// Commit применяет pending-набор записей одной транзакцией.
	Commit(ctx context.Context) error
}

// CacheStore — key-value кэш с TTL и массовой инвалидацией по wildcard-шаблону.
// Истечение TTL обеспечивает сам кэш, фоновой эвикции в ядре нет.
type CacheStore interface {
	// Get возвращает значение и признак наличия ключа.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Remove(ctx context.Context, key string) error
	RemoveByPattern(ctx context.Context, pattern string) error
}

// OrderRepository описывает требования к хранилищу заказов.
type OrderRepository interface {
	// Create сохраняет новый заказ вместе с позициями.
	Create(order *Order) error
	// Get возвращает заказ или nil, nil, если его нет.
	Get(id string) (*Order, error)
	// ListByCustomer возвращает заказы клиента с опциональным лимитом.
	ListByCustomer(customerID string, limit int) ([]*Order, error)
	// Save применяет обновления с учётом optimistic locking.
	Save(order *Order) error
}
