package domain

import (
	"time"

	"github.com/google/uuid"
)

// ProductVariant — value object варианта товара (например, цвет/размер).
type ProductVariant struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Value     string `json:"value"`
	// PriceAdjustmentMinor — надбавка/скидка к базовой цене товара.
	PriceAdjustmentMinor int64 `json:"price_adjustment_minor"`
}

// Equals сравнивает варианты только по паре (Name, Value): варианты с
// одинаковой парой взаимозаменяемы, даже если корректировка цены различается.
func (v ProductVariant) Equals(other ProductVariant) bool {
	return v.Name == other.Name && v.Value == other.Value
}

// ProductImage — изображение товара.
type ProductImage struct {
	URL    string `json:"url"`
	IsMain bool   `json:"is_main"`
}

// ProductCategory — категория каталога, к которой привязан товар.
type ProductCategory struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Product — корень агрегата товара. Владеет коллекциями вариантов,
// изображений и категорий; снятие с продажи — мягкое (флаг Active).
type Product struct {
	ID          string
	Name        string
	Description string
	Brand       string
	// SKU — уникальный бизнес-ключ; уникальность проверяет вызывающая
	// сторона через GetBySKU до создания, агрегат её не гарантирует.
	SKU           string
	PriceMinor    int64
	StockQuantity int32
	Active        bool
	Variants      []ProductVariant
	Images        []ProductImage
	Categories    []ProductCategory
	Version       int64
	CreatedAt     time.Time
	UpdatedAt     time.Time

	eventRecorder
}

// NewProduct создаёт активный товар и ставит событие о создании.
func NewProduct(name, description, brand, sku string, priceMinor int64, stockQuantity int32) (*Product, error) {
	if name == "" {
		return nil, ErrProductNameRequired
	}
	if sku == "" {
		return nil, ErrSKURequired
	}
	if priceMinor <= 0 {
		return nil, ErrPriceInvalid
	}
	if stockQuantity < 0 {
		return nil, ErrStockNegative
	}

	now := time.Now().UTC()
	product := &Product{
		ID:            uuid.NewString(),
		Name:          name,
		Description:   description,
		Brand:         brand,
		SKU:           sku,
		PriceMinor:    priceMinor,
		StockQuantity: stockQuantity,
		Active:        true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	product.record(ProductCreatedEvent{ProductID: product.ID, SKU: sku})
	return product, nil
}

// UpdateStock устанавливает новый остаток. Верхнего предела нет.
func (p *Product) UpdateStock(quantity int32) error {
	if quantity < 0 {
		return ErrStockNegative
	}
	p.StockQuantity = quantity
	p.touch()
	p.record(ProductStockUpdatedEvent{ProductID: p.ID, Quantity: quantity})
	return nil
}

// UpdatePrice меняет базовую цену; событие несёт старую и новую цены.
func (p *Product) UpdatePrice(priceMinor int64) error {
	if priceMinor <= 0 {
		return ErrPriceInvalid
	}
	oldPrice := p.PriceMinor
	p.PriceMinor = priceMinor
	p.touch()
	p.record(ProductPriceChangedEvent{
		ProductID:     p.ID,
		OldPriceMinor: oldPrice,
		NewPriceMinor: priceMinor,
	})
	return nil
}

// AddVariant добавляет вариант без проверки дубликатов: дедупликация
// по паре (Name, Value) — ответственность вызывающей стороны.
func (p *Product) AddVariant(name, value string, priceAdjustmentMinor int64) {
	p.Variants = append(p.Variants, ProductVariant{
		ProductID:            p.ID,
		Name:                 name,
		Value:                value,
		PriceAdjustmentMinor: priceAdjustmentMinor,
	})
	p.touch()
}

// AddImage добавляет изображение товара.
func (p *Product) AddImage(url string, isMain bool) {
	p.Images = append(p.Images, ProductImage{URL: url, IsMain: isMain})
	p.touch()
}

// AddCategory привязывает товар к категории.
func (p *Product) AddCategory(id, name string) {
	p.Categories = append(p.Categories, ProductCategory{ID: id, Name: name})
	p.touch()
}

// Deactivate снимает товар с продажи. Обратной операции нет.
func (p *Product) Deactivate() {
	p.Active = false
	p.touch()
	p.record(ProductDeactivatedEvent{ProductID: p.ID})
}

func (p *Product) touch() {
	p.UpdatedAt = time.Now().UTC()
}
