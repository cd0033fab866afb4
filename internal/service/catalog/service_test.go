package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/shopcore/internal/domain"
	"github.com/vladislavdragonenkov/shopcore/internal/storage/memory"
)

func newTestService(t *testing.T) (*Service, *memoryOutbox) {
	t.Helper()

	outbox := &memoryOutbox{inner: memory.NewOutboxRepository()}
	svc := NewService(memory.NewProductStore(), outbox, nil)
	return svc, outbox
}

// memoryOutbox считает enqueued-сообщения поверх памяти.
type memoryOutbox struct {
	inner    domain.OutboxRepository
	enqueued []domain.OutboxMessage
}

func (m *memoryOutbox) Enqueue(msg domain.OutboxMessage) (domain.OutboxMessage, error) {
	stored, err := m.inner.Enqueue(msg)
	if err == nil {
		m.enqueued = append(m.enqueued, stored)
	}
	return stored, err
}

func (m *memoryOutbox) PullPending(limit int) ([]domain.OutboxMessage, error) {
	return m.inner.PullPending(limit)
}

func (m *memoryOutbox) Stats() (domain.OutboxStats, error) { return m.inner.Stats() }
func (m *memoryOutbox) MarkSent(id string) error           { return m.inner.MarkSent(id) }
func (m *memoryOutbox) MarkFailed(id string) error         { return m.inner.MarkFailed(id) }

func validInput() CreateProductInput {
	return CreateProductInput{
		Name:          "Кроссовки беговые",
		Description:   "Лёгкая модель",
		Brand:         "Ascent",
		SKU:           "SKU-001",
		PriceMinor:    12900,
		StockQuantity: 40,
	}
}

func TestService_CreateProduct(t *testing.T) {
	svc, outbox := newTestService(t)
	ctx := context.Background()

	product, err := svc.CreateProduct(ctx, validInput())
	require.NoError(t, err)
	require.NotEmpty(t, product.ID)
	require.True(t, product.Active)
	require.Empty(t, product.Events(), "события должны уйти в outbox, а не остаться в агрегате")

	require.Len(t, outbox.enqueued, 1)
	require.Equal(t, domain.EventProductCreated, outbox.enqueued[0].EventType)
	require.Equal(t, domain.AggregateTypeProduct, outbox.enqueued[0].AggregateType)
	require.Equal(t, product.ID, outbox.enqueued[0].AggregateID)

	// Запись действительно закоммичена: читается заново.
	got, err := svc.GetProduct(ctx, product.ID)
	require.NoError(t, err)
	require.Equal(t, product.SKU, got.SKU)
}

func TestService_CreateProduct_DuplicateSKU(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateProduct(ctx, validInput())
	require.NoError(t, err)

	_, err = svc.CreateProduct(ctx, validInput())
	require.ErrorIs(t, err, domain.ErrDuplicateSKU)
}

func TestService_CreateProduct_InvalidInput(t *testing.T) {
	svc, outbox := newTestService(t)
	ctx := context.Background()

	input := validInput()
	input.PriceMinor = 0
	_, err := svc.CreateProduct(ctx, input)
	require.ErrorIs(t, err, domain.ErrPriceInvalid)
	require.Empty(t, outbox.enqueued)
}

func TestService_UpdateStock(t *testing.T) {
	svc, outbox := newTestService(t)
	ctx := context.Background()

	product, err := svc.CreateProduct(ctx, validInput())
	require.NoError(t, err)
	outbox.enqueued = nil

	updated, err := svc.UpdateStock(ctx, product.ID, 7)
	require.NoError(t, err)
	require.Equal(t, int32(7), updated.StockQuantity)

	require.Len(t, outbox.enqueued, 1)
	require.Equal(t, domain.EventProductStockUpdated, outbox.enqueued[0].EventType)

	_, err = svc.UpdateStock(ctx, product.ID, -1)
	require.ErrorIs(t, err, domain.ErrStockNegative)

	_, err = svc.UpdateStock(ctx, "missing", 5)
	require.ErrorIs(t, err, domain.ErrProductNotFound)
}

func TestService_UpdatePrice(t *testing.T) {
	svc, outbox := newTestService(t)
	ctx := context.Background()

	product, err := svc.CreateProduct(ctx, validInput())
	require.NoError(t, err)
	outbox.enqueued = nil

	updated, err := svc.UpdatePrice(ctx, product.ID, 14900)
	require.NoError(t, err)
	require.Equal(t, int64(14900), updated.PriceMinor)

	require.Len(t, outbox.enqueued, 1)
	require.Equal(t, domain.EventProductPriceChanged, outbox.enqueued[0].EventType)

	_, err = svc.UpdatePrice(ctx, product.ID, 0)
	require.ErrorIs(t, err, domain.ErrPriceInvalid)
}

func TestService_CollectionsAndDeactivate(t *testing.T) {
	svc, outbox := newTestService(t)
	ctx := context.Background()

	product, err := svc.CreateProduct(ctx, validInput())
	require.NoError(t, err)
	outbox.enqueued = nil

	withVariant, err := svc.AddVariant(ctx, product.ID, "size", "42", 0)
	require.NoError(t, err)
	require.Len(t, withVariant.Variants, 1)

	withImage, err := svc.AddImage(ctx, product.ID, "https://cdn.example.com/1.jpg", true)
	require.NoError(t, err)
	require.Len(t, withImage.Images, 1)

	withCategory, err := svc.AddCategory(ctx, product.ID, "cat-shoes", "Обувь")
	require.NoError(t, err)
	require.Len(t, withCategory.Categories, 1)

	// Привязки коллекций не порождают доменных событий.
	require.Empty(t, outbox.enqueued)

	deactivated, err := svc.DeactivateProduct(ctx, product.ID)
	require.NoError(t, err)
	require.False(t, deactivated.Active)
	require.Len(t, outbox.enqueued, 1)
	require.Equal(t, domain.EventProductDeactivated, outbox.enqueued[0].EventType)
}

func TestService_DeleteProduct(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	product, err := svc.CreateProduct(ctx, validInput())
	require.NoError(t, err)

	require.NoError(t, svc.DeleteProduct(ctx, product.ID))

	_, err = svc.GetProduct(ctx, product.ID)
	require.ErrorIs(t, err, domain.ErrProductNotFound)

	require.ErrorIs(t, svc.DeleteProduct(ctx, product.ID), domain.ErrProductNotFound)
}

func TestService_ListAndSearch(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	for _, sku := range []string{"SKU-A", "SKU-B", "SKU-C"} {
		input := validInput()
		input.SKU = sku
		input.Name = "Товар " + sku
		_, err := svc.CreateProduct(ctx, input)
		require.NoError(t, err)
	}

	page, err := svc.ListProducts(ctx, domain.ProductPageRequest{PageIndex: 1, PageSize: 2})
	require.NoError(t, err)
	require.Equal(t, int64(3), page.TotalCount)
	require.Len(t, page.Items, 2)

	_, err = svc.ListProducts(ctx, domain.ProductPageRequest{PageIndex: 0, PageSize: 2})
	require.ErrorIs(t, err, domain.ErrPageInvalid)

	found, err := svc.SearchProducts(ctx, "SKU-B")
	require.NoError(t, err)
	require.Len(t, found, 1)

	ids := []string{page.Items[0].ID, "missing"}
	levels, err := svc.GetStockLevels(ctx, ids)
	require.NoError(t, err)
	require.Len(t, levels, 1)
}
