package kafka

import (
	"strings"

	"github.com/vladislavdragonenkov/shopcore/internal/domain"
)

// Topics для Kafka
const (
	TopicCatalogEvents   = "shopcore.catalog.events"
	TopicOrderEvents     = "shopcore.order.events"
	TopicDeadLetterQueue = "shopcore.dlq" // Dead Letter Queue для failed messages
)

// Kafka headers для retry логики
const (
	HeaderRetryCount    = "x-retry-count"
	HeaderOriginalTopic = "x-original-topic"
	HeaderErrorMessage  = "x-error-message"
	HeaderFailedAt      = "x-failed-at"
)

// TopicForAggregate выбирает topic по типу агрегата outbox-сообщения.
// Неизвестные типы уходят в order topic, чтобы событие не потерялось.
func TopicForAggregate(aggregateType string) string {
	switch strings.ToLower(aggregateType) {
	case domain.AggregateTypeProduct:
		return TopicCatalogEvents
	case domain.AggregateTypeOrder:
		return TopicOrderEvents
	default:
		return TopicOrderEvents
	}
}
