package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"

	"github.com/vladislavdragonenkov/bookstore/internal/domain"
)

// Topics для Kafka
const (
	TopicOrderEvents     = "bookstore.order.events"
	TopicInventoryEvents = "bookstore.inventory.events"
	TopicDeadLetterQueue = "bookstore.dlq"
)

// Kafka headers для retry логики
const (
	HeaderRetryCount    = "x-retry-count"
	HeaderOriginalTopic = "x-original-topic"
	HeaderErrorMessage  = "x-error-message"
	HeaderFailedAt      = "x-failed-at"
	HeaderEventType     = "x-event-type"
)

// Envelope описывает формат сообщения, в котором outbox публикует доменные события.
type Envelope struct {
	ID            string          `json:"id"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	EventType     string          `json:"event_type"`
	Payload       json.RawMessage `json:"payload"`
	PublishedAt   time.Time       `json:"published_at"`
}

// NewEnvelope оборачивает outbox-сообщение.
func NewEnvelope(msg domain.OutboxMessage, now time.Time) Envelope {
	payload := json.RawMessage(msg.Payload)
	if len(payload) == 0 {
		payload = json.RawMessage("null")
	}
	return Envelope{
		ID:            msg.ID,
		AggregateType: msg.AggregateType,
		AggregateID:   msg.AggregateID,
		EventType:     msg.EventType,
		Payload:       payload,
		PublishedAt:   now.UTC(),
	}
}

// ParseEnvelope разбирает envelope из сообщения.
func ParseEnvelope(message *sarama.ConsumerMessage) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(message.Value, &env); err != nil {
		return Envelope{}, fmt.Errorf("failed to unmarshal envelope: %w", err)
	}
	if env.EventType == "" {
		return Envelope{}, fmt.Errorf("envelope without event_type at %s/%d/%d", message.Topic, message.Partition, message.Offset)
	}
	return env, nil
}

// DecodeOrderEvent достаёт событие заказа из payload.
func (e Envelope) DecodeOrderEvent() (domain.OrderEvent, error) {
	var event domain.OrderEvent
	if e.AggregateType != domain.AggregateOrder {
		return event, fmt.Errorf("envelope %s carries %q aggregate, not order", e.ID, e.AggregateType)
	}
	if err := json.Unmarshal(e.Payload, &event); err != nil {
		return event, fmt.Errorf("failed to unmarshal order event: %w", err)
	}
	return event, nil
}

// TopicFor возвращает topic для типа агрегата.
func TopicFor(aggregateType string) string {
	if aggregateType == domain.AggregateBook {
		return TopicInventoryEvents
	}
	return TopicOrderEvents
}
