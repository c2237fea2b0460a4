package domain

import (
	"context"
	"time"
)

// OutboxPublisher публикует события из transactional outbox.
type OutboxPublisher interface {
	// Publish передаёт событие наружу; должен быть идемпотентным.
	Publish(event OutboxMessage) error
}

// OutboxRepository позволяет сохранять события для последующей публикации.
type OutboxRepository interface {
	Enqueue(ctx context.Context, msg OutboxMessage) (OutboxMessage, error)
	PullPending(ctx context.Context, limit int) ([]OutboxMessage, error)
	Stats(ctx context.Context) (OutboxStats, error)
	MarkSent(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string) error
}

// StatsCache кэширует агрегаты админки.
type StatsCache interface {
	// Get возвращает закэшированную статистику; ok=false при промахе.
	Get(ctx context.Context, key string) (stats AdminStats, ok bool, err error)
	Set(ctx context.Context, key string, stats AdminStats) error
	// Invalidate удаляет все закэшированные агрегаты.
	Invalidate(ctx context.Context) error
}

// Типы событий жизненного цикла заказа.
const (
	EventOrderPlaced        = "OrderPlaced"
	EventOrderCancelled     = "OrderCancelled"
	EventOrderStatusChanged = "OrderStatusChanged"
	EventOrderPaid          = "OrderPaid"
	EventInventoryAdjusted  = "InventoryAdjusted"
	EventInventoryDrift     = "InventoryDrift"
)

// Типы агрегатов в outbox.
const (
	AggregateOrder = "order"
	AggregateBook  = "book"
)

// OutboxMessage хранит данные для публикуемого события.
type OutboxMessage struct {
	ID            string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// OutboxStats описывает текущее состояние backlog transactional outbox.
type OutboxStats struct {
	PendingCount    int
	OldestPendingAt time.Time
}
