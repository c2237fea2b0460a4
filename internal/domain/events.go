package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// OrderEvent — payload событий жизненного цикла заказа.
type OrderEvent struct {
	OrderID        string      `json:"order_id"`
	OrderNumber    string      `json:"order_number"`
	UserID         string      `json:"user_id"`
	Status         OrderStatus `json:"status"`
	PreviousStatus OrderStatus `json:"previous_status,omitempty"`
	ActorID        string      `json:"actor_id"`
	Reason         string      `json:"reason,omitempty"`
	TrackingID     string      `json:"tracking_id,omitempty"`
	TotalMinor     int64       `json:"total_minor"`
	OccurredAt     time.Time   `json:"occurred_at"`
}

// NewOrderEvent собирает payload по текущему состоянию заказа.
func NewOrderEvent(order Order, previous OrderStatus, actorID string) OrderEvent {
	return OrderEvent{
		OrderID:        order.ID,
		OrderNumber:    order.Number,
		UserID:         order.UserID,
		Status:         order.Status,
		PreviousStatus: previous,
		ActorID:        actorID,
		Reason:         order.CancellationReason,
		TrackingID:     order.Shipping.TrackingID,
		TotalMinor:     order.Summary.TotalMinor,
		OccurredAt:     order.UpdatedAt,
	}
}

// InventoryEvent — payload события корректировки остатка.
type InventoryEvent struct {
	BookID        string    `json:"book_id"`
	DeltaQuantity int64     `json:"delta_quantity"`
	DeltaSales    int64     `json:"delta_sales"`
	StockCount    int64     `json:"stock_count"`
	SalesCount    int64     `json:"sales_count"`
	InStock       bool      `json:"in_stock"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// InventoryDriftEvent сообщает о расхождении заказа и остатков, которое не удалось откатить.
type InventoryDriftEvent struct {
	OrderID            string    `json:"order_id"`
	Operation          string    `json:"operation"`
	BookID             string    `json:"book_id,omitempty"`
	DeltaQuantity      int64     `json:"delta_quantity"`
	DeltaSales         int64     `json:"delta_sales"`
	Error              string    `json:"error"`
	CompensationErrors []string  `json:"compensation_errors"`
	OccurredAt         time.Time `json:"occurred_at"`
}

// NewInventoryDriftEvent строит событие по ошибке корректировки.
func NewInventoryDriftEvent(err *InventoryAdjustmentError, now time.Time) InventoryDriftEvent {
	event := InventoryDriftEvent{
		OrderID:       err.OrderID,
		Operation:     err.Operation,
		BookID:        err.Failure.BookID,
		DeltaQuantity: err.Failure.DeltaQuantity,
		DeltaSales:    err.Failure.DeltaSales,
		OccurredAt:    now.UTC(),
	}
	if err.Failure.Err != nil {
		event.Error = err.Failure.Err.Error()
	}
	for _, compErr := range err.CompensationErrs {
		event.CompensationErrors = append(event.CompensationErrors, compErr.Error())
	}
	return event
}

// NewOutboxMessage сериализует payload в сообщение outbox.
func NewOutboxMessage(aggregateType, aggregateID, eventType string, payload any) (OutboxMessage, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return OutboxMessage{}, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return OutboxMessage{
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		EventType:     eventType,
		Payload:       data,
	}, nil
}
