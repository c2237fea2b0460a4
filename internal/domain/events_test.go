package domain

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestNewOutboxMessage(t *testing.T) {
	now := time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC)
	msg, err := NewOutboxMessage(AggregateBook, "book-1", EventInventoryAdjusted, InventoryEvent{
		BookID:        "book-1",
		DeltaQuantity: -2,
		DeltaSales:    2,
		StockCount:    3,
		SalesCount:    7,
		InStock:       true,
		OccurredAt:    now,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msg.AggregateType != AggregateBook || msg.AggregateID != "book-1" || msg.EventType != EventInventoryAdjusted {
		t.Fatalf("unexpected message header: %+v", msg)
	}

	var decoded map[string]any
	if err := json.Unmarshal(msg.Payload, &decoded); err != nil {
		t.Fatalf("payload is not json: %v", err)
	}
	if decoded["delta_quantity"] != float64(-2) || decoded["in_stock"] != true {
		t.Fatalf("unexpected payload: %s", msg.Payload)
	}
}

func TestNewOutboxMessageRejectsUnsupportedPayload(t *testing.T) {
	if _, err := NewOutboxMessage(AggregateOrder, "o-1", EventOrderPlaced, make(chan int)); err == nil {
		t.Fatal("expected marshal error")
	}
}

func TestNewInventoryDriftEvent(t *testing.T) {
	now := time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC)
	adjErr := &InventoryAdjustmentError{
		OrderID:   "o-1",
		Operation: "cancel",
		Failure: AdjustmentFailure{
			BookID:        "book-b",
			DeltaQuantity: 1,
			DeltaSales:    -1,
			Err:           ErrBookNotFound,
		},
		CompensationErrs: []error{errors.New("restore book-a: timeout")},
	}

	event := NewInventoryDriftEvent(adjErr, now)
	if event.OrderID != "o-1" || event.BookID != "book-b" || event.Error != ErrBookNotFound.Error() {
		t.Fatalf("unexpected event: %+v", event)
	}
	if len(event.CompensationErrors) != 1 || event.CompensationErrors[0] != "restore book-a: timeout" {
		t.Fatalf("unexpected compensation errors: %v", event.CompensationErrors)
	}
	if !event.OccurredAt.Equal(now) {
		t.Fatalf("unexpected timestamp: %s", event.OccurredAt)
	}
}

func TestNewOrderEvent(t *testing.T) {
	now := time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC)
	order := NewOrder("o-1", "BK-1", "u-1", "USD", []OrderItem{{BookID: "b-1", Qty: 1, PriceMinor: 500}}, 100, now)
	if err := order.Cancel("", "u-1", now.Add(time.Minute)); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	event := NewOrderEvent(order, OrderStatusPending, "u-1")
	if event.Status != OrderStatusCancelled || event.PreviousStatus != OrderStatusPending {
		t.Fatalf("unexpected statuses: %+v", event)
	}
	if event.Reason != DefaultCancellationReason || event.TotalMinor != 600 {
		t.Fatalf("unexpected payload: %+v", event)
	}
	if !event.OccurredAt.Equal(now.Add(time.Minute)) {
		t.Fatalf("unexpected occurred_at: %s", event.OccurredAt)
	}
}
