package domain_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/vladislavdragonenkov/bookstore/internal/domain"
)

// helper для создания заказа с двумя позициями.
func makeOrder() domain.Order {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	return domain.NewOrder("order-1", "BK-1", "user-1", "INR", []domain.OrderItem{
		{ID: "item-1", BookID: "book-a", Qty: 2, PriceMinor: 300},
		{ID: "item-2", BookID: "book-b", Qty: 1, PriceMinor: 450},
	}, 50, now)
}

func TestNewOrder_Invariants(t *testing.T) {
	order := makeOrder()
	if errs := order.ValidateInvariants(); len(errs) != 0 {
		t.Fatalf("expected no validation errors, got %v", errs)
	}
	if order.Summary.SubtotalMinor != 1050 || order.Summary.TotalMinor != 1100 {
		t.Fatalf("unexpected summary: %+v", order.Summary)
	}
	if order.Payment.Status != domain.PaymentStatusUnpaid {
		t.Fatalf("unexpected payment status: %s", order.Payment.Status)
	}
	if len(order.Timeline) != 1 || order.Timeline[0].Status != domain.OrderStatusPending {
		t.Fatalf("unexpected timeline: %+v", order.Timeline)
	}
}

func TestOrderValidateInvariants_Errors(t *testing.T) {
	cases := []struct {
		name string
		mut  func(o *domain.Order)
		want error
	}{
		{name: "no user", mut: func(o *domain.Order) { o.UserID = "" }, want: domain.ErrUserRequired},
		{name: "no currency", mut: func(o *domain.Order) { o.Currency = "" }, want: domain.ErrCurrencyRequired},
		{name: "no items", mut: func(o *domain.Order) { o.Items = nil; o.Summary = domain.OrderSummary{} }, want: domain.ErrItemsRequired},
		{name: "zero qty", mut: func(o *domain.Order) { o.Items[0].Qty = 0 }, want: domain.ErrItemQtyInvalid},
		{name: "negative price", mut: func(o *domain.Order) { o.Items[1].PriceMinor = -1 }, want: domain.ErrItemPriceInvalid},
		{name: "missing book", mut: func(o *domain.Order) { o.Items[0].BookID = "" }, want: domain.ErrBookIDRequired},
		{name: "total mismatch", mut: func(o *domain.Order) { o.Summary.TotalMinor++ }, want: domain.ErrAmountMismatch},
		{name: "unknown status", mut: func(o *domain.Order) { o.Status = "lost" }, want: domain.ErrInvalidStatus},
		{name: "timeline out of sync", mut: func(o *domain.Order) { o.Status = domain.OrderStatusConfirmed }, want: domain.ErrTimelineOutOfSync},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			order := makeOrder()
			tc.mut(&order)
			errs := order.ValidateInvariants()
			found := false
			for _, err := range errs {
				if errors.Is(err, tc.want) {
					found = true
				}
			}
			if !found {
				t.Fatalf("expected %v in %v", tc.want, errs)
			}
		})
	}
}

func TestOrderCancel_FromCancellableStatuses(t *testing.T) {
	now := time.Date(2026, 3, 11, 9, 30, 0, 0, time.UTC)
	for _, status := range []domain.OrderStatus{
		domain.OrderStatusPending,
		domain.OrderStatusConfirmed,
		domain.OrderStatusProcessing,
	} {
		t.Run(string(status), func(t *testing.T) {
			order := makeOrder()
			if status != domain.OrderStatusPending {
				if err := order.SetStatus(status, "", "admin-1", "", now); err != nil {
					t.Fatalf("set status: %v", err)
				}
			}
			before := len(order.Timeline)

			if err := order.Cancel("", "user-1", now); err != nil {
				t.Fatalf("cancel: %v", err)
			}
			if order.Status != domain.OrderStatusCancelled {
				t.Fatalf("unexpected status: %s", order.Status)
			}
			if order.CancellationReason != domain.DefaultCancellationReason {
				t.Fatalf("unexpected reason: %q", order.CancellationReason)
			}
			if !order.CancelledAt.Equal(now) {
				t.Fatalf("unexpected cancelled_at: %s", order.CancelledAt)
			}
			if len(order.Timeline) != before+1 {
				t.Fatalf("expected one timeline entry, got %d", len(order.Timeline)-before)
			}
			last, _ := order.LastTimelineEntry()
			if last.Status != domain.OrderStatusCancelled || last.Message != "Order cancelled: Customer request" {
				t.Fatalf("unexpected timeline entry: %+v", last)
			}
		})
	}
}

func TestOrderCancel_WithReason(t *testing.T) {
	order := makeOrder()
	if err := order.Cancel("  found cheaper  ", "user-1", time.Now()); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if order.CancellationReason != "found cheaper" {
		t.Fatalf("unexpected reason: %q", order.CancellationReason)
	}
	last, _ := order.LastTimelineEntry()
	if last.Message != "Order cancelled: found cheaper" || last.ActorID != "user-1" {
		t.Fatalf("unexpected timeline entry: %+v", last)
	}
}

func TestOrderCancel_RejectedStatuses(t *testing.T) {
	for _, status := range []domain.OrderStatus{
		domain.OrderStatusShipped,
		domain.OrderStatusOutForDelivery,
		domain.OrderStatusDelivered,
		domain.OrderStatusCancelled,
		domain.OrderStatusReturned,
	} {
		t.Run(string(status), func(t *testing.T) {
			order := makeOrder()
			if err := order.SetStatus(status, "", "admin-1", "", time.Now()); err != nil {
				t.Fatalf("set status: %v", err)
			}
			snapshot := order.Clone()

			err := order.Cancel("", "user-1", time.Now())
			var transitionErr *domain.TransitionError
			if !errors.As(err, &transitionErr) {
				t.Fatalf("expected transition error, got %v", err)
			}
			if transitionErr.From != status || transitionErr.To != domain.OrderStatusCancelled {
				t.Fatalf("unexpected transition error: %+v", transitionErr)
			}
			if !domain.IsInvalidTransition(err) {
				t.Fatal("expected IsInvalidTransition")
			}
			if order.Status != snapshot.Status || len(order.Timeline) != len(snapshot.Timeline) {
				t.Fatal("rejected cancel must not mutate order")
			}
		})
	}
}

func TestOrderSetStatus(t *testing.T) {
	order := makeOrder()
	now := time.Date(2026, 3, 12, 8, 0, 0, 0, time.UTC)

	if err := order.SetStatus(domain.OrderStatusShipped, "", "admin-1", " TRK-42 ", now); err != nil {
		t.Fatalf("set shipped: %v", err)
	}
	if order.Shipping.TrackingID != "TRK-42" {
		t.Fatalf("unexpected tracking id: %q", order.Shipping.TrackingID)
	}
	last, _ := order.LastTimelineEntry()
	if last.Message != "Order status updated to shipped" {
		t.Fatalf("unexpected default message: %q", last.Message)
	}

	delivered := now.Add(48 * time.Hour)
	if err := order.SetStatus(domain.OrderStatusDelivered, "Left at door", "admin-1", "", delivered); err != nil {
		t.Fatalf("set delivered: %v", err)
	}
	if !order.Shipping.ActualDelivery.Equal(delivered) {
		t.Fatalf("expected actual delivery stamp, got %s", order.Shipping.ActualDelivery)
	}
	if order.Shipping.TrackingID != "TRK-42" {
		t.Fatal("tracking id must survive when not supplied")
	}
	last, _ = order.LastTimelineEntry()
	if last.Message != "Left at door" || last.Status != domain.OrderStatusDelivered {
		t.Fatalf("unexpected timeline entry: %+v", last)
	}
}

func TestOrderSetStatus_Invalid(t *testing.T) {
	order := makeOrder()
	err := order.SetStatus("lost", "", "admin-1", "", time.Now())
	if !domain.IsInvalidStatus(err) {
		t.Fatalf("expected invalid status, got %v", err)
	}
	if len(order.Timeline) != 1 || order.Status != domain.OrderStatusPending {
		t.Fatal("invalid status must not mutate order")
	}
}

func TestOrderConfirmPayment(t *testing.T) {
	now := time.Date(2026, 3, 11, 9, 0, 0, 0, time.UTC)

	order := makeOrder()
	if err := order.ConfirmPayment(" stripe ", " txn-1 ", "admin-1", now); err != nil {
		t.Fatalf("confirm payment: %v", err)
	}
	want := domain.PaymentDetails{Status: domain.PaymentStatusPaid, Provider: "stripe", TransactionID: "txn-1", PaidAt: now}
	if order.Payment != want {
		t.Fatalf("unexpected payment: %+v", order.Payment)
	}
	if order.Status != domain.OrderStatusConfirmed || !order.UpdatedAt.Equal(now) {
		t.Fatalf("pending order must be confirmed: %s at %s", order.Status, order.UpdatedAt)
	}
	if errs := order.ValidateInvariants(); len(errs) != 0 {
		t.Fatalf("paid order violates invariants: %v", errs)
	}

	if err := order.ConfirmPayment("stripe", "txn-2", "admin-1", now); !domain.IsInvalidTransition(err) {
		t.Fatalf("double payment must be rejected, got %v", err)
	}
	if order.Payment.TransactionID != "txn-1" || len(order.Timeline) != 2 {
		t.Fatal("rejected payment must not mutate order")
	}

	cancelled := makeOrder()
	if err := cancelled.Cancel("", "user-1", now); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	var te *domain.TransitionError
	if err := cancelled.ConfirmPayment("stripe", "txn-3", "admin-1", now); !errors.As(err, &te) || te.From != domain.OrderStatusCancelled {
		t.Fatalf("cancelled order must reject payment, got %v", err)
	}
	if cancelled.Payment.Status != domain.PaymentStatusUnpaid {
		t.Fatalf("unexpected payment status: %s", cancelled.Payment.Status)
	}
}

func TestOrderTimelineTailMatchesStatus(t *testing.T) {
	order := makeOrder()
	steps := []domain.OrderStatus{
		domain.OrderStatusConfirmed,
		domain.OrderStatusProcessing,
		domain.OrderStatusShipped,
		domain.OrderStatusOutForDelivery,
		domain.OrderStatusDelivered,
		domain.OrderStatusReturned,
		domain.OrderStatusPending,
	}
	for _, status := range steps {
		if err := order.SetStatus(status, "", "admin-1", "", time.Now()); err != nil {
			t.Fatalf("set %s: %v", status, err)
		}
		last, ok := order.LastTimelineEntry()
		if !ok || last.Status != order.Status {
			t.Fatalf("timeline tail %s does not match status %s", last.Status, order.Status)
		}
	}
	if len(order.Timeline) != len(steps)+1 {
		t.Fatalf("timeline must be append-only, got %d entries", len(order.Timeline))
	}
}

func TestOrderRevert(t *testing.T) {
	order := makeOrder()
	previous := order.Clone()
	if err := order.Cancel("oops", "user-1", time.Now()); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	order.Revert(previous, "Cancellation rolled back", "system", time.Now())

	if order.Status != domain.OrderStatusPending || order.CancellationReason != "" || !order.CancelledAt.IsZero() {
		t.Fatalf("unexpected order after revert: %+v", order)
	}
	if len(order.Timeline) != 3 {
		t.Fatalf("expected 3 timeline entries, got %d", len(order.Timeline))
	}
	if errs := order.ValidateInvariants(); len(errs) != 0 {
		t.Fatalf("unexpected errors after revert: %v", errs)
	}
}

func TestOrderClone_Independent(t *testing.T) {
	order := makeOrder()
	clone := order.Clone()
	clone.Items[0].Qty = 99
	clone.Timeline[0].Message = "changed"
	if order.Items[0].Qty == 99 || order.Timeline[0].Message == "changed" {
		t.Fatal("clone must not share slices")
	}
}

func TestParseOrderStatus(t *testing.T) {
	status, err := domain.ParseOrderStatus(" Out-For-Delivery ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != domain.OrderStatusOutForDelivery {
		t.Fatalf("unexpected status: %s", status)
	}

	_, err = domain.ParseOrderStatus("teleported")
	if !domain.IsInvalidStatus(err) || !strings.Contains(err.Error(), "teleported") {
		t.Fatalf("expected invalid status error, got %v", err)
	}
}

func TestOrderStatusPredicates(t *testing.T) {
	if len(domain.OrderStatuses()) != 8 {
		t.Fatalf("expected 8 statuses")
	}
	for _, status := range domain.OrderStatuses() {
		wantTerminal := status == domain.OrderStatusDelivered || status == domain.OrderStatusCancelled || status == domain.OrderStatusReturned
		if status.Terminal() != wantTerminal {
			t.Fatalf("unexpected Terminal() for %s", status)
		}
		if status.Cancellable() && status.Terminal() {
			t.Fatalf("status %s cannot be both cancellable and terminal", status)
		}
	}
}
