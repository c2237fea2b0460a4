package memory_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/vladislavdragonenkov/bookstore/internal/domain"
	"github.com/vladislavdragonenkov/bookstore/internal/storage/memory"
)

func newOrder(id, userID string, createdAt time.Time) domain.Order {
	order := domain.NewOrder(id, "BK-"+id, userID, "INR", []domain.OrderItem{
		{ID: id + "-item-1", BookID: "book-1", Qty: 5, PriceMinor: 100},
	}, 0, createdAt)
	order.ShippingAddress = domain.ShippingAddress{Name: "Asha Rao", Phone: "+91-98450-00001"}
	return order
}

func TestOrderRepository_CreateGet(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewOrderRepository()
	order := newOrder("order-1", "user-1", time.Now().UTC())

	if err := repo.Create(ctx, order); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if err := repo.Create(ctx, order); !errors.Is(err, domain.ErrOrderVersionConflict) {
		t.Fatalf("expected duplicate create to fail, got %v", err)
	}

	stored, err := repo.Get(ctx, order.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if stored.ID != order.ID || len(stored.Timeline) != 1 {
		t.Fatalf("unexpected stored order: %+v", stored)
	}

	if _, err := repo.Get(ctx, "missing"); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestOrderRepository_GetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewOrderRepository()
	order := newOrder("order-1", "user-1", time.Now().UTC())
	if err := repo.Create(ctx, order); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	stored, _ := repo.Get(ctx, order.ID)
	stored.Items[0].Qty = 100
	stored.Timeline[0].Message = "mutated"

	again, _ := repo.Get(ctx, order.ID)
	if again.Items[0].Qty != 5 || again.Timeline[0].Message == "mutated" {
		t.Fatal("repository must not share slices with callers")
	}
}

func TestOrderRepository_Save(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewOrderRepository()
	order := newOrder("order-1", "user-1", time.Now().UTC())
	if err := repo.Create(ctx, order); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	stored, err := repo.Get(ctx, order.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if err := stored.SetStatus(domain.OrderStatusConfirmed, "", "admin", "", time.Now()); err != nil {
		t.Fatalf("set status: %v", err)
	}
	if err := repo.Save(ctx, stored); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	updated, err := repo.Get(ctx, order.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if updated.Status != domain.OrderStatusConfirmed {
		t.Fatalf("expected confirmed, got %s", updated.Status)
	}
	if updated.Version != stored.Version+1 {
		t.Fatalf("expected version increment, got %d", updated.Version)
	}
}

func TestOrderRepository_SaveVersionConflict(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewOrderRepository()
	order := newOrder("order-1", "user-1", time.Now().UTC())
	if err := repo.Create(ctx, order); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	order.Version = 42
	if err := repo.Save(ctx, order); !domain.IsVersionConflict(err) {
		t.Fatalf("expected version conflict error, got %v", err)
	}

	missing := newOrder("missing", "user-1", time.Now().UTC())
	if err := repo.Save(ctx, missing); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestOrderRepository_List(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewOrderRepository()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		order := newOrder(fmt.Sprintf("order-%d", i), "user-1", base.Add(time.Duration(i)*time.Hour))
		if err := repo.Create(ctx, order); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	other := newOrder("order-other", "user-2", base)
	other.ShippingAddress = domain.ShippingAddress{Name: "Vikram Sethi", Phone: "+91-11111"}
	if err := other.SetStatus(domain.OrderStatusShipped, "", "admin", "", base); err != nil {
		t.Fatalf("set status: %v", err)
	}
	if err := repo.Create(ctx, other); err != nil {
		t.Fatalf("create: %v", err)
	}

	page, total, err := repo.List(ctx, domain.OrderFilter{UserID: "user-1"}, 0, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 5 || len(page) != 2 || page[0].ID != "order-4" || page[1].ID != "order-3" {
		t.Fatalf("unexpected first page: total=%d ids=%v", total, ids(page))
	}

	page, _, _ = repo.List(ctx, domain.OrderFilter{UserID: "user-1"}, 4, 2)
	if len(page) != 1 || page[0].ID != "order-0" {
		t.Fatalf("unexpected last page: %v", ids(page))
	}

	page, total, _ = repo.List(ctx, domain.OrderFilter{UserID: "user-1"}, 10, 2)
	if total != 5 || len(page) != 0 {
		t.Fatalf("expected empty page past the end, got %v", ids(page))
	}

	page, total, _ = repo.List(ctx, domain.OrderFilter{Status: domain.OrderStatusShipped}, 0, 10)
	if total != 1 || page[0].ID != "order-other" {
		t.Fatalf("unexpected status filter result: %v", ids(page))
	}

	for _, search := range []string{"vikram", "BK-ORDER-OTHER", "11111"} {
		page, total, _ = repo.List(ctx, domain.OrderFilter{Search: search}, 0, 10)
		if total != 1 || page[0].ID != "order-other" {
			t.Fatalf("search %q: unexpected result %v", search, ids(page))
		}
	}
}

func ids(orders []domain.Order) []string {
	out := make([]string, 0, len(orders))
	for _, o := range orders {
		out = append(out, o.ID)
	}
	return out
}
