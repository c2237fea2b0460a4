package postgres

import (
	"reflect"
	"testing"

	"github.com/vladislavdragonenkov/bookstore/internal/domain"
)

func TestOrderFilterClause(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		filter    domain.OrderFilter
		wantWhere string
		wantArgs  []any
	}{
		{name: "empty", filter: domain.OrderFilter{}},
		{
			name:      "owner",
			filter:    domain.OrderFilter{UserID: "user-1"},
			wantWhere: " WHERE user_id = $1",
			wantArgs:  []any{"user-1"},
		},
		{
			name:      "status and search",
			filter:    domain.OrderFilter{Status: domain.OrderStatusShipped, Search: "  BK-2026 "},
			wantWhere: " WHERE status = $1 AND (lower(number) LIKE $2 OR lower(shipping_name) LIKE $2 OR lower(shipping_phone) LIKE $2)",
			wantArgs:  []any{"shipped", "%bk-2026%"},
		},
		{
			name:      "like wildcards are escaped",
			filter:    domain.OrderFilter{Search: "50%_off"},
			wantWhere: " WHERE (lower(number) LIKE $1 OR lower(shipping_name) LIKE $1 OR lower(shipping_phone) LIKE $1)",
			wantArgs:  []any{`%50\%\_off%`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			where, args := orderFilterClause(tt.filter)
			if where != tt.wantWhere {
				t.Fatalf("where mismatch:\n got %q\nwant %q", where, tt.wantWhere)
			}
			if !reflect.DeepEqual(args, tt.wantArgs) {
				t.Fatalf("args mismatch: got %v want %v", args, tt.wantArgs)
			}
		})
	}
}

func TestOrderDocumentsRoundTrip(t *testing.T) {
	t.Parallel()

	order := sampleOrder("order-doc", "BK-20260410-DDDD0001", "user-9", mustTime(t, "2026-04-10T08:00:00Z"))
	items, timeline, address, err := encodeOrderDocuments(order)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	var decoded domain.Order
	if err := decodeOrderDocuments(&decoded, items, timeline, address); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !reflect.DeepEqual(decoded.Items, order.Items) {
		t.Fatalf("items mismatch: %+v", decoded.Items)
	}
	if !reflect.DeepEqual(decoded.Timeline, order.Timeline) {
		t.Fatalf("timeline mismatch: %+v", decoded.Timeline)
	}
	if decoded.ShippingAddress != order.ShippingAddress {
		t.Fatalf("address mismatch: %+v", decoded.ShippingAddress)
	}
}
