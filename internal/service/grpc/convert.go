package grpcsvc

import (
	"time"

	"github.com/vladislavdragonenkov/bookstore/internal/domain"
)

// Значения собираются из типов, которые принимает structpb.NewValue.

func timeValue(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func orderValue(o domain.Order) map[string]any {
	items := make([]any, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, map[string]any{
			"id":          item.ID,
			"book_id":     item.BookID,
			"title":       item.Title,
			"qty":         item.Qty,
			"price_minor": item.PriceMinor,
		})
	}
	timeline := make([]any, 0, len(o.Timeline))
	for _, entry := range o.Timeline {
		timeline = append(timeline, map[string]any{
			"status":     string(entry.Status),
			"message":    entry.Message,
			"updated_by": entry.ActorID,
			"timestamp":  timeValue(entry.Occurred),
		})
	}
	return map[string]any{
		"id":             o.ID,
		"order_number":   o.Number,
		"user_id":        o.UserID,
		"status":         string(o.Status),
		"currency":       o.Currency,
		"subtotal_minor": o.Summary.SubtotalMinor,
		"shipping_minor": o.Summary.ShippingMinor,
		"tax_minor":      o.Summary.TaxMinor,
		"total_minor":    o.Summary.TotalMinor,
		"payment_status": string(o.Payment.Status),
		"tracking_id":    o.Shipping.TrackingID,
		"cancel_reason":  o.CancellationReason,
		"cancelled_at":   timeValue(o.CancelledAt),
		"items":          items,
		"timeline":       timeline,
		"version":        o.Version,
		"created_at":     timeValue(o.CreatedAt),
		"updated_at":     timeValue(o.UpdatedAt),
	}
}

func ordersValue(orders []domain.Order) []any {
	out := make([]any, 0, len(orders))
	for _, o := range orders {
		out = append(out, orderValue(o))
	}
	return out
}

func statusStatsValue(stats []domain.StatusStat) []any {
	out := make([]any, 0, len(stats))
	for _, s := range stats {
		out = append(out, map[string]any{
			"status":      string(s.Status),
			"count":       s.Count,
			"total_minor": s.TotalMinor,
		})
	}
	return out
}

func orderPageValue(page domain.OrderPage) map[string]any {
	out := map[string]any{
		"orders": ordersValue(page.Orders),
		"pagination": map[string]any{
			"current_page": page.Pagination.Page,
			"page_size":    page.Pagination.PageSize,
			"total_orders": page.Pagination.Total,
			"total_pages":  page.Pagination.TotalPages,
			"has_next":     page.Pagination.HasNext,
			"has_prev":     page.Pagination.HasPrev,
		},
	}
	if page.StatusStats != nil {
		out["status_stats"] = statusStatsValue(page.StatusStats)
	}
	return out
}

func bookValue(b domain.Book) map[string]any {
	return map[string]any{
		"id":          b.ID,
		"title":       b.Title,
		"author":      b.Author,
		"price_minor": b.PriceMinor,
		"stock_count": b.StockCount,
		"in_stock":    b.InStock,
		"sales_count": b.SalesCount,
		"updated_at":  timeValue(b.UpdatedAt),
	}
}

func adminStatsValue(s domain.AdminStats) map[string]any {
	top := make([]any, 0, len(s.TopBooks))
	for _, b := range s.TopBooks {
		top = append(top, map[string]any{
			"book_id":     b.BookID,
			"title":       b.Title,
			"author":      b.Author,
			"price_minor": b.PriceMinor,
			"sales_count": b.SalesCount,
			"stock_count": b.StockCount,
		})
	}
	monthly := make([]any, 0, len(s.MonthlySales))
	for _, m := range s.MonthlySales {
		monthly = append(monthly, map[string]any{
			"year":          m.Year,
			"month":         int(m.Month),
			"revenue_minor": m.RevenueMinor,
			"orders":        m.Orders,
		})
	}
	return map[string]any{
		"overview": map[string]any{
			"total_books":              s.Overview.TotalBooks,
			"total_orders":             s.Overview.TotalOrders,
			"total_revenue_minor":      s.Overview.TotalRevenueMinor,
			"this_month_revenue_minor": s.Overview.ThisMonthRevenueMinor,
			"last_month_revenue_minor": s.Overview.LastMonthRevenueMinor,
			"revenue_growth":           s.Overview.RevenueGrowth,
		},
		"orders_by_status": statusStatsValue(s.OrdersByStatus),
		"top_books":        top,
		"recent_orders":    ordersValue(s.RecentOrders),
		"monthly_sales":    monthly,
		"generated_at":     timeValue(s.GeneratedAt),
	}
}
