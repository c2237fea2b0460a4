package rest

import (
	"time"

	"github.com/vladislavdragonenkov/bookstore/internal/domain"
)

type placeOrderItemRequest struct {
	BookID   string `json:"bookId" binding:"required"`
	Quantity int32  `json:"quantity" binding:"required,gt=0"`
}

type addressDTO struct {
	Name       string `json:"name"`
	Phone      string `json:"phone"`
	Line1      string `json:"line1"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postalCode"`
}

type placeOrderRequest struct {
	Items           []placeOrderItemRequest `json:"items" binding:"required,min=1,dive"`
	Currency        string                  `json:"currency"`
	ShippingAddress addressDTO              `json:"shippingAddress"`
}

type cancelOrderRequest struct {
	Reason string `json:"reason"`
}

type setStatusRequest struct {
	Status     string `json:"status" binding:"required"`
	Message    string `json:"message"`
	TrackingID string `json:"trackingId"`
}

type confirmPaymentRequest struct {
	Provider      string `json:"provider"`
	TransactionID string `json:"transactionId"`
}

type adjustStockRequest struct {
	DeltaQuantity int64 `json:"deltaQuantity"`
	DeltaSales    int64 `json:"deltaSales"`
}

type orderItemDTO struct {
	ID         string `json:"id"`
	BookID     string `json:"bookId"`
	Title      string `json:"title"`
	Quantity   int32  `json:"quantity"`
	PriceMinor int64  `json:"priceMinor"`
}

type timelineDTO struct {
	Status    string    `json:"status"`
	Message   string    `json:"message"`
	UpdatedBy string    `json:"updatedBy"`
	Timestamp time.Time `json:"timestamp"`
}

type orderSummaryDTO struct {
	SubtotalMinor int64 `json:"subtotalMinor"`
	ShippingMinor int64 `json:"shippingMinor"`
	TaxMinor      int64 `json:"taxMinor"`
	TotalMinor    int64 `json:"totalMinor"`
}

type paymentDTO struct {
	Status        string     `json:"status"`
	Provider      string     `json:"provider,omitempty"`
	TransactionID string     `json:"transactionId,omitempty"`
	PaidAt        *time.Time `json:"paidAt,omitempty"`
}

type shippingDTO struct {
	TrackingID        string     `json:"trackingId,omitempty"`
	EstimatedDelivery *time.Time `json:"estimatedDelivery,omitempty"`
	ActualDelivery    *time.Time `json:"actualDelivery,omitempty"`
}

type orderDTO struct {
	ID                 string          `json:"id"`
	OrderNumber        string          `json:"orderNumber"`
	UserID             string          `json:"userId"`
	Items              []orderItemDTO  `json:"items"`
	OrderStatus        string          `json:"orderStatus"`
	Currency           string          `json:"currency"`
	OrderSummary       orderSummaryDTO `json:"orderSummary"`
	PaymentDetails     paymentDTO      `json:"paymentDetails"`
	ShippingAddress    addressDTO      `json:"shippingAddress"`
	ShippingDetails    shippingDTO     `json:"shippingDetails"`
	CancellationReason string          `json:"cancellationReason,omitempty"`
	CancelledAt        *time.Time      `json:"cancelledAt,omitempty"`
	Timeline           []timelineDTO   `json:"timeline"`
	CreatedAt          time.Time       `json:"createdAt"`
	UpdatedAt          time.Time       `json:"updatedAt"`
}

type paginationDTO struct {
	CurrentPage int  `json:"currentPage"`
	PageSize    int  `json:"pageSize"`
	TotalOrders int  `json:"totalOrders"`
	TotalPages  int  `json:"totalPages"`
	HasNext     bool `json:"hasNext"`
	HasPrev     bool `json:"hasPrev"`
}

type statusStatDTO struct {
	Status     string `json:"status"`
	Count      int    `json:"count"`
	TotalMinor int64  `json:"totalAmountMinor"`
}

type orderPageDTO struct {
	Orders      []orderDTO      `json:"orders"`
	Pagination  paginationDTO   `json:"pagination"`
	StatusStats []statusStatDTO `json:"statusStats,omitempty"`
}

type bookDTO struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Author     string    `json:"author,omitempty"`
	PriceMinor int64     `json:"priceMinor"`
	StockCount int64     `json:"stockCount"`
	InStock    bool      `json:"inStock"`
	SalesCount int64     `json:"salesCount"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

type overviewDTO struct {
	TotalBooks            int     `json:"totalBooks"`
	TotalOrders           int     `json:"totalOrders"`
	TotalRevenueMinor     int64   `json:"totalRevenueMinor"`
	ThisMonthRevenueMinor int64   `json:"thisMonthRevenueMinor"`
	LastMonthRevenueMinor int64   `json:"lastMonthRevenueMinor"`
	RevenueGrowth         float64 `json:"revenueGrowth"`
}

type topBookDTO struct {
	BookID     string `json:"bookId"`
	Title      string `json:"title"`
	Author     string `json:"author,omitempty"`
	PriceMinor int64  `json:"priceMinor"`
	SalesCount int64  `json:"salesCount"`
	StockCount int64  `json:"stockCount"`
}

type monthlySalesDTO struct {
	Year         int   `json:"year"`
	Month        int   `json:"month"`
	RevenueMinor int64 `json:"revenueMinor"`
	Orders       int   `json:"orders"`
}

type adminStatsDTO struct {
	Overview       overviewDTO       `json:"overview"`
	OrdersByStatus []statusStatDTO   `json:"ordersByStatus"`
	TopBooks       []topBookDTO      `json:"topBooks"`
	RecentOrders   []orderDTO        `json:"recentOrders"`
	MonthlySales   []monthlySalesDTO `json:"monthlySales"`
	GeneratedAt    time.Time         `json:"generatedAt"`
}

type errorDTO struct {
	Code        string `json:"code"`
	Message     string `json:"message"`
	Compensated *bool  `json:"compensated,omitempty"`
}

type errorResponse struct {
	Error errorDTO `json:"error"`
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func toOrderDTO(o domain.Order) orderDTO {
	items := make([]orderItemDTO, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, orderItemDTO{
			ID:         item.ID,
			BookID:     item.BookID,
			Title:      item.Title,
			Quantity:   item.Qty,
			PriceMinor: item.PriceMinor,
		})
	}
	timeline := make([]timelineDTO, 0, len(o.Timeline))
	for _, entry := range o.Timeline {
		timeline = append(timeline, timelineDTO{
			Status:    string(entry.Status),
			Message:   entry.Message,
			UpdatedBy: entry.ActorID,
			Timestamp: entry.Occurred,
		})
	}
	return orderDTO{
		ID:          o.ID,
		OrderNumber: o.Number,
		UserID:      o.UserID,
		Items:       items,
		OrderStatus: string(o.Status),
		Currency:    o.Currency,
		OrderSummary: orderSummaryDTO{
			SubtotalMinor: o.Summary.SubtotalMinor,
			ShippingMinor: o.Summary.ShippingMinor,
			TaxMinor:      o.Summary.TaxMinor,
			TotalMinor:    o.Summary.TotalMinor,
		},
		PaymentDetails: paymentDTO{
			Status:        string(o.Payment.Status),
			Provider:      o.Payment.Provider,
			TransactionID: o.Payment.TransactionID,
			PaidAt:        optionalTime(o.Payment.PaidAt),
		},
		ShippingAddress: addressDTO(o.ShippingAddress),
		ShippingDetails: shippingDTO{
			TrackingID:        o.Shipping.TrackingID,
			EstimatedDelivery: optionalTime(o.Shipping.EstimatedDelivery),
			ActualDelivery:    optionalTime(o.Shipping.ActualDelivery),
		},
		CancellationReason: o.CancellationReason,
		CancelledAt:        optionalTime(o.CancelledAt),
		Timeline:           timeline,
		CreatedAt:          o.CreatedAt,
		UpdatedAt:          o.UpdatedAt,
	}
}

func toOrderDTOs(orders []domain.Order) []orderDTO {
	out := make([]orderDTO, 0, len(orders))
	for _, o := range orders {
		out = append(out, toOrderDTO(o))
	}
	return out
}

func toStatusStatDTOs(stats []domain.StatusStat) []statusStatDTO {
	out := make([]statusStatDTO, 0, len(stats))
	for _, s := range stats {
		out = append(out, statusStatDTO{Status: string(s.Status), Count: s.Count, TotalMinor: s.TotalMinor})
	}
	return out
}

func toOrderPageDTO(page domain.OrderPage) orderPageDTO {
	dto := orderPageDTO{
		Orders: toOrderDTOs(page.Orders),
		Pagination: paginationDTO{
			CurrentPage: page.Pagination.Page,
			PageSize:    page.Pagination.PageSize,
			TotalOrders: page.Pagination.Total,
			TotalPages:  page.Pagination.TotalPages,
			HasNext:     page.Pagination.HasNext,
			HasPrev:     page.Pagination.HasPrev,
		},
	}
	if page.StatusStats != nil {
		dto.StatusStats = toStatusStatDTOs(page.StatusStats)
	}
	return dto
}

func toBookDTO(b domain.Book) bookDTO {
	return bookDTO{
		ID:         b.ID,
		Title:      b.Title,
		Author:     b.Author,
		PriceMinor: b.PriceMinor,
		StockCount: b.StockCount,
		InStock:    b.InStock,
		SalesCount: b.SalesCount,
		UpdatedAt:  b.UpdatedAt,
	}
}

func toAdminStatsDTO(s domain.AdminStats) adminStatsDTO {
	top := make([]topBookDTO, 0, len(s.TopBooks))
	for _, b := range s.TopBooks {
		top = append(top, topBookDTO(b))
	}
	monthly := make([]monthlySalesDTO, 0, len(s.MonthlySales))
	for _, m := range s.MonthlySales {
		monthly = append(monthly, monthlySalesDTO{
			Year:         m.Year,
			Month:        int(m.Month),
			RevenueMinor: m.RevenueMinor,
			Orders:       m.Orders,
		})
	}
	return adminStatsDTO{
		Overview: overviewDTO{
			TotalBooks:            s.Overview.TotalBooks,
			TotalOrders:           s.Overview.TotalOrders,
			TotalRevenueMinor:     s.Overview.TotalRevenueMinor,
			ThisMonthRevenueMinor: s.Overview.ThisMonthRevenueMinor,
			LastMonthRevenueMinor: s.Overview.LastMonthRevenueMinor,
			RevenueGrowth:         s.Overview.RevenueGrowth,
		},
		OrdersByStatus: toStatusStatDTOs(s.OrdersByStatus),
		TopBooks:       top,
		RecentOrders:   toOrderDTOs(s.RecentOrders),
		MonthlySales:   monthly,
		GeneratedAt:    s.GeneratedAt,
	}
}
