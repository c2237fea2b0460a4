package rest

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vladislavdragonenkov/bookstore/internal/domain"
	"github.com/vladislavdragonenkov/bookstore/internal/service/lifecycle"
)

// Lifecycle — операции над заказом.
type Lifecycle interface {
	PlaceOrder(ctx context.Context, actor domain.Actor, req lifecycle.PlaceOrderRequest) (domain.Order, error)
	GetOrder(ctx context.Context, orderID string, actor domain.Actor) (domain.Order, error)
	CancelOrder(ctx context.Context, orderID string, actor domain.Actor, reason string) (domain.Order, error)
	SetOrderStatus(ctx context.Context, orderID string, status domain.OrderStatus, message, trackingID string, actor domain.Actor) (domain.Order, error)
	ConfirmPayment(ctx context.Context, orderID, provider, transactionID string, actor domain.Actor) (domain.Order, error)
}

// Reports отдаёт read-only выборки.
type Reports interface {
	ListOrders(ctx context.Context, actor domain.Actor, filter domain.OrderFilter, page domain.PageRequest) (domain.OrderPage, error)
	AdminStats(ctx context.Context, actor domain.Actor, window domain.DateRange) (domain.AdminStats, error)
}

// Inventory — корректировка остатков.
type Inventory interface {
	AdjustStock(ctx context.Context, bookID string, deltaQuantity, deltaSales int64) (domain.Book, error)
}

// Handler обслуживает REST API магазина.
type Handler struct {
	lifecycle Lifecycle
	reports   Reports
	inventory Inventory
}

// NewHandler создаёт Handler.
func NewHandler(lc Lifecycle, reports Reports, inventory Inventory) *Handler {
	return &Handler{lifecycle: lc, reports: reports, inventory: inventory}
}

// PlaceOrder handles POST /api/orders.
func (h *Handler) PlaceOrder(c *gin.Context) {
	var req placeOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	items := make([]lifecycle.PlaceOrderItem, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, lifecycle.PlaceOrderItem{BookID: item.BookID, Qty: item.Quantity})
	}
	order, err := h.lifecycle.PlaceOrder(c.Request.Context(), CurrentActor(c), lifecycle.PlaceOrderRequest{
		Items:           items,
		Currency:        req.Currency,
		ShippingAddress: domain.ShippingAddress(req.ShippingAddress),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toOrderDTO(order))
}

// ListMyOrders handles GET /api/orders.
func (h *Handler) ListMyOrders(c *gin.Context) {
	filter, err := statusFilter(c)
	if err != nil {
		writeError(c, err)
		return
	}

	actor := CurrentActor(c)
	// Собственный список покупателя: роль не расширяет выборку.
	actor.Role = domain.RoleCustomer
	page, err := h.reports.ListOrders(c.Request.Context(), actor, filter, pageRequest(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrderPageDTO(page))
}

// GetOrder handles GET /api/orders/:id.
func (h *Handler) GetOrder(c *gin.Context) {
	order, err := h.lifecycle.GetOrder(c.Request.Context(), c.Param("id"), CurrentActor(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrderDTO(order))
}

// CancelOrder handles PUT /api/orders/:id/cancel.
func (h *Handler) CancelOrder(c *gin.Context) {
	var req cancelOrderRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			abortWithError(c, http.StatusBadRequest, "validation_failed", err.Error())
			return
		}
	}

	order, err := h.lifecycle.CancelOrder(c.Request.Context(), c.Param("id"), CurrentActor(c), req.Reason)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrderDTO(order))
}

// ListAllOrders handles GET /api/admin/orders.
func (h *Handler) ListAllOrders(c *gin.Context) {
	filter, err := statusFilter(c)
	if err != nil {
		writeError(c, err)
		return
	}
	filter.Search = c.Query("search")

	page, err := h.reports.ListOrders(c.Request.Context(), CurrentActor(c), filter, pageRequest(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrderPageDTO(page))
}

// SetOrderStatus handles PUT /api/admin/orders/:id/status.
func (h *Handler) SetOrderStatus(c *gin.Context) {
	var req setStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}
	status, err := domain.ParseOrderStatus(req.Status)
	if err != nil {
		writeError(c, err)
		return
	}

	order, err := h.lifecycle.SetOrderStatus(c.Request.Context(), c.Param("id"), status, req.Message, req.TrackingID, CurrentActor(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrderDTO(order))
}

// ConfirmPayment handles PUT /api/admin/orders/:id/payment.
func (h *Handler) ConfirmPayment(c *gin.Context) {
	var req confirmPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	order, err := h.lifecycle.ConfirmPayment(c.Request.Context(), c.Param("id"), req.Provider, req.TransactionID, CurrentActor(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrderDTO(order))
}

// AdminStats handles GET /api/admin/stats.
func (h *Handler) AdminStats(c *gin.Context) {
	window, err := dateRange(c.Query("from"), c.Query("to"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	stats, err := h.reports.AdminStats(c.Request.Context(), CurrentActor(c), window)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toAdminStatsDTO(stats))
}

// AdjustStock handles POST /api/admin/books/:id/stock.
func (h *Handler) AdjustStock(c *gin.Context) {
	var req adjustStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	book, err := h.inventory.AdjustStock(c.Request.Context(), c.Param("id"), req.DeltaQuantity, req.DeltaSales)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBookDTO(book))
}

// statusFilter читает необязательный ?status=; "all" равнозначен отсутствию фильтра.
func statusFilter(c *gin.Context) (domain.OrderFilter, error) {
	var filter domain.OrderFilter
	if raw := strings.TrimSpace(c.Query("status")); raw != "" && raw != "all" {
		status, err := domain.ParseOrderStatus(raw)
		if err != nil {
			return domain.OrderFilter{}, err
		}
		filter.Status = status
	}
	return filter, nil
}

// pageRequest читает page и limit; некорректные значения нормализует сервис.
func pageRequest(c *gin.Context) domain.PageRequest {
	page, _ := strconv.Atoi(c.Query("page"))
	size, _ := strconv.Atoi(c.Query("limit"))
	return domain.PageRequest{Page: page, Size: size}
}

// dateRange разбирает окно [from, to) в формате RFC3339 или YYYY-MM-DD.
func dateRange(fromRaw, toRaw string) (domain.DateRange, error) {
	var (
		window domain.DateRange
		err    error
	)
	if window.From, err = parseDate(fromRaw); err != nil {
		return domain.DateRange{}, fmt.Errorf("invalid from: %w", err)
	}
	if window.To, err = parseDate(toRaw); err != nil {
		return domain.DateRange{}, fmt.Errorf("invalid to: %w", err)
	}
	if !window.From.IsZero() && !window.To.IsZero() && !window.From.Before(window.To) {
		return domain.DateRange{}, fmt.Errorf("from must be before to")
	}
	return window, nil
}

func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
