package domain

import (
	"fmt"
	"strings"
	"time"
)

// OrderStatus описывает жизненный цикл заказа в книжном магазине.
type OrderStatus string

const (
	// OrderStatusPending — заказ оформлен и ожидает подтверждения.
	OrderStatusPending OrderStatus = "pending"
	// OrderStatusConfirmed — заказ подтверждён магазином.
	OrderStatusConfirmed OrderStatus = "confirmed"
	// OrderStatusProcessing — заказ собирается на складе.
	OrderStatusProcessing OrderStatus = "processing"
	// OrderStatusShipped — заказ передан в доставку.
	OrderStatusShipped OrderStatus = "shipped"
	// OrderStatusOutForDelivery — курьер везёт заказ покупателю.
	OrderStatusOutForDelivery OrderStatus = "out-for-delivery"
	// OrderStatusDelivered — заказ вручён покупателю.
	OrderStatusDelivered OrderStatus = "delivered"
	// OrderStatusCancelled — заказ отменён до отгрузки.
	OrderStatusCancelled OrderStatus = "cancelled"
	// OrderStatusReturned — заказ возвращён покупателем.
	OrderStatusReturned OrderStatus = "returned"
)

var orderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusConfirmed,
	OrderStatusProcessing,
	OrderStatusShipped,
	OrderStatusOutForDelivery,
	OrderStatusDelivered,
	OrderStatusCancelled,
	OrderStatusReturned,
}

const (
	// DefaultCancellationReason сохраняется, если покупатель не указал причину отмены.
	DefaultCancellationReason = "Cancelled by customer"
	// MaxCancellationReasonLength — предельная длина причины отмены в символах.
	MaxCancellationReasonLength = 500

	cancellationMessageFallback = "Customer request"
	orderPlacedMessage          = "Order placed"
)

// OrderStatuses возвращает все допустимые статусы в порядке жизненного цикла.
func OrderStatuses() []OrderStatus {
	out := make([]OrderStatus, len(orderStatuses))
	copy(out, orderStatuses)
	return out
}

// Valid проверяет, что статус входит в перечисление.
func (s OrderStatus) Valid() bool {
	for _, known := range orderStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Cancellable сообщает, можно ли отменить заказ в этом статусе.
func (s OrderStatus) Cancellable() bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusProcessing:
		return true
	default:
		return false
	}
}

// Terminal сообщает, является ли статус конечным.
func (s OrderStatus) Terminal() bool {
	switch s {
	case OrderStatusDelivered, OrderStatusCancelled, OrderStatusReturned:
		return true
	default:
		return false
	}
}

// ParseOrderStatus разбирает статус из внешнего ввода.
func ParseOrderStatus(raw string) (OrderStatus, error) {
	status := OrderStatus(strings.ToLower(strings.TrimSpace(raw)))
	if !status.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, raw)
	}
	return status, nil
}

// OrderItem представляет одну позицию заказа.
type OrderItem struct {
	// ID позиции нужен для аудита.
	ID string
	// BookID — ссылка на книгу, сама книга в заказ не копируется.
	BookID string
	// Title фиксирует название на момент покупки для отображения.
	Title string
	// Qty — количество экземпляров.
	Qty int32
	// PriceMinor — цена за единицу на момент оформления (в минимальных единицах валюты).
	PriceMinor int64
}

// LineTotal возвращает стоимость позиции.
func (i OrderItem) LineTotal() int64 {
	return int64(i.Qty) * i.PriceMinor
}

// OrderSummary хранит итоговые суммы заказа.
type OrderSummary struct {
	SubtotalMinor int64
	ShippingMinor int64
	TaxMinor      int64
	TotalMinor    int64
}

// ShippingAddress — адрес доставки.
type ShippingAddress struct {
	Name       string
	Phone      string
	Line1      string
	City       string
	State      string
	PostalCode string
}

// ShippingDetails — данные службы доставки.
type ShippingDetails struct {
	TrackingID        string
	EstimatedDelivery time.Time
	ActualDelivery    time.Time
}

// Order агрегирует состояние заказа, его позиции и историю.
type Order struct {
	ID                 string
	Number             string
	UserID             string
	Items              []OrderItem
	Status             OrderStatus
	Currency           string
	Summary            OrderSummary
	Payment            PaymentDetails
	ShippingAddress    ShippingAddress
	Shipping           ShippingDetails
	CancellationReason string
	CancelledAt        time.Time
	Timeline           []TimelineEntry
	Version            int64
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// NewOrder собирает новый заказ в статусе pending с первой записью в timeline.
func NewOrder(id, number, userID, currency string, items []OrderItem, shippingMinor int64, now time.Time) Order {
	now = now.UTC()
	order := Order{
		ID:        id,
		Number:    number,
		UserID:    userID,
		Items:     append([]OrderItem(nil), items...),
		Status:    OrderStatusPending,
		Currency:  currency,
		Payment:   PaymentDetails{Status: PaymentStatusUnpaid},
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, item := range items {
		order.Summary.SubtotalMinor += item.LineTotal()
	}
	order.Summary.ShippingMinor = shippingMinor
	order.Summary.TotalMinor = order.Summary.SubtotalMinor + shippingMinor
	order.appendTimeline(OrderStatusPending, orderPlacedMessage, userID, now)
	return order
}

// ValidateInvariants проверяет базовые инварианты заказа и возвращает список замечаний.
func (o *Order) ValidateInvariants() []error {
	var errs []error

	if o.UserID == "" {
		errs = append(errs, ErrUserRequired)
	}
	if o.Currency == "" {
		errs = append(errs, ErrCurrencyRequired)
	}
	if len(o.Items) == 0 {
		errs = append(errs, ErrItemsRequired)
	}
	if !o.Status.Valid() {
		errs = append(errs, ErrInvalidStatus)
	}
	if !o.Payment.Status.Valid() {
		errs = append(errs, ErrInvalidPaymentStatus)
	}

	var subtotal int64
	for _, item := range o.Items {
		if item.BookID == "" {
			errs = append(errs, ErrBookIDRequired)
		}
		if item.Qty <= 0 {
			errs = append(errs, ErrItemQtyInvalid)
		}
		if item.PriceMinor < 0 {
			errs = append(errs, ErrItemPriceInvalid)
		}
		subtotal += item.LineTotal()
	}
	if subtotal != o.Summary.SubtotalMinor {
		errs = append(errs, ErrAmountMismatch)
	}
	if o.Summary.ShippingMinor < 0 || o.Summary.TaxMinor < 0 {
		errs = append(errs, ErrAmountNegative)
	}
	if o.Summary.SubtotalMinor+o.Summary.ShippingMinor+o.Summary.TaxMinor != o.Summary.TotalMinor {
		errs = append(errs, ErrAmountMismatch)
	}

	if last, ok := o.LastTimelineEntry(); !ok || last.Status != o.Status {
		errs = append(errs, ErrTimelineOutOfSync)
	}

	return errs
}

// Cancel переводит заказ в cancelled, если отгрузка ещё не началась.
func (o *Order) Cancel(reason, actorID string, now time.Time) error {
	if !o.Status.Cancellable() {
		return NewTransitionError(o.Status, OrderStatusCancelled)
	}
	now = now.UTC()
	reason = strings.TrimSpace(reason)

	o.Status = OrderStatusCancelled
	o.CancellationReason = reason
	if o.CancellationReason == "" {
		o.CancellationReason = DefaultCancellationReason
	}
	o.CancelledAt = now
	o.UpdatedAt = now

	message := reason
	if message == "" {
		message = cancellationMessageFallback
	}
	o.appendTimeline(OrderStatusCancelled, "Order cancelled: "+message, actorID, now)
	return nil
}

// SetStatus выставляет произвольный статус из перечисления (административная операция).
// Порядок переходов не проверяется.
func (o *Order) SetStatus(status OrderStatus, message, actorID, trackingID string, now time.Time) error {
	if !status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, string(status))
	}
	now = now.UTC()

	if trackingID = strings.TrimSpace(trackingID); trackingID != "" {
		o.Shipping.TrackingID = trackingID
	}
	o.Status = status
	if status == OrderStatusDelivered {
		o.Shipping.ActualDelivery = now
	}
	o.UpdatedAt = now

	if message = strings.TrimSpace(message); message == "" {
		message = fmt.Sprintf("Order status updated to %s", status)
	}
	o.appendTimeline(status, message, actorID, now)
	return nil
}

// LastTimelineEntry возвращает последнюю запись истории.
func (o *Order) LastTimelineEntry() (TimelineEntry, bool) {
	if len(o.Timeline) == 0 {
		return TimelineEntry{}, false
	}
	return o.Timeline[len(o.Timeline)-1], true
}

// Clone возвращает глубокую копию заказа.
func (o Order) Clone() Order {
	o.Items = append([]OrderItem(nil), o.Items...)
	o.Timeline = append([]TimelineEntry(nil), o.Timeline...)
	return o
}

func (o *Order) appendTimeline(status OrderStatus, message, actorID string, at time.Time) {
	o.Timeline = append(o.Timeline, TimelineEntry{
		Status:   status,
		Message:  message,
		ActorID:  actorID,
		Occurred: at,
	})
}

// Revert возвращает заказу статус previous и добавляет запись об откате в timeline.
func (o *Order) Revert(previous Order, message, actorID string, now time.Time) {
	now = now.UTC()
	o.Status = previous.Status
	o.CancellationReason = previous.CancellationReason
	o.CancelledAt = previous.CancelledAt
	o.Shipping = previous.Shipping
	o.UpdatedAt = now
	o.appendTimeline(previous.Status, message, actorID, now)
}
