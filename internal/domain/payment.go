package domain

import (
	"fmt"
	"strings"
	"time"
)

// PaymentStatus описывает состояние оплаты заказа.
type PaymentStatus string

const (
	// PaymentStatusUnpaid — оплата ещё не поступила.
	PaymentStatusUnpaid PaymentStatus = "unpaid"
	// PaymentStatusPaid — платёж подтверждён провайдером.
	PaymentStatusPaid PaymentStatus = "paid"
	// PaymentStatusRefunded — деньги возвращены покупателю.
	PaymentStatusRefunded PaymentStatus = "refunded"
)

// Valid проверяет, что статус платежа входит в перечисление.
func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusUnpaid, PaymentStatusPaid, PaymentStatusRefunded:
		return true
	default:
		return false
	}
}

// PaymentDetails хранит поля платёжного провайдера, которые сохраняет заказ.
type PaymentDetails struct {
	Status        PaymentStatus
	Provider      string
	TransactionID string // Может быть пустым до подтверждения оплаты.
	PaidAt        time.Time
}

// ConfirmPayment фиксирует подтверждённую провайдером оплату.
// Заказ в статусе pending переходит в confirmed; в остальных статусах статус не меняется,
// но запись об оплате всё равно попадает в timeline.
func (o *Order) ConfirmPayment(provider, transactionID, actorID string, now time.Time) error {
	if o.Payment.Status != PaymentStatusUnpaid {
		return fmt.Errorf("%w: payment is already %s", ErrInvalidTransition, o.Payment.Status)
	}
	if o.Status == OrderStatusCancelled || o.Status == OrderStatusReturned {
		return NewTransitionError(o.Status, OrderStatusConfirmed)
	}
	now = now.UTC()

	o.Payment = PaymentDetails{
		Status:        PaymentStatusPaid,
		Provider:      strings.TrimSpace(provider),
		TransactionID: strings.TrimSpace(transactionID),
		PaidAt:        now,
	}
	if o.Status == OrderStatusPending {
		o.Status = OrderStatusConfirmed
	}
	o.UpdatedAt = now

	message := "Payment received"
	if o.Payment.Provider != "" {
		message += " via " + o.Payment.Provider
	}
	o.appendTimeline(o.Status, message, actorID, now)
	return nil
}
