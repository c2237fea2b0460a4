package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// Ошибка отсутствующего владельца заказа.
	ErrUserRequired = errors.New("user_id is required")
	// Ошибка отсутствующего кода валюты.
	ErrCurrencyRequired = errors.New("currency is required")
	// Ошибка отсутствия хотя бы одной позиции в заказе.
	ErrItemsRequired = errors.New("order must contain at least one item")
	// Ошибка отрицательной суммы заказа.
	ErrAmountNegative = errors.New("order amounts must be non-negative")
	// Ошибка при некорректном количестве товара (<= 0).
	ErrItemQtyInvalid = errors.New("item qty must be greater than zero")
	// Ошибка, если цена позиции отрицательная.
	ErrItemPriceInvalid = errors.New("item price must be non-negative")
	// Ошибка несоответствия итогов заказа сумме позиций.
	ErrAmountMismatch = errors.New("order summary does not match items sum")
	// Ошибка отсутствующего идентификатора книги.
	ErrBookIDRequired = errors.New("book_id is required")
	// Ошибка отрицательного остатка или счётчика продаж.
	ErrStockNegative = errors.New("stock and sales counters must be non-negative")
	// Ошибка рассинхронизации флага наличия и остатка.
	ErrStockFlagOutOfSync = errors.New("in_stock flag does not match stock count")
	// Ошибка, если последняя запись timeline не совпадает со статусом заказа.
	ErrTimelineOutOfSync = errors.New("order timeline does not end with current status")
	// Ошибка неизвестного статуса оплаты.
	ErrInvalidPaymentStatus = errors.New("invalid payment status")

	// ErrOrderNotFound возвращается, если заказ не найден в репозитории.
	ErrOrderNotFound = errors.New("order not found")
	// ErrBookNotFound возвращается, если книга не найдена в репозитории.
	ErrBookNotFound = errors.New("book not found")
	// ErrOrderVersionConflict сигнализирует о конфликте версий при сохранении.
	ErrOrderVersionConflict = errors.New("order version conflict")
	// ErrBookAlreadyExists — книга с таким ID уже заведена.
	ErrBookAlreadyExists = errors.New("book already exists")
	// ErrForbidden — у актора нет прав на операцию.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidTransition — переход из текущего статуса запрещён.
	ErrInvalidTransition = errors.New("invalid order status transition")
	// ErrInvalidStatus — статус вне перечисления.
	ErrInvalidStatus = errors.New("invalid order status")
	// ErrInsufficientStock — остатка книги не хватает для списания.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrInsufficientSales — счётчик продаж ушёл бы в минус.
	ErrInsufficientSales = errors.New("sales count cannot go negative")
	// ErrInventoryAdjustment — корректировка склада не применена, заказ и книги могут разойтись.
	ErrInventoryAdjustment = errors.New("inventory adjustment failed")
	// ErrReasonTooLong — причина отмены длиннее MaxCancellationReasonLength.
	ErrReasonTooLong = errors.New("cancellation reason is too long")
	// ErrActorRequired — операция вызвана без идентификатора актора.
	ErrActorRequired = errors.New("actor id is required")
	// ErrOutboxPublish — ошибка при публикации сообщения из outbox.
	ErrOutboxPublish = errors.New("outbox publish failed")
)

// TransitionError описывает запрещённый переход с текущим и запрошенным статусом.
type TransitionError struct {
	From OrderStatus
	To   OrderStatus
}

// NewTransitionError создаёт ошибку перехода.
func NewTransitionError(from, to OrderStatus) *TransitionError {
	return &TransitionError{From: from, To: to}
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: %s -> %s", ErrInvalidTransition, e.From, e.To)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}

// AdjustmentFailure — одна неудачная корректировка остатка.
type AdjustmentFailure struct {
	BookID        string
	DeltaQuantity int64
	DeltaSales    int64
	Err           error
}

// InventoryAdjustmentError сообщает, что операция над заказом завершилась не полностью.
// Если CompensationErrs пуст, все уже применённые изменения откатаны и состояние согласовано.
// Иначе заказ и остатки разошлись и требуют сверки.
type InventoryAdjustmentError struct {
	OrderID          string
	Operation        string
	Failure          AdjustmentFailure
	CompensationErrs []error
}

// Compensated сообщает, удалось ли откатить уже применённые шаги.
func (e *InventoryAdjustmentError) Compensated() bool {
	return len(e.CompensationErrs) == 0
}

func (e *InventoryAdjustmentError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s order %s", ErrInventoryAdjustment, e.Operation, e.OrderID)
	if e.Failure.BookID != "" {
		fmt.Fprintf(&b, " (book %s, delta %d)", e.Failure.BookID, e.Failure.DeltaQuantity)
	}
	if e.Failure.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Failure.Err)
	}
	if e.Compensated() {
		b.WriteString("; rolled back")
	} else {
		fmt.Fprintf(&b, "; compensation incomplete: %v", errors.Join(e.CompensationErrs...))
	}
	return b.String()
}

func (e *InventoryAdjustmentError) Unwrap() []error {
	errs := []error{ErrInventoryAdjustment}
	if e.Failure.Err != nil {
		errs = append(errs, e.Failure.Err)
	}
	return errs
}

// IsVersionConflict проверяет, является ли ошибка конфликтом версий.
func IsVersionConflict(err error) bool {
	return errors.Is(err, ErrOrderVersionConflict)
}

// IsNotFound проверяет, что заказ или книга не найдены.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrOrderNotFound) || errors.Is(err, ErrBookNotFound)
}

// IsForbidden проверяет ошибку прав доступа.
func IsForbidden(err error) bool {
	return errors.Is(err, ErrForbidden)
}

// IsInvalidTransition проверяет ошибку перехода статуса.
func IsInvalidTransition(err error) bool {
	return errors.Is(err, ErrInvalidTransition)
}

// IsInvalidStatus проверяет ошибку неизвестного статуса.
func IsInvalidStatus(err error) bool {
	return errors.Is(err, ErrInvalidStatus)
}

// IsInventoryAdjustment проверяет частичный сбой корректировки склада.
func IsInventoryAdjustment(err error) bool {
	return errors.Is(err, ErrInventoryAdjustment)
}

// IsValidation проверяет ошибки некорректного ввода.
func IsValidation(err error) bool {
	for _, target := range []error{
		ErrInvalidStatus,
		ErrReasonTooLong,
		ErrActorRequired,
		ErrItemsRequired,
		ErrItemQtyInvalid,
		ErrBookIDRequired,
		ErrCurrencyRequired,
		ErrUserRequired,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
