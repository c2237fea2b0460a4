package lifecycle

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/bookstore/internal/domain"
	"github.com/vladislavdragonenkov/bookstore/internal/metrics"
	"github.com/vladislavdragonenkov/bookstore/internal/service/saga"
)

// Названия операций для логов, метрик и InventoryAdjustmentError.
const (
	OperationPlace     = "place"
	OperationCancel    = "cancel"
	OperationSetStatus = "set_status"
	OperationPayment   = "confirm_payment"
)

// StockAdjuster применяет дельты к остаткам книг.
type StockAdjuster interface {
	AdjustStock(ctx context.Context, bookID string, deltaQuantity, deltaSales int64) (domain.Book, error)
}

// Manager управляет жизненным циклом заказа: оформление, отмена, смена статуса, подтверждение оплаты.
// Запись заказа и корректировки N книг выполняются единицей работы с компенсациями.
type Manager struct {
	orders  domain.OrderRepository
	books   domain.BookRepository
	stock   StockAdjuster
	outbox  domain.OutboxRepository
	metrics *metrics.LifecycleMetrics
	logger  *log.Entry
	retry   saga.RetryConfig

	now           func() time.Time
	newID         func() string
	shippingMinor int64
	currency      string
}

// Option настраивает Manager.
type Option func(*Manager)

// WithOutbox включает запись доменных событий в outbox.
func WithOutbox(outbox domain.OutboxRepository) Option {
	return func(m *Manager) {
		m.outbox = outbox
	}
}

// WithMetrics задаёт метрики.
func WithMetrics(lm *metrics.LifecycleMetrics) Option {
	return func(m *Manager) {
		m.metrics = lm
	}
}

// WithLogger задаёт logger.
func WithLogger(logger *log.Entry) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithClock подменяет источник времени.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// WithIDGenerator подменяет генератор идентификаторов.
func WithIDGenerator(newID func() string) Option {
	return func(m *Manager) {
		m.newID = newID
	}
}

// WithRetryConfig задаёт повторы при конфликте версий заказа.
func WithRetryConfig(cfg saga.RetryConfig) Option {
	return func(m *Manager) {
		m.retry = cfg
	}
}

// WithShippingFee задаёт фиксированную стоимость доставки в минимальных единицах.
func WithShippingFee(amountMinor int64) Option {
	return func(m *Manager) {
		if amountMinor >= 0 {
			m.shippingMinor = amountMinor
		}
	}
}

// WithDefaultCurrency задаёт валюту заказов без явной валюты.
func WithDefaultCurrency(currency string) Option {
	return func(m *Manager) {
		if currency = strings.TrimSpace(currency); currency != "" {
			m.currency = strings.ToUpper(currency)
		}
	}
}

// NewManager создаёт менеджер жизненного цикла заказов.
func NewManager(orders domain.OrderRepository, books domain.BookRepository, stock StockAdjuster, opts ...Option) *Manager {
	m := &Manager{
		orders:   orders,
		books:    books,
		stock:    stock,
		retry:    saga.DefaultRetryConfig(),
		now:      time.Now,
		newID:    uuid.NewString,
		currency: "USD",
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = log.WithField("component", "order-lifecycle")
	}
	if m.metrics == nil {
		m.metrics = metrics.NewLifecycleMetrics()
	}
	return m
}

// GetOrder возвращает заказ владельцу или администратору.
func (m *Manager) GetOrder(ctx context.Context, orderID string, actor domain.Actor) (domain.Order, error) {
	order, err := m.orders.Get(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	if !actor.IsAdmin() && order.UserID != actor.ID {
		return domain.Order{}, domain.ErrForbidden
	}
	return order, nil
}

// begin отмечает начало операции и возвращает функцию завершения.
func (m *Manager) begin(operation string) func() {
	start := m.now()
	m.metrics.OperationStarted()
	return func() {
		m.metrics.OperationFinished()
		m.metrics.ObserveOperation(operation, m.now().Sub(start))
	}
}

// timedStep оборачивает шаг саги замером длительности.
func (m *Manager) timedStep(name string, fn func(ctx context.Context) error) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		start := m.now()
		err := fn(ctx)
		m.metrics.ObserveStep(name, m.now().Sub(start))
		return err
	}
}

// saveWithRetry перечитывает заказ, применяет mutate и сохраняет с учётом версии.
// mutate получает свежую копию и может вернуть ошибку, прерывающую повторы.
func (m *Manager) saveWithRetry(ctx context.Context, operation, orderID string, mutate func(order *domain.Order) error) (domain.Order, error) {
	var saved domain.Order
	err := saga.RetryOnConflict(ctx, m.retry, m.logger, operation, func(ctx context.Context) error {
		order, err := m.orders.Get(ctx, orderID)
		if err != nil {
			return err
		}
		if err := mutate(&order); err != nil {
			return err
		}
		if err := m.orders.Save(ctx, order); err != nil {
			if domain.IsVersionConflict(err) {
				m.metrics.RecordVersionConflict()
			}
			return err
		}
		order.Version++
		saved = order
		return nil
	})
	return saved, err
}

// emit пишет событие в outbox. Ошибка записи логируется и не прерывает операцию.
func (m *Manager) emit(ctx context.Context, aggregateType, aggregateID, eventType string, payload any) {
	if m.outbox == nil {
		return
	}
	msg, err := domain.NewOutboxMessage(aggregateType, aggregateID, eventType, payload)
	if err == nil {
		_, err = m.outbox.Enqueue(ctx, msg)
	}
	if err != nil {
		m.logger.WithError(err).WithFields(log.Fields{
			"aggregate_id": aggregateID,
			"event_type":   eventType,
		}).Warn("failed to enqueue outbox event")
		return
	}
	m.metrics.RecordOutboxEvent()
}

// adjustmentError переводит сбой саги в InventoryAdjustmentError и фиксирует расхождение.
func (m *Manager) adjustmentError(ctx context.Context, operation, orderID string, failure domain.AdjustmentFailure, stepErr *saga.StepError) error {
	adjErr := &domain.InventoryAdjustmentError{
		OrderID:          orderID,
		Operation:        operation,
		Failure:          failure,
		CompensationErrs: stepErr.CompensationErrs,
	}
	m.metrics.RecordCompensation(operation, adjErr.Compensated())

	logger := m.logger.WithFields(log.Fields{
		"order_id":  orderID,
		"operation": operation,
		"book_id":   failure.BookID,
	})
	if adjErr.Compensated() {
		logger.WithError(failure.Err).Warn("Inventory adjustment failed, changes rolled back")
		return adjErr
	}

	logger.WithError(adjErr).Error("Inventory adjustment failed, order and stock are out of sync")
	m.emit(context.WithoutCancel(ctx), domain.AggregateOrder, orderID, domain.EventInventoryDrift, domain.NewInventoryDriftEvent(adjErr, m.now()))
	return adjErr
}
