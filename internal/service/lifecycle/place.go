package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/bookstore/internal/domain"
	"github.com/vladislavdragonenkov/bookstore/internal/service/saga"
)

// PlaceOrderItem описывает позицию корзины.
type PlaceOrderItem struct {
	BookID string
	Qty    int32
}

// PlaceOrderRequest — данные для оформления заказа.
type PlaceOrderRequest struct {
	Items           []PlaceOrderItem
	Currency        string
	ShippingAddress domain.ShippingAddress
}

// PlaceOrder оформляет заказ: фиксирует цены книг, резервирует остатки (-qty, +qty)
// и сохраняет заказ в статусе pending. Если какой-то шаг не прошёл,
// уже зарезервированные остатки возвращаются.
func (m *Manager) PlaceOrder(ctx context.Context, actor domain.Actor, req PlaceOrderRequest) (domain.Order, error) {
	defer m.begin(OperationPlace)()

	if actor.ID == "" {
		return domain.Order{}, domain.ErrActorRequired
	}
	if len(req.Items) == 0 {
		return domain.Order{}, domain.ErrItemsRequired
	}

	items := make([]domain.OrderItem, 0, len(req.Items))
	for _, line := range req.Items {
		bookID := strings.TrimSpace(line.BookID)
		if bookID == "" {
			return domain.Order{}, domain.ErrBookIDRequired
		}
		if line.Qty <= 0 {
			return domain.Order{}, fmt.Errorf("%w: book %s", domain.ErrItemQtyInvalid, bookID)
		}
		book, err := m.books.Get(ctx, bookID)
		if err != nil {
			return domain.Order{}, err
		}
		if !book.Active {
			return domain.Order{}, fmt.Errorf("%w: book %s is not available", domain.ErrBookNotFound, bookID)
		}
		items = append(items, domain.OrderItem{
			ID:         m.newID(),
			BookID:     book.ID,
			Title:      book.Title,
			Qty:        line.Qty,
			PriceMinor: book.PriceMinor,
		})
	}

	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = m.currency
	}

	now := m.now()
	order := domain.NewOrder(m.newID(), newOrderNumber(now, m.newID()), actor.ID, currency, items, m.shippingMinor, now)
	order.ShippingAddress = req.ShippingAddress
	if errs := order.ValidateInvariants(); len(errs) > 0 {
		return domain.Order{}, errors.Join(errs...)
	}

	logger := m.logger.WithFields(log.Fields{
		"order_id": order.ID,
		"actor_id": actor.ID,
	})

	tx := saga.New("place-order", logger)
	for _, item := range order.Items {
		item := item
		qty := int64(item.Qty)
		name := "reserve:" + item.BookID
		tx.AddStep(name, m.timedStep(name, func(ctx context.Context) error {
			_, err := m.stock.AdjustStock(ctx, item.BookID, -qty, qty)
			return err
		}), func(ctx context.Context) error {
			_, err := m.stock.AdjustStock(ctx, item.BookID, qty, -qty)
			return err
		})
	}
	tx.AddStep("create-order", m.timedStep("create-order", func(ctx context.Context) error {
		return m.orders.Create(ctx, order)
	}), nil)

	if err := tx.Execute(ctx); err != nil {
		var stepErr *saga.StepError
		if !errors.As(err, &stepErr) {
			return domain.Order{}, err
		}
		if stepErr.Compensated() {
			m.metrics.RecordCompensation(OperationPlace, true)
			logger.WithError(stepErr.Err).WithField("step", stepErr.Step).Warn("Order placement rolled back")
			return domain.Order{}, stepErr.Err
		}
		failure := domain.AdjustmentFailure{Err: stepErr.Err}
		if stepErr.Index < len(order.Items) {
			item := order.Items[stepErr.Index]
			failure.BookID = item.BookID
			failure.DeltaQuantity = -int64(item.Qty)
			failure.DeltaSales = int64(item.Qty)
		}
		return domain.Order{}, m.adjustmentError(ctx, OperationPlace, order.ID, failure, stepErr)
	}

	m.metrics.RecordOrderPlaced()
	m.metrics.RecordStatusTransition(string(domain.OrderStatusPending))
	m.emit(ctx, domain.AggregateOrder, order.ID, domain.EventOrderPlaced, domain.NewOrderEvent(order, "", actor.ID))

	logger.WithFields(log.Fields{
		"order_number": order.Number,
		"total_minor":  order.Summary.TotalMinor,
	}).Info("Order placed")
	return order, nil
}

// newOrderNumber формирует человекочитаемый номер BK-YYYYMMDD-XXXXXXXX.
func newOrderNumber(now time.Time, id string) string {
	suffix := strings.ToUpper(strings.ReplaceAll(id, "-", ""))
	if len(suffix) > 8 {
		suffix = suffix[:8]
	}
	return fmt.Sprintf("BK-%s-%s", now.UTC().Format("20060102"), suffix)
}
