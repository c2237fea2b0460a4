package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/bookstore/internal/domain"
	"github.com/vladislavdragonenkov/bookstore/internal/service/saga"
)

const revertMessage = "Cancellation rolled back: inventory adjustment failed"

// CancelOrder отменяет заказ владельца и возвращает экземпляры на склад.
//
// Первый шаг сохраняет отменённый заказ: проверка статуса вместе с версией заказа
// пропускает только одну из конкурирующих отмен. Следующие шаги применяют (+qty, -qty)
// по каждой позиции. При сбое выполненные шаги откатываются в обратном порядке,
// заказ возвращается в прежний статус, а вызывающий получает *domain.InventoryAdjustmentError.
func (m *Manager) CancelOrder(ctx context.Context, orderID string, actor domain.Actor, reason string) (domain.Order, error) {
	defer m.begin(OperationCancel)()

	if actor.ID == "" {
		return domain.Order{}, domain.ErrActorRequired
	}
	reason = strings.TrimSpace(reason)
	if utf8.RuneCountInString(reason) > domain.MaxCancellationReasonLength {
		return domain.Order{}, domain.ErrReasonTooLong
	}

	// Позиции заказа неизменны после оформления, поэтому план шагов строится по текущему снимку.
	snapshot, err := m.orders.Get(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	if snapshot.UserID != actor.ID {
		return domain.Order{}, domain.ErrForbidden
	}

	logger := m.logger.WithFields(log.Fields{
		"order_id": orderID,
		"actor_id": actor.ID,
	})

	var previous, cancelled domain.Order

	tx := saga.New("cancel-order", logger)
	tx.AddStep("mark-cancelled", m.timedStep("mark-cancelled", func(ctx context.Context) error {
		saved, err := m.saveWithRetry(ctx, OperationCancel, orderID, func(order *domain.Order) error {
			previous = order.Clone()
			return order.Cancel(reason, actor.ID, m.now())
		})
		if err != nil {
			return err
		}
		cancelled = saved
		return nil
	}), func(ctx context.Context) error {
		return m.revertCancellation(ctx, orderID, previous, actor.ID)
	})

	for _, item := range snapshot.Items {
		item := item
		qty := int64(item.Qty)
		name := "restock:" + item.BookID
		tx.AddStep(name, m.timedStep(name, func(ctx context.Context) error {
			_, err := m.stock.AdjustStock(ctx, item.BookID, qty, -qty)
			return err
		}), func(ctx context.Context) error {
			_, err := m.stock.AdjustStock(ctx, item.BookID, -qty, qty)
			return err
		})
	}

	if err := tx.Execute(ctx); err != nil {
		var stepErr *saga.StepError
		if !errors.As(err, &stepErr) {
			return domain.Order{}, err
		}
		// Отмена не сохранилась: откатывать нечего, возвращаем исходную ошибку.
		if stepErr.Index == 0 {
			return domain.Order{}, stepErr.Err
		}
		item := snapshot.Items[stepErr.Index-1]
		failure := domain.AdjustmentFailure{
			BookID:        item.BookID,
			DeltaQuantity: int64(item.Qty),
			DeltaSales:    -int64(item.Qty),
			Err:           stepErr.Err,
		}
		return domain.Order{}, m.adjustmentError(ctx, OperationCancel, orderID, failure, stepErr)
	}

	m.metrics.RecordOrderCancelled()
	m.metrics.RecordStatusTransition(string(domain.OrderStatusCancelled))
	m.emit(ctx, domain.AggregateOrder, cancelled.ID, domain.EventOrderCancelled, domain.NewOrderEvent(cancelled, previous.Status, actor.ID))

	logger.WithFields(log.Fields{
		"previous_status": previous.Status,
		"items":           len(cancelled.Items),
	}).Info("Order cancelled")
	return cancelled, nil
}

// revertCancellation возвращает заказу статус до отмены, если после отмены его никто не менял.
func (m *Manager) revertCancellation(ctx context.Context, orderID string, previous domain.Order, actorID string) error {
	if previous.ID == "" {
		return nil
	}
	_, err := m.saveWithRetry(ctx, "revert_cancel", orderID, func(order *domain.Order) error {
		if order.Status != domain.OrderStatusCancelled {
			return fmt.Errorf("order %s changed to %s during rollback: %w", orderID, order.Status, domain.ErrInvalidTransition)
		}
		order.Revert(previous, revertMessage, actorID, m.now())
		return nil
	})
	return err
}
