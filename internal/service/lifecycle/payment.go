package lifecycle

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/bookstore/internal/domain"
)

// ConfirmPayment отмечает заказ оплаченным по данным платёжного провайдера. Только для администратора.
// Ожидающий заказ при этом переходит в confirmed, склад не корректируется.
func (m *Manager) ConfirmPayment(ctx context.Context, orderID, provider, transactionID string, actor domain.Actor) (domain.Order, error) {
	defer m.begin(OperationPayment)()

	if actor.ID == "" {
		return domain.Order{}, domain.ErrActorRequired
	}
	if !actor.IsAdmin() {
		return domain.Order{}, domain.ErrForbidden
	}

	var previous domain.OrderStatus
	updated, err := m.saveWithRetry(ctx, OperationPayment, orderID, func(order *domain.Order) error {
		previous = order.Status
		return order.ConfirmPayment(provider, transactionID, actor.ID, m.now())
	})
	if err != nil {
		return domain.Order{}, err
	}

	if updated.Status != previous {
		m.metrics.RecordStatusTransition(string(updated.Status))
	}
	m.emit(ctx, domain.AggregateOrder, updated.ID, domain.EventOrderPaid, domain.NewOrderEvent(updated, previous, actor.ID))

	m.logger.WithFields(log.Fields{
		"order_id":       orderID,
		"actor_id":       actor.ID,
		"provider":       updated.Payment.Provider,
		"transaction_id": updated.Payment.TransactionID,
		"status":         updated.Status,
	}).Info("Order payment confirmed")
	return updated, nil
}
