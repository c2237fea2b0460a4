package lifecycle

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/bookstore/internal/domain"
)

// SetOrderStatus выставляет заказу любой статус из перечисления. Только для администратора.
// Порядок переходов не проверяется, склад не корректируется.
func (m *Manager) SetOrderStatus(ctx context.Context, orderID string, status domain.OrderStatus, message, trackingID string, actor domain.Actor) (domain.Order, error) {
	defer m.begin(OperationSetStatus)()

	if actor.ID == "" {
		return domain.Order{}, domain.ErrActorRequired
	}
	if !actor.IsAdmin() {
		return domain.Order{}, domain.ErrForbidden
	}
	if !status.Valid() {
		return domain.Order{}, fmt.Errorf("%w: %q", domain.ErrInvalidStatus, string(status))
	}

	var previous domain.OrderStatus
	updated, err := m.saveWithRetry(ctx, OperationSetStatus, orderID, func(order *domain.Order) error {
		previous = order.Status
		return order.SetStatus(status, message, actor.ID, trackingID, m.now())
	})
	if err != nil {
		return domain.Order{}, err
	}

	m.metrics.RecordStatusTransition(string(status))
	m.emit(ctx, domain.AggregateOrder, updated.ID, domain.EventOrderStatusChanged, domain.NewOrderEvent(updated, previous, actor.ID))

	if previous.Terminal() && !status.Terminal() {
		// Заказ снова может быть отменён, и склад вернётся повторно.
		m.logger.WithFields(log.Fields{
			"order_id":        orderID,
			"actor_id":        actor.ID,
			"previous_status": previous,
			"status":          status,
		}).Warn("Order reopened from terminal status")
	}

	m.logger.WithFields(log.Fields{
		"order_id":        orderID,
		"actor_id":        actor.ID,
		"previous_status": previous,
		"status":          status,
	}).Info("Order status updated")
	return updated, nil
}
