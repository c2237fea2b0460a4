package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/vladislavdragonenkov/bookstore/internal/domain"
)

const orderColumns = `
	id, number, user_id, status, currency,
	subtotal_minor, shipping_minor, tax_minor, total_minor,
	payment_status, payment_provider, payment_transaction_id, paid_at,
	shipping_address, tracking_id, estimated_delivery, actual_delivery,
	cancellation_reason, cancelled_at, items, timeline, version, created_at, updated_at`

type orderItemRow struct {
	ID         string `json:"id"`
	BookID     string `json:"book_id"`
	Title      string `json:"title"`
	Qty        int32  `json:"qty"`
	PriceMinor int64  `json:"price_minor"`
}

type timelineRow struct {
	Status   string    `json:"status"`
	Message  string    `json:"message"`
	ActorID  string    `json:"actor_id"`
	Occurred time.Time `json:"occurred_at"`
}

type addressRow struct {
	Name       string `json:"name"`
	Phone      string `json:"phone"`
	Line1      string `json:"line1"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
}

// OrderRepository хранит заказы в PostgreSQL; позиции и timeline лежат в JSONB.
type OrderRepository struct {
	db *sql.DB
}

// NewOrderRepository создаёт PostgreSQL-реализацию OrderRepository.
func NewOrderRepository(store *Store) *OrderRepository {
	return &OrderRepository{db: store.DB()}
}

func (r *OrderRepository) Create(ctx context.Context, order domain.Order) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	items, timeline, address, err := encodeOrderDocuments(order)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO orders (`+orderColumns+`, shipping_name, shipping_phone)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25,$26)
	`,
		order.ID, order.Number, order.UserID, string(order.Status), order.Currency,
		order.Summary.SubtotalMinor, order.Summary.ShippingMinor, order.Summary.TaxMinor, order.Summary.TotalMinor,
		string(order.Payment.Status), order.Payment.Provider, order.Payment.TransactionID, nullTime(order.Payment.PaidAt),
		address, order.Shipping.TrackingID, nullTime(order.Shipping.EstimatedDelivery), nullTime(order.Shipping.ActualDelivery),
		order.CancellationReason, nullTime(order.CancelledAt), items, timeline, order.Version,
		order.CreatedAt.UTC(), order.UpdatedAt.UTC(),
		order.ShippingAddress.Name, order.ShippingAddress.Phone,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrOrderVersionConflict
		}
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (r *OrderRepository) Get(ctx context.Context, id string) (domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	order, err := scanOrder(r.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Order{}, domain.ErrOrderNotFound
		}
		return domain.Order{}, fmt.Errorf("select order: %w", err)
	}
	return order, nil
}

// Save перезаписывает изменяемые поля заказа, если версия в базе совпадает с order.Version.
func (r *OrderRepository) Save(ctx context.Context, order domain.Order) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	_, timeline, _, err := encodeOrderDocuments(order)
	if err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE orders
		SET status = $1,
		    payment_status = $2,
		    payment_provider = $3,
		    payment_transaction_id = $4,
		    paid_at = $5,
		    tracking_id = $6,
		    estimated_delivery = $7,
		    actual_delivery = $8,
		    cancellation_reason = $9,
		    cancelled_at = $10,
		    timeline = $11,
		    version = version + 1,
		    updated_at = $12
		WHERE id = $13
		  AND version = $14
	`,
		string(order.Status),
		string(order.Payment.Status), order.Payment.Provider, order.Payment.TransactionID, nullTime(order.Payment.PaidAt),
		order.Shipping.TrackingID, nullTime(order.Shipping.EstimatedDelivery), nullTime(order.Shipping.ActualDelivery),
		order.CancellationReason, nullTime(order.CancelledAt),
		timeline,
		order.UpdatedAt.UTC(),
		order.ID,
		order.Version,
	)
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		var exists bool
		if err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM orders WHERE id = $1)`, order.ID).Scan(&exists); err != nil {
			return fmt.Errorf("check order exists: %w", err)
		}
		if !exists {
			return domain.ErrOrderNotFound
		}
		return domain.ErrOrderVersionConflict
	}
	return nil
}

func (r *OrderRepository) List(ctx context.Context, filter domain.OrderFilter, offset, limit int) ([]domain.Order, int, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	where, args := orderFilterClause(filter)

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}
	if offset < 0 {
		offset = 0
	}

	query := `SELECT ` + orderColumns + ` FROM orders` + where + ` ORDER BY created_at DESC, id DESC`
	query += fmt.Sprintf(" OFFSET $%d", len(args)+1)
	args = append(args, offset)
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", len(args)+1)
		args = append(args, limit)
	}

	orders, err := queryOrders(ctx, r.db, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func orderFilterClause(filter domain.OrderFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if filter.UserID != "" {
		args = append(args, filter.UserID)
		conds = append(conds, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		args = append(args, "%"+escapeLike(strings.ToLower(search))+"%")
		n := len(args)
		conds = append(conds, fmt.Sprintf(
			"(lower(number) LIKE $%d OR lower(shipping_name) LIKE $%d OR lower(shipping_phone) LIKE $%d)", n, n, n))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func queryOrders(ctx context.Context, db *sql.DB, query string, args ...any) ([]domain.Order, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	orders := make([]domain.Order, 0)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order rows: %w", err)
	}
	return orders, nil
}

func scanOrder(row rowScanner) (domain.Order, error) {
	var (
		order                             domain.Order
		status, paymentStatus             string
		paidAt, estimated, actual         sql.NullTime
		cancelledAt                       sql.NullTime
		addressRaw, itemsRaw, timelineRaw []byte
	)
	if err := row.Scan(
		&order.ID, &order.Number, &order.UserID, &status, &order.Currency,
		&order.Summary.SubtotalMinor, &order.Summary.ShippingMinor, &order.Summary.TaxMinor, &order.Summary.TotalMinor,
		&paymentStatus, &order.Payment.Provider, &order.Payment.TransactionID, &paidAt,
		&addressRaw, &order.Shipping.TrackingID, &estimated, &actual,
		&order.CancellationReason, &cancelledAt, &itemsRaw, &timelineRaw, &order.Version,
		&order.CreatedAt, &order.UpdatedAt,
	); err != nil {
		return domain.Order{}, err
	}

	order.Status = domain.OrderStatus(status)
	order.Payment.Status = domain.PaymentStatus(paymentStatus)
	order.Payment.PaidAt = fromNullTime(paidAt)
	order.Shipping.EstimatedDelivery = fromNullTime(estimated)
	order.Shipping.ActualDelivery = fromNullTime(actual)
	order.CancelledAt = fromNullTime(cancelledAt)
	order.CreatedAt = order.CreatedAt.UTC()
	order.UpdatedAt = order.UpdatedAt.UTC()

	if err := decodeOrderDocuments(&order, itemsRaw, timelineRaw, addressRaw); err != nil {
		return domain.Order{}, err
	}
	return order, nil
}

func encodeOrderDocuments(order domain.Order) (items, timeline, address []byte, err error) {
	itemRows := make([]orderItemRow, 0, len(order.Items))
	for _, item := range order.Items {
		itemRows = append(itemRows, orderItemRow(item))
	}
	if items, err = json.Marshal(itemRows); err != nil {
		return nil, nil, nil, fmt.Errorf("encode order items: %w", err)
	}

	timelineRows := make([]timelineRow, 0, len(order.Timeline))
	for _, entry := range order.Timeline {
		timelineRows = append(timelineRows, timelineRow{
			Status:   string(entry.Status),
			Message:  entry.Message,
			ActorID:  entry.ActorID,
			Occurred: entry.Occurred.UTC(),
		})
	}
	if timeline, err = json.Marshal(timelineRows); err != nil {
		return nil, nil, nil, fmt.Errorf("encode order timeline: %w", err)
	}

	if address, err = json.Marshal(addressRow(order.ShippingAddress)); err != nil {
		return nil, nil, nil, fmt.Errorf("encode shipping address: %w", err)
	}
	return items, timeline, address, nil
}

func decodeOrderDocuments(order *domain.Order, items, timeline, address []byte) error {
	var itemRows []orderItemRow
	if err := json.Unmarshal(items, &itemRows); err != nil {
		return fmt.Errorf("decode order items: %w", err)
	}
	order.Items = make([]domain.OrderItem, 0, len(itemRows))
	for _, row := range itemRows {
		order.Items = append(order.Items, domain.OrderItem(row))
	}

	var timelineRows []timelineRow
	if err := json.Unmarshal(timeline, &timelineRows); err != nil {
		return fmt.Errorf("decode order timeline: %w", err)
	}
	order.Timeline = make([]domain.TimelineEntry, 0, len(timelineRows))
	for _, row := range timelineRows {
		order.Timeline = append(order.Timeline, domain.TimelineEntry{
			Status:   domain.OrderStatus(row.Status),
			Message:  row.Message,
			ActorID:  row.ActorID,
			Occurred: row.Occurred.UTC(),
		})
	}

	var addr addressRow
	if len(address) > 0 {
		if err := json.Unmarshal(address, &addr); err != nil {
			return fmt.Errorf("decode shipping address: %w", err)
		}
	}
	order.ShippingAddress = domain.ShippingAddress(addr)
	return nil
}

var _ domain.OrderRepository = (*OrderRepository)(nil)
