package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/bookstore/internal/domain"
)

// ReportRepository выполняет агрегирующие запросы админки средствами SQL.
type ReportRepository struct {
	db *sql.DB
}

// NewReportRepository создаёт PostgreSQL-реализацию ReportRepository.
func NewReportRepository(store *Store) *ReportRepository {
	return &ReportRepository{db: store.DB()}
}

func (r *ReportRepository) PaidRevenue(ctx context.Context, window domain.DateRange) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var total int64
	if err := r.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(total_minor), 0)
		FROM orders
		WHERE payment_status = $1
		  AND ($2::timestamptz IS NULL OR created_at >= $2)
		  AND ($3::timestamptz IS NULL OR created_at < $3)
	`, string(domain.PaymentStatusPaid), nullTime(window.From), nullTime(window.To)).Scan(&total); err != nil {
		return 0, fmt.Errorf("paid revenue: %w", err)
	}
	return total, nil
}

func (r *ReportRepository) StatusBreakdown(ctx context.Context) ([]domain.StatusStat, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT status, COUNT(*), COALESCE(SUM(total_minor), 0)
		FROM orders
		GROUP BY status
	`)
	if err != nil {
		return nil, fmt.Errorf("status breakdown: %w", err)
	}
	defer rows.Close()

	byStatus := make(map[domain.OrderStatus]domain.StatusStat)
	for rows.Next() {
		var (
			stat   domain.StatusStat
			status string
		)
		if err := rows.Scan(&status, &stat.Count, &stat.TotalMinor); err != nil {
			return nil, fmt.Errorf("scan status breakdown: %w", err)
		}
		stat.Status = domain.OrderStatus(status)
		byStatus[stat.Status] = stat
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate status breakdown: %w", err)
	}

	result := make([]domain.StatusStat, 0, len(byStatus))
	for _, status := range domain.OrderStatuses() {
		if stat, ok := byStatus[status]; ok {
			result = append(result, stat)
		}
	}
	return result, nil
}

func (r *ReportRepository) MonthlySales(ctx context.Context, since time.Time) ([]domain.MonthlySales, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT EXTRACT(YEAR FROM created_at AT TIME ZONE 'UTC')::int AS y,
		       EXTRACT(MONTH FROM created_at AT TIME ZONE 'UTC')::int AS m,
		       COALESCE(SUM(total_minor), 0),
		       COUNT(*)
		FROM orders
		WHERE payment_status = $1
		  AND created_at >= $2
		GROUP BY y, m
		ORDER BY y, m
	`, string(domain.PaymentStatusPaid), since.UTC())
	if err != nil {
		return nil, fmt.Errorf("monthly sales: %w", err)
	}
	defer rows.Close()

	result := make([]domain.MonthlySales, 0, 13)
	for rows.Next() {
		var (
			bucket domain.MonthlySales
			month  int
		)
		if err := rows.Scan(&bucket.Year, &month, &bucket.RevenueMinor, &bucket.Orders); err != nil {
			return nil, fmt.Errorf("scan monthly sales: %w", err)
		}
		bucket.Month = time.Month(month)
		result = append(result, bucket)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate monthly sales: %w", err)
	}
	return result, nil
}

func (r *ReportRepository) TopSellers(ctx context.Context, limit int) ([]domain.BookSales, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	query := `
		SELECT id, title, author, price_minor, sales_count, stock_count
		FROM books
		WHERE active
		ORDER BY sales_count DESC, id`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("top sellers: %w", err)
	}
	defer rows.Close()

	result := make([]domain.BookSales, 0, limit)
	for rows.Next() {
		var b domain.BookSales
		if err := rows.Scan(&b.BookID, &b.Title, &b.Author, &b.PriceMinor, &b.SalesCount, &b.StockCount); err != nil {
			return nil, fmt.Errorf("scan top seller: %w", err)
		}
		result = append(result, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate top sellers: %w", err)
	}
	return result, nil
}

func (r *ReportRepository) RecentOrders(ctx context.Context, limit int) ([]domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	query := `SELECT ` + orderColumns + ` FROM orders ORDER BY created_at DESC, id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}
	return queryOrders(ctx, r.db, query, args...)
}

func (r *ReportRepository) Counts(ctx context.Context) (domain.Counts, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var counts domain.Counts
	if err := r.db.QueryRowContext(ctx, `
		SELECT (SELECT COUNT(*) FROM orders),
		       (SELECT COUNT(*) FROM books WHERE active)
	`).Scan(&counts.TotalOrders, &counts.ActiveBooks); err != nil {
		return domain.Counts{}, fmt.Errorf("counts: %w", err)
	}
	return counts, nil
}

var _ domain.ReportRepository = (*ReportRepository)(nil)
