package memory

import (
	"context"
	"sort"
	"time"

	"github.com/vladislavdragonenkov/bookstore/internal/domain"
)

// ReportRepository считает агрегаты админки по снимкам in-memory хранилищ.
type ReportRepository struct {
	orders *OrderRepository
	books  *BookRepository
}

// NewReportRepository создаёт агрегатор поверх in-memory репозиториев.
func NewReportRepository(orders *OrderRepository, books *BookRepository) *ReportRepository {
	return &ReportRepository{orders: orders, books: books}
}

func (r *ReportRepository) PaidRevenue(_ context.Context, window domain.DateRange) (int64, error) {
	var total int64
	for _, order := range r.orders.snapshot() {
		if order.Payment.Status != domain.PaymentStatusPaid || !window.Contains(order.CreatedAt) {
			continue
		}
		total += order.Summary.TotalMinor
	}
	return total, nil
}

func (r *ReportRepository) StatusBreakdown(_ context.Context) ([]domain.StatusStat, error) {
	byStatus := make(map[domain.OrderStatus]*domain.StatusStat)
	for _, order := range r.orders.snapshot() {
		stat, ok := byStatus[order.Status]
		if !ok {
			stat = &domain.StatusStat{Status: order.Status}
			byStatus[order.Status] = stat
		}
		stat.Count++
		stat.TotalMinor += order.Summary.TotalMinor
	}

	result := make([]domain.StatusStat, 0, len(byStatus))
	for _, status := range domain.OrderStatuses() {
		if stat, ok := byStatus[status]; ok {
			result = append(result, *stat)
		}
	}
	return result, nil
}

func (r *ReportRepository) MonthlySales(_ context.Context, since time.Time) ([]domain.MonthlySales, error) {
	type bucketKey struct {
		year  int
		month time.Month
	}
	buckets := make(map[bucketKey]*domain.MonthlySales)
	for _, order := range r.orders.snapshot() {
		if order.Payment.Status != domain.PaymentStatusPaid || order.CreatedAt.Before(since) {
			continue
		}
		created := order.CreatedAt.UTC()
		key := bucketKey{year: created.Year(), month: created.Month()}
		bucket, ok := buckets[key]
		if !ok {
			bucket = &domain.MonthlySales{Year: key.year, Month: key.month}
			buckets[key] = bucket
		}
		bucket.RevenueMinor += order.Summary.TotalMinor
		bucket.Orders++
	}

	result := make([]domain.MonthlySales, 0, len(buckets))
	for _, bucket := range buckets {
		result = append(result, *bucket)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Year != result[j].Year {
			return result[i].Year < result[j].Year
		}
		return result[i].Month < result[j].Month
	})
	return result, nil
}

func (r *ReportRepository) TopSellers(_ context.Context, limit int) ([]domain.BookSales, error) {
	books := r.books.snapshot()
	sort.Slice(books, func(i, j int) bool {
		if books[i].SalesCount != books[j].SalesCount {
			return books[i].SalesCount > books[j].SalesCount
		}
		return books[i].ID < books[j].ID
	})

	result := make([]domain.BookSales, 0, limit)
	for _, book := range books {
		if !book.Active {
			continue
		}
		if limit > 0 && len(result) >= limit {
			break
		}
		result = append(result, domain.BookSales{
			BookID:     book.ID,
			Title:      book.Title,
			Author:     book.Author,
			PriceMinor: book.PriceMinor,
			SalesCount: book.SalesCount,
			StockCount: book.StockCount,
		})
	}
	return result, nil
}

func (r *ReportRepository) RecentOrders(_ context.Context, limit int) ([]domain.Order, error) {
	orders := r.orders.snapshot()
	if limit > 0 && len(orders) > limit {
		orders = orders[:limit]
	}
	return orders, nil
}

func (r *ReportRepository) Counts(_ context.Context) (domain.Counts, error) {
	counts := domain.Counts{TotalOrders: len(r.orders.snapshot())}
	for _, book := range r.books.snapshot() {
		if book.Active {
			counts.ActiveBooks++
		}
	}
	return counts, nil
}

var _ domain.ReportRepository = (*ReportRepository)(nil)
