package inventory

import (
	"context"
	"errors"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/bookstore/internal/domain"
	"github.com/vladislavdragonenkov/bookstore/internal/metrics"
)

// Adjuster — единственная точка изменения остатков и счётчиков продаж книг.
type Adjuster struct {
	books   domain.BookRepository
	outbox  domain.OutboxRepository
	metrics *metrics.LifecycleMetrics
	logger  *log.Entry
	now     func() time.Time
}

// Option настраивает Adjuster.
type Option func(*Adjuster)

// WithOutbox включает запись события InventoryAdjusted после каждой корректировки.
func WithOutbox(outbox domain.OutboxRepository) Option {
	return func(a *Adjuster) {
		a.outbox = outbox
	}
}

// WithMetrics задаёт метрики.
func WithMetrics(m *metrics.LifecycleMetrics) Option {
	return func(a *Adjuster) {
		a.metrics = m
	}
}

// WithLogger задаёт logger.
func WithLogger(logger *log.Entry) Option {
	return func(a *Adjuster) {
		a.logger = logger
	}
}

// WithClock подменяет источник времени.
func WithClock(now func() time.Time) Option {
	return func(a *Adjuster) {
		a.now = now
	}
}

// NewAdjuster создаёт корректировщик остатков поверх репозитория книг.
func NewAdjuster(books domain.BookRepository, opts ...Option) *Adjuster {
	a := &Adjuster{
		books: books,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = log.WithField("component", "inventory-adjuster")
	}
	if a.now == nil {
		a.now = time.Now
	}
	return a
}

// AdjustStock атомарно применяет дельты к книге и пересчитывает флаг наличия.
// Возвращает ErrBookNotFound для неизвестной книги, ErrInsufficientStock или
// ErrInsufficientSales, если остаток или продажи ушли бы в минус; книга при этом не меняется.
func (a *Adjuster) AdjustStock(ctx context.Context, bookID string, deltaQuantity, deltaSales int64) (domain.Book, error) {
	bookID = strings.TrimSpace(bookID)
	if bookID == "" {
		return domain.Book{}, domain.ErrBookIDRequired
	}

	logger := a.logger.WithFields(log.Fields{
		"book_id":        bookID,
		"delta_quantity": deltaQuantity,
		"delta_sales":    deltaSales,
	})

	book, err := a.books.AdjustStock(ctx, bookID, deltaQuantity, deltaSales)
	if err != nil {
		a.recordResult(err)
		logger.WithError(err).Warn("Stock adjustment rejected")
		return domain.Book{}, err
	}
	a.recordResult(nil)

	logger.WithFields(log.Fields{
		"stock_count": book.StockCount,
		"in_stock":    book.InStock,
	}).Debug("Stock adjusted")

	a.emitAdjusted(ctx, book, deltaQuantity, deltaSales)
	return book, nil
}

// Get возвращает книгу.
func (a *Adjuster) Get(ctx context.Context, bookID string) (domain.Book, error) {
	return a.books.Get(ctx, bookID)
}

func (a *Adjuster) emitAdjusted(ctx context.Context, book domain.Book, deltaQuantity, deltaSales int64) {
	if a.outbox == nil {
		return
	}

	msg, err := domain.NewOutboxMessage(domain.AggregateBook, book.ID, domain.EventInventoryAdjusted, domain.InventoryEvent{
		BookID:        book.ID,
		DeltaQuantity: deltaQuantity,
		DeltaSales:    deltaSales,
		StockCount:    book.StockCount,
		SalesCount:    book.SalesCount,
		InStock:       book.InStock,
		OccurredAt:    a.now().UTC(),
	})
	if err == nil {
		_, err = a.outbox.Enqueue(ctx, msg)
	}
	if err != nil {
		a.logger.WithError(err).WithField("book_id", book.ID).Warn("failed to enqueue inventory event")
		return
	}
	if a.metrics != nil {
		a.metrics.RecordOutboxEvent()
	}
}

func (a *Adjuster) recordResult(err error) {
	if a.metrics == nil {
		return
	}
	switch {
	case err == nil:
		a.metrics.RecordAdjustment(metrics.AdjustmentOK)
	case errors.Is(err, domain.ErrBookNotFound):
		a.metrics.RecordAdjustment(metrics.AdjustmentNotFound)
	case errors.Is(err, domain.ErrInsufficientStock), errors.Is(err, domain.ErrInsufficientSales):
		a.metrics.RecordAdjustment(metrics.AdjustmentInsufficient)
	default:
		a.metrics.RecordAdjustment(metrics.AdjustmentError)
	}
}
