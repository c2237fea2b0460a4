package domain

import (
	"context"
	"time"
)

// OrderFilter задаёт выборку заказов для списков.
type OrderFilter struct {
	// UserID ограничивает выборку заказами владельца.
	UserID string
	// Status ограничивает выборку одним статусом.
	Status OrderStatus
	// Search — подстрока без учёта регистра по номеру заказа, имени и телефону получателя.
	Search string
}

// OrderRepository описывает требования к хранилищу заказов.
type OrderRepository interface {
	// Create сохраняет новый заказ. Возвращает ошибку, если запись с таким ID уже существует.
	Create(ctx context.Context, order Order) error
	// Get возвращает заказ по идентификатору или ErrOrderNotFound, если его нет.
	Get(ctx context.Context, id string) (Order, error)
	// Save применяет обновления к заказу с учётом optimistic locking.
	Save(ctx context.Context, order Order) error
	// List возвращает страницу заказов (новые первыми) и общее число подходящих записей.
	List(ctx context.Context, filter OrderFilter, offset, limit int) ([]Order, int, error)
}

// BookRepository хранит книги и их остатки.
type BookRepository interface {
	Create(ctx context.Context, book Book) error
	Get(ctx context.Context, id string) (Book, error)
	// AdjustStock атомарно применяет дельты к одной книге.
	// Возвращает ErrBookNotFound, ErrInsufficientStock или ErrInsufficientSales, не изменяя запись.
	AdjustStock(ctx context.Context, id string, deltaQuantity, deltaSales int64) (Book, error)
}

// ReportRepository выполняет агрегирующие read-only запросы для админки.
type ReportRepository interface {
	// PaidRevenue суммирует итоги оплаченных заказов в окне [from, to). Нулевая граница не ограничивает.
	PaidRevenue(ctx context.Context, window DateRange) (int64, error)
	// StatusBreakdown группирует заказы по статусу: количество и сумма итогов.
	StatusBreakdown(ctx context.Context) ([]StatusStat, error)
	// MonthlySales группирует оплаченные заказы с момента since по (год, месяц) по возрастанию.
	MonthlySales(ctx context.Context, since time.Time) ([]MonthlySales, error)
	// TopSellers возвращает активные книги по убыванию продаж.
	TopSellers(ctx context.Context, limit int) ([]BookSales, error)
	// RecentOrders возвращает последние заказы.
	RecentOrders(ctx context.Context, limit int) ([]Order, error)
	// Counts возвращает общее число заказов и активных книг.
	Counts(ctx context.Context) (Counts, error)
}
