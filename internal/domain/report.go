package domain

import "time"

// DateRange — окно [From, To). Нулевая граница означает отсутствие ограничения.
type DateRange struct {
	From time.Time
	To   time.Time
}

// Contains проверяет попадание момента в окно.
func (r DateRange) Contains(t time.Time) bool {
	if !r.From.IsZero() && t.Before(r.From) {
		return false
	}
	if !r.To.IsZero() && !t.Before(r.To) {
		return false
	}
	return true
}

// IsZero сообщает, что окно не ограничено.
func (r DateRange) IsZero() bool {
	return r.From.IsZero() && r.To.IsZero()
}

// StatusStat — количество заказов и сумма их итогов в одном статусе.
type StatusStat struct {
	Status     OrderStatus
	Count      int
	TotalMinor int64
}

// MonthlySales — выручка и число оплаченных заказов за календарный месяц.
type MonthlySales struct {
	Year         int
	Month        time.Month
	RevenueMinor int64
	Orders       int
}

// BookSales — строка рейтинга продаж.
type BookSales struct {
	BookID     string
	Title      string
	Author     string
	PriceMinor int64
	SalesCount int64
	StockCount int64
}

// Counts — общие счётчики каталога и заказов.
type Counts struct {
	TotalOrders int
	ActiveBooks int
}

// Overview — сводные показатели админки.
type Overview struct {
	TotalBooks            int
	TotalOrders           int
	TotalRevenueMinor     int64
	ThisMonthRevenueMinor int64
	LastMonthRevenueMinor int64
	// RevenueGrowth — прирост выручки месяц к месяцу в процентах, округлён до 2 знаков.
	RevenueGrowth float64
}

// AdminStats — ответ getAdminStats.
type AdminStats struct {
	Overview       Overview
	OrdersByStatus []StatusStat
	TopBooks       []BookSales
	RecentOrders   []Order
	MonthlySales   []MonthlySales
	GeneratedAt    time.Time
}
