package reporting

import (
	"context"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/bookstore/internal/domain"
	"github.com/vladislavdragonenkov/bookstore/internal/metrics"
	"github.com/vladislavdragonenkov/bookstore/internal/service/saga"
)

const (
	defaultTopBooks     = 5
	defaultRecentOrders = 10
	statsCacheKeyPrefix = "admin-stats"
)

// Service выполняет read-only запросы для списков заказов и админки.
// Блокировок не берёт: результат согласован на момент чтения.
type Service struct {
	orders  domain.OrderRepository
	reports domain.ReportRepository
	cache   domain.StatsCache
	breaker *saga.CircuitBreaker
	metrics *metrics.LifecycleMetrics
	logger  *log.Entry
	now     func() time.Time

	topBooks     int
	recentOrders int
}

// Option настраивает Service.
type Option func(*Service)

// WithStatsCache включает кэширование getAdminStats.
func WithStatsCache(cache domain.StatsCache) Option {
	return func(s *Service) {
		s.cache = cache
	}
}

// WithMetrics задаёт метрики.
func WithMetrics(m *metrics.LifecycleMetrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithLogger задаёт logger.
func WithLogger(logger *log.Entry) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithClock подменяет источник времени.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService создаёт сервис отчётов.
func NewService(orders domain.OrderRepository, reports domain.ReportRepository, opts ...Option) *Service {
	s := &Service{
		orders:       orders,
		reports:      reports,
		now:          time.Now,
		topBooks:     defaultTopBooks,
		recentOrders: defaultRecentOrders,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = log.WithField("component", "reporting")
	}
	if s.metrics == nil {
		s.metrics = metrics.NewLifecycleMetrics()
	}
	s.breaker = saga.NewCircuitBreaker(3, 30*time.Second, s.logger.WithField("dependency", "stats-cache"))
	return s
}

// ListOrders возвращает страницу заказов. Покупатель видит только свои заказы
// (по умолчанию 10, максимум 50); администратор — все, с фильтрами и разбивкой по статусам
// (по умолчанию 20, максимум 100).
func (s *Service) ListOrders(ctx context.Context, actor domain.Actor, filter domain.OrderFilter, page domain.PageRequest) (domain.OrderPage, error) {
	if actor.ID == "" {
		return domain.OrderPage{}, domain.ErrActorRequired
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return domain.OrderPage{}, fmt.Errorf("%w: %q", domain.ErrInvalidStatus, string(filter.Status))
	}
	filter.Search = strings.TrimSpace(filter.Search)

	limits := domain.AdminPageLimits
	if !actor.IsAdmin() {
		limits = domain.UserPageLimits
		filter.UserID = actor.ID
	}
	page = limits.Normalize(page)

	orders, total, err := s.orders.List(ctx, filter, page.Offset(), page.Size)
	if err != nil {
		return domain.OrderPage{}, fmt.Errorf("list orders: %w", err)
	}

	result := domain.OrderPage{
		Orders:     orders,
		Pagination: domain.NewPagination(page.Page, page.Size, total),
	}
	if actor.IsAdmin() {
		stats, err := s.reports.StatusBreakdown(ctx)
		if err != nil {
			return domain.OrderPage{}, fmt.Errorf("status breakdown: %w", err)
		}
		result.StatusStats = stats
	}
	return result, nil
}

// AdminStats собирает сводку админки. window ограничивает только общую выручку.
func (s *Service) AdminStats(ctx context.Context, actor domain.Actor, window domain.DateRange) (domain.AdminStats, error) {
	if !actor.IsAdmin() {
		return domain.AdminStats{}, domain.ErrForbidden
	}

	key := statsCacheKey(window)
	if stats, ok := s.cached(ctx, key); ok {
		return stats, nil
	}

	stats, err := s.computeStats(ctx, window)
	if err != nil {
		return domain.AdminStats{}, err
	}

	s.store(ctx, key, stats)
	return stats, nil
}

func (s *Service) computeStats(ctx context.Context, window domain.DateRange) (domain.AdminStats, error) {
	now := s.now().UTC()
	thisMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	lastMonth := thisMonth.AddDate(0, -1, 0)
	nextMonth := thisMonth.AddDate(0, 1, 0)

	counts, err := s.reports.Counts(ctx)
	if err != nil {
		return domain.AdminStats{}, fmt.Errorf("counts: %w", err)
	}
	total, err := s.reports.PaidRevenue(ctx, window)
	if err != nil {
		return domain.AdminStats{}, fmt.Errorf("total revenue: %w", err)
	}
	current, err := s.reports.PaidRevenue(ctx, domain.DateRange{From: thisMonth, To: nextMonth})
	if err != nil {
		return domain.AdminStats{}, fmt.Errorf("this month revenue: %w", err)
	}
	previous, err := s.reports.PaidRevenue(ctx, domain.DateRange{From: lastMonth, To: thisMonth})
	if err != nil {
		return domain.AdminStats{}, fmt.Errorf("last month revenue: %w", err)
	}
	byStatus, err := s.reports.StatusBreakdown(ctx)
	if err != nil {
		return domain.AdminStats{}, fmt.Errorf("status breakdown: %w", err)
	}
	top, err := s.reports.TopSellers(ctx, s.topBooks)
	if err != nil {
		return domain.AdminStats{}, fmt.Errorf("top sellers: %w", err)
	}
	recent, err := s.reports.RecentOrders(ctx, s.recentOrders)
	if err != nil {
		return domain.AdminStats{}, fmt.Errorf("recent orders: %w", err)
	}
	monthly, err := s.reports.MonthlySales(ctx, thisMonth.AddDate(-1, 0, 0))
	if err != nil {
		return domain.AdminStats{}, fmt.Errorf("monthly sales: %w", err)
	}

	return domain.AdminStats{
		Overview: domain.Overview{
			TotalBooks:            counts.ActiveBooks,
			TotalOrders:           counts.TotalOrders,
			TotalRevenueMinor:     total,
			ThisMonthRevenueMinor: current,
			LastMonthRevenueMinor: previous,
			RevenueGrowth:         RevenueGrowth(current, previous),
		},
		OrdersByStatus: byStatus,
		TopBooks:       top,
		RecentOrders:   recent,
		MonthlySales:   monthly,
		GeneratedAt:    now,
	}, nil
}

// InvalidateStats сбрасывает кэш сводки. Без кэша ничего не делает.
func (s *Service) InvalidateStats(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		s.logger.WithError(err).Warn("failed to invalidate admin stats cache")
		return fmt.Errorf("invalidate admin stats: %w", err)
	}
	return nil
}

func (s *Service) cached(ctx context.Context, key string) (domain.AdminStats, bool) {
	if s.cache == nil {
		return domain.AdminStats{}, false
	}

	var (
		stats domain.AdminStats
		hit   bool
	)
	err := s.breaker.Execute("get", func() error {
		var err error
		stats, hit, err = s.cache.Get(ctx, key)
		return err
	})
	switch {
	case err != nil:
		s.metrics.RecordStatsCache(metrics.CacheError)
		s.logger.WithError(err).Debug("admin stats cache unavailable")
		return domain.AdminStats{}, false
	case !hit:
		s.metrics.RecordStatsCache(metrics.CacheMiss)
		return domain.AdminStats{}, false
	default:
		s.metrics.RecordStatsCache(metrics.CacheHit)
		return stats, true
	}
}

func (s *Service) store(ctx context.Context, key string, stats domain.AdminStats) {
	if s.cache == nil {
		return
	}
	err := s.breaker.Execute("set", func() error {
		return s.cache.Set(ctx, key, stats)
	})
	if err != nil {
		s.logger.WithError(err).Debug("failed to cache admin stats")
	}
}

// statsCacheKey различает сводки по окну выручки.
func statsCacheKey(window domain.DateRange) string {
	if window.IsZero() {
		return statsCacheKeyPrefix + ":all"
	}
	format := func(t time.Time) string {
		if t.IsZero() {
			return "-"
		}
		return t.UTC().Format(time.RFC3339)
	}
	return fmt.Sprintf("%s:%s:%s", statsCacheKeyPrefix, format(window.From), format(window.To))
}
