package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/bookstore/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/bookstore/internal/health"
	"github.com/vladislavdragonenkov/bookstore/internal/storage/memory"
	"github.com/vladislavdragonenkov/bookstore/internal/storage/postgres"
	redisstore "github.com/vladislavdragonenkov/bookstore/internal/storage/redis"
)

// runtimeDependencies хранит хранилища, выбранные по конфигурации.
type runtimeDependencies struct {
	orders     domain.OrderRepository
	books      domain.BookRepository
	outboxRepo domain.OutboxRepository
	reports    domain.ReportRepository

	storageChecker healthcheck.Checker
	closeFn        func() error
}

func initRuntimeDependencies(ctx context.Context, cfg Config, logger *log.Entry) (*runtimeDependencies, error) {
	switch cfg.StorageDriver {
	case StorageDriverMemory, "":
		orders := memory.NewOrderRepository()
		books := memory.NewBookRepository()
		if err := seedCatalog(ctx, books); err != nil {
			return nil, fmt.Errorf("seed catalog: %w", err)
		}
		logger.WithField("books", len(demoCatalog)).Info("in-memory storage initialized")
		return &runtimeDependencies{
			orders:         orders,
			books:          books,
			outboxRepo:     memory.NewOutboxRepository(),
			reports:        memory.NewReportRepository(orders, books),
			storageChecker: healthcheck.NewSimpleChecker("storage", func(context.Context) error { return nil }),
		}, nil

	case StorageDriverPostgres:
		if strings.TrimSpace(cfg.PostgresDSN) == "" {
			return nil, errors.New("postgres dsn is required for postgres storage driver")
		}
		store, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		if cfg.PostgresAutoMigrate {
			if err := store.MigrateUp(ctx, 0); err != nil {
				_ = store.Close()
				return nil, fmt.Errorf("migrate postgres: %w", err)
			}
		}
		logger.WithField("auto_migrate", cfg.PostgresAutoMigrate).Info("postgres storage initialized")
		return &runtimeDependencies{
			orders:         postgres.NewOrderRepository(store),
			books:          postgres.NewBookRepository(store),
			outboxRepo:     postgres.NewOutboxRepository(store),
			reports:        postgres.NewReportRepository(store),
			storageChecker: healthcheck.NewPingChecker("postgres", store),
			closeFn:        store.Close,
		}, nil

	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.StorageDriver)
	}
}

// initStatsCache подключает Redis. Кэш необязателен: при ошибке сервис работает без него.
func initStatsCache(ctx context.Context, cfg Config, logger *log.Entry) (*redisstore.StatsCache, func() error) {
	addr := strings.TrimSpace(cfg.RedisAddr)
	if addr == "" {
		return nil, nil
	}
	client, err := redisstore.NewClient(ctx, redisstore.Options{Addr: addr, TTL: cfg.StatsCacheTTL})
	if err != nil {
		logger.WithError(err).Warn("redis is unavailable, admin stats cache disabled")
		return nil, nil
	}
	logger.WithFields(log.Fields{"addr": addr, "ttl": cfg.StatsCacheTTL}).Info("admin stats cache initialized")
	return redisstore.NewStatsCache(client, "", cfg.StatsCacheTTL), client.Close
}

// demoCatalog заполняет in-memory хранилище, чтобы сервис был пригоден для ручной проверки.
var demoCatalog = []domain.Book{
	{ID: "9780441013593", Title: "Dune", Author: "Frank Herbert", PriceMinor: 1899, StockCount: 25},
	{ID: "9780547928227", Title: "The Hobbit", Author: "J.R.R. Tolkien", PriceMinor: 1499, StockCount: 40},
	{ID: "9780156012195", Title: "Solaris", Author: "Stanislaw Lem", PriceMinor: 1650, StockCount: 10},
	{ID: "9780060850524", Title: "Brave New World", Author: "Aldous Huxley", PriceMinor: 1299, StockCount: 0},
}

func seedCatalog(ctx context.Context, books domain.BookRepository) error {
	now := time.Now().UTC()
	for _, book := range demoCatalog {
		book.Active = true
		book.InStock = book.StockCount > 0
		book.CreatedAt = now
		book.UpdatedAt = now
		if err := books.Create(ctx, book); err != nil && !errors.Is(err, domain.ErrBookAlreadyExists) {
			return err
		}
	}
	return nil
}
