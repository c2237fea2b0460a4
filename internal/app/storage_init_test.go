package app

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/bookstore/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/bookstore/internal/health"
	"github.com/vladislavdragonenkov/bookstore/internal/metrics"
	"github.com/vladislavdragonenkov/bookstore/internal/service/lifecycle"
)

func TestInitRuntimeDependencies_Memory(t *testing.T) {
	t.Parallel()

	deps, err := initRuntimeDependencies(context.Background(), Config{
		StorageDriver: StorageDriverMemory,
	}, log.WithField("test", "memory-storage"))
	if err != nil {
		t.Fatalf("initRuntimeDependencies(memory) failed: %v", err)
	}
	if deps.orders == nil || deps.books == nil || deps.outboxRepo == nil || deps.reports == nil {
		t.Fatalf("memory dependencies must be initialized: %+v", deps)
	}
	if deps.closeFn != nil {
		t.Fatal("memory storage has nothing to close")
	}
	if check := deps.storageChecker.Check(context.Background()); check.Status != healthcheck.StatusHealthy {
		t.Fatalf("expected healthy storage, got %+v", check)
	}

	book, err := deps.books.Get(context.Background(), demoCatalog[0].ID)
	if err != nil {
		t.Fatalf("demo catalog is not seeded: %v", err)
	}
	if !book.Active || !book.InStock {
		t.Fatalf("seeded book should be active and in stock: %+v", book)
	}

	counts, err := deps.reports.Counts(context.Background())
	if err != nil {
		t.Fatalf("Counts: %v", err)
	}
	if counts.ActiveBooks != len(demoCatalog) {
		t.Fatalf("expected %d active books, got %d", len(demoCatalog), counts.ActiveBooks)
	}
}

func TestSeedCatalog_Idempotent(t *testing.T) {
	deps, err := initRuntimeDependencies(context.Background(), Config{}, log.WithField("test", "seed"))
	if err != nil {
		t.Fatalf("initRuntimeDependencies failed: %v", err)
	}
	if err := seedCatalog(context.Background(), deps.books); err != nil {
		t.Fatalf("second seed should skip existing books: %v", err)
	}

	for _, book := range demoCatalog {
		got, err := deps.books.Get(context.Background(), book.ID)
		if err != nil {
			t.Fatalf("Get(%s): %v", book.ID, err)
		}
		if errs := got.Validate(); len(errs) > 0 {
			t.Fatalf("seeded book %s is invalid: %v", book.ID, errs)
		}
	}
	if _, err := deps.books.Get(context.Background(), "missing"); err != domain.ErrBookNotFound {
		t.Fatalf("expected ErrBookNotFound, got %v", err)
	}
}

func TestInitRuntimeDependencies_PostgresRequiresDSN(t *testing.T) {
	t.Parallel()

	_, err := initRuntimeDependencies(context.Background(), Config{
		StorageDriver: StorageDriverPostgres,
	}, log.WithField("test", "postgres-missing-dsn"))
	if err == nil {
		t.Fatal("expected error when postgres driver is selected without DSN")
	}
}

func TestInitRuntimeDependencies_UnsupportedDriver(t *testing.T) {
	t.Parallel()

	_, err := initRuntimeDependencies(context.Background(), Config{
		StorageDriver: "sqlite",
	}, log.WithField("test", "unsupported-driver"))
	if err == nil {
		t.Fatal("expected error for unsupported storage driver")
	}
}

func TestInitStatsCache_Disabled(t *testing.T) {
	cache, closeFn := initStatsCache(context.Background(), Config{}, log.WithField("test", "cache"))
	if cache != nil || closeFn != nil {
		t.Fatal("expected no cache without redis address")
	}
}

func TestInitStatsCache_Unreachable(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RedisAddr = "127.0.0.1:1"

	cache, closeFn := initStatsCache(context.Background(), cfg, log.WithField("test", "cache-down"))
	if cache != nil || closeFn != nil {
		t.Fatal("unreachable redis must disable the cache")
	}
}

func TestNewServices_AppliesOrderPricingConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ShippingFeeMinor = 499
	cfg.Currency = "eur"

	logger := log.WithField("test", "services")
	deps, err := initRuntimeDependencies(context.Background(), cfg, logger)
	if err != nil {
		t.Fatalf("initRuntimeDependencies failed: %v", err)
	}
	lm := metrics.NewLifecycleMetricsWithRegisterer(prometheus.NewRegistry())
	svc := newServices(cfg, deps, nil, lm, logger)

	book := demoCatalog[0]
	order, err := svc.lifecycle.PlaceOrder(context.Background(), domain.Actor{ID: "user-1", Role: domain.RoleCustomer}, lifecycle.PlaceOrderRequest{
		Items: []lifecycle.PlaceOrderItem{{BookID: book.ID, Qty: 2}},
	})
	if err != nil {
		t.Fatalf("PlaceOrder failed: %v", err)
	}
	if order.Currency != "EUR" {
		t.Fatalf("expected EUR order, got %q", order.Currency)
	}
	if order.Summary.ShippingMinor != 499 || order.Summary.TotalMinor != 2*book.PriceMinor+499 {
		t.Fatalf("shipping fee is not applied: %+v", order.Summary)
	}
}
