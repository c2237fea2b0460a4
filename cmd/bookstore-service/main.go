package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/bookstore/internal/app"
	"github.com/vladislavdragonenkov/bookstore/internal/version"
)

const (
	envHTTPAddr            = "BOOKSTORE_HTTP_ADDR"
	envGRPCAddr            = "BOOKSTORE_GRPC_ADDR"
	envMetricsAddr         = "BOOKSTORE_METRICS_ADDR"
	envStorageDriver       = "BOOKSTORE_STORAGE_DRIVER"
	envPostgresDSN         = "BOOKSTORE_POSTGRES_DSN"
	envPostgresAutoMigrate = "BOOKSTORE_POSTGRES_AUTO_MIGRATE"
	envRedisAddr           = "BOOKSTORE_REDIS_ADDR"
	envStatsCacheTTL       = "BOOKSTORE_STATS_CACHE_TTL"
	envKafkaBrokers        = "KAFKA_BROKERS"
	envOutboxPollInterval  = "BOOKSTORE_OUTBOX_POLL_INTERVAL"
	envOutboxBatchSize     = "BOOKSTORE_OUTBOX_BATCH_SIZE"
	envOutboxMaxAttempts   = "BOOKSTORE_OUTBOX_MAX_ATTEMPTS"
	envShippingFeeMinor    = "BOOKSTORE_SHIPPING_FEE_MINOR"
	envCurrency            = "BOOKSTORE_CURRENCY"
	envLogLevel            = "BOOKSTORE_LOG_LEVEL"
)

type envLookup func(key string) (string, bool)

// setupLogger настраивает формат и уровень логирования для сервиса.
func setupLogger(level string) {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = log.InfoLevel
	}
	log.SetLevel(lvl)
	if lvl < log.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}
}

// readConfigFromEnv читает конфигурацию из окружения.
// Некорректные значения не применяются и возвращаются как предупреждения.
func readConfigFromEnv(lookup envLookup) (app.Config, []string) {
	cfg := app.DefaultConfig()
	var warnings []string
	warn := func(key, raw string, err error) {
		warnings = append(warnings, fmt.Sprintf("%s=%q ignored: %v", key, raw, err))
	}

	readString := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	readString(envHTTPAddr, &cfg.HTTPAddr)
	readString(envGRPCAddr, &cfg.GRPCAddr)
	readString(envMetricsAddr, &cfg.MetricsAddr)
	readString(envPostgresDSN, &cfg.PostgresDSN)
	readString(envRedisAddr, &cfg.RedisAddr)
	readString(envKafkaBrokers, &cfg.KafkaBrokers)

	if v, ok := lookup(envStorageDriver); ok && strings.TrimSpace(v) != "" {
		driver := app.StorageDriver(strings.ToLower(strings.TrimSpace(v)))
		switch driver {
		case app.StorageDriverMemory, app.StorageDriverPostgres:
			cfg.StorageDriver = driver
		default:
			warn(envStorageDriver, v, errors.New("must be memory or postgres"))
		}
	}

	if v, ok := lookup(envPostgresAutoMigrate); ok && strings.TrimSpace(v) != "" {
		if b, err := parseBool(v); err != nil {
			warn(envPostgresAutoMigrate, v, err)
		} else {
			cfg.PostgresAutoMigrate = b
		}
	}

	positiveDuration := func(d time.Duration) bool { return d > 0 }
	readDuration := func(key string, dst *time.Duration) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			if d, err := parseDuration(v, positiveDuration, "must be > 0"); err != nil {
				warn(key, v, err)
			} else {
				*dst = d
			}
		}
	}
	readDuration(envStatsCacheTTL, &cfg.StatsCacheTTL)
	readDuration(envOutboxPollInterval, &cfg.OutboxPollInterval)

	positiveInt := func(n int) bool { return n > 0 }
	readInt := func(key string, dst *int) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			if n, err := parseInt(v, positiveInt, "must be > 0"); err != nil {
				warn(key, v, err)
			} else {
				*dst = n
			}
		}
	}
	readInt(envOutboxBatchSize, &cfg.OutboxBatchSize)
	readInt(envOutboxMaxAttempts, &cfg.OutboxMaxAttempts)

	if v, ok := lookup(envShippingFeeMinor); ok && strings.TrimSpace(v) != "" {
		if fee, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err != nil {
			warn(envShippingFeeMinor, v, err)
		} else if fee < 0 {
			warn(envShippingFeeMinor, v, errors.New("must be >= 0"))
		} else {
			cfg.ShippingFeeMinor = fee
		}
	}

	if v, ok := lookup(envCurrency); ok && strings.TrimSpace(v) != "" {
		if currency, err := parseCurrency(v); err != nil {
			warn(envCurrency, v, err)
		} else {
			cfg.Currency = currency
		}
	}

	if v, ok := lookup(envLogLevel); ok && strings.TrimSpace(v) != "" {
		if lvl, err := log.ParseLevel(strings.TrimSpace(v)); err != nil {
			warn(envLogLevel, v, err)
		} else {
			cfg.LogLevel = lvl.String()
		}
	}

	return cfg, warnings
}

func parseBool(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "on":
		return true, nil
	case "0", "false", "no", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid bool %q", raw)
	}
}

// parseCurrency принимает трёхбуквенный код ISO 4217.
func parseCurrency(raw string) (string, error) {
	code := strings.ToUpper(strings.TrimSpace(raw))
	if len(code) != 3 {
		return "", errors.New("must be a 3-letter code")
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return "", errors.New("must be a 3-letter code")
		}
	}
	return code, nil
}

func parseInt(raw string, valid func(int) bool, rule string) (int, error) {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, err
	}
	if !valid(value) {
		return 0, errors.New(rule)
	}
	return value, nil
}

func parseDuration(raw string, valid func(time.Duration) bool, rule string) (time.Duration, error) {
	value, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, err
	}
	if !valid(value) {
		return 0, errors.New(rule)
	}
	return value, nil
}

func main() {
	cfg, warnings := readConfigFromEnv(os.LookupEnv)
	setupLogger(cfg.LogLevel)
	for _, w := range warnings {
		log.Warn(w)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.WithFields(log.Fields{
		"version":      version.String(),
		"http_addr":    cfg.HTTPAddr,
		"grpc_addr":    cfg.GRPCAddr,
		"metrics_addr": cfg.MetricsAddr,
		"storage":      cfg.StorageDriver,
	}).Info("запускаем bookstore-service")

	if err := app.Run(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Fatal("приложение завершилось с ошибкой")
	}

	log.Info("bookstore-service остановлен")
}
