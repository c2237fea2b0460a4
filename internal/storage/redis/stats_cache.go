package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/vladislavdragonenkov/bookstore/internal/domain"
)

const (
	defaultKeyPrefix = "bookstore:stats"
	defaultTTL       = 30 * time.Second
	opTimeout        = 2 * time.Second
)

// Options задаёт подключение к Redis.
type Options struct {
	Addr     string
	Password string
	DB       int
	// KeyPrefix отделяет ключи сервиса от чужих.
	KeyPrefix string
	TTL       time.Duration
}

// NewClient создаёт клиента и проверяет соединение.
func NewClient(ctx context.Context, opts Options) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  opTimeout,
		WriteTimeout: opTimeout,
		PoolTimeout:  4 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", opts.Addr, err)
	}
	return client, nil
}

// StatsCache хранит сводку админки в Redis.
// Сброс реализован через счётчик поколений: Invalidate увеличивает поколение,
// и старые ключи перестают читаться, пока не истечёт их TTL.
type StatsCache struct {
	client goredis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewStatsCache создаёт кэш поверх готового клиента.
func NewStatsCache(client goredis.UniversalClient, prefix string, ttl time.Duration) *StatsCache {
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &StatsCache{client: client, prefix: prefix, ttl: ttl}
}

// Get возвращает сводку; ok=false при промахе.
func (c *StatsCache) Get(ctx context.Context, key string) (domain.AdminStats, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	gen, err := c.generation(ctx)
	if err != nil {
		return domain.AdminStats{}, false, err
	}

	raw, err := c.client.Get(ctx, c.dataKey(gen, key)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return domain.AdminStats{}, false, nil
	}
	if err != nil {
		return domain.AdminStats{}, false, fmt.Errorf("get stats %s: %w", key, err)
	}

	stats, err := decodeStats(raw)
	if err != nil {
		return domain.AdminStats{}, false, err
	}
	return stats, true, nil
}

// Set сохраняет сводку на TTL.
func (c *StatsCache) Set(ctx context.Context, key string, stats domain.AdminStats) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	gen, err := c.generation(ctx)
	if err != nil {
		return err
	}
	raw, err := encodeStats(stats)
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, c.dataKey(gen, key), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("set stats %s: %w", key, err)
	}
	return nil
}

// Invalidate делает все ранее сохранённые сводки недоступными.
func (c *StatsCache) Invalidate(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if err := c.client.Incr(ctx, c.generationKey()).Err(); err != nil {
		return fmt.Errorf("invalidate stats: %w", err)
	}
	return nil
}

// Ping проверяет доступность Redis для health checker.
func (c *StatsCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *StatsCache) generation(ctx context.Context) (int64, error) {
	raw, err := c.client.Get(ctx, c.generationKey()).Result()
	if errors.Is(err, goredis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get stats generation: %w", err)
	}
	gen, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse stats generation %q: %w", raw, err)
	}
	return gen, nil
}

func (c *StatsCache) generationKey() string {
	return c.prefix + ":gen"
}

func (c *StatsCache) dataKey(gen int64, key string) string {
	return fmt.Sprintf("%s:%d:%s", c.prefix, gen, key)
}

func encodeStats(stats domain.AdminStats) ([]byte, error) {
	raw, err := json.Marshal(stats)
	if err != nil {
		return nil, fmt.Errorf("marshal stats: %w", err)
	}
	return raw, nil
}

func decodeStats(raw []byte) (domain.AdminStats, error) {
	var stats domain.AdminStats
	if err := json.Unmarshal(raw, &stats); err != nil {
		return domain.AdminStats{}, fmt.Errorf("unmarshal stats: %w", err)
	}
	return stats, nil
}

var _ domain.StatsCache = (*StatsCache)(nil)
