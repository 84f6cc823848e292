package price

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/mtlprog/walletnav/internal/domain"
)

// Cache stores unit prices for a limited time.
type Cache interface {
	Get(ctx context.Context, key string) (decimal.Decimal, bool)
	Set(ctx context.Context, key string, price decimal.Decimal)
}

// cacheKey formats "{chainID}:{address}", e.g. "1:0xa0b8...".
func cacheKey(chainID int64, address string) string {
	return domain.TokenKey(chainID, address)
}

// MemoryCache is an in-process TTL cache.
type MemoryCache struct {
	entries *gocache.Cache
}

// NewMemoryCache creates an in-process cache whose entries expire after ttl.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{entries: gocache.New(ttl, 2*ttl)}
}

func (c *MemoryCache) Get(_ context.Context, key string) (decimal.Decimal, bool) {
	v, ok := c.entries.Get(key)
	if !ok {
		return decimal.Zero, false
	}
	d, ok := v.(decimal.Decimal)
	return d, ok
}

func (c *MemoryCache) Set(_ context.Context, key string, price decimal.Decimal) {
	c.entries.Set(key, price, gocache.DefaultExpiration)
}

const redisKeyPrefix = "walletnav:price:"

// RedisCache shares prices between instances through Redis.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache connects to redisURL (redis://...) and verifies the connection.
func NewRedisCache(ctx context.Context, redisURL string, ttl time.Duration) (*RedisCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	return &RedisCache{client: client, ttl: ttl}, nil
}

func (c *RedisCache) Get(ctx context.Context, key string) (decimal.Decimal, bool) {
	s, err := c.client.Get(ctx, redisKeyPrefix+key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.Warn("redis price cache read failed", "key", key, "error", err)
		}
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

func (c *RedisCache) Set(ctx context.Context, key string, price decimal.Decimal) {
	if err := c.client.Set(ctx, redisKeyPrefix+key, price.String(), c.ttl).Err(); err != nil {
		slog.Warn("redis price cache write failed", "key", key, "error", err)
	}
}

// Close releases the Redis connection pool.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
