package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Checker-Finance/trading-adapters/degiro-adapter/internal/degiro"
	pkgsecrets "github.com/Checker-Finance/trading-adapters/pkg/secrets"
)

const productKeyPrefix = "degiro:product:"

// DefaultProductTTL bounds how stale cached product details can get.
const DefaultProductTTL = 24 * time.Hour

// RedisProductCache keeps product details as JSON under degiro:product:{id}.
type RedisProductCache struct {
	redis  *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

var _ degiro.ProductCache = (*RedisProductCache)(nil)

// NewRedisProductCache connects to Redis and checks it answers.
func NewRedisProductCache(redisAddr string, redisDB int, password string, ttl time.Duration, logger *zap.Logger) (*RedisProductCache, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	rdb := redis.NewClient(&redis.Options{
		Addr:     redisAddr,
		DB:       redisDB,
		Password: password,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return NewRedisProductCacheFromClient(rdb, ttl, logger), nil
}

func NewRedisProductCacheFromClient(rdb *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisProductCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = DefaultProductTTL
	}
	return &RedisProductCache{redis: rdb, ttl: ttl, logger: logger}
}

func productKey(id string) string { return productKeyPrefix + id }

// GetMany returns the cached products among ids. Entries that no longer decode are treated as misses.
func (c *RedisProductCache) GetMany(ctx context.Context, ids []string) (map[string]degiro.Product, error) {
	out := make(map[string]degiro.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = productKey(id)
	}

	vals, err := c.redis.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis mget products: %w", err)
	}
	for i, v := range vals {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var p degiro.Product
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			c.logger.Warn("store.redis.product_decode_failed",
				zap.String("key", keys[i]),
				zap.Error(err))
			continue
		}
		out[ids[i]] = p
	}
	return out, nil
}

// PutMany writes every product in one pipeline with the cache TTL.
func (c *RedisProductCache) PutMany(ctx context.Context, products map[string]degiro.Product) error {
	if len(products) == 0 {
		return nil
	}
	_, err := c.redis.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for id, p := range products {
			data, err := json.Marshal(p)
			if err != nil {
				return fmt.Errorf("encode product %s: %w", id, err)
			}
			pipe.Set(ctx, productKey(id), data, c.ttl)
		}
		return nil
	})
	if err != nil {
		c.logger.Error("store.redis.product_write_failed", zap.Int("count", len(products)), zap.Error(err))
		return fmt.Errorf("redis write products: %w", err)
	}
	return nil
}

func (c *RedisProductCache) HealthCheck(ctx context.Context) error {
	if c.redis == nil {
		return fmt.Errorf("redis not initialized")
	}
	if err := c.redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (c *RedisProductCache) Close() error {
	if c.redis != nil {
		return c.redis.Close()
	}
	return nil
}

// MemoryProductCache is the in-process fallback when no Redis is configured.
type MemoryProductCache struct {
	cache *pkgsecrets.Cache[degiro.Product]
}

var _ degiro.ProductCache = (*MemoryProductCache)(nil)

func NewMemoryProductCache(ttl time.Duration) *MemoryProductCache {
	if ttl <= 0 {
		ttl = DefaultProductTTL
	}
	return &MemoryProductCache{cache: pkgsecrets.NewCache[degiro.Product](ttl)}
}

func (c *MemoryProductCache) GetMany(_ context.Context, ids []string) (map[string]degiro.Product, error) {
	return c.cache.GetMany(ids), nil
}

func (c *MemoryProductCache) PutMany(_ context.Context, products map[string]degiro.Product) error {
	c.cache.PutMany(products)
	return nil
}

// StartCleaner sweeps expired entries until stop is closed.
func (c *MemoryProductCache) StartCleaner(interval time.Duration, stop <-chan struct{}) {
	c.cache.StartCleaner(interval, stop)
}

func (c *MemoryProductCache) Len() int { return c.cache.Len() }
