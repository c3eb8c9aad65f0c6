package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/recordsdir/directory-backend/internal/metrics"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Cache struct {
	// When Redis is available, use client for all operations
	client *redis.Client
	// When Redis is unavailable, fall back to a bounded in-process LRU.
	// Its entries expire after the TTL given to NewCache regardless of the
	// ttl passed to Set.
	fallback *expirable.LRU[string, []byte]

	logger  *zap.SugaredLogger
	metrics *metrics.Metrics
}

// NewCache connects to Redis at addr. An empty addr or a failed ping selects
// the in-process fallback holding at most size entries for ttl each.
func NewCache(addr string, size int, ttl time.Duration, logger *zap.SugaredLogger, metrics *metrics.Metrics) (*Cache, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if size <= 0 {
		return nil, fmt.Errorf("cache size must be positive, got %d", size)
	}

	fallback := func(reason string, err error) *Cache {
		logger.Warnw("Redis unavailable; using in-memory cache", "reason", reason, "error", err)
		return &Cache{
			fallback: expirable.NewLRU[string, []byte](size, nil, ttl),
			logger:   logger,
			metrics:  metrics,
		}
	}

	if addr == "" {
		return fallback("no address configured", nil), nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return fallback("ping failed", err), nil
	}

	logger.Infow("Connected to Redis cache", "addr", addr)
	return &Cache{
		client:  client,
		logger:  logger,
		metrics: metrics,
	}, nil
}

func (c *Cache) Get(ctx context.Context, key string, dest interface{}) error {
	var data []byte

	if c.client != nil {
		val, err := c.client.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				c.recordMiss(ctx, key)
				return ErrCacheMiss
			}
			c.logger.Errorw("Cache get error", "key", key, "error", err)
			return fmt.Errorf("cache get error: %w", err)
		}
		data = val
	} else {
		val, ok := c.fallback.Get(key)
		if !ok {
			c.recordMiss(ctx, key)
			return ErrCacheMiss
		}
		data = val
	}

	if c.metrics != nil {
		c.metrics.RecordCacheHit(ctx, key)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("cache unmarshal error: %w", err)
	}
	return nil
}

func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache marshal error: %w", err)
	}
	if c.client != nil {
		if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
			c.logger.Errorw("Cache set error", "key", key, "error", err)
			return fmt.Errorf("cache set error: %w", err)
		}
		return nil
	}
	c.fallback.Add(key, data)
	return nil
}

func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	if c.client != nil {
		if err := c.client.Del(ctx, keys...).Err(); err != nil {
			c.logger.Errorw("Cache delete error", "keys", keys, "error", err)
			return fmt.Errorf("cache delete error: %w", err)
		}
		return nil
	}
	for _, key := range keys {
		c.fallback.Remove(key)
	}
	return nil
}

func (c *Cache) Exists(ctx context.Context, key string) (bool, error) {
	if c.client != nil {
		count, err := c.client.Exists(ctx, key).Result()
		if err != nil {
			return false, fmt.Errorf("cache exists error: %w", err)
		}
		return count > 0, nil
	}
	return c.fallback.Contains(key), nil
}

// IsInMemoryMode returns true if the cache is running on the in-process fallback
func (c *Cache) IsInMemoryMode() bool {
	return c.client == nil
}

// Ping reports Redis health; the fallback is always healthy
func (c *Cache) Ping(ctx context.Context) error {
	if c.client != nil {
		return c.client.Ping(ctx).Err()
	}
	return nil
}

func (c *Cache) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	c.fallback.Purge()
	return nil
}

func (c *Cache) recordMiss(ctx context.Context, key string) {
	if c.metrics != nil {
		c.metrics.RecordCacheMiss(ctx, key)
	}
}

var (
	ErrCacheMiss = errors.New("cache miss")
)
