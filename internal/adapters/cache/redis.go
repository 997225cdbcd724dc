// Package cache implements ports.ViewCache on Redis.
package cache

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alejandrodnm/satbets/internal/domain"
	"github.com/alejandrodnm/satbets/internal/ports"
)

// DefaultTTL bounds how stale a cached market view may be.
const DefaultTTL = 15 * time.Second

// Config holds connection parameters for the Redis view cache.
type Config struct {
	Addr       string
	Password   string
	DB         int
	PoolSize   int
	TLSEnabled bool
	Prefix     string
	TTL        time.Duration
}

// RedisCache guarda MarketViews como JSON en un hash por mercado.
//
// Key schema:
//
//	{prefix}view:{id} - hash with field "data"
type RedisCache struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

var _ ports.ViewCache = (*RedisCache)(nil)

// NewRedisCache conecta y hace ping; falla si Redis no responde.
func NewRedisCache(ctx context.Context, cfg Config) (*RedisCache, error) {
	opts := &redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	}
	if cfg.TLSEnabled {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("cache: ping %s: %w", cfg.Addr, err)
	}
	return newRedisCache(rdb, cfg), nil
}

func newRedisCache(rdb *redis.Client, cfg Config) *RedisCache {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "satbets:"
	}
	return &RedisCache{rdb: rdb, prefix: prefix, ttl: ttl}
}

func (c *RedisCache) key(marketID uint64) string {
	return c.prefix + "view:" + strconv.FormatUint(marketID, 10)
}

// Get returns domain.ErrNotFound on a miss or an expired entry.
func (c *RedisCache) Get(ctx context.Context, marketID uint64) (domain.MarketView, error) {
	data, err := c.rdb.HGet(ctx, c.key(marketID), "data").Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.MarketView{}, domain.ErrNotFound
		}
		return domain.MarketView{}, fmt.Errorf("cache: get view %d: %w", marketID, err)
	}

	var view domain.MarketView
	if err := json.Unmarshal(data, &view); err != nil {
		return domain.MarketView{}, fmt.Errorf("cache: unmarshal view %d: %w", marketID, err)
	}
	return view, nil
}

// Set stores the view with the cache TTL.
func (c *RedisCache) Set(ctx context.Context, view domain.MarketView) error {
	// por puntero: uint256.Int solo implementa json.Marshaler en *Int
	data, err := json.Marshal(&view)
	if err != nil {
		return fmt.Errorf("cache: marshal view %d: %w", view.Market.ID, err)
	}

	key := c.key(view.Market.ID)
	pipe := c.rdb.TxPipeline()
	pipe.HSet(ctx, key, "data", data)
	pipe.Expire(ctx, key, c.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cache: set view %d: %w", view.Market.ID, err)
	}
	return nil
}

// Invalidate drops the cached view. Missing keys are not an error.
func (c *RedisCache) Invalidate(ctx context.Context, marketID uint64) error {
	if err := c.rdb.Del(ctx, c.key(marketID)).Err(); err != nil {
		return fmt.Errorf("cache: invalidate view %d: %w", marketID, err)
	}
	return nil
}

// Close closes the Redis connection.
func (c *RedisCache) Close() error {
	return c.rdb.Close()
}
