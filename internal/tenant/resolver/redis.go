package resolver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"storefront/backend/internal/tenant/domain"
)

const (
	redisKeyPrefix     = "tenant:resolve:"
	redisGenerationKey = redisKeyPrefix + "gen"
)

// redisValue wraps the cached tenant so a negative result can be stored as {"tenant":null}.
type redisValue struct {
	Tenant *domain.Tenant `json:"tenant"`
}

// RedisCache shares resolutions between instances. Invalidate bumps a generation counter
// instead of scanning keys; entries under older generations age out through their TTL.
// Set writes under the generation returned by Get, never the one current at write time.
type RedisCache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedisCache returns a cache backed by client. ttl must be positive so stale generations expire.
func NewRedisCache(client redis.UniversalClient, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RedisCache{client: client, ttl: ttl}
}

// NewRedisClient parses a redis:// URL and returns a client.
func NewRedisClient(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return redis.NewClient(opts), nil
}

func (c *RedisCache) generation(ctx context.Context) (int64, error) {
	gen, err := c.client.Get(ctx, redisGenerationKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

func (c *RedisCache) key(gen int64, key string) string {
	return fmt.Sprintf("%s%d:%s", redisKeyPrefix, gen, key)
}

func (c *RedisCache) Get(ctx context.Context, key string) (*domain.Tenant, bool, int64, error) {
	gen, err := c.generation(ctx)
	if err != nil {
		return nil, false, 0, fmt.Errorf("redis cache generation: %w", err)
	}
	raw, err := c.client.Get(ctx, c.key(gen, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, gen, nil
	}
	if err != nil {
		return nil, false, gen, fmt.Errorf("redis cache get: %w", err)
	}
	var v redisValue
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, false, gen, fmt.Errorf("redis cache decode: %w", err)
	}
	return v.Tenant, true, gen, nil
}

// Set stores t under gen. A write for a generation that has since been invalidated lands
// under a key no reader looks up and expires with the TTL.
func (c *RedisCache) Set(ctx context.Context, key string, gen int64, t *domain.Tenant) error {
	raw, err := json.Marshal(redisValue{Tenant: t})
	if err != nil {
		return fmt.Errorf("redis cache encode: %w", err)
	}
	if err := c.client.Set(ctx, c.key(gen, key), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis cache set: %w", err)
	}
	return nil
}

func (c *RedisCache) Invalidate(ctx context.Context) error {
	if err := c.client.Incr(ctx, redisGenerationKey).Err(); err != nil {
		return fmt.Errorf("redis cache invalidate: %w", err)
	}
	return nil
}

// Ping checks connectivity for readiness probes.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
