package cache

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dropsight/dropsight/pkg/errors"
)

// RedisCache is a Cache backed by a shared Redis instance.  Keys are
// prefixed so multiple deployments can share a database, and TTLs carry a
// small random jitter to spread expiry of keys written in the same burst.
type RedisCache struct {
	client     redis.UniversalClient
	prefix     string
	defaultTTL time.Duration
	jitter     float64

	randMu sync.Mutex
	rand   *rand.Rand
}

// RedisOption configures a RedisCache.
type RedisOption func(*RedisCache)

// WithPrefix sets the key prefix.  The default is "dropsight:".
func WithPrefix(prefix string) RedisOption {
	return func(c *RedisCache) { c.prefix = prefix }
}

// WithRedisDefaultTTL overrides the fallback expiry.
func WithRedisDefaultTTL(ttl time.Duration) RedisOption {
	return func(c *RedisCache) {
		if ttl > 0 {
			c.defaultTTL = ttl
		}
	}
}

// WithJitter sets the fractional TTL jitter in [0,1).  Zero disables it.
func WithJitter(fraction float64) RedisOption {
	return func(c *RedisCache) {
		if fraction >= 0 && fraction < 1 {
			c.jitter = fraction
		}
	}
}

// NewRedisCache wraps an existing client.  The caller owns the client's
// lifecycle.
func NewRedisCache(client redis.UniversalClient, opts ...RedisOption) *RedisCache {
	c := &RedisCache{
		client:     client,
		prefix:     "dropsight:",
		defaultTTL: DefaultTTL,
		jitter:     0.1,
		rand:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get implements Cache.
func (c *RedisCache) Get(ctx context.Context, key string, dest any) (bool, error) {
	data, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, errors.ErrCodeCacheError, "redis get failed")
	}
	if err := unmarshalValue(data, dest); err != nil {
		return false, err
	}
	return true, nil
}

// Set implements Cache.
func (c *RedisCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	data, err := marshalValue(value)
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, c.prefix+key, data, c.jittered(ttl)).Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "redis set failed")
	}
	return nil
}

// Delete implements Cache.
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, c.prefix+key).Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "redis delete failed")
	}
	return nil
}

// jittered stretches ttl by up to the configured fraction.
func (c *RedisCache) jittered(ttl time.Duration) time.Duration {
	if c.jitter == 0 {
		return ttl
	}
	c.randMu.Lock()
	f := c.rand.Float64()
	c.randMu.Unlock()
	return ttl + time.Duration(float64(ttl)*c.jitter*f)
}
