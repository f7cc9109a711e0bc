package cache

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"
)

// Loader is the read-through front of a Cache: a miss computes, stores, and
// returns, with concurrent misses on the same key collapsed into a single
// computation via singleflight.
type Loader struct {
	cache Cache
	group singleflight.Group
}

// NewLoader wraps a Cache.  A nil cache disables caching entirely; every
// call computes.
func NewLoader(c Cache) *Loader {
	return &Loader{cache: c}
}

// GetOrCompute returns the cached value for key, computing and storing it on
// a miss.  forceRefresh bypasses the lookup and overwrites the entry.
// Compute errors are returned as-is and never cached.
func GetOrCompute[T any](ctx context.Context, l *Loader, key string, ttl time.Duration, forceRefresh bool, compute func(context.Context) (T, error)) (T, error) {
	var zero T
	if l == nil || l.cache == nil {
		return compute(ctx)
	}

	if !forceRefresh {
		var cached T
		hit, err := l.cache.Get(ctx, key, &cached)
		if err == nil && hit {
			return cached, nil
		}
		// A cache read failure degrades to a recompute.
	}

	v, err, _ := l.group.Do(key, func() (any, error) {
		if !forceRefresh {
			// A concurrent flight may have filled the key already.
			var cached T
			if hit, err := l.cache.Get(ctx, key, &cached); err == nil && hit {
				return cached, nil
			}
		}
		result, err := compute(ctx)
		if err != nil {
			return zero, err
		}
		// Store failures are not fatal: the result is still good.
		_ = l.cache.Set(ctx, key, result, ttl)
		return result, nil
	})
	if err != nil {
		return zero, err
	}
	return v.(T), nil
}
