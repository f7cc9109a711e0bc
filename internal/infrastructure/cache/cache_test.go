package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

func TestFingerprintStable(t *testing.T) {
	a, err := Fingerprint("score", map[string]any{"id": "P1", "price": 50})
	require.NoError(t, err)
	b, err := Fingerprint("score", map[string]any{"price": 50, "id": "P1"})
	require.NoError(t, err)

	// Map key order does not affect the fingerprint.
	assert.Equal(t, a, b)
}

func TestFingerprintDiscriminates(t *testing.T) {
	a, err := Fingerprint("score", map[string]any{"id": "P1"})
	require.NoError(t, err)
	b, err := Fingerprint("score", map[string]any{"id": "P2"})
	require.NoError(t, err)
	c, err := Fingerprint("mine", map[string]any{"id": "P1"})
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestMemoryCacheRoundTrip(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", payload{Name: "stand", Score: 72.5}, time.Minute))

	var got payload
	hit, err := c.Get(ctx, "k", &got)
	require.NoError(t, err)
	require.True(t, hit)
	assert.Equal(t, payload{Name: "stand", Score: 72.5}, got)
}

func TestMemoryCacheMiss(t *testing.T) {
	c := NewMemoryCache()

	var got payload
	hit, err := c.Get(context.Background(), "absent", &got)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestMemoryCacheExpiry(t *testing.T) {
	now := time.Now()
	var mu sync.Mutex
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	c := NewMemoryCache(withClock(clock))
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", payload{Name: "stand"}, time.Hour))

	mu.Lock()
	now = now.Add(2 * time.Hour)
	mu.Unlock()

	var got payload
	hit, err := c.Get(ctx, "k", &got)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Zero(t, c.Len(), "expired entry is dropped on read")
}

func TestMemoryCacheLastWriterWins(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", payload{Name: "first"}, time.Minute))
	require.NoError(t, c.Set(ctx, "k", payload{Name: "second"}, time.Minute))

	var got payload
	hit, err := c.Get(ctx, "k", &got)
	require.NoError(t, err)
	require.True(t, hit)
	assert.Equal(t, "second", got.Name)
}

func TestMemoryCacheDelete(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", payload{}, time.Minute))
	require.NoError(t, c.Delete(ctx, "k"))
	require.NoError(t, c.Delete(ctx, "k"), "double delete is not an error")

	hit, err := c.Get(ctx, "k", &payload{})
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestLoaderReadThrough(t *testing.T) {
	l := NewLoader(NewMemoryCache())
	ctx := context.Background()
	var calls atomic.Int32

	compute := func(context.Context) (payload, error) {
		calls.Add(1)
		return payload{Name: "computed"}, nil
	}

	first, err := GetOrCompute(ctx, l, "k", time.Minute, false, compute)
	require.NoError(t, err)
	second, err := GetOrCompute(ctx, l, "k", time.Minute, false, compute)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), calls.Load(), "second call is served from cache")
}

func TestLoaderForceRefresh(t *testing.T) {
	l := NewLoader(NewMemoryCache())
	ctx := context.Background()
	var calls atomic.Int32

	compute := func(context.Context) (payload, error) {
		return payload{Name: "v", Score: float64(calls.Add(1))}, nil
	}

	_, err := GetOrCompute(ctx, l, "k", time.Minute, false, compute)
	require.NoError(t, err)
	refreshed, err := GetOrCompute(ctx, l, "k", time.Minute, true, compute)
	require.NoError(t, err)

	assert.Equal(t, int32(2), calls.Load())
	assert.InDelta(t, 2.0, refreshed.Score, 1e-9)
}

func TestLoaderNeverCachesErrors(t *testing.T) {
	l := NewLoader(NewMemoryCache())
	ctx := context.Background()
	var calls atomic.Int32

	failing := func(context.Context) (payload, error) {
		calls.Add(1)
		return payload{}, assert.AnError
	}

	_, err := GetOrCompute(ctx, l, "k", time.Minute, false, failing)
	require.Error(t, err)
	_, err = GetOrCompute(ctx, l, "k", time.Minute, false, failing)
	require.Error(t, err)

	assert.Equal(t, int32(2), calls.Load(), "failed computations are retried")
}

func TestLoaderNilCacheComputes(t *testing.T) {
	l := NewLoader(nil)
	var calls atomic.Int32

	for i := 0; i < 3; i++ {
		_, err := GetOrCompute(context.Background(), l, "k", time.Minute, false,
			func(context.Context) (payload, error) {
				calls.Add(1)
				return payload{}, nil
			})
		require.NoError(t, err)
	}
	assert.Equal(t, int32(3), calls.Load())
}

func TestLoaderCollapsesConcurrentMisses(t *testing.T) {
	l := NewLoader(NewMemoryCache())
	ctx := context.Background()
	var calls atomic.Int32
	gate := make(chan struct{})

	compute := func(context.Context) (payload, error) {
		calls.Add(1)
		<-gate
		return payload{Name: "shared"}, nil
	}

	var wg sync.WaitGroup
	results := make([]payload, 8)
	for i := 0; i < len(results); i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := GetOrCompute(ctx, l, "k", time.Minute, false, compute)
			assert.NoError(t, err)
			results[i] = v
		}(i)
	}

	// Let all goroutines reach the flight before releasing it.
	time.Sleep(50 * time.Millisecond)
	close(gate)
	wg.Wait()

	assert.LessOrEqual(t, calls.Load(), int32(2), "concurrent misses collapse")
	for _, r := range results {
		assert.Equal(t, "shared", r.Name)
	}
}
