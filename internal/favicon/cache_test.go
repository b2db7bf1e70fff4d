package favicon

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCache(time.Hour)

	_, ok := cache.Get(ctx, "example.com")
	assert.False(t, ok)

	cache.Set(ctx, "example.com", "https://example.com/favicon.ico")

	url, ok := cache.Get(ctx, "example.com")
	require.True(t, ok)
	assert.Equal(t, "https://example.com/favicon.ico", url)

	stats := cache.Stats(ctx)
	assert.Equal(t, 1, stats.Size)
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
}

func TestMemoryCacheLazyExpiry(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCache(time.Hour)

	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }

	cache.Set(ctx, "example.com", "https://example.com/favicon.ico")

	now = now.Add(2 * time.Hour)
	_, ok := cache.Get(ctx, "example.com")
	assert.False(t, ok, "expired entry is evicted on read")
	assert.Equal(t, 0, cache.Stats(ctx).Size)
}

func TestMemoryCacheSweep(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCache(time.Hour)

	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }

	cache.Set(ctx, "old.example", "u1")
	now = now.Add(90 * time.Minute)
	cache.Set(ctx, "fresh.example", "u2")

	cache.Sweep(ctx)

	stats := cache.Stats(ctx)
	assert.Equal(t, 1, stats.Size)
	_, ok := cache.Get(ctx, "fresh.example")
	assert.True(t, ok)
}

func TestMemoryCacheClear(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCache(0) // zero falls back to the default TTL

	cache.Set(ctx, "a.example", "u1")
	cache.Set(ctx, "b.example", "u2")
	cache.Clear(ctx)

	assert.Equal(t, 0, cache.Stats(ctx).Size)
}
