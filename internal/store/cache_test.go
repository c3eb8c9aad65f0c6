package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/recordsdir/directory-backend/internal/metrics"
)

type entry struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestRedisCache(t *testing.T) {
	mr := miniredis.RunT(t)
	m, _, err := metrics.Setup("cache-test")
	require.NoError(t, err)

	cache, err := NewCache(mr.Addr(), 16, time.Minute, zaptest.NewLogger(t).Sugar(), m)
	require.NoError(t, err)
	defer cache.Close()

	require.False(t, cache.IsInMemoryMode())
	require.NoError(t, cache.Ping(context.Background()))

	ctx := context.Background()

	var got entry
	assert.True(t, errors.Is(cache.Get(ctx, "dir:test", &got), ErrCacheMiss))

	require.NoError(t, cache.Set(ctx, "dir:test", entry{Name: "Egypt", Count: 2}, 30*time.Second))
	require.NoError(t, cache.Get(ctx, "dir:test", &got))
	assert.Equal(t, entry{Name: "Egypt", Count: 2}, got)
	assert.Equal(t, 30*time.Second, mr.TTL("dir:test"))

	exists, err := cache.Exists(ctx, "dir:test")
	require.NoError(t, err)
	assert.True(t, exists)

	mr.FastForward(31 * time.Second)
	assert.ErrorIs(t, cache.Get(ctx, "dir:test", &got), ErrCacheMiss)

	require.NoError(t, cache.Set(ctx, "dir:a", 1, time.Minute))
	require.NoError(t, cache.Set(ctx, "dir:b", 2, time.Minute))
	require.NoError(t, cache.Delete(ctx, "dir:a", "dir:b"))
	assert.False(t, mr.Exists("dir:a"))
	assert.False(t, mr.Exists("dir:b"))
}

func TestRedisCacheSurfacesOutage(t *testing.T) {
	mr := miniredis.RunT(t)

	cache, err := NewCache(mr.Addr(), 16, time.Minute, zaptest.NewLogger(t).Sugar(), nil)
	require.NoError(t, err)
	defer cache.Close()

	mr.Close()

	var got entry
	err = cache.Get(context.Background(), "dir:test", &got)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrCacheMiss))
}

func TestFallbackCache(t *testing.T) {
	// nothing listens on port 1
	cache, err := NewCache("127.0.0.1:1", 2, time.Minute, zaptest.NewLogger(t).Sugar(), nil)
	require.NoError(t, err)
	defer cache.Close()

	require.True(t, cache.IsInMemoryMode())
	require.NoError(t, cache.Ping(context.Background()))

	ctx := context.Background()
	require.NoError(t, cache.Set(ctx, "one", entry{Name: "one"}, time.Second))
	require.NoError(t, cache.Set(ctx, "two", entry{Name: "two"}, time.Second))
	require.NoError(t, cache.Set(ctx, "three", entry{Name: "three"}, time.Second))

	var got entry
	assert.ErrorIs(t, cache.Get(ctx, "one", &got), ErrCacheMiss, "oldest entry is evicted at capacity")
	require.NoError(t, cache.Get(ctx, "three", &got))
	assert.Equal(t, "three", got.Name)

	require.NoError(t, cache.Delete(ctx, "three"))
	exists, err := cache.Exists(ctx, "three")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestFallbackCacheWithoutAddress(t *testing.T) {
	cache, err := NewCache("", 4, 20*time.Millisecond, nil, nil)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, cache.Set(ctx, "k", "v", time.Hour))

	var got string
	require.NoError(t, cache.Get(ctx, "k", &got))
	assert.Equal(t, "v", got)

	assert.Eventually(t, func() bool {
		return errors.Is(cache.Get(ctx, "k", &got), ErrCacheMiss)
	}, time.Second, 10*time.Millisecond)
}

func TestNewCacheRejectsZeroSize(t *testing.T) {
	_, err := NewCache("", 0, time.Minute, nil, nil)
	assert.Error(t, err)
}
