package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeatlas/internal/common/logging"
	"codeatlas/internal/config"
	"codeatlas/internal/redis"
)

func testCacheConfig() config.CacheConfig {
	return config.CacheConfig{
		Enabled:       true,
		UseMultiLevel: true,
		TTL: config.TTLConfig{
			Embedding: 24 * time.Hour,
			Search:    time.Hour,
			Graph:     30 * time.Minute,
			Progress:  5 * time.Minute,
		},
		Memory: config.MemoryConfig{
			MaxSize:         100,
			TTL:             5 * time.Minute,
			CleanupInterval: time.Minute,
		},
	}
}

func newTestRegistry(t *testing.T, cfg config.CacheConfig, client *redis.Client) *Registry {
	t.Helper()

	registry := NewRegistry(cfg, client, nil, logging.GetGlobalLogger())
	t.Cleanup(func() { _ = registry.CloseAll() })
	return registry
}

func TestRegistry_TopologySelection(t *testing.T) {
	t.Run("multi-level config builds a tiered cache", func(t *testing.T) {
		client, _ := newTestClient(t)
		registry := newTestRegistry(t, testCacheConfig(), client)

		store := registry.GetOrCreate("search", time.Hour)
		_, ok := store.(*TieredCache)
		assert.True(t, ok)
	})

	t.Run("single-level config builds a remote store", func(t *testing.T) {
		client, _ := newTestClient(t)
		cfg := testCacheConfig()
		cfg.UseMultiLevel = false
		registry := newTestRegistry(t, cfg, client)

		store := registry.GetOrCreate("search", time.Hour)
		_, ok := store.(*RemoteStore)
		assert.True(t, ok)
	})

	t.Run("disabled remote builds a memory store", func(t *testing.T) {
		client, _ := newTestClient(t)
		cfg := testCacheConfig()
		cfg.Enabled = false
		registry := newTestRegistry(t, cfg, client)

		store := registry.GetOrCreate("search", time.Hour)
		_, ok := store.(*MemoryStore)
		assert.True(t, ok)
	})

	t.Run("missing client downgrades to memory", func(t *testing.T) {
		registry := newTestRegistry(t, testCacheConfig(), nil)

		store := registry.GetOrCreate("search", time.Hour)
		_, ok := store.(*MemoryStore)
		assert.True(t, ok)
	})
}

func TestRegistry_GetOrCreateReturnsSameInstance(t *testing.T) {
	registry := newTestRegistry(t, config.CacheConfig{}, nil)

	first := registry.GetOrCreate("search", time.Hour)
	second := registry.GetOrCreate("search", time.Minute)

	assert.Same(t, first, second)
}

func TestRegistry_GetAndNames(t *testing.T) {
	registry := newTestRegistry(t, config.CacheConfig{}, nil)

	_, ok := registry.Get("search")
	assert.False(t, ok)
	assert.Empty(t, registry.Names())

	registry.GetOrCreate("search", time.Hour)
	registry.GetOrCreate("embedding", time.Hour)

	store, ok := registry.Get("search")
	assert.True(t, ok)
	assert.NotNil(t, store)

	assert.Equal(t, []string{"embedding", "search"}, registry.Names())
}

func TestRegistry_Remove(t *testing.T) {
	registry := newTestRegistry(t, config.CacheConfig{}, nil)

	registry.GetOrCreate("search", time.Hour)

	assert.True(t, registry.Remove("search"))
	_, ok := registry.Get("search")
	assert.False(t, ok)

	assert.False(t, registry.Remove("search"))
}

func TestRegistry_ClearAll(t *testing.T) {
	ctx := context.Background()
	registry := newTestRegistry(t, config.CacheConfig{}, nil)

	a := registry.GetOrCreate("a", time.Hour)
	b := registry.GetOrCreate("b", time.Hour)
	require.True(t, a.Set(ctx, "k", "v", 0))
	require.True(t, b.Set(ctx, "k", "v", 0))

	assert.True(t, registry.ClearAll(ctx))

	assert.Equal(t, 0, a.Stats(ctx).Size)
	assert.Equal(t, 0, b.Stats(ctx).Size)
}

func TestRegistry_CloseAll(t *testing.T) {
	ctx := context.Background()
	registry := newTestRegistry(t, config.CacheConfig{}, nil)

	a := registry.GetOrCreate("a", time.Hour)
	registry.GetOrCreate("b", time.Hour)

	require.NoError(t, registry.CloseAll())

	assert.Empty(t, registry.Names())
	assert.False(t, a.Set(ctx, "k", "v", 0))

	t.Run("idempotent", func(t *testing.T) {
		require.NoError(t, registry.CloseAll())
	})
}

func TestRegistry_HealthCheck(t *testing.T) {
	ctx := context.Background()

	t.Run("memory instances pass the canary", func(t *testing.T) {
		registry := newTestRegistry(t, config.CacheConfig{}, nil)
		registry.GetOrCreate("a", time.Hour)
		registry.GetOrCreate("b", time.Hour)

		results := registry.HealthCheck(ctx)
		require.Len(t, results, 2)
		for name, health := range results {
			assert.True(t, health.Healthy, "instance %s", name)
			assert.Empty(t, health.Detail)
		}
	})

	t.Run("tiered instance passes the canary", func(t *testing.T) {
		client, _ := newTestClient(t)
		registry := newTestRegistry(t, testCacheConfig(), client)
		registry.GetOrCreate("search", time.Hour)

		results := registry.HealthCheck(ctx)
		require.Len(t, results, 1)
		assert.True(t, results["search"].Healthy)
	})

	t.Run("down server fails the canary", func(t *testing.T) {
		client, mr := newTestClient(t)
		cfg := testCacheConfig()
		cfg.UseMultiLevel = false
		registry := newTestRegistry(t, cfg, client)
		registry.GetOrCreate("search", time.Hour)

		mr.Close()

		results := registry.HealthCheck(ctx)
		require.Len(t, results, 1)
		assert.False(t, results["search"].Healthy)
		assert.Equal(t, "canary write failed", results["search"].Detail)
	})

	t.Run("empty registry", func(t *testing.T) {
		registry := newTestRegistry(t, config.CacheConfig{}, nil)
		assert.Empty(t, registry.HealthCheck(ctx))
	})
}
