package index

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"codeatlas/internal/cache"
	"codeatlas/internal/circuitbreaker"
	"codeatlas/internal/common/logging"
	"codeatlas/internal/config"
	"codeatlas/internal/redis"
)

func testCacheConfig() config.CacheConfig {
	return config.CacheConfig{
		Enabled: false,
		TTL: config.TTLConfig{
			Embedding: 24 * time.Hour,
			Search:    time.Hour,
			Graph:     30 * time.Minute,
			Progress:  5 * time.Minute,
		},
		Memory: config.MemoryConfig{
			MaxSize:         1000,
			TTL:             5 * time.Minute,
			CleanupInterval: time.Minute,
		},
	}
}

// newMemoryProvider backs the facades with in-process stores. Values keep
// their concrete types, so this exercises the typed fast path.
func newMemoryProvider(t *testing.T) *cache.Provider {
	t.Helper()

	logger := logging.GetGlobalLogger()
	cfg := testCacheConfig()
	registry := cache.NewRegistry(cfg, nil, cache.NewMonitor(50, nil, logger), logger)
	t.Cleanup(func() {
		registry.CloseAll()
	})

	return cache.NewProvider(registry, cfg.TTL)
}

// newRemoteProvider backs the facades with remote-only stores over
// miniredis, so every read decodes from JSON and exercises the re-shaping
// path of the typed helpers.
func newRemoteProvider(t *testing.T) *cache.Provider {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	logger := logging.GetGlobalLogger()
	client, err := redis.NewClient(&redis.Config{
		Address:       mr.Addr(),
		PingInterval:  time.Minute,
		RetryAttempts: 1,
		RetryDelay:    10 * time.Millisecond,
		Breaker: circuitbreaker.Config{
			MaxFailures:           50,
			Timeout:               100 * time.Millisecond,
			MaxConcurrentRequests: 10,
			SuccessThreshold:      1,
		},
	}, logger)
	require.NoError(t, err)
	require.NoError(t, client.Connect(context.Background()))
	t.Cleanup(func() {
		client.Close()
	})

	cfg := testCacheConfig()
	cfg.Enabled = true
	cfg.UseMultiLevel = false

	registry := cache.NewRegistry(cfg, client, cache.NewMonitor(50, nil, logger), logger)
	t.Cleanup(func() {
		registry.CloseAll()
	})

	return cache.NewProvider(registry, cfg.TTL)
}
