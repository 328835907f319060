package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeatlas/internal/circuitbreaker"
	"codeatlas/internal/common/logging"
	"codeatlas/internal/redis"
)

// newTestClient spins up miniredis and a connected client. The breaker
// tolerates enough failures that degraded-store tests observe store
// behavior, not breaker behavior.
func newTestClient(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	cfg := &redis.Config{
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
	}
	client, err := redis.NewClient(cfg, logging.GetGlobalLogger())
	require.NoError(t, err)
	require.NoError(t, client.Connect(context.Background()))
	t.Cleanup(func() { _ = client.Close() })

	return client, mr
}

func newRemoteHarness(t *testing.T, monitor *Monitor) (*RemoteStore, *miniredis.Miniredis) {
	t.Helper()

	client, mr := newTestClient(t)

	store := NewRemoteStore(RemoteConfig{
		Name:       "search",
		DefaultTTL: time.Hour,
	}, client, monitor, logging.GetGlobalLogger())
	t.Cleanup(func() { _ = store.Close() })

	return store, mr
}

func TestRemoteStore_SetGet(t *testing.T) {
	ctx := context.Background()
	store, mr := newRemoteHarness(t, nil)

	t.Run("roundtrip", func(t *testing.T) {
		require.True(t, store.Set(ctx, "user:42", "alice", 0))

		value, found := store.Get(ctx, "user:42")
		require.True(t, found)
		assert.Equal(t, "alice", value)
	})

	t.Run("keys are prefixed json", func(t *testing.T) {
		raw, err := mr.Get("search:user:42")
		require.NoError(t, err)
		assert.Equal(t, `"alice"`, raw)
	})

	t.Run("structured values decode as generic json", func(t *testing.T) {
		require.True(t, store.Set(ctx, "doc", map[string]interface{}{"n": 1}, 0))

		value, found := store.Get(ctx, "doc")
		require.True(t, found)
		assert.Equal(t, map[string]interface{}{"n": float64(1)}, value)
	})

	t.Run("missing key", func(t *testing.T) {
		value, found := store.Get(ctx, "missing")
		assert.False(t, found)
		assert.Nil(t, value)
	})

	t.Run("empty key rejected", func(t *testing.T) {
		assert.False(t, store.Set(ctx, "", "v", 0))
	})
}

func TestRemoteStore_TTL(t *testing.T) {
	ctx := context.Background()
	store, mr := newRemoteHarness(t, nil)

	t.Run("zero ttl uses store default", func(t *testing.T) {
		require.True(t, store.Set(ctx, "defaulted", "v", 0))
		assert.Equal(t, time.Hour, mr.TTL("search:defaulted"))
	})

	t.Run("explicit ttl", func(t *testing.T) {
		require.True(t, store.Set(ctx, "short", "v", 30*time.Second))
		assert.Equal(t, 30*time.Second, mr.TTL("search:short"))
	})

	t.Run("negative ttl never expires", func(t *testing.T) {
		require.True(t, store.Set(ctx, "forever", "v", -1))
		assert.Equal(t, time.Duration(0), mr.TTL("search:forever"))
	})

	t.Run("expiry is enforced by the server", func(t *testing.T) {
		require.True(t, store.Set(ctx, "expiring", "v", 30*time.Second))
		mr.FastForward(31 * time.Second)

		_, found := store.Get(ctx, "expiring")
		assert.False(t, found)
	})
}

func TestRemoteStore_SelfHealsCorruptEntries(t *testing.T) {
	ctx := context.Background()
	monitor := NewMonitor(10, nil, logging.GetGlobalLogger())
	store, mr := newRemoteHarness(t, monitor)

	require.NoError(t, mr.Set("search:bad", "{not-json"))

	value, found := store.Get(ctx, "bad")
	assert.False(t, found)
	assert.Nil(t, value)

	// The corrupt entry is gone, the next read misses cleanly.
	assert.False(t, mr.Exists("search:bad"))

	metrics, ok := monitor.GetMetrics("search")
	require.True(t, ok)
	assert.Equal(t, int64(1), metrics.Errors)
}

func TestRemoteStore_GetMulti(t *testing.T) {
	ctx := context.Background()
	store, mr := newRemoteHarness(t, nil)

	require.True(t, store.Set(ctx, "a", "1", 0))
	require.True(t, store.Set(ctx, "b", "2", 0))
	require.NoError(t, mr.Set("search:corrupt", "{broken"))

	t.Run("found subset with per-key degradation", func(t *testing.T) {
		values := store.GetMulti(ctx, []string{"a", "b", "corrupt", "missing"})

		assert.Equal(t, map[string]interface{}{"a": "1", "b": "2"}, values)
		assert.False(t, mr.Exists("search:corrupt"))
	})

	t.Run("empty key list", func(t *testing.T) {
		assert.Empty(t, store.GetMulti(ctx, nil))
	})
}

func TestRemoteStore_Del(t *testing.T) {
	ctx := context.Background()
	store, _ := newRemoteHarness(t, nil)

	require.True(t, store.Set(ctx, "k", "v", 0))

	assert.True(t, store.Del(ctx, "k"))
	assert.False(t, store.Del(ctx, "k"))

	_, found := store.Get(ctx, "k")
	assert.False(t, found)
}

func TestRemoteStore_Exists(t *testing.T) {
	ctx := context.Background()
	store, _ := newRemoteHarness(t, nil)

	require.True(t, store.Set(ctx, "k", "v", 0))

	assert.True(t, store.Exists(ctx, "k"))
	assert.False(t, store.Exists(ctx, "missing"))
}

func TestRemoteStore_ClearIsScopedToPrefix(t *testing.T) {
	ctx := context.Background()
	store, mr := newRemoteHarness(t, nil)

	require.True(t, store.Set(ctx, "a", "1", 0))
	require.True(t, store.Set(ctx, "b", "2", 0))
	require.NoError(t, mr.Set("other:keep", "safe"))

	assert.True(t, store.Clear(ctx))

	assert.False(t, mr.Exists("search:a"))
	assert.False(t, mr.Exists("search:b"))
	assert.True(t, mr.Exists("other:keep"))

	t.Run("clearing an empty store succeeds", func(t *testing.T) {
		assert.True(t, store.Clear(ctx))
	})
}

func TestRemoteStore_DegradesWhenServerDown(t *testing.T) {
	ctx := context.Background()
	monitor := NewMonitor(10, nil, logging.GetGlobalLogger())
	store, mr := newRemoteHarness(t, monitor)

	require.True(t, store.Set(ctx, "k", "v", 0))
	mr.Close()

	value, found := store.Get(ctx, "k")
	assert.False(t, found)
	assert.Nil(t, value)
	assert.False(t, store.Set(ctx, "k2", "v", 0))
	assert.False(t, store.Del(ctx, "k"))
	assert.False(t, store.Exists(ctx, "k"))
	assert.False(t, store.Clear(ctx))
	assert.Empty(t, store.GetMulti(ctx, []string{"k"}))

	metrics, ok := monitor.GetMetrics("search")
	require.True(t, ok)
	assert.GreaterOrEqual(t, metrics.Errors, int64(6))
}

func TestRemoteStore_Stats(t *testing.T) {
	ctx := context.Background()
	store, _ := newRemoteHarness(t, nil)

	require.True(t, store.Set(ctx, "a", "1", 0))
	require.True(t, store.Set(ctx, "b", "2", 0))

	_, found := store.Get(ctx, "a")
	require.True(t, found)
	_, found = store.Get(ctx, "missing")
	require.False(t, found)

	stats := store.Stats(ctx)
	assert.Equal(t, "search", stats.Name)
	assert.Equal(t, 2, stats.Size)
	assert.Equal(t, int64(1), stats.HitCount)
	assert.Equal(t, int64(1), stats.MissCount)
	assert.Equal(t, 0.5, stats.HitRate)
}

func TestRemoteStore_Close(t *testing.T) {
	ctx := context.Background()
	store, mr := newRemoteHarness(t, nil)

	require.True(t, store.Set(ctx, "k", "v", 0))

	require.NoError(t, store.Close())
	require.NoError(t, store.Close())

	_, found := store.Get(ctx, "k")
	assert.False(t, found)
	assert.False(t, store.Set(ctx, "k2", "v", 0))

	// Close detaches the store, it does not touch the shared server.
	assert.True(t, mr.Exists("search:k"))
}

func TestParseServerInfo(t *testing.T) {
	raw := "# Server\r\n" +
		"redis_version:7.2.4\r\n" +
		"uptime_in_seconds:3600\r\n" +
		"# Clients\r\n" +
		"connected_clients:4\r\n" +
		"# Memory\r\n" +
		"used_memory:1048576\r\n" +
		"used_memory_human:1.00M\r\n" +
		"# Stats\r\n" +
		"keyspace_hits:100\r\n" +
		"keyspace_misses:25\r\n" +
		"# Keyspace\r\n" +
		"db0:keys=10,expires=2,avg_ttl=0\r\n" +
		"db1:keys=5,expires=0,avg_ttl=0\r\n"

	info := parseServerInfo(raw)
	require.NotNil(t, info)

	assert.Equal(t, "7.2.4", info.Version)
	assert.Equal(t, int64(3600), info.UptimeSeconds)
	assert.Equal(t, int64(4), info.ConnectedClients)
	assert.Equal(t, int64(1048576), info.UsedMemoryBytes)
	assert.Equal(t, int64(100), info.KeyspaceHits)
	assert.Equal(t, int64(25), info.KeyspaceMisses)
	assert.Equal(t, int64(15), info.Keys)

	t.Run("garbage yields zero values", func(t *testing.T) {
		info := parseServerInfo("not info output at all")
		require.NotNil(t, info)
		assert.Equal(t, int64(0), info.ConnectedClients)
		assert.Empty(t, info.Version)
	})
}
