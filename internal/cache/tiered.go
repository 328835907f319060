package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"codeatlas/internal/common/errors"
	"codeatlas/internal/common/logging"
)

// TieredConfig configures a TieredCache.
type TieredConfig struct {
	Name string

	// DefaultTTL applies when Set is called with a zero ttl and is also the
	// requested lifetime for L1 backfills before capping.
	DefaultTTL time.Duration

	// L1TTLCap bounds every write into the memory tier. Zero selects
	// DefaultL1TTLCap.
	L1TTLCap time.Duration
}

// TieredCache layers a fast local tier over a shared remote tier.
//
// Reads try L1 first and only fall through to L2 on a miss; an L2 hit is
// copied back into L1 with a capped TTL so the entry cannot outlive remote
// invalidation for long. Writes land in both tiers concurrently. Set and
// Clear succeed only when both tiers succeed, Del reports deletion when
// either tier held the key.
type TieredCache struct {
	name       string
	defaultTTL time.Duration
	l1Cap      time.Duration

	l1 Store
	l2 Store

	monitor *Monitor
	logger  logging.Logger

	hits   int64
	misses int64

	closeOnce sync.Once
}

var _ Store = (*TieredCache)(nil)

// NewTieredCache combines l1 and l2 into one logical cache.
func NewTieredCache(cfg TieredConfig, l1, l2 Store, monitor *Monitor, logger logging.Logger) *TieredCache {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	if cfg.L1TTLCap <= 0 {
		cfg.L1TTLCap = DefaultL1TTLCap
	}

	return &TieredCache{
		name:       cfg.Name,
		defaultTTL: cfg.DefaultTTL,
		l1Cap:      cfg.L1TTLCap,
		l1:         l1,
		l2:         l2,
		monitor:    monitor,
		logger:     logger,
	}
}

// cappedL1TTL bounds a lifetime for the memory tier. Unbounded lifetimes
// are clipped to the cap too, an L1 entry must always expire.
func (t *TieredCache) cappedL1TTL(ttl time.Duration) time.Duration {
	if ttl <= 0 || ttl > t.l1Cap {
		return t.l1Cap
	}
	return ttl
}

// backfill copies an L2 hit into L1 so the next read is local.
func (t *TieredCache) backfill(ctx context.Context, key string, value interface{}) {
	if !t.l1.Set(ctx, key, value, t.cappedL1TTL(t.defaultTTL)) {
		t.logger.Debug("L1 backfill failed",
			logging.Field{Key: "cache", Value: t.name},
			logging.Field{Key: "key", Value: key})
	}
}

func (t *TieredCache) Get(ctx context.Context, key string) (interface{}, bool) {
	var value interface{}
	var hit bool
	_ = t.monitor.Record(t.name, OpGet, key, func() error {
		if key == "" {
			return errors.ValidationError("cache key must not be empty")
		}

		if v, ok := t.l1.Get(ctx, key); ok {
			value = v
			hit = true
			return nil
		}

		v, ok := t.l2.Get(ctx, key)
		if !ok {
			return nil
		}
		t.backfill(ctx, key, v)
		value = v
		hit = true
		return nil
	})

	if hit {
		atomic.AddInt64(&t.hits, 1)
	} else {
		atomic.AddInt64(&t.misses, 1)
	}
	t.monitor.RecordHitMiss(t.name, hit)

	return value, hit
}

func (t *TieredCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) bool {
	ok := false
	_ = t.monitor.Record(t.name, OpSet, key, func() error {
		if key == "" {
			return errors.ValidationError("cache key must not be empty")
		}

		resolved := ttl
		if resolved == 0 {
			resolved = t.defaultTTL
		}

		var l1OK, l2OK bool
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			l1OK = t.l1.Set(gctx, key, value, t.cappedL1TTL(resolved))
			return nil
		})
		g.Go(func() error {
			l2OK = t.l2.Set(gctx, key, value, resolved)
			return nil
		})
		_ = g.Wait()

		ok = l1OK && l2OK
		return nil
	})
	return ok
}

func (t *TieredCache) Del(ctx context.Context, key string) bool {
	existed := false
	_ = t.monitor.Record(t.name, OpDel, key, func() error {
		if key == "" {
			return errors.ValidationError("cache key must not be empty")
		}

		// Both tiers are always asked, a key may live in either one alone.
		l1Existed := t.l1.Del(ctx, key)
		l2Existed := t.l2.Del(ctx, key)
		existed = l1Existed || l2Existed
		return nil
	})
	return existed
}

func (t *TieredCache) Clear(ctx context.Context) bool {
	ok := false
	_ = t.monitor.Record(t.name, OpClear, "", func() error {
		l1OK := t.l1.Clear(ctx)
		l2OK := t.l2.Clear(ctx)
		ok = l1OK && l2OK
		return nil
	})
	return ok
}

// Exists probes both tiers without promoting the entry into L1.
func (t *TieredCache) Exists(ctx context.Context, key string) bool {
	present := false
	_ = t.monitor.Record(t.name, OpExists, key, func() error {
		if key == "" {
			return errors.ValidationError("cache key must not be empty")
		}

		if t.l1.Exists(ctx, key) {
			present = true
			return nil
		}
		present = t.l2.Exists(ctx, key)
		return nil
	})
	return present
}

// ClearL1 empties only the memory tier. Useful when another process has
// invalidated remote entries and the local copies must not outlive them.
func (t *TieredCache) ClearL1(ctx context.Context) bool {
	return t.l1.Clear(ctx)
}

// WarmUp loads keys from the remote tier into the memory tier and returns
// how many entries were warmed.
func (t *TieredCache) WarmUp(ctx context.Context, keys []string) int {
	if len(keys) == 0 {
		return 0
	}

	var values map[string]interface{}
	if mg, ok := t.l2.(MultiGetter); ok {
		values = mg.GetMulti(ctx, keys)
	} else {
		values = make(map[string]interface{}, len(keys))
		for _, key := range keys {
			if v, ok := t.l2.Get(ctx, key); ok {
				values[key] = v
			}
		}
	}

	warmed := 0
	for key, value := range values {
		if t.l1.Set(ctx, key, value, t.cappedL1TTL(t.defaultTTL)) {
			warmed++
		}
	}

	t.logger.Info("Cache warmed",
		logging.Field{Key: "cache", Value: t.name},
		logging.Field{Key: "requested", Value: len(keys)},
		logging.Field{Key: "warmed", Value: warmed})

	return warmed
}

// Stats reports the logical hit accounting of the tiered cache. Size and
// MaxSize mirror the memory tier, both tiers are attached in full under
// Tiers.
func (t *TieredCache) Stats(ctx context.Context) Stats {
	hits := atomic.LoadInt64(&t.hits)
	misses := atomic.LoadInt64(&t.misses)

	l1Stats := t.l1.Stats(ctx)
	l2Stats := t.l2.Stats(ctx)

	return Stats{
		Name:      t.name,
		Size:      l1Stats.Size,
		MaxSize:   l1Stats.MaxSize,
		HitCount:  hits,
		MissCount: misses,
		HitRate:   hitRate(hits, misses),
		Tiers:     []Stats{l1Stats, l2Stats},
	}
}

// Close shuts down both tiers. Tier failures are logged, never surfaced.
func (t *TieredCache) Close() error {
	t.closeOnce.Do(func() {
		if err := t.l1.Close(); err != nil {
			t.logger.Error("Failed to close memory tier", err, logging.Field{Key: "cache", Value: t.name})
		}
		if err := t.l2.Close(); err != nil {
			t.logger.Error("Failed to close remote tier", err, logging.Field{Key: "cache", Value: t.name})
		}
	})
	return nil
}
