package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"codeatlas/internal/common/errors"
	"codeatlas/internal/common/logging"
)

// MemoryConfig configures a MemoryStore.
type MemoryConfig struct {
	Name string

	// DefaultTTL applies when Set is called with a zero ttl. A value <= 0
	// makes defaulted entries live until deleted.
	DefaultTTL time.Duration

	// MaxEntries is the advisory size cap reported through Stats and logged
	// by the sweeper when exceeded. Writes are never rejected.
	MaxEntries int

	// SweepInterval is how often expired entries are removed in the
	// background. Zero selects DefaultSweepInterval.
	SweepInterval time.Duration
}

type memoryEntry struct {
	value          interface{}
	expiresAt      time.Time
	lastAccessedAt time.Time
}

// expired reports whether the entry is past its expiry. A zero expiresAt
// means the entry never expires.
func (e *memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// MemoryStore is an in-process cache over a plain map. Expired entries are
// dropped lazily when read and by a background sweeper, so the map never
// holds logically dead data for longer than one sweep interval.
type MemoryStore struct {
	name       string
	defaultTTL time.Duration
	maxEntries int

	mu      sync.RWMutex
	entries map[string]*memoryEntry

	hits   int64
	misses int64

	monitor *Monitor
	logger  logging.Logger

	closed    atomic.Bool
	closeOnce sync.Once
	stop      chan struct{}
	done      chan struct{}
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates a memory store and starts its sweeper.
func NewMemoryStore(cfg MemoryConfig, monitor *Monitor, logger logging.Logger) *MemoryStore {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = DefaultMaxEntries
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = DefaultSweepInterval
	}

	s := &MemoryStore{
		name:       cfg.Name,
		defaultTTL: cfg.DefaultTTL,
		maxEntries: cfg.MaxEntries,
		entries:    make(map[string]*memoryEntry),
		monitor:    monitor,
		logger:     logger,
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}

	go s.sweepLoop(cfg.SweepInterval)

	return s
}

func (s *MemoryStore) Get(ctx context.Context, key string) (interface{}, bool) {
	if s.closed.Load() {
		return nil, false
	}

	var value interface{}
	var found bool
	_ = s.monitor.Record(s.name, OpGet, key, func() error {
		if key == "" {
			return errors.ValidationError("cache key must not be empty")
		}

		now := time.Now()
		s.mu.Lock()
		entry, ok := s.entries[key]
		if ok && entry.expired(now) {
			delete(s.entries, key)
			ok = false
		}
		if ok {
			entry.lastAccessedAt = now
			value = entry.value
			found = true
		}
		s.mu.Unlock()
		return nil
	})

	if found {
		atomic.AddInt64(&s.hits, 1)
	} else {
		atomic.AddInt64(&s.misses, 1)
	}
	s.monitor.RecordHitMiss(s.name, found)

	return value, found
}

func (s *MemoryStore) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) bool {
	if s.closed.Load() {
		return false
	}

	ok := false
	_ = s.monitor.Record(s.name, OpSet, key, func() error {
		if key == "" {
			return errors.ValidationError("cache key must not be empty")
		}

		resolved := ttl
		if resolved == 0 {
			resolved = s.defaultTTL
		}

		now := time.Now()
		entry := &memoryEntry{value: value, lastAccessedAt: now}
		if resolved > 0 {
			entry.expiresAt = now.Add(resolved)
		}

		s.mu.Lock()
		s.entries[key] = entry
		s.mu.Unlock()

		ok = true
		return nil
	})
	return ok
}

func (s *MemoryStore) Del(ctx context.Context, key string) bool {
	if s.closed.Load() {
		return false
	}

	existed := false
	_ = s.monitor.Record(s.name, OpDel, key, func() error {
		if key == "" {
			return errors.ValidationError("cache key must not be empty")
		}

		now := time.Now()
		s.mu.Lock()
		entry, ok := s.entries[key]
		if ok {
			delete(s.entries, key)
			existed = !entry.expired(now)
		}
		s.mu.Unlock()
		return nil
	})
	return existed
}

func (s *MemoryStore) Clear(ctx context.Context) bool {
	if s.closed.Load() {
		return true
	}

	_ = s.monitor.Record(s.name, OpClear, "", func() error {
		s.mu.Lock()
		removed := len(s.entries)
		s.entries = make(map[string]*memoryEntry)
		s.mu.Unlock()

		s.logger.Debug("Memory cache cleared",
			logging.Field{Key: "cache", Value: s.name},
			logging.Field{Key: "removed", Value: removed})
		return nil
	})
	return true
}

func (s *MemoryStore) Exists(ctx context.Context, key string) bool {
	if s.closed.Load() {
		return false
	}

	present := false
	_ = s.monitor.Record(s.name, OpExists, key, func() error {
		if key == "" {
			return errors.ValidationError("cache key must not be empty")
		}

		// Unlike Get this leaves lastAccessedAt untouched, so probing for
		// presence does not keep an entry warm.
		now := time.Now()
		s.mu.Lock()
		entry, ok := s.entries[key]
		if ok && entry.expired(now) {
			delete(s.entries, key)
			ok = false
		}
		s.mu.Unlock()

		present = ok
		return nil
	})
	return present
}

func (s *MemoryStore) Stats(ctx context.Context) Stats {
	s.mu.RLock()
	size := len(s.entries)
	s.mu.RUnlock()

	hits := atomic.LoadInt64(&s.hits)
	misses := atomic.LoadInt64(&s.misses)

	return Stats{
		Name:      s.name,
		Size:      size,
		MaxSize:   s.maxEntries,
		HitCount:  hits,
		MissCount: misses,
		HitRate:   hitRate(hits, misses),
	}
}

// Close stops the sweeper and drops every entry. Subsequent operations
// behave as misses.
func (s *MemoryStore) Close() error {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		close(s.stop)
		<-s.done

		s.mu.Lock()
		s.entries = make(map[string]*memoryEntry)
		s.mu.Unlock()

		s.logger.Debug("Memory cache closed", logging.Field{Key: "cache", Value: s.name})
	})
	return nil
}

func (s *MemoryStore) sweepLoop(interval time.Duration) {
	defer close(s.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

// sweep removes entries that expired without being read again. Candidates
// are collected under a read lock first so the write lock is only held for
// the deletes.
func (s *MemoryStore) sweep() {
	now := time.Now()

	s.mu.RLock()
	var stale []string
	for key, entry := range s.entries {
		if entry.expired(now) {
			stale = append(stale, key)
		}
	}
	size := len(s.entries)
	s.mu.RUnlock()

	removed := 0
	if len(stale) > 0 {
		s.mu.Lock()
		for _, key := range stale {
			if entry, ok := s.entries[key]; ok && entry.expired(now) {
				delete(s.entries, key)
				removed++
			}
		}
		s.mu.Unlock()
	}

	if removed > 0 {
		s.logger.Debug("Swept expired cache entries",
			logging.Field{Key: "cache", Value: s.name},
			logging.Field{Key: "removed", Value: removed})
	}
	if size-removed > s.maxEntries {
		s.logger.Warn("Memory cache size above configured cap",
			logging.Field{Key: "cache", Value: s.name},
			logging.Field{Key: "size", Value: size - removed},
			logging.Field{Key: "max_size", Value: s.maxEntries})
	}
}
