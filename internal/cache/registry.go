package cache

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"codeatlas/internal/common/logging"
	"codeatlas/internal/config"
	"codeatlas/internal/redis"
)

// canaryTTL keeps health-check entries from lingering when a Del is lost.
const canaryTTL = 10 * time.Second

// InstanceHealth is the result of probing one cache instance.
type InstanceHealth struct {
	Healthy bool   `json:"healthy"`
	Detail  string `json:"detail,omitempty"`
}

// Registry creates and owns every named cache instance in the process. The
// topology of a new instance follows configuration:
//
//   - remote enabled and multi-level: TieredCache over memory and Redis
//   - remote enabled, single level: RemoteStore only
//   - remote disabled or no client: MemoryStore only
//
// A nil client downgrades remote topologies to memory-only, so a process
// that starts while Redis is down still caches locally.
type Registry struct {
	mu     sync.Mutex
	stores map[string]Store

	cfg     config.CacheConfig
	client  *redis.Client
	monitor *Monitor
	logger  logging.Logger
}

// NewRegistry creates an empty registry. client may be nil.
func NewRegistry(cfg config.CacheConfig, client *redis.Client, monitor *Monitor, logger logging.Logger) *Registry {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &Registry{
		stores:  make(map[string]Store),
		cfg:     cfg,
		client:  client,
		monitor: monitor,
		logger:  logger,
	}
}

// GetOrCreate returns the instance registered under name, creating it on
// first use. Every later call with the same name returns the same instance
// regardless of defaultTTL.
func (r *Registry) GetOrCreate(name string, defaultTTL time.Duration) Store {
	r.mu.Lock()
	defer r.mu.Unlock()

	if store, ok := r.stores[name]; ok {
		return store
	}

	store := r.build(name, defaultTTL)
	r.stores[name] = store
	return store
}

func (r *Registry) build(name string, defaultTTL time.Duration) Store {
	remoteAvailable := r.cfg.Enabled && r.client != nil

	var store Store
	var topology string

	switch {
	case remoteAvailable && r.cfg.UseMultiLevel:
		l1 := NewMemoryStore(MemoryConfig{
			Name:          name + ":l1",
			DefaultTTL:    r.cfg.Memory.TTL,
			MaxEntries:    r.cfg.Memory.MaxSize,
			SweepInterval: r.cfg.Memory.CleanupInterval,
		}, r.monitor, r.logger)
		l2 := NewRemoteStore(RemoteConfig{
			Name:       name + ":l2",
			Prefix:     name,
			DefaultTTL: defaultTTL,
		}, r.client, r.monitor, r.logger)
		store = NewTieredCache(TieredConfig{
			Name:       name,
			DefaultTTL: defaultTTL,
		}, l1, l2, r.monitor, r.logger)
		topology = "tiered"

	case remoteAvailable:
		store = NewRemoteStore(RemoteConfig{
			Name:       name,
			DefaultTTL: defaultTTL,
		}, r.client, r.monitor, r.logger)
		topology = "remote"

	default:
		store = NewMemoryStore(MemoryConfig{
			Name:          name,
			DefaultTTL:    defaultTTL,
			MaxEntries:    r.cfg.Memory.MaxSize,
			SweepInterval: r.cfg.Memory.CleanupInterval,
		}, r.monitor, r.logger)
		topology = "memory"
	}

	r.logger.Info("Cache instance created",
		logging.Field{Key: "name", Value: name},
		logging.Field{Key: "topology", Value: topology},
		logging.Field{Key: "default_ttl", Value: defaultTTL.String()})

	return store
}

// Get returns a registered instance without creating one.
func (r *Registry) Get(name string) (Store, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	store, ok := r.stores[name]
	return store, ok
}

// Names lists registered instances in sorted order.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.stores))
	for name := range r.stores {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Remove closes and forgets one instance.
func (r *Registry) Remove(name string) bool {
	r.mu.Lock()
	store, ok := r.stores[name]
	if ok {
		delete(r.stores, name)
	}
	r.mu.Unlock()

	if !ok {
		return false
	}

	if err := store.Close(); err != nil {
		r.logger.Error("Failed to close cache instance", err, logging.Field{Key: "name", Value: name})
	}
	r.logger.Info("Cache instance removed", logging.Field{Key: "name", Value: name})
	return true
}

// ClearAll clears every registered instance and reports whether all of them
// succeeded.
func (r *Registry) ClearAll(ctx context.Context) bool {
	ok := true
	for _, store := range r.snapshot() {
		if !store.Clear(ctx) {
			ok = false
		}
	}
	return ok
}

// CloseAll closes every registered instance and empties the registry. The
// first close error is returned after all instances have been attempted.
func (r *Registry) CloseAll() error {
	r.mu.Lock()
	stores := r.stores
	r.stores = make(map[string]Store)
	r.mu.Unlock()

	var firstErr error
	for name, store := range stores {
		if err := store.Close(); err != nil {
			r.logger.Error("Failed to close cache instance", err, logging.Field{Key: "name", Value: name})
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// HealthCheck writes a unique canary through every instance and reads it
// back. The registry lock is not held during the probes.
func (r *Registry) HealthCheck(ctx context.Context) map[string]InstanceHealth {
	stores := r.snapshot()

	results := make(map[string]InstanceHealth, len(stores))
	for name, store := range stores {
		results[name] = checkInstance(ctx, store)
	}
	return results
}

func (r *Registry) snapshot() map[string]Store {
	r.mu.Lock()
	defer r.mu.Unlock()

	stores := make(map[string]Store, len(r.stores))
	for name, store := range r.stores {
		stores[name] = store
	}
	return stores
}

func checkInstance(ctx context.Context, store Store) InstanceHealth {
	token := uuid.New().String()
	key := "healthcheck:" + token

	if !store.Set(ctx, key, token, canaryTTL) {
		return InstanceHealth{Detail: "canary write failed"}
	}

	value, found := store.Get(ctx, key)
	store.Del(ctx, key)

	if !found {
		return InstanceHealth{Detail: "canary read missed"}
	}
	if got, ok := value.(string); !ok || got != token {
		return InstanceHealth{Detail: "canary value mismatch"}
	}
	return InstanceHealth{Healthy: true}
}
