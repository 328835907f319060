package cache

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"codeatlas/internal/common/errors"
	"codeatlas/internal/common/logging"
	"codeatlas/internal/redis"
)

// RemoteConfig configures a RemoteStore.
type RemoteConfig struct {
	// Name is the identity used for monitoring. Inside a TieredCache the
	// remote tier is named "<cache>:l2" while its keys stay under the
	// logical prefix.
	Name string

	// Prefix namespaces every key in Redis as "<prefix>:<key>". Defaults to
	// Name.
	Prefix string

	// DefaultTTL applies when Set is called with a zero ttl.
	DefaultTTL time.Duration
}

// RemoteStore is a Redis-backed cache. Values cross the boundary as JSON, so
// anything json.Marshal accepts can be stored and reads come back as generic
// JSON shapes. Entries that fail to decode are deleted on sight so one
// corrupt write cannot poison every later read of that key.
//
// The store shares the process-wide redis.Client and never closes it; Close
// only detaches this store.
type RemoteStore struct {
	name       string
	prefix     string
	defaultTTL time.Duration

	client  *redis.Client
	monitor *Monitor
	logger  logging.Logger

	hits   int64
	misses int64

	closed atomic.Bool
}

var _ Store = (*RemoteStore)(nil)
var _ MultiGetter = (*RemoteStore)(nil)

// NewRemoteStore creates a Redis-backed store on top of a shared client.
func NewRemoteStore(cfg RemoteConfig, client *redis.Client, monitor *Monitor, logger logging.Logger) *RemoteStore {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = cfg.Name
	}

	return &RemoteStore{
		name:       cfg.Name,
		prefix:     prefix,
		defaultTTL: cfg.DefaultTTL,
		client:     client,
		monitor:    monitor,
		logger:     logger,
	}
}

func (s *RemoteStore) key(key string) string {
	return s.prefix + ":" + key
}

func (s *RemoteStore) resolveTTL(ttl time.Duration) time.Duration {
	if ttl == 0 {
		return s.defaultTTL
	}
	return ttl
}

// healCorrupt removes an entry whose payload no longer decodes.
func (s *RemoteStore) healCorrupt(ctx context.Context, key string, cause error) {
	s.logger.Warn("Removing corrupt cache entry",
		logging.Field{Key: "cache", Value: s.name},
		logging.Field{Key: "key", Value: key},
		logging.Field{Key: "cause", Value: cause.Error()})
	if _, err := s.client.Del(ctx, s.key(key)); err != nil {
		s.logger.Debug("Failed to remove corrupt cache entry",
			logging.Field{Key: "cache", Value: s.name},
			logging.Field{Key: "key", Value: key},
			logging.Field{Key: "error", Value: err.Error()})
	}
}

func (s *RemoteStore) Get(ctx context.Context, key string) (interface{}, bool) {
	var value interface{}
	var found bool
	_ = s.monitor.Record(s.name, OpGet, key, func() error {
		if s.closed.Load() {
			return errors.ConnectionError("remote cache store is closed", nil)
		}
		if key == "" {
			return errors.ValidationError("cache key must not be empty")
		}

		raw, ok, err := s.client.Get(ctx, s.key(key))
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}

		var decoded interface{}
		if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
			s.healCorrupt(ctx, key, err)
			return errors.SerializationError(key, err)
		}

		value = decoded
		found = true
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

// GetMulti fetches keys in one pipelined round trip. A key that is missing
// or fails to decode is simply absent from the result; only a transport
// failure empties the whole batch.
func (s *RemoteStore) GetMulti(ctx context.Context, keys []string) map[string]interface{} {
	out := make(map[string]interface{}, len(keys))
	if len(keys) == 0 {
		return out
	}

	_ = s.monitor.Record(s.name, OpGet, "", func() error {
		if s.closed.Load() {
			return errors.ConnectionError("remote cache store is closed", nil)
		}

		prefixed := make([]string, len(keys))
		for i, k := range keys {
			prefixed[i] = s.key(k)
		}

		raw, err := s.client.PipelinedGet(ctx, prefixed)
		if err != nil {
			return err
		}

		for i, k := range keys {
			data, ok := raw[prefixed[i]]
			if !ok {
				continue
			}
			var decoded interface{}
			if err := json.Unmarshal([]byte(data), &decoded); err != nil {
				s.healCorrupt(ctx, k, err)
				continue
			}
			out[k] = decoded
		}
		return nil
	})

	hits := int64(len(out))
	atomic.AddInt64(&s.hits, hits)
	atomic.AddInt64(&s.misses, int64(len(keys))-hits)

	return out
}

func (s *RemoteStore) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) bool {
	ok := false
	_ = s.monitor.Record(s.name, OpSet, key, func() error {
		if s.closed.Load() {
			return errors.ConnectionError("remote cache store is closed", nil)
		}
		if key == "" {
			return errors.ValidationError("cache key must not be empty")
		}

		data, err := json.Marshal(value)
		if err != nil {
			return errors.SerializationError(key, err)
		}
		if len(data) > capacityWarnBytes {
			s.logger.Warn("Cache value exceeds capacity threshold",
				logging.Field{Key: "cache", Value: s.name},
				logging.Field{Key: "key", Value: key},
				logging.Field{Key: "size_bytes", Value: len(data)})
		}

		if err := s.client.Set(ctx, s.key(key), string(data), s.resolveTTL(ttl)); err != nil {
			return err
		}
		ok = true
		return nil
	})
	return ok
}

func (s *RemoteStore) Del(ctx context.Context, key string) bool {
	existed := false
	_ = s.monitor.Record(s.name, OpDel, key, func() error {
		if s.closed.Load() {
			return errors.ConnectionError("remote cache store is closed", nil)
		}
		if key == "" {
			return errors.ValidationError("cache key must not be empty")
		}

		removed, err := s.client.Del(ctx, s.key(key))
		if err != nil {
			return err
		}
		existed = removed > 0
		return nil
	})
	return existed
}

// Clear removes every key under this store's prefix. KEYS is tried first,
// on failure the operation falls back to a cursor SCAN so that a partially
// degraded server can still be cleared.
func (s *RemoteStore) Clear(ctx context.Context) bool {
	ok := false
	_ = s.monitor.Record(s.name, OpClear, "", func() error {
		if s.closed.Load() {
			return errors.ConnectionError("remote cache store is closed", nil)
		}

		pattern := s.prefix + ":*"

		keys, err := s.client.Keys(ctx, pattern)
		if err == nil {
			if len(keys) > 0 {
				if _, err := s.client.Del(ctx, keys...); err != nil {
					return err
				}
			}
			ok = true
			return nil
		}

		s.logger.Warn("KEYS lookup failed, clearing via SCAN",
			logging.Field{Key: "cache", Value: s.name},
			logging.Field{Key: "error", Value: err.Error()})

		var cursor uint64
		for {
			batch, next, err := s.client.Scan(ctx, cursor, pattern, 100)
			if err != nil {
				return err
			}
			if len(batch) > 0 {
				if _, err := s.client.Del(ctx, batch...); err != nil {
					return err
				}
			}
			if next == 0 {
				break
			}
			cursor = next
		}
		ok = true
		return nil
	})
	return ok
}

func (s *RemoteStore) Exists(ctx context.Context, key string) bool {
	present := false
	_ = s.monitor.Record(s.name, OpExists, key, func() error {
		if s.closed.Load() {
			return errors.ConnectionError("remote cache store is closed", nil)
		}
		if key == "" {
			return errors.ValidationError("cache key must not be empty")
		}

		found, err := s.client.Exists(ctx, s.key(key))
		if err != nil {
			return err
		}
		present = found
		return nil
	})
	return present
}

// Stats combines this store's own hit accounting with server-side numbers
// from INFO. Size covers the whole backing database, not only this prefix,
// because counting prefixed keys would require a full scan. A server that
// cannot answer INFO still yields the local counters.
func (s *RemoteStore) Stats(ctx context.Context) Stats {
	hits := atomic.LoadInt64(&s.hits)
	misses := atomic.LoadInt64(&s.misses)

	stats := Stats{
		Name:      s.name,
		HitCount:  hits,
		MissCount: misses,
		HitRate:   hitRate(hits, misses),
	}
	if s.closed.Load() {
		return stats
	}

	if size, err := s.client.DBSize(ctx); err == nil {
		stats.Size = int(size)
	} else {
		s.logger.Debug("DBSIZE unavailable for cache stats",
			logging.Field{Key: "cache", Value: s.name},
			logging.Field{Key: "error", Value: err.Error()})
	}

	if raw, err := s.client.Info(ctx); err == nil {
		stats.Server = parseServerInfo(raw)
		if stats.Server != nil {
			stats.MemoryUsageBytes = stats.Server.UsedMemoryBytes
		}
	} else {
		s.logger.Debug("INFO unavailable for cache stats",
			logging.Field{Key: "cache", Value: s.name},
			logging.Field{Key: "error", Value: err.Error()})
	}

	return stats
}

// Close detaches the store. The shared Redis client stays open for other
// stores and is shut down by whoever created it.
func (s *RemoteStore) Close() error {
	if s.closed.CompareAndSwap(false, true) {
		s.logger.Debug("Remote cache store closed", logging.Field{Key: "cache", Value: s.name})
	}
	return nil
}

// parseServerInfo extracts the fields this package cares about from INFO
// output. Unknown lines are skipped so the parser keeps working across
// server versions.
func parseServerInfo(raw string) *ServerInfo {
	info := &ServerInfo{}
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, ":", 2)
		if len(parts) != 2 {
			continue
		}
		field, value := parts[0], parts[1]

		switch field {
		case "redis_version":
			info.Version = value
		case "connected_clients":
			info.ConnectedClients = parseInfoInt(value)
		case "used_memory":
			info.UsedMemoryBytes = parseInfoInt(value)
		case "uptime_in_seconds":
			info.UptimeSeconds = parseInfoInt(value)
		case "keyspace_hits":
			info.KeyspaceHits = parseInfoInt(value)
		case "keyspace_misses":
			info.KeyspaceMisses = parseInfoInt(value)
		default:
			// Keyspace section lines look like "db0:keys=5,expires=1,avg_ttl=0".
			if strings.HasPrefix(field, "db") {
				for _, kv := range strings.Split(value, ",") {
					if strings.HasPrefix(kv, "keys=") {
						info.Keys += parseInfoInt(strings.TrimPrefix(kv, "keys="))
					}
				}
			}
		}
	}
	return info
}

func parseInfoInt(value string) int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil {
		return 0
	}
	return n
}
