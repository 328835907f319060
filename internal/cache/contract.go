package cache

import (
	"context"
	"time"
)

const (
	// DefaultL1TTLCap bounds the TTL of any entry written into the memory
	// tier of a TieredCache, including L2 backfills.
	DefaultL1TTLCap = 5 * time.Minute

	// DefaultSweepInterval is how often MemoryStore removes expired entries
	// that were never read again.
	DefaultSweepInterval = time.Minute

	// DefaultMaxEntries is the soft cap reported by MemoryStore when no
	// explicit cap is configured. It is advisory and never enforced.
	DefaultMaxEntries = 10000

	// capacityWarnBytes is the serialized size above which RemoteStore logs
	// a warning before writing. The write still proceeds.
	capacityWarnBytes = 1 << 20
)

// Store is the contract every cache implementation satisfies.
//
// Implementations absorb their own failures: Get reports a miss, Set, Del,
// Clear and Exists report false, and the underlying error is logged and
// recorded by the Monitor. Callers can treat every store as infallible and
// merely slow or empty. The only misuse that is reported eagerly is an empty
// key, which is logged as a validation error.
//
// TTL semantics are shared by all implementations: a zero ttl selects the
// store's configured default, and a negative ttl stores the entry without
// expiry.
type Store interface {
	// Get returns the cached value for key and whether it was present.
	Get(ctx context.Context, key string) (interface{}, bool)

	// Set stores value under key and reports whether the write succeeded.
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) bool

	// Del removes key and reports whether an entry existed.
	Del(ctx context.Context, key string) bool

	// Clear removes every entry belonging to this store.
	Clear(ctx context.Context) bool

	// Exists reports whether key is present without touching access
	// metadata or promoting the entry between tiers.
	Exists(ctx context.Context, key string) bool

	// Stats returns a point-in-time snapshot of the store's counters.
	Stats(ctx context.Context) Stats

	// Close releases the store's resources. It is idempotent and never
	// returns an error for a second call.
	Close() error
}

// MultiGetter is implemented by stores that can fetch a batch of keys in a
// single round trip. TieredCache uses it to warm the memory tier.
type MultiGetter interface {
	// GetMulti returns the subset of keys that were found. A key that is
	// missing or fails to decode is absent from the result.
	GetMulti(ctx context.Context, keys []string) map[string]interface{}
}

// Stats is a snapshot of a store's state and local hit accounting. The
// counters here belong to the store instance; the Monitor keeps its own
// aggregated metrics across all instances.
type Stats struct {
	Name             string      `json:"name"`
	Size             int         `json:"size"`
	MaxSize          int         `json:"max_size,omitempty"`
	HitCount         int64       `json:"hit_count"`
	MissCount        int64       `json:"miss_count"`
	HitRate          float64     `json:"hit_rate"`
	MemoryUsageBytes int64       `json:"memory_usage_bytes,omitempty"`
	Server           *ServerInfo `json:"server,omitempty"`
	Tiers            []Stats     `json:"tiers,omitempty"`
}

// ServerInfo carries fields parsed from the Redis INFO command. It is kept
// separate from the local counters in Stats because the server-side numbers
// cover every client of the Redis instance, not just this process.
type ServerInfo struct {
	Version          string `json:"version,omitempty"`
	ConnectedClients int64  `json:"connected_clients"`
	UsedMemoryBytes  int64  `json:"used_memory_bytes"`
	UptimeSeconds    int64  `json:"uptime_seconds"`
	KeyspaceHits     int64  `json:"keyspace_hits"`
	KeyspaceMisses   int64  `json:"keyspace_misses"`
	Keys             int64  `json:"keys"`
}

// hitRate derives a rate from hit and miss tallies, returning 0 when no
// lookups have happened yet.
func hitRate(hits, misses int64) float64 {
	total := hits + misses
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}
