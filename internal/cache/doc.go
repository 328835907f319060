// Package cache implements the multi-tier caching layer used by the
// indexing and search services.
//
// This package builds on:
//   - codeatlas/internal/redis for the circuit-broken Redis client
//   - github.com/prometheus/client_golang for operation metrics
//   - golang.org/x/sync/errgroup for concurrent tier writes
//
// It provides three store implementations behind a single Store interface:
//
// 1. MemoryStore - in-process map with TTL expiry
//   - Lazy expiry on read plus a periodic sweep
//   - Soft size cap, reported through stats
//   - No serialization, values are stored as-is
//
// 2. RemoteStore - shared Redis-backed store
//   - JSON serialization at the store boundary
//   - Name-prefixed keys so instances can be cleared independently
//   - Degrades to empty results when Redis is unavailable
//
// 3. TieredCache - MemoryStore in front of RemoteStore
//   - L1 hit short-circuits without touching Redis
//   - L2 hits are backfilled into L1 with a capped TTL
//   - Writes go to both tiers concurrently
//
// Stores are created through the Registry, which picks the topology from
// configuration, and resolved by purpose through the Provider:
//
//	registry := cache.NewRegistry(cfg.Cache, client, monitor, logger)
//	provider := cache.NewProvider(registry, cfg.Cache.TTL)
//
//	search := provider.SearchCache()
//	search.Set(ctx, "query:abc", results, 0)
//	val, found := search.Get(ctx, "query:abc")
//
// Every store absorbs backend failures: reads return misses, writes return
// false, and the error is logged and counted by the Monitor instead of being
// surfaced to the caller.
package cache
