package index

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"codeatlas/internal/cache"
)

// SearchQuery captures everything that distinguishes one search from
// another. Two queries with equal fields share a cache entry.
type SearchQuery struct {
	Query   string            `json:"query"`
	Filters map[string]string `json:"filters,omitempty"`
	Limit   int               `json:"limit"`
	Offset  int               `json:"offset"`
}

// SearchHit is one scored result row.
type SearchHit struct {
	Path    string  `json:"path"`
	Score   float64 `json:"score"`
	Snippet string  `json:"snippet,omitempty"`
}

// SearchResults is the memoized page for a query.
type SearchResults struct {
	Total int         `json:"total"`
	Hits  []SearchHit `json:"hits"`
}

// SearchCache memoizes search result pages keyed by a fingerprint of the
// full query.
type SearchCache struct {
	provider *cache.Provider
}

func NewSearchCache(provider *cache.Provider) *SearchCache {
	return &SearchCache{provider: provider}
}

// Fingerprint returns the stable cache key for a query. Map keys marshal
// in sorted order, so equal filter sets produce equal fingerprints.
func (q SearchQuery) Fingerprint() string {
	raw, err := json.Marshal(q)
	if err != nil {
		return q.Query
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

// Get returns the cached result page for the query.
func (c *SearchCache) Get(ctx context.Context, q SearchQuery) (SearchResults, bool) {
	return cache.GetTyped[SearchResults](ctx, c.provider.SearchCache(), q.Fingerprint())
}

// Put memoizes a computed result page under the search TTL policy.
func (c *SearchCache) Put(ctx context.Context, q SearchQuery, results SearchResults) bool {
	return cache.SetTyped(ctx, c.provider.SearchCache(), q.Fingerprint(), results, 0)
}

// Invalidate drops the cached page for one query.
func (c *SearchCache) Invalidate(ctx context.Context, q SearchQuery) bool {
	return c.provider.SearchCache().Del(ctx, q.Fingerprint())
}
