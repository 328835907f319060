package index

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	"codeatlas/internal/cache"
)

// GraphNode is one code entity in a dependency graph result.
type GraphNode struct {
	ID    string `json:"id"`
	Kind  string `json:"kind"`
	Label string `json:"label,omitempty"`
}

// GraphEdge is one relation between two nodes.
type GraphEdge struct {
	From string `json:"from"`
	To   string `json:"to"`
	Kind string `json:"kind"`
}

// GraphResult is a cached graph query answer.
type GraphResult struct {
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
}

// GraphCache memoizes graph query results and tracks which nodes each
// result touched, so a node change can drop every query it influenced.
// Invalidation is best effort: a lost index entry leaves the stale result
// to age out through its TTL.
type GraphCache struct {
	provider *cache.Provider
}

func NewGraphCache(provider *cache.Provider) *GraphCache {
	return &GraphCache{provider: provider}
}

func graphQueryKey(query string) string {
	sum := sha256.Sum256([]byte(query))
	return "query:" + hex.EncodeToString(sum[:])
}

func graphNodeKey(nodeID string) string {
	return "node:" + nodeID
}

// Get returns the cached result for a query.
func (c *GraphCache) Get(ctx context.Context, query string) (GraphResult, bool) {
	return cache.GetTyped[GraphResult](ctx, c.provider.GraphCache(), graphQueryKey(query))
}

// Put stores a query result and registers it under every node it touched.
func (c *GraphCache) Put(ctx context.Context, query string, nodes []string, result GraphResult) bool {
	store := c.provider.GraphCache()
	queryKey := graphQueryKey(query)

	if !cache.SetTyped(ctx, store, queryKey, result, 0) {
		return false
	}

	for _, nodeID := range nodes {
		indexKey := graphNodeKey(nodeID)
		queries, _ := cache.GetTyped[[]string](ctx, store, indexKey)
		if !contains(queries, queryKey) {
			cache.SetTyped(ctx, store, indexKey, append(queries, queryKey), 0)
		}
	}
	return true
}

// InvalidateNode drops every cached query result known to involve the node
// and returns how many were dropped.
func (c *GraphCache) InvalidateNode(ctx context.Context, nodeID string) int {
	store := c.provider.GraphCache()
	indexKey := graphNodeKey(nodeID)

	queries, ok := cache.GetTyped[[]string](ctx, store, indexKey)
	if !ok {
		return 0
	}

	dropped := 0
	for _, queryKey := range queries {
		if store.Del(ctx, queryKey) {
			dropped++
		}
	}
	store.Del(ctx, indexKey)
	return dropped
}

func contains(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}
