package cache

import (
	"sync"

	"codeatlas/internal/config"
)

// Purpose-named cache instances. Every consumer resolves its cache through
// these names so TTL policy stays in one place.
const (
	EmbeddingCacheName = "embedding"
	SearchCacheName    = "search"
	GraphCacheName     = "graph"
	ProgressCacheName  = "progress"
)

// Provider hands out the well-known cache instances used by the indexing
// and search services. Instances are resolved from the registry on first
// use and pinned for the life of the process.
type Provider struct {
	registry *Registry
	ttls     config.TTLConfig

	mu        sync.Mutex
	embedding Store
	search    Store
	graph     Store
	progress  Store
}

// NewProvider creates a provider over registry with the configured TTL
// policy.
func NewProvider(registry *Registry, ttls config.TTLConfig) *Provider {
	return &Provider{
		registry: registry,
		ttls:     ttls,
	}
}

// EmbeddingCache returns the cache for computed embedding vectors.
func (p *Provider) EmbeddingCache() Store {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.embedding == nil {
		p.embedding = p.registry.GetOrCreate(EmbeddingCacheName, p.ttls.Embedding)
	}
	return p.embedding
}

// SearchCache returns the cache for search result pages.
func (p *Provider) SearchCache() Store {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.search == nil {
		p.search = p.registry.GetOrCreate(SearchCacheName, p.ttls.Search)
	}
	return p.search
}

// GraphCache returns the cache for code graph traversals.
func (p *Provider) GraphCache() Store {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.graph == nil {
		p.graph = p.registry.GetOrCreate(GraphCacheName, p.ttls.Graph)
	}
	return p.graph
}

// ProgressCache returns the cache tracking long-running indexing jobs.
func (p *Provider) ProgressCache() Store {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.progress == nil {
		p.progress = p.registry.GetOrCreate(ProgressCacheName, p.ttls.Progress)
	}
	return p.progress
}
