package index

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	"codeatlas/internal/cache"
)

// EmbeddingCache memoizes embedding vectors per model. Keys are derived
// from the content hash, so identical snippets share one entry regardless
// of which file they came from.
type EmbeddingCache struct {
	provider *cache.Provider
}

func NewEmbeddingCache(provider *cache.Provider) *EmbeddingCache {
	return &EmbeddingCache{provider: provider}
}

// embeddingKey is "<model>:<sha256(content)>". The model is part of the key
// because the same content embeds differently across models.
func embeddingKey(model, content string) string {
	sum := sha256.Sum256([]byte(content))
	return model + ":" + hex.EncodeToString(sum[:])
}

// Get returns the cached vector for content under the given model.
func (c *EmbeddingCache) Get(ctx context.Context, model, content string) ([]float64, bool) {
	return cache.GetTyped[[]float64](ctx, c.provider.EmbeddingCache(), embeddingKey(model, content))
}

// Put stores a computed vector under the embedding TTL policy.
func (c *EmbeddingCache) Put(ctx context.Context, model, content string, vector []float64) bool {
	return cache.SetTyped(ctx, c.provider.EmbeddingCache(), embeddingKey(model, content), vector, 0)
}

// Invalidate drops one cached vector.
func (c *EmbeddingCache) Invalidate(ctx context.Context, model, content string) bool {
	return c.provider.EmbeddingCache().Del(ctx, embeddingKey(model, content))
}
