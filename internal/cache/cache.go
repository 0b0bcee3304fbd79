// Package cache caches embedding vectors so repeated ingestion and search
// of identical text does not re-hit the embedding provider.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"

	"github.com/concilium-ai/concilium/internal/llm"
	"github.com/concilium-ai/concilium/internal/metrics"
)

// EmbeddingCache stores embedding vectors by key. Implementations are
// best-effort: a failed cache operation is never an error for the caller.
type EmbeddingCache interface {
	Get(ctx context.Context, key string) ([]float64, bool)
	Set(ctx context.Context, key string, embedding []float64)
}

// MemoryCache is a bounded in-process cache.
type MemoryCache struct {
	mu      sync.RWMutex
	cache   map[string][]float64
	maxSize int
}

// NewMemoryCache creates a cache holding at most maxSize entries.
func NewMemoryCache(maxSize int) *MemoryCache {
	if maxSize <= 0 {
		maxSize = 10000
	}
	return &MemoryCache{
		cache:   make(map[string][]float64),
		maxSize: maxSize,
	}
}

// Get implements EmbeddingCache.
func (c *MemoryCache) Get(_ context.Context, key string) ([]float64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	emb, ok := c.cache[key]
	return emb, ok
}

// Set implements EmbeddingCache.
func (c *MemoryCache) Set(_ context.Context, key string, embedding []float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.cache) >= c.maxSize {
		// Evict an arbitrary entry to stay bounded.
		for k := range c.cache {
			delete(c.cache, k)
			break
		}
	}
	c.cache[key] = embedding
}

// Size returns the current number of cached entries.
func (c *MemoryCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.cache)
}

// CachingEmbedder wraps an Embedder with a cache. It implements
// llm.Embedder and is transparent to callers.
type CachingEmbedder struct {
	embedder llm.Embedder
	cache    EmbeddingCache
}

// NewCachingEmbedder wraps embedder with cache.
func NewCachingEmbedder(embedder llm.Embedder, cache EmbeddingCache) *CachingEmbedder {
	return &CachingEmbedder{embedder: embedder, cache: cache}
}

// Embed implements llm.Embedder.
func (e *CachingEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	key := cacheKey(text)

	if cached, ok := e.cache.Get(ctx, key); ok {
		metrics.EmbeddingCacheHits.WithLabelValues("hit").Inc()
		return cached, nil
	}
	metrics.EmbeddingCacheHits.WithLabelValues("miss").Inc()

	embedding, err := e.embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	e.cache.Set(ctx, key, embedding)
	return embedding, nil
}

func cacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return "emb:" + hex.EncodeToString(sum[:])
}
