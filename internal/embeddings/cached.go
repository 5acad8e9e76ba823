package embeddings

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"billing-rag/internal/cache"
)

// CachedEmbedder serves repeated texts from a cache. Cache failures are logged, never returned.
type CachedEmbedder struct {
	next  Embedder
	cache cache.Cache
	model string
	ttl   time.Duration
	log   *slog.Logger
}

// NewCachedEmbedder wraps next with c; model namespaces the keys.
func NewCachedEmbedder(next Embedder, c cache.Cache, model string, ttl time.Duration, log *slog.Logger) *CachedEmbedder {
	return &CachedEmbedder{next: next, cache: c, model: model, ttl: ttl, log: log}
}

func (e *CachedEmbedder) Embed(ctx context.Context, text string) (Vector, error) {
	key := cache.EmbeddingKey(e.model, text)
	if vec, err := e.cache.GetEmbedding(ctx, key); err != nil {
		e.log.Warn("embedding cache read failed", "err", err)
	} else if vec != nil {
		e.log.Debug("embedding cache hit")
		return Vector(vec), nil
	}

	vec, err := e.next.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if err := e.cache.SetEmbedding(ctx, key, vec, e.ttl); err != nil {
		e.log.Warn("embedding cache write failed", "err", err)
	}
	return vec, nil
}

// EmbedBatch looks each text up, embeds only the misses in one call, then fills the cache.
func (e *CachedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([]Vector, error) {
	out := make([]Vector, len(texts))
	var missIdx []int
	var missTexts []string
	for i, t := range texts {
		vec, err := e.cache.GetEmbedding(ctx, cache.EmbeddingKey(e.model, t))
		if err != nil {
			e.log.Warn("embedding cache read failed", "err", err)
		}
		if vec != nil {
			out[i] = Vector(vec)
			continue
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, t)
	}
	if len(missTexts) == 0 {
		return out, nil
	}

	vecs, err := e.next.EmbedBatch(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(missTexts) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(vecs), len(missTexts))
	}
	for j, i := range missIdx {
		out[i] = vecs[j]
		if err := e.cache.SetEmbedding(ctx, cache.EmbeddingKey(e.model, missTexts[j]), vecs[j], e.ttl); err != nil {
			e.log.Warn("embedding cache write failed", "err", err)
		}
	}
	return out, nil
}
