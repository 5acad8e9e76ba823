package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Cache stores embedding vectors keyed by model and text.
type Cache interface {
	// GetEmbedding returns the cached vector, or nil on a miss.
	GetEmbedding(ctx context.Context, key string) ([]float32, error)

	// SetEmbedding stores a vector with TTL.
	SetEmbedding(ctx context.Context, key string, vector []float32, ttl time.Duration) error

	// Close closes the cache connection
	Close() error
}

// EmbeddingKey derives a stable key for a model/text pair.
func EmbeddingKey(model, text string) string {
	sum := sha256.Sum256([]byte(model + "\x00" + text))
	return model + ":" + hex.EncodeToString(sum[:])
}
