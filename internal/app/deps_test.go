package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"billing-rag/internal/cache"
	"billing-rag/internal/config"
	"billing-rag/internal/logger"
	"billing-rag/internal/vectorstore"
)

func TestBuildCache(t *testing.T) {
	log := logger.Discard()

	c, err := buildCache(config.Config{CacheProvider: "none"}, log)
	require.NoError(t, err)
	assert.IsType(t, &cache.NoOpCache{}, c)

	_, err = buildCache(config.Config{CacheProvider: "redis"}, log)
	assert.ErrorContains(t, err, "REDIS_ADDR")

	_, err = buildCache(config.Config{CacheProvider: "memcached"}, log)
	assert.ErrorContains(t, err, "invalid CACHE_PROVIDER")
}

func TestBuildCacheFallsBackWhenRedisIsDown(t *testing.T) {
	c, err := buildCache(config.Config{CacheProvider: "redis", RedisAddr: "127.0.0.1:1"}, logger.Discard())
	require.NoError(t, err)
	assert.IsType(t, &cache.NoOpCache{}, c)
}

func TestBuildSharedStore(t *testing.T) {
	ctx := context.Background()
	log := logger.Discard()

	st, err := buildSharedStore(ctx, config.Config{VectorProvider: "pinecone"}, log)
	require.NoError(t, err)
	assert.Nil(t, st, "pinecone is opened per request")

	st, err = buildSharedStore(ctx, config.Config{VectorProvider: "memory"}, log)
	require.NoError(t, err)
	assert.IsType(t, &vectorstore.Memory{}, st)

	_, err = buildSharedStore(ctx, config.Config{VectorProvider: "pgvector"}, log)
	assert.ErrorContains(t, err, "DB_URL")

	_, err = buildSharedStore(ctx, config.Config{VectorProvider: "faiss"}, log)
	assert.ErrorIs(t, err, vectorstore.ErrUnknownProvider)
}

func TestBuildIndexerRequiresCredentials(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("LLM_PROVIDER", "openai")
	t.Setenv("VECTOR_PROVIDER", "pinecone")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("PINECONE_API_KEY", "")

	_, err := BuildIndexer(context.Background(), false)

	assert.ErrorContains(t, err, "API keys are missing")
}
