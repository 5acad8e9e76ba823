package config

import (
	"log/slog"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds runtime configuration shared by the API and the indexer.
type Config struct {
	// Server
	Port           int           `env:"PORT" envDefault:"8000"`
	HealthPort     int           `env:"HEALTH_PORT" envDefault:"8081"`
	LogLevel       string        `env:"LOG_LEVEL" envDefault:"info"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"120s"`
	MaxBodySize    int64         `env:"MAX_BODY_SIZE" envDefault:"1048576"` // 1MB in bytes

	// LLM & Embeddings
	LLMProvider    string `env:"LLM_PROVIDER" envDefault:"openai"` // "openai" or "gemini"
	LLMModel       string `env:"LLM_MODEL" envDefault:"gpt-4o"`
	EmbeddingModel string `env:"EMBEDDING_MODEL" envDefault:"text-embedding-ada-002"`
	EmbeddingDims  int    `env:"EMBEDDING_DIMENSIONS" envDefault:"1536"` // pgvector column size; 0 leaves it unconstrained

	// Vector store
	VectorProvider  string `env:"VECTOR_PROVIDER" envDefault:"pinecone"` // "pinecone", "pgvector" or "memory"
	VectorIndex     string `env:"VECTOR_INDEX" envDefault:"billing-codes"`
	VectorNamespace string `env:"VECTOR_NAMESPACE"`
	RetrieverTopK   int    `env:"RETRIEVER_TOP_K" envDefault:"4"`
	MemorySeedFile  string `env:"MEMORY_SEED_FILE"`

	// Cache
	CacheProvider string        `env:"CACHE_PROVIDER" envDefault:"none"` // "none" or "redis"
	RedisAddr     string        `env:"REDIS_ADDR"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	CacheTTL      time.Duration `env:"CACHE_TTL" envDefault:"24h"`

	// Store
	DBURL string `env:"DB_URL"`

	// Queue
	QueueURL string `env:"QUEUE_URL"`
}

// Load reads configuration from environment variables with defaults.
func Load() Config {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		slog.Warn("failed to parse env; using defaults where set", "err", err)
	}
	return cfg
}
