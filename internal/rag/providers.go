package rag

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/openai/openai-go/v3"

	"billing-rag/internal/cache"
	"billing-rag/internal/config"
	"billing-rag/internal/embeddings"
	"billing-rag/internal/llm"
	"billing-rag/internal/vectorstore"
)

// Builder constructs an Executor bound to a set of credentials.
type Builder interface {
	Build(ctx context.Context, creds config.Credentials) (Executor, error)
}

// BuilderFunc adapts a function to Builder.
type BuilderFunc func(ctx context.Context, creds config.Credentials) (Executor, error)

func (f BuilderFunc) Build(ctx context.Context, creds config.Credentials) (Executor, error) {
	return f(ctx, creds)
}

// ProviderBuilder builds executors from the configured providers.
// Store, when set, is shared by every executor (pgvector pool, memory store);
// otherwise a store is opened per executor with the request's credential.
type ProviderBuilder struct {
	Config config.Config
	Log    *slog.Logger
	Cache  cache.Cache
	Store  vectorstore.Store
}

func (b *ProviderBuilder) Build(ctx context.Context, creds config.Credentials) (Executor, error) {
	embedder, err := NewEmbedder(ctx, b.Config, creds.EmbeddingAPIKey, b.Cache, b.Log)
	if err != nil {
		return nil, err
	}
	chat, err := NewLLM(ctx, b.Config, creds.EmbeddingAPIKey)
	if err != nil {
		return nil, err
	}

	store, owned := b.Store, false
	if store == nil {
		store, err = OpenStore(ctx, b.Config, creds.VectorStoreAPIKey)
		if err != nil {
			return nil, err
		}
		owned = true
	}

	r := NewConversationalRetriever(embedder, store, chat, b.Config.RetrieverTopK, b.Log)
	r.ownsStore = owned
	return r, nil
}

// NewEmbedder returns the embedder for cfg.LLMProvider, behind c when c is non-nil.
func NewEmbedder(ctx context.Context, cfg config.Config, apiKey string, c cache.Cache, log *slog.Logger) (embeddings.Embedder, error) {
	var (
		e   embeddings.Embedder
		err error
	)
	switch cfg.LLMProvider {
	case "openai":
		e, err = embeddings.NewOpenAIEmbedder(apiKey, openai.EmbeddingModel(cfg.EmbeddingModel))
	case "gemini":
		e, err = embeddings.NewGeminiEmbedder(ctx, apiKey, cfg.EmbeddingModel)
	default:
		return nil, fmt.Errorf("invalid LLM_PROVIDER: %s (valid options: openai, gemini)", cfg.LLMProvider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}
	if c != nil {
		e = embeddings.NewCachedEmbedder(e, c, cfg.LLMProvider+"/"+cfg.EmbeddingModel, cfg.CacheTTL, log)
	}
	return e, nil
}

// NewLLM returns the chat client for cfg.LLMProvider.
func NewLLM(ctx context.Context, cfg config.Config, apiKey string) (llm.Client, error) {
	switch cfg.LLMProvider {
	case "openai":
		c, err := llm.NewOpenAIClient(apiKey, openai.ChatModel(cfg.LLMModel))
		if err != nil {
			return nil, fmt.Errorf("failed to initialize OpenAI client: %w", err)
		}
		return c, nil
	case "gemini":
		c, err := llm.NewGeminiClient(ctx, apiKey, cfg.LLMModel)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Gemini client: %w", err)
		}
		return c, nil
	default:
		return nil, fmt.Errorf("invalid LLM_PROVIDER: %s (valid options: openai, gemini)", cfg.LLMProvider)
	}
}

// OpenStore opens the collection for cfg.VectorProvider. credential is the
// Pinecone API key or the Postgres DSN; the memory store ignores it.
func OpenStore(ctx context.Context, cfg config.Config, credential string) (vectorstore.Store, error) {
	switch cfg.VectorProvider {
	case "pinecone":
		return vectorstore.NewPinecone(ctx, credential, cfg.VectorIndex, cfg.VectorNamespace)
	case "pgvector":
		return vectorstore.NewPgVector(ctx, credential, cfg.VectorIndex, cfg.EmbeddingDims)
	case "memory":
		if cfg.MemorySeedFile == "" {
			return vectorstore.NewMemory(), nil
		}
		return vectorstore.LoadMemory(cfg.MemorySeedFile)
	default:
		return nil, fmt.Errorf("%w: %s (valid options: pinecone, pgvector, memory)", vectorstore.ErrUnknownProvider, cfg.VectorProvider)
	}
}
