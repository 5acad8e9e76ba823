package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"

	"github.com/joho/godotenv"

	"billing-rag/internal/billing"
	"billing-rag/internal/bills"
	"billing-rag/internal/cache"
	"billing-rag/internal/catalog"
	"billing-rag/internal/config"
	"billing-rag/internal/logger"
	"billing-rag/internal/queue"
	"billing-rag/internal/rag"
	"billing-rag/internal/vectorstore"
)

// Deps bundles the runtime dependencies of the billing API.
// Bills and Queue are nil when their backing service is not configured.
type Deps struct {
	Config  config.Config
	Log     *slog.Logger
	Billing *billing.Service
	Bills   bills.Store
	Queue   queue.Queue

	closers []io.Closer
}

// Close releases every connection opened by Build.
func (d Deps) Close() {
	closeAll(d.Log, d.closers)
}

// Build loads env, config, and shared components for the API.
func Build(ctx context.Context) (Deps, error) {
	loadDotEnv()
	cfg := config.Load()
	log := logger.New(cfg.LogLevel)

	d := Deps{Config: cfg, Log: log}

	c, err := buildCache(cfg, log)
	if err != nil {
		return Deps{}, fmt.Errorf("failed to initialize cache: %w", err)
	}
	d.closers = append(d.closers, c)

	shared, err := buildSharedStore(ctx, cfg, log)
	if err != nil {
		d.Close()
		return Deps{}, fmt.Errorf("failed to initialize vector store: %w", err)
	}
	if shared != nil {
		d.closers = append(d.closers, shared)
	}

	builder := &rag.ProviderBuilder{Config: cfg, Log: log, Cache: c, Store: shared}
	d.Billing = billing.NewService(config.NewEnvCredentials(cfg), builder, log)
	log.Info("billing pipeline configured",
		"llm_provider", cfg.LLMProvider,
		"model", cfg.LLMModel,
		"vector_provider", cfg.VectorProvider,
		"index", cfg.VectorIndex,
	)

	if cfg.DBURL != "" {
		st, err := bills.NewPostgres(ctx, cfg.DBURL)
		if err != nil {
			d.Close()
			return Deps{}, fmt.Errorf("failed to initialize bills store: %w", err)
		}
		log.Info("using Postgres bills store")
		d.Bills = st
		d.closers = append(d.closers, st)
	}

	if cfg.QueueURL != "" {
		q, err := queue.ConnectNATS(log, cfg.QueueURL)
		if err != nil {
			d.Close()
			return Deps{}, fmt.Errorf("failed to connect to NATS: %w", err)
		}
		log.Info("using NATS queue")
		d.Queue = q
		d.closers = append(d.closers, q)
	}

	return d, nil
}

// IndexerDeps bundles what the catalog indexer needs.
type IndexerDeps struct {
	Config  config.Config
	Log     *slog.Logger
	Indexer *catalog.Indexer
	Queue   queue.Queue

	closers []io.Closer
}

func (d IndexerDeps) Close() {
	closeAll(d.Log, d.closers)
}

// BuildIndexer wires the embedder and vector store once, using the
// credentials present at startup. withQueue also connects to NATS.
func BuildIndexer(ctx context.Context, withQueue bool) (IndexerDeps, error) {
	loadDotEnv()
	cfg := config.Load()
	log := logger.New(cfg.LogLevel)

	d := IndexerDeps{Config: cfg, Log: log}

	creds := config.NewEnvCredentials(cfg).Credentials()
	if !creds.Complete() {
		return IndexerDeps{}, billing.ErrMissingCredentials
	}

	c, err := buildCache(cfg, log)
	if err != nil {
		return IndexerDeps{}, fmt.Errorf("failed to initialize cache: %w", err)
	}
	d.closers = append(d.closers, c)

	embedder, err := rag.NewEmbedder(ctx, cfg, creds.EmbeddingAPIKey, c, log)
	if err != nil {
		d.Close()
		return IndexerDeps{}, err
	}
	store, err := rag.OpenStore(ctx, cfg, creds.VectorStoreAPIKey)
	if err != nil {
		d.Close()
		return IndexerDeps{}, fmt.Errorf("failed to initialize vector store: %w", err)
	}
	d.closers = append(d.closers, store)
	d.Indexer = &catalog.Indexer{Embedder: embedder, Store: store, Log: log}

	if withQueue {
		if cfg.QueueURL == "" {
			d.Close()
			return IndexerDeps{}, errors.New("QUEUE_URL is required to consume index tasks")
		}
		q, err := queue.ConnectNATS(log, cfg.QueueURL)
		if err != nil {
			d.Close()
			return IndexerDeps{}, fmt.Errorf("failed to connect to NATS: %w", err)
		}
		d.Queue = q
		d.closers = append(d.closers, q)
	}
	return d, nil
}

// loadDotEnv applies .env when present; deployments usually set real env vars.
func loadDotEnv() {
	if err := godotenv.Load(); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			slog.Debug("no .env file found")
			return
		}
		slog.Warn("failed to load .env", "err", err)
	}
}

func buildCache(cfg config.Config, log *slog.Logger) (cache.Cache, error) {
	switch cfg.CacheProvider {
	case "", "none":
		return cache.NewNoOpCache(), nil
	case "redis":
		if cfg.RedisAddr == "" {
			return nil, errors.New("REDIS_ADDR is required when CACHE_PROVIDER=redis")
		}
		c, err := cache.NewRedisCache(cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			log.Warn("redis unavailable, embedding cache disabled", "addr", cfg.RedisAddr, "err", err)
			return cache.NewNoOpCache(), nil
		}
		log.Info("using Redis embedding cache", "addr", cfg.RedisAddr, "ttl", cfg.CacheTTL)
		return c, nil
	default:
		return nil, fmt.Errorf("invalid CACHE_PROVIDER: %s (valid options: none, redis)", cfg.CacheProvider)
	}
}

// buildSharedStore opens stores that live for the whole process. Pinecone is
// bound to the request's API key, so it is opened per request instead.
func buildSharedStore(ctx context.Context, cfg config.Config, log *slog.Logger) (vectorstore.Store, error) {
	switch cfg.VectorProvider {
	case "pgvector":
		if cfg.DBURL == "" {
			return nil, errors.New("DB_URL is required when VECTOR_PROVIDER=pgvector")
		}
		log.Info("using pgvector store", "collection", cfg.VectorIndex)
		return rag.OpenStore(ctx, cfg, cfg.DBURL)
	case "memory":
		log.Info("using in-memory vector store", "seed", cfg.MemorySeedFile)
		return rag.OpenStore(ctx, cfg, "")
	case "pinecone":
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: %s", vectorstore.ErrUnknownProvider, cfg.VectorProvider)
	}
}

func closeAll(log *slog.Logger, closers []io.Closer) {
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i].Close(); err != nil && log != nil {
			log.Warn("failed to close dependency", "err", err)
		}
	}
}
