package config

import (
	"log/slog"

	"github.com/caarlos0/env/v10"
)

// Credentials are the provider secrets a single extraction needs.
type Credentials struct {
	EmbeddingAPIKey   string
	VectorStoreAPIKey string
}

// Complete reports whether both secrets are present.
func (c Credentials) Complete() bool {
	return c.EmbeddingAPIKey != "" && c.VectorStoreAPIKey != ""
}

// CredentialSource yields credentials on demand.
type CredentialSource interface {
	Credentials() Credentials
}

// StaticCredentials always returns the same credentials.
type StaticCredentials Credentials

func (s StaticCredentials) Credentials() Credentials {
	return Credentials(s)
}

type secrets struct {
	OpenAIKey   string `env:"OPENAI_API_KEY"`
	GeminiKey   string `env:"GEMINI_API_KEY"`
	PineconeKey string `env:"PINECONE_API_KEY"`
	DBURL       string `env:"DB_URL"`
}

// EnvCredentials re-reads the environment on every call, so keys rotated
// or added after startup are picked up by the next request.
type EnvCredentials struct {
	LLMProvider    string
	VectorProvider string
}

// NewEnvCredentials selects which variables to read from the providers in cfg.
func NewEnvCredentials(cfg Config) EnvCredentials {
	return EnvCredentials{LLMProvider: cfg.LLMProvider, VectorProvider: cfg.VectorProvider}
}

func (e EnvCredentials) Credentials() Credentials {
	var s secrets
	if err := env.Parse(&s); err != nil {
		slog.Warn("failed to read credentials from env", "err", err)
	}

	var creds Credentials
	switch e.LLMProvider {
	case "gemini":
		creds.EmbeddingAPIKey = s.GeminiKey
	default:
		creds.EmbeddingAPIKey = s.OpenAIKey
	}
	switch e.VectorProvider {
	case "pgvector":
		creds.VectorStoreAPIKey = s.DBURL
	case "memory":
		creds.VectorStoreAPIKey = "memory"
	default:
		creds.VectorStoreAPIKey = s.PineconeKey
	}
	return creds
}
