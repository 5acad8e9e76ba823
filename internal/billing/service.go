// Package billing turns free-text procedure notes into billing codes.
package billing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"billing-rag/internal/config"
	"billing-rag/internal/rag"
)

// ErrMissingCredentials is returned before any remote call when a provider key is absent.
var ErrMissingCredentials = errors.New("API keys are missing. Set them as environment variables.")

// Service runs one extraction per call: prompt, retrieval-augmented answer, parse.
type Service struct {
	credentials config.CredentialSource
	builder     rag.Builder
	log         *slog.Logger
}

func NewService(credentials config.CredentialSource, builder rag.Builder, log *slog.Logger) *Service {
	return &Service{credentials: credentials, builder: builder, log: log}
}

// Extract asks the executor for the billing code of text. A model answer that
// is not JSON is not an error: it comes back as the Result's error shape.
func (s *Service) Extract(ctx context.Context, text string, history []rag.Turn) (Result, error) {
	creds := s.credentials.Credentials()
	if !creds.Complete() {
		return Result{}, ErrMissingCredentials
	}

	exec, err := s.builder.Build(ctx, creds)
	if err != nil {
		return Result{}, fmt.Errorf("build executor: %w", err)
	}
	if c, ok := exec.(io.Closer); ok {
		defer func() {
			if err := c.Close(); err != nil {
				s.log.Warn("failed to release executor", "err", err)
			}
		}()
	}

	raw, err := exec.AnswerQuery(ctx, BuildPrompt(text), history)
	if err != nil {
		return Result{}, fmt.Errorf("answer query: %w", err)
	}

	res := ParseResult(raw)
	if res.Failed() {
		s.log.Warn("model answer is not valid JSON", "raw_response", raw)
	}
	return res, nil
}
