// Package rag answers prompts with a retrieval-augmented chat completion.
package rag

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"billing-rag/internal/embeddings"
	"billing-rag/internal/llm"
	"billing-rag/internal/vectorstore"
)

// DefaultTopK is how many documents a retrieval returns when unset.
const DefaultTopK = 4

// Executor produces a free-text answer to a prompt given earlier turns.
type Executor interface {
	AnswerQuery(ctx context.Context, prompt string, history []Turn) (string, error)
}

// ConversationalRetriever condenses follow-ups into a standalone question,
// retrieves similar documents, and answers with them stuffed into the context.
type ConversationalRetriever struct {
	embedder  embeddings.Embedder
	store     vectorstore.Store
	llm       llm.Client
	topK      int
	log       *slog.Logger
	ownsStore bool
}

// NewConversationalRetriever wires the three providers together. topK <= 0 means DefaultTopK.
func NewConversationalRetriever(e embeddings.Embedder, s vectorstore.Store, c llm.Client, topK int, log *slog.Logger) *ConversationalRetriever {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &ConversationalRetriever{embedder: e, store: s, llm: c, topK: topK, log: log}
}

func (r *ConversationalRetriever) AnswerQuery(ctx context.Context, prompt string, history []Turn) (string, error) {
	question := prompt
	if len(history) > 0 {
		standalone, err := r.llm.Complete(ctx, []llm.Message{
			{Role: llm.RoleUser, Content: condensePrompt(history, prompt)},
		})
		if err != nil {
			return "", fmt.Errorf("condense question: %w", err)
		}
		question = strings.TrimSpace(standalone)
	}

	vec, err := r.embedder.Embed(ctx, question)
	if err != nil {
		return "", fmt.Errorf("embed question: %w", err)
	}
	docs, err := r.store.Query(ctx, vec, r.topK)
	if err != nil {
		return "", fmt.Errorf("retrieve documents: %w", err)
	}
	r.log.Debug("retrieved documents", "count", len(docs))

	// History already shaped the standalone question; the answer step sees only context and question.
	answer, err := r.llm.Complete(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: stuffDocuments(docs)},
		{Role: llm.RoleUser, Content: question},
	})
	if err != nil {
		return "", fmt.Errorf("answer question: %w", err)
	}
	r.log.Info("raw ai response", "answer", answer)
	return answer, nil
}

// Close releases the vector store when it was opened for this executor alone.
func (r *ConversationalRetriever) Close() error {
	if r.ownsStore {
		return r.store.Close()
	}
	return nil
}
