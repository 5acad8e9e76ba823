package rag

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"billing-rag/internal/config"
	"billing-rag/internal/embeddings"
	"billing-rag/internal/llm"
	"billing-rag/internal/vectorstore"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var mriDocs = []vectorstore.Document{
	{ID: "70551", Text: "Code: 70551\nDescription: MRI brain without contrast\nUnit price: 450.00"},
	{ID: "70553", Text: "Code: 70553\nDescription: MRI brain with and without contrast\nUnit price: 610.00"},
}

func TestAnswerQueryWithoutHistory(t *testing.T) {
	e := new(embeddings.MockEmbedder)
	s := new(vectorstore.MockStore)
	c := new(llm.MockClient)

	e.On("Embed", mock.Anything, "MRI scan").Return(embeddings.Vector{0.1, 0.2}, nil).Once()
	s.On("Query", mock.Anything, embeddings.Vector{0.1, 0.2}, 4).Return(mriDocs, nil).Once()
	c.On("Complete", mock.Anything, mock.MatchedBy(func(msgs []llm.Message) bool {
		return len(msgs) == 2 &&
			msgs[0].Role == llm.RoleSystem &&
			strings.Contains(msgs[0].Content, "MRI brain without contrast") &&
			strings.Contains(msgs[0].Content, "Code: 70553") &&
			msgs[1].Role == llm.RoleUser &&
			msgs[1].Content == "MRI scan"
	})).Return(`{"code":"70551"}`, nil).Once()

	r := NewConversationalRetriever(e, s, c, 0, discardLogger())
	answer, err := r.AnswerQuery(context.Background(), "MRI scan", nil)

	require.NoError(t, err)
	assert.Equal(t, `{"code":"70551"}`, answer)
	e.AssertExpectations(t)
	s.AssertExpectations(t)
	c.AssertExpectations(t)
}

func TestAnswerQueryCondensesHistory(t *testing.T) {
	e := new(embeddings.MockEmbedder)
	s := new(vectorstore.MockStore)
	c := new(llm.MockClient)
	history := []Turn{{Question: "Patient had an MRI", Answer: `{"code":"70551"}`}}

	c.On("Complete", mock.Anything, mock.MatchedBy(func(msgs []llm.Message) bool {
		return len(msgs) == 1 &&
			strings.Contains(msgs[0].Content, "Human: Patient had an MRI") &&
			strings.Contains(msgs[0].Content, `Assistant: {"code":"70551"}`) &&
			strings.Contains(msgs[0].Content, "Follow Up Input: with contrast?")
	})).Return("  MRI brain with contrast  ", nil).Once()
	e.On("Embed", mock.Anything, "MRI brain with contrast").Return(embeddings.Vector{1}, nil).Once()
	s.On("Query", mock.Anything, embeddings.Vector{1}, 2).Return(mriDocs, nil).Once()
	c.On("Complete", mock.Anything, mock.MatchedBy(func(msgs []llm.Message) bool {
		return len(msgs) == 2 && msgs[1].Content == "MRI brain with contrast"
	})).Return(`{"code":"70553"}`, nil).Once()

	r := NewConversationalRetriever(e, s, c, 2, discardLogger())
	answer, err := r.AnswerQuery(context.Background(), "with contrast?", history)

	require.NoError(t, err)
	assert.Equal(t, `{"code":"70553"}`, answer)
	c.AssertExpectations(t)
	e.AssertExpectations(t)
	s.AssertExpectations(t)
}

func TestAnswerQueryPropagatesUpstreamErrors(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*embeddings.MockEmbedder, *vectorstore.MockStore, *llm.MockClient)
	}{
		{
			name: "embedding failure",
			setup: func(e *embeddings.MockEmbedder, s *vectorstore.MockStore, c *llm.MockClient) {
				e.On("Embed", mock.Anything, mock.Anything).Return(nil, errors.New("quota exceeded")).Once()
			},
		},
		{
			name: "retrieval failure",
			setup: func(e *embeddings.MockEmbedder, s *vectorstore.MockStore, c *llm.MockClient) {
				e.On("Embed", mock.Anything, mock.Anything).Return(embeddings.Vector{1}, nil).Once()
				s.On("Query", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("unauthorized")).Once()
			},
		},
		{
			name: "completion failure",
			setup: func(e *embeddings.MockEmbedder, s *vectorstore.MockStore, c *llm.MockClient) {
				e.On("Embed", mock.Anything, mock.Anything).Return(embeddings.Vector{1}, nil).Once()
				s.On("Query", mock.Anything, mock.Anything, mock.Anything).Return([]vectorstore.Document{}, nil).Once()
				c.On("Complete", mock.Anything, mock.Anything).Return("", errors.New("network down")).Once()
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := new(embeddings.MockEmbedder)
			s := new(vectorstore.MockStore)
			c := new(llm.MockClient)
			tt.setup(e, s, c)

			r := NewConversationalRetriever(e, s, c, 4, discardLogger())
			_, err := r.AnswerQuery(context.Background(), "x", nil)

			assert.Error(t, err)
			e.AssertExpectations(t)
			s.AssertExpectations(t)
			c.AssertExpectations(t)
		})
	}
}

func TestCloseOnlyReleasesOwnedStore(t *testing.T) {
	s := new(vectorstore.MockStore)
	r := NewConversationalRetriever(nil, s, nil, 0, discardLogger())
	require.NoError(t, r.Close())
	s.AssertNotCalled(t, "Close")

	s.On("Close").Return(nil).Once()
	r.ownsStore = true
	require.NoError(t, r.Close())
	s.AssertExpectations(t)
}

func TestTurnUnmarshal(t *testing.T) {
	var turns []Turn
	err := json.Unmarshal([]byte(`[["q1","a1"], {"question":"q2","answer":"a2"}]`), &turns)
	require.NoError(t, err)
	assert.Equal(t, []Turn{{"q1", "a1"}, {"q2", "a2"}}, turns)

	assert.Error(t, json.Unmarshal([]byte(`[["only one"]]`), &turns))
	assert.Error(t, json.Unmarshal([]byte(`[[1, 2]]`), &turns))
	assert.Error(t, json.Unmarshal([]byte(`["plain string"]`), &turns))

	out, err := json.Marshal(Turn{Question: "q", Answer: "a"})
	require.NoError(t, err)
	assert.JSONEq(t, `["q","a"]`, string(out))
}

func TestProviderBuilderSharedStore(t *testing.T) {
	shared := vectorstore.NewMemory()
	b := &ProviderBuilder{
		Config: config.Config{LLMProvider: "openai", LLMModel: "gpt-4o", EmbeddingModel: "text-embedding-ada-002", RetrieverTopK: 3},
		Log:    discardLogger(),
		Store:  shared,
	}

	exec, err := b.Build(context.Background(), config.Credentials{EmbeddingAPIKey: "sk-test", VectorStoreAPIKey: "memory"})
	require.NoError(t, err)

	r, ok := exec.(*ConversationalRetriever)
	require.True(t, ok)
	assert.Same(t, shared, r.store)
	assert.Equal(t, 3, r.topK)
	assert.False(t, r.ownsStore)
}

func TestProviderBuilderOpensMemoryStore(t *testing.T) {
	b := &ProviderBuilder{
		Config: config.Config{LLMProvider: "openai", VectorProvider: "memory"},
		Log:    discardLogger(),
	}

	exec, err := b.Build(context.Background(), config.Credentials{EmbeddingAPIKey: "sk-test", VectorStoreAPIKey: "memory"})
	require.NoError(t, err)
	r := exec.(*ConversationalRetriever)
	assert.True(t, r.ownsStore)
	assert.Equal(t, DefaultTopK, r.topK)
}

func TestProviderBuilderRejectsUnknownProviders(t *testing.T) {
	ctx := context.Background()
	creds := config.Credentials{EmbeddingAPIKey: "k", VectorStoreAPIKey: "k"}

	_, err := (&ProviderBuilder{Config: config.Config{LLMProvider: "llama"}, Log: discardLogger()}).Build(ctx, creds)
	assert.Error(t, err)

	_, err = (&ProviderBuilder{Config: config.Config{LLMProvider: "openai", VectorProvider: "faiss"}, Log: discardLogger()}).Build(ctx, creds)
	assert.ErrorIs(t, err, vectorstore.ErrUnknownProvider)
}
