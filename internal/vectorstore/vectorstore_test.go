package vectorstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"billing-rag/internal/embeddings"
)

func TestMemoryQueryRanksByCosine(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.Upsert(ctx, []Record{
		{ID: "70551", Text: "MRI brain without contrast", Vector: embeddings.Vector{1, 0}},
		{ID: "71045", Text: "Chest X-ray single view", Vector: embeddings.Vector{0, 1}},
		{ID: "70553", Text: "MRI brain with and without contrast", Vector: embeddings.Vector{0.9, 0.1}},
	}))

	docs, err := m.Query(ctx, embeddings.Vector{1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "70551", docs[0].ID)
	assert.Equal(t, "70553", docs[1].ID)
	assert.InDelta(t, 1.0, docs[0].Score, 1e-6)
	assert.Greater(t, docs[0].Score, docs[1].Score)
}

func TestMemoryUpsertReplaces(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.Upsert(ctx, []Record{{ID: "a", Text: "old", Vector: embeddings.Vector{1}}}))
	require.NoError(t, m.Upsert(ctx, []Record{{ID: "a", Text: "new", Vector: embeddings.Vector{1}}}))

	docs, err := m.Query(ctx, embeddings.Vector{1}, 10)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "new", docs[0].Text)
}

func TestLoadMemory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.json")
	require.NoError(t, os.WriteFile(path, []byte(`[
		{"id": "70551", "text": "Code: 70551", "metadata": {"code": "70551"}, "vector": [1, 0]},
		{"id": "99213", "text": "Code: 99213", "metadata": {"code": "99213"}, "vector": [0, 1]}
	]`), 0o600))

	m, err := LoadMemory(path)
	require.NoError(t, err)

	docs, err := m.Query(context.Background(), embeddings.Vector{0, 1}, 1)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "99213", docs[0].ID)
	assert.Equal(t, "99213", docs[0].Metadata["code"])

	_, err = LoadMemory(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestMetadataTextRoundTrip(t *testing.T) {
	r := Record{ID: "1", Text: "Code: 70551", Metadata: map[string]any{"code": "70551"}}

	md := withText(r)
	assert.Equal(t, "Code: 70551", md[TextKey])
	_, mutated := r.Metadata[TextKey]
	assert.False(t, mutated, "record metadata must not be modified")

	text, rest := splitText(md)
	assert.Equal(t, "Code: 70551", text)
	assert.Equal(t, map[string]any{"code": "70551"}, rest)

	text, rest = splitText(nil)
	assert.Empty(t, text)
	assert.NotNil(t, rest)
}

func TestTrimQuotes(t *testing.T) {
	assert.Equal(t, "billing-codes", trimQuotes(`"billing-codes"`))
	assert.Equal(t, "plain", trimQuotes("plain"))
}
