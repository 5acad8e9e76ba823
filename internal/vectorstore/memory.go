package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"

	"billing-rag/internal/embeddings"
)

// Memory is an in-process store ranked by cosine similarity.
type Memory struct {
	mu      sync.RWMutex
	records map[string]Record
}

func NewMemory() *Memory {
	return &Memory{records: make(map[string]Record)}
}

type seedRecord struct {
	ID       string         `json:"id"`
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata"`
	Vector   []float32      `json:"vector"`
}

// LoadMemory builds a Memory store from a JSON array of {id,text,metadata,vector}.
func LoadMemory(path string) (*Memory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var seeds []seedRecord
	if err := json.Unmarshal(data, &seeds); err != nil {
		return nil, fmt.Errorf("decode seed file %s: %w", path, err)
	}
	m := NewMemory()
	for _, s := range seeds {
		m.records[s.ID] = Record{ID: s.ID, Text: s.Text, Metadata: s.Metadata, Vector: s.Vector}
	}
	return m, nil
}

func (m *Memory) Query(_ context.Context, vector embeddings.Vector, k int) ([]Document, error) {
	m.mu.RLock()
	docs := make([]Document, 0, len(m.records))
	for _, r := range m.records {
		docs = append(docs, Document{
			ID:       r.ID,
			Text:     r.Text,
			Metadata: r.Metadata,
			Score:    embeddings.CosineSimilarity(vector, r.Vector),
		})
	}
	m.mu.RUnlock()

	sort.SliceStable(docs, func(i, j int) bool {
		if docs[i].Score == docs[j].Score {
			return docs[i].ID < docs[j].ID
		}
		return docs[i].Score > docs[j].Score
	})
	if k >= 0 && len(docs) > k {
		docs = docs[:k]
	}
	return docs, nil
}

func (m *Memory) Upsert(_ context.Context, records []Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range records {
		m.records[r.ID] = r
	}
	return nil
}

func (m *Memory) Close() error { return nil }
