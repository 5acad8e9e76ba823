// Package vectorstore holds the similarity indexes billing codes are retrieved from.
package vectorstore

import (
	"context"
	"errors"

	"billing-rag/internal/embeddings"
)

// TextKey is the metadata field holding a document's page content.
const TextKey = "text"

var ErrUnknownProvider = errors.New("unknown vector provider")

// Document is a retrieved entry with its similarity score.
type Document struct {
	ID       string
	Text     string
	Metadata map[string]any
	Score    float32
}

// Record is an entry to index.
type Record struct {
	ID       string
	Text     string
	Metadata map[string]any
	Vector   embeddings.Vector
}

// Store is a named collection of embedded documents.
type Store interface {
	// Query returns up to k documents ordered by descending similarity.
	Query(ctx context.Context, vector embeddings.Vector, k int) ([]Document, error)
	Upsert(ctx context.Context, records []Record) error
	Close() error
}

// withText merges the page content into a copy of the metadata.
func withText(r Record) map[string]any {
	md := make(map[string]any, len(r.Metadata)+1)
	for k, v := range r.Metadata {
		md[k] = v
	}
	md[TextKey] = r.Text
	return md
}

// splitText pulls the page content back out of stored metadata.
func splitText(md map[string]any) (string, map[string]any) {
	if md == nil {
		return "", map[string]any{}
	}
	text, _ := md[TextKey].(string)
	rest := make(map[string]any, len(md))
	for k, v := range md {
		if k != TextKey {
			rest[k] = v
		}
	}
	return text, rest
}
