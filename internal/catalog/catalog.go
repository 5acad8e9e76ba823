// Package catalog describes the billing codes that get indexed for retrieval.
package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"billing-rag/internal/embeddings"
	"billing-rag/internal/vectorstore"
)

// DefaultBatchSize bounds how many entries are embedded and upserted together.
const DefaultBatchSize = 100

// Entry is one billable code.
type Entry struct {
	Code        string   `json:"code" validate:"required"`
	Description string   `json:"description" validate:"required"`
	UnitPrice   float64  `json:"unitPrice" validate:"gte=0"`
	Keywords    []string `json:"keywords,omitempty"`
}

// Batch is a set of entries submitted for indexing, both over HTTP and as
// the payload of an index task.
type Batch struct {
	Codes []Entry `json:"codes" validate:"required,min=1,dive"`
}

// Text is the page content embedded and returned to the model as context.
func (e Entry) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Code: %s\n", e.Code)
	fmt.Fprintf(&b, "Description: %s\n", e.Description)
	fmt.Fprintf(&b, "Unit price: %s", formatPrice(e.UnitPrice))
	if len(e.Keywords) > 0 {
		fmt.Fprintf(&b, "\nKeywords: %s", strings.Join(e.Keywords, ", "))
	}
	return b.String()
}

// Record pairs the entry with its vector. The code doubles as the record ID,
// so re-importing a code overwrites it.
func (e Entry) Record(vec embeddings.Vector) vectorstore.Record {
	md := map[string]any{
		"code":        e.Code,
		"description": e.Description,
		"unitPrice":   e.UnitPrice,
	}
	if len(e.Keywords) > 0 {
		// Pinecone metadata cannot hold arbitrary lists, keep it a flat string.
		md["keywords"] = strings.Join(e.Keywords, ", ")
	}
	return vectorstore.Record{ID: e.Code, Text: e.Text(), Metadata: md, Vector: vec}
}

func formatPrice(p float64) string {
	return strconv.FormatFloat(p, 'f', 2, 64)
}

// Indexer embeds catalog entries and writes them to a vector store.
type Indexer struct {
	Embedder  embeddings.Embedder
	Store     vectorstore.Store
	BatchSize int
	Log       *slog.Logger
}

// Index writes entries in batches and returns how many were stored.
// A failed batch stops the run; earlier batches stay indexed.
func (ix *Indexer) Index(ctx context.Context, entries []Entry) (int, error) {
	size := ix.BatchSize
	if size <= 0 {
		size = DefaultBatchSize
	}
	done := 0
	for start := 0; start < len(entries); start += size {
		end := min(start+size, len(entries))
		batch := entries[start:end]

		texts := make([]string, len(batch))
		for i, e := range batch {
			texts[i] = e.Text()
		}
		vecs, err := ix.Embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return done, fmt.Errorf("embed batch %d-%d: %w", start, end, err)
		}
		if len(vecs) != len(batch) {
			return done, fmt.Errorf("embed batch %d-%d: got %d vectors for %d entries", start, end, len(vecs), len(batch))
		}

		records := make([]vectorstore.Record, len(batch))
		for i, e := range batch {
			records[i] = e.Record(vecs[i])
		}
		if err := ix.Store.Upsert(ctx, records); err != nil {
			return done, fmt.Errorf("upsert batch %d-%d: %w", start, end, err)
		}
		done += len(batch)
		if ix.Log != nil {
			ix.Log.Info("indexed catalog batch", "from", start, "to", end)
		}
	}
	return done, nil
}
