package vectorstore

import (
	"context"
	"fmt"

	"github.com/pinecone-io/go-pinecone/v3/pinecone"
	"google.golang.org/protobuf/types/known/structpb"

	"billing-rag/internal/embeddings"
)

const pineconeUpsertBatch = 100

// Pinecone is a connection to one hosted Pinecone index.
type Pinecone struct {
	index string
	conn  *pinecone.IndexConnection
}

// NewPinecone resolves the index host and opens a data-plane connection.
func NewPinecone(ctx context.Context, apiKey, indexName, namespace string) (*Pinecone, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("pinecone api key required")
	}
	pc, err := pinecone.NewClient(pinecone.NewClientParams{ApiKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("create pinecone client: %w", err)
	}
	idx, err := pc.DescribeIndex(ctx, indexName)
	if err != nil {
		return nil, fmt.Errorf("describe pinecone index %q: %w", indexName, err)
	}
	conn, err := pc.Index(pinecone.NewIndexConnParams{Host: idx.Host, Namespace: namespace})
	if err != nil {
		return nil, fmt.Errorf("connect pinecone index %q: %w", indexName, err)
	}
	return &Pinecone{index: indexName, conn: conn}, nil
}

func (p *Pinecone) Query(ctx context.Context, vector embeddings.Vector, k int) ([]Document, error) {
	res, err := p.conn.QueryByVectorValues(ctx, &pinecone.QueryByVectorValuesRequest{
		Vector:          vector,
		TopK:            uint32(k),
		IncludeMetadata: true,
	})
	if err != nil {
		return nil, fmt.Errorf("pinecone query %q: %w", p.index, err)
	}
	docs := make([]Document, 0, len(res.Matches))
	for _, m := range res.Matches {
		if m == nil || m.Vector == nil {
			continue
		}
		var md map[string]any
		if m.Vector.Metadata != nil {
			md = m.Vector.Metadata.AsMap()
		}
		text, rest := splitText(md)
		docs = append(docs, Document{ID: m.Vector.Id, Text: text, Metadata: rest, Score: m.Score})
	}
	return docs, nil
}

func (p *Pinecone) Upsert(ctx context.Context, records []Record) error {
	for start := 0; start < len(records); start += pineconeUpsertBatch {
		end := min(start+pineconeUpsertBatch, len(records))
		batch := make([]*pinecone.Vector, 0, end-start)
		for _, r := range records[start:end] {
			md, err := structpb.NewStruct(withText(r))
			if err != nil {
				return fmt.Errorf("metadata for %s: %w", r.ID, err)
			}
			values := []float32(r.Vector)
			batch = append(batch, &pinecone.Vector{Id: r.ID, Values: &values, Metadata: md})
		}
		if _, err := p.conn.UpsertVectors(ctx, batch); err != nil {
			return fmt.Errorf("pinecone upsert %q: %w", p.index, err)
		}
	}
	return nil
}

func (p *Pinecone) Close() error {
	return p.conn.Close()
}
