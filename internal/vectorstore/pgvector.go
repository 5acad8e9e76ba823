package vectorstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pgvector/pgvector-go"

	"billing-rag/internal/embeddings"
)

// PgVector keeps the collection in a Postgres table with a pgvector column.
type PgVector struct {
	db    *sql.DB
	table string // sanitized identifier
}

// NewPgVector opens dsn and ensures the collection table exists.
// dims > 0 fixes the column dimension and adds an HNSW cosine index.
func NewPgVector(ctx context.Context, dsn, collection string, dims int) (*PgVector, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	s := &PgVector{db: db, table: pgx.Identifier{collection}.Sanitize()}
	if err := s.migrate(ctx, dims); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *PgVector) migrate(ctx context.Context, dims int) error {
	if _, err := s.db.ExecContext(ctx, `CREATE EXTENSION IF NOT EXISTS vector`); err != nil {
		return fmt.Errorf("failed to create vector extension: %w", err)
	}
	column := "vector"
	if dims > 0 {
		column = fmt.Sprintf("vector(%d)", dims)
	}
	stmt := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id TEXT PRIMARY KEY,
		text TEXT NOT NULL,
		metadata JSONB NOT NULL DEFAULT '{}'::jsonb,
		embedding %s NOT NULL
	)`, s.table, column)
	if _, err := s.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("failed to create collection table: %w", err)
	}
	if dims > 0 {
		idx := pgx.Identifier{trimQuotes(s.table) + "_embedding_idx"}.Sanitize()
		stmt = fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s USING hnsw (embedding vector_cosine_ops)`, idx, s.table)
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create vector index: %w", err)
		}
	}
	return nil
}

func (s *PgVector) Query(ctx context.Context, vector embeddings.Vector, k int) ([]Document, error) {
	q := fmt.Sprintf(`
		SELECT id, text, metadata, 1 - (embedding <=> $1) AS score
		FROM %s
		ORDER BY embedding <=> $1
		LIMIT $2`, s.table)
	rows, err := s.db.QueryContext(ctx, q, pgvector.NewVector(vector), k)
	if err != nil {
		return nil, fmt.Errorf("pgvector query: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var (
			d   Document
			raw []byte
		)
		if err := rows.Scan(&d.ID, &d.Text, &raw, &d.Score); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(raw, &d.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata for %s: %w", d.ID, err)
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

func (s *PgVector) Upsert(ctx context.Context, records []Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt := fmt.Sprintf(`
		INSERT INTO %s (id, text, metadata, embedding)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET text=excluded.text, metadata=excluded.metadata, embedding=excluded.embedding`, s.table)
	for _, r := range records {
		md := r.Metadata
		if md == nil {
			md = map[string]any{}
		}
		raw, err := json.Marshal(md)
		if err != nil {
			return fmt.Errorf("encode metadata for %s: %w", r.ID, err)
		}
		if _, err := tx.ExecContext(ctx, stmt, r.ID, r.Text, raw, pgvector.NewVector(r.Vector)); err != nil {
			return fmt.Errorf("upsert %s: %w", r.ID, err)
		}
	}
	return tx.Commit()
}

func (s *PgVector) Close() error {
	return s.db.Close()
}

func trimQuotes(ident string) string {
	if len(ident) >= 2 && ident[0] == '"' && ident[len(ident)-1] == '"' {
		return ident[1 : len(ident)-1]
	}
	return ident
}
