// Package postgres implements retrieval on PostgreSQL with the pgvector
// extension. Each index is a table; distances use the <=> cosine operator.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spigell/hh-matcher/internal/retrieval"
)

// Store implements retrieval.Store over a pgx connection pool.
type Store struct {
	pool *pgxpool.Pool

	mu     sync.Mutex
	tables map[string]bool
}

// Connect opens a pool, verifies the connection and enables pgvector.
func Connect(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := pool.Exec(ctx, `CREATE EXTENSION IF NOT EXISTS vector`); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to enable pgvector: %w", err)
	}

	return &Store{pool: pool, tables: make(map[string]bool)}, nil
}

func table(indexName string) string {
	return pgx.Identifier{"idx_" + indexName}.Sanitize()
}

func (s *Store) ensureTable(ctx context.Context, indexName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tables[indexName] {
		return nil
	}

	_, err := s.pool.Exec(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			seq BIGSERIAL PRIMARY KEY,
			source_id TEXT NOT NULL UNIQUE,
			title TEXT NOT NULL,
			text_excerpt TEXT NOT NULL,
			metadata JSONB,
			embedding vector NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`, table(indexName)))
	if err != nil {
		return fmt.Errorf("failed to create table for index %s: %w", indexName, err)
	}

	s.tables[indexName] = true
	return nil
}

// Upsert writes records in a single batch.
func (s *Store) Upsert(ctx context.Context, indexName string, records []retrieval.Record) error {
	if err := retrieval.ValidateIndexName(indexName); err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}
	if err := s.ensureTable(ctx, indexName); err != nil {
		return err
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (source_id, title, text_excerpt, metadata, embedding)
		VALUES ($1, $2, $3, $4, $5::vector)
		ON CONFLICT (source_id) DO UPDATE SET
			title = EXCLUDED.title,
			text_excerpt = EXCLUDED.text_excerpt,
			metadata = EXCLUDED.metadata,
			embedding = EXCLUDED.embedding,
			updated_at = NOW()`, table(indexName))

	batch := &pgx.Batch{}
	for _, r := range records {
		if err := retrieval.ValidateRecord(r); err != nil {
			return err
		}
		var metadata any
		if len(r.Metadata) > 0 {
			metadata = r.Metadata
		}
		batch.Queue(query, r.SourceID, r.Title, r.TextExcerpt, metadata, VectorLiteral(r.Vector))
	}

	if err := s.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to upsert records into %s: %w", indexName, err)
	}

	return nil
}

// Search returns the topK rows closest to vector. Score is 1 - cosine distance.
func (s *Store) Search(ctx context.Context, indexName string, vector []float32, topK int) ([]retrieval.Document, error) {
	if err := retrieval.ValidateIndexName(indexName); err != nil {
		return nil, err
	}
	if len(vector) == 0 {
		return nil, errors.New("query vector is required")
	}
	if topK <= 0 {
		return []retrieval.Document{}, nil
	}

	var exists bool
	if err := s.pool.QueryRow(ctx, `SELECT to_regclass($1) IS NOT NULL`, "idx_"+indexName).Scan(&exists); err != nil {
		return nil, fmt.Errorf("failed to look up index %s: %w", indexName, err)
	}
	if !exists {
		return []retrieval.Document{}, nil
	}

	rows, err := s.pool.Query(ctx, fmt.Sprintf(`
		SELECT source_id, title, text_excerpt, metadata, 1 - (embedding <=> $1::vector) AS score
		FROM %s
		ORDER BY embedding <=> $1::vector, seq
		LIMIT $2`, table(indexName)), VectorLiteral(vector), topK)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}
	defer rows.Close()

	docs := make([]retrieval.Document, 0, topK)
	for rows.Next() {
		var (
			doc      retrieval.Document
			metadata []byte
		)
		if err := rows.Scan(&doc.SourceID, &doc.Title, &doc.TextExcerpt, &metadata, &doc.Score); err != nil {
			return nil, fmt.Errorf("failed to scan search row: %w", err)
		}
		if doc.Metadata, err = retrieval.DecodeMetadata(metadata); err != nil {
			return nil, fmt.Errorf("failed to decode metadata of %s: %w", doc.SourceID, err)
		}
		docs = append(docs, doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read search rows: %w", err)
	}

	return docs, nil
}

// Close closes the pool.
func (s *Store) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

// VectorLiteral formats v in pgvector's text input form, e.g. [0.1,0.2].
func VectorLiteral(v []float32) string {
	var b strings.Builder
	b.Grow(len(v)*8 + 2)
	b.WriteByte('[')
	for i, f := range v {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(f), 'g', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}

var _ retrieval.Store = (*Store)(nil)
