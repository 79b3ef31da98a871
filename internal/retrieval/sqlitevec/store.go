// Package sqlitevec implements retrieval on SQLite with the sqlite-vec
// extension. Each index is a table; search is an exact cosine scan.
// Metadata is stored as JSON text and read back with retrieval.DecodeMetadata,
// so integers return as int64.
package sqlitevec

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"

	"github.com/spigell/hh-matcher/internal/retrieval"
)

// sqlite-vec must be registered once before the first connection is opened.
var vecAutoOnce sync.Once

// Store implements retrieval.Store on a single SQLite file.
type Store struct {
	db   *sql.DB
	path string

	mu     sync.Mutex
	tables map[string]bool
}

// Open opens (or creates) the database at path.
func Open(path string) (*Store, error) {
	vecAutoOnce.Do(func() {
		sqlite_vec.Auto()
	})

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	var version string
	if err := db.QueryRow("SELECT vec_version()").Scan(&version); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite-vec extension not available: %w", err)
	}

	return &Store{db: db, path: path, tables: make(map[string]bool)}, nil
}

func tableName(indexName string) string {
	return `"idx_` + indexName + `"`
}

func (s *Store) ensureTable(ctx context.Context, indexName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tables[indexName] {
		return nil
	}

	_, err := s.db.ExecContext(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			source_id TEXT NOT NULL UNIQUE,
			title TEXT NOT NULL,
			text_excerpt TEXT NOT NULL,
			metadata TEXT,
			embedding BLOB NOT NULL
		)
	`, tableName(indexName)))
	if err != nil {
		return fmt.Errorf("create table for index %s: %w", indexName, err)
	}

	s.tables[indexName] = true
	return nil
}

func (s *Store) tableExists(ctx context.Context, indexName string) (bool, error) {
	var name string
	err := s.db.QueryRowContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`,
		"idx_"+indexName,
	).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Upsert stores records in one transaction.
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

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (source_id, title, text_excerpt, metadata, embedding)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(source_id) DO UPDATE SET
			title = excluded.title,
			text_excerpt = excluded.text_excerpt,
			metadata = excluded.metadata,
			embedding = excluded.embedding
	`, tableName(indexName)))
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		if err := retrieval.ValidateRecord(r); err != nil {
			return err
		}

		blob, err := sqlite_vec.SerializeFloat32(r.Vector)
		if err != nil {
			return fmt.Errorf("serialize vector of %s: %w", r.SourceID, err)
		}

		metadata, err := encodeMetadata(r.Metadata)
		if err != nil {
			return fmt.Errorf("encode metadata of %s: %w", r.SourceID, err)
		}

		if _, err := stmt.ExecContext(ctx, r.SourceID, r.Title, r.TextExcerpt, metadata, blob); err != nil {
			return fmt.Errorf("upsert %s: %w", r.SourceID, err)
		}
	}

	return tx.Commit()
}

// Search returns the topK rows closest to vector by cosine distance.
// Score is 1 - distance; ties are broken by insertion order.
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

	exists, err := s.tableExists(ctx, indexName)
	if err != nil {
		return nil, fmt.Errorf("lookup index %s: %w", indexName, err)
	}
	if !exists {
		return []retrieval.Document{}, nil
	}

	blob, err := sqlite_vec.SerializeFloat32(vector)
	if err != nil {
		return nil, fmt.Errorf("serialize query vector: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT source_id, title, text_excerpt, metadata,
			vec_distance_cosine(embedding, ?) AS distance
		FROM %s
		ORDER BY distance ASC, seq ASC
		LIMIT ?
	`, tableName(indexName)), blob, topK)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}
	defer rows.Close()

	docs := make([]retrieval.Document, 0, topK)
	for rows.Next() {
		var (
			doc      retrieval.Document
			metadata sql.NullString
			distance float64
		)

		if err := rows.Scan(&doc.SourceID, &doc.Title, &doc.TextExcerpt, &metadata, &distance); err != nil {
			return nil, fmt.Errorf("scan search row: %w", err)
		}

		if doc.Metadata, err = decodeMetadata(metadata); err != nil {
			return nil, fmt.Errorf("decode metadata of %s: %w", doc.SourceID, err)
		}

		doc.Score = 1 - distance
		docs = append(docs, doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate search rows: %w", err)
	}

	return docs, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func encodeMetadata(metadata map[string]any) (sql.NullString, error) {
	if len(metadata) == 0 {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(metadata)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func decodeMetadata(raw sql.NullString) (map[string]any, error) {
	if !raw.Valid {
		return nil, nil
	}
	return retrieval.DecodeMetadata([]byte(raw.String))
}

var _ retrieval.Store = (*Store)(nil)
