// Package indexing embeds documents and writes them into a retrieval index.
package indexing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spigell/hh-matcher/internal/embedding"
	"github.com/spigell/hh-matcher/internal/logger"
	"github.com/spigell/hh-matcher/internal/retrieval"
)

const (
	defaultConcurrency = 4
	// ExcerptLimit is the number of runes stored as the document excerpt.
	ExcerptLimit = 1000
)

// Document is a job or résumé to index. A missing ID is generated.
type Document struct {
	ID       string         `json:"id"`
	Title    string         `json:"title" validate:"required"`
	Text     string         `json:"text" validate:"required"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Indexer embeds documents concurrently and upserts them in one batch.
type Indexer struct {
	embedder    embedding.Provider
	store       retrieval.Indexer
	concurrency int
	validate    *validator.Validate
	logger      *zap.Logger
}

// New creates an Indexer. concurrency bounds parallel embedding calls.
func New(embedder embedding.Provider, store retrieval.Indexer, concurrency int, log *zap.Logger) *Indexer {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}

	return &Indexer{
		embedder:    embedder,
		store:       store,
		concurrency: concurrency,
		validate:    validator.New(),
		logger:      logger.OrNop(log),
	}
}

// Index embeds every document and upserts the records into indexName. Any
// invalid document or embedding failure aborts the whole batch before
// anything is written.
func (ix *Indexer) Index(ctx context.Context, indexName string, docs []Document) ([]retrieval.Record, error) {
	if err := retrieval.ValidateIndexName(indexName); err != nil {
		return nil, err
	}

	for i := range docs {
		if err := ix.validate.Struct(docs[i]); err != nil {
			return nil, fmt.Errorf("document %d (%q): %w", i, docs[i].ID, err)
		}
		if strings.TrimSpace(docs[i].ID) == "" {
			docs[i].ID = uuid.NewString()
		}
	}

	records := make([]retrieval.Record, len(docs))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(ix.concurrency)

	for i, doc := range docs {
		g.Go(func() error {
			vector, err := ix.embedder.Embed(gCtx, doc.Text)
			if err != nil {
				return fmt.Errorf("embed document %s: %w", doc.ID, err)
			}

			records[i] = retrieval.Record{
				SourceID:    doc.ID,
				Title:       doc.Title,
				TextExcerpt: Excerpt(doc.Text, ExcerptLimit),
				Vector:      vector,
				Metadata:    doc.Metadata,
			}

			ix.logger.Debug("document embedded", zap.String("id", doc.ID), zap.Int("dimensions", len(vector)))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	if err := ix.store.Upsert(ctx, indexName, records); err != nil {
		return nil, fmt.Errorf("upsert %d records into %s: %w", len(records), indexName, err)
	}

	ix.logger.Info("documents indexed", zap.String(logger.FieldIndex, indexName), zap.Int("count", len(records)))

	return records, nil
}

// Excerpt collapses whitespace and keeps at most limit runes.
func Excerpt(text string, limit int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}

// LoadDocuments reads a JSON array of documents from path.
func LoadDocuments(path string) ([]Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read documents: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var docs []Document
	if err := dec.Decode(&docs); err != nil {
		return nil, fmt.Errorf("parse documents %s: %w", path, err)
	}

	for i := range docs {
		docs[i].Metadata = retrieval.NormalizeNumbers(docs[i].Metadata)
	}

	return docs, nil
}
