// Package retrieval defines the vector search capability used by the
// matching pipeline and the write side used to populate it.
package retrieval

import (
	"context"
	"fmt"
	"math"
	"regexp"
)

// Document is one search hit. Score is opaque to the pipeline: higher means
// more similar and it is carried through untouched.
type Document struct {
	SourceID    string         `json:"sourceId"`
	Title       string         `json:"title"`
	TextExcerpt string         `json:"textExcerpt"`
	Score       float64        `json:"score"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// Record is a document to be stored with its embedding.
type Record struct {
	SourceID    string
	Title       string
	TextExcerpt string
	Vector      []float32
	Metadata    map[string]any
}

// Retriever returns the topK nearest documents of an index, best first.
// An index with no matches yields an empty slice and a nil error.
type Retriever interface {
	Search(ctx context.Context, indexName string, vector []float32, topK int) ([]Document, error)
}

// Indexer stores records, replacing existing ones with the same SourceID.
type Indexer interface {
	Upsert(ctx context.Context, indexName string, records []Record) error
}

// Store is a backend that can both search and index.
type Store interface {
	Retriever
	Indexer
	Close() error
}

var indexNamePattern = regexp.MustCompile(`^[a-z][a-z0-9_]{0,62}$`)

// ValidateIndexName checks that name is safe to use as a table or collection name.
func ValidateIndexName(name string) error {
	if !indexNamePattern.MatchString(name) {
		return fmt.Errorf("invalid index name %q: expected lower-case letters, digits and underscores", name)
	}
	return nil
}

// ValidateRecord checks the fields every backend relies on.
func ValidateRecord(r Record) error {
	if r.SourceID == "" {
		return fmt.Errorf("record source id is required")
	}
	if len(r.Vector) == 0 {
		return fmt.Errorf("record %s has no vector", r.SourceID)
	}
	return nil
}

// Cosine returns the cosine similarity of a and b, or 0 when the lengths
// differ or either vector is zero.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
