// Package memory is an in-process retrieval backend. Each index is an ordered
// collection searched exhaustively by cosine similarity.
package memory

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/spigell/hh-matcher/internal/retrieval"
)

type entry struct {
	record retrieval.Record
	seq    int
}

type collection struct {
	entries []*entry
	bySID   map[string]*entry
	nextSeq int
}

// Store keeps indexes in memory. It is safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	indexes map[string]*collection
}

// New creates an empty store.
func New() *Store {
	return &Store{indexes: make(map[string]*collection)}
}

// Upsert adds records to indexName. A record whose SourceID already exists
// replaces the stored one in place, keeping its original position.
func (s *Store) Upsert(ctx context.Context, indexName string, records []retrieval.Record) error {
	if err := retrieval.ValidateIndexName(indexName); err != nil {
		return err
	}
	for _, r := range records {
		if err := retrieval.ValidateRecord(r); err != nil {
			return err
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	col, ok := s.indexes[indexName]
	if !ok {
		col = &collection{bySID: make(map[string]*entry)}
		s.indexes[indexName] = col
	}

	for _, r := range records {
		stored := cloneRecord(r)
		if existing, ok := col.bySID[r.SourceID]; ok {
			existing.record = stored
			continue
		}
		e := &entry{record: stored, seq: col.nextSeq}
		col.nextSeq++
		col.entries = append(col.entries, e)
		col.bySID[r.SourceID] = e
	}

	return nil
}

// Search scores every record of indexName against vector and returns the
// best topK. Ties keep insertion order. An unknown index yields no documents.
func (s *Store) Search(ctx context.Context, indexName string, vector []float32, topK int) ([]retrieval.Document, error) {
	if err := retrieval.ValidateIndexName(indexName); err != nil {
		return nil, err
	}
	if len(vector) == 0 {
		return nil, fmt.Errorf("query vector is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	col, ok := s.indexes[indexName]
	if !ok || topK <= 0 {
		return []retrieval.Document{}, nil
	}

	type scored struct {
		e     *entry
		score float64
	}

	hits := make([]scored, 0, len(col.entries))
	for _, e := range col.entries {
		if len(e.record.Vector) != len(vector) {
			return nil, fmt.Errorf("index %s: record %s has %d dimensions, query has %d",
				indexName, e.record.SourceID, len(e.record.Vector), len(vector))
		}
		hits = append(hits, scored{e: e, score: retrieval.Cosine(vector, e.record.Vector)})
	}

	slices.SortStableFunc(hits, func(a, b scored) int {
		switch {
		case a.score > b.score:
			return -1
		case a.score < b.score:
			return 1
		default:
			return a.e.seq - b.e.seq
		}
	})

	if len(hits) > topK {
		hits = hits[:topK]
	}

	docs := make([]retrieval.Document, 0, len(hits))
	for _, hit := range hits {
		docs = append(docs, retrieval.Document{
			SourceID:    hit.e.record.SourceID,
			Title:       hit.e.record.Title,
			TextExcerpt: hit.e.record.TextExcerpt,
			Score:       hit.score,
			Metadata:    maps.Clone(hit.e.record.Metadata),
		})
	}

	return docs, nil
}

// Len returns the number of records stored in indexName.
func (s *Store) Len(indexName string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if col, ok := s.indexes[indexName]; ok {
		return len(col.entries)
	}
	return 0
}

// Close is a no-op.
func (s *Store) Close() error { return nil }

func cloneRecord(r retrieval.Record) retrieval.Record {
	r.Vector = slices.Clone(r.Vector)
	r.Metadata = maps.Clone(r.Metadata)
	return r
}

var _ retrieval.Store = (*Store)(nil)
