package sqlitevec

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spigell/hh-matcher/internal/retrieval"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "vectors.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSearchOrdersByCosine(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, "resumes", []retrieval.Record{
		{SourceID: "r-1", Title: "Aigerim", TextExcerpt: "Go, gRPC", Vector: []float32{1, 0}, Metadata: map[string]any{"years": float64(5)}},
		{SourceID: "r-2", Title: "Daniyar", TextExcerpt: "Java", Vector: []float32{0, 1}},
		{SourceID: "r-3", Title: "Madina", TextExcerpt: "Go, Java", Vector: []float32{1, 1}},
	}))

	docs, err := store.Search(ctx, "resumes", []float32{1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, docs, 2)

	assert.Equal(t, "r-1", docs[0].SourceID)
	assert.Equal(t, "r-3", docs[1].SourceID)
	assert.InDelta(t, 1.0, docs[0].Score, 1e-6)
	assert.Equal(t, int64(5), docs[0].Metadata["years"])
	assert.Nil(t, docs[1].Metadata)
}

func TestUpsertReplacesExisting(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, "jobs", []retrieval.Record{
		{SourceID: "j-1", Title: "Go Developer", Vector: []float32{1, 0}},
	}))
	require.NoError(t, store.Upsert(ctx, "jobs", []retrieval.Record{
		{SourceID: "j-1", Title: "Senior Go Developer", Vector: []float32{0, 1}},
	}))

	docs, err := store.Search(ctx, "jobs", []float32{0, 1}, 5)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "Senior Go Developer", docs[0].Title)
}

func TestSearchMissingIndexIsEmpty(t *testing.T) {
	store := openTestStore(t)

	docs, err := store.Search(context.Background(), "jobs", []float32{1, 0}, 5)
	require.NoError(t, err)
	assert.NotNil(t, docs)
	assert.Empty(t, docs)
}

func TestRejectsInvalidIndexName(t *testing.T) {
	store := openTestStore(t)

	err := store.Upsert(context.Background(), `jobs"; DROP TABLE x; --`, []retrieval.Record{
		{SourceID: "j-1", Vector: []float32{1}},
	})
	assert.Error(t, err)
}

func TestMetadataKeepsLargeIntegers(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, "jobs", []retrieval.Record{
		{SourceID: "j-1", Title: "Go Developer", Vector: []float32{1, 0}, Metadata: map[string]any{
			"vacancy_id": int64(9007199254740993),
			"salary":     map[string]any{"from": 250000, "gross": 0.87},
			"tags":       []any{"go", 3},
		}},
	}))

	docs, err := store.Search(ctx, "jobs", []float32{1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, docs, 1)

	metadata := docs[0].Metadata
	assert.Equal(t, int64(9007199254740993), metadata["vacancy_id"])
	assert.Equal(t, map[string]any{"from": int64(250000), "gross": 0.87}, metadata["salary"])
	assert.Equal(t, []any{"go", int64(3)}, metadata["tags"])
}
