package matching

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/spigell/hh-matcher/internal/ai/mock"
	"github.com/spigell/hh-matcher/internal/embedding"
	"github.com/spigell/hh-matcher/internal/pipelineerr"
	"github.com/spigell/hh-matcher/internal/rerank"
	"github.com/spigell/hh-matcher/internal/retrieval"
	"github.com/spigell/hh-matcher/internal/retrieval/memory"
)

type stubProvider struct {
	vector []float32
	err    error
	texts  []string
}

func (s *stubProvider) Embed(_ context.Context, text string) ([]float32, error) {
	s.texts = append(s.texts, text)
	if s.err != nil {
		return nil, s.err
	}
	return s.vector, nil
}

type stubRetriever struct {
	documents []retrieval.Document
	err       error
	index     string
	topK      int
}

func (s *stubRetriever) Search(_ context.Context, indexName string, _ []float32, topK int) ([]retrieval.Document, error) {
	s.index = indexName
	s.topK = topK
	if s.err != nil {
		return nil, s.err
	}
	return s.documents, nil
}

type stubReranker struct {
	rankings   []rerank.Ranking
	err        error
	calls      int
	summary    string
	candidates []rerank.Candidate
	topK       int
}

func (s *stubReranker) Rerank(_ context.Context, summary string, candidates []rerank.Candidate, topK int) ([]rerank.Ranking, error) {
	s.calls++
	s.summary = summary
	s.candidates = candidates
	s.topK = topK
	if s.err != nil {
		return nil, s.err
	}
	return s.rankings, nil
}

type stubCompleter struct {
	response string
	err      error
	calls    int
}

func (s *stubCompleter) Complete(context.Context, string) (string, error) {
	s.calls++
	return s.response, s.err
}

func documents(n int) []retrieval.Document {
	docs := make([]retrieval.Document, n)
	for i := range docs {
		docs[i] = retrieval.Document{
			SourceID:    fmt.Sprintf("doc-%d", i),
			Title:       fmt.Sprintf("Title %d", i),
			TextExcerpt: fmt.Sprintf("Excerpt %d", i),
			Score:       1 - float64(i)/100,
			Metadata:    map[string]any{"area": "Moscow", "position": i},
		}
	}
	return docs
}

func TestFindTopMatchesEndToEnd(t *testing.T) {
	completer := &stubCompleter{response: `{"rankings":[{"candidate_index":2,"score":0.9,"reason":"Platform"},{"candidate_index":0,"score":0.7}]}`}
	retriever := &stubRetriever{documents: documents(3)}
	matcher := New(&stubProvider{vector: []float32{1, 0}}, retriever, rerank.New(completer, zap.NewNop(), 0), Defaults{}, zap.NewNop())

	results, err := matcher.FindTopMatches(context.Background(), MatchQuery{SourceText: "Go developer"}, ResumeToJobs, "jobs")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}

	if results[0].Rank != 1 || results[0].Index != 2 || results[0].RerankScore != 0.9 || results[0].SourceID != "doc-2" {
		t.Fatalf("unexpected first result: %+v", results[0])
	}

	if results[1].Rank != 2 || results[1].Index != 0 || results[1].RerankScore != 0.7 || results[1].SourceID != "doc-0" {
		t.Fatalf("unexpected second result: %+v", results[1])
	}

	for _, r := range results {
		if r.Index == 1 {
			t.Fatalf("candidate 1 should be absent: %+v", r)
		}
	}

	if retriever.index != "jobs" || retriever.topK != DefaultResumeInitialTopK {
		t.Fatalf("unexpected search call: index=%q topK=%d", retriever.index, retriever.topK)
	}
}

func TestFindTopMatchesReattachesSourceAndMetadata(t *testing.T) {
	docs := documents(4)
	reranker := &stubReranker{rankings: []rerank.Ranking{{Index: 3, Rank: 1, Score: 0.5}, {Index: 1, Rank: 2, Score: 0.4}}}
	matcher := New(&stubProvider{vector: []float32{1}}, &stubRetriever{documents: docs}, reranker, Defaults{}, nil)

	results, err := matcher.FindTopMatches(context.Background(), MatchQuery{SourceText: "job text"}, JobToResumes, "resumes")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, r := range results {
		doc := docs[r.Index]
		if r.SourceID != doc.SourceID || r.Title != doc.Title || r.VectorScore != doc.Score {
			t.Fatalf("result %d not reattached: %+v", r.Index, r)
		}
		if !reflect.DeepEqual(r.Metadata, doc.Metadata) {
			t.Fatalf("metadata changed: %v vs %v", r.Metadata, doc.Metadata)
		}
	}

	for _, candidate := range reranker.candidates {
		if strings.Contains(candidate.Title+candidate.TextExcerpt, "doc-") {
			t.Fatalf("source id leaked to reranker: %+v", candidate)
		}
	}
}

func TestFindTopMatchesEmptyPoolSkipsReranker(t *testing.T) {
	reranker := &stubReranker{}
	matcher := New(&stubProvider{vector: []float32{1}}, &stubRetriever{documents: nil}, reranker, Defaults{}, nil)

	results, err := matcher.FindTopMatches(context.Background(), MatchQuery{SourceText: "Go"}, ResumeToJobs, "jobs")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if results == nil || len(results) != 0 {
		t.Fatalf("expected empty non-nil results, got %#v", results)
	}

	if reranker.calls != 0 {
		t.Fatalf("reranker should not be called, got %d calls", reranker.calls)
	}
}

func TestFindTopMatchesTruncatesToInitialTopK(t *testing.T) {
	reranker := &stubReranker{}
	retriever := &stubRetriever{documents: documents(8)}
	matcher := New(&stubProvider{vector: []float32{1}}, retriever, reranker, Defaults{}, nil)

	if _, err := matcher.FindTopMatches(context.Background(), MatchQuery{SourceText: "Go", InitialTopK: 5, FinalTopK: 3}, ResumeToJobs, "jobs"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(reranker.candidates) != 5 {
		t.Fatalf("expected 5 candidates, got %d", len(reranker.candidates))
	}

	for i, candidate := range reranker.candidates {
		if candidate.Index != i || candidate.Title != fmt.Sprintf("Title %d", i) {
			t.Fatalf("candidate order changed at %d: %+v", i, candidate)
		}
	}

	if retriever.topK != 5 || reranker.topK != 3 {
		t.Fatalf("unexpected top-k: search=%d rerank=%d", retriever.topK, reranker.topK)
	}
}

func TestFindTopMatchesDefaultsPerDirection(t *testing.T) {
	tests := []struct {
		direction Direction
		defaults  Defaults
		wantTopK  int
		wantFinal int
	}{
		{direction: ResumeToJobs, wantTopK: 50, wantFinal: 10},
		{direction: JobToResumes, wantTopK: 100, wantFinal: 10},
		{direction: JobToResumes, defaults: Defaults{JobInitialTopK: 30, FinalTopK: 4}, wantTopK: 30, wantFinal: 4},
	}

	for _, tt := range tests {
		t.Run(tt.direction.String(), func(t *testing.T) {
			retriever := &stubRetriever{documents: documents(1)}
			reranker := &stubReranker{}
			matcher := New(&stubProvider{vector: []float32{1}}, retriever, reranker, tt.defaults, nil)

			if _, err := matcher.FindTopMatches(context.Background(), MatchQuery{SourceText: "text"}, tt.direction, "idx"); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if retriever.topK != tt.wantTopK || reranker.topK != tt.wantFinal {
				t.Fatalf("got search=%d rerank=%d, want %d/%d", retriever.topK, reranker.topK, tt.wantTopK, tt.wantFinal)
			}
		})
	}
}

func TestFindTopMatchesSummary(t *testing.T) {
	source := strings.Repeat("я", SummaryLimit+100)
	reranker := &stubReranker{}
	matcher := New(&stubProvider{vector: []float32{1}}, &stubRetriever{documents: documents(1)}, reranker, Defaults{}, nil)

	if _, err := matcher.FindTopMatches(context.Background(), MatchQuery{SourceText: source}, JobToResumes, "resumes"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := "Job Description: " + strings.Repeat("я", SummaryLimit)
	if reranker.summary != want {
		t.Fatalf("unexpected summary length %d", len([]rune(reranker.summary)))
	}

	if got := Summary(ResumeToJobs, "  short  "); got != "Resume Summary: short" {
		t.Fatalf("unexpected summary: %q", got)
	}
}

func TestFindTopMatchesStageErrors(t *testing.T) {
	backendErr := errors.New("backend down")

	tests := []struct {
		name      string
		provider  *stubProvider
		retriever *stubRetriever
		reranker  *stubReranker
		stage     pipelineerr.Stage
	}{
		{
			name:      "embedding",
			provider:  &stubProvider{err: backendErr},
			retriever: &stubRetriever{documents: documents(1)},
			reranker:  &stubReranker{},
			stage:     pipelineerr.StageEmbedding,
		},
		{
			name:      "retrieval",
			provider:  &stubProvider{vector: []float32{1}},
			retriever: &stubRetriever{err: backendErr},
			reranker:  &stubReranker{},
			stage:     pipelineerr.StageRetrieval,
		},
		{
			name:      "rerank",
			provider:  &stubProvider{vector: []float32{1}},
			retriever: &stubRetriever{documents: documents(2)},
			reranker:  &stubReranker{err: backendErr},
			stage:     pipelineerr.StageRerank,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			matcher := New(tt.provider, tt.retriever, tt.reranker, Defaults{}, nil)

			_, err := matcher.FindTopMatches(context.Background(), MatchQuery{SourceText: "text"}, ResumeToJobs, "jobs")
			if err == nil {
				t.Fatal("expected error")
			}

			if got := pipelineerr.StageOf(err); got != tt.stage {
				t.Fatalf("expected stage %q, got %q (%v)", tt.stage, got, err)
			}

			if !errors.Is(err, backendErr) {
				t.Fatalf("expected cause to be preserved: %v", err)
			}
		})
	}
}

func TestFindTopMatchesMalformedRerankResponse(t *testing.T) {
	completer := &stubCompleter{response: "not json"}
	matcher := New(&stubProvider{vector: []float32{1}}, &stubRetriever{documents: documents(2)}, rerank.New(completer, nil, 0), Defaults{}, nil)

	results, err := matcher.FindTopMatches(context.Background(), MatchQuery{SourceText: "text"}, ResumeToJobs, "jobs")

	var rerankErr *pipelineerr.RerankError
	if !errors.As(err, &rerankErr) {
		t.Fatalf("expected RerankError, got %v (results %v)", err, results)
	}
}

func TestFindTopMatchesRejectsInvalidQuery(t *testing.T) {
	tests := []struct {
		name      string
		query     MatchQuery
		direction Direction
	}{
		{name: "negative initial", query: MatchQuery{SourceText: "x", InitialTopK: -1}, direction: ResumeToJobs},
		{name: "negative final", query: MatchQuery{SourceText: "x", FinalTopK: -5}, direction: ResumeToJobs},
		{name: "unknown direction", query: MatchQuery{SourceText: "x"}, direction: Direction("sideways")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := &stubProvider{vector: []float32{1}}
			matcher := New(provider, &stubRetriever{}, &stubReranker{}, Defaults{}, nil)

			_, err := matcher.FindTopMatches(context.Background(), tt.query, tt.direction, "jobs")
			if !errors.Is(err, ErrInvalidQuery) {
				t.Fatalf("expected ErrInvalidQuery, got %v", err)
			}
			if pipelineerr.StageOf(err) != "" {
				t.Fatalf("invalid input must not carry a stage: %v", err)
			}
			if len(provider.texts) != 0 {
				t.Fatalf("embedder should not be called")
			}
		})
	}
}

func TestAttachDiscardsOutOfRangeIndexes(t *testing.T) {
	candidates := BuildCandidates(documents(2), 10)
	results := Attach(candidates, []rerank.Ranking{
		{Index: 5, Rank: 1},
		{Index: 1, Rank: 2, Score: 0.8},
		{Index: -1, Rank: 3},
		{Index: 0, Rank: 4, Score: 0.3},
	})

	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}

	if results[0].Index != 1 || results[0].Rank != 1 || results[1].Index != 0 || results[1].Rank != 2 {
		t.Fatalf("unexpected results: %+v", results)
	}

	if results[0].HighlightedSkills == nil || results[0].Gaps == nil || results[0].RecommendedQuestions == nil {
		t.Fatalf("expected non-nil lists")
	}
}

func TestFindTopMatchesConcurrent(t *testing.T) {
	ctx := context.Background()
	embedder := embedding.New(embedding.NewMock(64), 0, nil)
	store := memory.New()

	records := make([]retrieval.Record, 0, 5)
	for _, text := range []string{"Go backend", "Python data", "Kubernetes SRE", "React frontend", "Go platform"} {
		vector, err := embedder.Embed(ctx, text)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		records = append(records, retrieval.Record{SourceID: text, Title: text, TextExcerpt: text, Vector: vector})
	}
	if err := store.Upsert(ctx, "jobs", records); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	matcher := New(embedder, store, rerank.New(mock.New(), nil, 0), Defaults{}, nil)

	want, err := matcher.FindTopMatches(ctx, MatchQuery{SourceText: "Go developer", FinalTopK: 3}, ResumeToJobs, "jobs")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(want) != 3 {
		t.Fatalf("expected 3 results, got %d", len(want))
	}

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := matcher.FindTopMatches(ctx, MatchQuery{SourceText: "Go developer", FinalTopK: 3}, ResumeToJobs, "jobs")
			if err != nil {
				errs <- err
				return
			}
			if !reflect.DeepEqual(got, want) {
				errs <- fmt.Errorf("unexpected results: %+v", got)
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Fatal(err)
	}
}
