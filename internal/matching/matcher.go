// Package matching runs the two-stage match: vector retrieval of a candidate
// pool followed by a single rerank call, in either direction.
package matching

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spigell/hh-matcher/internal/embedding"
	"github.com/spigell/hh-matcher/internal/logger"
	"github.com/spigell/hh-matcher/internal/pipelineerr"
	"github.com/spigell/hh-matcher/internal/rerank"
	"github.com/spigell/hh-matcher/internal/retrieval"
)

const (
	// SummaryLimit is the number of runes of the source text shown to the
	// reranker.
	SummaryLimit = 500

	DefaultResumeInitialTopK = 50
	DefaultJobInitialTopK    = 100
	DefaultFinalTopK         = 10
)

// ErrInvalidQuery reports a query rejected before any backend call.
var ErrInvalidQuery = errors.New("invalid match query")

// Reranker orders a candidate pool. *rerank.Reranker implements it.
type Reranker interface {
	Rerank(ctx context.Context, querySummary string, candidates []rerank.Candidate, topK int) ([]rerank.Ranking, error)
}

// Defaults holds the top-k values used when a query leaves them at zero.
type Defaults struct {
	ResumeInitialTopK int
	JobInitialTopK    int
	FinalTopK         int
}

func (d Defaults) withFallbacks() Defaults {
	if d.ResumeInitialTopK <= 0 {
		d.ResumeInitialTopK = DefaultResumeInitialTopK
	}
	if d.JobInitialTopK <= 0 {
		d.JobInitialTopK = DefaultJobInitialTopK
	}
	if d.FinalTopK <= 0 {
		d.FinalTopK = DefaultFinalTopK
	}
	return d
}

// Matcher holds long-lived backend handles only and is safe for concurrent use.
type Matcher struct {
	embedder  embedding.Provider
	retriever retrieval.Retriever
	reranker  Reranker
	defaults  Defaults
	logger    *zap.Logger
}

// New creates a Matcher.
func New(embedder embedding.Provider, retriever retrieval.Retriever, reranker Reranker, defaults Defaults, log *zap.Logger) *Matcher {
	return &Matcher{
		embedder:  embedder,
		retriever: retriever,
		reranker:  reranker,
		defaults:  defaults.withFallbacks(),
		logger:    logger.OrNop(log),
	}
}

// FindTopMatches embeds the query, retrieves up to InitialTopK candidates
// from indexName, reranks them and returns at most FinalTopK results.
// Stage failures are returned as pipelineerr errors and are never retried.
func (m *Matcher) FindTopMatches(ctx context.Context, query MatchQuery, direction Direction, indexName string) ([]RankedResult, error) {
	initialTopK, finalTopK, err := m.resolve(query, direction)
	if err != nil {
		return nil, err
	}

	log := logger.WithFields(m.logger, logger.PipelineFields(uuid.NewString(), direction.String(), indexName)...)
	started := time.Now()

	vector, err := m.embedder.Embed(ctx, query.SourceText)
	if err != nil {
		return nil, pipelineerr.Embedding("embed query", err)
	}

	documents, err := m.retriever.Search(ctx, indexName, vector, initialTopK)
	if err != nil {
		return nil, pipelineerr.Retrieval("search", err)
	}

	log.Debug("retrieved candidates",
		zap.Int("documents", len(documents)),
		zap.Int("initial_top_k", initialTopK),
	)

	if len(documents) == 0 {
		log.Info("no candidates found")
		return []RankedResult{}, nil
	}

	candidates := BuildCandidates(documents, initialTopK)

	rankings, err := m.reranker.Rerank(ctx, Summary(direction, query.SourceText), rerankView(candidates), finalTopK)
	if err != nil {
		return nil, pipelineerr.Rerank("rerank", err)
	}

	results := Attach(candidates, rankings)

	log.Info("match finished",
		zap.Int("candidates", len(candidates)),
		zap.Int("results", len(results)),
		zap.Duration("elapsed", time.Since(started)),
	)

	return results, nil
}

func (m *Matcher) resolve(query MatchQuery, direction Direction) (int, int, error) {
	if !direction.Valid() {
		return 0, 0, fmt.Errorf("%w: unknown direction %q", ErrInvalidQuery, direction)
	}
	if query.InitialTopK < 0 {
		return 0, 0, fmt.Errorf("%w: initial top-k must not be negative", ErrInvalidQuery)
	}
	if query.FinalTopK < 0 {
		return 0, 0, fmt.Errorf("%w: final top-k must not be negative", ErrInvalidQuery)
	}

	initialTopK := query.InitialTopK
	if initialTopK == 0 {
		initialTopK = m.defaults.ResumeInitialTopK
		if direction == JobToResumes {
			initialTopK = m.defaults.JobInitialTopK
		}
	}

	finalTopK := query.FinalTopK
	if finalTopK == 0 {
		finalTopK = m.defaults.FinalTopK
	}

	return initialTopK, finalTopK, nil
}

// BuildCandidates keeps retrieval order and assigns indexes 0..N-1, keeping
// at most limit documents.
func BuildCandidates(documents []retrieval.Document, limit int) []Candidate {
	if limit >= 0 && len(documents) > limit {
		documents = documents[:limit]
	}

	candidates := make([]Candidate, len(documents))
	for i, doc := range documents {
		candidates[i] = Candidate{
			Index:       i,
			Title:       doc.Title,
			TextExcerpt: doc.TextExcerpt,
			VectorScore: doc.Score,
			SourceID:    doc.SourceID,
			Metadata:    doc.Metadata,
		}
	}
	return candidates
}

// Summary labels the first SummaryLimit runes of the source text.
func Summary(direction Direction, sourceText string) string {
	text := strings.TrimSpace(sourceText)
	if runes := []rune(text); len(runes) > SummaryLimit {
		text = string(runes[:SummaryLimit])
	}
	return direction.Label() + " " + text
}

func rerankView(candidates []Candidate) []rerank.Candidate {
	view := make([]rerank.Candidate, len(candidates))
	for i, candidate := range candidates {
		view[i] = rerank.Candidate{
			Index:       candidate.Index,
			Title:       candidate.Title,
			TextExcerpt: candidate.TextExcerpt,
		}
	}
	return view
}

// Attach joins rankings to their candidates by index. Rankings pointing
// outside the pool are discarded; ranks are renumbered so they stay dense.
func Attach(candidates []Candidate, rankings []rerank.Ranking) []RankedResult {
	results := make([]RankedResult, 0, len(rankings))
	for _, ranking := range rankings {
		if ranking.Index < 0 || ranking.Index >= len(candidates) {
			continue
		}

		results = append(results, RankedResult{
			Candidate:            candidates[ranking.Index],
			Rank:                 len(results) + 1,
			RerankScore:          ranking.Score,
			Reason:               ranking.Reason,
			HighlightedSkills:    nonNil(ranking.HighlightedSkills),
			Gaps:                 nonNil(ranking.Gaps),
			RecommendedQuestions: nonNil(ranking.RecommendedQuestions),
		})
	}
	return results
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
