// Package rerank orders a bounded candidate pool with a generative model and
// parses the model's structured answer defensively.
package rerank

import (
	"context"
	"errors"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/spigell/hh-matcher/internal/ai"
	"github.com/spigell/hh-matcher/internal/logger"
	"github.com/spigell/hh-matcher/internal/pipelineerr"
)

const defaultMaxLogLength = 200

// Candidate is the part of a retrieved document the model is allowed to see.
type Candidate struct {
	Index       int
	Title       string
	TextExcerpt string
}

// Ranking is one validated entry of the model's answer.
type Ranking struct {
	Index                int
	Rank                 int
	Score                float64
	Reason               string
	HighlightedSkills    []string
	Gaps                 []string
	RecommendedQuestions []string
}

// Reranker builds the prompt, calls the completer once and parses the reply.
type Reranker struct {
	completer ai.Completer
	logger    *zap.Logger
	maxLogLen int
}

// New creates a Reranker. maxLogLength bounds prompt and response previews in
// debug logs.
func New(completer ai.Completer, log *zap.Logger, maxLogLength int) *Reranker {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}

	return &Reranker{
		completer: completer,
		logger:    logger.OrNop(log),
		maxLogLen: maxLogLength,
	}
}

// Rerank returns at most min(len(candidates), MaxResults, topK) rankings.
// Backend failures and structurally invalid answers are returned as
// pipelineerr.RerankError.
func (r *Reranker) Rerank(ctx context.Context, querySummary string, candidates []Candidate, topK int) ([]Ranking, error) {
	if r == nil || r.completer == nil {
		return nil, pipelineerr.Rerank("complete", errors.New("completer is not configured"))
	}

	prompt := BuildPrompt(querySummary, candidates, topK)

	r.logger.Debug("rerank request",
		zap.Int("candidates", len(candidates)),
		zap.Int("top_k", topK),
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", logger.TruncateForLog(prompt, r.maxLogLen)),
	)

	raw, err := r.completer.Complete(ctx, prompt)
	if err != nil {
		return nil, pipelineerr.Rerank("complete", err)
	}

	r.logger.Debug("rerank response",
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", logger.TruncateForLog(raw, r.maxLogLen)),
	)

	rankings, err := parse(raw, len(candidates), topK, r.logger)
	if err != nil {
		return nil, pipelineerr.Rerank("parse", err)
	}

	return rankings, nil
}
