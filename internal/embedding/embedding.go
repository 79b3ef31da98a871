// Package embedding turns text into dense vectors. A single Embedder owns the
// input pre-processing (length cap, word-boundary truncation) and the error
// contract; provider backends only perform the remote call.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/spigell/hh-matcher/internal/logger"
	"github.com/spigell/hh-matcher/internal/pipelineerr"
)

// DefaultMaxChars is the input cap applied when a backend does not declare one.
const DefaultMaxChars = 2048

// Provider is the embedding capability consumed by the matching pipeline.
type Provider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Backend performs the actual embedding call for already pre-processed text.
type Backend interface {
	Name() string
	Model() string
	EmbedText(ctx context.Context, text string) ([]float32, error)
}

// Embedder is the Provider used by the application.
type Embedder struct {
	backend  Backend
	maxChars int
	logger   *zap.Logger
}

// New wraps backend. maxChars <= 0 falls back to DefaultMaxChars.
func New(backend Backend, maxChars int, log *zap.Logger) *Embedder {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}

	var fields []zap.Field
	if backend != nil {
		fields = logger.CommonFields(backend.Name(), backend.Model())
	}

	return &Embedder{
		backend:  backend,
		maxChars: maxChars,
		logger:   logger.WithFields(log, fields...),
	}
}

// Embed truncates text to the configured limit and returns its vector.
// Every failure is reported as a pipelineerr.EmbeddingError.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if e == nil || e.backend == nil {
		return nil, pipelineerr.Embedding("embed", errors.New("embedding backend is not configured"))
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, pipelineerr.Embedding("prepare", errors.New("text must not be empty"))
	}

	prepared := Truncate(text, e.maxChars)
	if original, kept := utf8.RuneCountInString(text), utf8.RuneCountInString(prepared); kept < original {
		e.logger.Debug("embedding input truncated",
			zap.Int("original_length", original),
			zap.Int("truncated_length", kept),
			zap.Int("limit", e.maxChars),
		)
	}

	vector, err := e.backend.EmbedText(ctx, prepared)
	if err != nil {
		return nil, pipelineerr.Embedding("embed", err)
	}

	if err := validateVector(vector); err != nil {
		return nil, pipelineerr.Embedding("embed", err)
	}

	return vector, nil
}

// MaxChars returns the input cap applied before each call.
func (e *Embedder) MaxChars() int {
	return e.maxChars
}

func validateVector(vector []float32) error {
	if len(vector) == 0 {
		return errors.New("backend returned an empty vector")
	}
	for i, v := range vector {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("backend returned a non-finite value at position %d", i)
		}
	}
	return nil
}
