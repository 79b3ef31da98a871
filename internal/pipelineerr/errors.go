// Package pipelineerr defines the failure taxonomy of the matching pipeline.
// Each stage (embedding, retrieval, rerank) reports its failures with its own
// error type so callers can tell backend outages apart from prompt regressions.
package pipelineerr

import (
	"errors"
	"fmt"
)

// Stage names a pipeline stage.
type Stage string

const (
	StageEmbedding Stage = "embedding"
	StageRetrieval Stage = "retrieval"
	StageRerank    Stage = "rerank"
)

// StageError is implemented by every pipeline error type.
type StageError interface {
	error
	Stage() Stage
}

// EmbeddingError reports an unreachable embedding backend, a malformed
// embedding response or a text pre-processing failure.
type EmbeddingError struct {
	Op  string
	Err error
}

func (e *EmbeddingError) Error() string { return format(StageEmbedding, e.Op, e.Err) }
func (e *EmbeddingError) Unwrap() error { return e.Err }
func (e *EmbeddingError) Stage() Stage  { return StageEmbedding }

// RetrievalError reports an unreachable vector search backend or a malformed
// search response. An empty result is not a RetrievalError.
type RetrievalError struct {
	Op  string
	Err error
}

func (e *RetrievalError) Error() string { return format(StageRetrieval, e.Op, e.Err) }
func (e *RetrievalError) Unwrap() error { return e.Err }
func (e *RetrievalError) Stage() Stage  { return StageRetrieval }

// RerankError reports an unreachable completion backend or a response that
// fails the structural requirements of the rerank output.
type RerankError struct {
	Op  string
	Err error
}

func (e *RerankError) Error() string { return format(StageRerank, e.Op, e.Err) }
func (e *RerankError) Unwrap() error { return e.Err }
func (e *RerankError) Stage() Stage  { return StageRerank }

// Embedding wraps err as an EmbeddingError. An error that already belongs to
// the embedding stage is returned unchanged.
func Embedding(op string, err error) error {
	if err == nil {
		return nil
	}
	var existing *EmbeddingError
	if errors.As(err, &existing) {
		return err
	}
	return &EmbeddingError{Op: op, Err: err}
}

// Retrieval wraps err as a RetrievalError.
func Retrieval(op string, err error) error {
	if err == nil {
		return nil
	}
	var existing *RetrievalError
	if errors.As(err, &existing) {
		return err
	}
	return &RetrievalError{Op: op, Err: err}
}

// Rerank wraps err as a RerankError.
func Rerank(op string, err error) error {
	if err == nil {
		return nil
	}
	var existing *RerankError
	if errors.As(err, &existing) {
		return err
	}
	return &RerankError{Op: op, Err: err}
}

// StageOf returns the stage that produced err, or an empty string when err
// did not come from a pipeline stage.
func StageOf(err error) Stage {
	var stageErr StageError
	if errors.As(err, &stageErr) {
		return stageErr.Stage()
	}
	return ""
}

func format(stage Stage, op string, err error) string {
	if op == "" {
		return fmt.Sprintf("%s: %v", stage, err)
	}
	return fmt.Sprintf("%s: %s: %v", stage, op, err)
}
