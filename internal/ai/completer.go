// Package ai holds the generative completion backends used for reranking.
package ai

import "context"

// Completer returns the raw text a generative model produces for prompt.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// SystemInstruction is sent alongside every rerank prompt by backends that
// support a separate system role.
const SystemInstruction = "You are a meticulous technical recruiter. " +
	"You only use facts present in the provided texts and you always answer with a single JSON object."
