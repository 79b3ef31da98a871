package embedding

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

const defaultGeminiModel = "text-embedding-004"

type contentEmbedder interface {
	EmbedContent(ctx context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error)
}

// GeminiConfig configures the Gemini embedding backend.
type GeminiConfig struct {
	APIKey     string
	Model      string
	Dimensions int
	// TaskType is passed through to the API, e.g. RETRIEVAL_DOCUMENT.
	TaskType string
}

// GeminiBackend embeds text with the Gemini embeddings API.
type GeminiBackend struct {
	models     contentEmbedder
	model      string
	dimensions int
	taskType   string
}

// NewGemini creates a Gemini backend with its own long-lived genai client.
func NewGemini(ctx context.Context, cfg GeminiConfig) (*GeminiBackend, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultGeminiModel
	}

	return &GeminiBackend{
		models:     client.Models,
		model:      model,
		dimensions: cfg.Dimensions,
		taskType:   strings.TrimSpace(cfg.TaskType),
	}, nil
}

func (g *GeminiBackend) Name() string  { return "gemini" }
func (g *GeminiBackend) Model() string { return g.model }

// EmbedText requests a single embedding.
func (g *GeminiBackend) EmbedText(ctx context.Context, text string) ([]float32, error) {
	cfg := &genai.EmbedContentConfig{TaskType: g.taskType}
	if g.dimensions > 0 {
		dims := int32(g.dimensions)
		cfg.OutputDimensionality = &dims
	}

	resp, err := g.models.EmbedContent(ctx, g.model, genai.Text(text), cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini embed content: %w", err)
	}

	if resp == nil || len(resp.Embeddings) == 0 || resp.Embeddings[0] == nil {
		return nil, errors.New("gemini api returned no embeddings")
	}

	return resp.Embeddings[0].Values, nil
}
