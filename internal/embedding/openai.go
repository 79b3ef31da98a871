package embedding

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
)

const defaultOpenAIModel = string(openai.SmallEmbedding3)

// OpenAIConfig configures the OpenAI (or OpenAI-compatible) embedding backend.
type OpenAIConfig struct {
	APIKey  string
	Model   string
	BaseURL string
	// Dimensions is forwarded for models that support shortened vectors.
	Dimensions int
}

// OpenAIBackend embeds text through the OpenAI embeddings endpoint.
type OpenAIBackend struct {
	client     *openai.Client
	model      string
	dimensions int
}

// NewOpenAI creates an OpenAI backend.
func NewOpenAI(cfg OpenAIConfig) (*OpenAIBackend, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("openai api key is required")
	}

	clientConfig := openai.DefaultConfig(apiKey)
	if baseURL := strings.TrimSpace(cfg.BaseURL); baseURL != "" {
		clientConfig.BaseURL = baseURL
	}

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultOpenAIModel
	}

	return &OpenAIBackend{
		client:     openai.NewClientWithConfig(clientConfig),
		model:      model,
		dimensions: cfg.Dimensions,
	}, nil
}

func (o *OpenAIBackend) Name() string  { return "openai" }
func (o *OpenAIBackend) Model() string { return o.model }

// EmbedText requests a single embedding.
func (o *OpenAIBackend) EmbedText(ctx context.Context, text string) ([]float32, error) {
	req := openai.EmbeddingRequest{
		Input:      []string{text},
		Model:      openai.EmbeddingModel(o.model),
		Dimensions: o.dimensions,
	}

	resp, err := o.client.CreateEmbeddings(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("openai create embeddings: %w", err)
	}

	if len(resp.Data) == 0 {
		return nil, errors.New("openai api returned no embeddings")
	}

	return resp.Data[0].Embedding, nil
}
