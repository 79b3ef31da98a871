package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"google.golang.org/genai"
)

type stubContentEmbedder struct {
	resp   *genai.EmbedContentResponse
	err    error
	model  string
	config *genai.EmbedContentConfig
	text   string
}

func (s *stubContentEmbedder) EmbedContent(_ context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error) {
	s.model = model
	s.config = config
	if len(contents) > 0 && len(contents[0].Parts) > 0 {
		s.text = contents[0].Parts[0].Text
	}
	return s.resp, s.err
}

func TestGeminiBackendEmbedText(t *testing.T) {
	stub := &stubContentEmbedder{resp: &genai.EmbedContentResponse{
		Embeddings: []*genai.ContentEmbedding{{Values: []float32{0.5, 0.25}}},
	}}
	backend := &GeminiBackend{models: stub, model: "text-embedding-004", dimensions: 2, taskType: "RETRIEVAL_QUERY"}

	vector, err := backend.EmbedText(context.Background(), "Go developer")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(vector) != 2 || vector[0] != 0.5 {
		t.Fatalf("unexpected vector: %v", vector)
	}

	if stub.model != "text-embedding-004" || stub.text != "Go developer" {
		t.Fatalf("unexpected request: model=%q text=%q", stub.model, stub.text)
	}

	if stub.config.OutputDimensionality == nil || *stub.config.OutputDimensionality != 2 {
		t.Fatalf("expected output dimensionality to be forwarded")
	}

	if stub.config.TaskType != "RETRIEVAL_QUERY" {
		t.Fatalf("unexpected task type: %q", stub.config.TaskType)
	}
}

func TestGeminiBackendEmptyResponse(t *testing.T) {
	backend := &GeminiBackend{models: &stubContentEmbedder{resp: &genai.EmbedContentResponse{}}, model: "m"}
	if _, err := backend.EmbedText(context.Background(), "x"); err == nil {
		t.Fatal("expected error for empty response")
	}

	backend = &GeminiBackend{models: &stubContentEmbedder{err: errors.New("quota")}, model: "m"}
	if _, err := backend.EmbedText(context.Background(), "x"); err == nil {
		t.Fatal("expected transport error")
	}
}

func TestOpenAIBackendEmbedText(t *testing.T) {
	var received struct {
		Input []string `json:"input"`
		Model string   `json:"model"`
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/embeddings" {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","data":[{"object":"embedding","index":0,"embedding":[0.1,0.2,0.3]}],"model":"text-embedding-3-small","usage":{"prompt_tokens":2,"total_tokens":2}}`))
	}))
	defer server.Close()

	backend, err := NewOpenAI(OpenAIConfig{APIKey: "test", BaseURL: server.URL + "/v1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	vector, err := backend.EmbedText(context.Background(), "Go developer")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(vector) != 3 {
		t.Fatalf("expected 3 dimensions, got %d", len(vector))
	}

	if len(received.Input) != 1 || received.Input[0] != "Go developer" {
		t.Fatalf("unexpected input: %v", received.Input)
	}

	if received.Model != defaultOpenAIModel {
		t.Fatalf("unexpected model: %q", received.Model)
	}
}

func TestOpenAIBackendRequiresKey(t *testing.T) {
	if _, err := NewOpenAI(OpenAIConfig{}); err == nil {
		t.Fatal("expected error without api key")
	}
}
