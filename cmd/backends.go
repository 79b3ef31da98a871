package cmd

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spigell/hh-matcher/internal/ai"
	"github.com/spigell/hh-matcher/internal/ai/gemini"
	"github.com/spigell/hh-matcher/internal/ai/mock"
	"github.com/spigell/hh-matcher/internal/ai/openai"
	"github.com/spigell/hh-matcher/internal/embedding"
	"github.com/spigell/hh-matcher/internal/headhunter"
	"github.com/spigell/hh-matcher/internal/matching"
	"github.com/spigell/hh-matcher/internal/rerank"
	"github.com/spigell/hh-matcher/internal/retrieval"
	"github.com/spigell/hh-matcher/internal/retrieval/memory"
	"github.com/spigell/hh-matcher/internal/retrieval/postgres"
	"github.com/spigell/hh-matcher/internal/retrieval/sqlitevec"
	"github.com/spigell/hh-matcher/internal/secrets"
)

const (
	geminiAPIKeyEnv = "GEMINI_API_KEY"
	openaiAPIKeyEnv = "OPENAI_API_KEY"
	hhTokenEnv      = "HH_TOKEN"
)

// pipeline bundles the long-lived backend handles of one process.
type pipeline struct {
	embedder *embedding.Embedder
	store    retrieval.Store
	matcher  *matching.Matcher
}

func (p *pipeline) Close() error {
	if p == nil || p.store == nil {
		return nil
	}
	return p.store.Close()
}

func newPipeline(ctx context.Context, config *Config, logger *zap.Logger) (*pipeline, error) {
	embedder, err := newEmbedder(ctx, config.Embedding, logger)
	if err != nil {
		return nil, fmt.Errorf("building embedder: %w", err)
	}

	completer, err := newCompleter(ctx, config.Rerank, logger)
	if err != nil {
		return nil, fmt.Errorf("building rerank completer: %w", err)
	}

	store, err := newStore(ctx, config.Retrieval)
	if err != nil {
		return nil, fmt.Errorf("opening %s retrieval backend: %w", config.Retrieval.Backend, err)
	}

	reranker := rerank.New(completer, logger.With(zap.String("component", "rerank")), config.Rerank.MaxLogLength)

	return &pipeline{
		embedder: embedder,
		store:    store,
		matcher:  matching.New(embedder, store, reranker, config.matchingDefaults(), logger),
	}, nil
}

func newEmbedder(ctx context.Context, cfg *EmbeddingConfig, logger *zap.Logger) (*embedding.Embedder, error) {
	var backend embedding.Backend

	switch cfg.Provider {
	case "gemini":
		apiKey, err := secrets.Load(secrets.Source{
			Name:  "gemini embedding api key",
			Value: cfg.APIKey,
			File:  cfg.APIKeyFile,
			Env:   geminiAPIKeyEnv,
		})
		if err != nil {
			return nil, err
		}
		backend, err = embedding.NewGemini(ctx, embedding.GeminiConfig{
			APIKey:     apiKey,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
			TaskType:   cfg.TaskType,
		})
		if err != nil {
			return nil, err
		}
	case "openai":
		apiKey, err := secrets.Load(secrets.Source{
			Name:  "openai embedding api key",
			Value: cfg.APIKey,
			File:  cfg.APIKeyFile,
			Env:   openaiAPIKeyEnv,
		})
		if err != nil {
			return nil, err
		}
		backend, err = embedding.NewOpenAI(embedding.OpenAIConfig{
			APIKey:     apiKey,
			Model:      cfg.Model,
			BaseURL:    cfg.BaseURL,
			Dimensions: cfg.Dimensions,
		})
		if err != nil {
			return nil, err
		}
	case modeMock:
		backend = embedding.NewMock(cfg.Dimensions)
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Provider)
	}

	return embedding.New(backend, cfg.MaxChars, logger), nil
}

func newCompleter(ctx context.Context, cfg *RerankConfig, logger *zap.Logger) (ai.Completer, error) {
	switch cfg.Provider {
	case "gemini":
		apiKey, err := secrets.Load(secrets.Source{
			Name:  "gemini api key",
			Value: cfg.APIKey,
			File:  cfg.APIKeyFile,
			Env:   geminiAPIKeyEnv,
		})
		if err != nil {
			return nil, fmt.Errorf("%w (set rerank.api-key-file or %s)", err, geminiAPIKeyEnv)
		}

		genLogger := logger.With(zap.Int("ai_retry_attempts", cfg.MaxRetries))
		generator, err := gemini.NewGenerator(ctx, apiKey, cfg.Model, cfg.MaxRetries, genLogger)
		if err != nil {
			return nil, err
		}
		return generator, nil
	case "openai":
		apiKey, err := secrets.Load(secrets.Source{
			Name:  "openai api key",
			Value: cfg.APIKey,
			File:  cfg.APIKeyFile,
			Env:   openaiAPIKeyEnv,
		})
		if err != nil {
			return nil, fmt.Errorf("%w (set rerank.api-key-file or %s)", err, openaiAPIKeyEnv)
		}

		completer, err := openai.New(openai.Config{APIKey: apiKey, Model: cfg.Model, BaseURL: cfg.BaseURL}, logger)
		if err != nil {
			return nil, err
		}
		return completer, nil
	case modeMock:
		return mock.New(), nil
	default:
		return nil, fmt.Errorf("unsupported rerank provider: %s", cfg.Provider)
	}
}

func newStore(ctx context.Context, cfg *RetrievalConfig) (retrieval.Store, error) {
	switch cfg.Backend {
	case backendMemory:
		return memory.New(), nil
	case backendSQLiteVec:
		store, err := sqlitevec.Open(cfg.Path)
		if err != nil {
			return nil, err
		}
		return store, nil
	case backendPostgres:
		store, err := postgres.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported retrieval backend: %s", cfg.Backend)
	}
}

func newHeadhunter(cfg *HeadhunterConfig, logger *zap.Logger) (*headhunter.Client, error) {
	token, err := secrets.Load(secrets.Source{
		Name: "headhunter token",
		File: cfg.TokenFile,
		Env:  hhTokenEnv,
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set headhunter.token-file or %s)", err, hhTokenEnv)
	}

	hh := headhunter.New(logger, token, cfg.UserAgent)
	hh.MaxPages = cfg.MaxPages

	return hh, nil
}
