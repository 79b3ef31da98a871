package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/spigell/hh-matcher/internal/headhunter"
	"github.com/spigell/hh-matcher/internal/matching"
)

const (
	modeProduction = "production"
	modeMock       = "mock"

	backendMemory    = "memory"
	backendSQLiteVec = "sqlitevec"
	backendPostgres  = "postgres"
)

type Config struct {
	Mode       string            `mapstructure:"mode" validate:"oneof=production mock"`
	Embedding  *EmbeddingConfig  `mapstructure:"embedding" validate:"required"`
	Rerank     *RerankConfig     `mapstructure:"rerank" validate:"required"`
	Retrieval  *RetrievalConfig  `mapstructure:"retrieval" validate:"required"`
	Indexes    *IndexesConfig    `mapstructure:"indexes" validate:"required"`
	Matching   *MatchingConfig   `mapstructure:"matching" validate:"required"`
	Headhunter *HeadhunterConfig `mapstructure:"headhunter"`
}

type EmbeddingConfig struct {
	Provider   string `mapstructure:"provider" validate:"oneof=gemini openai mock"`
	Model      string `mapstructure:"model"`
	APIKey     string `mapstructure:"api-key"`
	APIKeyFile string `mapstructure:"api-key-file"`
	BaseURL    string `mapstructure:"base-url" validate:"omitempty,url"`
	Dimensions int    `mapstructure:"dimensions" validate:"gte=0"`
	MaxChars   int    `mapstructure:"max-chars" validate:"gte=0"`
	TaskType   string `mapstructure:"task-type"`
}

type RerankConfig struct {
	Provider     string `mapstructure:"provider" validate:"oneof=gemini openai mock"`
	Model        string `mapstructure:"model"`
	APIKey       string `mapstructure:"api-key"`
	APIKeyFile   string `mapstructure:"api-key-file"`
	BaseURL      string `mapstructure:"base-url" validate:"omitempty,url"`
	MaxRetries   int    `mapstructure:"max-retries" validate:"gte=0"`
	MaxLogLength int    `mapstructure:"max-log-length" validate:"gte=0"`
}

type RetrievalConfig struct {
	Backend     string `mapstructure:"backend" validate:"oneof=memory sqlitevec postgres"`
	Path        string `mapstructure:"path" validate:"required_if=Backend sqlitevec"`
	DatabaseURL string `mapstructure:"database-url" validate:"required_if=Backend postgres"`
}

type IndexesConfig struct {
	Jobs    string `mapstructure:"jobs" validate:"required"`
	Resumes string `mapstructure:"resumes" validate:"required"`
}

type MatchingConfig struct {
	ResumeInitialTopK int `mapstructure:"resume-initial-top-k" validate:"gte=0"`
	JobInitialTopK    int `mapstructure:"job-initial-top-k" validate:"gte=0"`
	FinalTopK         int `mapstructure:"final-top-k" validate:"gte=0"`
	IndexConcurrency  int `mapstructure:"index-concurrency" validate:"gte=0"`
}

type HeadhunterConfig struct {
	TokenFile string                   `mapstructure:"token-file"`
	UserAgent string                   `mapstructure:"user-agent"`
	MaxPages  int                      `mapstructure:"max-pages" validate:"gte=0"`
	Search    *headhunter.SearchParams `mapstructure:"search"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", modeProduction)

	v.SetDefault("embedding.provider", "gemini")
	v.SetDefault("embedding.model", "")
	v.SetDefault("embedding.api-key", "")
	v.SetDefault("embedding.api-key-file", "")
	v.SetDefault("embedding.base-url", "")
	v.SetDefault("embedding.dimensions", 0)
	v.SetDefault("embedding.max-chars", 2048)
	v.SetDefault("embedding.task-type", "SEMANTIC_SIMILARITY")

	v.SetDefault("rerank.provider", "gemini")
	v.SetDefault("rerank.model", "")
	v.SetDefault("rerank.api-key", "")
	v.SetDefault("rerank.api-key-file", "")
	v.SetDefault("rerank.base-url", "")
	v.SetDefault("rerank.max-retries", 3)
	v.SetDefault("rerank.max-log-length", 200)

	v.SetDefault("retrieval.backend", "")
	v.SetDefault("retrieval.path", "hh-matcher.db")
	v.SetDefault("retrieval.database-url", "")

	v.SetDefault("indexes.jobs", "jobs")
	v.SetDefault("indexes.resumes", "resumes")

	v.SetDefault("matching.resume-initial-top-k", matching.DefaultResumeInitialTopK)
	v.SetDefault("matching.job-initial-top-k", matching.DefaultJobInitialTopK)
	v.SetDefault("matching.final-top-k", matching.DefaultFinalTopK)
	v.SetDefault("matching.index-concurrency", 4)

	v.SetDefault("headhunter.token-file", "")
	v.SetDefault("headhunter.user-agent", "")
	v.SetDefault("headhunter.max-pages", 0)
}

// loadConfig decodes and validates the configuration. Mock mode replaces
// every external backend with its offline counterpart.
func loadConfig(v *viper.Viper) (*Config, error) {
	var config *Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if config == nil {
		return nil, errors.New("config is empty")
	}

	config.Mode = strings.ToLower(strings.TrimSpace(config.Mode))
	if config.Mode == modeMock {
		config.Embedding.Provider = modeMock
		config.Rerank.Provider = modeMock
	}

	if config.Retrieval.Backend == "" {
		config.Retrieval.Backend = backendSQLiteVec
		if config.Mode == modeMock {
			config.Retrieval.Backend = backendMemory
		}
	}

	if config.Headhunter == nil {
		config.Headhunter = &HeadhunterConfig{}
	}

	if err := validator.New().Struct(config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return config, nil
}

func (c *Config) matchingDefaults() matching.Defaults {
	return matching.Defaults{
		ResumeInitialTopK: c.Matching.ResumeInitialTopK,
		JobInitialTopK:    c.Matching.JobInitialTopK,
		FinalTopK:         c.Matching.FinalTopK,
	}
}

// indexFor returns the index searched in the given direction.
func (c *Config) indexFor(direction matching.Direction) string {
	if direction == matching.JobToResumes {
		return c.Indexes.Resumes
	}
	return c.Indexes.Jobs
}
