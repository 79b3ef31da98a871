// Package openai implements ai.Completer on top of the OpenAI chat
// completions API and compatible gateways.
package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/spigell/hh-matcher/internal/ai"
	"github.com/spigell/hh-matcher/internal/logger"
)

const defaultModel = openai.GPT4oMini

// Config configures the chat completion backend.
type Config struct {
	APIKey  string
	Model   string
	BaseURL string
}

// Completer sends prompts as a system + user chat and returns the reply text.
type Completer struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

// New creates a Completer.
func New(cfg Config, log *zap.Logger) (*Completer, error) {
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
		model = defaultModel
	}

	return &Completer{
		client: openai.NewClientWithConfig(clientConfig),
		model:  model,
		logger: logger.WithCommonFields(log, "openai", model),
	}, nil
}

// Complete implements ai.Completer. Sampling is deterministic and the reply
// is constrained to a JSON object.
func (c *Completer) Complete(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", errors.New("prompt must not be empty")
	}

	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: ai.SystemInstruction},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("openai create chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", errors.New("openai api returned no choices")
	}

	output := strings.TrimSpace(resp.Choices[0].Message.Content)
	if output == "" {
		return "", errors.New("openai api returned empty response")
	}

	logger.OrNop(c.logger).Debug("openai completion finished",
		zap.String("finish_reason", string(resp.Choices[0].FinishReason)),
		zap.Int("total_tokens", resp.Usage.TotalTokens),
	)

	return output, nil
}

// Model returns the configured model name.
func (c *Completer) Model() string { return c.model }

var _ ai.Completer = (*Completer)(nil)
