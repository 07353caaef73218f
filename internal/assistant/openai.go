package assistant

import (
	"context"
	"fmt"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/airsial/opshub/internal/config"
	"github.com/airsial/opshub/pkg/logger"
)

// Generator produces a model-written answer. Implementations must honor the
// context deadline.
type Generator interface {
	Generate(ctx context.Context, system, user string) (string, error)
}

// OpenAIGenerator calls an OpenAI-compatible chat completion endpoint.
// Pointing BaseURL at Groq or a local proxy works unchanged.
type OpenAIGenerator struct {
	client      openai.Client
	model       string
	temperature float64
	maxTokens   int64
	logger      *logger.Logger
}

// NewOpenAIGenerator builds a generator from the assistant settings.
func NewOpenAIGenerator(cfg config.AssistantConfig, log *logger.Logger) (*OpenAIGenerator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("assistant API key is required")
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.RequestTimeoutSeconds > 0 {
		opts = append(opts, option.WithRequestTimeout(time.Duration(cfg.RequestTimeoutSeconds)*time.Second))
	}

	return &OpenAIGenerator{
		client:      openai.NewClient(opts...),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   int64(cfg.MaxTokens),
		logger:      log.Named("assistant-llm"),
	}, nil
}

// Generate sends one system+user exchange and returns the first choice.
func (g *OpenAIGenerator) Generate(ctx context.Context, system, user string) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(g.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
	}
	if g.temperature > 0 {
		params.Temperature = openai.Float(g.temperature)
	}
	if g.maxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(g.maxTokens)
	}

	start := time.Now()
	resp, err := g.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("chat completion request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}

	g.logger.Debug("Chat completion finished",
		logger.String("model", g.model),
		logger.Duration("elapsed", time.Since(start)))
	return resp.Choices[0].Message.Content, nil
}
