package estimator

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/apurv101/openbet/internal/domain"
)

// OpenAI is an estimator backed by any chat-completions-compatible API.
// With a base URL override it also serves Grok (x.ai) and Gemini through
// their OpenAI-compatible endpoints.
type OpenAI struct {
	cfg     Config
	client  *openai.Client
	limiter *rate.Limiter
}

func NewOpenAI(cfg Config) (*OpenAI, error) {
	cfg = cfg.withDefaults()
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("estimator %s: api key is required", cfg.Name)
	}
	if cfg.Model == "" {
		cfg.Model = openai.GPT4oMini
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	return &OpenAI{
		cfg:     cfg,
		client:  openai.NewClientWithConfig(clientConfig),
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerMinute/60), 1),
	}, nil
}

func (e *OpenAI) Name() string { return e.cfg.Name }

func (e *OpenAI) Analyze(ctx context.Context, prompt string) (domain.Judgment, error) {
	raw, err := e.complete(ctx, prompt)
	if err != nil {
		return domain.Judgment{}, err
	}
	return ParseJudgment(e.cfg.Name, raw)
}

func (e *OpenAI) EstimateOutcome(ctx context.Context, prompt string) (Probability, error) {
	raw, err := e.complete(ctx, prompt)
	if err != nil {
		return Probability{}, err
	}
	return ParseProbability(e.cfg.Name, raw)
}

func (e *OpenAI) complete(ctx context.Context, prompt string) (string, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("estimator %s: rate gate: %w", e.cfg.Name, err)
	}

	ctx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: e.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   e.cfg.MaxTokens,
		Temperature: 0.3,
	})
	if err != nil {
		return "", fmt.Errorf("estimator %s: %w: chat completion: %w", e.cfg.Name, domain.ErrProviderFailure, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("estimator %s: %w: empty completion", e.cfg.Name, domain.ErrProviderFailure)
	}
	return resp.Choices[0].Message.Content, nil
}
