package chat

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/campusbrain/campusbrain/internal/domain"
	"github.com/campusbrain/campusbrain/internal/metrics"
)

// Client is a chat completion provider using an OpenAI-compatible API.
type Client struct {
	client   *openai.Client
	model    string
	provider string
	logger   *zap.Logger
}

// Config holds the chat provider settings.
type Config struct {
	APIKey   string
	BaseURL  string
	Model    string
	Provider string
	Logger   *zap.Logger
}

// NewClient creates an OpenAI-compatible chat completion provider.
func NewClient(cfg *Config) *Client {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = cfg.BaseURL

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		client:   openai.NewClientWithConfig(clientCfg),
		model:    cfg.Model,
		provider: cfg.Provider,
		logger:   logger,
	}
}

// Request is a single system+user completion call.
type Request struct {
	Model       string // empty means the configured default
	System      string
	User        string
	Temperature float32
	MaxTokens   int
}

// Complete runs one chat completion and returns the raw assistant text.
func (c *Client) Complete(ctx context.Context, req Request) (string, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}

	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.User,
	})

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	duration := time.Since(start)

	if err != nil {
		metrics.ChatRequestsTotal.WithLabelValues(c.provider, model, "error").Inc()
		return "", c.mapError(err, model)
	}

	metrics.ChatRequestsTotal.WithLabelValues(c.provider, model, "success").Inc()
	metrics.ChatRequestDuration.WithLabelValues(c.provider, model).Observe(duration.Seconds())

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty chat response: %w", domain.ErrChatProviderError)
	}
	return resp.Choices[0].Message.Content, nil
}

// mapError classifies provider failures so callers can branch on sentinels.
func (c *Client) mapError(err error, model string) error {
	status := 0

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		status = reqErr.HTTPStatusCode
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		status = apiErr.HTTPStatusCode
	}

	c.logger.Error("chat completion failed",
		zap.String("model", model),
		zap.Int("status", status),
		zap.Error(err),
	)

	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("chat API status %d: %w", status, domain.ErrUnauthorized)
	case http.StatusTooManyRequests:
		return fmt.Errorf("chat API status %d: %w", status, domain.ErrRateLimited)
	default:
		return fmt.Errorf("chat API failure: %w", domain.ErrChatProviderError)
	}
}
