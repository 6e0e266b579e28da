package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/campusbrain/campusbrain/internal/domain"
	"github.com/campusbrain/campusbrain/internal/metrics"
)

const (
	// MaxChars is the per-input character ceiling; longer inputs are truncated.
	MaxChars = 8000

	defaultBatchSize = 16
	defaultPause     = 150 * time.Millisecond
	bodyPreviewLimit = 2000
)

// Client is a batched embedding provider using an OpenAI-compatible API.
type Client struct {
	client    *openai.Client
	model     openai.EmbeddingModel
	batchSize int
	pause     time.Duration
	provider  string
	logger    *zap.Logger
}

// Config holds the embedding provider settings.
type Config struct {
	APIKey    string
	BaseURL   string
	Model     string
	BatchSize int
	Pause     time.Duration
	Provider  string
	Logger    *zap.Logger
}

// NewClient creates an OpenAI-compatible embedding provider.
func NewClient(cfg *Config) *Client {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = cfg.BaseURL

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	pause := cfg.Pause
	if pause == 0 {
		pause = defaultPause
	}
	if pause < 0 {
		pause = 0
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		client:    openai.NewClientWithConfig(clientCfg),
		model:     openai.EmbeddingModel(cfg.Model),
		batchSize: batchSize,
		pause:     pause,
		provider:  cfg.Provider,
		logger:    logger,
	}
}

// ProviderError carries diagnostics for a failed embedding batch.
type ProviderError struct {
	Status    int
	BatchSize int
	SampleLen int
	Body      string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("embedding API error %d (batch=%d, sample_len=%d): %s",
		e.Status, e.BatchSize, e.SampleLen, e.Body)
}

func (e *ProviderError) Unwrap() error { return domain.ErrEmbeddingProviderError }

// SanitizeTexts trims inputs, truncates anything over MaxChars, and drops
// blank entries. Output order follows input order of the surviving entries.
func SanitizeTexts(texts []string) []string {
	clean := make([]string, 0, len(texts))
	for _, s := range texts {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if r := []rune(s); len(r) > MaxChars {
			s = string(r[:MaxChars])
		}
		clean = append(clean, s)
	}
	return clean
}

// Embed converts texts into dense vectors. Inputs are sanitized first, then
// sent in fixed-size batches with a pause between consecutive batches. This
// sequential pacing is a rate-limiting strategy, not an oversight. The output
// length and order match the sanitized input.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	clean := SanitizeTexts(texts)
	if len(clean) == 0 {
		return nil, fmt.Errorf("%w: no valid texts to embed", domain.ErrInvalidArgument)
	}

	out := make([][]float32, 0, len(clean))
	for i := 0; i < len(clean); i += c.batchSize {
		if i > 0 && c.pause > 0 {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("embed paused: %w", ctx.Err())
			case <-time.After(c.pause):
			}
		}

		end := min(i+c.batchSize, len(clean))
		vecs, err := c.embedBatch(ctx, clean[i:end])
		if err != nil {
			return nil, err
		}
		out = append(out, vecs...)
	}

	return out, nil
}

func (c *Client) embedBatch(ctx context.Context, batch []string) ([][]float32, error) {
	req := openai.EmbeddingRequest{
		Input:          batch,
		Model:          c.model,
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
	}

	start := time.Now()
	resp, err := c.client.CreateEmbeddings(ctx, req)
	duration := time.Since(start)

	if err != nil {
		metrics.EmbeddingRequestsTotal.WithLabelValues(c.provider, string(c.model), "error").Inc()
		perr := c.parseAPIError(err, batch)
		c.logger.Error("embedding batch failed",
			zap.Int("batch_size", len(batch)),
			zap.String("model", string(c.model)),
			zap.Error(perr),
		)
		return nil, perr
	}

	if len(resp.Data) != len(batch) {
		metrics.EmbeddingRequestsTotal.WithLabelValues(c.provider, string(c.model), "error").Inc()
		return nil, fmt.Errorf("embedding response has %d vectors for %d inputs: %w",
			len(resp.Data), len(batch), domain.ErrEmbeddingProviderError)
	}

	metrics.EmbeddingRequestsTotal.WithLabelValues(c.provider, string(c.model), "success").Inc()
	metrics.EmbeddingRequestDuration.WithLabelValues(c.provider, string(c.model)).Observe(duration.Seconds())
	if resp.Usage.TotalTokens > 0 {
		metrics.EmbeddingTokensTotal.WithLabelValues(c.provider, string(c.model), "prompt").
			Add(float64(resp.Usage.PromptTokens))
		metrics.EmbeddingTokensTotal.WithLabelValues(c.provider, string(c.model), "total").
			Add(float64(resp.Usage.TotalTokens))
	}

	vecs := make([][]float32, len(resp.Data))
	for i, d := range resp.Data {
		vecs[i] = d.Embedding
	}
	return vecs, nil
}

// parseAPIError maps go-openai errors onto a ProviderError with batch diagnostics.
func (c *Client) parseAPIError(err error, batch []string) error {
	sampleLen := 0
	if len(batch) > 0 {
		sampleLen = len(batch[0])
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &ProviderError{
			Status:    reqErr.HTTPStatusCode,
			BatchSize: len(batch),
			SampleLen: sampleLen,
			Body:      truncateBody(reqErr.Body),
		}
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &ProviderError{
			Status:    apiErr.HTTPStatusCode,
			BatchSize: len(batch),
			SampleLen: sampleLen,
			Body:      extractDetail(apiErr),
		}
	}

	return fmt.Errorf("embedding request failed: %w", domain.ErrEmbeddingProviderError)
}

func truncateBody(body []byte) string {
	s := string(body)
	if len(s) > bodyPreviewLimit {
		return s[:bodyPreviewLimit]
	}
	return s
}

func extractDetail(apiErr *openai.APIError) string {
	if apiErr.Message != "" {
		return apiErr.Message
	}
	raw, _ := json.Marshal(apiErr)
	return truncateBody(raw)
}
