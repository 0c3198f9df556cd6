package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/tubeask/internal/domain"
	"github.com/kailas-cloud/tubeask/internal/metrics"
)

// defaultSystemPrompt is used when a channel has no prompt override.
const defaultSystemPrompt = "You answer questions about a YouTube channel's archived videos. " +
	"Ground every answer strictly in the provided archive excerpts. " +
	"If the excerpts do not contain the answer, say so plainly."

// Completer is a chat-completion provider using the OpenAI-compatible API.
type Completer struct {
	client *openai.Client
	logger *zap.Logger
}

// Config holds the completion provider settings.
type Config struct {
	APIKey  string
	BaseURL string
	Logger  *zap.Logger
}

// NewCompleter creates an OpenAI-compatible chat-completion provider.
func NewCompleter(cfg *Config) *Completer {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &Completer{
		client: openai.NewClientWithConfig(clientCfg),
		logger: cfg.Logger,
	}
}

// Complete sends the context and question to the model and returns its
// reply text. Failures surface as domain.ErrProviderTimeout or
// domain.ErrProviderError; the caller owns retry policy.
func (c *Completer) Complete(ctx context.Context, req domain.CompletionRequest) (string, error) {
	system := req.SystemPrompt
	if system == "" {
		system = defaultSystemPrompt
	}

	chatReq := openai.ChatCompletionRequest{
		Model: req.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: userMessage(req)},
		},
	}

	start := time.Now()

	resp, err := c.client.CreateChatCompletion(ctx, chatReq)

	duration := time.Since(start)

	if err != nil {
		metrics.ProviderRequestsTotal.WithLabelValues(req.Model, "error").Inc()
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			metrics.ProviderErrorsTotal.WithLabelValues(req.Model, "timeout").Inc()
			c.logger.Warn("Chat completion timed out",
				zap.String("model", req.Model), zap.Duration("after", duration))
			return "", fmt.Errorf("chat completion: %w", domain.ErrProviderTimeout)
		}
		metrics.ProviderErrorsTotal.WithLabelValues(req.Model, "api_error").Inc()
		c.logger.Warn("Chat completion failed",
			zap.String("model", req.Model), zap.Error(err))
		return "", parseAPIError(err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		metrics.ProviderRequestsTotal.WithLabelValues(req.Model, "error").Inc()
		metrics.ProviderErrorsTotal.WithLabelValues(req.Model, "empty_response").Inc()
		c.logger.Warn("Chat completion returned no content", zap.String("model", req.Model))
		return "", fmt.Errorf("empty completion response: %w", domain.ErrProviderError)
	}

	metrics.ProviderRequestsTotal.WithLabelValues(req.Model, "success").Inc()
	metrics.ProviderRequestDuration.WithLabelValues(req.Model).Observe(duration.Seconds())

	return resp.Choices[0].Message.Content, nil
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (c *Completer) HealthCheck(ctx context.Context) error {
	if _, err := c.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

// userMessage renders the archive context and the question into one prompt.
func userMessage(req domain.CompletionRequest) string {
	return "Archive excerpts:\n\n" + req.ContextText + "\nQuestion: " + req.Question
}

// parseAPIError extracts a human-readable error from the API response.
// All errors are wrapped with domain.ErrProviderError for correct mapping.
func parseAPIError(err error) error {
	wrap := domain.ErrProviderError

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		detail := extractDetail(reqErr.Body)
		if detail != "" {
			return fmt.Errorf("completion API error %d: %s: %w",
				reqErr.HTTPStatusCode, detail, wrap)
		}
		return fmt.Errorf("completion API error %d: %s: %w",
			reqErr.HTTPStatusCode, string(reqErr.Body), wrap)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("completion API error %d: %s: %w",
			apiErr.HTTPStatusCode, apiErr.Message, wrap)
	}

	return fmt.Errorf("completion request failed: %w", wrap)
}

// extractDetail extracts the "detail" field from a JSON error body.
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Detail != "" {
		return parsed.Detail
	}
	return ""
}
