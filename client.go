// Package tubeask is the embedded client: open channel archives directly
// and answer questions in-process, without running the HTTP server.
package tubeask

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kailas-cloud/tubeask/internal/domain"
	"github.com/kailas-cloud/tubeask/internal/repository/archive"
	openaiProvider "github.com/kailas-cloud/tubeask/internal/transport/openai"
	answeruc "github.com/kailas-cloud/tubeask/internal/usecase/answer"
	promptuc "github.com/kailas-cloud/tubeask/internal/usecase/prompt"
	registryuc "github.com/kailas-cloud/tubeask/internal/usecase/registry"
	searchuc "github.com/kailas-cloud/tubeask/internal/usecase/search"
)

// Answer is the structured reply for one question.
type Answer struct {
	Text         string
	References   []string // video ids the answer is grounded in
	FallbackUsed bool
	Cached       bool
}

// SearchResult is one ranked video from the retrieval half.
type SearchResult struct {
	ID           string
	Title        string
	PublishedAt  time.Time
	Score        float64
	MatchedTerms []string
}

// Video is archive metadata without scoring.
type Video struct {
	ID          string
	Title       string
	PublishedAt time.Time
	Summary     string
}

// CompletionRequest is passed to a custom Completer.
type CompletionRequest struct {
	Model        string
	SystemPrompt string
	ContextText  string
	Question     string
}

// Completer generates an answer from assembled context. Provide one via
// WithCompleter to replace the OpenAI-backed default.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// ErrUnknownChannel is returned when a channel id was never registered.
var ErrUnknownChannel = domain.ErrUnknownChannel

// Client is the tubeask embedded entry point.
type Client struct {
	registry *registryuc.Registry
	answers  *answeruc.Service
}

// New creates a Client and opens every configured channel archive.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := defaultClientConfig()
	for _, o := range opts {
		o(cfg)
	}

	if len(cfg.channels) == 0 {
		return nil, errors.New("tubeask: at least one channel required (use WithChannel)")
	}

	registry := registryuc.New()
	for _, ch := range cfg.channels {
		repo, err := archive.Open(ch.id, ch.storePath, cfg.logger)
		if err != nil {
			registry.Close()
			return nil, fmt.Errorf("tubeask: open channel %s: %w", ch.id, err)
		}
		if err := registry.Register(ch.domain(cfg), repo); err != nil {
			_ = repo.Close()
			registry.Close()
			return nil, fmt.Errorf("tubeask: register channel: %w", err)
		}
	}

	// A custom Completer replaces the OpenAI default (e.g. for tests).
	var completer answeruc.Completer
	if cfg.completer != nil {
		completer = &completerAdapter{inner: cfg.completer}
	} else {
		completer = openaiProvider.NewCompleter(&openaiProvider.Config{
			APIKey:  cfg.providerKey,
			BaseURL: cfg.providerURL,
			Logger:  cfg.logger,
		})
	}

	answers := answeruc.New(
		searchuc.New(searchuc.DefaultWeights()),
		promptuc.New(),
		completer,
		nil, // answer cache is a server concern; embedded callers own caching
		cfg.timeout,
		cfg.backoff,
		cfg.logger,
	)

	return &Client{registry: registry, answers: answers}, nil
}

// Close releases all archive handles.
func (c *Client) Close() {
	if c.registry != nil {
		c.registry.Close()
	}
}

// Ping checks every channel archive.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.registry.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Channels lists registered channel ids.
func (c *Client) Channels() []string {
	configs := c.registry.Channels()
	ids := make([]string, len(configs))
	for i, cfg := range configs {
		ids[i] = cfg.ID
	}
	return ids
}

// Ask answers a question against one channel's archive.
func (c *Client) Ask(ctx context.Context, channelID, question string) (Answer, error) {
	cfg, store, err := c.registry.Resolve(channelID)
	if err != nil {
		return Answer{}, fmt.Errorf("ask: %w", err)
	}

	ans, err := c.answers.Answer(ctx, question, cfg, store)
	if err != nil {
		return Answer{}, fmt.Errorf("ask: %w", err)
	}

	return Answer{
		Text:         ans.Text,
		References:   ans.References,
		FallbackUsed: ans.FallbackUsed,
		Cached:       ans.Cached,
	}, nil
}

// Search runs keyword retrieval only; no model call.
func (c *Client) Search(ctx context.Context, channelID, query string, limit int) ([]SearchResult, error) {
	cfg, store, err := c.registry.Resolve(channelID)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	if limit > 0 {
		cfg.MaxResults = limit
	}

	scored, err := c.answers.Search(ctx, query, cfg, store)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	out := make([]SearchResult, len(scored))
	for i, s := range scored {
		out[i] = SearchResult{
			ID:           s.Record.ID,
			Title:        s.Record.Title,
			PublishedAt:  s.Record.PublishedAt,
			Score:        s.Score,
			MatchedTerms: s.MatchedTerms,
		}
	}
	return out, nil
}

// Latest returns the channel's newest videos.
func (c *Client) Latest(ctx context.Context, channelID string, n int) ([]Video, error) {
	_, store, err := c.registry.Resolve(channelID)
	if err != nil {
		return nil, fmt.Errorf("latest: %w", err)
	}

	records, err := store.Latest(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("latest: %w", err)
	}

	out := make([]Video, len(records))
	for i, r := range records {
		out[i] = Video{
			ID:          r.ID,
			Title:       r.Title,
			PublishedAt: r.PublishedAt,
			Summary:     r.Summary,
		}
	}
	return out, nil
}

// completerAdapter wraps the public Completer to satisfy the internal contract.
type completerAdapter struct {
	inner Completer
}

func (a *completerAdapter) Complete(ctx context.Context, req domain.CompletionRequest) (string, error) {
	text, err := a.inner.Complete(ctx, CompletionRequest{
		Model:        req.Model,
		SystemPrompt: req.SystemPrompt,
		ContextText:  req.ContextText,
		Question:     req.Question,
	})
	if err != nil {
		return "", fmt.Errorf("complete: %w", err)
	}
	return text, nil
}

