package tubeask

import (
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/tubeask/internal/domain"
)

const (
	defaultModel            = "gpt-4o-mini"
	defaultMaxContextLength = 8000
	defaultMaxResults       = 5
	defaultTimeout          = 15 * time.Second
	defaultBackoff          = 500 * time.Millisecond
)

// Option configures the Client.
type Option func(*clientConfig)

// ChannelOption configures one channel registration.
type ChannelOption func(*channelConfig)

type clientConfig struct {
	channels    []channelConfig
	providerKey string
	providerURL string
	completer   Completer
	model       string
	maxContext  int
	maxResults  int
	timeout     time.Duration
	backoff     time.Duration
	logger      *zap.Logger
}

type channelConfig struct {
	id           string
	storePath    string
	model        string
	maxContext   int
	maxResults   int
	systemPrompt string
}

func defaultClientConfig() *clientConfig {
	return &clientConfig{
		model:      defaultModel,
		maxContext: defaultMaxContextLength,
		maxResults: defaultMaxResults,
		timeout:    defaultTimeout,
		backoff:    defaultBackoff,
		logger:     zap.NewNop(),
	}
}

// domain converts a channel registration to the internal config, falling
// back to client-level defaults for unset fields.
func (ch channelConfig) domain(cfg *clientConfig) domain.ChannelConfig {
	out := domain.ChannelConfig{
		ID:               ch.id,
		StorePath:        ch.storePath,
		Model:            ch.model,
		MaxContextLength: ch.maxContext,
		MaxResults:       ch.maxResults,
		SystemPrompt:     ch.systemPrompt,
	}
	if out.Model == "" {
		out.Model = cfg.model
	}
	if out.MaxContextLength <= 0 {
		out.MaxContextLength = cfg.maxContext
	}
	if out.MaxResults <= 0 {
		out.MaxResults = cfg.maxResults
	}
	return out
}

// WithChannel registers a channel archive by id and SQLite file path.
func WithChannel(id, storePath string, opts ...ChannelOption) Option {
	return func(c *clientConfig) {
		ch := channelConfig{id: id, storePath: storePath}
		for _, o := range opts {
			o(&ch)
		}
		c.channels = append(c.channels, ch)
	}
}

// WithProvider sets the OpenAI-compatible API key and optional base URL.
func WithProvider(apiKey, baseURL string) Option {
	return func(c *clientConfig) {
		c.providerKey = apiKey
		c.providerURL = baseURL
	}
}

// WithCompleter replaces the OpenAI-backed provider with a custom one.
func WithCompleter(completer Completer) Option {
	return func(c *clientConfig) { c.completer = completer }
}

// WithModel sets the default model for channels without an override.
func WithModel(model string) Option {
	return func(c *clientConfig) { c.model = model }
}

// WithMaxContextLength sets the default context character budget.
func WithMaxContextLength(n int) Option {
	return func(c *clientConfig) {
		if n > 0 {
			c.maxContext = n
		}
	}
}

// WithMaxResults sets the default result cap per question.
func WithMaxResults(n int) Option {
	return func(c *clientConfig) {
		if n > 0 {
			c.maxResults = n
		}
	}
}

// WithTimeout sets the per-call deadline for one model request.
func WithTimeout(d time.Duration) Option {
	return func(c *clientConfig) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithRetryBackoff sets the pause before the single retry.
func WithRetryBackoff(d time.Duration) Option {
	return func(c *clientConfig) {
		if d >= 0 {
			c.backoff = d
		}
	}
}

// WithLogger sets the logger; default is a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *clientConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// ChannelModel overrides the model for one channel.
func ChannelModel(model string) ChannelOption {
	return func(ch *channelConfig) { ch.model = model }
}

// ChannelSystemPrompt overrides the system prompt for one channel.
func ChannelSystemPrompt(prompt string) ChannelOption {
	return func(ch *channelConfig) { ch.systemPrompt = prompt }
}

// ChannelMaxResults overrides the result cap for one channel.
func ChannelMaxResults(n int) ChannelOption {
	return func(ch *channelConfig) { ch.maxResults = n }
}

// ChannelMaxContextLength overrides the context budget for one channel.
func ChannelMaxContextLength(n int) ChannelOption {
	return func(ch *channelConfig) { ch.maxContext = n }
}
