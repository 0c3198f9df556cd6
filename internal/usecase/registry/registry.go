// Package registry holds the per-channel configuration and store handles,
// built once at process start. Each channel's store adapter is bound to
// that channel alone; resolution is the only way to reach a store, so a
// misrouted request can never fall through to another channel's archive.
package registry

import (
	"context"
	"fmt"
	"sort"

	"github.com/kailas-cloud/tubeask/internal/domain"
)

// Store is one channel's read-only archive handle.
type Store interface {
	FetchCandidates(ctx context.Context, terms []string, limit int) ([]domain.ContentRecord, error)
	Latest(ctx context.Context, n int) ([]domain.ContentRecord, error)
	Count(ctx context.Context) (int, error)
	Ping(ctx context.Context) error
	Close() error
}

type entry struct {
	cfg   domain.ChannelConfig
	store Store
}

// Registry resolves channel ids to their config and store. Read-only after
// construction; safe for concurrent use.
type Registry struct {
	channels map[string]entry
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{channels: make(map[string]entry)}
}

// Register adds a channel. Returns an error on duplicate ids; registration
// happens only at startup, so this is a configuration bug.
func (r *Registry) Register(cfg domain.ChannelConfig, store Store) error {
	if cfg.ID == "" {
		return fmt.Errorf("channel id must not be empty")
	}
	if _, exists := r.channels[cfg.ID]; exists {
		return fmt.Errorf("channel %q registered twice", cfg.ID)
	}
	r.channels[cfg.ID] = entry{cfg: cfg, store: store}
	return nil
}

// Resolve returns the channel's config and bound store.
// Fails with domain.ErrUnknownChannel before any store access.
func (r *Registry) Resolve(channelID string) (domain.ChannelConfig, Store, error) {
	e, ok := r.channels[channelID]
	if !ok {
		return domain.ChannelConfig{}, nil, fmt.Errorf("%w: %s", domain.ErrUnknownChannel, channelID)
	}
	return e.cfg, e.store, nil
}

// Channels lists all registered channel configs, sorted by id.
func (r *Registry) Channels() []domain.ChannelConfig {
	out := make([]domain.ChannelConfig, 0, len(r.channels))
	for _, e := range r.channels {
		out = append(out, e.cfg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Ping checks every channel's store, returning the first failure.
func (r *Registry) Ping(ctx context.Context) error {
	for id, e := range r.channels {
		if err := e.store.Ping(ctx); err != nil {
			return fmt.Errorf("channel %s: %w", id, err)
		}
	}
	return nil
}

// Close closes all store handles.
func (r *Registry) Close() {
	for _, e := range r.channels {
		_ = e.store.Close()
	}
}
