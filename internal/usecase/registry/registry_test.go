package registry

import (
	"context"
	"errors"
	"testing"

	"github.com/kailas-cloud/tubeask/internal/domain"
)

// mockStore tracks whether it was touched.
type mockStore struct {
	touched bool
	pingErr error
	closed  bool
}

func (m *mockStore) FetchCandidates(_ context.Context, _ []string, _ int) ([]domain.ContentRecord, error) {
	m.touched = true
	return nil, nil
}

func (m *mockStore) Latest(_ context.Context, _ int) ([]domain.ContentRecord, error) {
	m.touched = true
	return nil, nil
}

func (m *mockStore) Count(_ context.Context) (int, error) {
	m.touched = true
	return 0, nil
}

func (m *mockStore) Ping(_ context.Context) error { return m.pingErr }
func (m *mockStore) Close() error                 { m.closed = true; return nil }

func newTestRegistry(t *testing.T, ids ...string) (*Registry, map[string]*mockStore) {
	t.Helper()
	r := New()
	stores := make(map[string]*mockStore, len(ids))
	for _, id := range ids {
		ms := &mockStore{}
		stores[id] = ms
		if err := r.Register(domain.ChannelConfig{ID: id, StorePath: "/data/" + id + ".db"}, ms); err != nil {
			t.Fatalf("Register(%s): %v", id, err)
		}
	}
	return r, stores
}

func TestResolve_Known(t *testing.T) {
	r, _ := newTestRegistry(t, "techtalks")

	cfg, store, err := r.Resolve("techtalks")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ID != "techtalks" || store == nil {
		t.Errorf("unexpected resolution: %+v", cfg)
	}
}

func TestResolve_UnknownChannel(t *testing.T) {
	r, stores := newTestRegistry(t, "techtalks")

	_, _, err := r.Resolve("ghost")
	if !errors.Is(err, domain.ErrUnknownChannel) {
		t.Fatalf("expected ErrUnknownChannel, got %v", err)
	}
	if stores["techtalks"].touched {
		t.Error("no store may be accessed for an unknown channel")
	}
}

func TestRegister_Duplicate(t *testing.T) {
	r, _ := newTestRegistry(t, "techtalks")
	err := r.Register(domain.ChannelConfig{ID: "techtalks"}, &mockStore{})
	if err == nil {
		t.Fatal("expected error for duplicate channel")
	}
}

func TestRegister_EmptyID(t *testing.T) {
	r := New()
	if err := r.Register(domain.ChannelConfig{}, &mockStore{}); err == nil {
		t.Fatal("expected error for empty channel id")
	}
}

func TestChannels_Sorted(t *testing.T) {
	r, _ := newTestRegistry(t, "zeta", "alpha", "mid")

	chans := r.Channels()
	if len(chans) != 3 {
		t.Fatalf("expected 3 channels, got %d", len(chans))
	}
	if chans[0].ID != "alpha" || chans[1].ID != "mid" || chans[2].ID != "zeta" {
		t.Errorf("channels not sorted: %v", chans)
	}
}

func TestPing_FirstFailure(t *testing.T) {
	r, stores := newTestRegistry(t, "ok", "broken")
	stores["broken"].pingErr = domain.ErrStoreUnavailable

	if err := r.Ping(context.Background()); !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}

func TestClose_All(t *testing.T) {
	r, stores := newTestRegistry(t, "a", "b")
	r.Close()
	for id, ms := range stores {
		if !ms.closed {
			t.Errorf("store %s not closed", id)
		}
	}
}
