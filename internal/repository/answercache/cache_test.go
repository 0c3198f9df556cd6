package answercache

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/tubeask/internal/db"
	"github.com/kailas-cloud/tubeask/internal/domain"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	data    map[string][]byte
	lastTTL time.Duration
	getErr  error
	setErr  error
}

func newMockStore() *mockStore {
	return &mockStore{data: map[string][]byte{}}
}

func (m *mockStore) Get(_ context.Context, key string) ([]byte, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	v, ok := m.data[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (m *mockStore) SetWithTTL(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] = value
	m.lastTTL = ttl
	return nil
}

func newTestCache(s store) *Cache {
	return New(s, 5*time.Minute, nil, zap.NewNop())
}

func TestCache_RoundTrip(t *testing.T) {
	ms := newMockStore()
	c := newTestCache(ms)
	ctx := context.Background()

	ans := domain.Answer{Text: "answer", References: []string{"v1", "v2"}}
	c.Put(ctx, "techtalks", "What is Raft?", ans)

	got, ok := c.Get(ctx, "techtalks", "What is Raft?")
	if !ok {
		t.Fatal("expected cache hit")
	}
	if got.Text != "answer" || len(got.References) != 2 {
		t.Errorf("unexpected cached answer: %+v", got)
	}
	if !got.Cached {
		t.Error("expected Cached flag on hit")
	}
	if ms.lastTTL != 5*time.Minute {
		t.Errorf("TTL = %v, want 5m", ms.lastTTL)
	}
}

func TestCache_NormalizedQuerySharesEntry(t *testing.T) {
	ms := newMockStore()
	c := newTestCache(ms)
	ctx := context.Background()

	c.Put(ctx, "techtalks", "what is raft?", domain.Answer{Text: "a"})

	if _, ok := c.Get(ctx, "techtalks", "  What   IS raft?  "); !ok {
		t.Error("expected hit for normalized-equivalent query")
	}
}

func TestCache_ChannelIsolation(t *testing.T) {
	ms := newMockStore()
	c := newTestCache(ms)
	ctx := context.Background()

	c.Put(ctx, "channel-a", "same question", domain.Answer{Text: "a"})

	if _, ok := c.Get(ctx, "channel-b", "same question"); ok {
		t.Error("answer leaked across channels")
	}
}

func TestCache_FallbackAnswersNotCached(t *testing.T) {
	ms := newMockStore()
	c := newTestCache(ms)
	ctx := context.Background()

	c.Put(ctx, "techtalks", "q", domain.Answer{Text: "sorry", FallbackUsed: true})

	if len(ms.data) != 0 {
		t.Error("fallback answer must not be cached")
	}
}

func TestCache_StoreErrorsAreMisses(t *testing.T) {
	ms := newMockStore()
	ms.getErr = errors.New("connection reset")
	c := newTestCache(ms)

	if _, ok := c.Get(context.Background(), "techtalks", "q"); ok {
		t.Error("store error must read as a miss")
	}
}

func TestNormalizeQuery(t *testing.T) {
	if got := NormalizeQuery("  What   IS  Raft? "); got != "what is raft?" {
		t.Errorf("NormalizeQuery = %q", got)
	}
}
