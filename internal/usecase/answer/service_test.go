package answer

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/tubeask/internal/domain"
	"github.com/kailas-cloud/tubeask/internal/usecase/prompt"
	"github.com/kailas-cloud/tubeask/internal/usecase/search"
)

// --- Mocks ---

type mockFetcher struct {
	records []domain.ContentRecord
	err     error
	called  bool
}

func (m *mockFetcher) FetchCandidates(_ context.Context, _ []string, _ int) ([]domain.ContentRecord, error) {
	m.called = true
	return m.records, m.err
}

type mockCompleter struct {
	text  string
	errs  []error // one per call; nil means success
	calls int
}

func (m *mockCompleter) Complete(_ context.Context, _ domain.CompletionRequest) (string, error) {
	i := m.calls
	m.calls++
	if i < len(m.errs) && m.errs[i] != nil {
		return "", m.errs[i]
	}
	return m.text, nil
}

type slowCompleter struct {
	delay time.Duration
	calls int
}

func (m *slowCompleter) Complete(ctx context.Context, _ domain.CompletionRequest) (string, error) {
	m.calls++
	select {
	case <-ctx.Done():
		return "", domain.ErrProviderTimeout
	case <-time.After(m.delay):
		return "too late", nil
	}
}

type mockCache struct {
	answers map[string]domain.Answer
	puts    int
}

func newMockCache() *mockCache {
	return &mockCache{answers: map[string]domain.Answer{}}
}

func (m *mockCache) Get(_ context.Context, channelID, question string) (domain.Answer, bool) {
	a, ok := m.answers[channelID+"|"+question]
	if ok {
		a.Cached = true
	}
	return a, ok
}

func (m *mockCache) Put(_ context.Context, channelID, question string, ans domain.Answer) {
	m.puts++
	m.answers[channelID+"|"+question] = ans
}

// --- Fixtures ---

func testChannel() domain.ChannelConfig {
	return domain.ChannelConfig{
		ID:               "techtalks",
		Model:            "gpt-4o-mini",
		MaxContextLength: 8000,
		MaxResults:       5,
	}
}

func testRecords() []domain.ContentRecord {
	recs := []domain.ContentRecord{{
		ID:          "v1",
		ChannelID:   "techtalks",
		Title:       "Quantum Computing Explained",
		Summary:     "an introduction to quantum computing and qubits",
		PublishedAt: time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC),
	}}
	for i := 0; i < 9; i++ {
		recs = append(recs, domain.ContentRecord{
			ID:          "other" + string(rune('a'+i)),
			ChannelID:   "techtalks",
			Title:       "Gardening diary",
			Summary:     "tomatoes and compost",
			PublishedAt: time.Date(2025, 1, i+1, 0, 0, 0, 0, time.UTC),
		})
	}
	return recs
}

func newTestService(c Completer, cache Cache) *Service {
	return New(
		search.New(search.DefaultWeights()),
		prompt.New(),
		c,
		cache,
		time.Second,
		time.Millisecond,
		zap.NewNop(),
	)
}

// --- Tests ---

func TestAnswer_HappyPath(t *testing.T) {
	fetcher := &mockFetcher{records: testRecords()}
	completer := &mockCompleter{text: "Qubits are the unit of quantum information."}
	svc := newTestService(completer, nil)

	ans, err := svc.Answer(context.Background(), "quantum computing", testChannel(), fetcher)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ans.FallbackUsed {
		t.Error("FallbackUsed should be false")
	}
	if ans.Text != "Qubits are the unit of quantum information." {
		t.Errorf("unexpected answer text: %q", ans.Text)
	}
	if len(ans.References) != 1 || ans.References[0] != "v1" {
		t.Errorf("References = %v, want [v1]", ans.References)
	}
	if completer.calls != 1 {
		t.Errorf("completer called %d times, want 1", completer.calls)
	}
}

func TestAnswer_NoMatchSkipsProvider(t *testing.T) {
	fetcher := &mockFetcher{records: testRecords()}
	completer := &mockCompleter{text: "should never be returned"}
	svc := newTestService(completer, nil)

	ans, err := svc.Answer(context.Background(), "underwater basket weaving", testChannel(), fetcher)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ans.Text != NoMatchText {
		t.Errorf("expected no-match answer, got %q", ans.Text)
	}
	if ans.FallbackUsed {
		t.Error("no-match is not a fallback")
	}
	if completer.calls != 0 {
		t.Errorf("provider must not be called on no-match, called %d times", completer.calls)
	}
}

func TestAnswer_RetryThenSuccess(t *testing.T) {
	fetcher := &mockFetcher{records: testRecords()}
	completer := &mockCompleter{text: "recovered", errs: []error{domain.ErrProviderError, nil}}
	svc := newTestService(completer, nil)

	ans, err := svc.Answer(context.Background(), "quantum computing", testChannel(), fetcher)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ans.Text != "recovered" || ans.FallbackUsed {
		t.Errorf("expected recovered answer, got %+v", ans)
	}
	if completer.calls != 2 {
		t.Errorf("completer called %d times, want 2", completer.calls)
	}
}

func TestAnswer_ExhaustedRetriesFallback(t *testing.T) {
	fetcher := &mockFetcher{records: testRecords()}
	completer := &mockCompleter{errs: []error{domain.ErrProviderTimeout, domain.ErrProviderTimeout}}
	svc := newTestService(completer, nil)

	ans, err := svc.Answer(context.Background(), "quantum computing", testChannel(), fetcher)
	if err != nil {
		t.Fatalf("provider failure must degrade, not propagate: %v", err)
	}
	if !ans.FallbackUsed {
		t.Error("expected FallbackUsed")
	}
	if ans.Text != FallbackText {
		t.Errorf("expected fixed apology, got %q", ans.Text)
	}
	if completer.calls != 2 {
		t.Errorf("completer called %d times, want exactly 2 (one retry)", completer.calls)
	}
}

func TestAnswer_SlowProviderBoundedByTimeout(t *testing.T) {
	fetcher := &mockFetcher{records: testRecords()}
	slow := &slowCompleter{delay: 5 * time.Second}
	svc := New(
		search.New(search.DefaultWeights()),
		prompt.New(),
		slow,
		nil,
		20*time.Millisecond,
		time.Millisecond,
		zap.NewNop(),
	)

	start := time.Now()
	ans, err := svc.Answer(context.Background(), "quantum computing", testChannel(), fetcher)
	elapsed := time.Since(start)

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ans.FallbackUsed {
		t.Error("expected fallback after timeouts")
	}
	if elapsed > time.Second {
		t.Errorf("request took %v, should be bounded by per-call timeouts", elapsed)
	}
	if slow.calls != 2 {
		t.Errorf("expected 2 attempts, got %d", slow.calls)
	}
}

func TestAnswer_StoreErrorAborts(t *testing.T) {
	fetcher := &mockFetcher{err: domain.ErrStoreUnavailable}
	svc := newTestService(&mockCompleter{}, nil)

	_, err := svc.Answer(context.Background(), "anything", testChannel(), fetcher)
	if !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}

func TestAnswer_CacheHitSkipsEverything(t *testing.T) {
	cache := newMockCache()
	cache.answers["techtalks|quantum computing"] = domain.Answer{Text: "cached answer"}
	fetcher := &mockFetcher{records: testRecords()}
	completer := &mockCompleter{text: "fresh"}
	svc := newTestService(completer, cache)

	ans, err := svc.Answer(context.Background(), "quantum computing", testChannel(), fetcher)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ans.Text != "cached answer" || !ans.Cached {
		t.Errorf("expected cached answer, got %+v", ans)
	}
	if fetcher.called {
		t.Error("store must not be queried on cache hit")
	}
	if completer.calls != 0 {
		t.Error("provider must not be called on cache hit")
	}
}

func TestAnswer_SuccessIsCached(t *testing.T) {
	cache := newMockCache()
	fetcher := &mockFetcher{records: testRecords()}
	svc := newTestService(&mockCompleter{text: "fresh"}, cache)

	if _, err := svc.Answer(context.Background(), "quantum computing", testChannel(), fetcher); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cache.puts != 1 {
		t.Errorf("expected 1 cache put, got %d", cache.puts)
	}
}

func TestAnswer_FallbackNotCached(t *testing.T) {
	cache := newMockCache()
	fetcher := &mockFetcher{records: testRecords()}
	completer := &mockCompleter{errs: []error{domain.ErrProviderError, domain.ErrProviderError}}
	svc := newTestService(completer, cache)

	if _, err := svc.Answer(context.Background(), "quantum computing", testChannel(), fetcher); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cache.puts != 0 {
		t.Errorf("fallback answer must not be cached, got %d puts", cache.puts)
	}
}

func TestAnswer_TruncatedFirstChunkStillAnswers(t *testing.T) {
	big := strings.Repeat("quantum details ", 100)
	fetcher := &mockFetcher{records: []domain.ContentRecord{{
		ID:          "v1",
		ChannelID:   "techtalks",
		Title:       "Quantum marathon",
		Summary:     big,
		PublishedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}}}
	cfg := testChannel()
	cfg.MaxContextLength = 200

	svc := newTestService(&mockCompleter{text: "ok"}, nil)
	ans, err := svc.Answer(context.Background(), "quantum", cfg, fetcher)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ans.Text != "ok" || len(ans.References) != 1 {
		t.Errorf("expected answer grounded in the truncated chunk, got %+v", ans)
	}
}

func TestSearch_RankedOnly(t *testing.T) {
	fetcher := &mockFetcher{records: testRecords()}
	svc := newTestService(&mockCompleter{}, nil)

	scored, err := svc.Search(context.Background(), "quantum computing", testChannel(), fetcher)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(scored) != 1 || scored[0].Record.ID != "v1" {
		t.Errorf("unexpected search result: %+v", scored)
	}
}
