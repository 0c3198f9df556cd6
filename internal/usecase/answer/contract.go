package answer

import (
	"context"

	"github.com/kailas-cloud/tubeask/internal/domain"
)

// CandidateFetcher reads one channel's archive. Implementations are bound
// to a single channel's store at construction.
type CandidateFetcher interface {
	FetchCandidates(ctx context.Context, terms []string, limit int) ([]domain.ContentRecord, error)
}

// Ranker orders candidates by relevance to a query.
type Ranker interface {
	Rank(query string, candidates []domain.ContentRecord, maxResults int) []domain.ScoredRecord
}

// ContextBuilder packs ranked records into a character-budgeted context.
type ContextBuilder interface {
	Assemble(scored []domain.ScoredRecord, maxLength int) domain.Context
}

// Completer calls the external language model.
type Completer interface {
	Complete(ctx context.Context, req domain.CompletionRequest) (string, error)
}

// Cache is the optional answer side table.
type Cache interface {
	Get(ctx context.Context, channelID, question string) (domain.Answer, bool)
	Put(ctx context.Context, channelID, question string, ans domain.Answer)
}
