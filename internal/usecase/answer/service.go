// Package answer orchestrates a single question through search, context
// assembly, and the language-model call. The flow is an explicit state
// machine rather than nested branching, so retry and fallback paths are
// testable on their own.
package answer

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/tubeask/internal/domain"
	"github.com/kailas-cloud/tubeask/internal/usecase/search"
)

// State is a phase of one request's lifecycle. Terminal state is always
// StateResponded; no request is left pending.
type State string

const (
	StateReceived        State = "received"
	StateSearching       State = "searching"
	StateBuildingContext State = "building_context"
	StateQuerying        State = "querying"
	StateRetrying        State = "retrying"
	StateResponded       State = "responded"
)

// Canned answer texts for the degraded paths.
const (
	NoMatchText  = "I couldn't find anything in this channel's archive matching your question."
	FallbackText = "Sorry, I couldn't reach the answer service just now. Please try again in a moment."
)

// candidateFetchLimit bounds how many records are pulled from the store
// for ranking. Wider than MaxResults so ranking has material to work with.
const candidateFetchLimit = 100

// Service answers questions against a channel's archive.
type Service struct {
	engine    Ranker
	builder   ContextBuilder
	completer Completer
	cache     Cache // nil disables caching
	timeout   time.Duration
	backoff   time.Duration
	logger    *zap.Logger
}

// New creates an answer service. cache may be nil.
func New(
	engine Ranker,
	builder ContextBuilder,
	completer Completer,
	cache Cache,
	timeout time.Duration,
	backoff time.Duration,
	logger *zap.Logger,
) *Service {
	return &Service{
		engine:    engine,
		builder:   builder,
		completer: completer,
		cache:     cache,
		timeout:   timeout,
		backoff:   backoff,
		logger:    logger,
	}
}

// request carries one question through the state machine.
type request struct {
	state    State
	question string
	cfg      domain.ChannelConfig
	store    CandidateFetcher

	scored  []domain.ScoredRecord
	context domain.Context
	answer  domain.Answer
}

// Answer resolves a question into an Answer. Only store unavailability
// aborts with an error; provider failures degrade to a flagged fallback
// answer and an empty ranking short-circuits to a deterministic no-match
// answer without spending a provider call.
func (s *Service) Answer(
	ctx context.Context, question string, cfg domain.ChannelConfig, store CandidateFetcher,
) (domain.Answer, error) {
	if s.cache != nil {
		if cached, ok := s.cache.Get(ctx, cfg.ID, question); ok {
			return cached, nil
		}
	}

	req := &request{
		state:    StateReceived,
		question: question,
		cfg:      cfg,
		store:    store,
	}

	for req.state != StateResponded {
		var err error
		switch req.state {
		case StateReceived:
			req.state = StateSearching
		case StateSearching:
			err = s.doSearch(ctx, req)
		case StateBuildingContext:
			s.doBuild(req)
		case StateQuerying, StateRetrying:
			s.doQuery(ctx, req)
		default:
			return domain.Answer{}, fmt.Errorf("invalid request state %q", req.state)
		}
		if err != nil {
			return domain.Answer{}, err
		}
	}

	if s.cache != nil && !req.answer.FallbackUsed {
		s.cache.Put(ctx, cfg.ID, question, req.answer)
	}

	return req.answer, nil
}

// Search runs the retrieval half only: fetch candidates and rank them.
// Backs the keyword-search surface that skips the model entirely.
func (s *Service) Search(
	ctx context.Context, query string, cfg domain.ChannelConfig, store CandidateFetcher,
) ([]domain.ScoredRecord, error) {
	terms := search.Tokenize(query)
	candidates, err := store.FetchCandidates(ctx, terms, candidateFetchLimit)
	if err != nil {
		return nil, fmt.Errorf("fetch candidates: %w", err)
	}
	return s.engine.Rank(query, candidates, cfg.MaxResults), nil
}

func (s *Service) doSearch(ctx context.Context, req *request) error {
	scored, err := s.Search(ctx, req.question, req.cfg, req.store)
	if err != nil {
		return err
	}
	req.scored = scored

	if len(req.scored) == 0 {
		req.answer = domain.Answer{Text: NoMatchText}
		req.state = StateResponded
		return nil
	}
	req.state = StateBuildingContext
	return nil
}

func (s *Service) doBuild(req *request) {
	req.context = s.builder.Assemble(req.scored, req.cfg.MaxContextLength)
	if req.context.Empty() {
		req.answer = domain.Answer{Text: NoMatchText}
		req.state = StateResponded
		return
	}
	req.state = StateQuerying
}

func (s *Service) doQuery(ctx context.Context, req *request) {
	text, err := s.complete(ctx, req)
	if err == nil {
		req.answer = domain.Answer{
			Text: text,
			// Attribution is by context inclusion: the model is not
			// trusted to self-report which records it used.
			References: req.context.RecordIDs(),
		}
		req.state = StateResponded
		return
	}

	if req.state == StateQuerying {
		s.logger.Warn("Provider call failed, retrying",
			zap.String("channel", req.cfg.ID), zap.Error(err))
		s.wait(ctx)
		req.state = StateRetrying
		return
	}

	s.logger.Error("Provider call failed after retry, using fallback",
		zap.String("channel", req.cfg.ID), zap.Error(err))
	req.answer = domain.Answer{Text: FallbackText, FallbackUsed: true}
	req.state = StateResponded
}

// complete runs one provider call under the per-call deadline.
func (s *Service) complete(ctx context.Context, req *request) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	return s.completer.Complete(callCtx, domain.CompletionRequest{
		Model:        req.cfg.Model,
		SystemPrompt: req.cfg.SystemPrompt,
		ContextText:  req.context.Text(),
		Question:     req.question,
	})
}

// wait pauses for the retry backoff, returning early on context cancel.
func (s *Service) wait(ctx context.Context) {
	if s.backoff <= 0 {
		return
	}
	t := time.NewTimer(s.backoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
