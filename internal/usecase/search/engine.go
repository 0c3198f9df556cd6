// Package search ranks archive records against a free-text query. The
// ranking is a bounded, deterministic keyword score: cheap enough to run
// per request, explainable enough to surface matched terms to the caller.
package search

import (
	"sort"
	"strings"

	"github.com/kailas-cloud/tubeask/internal/domain"
)

// Weights control how much a term hit counts per field. Title hits matter
// most; subtitle hits least.
type Weights struct {
	Title     float64
	Summary   float64
	Subtitles float64
}

// DefaultWeights is the default scoring policy.
func DefaultWeights() Weights {
	return Weights{Title: 3, Summary: 2, Subtitles: 1}
}

// Engine scores and ranks records. Stateless; safe for concurrent use.
type Engine struct {
	weights Weights
}

// New creates a ranking engine.
func New(weights Weights) *Engine {
	return &Engine{weights: weights}
}

// Rank tokenizes the query, scores each candidate, and returns the top
// maxResults records, most relevant first. Records scoring zero are
// excluded: a query matching nothing yields an empty slice, never a
// fabricated result. Ties break by newer PublishedAt, then by id, so two
// identical calls always produce identical order.
func (e *Engine) Rank(query string, candidates []domain.ContentRecord, maxResults int) []domain.ScoredRecord {
	terms := Tokenize(query)
	if len(terms) == 0 {
		return nil
	}

	scored := make([]domain.ScoredRecord, 0, len(candidates))
	for _, rec := range candidates {
		s := e.score(terms, rec)
		if s.Score <= 0 {
			continue
		}
		scored = append(scored, s)
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		ti, tj := scored[i].Record.PublishedAt, scored[j].Record.PublishedAt
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return scored[i].Record.ID < scored[j].Record.ID
	})

	if maxResults > 0 && len(scored) > maxResults {
		scored = scored[:maxResults]
	}
	return scored
}

// score computes the weighted per-field term hit count, each field
// normalized by its own token length so long subtitles cannot drown out a
// precise title match.
func (e *Engine) score(terms []string, rec domain.ContentRecord) domain.ScoredRecord {
	title := fieldTokens(rec.Title)
	summary := fieldTokens(rec.Summary)
	subtitles := fieldTokens(rec.Subtitles)

	var (
		total   float64
		matched []string
	)
	for _, term := range terms {
		hits := e.weights.Title*normalizedHits(title, term) +
			e.weights.Summary*normalizedHits(summary, term) +
			e.weights.Subtitles*normalizedHits(subtitles, term)
		if hits > 0 {
			matched = append(matched, term)
			total += hits
		}
	}

	return domain.ScoredRecord{Record: rec, Score: total, MatchedTerms: matched}
}

// fieldTokens lowercases and splits a field the same way queries are
// tokenized, but keeps stop-words and duplicates: they count toward length.
func fieldTokens(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !isWordRune(r)
	})
}

// normalizedHits returns term occurrences divided by field length.
func normalizedHits(tokens []string, term string) float64 {
	if len(tokens) == 0 {
		return 0
	}
	count := 0
	for _, tok := range tokens {
		if tok == term {
			count++
		}
	}
	return float64(count) / float64(len(tokens))
}
