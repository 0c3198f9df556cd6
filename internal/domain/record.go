package domain

import "time"

// ContentRecord is one archived video: metadata plus ingested summary and
// subtitle text. Records are immutable snapshots read from the store per
// query; mutation belongs to the ingestion pipeline, not this service.
type ContentRecord struct {
	ID          string
	ChannelID   string
	Title       string
	PublishedAt time.Time
	Summary     string
	Subtitles   string // optional, empty when no captions were ingested
}

// ScoredRecord is a ContentRecord with its relevance score against a query.
// Request-local; never persisted.
type ScoredRecord struct {
	Record       ContentRecord
	Score        float64
	MatchedTerms []string
}
