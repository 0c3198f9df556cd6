package health

import "context"

// ArchivePinger checks that every registered channel archive is readable.
type ArchivePinger interface {
	Ping(ctx context.Context) error
}

// CachePinger checks answer-cache store availability.
type CachePinger interface {
	Ping(ctx context.Context) error
}

// ProviderChecker checks language-model provider availability.
type ProviderChecker interface {
	HealthCheck(ctx context.Context) error
}
