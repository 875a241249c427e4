package health

import "context"

// CachePinger checks relevance cache availability.
type CachePinger interface {
	Ping(ctx context.Context) error
}

// RelevanceChecker checks relevance service availability.
type RelevanceChecker interface {
	HealthCheck(ctx context.Context) error
}

// CatalogCounter reports how many cafés are loaded.
type CatalogCounter interface {
	Len() int
}
