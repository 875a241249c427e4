package search

import (
	"context"

	"github.com/kailas-cloud/cafematch/internal/domain/cafe"
	"github.com/kailas-cloud/cafematch/internal/domain/preference"
	"github.com/kailas-cloud/cafematch/internal/domain/search/request"
	"github.com/kailas-cloud/cafematch/internal/domain/search/result"
)

// CatalogReader lists cafés in catalog order.
type CatalogReader interface {
	All() []cafe.Cafe
}

// PreferenceReader returns the current preference snapshot.
type PreferenceReader interface {
	Get() preference.Set
}

// Searcher runs one search evaluation.
type Searcher interface {
	Search(ctx context.Context, req request.Request) (result.Set, error)
}
