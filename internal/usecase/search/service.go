package search

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/cafematch/internal/domain/search/request"
	"github.com/kailas-cloud/cafematch/internal/domain/search/result"
	"github.com/kailas-cloud/cafematch/internal/domain/search/score"
	"github.com/kailas-cloud/cafematch/internal/logger"
)

// Service runs the one-shot pipeline: relevance, weighting, assembly.
type Service struct {
	scorer  score.Scorer
	catalog CatalogReader
	prefs   PreferenceReader
	logger  *zap.Logger
}

// New creates a search service.
func New(scorer score.Scorer, catalog CatalogReader, prefs PreferenceReader, l *zap.Logger) *Service {
	return &Service{scorer: scorer, catalog: catalog, prefs: prefs, logger: logger.OrNop(l)}
}

// Search scores the whole catalog for req. Preferences are read once.
func (s *Service) Search(ctx context.Context, req request.Request) (result.Set, error) {
	prefs := s.prefs.Get()
	cafes := s.catalog.All()

	set, err := s.scorer.Score(ctx, req.Query(), prefs, cafes)
	if err != nil {
		return result.Set{}, fmt.Errorf("score %q: %w", req.Query(), err)
	}

	weighted, unknown := Weigh(set, prefs, cafes)
	if len(unknown) > 0 {
		logger.FromContext(ctx, s.logger).Debug("Dropped scores for unknown cafes",
			zap.Uint64("seq", req.Sequence()),
			zap.Ints("cafe_ids", unknown),
		)
	}

	return Assemble(req, set.Source, weighted, cafes), nil
}
