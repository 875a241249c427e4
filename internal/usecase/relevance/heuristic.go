package relevance

import (
	"context"
	"strings"

	"github.com/kailas-cloud/cafematch/internal/domain/cafe"
	"github.com/kailas-cloud/cafematch/internal/domain/preference"
	"github.com/kailas-cloud/cafematch/internal/domain/search/score"
)

// DefaultCandidateLimit is how many catalog records the heuristic considers.
const DefaultCandidateLimit = 10

// Keyword weights on the decimal scale.
const (
	heuristicBase   = 5.0
	weightName      = 2.0
	weightAbout     = 1.5
	weightTag       = 1.0
	weightVibe      = 2.0
	weightUniqueItm = 1.0
)

// Compile-time check: Heuristic implements score.Scorer.
var _ score.Scorer = (*Heuristic)(nil)

// Heuristic is the deterministic keyword scorer used when the remote service
// is skipped or failed. Preferences are ignored.
type Heuristic struct {
	limit int
}

// NewHeuristic creates a heuristic scorer over the first limit cafés.
// limit <= 0 uses DefaultCandidateLimit.
func NewHeuristic(limit int) *Heuristic {
	if limit <= 0 {
		limit = DefaultCandidateLimit
	}
	return &Heuristic{limit: limit}
}

// Score implements score.Scorer. Output is on the decimal scale in catalog order
// and only contains cafés that matched at least one term.
func (h *Heuristic) Score(
	_ context.Context, query string, _ preference.Set, cafes []cafe.Cafe,
) (score.Set, error) {
	terms := strings.Fields(strings.ToLower(query))

	n := min(len(cafes), h.limit)
	out := make([]score.Raw, 0, n)
	for i := range cafes[:n] {
		s := scoreCafe(&cafes[i], terms)
		if s > heuristicBase {
			out = append(out, score.Raw{CafeID: cafes[i].ID, RelevanceScore: s})
		}
	}

	return score.Set{Scores: out, Scale: score.Decimal, Source: score.SourceFallback}, nil
}

func scoreCafe(c *cafe.Cafe, terms []string) float64 {
	name := strings.ToLower(c.Name)
	about := strings.ToLower(c.AboutText())

	s := heuristicBase
	for _, term := range terms {
		if strings.Contains(name, term) {
			s += weightName
		}
		if about != "" && strings.Contains(about, term) {
			s += weightAbout
		}
		if anyContains(c.Tags, term) {
			s += weightTag
		}
		if anyContains(c.VibeTags, term) {
			s += weightVibe
		}
		if anyContains(c.UniqueItems, term) {
			s += weightUniqueItm
		}
	}
	return min(s, score.MaxDisplay)
}

func anyContains(values []string, term string) bool {
	for _, v := range values {
		if strings.Contains(strings.ToLower(v), term) {
			return true
		}
	}
	return false
}
