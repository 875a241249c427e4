package search

import (
	"github.com/kailas-cloud/cafematch/internal/domain/cafe"
	"github.com/kailas-cloud/cafematch/internal/domain/search/request"
	"github.com/kailas-cloud/cafematch/internal/domain/search/result"
	"github.com/kailas-cloud/cafematch/internal/domain/search/score"
)

// Assemble joins weighted scores to catalog records, preserving rank order.
// Ids missing from cafes are skipped.
func Assemble(req request.Request, source score.Source, weighted []score.Weighted, cafes []cafe.Cafe) result.Set {
	byID := make(map[int]int, len(cafes))
	for i := range cafes {
		byID[cafes[i].ID] = i
	}

	matched := make([]cafe.Cafe, 0, len(weighted))
	scores := make(map[int]float64, len(weighted))
	for _, w := range weighted {
		i, ok := byID[w.CafeID]
		if !ok {
			continue
		}
		if _, dup := scores[w.CafeID]; dup {
			continue
		}
		matched = append(matched, cafes[i])
		scores[w.CafeID] = w.Display
	}

	return result.New(req.Query(), req.Sequence(), source, matched, scores)
}
