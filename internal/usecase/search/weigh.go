package search

import (
	"sort"

	"github.com/kailas-cloud/cafematch/internal/domain/cafe"
	"github.com/kailas-cloud/cafematch/internal/domain/preference"
	"github.com/kailas-cloud/cafematch/internal/domain/search/score"
)

// Weighting constants on the percent scale.
const (
	bonusStep      = 10.0
	maxBonus       = 30.0
	minRelevance   = 30.0
	percentToTenth = 10.0
)

// Weigh turns raw scores into ranked, display-ready scores.
//
// Percent scores get a preference bonus (+10 per satisfied criterion, at most +30),
// are capped at 100, filtered to > 30 and rescaled to 0-10. Decimal scores are only
// capped and rounded. Both are sorted by score descending, ties in catalog order.
//
// Ids not present in cafes are dropped and returned as unknown. Repeated ids keep
// their first occurrence.
func Weigh(set score.Set, prefs preference.Set, cafes []cafe.Cafe) ([]score.Weighted, []int) {
	position := make(map[int]int, len(cafes))
	for i := range cafes {
		position[cafes[i].ID] = i
	}

	seen := make(map[int]struct{}, len(set.Scores))
	out := make([]score.Weighted, 0, len(set.Scores))
	var unknown []int

	for _, raw := range set.Scores {
		pos, ok := position[raw.CafeID]
		if !ok {
			unknown = append(unknown, raw.CafeID)
			continue
		}
		if _, dup := seen[raw.CafeID]; dup {
			continue
		}
		seen[raw.CafeID] = struct{}{}

		var w score.Weighted
		if set.Scale == score.Decimal {
			w = weighDecimal(raw)
		} else {
			w = weighPercent(raw, prefs, &cafes[pos])
			if w.Weighted <= minRelevance {
				continue
			}
		}
		out = append(out, w)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Weighted != out[j].Weighted {
			return out[i].Weighted > out[j].Weighted
		}
		return position[out[i].CafeID] < position[out[j].CafeID]
	})

	return out, unknown
}

func weighPercent(raw score.Raw, prefs preference.Set, c *cafe.Cafe) score.Weighted {
	r := score.Clamp(raw.RelevanceScore, 0, score.MaxPercent)
	bonus := min(float64(prefs.Matches(c))*bonusStep, maxBonus)
	weighted := min(r+bonus, score.MaxPercent)
	return score.Weighted{
		CafeID:   raw.CafeID,
		Raw:      r,
		Bonus:    bonus,
		Weighted: weighted,
		Display:  score.RoundOne(weighted / percentToTenth),
	}
}

func weighDecimal(raw score.Raw) score.Weighted {
	r := score.Clamp(raw.RelevanceScore, 0, score.MaxDisplay)
	return score.Weighted{
		CafeID:   raw.CafeID,
		Raw:      r,
		Weighted: r,
		Display:  score.RoundOne(r),
	}
}
