package score

import (
	"context"
	"math"

	"github.com/kailas-cloud/cafematch/internal/domain/cafe"
	"github.com/kailas-cloud/cafematch/internal/domain/preference"
)

// Scale tells downstream stages how to interpret a raw score.
type Scale string

const (
	// Percent scores are 0-100 and go through preference weighting and rescaling.
	Percent Scale = "percent"
	// Decimal scores are already 0-10 (fallback heuristic).
	Decimal Scale = "decimal"
)

// Source names where a score set came from.
type Source string

// Score sources.
const (
	SourceRemote   Source = "remote"
	SourceCache    Source = "cache"
	SourceFallback Source = "fallback"
)

// Bounds of the two scales.
const (
	MaxPercent = 100.0
	MaxDisplay = 10.0
)

// Raw is a per-café relevance score as produced by the relevance service or fallback.
type Raw struct {
	CafeID         int     `json:"cafeId"`
	RelevanceScore float64 `json:"relevanceScore"`
}

// Set is the full output of one relevance call.
type Set struct {
	Scores []Raw
	Scale  Scale
	Source Source
}

// Weighted is a raw score after preference weighting.
type Weighted struct {
	CafeID   int
	Raw      float64
	Bonus    float64
	Weighted float64
	Display  float64
}

// Clamp bounds v to [lo, hi]. NaN becomes lo.
func Clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// RoundOne rounds v to one decimal place.
func RoundOne(v float64) float64 {
	return math.Round(v*10) / 10
}

// Scorer produces relevance scores for a query against a list of cafés.
type Scorer interface {
	Score(ctx context.Context, query string, prefs preference.Set, cafes []cafe.Cafe) (Set, error)
}
