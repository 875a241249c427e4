package result

import (
	"github.com/kailas-cloud/cafematch/internal/domain/cafe"
	"github.com/kailas-cloud/cafematch/internal/domain/search/score"
)

// Set is an ordered list of matched cafés plus an id -> display score lookup.
type Set struct {
	query    string
	sequence uint64
	source   score.Source
	cafes    []cafe.Cafe
	scores   map[int]float64
}

// New creates a result set. cafes must already be ranked.
func New(query string, sequence uint64, source score.Source, cafes []cafe.Cafe, scores map[int]float64) Set {
	return Set{
		query:    query,
		sequence: sequence,
		source:   source,
		cafes:    cafes,
		scores:   scores,
	}
}

// Empty returns a result set with no matches.
func Empty() Set { return Set{} }

// Query returns the query text the set was produced for.
func (s Set) Query() string { return s.query }

// Sequence returns the sequence number of the search that produced the set.
func (s Set) Sequence() uint64 { return s.sequence }

// Source returns where the underlying scores came from.
func (s Set) Source() score.Source { return s.source }

// Cafes returns the matched cafés in rank order.
func (s Set) Cafes() []cafe.Cafe { return s.cafes }

// Len returns the number of matched cafés.
func (s Set) Len() int { return len(s.cafes) }

// Score returns the 0-10 display score for id, or 0 if it was not matched.
func (s Set) Score(id int) float64 { return s.scores[id] }

// Contains reports whether id is part of the set.
func (s Set) Contains(id int) bool {
	_, ok := s.scores[id]
	return ok
}
