package cafematch

import (
	"github.com/kailas-cloud/cafematch/internal/domain"
	"github.com/kailas-cloud/cafematch/internal/domain/cafe"
	"github.com/kailas-cloud/cafematch/internal/domain/preference"
	"github.com/kailas-cloud/cafematch/internal/domain/search/result"
	"github.com/kailas-cloud/cafematch/internal/domain/search/status"
)

// Cafe is a catalog record.
type Cafe = cafe.Cafe

// Amenities holds boolean-or-unknown café capabilities. nil means unknown.
type Amenities = cafe.Amenities

// Preferences are the user-chosen filters that boost matching cafés.
type Preferences = preference.Set

// DefaultPreferences returns the out-of-the-box preferences.
func DefaultPreferences() Preferences { return preference.Default() }

// Status is the phase of a live Session.
type Status = status.Status

// Session phases.
const (
	StatusIdle       = status.Idle
	StatusTyping     = status.Typing
	StatusDebouncing = status.Debouncing
	StatusSearching  = status.Searching
)

// ErrorKind classifies the error of the last search in a Session.
type ErrorKind = domain.ErrorKind

// Source tells where the scores of a result came from.
type Source string

// Score sources.
const (
	SourceRemote   Source = "remote"
	SourceFallback Source = "fallback"
	SourceCache    Source = "cache"
)

// Match is one ranked café with its 0-10 display score.
type Match struct {
	Cafe  Cafe
	Score float64
}

// Results is a ranked result list.
type Results struct {
	Query    string
	Sequence uint64
	Source   Source
	Matches  []Match
}

// Score returns the display score of id, or 0 if it did not match.
func (r Results) Score(id int) float64 {
	for _, m := range r.Matches {
		if m.Cafe.ID == id {
			return m.Score
		}
	}
	return 0
}

func fromResultSet(s result.Set) Results {
	cafes := s.Cafes()
	matches := make([]Match, len(cafes))
	for i := range cafes {
		matches[i] = Match{Cafe: cafes[i], Score: s.Score(cafes[i].ID)}
	}
	return Results{
		Query:    s.Query(),
		Sequence: s.Sequence(),
		Source:   Source(s.Source()),
		Matches:  matches,
	}
}
