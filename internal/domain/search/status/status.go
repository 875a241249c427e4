package status

// Status is the observable phase of a search engine.
type Status string

// Status constants.
const (
	// Idle means nothing is scheduled or in flight.
	Idle Status = "idle"
	// Typing means a pending debounce timer was re-armed by further input.
	Typing Status = "typing"
	// Debouncing means a fresh debounce timer is pending.
	Debouncing Status = "debouncing"
	// Searching means the current search is in flight.
	Searching Status = "searching"
)

// IsValid checks if the status is one of the supported values.
func (s Status) IsValid() bool {
	return s == Idle || s == Typing || s == Debouncing || s == Searching
}
