package domain

import "errors"

var (
	// ErrNotFound signals a missing resource (café, session).
	ErrNotFound = errors.New("not found")
	// ErrEmptyQuery signals a blank query. Never surfaced: the engine treats it as clear.
	ErrEmptyQuery = errors.New("empty query")
	// ErrInvalidQuery signals a query that fails validation (too long).
	ErrInvalidQuery = errors.New("invalid query")
	// ErrInvalidPreferences signals a preference value outside its enum.
	ErrInvalidPreferences = errors.New("invalid preferences")
	// ErrMissingCredential signals that no relevance service API key is configured.
	ErrMissingCredential = errors.New("relevance service credential missing")
	// ErrServiceUnavailable signals a transport or HTTP failure of the relevance service.
	ErrServiceUnavailable = errors.New("relevance service unavailable")
	// ErrMalformedResponse signals a relevance payload that could not be parsed.
	ErrMalformedResponse = errors.New("malformed relevance response")
	// ErrTooManySessions signals that the session registry is full.
	ErrTooManySessions = errors.New("too many sessions")
)

// ErrorKind is the user-visible classification of a failed search.
type ErrorKind string

// Error kinds exposed to the display layer.
const (
	KindNone               ErrorKind = ""
	KindMissingCredential  ErrorKind = "missing_credential"
	KindServiceUnavailable ErrorKind = "service_unavailable"
	KindMalformedResponse  ErrorKind = "malformed_response"
	KindInvalidQuery       ErrorKind = "invalid_query"
	KindInternal           ErrorKind = "internal"
)

// KindOf classifies err by its sentinel. nil maps to KindNone.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrMissingCredential):
		return KindMissingCredential
	case errors.Is(err, ErrServiceUnavailable):
		return KindServiceUnavailable
	case errors.Is(err, ErrMalformedResponse):
		return KindMalformedResponse
	case errors.Is(err, ErrInvalidQuery):
		return KindInvalidQuery
	default:
		return KindInternal
	}
}
