package cafematch

import "github.com/kailas-cloud/cafematch/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrNotFound           = domain.ErrNotFound
	ErrInvalidQuery       = domain.ErrInvalidQuery
	ErrInvalidPreferences = domain.ErrInvalidPreferences
	ErrMissingCredential  = domain.ErrMissingCredential
	ErrServiceUnavailable = domain.ErrServiceUnavailable
	ErrMalformedResponse  = domain.ErrMalformedResponse
)
