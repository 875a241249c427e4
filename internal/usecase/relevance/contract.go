package relevance

import (
	"context"
)

// HealthChecker reports remote relevance service availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Policy decides when the heuristic replaces the remote service.
type Policy struct {
	// ForceFallback skips the remote service entirely.
	ForceFallback bool
	// OnMalformed recovers unparsable remote responses.
	OnMalformed bool
	// OnUnavailable recovers transport and HTTP failures.
	OnUnavailable bool
	// OnMissingCredential recovers a missing API key.
	OnMissingCredential bool
}

// DefaultPolicy recovers malformed responses only.
func DefaultPolicy() Policy {
	return Policy{OnMalformed: true}
}
