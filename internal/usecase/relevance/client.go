package relevance

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/kailas-cloud/cafematch/internal/domain"
	"github.com/kailas-cloud/cafematch/internal/domain/cafe"
	"github.com/kailas-cloud/cafematch/internal/domain/preference"
	"github.com/kailas-cloud/cafematch/internal/domain/search/score"
	"github.com/kailas-cloud/cafematch/internal/logger"
	"github.com/kailas-cloud/cafematch/internal/metrics"
)

// Fallback reasons, used as metric labels and log fields.
const (
	ReasonForced            = "forced"
	ReasonMalformed         = "malformed"
	ReasonUnavailable       = "unavailable"
	ReasonMissingCredential = "missing_credential"
)

// Compile-time check: Client implements score.Scorer.
var _ score.Scorer = (*Client)(nil)

// Client combines a remote scorer with the local heuristic under a Policy.
type Client struct {
	remote    score.Scorer
	heuristic score.Scorer
	policy    Policy
	force     atomic.Bool
	logger    *zap.Logger
}

// NewClient creates a relevance client. remote may be nil, in which case every
// call is answered by the heuristic.
func NewClient(remote, heuristic score.Scorer, policy Policy, l *zap.Logger) *Client {
	if heuristic == nil {
		heuristic = NewHeuristic(DefaultCandidateLimit)
	}
	c := &Client{
		remote:    remote,
		heuristic: heuristic,
		policy:    policy,
		logger:    logger.OrNop(l),
	}
	c.force.Store(policy.ForceFallback)
	return c
}

// SetForceFallback toggles fallback-only scoring at runtime.
func (c *Client) SetForceFallback(force bool) {
	c.force.Store(force)
}

// ForceFallback reports whether fallback-only scoring is active.
func (c *Client) ForceFallback() bool {
	return c.force.Load() || c.remote == nil
}

// Score implements score.Scorer.
func (c *Client) Score(
	ctx context.Context, query string, prefs preference.Set, cafes []cafe.Cafe,
) (score.Set, error) {
	if c.ForceFallback() {
		return c.fallback(ctx, query, prefs, cafes, ReasonForced, nil)
	}

	set, err := c.remote.Score(ctx, query, prefs, cafes)
	if err == nil {
		return set, nil
	}

	if reason, ok := c.recoverable(err); ok {
		return c.fallback(ctx, query, prefs, cafes, reason, err)
	}

	metrics.RelevanceRequestsTotal.WithLabelValues(string(score.SourceRemote), "error").Inc()
	return score.Set{}, fmt.Errorf("relevance: %w", err)
}

// recoverable maps err to a fallback reason if the policy allows recovery.
func (c *Client) recoverable(err error) (string, bool) {
	switch {
	case errors.Is(err, domain.ErrMalformedResponse):
		return ReasonMalformed, c.policy.OnMalformed
	case errors.Is(err, domain.ErrServiceUnavailable):
		return ReasonUnavailable, c.policy.OnUnavailable
	case errors.Is(err, domain.ErrMissingCredential):
		return ReasonMissingCredential, c.policy.OnMissingCredential
	default:
		return "", false
	}
}

func (c *Client) fallback(
	ctx context.Context, query string, prefs preference.Set, cafes []cafe.Cafe,
	reason string, cause error,
) (score.Set, error) {
	metrics.RelevanceFallbackTotal.WithLabelValues(reason).Inc()

	l := logger.FromContext(ctx, c.logger)
	if cause != nil {
		l.Warn("Relevance service failed, using heuristic",
			zap.String("reason", reason),
			zap.Error(cause),
		)
	} else {
		l.Debug("Fallback scoring forced", zap.String("reason", reason))
	}

	set, err := c.heuristic.Score(ctx, query, prefs, cafes)
	if err != nil {
		return score.Set{}, fmt.Errorf("heuristic: %w", err)
	}
	metrics.RelevanceRequestsTotal.WithLabelValues(string(score.SourceFallback), "success").Inc()
	return set, nil
}

// HealthCheck checks the remote service when it is in use.
// It returns nil when scoring is fallback-only.
func (c *Client) HealthCheck(ctx context.Context) error {
	if c.ForceFallback() {
		return nil
	}
	hc, ok := c.remote.(HealthChecker)
	if !ok {
		return nil
	}
	return hc.HealthCheck(ctx)
}
