package relcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/cafematch/internal/db"
	"github.com/kailas-cloud/cafematch/internal/domain/cafe"
	"github.com/kailas-cloud/cafematch/internal/domain/preference"
	"github.com/kailas-cloud/cafematch/internal/domain/search/score"
	"github.com/kailas-cloud/cafematch/internal/logger"
)

const cacheKeyPrefix = "cafematch:rel_cache:"

// DefaultTTL is used when New receives a non-positive ttl.
const DefaultTTL = time.Hour

// store is the consumer interface for the relevance cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Compile-time check: CachedScorer implements score.Scorer.
var _ score.Scorer = (*CachedScorer)(nil)

// CachedScorer caches remote relevance scores in a key-value store.
type CachedScorer struct {
	inner      score.Scorer
	store      store
	ttl        time.Duration
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// New creates a caching decorator.
// cacheTotal is a counter vec with label "result" ("hit"/"miss"), passed explicitly.
func New(
	inner score.Scorer,
	s store,
	ttl time.Duration,
	cacheTotal *prometheus.CounterVec,
	l *zap.Logger,
) *CachedScorer {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &CachedScorer{
		inner:      inner,
		store:      s,
		ttl:        ttl,
		cacheTotal: cacheTotal,
		logger:     logger.OrNop(l),
	}
}

// Score returns cached scores or calls the inner scorer.
// Cache hit: Source = score.SourceCache. Errors are never cached.
func (c *CachedScorer) Score(
	ctx context.Context, query string, prefs preference.Set, cafes []cafe.Cafe,
) (score.Set, error) {
	key, err := cacheKey(query, prefs, cafes)
	if err != nil {
		c.logger.Warn("Failed to build relevance cache key", zap.Error(err))
		return c.inner.Score(ctx, query, prefs, cafes)
	}

	if scores, ok := c.getFromCache(ctx, key); ok {
		c.incCache("hit")
		return score.Set{Scores: scores, Scale: score.Percent, Source: score.SourceCache}, nil
	}

	c.incCache("miss")

	set, err := c.inner.Score(ctx, query, prefs, cafes)
	if err != nil {
		return score.Set{}, fmt.Errorf("score: %w", err)
	}

	if set.Source == score.SourceRemote && set.Scale == score.Percent {
		c.putToCache(ctx, key, set.Scores)
	}
	return set, nil
}

// HealthCheck delegates to the inner scorer when it supports health checks.
func (c *CachedScorer) HealthCheck(ctx context.Context) error {
	if hc, ok := c.inner.(interface{ HealthCheck(context.Context) error }); ok {
		return hc.HealthCheck(ctx)
	}
	return nil
}

func (c *CachedScorer) incCache(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(result).Inc()
	}
}

// cacheKey hashes the query, the preferences and the catalog projection.
func cacheKey(query string, prefs preference.Set, cafes []cafe.Cafe) (string, error) {
	h := sha256.New()
	h.Write([]byte(strings.TrimSpace(query)))
	h.Write([]byte{0})

	prefsJSON, err := json.Marshal(prefs)
	if err != nil {
		return "", fmt.Errorf("marshal preferences: %w", err)
	}
	h.Write(prefsJSON)
	h.Write([]byte{0})

	enc := json.NewEncoder(h)
	for i := range cafes {
		if err := enc.Encode(cafes[i].Project()); err != nil {
			return "", fmt.Errorf("marshal cafe %d: %w", cafes[i].ID, err)
		}
	}

	return cacheKeyPrefix + hex.EncodeToString(h.Sum(nil)), nil
}

func (c *CachedScorer) getFromCache(ctx context.Context, key string) ([]score.Raw, bool) {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("Failed to get cached scores", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	if len(data) == 0 {
		return nil, false
	}

	var scores []score.Raw
	if err := json.Unmarshal(data, &scores); err != nil {
		c.logger.Warn("Failed to parse cached scores", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return scores, true
}

func (c *CachedScorer) putToCache(ctx context.Context, key string, scores []score.Raw) {
	data, err := json.Marshal(scores)
	if err != nil {
		c.logger.Warn("Failed to encode scores for cache", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.store.SetWithTTL(ctx, key, data, c.ttl); err != nil {
		c.logger.Warn("Failed to cache scores", zap.String("key", key), zap.Error(err))
	}
}
