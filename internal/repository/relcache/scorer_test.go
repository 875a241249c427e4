package relcache

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"github.com/kailas-cloud/cafematch/internal/db"
	"github.com/kailas-cloud/cafematch/internal/domain"
	"github.com/kailas-cloud/cafematch/internal/domain/cafe"
	"github.com/kailas-cloud/cafematch/internal/domain/preference"
	"github.com/kailas-cloud/cafematch/internal/domain/search/score"
)

var testCafes = []cafe.Cafe{{ID: 1, Name: "Hush"}, {ID: 2, Name: "Roar"}}

func remoteSet() score.Set {
	return score.Set{
		Scores: []score.Raw{{CafeID: 1, RelevanceScore: 80}},
		Scale:  score.Percent,
		Source: score.SourceRemote,
	}
}

func TestScore_CacheMiss(t *testing.T) {
	inner := &mockRelevance{set: remoteSet()}
	cs, ms := newTestCachedScorer(t, inner)

	var stored []byte
	var storedTTL time.Duration
	ms.setFn = func(_ context.Context, key string, value []byte, ttl time.Duration) error {
		if !strings.HasPrefix(key, cacheKeyPrefix) {
			t.Errorf("unexpected key %q", key)
		}
		stored = value
		storedTTL = ttl
		return nil
	}

	set, err := cs.Score(context.Background(), "quiet", preference.Default(), testCafes)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if set.Source != score.SourceRemote {
		t.Errorf("expected remote source on miss, got %s", set.Source)
	}
	if inner.calls != 1 {
		t.Errorf("expected 1 inner call, got %d", inner.calls)
	}
	if string(stored) != `[{"cafeId":1,"relevanceScore":80}]` {
		t.Errorf("unexpected cached payload %s", stored)
	}
	if storedTTL != time.Minute {
		t.Errorf("expected 1m ttl, got %v", storedTTL)
	}
}

func TestScore_CacheHit(t *testing.T) {
	inner := &mockRelevance{set: remoteSet()}
	cs, ms := newTestCachedScorer(t, inner)

	ms.getFn = func(context.Context, string) ([]byte, error) {
		return []byte(`[{"cafeId":2,"relevanceScore":64}]`), nil
	}

	set, err := cs.Score(context.Background(), "quiet", preference.Default(), testCafes)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.calls != 0 {
		t.Errorf("expected no inner call on hit, got %d", inner.calls)
	}
	if set.Source != score.SourceCache || set.Scale != score.Percent {
		t.Errorf("unexpected source/scale: %s/%s", set.Source, set.Scale)
	}
	if len(set.Scores) != 1 || set.Scores[0].CafeID != 2 {
		t.Errorf("unexpected cached scores: %+v", set.Scores)
	}
}

func TestScore_InnerErrorNotCached(t *testing.T) {
	inner := &mockRelevance{err: domain.ErrServiceUnavailable}
	cs, ms := newTestCachedScorer(t, inner)

	ms.setFn = func(context.Context, string, []byte, time.Duration) error {
		t.Fatal("errors must not be cached")
		return nil
	}

	_, err := cs.Score(context.Background(), "quiet", preference.Default(), testCafes)
	if !errors.Is(err, domain.ErrServiceUnavailable) {
		t.Fatalf("expected ErrServiceUnavailable, got %v", err)
	}
}

func TestScore_FallbackNotCached(t *testing.T) {
	inner := &mockRelevance{set: score.Set{Scale: score.Decimal, Source: score.SourceFallback}}
	cs, ms := newTestCachedScorer(t, inner)

	ms.setFn = func(context.Context, string, []byte, time.Duration) error {
		t.Fatal("fallback scores must not be cached")
		return nil
	}

	if _, err := cs.Score(context.Background(), "quiet", preference.Default(), testCafes); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestScore_StoreErrorsDegradeToMiss(t *testing.T) {
	inner := &mockRelevance{set: remoteSet()}
	cs, ms := newTestCachedScorer(t, inner)

	ms.getFn = func(context.Context, string) ([]byte, error) {
		return nil, &db.Error{Op: db.OpGet, Err: errors.New("connection reset")}
	}
	ms.setFn = func(context.Context, string, []byte, time.Duration) error {
		return &db.Error{Op: db.OpSet, Err: errors.New("connection reset")}
	}

	set, err := cs.Score(context.Background(), "quiet", preference.Default(), testCafes)
	if err != nil {
		t.Fatalf("store failures must not fail scoring: %v", err)
	}
	if set.Source != score.SourceRemote {
		t.Errorf("expected remote source, got %s", set.Source)
	}
}

func TestScore_CorruptEntryIsMiss(t *testing.T) {
	inner := &mockRelevance{set: remoteSet()}
	cs, ms := newTestCachedScorer(t, inner)

	ms.getFn = func(context.Context, string) ([]byte, error) {
		return []byte("not json"), nil
	}

	if _, err := cs.Score(context.Background(), "quiet", preference.Default(), testCafes); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.calls != 1 {
		t.Errorf("expected inner call on corrupt entry, got %d", inner.calls)
	}
}

func TestCacheKey(t *testing.T) {
	base, _ := cacheKey("quiet", preference.Default(), testCafes)

	same, _ := cacheKey("  quiet ", preference.Default(), testCafes)
	if same != base {
		t.Error("expected surrounding whitespace to be ignored")
	}

	prefs := preference.Default()
	prefs.PricePreference = cafe.PriceHigh
	if k, _ := cacheKey("quiet", prefs, testCafes); k == base {
		t.Error("expected preferences to change the key")
	}

	if k, _ := cacheKey("quiet", preference.Default(), testCafes[:1]); k == base {
		t.Error("expected catalog to change the key")
	}

	if k, _ := cacheKey("loud", preference.Default(), testCafes); k == base {
		t.Error("expected query to change the key")
	}
}

func TestScore_CacheMetrics(t *testing.T) {
	counter := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "test_rel_cache_total"}, []string{"result"})
	inner := &mockRelevance{set: remoteSet()}
	ms := &mockKVStore{}
	cs := New(inner, ms, 0, counter, zap.NewNop())

	_, _ = cs.Score(context.Background(), "quiet", preference.Default(), testCafes)
	ms.getFn = func(context.Context, string) ([]byte, error) {
		return []byte(`[]`), nil
	}
	_, _ = cs.Score(context.Background(), "quiet", preference.Default(), testCafes)

	if got := testutil.ToFloat64(counter.WithLabelValues("miss")); got != 1 {
		t.Errorf("expected 1 miss, got %v", got)
	}
	if got := testutil.ToFloat64(counter.WithLabelValues("hit")); got != 1 {
		t.Errorf("expected 1 hit, got %v", got)
	}
	if cs.ttl != DefaultTTL {
		t.Errorf("expected default ttl, got %v", cs.ttl)
	}
}
