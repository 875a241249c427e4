package relcache

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/cafematch/internal/db"
	"github.com/kailas-cloud/cafematch/internal/domain/cafe"
	"github.com/kailas-cloud/cafematch/internal/domain/preference"
	"github.com/kailas-cloud/cafematch/internal/domain/search/score"
)

type mockRelevance struct {
	set   score.Set
	err   error
	calls int
}

func (m *mockRelevance) Score(context.Context, string, preference.Set, []cafe.Cafe) (score.Set, error) {
	m.calls++
	return m.set, m.err
}

// mockKVStore implements the consumer interface for tests.
type mockKVStore struct {
	getFn func(ctx context.Context, key string) ([]byte, error)
	setFn func(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

func (m *mockKVStore) Get(ctx context.Context, key string) ([]byte, error) {
	if m.getFn != nil {
		return m.getFn(ctx, key)
	}
	return nil, db.ErrKeyNotFound
}

func (m *mockKVStore) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if m.setFn != nil {
		return m.setFn(ctx, key, value, ttl)
	}
	return nil
}

func newTestCachedScorer(t *testing.T, inner *mockRelevance) (*CachedScorer, *mockKVStore) {
	t.Helper()
	ms := &mockKVStore{}
	cs := New(inner, ms, time.Minute, nil, zap.NewNop())
	return cs, ms
}
