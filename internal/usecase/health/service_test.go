package health

import (
	"context"
	"errors"
	"testing"
)

// --- Mocks ---

type mockCachePinger struct {
	err error
}

func (m *mockCachePinger) Ping(_ context.Context) error { return m.err }

type mockRelevanceChecker struct {
	err error
}

func (m *mockRelevanceChecker) HealthCheck(_ context.Context) error { return m.err }

type mockCatalog struct {
	n int
}

func (m *mockCatalog) Len() int { return m.n }

// --- Tests ---

func TestCheck_AllHealthy(t *testing.T) {
	svc := New(&mockCatalog{n: 3}, &mockCachePinger{}, &mockRelevanceChecker{})
	r := svc.Check(context.Background())

	if r.Status != Healthy {
		t.Errorf("expected %q, got %q", Healthy, r.Status)
	}
	for _, name := range []string{"catalog", "cache", "relevance"} {
		if r.Checks[name] != CheckOK {
			t.Errorf("expected %s %q, got %q", name, CheckOK, r.Checks[name])
		}
	}
}

func TestCheck_CacheError(t *testing.T) {
	svc := New(&mockCatalog{n: 3}, &mockCachePinger{err: errors.New("conn refused")}, &mockRelevanceChecker{})
	r := svc.Check(context.Background())

	if r.Status != Degraded {
		t.Errorf("expected %q, got %q", Degraded, r.Status)
	}
	if r.Checks["cache"] != CheckError {
		t.Errorf("expected cache %q, got %q", CheckError, r.Checks["cache"])
	}
	if r.Checks["relevance"] != CheckOK {
		t.Errorf("expected relevance %q, got %q", CheckOK, r.Checks["relevance"])
	}
}

func TestCheck_RelevanceError(t *testing.T) {
	svc := New(&mockCatalog{n: 3}, &mockCachePinger{}, &mockRelevanceChecker{err: errors.New("timeout")})
	r := svc.Check(context.Background())

	if r.Status != Degraded {
		t.Errorf("expected %q, got %q", Degraded, r.Status)
	}
	if r.Checks["relevance"] != CheckError {
		t.Errorf("expected relevance %q, got %q", CheckError, r.Checks["relevance"])
	}
}

func TestCheck_EmptyCatalog(t *testing.T) {
	svc := New(&mockCatalog{}, nil, nil)
	r := svc.Check(context.Background())

	if r.Status != Unhealthy {
		t.Errorf("expected %q, got %q", Unhealthy, r.Status)
	}
}

func TestCheck_OptionalComponents(t *testing.T) {
	svc := New(&mockCatalog{n: 1}, nil, nil)
	r := svc.Check(context.Background())

	if r.Status != Healthy {
		t.Errorf("expected %q, got %q", Healthy, r.Status)
	}
	if _, ok := r.Checks["cache"]; ok {
		t.Error("cache check should be absent when not configured")
	}
	if _, ok := r.Checks["relevance"]; ok {
		t.Error("relevance check should be absent when not configured")
	}
}
