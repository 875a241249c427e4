package search

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"github.com/kailas-cloud/cafematch/internal/domain"
	"github.com/kailas-cloud/cafematch/internal/domain/cafe"
	"github.com/kailas-cloud/cafematch/internal/domain/preference"
	"github.com/kailas-cloud/cafematch/internal/domain/search/request"
	"github.com/kailas-cloud/cafematch/internal/domain/search/result"
	"github.com/kailas-cloud/cafematch/internal/domain/search/score"
	"github.com/kailas-cloud/cafematch/internal/domain/search/status"
	"github.com/kailas-cloud/cafematch/internal/metrics"
	"github.com/kailas-cloud/cafematch/internal/usecase/relevance"
)

// gatedSearcher blocks each query until its gate is released. Queries starting
// with "err" fail with domain.ErrServiceUnavailable. Each result scores cafe 1
// as the length of the query, so results are distinguishable.
type gatedSearcher struct {
	mu      sync.Mutex
	gates   map[string]chan struct{}
	started chan string
	calls   atomic.Int32
	queries []string
}

func newGatedSearcher() *gatedSearcher {
	return &gatedSearcher{gates: map[string]chan struct{}{}, started: make(chan string, 16)}
}

func (g *gatedSearcher) gate(q string) chan struct{} {
	g.mu.Lock()
	defer g.mu.Unlock()
	ch, ok := g.gates[q]
	if !ok {
		ch = make(chan struct{})
		g.gates[q] = ch
	}
	return ch
}

func (g *gatedSearcher) release(q string) { close(g.gate(q)) }

func (g *gatedSearcher) Search(_ context.Context, req request.Request) (result.Set, error) {
	g.calls.Add(1)
	g.mu.Lock()
	g.queries = append(g.queries, req.Query())
	g.mu.Unlock()
	g.started <- req.Query()
	<-g.gate(req.Query())
	if strings.HasPrefix(req.Query(), "err") {
		return result.Set{}, domain.ErrServiceUnavailable
	}
	return result.New(req.Query(), req.Sequence(), score.SourceRemote,
		[]cafe.Cafe{{ID: 1}}, map[int]float64{1: float64(len(req.Query()))}), nil
}

// instantSearcher answers immediately.
type instantSearcher struct {
	calls   atomic.Int32
	mu      sync.Mutex
	queries []string
}

func (s *instantSearcher) Search(_ context.Context, req request.Request) (result.Set, error) {
	s.calls.Add(1)
	s.mu.Lock()
	s.queries = append(s.queries, req.Query())
	s.mu.Unlock()
	return result.New(req.Query(), req.Sequence(), score.SourceRemote,
		[]cafe.Cafe{{ID: 1}}, map[int]float64{1: 7}), nil
}

func waitStarted(t *testing.T, g *gatedSearcher, want string) {
	t.Helper()
	select {
	case got := <-g.started:
		if got != want {
			t.Fatalf("expected %q to start, got %q", want, got)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timeout waiting for %q to start", want)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestEngine_SubmitAppliesResult(t *testing.T) {
	g := newGatedSearcher()
	e := NewEngine(g, time.Hour, zap.NewNop())
	defer e.Close()

	e.Submit("latte")
	waitStarted(t, g, "latte")
	if e.Status() != status.Searching {
		t.Errorf("expected searching, got %s", e.Status())
	}

	g.release("latte")
	e.Wait()

	if e.Status() != status.Idle {
		t.Errorf("expected idle, got %s", e.Status())
	}
	if e.Score(1) != 5 {
		t.Errorf("expected score 5, got %v", e.Score(1))
	}
	if e.Err() != domain.KindNone {
		t.Errorf("expected no error, got %s", e.Err())
	}
	if res := e.Results(); res.Query() != "latte" {
		t.Errorf("unexpected results query %q", res.Query())
	}
}

func TestEngine_LatestWins_WhenOlderCompletesLast(t *testing.T) {
	g := newGatedSearcher()
	e := NewEngine(g, time.Hour, zap.NewNop())
	defer e.Close()

	before := testutil.ToFloat64(metrics.SearchSupersededTotal)

	e.Submit("r1")
	waitStarted(t, g, "r1")
	e.Submit("r2-newer")
	waitStarted(t, g, "r2-newer")

	g.release("r2-newer")
	waitFor(t, func() bool { return e.Results().Query() == "r2-newer" })

	g.release("r1")
	e.Wait()

	res := e.Results()
	if res.Query() != "r2-newer" {
		t.Fatalf("expected newer result to win, got %q", res.Query())
	}
	if e.Score(1) != float64(len("r2-newer")) {
		t.Errorf("unexpected score %v", e.Score(1))
	}
	if got := testutil.ToFloat64(metrics.SearchSupersededTotal); got != before+1 {
		t.Errorf("expected superseded counter +1, got %v -> %v", before, got)
	}
}

func TestEngine_LatestWins_WhenOlderCompletesFirst(t *testing.T) {
	g := newGatedSearcher()
	e := NewEngine(g, time.Hour, zap.NewNop())
	defer e.Close()

	e.Submit("r1")
	waitStarted(t, g, "r1")
	e.Submit("r2")
	waitStarted(t, g, "r2")

	g.release("r1")
	g.release("r2")
	e.Wait()

	if e.Results().Query() != "r2" {
		t.Fatalf("expected r2, got %q", e.Results().Query())
	}
}

func TestEngine_ClearDuringInFlight(t *testing.T) {
	g := newGatedSearcher()
	e := NewEngine(g, time.Hour, zap.NewNop())
	defer e.Close()

	e.Submit("latte")
	waitStarted(t, g, "latte")

	e.Clear()
	if e.Status() != status.Idle {
		t.Errorf("expected idle right after clear, got %s", e.Status())
	}

	g.release("latte")
	e.Wait()

	if e.Results().Len() != 0 {
		t.Errorf("expected cleared results, got %d", e.Results().Len())
	}
	if e.Score(1) != 0 {
		t.Errorf("expected score 0 after clear, got %v", e.Score(1))
	}
	if e.Status() != status.Idle {
		t.Errorf("expected idle, got %s", e.Status())
	}
}

func TestEngine_EmptyInputClears(t *testing.T) {
	s := &instantSearcher{}
	e := NewEngine(s, 0, zap.NewNop())
	defer e.Close()

	e.Submit("latte")
	e.Wait()
	if e.Results().Len() != 1 {
		t.Fatalf("expected a result, got %d", e.Results().Len())
	}

	e.SetQuery("   ")
	if e.Results().Len() != 0 || e.Status() != status.Idle {
		t.Errorf("expected cleared idle engine, got %d results, %s", e.Results().Len(), e.Status())
	}

	e.Submit("")
	if s.calls.Load() != 1 {
		t.Errorf("blank submit must not search, got %d calls", s.calls.Load())
	}
}

func TestEngine_DebounceCoalesces(t *testing.T) {
	s := &instantSearcher{}
	e := NewEngine(s, 50*time.Millisecond, zap.NewNop())
	defer e.Close()

	e.SetQuery("l")
	if e.Status() != status.Debouncing {
		t.Errorf("expected debouncing after first keystroke, got %s", e.Status())
	}
	e.SetQuery("la")
	if e.Status() != status.Typing {
		t.Errorf("expected typing after second keystroke, got %s", e.Status())
	}
	e.SetQuery("latte")

	waitFor(t, func() bool { return s.calls.Load() == 1 && e.Status() == status.Idle })
	time.Sleep(100 * time.Millisecond)

	if s.calls.Load() != 1 {
		t.Fatalf("expected one evaluation, got %d", s.calls.Load())
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.queries[0] != "latte" {
		t.Errorf("expected final text evaluated, got %q", s.queries[0])
	}
}

func TestEngine_SubmitCancelsDebounce(t *testing.T) {
	s := &instantSearcher{}
	e := NewEngine(s, 50*time.Millisecond, zap.NewNop())
	defer e.Close()

	e.SetQuery("lat")
	e.Submit("latte")
	e.Wait()
	time.Sleep(100 * time.Millisecond)

	if s.calls.Load() != 1 {
		t.Fatalf("expected pending debounce cancelled, got %d calls", s.calls.Load())
	}
	if e.Results().Query() != "latte" {
		t.Errorf("expected submitted query, got %q", e.Results().Query())
	}
}

func TestEngine_ZeroDebounceEvaluatesImmediately(t *testing.T) {
	s := &instantSearcher{}
	e := NewEngine(s, 0, zap.NewNop())
	defer e.Close()

	e.SetQuery("latte")
	e.Wait()
	if s.calls.Load() != 1 {
		t.Fatalf("expected immediate evaluation, got %d calls", s.calls.Load())
	}
}

func TestEngine_StaleErrorDoesNotOverwriteResult(t *testing.T) {
	g := newGatedSearcher()
	e := NewEngine(g, time.Hour, zap.NewNop())
	defer e.Close()

	e.Submit("err-old")
	waitStarted(t, g, "err-old")
	e.Submit("fresh")
	waitStarted(t, g, "fresh")

	g.release("fresh")
	waitFor(t, func() bool { return e.Results().Query() == "fresh" })
	g.release("err-old")
	e.Wait()

	if e.Err() != domain.KindNone {
		t.Errorf("stale error leaked: %s", e.Err())
	}
	if e.Results().Query() != "fresh" {
		t.Errorf("expected fresh results, got %q", e.Results().Query())
	}
}

func TestEngine_StaleResultDoesNotOverwriteError(t *testing.T) {
	g := newGatedSearcher()
	e := NewEngine(g, time.Hour, zap.NewNop())
	defer e.Close()

	e.Submit("old")
	waitStarted(t, g, "old")
	e.Submit("err-new")
	waitStarted(t, g, "err-new")

	g.release("err-new")
	waitFor(t, func() bool { return e.Err() != domain.KindNone })
	g.release("old")
	e.Wait()

	if e.Err() != domain.KindServiceUnavailable {
		t.Errorf("expected service_unavailable, got %s", e.Err())
	}
	if e.Results().Len() != 0 {
		t.Errorf("stale result leaked: %d cafes", e.Results().Len())
	}
}

func TestEngine_ErrorClearsPreviousResults(t *testing.T) {
	g := newGatedSearcher()
	e := NewEngine(g, time.Hour, zap.NewNop())
	defer e.Close()

	g.release("good")
	e.Submit("good")
	e.Wait()
	<-g.started
	if e.Results().Len() != 1 {
		t.Fatalf("expected result, got %d", e.Results().Len())
	}

	g.release("err-next")
	e.Submit("err-next")
	e.Wait()
	<-g.started

	if e.Results().Len() != 0 {
		t.Errorf("expected results cleared on error, got %d", e.Results().Len())
	}
	snap := e.Snapshot()
	if snap.Err != domain.KindServiceUnavailable || snap.Status != status.Idle || snap.Query != "err-next" {
		t.Errorf("unexpected snapshot: %+v", snap)
	}
}

func TestEngine_CancelAll(t *testing.T) {
	g := newGatedSearcher()
	e := NewEngine(g, time.Hour, zap.NewNop())
	defer e.Close()

	e.Submit("latte")
	waitStarted(t, g, "latte")
	e.CancelAll()
	g.release("latte")
	e.Wait()

	if e.Results().Len() != 0 {
		t.Errorf("cancelled search must not apply, got %d", e.Results().Len())
	}
	if e.Status() != status.Idle {
		t.Errorf("expected idle, got %s", e.Status())
	}
}

func TestEngine_CloseIgnoresInput(t *testing.T) {
	s := &instantSearcher{}
	e := NewEngine(s, 0, zap.NewNop())
	e.Close()
	e.Close()

	e.Submit("latte")
	e.SetQuery("latte")
	e.Wait()
	if s.calls.Load() != 0 {
		t.Errorf("closed engine must not search, got %d calls", s.calls.Load())
	}
}

func TestEngine_CloseStopsPendingTimer(t *testing.T) {
	s := &instantSearcher{}
	e := NewEngine(s, 30*time.Millisecond, zap.NewNop())
	e.SetQuery("latte")
	e.Close()
	time.Sleep(80 * time.Millisecond)
	if s.calls.Load() != 0 {
		t.Errorf("timer fired after close, got %d calls", s.calls.Load())
	}
}

func TestEngine_UnparsableResponseFallsBack(t *testing.T) {
	remote := &mockRelevance{err: domain.ErrMalformedResponse}
	client := relevance.NewClient(remote, nil, relevance.DefaultPolicy(), zap.NewNop())
	svc := New(client, &mockCatalog{cafes: serviceCafes}, &mockPrefs{prefs: preference.Default()}, nil)
	e := NewEngine(svc, 0, zap.NewNop())
	defer e.Close()

	e.Submit("quiet")
	e.Wait()

	if e.Err() != domain.KindNone {
		t.Fatalf("expected recovered search, got error %s", e.Err())
	}
	res := e.Results()
	if res.Source() != score.SourceFallback {
		t.Errorf("expected fallback source, got %s", res.Source())
	}
	if !res.Contains(1) {
		t.Errorf("expected quiet cafe in fallback results")
	}
}

func TestEngine_UnrecoveredErrorKind(t *testing.T) {
	remote := &mockRelevance{err: domain.ErrMissingCredential}
	client := relevance.NewClient(remote, nil, relevance.DefaultPolicy(), zap.NewNop())
	svc := New(client, &mockCatalog{cafes: serviceCafes}, &mockPrefs{prefs: preference.Default()}, nil)
	e := NewEngine(svc, 0, zap.NewNop())
	defer e.Close()

	e.Submit("quiet")
	e.Wait()

	if e.Err() != domain.KindMissingCredential {
		t.Fatalf("expected missing_credential, got %s", e.Err())
	}
}

func TestEngine_SequencesIncrease(t *testing.T) {
	s := &instantSearcher{}
	e := NewEngine(s, 0, zap.NewNop())
	defer e.Close()

	var last uint64
	for _, q := range []string{"a", "b", "c"} {
		e.Submit(q)
		e.Wait()
		seq := e.Results().Sequence()
		if seq <= last {
			t.Fatalf("sequence did not increase: %d after %d", seq, last)
		}
		last = seq
	}
}

func TestEngine_ConcurrentInput(t *testing.T) {
	s := &instantSearcher{}
	e := NewEngine(s, time.Millisecond, zap.NewNop())
	defer e.Close()

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if i%2 == 0 {
				e.SetQuery("latte")
			} else {
				e.Submit("mocha")
			}
			_ = e.Snapshot()
		}()
	}
	wg.Wait()
	waitFor(t, func() bool { return e.Status() == status.Idle })
	e.Wait()

	if e.Err() != domain.KindNone {
		t.Errorf("unexpected error kind %s", e.Err())
	}
}

func TestEngine_WaitContext(t *testing.T) {
	g := newGatedSearcher()
	e := NewEngine(g, 0, zap.NewNop())
	defer e.Close()

	if err := e.WaitContext(context.Background()); err != nil {
		t.Fatalf("idle engine should not block: %v", err)
	}

	e.Submit("slow")
	waitStarted(t, g, "slow")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := e.WaitContext(ctx); err != context.DeadlineExceeded {
		t.Fatalf("expected deadline exceeded while in flight, got %v", err)
	}
	if e.Status() != status.Searching {
		t.Errorf("expected searching, got %q", e.Status())
	}

	g.release("slow")
	if err := e.WaitContext(context.Background()); err != nil {
		t.Fatalf("WaitContext after release: %v", err)
	}
	if res := e.Results(); res.Query() != "slow" {
		t.Errorf("expected slow results, got %q", res.Query())
	}
}
