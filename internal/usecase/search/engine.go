package search

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/cafematch/internal/domain"
	"github.com/kailas-cloud/cafematch/internal/domain/search/request"
	"github.com/kailas-cloud/cafematch/internal/domain/search/result"
	"github.com/kailas-cloud/cafematch/internal/domain/search/status"
	"github.com/kailas-cloud/cafematch/internal/logger"
	"github.com/kailas-cloud/cafematch/internal/metrics"
)

// DefaultDebounce is the keystroke quiet period before a search is issued.
const DefaultDebounce = 800 * time.Millisecond

// Evaluation outcomes, used as metric labels.
const (
	outcomeApplied    = "applied"
	outcomeSuperseded = "superseded"
	outcomeError      = "error"
)

// Snapshot is a consistent view of the engine state.
type Snapshot struct {
	Query   string
	Status  status.Status
	Err     domain.ErrorKind
	Results result.Set
}

// Engine debounces query input and sequences search evaluations.
// Only the evaluation holding the latest sequence number may change results.
type Engine struct {
	searcher Searcher
	debounce time.Duration
	logger   *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	idle     chan struct{} // closed while no evaluation is in flight
	counter  uint64
	timer    *time.Timer
	timerGen uint64
	pending  bool
	inflight int
	closed   bool
	query    string
	status   status.Status
	results  result.Set
	err      error
}

// NewEngine creates an engine. A zero debounce evaluates every input immediately.
func NewEngine(searcher Searcher, debounce time.Duration, l *zap.Logger) *Engine {
	ctx, cancel := context.WithCancel(context.Background())
	e := &Engine{
		searcher: searcher,
		debounce: max(debounce, 0),
		logger:   logger.OrNop(l),
		ctx:      ctx,
		cancel:   cancel,
		idle:     make(chan struct{}),
		status:   status.Idle,
		results:  result.Empty(),
	}
	close(e.idle)
	return e
}

// SetQuery records live input. Blank input clears immediately; anything else
// (re)arms the debounce timer.
func (e *Engine) SetQuery(text string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}

	e.query = text
	if strings.TrimSpace(text) == "" {
		e.clearLocked()
		return
	}

	if e.debounce == 0 {
		e.stopTimerLocked()
		e.startLocked(text)
		return
	}

	wasPending := e.pending
	e.stopTimerLocked()
	e.armTimerLocked()
	if wasPending {
		e.status = status.Typing
	} else {
		e.status = status.Debouncing
	}
}

// Submit evaluates text immediately, cancelling any pending debounce.
func (e *Engine) Submit(text string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}

	e.query = text
	e.stopTimerLocked()
	if strings.TrimSpace(text) == "" {
		e.clearLocked()
		return
	}
	e.startLocked(text)
}

// Clear drops the query, the results and the error, and invalidates in-flight searches.
func (e *Engine) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.query = ""
	e.clearLocked()
}

// CancelAll invalidates every in-flight search. Pending debounce is kept.
func (e *Engine) CancelAll() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cancelAllLocked()
}

// Results returns the current result set.
func (e *Engine) Results() result.Set {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.results
}

// Score returns the display score for cafeID, or 0 if it is not in the results.
func (e *Engine) Score(cafeID int) float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.results.Score(cafeID)
}

// Status returns the current phase.
func (e *Engine) Status() status.Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// Err returns the kind of the current error, KindNone if the last search succeeded.
func (e *Engine) Err() domain.ErrorKind {
	e.mu.Lock()
	defer e.mu.Unlock()
	return domain.KindOf(e.err)
}

// Query returns the last recorded input.
func (e *Engine) Query() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.query
}

// Snapshot returns query, status, error and results under one lock.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Snapshot{
		Query:   e.query,
		Status:  e.status,
		Err:     domain.KindOf(e.err),
		Results: e.results,
	}
}

// Wait blocks until every started evaluation has finished.
func (e *Engine) Wait() {
	_ = e.WaitContext(context.Background())
}

// WaitContext is Wait bounded by ctx. It returns ctx.Err() if ctx ends first.
func (e *Engine) WaitContext(ctx context.Context) error {
	e.mu.Lock()
	idle := e.idle
	e.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the timer and invalidates in-flight searches. Further input is ignored.
func (e *Engine) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	e.stopTimerLocked()
	e.cancelAllLocked()
	e.mu.Unlock()

	e.cancel()
}

func (e *Engine) clearLocked() {
	e.stopTimerLocked()
	e.cancelAllLocked()
	e.results = result.Empty()
	e.err = nil
}

func (e *Engine) cancelAllLocked() {
	e.counter++
	if !e.pending {
		e.status = status.Idle
	}
}

func (e *Engine) armTimerLocked() {
	e.timerGen++
	gen := e.timerGen
	e.pending = true
	e.timer = time.AfterFunc(e.debounce, func() { e.fire(gen) })
}

func (e *Engine) stopTimerLocked() {
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	e.timerGen++
	e.pending = false
}

// fire runs on the timer goroutine. Stale generations are ignored since Stop
// cannot recall a callback that is already waiting for the lock.
func (e *Engine) fire(gen uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed || gen != e.timerGen || !e.pending {
		return
	}
	e.pending = false
	e.timer = nil
	e.startLocked(e.query)
}

func (e *Engine) startLocked(text string) {
	e.counter++
	seq := e.counter

	req, err := request.New(text, seq)
	if err != nil {
		e.results = result.Empty()
		e.err = err
		e.status = status.Idle
		return
	}

	e.status = status.Searching
	if e.inflight == 0 {
		e.idle = make(chan struct{})
	}
	e.inflight++
	go e.evaluate(req)
}

func (e *Engine) evaluate(req request.Request) {
	res, err := e.searcher.Search(e.ctx, req)
	e.apply(req, res, err)
}

func (e *Engine) apply(req request.Request, res result.Set, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	defer func() {
		e.inflight--
		if e.inflight == 0 {
			close(e.idle)
		}
	}()

	l := e.logger.With(zap.Uint64("seq", req.Sequence()), zap.String("query", req.Query()))

	if req.Sequence() != e.counter {
		metrics.SearchSupersededTotal.Inc()
		metrics.SearchEvaluationsTotal.WithLabelValues(outcomeSuperseded).Inc()
		l.Debug("Search superseded", zap.Bool("superseded", true), zap.Error(err))
		return
	}

	if err != nil {
		e.results = result.Empty()
		e.err = err
		metrics.SearchEvaluationsTotal.WithLabelValues(outcomeError).Inc()
		l.Error("Search failed", zap.String("kind", string(domain.KindOf(err))), zap.Error(err))
	} else {
		e.results = res
		e.err = nil
		metrics.SearchEvaluationsTotal.WithLabelValues(outcomeApplied).Inc()
		l.Debug("Search applied",
			zap.String("source", string(res.Source())),
			zap.Int("results", res.Len()),
			zap.Bool("superseded", false),
		)
	}

	if !e.pending {
		e.status = status.Idle
	}
}
