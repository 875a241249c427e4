package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/cafematch/internal/domain"
	"github.com/kailas-cloud/cafematch/internal/logger"
	"github.com/kailas-cloud/cafematch/internal/usecase/search"
)

// DefaultMaxSessions caps the registry when New receives a non-positive max.
const DefaultMaxSessions = 1000

// EngineFactory builds the engine backing a new session.
type EngineFactory func() *search.Engine

type entry struct {
	engine   *search.Engine
	lastSeen time.Time
}

// Registry maps display client session ids to their own search engines.
type Registry struct {
	factory EngineFactory
	max     int
	now     func() time.Time
	logger  *zap.Logger

	mu       sync.Mutex
	sessions map[string]*entry
}

// New creates a registry holding at most maxSessions engines.
func New(factory EngineFactory, maxSessions int, l *zap.Logger) *Registry {
	if maxSessions <= 0 {
		maxSessions = DefaultMaxSessions
	}
	return &Registry{
		factory:  factory,
		max:      maxSessions,
		now:      time.Now,
		logger:   logger.OrNop(l),
		sessions: make(map[string]*entry),
	}
}

// Acquire returns the engine for id, creating one if needed. A blank or
// non-UUID id gets a freshly minted one. The returned id is the one to use.
func (r *Registry) Acquire(id string) (string, *search.Engine, error) {
	if _, err := uuid.Parse(id); err != nil {
		id = uuid.NewString()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.sessions[id]; ok {
		e.lastSeen = r.now()
		return id, e.engine, nil
	}

	if len(r.sessions) >= r.max {
		return "", nil, fmt.Errorf("%w: limit %d", domain.ErrTooManySessions, r.max)
	}

	e := &entry{engine: r.factory(), lastSeen: r.now()}
	r.sessions[id] = e
	r.logger.Debug("Session created", zap.String("session_id", id), zap.Int("sessions", len(r.sessions)))
	return id, e.engine, nil
}

// Get returns the engine for an existing session.
func (r *Registry) Get(id string) (*search.Engine, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session %q: %w", id, domain.ErrNotFound)
	}
	e.lastSeen = r.now()
	return e.engine, nil
}

// Close closes and forgets a session.
func (r *Registry) Close(id string) error {
	r.mu.Lock()
	e, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()

	if !ok {
		return fmt.Errorf("session %q: %w", id, domain.ErrNotFound)
	}
	e.engine.Close()
	return nil
}

// Sweep closes sessions idle for longer than ttl and returns how many were removed.
func (r *Registry) Sweep(ttl time.Duration) int {
	cutoff := r.now().Add(-ttl)

	r.mu.Lock()
	var stale []*search.Engine
	for id, e := range r.sessions {
		if e.lastSeen.Before(cutoff) {
			stale = append(stale, e.engine)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for _, e := range stale {
		e.Close()
	}
	if len(stale) > 0 {
		r.logger.Info("Swept idle sessions", zap.Int("removed", len(stale)))
	}
	return len(stale)
}

// Len returns the number of open sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// CloseAll closes every session and waits for in-flight searches to finish.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	engines := make([]*search.Engine, 0, len(r.sessions))
	for id, e := range r.sessions {
		engines = append(engines, e.engine)
		delete(r.sessions, id)
	}
	r.mu.Unlock()

	for _, e := range engines {
		e.Close()
	}
	for _, e := range engines {
		e.Wait()
	}
}
