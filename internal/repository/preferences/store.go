package preferences

import (
	"sync"

	"github.com/kailas-cloud/cafematch/internal/domain/preference"
)

// Store holds the current preference set in memory.
type Store struct {
	mu    sync.RWMutex
	prefs preference.Set
}

// New creates a store seeded with initial.
func New(initial preference.Set) *Store {
	return &Store{prefs: initial}
}

// Get returns a snapshot of the current preferences.
func (s *Store) Get() preference.Set {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.prefs
}

// Set validates and replaces the current preferences.
func (s *Store) Set(p preference.Set) error {
	if err := p.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	s.prefs = p
	s.mu.Unlock()
	return nil
}
