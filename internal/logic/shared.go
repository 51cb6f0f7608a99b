package logic

import (
	"sync"
	"time"
)

// Shared guards a Lifecycle that is driven by the scan loop and overridden
// by acknowledgment handlers running on other goroutines. Every method is a
// single critical section, so an acknowledgment is observed entirely before
// or entirely after a concurrent Advance.
type Shared struct {
	mu sync.Mutex
	lc *Lifecycle
}

// NewShared creates a Shared lifecycle with the given configuration.
func NewShared(cfg Config) (*Shared, error) {
	lc, err := NewLifecycle(cfg)
	if err != nil {
		return nil, err
	}
	return &Shared{lc: lc}, nil
}

// Advance calls Lifecycle.Advance under the lock.
func (s *Shared) Advance(now time.Time, classified bool) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lc.Advance(now, classified)
}

// Acknowledge calls Lifecycle.Acknowledge under the lock.
func (s *Shared) Acknowledge(now time.Time) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lc.Acknowledge(now)
}

// State returns the current state.
func (s *Shared) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lc.State()
}

// Snapshot returns state, debounce counter and counts from one critical section.
func (s *Shared) Snapshot() (State, int, Counts) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lc.State(), s.lc.Consecutive(), s.lc.Counts()
}

// Config returns the lifecycle configuration.
func (s *Shared) Config() Config {
	// cfg is immutable after construction
	return s.lc.Config()
}
