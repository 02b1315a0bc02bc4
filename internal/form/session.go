package form

import (
	"sync"
	"time"
)

// Session owns one form being edited. Events are applied immediately;
// scores are recomputed once per burst and the subscriber is notified with
// the settled snapshot.
type Session struct {
	engine *Engine
	rc     *Recomputer

	mu    sync.Mutex
	state State

	notifyMu     sync.Mutex
	notify       func(State)
	lastNotified uint64
}

// SessionOption customizes a Session.
type SessionOption func(*sessionConfig)

type sessionConfig struct {
	window time.Duration
	notify func(State)
}

// WithWindow sets the debounce window.
func WithWindow(d time.Duration) SessionOption {
	return func(c *sessionConfig) { c.window = d }
}

// WithSubscriber sets the function notified after each settled recompute.
func WithSubscriber(fn func(State)) SessionOption {
	return func(c *sessionConfig) { c.notify = fn }
}

// NewSession starts a session from an initial state.
func NewSession(engine *Engine, initial State, opts ...SessionOption) *Session {
	cfg := sessionConfig{window: DefaultWindow}
	for _, opt := range opts {
		opt(&cfg)
	}
	s := &Session{
		engine: engine,
		state:  engine.Recompute(initial),
		notify: cfg.notify,
	}
	s.rc = NewRecomputer(cfg.window, s.commit)
	return s
}

// Dispatch applies ev and schedules a recompute.
func (s *Session) Dispatch(ev Event) {
	s.mu.Lock()
	s.state = s.engine.Apply(s.state, ev)
	dirty := s.state.Dirty
	s.mu.Unlock()

	if dirty {
		s.rc.Schedule()
	}
}

func (s *Session) commit(uint64) {
	s.mu.Lock()
	if s.state.Dirty {
		s.state = s.engine.Recompute(s.state)
	}
	snap := s.state.Clone()
	s.mu.Unlock()

	if s.notify == nil {
		return
	}
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()
	// An overlapping commit may already have delivered a newer snapshot.
	if snap.Version < s.lastNotified {
		return
	}
	s.lastNotified = snap.Version
	s.notify(snap)
}

// Snapshot returns a copy of the current state. Scores may lag the latest
// events until the pending recompute commits; see Flush.
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Flush commits any pending recompute and returns the settled state.
func (s *Session) Flush() State {
	s.rc.Flush()
	return s.Snapshot()
}

// Phase reports the recompute phase.
func (s *Session) Phase() Phase {
	return s.rc.Phase()
}

// Close cancels any pending recompute.
func (s *Session) Close() {
	s.rc.Stop()
}
