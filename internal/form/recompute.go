package form

import (
	"sync"
	"time"
)

// DefaultWindow is the debounce window for recomputation.
const DefaultWindow = 100 * time.Millisecond

// Phase is the state of a pending recompute.
type Phase int

const (
	Idle Phase = iota
	Scheduled
	Committed
)

func (p Phase) String() string {
	switch p {
	case Scheduled:
		return "scheduled"
	case Committed:
		return "committed"
	default:
		return "idle"
	}
}

// Recomputer coalesces bursts of edits into a single commit. Every Schedule
// bumps a version and resets the deadline; a timer firing for an older
// version is dropped.
type Recomputer struct {
	mu       sync.Mutex
	window   time.Duration
	phase    Phase
	version  uint64
	deadline time.Time
	timer    *time.Timer
	commit   func(version uint64)
}

// NewRecomputer creates a Recomputer that calls commit once per settled
// burst. A non-positive window uses DefaultWindow.
func NewRecomputer(window time.Duration, commit func(version uint64)) *Recomputer {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Recomputer{window: window, commit: commit}
}

// Schedule records an edit and (re)arms the deadline.
func (r *Recomputer) Schedule() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.version++
	v := r.version
	r.phase = Scheduled
	r.deadline = time.Now().Add(r.window)
	if r.timer != nil {
		r.timer.Stop()
	}
	r.timer = time.AfterFunc(r.window, func() { r.fire(v) })
	return v
}

func (r *Recomputer) fire(v uint64) {
	r.mu.Lock()
	if v != r.version || r.phase != Scheduled {
		r.mu.Unlock()
		return
	}
	r.phase = Committed
	r.timer = nil
	r.mu.Unlock()

	r.commit(v)
}

// Flush commits a scheduled recompute immediately. It reports false when
// nothing was pending.
func (r *Recomputer) Flush() bool {
	r.mu.Lock()
	if r.phase != Scheduled {
		r.mu.Unlock()
		return false
	}
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
	r.phase = Committed
	v := r.version
	r.mu.Unlock()

	r.commit(v)
	return true
}

// Stop cancels any pending commit.
func (r *Recomputer) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
	if r.phase == Scheduled {
		r.phase = Idle
	}
}

// Phase reports the current phase.
func (r *Recomputer) Phase() Phase {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.phase
}

// Deadline reports when the pending commit is due. It is zero unless the
// phase is Scheduled.
func (r *Recomputer) Deadline() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.phase != Scheduled {
		return time.Time{}
	}
	return r.deadline
}

// Version reports the latest scheduled version.
func (r *Recomputer) Version() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.version
}
