// Package debounce provides a single-slot cancellable timer.
package debounce

import (
	"sync"
	"time"
)

// Stopper is a scheduled action that can be cancelled. *time.Timer satisfies it.
type Stopper interface {
	Stop() bool
}

// Clock schedules actions. The real clock is backed by time.AfterFunc.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Stopper
}

type realClock struct{}

func (realClock) AfterFunc(d time.Duration, f func()) Stopper {
	return time.AfterFunc(d, f)
}

// RealClock returns a Clock backed by the runtime timers.
func RealClock() Clock {
	return realClock{}
}

// Timer holds at most one pending action. Scheduling a new action cancels
// the previous one, so only the last action of a burst ever runs.
type Timer struct {
	clock Clock

	mu      sync.Mutex
	pending Stopper
	// seq identifies the pending action. A callback whose sequence is no
	// longer current lost a race with Schedule or CancelPending and does nothing.
	seq uint64
}

// New creates a Timer on clock. A nil clock means the real clock.
func New(clock Clock) *Timer {
	if clock == nil {
		clock = RealClock()
	}
	return &Timer{clock: clock}
}

// Schedule cancels any pending action and arranges for action to run after delay.
func (t *Timer) Schedule(delay time.Duration, action func()) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stopLocked()
	t.seq++
	seq := t.seq
	t.pending = t.clock.AfterFunc(delay, func() {
		t.mu.Lock()
		if seq != t.seq || t.pending == nil {
			t.mu.Unlock()
			return
		}
		t.pending = nil
		t.mu.Unlock()
		action()
	})
}

// CancelPending drops the pending action, if any. It reports whether an
// action was cancelled.
func (t *Timer) CancelPending() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	had := t.pending != nil
	t.stopLocked()
	t.seq++
	return had
}

// Pending reports whether an action is waiting to run.
func (t *Timer) Pending() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pending != nil
}

func (t *Timer) stopLocked() {
	if t.pending != nil {
		t.pending.Stop()
		t.pending = nil
	}
}
