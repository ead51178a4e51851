// Package debouncetest provides a manually advanced clock for debounce tests.
package debouncetest

import (
	"sort"
	"sync"
	"time"

	"github.com/letmevibethatforyou/shopsearch/internal/debounce"
)

// Clock is a debounce.Clock whose time only moves when Advance is called.
type Clock struct {
	mu     sync.Mutex
	now    time.Duration
	timers []*timer
}

type timer struct {
	clock   *Clock
	at      time.Duration
	f       func()
	done    bool
	stopped bool
}

var _ debounce.Clock = (*Clock)(nil)

// NewClock returns a clock at time zero.
func NewClock() *Clock {
	return &Clock{}
}

// AfterFunc implements debounce.Clock.
func (c *Clock) AfterFunc(d time.Duration, f func()) debounce.Stopper {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &timer{clock: c, at: c.now + d, f: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *timer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.done || t.stopped {
		return false
	}
	t.stopped = true
	return true
}

// Advance moves the clock forward by d and runs, in deadline order, every
// action that became due. Actions run on the calling goroutine.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now += d
	var due []*timer
	live := c.timers[:0]
	for _, t := range c.timers {
		switch {
		case t.stopped:
		case t.at <= c.now:
			t.done = true
			due = append(due, t)
		default:
			live = append(live, t)
		}
	}
	c.timers = live
	c.mu.Unlock()

	sort.SliceStable(due, func(i, j int) bool { return due[i].at < due[j].at })
	for _, t := range due {
		t.f()
	}
}

// Waiting returns the number of scheduled actions that have neither run nor
// been stopped.
func (c *Clock) Waiting() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped && !t.done {
			n++
		}
	}
	return n
}
