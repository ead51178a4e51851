package filtersync

import (
	"log/slog"
	"time"

	"github.com/letmevibethatforyou/shopsearch/internal/debounce"
	"go.opentelemetry.io/otel/trace"
)

// DefaultDelay is the quiet period a burst of filter changes must end with
// before a search is sent.
const DefaultDelay = 300 * time.Millisecond

// Option configures a Sync.
type Option func(*Sync)

// WithDelay overrides the debounce quiet period.
func WithDelay(d time.Duration) Option {
	return func(s *Sync) {
		if d > 0 {
			s.delay = d
		}
	}
}

// WithClock sets the clock the debounce timer runs on.
func WithClock(c debounce.Clock) Option {
	return func(s *Sync) {
		s.clock = c
	}
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Sync) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithTracer sets the tracer used for dispatch spans.
func WithTracer(t trace.Tracer) Option {
	return func(s *Sync) {
		if t != nil {
			s.tracer = t
		}
	}
}

// WithOnChange registers a callback receiving a snapshot after every state
// change. It may be called from the dispatch goroutine.
func WithOnChange(fn func(View)) Option {
	return func(s *Sync) {
		s.onChange = fn
	}
}
