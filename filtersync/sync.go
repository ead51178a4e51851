// Package filtersync keeps the shopper's filter state, the address bar and
// the remote search in agreement.
//
// Every state change is merged atomically, then a search is scheduled behind
// a debounce quiet period and the address bar is replaced with the encoded
// state. Each dispatched search gets a monotonically increasing request id;
// responses for anything but the latest issued id are discarded, so a slow
// stale request can never overwrite newer results.
package filtersync

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/letmevibethatforyou/shopsearch"
	"github.com/letmevibethatforyou/shopsearch/internal/debounce"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Navigator replaces the current address bar entry. Implementations must not
// push a new history entry.
type Navigator interface {
	Replace(query string)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(query string)

// Replace implements Navigator.
func (f NavigatorFunc) Replace(query string) { f(query) }

// Sync owns the filter state of one search page.
type Sync struct {
	searcher shopsearch.Searcher
	nav      Navigator
	delay    time.Duration
	clock    debounce.Clock
	timer    *debounce.Timer
	logger   *slog.Logger
	tracer   trace.Tracer
	onChange func(View)

	ctx    context.Context
	cancel context.CancelFunc

	// writeMu serializes state changes so address bar writes land in order.
	writeMu sync.Mutex

	mu           sync.Mutex
	filters      shopsearch.Filters
	response     *shopsearch.Response
	loading      bool
	errMsg       string
	attempted    bool
	bootstrapped bool
	closed       bool
	issued       uint64
	cursor       cursor

	// inflight counts running searches; idle is signalled when it drops to zero.
	inflight int
	idle     *sync.Cond
}

// New creates a Sync holding the default filters. Nothing is dispatched until
// Bootstrap or Update is called.
func New(searcher shopsearch.Searcher, nav Navigator, opts ...Option) *Sync {
	s := &Sync{
		searcher: searcher,
		nav:      nav,
		delay:    DefaultDelay,
		logger:   slog.Default(),
		tracer:   otel.Tracer("shopsearch-filtersync"),
		filters:  shopsearch.DefaultFilters(),
		cursor:   newCursor(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.nav == nil {
		s.nav = NavigatorFunc(func(string) {})
	}
	s.timer = debounce.New(s.clock)
	s.idle = sync.NewCond(&s.mu)
	s.ctx, s.cancel = context.WithCancel(context.Background())
	return s
}

// Bootstrap reads the filter state from the address bar query string. It runs
// once; later calls return shopsearch.ErrAlreadyBootstrapped and change nothing.
//
// Malformed parameters are reported in the returned error, which wraps
// shopsearch.ErrInvalidParam. The parameters that did parse are still applied.
func (s *Sync) Bootstrap(rawQuery string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	if s.bootstrapped {
		s.mu.Unlock()
		return shopsearch.ErrAlreadyBootstrapped
	}
	s.bootstrapped = true
	s.mu.Unlock()

	filters, err := shopsearch.ParseQuery(rawQuery)
	if err != nil {
		s.logger.Warn("address bar contains invalid filters", "query", rawQuery, "error", err)
	}
	s.commit(func(shopsearch.Filters) shopsearch.Filters { return filters })
	return err
}

// Update merges p over the current filters.
func (s *Sync) Update(p shopsearch.Patch) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.commit(func(current shopsearch.Filters) shopsearch.Filters {
		return shopsearch.ApplyPatch(current, p)
	})
}

// Type replaces the query as the shopper types and opens the suggestion list.
func (s *Sync) Type(text string) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.commit(func(current shopsearch.Filters) shopsearch.Filters {
		return shopsearch.ApplyPatch(current, shopsearch.QueryPatch(text))
	}, showSuggestions(true))
}

// SelectSuggestion writes suggestion i into the query and closes the list.
// It reports false when i is out of range.
func (s *Sync) SelectSuggestion(i int) bool {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	suggestions := s.suggestionsLocked()
	if i < 0 || i >= len(suggestions) {
		s.mu.Unlock()
		return false
	}
	text := suggestions[i]
	s.mu.Unlock()

	s.commit(func(current shopsearch.Filters) shopsearch.Filters {
		return shopsearch.ApplyPatch(current, shopsearch.QueryPatch(text))
	}, showSuggestions(false))
	return true
}

// SetSuggestionsVisible opens or closes the suggestion list.
func (s *Sync) SetSuggestionsVisible(visible bool) {
	s.mu.Lock()
	s.cursor.show(visible)
	view := s.viewLocked()
	s.mu.Unlock()
	s.notify(view)
}

// Key handles keyboard navigation of the suggestion list. It reports whether
// the key was consumed; keys are ignored while the list is hidden or empty.
func (s *Sync) Key(k Key) bool {
	s.mu.Lock()
	n := len(s.suggestionsLocked())
	if !s.cursor.visible || n == 0 {
		s.mu.Unlock()
		return false
	}
	if k == KeyEnter {
		active := s.cursor.active
		s.mu.Unlock()
		if active < 0 {
			return false
		}
		return s.SelectSuggestion(active)
	}
	s.cursor.move(k, n)
	view := s.viewLocked()
	s.mu.Unlock()
	s.notify(view)
	return true
}

// View returns a snapshot of the current state.
func (s *Sync) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

// Filters returns a copy of the current filters.
func (s *Sync) Filters() shopsearch.Filters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filters.Clone()
}

// Wait blocks until every dispatched search has returned. A search still
// waiting out its debounce period is not waited for. It is safe to call while
// the timer is dispatching.
func (s *Sync) Wait() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.waitLocked()
}

func (s *Sync) waitLocked() {
	for s.inflight > 0 {
		s.idle.Wait()
	}
}

// Close cancels the pending search and the context of in-flight searches,
// then waits for them to return. Later responses are ignored.
func (s *Sync) Close() {
	s.mu.Lock()
	s.closed = true
	s.timer.CancelPending()
	s.loading = false
	s.mu.Unlock()
	s.cancel()
	s.Wait()
}

type commitOption func(*Sync)

func showSuggestions(visible bool) commitOption {
	return func(s *Sync) { s.cursor.show(visible) }
}

// commit installs the next filter state, schedules the search and replaces
// the address bar, in that order. Callers hold writeMu.
func (s *Sync) commit(next func(shopsearch.Filters) shopsearch.Filters, opts ...commitOption) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	prev := s.filters
	s.filters = next(prev.Clone())
	if s.filters.Query != prev.Query {
		s.cursor.reset()
	}
	for _, opt := range opts {
		opt(s)
	}

	s.loading = true
	s.errMsg = ""
	s.attempted = true
	snapshot := s.filters.Clone()
	s.timer.Schedule(s.delay, func() { s.dispatch(snapshot) })

	query := shopsearch.EncodeString(snapshot)
	view := s.viewLocked()
	s.mu.Unlock()

	s.nav.Replace(query)
	s.notify(view)
}

// dispatch issues the next request id and runs the search in the background.
func (s *Sync) dispatch(filters shopsearch.Filters) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.issued++
	id := s.issued
	s.loading = true
	s.inflight++
	view := s.viewLocked()
	s.mu.Unlock()

	s.notify(view)
	go s.run(id, filters)
}

func (s *Sync) run(id uint64, filters shopsearch.Filters) {
	defer s.finish()

	ctx, span := s.tracer.Start(s.ctx, "filtersync.dispatch",
		trace.WithAttributes(
			attribute.Int64("request.id", int64(id)),
			attribute.String("request.query", shopsearch.EncodeString(filters)),
		),
	)
	defer span.End()

	s.logger.DebugContext(ctx, "dispatching search", "request_id", id, "query", filters.Query)
	resp, err := s.searcher.Search(ctx, filters)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if id != s.issued {
		latest := s.issued
		s.mu.Unlock()
		span.SetAttributes(attribute.Bool("request.stale", true))
		s.logger.DebugContext(ctx, "discarding stale response", "request_id", id, "latest_id", latest)
		return
	}

	if err != nil {
		s.errMsg = shopsearch.FetchFailedMessage
		span.RecordError(err)
		span.SetStatus(codes.Error, "search failed")
		s.logger.WarnContext(ctx, "search failed", "request_id", id, "error", err)
	} else {
		if resp == nil {
			resp = &shopsearch.Response{}
		}
		s.response = resp
		s.errMsg = ""
		s.cursor.clamp(len(resp.Suggestions))
		span.SetAttributes(attribute.Int64("response.total", resp.Total))
		span.SetStatus(codes.Ok, "search applied")
	}
	// A change made while this request was in flight keeps the page loading
	// until its own request resolves.
	s.loading = s.timer.Pending()
	view := s.viewLocked()
	s.mu.Unlock()

	s.notify(view)
}

func (s *Sync) finish() {
	s.mu.Lock()
	s.inflight--
	if s.inflight == 0 {
		s.idle.Broadcast()
	}
	s.mu.Unlock()
}

func (s *Sync) suggestionsLocked() []string {
	if s.response == nil {
		return nil
	}
	return s.response.Suggestions
}

func (s *Sync) viewLocked() View {
	return View{
		Filters:            s.filters.Clone(),
		Response:           s.response,
		Suggestions:        slices.Clone(s.suggestionsLocked()),
		SuggestionsVisible: s.cursor.visible,
		ActiveSuggestion:   s.cursor.active,
		Loading:            s.loading,
		Error:              s.errMsg,
		Attempted:          s.attempted,
		RequestID:          s.issued,
	}
}

func (s *Sync) notify(v View) {
	if s.onChange != nil {
		s.onChange(v)
	}
}
