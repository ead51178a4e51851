package main

import (
	"net/url"
	"strings"
	"sync"
)

// addressBar stands in for the browser location. Only the latest entry is
// current; History lists every replacement for inspection.
type addressBar struct {
	mu      sync.Mutex
	current string
	history []string
}

// Replace implements filtersync.Navigator.
func (a *addressBar) Replace(query string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.current = query
	a.history = append(a.history, query)
}

func (a *addressBar) Current() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current
}

func (a *addressBar) History() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.history...)
}

// queryOf accepts either a bare query string or a full page URL and returns
// the query part.
func queryOf(raw string) string {
	raw = strings.TrimSpace(raw)
	if u, err := url.Parse(raw); err == nil && u.Scheme != "" {
		return u.RawQuery
	}
	return raw
}
