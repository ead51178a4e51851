package filtersync

import "github.com/letmevibethatforyou/shopsearch"

// EmptyMessage is shown when a search ran and matched nothing.
const EmptyMessage = "No results found"

// Status is the display state of the results area.
type Status int

const (
	// StatusIdle means no search has been attempted yet.
	StatusIdle Status = iota
	// StatusLoading means a search is scheduled or in flight.
	StatusLoading
	// StatusError means the latest search failed.
	StatusError
	// StatusEmpty means a search ran and returned no items.
	StatusEmpty
	// StatusResults means items are available.
	StatusResults
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusError:
		return "error"
	case StatusEmpty:
		return "empty"
	case StatusResults:
		return "results"
	default:
		return "unknown"
	}
}

// View is an immutable snapshot of everything the page renders.
type View struct {
	Filters  shopsearch.Filters
	Response *shopsearch.Response

	// Suggestions come from the latest applied response.
	Suggestions        []string
	SuggestionsVisible bool
	// ActiveSuggestion is the highlighted suggestion, or -1.
	ActiveSuggestion int

	Loading bool
	// Error is empty or shopsearch.FetchFailedMessage.
	Error string
	// Attempted stays true once any search was scheduled.
	Attempted bool

	// RequestID is the id of the latest issued request, zero before the first.
	RequestID uint64
}

// Status derives the results area state. Loading wins over an error, and an
// error wins over whatever items are still held from earlier searches.
func (v View) Status() Status {
	switch {
	case v.Loading:
		return StatusLoading
	case v.Error != "":
		return StatusError
	case v.Response.Empty():
		if v.Attempted {
			return StatusEmpty
		}
		return StatusIdle
	default:
		return StatusResults
	}
}

// Items returns the items to render, never nil.
func (v View) Items() []shopsearch.Item {
	if v.Response == nil || v.Response.Items == nil {
		return []shopsearch.Item{}
	}
	return v.Response.Items
}

// Facets returns the facets of the latest response, if any.
func (v View) Facets() *shopsearch.Facets {
	if v.Response == nil {
		return nil
	}
	return &v.Response.Facets
}
