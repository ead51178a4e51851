package shopsearch

import "context"

// Searcher defines the core search interface.
type Searcher interface {
	// Search executes a search for the given filter state.
	Search(ctx context.Context, filters Filters, opts ...SearchOption) (*Response, error)
}

// SearcherFunc is a function type that implements the Searcher interface.
// This allows using a function as a Searcher, similar to http.HandlerFunc.
type SearcherFunc func(context.Context, Filters, ...SearchOption) (*Response, error)

// Search implements the Searcher interface for SearcherFunc.
func (f SearcherFunc) Search(ctx context.Context, filters Filters, opts ...SearchOption) (*Response, error) {
	return f(ctx, filters, opts...)
}
