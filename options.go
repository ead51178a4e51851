package shopsearch

import "time"

// Default paging and suggestion sizes used by the catalog backends.
const (
	DefaultLimit       = 24
	DefaultSuggestions = 5
)

// SearchOption represents a search configuration option.
type SearchOption interface {
	Apply(*SearchConfig)
}

// SearchConfig holds backend-side search parameters that are not part of the
// shopper's filter state.
type SearchConfig struct {
	// Limit specifies the maximum number of items to return.
	Limit int

	// Offset specifies the number of items to skip for pagination.
	Offset int

	// MaxSuggestions caps the suggestions returned with the page.
	MaxSuggestions int

	// Now is the reference time for the new-arrivals filter.
	Now time.Time
}

// NewSearchConfig applies opts over the defaults.
func NewSearchConfig(opts ...SearchOption) *SearchConfig {
	cfg := &SearchConfig{}
	for _, opt := range opts {
		opt.Apply(cfg)
	}
	if cfg.Limit <= 0 {
		cfg.Limit = DefaultLimit
	}
	if cfg.Offset < 0 {
		cfg.Offset = 0
	}
	if cfg.MaxSuggestions <= 0 {
		cfg.MaxSuggestions = DefaultSuggestions
	}
	if cfg.Now.IsZero() {
		cfg.Now = time.Now()
	}
	return cfg
}

// optionFunc is a function that implements SearchOption.
type optionFunc func(*SearchConfig)

// Apply implements the SearchOption interface for optionFunc.
func (f optionFunc) Apply(cfg *SearchConfig) {
	f(cfg)
}

// WithLimit sets the maximum number of items to return.
func WithLimit(n int) SearchOption {
	return optionFunc(func(cfg *SearchConfig) {
		cfg.Limit = n
	})
}

// WithOffset sets the number of items to skip for pagination.
func WithOffset(n int) SearchOption {
	return optionFunc(func(cfg *SearchConfig) {
		cfg.Offset = n
	})
}

// WithMaxSuggestions caps the number of suggestions.
func WithMaxSuggestions(n int) SearchOption {
	return optionFunc(func(cfg *SearchConfig) {
		cfg.MaxSuggestions = n
	})
}

// WithNow fixes the reference time used by time-relative filters.
func WithNow(t time.Time) SearchOption {
	return optionFunc(func(cfg *SearchConfig) {
		cfg.Now = t
	})
}
