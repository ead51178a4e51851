package shopsearch

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// SortBy enumerates the supported result orderings.
type SortBy string

const (
	// SortRelevance orders results by match score. It is the default.
	SortRelevance SortBy = "relevance"
	// SortPriceAsc orders results by price, cheapest first.
	SortPriceAsc SortBy = "price-asc"
	// SortPriceDesc orders results by price, most expensive first.
	SortPriceDesc SortBy = "price-desc"
	// SortRating orders results by rating, highest first.
	SortRating SortBy = "rating"
	// SortNewest orders results by creation time, newest first.
	SortNewest SortBy = "newest"
)

// SortOption pairs a sort value with its display label.
type SortOption struct {
	Value SortBy
	Label string
}

// SortOptions returns the sort choices in display order.
func SortOptions() []SortOption {
	return []SortOption{
		{Value: SortRelevance, Label: "Relevance"},
		{Value: SortPriceAsc, Label: "Price: Low to High"},
		{Value: SortPriceDesc, Label: "Price: High to Low"},
		{Value: SortRating, Label: "Rating"},
		{Value: SortNewest, Label: "Newest"},
	}
}

// Valid reports whether s is one of the five known sort values.
func (s SortBy) Valid() bool {
	for _, opt := range SortOptions() {
		if opt.Value == s {
			return true
		}
	}
	return false
}

// Label returns the display label for s, or the raw value if s is unknown.
func (s SortBy) Label() string {
	for _, opt := range SortOptions() {
		if opt.Value == s {
			return opt.Label
		}
	}
	return string(s)
}

// PriceRange holds optional price bounds. Either side may be nil.
type PriceRange struct {
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
}

// Empty reports whether neither bound is set.
func (p *PriceRange) Empty() bool {
	return p == nil || (p.Min == nil && p.Max == nil)
}

// Filters is the complete description of the shopper's current search intent.
//
// Every field is always present. Optional values are expressed with nil
// pointers, never by omitting the field. Only the first category is honored
// by the query-string codec.
type Filters struct {
	Query       string      `json:"query"`
	Categories  []string    `json:"categories"`
	Tags        []string    `json:"tags"`
	PriceRange  *PriceRange `json:"priceRange,omitempty"`
	SortBy      SortBy      `json:"sortBy"`
	Featured    *bool       `json:"featured,omitempty"`
	NewArrivals *bool       `json:"newArrivals,omitempty"`
	BestSellers *bool       `json:"bestSellers,omitempty"`
	Ratings     []int       `json:"ratings"`
}

// DefaultFilters returns the filter state used before anything is selected.
func DefaultFilters() Filters {
	return Filters{
		Categories: []string{},
		Tags:       []string{},
		SortBy:     SortRelevance,
		Ratings:    []int{},
	}
}

// Clone returns a deep copy of f. Snapshots handed to readers are clones, so
// they never observe later updates.
func (f Filters) Clone() Filters {
	out := f
	out.Categories = cloneSlice(f.Categories)
	out.Tags = cloneSlice(f.Tags)
	out.Ratings = cloneSlice(f.Ratings)
	if f.PriceRange != nil {
		out.PriceRange = &PriceRange{Min: clonePtr(f.PriceRange.Min), Max: clonePtr(f.PriceRange.Max)}
	}
	out.Featured = clonePtr(f.Featured)
	out.NewArrivals = clonePtr(f.NewArrivals)
	out.BestSellers = clonePtr(f.BestSellers)
	return out
}

// IsFeatured reports whether the featured flag is set. Absent means false.
func (f Filters) IsFeatured() bool { return isTrue(f.Featured) }

// IsNewArrivals reports whether the new-arrivals flag is set.
func (f Filters) IsNewArrivals() bool { return isTrue(f.NewArrivals) }

// IsBestSellers reports whether the best-sellers flag is set.
func (f Filters) IsBestSellers() bool { return isTrue(f.BestSellers) }

// HasFilters reports whether anything besides the sort order narrows the search.
// It drives whether a "clear all" action is available.
func (f Filters) HasFilters() bool {
	return len(f.Categories) > 0 ||
		len(f.Tags) > 0 ||
		!f.PriceRange.Empty() ||
		f.IsFeatured() ||
		len(f.Ratings) > 0 ||
		f.IsNewArrivals() ||
		f.IsBestSellers() ||
		strings.TrimSpace(f.Query) != ""
}

// ActiveCount returns the badge count shown next to the filters toggle.
// Categories and tags count per value; price, featured and ratings count once.
func (f Filters) ActiveCount() int {
	n := len(f.Categories) + len(f.Tags)
	if !f.PriceRange.Empty() {
		n++
	}
	if f.IsFeatured() {
		n++
	}
	if len(f.Ratings) > 0 {
		n++
	}
	return n
}

// FilterSummary holds the one-line descriptions shown under each filter group.
// An empty string means the group has nothing selected.
type FilterSummary struct {
	Categories string
	Tags       string
	Price      string
	TopPicks   string
	Ratings    string
}

// Summary describes the selected filters for display.
func (f Filters) Summary() FilterSummary {
	var s FilterSummary
	if len(f.Categories) > 0 {
		s.Categories = joinUpperFirst(f.Categories)
	}
	if len(f.Tags) > 0 {
		s.Tags = joinUpperFirst(f.Tags)
	}
	s.Price = priceSummary(f.PriceRange)

	var picks []string
	if f.IsFeatured() {
		picks = append(picks, "Featured")
	}
	if f.IsNewArrivals() {
		picks = append(picks, "New Arrivals")
	}
	if f.IsBestSellers() {
		picks = append(picks, "Best Sellers")
	}
	s.TopPicks = strings.Join(picks, ", ")

	if len(f.Ratings) > 0 {
		parts := make([]string, len(f.Ratings))
		for i, r := range f.Ratings {
			parts[i] = strconv.Itoa(r)
		}
		s.Ratings = strings.Join(parts, ", ") + " ★"
	}
	return s
}

func priceSummary(p *PriceRange) string {
	switch {
	case p.Empty():
		return "-"
	case p.Min != nil && p.Max != nil:
		return fmt.Sprintf("$%s - $%s", formatNumber(*p.Min), formatNumber(*p.Max))
	case p.Min != nil:
		return "Min $" + formatNumber(*p.Min)
	default:
		return "Max $" + formatNumber(*p.Max)
	}
}

// UpperFirst uppercases the first character of s.
func UpperFirst(s string) string {
	if s == "" {
		return ""
	}
	r := []rune(s)
	return strings.ToUpper(string(r[0])) + string(r[1:])
}

func joinUpperFirst(values []string) string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = UpperFirst(v)
	}
	return strings.Join(out, ", ")
}

// formatNumber renders a float the shortest way that parses back to the same value.
func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func isTrue(b *bool) bool {
	return b != nil && *b
}

func cloneSlice[T any](in []T) []T {
	if in == nil {
		return nil
	}
	return slices.Clone(in)
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Bool returns a pointer to b.
func Bool(b bool) *bool { return &b }

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }
