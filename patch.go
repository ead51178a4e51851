package shopsearch

import "slices"

// Field is an optional patch value. The zero Field leaves the target untouched.
type Field[T any] struct {
	set   bool
	value T
}

// Set returns a Field that overwrites the target with v.
func Set[T any](v T) Field[T] {
	return Field[T]{set: true, value: v}
}

// Get returns the value and whether the field was set.
func (f Field[T]) Get() (T, bool) {
	return f.value, f.set
}

// Patch is a partial update merged over the current Filters by ApplyPatch.
type Patch struct {
	Query       Field[string]
	Categories  Field[[]string]
	Tags        Field[[]string]
	PriceRange  Field[*PriceRange]
	SortBy      Field[SortBy]
	Featured    Field[*bool]
	NewArrivals Field[*bool]
	BestSellers Field[*bool]
	Ratings     Field[[]int]
}

// ApplyPatch merges p over current and returns the result. current is not
// modified and the result shares no memory with either argument.
func ApplyPatch(current Filters, p Patch) Filters {
	next := current.Clone()
	if v, ok := p.Query.Get(); ok {
		next.Query = v
	}
	if v, ok := p.Categories.Get(); ok {
		next.Categories = cloneSlice(v)
	}
	if v, ok := p.Tags.Get(); ok {
		next.Tags = cloneSlice(v)
	}
	if v, ok := p.PriceRange.Get(); ok {
		next.PriceRange = nil
		if !v.Empty() {
			next.PriceRange = &PriceRange{Min: clonePtr(v.Min), Max: clonePtr(v.Max)}
		}
	}
	if v, ok := p.SortBy.Get(); ok {
		next.SortBy = v
	}
	if v, ok := p.Featured.Get(); ok {
		next.Featured = clonePtr(v)
	}
	if v, ok := p.NewArrivals.Get(); ok {
		next.NewArrivals = clonePtr(v)
	}
	if v, ok := p.BestSellers.Get(); ok {
		next.BestSellers = clonePtr(v)
	}
	if v, ok := p.Ratings.Get(); ok {
		next.Ratings = cloneSlice(v)
	}
	return next.normalize()
}

// normalize replaces nil slices with empty ones and an empty sort with the default.
func (f Filters) normalize() Filters {
	if f.Categories == nil {
		f.Categories = []string{}
	}
	if f.Tags == nil {
		f.Tags = []string{}
	}
	if f.Ratings == nil {
		f.Ratings = []int{}
	}
	if f.SortBy == "" {
		f.SortBy = SortRelevance
	}
	return f
}

// QueryPatch replaces the free-text query.
func QueryPatch(q string) Patch {
	return Patch{Query: Set(q)}
}

// SortPatch replaces the sort order.
func SortPatch(s SortBy) Patch {
	return Patch{SortBy: Set(s)}
}

// ClearAll resets every filter and the query. The sort order is kept.
func ClearAll() Patch {
	return Patch{
		Query:       Set(""),
		Categories:  Set([]string{}),
		Tags:        Set([]string{}),
		PriceRange:  Set[*PriceRange](nil),
		Featured:    Set[*bool](nil),
		NewArrivals: Set[*bool](nil),
		BestSellers: Set[*bool](nil),
		Ratings:     Set([]int{}),
	}
}

// ToggleCategory adds or removes a category relative to f.
func (f Filters) ToggleCategory(category string, checked bool) Patch {
	return Patch{Categories: Set(toggle(f.Categories, category, checked))}
}

// ToggleTag adds or removes a tag relative to f.
func (f Filters) ToggleTag(tag string, checked bool) Patch {
	return Patch{Tags: Set(toggle(f.Tags, tag, checked))}
}

// ToggleRating adds or removes a star count relative to f.
func (f Filters) ToggleRating(stars int, checked bool) Patch {
	return Patch{Ratings: Set(toggle(f.Ratings, stars, checked))}
}

// SetMinPrice replaces the lower price bound, keeping the upper one. A nil
// bound clears that side.
func (f Filters) SetMinPrice(v *float64) Patch {
	var max *float64
	if f.PriceRange != nil {
		max = f.PriceRange.Max
	}
	return Patch{PriceRange: Set(&PriceRange{Min: v, Max: max})}
}

// SetMaxPrice replaces the upper price bound, keeping the lower one.
func (f Filters) SetMaxPrice(v *float64) Patch {
	var min *float64
	if f.PriceRange != nil {
		min = f.PriceRange.Min
	}
	return Patch{PriceRange: Set(&PriceRange{Min: min, Max: v})}
}

// TopPick names one of the boolean "top picks" filters.
type TopPick string

const (
	PickFeatured    TopPick = "featured"
	PickNewArrivals TopPick = "newArrivals"
	PickBestSellers TopPick = "bestSellers"
)

// SetTopPick sets one of the boolean filters.
func SetTopPick(pick TopPick, checked bool) Patch {
	switch pick {
	case PickFeatured:
		return Patch{Featured: Set(Bool(checked))}
	case PickNewArrivals:
		return Patch{NewArrivals: Set(Bool(checked))}
	case PickBestSellers:
		return Patch{BestSellers: Set(Bool(checked))}
	default:
		return Patch{}
	}
}

// toggle appends v when checked and it is missing, and removes every copy of v
// when unchecked. The input slice is never modified.
func toggle[T comparable](values []T, v T, checked bool) []T {
	if checked {
		if slices.Contains(values, v) {
			return cloneSlice(values)
		}
		return append(slices.Clone(values), v)
	}
	out := make([]T, 0, len(values))
	for _, existing := range values {
		if existing != v {
			out = append(out, existing)
		}
	}
	return out
}
