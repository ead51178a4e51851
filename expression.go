package shopsearch

import "time"

// Expression represents a composable filter expression evaluated by a
// catalog backend.
type Expression interface {
	// expr is a marker method to distinguish expressions from other values.
	expr()
}

// baseExpr provides the expr marker method for all expression types.
type baseExpr struct{}

func (baseExpr) expr() {}

// AndExpr represents an AND combination of expressions.
type AndExpr struct {
	baseExpr
	// Exprs contains the expressions to combine with AND logic.
	Exprs []Expression
}

// And creates an AND expression combining multiple expressions.
func And(exprs ...Expression) Expression {
	return AndExpr{Exprs: exprs}
}

// OrExpr represents an OR combination of expressions.
type OrExpr struct {
	baseExpr
	// Exprs contains the expressions to combine with OR logic.
	Exprs []Expression
}

// Or creates an OR expression combining multiple expressions.
func Or(exprs ...Expression) Expression {
	return OrExpr{Exprs: exprs}
}

// EqExpr represents an equality comparison expression. Against a list-valued
// field it matches when any element is equal.
type EqExpr struct {
	baseExpr
	// Field is the name of the field to compare.
	Field string
	// Value is the value to compare against.
	Value interface{}
}

// Eq creates an equality comparison expression.
func Eq(field string, value interface{}) Expression {
	return EqExpr{Field: field, Value: value}
}

// GteExpr represents a greater-than-or-equal comparison expression.
type GteExpr struct {
	baseExpr
	// Field is the name of the field to compare.
	Field string
	// Value is the value to compare against.
	Value interface{}
}

// Gte creates a greater-than-or-equal comparison expression.
func Gte(field string, value interface{}) Expression {
	return GteExpr{Field: field, Value: value}
}

// LtExpr represents a less-than comparison expression.
type LtExpr struct {
	baseExpr
	// Field is the name of the field to compare.
	Field string
	// Value is the value to compare against.
	Value interface{}
}

// Lt creates a less-than comparison expression.
func Lt(field string, value interface{}) Expression {
	return LtExpr{Field: field, Value: value}
}

// RangeExpr represents a range comparison expression.
type RangeExpr struct {
	baseExpr
	// Field is the name of the field to compare.
	Field string
	// Min is the minimum value of the range (inclusive). Can be nil for no lower bound.
	Min interface{}
	// Max is the maximum value of the range (inclusive). Can be nil for no upper bound.
	Max interface{}
}

// Range creates a range comparison expression.
func Range(field string, min, max interface{}) Expression {
	return RangeExpr{Field: field, Min: min, Max: max}
}

// SortField represents a field to sort by.
type SortField struct {
	// Field is the name of the field to sort by.
	Field string
	// Desc indicates whether to sort in descending order (true) or ascending order (false).
	Desc bool
}

// Expressions compiles the structured filters of f into backend expressions.
// The free-text query is not included; backends score it separately.
//
// Values inside one group are ORed (any selected tag, any selected star
// bucket) and groups are ANDed together. A rating of r stars matches items
// rated in [r, r+1).
func (f Filters) Expressions(now time.Time) []Expression {
	var exprs []Expression

	if len(f.Categories) > 0 && f.Categories[0] != "" {
		exprs = append(exprs, Eq(FieldCategory, f.Categories[0]))
	}

	if len(f.Tags) > 0 {
		tags := make([]Expression, 0, len(f.Tags))
		for _, t := range f.Tags {
			tags = append(tags, Eq(FieldTags, t))
		}
		exprs = append(exprs, anyOf(tags))
	}

	if !f.PriceRange.Empty() {
		var min, max interface{}
		if f.PriceRange.Min != nil {
			min = *f.PriceRange.Min
		}
		if f.PriceRange.Max != nil {
			max = *f.PriceRange.Max
		}
		exprs = append(exprs, Range(FieldPrice, min, max))
	}

	if f.IsFeatured() {
		exprs = append(exprs, Eq(FieldFeatured, true))
	}
	if f.IsBestSellers() {
		exprs = append(exprs, Eq(FieldBestSeller, true))
	}
	if f.IsNewArrivals() {
		exprs = append(exprs, Gte(FieldCreatedAtUnix, now.Add(-NewItemWindow).Unix()))
	}

	if len(f.Ratings) > 0 {
		buckets := make([]Expression, 0, len(f.Ratings))
		for _, r := range f.Ratings {
			buckets = append(buckets, And(Gte(FieldRating, float64(r)), Lt(FieldRating, float64(r+1))))
		}
		exprs = append(exprs, anyOf(buckets))
	}

	return exprs
}

// Sort returns the sort fields for f.SortBy. Relevance yields none.
func (f Filters) Sort() []SortField {
	switch f.SortBy {
	case SortPriceAsc:
		return []SortField{{Field: FieldPrice}}
	case SortPriceDesc:
		return []SortField{{Field: FieldPrice, Desc: true}}
	case SortRating:
		return []SortField{{Field: FieldRating, Desc: true}}
	case SortNewest:
		return []SortField{{Field: FieldCreatedAtUnix, Desc: true}}
	default:
		return nil
	}
}

func anyOf(exprs []Expression) Expression {
	if len(exprs) == 1 {
		return exprs[0]
	}
	return Or(exprs...)
}
