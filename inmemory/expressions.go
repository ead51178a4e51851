package inmemory

import (
	"fmt"

	"github.com/letmevibethatforyou/shopsearch"
)

// matchesFilters checks if a document matches all the filter expressions.
func (s *Searcher) matchesFilters(doc Document, filters []shopsearch.Expression) bool {
	for _, filter := range filters {
		if !s.evaluateExpression(doc, filter) {
			return false
		}
	}
	return true
}

// evaluateExpression evaluates a single expression against a document.
func (s *Searcher) evaluateExpression(doc Document, expr shopsearch.Expression) bool {
	switch e := expr.(type) {
	case shopsearch.AndExpr:
		return s.evaluateAnd(doc, e)
	case shopsearch.OrExpr:
		return s.evaluateOr(doc, e)
	case shopsearch.EqExpr:
		return s.evaluateEq(doc, e)
	case shopsearch.GteExpr:
		return s.evaluateGte(doc, e)
	case shopsearch.LtExpr:
		return s.evaluateLt(doc, e)
	case shopsearch.RangeExpr:
		return s.evaluateRange(doc, e)
	default:
		// Unknown expression type, return true to not filter out
		return true
	}
}

// evaluateAnd evaluates an AND expression.
func (s *Searcher) evaluateAnd(doc Document, expr shopsearch.AndExpr) bool {
	for _, e := range expr.Exprs {
		if !s.evaluateExpression(doc, e) {
			return false
		}
	}
	return true
}

// evaluateOr evaluates an OR expression.
func (s *Searcher) evaluateOr(doc Document, expr shopsearch.OrExpr) bool {
	for _, e := range expr.Exprs {
		if s.evaluateExpression(doc, e) {
			return true
		}
	}
	return false
}

// evaluateEq evaluates an equality expression. List-valued fields match when
// any element is equal.
func (s *Searcher) evaluateEq(doc Document, expr shopsearch.EqExpr) bool {
	docValue, exists := doc.Fields[expr.Field]
	if !exists {
		return expr.Value == nil
	}

	if list, ok := docValue.([]interface{}); ok {
		for _, v := range list {
			if s.compareEqual(v, expr.Value) {
				return true
			}
		}
		return false
	}
	return s.compareEqual(docValue, expr.Value)
}

// evaluateGte evaluates a greater-than-or-equal expression.
func (s *Searcher) evaluateGte(doc Document, expr shopsearch.GteExpr) bool {
	docValue, exists := doc.Fields[expr.Field]
	if !exists {
		return false
	}

	return s.compareValues(docValue, expr.Value) >= 0
}

// evaluateLt evaluates a less-than expression.
func (s *Searcher) evaluateLt(doc Document, expr shopsearch.LtExpr) bool {
	docValue, exists := doc.Fields[expr.Field]
	if !exists {
		return false
	}

	return s.compareValues(docValue, expr.Value) < 0
}

// evaluateRange evaluates a range expression.
func (s *Searcher) evaluateRange(doc Document, expr shopsearch.RangeExpr) bool {
	docValue, exists := doc.Fields[expr.Field]
	if !exists {
		return false
	}

	if expr.Min != nil && s.compareValues(docValue, expr.Min) < 0 {
		return false
	}

	if expr.Max != nil && s.compareValues(docValue, expr.Max) > 0 {
		return false
	}

	return true
}

// compareEqual checks if two values are equal.
func (s *Searcher) compareEqual(v1, v2 interface{}) bool {
	if v1 == nil || v2 == nil {
		return v1 == v2
	}

	if f1, ok1 := toFloat64(v1); ok1 {
		if f2, ok2 := toFloat64(v2); ok2 {
			return f1 == f2
		}
	}

	return fmt.Sprintf("%v", v1) == fmt.Sprintf("%v", v2)
}

// toFloat64 attempts to convert a value to float64.
func toFloat64(v interface{}) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int32:
		return float64(val), true
	case int64:
		return float64(val), true
	case uint32:
		return float64(val), true
	case uint64:
		return float64(val), true
	default:
		return 0, false
	}
}
