package shopsearch

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
)

// Query-string parameter names shared by the address bar and the search endpoint.
const (
	ParamQuery       = "query"
	ParamCategory    = "category"
	ParamTags        = "tags"
	ParamSortBy      = "sortBy"
	ParamMinPrice    = "minPrice"
	ParamMaxPrice    = "maxPrice"
	ParamFeatured    = "featured"
	ParamRatings     = "ratings"
	ParamNewArrivals = "newArrivals"
	ParamBestSellers = "bestSellers"
)

const listSeparator = ","

// Encode serializes f into query parameters.
//
// Empty and default values are omitted entirely. Only the first category is
// written; any further categories are dropped. Boolean filters appear only
// when true, and sortBy only when it differs from relevance. Tags are joined
// with commas, so a tag containing a comma decodes as several tags and a lone
// empty tag decodes as none.
func Encode(f Filters) url.Values {
	v := url.Values{}
	if f.Query != "" {
		v.Set(ParamQuery, f.Query)
	}
	if len(f.Categories) > 0 && f.Categories[0] != "" {
		v.Set(ParamCategory, f.Categories[0])
	}
	if tags := strings.Join(f.Tags, listSeparator); tags != "" {
		v.Set(ParamTags, tags)
	}
	if f.SortBy != "" && f.SortBy != SortRelevance {
		v.Set(ParamSortBy, string(f.SortBy))
	}
	if f.PriceRange != nil {
		if f.PriceRange.Min != nil {
			v.Set(ParamMinPrice, formatNumber(*f.PriceRange.Min))
		}
		if f.PriceRange.Max != nil {
			v.Set(ParamMaxPrice, formatNumber(*f.PriceRange.Max))
		}
	}
	if f.IsFeatured() {
		v.Set(ParamFeatured, "true")
	}
	if len(f.Ratings) > 0 {
		parts := make([]string, len(f.Ratings))
		for i, r := range f.Ratings {
			parts[i] = strconv.Itoa(r)
		}
		v.Set(ParamRatings, strings.Join(parts, listSeparator))
	}
	if f.IsNewArrivals() {
		v.Set(ParamNewArrivals, "true")
	}
	if f.IsBestSellers() {
		v.Set(ParamBestSellers, "true")
	}
	return v
}

// EncodeString serializes f into a query string without the leading '?'.
// Keys are sorted, so equal Filters always produce the same string.
func EncodeString(f Filters) string {
	return Encode(f).Encode()
}

// ParseQuery decodes a raw query string. A leading '?' is ignored.
//
// Malformed pairs are skipped and reported, but every well-formed pair is
// still decoded, so one bad parameter never clears the others.
func ParseQuery(raw string) (Filters, error) {
	values, malformed := url.ParseQuery(strings.TrimPrefix(raw, "?"))
	f, err := Decode(values)
	switch {
	case malformed == nil:
		return f, err
	case err != nil:
		return f, errors.Wrapf(err, "malformed query string: %v", malformed)
	default:
		return f, errors.Wrapf(ErrInvalidParam, "malformed query string: %v", malformed)
	}
}

// Decode rebuilds Filters from query parameters. Absent parameters take their
// defaults.
//
// Parameters that fail to parse are left at their defaults and reported
// together in an error wrapping ErrInvalidParam. The returned Filters is
// always usable, so callers may choose to continue with the valid part.
func Decode(v url.Values) (Filters, error) {
	f := DefaultFilters()
	var invalid []string
	reject := func(name, raw, reason string) {
		invalid = append(invalid, fmt.Sprintf("%s=%q %s", name, raw, reason))
	}

	f.Query = v.Get(ParamQuery)
	if c := v.Get(ParamCategory); c != "" {
		f.Categories = []string{c}
	}
	if t := v.Get(ParamTags); t != "" {
		f.Tags = strings.Split(t, listSeparator)
	}

	if s := v.Get(ParamSortBy); s != "" {
		if sort := SortBy(s); sort.Valid() {
			f.SortBy = sort
		} else {
			reject(ParamSortBy, s, "is not a known sort order")
		}
	}

	var pr PriceRange
	for _, bound := range []struct {
		name string
		dst  **float64
	}{
		{ParamMinPrice, &pr.Min},
		{ParamMaxPrice, &pr.Max},
	} {
		raw := v.Get(bound.name)
		if raw == "" {
			continue
		}
		n, err := parseNumber(raw)
		if err != nil {
			reject(bound.name, raw, "is not a number")
			continue
		}
		*bound.dst = &n
	}
	if !pr.Empty() {
		f.PriceRange = &pr
	}

	for _, flag := range []struct {
		name string
		dst  **bool
	}{
		{ParamFeatured, &f.Featured},
		{ParamNewArrivals, &f.NewArrivals},
		{ParamBestSellers, &f.BestSellers},
	} {
		raw := v.Get(flag.name)
		switch raw {
		case "":
		case "true":
			*flag.dst = Bool(true)
		case "false":
			*flag.dst = Bool(false)
		default:
			reject(flag.name, raw, "is not a boolean")
		}
	}

	if raw := v.Get(ParamRatings); raw != "" {
		ratings, err := parseRatings(raw)
		if err != nil {
			reject(ParamRatings, raw, "is not a list of integers")
		} else {
			f.Ratings = ratings
		}
	}

	if len(invalid) > 0 {
		return f, errors.Wrapf(ErrInvalidParam, "%s", strings.Join(invalid, "; "))
	}
	return f, nil
}

func parseNumber(raw string) (float64, error) {
	n, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, errors.Newf("non-finite number %q", raw)
	}
	return n, nil
}

func parseRatings(raw string) ([]int, error) {
	parts := strings.Split(raw, listSeparator)
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}
