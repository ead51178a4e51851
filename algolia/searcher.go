package algolia

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/algolia/algoliasearch-client-go/v3/algolia/opt"
	"github.com/algolia/algoliasearch-client-go/v3/algolia/search"
	"github.com/cockroachdb/errors"
	"github.com/letmevibethatforyou/shopsearch"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Searcher implements the shopsearch.Searcher interface using Algolia.
//
// Sorting other than relevance needs a replica of the index ranked by that
// sort, named "<index>_<sortBy>" (for example "products_price-asc").
type Searcher struct {
	client    *Client
	indexName string
}

// NewSearcher creates a new Algolia searcher for the specified index.
func NewSearcher(client *Client, indexName string) *Searcher {
	return &Searcher{
		client:    client,
		indexName: indexName,
	}
}

// Search implements the shopsearch.Searcher interface using Algolia search.
func (s *Searcher) Search(ctx context.Context, filters shopsearch.Filters, opts ...shopsearch.SearchOption) (*shopsearch.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.WithSecondaryError(shopsearch.ErrCanceled, err)
	}

	cfg := shopsearch.NewSearchConfig(opts...)
	indexName := ReplicaName(s.indexName, filters.SortBy)

	ctx, span := s.client.tracer.Start(ctx, "algolia.search",
		trace.WithAttributes(
			attribute.String("algolia.index_name", indexName),
			attribute.String("search.query", filters.Query),
		),
	)
	defer span.End()

	algoliaClient, err := s.client.getClient()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to get Algolia client")
		return nil, errors.WithSecondaryError(
			shopsearch.ErrBackendUnavailable,
			errors.Wrapf(err, "failed to get Algolia client"),
		)
	}

	index := algoliaClient.InitIndex(indexName)

	res, err := index.Search(filters.Query, buildSearchParams(filters, cfg)...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "search failed")
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, errors.WithSecondaryError(shopsearch.ErrTimeout, err)
		}
		if errors.Is(err, context.Canceled) {
			return nil, errors.WithSecondaryError(shopsearch.ErrCanceled, err)
		}

		// For other Algolia errors, treat as backend unavailable
		return nil, errors.WithSecondaryError(
			shopsearch.ErrBackendUnavailable,
			errors.Wrapf(err, "Algolia search failed"),
		)
	}

	resp, err := convertResults(res, filters.Query, cfg.MaxSuggestions)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to convert hits")
		return nil, err
	}

	span.SetAttributes(attribute.Int64("search.total", resp.Total))
	span.SetStatus(codes.Ok, "search completed")
	return resp, nil
}

// ReplicaName returns the index serving sortBy. Relevance is served by the
// primary index.
func ReplicaName(indexName string, sortBy shopsearch.SortBy) string {
	if sortBy == "" || sortBy == shopsearch.SortRelevance || !sortBy.Valid() {
		return indexName
	}
	return indexName + "_" + string(sortBy)
}

// buildSearchParams converts the filters and paging into Algolia search parameters.
func buildSearchParams(filters shopsearch.Filters, cfg *shopsearch.SearchConfig) []interface{} {
	params := []interface{}{
		opt.Facets(shopsearch.FieldCategory, shopsearch.FieldTags, shopsearch.FieldPrice),
	}

	if cfg.Offset > 0 {
		params = append(params, opt.Offset(cfg.Offset), opt.Length(cfg.Limit))
	} else {
		params = append(params, opt.HitsPerPage(cfg.Limit))
	}

	if filter := BuildFilter(filters.Expressions(cfg.Now)); filter != "" {
		params = append(params, opt.Filters(filter))
	}

	return params
}

// BuildFilter joins expressions into an Algolia filters string. Top-level
// expressions are ANDed.
func BuildFilter(exprs []shopsearch.Expression) string {
	parts := make([]string, 0, len(exprs))
	for _, expr := range exprs {
		if f := convertExpressionToFilter(expr); f != "" {
			parts = append(parts, f)
		}
	}
	return strings.Join(parts, " AND ")
}

// convertResults maps Algolia hits and facets to a response.
func convertResults(res search.QueryRes, query string, maxSuggestions int) (*shopsearch.Response, error) {
	resp := &shopsearch.Response{
		Items:       make([]shopsearch.Item, 0, len(res.Hits)),
		Total:       int64(res.NbHits),
		Suggestions: make([]string, 0, maxSuggestions),
		Facets: shopsearch.Facets{
			Categories: facetCounts(res.Facets[shopsearch.FieldCategory]),
			Tags:       facetCounts(res.Facets[shopsearch.FieldTags]),
		},
	}

	if stats, ok := res.FacetsStats[shopsearch.FieldPrice]; ok {
		resp.Facets.PriceRange = shopsearch.PriceBounds{Min: stats.Min, Max: stats.Max}
	}

	seen := make(map[string]bool)
	for _, hit := range res.Hits {
		it, err := shopsearch.ItemFromDocument(hit)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to convert hit %v", hit[ObjectIDField])
		}
		if it.ID == "" {
			if objectID, ok := hit[ObjectIDField].(string); ok {
				it.ID = objectID
			}
		}
		resp.Items = append(resp.Items, it)

		key := strings.ToLower(it.Title)
		if strings.TrimSpace(query) != "" && it.Title != "" && !seen[key] && len(resp.Suggestions) < maxSuggestions {
			seen[key] = true
			resp.Suggestions = append(resp.Suggestions, it.Title)
		}
	}

	return resp, nil
}

// facetCounts orders facet values by count descending, then name.
func facetCounts(values map[string]int) []shopsearch.FacetCount {
	out := make([]shopsearch.FacetCount, 0, len(values))
	for name, n := range values {
		out = append(out, shopsearch.FacetCount{Name: name, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// convertExpressionToFilter converts an expression to an Algolia filter string.
func convertExpressionToFilter(expr shopsearch.Expression) string {
	switch e := expr.(type) {
	case shopsearch.AndExpr:
		if stars, ok := starBucket(e); ok {
			return fmt.Sprintf("%s = %d", shopsearch.FieldRatingStars, stars)
		}
		return convertAndExpression(e)
	case shopsearch.OrExpr:
		return convertOrExpression(e)
	case shopsearch.EqExpr:
		return convertEqExpression(e)
	case shopsearch.GteExpr:
		return fmt.Sprintf("%s >= %s", escapeField(e.Field), escapeNumericValue(e.Value))
	case shopsearch.LtExpr:
		return fmt.Sprintf("%s < %s", escapeField(e.Field), escapeNumericValue(e.Value))
	case shopsearch.RangeExpr:
		return convertRangeExpression(e)
	default:
		return ""
	}
}

// starBucket recognizes rating >= r AND rating < r+1 for a whole r. Algolia
// cannot nest that inside an OR, so it is served by the ratingStars attribute.
func starBucket(expr shopsearch.AndExpr) (int, bool) {
	if len(expr.Exprs) != 2 {
		return 0, false
	}
	gte, ok1 := expr.Exprs[0].(shopsearch.GteExpr)
	lt, ok2 := expr.Exprs[1].(shopsearch.LtExpr)
	if !ok1 || !ok2 || gte.Field != shopsearch.FieldRating || lt.Field != shopsearch.FieldRating {
		return 0, false
	}
	lo, ok1 := gte.Value.(float64)
	hi, ok2 := lt.Value.(float64)
	if !ok1 || !ok2 || hi-lo != 1 || lo != float64(int(lo)) {
		return 0, false
	}
	return int(lo), true
}

// convertAndExpression converts an AND expression to Algolia filter syntax.
func convertAndExpression(expr shopsearch.AndExpr) string {
	filters := make([]string, 0, len(expr.Exprs))
	for _, e := range expr.Exprs {
		if filter := convertExpressionToFilter(e); filter != "" {
			filters = append(filters, filter)
		}
	}
	return strings.Join(filters, " AND ")
}

// convertOrExpression converts an OR expression to a parenthesized group.
// Algolia does not allow nested groups, so members are left bare.
func convertOrExpression(expr shopsearch.OrExpr) string {
	filters := make([]string, 0, len(expr.Exprs))
	for _, e := range expr.Exprs {
		if filter := convertExpressionToFilter(e); filter != "" {
			filters = append(filters, filter)
		}
	}
	switch len(filters) {
	case 0:
		return ""
	case 1:
		return filters[0]
	}
	return "(" + strings.Join(filters, " OR ") + ")"
}

// convertEqExpression converts an equality expression to Algolia filter syntax.
func convertEqExpression(expr shopsearch.EqExpr) string {
	switch v := expr.Value.(type) {
	case bool:
		return fmt.Sprintf("%s:%s", escapeField(expr.Field), strconv.FormatBool(v))
	case int, int64, float64:
		return fmt.Sprintf("%s = %s", escapeField(expr.Field), escapeNumericValue(v))
	}
	return fmt.Sprintf("%s:%s", escapeField(expr.Field), escapeValue(expr.Value))
}

// convertRangeExpression converts a range expression to Algolia filter syntax.
func convertRangeExpression(expr shopsearch.RangeExpr) string {
	field := escapeField(expr.Field)
	switch {
	case expr.Min != nil && expr.Max != nil:
		return fmt.Sprintf("%s:%s TO %s", field, escapeNumericValue(expr.Min), escapeNumericValue(expr.Max))
	case expr.Min != nil:
		return fmt.Sprintf("%s >= %s", field, escapeNumericValue(expr.Min))
	case expr.Max != nil:
		return fmt.Sprintf("%s <= %s", field, escapeNumericValue(expr.Max))
	}
	return ""
}

// escapeField escapes field names for Algolia filters
func escapeField(field string) string {
	if strings.ContainsAny(field, " :-()") {
		return fmt.Sprintf(`"%s"`, field)
	}
	return field
}

// escapeValue quotes string values for Algolia filters
func escapeValue(value interface{}) string {
	if value == nil {
		return "null"
	}

	if v, ok := value.(string); ok {
		escaped := strings.ReplaceAll(v, `"`, `\"`)
		return fmt.Sprintf(`"%s"`, escaped)
	}
	return fmt.Sprintf(`"%v"`, value)
}

// escapeNumericValue formats numeric values for Algolia filters
func escapeNumericValue(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return "0"
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		str := fmt.Sprintf("%v", value)
		if _, err := strconv.ParseFloat(str, 64); err == nil {
			return str
		}
		return escapeValue(value)
	}
}
