package algolia

import (
	"context"
	"testing"
	"time"

	"github.com/algolia/algoliasearch-client-go/v3/algolia/search"
	"github.com/cockroachdb/errors"
	"github.com/google/go-cmp/cmp"
	"github.com/letmevibethatforyou/shopsearch"
)

var testNow = time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)

func TestNewSearcher(t *testing.T) {
	client := NewClient(StaticSecrets("test-app", "test-key"))
	searcher := NewSearcher(client, "products")

	if searcher == nil {
		t.Fatal("NewSearcher returned nil")
	}

	if searcher.client != client {
		t.Error("Searcher client not set correctly")
	}

	if searcher.indexName != "products" {
		t.Errorf("Expected index name 'products', got '%s'", searcher.indexName)
	}
}

func TestReplicaName(t *testing.T) {
	tests := map[string]struct {
		sortBy   shopsearch.SortBy
		expected string
	}{
		"relevance":  {sortBy: shopsearch.SortRelevance, expected: "products"},
		"empty":      {sortBy: "", expected: "products"},
		"unknown":    {sortBy: "popularity", expected: "products"},
		"price_asc":  {sortBy: shopsearch.SortPriceAsc, expected: "products_price-asc"},
		"price_desc": {sortBy: shopsearch.SortPriceDesc, expected: "products_price-desc"},
		"rating":     {sortBy: shopsearch.SortRating, expected: "products_rating"},
		"newest":     {sortBy: shopsearch.SortNewest, expected: "products_newest"},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			if got := ReplicaName("products", tc.sortBy); got != tc.expected {
				t.Errorf("Expected %q, got %q", tc.expected, got)
			}
		})
	}
}

func TestBuildFilter(t *testing.T) {
	tests := map[string]struct {
		filters  func(f *shopsearch.Filters)
		expected string
	}{
		"no_filters": {
			filters:  func(f *shopsearch.Filters) {},
			expected: "",
		},
		"query_is_not_a_filter": {
			filters:  func(f *shopsearch.Filters) { f.Query = "lamp" },
			expected: "",
		},
		"category": {
			filters:  func(f *shopsearch.Filters) { f.Categories = []string{"Electronics"} },
			expected: `category:"Electronics"`,
		},
		"category_with_quotes": {
			filters:  func(f *shopsearch.Filters) { f.Categories = []string{`Kid's "Toys"`} },
			expected: `category:"Kid's \"Toys\""`,
		},
		"single_tag": {
			filters:  func(f *shopsearch.Filters) { f.Tags = []string{"audio"} },
			expected: `tags:"audio"`,
		},
		"tags_grouped": {
			filters:  func(f *shopsearch.Filters) { f.Tags = []string{"audio", "office"} },
			expected: `(tags:"audio" OR tags:"office")`,
		},
		"price_between": {
			filters: func(f *shopsearch.Filters) {
				f.PriceRange = &shopsearch.PriceRange{Min: shopsearch.Float(10), Max: shopsearch.Float(99.5)}
			},
			expected: "price:10 TO 99.5",
		},
		"price_min": {
			filters: func(f *shopsearch.Filters) {
				f.PriceRange = &shopsearch.PriceRange{Min: shopsearch.Float(10)}
			},
			expected: "price >= 10",
		},
		"price_max": {
			filters: func(f *shopsearch.Filters) {
				f.PriceRange = &shopsearch.PriceRange{Max: shopsearch.Float(20)}
			},
			expected: "price <= 20",
		},
		"top_picks": {
			filters: func(f *shopsearch.Filters) {
				f.Featured = shopsearch.Bool(true)
				f.BestSellers = shopsearch.Bool(true)
			},
			expected: "featured:true AND bestSeller:true",
		},
		"new_arrivals": {
			filters:  func(f *shopsearch.Filters) { f.NewArrivals = shopsearch.Bool(true) },
			expected: "createdAtUnix >= 1717200000",
		},
		"rating_buckets": {
			filters:  func(f *shopsearch.Filters) { f.Ratings = []int{4, 5} },
			expected: "(ratingStars = 4 OR ratingStars = 5)",
		},
		"combined": {
			filters: func(f *shopsearch.Filters) {
				f.Categories = []string{"Electronics"}
				f.Featured = shopsearch.Bool(true)
				f.Ratings = []int{4}
			},
			expected: `category:"Electronics" AND featured:true AND ratingStars = 4`,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			f := shopsearch.DefaultFilters()
			tc.filters(&f)
			if got := BuildFilter(f.Expressions(testNow)); got != tc.expected {
				t.Errorf("Expected %q, got %q", tc.expected, got)
			}
		})
	}
}

func TestConvertExpressionToFilter(t *testing.T) {
	tests := map[string]struct {
		expr     shopsearch.Expression
		expected string
	}{
		"eq_number": {
			expr:     shopsearch.Eq("price", 25),
			expected: "price = 25",
		},
		"gte_float": {
			expr:     shopsearch.Gte("rating", 4.5),
			expected: "rating >= 4.5",
		},
		"quoted_field": {
			expr:     shopsearch.Eq("brand name", "Acme"),
			expected: `"brand name":"Acme"`,
		},
		"half_bucket_is_not_stars": {
			expr:     shopsearch.And(shopsearch.Gte("rating", 4.5), shopsearch.Lt("rating", 5.0)),
			expected: "rating >= 4.5 AND rating < 5",
		},
		"empty_or": {
			expr:     shopsearch.Or(),
			expected: "",
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			if got := convertExpressionToFilter(tc.expr); got != tc.expected {
				t.Errorf("Expected %q, got %q", tc.expected, got)
			}
		})
	}
}

func TestBuildSearchParams(t *testing.T) {
	tests := map[string]struct {
		filters       func(f *shopsearch.Filters)
		opts          []shopsearch.SearchOption
		expectedCount int
	}{
		"defaults": {
			filters:       func(f *shopsearch.Filters) {},
			expectedCount: 2, // Facets and HitsPerPage
		},
		"with_offset": {
			filters:       func(f *shopsearch.Filters) {},
			opts:          []shopsearch.SearchOption{shopsearch.WithOffset(48)},
			expectedCount: 3, // Facets, Offset and Length
		},
		"with_filters": {
			filters:       func(f *shopsearch.Filters) { f.Categories = []string{"Furniture"} },
			expectedCount: 3, // Facets, HitsPerPage and Filters
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			f := shopsearch.DefaultFilters()
			tc.filters(&f)
			params := buildSearchParams(f, shopsearch.NewSearchConfig(tc.opts...))
			if len(params) != tc.expectedCount {
				t.Errorf("Expected %d parameters, got %d", tc.expectedCount, len(params))
			}
		})
	}
}

func TestConvertResults(t *testing.T) {
	res := search.QueryRes{
		NbHits: 7,
		Hits: []map[string]interface{}{
			{
				"objectID":  "p1",
				"id":        "p1",
				"title":     "Desk Lamp",
				"category":  "Furniture",
				"tags":      []interface{}{"office"},
				"price":     25.0,
				"createdAt": "2024-06-25T00:00:00Z",
			},
			{
				"objectID": "p2",
				"title":    "desk lamp",
				"category": "Furniture",
				"price":    80.0,
				"featured": true,
			},
		},
		Facets: map[string]map[string]int{
			"category": {"Furniture": 5, "Electronics": 2},
			"tags":     {"office": 3, "lighting": 3},
		},
		FacetsStats: map[string]search.FacetStat{
			"price": {Min: 25, Max: 80},
		},
	}

	resp, err := convertResults(res, "desk", 5)
	if err != nil {
		t.Fatalf("convertResults returned error: %v", err)
	}

	want := &shopsearch.Response{
		Total: 7,
		Items: []shopsearch.Item{
			{
				ID: "p1", Title: "Desk Lamp", Category: "Furniture", Tags: []string{"office"},
				Price: shopsearch.Float(25), CreatedAt: "2024-06-25T00:00:00Z",
			},
			{
				ID: "p2", Title: "desk lamp", Category: "Furniture",
				Price: shopsearch.Float(80), Featured: shopsearch.Bool(true),
			},
		},
		Suggestions: []string{"Desk Lamp"},
		Facets: shopsearch.Facets{
			Categories: []shopsearch.FacetCount{{Name: "Furniture", Count: 5}, {Name: "Electronics", Count: 2}},
			Tags:       []shopsearch.FacetCount{{Name: "lighting", Count: 3}, {Name: "office", Count: 3}},
			PriceRange: shopsearch.PriceBounds{Min: 25, Max: 80},
		},
	}
	if diff := cmp.Diff(want, resp); diff != "" {
		t.Errorf("response mismatch (-want +got):\n%s", diff)
	}

	resp, err = convertResults(res, "", 5)
	if err != nil {
		t.Fatalf("convertResults returned error: %v", err)
	}
	if len(resp.Suggestions) != 0 {
		t.Errorf("Expected no suggestions for an empty query, got %v", resp.Suggestions)
	}
}

func TestSearchBackendUnavailable(t *testing.T) {
	client := NewClient(StaticSecrets("", ""))
	searcher := NewSearcher(client, "products")

	_, err := searcher.Search(context.Background(), shopsearch.DefaultFilters())
	if !errors.Is(err, shopsearch.ErrBackendUnavailable) {
		t.Errorf("Expected ErrBackendUnavailable, got %v", err)
	}
}

func TestSearchCanceled(t *testing.T) {
	client := NewClient(StaticSecrets("test-app", "test-key"))
	searcher := NewSearcher(client, "products")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := searcher.Search(ctx, shopsearch.DefaultFilters())
	if !errors.Is(err, shopsearch.ErrCanceled) {
		t.Errorf("Expected ErrCanceled, got %v", err)
	}
}

func TestItemObject(t *testing.T) {
	object := ItemObject(shopsearch.Item{ID: "p9", Title: "Mug", Rating: shopsearch.Float(3.5)})

	if object[ObjectIDField] != "p9" {
		t.Errorf("Expected objectID p9, got %v", object[ObjectIDField])
	}
	if object[shopsearch.FieldRatingStars] != 3 {
		t.Errorf("Expected 3 rating stars, got %v", object[shopsearch.FieldRatingStars])
	}
}

func TestWriteRequiresCredentials(t *testing.T) {
	client := NewClient(func() (Secrets, error) {
		return Secrets{}, errors.New("vault sealed")
	})
	ctx := context.Background()

	if err := client.SaveObject(ctx, "products", map[string]interface{}{ObjectIDField: "p1"}); !errors.Is(err, shopsearch.ErrBackendUnavailable) {
		t.Errorf("SaveObject: expected ErrBackendUnavailable, got %v", err)
	}
	if err := client.DeleteObject(ctx, "products", "p1"); !errors.Is(err, shopsearch.ErrBackendUnavailable) {
		t.Errorf("DeleteObject: expected ErrBackendUnavailable, got %v", err)
	}
	if err := client.BatchSaveObjects(ctx, "products", nil); err != nil {
		t.Errorf("BatchSaveObjects with no objects should be a no-op, got %v", err)
	}
}
