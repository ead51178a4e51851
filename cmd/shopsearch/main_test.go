package main

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/go-cmp/cmp"
	"github.com/letmevibethatforyou/shopsearch"
	"github.com/letmevibethatforyou/shopsearch/filtersync"
)

func newSync(t *testing.T, searcher shopsearch.Searcher, nav filtersync.Navigator, opts ...filtersync.Option) *filtersync.Sync {
	t.Helper()
	opts = append([]filtersync.Option{filtersync.WithDelay(time.Millisecond)}, opts...)
	s := filtersync.New(searcher, nav, opts...)
	t.Cleanup(s.Close)
	return s
}

func staticSearcher(resp *shopsearch.Response, err error) shopsearch.Searcher {
	return shopsearch.SearcherFunc(func(context.Context, shopsearch.Filters, ...shopsearch.SearchOption) (*shopsearch.Response, error) {
		return resp, err
	})
}

func TestChangesApply(t *testing.T) {
	query := "lamp"
	minPrice, maxPrice := 10.0, 50.0

	tests := map[string]struct {
		bootstrap string
		changes   changes
		expected  shopsearch.Filters
	}{
		"everything": {
			changes: changes{
				query:    &query,
				category: "Furniture",
				tags:     []string{"wood", " oak "},
				minPrice: &minPrice,
				maxPrice: &maxPrice,
				sortBy:   "price-asc",
				ratings:  []int{5, 4},
				featured: true,
			},
			expected: shopsearch.Filters{
				Query:      "lamp",
				Categories: []string{"Furniture"},
				Tags:       []string{"wood", "oak"},
				PriceRange: &shopsearch.PriceRange{Min: &minPrice, Max: &maxPrice},
				SortBy:     shopsearch.SortPriceAsc,
				Featured:   shopsearch.Bool(true),
				Ratings:    []int{5, 4},
			},
		},
		"clear_keeps_sort": {
			bootstrap: "query=desk&category=Office&sortBy=newest&bestSellers=true",
			changes:   changes{clear: true, newArrivals: true},
			expected: shopsearch.Filters{
				Categories:  []string{},
				Tags:        []string{},
				SortBy:      shopsearch.SortNewest,
				NewArrivals: shopsearch.Bool(true),
				Ratings:     []int{},
			},
		},
		"tags_add_to_bootstrap": {
			bootstrap: "tags=wood",
			changes:   changes{tags: []string{"wood", "metal"}},
			expected: shopsearch.Filters{
				Categories: []string{},
				Tags:       []string{"wood", "metal"},
				SortBy:     shopsearch.SortRelevance,
				Ratings:    []int{},
			},
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			s := newSync(t, staticSearcher(&shopsearch.Response{}, nil), &addressBar{})
			if err := s.Bootstrap(tc.bootstrap); err != nil {
				t.Fatalf("Bootstrap returned error: %v", err)
			}
			if err := tc.changes.apply(s); err != nil {
				t.Fatalf("apply returned error: %v", err)
			}
			if diff := cmp.Diff(tc.expected, s.Filters()); diff != "" {
				t.Errorf("filters mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestChangesApplyRejectsInvalidValues(t *testing.T) {
	tests := map[string]changes{
		"unknown_sort": {sortBy: "cheapest"},
		"rating_zero":  {ratings: []int{0}},
		"rating_six":   {ratings: []int{6}},
	}

	for name, ch := range tests {
		t.Run(name, func(t *testing.T) {
			s := newSync(t, staticSearcher(&shopsearch.Response{}, nil), &addressBar{})
			err := ch.apply(s)
			if !errors.Is(err, shopsearch.ErrInvalidParam) {
				t.Errorf("Expected ErrInvalidParam, got %v", err)
			}
		})
	}
}

func TestWaitSettled(t *testing.T) {
	resp := &shopsearch.Response{
		Items: []shopsearch.Item{{ID: "p1", Title: "Desk Lamp"}},
		Total: 1,
	}
	changed := make(chan struct{}, 1)
	address := &addressBar{}
	s := newSync(t, staticSearcher(resp, nil), address, filtersync.WithOnChange(func(filtersync.View) {
		select {
		case changed <- struct{}{}:
		default:
		}
	}))

	if err := s.Bootstrap("query=desk"); err != nil {
		t.Fatalf("Bootstrap returned error: %v", err)
	}
	s.Update(shopsearch.QueryPatch("desk lamp"))

	final := shopsearch.EncodeString(s.Filters())
	v, err := waitSettled(context.Background(), changed, s.View, final, time.Second)
	if err != nil {
		t.Fatalf("waitSettled returned error: %v", err)
	}
	if v.Status() != filtersync.StatusResults {
		t.Errorf("Expected results status, got %s", v.Status())
	}
	if v.Filters.Query != "desk lamp" {
		t.Errorf("Expected query %q, got %q", "desk lamp", v.Filters.Query)
	}

	want := []string{"query=desk", "query=desk+lamp"}
	if diff := cmp.Diff(want, address.History()); diff != "" {
		t.Errorf("address history mismatch (-want +got):\n%s", diff)
	}
	if address.Current() != "query=desk+lamp" {
		t.Errorf("Expected current address %q, got %q", "query=desk+lamp", address.Current())
	}
}

func TestWaitSettledTimeout(t *testing.T) {
	never := func() filtersync.View { return filtersync.View{Loading: true, RequestID: 1} }
	_, err := waitSettled(context.Background(), make(chan struct{}), never, "", 20*time.Millisecond)
	if !errors.Is(err, shopsearch.ErrTimeout) {
		t.Errorf("Expected ErrTimeout, got %v", err)
	}
}

func TestPrintView(t *testing.T) {
	tests := map[string]struct {
		view          filtersync.View
		expectStatus  string
		expectMessage string
		expectError   bool
	}{
		"results": {
			view: filtersync.View{
				Filters:   shopsearch.DefaultFilters(),
				Response:  &shopsearch.Response{Items: []shopsearch.Item{{ID: "p1"}}, Total: 1},
				Attempted: true,
				RequestID: 1,
			},
			expectStatus: "results",
		},
		"empty": {
			view: filtersync.View{
				Filters:   shopsearch.DefaultFilters(),
				Response:  &shopsearch.Response{},
				Attempted: true,
				RequestID: 1,
			},
			expectStatus:  "empty",
			expectMessage: filtersync.EmptyMessage,
		},
		"error": {
			view: filtersync.View{
				Filters:   shopsearch.DefaultFilters(),
				Error:     shopsearch.FetchFailedMessage,
				Attempted: true,
				RequestID: 1,
			},
			expectStatus:  "error",
			expectMessage: shopsearch.FetchFailedMessage,
			expectError:   true,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			var buf bytes.Buffer
			err := printView(&buf, tc.view, "")
			if tc.expectError && !errors.Is(err, shopsearch.ErrFetchFailed) {
				t.Errorf("Expected ErrFetchFailed, got %v", err)
			}
			if !tc.expectError && err != nil {
				t.Errorf("Expected no error but got: %v", err)
			}

			var out struct {
				Status  string            `json:"status"`
				Message string            `json:"message"`
				Items   []shopsearch.Item `json:"items"`
			}
			if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
				t.Fatalf("output is not JSON: %v\n%s", err, buf.String())
			}
			if out.Status != tc.expectStatus {
				t.Errorf("Expected status %q, got %q", tc.expectStatus, out.Status)
			}
			if out.Message != tc.expectMessage {
				t.Errorf("Expected message %q, got %q", tc.expectMessage, out.Message)
			}
			if out.Items == nil {
				t.Error("Expected items to be an array, got null")
			}
		})
	}
}

func TestQueryOf(t *testing.T) {
	tests := map[string]string{
		"":                                        "",
		"?category=Books":                         "?category=Books",
		"query=lamp&ratings=4":                    "query=lamp&ratings=4",
		"https://shop.test/search?query=lamp":     "query=lamp",
		"  http://localhost:3000/?tags=wood,oak  ": "tags=wood,oak",
		"https://shop.test/search":                "",
	}

	for raw, expected := range tests {
		if got := queryOf(raw); got != expected {
			t.Errorf("queryOf(%q): expected %q, got %q", raw, expected, got)
		}
	}
}
