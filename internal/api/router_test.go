package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"
	"github.com/google/go-cmp/cmp"
	"github.com/letmevibethatforyou/shopsearch"
	"github.com/letmevibethatforyou/shopsearch/inmemory"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testRouter(t *testing.T, searcher shopsearch.Searcher, origins ...string) http.Handler {
	t.Helper()
	return NewRouter(searcher, Config{
		AllowOrigins: origins,
		Logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func catalogSearcher(t *testing.T) *inmemory.Searcher {
	t.Helper()
	s := inmemory.New()
	items := []shopsearch.Item{
		{ID: "p1", Title: "Wireless Headphones", Category: "Electronics", Tags: []string{"audio"}, Price: shopsearch.Float(99), Rating: shopsearch.Float(4.5)},
		{ID: "p2", Title: "Desk Lamp", Category: "Furniture", Tags: []string{"office"}, Price: shopsearch.Float(25), Rating: shopsearch.Float(3.8)},
		{ID: "p3", Title: "Office Chair", Category: "Furniture", Tags: []string{"office"}, Price: shopsearch.Float(180), Rating: shopsearch.Float(4.9)},
	}
	for _, it := range items {
		if err := s.AddItem(it); err != nil {
			t.Fatalf("AddItem failed: %v", err)
		}
	}
	return s
}

func get(t *testing.T, h http.Handler, target string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	rec := get(t, testRouter(t, catalogSearcher(t)), "/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"status":"OK"`) {
		t.Errorf("Unexpected body %s", rec.Body.String())
	}
}

func TestSearch(t *testing.T) {
	router := testRouter(t, catalogSearcher(t))

	tests := map[string]struct {
		target   string
		expected []string
		total    int64
	}{
		"everything": {
			target:   "/api/search",
			expected: []string{"p1", "p2", "p3"},
			total:    3,
		},
		"category_and_sort": {
			target:   "/api/search?category=Furniture&sortBy=price-desc",
			expected: []string{"p3", "p2"},
			total:    2,
		},
		"ratings": {
			target:   "/api/search?ratings=4",
			expected: []string{"p1", "p3"},
			total:    2,
		},
		"query_and_price": {
			target:   "/api/search?query=office&maxPrice=100",
			expected: []string{"p2"},
			total:    1,
		},
		"paging": {
			target:   "/api/search?limit=1&offset=1",
			expected: []string{"p2"},
			total:    3,
		},
		"offset_beyond_catalog": {
			target:   "/api/search?offset=9223372036854775807",
			expected: []string{},
			total:    3,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			rec := get(t, router, tc.target, nil)
			if rec.Code != http.StatusOK {
				t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
			}

			var resp shopsearch.Response
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("Failed to decode body: %v", err)
			}
			ids := make([]string, 0, len(resp.Items))
			for _, it := range resp.Items {
				ids = append(ids, it.ID)
			}
			if diff := cmp.Diff(tc.expected, ids); diff != "" {
				t.Errorf("items mismatch (-want +got):\n%s", diff)
			}
			if resp.Total != tc.total {
				t.Errorf("Expected total %d, got %d", tc.total, resp.Total)
			}
		})
	}
}

func TestSearchBadRequest(t *testing.T) {
	router := testRouter(t, catalogSearcher(t))

	tests := map[string]struct {
		target  string
		mention string
	}{
		"bad_price":   {target: "/api/search?minPrice=cheap", mention: "minPrice"},
		"bad_rating":  {target: "/api/search?ratings=four", mention: "ratings"},
		"bad_sort":    {target: "/api/search?sortBy=popularity", mention: "sortBy"},
		"bad_flag":    {target: "/api/search?featured=yes", mention: "featured"},
		"bad_limit":   {target: "/api/search?limit=lots", mention: "limit"},
		"zero_limit":  {target: "/api/search?limit=0", mention: "limit"},
		"huge_limit":  {target: "/api/search?limit=1000", mention: "limit"},
		"neg_offset":  {target: "/api/search?offset=-1", mention: "offset"},
		"text_offset": {target: "/api/search?offset=abc", mention: "offset"},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			rec := get(t, router, tc.target, nil)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("Expected 400, got %d", rec.Code)
			}

			var body ErrorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("Failed to decode body: %v", err)
			}
			if !strings.Contains(body.Error, tc.mention) {
				t.Errorf("Expected error to mention %q, got %q", tc.mention, body.Error)
			}
		})
	}
}

func TestSearchBackendErrors(t *testing.T) {
	tests := map[string]struct {
		err    error
		status int
	}{
		"unavailable": {
			err:    errors.WithSecondaryError(shopsearch.ErrBackendUnavailable, errors.New("no credentials")),
			status: http.StatusServiceUnavailable,
		},
		"timeout": {
			err:    errors.WithSecondaryError(shopsearch.ErrTimeout, context.DeadlineExceeded),
			status: http.StatusGatewayTimeout,
		},
		"unknown": {
			err:    errors.New("boom"),
			status: http.StatusInternalServerError,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			searcher := shopsearch.SearcherFunc(func(context.Context, shopsearch.Filters, ...shopsearch.SearchOption) (*shopsearch.Response, error) {
				return nil, tc.err
			})
			rec := get(t, testRouter(t, searcher), "/api/search?query=lamp", nil)
			if rec.Code != tc.status {
				t.Fatalf("Expected %d, got %d", tc.status, rec.Code)
			}

			var body ErrorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("Failed to decode body: %v", err)
			}
			if body.Message != shopsearch.FetchFailedMessage {
				t.Errorf("Expected message %q, got %q", shopsearch.FetchFailedMessage, body.Message)
			}
			if strings.Contains(body.Error, "no credentials") {
				t.Errorf("Expected backend cause to stay internal, got %q", body.Error)
			}
		})
	}
}

func TestSearchCORS(t *testing.T) {
	router := testRouter(t, catalogSearcher(t), "http://shop.example.com")

	rec := get(t, router, "/api/search", map[string]string{"Origin": "http://shop.example.com"})
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://shop.example.com" {
		t.Errorf("Expected allowed origin header, got %q", got)
	}

	rec = get(t, router, "/api/search", map[string]string{"Origin": "http://evil.example.com"})
	if rec.Code != http.StatusForbidden {
		t.Errorf("Expected 403 for a foreign origin, got %d", rec.Code)
	}
}
