package shopsearch

import "time"

// NewItemWindow is how long after creation an item counts as a new arrival.
const NewItemWindow = 30 * 24 * time.Hour

// Item is a single catalog entry returned by a search.
type Item struct {
	ID          string   `json:"id" dynamodbav:"id"`
	Title       string   `json:"title" dynamodbav:"title"`
	Description string   `json:"description" dynamodbav:"description"`
	Category    string   `json:"category" dynamodbav:"category"`
	Tags        []string `json:"tags" dynamodbav:"tags"`
	Price       *float64 `json:"price,omitempty" dynamodbav:"price,omitempty"`
	Rating      *float64 `json:"rating,omitempty" dynamodbav:"rating,omitempty"`
	ImageURL    string   `json:"imageUrl,omitempty" dynamodbav:"imageUrl,omitempty"`
	// CreatedAt is an RFC 3339 timestamp.
	CreatedAt  string `json:"createdAt" dynamodbav:"createdAt"`
	Featured   *bool  `json:"featured,omitempty" dynamodbav:"featured,omitempty"`
	BestSeller *bool  `json:"bestSeller,omitempty" dynamodbav:"bestSeller,omitempty"`
}

// IsNew reports whether the item was created within NewItemWindow of now.
// Items with a missing or unparsable timestamp are never new.
func (it Item) IsNew(now time.Time) bool {
	created, ok := it.CreatedTime()
	if !ok {
		return false
	}
	return now.Sub(created) <= NewItemWindow
}

// CreatedTime parses CreatedAt.
func (it Item) CreatedTime() (time.Time, bool) {
	if it.CreatedAt == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, it.CreatedAt)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// FacetCount is the number of matching items carrying one facet value.
type FacetCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// PriceBounds is the price span across the matching items.
type PriceBounds struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Facets summarizes the matching items for rendering filter options.
type Facets struct {
	Categories []FacetCount `json:"categories"`
	Tags       []FacetCount `json:"tags"`
	PriceRange PriceBounds  `json:"priceRange"`
}

// Response is the body returned by the search endpoint.
type Response struct {
	// Items contains the page of matching items.
	Items []Item `json:"items"`

	// Total is the total number of matching items.
	Total int64 `json:"total"`

	// Suggestions are query completions for the search box.
	Suggestions []string `json:"suggestions"`

	Facets Facets `json:"facets"`
}

// Empty reports whether the response carries no items.
func (r *Response) Empty() bool {
	return r == nil || len(r.Items) == 0
}
