// Package inmemory provides a catalog searcher that keeps every item in
// process memory. It backs local development and the endpoint tests.
package inmemory

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/letmevibethatforyou/shopsearch"
)

// Document is a stored item together with its flattened index fields.
type Document struct {
	// Item is the catalog entry returned to callers.
	Item shopsearch.Item
	// Fields contains the item's indexed data as key-value pairs.
	Fields map[string]interface{}
}

// Searcher implements the shopsearch.Searcher interface using an in-memory store.
type Searcher struct {
	mu        sync.RWMutex
	documents []Document
	idIndex   map[string]int // maps item ID to index in documents slice
}

// New creates a new in-memory searcher.
// The searcher is ready to use and is safe for concurrent operations.
func New() *Searcher {
	return &Searcher{
		documents: make([]Document, 0),
		idIndex:   make(map[string]int),
	}
}

// AddItem adds an item to the in-memory store.
// If an item with the same ID already exists, it will be updated.
// This method is safe for concurrent use.
func (s *Searcher) AddItem(it shopsearch.Item) error {
	if it.ID == "" {
		return errors.New("item id is required")
	}

	doc := Document{Item: it, Fields: shopsearch.ItemDocument(it)}

	s.mu.Lock()
	defer s.mu.Unlock()

	if idx, exists := s.idIndex[it.ID]; exists {
		s.documents[idx] = doc
	} else {
		s.idIndex[it.ID] = len(s.documents)
		s.documents = append(s.documents, doc)
	}
	return nil
}

// AddJSON parses a single JSON item and adds it to the store.
func (s *Searcher) AddJSON(jsonData []byte) error {
	var it shopsearch.Item
	if err := json.Unmarshal(jsonData, &it); err != nil {
		return errors.Wrap(err, "failed to unmarshal JSON")
	}
	return s.AddItem(it)
}

// LoadJSON reads a JSON array of items from r and adds each of them.
// It returns the number of items loaded.
func (s *Searcher) LoadJSON(r io.Reader) (int, error) {
	var items []shopsearch.Item
	if err := json.NewDecoder(r).Decode(&items); err != nil {
		return 0, errors.Wrap(err, "failed to decode item list")
	}
	for i, it := range items {
		if err := s.AddItem(it); err != nil {
			return i, errors.Wrapf(err, "item %d", i)
		}
	}
	return len(items), nil
}

// RemoveItem removes an item by ID from the in-memory store.
// Returns true if the item was found and removed, false if it was not found.
// This method is safe for concurrent use.
func (s *Searcher) RemoveItem(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, exists := s.idIndex[id]
	if !exists {
		return false
	}

	s.documents = append(s.documents[:idx], s.documents[idx+1:]...)

	// Rebuild index
	delete(s.idIndex, id)
	for i := idx; i < len(s.documents); i++ {
		s.idIndex[s.documents[i].Item.ID] = i
	}

	return true
}

// Clear removes all items from the store.
// This method is safe for concurrent use.
func (s *Searcher) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.documents = make([]Document, 0)
	s.idIndex = make(map[string]int)
}

// Size returns the number of items currently stored.
// This method is safe for concurrent use.
func (s *Searcher) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.documents)
}

// Search implements the shopsearch.Searcher interface. Facets and
// suggestions are computed over every match, not just the returned page.
func (s *Searcher) Search(ctx context.Context, filters shopsearch.Filters, opts ...shopsearch.SearchOption) (*shopsearch.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.WithSecondaryError(shopsearch.ErrCanceled, err)
	}

	cfg := shopsearch.NewSearchConfig(opts...)
	exprs := filters.Expressions(cfg.Now)

	s.mu.RLock()
	defer s.mu.RUnlock()

	var matches []scoredDocument
	for _, doc := range s.documents {
		if err := ctx.Err(); err != nil {
			return nil, errors.WithSecondaryError(shopsearch.ErrCanceled, err)
		}

		if !s.matchesFilters(doc, exprs) {
			continue
		}

		score := s.scoreDocument(doc, filters.Query)
		if score > 0 {
			matches = append(matches, scoredDocument{
				document: doc,
				score:    score,
			})
		}
	}

	s.sortMatches(matches, filters.Sort())

	// Clamp before adding so a huge offset or limit cannot overflow.
	start := min(cfg.Offset, len(matches))
	end := start + min(cfg.Limit, len(matches)-start)

	resp := &shopsearch.Response{
		Items:       make([]shopsearch.Item, 0, end-start),
		Total:       int64(len(matches)),
		Suggestions: suggestions(matches, filters.Query, cfg.MaxSuggestions),
		Facets:      facets(matches),
	}
	for i := start; i < end; i++ {
		resp.Items = append(resp.Items, matches[i].document.Item)
	}

	return resp, nil
}

type scoredDocument struct {
	document Document
	score    float64
}

// textFields are matched against query terms, with their weights.
var textFields = []struct {
	name   string
	weight float64
}{
	{shopsearch.FieldTitle, 2},
	{shopsearch.FieldDescription, 1},
	{shopsearch.FieldCategory, 1},
	{shopsearch.FieldTags, 1},
}

// scoreDocument calculates the relevance score for a document based on the query.
func (s *Searcher) scoreDocument(doc Document, query string) float64 {
	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 {
		return 1.0 // All documents match empty query
	}

	score := 0.0
	matchedTerms := 0

	for _, term := range terms {
		termMatched := false
		for _, f := range textFields {
			if s.valueContainsTerm(doc.Fields[f.name], term) {
				termMatched = true
				score += f.weight
			}
		}
		if termMatched {
			matchedTerms++
		}
	}

	// Every term has to appear somewhere.
	if matchedTerms < len(terms) {
		return 0
	}
	return score
}

// valueContainsTerm checks if a value contains the search term.
func (s *Searcher) valueContainsTerm(value interface{}, term string) bool {
	switch v := value.(type) {
	case nil:
		return false
	case string:
		return strings.Contains(strings.ToLower(v), term)
	case []interface{}:
		for _, item := range v {
			if s.valueContainsTerm(item, term) {
				return true
			}
		}
	default:
		str := fmt.Sprintf("%v", v)
		return strings.Contains(strings.ToLower(str), term)
	}
	return false
}

// sortMatches sorts the matched documents according to the sort fields.
// Without sort fields matches are ranked by score. Ties keep insertion order.
func (s *Searcher) sortMatches(matches []scoredDocument, sortFields []shopsearch.SortField) {
	if len(sortFields) == 0 {
		sort.SliceStable(matches, func(i, j int) bool {
			return matches[i].score > matches[j].score
		})
		return
	}

	sort.SliceStable(matches, func(i, j int) bool {
		for _, sf := range sortFields {
			val1, ok1 := matches[i].document.Fields[sf.Field]
			val2, ok2 := matches[j].document.Fields[sf.Field]

			// Items without the field go last in either direction.
			if ok1 != ok2 {
				return ok1
			}
			if !ok1 {
				continue
			}

			cmp := s.compareValues(val1, val2)
			if cmp != 0 {
				if sf.Desc {
					return cmp > 0
				}
				return cmp < 0
			}
		}
		return matches[i].score > matches[j].score
	})
}

// compareValues compares two values for sorting.
func (s *Searcher) compareValues(v1, v2 interface{}) int {
	if v1 == nil && v2 == nil {
		return 0
	}
	if v1 == nil {
		return -1
	}
	if v2 == nil {
		return 1
	}

	if f1, ok1 := toFloat64(v1); ok1 {
		if f2, ok2 := toFloat64(v2); ok2 {
			if f1 < f2 {
				return -1
			} else if f1 > f2 {
				return 1
			}
			return 0
		}
	}

	s1 := fmt.Sprintf("%v", v1)
	s2 := fmt.Sprintf("%v", v2)
	return strings.Compare(s1, s2)
}

// suggestions returns up to max distinct titles of the ranked matches. Nothing
// is suggested for an empty query.
func suggestions(matches []scoredDocument, query string, max int) []string {
	out := make([]string, 0, max)
	if strings.TrimSpace(query) == "" {
		return out
	}
	seen := make(map[string]bool)
	for _, m := range matches {
		if len(out) == max {
			break
		}
		title := m.document.Item.Title
		key := strings.ToLower(title)
		if title == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, title)
	}
	return out
}

// facets counts categories and tags across matches and spans their prices.
// Counts are ordered by count descending, then name.
func facets(matches []scoredDocument) shopsearch.Facets {
	categories := make(map[string]int)
	tags := make(map[string]int)
	var bounds shopsearch.PriceBounds
	priced := false

	for _, m := range matches {
		it := m.document.Item
		if it.Category != "" {
			categories[it.Category]++
		}
		for _, t := range it.Tags {
			tags[t]++
		}
		if it.Price == nil {
			continue
		}
		p := *it.Price
		if !priced || p < bounds.Min {
			bounds.Min = p
		}
		if !priced || p > bounds.Max {
			bounds.Max = p
		}
		priced = true
	}

	return shopsearch.Facets{
		Categories: facetCounts(categories),
		Tags:       facetCounts(tags),
		PriceRange: bounds,
	}
}

func facetCounts(counts map[string]int) []shopsearch.FacetCount {
	out := make([]shopsearch.FacetCount, 0, len(counts))
	for name, n := range counts {
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
