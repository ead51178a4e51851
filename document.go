package shopsearch

import (
	"encoding/json"
	"math"

	"github.com/cockroachdb/errors"
)

// Document field names shared by the catalog backends.
const (
	FieldID            = "id"
	FieldTitle         = "title"
	FieldDescription   = "description"
	FieldCategory      = "category"
	FieldTags          = "tags"
	FieldPrice         = "price"
	FieldRating        = "rating"
	FieldRatingStars   = "ratingStars"
	FieldFeatured      = "featured"
	FieldBestSeller    = "bestSeller"
	FieldCreatedAt     = "createdAt"
	FieldCreatedAtUnix = "createdAtUnix"
)

// ItemDocument flattens an item into the field map stored by search indexes.
// Optional values are left out rather than stored as null. The creation time
// is duplicated as Unix seconds so it can be compared numerically, and the
// rating as whole stars for indexes that cannot filter half-open ranges.
func ItemDocument(it Item) map[string]interface{} {
	doc := map[string]interface{}{
		FieldID:          it.ID,
		FieldTitle:       it.Title,
		FieldDescription: it.Description,
		FieldCategory:    it.Category,
		FieldCreatedAt:   it.CreatedAt,
	}
	tags := make([]interface{}, len(it.Tags))
	for i, t := range it.Tags {
		tags[i] = t
	}
	doc[FieldTags] = tags
	if it.Price != nil {
		doc[FieldPrice] = *it.Price
	}
	if it.Rating != nil {
		doc[FieldRating] = *it.Rating
		doc[FieldRatingStars] = int(math.Floor(*it.Rating))
	}
	if it.ImageURL != "" {
		doc["imageUrl"] = it.ImageURL
	}
	if it.Featured != nil {
		doc[FieldFeatured] = *it.Featured
	}
	if it.BestSeller != nil {
		doc[FieldBestSeller] = *it.BestSeller
	}
	if created, ok := it.CreatedTime(); ok {
		doc[FieldCreatedAtUnix] = created.Unix()
	}
	return doc
}

// ItemFromDocument rebuilds an item from an index document. Unknown fields
// are ignored.
func ItemFromDocument(doc map[string]interface{}) (Item, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return Item{}, errors.Wrap(err, "failed to marshal document")
	}
	var it Item
	if err := json.Unmarshal(data, &it); err != nil {
		return Item{}, errors.Wrap(err, "failed to unmarshal document")
	}
	return it, nil
}
