package appstore

import "fmt"

// SearchAttribute narrows a term-based search to a single metadata field.
// The lookup service rejects anything outside this allow-list for software
// entities with an HTTP 400, so values are validated before a request is
// built.
type SearchAttribute string

// Attributes confirmed to work for software entities.
const (
	AttributeDeveloper   SearchAttribute = "softwareDeveloper"
	AttributeDescription SearchAttribute = "descriptionTerm"
	AttributeKeywords    SearchAttribute = "keywordsTerm"
	AttributeGenre       SearchAttribute = "genreIndex"
	AttributeRating      SearchAttribute = "ratingIndex"
)

var validAttributes = map[SearchAttribute]struct{}{
	AttributeDeveloper:   {},
	AttributeDescription: {},
	AttributeKeywords:    {},
	AttributeGenre:       {},
	AttributeRating:      {},
}

// ValidateAttribute rejects attribute names outside the software allow-list.
// The empty attribute is valid and means "search all fields".
func ValidateAttribute(attr SearchAttribute) error {
	if attr == "" {
		return nil
	}
	if _, ok := validAttributes[attr]; !ok {
		return fmt.Errorf("attribute %q is not valid for software entities", attr)
	}
	return nil
}
