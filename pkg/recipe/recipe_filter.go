package recipe

import (
	"foodgram/domain"

	"github.com/google/uuid"
)

var (
	truthy = map[string]bool{"1": true, "true": true}
	falsy  = map[string]bool{"0": true, "false": true}
)

// ParseFlag returns nil for values outside the recognised sets,
// which leaves the corresponding filter off.
func ParseFlag(value string) *bool {
	var flag bool
	switch {
	case truthy[value]:
		flag = true
	case falsy[value]:
		flag = false
	default:
		return nil
	}
	return &flag
}

// NewRecipeFilter turns raw query values into a filter. Collection flags
// are dropped for anonymous requesters.
func NewRecipeFilter(query domain.RecipeQuery, requesterID string) (domain.RecipeFilter, error) {
	filter := domain.RecipeFilter{RequesterID: requesterID}

	seen := make(map[string]bool, len(query.Tags))
	for _, slug := range query.Tags {
		if slug == "" || seen[slug] {
			continue
		}
		seen[slug] = true
		filter.TagSlugs = append(filter.TagSlugs, slug)
	}

	if query.Author != "" {
		if _, err := uuid.Parse(query.Author); err != nil {
			return domain.RecipeFilter{}, domain.NewValidationError("author", "must be a valid user id")
		}
		filter.AuthorID = query.Author
	}

	if requesterID != "" {
		filter.IsFavorited = ParseFlag(query.IsFavorited)
		filter.IsInShoppingCart = ParseFlag(query.IsInShoppingCart)
	}
	return filter, nil
}
