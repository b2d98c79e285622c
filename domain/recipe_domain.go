package domain

import (
	"fmt"
	"time"
)

var (
	MessageSuccessGetRecipes         = "success get recipes"
	MessageSuccessGetRecipeDetail    = "success get recipe detail"
	MessageSuccessCreateRecipe       = "recipe created successfully"
	MessageSuccessUpdateRecipe       = "recipe updated successfully"
	MessageSuccessDeleteRecipe       = "recipe deleted successfully"
	MessageSuccessAddFavorite        = "recipe added to favorites"
	MessageSuccessRemoveFavorite     = "recipe removed from favorites"
	MessageSuccessAddShoppingCart    = "recipe added to shopping cart"
	MessageSuccessRemoveShoppingCart = "recipe removed from shopping cart"
	MessageSuccessSendShoppingList   = "shopping list sent"

	MessageFailedGetRecipes         = "failed to get recipes"
	MessageFailedGetRecipeDetail    = "failed to get recipe detail"
	MessageFailedCreateRecipe       = "failed to create recipe"
	MessageFailedUpdateRecipe       = "failed to update recipe"
	MessageFailedDeleteRecipe       = "failed to delete recipe"
	MessageFailedAddFavorite        = "failed to add recipe to favorites"
	MessageFailedRemoveFavorite     = "failed to remove recipe from favorites"
	MessageFailedAddShoppingCart    = "failed to add recipe to shopping cart"
	MessageFailedRemoveShoppingCart = "failed to remove recipe from shopping cart"
	MessageFailedGetShoppingList    = "failed to build shopping list"
	MessageFailedSendShoppingList   = "failed to send shopping list"

	ErrUnauthorizedRecipeAccess = fmt.Errorf("%w: only the author can change this recipe", ErrForbidden)
)

const (
	DefaultMinIngredientAmount = 1
	DefaultMinCookingTime      = 1
	DefaultRecipePageLimit     = 6

	ShoppingListHeader = "Список покупок:"
)

// CollectionKind names one of the per-user recipe collections.
type CollectionKind string

const (
	CollectionFavorite     CollectionKind = "favorite"
	CollectionShoppingCart CollectionKind = "shopping_cart"
)

type (
	IngredientAmountRequest struct {
		ID     string `json:"id" validate:"required,uuid"`
		Amount int    `json:"amount"`
	}

	CreateRecipeRequest struct {
		Tags        []string                  `json:"tags"`
		Ingredients []IngredientAmountRequest `json:"ingredients" validate:"dive"`
		Name        string                    `json:"name" validate:"required,max=200"`
		Text        string                    `json:"text" validate:"required"`
		Image       string                    `json:"image" validate:"required"`
		CookingTime int                       `json:"cooking_time" validate:"required"`
	}

	// UpdateRecipeRequest leaves scalar fields nil when they were not sent.
	// Tags and Ingredients are always replaced.
	UpdateRecipeRequest struct {
		Tags        []string                  `json:"tags"`
		Ingredients []IngredientAmountRequest `json:"ingredients" validate:"dive"`
		Name        *string                   `json:"name" validate:"omitempty,min=1,max=200"`
		Text        *string                   `json:"text" validate:"omitempty,min=1"`
		Image       *string                   `json:"image" validate:"omitempty,min=1"`
		CookingTime *int                      `json:"cooking_time"`
	}

	// RecipeQuery carries the raw list parameters as they arrived.
	RecipeQuery struct {
		Tags             []string
		Author           string
		IsFavorited      string
		IsInShoppingCart string
		Page             int
		Limit            int
	}

	// RecipeFilter is RecipeQuery after parsing. Nil flags mean "not filtered".
	RecipeFilter struct {
		TagSlugs         []string
		AuthorID         string
		RequesterID      string
		IsFavorited      *bool
		IsInShoppingCart *bool
	}

	RecipeIngredient struct {
		ID              string `json:"id"`
		Name            string `json:"name"`
		MeasurementUnit string `json:"measurement_unit"`
		Amount          int    `json:"amount"`
	}

	Recipe struct {
		ID               string             `json:"id"`
		Tags             []Tag              `json:"tags"`
		Author           UserResponse       `json:"author"`
		Ingredients      []RecipeIngredient `json:"ingredients"`
		IsFavorited      bool               `json:"is_favorited"`
		IsInShoppingCart bool               `json:"is_in_shopping_cart"`
		Name             string             `json:"name"`
		Image            string             `json:"image"`
		Text             string             `json:"text"`
		CookingTime      int                `json:"cooking_time"`
		PubDate          time.Time          `json:"pub_date"`
	}

	// RecipeShort is the summary returned by collection endpoints and author previews.
	RecipeShort struct {
		ID          string `json:"id"`
		Name        string `json:"name"`
		Image       string `json:"image"`
		CookingTime int    `json:"cooking_time"`
	}

	// CartLine is one ingredient line of one recipe in a user's cart.
	CartLine struct {
		Name            string
		MeasurementUnit string
		Amount          int
	}

	ShoppingListItem struct {
		Name            string `json:"name"`
		TotalAmount     int    `json:"total_amount"`
		MeasurementUnit string `json:"measurement_unit"`
	}
)
