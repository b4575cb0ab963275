package domain

import (
	"errors"
)

var (
	MessageSuccessGetRecipes          = "success get recipes"
	MessageSuccessGetRecipeDetail     = "success get recipe detail"
	MessageSuccessCreateRecipe        = "recipe created successfully"
	MessageSuccessUpdateRecipe        = "recipe updated successfully"
	MessageSuccessDeleteRecipe        = "recipe deleted successfully"
	MessageSuccessAddToCart           = "recipe added to shopping cart"
	MessageSuccessRemoveFromCart      = "recipe removed from shopping cart"
	MessageSuccessAddToFavorites      = "recipe added to favorites"
	MessageSuccessRemoveFromFavorites = "recipe removed from favorites"
	MessageSuccessGetShortLink        = "success get short link"

	MessageFailedGetRecipes          = "failed to get recipes"
	MessageFailedGetRecipeDetail     = "failed to get recipe detail"
	MessageFailedCreateRecipe        = "failed to create recipe"
	MessageFailedUpdateRecipe        = "failed to update recipe"
	MessageFailedDeleteRecipe        = "failed to delete recipe"
	MessageFailedAddToCart           = "failed to add recipe to shopping cart"
	MessageFailedRemoveFromCart      = "failed to remove recipe from shopping cart"
	MessageFailedAddToFavorites      = "failed to add recipe to favorites"
	MessageFailedRemoveFromFavorites = "failed to remove recipe from favorites"
	MessageFailedGetShoppingList     = "failed to get shopping list"
	MessageFailedGetShortLink        = "failed to get short link"

	ErrRecipeNotFound    = errors.New("recipe not found")
	ErrShortLinkNotFound = errors.New("short link not found")
	ErrNotRecipeAuthor   = errors.New("only the author can modify the recipe")
	ErrAlreadyInCart     = errors.New("recipe already in shopping cart")
	ErrNotInCart         = errors.New("recipe not in shopping cart")
	ErrAlreadyFavorited  = errors.New("recipe already in favorites")
	ErrNotFavorited      = errors.New("recipe not in favorites")
)

type (
	IngredientAmountRequest struct {
		ID     uint `json:"id" validate:"required"`
		Amount int  `json:"amount" validate:"required"`
	}

	RecipeWriteRequest struct {
		Name        string                    `json:"name" validate:"required,max=256"`
		Text        string                    `json:"text" validate:"required"`
		CookingTime int                       `json:"cooking_time" validate:"required,min=1"`
		Image       string                    `json:"image"`
		Tags        []uint                    `json:"tags"`
		Ingredients []IngredientAmountRequest `json:"ingredients"`
	}

	RecipeFilter struct {
		AuthorID         uint
		Tags             []string
		IsFavorited      bool
		IsInShoppingCart bool
	}

	IngredientInRecipeResponse struct {
		ID              uint   `json:"id"`
		Name            string `json:"name"`
		MeasurementUnit string `json:"measurement_unit"`
		Amount          int    `json:"amount"`
	}

	RecipeShortResponse struct {
		ID          uint   `json:"id"`
		Name        string `json:"name"`
		Image       string `json:"image,omitempty"`
		CookingTime int    `json:"cooking_time"`
	}

	RecipeResponse struct {
		ID               uint                         `json:"id"`
		Tags             []TagResponse                `json:"tags"`
		Author           UserResponse                 `json:"author"`
		Ingredients      []IngredientInRecipeResponse `json:"ingredients"`
		IsFavorited      bool                         `json:"is_favorited"`
		IsInShoppingCart bool                         `json:"is_in_shopping_cart"`
		Name             string                       `json:"name"`
		Image            string                       `json:"image,omitempty"`
		Text             string                       `json:"text"`
		CookingTime      int                          `json:"cooking_time"`
	}

	ShortLinkResponse struct {
		ShortLink string `json:"short-link"`
	}

	// ShoppingListItem is one aggregated line of the downloadable list:
	// amounts summed per (name, measurement unit) across the user's cart.
	ShoppingListItem struct {
		Name            string `json:"name"`
		Amount          int    `json:"amount"`
		MeasurementUnit string `json:"measurement_unit"`
	}
)
