package recipe

import (
	"context"

	"gorm.io/gorm"

	"recipebook/domain"
	"recipebook/entities"
)

type (
	RecipeRepository interface {
		CreateRecipe(ctx context.Context, recipe *entities.Recipe, tagIDs []uint, ingredients []*entities.IngredientRecipe) error
		UpdateRecipe(ctx context.Context, recipe *entities.Recipe, tagIDs []uint, ingredients []*entities.IngredientRecipe) error
		DeleteRecipe(ctx context.Context, id uint) error
		GetRecipeByID(ctx context.Context, id uint) (*entities.Recipe, error)
		GetRecipeByShortLink(ctx context.Context, shortLink string) (*entities.Recipe, error)
		GetRecipes(ctx context.Context, filter domain.RecipeFilter, viewerID uint, page, limit int) ([]*entities.Recipe, int64, error)
		ShortLinkExists(ctx context.Context, shortLink string) (bool, error)

		GetTagsByIDs(ctx context.Context, ids []uint) ([]*entities.Tag, error)
		GetIngredientsByIDs(ctx context.Context, ids []uint) ([]*entities.Ingredient, error)

		AddToCart(ctx context.Context, userID, recipeID uint) error
		RemoveFromCart(ctx context.Context, userID, recipeID uint) error
		IsInCart(ctx context.Context, userID, recipeID uint) (bool, error)
		AddToFavorites(ctx context.Context, userID, recipeID uint) error
		RemoveFromFavorites(ctx context.Context, userID, recipeID uint) error
		IsFavorited(ctx context.Context, userID, recipeID uint) (bool, error)

		GetShoppingList(ctx context.Context, userID uint) ([]domain.ShoppingListItem, error)
		IsSubscribed(ctx context.Context, subscriberID, userID uint) (bool, error)
	}

	recipeRepository struct {
		db *gorm.DB
	}
)

func NewRecipeRepository(db *gorm.DB) RecipeRepository {
	return &recipeRepository{db: db}
}

func (r *recipeRepository) CreateRecipe(ctx context.Context, recipe *entities.Recipe, tagIDs []uint, ingredients []*entities.IngredientRecipe) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(recipe).Error; err != nil {
			return err
		}
		return replaceAssociations(tx, recipe.ID, tagIDs, ingredients)
	})
}

func (r *recipeRepository) UpdateRecipe(ctx context.Context, recipe *entities.Recipe, tagIDs []uint, ingredients []*entities.IngredientRecipe) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("recipe_id = ?", recipe.ID).Delete(&entities.TagRecipe{}).Error; err != nil {
			return err
		}
		if err := tx.Where("recipe_id = ?", recipe.ID).Delete(&entities.IngredientRecipe{}).Error; err != nil {
			return err
		}
		if err := replaceAssociations(tx, recipe.ID, tagIDs, ingredients); err != nil {
			return err
		}
		// ShortLink and PubDate are set once at creation and never change.
		return tx.Model(&entities.Recipe{}).Where("id = ?", recipe.ID).
			Updates(map[string]interface{}{
				"name":         recipe.Name,
				"text":         recipe.Text,
				"cooking_time": recipe.CookingTime,
				"image":        recipe.Image,
			}).Error
	})
}

func replaceAssociations(tx *gorm.DB, recipeID uint, tagIDs []uint, ingredients []*entities.IngredientRecipe) error {
	tagLinks := make([]*entities.TagRecipe, 0, len(tagIDs))
	for _, tagID := range tagIDs {
		tagLinks = append(tagLinks, &entities.TagRecipe{TagID: tagID, RecipeID: recipeID})
	}
	if err := tx.Create(&tagLinks).Error; err != nil {
		return err
	}
	for _, ingredient := range ingredients {
		ingredient.RecipeID = recipeID
	}
	return tx.Create(&ingredients).Error
}

func (r *recipeRepository) DeleteRecipe(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, dependent := range []interface{}{
			&entities.TagRecipe{}, &entities.IngredientRecipe{},
			&entities.Cart{}, &entities.Favorite{},
		} {
			if err := tx.Where("recipe_id = ?", id).Delete(dependent).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&entities.Recipe{}, id).Error
	})
}

func (r *recipeRepository) GetRecipeByID(ctx context.Context, id uint) (*entities.Recipe, error) {
	var recipe entities.Recipe
	if err := r.db.WithContext(ctx).
		Preload("Author").
		Preload("TagLinks.Tag").
		Preload("Ingredients.Ingredient").
		First(&recipe, id).Error; err != nil {
		return nil, err
	}
	return &recipe, nil
}

func (r *recipeRepository) GetRecipeByShortLink(ctx context.Context, shortLink string) (*entities.Recipe, error) {
	var recipe entities.Recipe
	if err := r.db.WithContext(ctx).
		Where("short_link = ?", shortLink).
		First(&recipe).Error; err != nil {
		return nil, err
	}
	return &recipe, nil
}

func (r *recipeRepository) GetRecipes(ctx context.Context, filter domain.RecipeFilter, viewerID uint, page, limit int) ([]*entities.Recipe, int64, error) {
	var recipes []*entities.Recipe
	var count int64
	offset := (page - 1) * limit

	query := r.db.WithContext(ctx).Model(&entities.Recipe{})

	if filter.AuthorID != 0 {
		query = query.Where("recipes.author_id = ?", filter.AuthorID)
	}
	if len(filter.Tags) > 0 {
		// Subquery keeps the result set free of join duplicates when a
		// recipe carries several of the requested tags.
		query = query.Where("recipes.id IN (?)", r.db.
			Table("tag_recipes").
			Select("tag_recipes.recipe_id").
			Joins("JOIN tags ON tags.id = tag_recipes.tag_id").
			Where("tags.slug IN ?", filter.Tags))
	}
	// Viewer-scoped filters are ignored for anonymous viewers.
	if filter.IsFavorited && viewerID != 0 {
		query = query.
			Joins("JOIN favorites ON favorites.recipe_id = recipes.id").
			Where("favorites.user_id = ?", viewerID)
	}
	if filter.IsInShoppingCart && viewerID != 0 {
		query = query.
			Joins("JOIN carts ON carts.recipe_id = recipes.id").
			Where("carts.user_id = ?", viewerID)
	}

	if err := query.Count(&count).Error; err != nil {
		return nil, 0, err
	}

	if err := query.
		Preload("Author").
		Preload("TagLinks.Tag").
		Preload("Ingredients.Ingredient").
		Offset(offset).
		Limit(limit).
		Order("recipes.pub_date desc").
		Find(&recipes).Error; err != nil {
		return nil, 0, err
	}

	return recipes, count, nil
}

func (r *recipeRepository) ShortLinkExists(ctx context.Context, shortLink string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&entities.Recipe{}).
		Where("short_link = ?", shortLink).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *recipeRepository) GetTagsByIDs(ctx context.Context, ids []uint) ([]*entities.Tag, error) {
	var tags []*entities.Tag
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&tags).Error; err != nil {
		return nil, err
	}
	return tags, nil
}

func (r *recipeRepository) GetIngredientsByIDs(ctx context.Context, ids []uint) ([]*entities.Ingredient, error) {
	var ingredients []*entities.Ingredient
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&ingredients).Error; err != nil {
		return nil, err
	}
	return ingredients, nil
}

func (r *recipeRepository) AddToCart(ctx context.Context, userID, recipeID uint) error {
	return r.db.WithContext(ctx).Create(&entities.Cart{UserID: userID, RecipeID: recipeID}).Error
}

func (r *recipeRepository) RemoveFromCart(ctx context.Context, userID, recipeID uint) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND recipe_id = ?", userID, recipeID).
		Delete(&entities.Cart{}).Error
}

func (r *recipeRepository) IsInCart(ctx context.Context, userID, recipeID uint) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&entities.Cart{}).
		Where("user_id = ? AND recipe_id = ?", userID, recipeID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *recipeRepository) AddToFavorites(ctx context.Context, userID, recipeID uint) error {
	return r.db.WithContext(ctx).Create(&entities.Favorite{UserID: userID, RecipeID: recipeID}).Error
}

func (r *recipeRepository) RemoveFromFavorites(ctx context.Context, userID, recipeID uint) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND recipe_id = ?", userID, recipeID).
		Delete(&entities.Favorite{}).Error
}

func (r *recipeRepository) IsFavorited(ctx context.Context, userID, recipeID uint) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&entities.Favorite{}).
		Where("user_id = ? AND recipe_id = ?", userID, recipeID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *recipeRepository) GetShoppingList(ctx context.Context, userID uint) ([]domain.ShoppingListItem, error) {
	var items []domain.ShoppingListItem
	if err := r.db.WithContext(ctx).
		Table("ingredient_recipes").
		Select("ingredients.name AS name, ingredients.measurement_unit AS measurement_unit, SUM(ingredient_recipes.amount) AS amount").
		Joins("JOIN ingredients ON ingredients.id = ingredient_recipes.ingredient_id").
		Joins("JOIN carts ON carts.recipe_id = ingredient_recipes.recipe_id").
		Where("carts.user_id = ?", userID).
		Group("ingredients.name, ingredients.measurement_unit").
		Order("ingredients.name, ingredients.measurement_unit").
		Scan(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *recipeRepository) IsSubscribed(ctx context.Context, subscriberID, userID uint) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&entities.Subscription{}).
		Where("subscriber_id = ? AND user_id = ?", subscriberID, userID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
