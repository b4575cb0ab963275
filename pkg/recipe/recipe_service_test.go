package recipe

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"recipebook/domain"
	"recipebook/entities"
)

type fakeStorage struct{}

func (fakeStorage) UploadBase64Image(_ context.Context, _ string, folder string) (string, error) {
	return "https://cdn.test/" + folder + "/image.png", nil
}

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&entities.User{}, &entities.Subscription{},
		&entities.Tag{}, &entities.Ingredient{},
		&entities.Recipe{}, &entities.TagRecipe{}, &entities.IngredientRecipe{},
		&entities.Cart{}, &entities.Favorite{},
	))
	return db
}

func setupService(t *testing.T) (RecipeService, *gorm.DB) {
	db := setupTestDB(t)
	return NewRecipeService(NewRecipeRepository(db), fakeStorage{}), db
}

func createTestUser(t *testing.T, db *gorm.DB, username string) *entities.User {
	user := &entities.User{
		Email:        username + "@example.com",
		Username:     username,
		FirstName:    "Test",
		LastName:     "User",
		PasswordHash: "hashed",
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func createTestTag(t *testing.T, db *gorm.DB, name, slug string) *entities.Tag {
	tag := &entities.Tag{Name: name, Slug: slug}
	require.NoError(t, db.Create(tag).Error)
	return tag
}

func createTestIngredient(t *testing.T, db *gorm.DB, name, unit string) *entities.Ingredient {
	ingredient := &entities.Ingredient{Name: name, MeasurementUnit: unit}
	require.NoError(t, db.Create(ingredient).Error)
	return ingredient
}

func writeRequest(name string, tagIDs []uint, ingredients []domain.IngredientAmountRequest) domain.RecipeWriteRequest {
	return domain.RecipeWriteRequest{
		Name:        name,
		Text:        "Chop everything and simmer.",
		CookingTime: 30,
		Tags:        tagIDs,
		Ingredients: ingredients,
	}
}

func TestCreateRecipe_RoundTrip(t *testing.T) {
	service, db := setupService(t)
	ctx := context.Background()

	author := createTestUser(t, db, "chef")
	breakfast := createTestTag(t, db, "Breakfast", "breakfast")
	dinner := createTestTag(t, db, "Dinner", "dinner")
	salt := createTestIngredient(t, db, "Salt", "g")
	eggs := createTestIngredient(t, db, "Eggs", "pcs")

	req := writeRequest("Omelette", []uint{breakfast.ID, dinner.ID}, []domain.IngredientAmountRequest{
		{ID: salt.ID, Amount: 5},
		{ID: eggs.ID, Amount: 3},
	})

	created, err := service.CreateRecipe(ctx, req, author.ID)
	require.NoError(t, err)

	read, err := service.GetRecipeDetail(ctx, created.ID, author.ID)
	require.NoError(t, err)

	gotTags := make([]uint, 0, len(read.Tags))
	for _, tag := range read.Tags {
		gotTags = append(gotTags, tag.ID)
	}
	assert.ElementsMatch(t, []uint{breakfast.ID, dinner.ID}, gotTags)

	gotIngredients := make(map[uint]int, len(read.Ingredients))
	for _, ingredient := range read.Ingredients {
		gotIngredients[ingredient.ID] = ingredient.Amount
	}
	assert.Equal(t, map[uint]int{salt.ID: 5, eggs.ID: 3}, gotIngredients)

	assert.Equal(t, "Omelette", read.Name)
	assert.Equal(t, author.ID, read.Author.ID)
	assert.Equal(t, "omelette", mustShortLink(t, db, created.ID))
}

func mustShortLink(t *testing.T, db *gorm.DB, recipeID uint) string {
	var recipe entities.Recipe
	require.NoError(t, db.First(&recipe, recipeID).Error)
	return recipe.ShortLink
}

func TestCreateRecipe_NoTags(t *testing.T) {
	service, db := setupService(t)

	author := createTestUser(t, db, "chef")
	salt := createTestIngredient(t, db, "Salt", "g")

	req := writeRequest("Plain", nil, []domain.IngredientAmountRequest{{ID: salt.ID, Amount: 1}})

	_, err := service.CreateRecipe(context.Background(), req, author.ID)
	var validationErr domain.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "tags", validationErr.Field)
}

func TestCreateRecipe_DuplicateTag(t *testing.T) {
	service, db := setupService(t)

	author := createTestUser(t, db, "chef")
	tag := createTestTag(t, db, "Lunch", "lunch")
	salt := createTestIngredient(t, db, "Salt", "g")

	req := writeRequest("Soup", []uint{tag.ID, tag.ID}, []domain.IngredientAmountRequest{{ID: salt.ID, Amount: 1}})

	_, err := service.CreateRecipe(context.Background(), req, author.ID)
	var validationErr domain.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "tags", validationErr.Field)

	// Nothing may be persisted after a rejected payload.
	var count int64
	require.NoError(t, db.Model(&entities.Recipe{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestCreateRecipe_DuplicateIngredient(t *testing.T) {
	service, db := setupService(t)

	author := createTestUser(t, db, "chef")
	tag := createTestTag(t, db, "Lunch", "lunch")
	salt := createTestIngredient(t, db, "Salt", "g")

	req := writeRequest("Soup", []uint{tag.ID}, []domain.IngredientAmountRequest{
		{ID: salt.ID, Amount: 1},
		{ID: salt.ID, Amount: 2},
	})

	_, err := service.CreateRecipe(context.Background(), req, author.ID)
	var validationErr domain.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "ingredients", validationErr.Field)
}

func TestCreateRecipe_AmountBelowMinimum(t *testing.T) {
	service, db := setupService(t)

	author := createTestUser(t, db, "chef")
	tag := createTestTag(t, db, "Lunch", "lunch")
	salt := createTestIngredient(t, db, "Salt", "g")

	req := writeRequest("Soup", []uint{tag.ID}, []domain.IngredientAmountRequest{{ID: salt.ID, Amount: 0}})

	_, err := service.CreateRecipe(context.Background(), req, author.ID)
	var validationErr domain.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "ingredients", validationErr.Field)
}

func TestCreateRecipe_UnknownReferences(t *testing.T) {
	service, db := setupService(t)

	author := createTestUser(t, db, "chef")
	tag := createTestTag(t, db, "Lunch", "lunch")
	salt := createTestIngredient(t, db, "Salt", "g")

	req := writeRequest("Soup", []uint{tag.ID, 999}, []domain.IngredientAmountRequest{{ID: salt.ID, Amount: 1}})
	_, err := service.CreateRecipe(context.Background(), req, author.ID)
	assert.ErrorIs(t, err, domain.ErrTagNotFound)

	req = writeRequest("Soup", []uint{tag.ID}, []domain.IngredientAmountRequest{{ID: 999, Amount: 1}})
	_, err = service.CreateRecipe(context.Background(), req, author.ID)
	assert.ErrorIs(t, err, domain.ErrIngredientNotFound)
}

func TestCreateRecipe_ShortLinkCollision(t *testing.T) {
	service, db := setupService(t)
	ctx := context.Background()

	author := createTestUser(t, db, "chef")
	tag := createTestTag(t, db, "Lunch", "lunch")
	salt := createTestIngredient(t, db, "Salt", "g")

	req := writeRequest("Borscht", []uint{tag.ID}, []domain.IngredientAmountRequest{{ID: salt.ID, Amount: 1}})

	first, err := service.CreateRecipe(ctx, req, author.ID)
	require.NoError(t, err)
	second, err := service.CreateRecipe(ctx, req, author.ID)
	require.NoError(t, err)

	assert.Equal(t, "borscht", mustShortLink(t, db, first.ID))
	assert.Equal(t, "borscht-2", mustShortLink(t, db, second.ID))
}

func TestUpdateRecipe_ReplacesAssociations(t *testing.T) {
	service, db := setupService(t)
	ctx := context.Background()

	author := createTestUser(t, db, "chef")
	lunch := createTestTag(t, db, "Lunch", "lunch")
	dinner := createTestTag(t, db, "Dinner", "dinner")
	salt := createTestIngredient(t, db, "Salt", "g")
	pepper := createTestIngredient(t, db, "Pepper", "g")

	created, err := service.CreateRecipe(ctx, writeRequest("Stew", []uint{lunch.ID}, []domain.IngredientAmountRequest{
		{ID: salt.ID, Amount: 5},
	}), author.ID)
	require.NoError(t, err)

	updated, err := service.UpdateRecipe(ctx, created.ID, writeRequest("Stew", []uint{dinner.ID}, []domain.IngredientAmountRequest{
		{ID: pepper.ID, Amount: 2},
	}), author.ID)
	require.NoError(t, err)

	require.Len(t, updated.Tags, 1)
	assert.Equal(t, dinner.ID, updated.Tags[0].ID)
	require.Len(t, updated.Ingredients, 1)
	assert.Equal(t, pepper.ID, updated.Ingredients[0].ID)

	// No join row may reference an ingredient absent from the new payload.
	var stale int64
	require.NoError(t, db.Model(&entities.IngredientRecipe{}).
		Where("recipe_id = ? AND ingredient_id = ?", created.ID, salt.ID).
		Count(&stale).Error)
	assert.Zero(t, stale)
}

func TestUpdateRecipe_NotAuthor(t *testing.T) {
	service, db := setupService(t)
	ctx := context.Background()

	author := createTestUser(t, db, "chef")
	other := createTestUser(t, db, "guest")
	tag := createTestTag(t, db, "Lunch", "lunch")
	salt := createTestIngredient(t, db, "Salt", "g")

	req := writeRequest("Stew", []uint{tag.ID}, []domain.IngredientAmountRequest{{ID: salt.ID, Amount: 1}})
	created, err := service.CreateRecipe(ctx, req, author.ID)
	require.NoError(t, err)

	_, err = service.UpdateRecipe(ctx, created.ID, req, other.ID)
	assert.ErrorIs(t, err, domain.ErrNotRecipeAuthor)
}

func TestAddToCart_Conflicts(t *testing.T) {
	service, db := setupService(t)
	ctx := context.Background()

	author := createTestUser(t, db, "chef")
	tag := createTestTag(t, db, "Lunch", "lunch")
	salt := createTestIngredient(t, db, "Salt", "g")

	created, err := service.CreateRecipe(ctx, writeRequest("Stew", []uint{tag.ID}, []domain.IngredientAmountRequest{
		{ID: salt.ID, Amount: 1},
	}), author.ID)
	require.NoError(t, err)

	short, err := service.AddToCart(ctx, created.ID, author.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, short.ID)

	_, err = service.AddToCart(ctx, created.ID, author.ID)
	assert.ErrorIs(t, err, domain.ErrAlreadyInCart)

	_, err = service.AddToCart(ctx, 999, author.ID)
	assert.ErrorIs(t, err, domain.ErrRecipeNotFound)
}

func TestRemoveFromCart(t *testing.T) {
	service, db := setupService(t)
	ctx := context.Background()

	author := createTestUser(t, db, "chef")
	tag := createTestTag(t, db, "Lunch", "lunch")
	salt := createTestIngredient(t, db, "Salt", "g")

	created, err := service.CreateRecipe(ctx, writeRequest("Stew", []uint{tag.ID}, []domain.IngredientAmountRequest{
		{ID: salt.ID, Amount: 7},
	}), author.ID)
	require.NoError(t, err)

	err = service.RemoveFromCart(ctx, created.ID, author.ID)
	assert.ErrorIs(t, err, domain.ErrNotInCart)

	_, err = service.AddToCart(ctx, created.ID, author.ID)
	require.NoError(t, err)
	require.NoError(t, service.RemoveFromCart(ctx, created.ID, author.ID))

	items, err := service.GetShoppingList(ctx, author.ID)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestFavoriteToggle(t *testing.T) {
	service, db := setupService(t)
	ctx := context.Background()

	author := createTestUser(t, db, "chef")
	viewer := createTestUser(t, db, "viewer")
	tag := createTestTag(t, db, "Lunch", "lunch")
	salt := createTestIngredient(t, db, "Salt", "g")

	created, err := service.CreateRecipe(ctx, writeRequest("Stew", []uint{tag.ID}, []domain.IngredientAmountRequest{
		{ID: salt.ID, Amount: 1},
	}), author.ID)
	require.NoError(t, err)

	_, err = service.AddToFavorites(ctx, created.ID, viewer.ID)
	require.NoError(t, err)
	_, err = service.AddToFavorites(ctx, created.ID, viewer.ID)
	assert.ErrorIs(t, err, domain.ErrAlreadyFavorited)

	read, err := service.GetRecipeDetail(ctx, created.ID, viewer.ID)
	require.NoError(t, err)
	assert.True(t, read.IsFavorited)
	assert.False(t, read.IsInShoppingCart)

	// Anonymous viewers always see both flags as false.
	anonymous, err := service.GetRecipeDetail(ctx, created.ID, 0)
	require.NoError(t, err)
	assert.False(t, anonymous.IsFavorited)

	require.NoError(t, service.RemoveFromFavorites(ctx, created.ID, viewer.ID))
	err = service.RemoveFromFavorites(ctx, created.ID, viewer.ID)
	assert.ErrorIs(t, err, domain.ErrNotFavorited)
}

func TestShoppingList_AggregatesAcrossRecipes(t *testing.T) {
	service, db := setupService(t)
	ctx := context.Background()

	author := createTestUser(t, db, "chef")
	tag := createTestTag(t, db, "Lunch", "lunch")
	saltG := createTestIngredient(t, db, "Salt", "g")
	saltPinch := createTestIngredient(t, db, "Salt", "pinch")
	eggs := createTestIngredient(t, db, "Eggs", "pcs")

	first, err := service.CreateRecipe(ctx, writeRequest("Soup", []uint{tag.ID}, []domain.IngredientAmountRequest{
		{ID: saltG.ID, Amount: 5},
		{ID: eggs.ID, Amount: 2},
	}), author.ID)
	require.NoError(t, err)

	second, err := service.CreateRecipe(ctx, writeRequest("Stew", []uint{tag.ID}, []domain.IngredientAmountRequest{
		{ID: saltG.ID, Amount: 10},
		{ID: saltPinch.ID, Amount: 1},
	}), author.ID)
	require.NoError(t, err)

	_, err = service.AddToCart(ctx, first.ID, author.ID)
	require.NoError(t, err)
	_, err = service.AddToCart(ctx, second.ID, author.ID)
	require.NoError(t, err)

	items, err := service.GetShoppingList(ctx, author.ID)
	require.NoError(t, err)

	// Same name under a different unit stays a separate line.
	assert.Equal(t, []domain.ShoppingListItem{
		{Name: "Eggs", Amount: 2, MeasurementUnit: "pcs"},
		{Name: "Salt", Amount: 15, MeasurementUnit: "g"},
		{Name: "Salt", Amount: 1, MeasurementUnit: "pinch"},
	}, items)

	text := service.RenderShoppingList(items)
	assert.Contains(t, text, "Shopping list\n")
	assert.Contains(t, text, "Salt - 15 (g)\n")
}

func TestShoppingList_EmptyCart(t *testing.T) {
	service, db := setupService(t)

	user := createTestUser(t, db, "empty")
	items, err := service.GetShoppingList(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestResolveShortLink(t *testing.T) {
	service, db := setupService(t)
	ctx := context.Background()

	author := createTestUser(t, db, "chef")
	tag := createTestTag(t, db, "Lunch", "lunch")
	salt := createTestIngredient(t, db, "Salt", "g")

	created, err := service.CreateRecipe(ctx, writeRequest("Borscht", []uint{tag.ID}, []domain.IngredientAmountRequest{
		{ID: salt.ID, Amount: 1},
	}), author.ID)
	require.NoError(t, err)

	resolved, err := service.ResolveShortLink(ctx, "borscht")
	require.NoError(t, err)
	assert.Equal(t, created.ID, resolved.ID)

	_, err = service.ResolveShortLink(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrShortLinkNotFound)
}

func TestGetRecipes_Filters(t *testing.T) {
	service, db := setupService(t)
	ctx := context.Background()

	chef := createTestUser(t, db, "chef")
	guest := createTestUser(t, db, "guest")
	lunch := createTestTag(t, db, "Lunch", "lunch")
	dinner := createTestTag(t, db, "Dinner", "dinner")
	salt := createTestIngredient(t, db, "Salt", "g")

	var recipes []domain.RecipeResponse
	for i, tagID := range []uint{lunch.ID, lunch.ID, dinner.ID} {
		created, err := service.CreateRecipe(ctx, writeRequest(
			fmt.Sprintf("Recipe %d", i), []uint{tagID},
			[]domain.IngredientAmountRequest{{ID: salt.ID, Amount: 1}},
		), chef.ID)
		require.NoError(t, err)
		recipes = append(recipes, created)
	}

	byTag, count, err := service.GetRecipes(ctx, domain.RecipeFilter{Tags: []string{"lunch"}}, 0, 1, 20)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)
	assert.Len(t, byTag, 2)

	_, err = service.AddToFavorites(ctx, recipes[2].ID, guest.ID)
	require.NoError(t, err)

	favorited, count, err := service.GetRecipes(ctx, domain.RecipeFilter{IsFavorited: true}, guest.ID, 1, 20)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
	require.Len(t, favorited, 1)
	assert.Equal(t, recipes[2].ID, favorited[0].ID)

	// Viewer-scoped filters are ignored for anonymous viewers.
	all, count, err := service.GetRecipes(ctx, domain.RecipeFilter{IsFavorited: true}, 0, 1, 20)
	require.NoError(t, err)
	assert.EqualValues(t, 3, count)
	assert.Len(t, all, 3)
}

func TestDeleteRecipe(t *testing.T) {
	service, db := setupService(t)
	ctx := context.Background()

	author := createTestUser(t, db, "chef")
	other := createTestUser(t, db, "guest")
	tag := createTestTag(t, db, "Lunch", "lunch")
	salt := createTestIngredient(t, db, "Salt", "g")

	created, err := service.CreateRecipe(ctx, writeRequest("Stew", []uint{tag.ID}, []domain.IngredientAmountRequest{
		{ID: salt.ID, Amount: 1},
	}), author.ID)
	require.NoError(t, err)

	assert.ErrorIs(t, service.DeleteRecipe(ctx, created.ID, other.ID), domain.ErrNotRecipeAuthor)
	require.NoError(t, service.DeleteRecipe(ctx, created.ID, author.ID))

	_, err = service.GetRecipeDetail(ctx, created.ID, author.ID)
	assert.ErrorIs(t, err, domain.ErrRecipeNotFound)

	var joins int64
	require.NoError(t, db.Model(&entities.IngredientRecipe{}).Where("recipe_id = ?", created.ID).Count(&joins).Error)
	assert.Zero(t, joins)
}
