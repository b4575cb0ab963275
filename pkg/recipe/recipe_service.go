package recipe

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"recipebook/domain"
	"recipebook/entities"
	"recipebook/internal/utils"
	"recipebook/internal/utils/storage"
)

type (
	RecipeService interface {
		GetRecipes(ctx context.Context, filter domain.RecipeFilter, viewerID uint, page, limit int) ([]domain.RecipeResponse, int64, error)
		GetRecipeDetail(ctx context.Context, id uint, viewerID uint) (domain.RecipeResponse, error)
		CreateRecipe(ctx context.Context, req domain.RecipeWriteRequest, authorID uint) (domain.RecipeResponse, error)
		UpdateRecipe(ctx context.Context, id uint, req domain.RecipeWriteRequest, userID uint) (domain.RecipeResponse, error)
		DeleteRecipe(ctx context.Context, id uint, userID uint) error

		AddToCart(ctx context.Context, recipeID, userID uint) (domain.RecipeShortResponse, error)
		RemoveFromCart(ctx context.Context, recipeID, userID uint) error
		AddToFavorites(ctx context.Context, recipeID, userID uint) (domain.RecipeShortResponse, error)
		RemoveFromFavorites(ctx context.Context, recipeID, userID uint) error

		GetShoppingList(ctx context.Context, userID uint) ([]domain.ShoppingListItem, error)
		RenderShoppingList(items []domain.ShoppingListItem) string

		GetShortLink(ctx context.Context, recipeID uint) (string, error)
		ResolveShortLink(ctx context.Context, shortLink string) (*entities.Recipe, error)
	}

	recipeService struct {
		recipeRepository RecipeRepository
		s3               storage.AwsS3
	}
)

func NewRecipeService(recipeRepository RecipeRepository, s3 storage.AwsS3) RecipeService {
	return &recipeService{
		recipeRepository: recipeRepository,
		s3:               s3,
	}
}

// validateWritePayload applies the write-path rules shared by create and
// update: non-empty duplicate-free tag and ingredient sets, amounts >= 1.
// It is pure; referenced ids are resolved against the database afterwards.
func validateWritePayload(req domain.RecipeWriteRequest) error {
	if len(req.Tags) == 0 {
		return domain.ValidationError{Field: "tags", Message: "at least one tag is required"}
	}
	seenTags := make(map[uint]struct{}, len(req.Tags))
	for _, tagID := range req.Tags {
		if _, ok := seenTags[tagID]; ok {
			return domain.ValidationError{Field: "tags", Message: "tags must be unique"}
		}
		seenTags[tagID] = struct{}{}
	}

	if len(req.Ingredients) == 0 {
		return domain.ValidationError{Field: "ingredients", Message: "at least one ingredient is required"}
	}
	seenIngredients := make(map[uint]struct{}, len(req.Ingredients))
	for _, ingredient := range req.Ingredients {
		if _, ok := seenIngredients[ingredient.ID]; ok {
			return domain.ValidationError{Field: "ingredients", Message: "ingredients must be unique"}
		}
		seenIngredients[ingredient.ID] = struct{}{}
		if ingredient.Amount < 1 {
			return domain.ValidationError{Field: "ingredients", Message: "minimum ingredient amount is 1"}
		}
	}
	return nil
}

func (s *recipeService) resolveReferences(ctx context.Context, req domain.RecipeWriteRequest) ([]*entities.IngredientRecipe, error) {
	tags, err := s.recipeRepository.GetTagsByIDs(ctx, req.Tags)
	if err != nil {
		return nil, err
	}
	if len(tags) != len(req.Tags) {
		return nil, domain.ErrTagNotFound
	}

	ingredientIDs := make([]uint, 0, len(req.Ingredients))
	for _, ingredient := range req.Ingredients {
		ingredientIDs = append(ingredientIDs, ingredient.ID)
	}
	ingredients, err := s.recipeRepository.GetIngredientsByIDs(ctx, ingredientIDs)
	if err != nil {
		return nil, err
	}
	if len(ingredients) != len(req.Ingredients) {
		return nil, domain.ErrIngredientNotFound
	}

	links := make([]*entities.IngredientRecipe, 0, len(req.Ingredients))
	for _, ingredient := range req.Ingredients {
		links = append(links, &entities.IngredientRecipe{
			IngredientID: ingredient.ID,
			Amount:       ingredient.Amount,
		})
	}
	return links, nil
}

func (s *recipeService) resolveImage(ctx context.Context, image string) (string, error) {
	if strings.HasPrefix(image, "data:image/") {
		return s.s3.UploadBase64Image(ctx, image, "recipes")
	}
	return image, nil
}

// generateShortLink slugifies the name and appends a numeric suffix until the
// slug is free. The unique index on short_link remains the last line of
// defense against concurrent creates.
func (s *recipeService) generateShortLink(ctx context.Context, name string) (string, error) {
	base := utils.Slugify(name)
	if base == "" {
		base = "recipe"
	}
	candidate := base
	for i := 2; ; i++ {
		exists, err := s.recipeRepository.ShortLinkExists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
		suffix := fmt.Sprintf("-%d", i)
		trimmed := []rune(base)
		if len(trimmed)+len(suffix) > utils.MaxShortLinkLength {
			trimmed = trimmed[:utils.MaxShortLinkLength-len(suffix)]
		}
		candidate = string(trimmed) + suffix
	}
}

func (s *recipeService) CreateRecipe(ctx context.Context, req domain.RecipeWriteRequest, authorID uint) (domain.RecipeResponse, error) {
	if err := validateWritePayload(req); err != nil {
		return domain.RecipeResponse{}, err
	}

	ingredients, err := s.resolveReferences(ctx, req)
	if err != nil {
		return domain.RecipeResponse{}, err
	}

	image, err := s.resolveImage(ctx, req.Image)
	if err != nil {
		return domain.RecipeResponse{}, err
	}

	shortLink, err := s.generateShortLink(ctx, req.Name)
	if err != nil {
		return domain.RecipeResponse{}, err
	}

	recipe := &entities.Recipe{
		AuthorID:    authorID,
		Name:        req.Name,
		Text:        req.Text,
		CookingTime: req.CookingTime,
		Image:       image,
		ShortLink:   shortLink,
	}

	if err := s.recipeRepository.CreateRecipe(ctx, recipe, req.Tags, ingredients); err != nil {
		return domain.RecipeResponse{}, err
	}

	return s.GetRecipeDetail(ctx, recipe.ID, authorID)
}

func (s *recipeService) UpdateRecipe(ctx context.Context, id uint, req domain.RecipeWriteRequest, userID uint) (domain.RecipeResponse, error) {
	recipe, err := s.recipeRepository.GetRecipeByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.RecipeResponse{}, domain.ErrRecipeNotFound
		}
		return domain.RecipeResponse{}, err
	}

	if recipe.AuthorID != userID {
		return domain.RecipeResponse{}, domain.ErrNotRecipeAuthor
	}

	if err := validateWritePayload(req); err != nil {
		return domain.RecipeResponse{}, err
	}

	ingredients, err := s.resolveReferences(ctx, req)
	if err != nil {
		return domain.RecipeResponse{}, err
	}

	image := recipe.Image
	if req.Image != "" {
		if image, err = s.resolveImage(ctx, req.Image); err != nil {
			return domain.RecipeResponse{}, err
		}
	}

	recipe.Name = req.Name
	recipe.Text = req.Text
	recipe.CookingTime = req.CookingTime
	recipe.Image = image

	if err := s.recipeRepository.UpdateRecipe(ctx, recipe, req.Tags, ingredients); err != nil {
		return domain.RecipeResponse{}, err
	}

	return s.GetRecipeDetail(ctx, recipe.ID, userID)
}

func (s *recipeService) DeleteRecipe(ctx context.Context, id uint, userID uint) error {
	recipe, err := s.recipeRepository.GetRecipeByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrRecipeNotFound
		}
		return err
	}

	if recipe.AuthorID != userID {
		return domain.ErrNotRecipeAuthor
	}

	return s.recipeRepository.DeleteRecipe(ctx, id)
}

func (s *recipeService) GetRecipes(ctx context.Context, filter domain.RecipeFilter, viewerID uint, page, limit int) ([]domain.RecipeResponse, int64, error) {
	recipes, count, err := s.recipeRepository.GetRecipes(ctx, filter, viewerID, page, limit)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]domain.RecipeResponse, 0, len(recipes))
	for _, recipe := range recipes {
		response, err := s.buildRecipeResponse(ctx, recipe, viewerID)
		if err != nil {
			return nil, 0, err
		}
		responses = append(responses, response)
	}
	return responses, count, nil
}

func (s *recipeService) GetRecipeDetail(ctx context.Context, id uint, viewerID uint) (domain.RecipeResponse, error) {
	recipe, err := s.recipeRepository.GetRecipeByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.RecipeResponse{}, domain.ErrRecipeNotFound
		}
		return domain.RecipeResponse{}, err
	}
	return s.buildRecipeResponse(ctx, recipe, viewerID)
}

// buildRecipeResponse assembles the denormalized read representation. The
// viewer-relative flags stay false for anonymous viewers (viewerID == 0).
func (s *recipeService) buildRecipeResponse(ctx context.Context, recipe *entities.Recipe, viewerID uint) (domain.RecipeResponse, error) {
	tags := make([]domain.TagResponse, 0, len(recipe.TagLinks))
	for _, link := range recipe.TagLinks {
		if link.Tag == nil {
			continue
		}
		tags = append(tags, domain.TagResponse{
			ID:   link.Tag.ID,
			Name: link.Tag.Name,
			Slug: link.Tag.Slug,
		})
	}

	ingredients := make([]domain.IngredientInRecipeResponse, 0, len(recipe.Ingredients))
	for _, link := range recipe.Ingredients {
		if link.Ingredient == nil {
			continue
		}
		ingredients = append(ingredients, domain.IngredientInRecipeResponse{
			ID:              link.Ingredient.ID,
			Name:            link.Ingredient.Name,
			MeasurementUnit: link.Ingredient.MeasurementUnit,
			Amount:          link.Amount,
		})
	}

	response := domain.RecipeResponse{
		ID:          recipe.ID,
		Tags:        tags,
		Ingredients: ingredients,
		Name:        recipe.Name,
		Image:       recipe.Image,
		Text:        recipe.Text,
		CookingTime: recipe.CookingTime,
	}

	if recipe.Author != nil {
		response.Author = domain.UserResponse{
			ID:        recipe.Author.ID,
			Email:     recipe.Author.Email,
			Username:  recipe.Author.Username,
			FirstName: recipe.Author.FirstName,
			LastName:  recipe.Author.LastName,
			Avatar:    recipe.Author.Avatar,
		}
	}

	if viewerID == 0 {
		return response, nil
	}

	var err error
	if response.IsFavorited, err = s.recipeRepository.IsFavorited(ctx, viewerID, recipe.ID); err != nil {
		return domain.RecipeResponse{}, err
	}
	if response.IsInShoppingCart, err = s.recipeRepository.IsInCart(ctx, viewerID, recipe.ID); err != nil {
		return domain.RecipeResponse{}, err
	}
	if recipe.Author != nil {
		if response.Author.IsSubscribed, err = s.recipeRepository.IsSubscribed(ctx, viewerID, recipe.AuthorID); err != nil {
			return domain.RecipeResponse{}, err
		}
	}
	return response, nil
}

type collectionOps struct {
	exists     func(ctx context.Context, userID, recipeID uint) (bool, error)
	insert     func(ctx context.Context, userID, recipeID uint) error
	remove     func(ctx context.Context, userID, recipeID uint) error
	errMember  error
	errMissing error
}

// addToCollection and removeFromCollection implement the shared toggle for
// the cart and favorites tables; only the targeted join table differs.
func (s *recipeService) addToCollection(ctx context.Context, ops collectionOps, recipeID, userID uint) (domain.RecipeShortResponse, error) {
	recipe, err := s.recipeRepository.GetRecipeByID(ctx, recipeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.RecipeShortResponse{}, domain.ErrRecipeNotFound
		}
		return domain.RecipeShortResponse{}, err
	}

	member, err := ops.exists(ctx, userID, recipeID)
	if err != nil {
		return domain.RecipeShortResponse{}, err
	}
	if member {
		return domain.RecipeShortResponse{}, ops.errMember
	}

	if err := ops.insert(ctx, userID, recipeID); err != nil {
		// Two concurrent identical adds race down to the unique
		// constraint; the loser reports the same conflict.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.RecipeShortResponse{}, ops.errMember
		}
		return domain.RecipeShortResponse{}, err
	}

	return domain.RecipeShortResponse{
		ID:          recipe.ID,
		Name:        recipe.Name,
		Image:       recipe.Image,
		CookingTime: recipe.CookingTime,
	}, nil
}

func (s *recipeService) removeFromCollection(ctx context.Context, ops collectionOps, recipeID, userID uint) error {
	if _, err := s.recipeRepository.GetRecipeByID(ctx, recipeID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrRecipeNotFound
		}
		return err
	}

	member, err := ops.exists(ctx, userID, recipeID)
	if err != nil {
		return err
	}
	if !member {
		return ops.errMissing
	}

	return ops.remove(ctx, userID, recipeID)
}

func (s *recipeService) cartOps() collectionOps {
	return collectionOps{
		exists:     s.recipeRepository.IsInCart,
		insert:     s.recipeRepository.AddToCart,
		remove:     s.recipeRepository.RemoveFromCart,
		errMember:  domain.ErrAlreadyInCart,
		errMissing: domain.ErrNotInCart,
	}
}

func (s *recipeService) favoriteOps() collectionOps {
	return collectionOps{
		exists:     s.recipeRepository.IsFavorited,
		insert:     s.recipeRepository.AddToFavorites,
		remove:     s.recipeRepository.RemoveFromFavorites,
		errMember:  domain.ErrAlreadyFavorited,
		errMissing: domain.ErrNotFavorited,
	}
}

func (s *recipeService) AddToCart(ctx context.Context, recipeID, userID uint) (domain.RecipeShortResponse, error) {
	return s.addToCollection(ctx, s.cartOps(), recipeID, userID)
}

func (s *recipeService) RemoveFromCart(ctx context.Context, recipeID, userID uint) error {
	return s.removeFromCollection(ctx, s.cartOps(), recipeID, userID)
}

func (s *recipeService) AddToFavorites(ctx context.Context, recipeID, userID uint) (domain.RecipeShortResponse, error) {
	return s.addToCollection(ctx, s.favoriteOps(), recipeID, userID)
}

func (s *recipeService) RemoveFromFavorites(ctx context.Context, recipeID, userID uint) error {
	return s.removeFromCollection(ctx, s.favoriteOps(), recipeID, userID)
}

func (s *recipeService) GetShoppingList(ctx context.Context, userID uint) ([]domain.ShoppingListItem, error) {
	return s.recipeRepository.GetShoppingList(ctx, userID)
}

func (s *recipeService) RenderShoppingList(items []domain.ShoppingListItem) string {
	var b strings.Builder
	b.WriteString("Shopping list\n")
	for _, item := range items {
		fmt.Fprintf(&b, "%s - %d (%s)\n", item.Name, item.Amount, item.MeasurementUnit)
	}
	return b.String()
}

func (s *recipeService) GetShortLink(ctx context.Context, recipeID uint) (string, error) {
	recipe, err := s.recipeRepository.GetRecipeByID(ctx, recipeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", domain.ErrRecipeNotFound
		}
		return "", err
	}
	return recipe.ShortLink, nil
}

func (s *recipeService) ResolveShortLink(ctx context.Context, shortLink string) (*entities.Recipe, error) {
	recipe, err := s.recipeRepository.GetRecipeByShortLink(ctx, shortLink)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrShortLinkNotFound
		}
		return nil, err
	}
	return recipe, nil
}
