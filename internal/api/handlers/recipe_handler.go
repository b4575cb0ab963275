package handlers

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"recipebook/domain"
	"recipebook/internal/api/presenters"
	"recipebook/pkg/recipe"
)

type (
	RecipeHandler interface {
		GetRecipes(c *fiber.Ctx) error
		GetRecipeDetail(c *fiber.Ctx) error
		CreateRecipe(c *fiber.Ctx) error
		UpdateRecipe(c *fiber.Ctx) error
		DeleteRecipe(c *fiber.Ctx) error
		AddToCart(c *fiber.Ctx) error
		RemoveFromCart(c *fiber.Ctx) error
		AddToFavorites(c *fiber.Ctx) error
		RemoveFromFavorites(c *fiber.Ctx) error
		DownloadShoppingCart(c *fiber.Ctx) error
		GetShortLink(c *fiber.Ctx) error
		ResolveShortLink(c *fiber.Ctx) error
	}

	recipeHandler struct {
		recipeService recipe.RecipeService
		validator     *validator.Validate
	}
)

func NewRecipeHandler(recipeService recipe.RecipeService, validator *validator.Validate) RecipeHandler {
	return &recipeHandler{
		recipeService: recipeService,
		validator:     validator,
	}
}

func (h *recipeHandler) GetRecipes(c *fiber.Ctx) error {
	viewerID := c.Locals("user_id").(uint)
	page, limit := paginationParams(c)

	filter := domain.RecipeFilter{
		IsFavorited:      c.QueryBool("is_favorited", false),
		IsInShoppingCart: c.QueryBool("is_in_shopping_cart", false),
	}
	if author, err := strconv.ParseUint(c.Query("author", "0"), 10, 64); err == nil {
		filter.AuthorID = uint(author)
	}
	if tags := c.Query("tags"); tags != "" {
		filter.Tags = strings.Split(tags, ",")
	}

	recipes, count, err := h.recipeService.GetRecipes(c.Context(), filter, viewerID, page, limit)
	if err != nil {
		return presenters.ErrorResponse(c, statusForError(err), domain.MessageFailedGetRecipes, err)
	}

	return presenters.SuccessResponse(c, paginatedResponse(recipes, page, limit, count), fiber.StatusOK, domain.MessageSuccessGetRecipes)
}

func (h *recipeHandler) GetRecipeDetail(c *fiber.Ctx) error {
	viewerID := c.Locals("user_id").(uint)

	id, err := paramID(c, "id")
	if err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedGetRecipeDetail, err)
	}

	res, err := h.recipeService.GetRecipeDetail(c.Context(), id, viewerID)
	if err != nil {
		return presenters.ErrorResponse(c, statusForError(err), domain.MessageFailedGetRecipeDetail, err)
	}

	return presenters.SuccessResponse(c, res, fiber.StatusOK, domain.MessageSuccessGetRecipeDetail)
}

func (h *recipeHandler) CreateRecipe(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(uint)
	req := new(domain.RecipeWriteRequest)

	if err := c.BodyParser(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedBodyRequest, err)
	}

	if err := h.validator.Struct(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedCreateRecipe, err)
	}

	res, err := h.recipeService.CreateRecipe(c.Context(), *req, userID)
	if err != nil {
		return presenters.ErrorResponse(c, statusForError(err), domain.MessageFailedCreateRecipe, err)
	}

	return presenters.SuccessResponse(c, res, fiber.StatusCreated, domain.MessageSuccessCreateRecipe)
}

func (h *recipeHandler) UpdateRecipe(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(uint)

	id, err := paramID(c, "id")
	if err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedUpdateRecipe, err)
	}

	req := new(domain.RecipeWriteRequest)
	if err := c.BodyParser(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedBodyRequest, err)
	}

	if err := h.validator.Struct(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedUpdateRecipe, err)
	}

	res, err := h.recipeService.UpdateRecipe(c.Context(), id, *req, userID)
	if err != nil {
		return presenters.ErrorResponse(c, statusForError(err), domain.MessageFailedUpdateRecipe, err)
	}

	return presenters.SuccessResponse(c, res, fiber.StatusOK, domain.MessageSuccessUpdateRecipe)
}

func (h *recipeHandler) DeleteRecipe(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(uint)

	id, err := paramID(c, "id")
	if err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedDeleteRecipe, err)
	}

	if err := h.recipeService.DeleteRecipe(c.Context(), id, userID); err != nil {
		return presenters.ErrorResponse(c, statusForError(err), domain.MessageFailedDeleteRecipe, err)
	}

	return presenters.SuccessResponse(c, nil, fiber.StatusNoContent, domain.MessageSuccessDeleteRecipe)
}

func (h *recipeHandler) AddToCart(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(uint)

	id, err := paramID(c, "id")
	if err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedAddToCart, err)
	}

	res, err := h.recipeService.AddToCart(c.Context(), id, userID)
	if err != nil {
		return presenters.ErrorResponse(c, statusForError(err), domain.MessageFailedAddToCart, err)
	}

	return presenters.SuccessResponse(c, res, fiber.StatusCreated, domain.MessageSuccessAddToCart)
}

func (h *recipeHandler) RemoveFromCart(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(uint)

	id, err := paramID(c, "id")
	if err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedRemoveFromCart, err)
	}

	if err := h.recipeService.RemoveFromCart(c.Context(), id, userID); err != nil {
		return presenters.ErrorResponse(c, statusForError(err), domain.MessageFailedRemoveFromCart, err)
	}

	return presenters.SuccessResponse(c, nil, fiber.StatusNoContent, domain.MessageSuccessRemoveFromCart)
}

func (h *recipeHandler) AddToFavorites(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(uint)

	id, err := paramID(c, "id")
	if err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedAddToFavorites, err)
	}

	res, err := h.recipeService.AddToFavorites(c.Context(), id, userID)
	if err != nil {
		return presenters.ErrorResponse(c, statusForError(err), domain.MessageFailedAddToFavorites, err)
	}

	return presenters.SuccessResponse(c, res, fiber.StatusCreated, domain.MessageSuccessAddToFavorites)
}

func (h *recipeHandler) RemoveFromFavorites(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(uint)

	id, err := paramID(c, "id")
	if err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedRemoveFromFavorites, err)
	}

	if err := h.recipeService.RemoveFromFavorites(c.Context(), id, userID); err != nil {
		return presenters.ErrorResponse(c, statusForError(err), domain.MessageFailedRemoveFromFavorites, err)
	}

	return presenters.SuccessResponse(c, nil, fiber.StatusNoContent, domain.MessageSuccessRemoveFromFavorites)
}

// DownloadShoppingCart streams the aggregated shopping list as a plain-text
// attachment.
func (h *recipeHandler) DownloadShoppingCart(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(uint)

	items, err := h.recipeService.GetShoppingList(c.Context(), userID)
	if err != nil {
		return presenters.ErrorResponse(c, statusForError(err), domain.MessageFailedGetShoppingList, err)
	}

	c.Set(fiber.HeaderContentType, "text/plain; charset=utf-8")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="shopping_list.txt"`)
	return c.SendString(h.recipeService.RenderShoppingList(items))
}

func (h *recipeHandler) GetShortLink(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedGetShortLink, err)
	}

	shortLink, err := h.recipeService.GetShortLink(c.Context(), id)
	if err != nil {
		return presenters.ErrorResponse(c, statusForError(err), domain.MessageFailedGetShortLink, err)
	}

	return presenters.SuccessResponse(c, domain.ShortLinkResponse{
		ShortLink: fmt.Sprintf("%s/s/%s", c.BaseURL(), shortLink),
	}, fiber.StatusOK, domain.MessageSuccessGetShortLink)
}

// ResolveShortLink redirects a short link to the canonical recipe URL.
func (h *recipeHandler) ResolveShortLink(c *fiber.Ctx) error {
	shortLink := c.Params("shortLink")

	res, err := h.recipeService.ResolveShortLink(c.Context(), shortLink)
	if err != nil {
		return presenters.ErrorResponse(c, statusForError(err), domain.MessageFailedGetRecipeDetail, err)
	}

	return c.Redirect(fmt.Sprintf("/recipes/%d", res.ID), fiber.StatusFound)
}
