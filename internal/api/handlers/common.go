package handlers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"recipebook/domain"
)

// statusForError maps domain errors onto HTTP statuses; everything else in
// the taxonomy is a client error.
func statusForError(err error) int {
	switch {
	case errors.Is(err, domain.ErrRecipeNotFound),
		errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, domain.ErrTagNotFound),
		errors.Is(err, domain.ErrIngredientNotFound),
		errors.Is(err, domain.ErrShortLinkNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, domain.ErrNotRecipeAuthor):
		return fiber.StatusForbidden
	default:
		return fiber.StatusBadRequest
	}
}

func paramID(c *fiber.Ctx, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Params(name), 10, 64)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}

func paginationParams(c *fiber.Ctx) (int, int) {
	page, err := strconv.Atoi(c.Query("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}

	limit, err := strconv.Atoi(c.Query("limit", "20"))
	if err != nil || limit < 1 {
		limit = 20
	}

	return page, limit
}

func paginatedResponse(items interface{}, page, limit int, count int64) fiber.Map {
	return fiber.Map{
		"results": items,
		"pagination": fiber.Map{
			"page":        page,
			"limit":       limit,
			"total":       count,
			"total_pages": (count + int64(limit) - 1) / int64(limit),
		},
	}
}
