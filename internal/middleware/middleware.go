package middleware

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"

	"recipebook/domain"
	"recipebook/internal/api/presenters"
	"recipebook/pkg/jwt"
)

type (
	Middleware interface {
		AuthMiddleware(jwtService jwt.JWTService) fiber.Handler
		OptionalAuthMiddleware(jwtService jwt.JWTService) fiber.Handler
		CORSMiddleware() fiber.Handler
	}

	middleware struct{}
)

func NewMiddleware() Middleware {
	return &middleware{}
}

func userIDFromToken(c *fiber.Ctx, jwtService jwt.JWTService) (uint, string, error) {
	header := c.Get("Authorization")
	if header == "" {
		return 0, "", domain.ErrTokenNotFound
	}
	token := strings.TrimPrefix(header, "Bearer ")

	rawID, role, err := jwtService.GetUserIDByToken(token)
	if err != nil {
		return 0, "", err
	}

	id, err := strconv.ParseUint(rawID, 10, 64)
	if err != nil {
		return 0, "", domain.ErrTokenInvalid
	}
	return uint(id), role, nil
}

func (m *middleware) AuthMiddleware(jwtService jwt.JWTService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, role, err := userIDFromToken(c, jwtService)
		if err != nil {
			return presenters.ErrorResponse(c, fiber.StatusUnauthorized, domain.MessageFailedGetToken, err)
		}
		c.Locals("user_id", id)
		c.Locals("role", role)
		return c.Next()
	}
}

// OptionalAuthMiddleware resolves the viewer when a valid token is present
// and falls through as anonymous (user_id 0) otherwise.
func (m *middleware) OptionalAuthMiddleware(jwtService jwt.JWTService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, role, err := userIDFromToken(c, jwtService)
		if err != nil {
			c.Locals("user_id", uint(0))
			return c.Next()
		}
		c.Locals("user_id", id)
		c.Locals("role", role)
		return c.Next()
	}
}

func (m *middleware) CORSMiddleware() fiber.Handler {
	return cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, PATCH, DELETE",
	})
}
