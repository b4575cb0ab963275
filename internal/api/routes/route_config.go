package routes

import (
	"github.com/gofiber/fiber/v2"

	"recipebook/internal/api/handlers"
	"recipebook/internal/middleware"
	"recipebook/pkg/jwt"
)

type Config struct {
	App               *fiber.App
	UserHandler       handlers.UserHandler
	RecipeHandler     handlers.RecipeHandler
	TagHandler        handlers.TagHandler
	IngredientHandler handlers.IngredientHandler
	Middleware        middleware.Middleware
	JWTService        jwt.JWTService
}

func (c *Config) Setup() {
	c.App.Use(c.Middleware.CORSMiddleware())
	c.Users()
	c.Recipes()
	c.Tags()
	c.Ingredients()
	c.ShortLinks()
	c.GuestRoute()
}

func (c *Config) Users() {
	auth := c.Middleware.AuthMiddleware(c.JWTService)
	optional := c.Middleware.OptionalAuthMiddleware(c.JWTService)

	c.App.Post("/api/auth/token/login", c.UserHandler.Login)

	users := c.App.Group("/api/users")
	// user routes
	{
		users.Post("", c.UserHandler.Register)
		users.Get("", optional, c.UserHandler.GetUsers)
		users.Get("/me", auth, c.UserHandler.Me)
		users.Put("/me/avatar", auth, c.UserHandler.UpdateAvatar)
		users.Delete("/me/avatar", auth, c.UserHandler.DeleteAvatar)
		users.Post("/forgot_password", c.UserHandler.ForgotPassword)
		users.Post("/reset_password", c.UserHandler.ResetPassword)
		users.Get("/subscriptions", auth, c.UserHandler.GetSubscriptions)
		users.Get("/:id", optional, c.UserHandler.GetProfile)
		users.Post("/:id/subscribe", auth, c.UserHandler.Subscribe)
		users.Delete("/:id/subscribe", auth, c.UserHandler.Unsubscribe)
	}
}

func (c *Config) Recipes() {
	auth := c.Middleware.AuthMiddleware(c.JWTService)
	optional := c.Middleware.OptionalAuthMiddleware(c.JWTService)

	recipes := c.App.Group("/api/recipes")
	{
		recipes.Get("", optional, c.RecipeHandler.GetRecipes)
		recipes.Post("", auth, c.RecipeHandler.CreateRecipe)
		recipes.Get("/download_shopping_cart", auth, c.RecipeHandler.DownloadShoppingCart)
		recipes.Get("/:id", optional, c.RecipeHandler.GetRecipeDetail)
		recipes.Patch("/:id", auth, c.RecipeHandler.UpdateRecipe)
		recipes.Delete("/:id", auth, c.RecipeHandler.DeleteRecipe)
		recipes.Get("/:id/get-link", c.RecipeHandler.GetShortLink)
		recipes.Post("/:id/shopping_cart", auth, c.RecipeHandler.AddToCart)
		recipes.Delete("/:id/shopping_cart", auth, c.RecipeHandler.RemoveFromCart)
		recipes.Post("/:id/favorite", auth, c.RecipeHandler.AddToFavorites)
		recipes.Delete("/:id/favorite", auth, c.RecipeHandler.RemoveFromFavorites)
	}
}

func (c *Config) Tags() {
	tags := c.App.Group("/api/tags")
	tags.Get("", c.TagHandler.GetTags)
	tags.Get("/:id", c.TagHandler.GetTagByID)
}

func (c *Config) Ingredients() {
	ingredients := c.App.Group("/api/ingredients")
	ingredients.Get("", c.IngredientHandler.GetIngredients)
	ingredients.Get("/:id", c.IngredientHandler.GetIngredientByID)
}

func (c *Config) ShortLinks() {
	c.App.Get("/s/:shortLink", c.RecipeHandler.ResolveShortLink)
}

func (c *Config) GuestRoute() {
	c.App.Get("/api/ping", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"message": "pong"})
	})
}
