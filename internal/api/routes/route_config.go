package routes

import (
	"foodgram/internal/api/handlers"
	"foodgram/internal/middleware"
	"foodgram/pkg/jwt"

	"github.com/gofiber/fiber/v2"
)

type Config struct {
	App            *fiber.App
	UserHandler    handlers.UserHandler
	CatalogHandler handlers.CatalogHandler
	RecipeHandler  handlers.RecipeHandler
	FollowHandler  handlers.FollowHandler
	Middleware     middleware.Middleware
	JWTService     jwt.JWTService
}

func (c *Config) Setup() {
	c.App.Use(c.Middleware.CORSMiddleware())
	c.GuestRoute()
	c.Auth()
	c.User()
	c.Catalog()
	c.Recipe()
}

func (c *Config) GuestRoute() {
	c.App.Get("/api/ping", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"message": "pong"})
	})
}

func (c *Config) Auth() {
	auth := c.App.Group("/api/auth/token")
	{
		auth.Post("/login", c.UserHandler.Login)
		auth.Post("/logout", c.Middleware.AuthMiddleware(c.JWTService), c.UserHandler.Logout)
	}
}

func (c *Config) User() {
	required := c.Middleware.AuthMiddleware(c.JWTService)
	optional := c.Middleware.OptionalAuth(c.JWTService)

	user := c.App.Group("/api/users")
	// static paths go before /:id
	{
		user.Post("", c.UserHandler.Register)
		user.Get("", optional, c.UserHandler.GetUsers)
		user.Get("/me", required, c.UserHandler.Me)
		user.Post("/set_password", required, c.UserHandler.SetPassword)
		user.Get("/subscriptions", required, c.FollowHandler.GetSubscriptions)
		user.Get("/:id", optional, c.UserHandler.GetUser)
		user.Post("/:id/subscribe", required, c.FollowHandler.Subscribe)
		user.Delete("/:id/subscribe", required, c.FollowHandler.Unsubscribe)
	}
}

func (c *Config) Catalog() {
	tags := c.App.Group("/api/tags")
	tags.Get("", c.CatalogHandler.GetTags)
	tags.Get("/:id", c.CatalogHandler.GetTag)

	ingredients := c.App.Group("/api/ingredients")
	ingredients.Get("", c.CatalogHandler.GetIngredients)
	ingredients.Get("/:id", c.CatalogHandler.GetIngredient)
}

func (c *Config) Recipe() {
	required := c.Middleware.AuthMiddleware(c.JWTService)
	optional := c.Middleware.OptionalAuth(c.JWTService)

	recipes := c.App.Group("/api/recipes")
	{
		recipes.Get("", optional, c.RecipeHandler.GetRecipes)
		recipes.Post("", required, c.RecipeHandler.CreateRecipe)
		recipes.Get("/download_shopping_cart", required, c.RecipeHandler.DownloadShoppingCart)
		recipes.Post("/send_shopping_cart", required, c.RecipeHandler.SendShoppingCart)
		recipes.Get("/:id", optional, c.RecipeHandler.GetRecipeDetail)
		recipes.Patch("/:id", required, c.RecipeHandler.UpdateRecipe)
		recipes.Delete("/:id", required, c.RecipeHandler.DeleteRecipe)

		recipes.Post("/:id/favorite", required, c.RecipeHandler.AddFavorite)
		recipes.Delete("/:id/favorite", required, c.RecipeHandler.RemoveFavorite)
		recipes.Post("/:id/shopping_cart", required, c.RecipeHandler.AddToShoppingCart)
		recipes.Delete("/:id/shopping_cart", required, c.RecipeHandler.RemoveFromShoppingCart)
	}
}
