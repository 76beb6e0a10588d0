package routes

import (
	"mailmaster/internal/api/middleware"
	"mailmaster/internal/handlers"
	"mailmaster/internal/models"

	"github.com/labstack/echo/v4"
)

// SetupAuthRoutes mounts /auth and the /users directory on api. Only
// registration and login are reachable without a token.
func SetupAuthRoutes(api *echo.Group, authHandler *handlers.AuthHandler, requireToken echo.MiddlewareFunc) {
	// Auth routes group
	auth := api.Group("/auth")

	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)

	// Any token may manage itself and mint narrower tokens.
	session := auth.Group("", requireToken)
	session.POST("/logout", authHandler.Logout)
	session.POST("/refresh", authHandler.Refresh)
	session.POST("/tokens", authHandler.CreateToken)
	session.GET("/me", authHandler.Me)

	// Account changes need a full-access token.
	account := auth.Group("", requireToken, middleware.RequireExactAbility(models.AbilityAll))
	account.DELETE("/tokens", authHandler.RevokeTokens)
	account.PUT("/me", authHandler.UpdateMe)
	account.DELETE("/me", authHandler.DeleteMe)

	users := api.Group("/users", requireToken, middleware.RequireExactAbility(models.AbilityUsersRead))
	users.GET("", authHandler.ListUsers)
	users.GET("/lookup", authHandler.LookupUser)
	users.GET("/:id", authHandler.GetUser)
}
