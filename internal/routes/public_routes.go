package routes

import (
	"mailmaster/internal/handlers"

	"github.com/labstack/echo/v4"
)

// SetupPublicRoutes mounts the unauthenticated endpoints linked from emails.
func SetupPublicRoutes(api *echo.Group, unsubscribe *handlers.UnsubscribeHandler) {
	public := api.Group("/public")

	public.GET("/unsubscribe", unsubscribe.Unsubscribe)
	// one-click List-Unsubscribe-Post
	public.POST("/unsubscribe", unsubscribe.Unsubscribe)
}
