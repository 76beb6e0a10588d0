package api

import (
	"net/http"

	"mailmaster/internal/api/middleware"
	"mailmaster/internal/api/registry"
	_ "mailmaster/internal/docs"
	"mailmaster/internal/handlers"
	"mailmaster/internal/routes"

	"github.com/labstack/echo/v4"
	echoSwagger "github.com/swaggo/echo-swagger"
)

func (s *Server) registerRoutes() {
	s.echo.GET("/", func(c echo.Context) error {
		return c.String(http.StatusOK, "MailMaster API")
	})
	// Health check
	s.echo.GET("/health", s.healthCheck)
	s.echo.GET("/swagger/*", echoSwagger.WrapHandler)

	// API v1 group
	api := s.echo.Group("/api/v1")
	auth := middleware.NewAuthMiddleware(s.services.Auth).Middleware()

	routes.SetupAuthRoutes(api, handlers.NewAuthHandler(s.services.Auth, s.services.Users), auth)
	routes.SetupPublicRoutes(api, handlers.NewUnsubscribeHandler(s.services.Subscribers))

	protected := api.Group("", auth)

	// Register CRUD routes for all resources
	registry.RegisterCRUDRoutes(protected, s.services)
}
