package registry

import (
	"github.com/labstack/echo/v4"

	"mailmaster/internal/api/controllers"
	"mailmaster/internal/api/middleware"
	"mailmaster/internal/handlers"
	"mailmaster/internal/models"
	"mailmaster/internal/services"
)

// Services are the domain services the HTTP layer drives.
type Services struct {
	Auth        *services.AuthService
	Users       *services.UserService
	Newsletters *services.NewsletterService
	Subscribers *services.SubscriberService
	Campaigns   *services.CampaignService
}

// RegisterCRUDRoutes registers the resource routes on g, which must already
// require a bearer token.
func RegisterCRUDRoutes(g *echo.Group, svc Services) {
	newsletterHandler := handlers.NewNewsletterHandler(svc.Subscribers, svc.Campaigns)
	campaignHandler := handlers.NewCampaignHandler(svc.Campaigns)

	// Newsletters
	newsletterController := controllers.NewBaseController[models.Newsletter, services.NewsletterInput](
		svc.Newsletters, "Newsletter", nil)
	newsletterGroup := g.Group("/newsletters", middleware.RequireAbility("newsletters"))

	// @Summary List newsletters
	// @Description Get a page of the caller's newsletters
	// @Tags newsletters
	// @Security BearerAuth
	// @Produce json
	// @Param page query int false "Page"
	// @Param limit query int false "Page size"
	// @Success 200 {object} controllers.Page[models.Newsletter]
	// @Failure 401 {object} controllers.APIError "Unauthenticated"
	// @Failure 403 {object} controllers.APIError "Forbidden"
	// @Router /newsletters [get]
	newsletterGroup.GET("", newsletterController.List)
	// @Summary Get newsletter
	// @Tags newsletters
	// @Security BearerAuth
	// @Produce json
	// @Param id path string true "Newsletter ID"
	// @Success 200 {object} models.Newsletter
	// @Failure 404 {object} controllers.APIError "Not found"
	// @Router /newsletters/{id} [get]
	newsletterGroup.GET("/:id", newsletterController.Get)
	// @Summary Create newsletter
	// @Tags newsletters
	// @Security BearerAuth
	// @Accept json
	// @Produce json
	// @Param newsletter body services.NewsletterInput true "Newsletter"
	// @Success 201 {object} models.Newsletter
	// @Failure 422 {object} controllers.APIError "Validation failed"
	// @Router /newsletters [post]
	newsletterGroup.POST("", newsletterController.Create)
	// @Summary Update newsletter
	// @Tags newsletters
	// @Security BearerAuth
	// @Accept json
	// @Produce json
	// @Param id path string true "Newsletter ID"
	// @Param newsletter body services.NewsletterInput true "Newsletter"
	// @Success 200 {object} models.Newsletter
	// @Failure 404 {object} controllers.APIError "Not found"
	// @Failure 422 {object} controllers.APIError "Validation failed"
	// @Router /newsletters/{id} [put]
	newsletterGroup.PUT("/:id", newsletterController.Update)
	// @Summary Delete newsletter
	// @Description Delete a newsletter with its subscribers and campaigns
	// @Tags newsletters
	// @Security BearerAuth
	// @Produce json
	// @Param id path string true "Newsletter ID"
	// @Success 200 {object} map[string]string
	// @Failure 404 {object} controllers.APIError "Not found"
	// @Router /newsletters/{id} [delete]
	newsletterGroup.DELETE("/:id", newsletterController.Delete)

	// Nested newsletter routes check the child resource's ability
	subscriberAbility := middleware.RequireAbility("subscribers")
	g.GET("/newsletters/:id/subscribers", newsletterHandler.ListSubscribers, subscriberAbility)
	g.POST("/newsletters/:id/subscribers", newsletterHandler.Subscribe, subscriberAbility)
	g.GET("/newsletters/:id/subscribers/export", newsletterHandler.ExportSubscribers, subscriberAbility)
	g.DELETE("/newsletters/:id/subscribers/:subscriberId", newsletterHandler.Unsubscribe, subscriberAbility)
	g.GET("/newsletters/:id/campaigns", newsletterHandler.ListCampaigns, middleware.RequireAbility("campaigns"))

	// Subscribers
	subscriberController := controllers.NewBaseController[models.Subscriber, services.SubscriberInput](
		svc.Subscribers, "Subscriber", map[string]string{
			"email":         "email",
			"newsletter_id": "newsletter_id",
			"status":        "status",
		})
	subscriberGroup := g.Group("/subscribers", subscriberAbility)

	// @Summary List subscribers
	// @Description Subscribers across the caller's newsletters
	// @Tags subscribers
	// @Security BearerAuth
	// @Produce json
	// @Param email query string false "Exact email"
	// @Param newsletter_id query string false "Newsletter ID"
	// @Param status query string false "ACTIVE or UNSUBSCRIBED"
	// @Success 200 {object} controllers.Page[models.Subscriber]
	// @Failure 422 {object} controllers.APIError "Invalid filter"
	// @Router /subscribers [get]
	subscriberGroup.GET("", subscriberController.List)
	// @Summary Get subscriber
	// @Tags subscribers
	// @Security BearerAuth
	// @Produce json
	// @Param id path string true "Subscriber ID"
	// @Success 200 {object} models.Subscriber
	// @Failure 404 {object} controllers.APIError "Not found"
	// @Router /subscribers/{id} [get]
	subscriberGroup.GET("/:id", subscriberController.Get)
	// @Summary Create subscriber
	// @Tags subscribers
	// @Security BearerAuth
	// @Accept json
	// @Produce json
	// @Param subscriber body services.SubscriberInput true "Subscriber"
	// @Success 201 {object} models.Subscriber
	// @Failure 422 {object} controllers.APIError "Validation failed"
	// @Router /subscribers [post]
	subscriberGroup.POST("", subscriberController.Create)
	// @Summary Update subscriber
	// @Tags subscribers
	// @Security BearerAuth
	// @Accept json
	// @Produce json
	// @Param id path string true "Subscriber ID"
	// @Param subscriber body services.SubscriberInput true "Subscriber"
	// @Success 200 {object} models.Subscriber
	// @Failure 404 {object} controllers.APIError "Not found"
	// @Failure 422 {object} controllers.APIError "Validation failed"
	// @Router /subscribers/{id} [put]
	subscriberGroup.PUT("/:id", subscriberController.Update)
	// @Summary Delete subscriber
	// @Tags subscribers
	// @Security BearerAuth
	// @Produce json
	// @Param id path string true "Subscriber ID"
	// @Success 200 {object} map[string]string
	// @Failure 404 {object} controllers.APIError "Not found"
	// @Router /subscribers/{id} [delete]
	subscriberGroup.DELETE("/:id", subscriberController.Delete)

	// Campaigns
	campaignController := controllers.NewBaseController[models.Campaign, services.CampaignInput](
		svc.Campaigns, "Campaign", map[string]string{
			"newsletter_id": "newsletter_id",
			"status":        "status",
		})
	campaignGroup := g.Group("/campaigns", middleware.RequireAbility("campaigns"))

	// GET|POST /campaigns, GET|PUT|DELETE /campaigns/:id. Only campaigns that
	// are not queued, sending or sent can be changed.
	campaignController.RegisterRoutes(campaignGroup, campaignGroup)

	campaignGroup.POST("/:id/send", campaignHandler.Send)
	campaignGroup.GET("/:id/archive", campaignHandler.Archive)
}
