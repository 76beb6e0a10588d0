package handlers

import (
	"fmt"
	"net/http"

	"mailmaster/internal/api/controllers"
	"mailmaster/internal/api/middleware"
	"mailmaster/internal/services"

	"github.com/labstack/echo/v4"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// NewsletterHandler serves the routes nested under a newsletter. Plain CRUD
// is handled by the generic controller.
type NewsletterHandler struct {
	subscribers *services.SubscriberService
	campaigns   *services.CampaignService
}

func NewNewsletterHandler(subscribers *services.SubscriberService, campaigns *services.CampaignService) *NewsletterHandler {
	return &NewsletterHandler{subscribers: subscribers, campaigns: campaigns}
}

// ListSubscribers lists the subscribers of a newsletter.
// @Summary List newsletter subscribers
// @Tags newsletters
// @Security BearerAuth
// @Produce json
// @Param id path string true "Newsletter ID"
// @Param status query string false "ACTIVE or UNSUBSCRIBED"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} controllers.Page[models.Subscriber]
// @Failure 404 {object} controllers.APIError
// @Router /newsletters/{id}/subscribers [get]
func (h *NewsletterHandler) ListSubscribers(c echo.Context) error {
	id, err := controllers.PathID(c, "id", "Newsletter")
	if err != nil {
		return err
	}
	q, err := controllers.ListQuery(c, map[string]string{"status": "status", "email": "email"})
	if err != nil {
		return err
	}

	subs, total, err := h.subscribers.ForNewsletter(c.Request().Context(), middleware.GetUserID(c), id, q)
	if err != nil {
		return controllers.ServiceError(err, "Newsletter")
	}
	return c.JSON(http.StatusOK, controllers.NewPage(subs, total, q))
}

// Subscribe adds an email to the newsletter. A previously unsubscribed email
// is re-activated and answered with 200 instead of 201.
// @Summary Subscribe to newsletter
// @Tags newsletters
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Newsletter ID"
// @Param request body services.SubscribeInput true "Subscriber"
// @Success 201 {object} models.Subscriber
// @Success 200 {object} models.Subscriber "Re-subscribed"
// @Failure 404 {object} controllers.APIError
// @Failure 422 {object} controllers.APIError
// @Router /newsletters/{id}/subscribers [post]
func (h *NewsletterHandler) Subscribe(c echo.Context) error {
	id, err := controllers.PathID(c, "id", "Newsletter")
	if err != nil {
		return err
	}

	var req services.SubscribeInput
	if err := controllers.BindAndValidate(c, &req); err != nil {
		return err
	}

	sub, created, err := h.subscribers.Subscribe(c.Request().Context(), middleware.GetUserID(c), id, req)
	if err != nil {
		return controllers.ServiceError(err, "Newsletter")
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	return c.JSON(status, sub)
}

// Unsubscribe stamps unsubscribed_at on a subscriber of the newsletter.
// @Summary Unsubscribe from newsletter
// @Tags newsletters
// @Security BearerAuth
// @Produce json
// @Param id path string true "Newsletter ID"
// @Param subscriberId path string true "Subscriber ID"
// @Success 200 {object} models.Subscriber
// @Failure 404 {object} controllers.APIError
// @Failure 422 {object} controllers.APIError "Already unsubscribed"
// @Router /newsletters/{id}/subscribers/{subscriberId} [delete]
func (h *NewsletterHandler) Unsubscribe(c echo.Context) error {
	id, err := controllers.PathID(c, "id", "Newsletter")
	if err != nil {
		return err
	}
	subID, err := controllers.PathID(c, "subscriberId", "Subscriber")
	if err != nil {
		return err
	}

	sub, err := h.subscribers.Unsubscribe(c.Request().Context(), middleware.GetUserID(c), id, subID)
	if err != nil {
		return controllers.ServiceError(err, "Subscriber")
	}
	return c.JSON(http.StatusOK, sub)
}

// ExportSubscribers downloads the subscribers as an XLSX workbook.
// @Summary Export subscribers
// @Tags newsletters
// @Security BearerAuth
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param id path string true "Newsletter ID"
// @Success 200 {file} file
// @Failure 404 {object} controllers.APIError
// @Router /newsletters/{id}/subscribers/export [get]
func (h *NewsletterHandler) ExportSubscribers(c echo.Context) error {
	id, err := controllers.PathID(c, "id", "Newsletter")
	if err != nil {
		return err
	}

	data, err := h.subscribers.Export(c.Request().Context(), middleware.GetUserID(c), id)
	if err != nil {
		return controllers.ServiceError(err, "Newsletter")
	}

	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="subscribers-%s.xlsx"`, id))
	return c.Blob(http.StatusOK, xlsxContentType, data)
}

// ListCampaigns lists the campaigns of a newsletter.
// @Summary List newsletter campaigns
// @Tags newsletters
// @Security BearerAuth
// @Produce json
// @Param id path string true "Newsletter ID"
// @Param status query string false "Campaign status"
// @Success 200 {object} controllers.Page[models.Campaign]
// @Failure 404 {object} controllers.APIError
// @Router /newsletters/{id}/campaigns [get]
func (h *NewsletterHandler) ListCampaigns(c echo.Context) error {
	id, err := controllers.PathID(c, "id", "Newsletter")
	if err != nil {
		return err
	}
	q, err := controllers.ListQuery(c, map[string]string{"status": "status"})
	if err != nil {
		return err
	}

	campaigns, total, err := h.campaigns.ForNewsletter(c.Request().Context(), middleware.GetUserID(c), id, q)
	if err != nil {
		return controllers.ServiceError(err, "Newsletter")
	}
	return c.JSON(http.StatusOK, controllers.NewPage(campaigns, total, q))
}
