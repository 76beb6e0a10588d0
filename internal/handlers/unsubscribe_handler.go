package handlers

import (
	"net/http"

	"mailmaster/internal/api/controllers"
	"mailmaster/internal/services"

	"github.com/labstack/echo/v4"
)

// UnsubscribeHandler serves the signed link placed in every campaign email.
// It needs no bearer token.
type UnsubscribeHandler struct {
	subscribers *services.SubscriberService
}

func NewUnsubscribeHandler(subscribers *services.SubscriberService) *UnsubscribeHandler {
	return &UnsubscribeHandler{subscribers: subscribers}
}

// Unsubscribe handles both the link click (GET) and one-click
// List-Unsubscribe-Post requests (POST).
// @Summary Unsubscribe by link
// @Tags public
// @Produce json
// @Param token query string true "Signed unsubscribe token"
// @Success 200 {object} map[string]string
// @Failure 404 {object} controllers.APIError
// @Failure 422 {object} controllers.APIError
// @Router /public/unsubscribe [get]
func (h *UnsubscribeHandler) Unsubscribe(c echo.Context) error {
	token := c.QueryParam("token")
	if token == "" {
		return controllers.Invalid("token", "The token field is required.")
	}

	sub, err := h.subscribers.UnsubscribeByToken(c.Request().Context(), token)
	if err != nil {
		return controllers.ServiceError(err, "Subscriber")
	}

	return c.JSON(http.StatusOK, map[string]string{
		"message": "You have been unsubscribed.",
		"email":   sub.Email,
	})
}
