package handlers

import (
	"net/http"
	"time"

	"mailmaster/internal/api/controllers"
	"mailmaster/internal/api/middleware"
	"mailmaster/internal/services"

	"github.com/labstack/echo/v4"
)

type CampaignHandler struct {
	campaigns *services.CampaignService
}

func NewCampaignHandler(campaigns *services.CampaignService) *CampaignHandler {
	return &CampaignHandler{campaigns: campaigns}
}

type ArchiveResponse struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Send queues a campaign for delivery.
// @Summary Send campaign
// @Tags campaigns
// @Security BearerAuth
// @Produce json
// @Param id path string true "Campaign ID"
// @Success 202 {object} models.Campaign
// @Failure 404 {object} controllers.APIError
// @Failure 422 {object} controllers.APIError "Already sent or in flight"
// @Router /campaigns/{id}/send [post]
func (h *CampaignHandler) Send(c echo.Context) error {
	id, err := controllers.PathID(c, "id", "Campaign")
	if err != nil {
		return err
	}

	campaign, err := h.campaigns.Send(c.Request().Context(), middleware.GetUserID(c), id)
	if err != nil {
		return controllers.ServiceError(err, "Campaign")
	}
	return c.JSON(http.StatusAccepted, campaign)
}

// Archive returns a temporary link to the archived copy of a sent campaign.
// @Summary Campaign archive link
// @Tags campaigns
// @Security BearerAuth
// @Produce json
// @Param id path string true "Campaign ID"
// @Success 200 {object} ArchiveResponse
// @Failure 404 {object} controllers.APIError
// @Router /campaigns/{id}/archive [get]
func (h *CampaignHandler) Archive(c echo.Context) error {
	id, err := controllers.PathID(c, "id", "Campaign")
	if err != nil {
		return err
	}

	url, expires, err := h.campaigns.ArchiveURL(c.Request().Context(), middleware.GetUserID(c), id)
	if err != nil {
		return controllers.ServiceError(err, "Campaign")
	}
	return c.JSON(http.StatusOK, ArchiveResponse{URL: url, ExpiresAt: expires})
}
