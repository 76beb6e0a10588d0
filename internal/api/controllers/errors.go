package controllers

import (
	"errors"
	"fmt"
	"net/http"

	"mailmaster/internal/repository"
	"mailmaster/internal/services"
	"mailmaster/internal/utils/logger"

	"github.com/labstack/echo/v4"
)

const invalidDataMessage = "The given data was invalid."

// APIError is the JSON error body every endpoint returns.
type APIError struct {
	Code     int                 `json:"-"`
	Message  string              `json:"message"`
	Errors   map[string][]string `json:"errors,omitempty"`
	Internal error               `json:"-"`
}

func (e *APIError) Error() string {
	if e.Internal != nil {
		return fmt.Sprintf("code=%d, message=%s, internal=%v", e.Code, e.Message, e.Internal)
	}
	return fmt.Sprintf("code=%d, message=%s", e.Code, e.Message)
}

func (e *APIError) Unwrap() error { return e.Internal }

func NewAPIError(code int, message string) *APIError {
	return &APIError{Code: code, Message: message}
}

// Invalid builds a 422 response for a single field.
func Invalid(field, message string) *APIError {
	return &APIError{
		Code:    http.StatusUnprocessableEntity,
		Message: invalidDataMessage,
		Errors:  map[string][]string{field: {message}},
	}
}

func NotFound(resource string) *APIError {
	return NewAPIError(http.StatusNotFound, resource+" not found")
}

// ServiceError maps an error returned by a service onto its HTTP response.
// resource names the entity for a bare repository.ErrNotFound.
func ServiceError(err error, resource string) error {
	var (
		apiErr  *APIError
		nf      *services.NotFoundError
		invalid *services.ValidationError
		ability *services.AbilityError
	)

	switch {
	case err == nil:
		return nil
	case errors.As(err, &apiErr):
		return apiErr
	case errors.As(err, &nf):
		return NotFound(nf.Resource)
	case errors.Is(err, repository.ErrNotFound):
		return NotFound(resource)
	case errors.As(err, &invalid):
		return Invalid(invalid.Field, invalid.Message)
	case errors.As(err, &ability):
		return NewAPIError(http.StatusForbidden, ability.Error())
	case errors.Is(err, services.ErrUnauthenticated):
		return NewAPIError(http.StatusUnauthorized, "Unauthenticated.")
	case errors.Is(err, services.ErrAlreadySubscribed):
		return Invalid("email", "The email is already subscribed to this newsletter.")
	case errors.Is(err, services.ErrNotSubscribed):
		return NewAPIError(http.StatusUnprocessableEntity, "The subscriber has already unsubscribed.")
	case errors.Is(err, services.ErrCampaignSent):
		return NewAPIError(http.StatusUnprocessableEntity, "The campaign has already been sent.")
	case errors.Is(err, services.ErrCampaignInFlight):
		return NewAPIError(http.StatusUnprocessableEntity, "The campaign is queued or being sent.")
	case errors.Is(err, services.ErrArchiveUnavailable):
		return NotFound("Campaign archive")
	default:
		return &APIError{Code: http.StatusInternalServerError, Message: "Internal server error", Internal: err}
	}
}

// ErrorHandler renders every error as {"message": ...}. Server errors are
// logged with their cause and never leak it to the client.
func ErrorHandler(log *logger.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var (
			apiErr  *APIError
			httpErr *echo.HTTPError
		)
		switch {
		case errors.As(err, &apiErr):
		case errors.As(err, &httpErr):
			apiErr = &APIError{Code: httpErr.Code, Message: http.StatusText(httpErr.Code), Internal: httpErr.Internal}
			if msg, ok := httpErr.Message.(string); ok {
				apiErr.Message = msg
			}
		default:
			apiErr = &APIError{Code: http.StatusInternalServerError, Message: "Internal server error", Internal: err}
		}

		if apiErr.Code >= http.StatusInternalServerError {
			log.Errorf("%s %s: %v", c.Request().Method, c.Path(), err)
		}

		var werr error
		if c.Request().Method == http.MethodHead {
			werr = c.NoContent(apiErr.Code)
		} else {
			werr = c.JSON(apiErr.Code, apiErr)
		}
		if werr != nil {
			log.Error("failed to write error response", werr)
		}
	}
}
