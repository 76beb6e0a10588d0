package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"mailmaster/internal/models"
	"mailmaster/internal/services"

	"github.com/labstack/echo/v4"
)

const (
	userKey    = "user"
	tokenKey   = "token"
	userIDKey  = "userID"
	unauthText = "Unauthenticated."
)

// TokenAuthenticator resolves a bearer token to its user and token record.
type TokenAuthenticator interface {
	Authenticate(ctx context.Context, raw string) (*models.User, *models.AccessToken, error)
}

type AuthMiddleware struct {
	auth TokenAuthenticator
}

func NewAuthMiddleware(auth TokenAuthenticator) *AuthMiddleware {
	return &AuthMiddleware{auth: auth}
}

func (m *AuthMiddleware) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, ok := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, unauthText)
			}

			user, token, err := m.auth.Authenticate(c.Request().Context(), raw)
			if err != nil {
				if errors.Is(err, services.ErrUnauthenticated) {
					return echo.NewHTTPError(http.StatusUnauthorized, unauthText)
				}
				return err
			}

			c.Set(userKey, user)
			c.Set(tokenKey, token)
			c.Set(userIDKey, user.ID)

			return next(c)
		}
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// Helper functions to get values from context
func GetUserID(c echo.Context) string {
	if id, ok := c.Get(userIDKey).(string); ok {
		return id
	}
	return ""
}

func GetUser(c echo.Context) *models.User {
	if user, ok := c.Get(userKey).(*models.User); ok {
		return user
	}
	return nil
}

func GetToken(c echo.Context) *models.AccessToken {
	if token, ok := c.Get(tokenKey).(*models.AccessToken); ok {
		return token
	}
	return nil
}
