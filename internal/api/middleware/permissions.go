package middleware

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Permission scopes
const (
	ScopeRead  = "read"
	ScopeWrite = "write"
)

// GetRequiredPermissionForMethod returns the required permission scope for a given HTTP method
func GetRequiredPermissionForMethod(method string) string {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return ScopeRead
	default:
		return ScopeWrite
	}
}

// RequireAbility checks that the request's token grants "<resource>:read"
// for safe methods and "<resource>:write" for the rest. It must run after
// AuthMiddleware.
func RequireAbility(resource string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ability := fmt.Sprintf("%s:%s", resource, GetRequiredPermissionForMethod(c.Request().Method))
			return requireAbility(c, ability, next)
		}
	}
}

// RequireExactAbility checks a single named ability regardless of method.
func RequireExactAbility(ability string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			return requireAbility(c, ability, next)
		}
	}
}

func requireAbility(c echo.Context, ability string, next echo.HandlerFunc) error {
	token := GetToken(c)
	if token == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, unauthText)
	}
	if !token.Can(ability) {
		return echo.NewHTTPError(http.StatusForbidden, fmt.Sprintf("missing required ability: %s", ability))
	}
	return next(c)
}
