package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// AccessTokenKey is the echo context key holding the bearer secret.
const AccessTokenKey = "access_token"

// AccessToken lifts an optional `Authorization: Bearer <secret>` header into
// the request context. Requests without the header pass through untouched;
// the token is resolved to a user by the service, not here.
func AccessToken() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			if authHeader == "" {
				return next(c)
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header")
			}

			c.Set(AccessTokenKey, strings.TrimSpace(parts[1]))
			return next(c)
		}
	}
}
