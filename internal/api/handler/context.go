package handler

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/socis/member-portal/internal/api/middleware"
)

// accessToken returns the token from the request body, falling back to the
// bearer header lifted into the context by middleware.AccessToken. An empty
// result is rejected by the service as an invalid user.
func accessToken(c echo.Context, fromBody string) string {
	if t := strings.TrimSpace(fromBody); t != "" {
		return t
	}
	t, _ := c.Get(middleware.AccessTokenKey).(string)
	return t
}
