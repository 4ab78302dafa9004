package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/socis/member-portal/internal/core/domain"
)

// errorResponse is the canonical error envelope for all API errors.
type errorResponse struct {
	Error string `json:"error"`
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps known domain errors to their HTTP status and client message.
//   - Logs unexpected errors internally without leaking details to the client.
//   - Renders a consistent JSON envelope: {"error": "<message>"}.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, msg := resolveError(err, log, c)
		_ = c.JSON(code, errorResponse{Error: msg})
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, string) {
	// Echo's own errors (bind failures, 404 from router, body limit, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, fmt.Sprintf("%v", he.Message)
	}

	// Authorization comes first: a caller lookup that found no user is
	// reported as an invalid user, not as a missing record.
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, "Invalid user"
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, "Invalid permissions"
	case errors.Is(err, domain.ErrImageUploadFailed):
		return uploadStatus(err, log, c), "Error uploading image"
	case errors.Is(err, domain.ErrDeleteUserImageFailed):
		logUnexpected(log, c, err)
		return http.StatusBadGateway, "Error deleting user image"
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusUnprocessableEntity, validationMessage(err)
	case errors.Is(err, domain.ErrUpdateUserFailed):
		return storeStatus(err, log, c), "Error updating user"
	case errors.Is(err, domain.ErrDeleteUserFailed):
		return storeStatus(err, log, c), "Error deleting user"
	case errors.Is(err, domain.ErrUserNotFound):
		return http.StatusNotFound, "user not found"
	}

	// Unexpected error: log the real cause, return a generic message.
	logUnexpected(log, c, err)
	return http.StatusInternalServerError, "internal server error"
}

// validationMessage drops the operation prefixes wrapped around an input
// error, keeping "invalid input: <detail>".
func validationMessage(err error) string {
	msg := err.Error()
	if i := strings.Index(msg, domain.ErrInvalidInput.Error()); i > 0 {
		return msg[i:]
	}
	return msg
}

func uploadStatus(err error, log zerolog.Logger, c echo.Context) int {
	switch {
	case errors.Is(err, domain.ErrPayloadTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, domain.ErrDecodeFailed):
		return http.StatusUnprocessableEntity
	}
	logUnexpected(log, c, err)
	return http.StatusBadGateway
}

func storeStatus(err error, log zerolog.Logger, c echo.Context) int {
	if errors.Is(err, domain.ErrUserNotFound) {
		return http.StatusNotFound
	}
	logUnexpected(log, c, err)
	return http.StatusInternalServerError
}

func logUnexpected(log zerolog.Logger, c echo.Context, err error) {
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")
}
