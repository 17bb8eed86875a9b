package web

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/medadmin/medadmin/internal/platform/backend"
)

// StatusFor maps a backend or context error to the status of the page that
// reports it.
func StatusFor(err error) int {
	var httpErr *echo.HTTPError
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &httpErr):
		return httpErr.Code
	case errors.Is(err, backend.ErrAuthentication):
		return http.StatusUnauthorized
	case errors.Is(err, backend.ErrAuthorizationDenied):
		return http.StatusForbidden
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, backend.ErrNetwork), errors.Is(err, backend.ErrMalformedResponse):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// ErrorView is the data of the error page.
type ErrorView struct {
	Code       int
	StatusText string
	Message    string
}

// ErrorHandler renders failures that reach echo as an HTML error page.
func ErrorHandler(logger zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code := StatusFor(err)
		msg := http.StatusText(code)
		var httpErr *echo.HTTPError
		if errors.As(err, &httpErr) {
			if s, ok := httpErr.Message.(string); ok && (code < 500 || code == http.StatusGatewayTimeout) {
				msg = s
			}
		} else if code != http.StatusInternalServerError {
			msg = backend.UserMessage(err)
		}
		if code >= 500 {
			rid, _ := c.Get("request_id").(string)
			logger.Error().Err(err).Str("request_id", rid).Int("status", code).Msg("request failed")
		}

		if c.Request().Method == http.MethodHead {
			c.NoContent(code)
			return
		}

		view := ErrorView{Code: code, StatusText: http.StatusText(code), Message: msg}
		if rerr := c.Render(code, "error", NewPage(c, http.StatusText(code), view)); rerr != nil {
			logger.Error().Err(rerr).Msg("failed to render error page")
			c.String(code, msg)
		}
	}
}
