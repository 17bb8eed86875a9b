package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// LivePath is the WebSocket endpoint exempt from the request deadline.
const LivePath = "/dashboard/live"

// RequestTimeout bounds each request's context by timeout. Backend calls
// made with that context fail once it expires; the handler's resulting
// error is reported as 504 Gateway Timeout.
func RequestTimeout(timeout time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Request().URL.Path == LivePath {
				return next(c)
			}

			ctx, cancel := context.WithTimeout(c.Request().Context(), timeout)
			defer cancel()
			c.SetRequest(c.Request().WithContext(ctx))

			err := next(c)
			if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) && !c.Response().Committed {
				return echo.NewHTTPError(http.StatusGatewayTimeout, "The request took too long. Please try again.").SetInternal(err)
			}
			return err
		}
	}
}
