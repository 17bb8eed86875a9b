package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

// LoginRateLimitConfig bounds login attempts per remote IP.
type LoginRateLimitConfig struct {
	PerMinute int
	Burst     int
	ExpiresIn time.Duration
}

// DefaultLoginRateLimitConfig allows ten attempts a minute with a burst of
// five.
func DefaultLoginRateLimitConfig() LoginRateLimitConfig {
	return LoginRateLimitConfig{PerMinute: 10, Burst: 5, ExpiresIn: 10 * time.Minute}
}

// LoginRateLimit throttles credential submissions by client IP. Only POST
// requests count; rendering the form is never limited.
func LoginRateLimit(cfg LoginRateLimitConfig) echo.MiddlewareFunc {
	if cfg.PerMinute <= 0 {
		cfg.PerMinute = DefaultLoginRateLimitConfig().PerMinute
	}
	if cfg.Burst <= 0 {
		cfg.Burst = DefaultLoginRateLimitConfig().Burst
	}
	if cfg.ExpiresIn <= 0 {
		cfg.ExpiresIn = DefaultLoginRateLimitConfig().ExpiresIn
	}
	retryAfter := strconv.Itoa(int((time.Minute / time.Duration(cfg.PerMinute)).Seconds()) + 1)

	return echomw.RateLimiterWithConfig(echomw.RateLimiterConfig{
		Skipper: func(c echo.Context) bool {
			return c.Request().Method != http.MethodPost
		},
		Store: echomw.NewRateLimiterMemoryStoreWithConfig(echomw.RateLimiterMemoryStoreConfig{
			Rate:      rate.Limit(float64(cfg.PerMinute) / 60),
			Burst:     cfg.Burst,
			ExpiresIn: cfg.ExpiresIn,
		}),
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return echo.NewHTTPError(http.StatusForbidden, "unable to identify client").SetInternal(err)
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			c.Response().Header().Set("Retry-After", retryAfter)
			return echo.NewHTTPError(http.StatusTooManyRequests, "Too many sign-in attempts. Please wait a minute and try again.")
		},
	})
}
