package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func loginRequest(e *echo.Echo, h echo.HandlerFunc, method, ip string) (*httptest.ResponseRecorder, error) {
	req := httptest.NewRequest(method, "/login", nil)
	req.RemoteAddr = ip + ":1234"
	rec := httptest.NewRecorder()
	return rec, h(e.NewContext(req, rec))
}

func TestLoginRateLimit_BlocksAfterBurst(t *testing.T) {
	e := echo.New()
	h := LoginRateLimit(LoginRateLimitConfig{PerMinute: 1, Burst: 2})(func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	for i := 0; i < 2; i++ {
		if _, err := loginRequest(e, h, http.MethodPost, "10.0.0.1"); err != nil {
			t.Fatalf("attempt %d: unexpected error: %v", i+1, err)
		}
	}

	rec, err := loginRequest(e, h, http.MethodPost, "10.0.0.1")
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %v", err)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header")
	}

	// Another client is unaffected.
	if _, err := loginRequest(e, h, http.MethodPost, "10.0.0.2"); err != nil {
		t.Errorf("expected other IP allowed, got %v", err)
	}
}

func TestLoginRateLimit_IgnoresGet(t *testing.T) {
	e := echo.New()
	h := LoginRateLimit(LoginRateLimitConfig{PerMinute: 1, Burst: 1})(func(c echo.Context) error {
		return c.String(http.StatusOK, "form")
	})

	for i := 0; i < 5; i++ {
		if _, err := loginRequest(e, h, http.MethodGet, "10.0.0.1"); err != nil {
			t.Fatalf("GET %d: unexpected error: %v", i+1, err)
		}
	}
}

func TestLoginRateLimit_Defaults(t *testing.T) {
	cfg := DefaultLoginRateLimitConfig()
	if cfg.PerMinute != 10 || cfg.Burst != 5 {
		t.Errorf("unexpected defaults %+v", cfg)
	}
}
