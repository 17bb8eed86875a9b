package session

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/medadmin/medadmin/internal/platform/auth"
	"github.com/medadmin/medadmin/internal/platform/storage"
)

const (
	storeContextKey    = "session_store"
	clientIDContextKey = "client_id"

	DefaultCookieName = "medadmin_client"
	cookieMaxAge      = 365 * 24 * time.Hour
)

// Config configures Middleware.
type Config struct {
	Storage      storage.Storage
	Key          string
	CookieName   string
	CookieSecure bool
	Skipper      func(c echo.Context) bool
	Logger       zerolog.Logger
}

// Middleware identifies the browser by its client cookie (issuing one on the
// first visit), loads that browser's session, and exposes the Store and the
// session principal to later handlers.
func Middleware(cfg Config) echo.MiddlewareFunc {
	if cfg.CookieName == "" {
		cfg.CookieName = DefaultCookieName
	}
	if cfg.Key == "" {
		cfg.Key = DefaultKey
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if cfg.Skipper != nil && cfg.Skipper(c) {
				return next(c)
			}

			clientID := clientIDFromCookie(c, cfg.CookieName)
			if clientID == "" {
				clientID = uuid.New().String()
				c.SetCookie(&http.Cookie{
					Name:     cfg.CookieName,
					Value:    clientID,
					Path:     "/",
					MaxAge:   int(cookieMaxAge.Seconds()),
					HttpOnly: true,
					Secure:   cfg.CookieSecure,
					SameSite: http.SameSiteLaxMode,
				})
			}

			store := NewStore(storage.In(cfg.Storage, clientID), cfg.Key, cfg.Logger)
			store.Load(c.Request().Context())
			Attach(c, store)

			return next(c)
		}
	}
}

func clientIDFromCookie(c echo.Context, name string) string {
	cookie, err := c.Cookie(name)
	if err != nil {
		return ""
	}
	id, err := uuid.Parse(cookie.Value)
	if err != nil {
		return ""
	}
	return id.String()
}

// StoreFromContext returns the Store Middleware attached, or nil.
func StoreFromContext(c echo.Context) *Store {
	s, _ := c.Get(storeContextKey).(*Store)
	return s
}

// ClientID returns the browser's client id, or "".
func ClientID(c echo.Context) string {
	id, _ := c.Get(clientIDContextKey).(string)
	return id
}

// Current returns the request's session, or nil.
func Current(c echo.Context) *Session {
	if s := StoreFromContext(c); s != nil {
		return s.Current()
	}
	return nil
}

// Attach puts store on c the way Middleware does. Used by tests and by
// handlers that build their own stores.
func Attach(c echo.Context, store *Store) {
	c.Set(storeContextKey, store)
	c.Set(clientIDContextKey, store.ClientID())
	if sess := store.Current(); sess != nil {
		c.SetRequest(c.Request().WithContext(auth.WithPrincipal(c.Request().Context(), sess)))
	}
}
