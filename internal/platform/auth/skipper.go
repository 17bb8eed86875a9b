package auth

import (
	"github.com/labstack/echo/v4"
)

// publicPaths lists infrastructure endpoints that never touch client state:
// no client cookie is issued and no session is loaded for them.
var publicPaths = map[string]bool{
	"/health":         true,
	"/health/storage": true,
	"/metrics":        true,
	"/favicon.ico":    true,
}

// AuthSkipper returns true for requests whose path should skip session
// resolution.
func AuthSkipper(c echo.Context) bool {
	return IsPublicPath(c.Request().URL.Path)
}

// IsPublicPath reports whether the given path is a public infrastructure
// endpoint.
func IsPublicPath(path string) bool {
	return publicPaths[path]
}
