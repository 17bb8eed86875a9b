package auth

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Decision is the outcome of a route guard check.
type Decision int

const (
	Denied Decision = iota
	Allowed
)

func (d Decision) String() string {
	if d == Allowed {
		return "allowed"
	}
	return "denied"
}

// Authorize decides whether p may open a route that requires any of the
// given roles. A nil or unauthenticated principal is always denied; an empty
// required list only demands authentication.
func Authorize(p Principal, required ...Role) Decision {
	if p == nil || !p.Authenticated() {
		return Denied
	}
	if len(required) > 0 && !p.Roles().HasAnyOf(required...) {
		return Denied
	}
	return Allowed
}

// RequireRole returns middleware that lets the request through only when the
// principal on the request passes Authorize. Denied requests are silently
// redirected to landing.
func RequireRole(landing string, roles ...Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p := PrincipalFromContext(c.Request().Context())
			if Authorize(p, roles...) == Denied {
				return c.Redirect(http.StatusSeeOther, landing)
			}
			return next(c)
		}
	}
}

// RequireSession is RequireRole with no role constraint.
func RequireSession(landing string) echo.MiddlewareFunc {
	return RequireRole(landing)
}
