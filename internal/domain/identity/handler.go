package identity

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/medadmin/medadmin/internal/platform/backend"
	"github.com/medadmin/medadmin/internal/platform/session"
	"github.com/medadmin/medadmin/internal/web"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the public pages. loginLimit guards credential
// submissions; requireSession guards logout.
func (h *Handler) RegisterRoutes(e *echo.Echo, loginLimit, requireSession echo.MiddlewareFunc) {
	e.GET("/", h.Landing)
	e.GET("/login", h.LoginForm)
	e.POST("/login", h.Login, loginLimit)
	e.POST("/logout", h.Logout, requireSession)
}

func (h *Handler) Landing(c echo.Context) error {
	view := LandingView{}
	doctors, err := h.svc.ListDoctors(c.Request().Context())
	if err != nil {
		view.Err = backend.UserMessage(err)
	} else {
		view.Doctors = doctors
	}
	return c.Render(http.StatusOK, "landing", web.NewPage(c, "Welcome", view))
}

func (h *Handler) LoginForm(c echo.Context) error {
	if session.Current(c).Authenticated() {
		return c.Redirect(http.StatusSeeOther, "/dashboard")
	}
	return c.Render(http.StatusOK, "login", web.NewPage(c, "Sign in", LoginForm{}))
}

func (h *Handler) Login(c echo.Context) error {
	store := session.StoreFromContext(c)
	if store == nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "session unavailable")
	}

	var form LoginForm
	if err := c.Bind(&form); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid form")
	}

	err := h.svc.Login(c.Request().Context(), store, form)
	if err == nil {
		return c.Redirect(http.StatusSeeOther, "/dashboard")
	}

	// Re-render the form with the message; never echo the password back.
	form.Password = ""
	status, msg := web.StatusFor(err), backend.UserMessage(err)
	if errors.Is(err, ErrMissingCredentials) {
		status, msg = http.StatusBadRequest, "Enter your username or email and your password."
	}
	return c.Render(status, "login", web.NewPage(c, "Sign in", form).WithError(msg))
}

func (h *Handler) Logout(c echo.Context) error {
	if store := session.StoreFromContext(c); store != nil {
		if err := h.svc.Logout(c.Request().Context(), store); err != nil {
			return err
		}
	}
	return c.Redirect(http.StatusSeeOther, "/")
}
