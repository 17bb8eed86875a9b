package diagnosis

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/medadmin/medadmin/internal/platform/auth"
	"github.com/medadmin/medadmin/internal/platform/backend"
	"github.com/medadmin/medadmin/internal/platform/screen"
	"github.com/medadmin/medadmin/internal/platform/session"
	"github.com/medadmin/medadmin/internal/web"
)

const listTitle = "Diagnoses"

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the diagnosis screens for admins and doctors.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/diagnoses", auth.RequireRole("/", auth.RoleAdmin, auth.RoleDoctor))
	g.GET("", h.List)
	g.POST("", h.Create)
	g.GET("/new", h.New)
	g.GET("/:id/edit", h.Edit)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
}

func caller(c echo.Context) (clientID, token string) {
	if sess := session.Current(c); sess != nil {
		token = sess.AccessToken
	}
	return session.ClientID(c), token
}

func parseID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid diagnosis id")
	}
	return id, nil
}

// List mounts the screen: the list is fetched again on every visit.
func (h *Handler) List(c echo.Context) error {
	clientID, token := caller(c)
	snap, err := h.svc.Mount(c.Request().Context(), clientID, token)
	if err != nil {
		page := web.NewPage(c, listTitle, snap).WithError(backend.UserMessage(err))
		return c.Render(web.StatusFor(err), "diagnosis_list", page)
	}
	return c.Render(http.StatusOK, "diagnosis_list", web.NewPage(c, listTitle, snap))
}

// renderList renders the in-memory list after a mutation, loading it first
// when this client has no list yet (direct link, restart or idle sweep).
func (h *Handler) renderList(c echo.Context, status int, flash string, mutErr error) error {
	clientID, token := caller(c)
	snap := h.svc.Snapshot(clientID)
	if snap.Status != screen.Ready {
		// A failed load is carried in snap.Err.
		snap, _ = h.svc.Mount(c.Request().Context(), clientID, token)
	}
	page := web.NewPage(c, listTitle, snap)
	switch {
	case mutErr != nil:
		page.WithError(backend.UserMessage(mutErr))
	case snap.Err != nil:
		page.WithError(backend.UserMessage(snap.Err))
	case flash != "":
		page.WithFlash(flash)
	}
	return c.Render(status, "diagnosis_list", page)
}

func (h *Handler) New(c echo.Context) error {
	return c.Render(http.StatusOK, "diagnosis_form", web.NewPage(c, "New diagnosis", Diagnosis{}))
}

func (h *Handler) Create(c echo.Context) error {
	var form Form
	if err := c.Bind(&form); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid form")
	}

	clientID, token := caller(c)
	if _, err := h.svc.Create(c.Request().Context(), clientID, token, form); err != nil {
		page := web.NewPage(c, "New diagnosis", form.toDiagnosis(0)).WithError(backend.UserMessage(err))
		return c.Render(web.StatusFor(err), "diagnosis_form", page)
	}
	return h.renderList(c, http.StatusCreated, "Diagnosis created.", nil)
}

func (h *Handler) Edit(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	clientID, token := caller(c)
	d, err := h.svc.Find(c.Request().Context(), clientID, token, id)
	if err != nil {
		return err
	}
	return c.Render(http.StatusOK, "diagnosis_form", web.NewPage(c, "Edit diagnosis", d))
}

func (h *Handler) Update(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var form Form
	if err := c.Bind(&form); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid form")
	}

	clientID, token := caller(c)
	if _, err := h.svc.Update(c.Request().Context(), clientID, token, id, form); err != nil {
		page := web.NewPage(c, "Edit diagnosis", form.toDiagnosis(id)).WithError(backend.UserMessage(err))
		return c.Render(web.StatusFor(err), "diagnosis_form", page)
	}
	return h.renderList(c, http.StatusOK, "Diagnosis updated.", nil)
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	clientID, token := caller(c)
	if err := h.svc.Delete(c.Request().Context(), clientID, token, id); err != nil {
		return h.renderList(c, web.StatusFor(err), "", err)
	}
	return h.renderList(c, http.StatusOK, "Diagnosis deleted.", nil)
}
