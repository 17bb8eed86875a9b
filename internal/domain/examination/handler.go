package examination

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

const landing = "/"

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	anyRole := auth.RequireRole(landing, auth.RoleAdmin, auth.RoleDoctor, auth.RolePatient)
	doctor := auth.RequireRole(landing, auth.RoleDoctor)

	e.GET("/patients/:id/examinations", h.ListByPatient, anyRole)

	g := e.Group("/examinations")
	g.GET("/new", h.New, doctor)
	g.POST("", h.Create, doctor)
	g.GET("/:id", h.Show, anyRole)
	g.DELETE("/:id", h.Delete, doctor)
}

func parseID(raw, what string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid "+what+" id")
	}
	return id, nil
}

func token(sess *session.Session) string {
	if sess == nil {
		return ""
	}
	return sess.AccessToken
}

// canSee reports whether sess may view records of patientID. Staff see every
// patient; a patient sees only their own records.
func canSee(sess *session.Session, patientID int64) bool {
	if sess.Roles().HasAnyOf(auth.RoleAdmin, auth.RoleDoctor) {
		return true
	}
	return sess.Roles().Has(auth.RolePatient) && sess.SubjectID() == strconv.FormatInt(patientID, 10)
}

func (h *Handler) listPage(c echo.Context, patientID int64, snap screen.Snapshot[Examination]) *web.Page {
	isDoctor := session.Current(c).Roles().Has(auth.RoleDoctor)
	view := ListView{PatientID: patientID, CanCreate: isDoctor, CanDelete: isDoctor, List: snap}
	return web.NewPage(c, "Examinations", view)
}

// ListByPatient mounts the patient's examination list.
func (h *Handler) ListByPatient(c echo.Context) error {
	patientID, err := parseID(c.Param("id"), "patient")
	if err != nil {
		return err
	}
	sess := session.Current(c)
	if !canSee(sess, patientID) {
		return c.Redirect(http.StatusSeeOther, landing)
	}

	snap, err := h.svc.Mount(c.Request().Context(), session.ClientID(c), token(sess), patientID)
	page := h.listPage(c, patientID, snap)
	if err != nil {
		return c.Render(web.StatusFor(err), "examination_list", page.WithError(backend.UserMessage(err)))
	}
	return c.Render(http.StatusOK, "examination_list", page)
}

// renderList renders the patient's list after a mutation, loading it first
// when this client has not opened it yet.
func (h *Handler) renderList(c echo.Context, patientID int64, status int, flash string, mutErr error) error {
	clientID := session.ClientID(c)
	snap := h.svc.Snapshot(clientID, patientID)
	if snap.Status != screen.Ready {
		snap, _ = h.svc.Mount(c.Request().Context(), clientID, token(session.Current(c)), patientID)
	}
	page := h.listPage(c, patientID, snap)
	switch {
	case mutErr != nil:
		page.WithError(backend.UserMessage(mutErr))
	case snap.Err != nil:
		page.WithError(backend.UserMessage(snap.Err))
	default:
		page.WithFlash(flash)
	}
	return c.Render(status, "examination_list", page)
}

func (h *Handler) Show(c echo.Context) error {
	id, err := parseID(c.Param("id"), "examination")
	if err != nil {
		return err
	}
	sess := session.Current(c)
	exam, err := h.svc.Get(c.Request().Context(), token(sess), id)
	if err != nil {
		return err
	}
	if exam.PatientID != 0 && !canSee(sess, exam.PatientID) {
		return c.Redirect(http.StatusSeeOther, landing)
	}
	return c.Render(http.StatusOK, "examination_detail", web.NewPage(c, "Examination", exam))
}

// renderForm shows the new-examination form with the diagnoses to choose
// from. A failed diagnosis lookup still renders the form.
func (h *Handler) renderForm(c echo.Context, status int, form Form, msg string) error {
	options, err := h.svc.DiagnosisOptions(c.Request().Context(), token(session.Current(c)))
	if err != nil && msg == "" {
		msg = backend.UserMessage(err)
	}
	page := web.NewPage(c, "New examination", newFormView(form, options))
	if msg != "" {
		page.WithError(msg)
	}
	return c.Render(status, "examination_form", page)
}

func (h *Handler) New(c echo.Context) error {
	var form Form
	if raw := c.QueryParam("patientId"); raw != "" {
		form.PatientID, _ = strconv.ParseInt(raw, 10, 64)
	}
	return h.renderForm(c, http.StatusOK, form, "")
}

func (h *Handler) Create(c echo.Context) error {
	var form Form
	if err := c.Bind(&form); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid form")
	}
	if form.PatientID <= 0 {
		return h.renderForm(c, http.StatusBadRequest, form, "Enter the patient id.")
	}

	sess := session.Current(c)
	if _, err := h.svc.Create(c.Request().Context(), session.ClientID(c), token(sess), sess.User.ID, form); err != nil {
		return h.renderForm(c, web.StatusFor(err), form, backend.UserMessage(err))
	}
	return h.renderList(c, form.PatientID, http.StatusCreated, "Examination recorded.", nil)
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := parseID(c.Param("id"), "examination")
	if err != nil {
		return err
	}
	patientID, err := parseID(c.FormValue("patientId"), "patient")
	if err != nil {
		return err
	}

	err = h.svc.Delete(c.Request().Context(), session.ClientID(c), token(session.Current(c)), patientID, id)
	if err != nil {
		return h.renderList(c, patientID, web.StatusFor(err), "", err)
	}
	return h.renderList(c, patientID, http.StatusOK, "Examination deleted.", nil)
}
