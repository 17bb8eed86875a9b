package web

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/medadmin/medadmin/internal/platform/auth"
	"github.com/medadmin/medadmin/internal/platform/backend"
	"github.com/medadmin/medadmin/internal/platform/session"
	"github.com/medadmin/medadmin/internal/platform/storage"
)

type testDoctor struct {
	ID             int64
	FirstName      string
	LastName       string
	Specialization string
	Email          string
}

func newTestEcho(t *testing.T) (*echo.Echo, *Renderer) {
	t.Helper()
	r, err := NewRenderer()
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}
	e := echo.New()
	e.Renderer = r
	return e, r
}

func TestNewRenderer_ParsesAllPages(t *testing.T) {
	_, r := newTestEcho(t)
	for _, name := range []string{
		"landing", "login", "dashboard", "diagnosis_list", "diagnosis_form",
		"examination_list", "examination_detail", "examination_form", "error",
	} {
		if _, ok := r.pages[name]; !ok {
			t.Errorf("page %q not parsed", name)
		}
	}
}

func TestRenderer_UnknownPage(t *testing.T) {
	_, r := newTestEcho(t)
	if err := r.Render(&bytes.Buffer{}, "nope", nil, nil); err == nil {
		t.Error("expected error for unknown page")
	}
}

func TestRenderer_LandingAnonymous(t *testing.T) {
	e, _ := newTestEcho(t)
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	data := struct {
		Doctors []testDoctor
		Err     string
	}{Doctors: []testDoctor{{ID: 1, FirstName: "Ana", LastName: "Kovač", Specialization: "Cardiology"}}}

	if err := c.Render(http.StatusOK, "landing", NewPage(c, "Welcome", data)); err != nil {
		t.Fatalf("render: %v", err)
	}
	body := rec.Body.String()
	for _, want := range []string{"Ana Kovač", "Cardiology", `href="/login"`} {
		if !strings.Contains(body, want) {
			t.Errorf("expected %q in body", want)
		}
	}
	if strings.Contains(body, "Sign out") {
		t.Error("anonymous page must not offer sign out")
	}
}

func TestRenderer_NavFollowsRoles(t *testing.T) {
	e, _ := newTestEcho(t)
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	store := session.NewStore(storage.In(storage.NewMemory(), "c1"), session.DefaultKey, zerolog.Nop())
	store.Login(context.Background(), &session.Session{
		AccessToken: "tok",
		User:        session.UserDTO{ID: 3, FirstName: "Pat", LastName: "Ient"},
		Authorities: auth.NewRoleSet(auth.RolePatient),
	})
	session.Attach(c, store)
	c.Set("csrf", "csrf-token")

	data := struct {
		Doctors []testDoctor
		Err     string
	}{}
	if err := c.Render(http.StatusOK, "landing", NewPage(c, "Welcome", data)); err != nil {
		t.Fatalf("render: %v", err)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "/patients/3/examinations") {
		t.Error("expected patient examinations link")
	}
	if strings.Contains(body, `href="/diagnoses"`) {
		t.Error("patients must not see the diagnoses link")
	}
	if !strings.Contains(body, `value="csrf-token"`) {
		t.Error("expected csrf token in logout form")
	}
}

func TestRenderer_EscapesUserInput(t *testing.T) {
	e, _ := newTestEcho(t)
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/login", nil), rec)

	data := struct{ UsernameOrEmail string }{UsernameOrEmail: `"><script>alert(1)</script>`}
	if err := c.Render(http.StatusUnauthorized, "login", NewPage(c, "Sign in", data).WithError("Bad credentials")); err != nil {
		t.Fatalf("render: %v", err)
	}
	if strings.Contains(rec.Body.String(), "<script>alert(1)</script>") {
		t.Error("expected user input to be escaped")
	}
	if !strings.Contains(rec.Body.String(), "Bad credentials") {
		t.Error("expected inline error")
	}
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestRenderer_Fragment(t *testing.T) {
	_, r := newTestEcho(t)
	html, err := r.Fragment("examination_table", []struct {
		ID              int64
		ExaminationDate string
		Treatment       string
		DiagnosisIDs    []int64
	}{{ID: 100, ExaminationDate: "2024-03-01", Treatment: "Rest", DiagnosisIDs: []int64{5, 9}}})
	if err != nil {
		t.Fatalf("Fragment: %v", err)
	}
	s := string(html)
	if !strings.Contains(s, "5, 9") || !strings.Contains(s, "/examinations/100") {
		t.Errorf("unexpected fragment %s", s)
	}

	if _, err := r.Fragment("missing", nil); err == nil {
		t.Error("expected error for unknown fragment")
	}
}

func TestStaticFS(t *testing.T) {
	for _, name := range []string{"app.js", "app.css"} {
		if _, err := fs.Stat(StaticFS(), name); err != nil {
			t.Errorf("expected embedded %s: %v", name, err)
		}
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"http error", echo.NewHTTPError(http.StatusNotFound), http.StatusNotFound},
		{"authentication", backend.ErrAuthentication, http.StatusUnauthorized},
		{"denied", fmt.Errorf("load: %w", backend.ErrAuthorizationDenied), http.StatusForbidden},
		{"network", backend.ErrNetwork, http.StatusBadGateway},
		{"malformed", backend.ErrMalformedResponse, http.StatusBadGateway},
		{"deadline", fmt.Errorf("%w: %w", backend.ErrNetwork, context.DeadlineExceeded), http.StatusGatewayTimeout},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StatusFor(tt.err); got != tt.want {
				t.Errorf("StatusFor() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestErrorHandler_RendersPage(t *testing.T) {
	e, _ := newTestEcho(t)
	e.HTTPErrorHandler = ErrorHandler(zerolog.Nop())
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/diagnoses", nil), rec)

	e.HTTPErrorHandler(fmt.Errorf("list diagnoses: %w", backend.ErrNetwork), c)
	if rec.Code != http.StatusBadGateway {
		t.Errorf("expected 502, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "could not be reached") {
		t.Errorf("expected network message, got %s", rec.Body.String())
	}
}

func TestErrorHandler_NotFound(t *testing.T) {
	e, _ := newTestEcho(t)
	e.HTTPErrorHandler = ErrorHandler(zerolog.Nop())

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/no-such-page", nil))

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Not Found") {
		t.Error("expected rendered error page")
	}
}
