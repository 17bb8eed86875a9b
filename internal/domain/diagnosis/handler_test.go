package diagnosis

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/medadmin/medadmin/internal/platform/auth"
	"github.com/medadmin/medadmin/internal/platform/session"
	"github.com/medadmin/medadmin/internal/platform/storage"
	"github.com/medadmin/medadmin/internal/web"
)

type testServer struct {
	e    *echo.Echo
	repo *mockRepo
	svc  *Service
}

// newTestServer routes requests through the real guard and method override
// with a session of the given roles attached.
func newTestServer(t *testing.T, repo *mockRepo, roles ...auth.Role) *testServer {
	t.Helper()
	r, err := web.NewRenderer()
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}
	e := echo.New()
	e.Renderer = r
	e.HTTPErrorHandler = web.ErrorHandler(zerolog.Nop())
	e.Pre(echomw.MethodOverrideWithConfig(echomw.MethodOverrideConfig{
		Getter: echomw.MethodFromForm("_method"),
	}))

	store := session.NewStore(storage.In(storage.NewMemory(), "c1"), session.DefaultKey, zerolog.Nop())
	if len(roles) > 0 {
		store.Login(context.Background(), &session.Session{
			AccessToken: "tok",
			User:        session.UserDTO{ID: 1},
			Authorities: auth.NewRoleSet(roles...),
		})
	}
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			session.Attach(c, store)
			return next(c)
		}
	})

	svc := NewService(repo, zerolog.Nop())
	NewHandler(svc).RegisterRoutes(e)
	return &testServer{e: e, repo: repo, svc: svc}
}

func (s *testServer) do(method, target string, form url.Values) *httptest.ResponseRecorder {
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func TestHandler_Guard(t *testing.T) {
	tests := []struct {
		name  string
		roles []auth.Role
		want  int
	}{
		{"anonymous", nil, http.StatusSeeOther},
		{"patient", []auth.Role{auth.RolePatient}, http.StatusSeeOther},
		{"doctor", []auth.Role{auth.RoleDoctor}, http.StatusOK},
		{"admin", []auth.Role{auth.RoleAdmin}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, newMockRepo(1), tt.roles...)
			rec := s.do(http.MethodGet, "/diagnoses", nil)
			if rec.Code != tt.want {
				t.Errorf("expected %d, got %d", tt.want, rec.Code)
			}
			if tt.want == http.StatusSeeOther && len(s.repo.tokens) != 0 {
				t.Error("a denied request must not reach the backend")
			}
		})
	}
}

func TestHandler_List(t *testing.T) {
	s := newTestServer(t, newMockRepo(5, 7, 9), auth.RoleDoctor)
	rec := s.do(http.MethodGet, "/diagnoses", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	for _, want := range []string{"D5", "D7", "D9", `action="/diagnoses/7"`} {
		if !strings.Contains(rec.Body.String(), want) {
			t.Errorf("expected %q in body", want)
		}
	}
}

func TestHandler_ListBackendDown(t *testing.T) {
	repo := newMockRepo(1)
	repo.failNext = errServer
	s := newTestServer(t, repo, auth.RoleAdmin)

	rec := s.do(http.MethodGet, "/diagnoses", nil)
	if rec.Code != http.StatusBadGateway {
		t.Errorf("expected 502, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "could not be reached") {
		t.Error("expected network message")
	}
}

func TestHandler_DeleteViaMethodOverride(t *testing.T) {
	s := newTestServer(t, newMockRepo(5, 7, 9), auth.RoleAdmin)
	s.do(http.MethodGet, "/diagnoses", nil)

	rec := s.do(http.MethodPost, "/diagnoses/7", url.Values{"_method": {"DELETE"}})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := listIDs(s.svc.Snapshot("c1")); !sameIDs(got, []int64{5, 9}) {
		t.Errorf("expected [5 9], got %v", got)
	}
	body := rec.Body.String()
	if strings.Contains(body, "D7") || !strings.Contains(body, "Diagnosis deleted.") {
		t.Errorf("unexpected body after delete: %s", body)
	}
}

func TestHandler_DeleteFailure(t *testing.T) {
	s := newTestServer(t, newMockRepo(5, 7, 9), auth.RoleAdmin)
	s.do(http.MethodGet, "/diagnoses", nil)
	s.repo.failNext = errServer

	rec := s.do(http.MethodDelete, "/diagnoses/7", nil)
	if rec.Code != http.StatusBadGateway {
		t.Errorf("expected 502, got %d", rec.Code)
	}
	if got := listIDs(s.svc.Snapshot("c1")); !sameIDs(got, []int64{5, 7, 9}) {
		t.Errorf("expected [5 7 9], got %v", got)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "D7") || !strings.Contains(body, "could not be reached") {
		t.Error("expected unchanged list with an error message")
	}
}

func TestHandler_DeleteInvalidID(t *testing.T) {
	s := newTestServer(t, newMockRepo(5), auth.RoleAdmin)
	rec := s.do(http.MethodDelete, "/diagnoses/abc", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestHandler_Create(t *testing.T) {
	s := newTestServer(t, newMockRepo(1), auth.RoleDoctor)
	s.do(http.MethodGet, "/diagnoses", nil)

	rec := s.do(http.MethodPost, "/diagnoses", url.Values{"diagnosis": {"Flu"}, "description": {"seasonal"}})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Flu") || !strings.Contains(rec.Body.String(), "Diagnosis created.") {
		t.Error("expected the new diagnosis in the rendered list")
	}
}

func TestHandler_CreateFailureKeepsForm(t *testing.T) {
	s := newTestServer(t, newMockRepo(1), auth.RoleDoctor)
	s.repo.failNext = errServer

	rec := s.do(http.MethodPost, "/diagnoses", url.Values{"diagnosis": {"Flu"}})
	if rec.Code != http.StatusBadGateway {
		t.Errorf("expected 502, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `value="Flu"`) {
		t.Error("expected the submitted value to be kept in the form")
	}
}

func TestHandler_EditAndUpdate(t *testing.T) {
	s := newTestServer(t, newMockRepo(5, 7), auth.RoleAdmin)
	s.do(http.MethodGet, "/diagnoses", nil)

	rec := s.do(http.MethodGet, "/diagnoses/7/edit", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `value="PUT"`) {
		t.Fatalf("expected edit form, got %d", rec.Code)
	}

	rec = s.do(http.MethodPost, "/diagnoses/7", url.Values{"_method": {"PUT"}, "diagnosis": {"Asthma"}})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if d, ok := s.svc.lists.Get("c1").Find(7); !ok || d.Diagnosis != "Asthma" {
		t.Errorf("expected updated list entry, got %+v", d)
	}
}

func TestHandler_EditUnknown(t *testing.T) {
	s := newTestServer(t, newMockRepo(5), auth.RoleAdmin)
	rec := s.do(http.MethodGet, "/diagnoses/99/edit", nil)
	if rec.Code != http.StatusBadGateway {
		t.Errorf("expected backend 404 surfaced as 502, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Diagnosis not found") {
		t.Error("expected backend message")
	}
}

func TestHandler_MutationLoadsUnopenedList(t *testing.T) {
	t.Run("update", func(t *testing.T) {
		s := newTestServer(t, newMockRepo(3, 4), auth.RoleAdmin)
		rec := s.do(http.MethodPost, "/diagnoses/3", url.Values{"_method": {"PUT"}, "diagnosis": {"Flu"}})
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		body := rec.Body.String()
		for _, want := range []string{"Flu", "D4", "Diagnosis updated."} {
			if !strings.Contains(body, want) {
				t.Errorf("expected %q in body", want)
			}
		}
		if strings.Contains(body, "Loading") {
			t.Error("expected a loaded list, got the placeholder")
		}
	})

	t.Run("delete", func(t *testing.T) {
		s := newTestServer(t, newMockRepo(3, 4), auth.RoleAdmin)
		rec := s.do(http.MethodDelete, "/diagnoses/4", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		body := rec.Body.String()
		if !strings.Contains(body, "D3") || strings.Contains(body, "D4") || strings.Contains(body, "Loading") {
			t.Errorf("expected the reloaded list without D4, got %s", body)
		}
		if got := listIDs(s.svc.Snapshot("c1")); !sameIDs(got, []int64{3}) {
			t.Errorf("expected [3], got %v", got)
		}
	})
}
