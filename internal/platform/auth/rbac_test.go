package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

type testPrincipal struct {
	id    string
	token string
	roles RoleSet
}

func (p *testPrincipal) SubjectID() string {
	if p == nil {
		return ""
	}
	return p.id
}

func (p *testPrincipal) Authenticated() bool { return p != nil && p.token != "" }

func (p *testPrincipal) Roles() RoleSet {
	if p == nil {
		return 0
	}
	return p.roles
}

func TestAuthorize(t *testing.T) {
	doctor := &testPrincipal{id: "7", token: "tok", roles: NewRoleSet(RoleDoctor)}
	noToken := &testPrincipal{id: "7", roles: NewRoleSet(RoleAdmin)}
	noRoles := &testPrincipal{id: "8", token: "tok"}
	var typedNil *testPrincipal

	tests := []struct {
		name     string
		p        Principal
		required []Role
		want     Decision
	}{
		{"nil principal, no roles required", nil, nil, Denied},
		{"nil principal, roles required", nil, []Role{RoleAdmin}, Denied},
		{"typed nil principal", typedNil, nil, Denied},
		{"no token", noToken, []Role{RoleAdmin}, Denied},
		{"authenticated, no roles required", doctor, nil, Allowed},
		{"matching role", doctor, []Role{RoleDoctor}, Allowed},
		{"one of many", doctor, []Role{RoleAdmin, RoleDoctor}, Allowed},
		{"no overlap", doctor, []Role{RoleAdmin, RolePatient}, Denied},
		{"empty authorities", noRoles, []Role{RolePatient}, Denied},
		{"empty authorities, no roles required", noRoles, nil, Allowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Authorize(tt.p, tt.required...); got != tt.want {
				t.Errorf("Authorize() = %v, want %v", got, tt.want)
			}
		})
	}
}

// Every combination of held roles that misses every required role is denied.
func TestAuthorize_DisjointSetsAlwaysDenied(t *testing.T) {
	for held := RoleSet(0); held < 8; held++ {
		for required := RoleSet(1); required < 8; required++ {
			if held&required != 0 {
				continue
			}
			p := &testPrincipal{id: "1", token: "tok", roles: held}
			if Authorize(p, required.Roles()...) != Denied {
				t.Errorf("held %v, required %v: expected denied", held.Strings(), required.Strings())
			}
		}
	}
}

func TestRequireRole_Allowed(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/dashboard/doctor", nil)
	ctx := WithPrincipal(req.Context(), &testPrincipal{id: "7", token: "tok", roles: NewRoleSet(RoleDoctor)})
	req = req.WithContext(ctx)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	}

	h := RequireRole("/", RoleDoctor, RoleAdmin)(handler)
	if err := h(c); err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestRequireRole_DeniedRedirects(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/dashboard/admin", nil)
	ctx := WithPrincipal(req.Context(), &testPrincipal{id: "3", token: "tok", roles: NewRoleSet(RolePatient)})
	req = req.WithContext(ctx)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	called := false
	handler := func(c echo.Context) error {
		called = true
		return c.String(http.StatusOK, "ok")
	}

	h := RequireRole("/", RoleAdmin)(handler)
	if err := h(c); err != nil {
		t.Fatalf("expected silent redirect, got error %v", err)
	}
	if called {
		t.Error("handler must not run for a denied request")
	}
	if rec.Code != http.StatusSeeOther {
		t.Errorf("expected 303, got %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/" {
		t.Errorf("expected redirect to /, got %q", loc)
	}
}

func TestRequireSession_NoPrincipal(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	h := RequireSession("/login")(func(c echo.Context) error {
		t.Error("handler must not run without a session")
		return nil
	})
	h(c)

	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/login" {
		t.Errorf("expected 303 to /login, got %d %q", rec.Code, rec.Header().Get("Location"))
	}
}

func TestPrincipalContext(t *testing.T) {
	ctx := context.Background()
	if PrincipalFromContext(ctx) != nil {
		t.Error("expected no principal on empty context")
	}
	if UserIDFromContext(ctx) != "" || !RolesFromContext(ctx).IsEmpty() {
		t.Error("expected zero values on empty context")
	}

	if WithPrincipal(ctx, nil) != ctx {
		t.Error("expected nil principal to leave context unchanged")
	}

	p := &testPrincipal{id: "42", token: "tok", roles: NewRoleSet(RoleAdmin)}
	ctx = WithPrincipal(ctx, p)
	if UserIDFromContext(ctx) != "42" {
		t.Errorf("expected user id 42, got %s", UserIDFromContext(ctx))
	}
	if !RolesFromContext(ctx).Has(RoleAdmin) {
		t.Error("expected admin role from context")
	}
}
