package auth

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		in     string
		want   Role
		wantOK bool
	}{
		{"admin", RoleAdmin, true},
		{"ADMIN", RoleAdmin, true},
		{"ROLE_ADMIN", RoleAdmin, true},
		{" role_doctor ", RoleDoctor, true},
		{"Patient", RolePatient, true},
		{"nurse", 0, false},
		{"", 0, false},
		{"ROLE_", 0, false},
	}

	for _, tt := range tests {
		got, ok := ParseRole(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("ParseRole(%q) = (%v, %v), want (%v, %v)", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestRoleSet_HasAnyOf(t *testing.T) {
	doctor := NewRoleSet(RoleDoctor)

	tests := []struct {
		name  string
		set   RoleSet
		roles []Role
		want  bool
	}{
		{"member", doctor, []Role{RoleDoctor}, true},
		{"one of many", doctor, []Role{RoleAdmin, RoleDoctor}, true},
		{"no overlap", doctor, []Role{RoleAdmin, RolePatient}, false},
		{"empty set", RoleSet(0), []Role{RoleAdmin}, false},
		{"empty query", doctor, nil, false},
		{"out of range role", doctor, []Role{Role(42)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.set.HasAnyOf(tt.roles...); got != tt.want {
				t.Errorf("HasAnyOf(%v) = %v, want %v", tt.roles, got, tt.want)
			}
		})
	}
}

func TestRoleSet_ParseIgnoresUnknown(t *testing.T) {
	s := ParseRoleSet([]string{"ROLE_PATIENT", "ROLE_AUDITOR", "admin"})
	if !s.Has(RoleAdmin) || !s.Has(RolePatient) {
		t.Errorf("expected admin and patient, got %v", s.Strings())
	}
	if s.Has(RoleDoctor) {
		t.Error("did not expect doctor")
	}
	if got := ParseRoleSet([]string{"ROLE_AUDITOR"}); !got.IsEmpty() {
		t.Errorf("expected empty set for unknown authorities, got %v", got.Strings())
	}
}

func TestRoleSet_Primary(t *testing.T) {
	if r, ok := NewRoleSet(RolePatient, RoleAdmin).Primary(); !ok || r != RoleAdmin {
		t.Errorf("expected admin to take precedence, got %v", r)
	}
	if r, ok := NewRoleSet(RolePatient, RoleDoctor).Primary(); !ok || r != RoleDoctor {
		t.Errorf("expected doctor before patient, got %v", r)
	}
	if _, ok := RoleSet(0).Primary(); ok {
		t.Error("expected no primary role for empty set")
	}
}

func TestRoleSet_JSONRoundTrip(t *testing.T) {
	var s RoleSet
	if err := json.Unmarshal([]byte(`["ROLE_DOCTOR","ROLE_ADMIN"]`), &s); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	data, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `["admin","doctor"]` {
		t.Errorf("unexpected encoding %s", data)
	}

	var back RoleSet
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back != s {
		t.Errorf("round trip changed set: %v != %v", back.Strings(), s.Strings())
	}

	if err := json.Unmarshal([]byte(`"admin"`), &back); err == nil {
		t.Error("expected error for non-array authorities")
	}
}

func TestRoleSet_Roles(t *testing.T) {
	got := NewRoleSet(RolePatient, RoleDoctor).Roles()
	want := []Role{RoleDoctor, RolePatient}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Roles() = %v, want %v", got, want)
	}
	if RoleAdmin.String() != "admin" || Role(9).String() != "unknown" {
		t.Error("unexpected Role.String output")
	}
}
