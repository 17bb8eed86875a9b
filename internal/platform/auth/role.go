package auth

import (
	"encoding/json"
	"strings"
)

// Role is one of the closed set of roles the front end knows how to serve.
type Role uint8

const (
	RoleAdmin Role = iota + 1
	RoleDoctor
	RolePatient
)

// allRoles is ordered by precedence: the first role a session holds decides
// which dashboard it lands on.
var allRoles = []Role{RoleAdmin, RoleDoctor, RolePatient}

func (r Role) String() string {
	switch r {
	case RoleAdmin:
		return "admin"
	case RoleDoctor:
		return "doctor"
	case RolePatient:
		return "patient"
	}
	return "unknown"
}

// ParseRole maps an authority string from the backend to a Role. It accepts
// "admin", "ADMIN", "ROLE_ADMIN" and the like.
func ParseRole(s string) (Role, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimPrefix(s, "role_")
	switch s {
	case "admin":
		return RoleAdmin, true
	case "doctor":
		return RoleDoctor, true
	case "patient":
		return RolePatient, true
	}
	return 0, false
}

// RoleSet is a set of Roles.
type RoleSet uint8

func NewRoleSet(roles ...Role) RoleSet {
	var s RoleSet
	for _, r := range roles {
		s = s.With(r)
	}
	return s
}

// ParseRoleSet builds a set from backend authority strings. Unknown
// authorities are ignored.
func ParseRoleSet(authorities []string) RoleSet {
	var s RoleSet
	for _, a := range authorities {
		if r, ok := ParseRole(a); ok {
			s = s.With(r)
		}
	}
	return s
}

func (s RoleSet) With(r Role) RoleSet {
	if r < RoleAdmin || r > RolePatient {
		return s
	}
	return s | 1<<(r-1)
}

func (s RoleSet) Has(r Role) bool {
	if r < RoleAdmin || r > RolePatient {
		return false
	}
	return s&(1<<(r-1)) != 0
}

// HasAnyOf reports whether the set intersects roles.
func (s RoleSet) HasAnyOf(roles ...Role) bool {
	return s&NewRoleSet(roles...) != 0
}

func (s RoleSet) IsEmpty() bool { return s == 0 }

// Roles returns the members in precedence order.
func (s RoleSet) Roles() []Role {
	var out []Role
	for _, r := range allRoles {
		if s.Has(r) {
			out = append(out, r)
		}
	}
	return out
}

// Primary returns the highest-precedence role in the set.
func (s RoleSet) Primary() (Role, bool) {
	for _, r := range allRoles {
		if s.Has(r) {
			return r, true
		}
	}
	return 0, false
}

func (s RoleSet) Strings() []string {
	roles := s.Roles()
	out := make([]string, len(roles))
	for i, r := range roles {
		out[i] = r.String()
	}
	return out
}

func (s RoleSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Strings())
}

func (s *RoleSet) UnmarshalJSON(data []byte) error {
	var authorities []string
	if err := json.Unmarshal(data, &authorities); err != nil {
		return err
	}
	*s = ParseRoleSet(authorities)
	return nil
}
