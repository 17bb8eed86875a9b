// Package session holds the signed-in identity of one browser and persists
// it in client-state storage under a fixed key.
package session

import (
	"strconv"
	"strings"

	"github.com/medadmin/medadmin/internal/platform/auth"
)

// UserDTO is the user profile returned by the backend at login.
type UserDTO struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	CreatedAt string `json:"createdAt,omitempty"`
	LastLogin string `json:"lastLogin,omitempty"`
}

// Session is the authenticated identity and credential held after login.
// A Session is never modified once built; treat pointers to it as read-only.
type Session struct {
	AccessToken string       `json:"accessToken"`
	User        UserDTO      `json:"userDTO"`
	Authorities auth.RoleSet `json:"authorities"`
}

// SubjectID returns the backend user id as a path segment.
func (s *Session) SubjectID() string {
	if s == nil {
		return ""
	}
	return strconv.FormatInt(s.User.ID, 10)
}

func (s *Session) Authenticated() bool {
	return s != nil && s.AccessToken != ""
}

func (s *Session) Roles() auth.RoleSet {
	if s == nil {
		return 0
	}
	return s.Authorities
}

// Identity changes whenever a different user signs in or the token is
// replaced. Loaders compare identities to decide whether to refetch.
func (s *Session) Identity() string {
	if s == nil {
		return ""
	}
	return s.SubjectID() + ":" + s.AccessToken
}

func (s *Session) DisplayName() string {
	if s == nil {
		return ""
	}
	name := strings.TrimSpace(s.User.FirstName + " " + s.User.LastName)
	if name == "" {
		return s.User.Username
	}
	return name
}
