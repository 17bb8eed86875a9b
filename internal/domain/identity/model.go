package identity

import "strings"

// Doctor is one entry of the public doctor listing.
type Doctor struct {
	ID             int64  `json:"id"`
	FirstName      string `json:"firstName"`
	LastName       string `json:"lastName"`
	Specialization string `json:"specialization"`
	Email          string `json:"email"`
	Phone          string `json:"phone,omitempty"`
}

// LoginForm is the submitted sign-in form.
type LoginForm struct {
	UsernameOrEmail string `form:"usernameOrEmail"`
	Password        string `form:"password"`
}

func (f *LoginForm) normalize() {
	f.UsernameOrEmail = strings.TrimSpace(f.UsernameOrEmail)
}

// LandingView is the data of the landing page.
type LandingView struct {
	Doctors []Doctor
	Err     string
}
