package dashboard

import "html/template"

// AdminProfile is the admin's own user record.
type AdminProfile struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	CreatedAt string `json:"createdAt,omitempty"`
	LastLogin string `json:"lastLogin,omitempty"`
}

type DoctorProfile struct {
	ID             int64  `json:"id"`
	FirstName      string `json:"firstName"`
	LastName       string `json:"lastName"`
	Specialization string `json:"specialization"`
	Email          string `json:"email"`
	Phone          string `json:"phone,omitempty"`
}

type PatientProfile struct {
	ID          int64  `json:"id"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	DateOfBirth string `json:"dateOfBirth,omitempty"`
	Gender      string `json:"gender,omitempty"`
	Email       string `json:"email"`
	Phone       string `json:"phone,omitempty"`
	Address     string `json:"address,omitempty"`
}

// ExaminationSummary is one row of the patient's examination history.
type ExaminationSummary struct {
	ID              int64   `json:"id"`
	ExaminationDate string  `json:"examinationDate"`
	Treatment       string  `json:"treatment"`
	DiagnosisIDs    []int64 `json:"diagnosisIds"`
}

// SlotView is one rendered region of a dashboard page.
type SlotView struct {
	Name    string
	Heading string
	HTML    template.HTML
}

type Link struct {
	Href  string
	Label string
}

// PageView is the data of the dashboard page.
type PageView struct {
	Slots   []SlotView
	Links   []Link
	View    string
	LiveURL string
}
