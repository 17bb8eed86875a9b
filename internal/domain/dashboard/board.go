package dashboard

import (
	"bytes"
	"fmt"
	"html/template"
	"io"

	"github.com/rs/zerolog"

	"github.com/medadmin/medadmin/internal/platform/auth"
	"github.com/medadmin/medadmin/internal/platform/backend"
	"github.com/medadmin/medadmin/internal/platform/loader"
	"github.com/medadmin/medadmin/internal/platform/session"
)

// Backend endpoint templates, relative to the backend base URL.
const (
	adminProfilePath   backend.Template = "/v1/user/{id}"
	doctorListPath     backend.Template = "/v1/doctor/list"
	doctorProfilePath  backend.Template = "/v1/doctor/{id}"
	patientProfilePath backend.Template = "/v1/patient/{id}"
	patientExamsPath   backend.Template = "/v1/examination/patient/{id}"
)

const (
	pendingFragment = "slot_pending"
	failedFragment  = "slot_failed"
)

// Fragments renders named partial templates.
type Fragments interface {
	WriteFragment(w io.Writer, name string, data any) error
}

// Board is the set of slots that make up one role's dashboard. A Board is
// built per mount, so every page view fetches its resources again.
type Board struct {
	Role     auth.Role
	Title    string
	slots    []loader.Slot
	headings map[string]string
	links    func(sess *session.Session) []Link
}

func (b *Board) Slots() []loader.Slot { return b.slots }

func (b *Board) Heading(name string) string { return b.headings[name] }

func (b *Board) Links(sess *session.Session) []Link {
	if b.links == nil {
		return nil
	}
	return b.links(sess)
}

// Cancel abandons every in-flight load on the board.
func (b *Board) Cancel() {
	for _, s := range b.slots {
		s.Cancel()
	}
}

func (b *Board) add(slot loader.Slot, heading string) {
	b.slots = append(b.slots, slot)
	b.headings[slot.Name()] = heading
}

// fragmentView renders a loaded value with the named partial and the other
// phases with the shared pending and failed partials.
func fragmentView[T any](f Fragments, name string) loader.View[T] {
	return loader.ViewFunc[T](func(w io.Writer, st loader.State[T]) error {
		switch st.Phase {
		case loader.Loaded:
			return f.WriteFragment(w, name, st.Value)
		case loader.Failed:
			return f.WriteFragment(w, failedFragment, backend.UserMessage(st.Err))
		default:
			return f.WriteFragment(w, pendingFragment, nil)
		}
	})
}

func bind[T any](fetcher loader.Fetcher, f Fragments, logger zerolog.Logger, name string, path backend.Template, fragment string) loader.Slot {
	l := loader.New[T](fetcher, path, loader.WithLogger(logger))
	return loader.Bind[T](name, l, fragmentView[T](f, fragment))
}

// NewBoard builds the dashboard of role.
func NewBoard(role auth.Role, fetcher loader.Fetcher, f Fragments, logger zerolog.Logger) (*Board, error) {
	logger = logger.With().Str("dashboard", role.String()).Logger()
	b := &Board{Role: role, headings: make(map[string]string)}

	switch role {
	case auth.RoleAdmin:
		b.Title = "Administrator dashboard"
		b.add(bind[AdminProfile](fetcher, f, logger, "profile", adminProfilePath, "admin_profile"), "Your profile")
		b.add(bind[[]DoctorProfile](fetcher, f, logger, "doctors", doctorListPath, "doctor_list"), "Doctors")
		b.links = func(*session.Session) []Link {
			return []Link{{Href: "/diagnoses", Label: "Manage diagnoses"}}
		}
	case auth.RoleDoctor:
		b.Title = "Doctor dashboard"
		b.add(bind[DoctorProfile](fetcher, f, logger, "profile", doctorProfilePath, "doctor_profile"), "Your profile")
		b.links = func(*session.Session) []Link {
			return []Link{
				{Href: "/diagnoses", Label: "Manage diagnoses"},
				{Href: "/examinations/new", Label: "Record an examination"},
			}
		}
	case auth.RolePatient:
		b.Title = "Patient dashboard"
		b.add(bind[PatientProfile](fetcher, f, logger, "profile", patientProfilePath, "patient_profile"), "Your profile")
		b.add(bind[[]ExaminationSummary](fetcher, f, logger, "examinations", patientExamsPath, "examination_table"), "Your examinations")
		b.links = func(sess *session.Session) []Link {
			return []Link{{Href: "/patients/" + sess.SubjectID() + "/examinations", Label: "All examinations"}}
		}
	default:
		return nil, fmt.Errorf("no dashboard for role %s", role)
	}
	return b, nil
}

// renderSlot renders the slot's current state into an HTML fragment.
func renderSlot(s loader.Slot) (template.HTML, error) {
	var buf bytes.Buffer
	if err := s.Render(&buf); err != nil {
		return "", fmt.Errorf("render slot %s: %w", s.Name(), err)
	}
	return template.HTML(buf.String()), nil
}
