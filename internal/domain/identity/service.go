package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/medadmin/medadmin/internal/platform/backend"
	"github.com/medadmin/medadmin/internal/platform/live"
	"github.com/medadmin/medadmin/internal/platform/session"
)

// ErrMissingCredentials is returned when either form field is empty.
var ErrMissingCredentials = errors.New("username or email and password are required")

type Service struct {
	auth      Authenticator
	doctors   DoctorDirectory
	publisher live.Publisher
	logger    zerolog.Logger
	onLogout  []func(clientID string)
}

func NewService(auth Authenticator, doctors DoctorDirectory, publisher live.Publisher, logger zerolog.Logger) *Service {
	return &Service{auth: auth, doctors: doctors, publisher: publisher, logger: logger}
}

// OnLogout registers fn to run after a client signs out, or signs in as a
// different user. Screens use it to drop the client's cached lists.
func (s *Service) OnLogout(fn func(clientID string)) {
	s.onLogout = append(s.onLogout, fn)
}

// Login exchanges the form's credentials for a session and stores it,
// replacing whatever session the client had.
func (s *Service) Login(ctx context.Context, store *session.Store, form LoginForm) error {
	form.normalize()
	if form.UsernameOrEmail == "" || form.Password == "" {
		return ErrMissingCredentials
	}

	sess, err := s.auth.Login(ctx, backend.Credentials{
		UsernameOrEmail: form.UsernameOrEmail,
		Password:        form.Password,
	})
	if err != nil {
		if errors.Is(err, backend.ErrAuthentication) {
			s.logger.Info().Str("client_id", store.ClientID()).Msg("login rejected")
		}
		return err
	}
	prev := store.Current()
	if err := store.Login(ctx, sess); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	if prev.Authenticated() && prev.SubjectID() != sess.SubjectID() {
		// The previous user's cached lists must not show for the new one.
		s.dropClient(store.ClientID())
	}

	s.logger.Info().
		Str("client_id", store.ClientID()).
		Str("user_id", sess.SubjectID()).
		Strs("roles", sess.Roles().Strings()).
		Msg("user signed in")
	return nil
}

// Logout clears the client's session and tells its open dashboards.
func (s *Service) Logout(ctx context.Context, store *session.Store) error {
	uid := store.Current().SubjectID()
	err := store.Logout(ctx)

	clientID := store.ClientID()
	s.dropClient(clientID)
	if s.publisher != nil {
		perr := s.publisher.Publish(ctx, live.Event{
			Type:      live.EventSessionEnded,
			Topic:     live.ClientTopic(clientID),
			Timestamp: time.Now().UTC(),
		})
		if perr != nil {
			s.logger.Warn().Err(perr).Str("client_id", clientID).Msg("session end not delivered to dashboards")
		}
	}

	if err != nil {
		return err
	}
	s.logger.Info().Str("client_id", clientID).Str("user_id", uid).Msg("user signed out")
	return nil
}

func (s *Service) dropClient(clientID string) {
	for _, fn := range s.onLogout {
		fn(clientID)
	}
}

func (s *Service) ListDoctors(ctx context.Context) ([]Doctor, error) {
	return s.doctors.ListDoctors(ctx)
}
