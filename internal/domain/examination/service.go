package examination

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/medadmin/medadmin/internal/platform/screen"
)

// Service keeps, per browser client, one examination list per patient the
// client has opened.
type Service struct {
	repo   Repository
	lists  *screen.Registry[Examination]
	logger zerolog.Logger
}

func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		lists:  screen.NewRegistry(key),
		logger: logger.With().Str("screen", "examinations").Logger(),
	}
}

func (s *Service) list(clientID string, patientID int64) *screen.List[Examination] {
	return s.lists.Get(screen.Scoped(clientID, patientID))
}

// Mount loads the patient's examinations from the backend, running the
// load once more when a mutation overtook it.
func (s *Service) Mount(ctx context.Context, clientID, token string, patientID int64) (screen.Snapshot[Examination], error) {
	list := s.list(clientID, patientID)
	fetch := func(ctx context.Context) ([]Examination, error) {
		return s.repo.ListByPatient(ctx, token, patientID)
	}
	err := list.Fetch(ctx, fetch)
	if errors.Is(err, screen.ErrSuperseded) && list.Snapshot().Status == screen.Loading {
		err = list.Fetch(ctx, fetch)
	}
	switch {
	case errors.Is(err, screen.ErrSuperseded):
		err = nil
	case err != nil && ctx.Err() == nil:
		s.logger.Warn().Err(err).Int64("patient_id", patientID).Msg("examination list failed to load")
	}
	return list.Snapshot(), err
}

func (s *Service) Snapshot(clientID string, patientID int64) screen.Snapshot[Examination] {
	return s.list(clientID, patientID).Snapshot()
}

func (s *Service) Get(ctx context.Context, token string, id int64) (Examination, error) {
	return s.repo.Get(ctx, token, id)
}

func (s *Service) DiagnosisOptions(ctx context.Context, token string) ([]DiagnosisOption, error) {
	return s.repo.DiagnosisOptions(ctx, token)
}

// Create records an examination by doctorID and appends it to the patient's
// list, if the client has that list open.
func (s *Service) Create(ctx context.Context, clientID, token string, doctorID int64, form Form) (Examination, error) {
	list := s.list(clientID, form.PatientID)
	created, err := list.Add(ctx, func(ctx context.Context) (Examination, error) {
		return s.repo.Create(ctx, token, form.toExamination(doctorID))
	})
	if err != nil {
		s.logger.Warn().Err(err).Int64("patient_id", form.PatientID).Msg("create examination failed")
		return created, err
	}
	if created.ID == 0 {
		// Mount logs a failed reload and the list surfaces it.
		_, _ = s.Mount(ctx, clientID, token, form.PatientID)
	}
	s.logger.Info().
		Int64("examination_id", created.ID).
		Int64("patient_id", form.PatientID).
		Int64("doctor_id", doctorID).
		Msg("examination created")
	return created, nil
}

// Delete removes the examination on the backend and then from the
// patient's list. Failures are surfaced, not retried.
func (s *Service) Delete(ctx context.Context, clientID, token string, patientID, id int64) error {
	err := s.list(clientID, patientID).Remove(ctx, id, func(ctx context.Context) error {
		return s.repo.Delete(ctx, token, id)
	})
	if errors.Is(err, screen.ErrNotFound) {
		err = nil
	}
	if err != nil {
		s.logger.Warn().Err(err).Int64("examination_id", id).Msg("delete examination failed")
		return err
	}
	s.logger.Info().Int64("examination_id", id).Int64("patient_id", patientID).Msg("examination deleted")
	return nil
}

func (s *Service) Drop(clientID string) { s.lists.Drop(clientID) }

func (s *Service) Sweep(maxIdle time.Duration) int { return s.lists.Sweep(maxIdle) }
