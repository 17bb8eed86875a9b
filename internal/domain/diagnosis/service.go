package diagnosis

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/medadmin/medadmin/internal/platform/screen"
)

// Service keeps one diagnosis list per browser client. Mount refetches it;
// mutations update it in place after the backend accepts them.
type Service struct {
	repo   Repository
	lists  *screen.Registry[Diagnosis]
	logger zerolog.Logger
}

func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		lists:  screen.NewRegistry(key),
		logger: logger.With().Str("screen", "diagnoses").Logger(),
	}
}

// Mount loads the client's list from the backend. A load overtaken by a
// mutation is run once more so the list never stays Loading.
func (s *Service) Mount(ctx context.Context, clientID, token string) (screen.Snapshot[Diagnosis], error) {
	list := s.lists.Get(clientID)
	fetch := func(ctx context.Context) ([]Diagnosis, error) {
		return s.repo.List(ctx, token)
	}
	err := list.Fetch(ctx, fetch)
	if errors.Is(err, screen.ErrSuperseded) && list.Snapshot().Status == screen.Loading {
		err = list.Fetch(ctx, fetch)
	}
	switch {
	case errors.Is(err, screen.ErrSuperseded):
		err = nil
	case err != nil && ctx.Err() == nil:
		s.logger.Warn().Err(err).Str("client_id", clientID).Msg("diagnosis list failed to load")
	}
	return list.Snapshot(), err
}

func (s *Service) Snapshot(clientID string) screen.Snapshot[Diagnosis] {
	return s.lists.Get(clientID).Snapshot()
}

// Find returns the diagnosis from the client's list, asking the backend
// when the list does not hold it.
func (s *Service) Find(ctx context.Context, clientID, token string, id int64) (Diagnosis, error) {
	if d, ok := s.lists.Get(clientID).Find(id); ok {
		return d, nil
	}
	return s.repo.Get(ctx, token, id)
}

func (s *Service) Create(ctx context.Context, clientID, token string, form Form) (Diagnosis, error) {
	list := s.lists.Get(clientID)
	created, err := list.Add(ctx, func(ctx context.Context) (Diagnosis, error) {
		return s.repo.Create(ctx, token, form.toDiagnosis(0))
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("client_id", clientID).Msg("create diagnosis failed")
		return created, err
	}
	if created.ID == 0 {
		// The backend did not echo the record; only a reload knows its id.
		// Mount logs a failed reload and the list surfaces it.
		_, _ = s.Mount(ctx, clientID, token)
	}
	s.logger.Info().Int64("diagnosis_id", created.ID).Str("client_id", clientID).Msg("diagnosis created")
	return created, nil
}

func (s *Service) Update(ctx context.Context, clientID, token string, id int64, form Form) (Diagnosis, error) {
	updated, err := s.lists.Get(clientID).Replace(ctx, id, func(ctx context.Context) (Diagnosis, error) {
		return s.repo.Update(ctx, token, form.toDiagnosis(id))
	})
	if err != nil {
		s.logger.Warn().Err(err).Int64("diagnosis_id", id).Msg("update diagnosis failed")
		return updated, err
	}
	s.logger.Info().Int64("diagnosis_id", id).Str("client_id", clientID).Msg("diagnosis updated")
	return updated, nil
}

// Delete removes the diagnosis on the backend and then from the list. A
// failed call is not retried; the list keeps the item and the error is
// surfaced on the next snapshot.
func (s *Service) Delete(ctx context.Context, clientID, token string, id int64) error {
	err := s.lists.Get(clientID).Remove(ctx, id, func(ctx context.Context) error {
		return s.repo.Delete(ctx, token, id)
	})
	if errors.Is(err, screen.ErrNotFound) {
		err = nil
	}
	if err != nil {
		s.logger.Warn().Err(err).Int64("diagnosis_id", id).Msg("delete diagnosis failed")
		return err
	}
	s.logger.Info().Int64("diagnosis_id", id).Str("client_id", clientID).Msg("diagnosis deleted")
	return nil
}

// Drop forgets the client's list, e.g. at logout.
func (s *Service) Drop(clientID string) { s.lists.Drop(clientID) }

// Sweep forgets lists idle for longer than maxIdle.
func (s *Service) Sweep(maxIdle time.Duration) int { return s.lists.Sweep(maxIdle) }
