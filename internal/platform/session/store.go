package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/medadmin/medadmin/internal/platform/auth"
	"github.com/medadmin/medadmin/internal/platform/storage"
)

// DefaultKey is the fixed client-state key the session is stored under.
const DefaultKey = "user"

// ErrInvalidSession is returned by Login for a nil session or one without an
// access token.
var ErrInvalidSession = errors.New("session: access token is required")

// Store owns the current session of one browser. Reads and writes are safe
// for concurrent use and every mutation is visible to readers immediately.
type Store struct {
	mu      sync.RWMutex
	ns      storage.Namespace
	key     string
	current *Session
	logger  zerolog.Logger
	now     func() time.Time
}

func NewStore(ns storage.Namespace, key string, logger zerolog.Logger) *Store {
	if key == "" {
		key = DefaultKey
	}
	return &Store{ns: ns, key: key, logger: logger, now: time.Now}
}

// Load replaces the in-memory session with the persisted one. A missing,
// malformed, or expired entry leaves the store empty; the latter two are
// also removed from storage.
func (s *Store) Load(ctx context.Context) {
	data, err := s.ns.Get(ctx, s.key)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.logger.Warn().Err(err).Str("client_id", s.ns.Name()).Msg("session load failed")
		}
		s.set(nil)
		return
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil || !sess.Authenticated() {
		s.logger.Warn().Str("client_id", s.ns.Name()).Msg("discarding malformed persisted session")
		s.discard(ctx)
		return
	}
	if auth.TokenExpired(sess.AccessToken, s.now()) {
		s.logger.Info().Str("client_id", s.ns.Name()).Str("user_id", sess.SubjectID()).Msg("discarding expired session")
		s.discard(ctx)
		return
	}
	s.set(&sess)
}

// Login persists sess and makes it current, replacing any prior session.
func (s *Store) Login(ctx context.Context, sess *Session) error {
	if !sess.Authenticated() {
		return ErrInvalidSession
	}
	cp := *sess

	data, err := json.Marshal(&cp)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := s.ns.Put(ctx, s.key, data); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}
	s.set(&cp)
	return nil
}

// Logout clears the current session and its persisted form. The in-memory
// session is cleared even when storage fails.
func (s *Store) Logout(ctx context.Context) error {
	s.set(nil)
	if err := s.ns.Delete(ctx, s.key); err != nil {
		return fmt.Errorf("remove persisted session: %w", err)
	}
	return nil
}

// Current returns the current session, or nil.
func (s *Store) Current() *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// ClientID returns the browser the store belongs to.
func (s *Store) ClientID() string {
	return s.ns.Name()
}

func (s *Store) set(sess *Session) {
	s.mu.Lock()
	s.current = sess
	s.mu.Unlock()
}

func (s *Store) discard(ctx context.Context) {
	s.set(nil)
	if err := s.ns.Delete(ctx, s.key); err != nil {
		s.logger.Warn().Err(err).Str("client_id", s.ns.Name()).Msg("failed to remove stale session")
	}
}
