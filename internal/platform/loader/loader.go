// Package loader fetches one session-scoped resource per view and tracks its
// pending/loaded/failed state.
package loader

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/medadmin/medadmin/internal/platform/backend"
	"github.com/medadmin/medadmin/internal/platform/session"
)

type Phase int

const (
	Pending Phase = iota
	Loaded
	Failed
)

func (p Phase) String() string {
	switch p {
	case Pending:
		return "pending"
	case Loaded:
		return "loaded"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// State is a snapshot of a Loader. Value is only meaningful when Phase is
// Loaded; Err only when Phase is Failed.
type State[T any] struct {
	Phase      Phase
	Value      T
	Err        error
	Generation uint64
}

// Fetcher is the subset of backend.Client a Loader needs.
type Fetcher interface {
	Get(ctx context.Context, path, token string, out any) error
}

type options struct {
	logger zerolog.Logger
}

type Option func(*options)

func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// Loader loads the resource at Template for the session's user. A Loader
// issues at most one request per identity and never retries; Load with a
// new identity starts over from Pending.
type Loader[T any] struct {
	fetcher  Fetcher
	template backend.Template
	logger   zerolog.Logger

	mu        sync.Mutex
	identity  string
	gen       uint64
	state     State[T]
	inflight  chan struct{}
	observers []func(State[T])
}

func New[T any](fetcher Fetcher, template backend.Template, opts ...Option) *Loader[T] {
	o := options{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	return &Loader[T]{fetcher: fetcher, template: template, logger: o.logger}
}

// Template returns the endpoint template the loader expands.
func (l *Loader[T]) Template() backend.Template { return l.template }

// OnChange registers fn to receive every state transition the loader
// applies. fn is called without the loader's lock held.
func (l *Loader[T]) OnChange(fn func(State[T])) {
	l.mu.Lock()
	l.observers = append(l.observers, fn)
	l.mu.Unlock()
}

// State returns the current snapshot.
func (l *Loader[T]) State() State[T] {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Load brings the loader up to date with sess and returns the resulting
// state. It blocks until the fetch completes or ctx is done. A response
// that arrives after ctx is done, after Cancel, or after a newer Load is
// discarded.
func (l *Loader[T]) Load(ctx context.Context, sess *session.Session) State[T] {
	identity := sess.Identity()

	l.mu.Lock()
	if identity != "" && identity == l.identity {
		if l.state.Phase != Pending {
			st := l.state
			l.mu.Unlock()
			return st
		}
		if done := l.inflight; done != nil {
			l.mu.Unlock()
			select {
			case <-done:
			case <-ctx.Done():
			}
			return l.State()
		}
	}

	l.gen++
	gen := l.gen
	l.identity = identity
	done := make(chan struct{})
	l.inflight = done
	pending := State[T]{Phase: Pending, Generation: gen}
	notify := l.applyLocked(pending)
	l.mu.Unlock()
	notify()
	defer close(done)

	if !sess.Authenticated() {
		return l.finish(ctx, gen, State[T]{Phase: Failed, Err: backend.ErrAuthorizationDenied, Generation: gen})
	}

	path := l.template.Expand(sess.SubjectID())
	var value T
	if err := l.fetcher.Get(ctx, path, sess.AccessToken, &value); err != nil {
		if ctx.Err() == nil {
			l.logger.Warn().Err(err).Str("endpoint", path).Str("user_id", sess.SubjectID()).Msg("dashboard load failed")
		}
		return l.finish(ctx, gen, State[T]{Phase: Failed, Err: err, Generation: gen})
	}
	return l.finish(ctx, gen, State[T]{Phase: Loaded, Value: value, Generation: gen})
}

// finish applies st unless gen has been superseded or ctx is done.
func (l *Loader[T]) finish(ctx context.Context, gen uint64, st State[T]) State[T] {
	l.mu.Lock()
	if gen != l.gen || ctx.Err() != nil {
		if gen == l.gen {
			// Abandoned: the next Load for this identity fetches again.
			l.identity = ""
			l.inflight = nil
		}
		cur := l.state
		l.mu.Unlock()
		return cur
	}
	l.inflight = nil
	notify := l.applyLocked(st)
	l.mu.Unlock()
	notify()
	return st
}

// Cancel abandons any in-flight load and resets the loader to Pending.
func (l *Loader[T]) Cancel() {
	l.mu.Lock()
	l.gen++
	l.identity = ""
	l.inflight = nil
	notify := l.applyLocked(State[T]{Phase: Pending, Generation: l.gen})
	l.mu.Unlock()
	notify()
}

func (l *Loader[T]) applyLocked(st State[T]) func() {
	l.state = st
	observers := append([]func(State[T]){}, l.observers...)
	return func() {
		for _, fn := range observers {
			fn(st)
		}
	}
}
