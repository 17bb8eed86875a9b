package loader

import (
	"context"
	"io"

	"github.com/sourcegraph/conc"

	"github.com/medadmin/medadmin/internal/platform/session"
)

// View renders every phase of a State. Implementations must not render
// Value unless the phase is Loaded.
type View[T any] interface {
	Render(w io.Writer, st State[T]) error
}

// ViewFunc adapts a function to a View.
type ViewFunc[T any] func(w io.Writer, st State[T]) error

func (f ViewFunc[T]) Render(w io.Writer, st State[T]) error { return f(w, st) }

// Slot is one independently loaded region of a page. It hides the resource
// type so slots of different types can be loaded and rendered together.
type Slot interface {
	Name() string
	Load(ctx context.Context, sess *session.Session) Phase
	Render(w io.Writer) error
	Cancel()
	OnChange(fn func(name string, phase Phase))
}

type boundSlot[T any] struct {
	name   string
	loader *Loader[T]
	view   View[T]
}

// Bind pairs a loader with the view that renders it.
func Bind[T any](name string, l *Loader[T], v View[T]) Slot {
	return &boundSlot[T]{name: name, loader: l, view: v}
}

func (s *boundSlot[T]) Name() string { return s.name }

func (s *boundSlot[T]) Load(ctx context.Context, sess *session.Session) Phase {
	return s.loader.Load(ctx, sess).Phase
}

func (s *boundSlot[T]) Render(w io.Writer) error {
	return s.view.Render(w, s.loader.State())
}

func (s *boundSlot[T]) Cancel() { s.loader.Cancel() }

func (s *boundSlot[T]) OnChange(fn func(name string, phase Phase)) {
	s.loader.OnChange(func(st State[T]) { fn(s.name, st.Phase) })
}

// LoadAll loads every slot concurrently and returns once all of them have
// settled. Each slot updates only its own state, in whatever order the
// responses arrive.
func LoadAll(ctx context.Context, sess *session.Session, slots ...Slot) {
	var wg conc.WaitGroup
	for _, s := range slots {
		s := s
		wg.Go(func() { s.Load(ctx, sess) })
	}
	wg.Wait()
}
