// Package screen keeps the in-memory state of list screens between
// requests. A list only changes after the backend has accepted a mutation.
package screen

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

type Status int

const (
	Loading Status = iota
	Ready
	Error
)

func (s Status) String() string {
	switch s {
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Error:
		return "error"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// ErrNotFound is returned by Replace and Remove when no item has the id.
var ErrNotFound = errors.New("item not in list")

// ErrSuperseded is returned by Fetch when a later Fetch or an accepted
// mutation started after it. Its result was discarded.
var ErrSuperseded = errors.New("list load superseded")

// Snapshot is a copy of a list's state safe to hand to a template.
type Snapshot[T any] struct {
	Status Status
	Items  []T
	Err    error
}

// List is the state machine of one list screen: Loading, then Ready or
// Error. A Ready list changes only through Add, Replace and Remove, and only
// when the server call passed to them succeeds.
type List[T any] struct {
	key func(T) int64

	mu     sync.RWMutex
	gen    uint64
	status Status
	items  []T
	err    error
}

// NewList returns a Loading list. key extracts the identifier of an item.
func NewList[T any](key func(T) int64) *List[T] {
	return &List[T]{key: key}
}

// Fetch (re)loads the list through fetch. Used when the screen is mounted.
// The result is applied only while this is the latest load and ctx is still
// live. An abandoned load puts back the state it found.
func (l *List[T]) Fetch(ctx context.Context, fetch func(context.Context) ([]T, error)) error {
	l.mu.Lock()
	l.gen++
	gen := l.gen
	prevStatus, prevErr := l.status, l.err
	l.status = Loading
	l.err = nil
	l.mu.Unlock()

	items, err := fetch(ctx)

	l.mu.Lock()
	defer l.mu.Unlock()
	if gen != l.gen {
		return ErrSuperseded
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		l.status, l.err = prevStatus, prevErr
		return ctxErr
	}
	if err != nil {
		l.status = Error
		l.items = nil
		l.err = err
		return err
	}
	l.status = Ready
	l.items = append([]T(nil), items...)
	return nil
}

// Add runs create and appends its result.
func (l *List[T]) Add(ctx context.Context, create func(context.Context) (T, error)) (T, error) {
	item, err := create(ctx)
	if err != nil {
		l.fail(err)
		return item, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.gen++
	l.err = nil
	if l.status == Ready {
		l.items = append(l.items, item)
	}
	return item, nil
}

// Replace runs update and swaps the item with id for its result.
func (l *List[T]) Replace(ctx context.Context, id int64, update func(context.Context) (T, error)) (T, error) {
	item, err := update(ctx)
	if err != nil {
		l.fail(err)
		return item, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.gen++
	l.err = nil
	if l.status != Ready {
		return item, nil
	}
	i := l.indexLocked(id)
	if i < 0 {
		l.items = append(l.items, item)
		return item, nil
	}
	l.items[i] = item
	return item, nil
}

// Remove runs remove and drops the item with id. A failed call leaves the
// list unchanged and is recorded as the surfaced error. An accepted call
// discards any load still in flight, since its rows may predate the change.
func (l *List[T]) Remove(ctx context.Context, id int64, remove func(context.Context) error) error {
	if err := remove(ctx); err != nil {
		l.fail(err)
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.gen++
	l.err = nil
	if l.status != Ready {
		return nil
	}
	i := l.indexLocked(id)
	if i < 0 {
		return ErrNotFound
	}
	l.items = append(l.items[:i:i], l.items[i+1:]...)
	return nil
}

// fail records err as the surfaced error. The items and status are kept.
func (l *List[T]) fail(err error) {
	l.mu.Lock()
	l.err = err
	l.mu.Unlock()
}

func (l *List[T]) indexLocked(id int64) int {
	for i, item := range l.items {
		if l.key(item) == id {
			return i
		}
	}
	return -1
}

func (l *List[T]) Snapshot() Snapshot[T] {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return Snapshot[T]{
		Status: l.status,
		Items:  append([]T(nil), l.items...),
		Err:    l.err,
	}
}

// Find returns the item with id from a Ready list.
func (l *List[T]) Find(id int64) (T, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var zero T
	if l.status != Ready {
		return zero, false
	}
	if i := l.indexLocked(id); i >= 0 {
		return l.items[i], true
	}
	return zero, false
}
