package screen

import (
	"strconv"
	"strings"
	"sync"
	"time"
)

type entry[T any] struct {
	list     *List[T]
	lastUsed time.Time
}

// Registry holds the lists of each browser client so list state survives
// between requests. A client has one list per screen, or one per scope when
// the screen shows a subset such as one patient's records.
type Registry[T any] struct {
	key func(T) int64
	now func() time.Time

	mu    sync.Mutex
	lists map[string]*entry[T]
}

func NewRegistry[T any](key func(T) int64) *Registry[T] {
	return &Registry[T]{key: key, now: time.Now, lists: make(map[string]*entry[T])}
}

// Get returns the client's list, creating a Loading one on first use.
func (r *Registry[T]) Get(clientID string) *List[T] {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.lists[clientID]
	if !ok {
		e = &entry[T]{list: NewList(r.key)}
		r.lists[clientID] = e
	}
	e.lastUsed = r.now()
	return e.list
}

// Scoped is the registry key of the client's list for scope.
func Scoped(clientID string, scope int64) string {
	return clientID + "/" + strconv.FormatInt(scope, 10)
}

// Drop forgets every list of the client, scoped ones included.
func (r *Registry[T]) Drop(clientID string) {
	prefix := clientID + "/"
	r.mu.Lock()
	defer r.mu.Unlock()
	for id := range r.lists {
		if id == clientID || strings.HasPrefix(id, prefix) {
			delete(r.lists, id)
		}
	}
}

// Sweep drops lists unused for longer than maxIdle and returns how many
// were dropped.
func (r *Registry[T]) Sweep(maxIdle time.Duration) int {
	cutoff := r.now().Add(-maxIdle)
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, e := range r.lists {
		if e.lastUsed.Before(cutoff) {
			delete(r.lists, id)
			n++
		}
	}
	return n
}

func (r *Registry[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.lists)
}
