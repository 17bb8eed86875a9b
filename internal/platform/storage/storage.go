// Package storage persists per-browser client state (the signed-in session
// and nothing else) in a small key/value table. Each browser owns one
// namespace, identified by its client cookie.
package storage

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound is returned by Get when no entry exists for the key.
var ErrNotFound = errors.New("storage: entry not found")

// Storage is a namespaced key/value store. Values are overwritten wholesale.
type Storage interface {
	Get(ctx context.Context, namespace, key string) ([]byte, error)
	Put(ctx context.Context, namespace, key string, value []byte) error
	Delete(ctx context.Context, namespace, key string) error
	Ping(ctx context.Context) error
	Close() error
}

// Migrator is implemented by the SQL-backed stores.
type Migrator interface {
	Migrate(ctx context.Context) (int, error)
}

// Options selects and configures a Storage implementation.
type Options struct {
	Driver      string
	SQLitePath  string
	DatabaseURL string
	MaxConns    int32
	MinConns    int32
}

// Open returns the Storage for opts.Driver. SQL-backed stores are migrated
// before they are returned.
func Open(ctx context.Context, opts Options) (Storage, error) {
	var (
		s   Storage
		err error
	)
	switch opts.Driver {
	case "memory":
		return NewMemory(), nil
	case "sqlite":
		s, err = OpenSQLite(opts.SQLitePath)
	case "postgres":
		s, err = OpenPostgres(ctx, opts.DatabaseURL, opts.MaxConns, opts.MinConns)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", opts.Driver)
	}
	if err != nil {
		return nil, err
	}

	if m, ok := s.(Migrator); ok {
		if _, err := m.Migrate(ctx); err != nil {
			s.Close()
			return nil, fmt.Errorf("migrate %s storage: %w", opts.Driver, err)
		}
	}
	return s, nil
}

// Namespace binds a Storage to one namespace.
type Namespace struct {
	store Storage
	name  string
}

// In returns a view of s restricted to the given namespace.
func In(s Storage, namespace string) Namespace {
	return Namespace{store: s, name: namespace}
}

func (n Namespace) Name() string { return n.name }

func (n Namespace) Get(ctx context.Context, key string) ([]byte, error) {
	return n.store.Get(ctx, n.name, key)
}

func (n Namespace) Put(ctx context.Context, key string, value []byte) error {
	return n.store.Put(ctx, n.name, key, value)
}

func (n Namespace) Delete(ctx context.Context, key string) error {
	return n.store.Delete(ctx, n.name, key)
}
