// Package kvstore provides the durable key-value persistence used for
// client session state.
//
// Backends: Redis (REDIS_DSN), Postgres (DATABASE_URL), SQLite
// (SESSION_SQLITE_PATH) and an in-memory store for tests and throwaway runs.
package kvstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

const DefaultNamespace = "unisocial"

const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

var ErrUnknownBackend = errors.New("kvstore: unknown backend")

// Store is a flat string key-value store.
type Store interface {
	// Get returns ok=false when key is absent.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	// Delete removes keys; absent keys are not an error.
	Delete(ctx context.Context, keys ...string) error
	Close() error
}

type Options struct {
	// Backend forces a backend. Empty picks the first configured of
	// Redis > Postgres > SQLite, falling back to memory.
	Backend     string
	RedisDSN    string
	DatabaseURL string
	SQLitePath  string
	// Namespace isolates keys of different clients sharing one backend.
	Namespace string
}

func (o Options) backend() string {
	if b := strings.ToLower(strings.TrimSpace(o.Backend)); b != "" {
		return b
	}
	switch {
	case o.RedisDSN != "":
		return BackendRedis
	case o.DatabaseURL != "":
		return BackendPostgres
	case o.SQLitePath != "":
		return BackendSQLite
	default:
		return BackendMemory
	}
}

// Open creates the store selected by opts.
func Open(ctx context.Context, opts Options) (Store, error) {
	ns := strings.TrimSpace(opts.Namespace)
	if ns == "" {
		ns = DefaultNamespace
	}

	switch b := opts.backend(); b {
	case BackendMemory:
		return NewMemory(), nil
	case BackendRedis:
		if opts.RedisDSN == "" {
			return nil, errors.New("kvstore: REDIS_DSN is required for the redis backend")
		}
		return openRedis(ctx, opts.RedisDSN, ns)
	case BackendPostgres:
		if opts.DatabaseURL == "" {
			return nil, errors.New("kvstore: DATABASE_URL is required for the postgres backend")
		}
		return openPostgres(ctx, opts.DatabaseURL, ns)
	case BackendSQLite:
		if opts.SQLitePath == "" {
			return nil, errors.New("kvstore: SESSION_SQLITE_PATH is required for the sqlite backend")
		}
		return openSQLite(ctx, opts.SQLitePath, ns)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, b)
	}
}
