package kvstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/example/unisocial/internal/platform/db"
)

type postgresStore struct {
	pool      *pgxpool.Pool
	namespace string
}

const pgSchema = `CREATE TABLE IF NOT EXISTS client_kv (
	namespace  TEXT NOT NULL,
	key        TEXT NOT NULL,
	value      TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (namespace, key)
)`

func openPostgres(ctx context.Context, dsn, namespace string) (*postgresStore, error) {
	pool, err := db.Open(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("kvstore: postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, pgSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("kvstore: postgres schema: %w", err)
	}
	return &postgresStore{pool: pool, namespace: namespace}, nil
}

func (s *postgresStore) Get(ctx context.Context, key string) (string, bool, error) {
	const q = `SELECT value FROM client_kv WHERE namespace = $1 AND key = $2`
	var v string
	err := s.pool.QueryRow(ctx, q, s.namespace, key).Scan(&v)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (s *postgresStore) Set(ctx context.Context, key, value string) error {
	const q = `INSERT INTO client_kv (namespace, key, value, updated_at)
	           VALUES ($1, $2, $3, now())
	           ON CONFLICT (namespace, key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`
	_, err := s.pool.Exec(ctx, q, s.namespace, key, value)
	return err
}

func (s *postgresStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	const q = `DELETE FROM client_kv WHERE namespace = $1 AND key = ANY($2)`
	_, err := s.pool.Exec(ctx, q, s.namespace, keys)
	return err
}

func (s *postgresStore) Close() error {
	s.pool.Close()
	return nil
}
