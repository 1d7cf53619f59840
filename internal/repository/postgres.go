package repository

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// NewDatabase opens a pgx connection pool and verifies it with a ping.
func NewDatabase(ctx context.Context, host, port, user, password, name string) (*pgxpool.Pool, error) {
	dsn := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(user, password),
		Host:     net.JoinHostPort(host, port),
		Path:     name,
		RawQuery: "sslmode=disable",
	}

	pool, err := pgxpool.New(ctx, dsn.String())
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err = pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}

// EnsureSchema creates the response cache table when it does not exist.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS response_cache (
			cache_key  TEXT PRIMARY KEY,
			body       BYTEA NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			expires_at TIMESTAMPTZ NOT NULL
		);
	`

	if _, err := r.db.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create response cache table: %w", err)
	}

	return nil
}

// Get returns the cached body for key. Expired rows are treated as missing.
func (r *Repository) Get(ctx context.Context, key string) ([]byte, bool, error) {
	query := `
		SELECT body
		FROM response_cache
		WHERE cache_key = $1 AND expires_at > now();
	`

	var body []byte
	err := r.db.QueryRow(ctx, query, key).Scan(&body)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cached response: %w", err)
	}

	r.log.DebugContext(ctx, "Cached response found", "key", key, "bytes", len(body))

	return body, true, nil
}

// Set stores body under key. The most recent write wins.
func (r *Repository) Set(ctx context.Context, key string, body []byte) error {
	query := `
		INSERT INTO response_cache (cache_key, body, created_at, expires_at)
		VALUES ($1, $2, now(), now() + make_interval(secs => $3))
		ON CONFLICT (cache_key) DO UPDATE
		SET
			body = EXCLUDED.body,
			created_at = EXCLUDED.created_at,
			expires_at = EXCLUDED.expires_at;
	`

	_, err := r.db.Exec(ctx, query, key, body, r.ttl.Seconds())
	if err != nil {
		return fmt.Errorf("failed to store cached response: %w", err)
	}

	return nil
}

// Purge deletes expired rows and returns how many were removed.
func (r *Repository) Purge(ctx context.Context) (int64, error) {
	query := `
		DELETE FROM response_cache
		WHERE expires_at <= now();
	`

	tag, err := r.db.Exec(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to purge expired responses: %w", err)
	}

	return tag.RowsAffected(), nil
}

// Ping checks the database connection.
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}
