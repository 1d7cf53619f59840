package repository

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Database is the subset of pgxpool.Pool used by the repository.
// pgxmock.PgxPoolIface satisfies it in tests.
type Database interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

// Repository stores openrouteservice responses in PostgreSQL.
type Repository struct {
	db  Database
	log *slog.Logger
	ttl time.Duration
}

type Interface interface {
	EnsureSchema(ctx context.Context) error
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, body []byte) error
	Purge(ctx context.Context) (int64, error)
	Ping(ctx context.Context) error
}

// NewRepository creates a new instance of Repository with the provided Database.
// Entries expire ttl after they are written.
func NewRepository(db Database, log *slog.Logger, ttl time.Duration) *Repository {
	return &Repository{db: db, log: log, ttl: ttl}
}
