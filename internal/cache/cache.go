// Package cache provides the response cache backends used by the
// openrouteservice client.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/UnknownOlympus/isomap/internal/repository"
	"github.com/jackc/pgx/v5/pgxpool"
)

// BackendType selects the storage behind the response cache.
type BackendType string

const (
	BackendNone     BackendType = "none"
	BackendMemory   BackendType = "memory"
	BackendValkey   BackendType = "valkey"
	BackendPostgres BackendType = "postgres"
)

// Store is a response cache that can be health-checked and closed.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, body []byte) error
	Ping(ctx context.Context) error
	Close()
}

// PostgresConfig holds the connection details of the postgres backend.
type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
}

// Config holds configuration for creating a cache backend.
type Config struct {
	Backend    BackendType
	TTL        time.Duration
	MaxEntries int            // memory backend only
	ValkeyAddr string         // valkey backend only
	Postgres   PostgresConfig // postgres backend only
	Logger     *slog.Logger
}

// New creates the configured backend. BackendNone returns a nil Store.
func New(ctx context.Context, cfg Config) (Store, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	switch cfg.Backend {
	case BackendNone, "":
		return nil, nil
	case BackendMemory:
		return NewMemory(cfg.MaxEntries, cfg.TTL), nil
	case BackendValkey:
		return NewValkey(cfg.ValkeyAddr, cfg.TTL)
	case BackendPostgres:
		pool, err := repository.NewDatabase(ctx,
			cfg.Postgres.Host, cfg.Postgres.Port, cfg.Postgres.User, cfg.Postgres.Password, cfg.Postgres.Name)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to cache database: %w", err)
		}
		store := NewPostgres(pool, repository.NewRepository(pool, cfg.Logger, cfg.TTL), cfg.Logger)
		if err = store.repo.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported cache backend: %s", cfg.Backend)
	}
}

// Postgres adapts the repository to Store and owns the pool.
type Postgres struct {
	pool *pgxpool.Pool
	repo repository.Interface
	log  *slog.Logger
}

// NewPostgres wraps a repository. The pool may be nil when the caller owns it.
func NewPostgres(pool *pgxpool.Pool, repo repository.Interface, log *slog.Logger) *Postgres {
	return &Postgres{pool: pool, repo: repo, log: log}
}

// RunPurge deletes expired rows every interval until ctx is canceled.
func (p *Postgres) RunPurge(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	p.log.InfoContext(ctx, "Cache purge loop started", "interval", interval)

	for {
		select {
		case <-ctx.Done():
			p.log.InfoContext(ctx, "Cache purge loop stopped.")
			return
		case <-ticker.C:
			removed, err := p.Purge(ctx)
			if err != nil {
				p.log.ErrorContext(ctx, "Failed to purge expired responses", "error", err)
				continue
			}
			p.log.DebugContext(ctx, "Expired responses purged", "rows", removed)
		}
	}
}

func (p *Postgres) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return p.repo.Get(ctx, key)
}

func (p *Postgres) Set(ctx context.Context, key string, body []byte) error {
	return p.repo.Set(ctx, key, body)
}

func (p *Postgres) Ping(ctx context.Context) error {
	return p.repo.Ping(ctx)
}

// Purge removes expired rows.
func (p *Postgres) Purge(ctx context.Context) (int64, error) {
	return p.repo.Purge(ctx)
}

func (p *Postgres) Close() {
	if p.pool != nil {
		p.pool.Close()
	}
}
