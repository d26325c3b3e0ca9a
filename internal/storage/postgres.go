package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hohotang/shortlink-core/internal/logger"
	"github.com/hohotang/shortlink-core/internal/storage/migrations"
	_ "github.com/lib/pq"
)

// Expiry is evaluated against the database clock so every instance agrees on it.
const (
	pgGetQuery = `SELECT value FROM shortlink_entries WHERE key = $1 AND expires_at > NOW()`

	// An expired row counts as absent, so the conflicting update only fires for dead keys.
	// Concurrent inserts serialize on the row lock and re-check the predicate.
	pgSetNXQuery = `
		INSERT INTO shortlink_entries (key, value, expires_at)
		VALUES ($1, $2, NOW() + make_interval(secs => $3))
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at
		WHERE shortlink_entries.expires_at <= NOW()`

	pgSetQuery = `
		INSERT INTO shortlink_entries (key, value, expires_at)
		VALUES ($1, $2, NOW() + make_interval(secs => $3))
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at`

	pgExpireQuery = `
		UPDATE shortlink_entries SET expires_at = NOW() + make_interval(secs => $2)
		WHERE key = $1 AND expires_at > NOW()`

	pgExistsQuery = `SELECT EXISTS (SELECT 1 FROM shortlink_entries WHERE key = $1 AND expires_at > NOW())`

	pgSweepQuery = `DELETE FROM shortlink_entries WHERE expires_at <= NOW()`

	// noExpiry stands in for a non-positive ttl: one hundred years
	noExpiry = 100 * 365 * 24 * time.Hour
)

// PostgresOptions configures the PostgreSQL backend
type PostgresOptions struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	SweepInterval   time.Duration
	// SkipMigrations leaves schema management to the migrate command
	SkipMigrations bool
}

// PostgresStorage implements KVStore with a PostgreSQL table carrying an expiry column
type PostgresStorage struct {
	db      *sql.DB
	sweeper *sweeper
}

// OpenPostgres opens and pings a lib/pq connection pool
func OpenPostgres(ctx context.Context, opts PostgresOptions) (*sql.DB, error) {
	db, err := sql.Open("postgres", opts.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		db.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}

	// Test connection
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping PostgreSQL: %w", err)
	}

	return db, nil
}

// NewPostgresStorage creates a new PostgresStorage instance, applying the schema unless told otherwise
func NewPostgresStorage(ctx context.Context, opts PostgresOptions) (*PostgresStorage, error) {
	db, err := OpenPostgres(ctx, opts)
	if err != nil {
		return nil, err
	}

	if !opts.SkipMigrations {
		if err := migrations.NewMigrator(db, logger.L()).RunUp(); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	s := &PostgresStorage{db: db}
	s.sweeper = startSweeper("postgres", opts.SweepInterval, s.Sweep)

	return s, nil
}

func ttlSeconds(ttl time.Duration) float64 {
	if ttl <= 0 {
		ttl = noExpiry
	}
	return ttl.Seconds()
}

// Get implements KVStore.Get
func (s *PostgresStorage) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, pgGetQuery, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to get key: %w", err)
	}

	return value, nil
}

// SetNX implements KVStore.SetNX
func (s *PostgresStorage) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	res, err := s.db.ExecContext(ctx, pgSetNXQuery, key, value, ttlSeconds(ttl))
	if err != nil {
		return false, fmt.Errorf("failed to set key: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}

	return n > 0, nil
}

// Set implements KVStore.Set
func (s *PostgresStorage) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if _, err := s.db.ExecContext(ctx, pgSetQuery, key, value, ttlSeconds(ttl)); err != nil {
		return fmt.Errorf("failed to store key: %w", err)
	}

	return nil
}

// Expire implements KVStore.Expire
func (s *PostgresStorage) Expire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	res, err := s.db.ExecContext(ctx, pgExpireQuery, key, ttlSeconds(ttl))
	if err != nil {
		return false, fmt.Errorf("failed to refresh TTL: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}

	return n > 0, nil
}

// Exists implements KVStore.Exists
func (s *PostgresStorage) Exists(ctx context.Context, key string) (bool, error) {
	var exists bool
	if err := s.db.QueryRowContext(ctx, pgExistsQuery, key).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check key: %w", err)
	}

	return exists, nil
}

// Sweep deletes expired rows
func (s *PostgresStorage) Sweep(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, pgSweepQuery)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired keys: %w", err)
	}

	return res.RowsAffected()
}

// Ping implements KVStore.Ping
func (s *PostgresStorage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close stops the sweep and closes the database connection
func (s *PostgresStorage) Close() error {
	s.sweeper.stop()
	return s.db.Close()
}
