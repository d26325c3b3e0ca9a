package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/hohotang/shortlink-core/internal/clock"
	"github.com/hohotang/shortlink-core/internal/config"
	"github.com/hohotang/shortlink-core/internal/logger"
	"github.com/hohotang/shortlink-core/internal/models"
	"go.uber.org/zap"
)

// New connects the backend selected by cfg.Storage.Type and fails fast when it is unreachable
func New(ctx context.Context, cfg *config.Config) (KVStore, error) {
	sc := cfg.Storage

	if sc.Type.Validate() == nil && !sc.Type.Shared() {
		logger.L().Warn("Storage backend is local to this process: run a single instance",
			zap.String("type", sc.Type.String()))
	}

	switch sc.Type {
	case models.Redis:
		return NewRedisStorage(ctx, sc.RedisURL, sc.Timeout)

	case models.Postgres:
		store, err := NewPostgresStorage(ctx, PostgresOptions{
			DSN:             sc.PostgresDSN(),
			MaxOpenConns:    sc.Postgres.MaxOpenConns,
			MaxIdleConns:    sc.Postgres.MaxIdleConns,
			ConnMaxLifetime: sc.Postgres.ConnMaxLifetime,
			SweepInterval:   sc.SweepInterval,
		})
		if err != nil {
			return nil, err
		}
		return WithTimeout(store, sc.Timeout), nil

	case models.Bolt:
		return NewBoltStorage(sc.Bolt.Path, sc.SweepInterval, clock.System{})

	case models.Memory:
		logger.L().Warn("Using in-memory storage: links are lost on restart")
		return NewMemoryStorage(clock.System{}, sc.SweepInterval), nil
	}

	return nil, fmt.Errorf("unsupported storage type %q", sc.Type.String())
}

// timeoutStore bounds every call on a backend whose driver has no per-command timeout
type timeoutStore struct {
	KVStore
	timeout time.Duration
}

// WithTimeout wraps store so each call runs under a context deadline of timeout.
// A non-positive timeout returns store unchanged.
func WithTimeout(store KVStore, timeout time.Duration) KVStore {
	if timeout <= 0 {
		return store
	}
	logger.L().Debug("Bounding store calls", zap.Duration("timeout", timeout))
	return &timeoutStore{KVStore: store, timeout: timeout}
}

func (s *timeoutStore) Get(ctx context.Context, key string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.KVStore.Get(ctx, key)
}

func (s *timeoutStore) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.KVStore.SetNX(ctx, key, value, ttl)
}

func (s *timeoutStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.KVStore.Set(ctx, key, value, ttl)
}

func (s *timeoutStore) Expire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.KVStore.Expire(ctx, key, ttl)
}

func (s *timeoutStore) Exists(ctx context.Context, key string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.KVStore.Exists(ctx, key)
}

func (s *timeoutStore) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.KVStore.Ping(ctx)
}
