package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a key is absent or expired
var ErrNotFound = errors.New("key not found")

// KVStore defines the atomic key-value primitives the short link service is built on.
// Every error other than ErrNotFound means the backend could not answer.
type KVStore interface {
	// Get returns the value stored under key
	Get(ctx context.Context, key string) (string, error)

	// SetNX stores value under key with the given ttl only when key is absent or expired.
	// It reports whether the write happened, atomically with respect to every other caller.
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)

	// Set stores value under key unconditionally
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// Expire resets the ttl of a live key and reports whether the key existed
	Expire(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// Exists reports whether key is live
	Exists(ctx context.Context, key string) (bool, error)

	// Ping checks the backend is reachable
	Ping(ctx context.Context) error

	// Close closes any connections
	Close() error
}
