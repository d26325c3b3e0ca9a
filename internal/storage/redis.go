package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisStorage implements KVStore with Redis
type RedisStorage struct {
	client *redis.Client
}

// NewRedisStorage creates a new RedisStorage instance and verifies the connection.
// A positive timeout bounds dialing and every read and write.
func NewRedisStorage(ctx context.Context, redisURL string, timeout time.Duration) (*RedisStorage, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	if timeout > 0 {
		opts.DialTimeout = timeout
		opts.ReadTimeout = timeout
		opts.WriteTimeout = timeout
	}

	client := redis.NewClient(opts)

	// Test connection
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisStorage{client: client}, nil
}

// Get implements KVStore.Get
func (s *RedisStorage) Get(ctx context.Context, key string) (string, error) {
	value, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to get key from Redis: %w", err)
	}

	return value, nil
}

// SetNX implements KVStore.SetNX with a single SET NX PX command
func (s *RedisStorage) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, key, value, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to set key in Redis: %w", err)
	}

	return ok, nil
}

// Set implements KVStore.Set
func (s *RedisStorage) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store key in Redis: %w", err)
	}

	return nil
}

// Expire implements KVStore.Expire
func (s *RedisStorage) Expire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := s.client.Expire(ctx, key, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to refresh TTL in Redis: %w", err)
	}

	return ok, nil
}

// Exists implements KVStore.Exists
func (s *RedisStorage) Exists(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check key in Redis: %w", err)
	}

	return n > 0, nil
}

// Ping implements KVStore.Ping
func (s *RedisStorage) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis client
func (s *RedisStorage) Close() error {
	return s.client.Close()
}
