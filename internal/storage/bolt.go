package storage

import (
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hohotang/shortlink-core/internal/clock"
	"go.etcd.io/bbolt"
)

var (
	entriesBucketName = []byte("entries")
	// expireBucketName maps a key to its big-endian unix-nano deadline. Keys without one never expire.
	expireBucketName = []byte("expire")
)

// BoltStorage implements KVStore with an embedded bbolt file.
// bbolt allows a single writer process, so it only suits single instance deployments.
type BoltStorage struct {
	db      *bbolt.DB
	clock   clock.Clock
	sweeper *sweeper
}

// NewBoltStorage opens or creates the database file at path
func NewBoltStorage(path string, sweepInterval time.Duration, c clock.Clock) (*BoltStorage, error) {
	if c == nil {
		c = clock.System{}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create bolt directory: %w", err)
	}

	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(entriesBucketName); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(expireBucketName)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create bolt buckets: %w", err)
	}

	s := &BoltStorage{db: db, clock: c}
	s.sweeper = startSweeper("bolt", sweepInterval, s.Sweep)

	return s, nil
}

func encodeDeadline(t time.Time) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(t.UnixNano()))
	return buf
}

func decodeDeadline(b []byte) time.Time {
	return time.Unix(0, int64(binary.BigEndian.Uint64(b)))
}

// live reports whether key holds an unexpired value inside tx
func (s *BoltStorage) live(tx *bbolt.Tx, key []byte) bool {
	if tx.Bucket(entriesBucketName).Get(key) == nil {
		return false
	}
	if ddl := tx.Bucket(expireBucketName).Get(key); ddl != nil {
		return s.clock.Now().Before(decodeDeadline(ddl))
	}
	return true
}

func (s *BoltStorage) putDeadline(tx *bbolt.Tx, key []byte, ttl time.Duration) error {
	expire := tx.Bucket(expireBucketName)
	if ttl <= 0 {
		return expire.Delete(key)
	}
	return expire.Put(key, encodeDeadline(s.clock.Now().Add(ttl)))
}

func (s *BoltStorage) put(tx *bbolt.Tx, key []byte, value string, ttl time.Duration) error {
	if err := tx.Bucket(entriesBucketName).Put(key, []byte(value)); err != nil {
		return err
	}
	return s.putDeadline(tx, key, ttl)
}

// Get implements KVStore.Get
func (s *BoltStorage) Get(_ context.Context, key string) (string, error) {
	var (
		value string
		found bool
	)
	err := s.db.View(func(tx *bbolt.Tx) error {
		k := []byte(key)
		if !s.live(tx, k) {
			return nil
		}
		// bbolt values are only valid inside the transaction
		value = string(tx.Bucket(entriesBucketName).Get(k))
		found = true
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to get key from bolt: %w", err)
	}
	if !found {
		return "", ErrNotFound
	}

	return value, nil
}

// SetNX implements KVStore.SetNX inside a single write transaction
func (s *BoltStorage) SetNX(_ context.Context, key, value string, ttl time.Duration) (bool, error) {
	var stored bool
	err := s.db.Update(func(tx *bbolt.Tx) error {
		k := []byte(key)
		if s.live(tx, k) {
			return nil
		}
		if err := s.put(tx, k, value, ttl); err != nil {
			return err
		}
		stored = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to set key in bolt: %w", err)
	}

	return stored, nil
}

// Set implements KVStore.Set
func (s *BoltStorage) Set(_ context.Context, key, value string, ttl time.Duration) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		return s.put(tx, []byte(key), value, ttl)
	})
	if err != nil {
		return fmt.Errorf("failed to store key in bolt: %w", err)
	}

	return nil
}

// Expire implements KVStore.Expire
func (s *BoltStorage) Expire(_ context.Context, key string, ttl time.Duration) (bool, error) {
	var refreshed bool
	err := s.db.Update(func(tx *bbolt.Tx) error {
		k := []byte(key)
		if !s.live(tx, k) {
			return nil
		}
		if err := s.putDeadline(tx, k, ttl); err != nil {
			return err
		}
		refreshed = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to refresh TTL in bolt: %w", err)
	}

	return refreshed, nil
}

// Exists implements KVStore.Exists
func (s *BoltStorage) Exists(_ context.Context, key string) (bool, error) {
	var exists bool
	err := s.db.View(func(tx *bbolt.Tx) error {
		exists = s.live(tx, []byte(key))
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to check key in bolt: %w", err)
	}

	return exists, nil
}

// Sweep deletes every expired key from both buckets
func (s *BoltStorage) Sweep(_ context.Context) (int64, error) {
	var removed int64
	err := s.db.Update(func(tx *bbolt.Tx) error {
		now := s.clock.Now()
		expire := tx.Bucket(expireBucketName)
		entries := tx.Bucket(entriesBucketName)

		var expired [][]byte
		cursor := expire.Cursor()
		for key, ddl := cursor.First(); key != nil; key, ddl = cursor.Next() {
			if !now.Before(decodeDeadline(ddl)) {
				// deleting under a live cursor skips entries
				expired = append(expired, append([]byte(nil), key...))
			}
		}

		for _, key := range expired {
			if err := entries.Delete(key); err != nil {
				return err
			}
			if err := expire.Delete(key); err != nil {
				return err
			}
			removed++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to sweep bolt: %w", err)
	}

	return removed, nil
}

// Ping reports an error once the database is closed
func (s *BoltStorage) Ping(_ context.Context) error {
	return s.db.View(func(*bbolt.Tx) error { return nil })
}

// Close stops the sweep and closes the database file
func (s *BoltStorage) Close() error {
	s.sweeper.stop()
	return s.db.Close()
}
