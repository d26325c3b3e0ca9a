package storage

import (
	"context"
	"sync"
	"time"

	"github.com/hohotang/shortlink-core/internal/clock"
)

type memoryEntry struct {
	value     string
	expiresAt time.Time // zero means no expiry
}

func (e memoryEntry) live(now time.Time) bool {
	return e.expiresAt.IsZero() || now.Before(e.expiresAt)
}

// MemoryStorage implements KVStore with an in-memory map.
// It is not shared between processes, so it only suits development and single instance setups.
type MemoryStorage struct {
	entries map[string]memoryEntry
	mutex   sync.Mutex
	clock   clock.Clock
	sweeper *sweeper
}

// NewMemoryStorage creates a new MemoryStorage instance. Expired entries are dropped lazily on access
// and, when sweepInterval is positive, by a background sweep.
func NewMemoryStorage(c clock.Clock, sweepInterval time.Duration) *MemoryStorage {
	if c == nil {
		c = clock.System{}
	}

	s := &MemoryStorage{
		entries: make(map[string]memoryEntry),
		clock:   c,
	}
	s.sweeper = startSweeper("memory", sweepInterval, s.Sweep)

	return s
}

func (s *MemoryStorage) deadline(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return s.clock.Now().Add(ttl)
}

// lookup returns the live entry for key. Callers must hold the mutex.
func (s *MemoryStorage) lookup(key string) (memoryEntry, bool) {
	e, ok := s.entries[key]
	if !ok {
		return memoryEntry{}, false
	}
	if !e.live(s.clock.Now()) {
		delete(s.entries, key)
		return memoryEntry{}, false
	}
	return e, true
}

// Get implements KVStore.Get
func (s *MemoryStorage) Get(_ context.Context, key string) (string, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	e, ok := s.lookup(key)
	if !ok {
		return "", ErrNotFound
	}

	return e.value, nil
}

// SetNX implements KVStore.SetNX
func (s *MemoryStorage) SetNX(_ context.Context, key, value string, ttl time.Duration) (bool, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, ok := s.lookup(key); ok {
		return false, nil
	}

	s.entries[key] = memoryEntry{value: value, expiresAt: s.deadline(ttl)}
	return true, nil
}

// Set implements KVStore.Set
func (s *MemoryStorage) Set(_ context.Context, key, value string, ttl time.Duration) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.entries[key] = memoryEntry{value: value, expiresAt: s.deadline(ttl)}
	return nil
}

// Expire implements KVStore.Expire
func (s *MemoryStorage) Expire(_ context.Context, key string, ttl time.Duration) (bool, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	e, ok := s.lookup(key)
	if !ok {
		return false, nil
	}

	e.expiresAt = s.deadline(ttl)
	s.entries[key] = e
	return true, nil
}

// Exists implements KVStore.Exists
func (s *MemoryStorage) Exists(_ context.Context, key string) (bool, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	_, ok := s.lookup(key)
	return ok, nil
}

// Sweep removes every expired entry
func (s *MemoryStorage) Sweep(_ context.Context) (int64, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	now := s.clock.Now()
	var removed int64
	for key, e := range s.entries {
		if !e.live(now) {
			delete(s.entries, key)
			removed++
		}
	}

	return removed, nil
}

// Len returns the number of stored entries, including expired ones not yet swept
func (s *MemoryStorage) Len() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return len(s.entries)
}

// Ping always succeeds for memory storage
func (s *MemoryStorage) Ping(_ context.Context) error {
	return nil
}

// Close stops the background sweep
func (s *MemoryStorage) Close() error {
	s.sweeper.stop()
	return nil
}
