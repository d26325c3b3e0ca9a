package storage

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// harness binds a backend to the contract suite. advance moves the backend's notion of time
// forward; a nil advance skips the expiry cases.
type harness struct {
	store   KVStore
	advance func(d time.Duration)
}

const contractTTL = 10 * time.Second

// runContractSuite checks the behaviour every KVStore backend must share
func runContractSuite(t *testing.T, newHarness func(t *testing.T) harness) {
	t.Run("GetMissing", func(t *testing.T) {
		h := newHarness(t)
		_, err := h.store.Get(context.Background(), "missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("SetThenGet", func(t *testing.T) {
		h := newHarness(t)
		ctx := context.Background()

		require.NoError(t, h.store.Set(ctx, "k", "/foo?bar=1", contractTTL))
		value, err := h.store.Get(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, "/foo?bar=1", value)

		require.NoError(t, h.store.Set(ctx, "k", "/other", contractTTL))
		value, err = h.store.Get(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, "/other", value)
	})

	t.Run("SetNXOnlyWhenAbsent", func(t *testing.T) {
		h := newHarness(t)
		ctx := context.Background()

		ok, err := h.store.SetNX(ctx, "k", "first", contractTTL)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = h.store.SetNX(ctx, "k", "second", contractTTL)
		require.NoError(t, err)
		assert.False(t, ok)

		value, err := h.store.Get(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, "first", value)
	})

	t.Run("ExistsAndExpireOnMissing", func(t *testing.T) {
		h := newHarness(t)
		ctx := context.Background()

		exists, err := h.store.Exists(ctx, "k")
		require.NoError(t, err)
		assert.False(t, exists)

		refreshed, err := h.store.Expire(ctx, "k", contractTTL)
		require.NoError(t, err)
		assert.False(t, refreshed)

		require.NoError(t, h.store.Set(ctx, "k", "v", contractTTL))
		exists, err = h.store.Exists(ctx, "k")
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("ConcurrentSetNXHasOneWinner", func(t *testing.T) {
		h := newHarness(t)
		ctx := context.Background()

		const writers = 16
		var (
			wg   sync.WaitGroup
			wins int32
		)
		for i := 0; i < writers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				ok, err := h.store.SetNX(ctx, "contended", "v", contractTTL)
				assert.NoError(t, err)
				if ok {
					atomic.AddInt32(&wins, 1)
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, int32(1), wins)
	})

	t.Run("Ping", func(t *testing.T) {
		h := newHarness(t)
		assert.NoError(t, h.store.Ping(context.Background()))
	})

	t.Run("EntriesExpire", func(t *testing.T) {
		h := newHarness(t)
		if h.advance == nil {
			t.Skip("backend time cannot be advanced")
		}
		ctx := context.Background()

		require.NoError(t, h.store.Set(ctx, "k", "v", contractTTL))
		h.advance(contractTTL + time.Second)

		_, err := h.store.Get(ctx, "k")
		assert.ErrorIs(t, err, ErrNotFound)

		exists, err := h.store.Exists(ctx, "k")
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("SetNXReplacesExpired", func(t *testing.T) {
		h := newHarness(t)
		if h.advance == nil {
			t.Skip("backend time cannot be advanced")
		}
		ctx := context.Background()

		ok, err := h.store.SetNX(ctx, "k", "old", contractTTL)
		require.NoError(t, err)
		require.True(t, ok)

		h.advance(contractTTL + time.Second)

		ok, err = h.store.SetNX(ctx, "k", "new", contractTTL)
		require.NoError(t, err)
		assert.True(t, ok)

		value, err := h.store.Get(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, "new", value)
	})

	t.Run("ExpireSlidesDeadline", func(t *testing.T) {
		h := newHarness(t)
		if h.advance == nil {
			t.Skip("backend time cannot be advanced")
		}
		ctx := context.Background()

		require.NoError(t, h.store.Set(ctx, "k", "v", contractTTL))
		h.advance(6 * time.Second)

		refreshed, err := h.store.Expire(ctx, "k", contractTTL)
		require.NoError(t, err)
		assert.True(t, refreshed)

		// past the original deadline, within the refreshed one
		h.advance(6 * time.Second)
		value, err := h.store.Get(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, "v", value)

		h.advance(5 * time.Second)
		_, err = h.store.Get(ctx, "k")
		assert.ErrorIs(t, err, ErrNotFound)

		refreshed, err = h.store.Expire(ctx, "k", contractTTL)
		require.NoError(t, err)
		assert.False(t, refreshed)
	})
}
