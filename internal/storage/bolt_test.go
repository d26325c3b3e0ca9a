package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/hohotang/shortlink-core/internal/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBolt(t *testing.T, path string, c clock.Clock) *BoltStorage {
	t.Helper()
	store, err := NewBoltStorage(path, 0, c)
	require.NoError(t, err)
	return store
}

func TestBoltStorage_Contract(t *testing.T) {
	runContractSuite(t, func(t *testing.T) harness {
		fake := clock.NewFake(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
		store := newTestBolt(t, filepath.Join(t.TempDir(), "shortlink.db"), fake)
		t.Cleanup(func() { _ = store.Close() })
		return harness{store: store, advance: fake.Advance}
	})
}

func TestBoltStorage_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "shortlink.db")
	ctx := context.Background()

	store := newTestBolt(t, path, nil)
	require.NoError(t, store.Set(ctx, "su:abc", "/foo", time.Hour))
	require.NoError(t, store.Close())

	store = newTestBolt(t, path, nil)
	defer store.Close()

	value, err := store.Get(ctx, "su:abc")
	require.NoError(t, err)
	assert.Equal(t, "/foo", value)
}

func TestBoltStorage_Sweep(t *testing.T) {
	fake := clock.NewFake(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	store := newTestBolt(t, filepath.Join(t.TempDir(), "shortlink.db"), fake)
	defer store.Close()
	ctx := context.Background()

	for _, key := range []string{"a", "b", "c"} {
		require.NoError(t, store.Set(ctx, key, "v", time.Minute))
	}
	require.NoError(t, store.Set(ctx, "kept", "v", time.Hour))
	require.NoError(t, store.Set(ctx, "forever", "v", 0))

	fake.Advance(2 * time.Minute)

	removed, err := store.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), removed)

	for _, key := range []string{"kept", "forever"} {
		exists, err := store.Exists(ctx, key)
		require.NoError(t, err)
		assert.True(t, exists, key)
	}
}

func TestBoltStorage_PingAfterClose(t *testing.T) {
	store := newTestBolt(t, filepath.Join(t.TempDir(), "shortlink.db"), nil)
	require.NoError(t, store.Close())

	assert.Error(t, store.Ping(context.Background()))
}
