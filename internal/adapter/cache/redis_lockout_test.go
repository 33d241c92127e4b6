package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*RedisLockoutStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisLockoutStore(client, 3, time.Minute), mr
}

func TestLockoutThreshold(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	locked, err := store.Locked(ctx, "alice@example.com")
	require.NoError(t, err)
	require.False(t, locked)

	for i := 0; i < 2; i++ {
		require.NoError(t, store.RecordFailure(ctx, "alice@example.com"))
		locked, err = store.Locked(ctx, "alice@example.com")
		require.NoError(t, err)
		require.False(t, locked)
	}

	require.NoError(t, store.RecordFailure(ctx, "alice@example.com"))
	locked, err = store.Locked(ctx, "alice@example.com")
	require.NoError(t, err)
	require.True(t, locked)
}

func TestLockoutClear(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, store.RecordFailure(ctx, "alice@example.com"))
	}
	require.NoError(t, store.Clear(ctx, "alice@example.com"))

	locked, err := store.Locked(ctx, "alice@example.com")
	require.NoError(t, err)
	require.False(t, locked)
}

func TestLockoutWindowExpires(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, store.RecordFailure(ctx, "alice@example.com"))
	}

	mr.FastForward(2 * time.Minute)

	locked, err := store.Locked(ctx, "alice@example.com")
	require.NoError(t, err)
	require.False(t, locked)
}

func TestLockoutKeysAreScoped(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, store.RecordFailure(ctx, "alice@example.com"))
	}

	locked, err := store.Locked(ctx, "bob@example.com")
	require.NoError(t, err)
	require.False(t, locked)
}
