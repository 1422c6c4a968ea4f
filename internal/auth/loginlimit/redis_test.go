package loginlimit

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) *Redis {
	t.Helper()
	mr := miniredis.RunT(t)
	return NewRedis(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
}

func TestRedisBlocksAfterMaxAttempts(t *testing.T) {
	r := newTestRedis(t)
	ctx := context.Background()

	for i := 1; i <= MaxAttempts; i++ {
		n, err := r.Fail(ctx, "ana")
		require.NoError(t, err)
		require.Equal(t, i, n)
	}
	blocked, err := r.Blocked(ctx, "ana")
	require.NoError(t, err)
	require.True(t, blocked)

	blocked, err = r.Blocked(ctx, "bruno")
	require.NoError(t, err)
	require.False(t, blocked)
}

func TestRedisResetAndMissingKey(t *testing.T) {
	r := newTestRedis(t)
	ctx := context.Background()

	// No failures yet: key absent, not blocked.
	blocked, err := r.Blocked(ctx, "ana")
	require.NoError(t, err)
	require.False(t, blocked)

	for i := 0; i < MaxAttempts; i++ {
		_, err := r.Fail(ctx, "ana")
		require.NoError(t, err)
	}
	require.NoError(t, r.Reset(ctx, "ana"))

	blocked, err = r.Blocked(ctx, "ana")
	require.NoError(t, err)
	require.False(t, blocked)
}
