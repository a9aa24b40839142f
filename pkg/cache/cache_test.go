package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLock(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()
	now := time.Unix(1000, 0)
	mc.now = func() time.Time { return now }

	ok, err := mc.TryLock(ctx, "fetch", "a", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = mc.TryLock(ctx, "fetch", "b", time.Minute)
	assert.False(t, ok, "held by a")

	ok, _ = mc.TryLock(ctx, "fetch", "a", time.Minute)
	assert.True(t, ok, "re-entrant for owner")

	assert.ErrorIs(t, mc.Unlock(ctx, "fetch", "b"), ErrNotOwner)
	require.NoError(t, mc.Unlock(ctx, "fetch", "a"))

	ok, _ = mc.TryLock(ctx, "fetch", "b", time.Minute)
	assert.True(t, ok)

	now = now.Add(2 * time.Minute)
	ok, _ = mc.TryLock(ctx, "fetch", "a", time.Minute)
	assert.True(t, ok, "expired lock can be taken")
	require.NoError(t, mc.Close())
}

func TestRedisUnreachable(t *testing.T) {
	_, err := NewRedisCache(WithRedisAddr("127.0.0.1:1"), WithRedisPingTimeout(200*time.Millisecond))
	assert.Error(t, err)
}
