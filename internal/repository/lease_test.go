package repository

import (
	"context"
	"testing"
	"time"

	"RegionFeed/pkg/cache"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLockLeaseExclusive(t *testing.T) {
	ctx := context.Background()
	mc := cache.NewMemoryCache()
	a := NewLockLease(mc, "fetch")
	b := NewLockLease(mc, "fetch")
	require.NotEqual(t, a.Owner(), b.Owner())

	ok, err := a.Acquire(ctx, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = b.Acquire(ctx, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	// b never held it; releasing is a no-op and does not free a's lease.
	require.NoError(t, b.Release(ctx))
	ok, _ = b.Acquire(ctx, time.Minute)
	assert.False(t, ok)

	require.NoError(t, a.Release(ctx))
	ok, err = b.Acquire(ctx, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}
