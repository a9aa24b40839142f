package repository

import (
	"context"
	"errors"
	"time"

	"RegionFeed/internal/domain/repository"
	"RegionFeed/pkg/cache"

	"github.com/google/uuid"
)

// LockLease is a FetchLease over a cache.Locker. Each lease carries its own
// owner token so a replica can only release what it acquired.
type LockLease struct {
	locker cache.Locker
	key    string
	owner  string
}

func NewLockLease(locker cache.Locker, key string) *LockLease {
	return &LockLease{locker: locker, key: key, owner: uuid.NewString()}
}

func (l *LockLease) Owner() string { return l.owner }

func (l *LockLease) Acquire(ctx context.Context, ttl time.Duration) (bool, error) {
	return l.locker.TryLock(ctx, l.key, l.owner, ttl)
}

// Release gives the lease back. A lease that already expired and was taken
// by another replica is not an error.
func (l *LockLease) Release(ctx context.Context) error {
	err := l.locker.Unlock(ctx, l.key, l.owner)
	if errors.Is(err, cache.ErrNotOwner) {
		return nil
	}
	return err
}

var _ repository.FetchLease = (*LockLease)(nil)
