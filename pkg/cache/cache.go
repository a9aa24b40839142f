package cache

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotOwner = errors.New("cache: lock held by another owner")
)

// Locker provides expiring, owner-tagged locks.
type Locker interface {
	// TryLock acquires key for owner unless someone else holds it.
	TryLock(ctx context.Context, key, owner string, ttl time.Duration) (bool, error)
	// Unlock releases key if owner still holds it.
	Unlock(ctx context.Context, key, owner string) error
	Close() error
}
