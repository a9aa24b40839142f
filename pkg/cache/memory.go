package cache

import (
	"context"
	"sync"
	"time"
)

type lockEntry struct {
	owner    string
	expireAt time.Time
}

// MemoryCache implements Locker in process memory.
type MemoryCache struct {
	mutex sync.Mutex
	locks map[string]lockEntry
	now   func() time.Time
}

// NewMemoryCache creates an in-memory locker.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		locks: make(map[string]lockEntry),
		now:   time.Now,
	}
}

func (mc *MemoryCache) TryLock(_ context.Context, key, owner string, ttl time.Duration) (bool, error) {
	mc.mutex.Lock()
	defer mc.mutex.Unlock()

	now := mc.now()
	if e, ok := mc.locks[key]; ok && now.Before(e.expireAt) && e.owner != owner {
		return false, nil
	}
	mc.locks[key] = lockEntry{owner: owner, expireAt: now.Add(ttl)}
	return true, nil
}

func (mc *MemoryCache) Unlock(_ context.Context, key, owner string) error {
	mc.mutex.Lock()
	defer mc.mutex.Unlock()

	e, ok := mc.locks[key]
	if !ok || !mc.now().Before(e.expireAt) {
		delete(mc.locks, key)
		return nil
	}
	if e.owner != owner {
		return ErrNotOwner
	}
	delete(mc.locks, key)
	return nil
}

// Close is a no-op.
func (mc *MemoryCache) Close() error {
	return nil
}
