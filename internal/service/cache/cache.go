// Package cache holds the process-wide current snapshot.
package cache

import (
	"sync"
	"sync/atomic"
	"time"

	"RegionFeed/internal/domain/models"
)

// SnapshotCache owns the current snapshot. Writers are serialised; readers
// never block and always see a complete snapshot.
type SnapshotCache struct {
	mu      sync.Mutex
	version uint64
	cur     atomic.Pointer[models.Snapshot]
}

func NewSnapshotCache() *SnapshotCache {
	return &SnapshotCache{}
}

// Current returns the current snapshot, or nil before the first install.
func (c *SnapshotCache) Current() *models.Snapshot {
	return c.cur.Load()
}

// Install builds the next-version snapshot from records and makes it current.
func (c *SnapshotCache) Install(records []models.Record, capturedAt time.Time) *models.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.version++
	s := models.NewSnapshot(c.version, capturedAt, records)
	c.cur.Store(s)
	return s
}

// Version is the version of the current snapshot, 0 if none.
func (c *SnapshotCache) Version() uint64 {
	if s := c.cur.Load(); s != nil {
		return s.Version()
	}
	return 0
}
