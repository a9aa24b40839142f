package repository

import (
	"context"
	"time"

	"RegionFeed/internal/domain/models"
)

// DataSource runs the aggregate query and returns rows in source order.
type DataSource interface {
	Fetch(ctx context.Context) ([]models.Row, error)
	Close() error
}

// SnapshotListener is told about every snapshot installed as current.
type SnapshotListener interface {
	OnSnapshot(s *models.Snapshot)
}

// SnapshotPublisher forwards installed snapshots to other replicas.
type SnapshotPublisher interface {
	Publish(ctx context.Context, s *models.Snapshot) error
	Close() error
}

// FetchLease serialises fetches across replicas. Acquire reports false when
// another holder owns the lease.
type FetchLease interface {
	Acquire(ctx context.Context, ttl time.Duration) (bool, error)
	Release(ctx context.Context) error
}

// RoleCatalog is the read-only role list.
type RoleCatalog interface {
	List(ctx context.Context) ([]models.Role, error)
	Get(ctx context.Context, id int) (*models.Role, error)
}

type Metrics interface {
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
	RecordRejected(stage string, n int)
	RecordSnapshot(version uint64, records int)
	RecordSubscribers(n int)
	RecordSkippedFetch()
}
