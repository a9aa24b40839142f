package usecase

import (
	"context"
	"sync"
	"time"

	"RegionFeed/internal/domain/models"
)

type fakeSource struct {
	mu    sync.Mutex
	rows  []models.Row
	err   error
	calls int
	gate  chan struct{}
	panic bool
}

func (s *fakeSource) Fetch(ctx context.Context) ([]models.Row, error) {
	s.mu.Lock()
	s.calls++
	gate, rows, err, p := s.gate, s.rows, s.err, s.panic
	s.mu.Unlock()

	if p {
		panic("driver exploded")
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return rows, err
}

func (s *fakeSource) Close() error { return nil }

func (s *fakeSource) set(rows []models.Row, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows, s.err = rows, err
}

func (s *fakeSource) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type recordingListener struct {
	mu    sync.Mutex
	snaps []*models.Snapshot
}

func (l *recordingListener) OnSnapshot(s *models.Snapshot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.snaps = append(l.snaps, s)
}

func (l *recordingListener) versions() []uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]uint64, 0, len(l.snaps))
	for _, s := range l.snaps {
		out = append(out, s.Version())
	}
	return out
}

type panickingListener struct{}

func (panickingListener) OnSnapshot(*models.Snapshot) { panic("listener bug") }

func row(code, street, category string, amount, count any) models.Row {
	return models.Row{
		models.FieldRegionCode:    code,
		models.FieldStreetName:    street,
		models.FieldCategoryName:  category,
		models.FieldSettledAmount: amount,
		models.FieldSettledCount:  count,
	}
}

var t0 = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
