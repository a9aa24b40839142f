package regionstate

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"RegionFeed/internal/domain/models"
)

var (
	ErrInvalidRegion = errors.New("invalid region")
	ErrInvalidView   = errors.New("invalid view mode")
)

// Store owns the committed dataset and the filter, and republishes a fresh
// ViewState after every change. Readers get the latest complete view without
// locking.
type Store struct {
	mu         sync.Mutex
	records    []models.Record
	capturedAt time.Time
	updatedAt  time.Time
	filter     Filter
	status     models.ConnectionStatus
	listeners  []func(*ViewState)

	view atomic.Pointer[ViewState]
	now  func() time.Time
}

func NewStore() *Store {
	s := &Store{
		filter: DefaultFilter(),
		status: models.StatusDisconnected,
		now:    time.Now,
	}
	s.mu.Lock()
	s.publishLocked()
	s.mu.Unlock()
	return s
}

// View returns the latest published view.
func (s *Store) View() *ViewState { return s.view.Load() }

// OnChange registers fn to receive every published view. fn runs with the
// store locked and must not call back into it.
func (s *Store) OnChange(fn func(*ViewState)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Commit replaces the dataset. capturedAt may be zero.
func (s *Store) Commit(records []models.Record, capturedAt time.Time) {
	cp := make([]models.Record, len(records))
	copy(cp, records)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = cp
	s.capturedAt = capturedAt
	s.updatedAt = s.now()
	s.publishLocked()
}

// SetRegion selects ALL or a known district code.
func (s *Store) SetRegion(region string) error {
	if !models.ValidRegion(region) {
		return fmt.Errorf("%w: %q", ErrInvalidRegion, region)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.filter.Region == region {
		return nil
	}
	s.filter.Region = region
	s.publishLocked()
	return nil
}

func (s *Store) SetView(mode ViewMode) error {
	if mode != ViewDistricts && mode != ViewStreets {
		return fmt.Errorf("%w: %q", ErrInvalidView, mode)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filter.View = mode
	s.publishLocked()
	return nil
}

// SetSelectedDistrict chooses the district drilled into; "" clears it.
func (s *Store) SetSelectedDistrict(code string) error {
	if code != "" && !models.KnownDistrict(code) {
		return fmt.Errorf("%w: %q", ErrInvalidRegion, code)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filter.District = code
	s.publishLocked()
	return nil
}

// SetStatus mirrors the feed connection status into the view.
func (s *Store) SetStatus(st models.ConnectionStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == st {
		return
	}
	s.status = st
	s.publishLocked()
}

func (s *Store) publishLocked() {
	v := Derive(s.records, s.filter)
	v.Status = s.status
	v.CapturedAt = s.capturedAt
	v.UpdatedAt = s.updatedAt
	s.view.Store(&v)
	for _, fn := range s.listeners {
		fn(&v)
	}
}
