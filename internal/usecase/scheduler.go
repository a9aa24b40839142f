package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"RegionFeed/internal/domain/models"
	drepo "RegionFeed/internal/domain/repository"
	"RegionFeed/pkg/logger"
	"RegionFeed/pkg/util"
)

var (
	// ErrSourceFetch wraps every data source failure.
	ErrSourceFetch = errors.New("source fetch failed")
	// ErrFetchInProgress is returned for a trigger that arrives mid-fetch.
	ErrFetchInProgress = errors.New("fetch already in progress")
	// ErrLeaseHeld means another replica owns the fetch lease.
	ErrLeaseHeld = errors.New("fetch lease held elsewhere")
)

// SchedulerState is the fetch state machine: idle -> fetching -> idle.
type SchedulerState int32

const (
	StateIdle SchedulerState = iota
	StateFetching
)

func (s SchedulerState) String() string {
	if s == StateFetching {
		return "fetching"
	}
	return "idle"
}

// SchedulerConfig holds scheduling parameters.
type SchedulerConfig struct {
	Interval     time.Duration
	FetchTimeout time.Duration
	LeaseTTL     time.Duration
}

// SchedulerStatus is a point-in-time view for health reporting.
type SchedulerStatus struct {
	State       string    `json:"state"`
	StartedAt   time.Time `json:"startedAt"`
	LastSuccess time.Time `json:"lastSuccess,omitempty"`
	LastError   string    `json:"lastError,omitempty"`
	NextFetch   time.Time `json:"nextFetch"`
	Fetches     uint64    `json:"fetches"`
	Failures    uint64    `json:"failures"`
}

// Scheduler fetches from the data source once at start and then on a ticker
// anchored at the start time. At most one fetch runs at a time; triggers that
// arrive mid-fetch are skipped.
type Scheduler struct {
	src     drepo.DataSource
	admit   *Admitter
	lease   drepo.FetchLease
	cfg     SchedulerConfig
	log     *logger.Logger
	metrics drepo.Metrics
	now     func() time.Time

	state atomic.Int32

	mu          sync.Mutex
	startedAt   time.Time
	lastSuccess time.Time
	lastErr     error
	fetches     uint64
	failures    uint64

	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running atomic.Bool
}

// NewScheduler creates a scheduler. lease may be nil for a single replica.
func NewScheduler(src drepo.DataSource, admit *Admitter, lease drepo.FetchLease, cfg SchedulerConfig, log *logger.Logger, metrics drepo.Metrics) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Hour
	}
	if cfg.LeaseTTL <= 0 {
		// Expire slightly before the next tick so the holder can renew.
		cfg.LeaseTTL = cfg.Interval * 9 / 10
	}
	return &Scheduler{
		src:     src,
		admit:   admit,
		lease:   lease,
		cfg:     cfg,
		log:     log.With(logger.String("component", "scheduler")),
		metrics: metrics,
		now:     time.Now,
	}
}

// Start runs the first fetch in the background and begins ticking.
func (s *Scheduler) Start(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return fmt.Errorf("scheduler already started")
	}
	ctx, s.cancel = context.WithCancel(ctx)

	s.mu.Lock()
	s.startedAt = s.now()
	s.mu.Unlock()

	s.log.Info("scheduler started", logger.Duration("interval_ms", s.cfg.Interval))

	s.wg.Add(1)
	go s.loop(ctx)
	return nil
}

func (s *Scheduler) loop(ctx context.Context) {
	defer s.wg.Done()

	s.trigger(ctx, "start")

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.trigger(ctx, "tick")
		}
	}
}

// trigger starts a fetch without blocking the ticker.
func (s *Scheduler) trigger(ctx context.Context, reason string) {
	if !s.state.CompareAndSwap(int32(StateIdle), int32(StateFetching)) {
		s.skip(reason)
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.state.Store(int32(StateIdle))
		_ = s.fetch(ctx, reason)
	}()
}

// FetchNow runs one fetch synchronously. It returns ErrFetchInProgress if a
// fetch is already running.
func (s *Scheduler) FetchNow(ctx context.Context) error {
	if !s.state.CompareAndSwap(int32(StateIdle), int32(StateFetching)) {
		s.skip("manual")
		return ErrFetchInProgress
	}
	defer s.state.Store(int32(StateIdle))
	return s.fetch(ctx, "manual")
}

func (s *Scheduler) skip(reason string) {
	s.metrics.RecordSkippedFetch()
	s.log.Warn("fetch skipped, previous fetch still running", logger.String("trigger", reason))
}

func (s *Scheduler) fetch(ctx context.Context, reason string) error {
	if s.lease != nil {
		ok, err := s.lease.Acquire(ctx, s.cfg.LeaseTTL)
		switch {
		case err != nil:
			// An unreachable lease store does not stop fetching.
			s.metrics.RecordError("lease")
			s.log.Warn("fetch lease unavailable, fetching anyway", logger.Error(err))
		case !ok:
			s.log.Info("fetch lease held by another replica", logger.String("trigger", reason))
			return ErrLeaseHeld
		}
	}

	start := s.now()
	rows, err := s.query(ctx)
	s.metrics.RecordLatency("fetch", time.Since(start).Seconds())
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrSourceFetch, err)
		s.metrics.RecordError("source_fetch")
		s.record(err)
		s.log.Error("fetch failed, keeping current snapshot",
			logger.String("trigger", reason),
			logger.Error(err),
			logger.Time("next_fetch", s.nextFetch()),
		)
		if s.lease != nil {
			if rerr := s.lease.Release(context.WithoutCancel(ctx)); rerr != nil {
				s.log.Warn("release fetch lease", logger.Error(rerr))
			}
		}
		return err
	}

	snap := s.admit.Admit(StageFetch, rows, s.now())
	s.record(nil)
	s.log.Info("snapshot updated",
		logger.String("trigger", reason),
		logger.Uint64("version", snap.Version()),
		logger.Int("rows", len(rows)),
		logger.Int("records", snap.Len()),
		logger.Duration("took_ms", time.Since(start)),
		logger.Time("next_fetch", s.nextFetch()),
	)
	return nil
}

// query calls the data source with the fetch timeout and turns a panic into
// an error.
func (s *Scheduler) query(ctx context.Context) (rows []models.Row, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in data source: %v", r)
		}
	}()
	if s.cfg.FetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.FetchTimeout)
		defer cancel()
	}
	return s.src.Fetch(ctx)
}

func (s *Scheduler) record(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetches++
	if err != nil {
		s.failures++
		s.lastErr = err
		return
	}
	s.lastErr = nil
	s.lastSuccess = s.now()
}

func (s *Scheduler) nextFetch() time.Time {
	s.mu.Lock()
	started := s.startedAt
	s.mu.Unlock()
	if started.IsZero() {
		return time.Time{}
	}
	return util.NextTick(started, s.now(), s.cfg.Interval)
}

// State reports whether a fetch is running.
func (s *Scheduler) State() SchedulerState {
	return SchedulerState(s.state.Load())
}

func (s *Scheduler) Status() SchedulerStatus {
	next := s.nextFetch()
	s.mu.Lock()
	defer s.mu.Unlock()
	st := SchedulerStatus{
		State:       s.State().String(),
		StartedAt:   s.startedAt,
		LastSuccess: s.lastSuccess,
		NextFetch:   next,
		Fetches:     s.fetches,
		Failures:    s.failures,
	}
	if s.lastErr != nil {
		st.LastError = s.lastErr.Error()
	}
	return st
}

// Stop cancels the schedule and waits for an in-flight fetch to return.
func (s *Scheduler) Stop(ctx context.Context) error {
	if !s.running.Load() || s.cancel == nil {
		return nil
	}
	s.cancel()
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		s.log.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
