package usecase

import (
	"fmt"
	"sync"
	"time"

	"RegionFeed/internal/domain/models"
	drepo "RegionFeed/internal/domain/repository"
	"RegionFeed/internal/services/rowcheck"
	"RegionFeed/pkg/logger"
)

// SnapshotStore holds the current snapshot.
type SnapshotStore interface {
	Current() *models.Snapshot
	Install(records []models.Record, capturedAt time.Time) *models.Snapshot
}

// Admission stages.
const (
	StageFetch = "fetch"
	StageRelay = "relay"
)

type listener struct {
	stage string
	l     drepo.SnapshotListener
}

// Admitter is the single entry point for new data: rows are validated, the
// survivors become the next snapshot and listeners are notified. Admissions
// are serialised, so listeners observe versions in ascending order.
type Admitter struct {
	mu        sync.Mutex
	store     SnapshotStore
	listeners []listener
	log       *logger.Logger
	metrics   drepo.Metrics
}

func NewAdmitter(store SnapshotStore, log *logger.Logger, metrics drepo.Metrics) *Admitter {
	return &Admitter{
		store:   store,
		log:     log.With(logger.String("component", "admitter")),
		metrics: metrics,
	}
}

// Subscribe adds l to the listeners told about every installed snapshot.
// It must be called before the first admission.
func (a *Admitter) Subscribe(l drepo.SnapshotListener) {
	a.SubscribeStage("", l)
}

// SubscribeStage adds l to the listeners told only about snapshots admitted
// at stage; "" means every stage.
func (a *Admitter) SubscribeStage(stage string, l drepo.SnapshotListener) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.listeners = append(a.listeners, listener{stage: stage, l: l})
}

// Admit validates rows and installs the accepted records as the new current
// snapshot. stage labels the rejection metric ("fetch", "relay").
func (a *Admitter) Admit(stage string, rows []models.Row, capturedAt time.Time) *models.Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.admitLocked(stage, rows, capturedAt)
}

// AdmitIfNewer behaves like Admit but drops data captured at or before the
// current snapshot. It reports whether anything was installed.
func (a *Admitter) AdmitIfNewer(stage string, rows []models.Row, capturedAt time.Time) (*models.Snapshot, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if cur := a.store.Current(); cur != nil && !capturedAt.After(cur.CapturedAt()) {
		return cur, false
	}
	return a.admitLocked(stage, rows, capturedAt), true
}

func (a *Admitter) admitLocked(stage string, rows []models.Row, capturedAt time.Time) *models.Snapshot {
	res := rowcheck.Filter(rows)
	if res.Rejected > 0 {
		a.metrics.RecordRejected(stage, res.Rejected)
		reasons := make([]string, 0, len(res.Reasons))
		for _, r := range res.Reasons {
			reasons = append(reasons, r.Error())
		}
		a.log.Warn("rows rejected",
			logger.String("stage", stage),
			logger.Int("rejected", res.Rejected),
			logger.Int("accepted", len(res.Records)),
			logger.Strings("reasons", reasons),
		)
	}

	snap := a.store.Install(res.Records, capturedAt)
	a.metrics.RecordSnapshot(snap.Version(), snap.Len())

	for _, ls := range a.listeners {
		if ls.stage == "" || ls.stage == stage {
			a.notify(ls.l, snap)
		}
	}
	return snap
}

func (a *Admitter) notify(l drepo.SnapshotListener, snap *models.Snapshot) {
	defer func() {
		if r := recover(); r != nil {
			a.metrics.RecordError("listener_panic")
			a.log.Error("snapshot listener panic",
				logger.Error(fmt.Errorf("%v", r)),
				logger.Uint64("version", snap.Version()),
			)
		}
	}()
	l.OnSnapshot(snap)
}
