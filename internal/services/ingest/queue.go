// Package ingest serialises application of received snapshots on the client.
package ingest

import (
	"fmt"
	"sync"
	"time"

	"RegionFeed/internal/domain/models"
	"RegionFeed/pkg/logger"
)

// DefaultDelay is the pause between two applied items.
const DefaultDelay = 50 * time.Millisecond

// Item is one received payload waiting to be applied.
type Item struct {
	Records    []models.Record
	ReceivedAt time.Time
	// CapturedAt is zero when the payload carried no timestamp.
	CapturedAt time.Time
}

// State of the queue worker.
type State int

const (
	StateEmpty State = iota
	StateDraining
)

func (s State) String() string {
	if s == StateDraining {
		return "draining"
	}
	return "empty"
}

// ApplyFunc commits one item. It runs on the queue worker and must not call
// Clear.
type ApplyFunc func(Item)

// Queue is a FIFO with at most one drain worker. Items are applied one at a
// time in arrival order.
type Queue struct {
	apply ApplyFunc
	delay time.Duration
	log   *logger.Logger

	mu       sync.Mutex
	items    []Item
	draining bool
	gen      uint64

	// applyMu is held for the duration of every apply; Clear uses it as a
	// barrier.
	applyMu sync.Mutex
}

// New creates a queue. A negative delay disables the pause between items.
func New(apply ApplyFunc, delay time.Duration, log *logger.Logger) *Queue {
	if delay == 0 {
		delay = DefaultDelay
	}
	return &Queue{apply: apply, delay: delay, log: log}
}

// Enqueue appends it and starts the worker if it is idle.
func (q *Queue) Enqueue(it Item) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, it)
	if q.draining {
		return
	}
	q.draining = true
	go q.drain()
}

func (q *Queue) drain() {
	for {
		q.mu.Lock()
		if len(q.items) == 0 {
			q.draining = false
			q.mu.Unlock()
			return
		}
		it := q.items[0]
		q.items[0] = Item{}
		q.items = q.items[1:]
		gen := q.gen
		q.mu.Unlock()

		q.applyMu.Lock()
		q.mu.Lock()
		stale := gen != q.gen
		q.mu.Unlock()
		if !stale {
			q.safeApply(it)
		}
		q.applyMu.Unlock()

		if q.delay > 0 && q.Len() > 0 {
			time.Sleep(q.delay)
		}
	}
}

func (q *Queue) safeApply(it Item) {
	defer func() {
		if r := recover(); r != nil {
			q.log.Error("ingest apply panic",
				logger.Error(fmt.Errorf("%v", r)),
				logger.Int("records", len(it.Records)),
			)
		}
	}()
	q.apply(it)
}

// Clear drops every pending item. When it returns, no item enqueued before
// the call will be applied and any apply in progress has finished.
func (q *Queue) Clear() int {
	q.mu.Lock()
	n := len(q.items)
	q.items = nil
	q.gen++
	q.mu.Unlock()

	// Wait out an apply that started before the generation bump.
	q.applyMu.Lock()
	q.applyMu.Unlock()
	return n
}

// Len is the number of items waiting to be applied.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Draining reports whether the worker is running.
func (q *Queue) Draining() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.draining
}

func (q *Queue) State() State {
	if q.Draining() {
		return StateDraining
	}
	return StateEmpty
}
