// Package hub fans snapshots out to connected subscribers.
//
// Delivery is at-most-latest-state: each subscriber has a single pending slot
// that a newer snapshot overwrites, and a writer goroutine that drains it. A
// slow or failing subscriber therefore never delays the others and never sees
// a backlog, and no subscriber receives the same version twice.
package hub

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"RegionFeed/internal/domain/models"
	"RegionFeed/internal/domain/repository"
	"RegionFeed/pkg/logger"
)

// ErrSend wraps transport failures of a single subscriber.
var ErrSend = errors.New("subscriber send failed")

// Sink is the transport of one subscriber.
type Sink interface {
	Send(payload []byte) error
	Close() error
}

// Source yields the current snapshot, nil if none exists yet.
type Source interface {
	Current() *models.Snapshot
}

// Subscriber is a registered sink.
type Subscriber struct {
	id   string
	sink Sink

	mu      sync.Mutex
	pending *models.Snapshot
	wake    chan struct{}
	done    chan struct{}
	once    sync.Once

	// owned by the writer goroutine
	sent uint64
}

func (s *Subscriber) ID() string { return s.id }

// Done is closed once the subscriber has left the hub.
func (s *Subscriber) Done() <-chan struct{} { return s.done }

// offer stores snap unless something at least as new is already pending.
func (s *Subscriber) offer(snap *models.Snapshot) {
	s.mu.Lock()
	if s.pending == nil || s.pending.Version() < snap.Version() {
		s.pending = snap
	}
	s.mu.Unlock()
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Subscriber) take() *models.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := s.pending
	s.pending = nil
	return snap
}

type Hub struct {
	src     Source
	log     *logger.Logger
	metrics repository.Metrics

	mu   sync.RWMutex
	subs map[string]*Subscriber
	wg   sync.WaitGroup
}

func New(src Source, log *logger.Logger, metrics repository.Metrics) *Hub {
	return &Hub{
		src:     src,
		log:     log,
		metrics: metrics,
		subs:    make(map[string]*Subscriber),
	}
}

// Join registers sink and, when a snapshot exists, queues it for this
// subscriber only.
func (h *Hub) Join(sink Sink) *Subscriber {
	sub := &Subscriber{
		id:   uuid.NewString(),
		sink: sink,
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}

	h.mu.Lock()
	h.subs[sub.id] = sub
	n := len(h.subs)
	// read under the lock so a concurrent broadcast cannot slip between
	// registration and the initial offer unseen
	cur := h.src.Current()
	h.mu.Unlock()

	h.metrics.RecordSubscribers(n)
	h.log.Info("subscriber joined", logger.String("subscriber", sub.id), logger.Int("subscribers", n))

	h.wg.Add(1)
	go h.pump(sub)

	if cur != nil {
		sub.offer(cur)
	}
	return sub
}

// Leave deregisters sub and closes its sink. Safe to call more than once.
func (h *Hub) Leave(sub *Subscriber) {
	if sub == nil {
		return
	}
	sub.once.Do(func() {
		h.mu.Lock()
		delete(h.subs, sub.id)
		n := len(h.subs)
		h.mu.Unlock()

		close(sub.done)
		if err := sub.sink.Close(); err != nil {
			h.log.Debug("subscriber close", logger.String("subscriber", sub.id), logger.Error(err))
		}
		h.metrics.RecordSubscribers(n)
		h.log.Info("subscriber left", logger.String("subscriber", sub.id), logger.Int("subscribers", n))
	})
}

// OnSnapshot queues snap for every current subscriber.
func (h *Hub) OnSnapshot(snap *models.Snapshot) {
	if snap == nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, sub := range h.subs {
		sub.offer(snap)
	}
	h.log.Debug("snapshot broadcast",
		logger.Uint64("version", snap.Version()),
		logger.Int("subscribers", len(h.subs)),
	)
}

// Count returns the number of registered subscribers.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Close removes every subscriber and waits for their writers to stop.
func (h *Hub) Close() {
	h.mu.RLock()
	subs := make([]*Subscriber, 0, len(h.subs))
	for _, s := range h.subs {
		subs = append(subs, s)
	}
	h.mu.RUnlock()

	for _, s := range subs {
		h.Leave(s)
	}
	h.wg.Wait()
}

func (h *Hub) pump(sub *Subscriber) {
	defer h.wg.Done()
	for {
		select {
		case <-sub.done:
			return
		case <-sub.wake:
		}
		select {
		case <-sub.done:
			return
		default:
		}

		snap := sub.take()
		if snap == nil || snap.Version() <= sub.sent {
			continue
		}
		if err := h.deliver(sub, snap); err != nil {
			h.metrics.RecordError("hub_send")
			h.log.Warn("dropping subscriber",
				logger.String("subscriber", sub.id),
				logger.Uint64("version", snap.Version()),
				logger.Error(err),
			)
			h.Leave(sub)
			return
		}
		sub.sent = snap.Version()
	}
}

func (h *Hub) deliver(sub *Subscriber, snap *models.Snapshot) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v", ErrSend, r)
		}
	}()
	// one buffer for every subscriber; sinks only write it out
	payload, err := snap.SharedPayload()
	if err != nil {
		return fmt.Errorf("encode snapshot %d: %w", snap.Version(), err)
	}
	if err := sub.sink.Send(payload); err != nil {
		return fmt.Errorf("%w: %v", ErrSend, err)
	}
	return nil
}
