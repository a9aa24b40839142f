// Package feed is the client side of the push channel: it keeps one
// connection open, decodes frames and hands them to the ingest queue.
package feed

import (
	"context"
	"errors"
	"sync"
	"time"

	"RegionFeed/internal/domain/models"
	"RegionFeed/internal/services/ingest"
	"RegionFeed/pkg/logger"
)

// ErrReconnectExhausted is reported once the retry cap is reached.
var ErrReconnectExhausted = errors.New("reconnect attempts exhausted")

// Config holds connection parameters.
type Config struct {
	URL               string
	ReconnectAttempts int
	ReconnectInterval time.Duration
	DialTimeout       time.Duration
	ApplyDelay        time.Duration
}

// ConnectionInfo is a point-in-time view of the manager.
type ConnectionInfo struct {
	Connected         bool                    `json:"isConnected"`
	Status            models.ConnectionStatus `json:"status"`
	ReconnectAttempts int                     `json:"reconnectAttempts"`
	QueueLength       int                     `json:"messageQueueLength"`
	Draining          bool                    `json:"isProcessing"`
	Exhausted         bool                    `json:"exhausted"`
}

// Recorder receives client-side feed measurements.
type Recorder interface {
	FrameAccepted()
	FrameDiscarded()
	RowsRejected(n int)
	ReconnectScheduled()
	Applied(took, waited time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) FrameAccepted()                        {}
func (nopRecorder) FrameDiscarded()                       {}
func (nopRecorder) RowsRejected(int)                      {}
func (nopRecorder) ReconnectScheduled()                   {}
func (nopRecorder) Applied(time.Duration, time.Duration) {}

// Option configures Manager.
type Option func(*Manager)

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(m *Manager) {
		if r != nil {
			m.rec = r
		}
	}
}

// Manager owns the push connection. Status moves connecting -> connected ->
// disconnected; after a drop it retries at a fixed interval up to
// ReconnectAttempts times and then stays disconnected until Reconnect.
//
// Every Connect/Disconnect starts a new session; callbacks from an older
// session (late dials, reads, timers) are ignored.
type Manager struct {
	cfg    Config
	dialer Dialer
	queue  *ingest.Queue
	log    *logger.Logger
	rec    Recorder

	mu        sync.Mutex
	ctx       context.Context
	status    models.ConnectionStatus
	attempts  int
	exhausted bool
	session   uint64
	conn      Conn
	timer     *time.Timer
	observers []func(models.ConnectionStatus)
	wg        sync.WaitGroup

	now func() time.Time
}

// NewManager creates a manager whose decoded payloads are applied by apply,
// one at a time in arrival order.
func NewManager(cfg Config, dialer Dialer, apply ingest.ApplyFunc, log *logger.Logger, opts ...Option) *Manager {
	if cfg.ReconnectInterval <= 0 {
		cfg.ReconnectInterval = 3 * time.Second
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 10 * time.Second
	}
	log = log.With(logger.String("component", "feed"), logger.String("url", cfg.URL))
	m := &Manager{
		cfg:    cfg,
		dialer: dialer,
		log:    log,
		rec:    nopRecorder{},
		ctx:    context.Background(),
		status: models.StatusDisconnected,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.queue = ingest.New(func(it ingest.Item) {
		start := m.now()
		apply(it)
		m.rec.Applied(m.now().Sub(start), start.Sub(it.ReceivedAt))
	}, cfg.ApplyDelay, log)
	return m
}

// OnStatus registers fn for status changes. fn runs with the manager locked
// and must not call back into it.
func (m *Manager) OnStatus(fn func(models.ConnectionStatus)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observers = append(m.observers, fn)
}

// Connect starts connecting in the background. It is a no-op while a
// connection is open or being opened. ctx bounds the whole session.
func (m *Manager) Connect(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.status != models.StatusDisconnected || m.timer != nil {
		return
	}
	m.ctx = ctx
	m.session++
	m.exhausted = false
	m.dialLocked(m.session)
}

// dialLocked moves to connecting and dials on a new goroutine.
func (m *Manager) dialLocked(session uint64) {
	m.setStatusLocked(models.StatusConnecting)
	ctx := m.ctx
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.dial(ctx, session)
	}()
}

func (m *Manager) dial(ctx context.Context, session uint64) {
	dctx, cancel := context.WithTimeout(ctx, m.cfg.DialTimeout)
	conn, err := m.dialer.Dial(dctx, m.cfg.URL)
	cancel()

	m.mu.Lock()
	defer m.mu.Unlock()
	if session != m.session {
		if conn != nil {
			_ = conn.Close()
		}
		return
	}
	if err != nil {
		m.log.Warn("feed dial failed", logger.Error(err), logger.Int("attempt", m.attempts))
		m.closedLocked(session)
		return
	}

	m.conn = conn
	m.attempts = 0
	m.setStatusLocked(models.StatusConnected)
	m.log.Info("feed connected")

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.read(conn, session)
	}()
}

func (m *Manager) read(conn Conn, session uint64) {
	for {
		_, b, err := conn.ReadMessage()
		if err != nil {
			m.lost(conn, session, err)
			return
		}
		m.handle(b)
	}
}

// lost drops the payloads still queued from a dead connection before any
// retry is scheduled; the hub pushes current state again on reconnect.
func (m *Manager) lost(conn Conn, session uint64, err error) {
	if !m.current(conn, session) {
		return
	}
	if n := m.queue.Clear(); n > 0 {
		m.log.Info("feed queue cleared", logger.Int("dropped", n))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if session != m.session || m.conn != conn {
		return
	}
	m.conn = nil
	_ = conn.Close()
	m.log.Warn("feed connection lost", logger.Error(err))
	m.closedLocked(session)
}

func (m *Manager) current(conn Conn, session uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return session == m.session && m.conn == conn
}

func (m *Manager) handle(b []byte) {
	d, err := Decode(b, m.now())
	m.rec.RowsRejected(d.Rejected)
	if err != nil {
		m.rec.FrameDiscarded()
		m.log.Warn("feed frame discarded", logger.Error(err), logger.Int("bytes", len(b)))
		return
	}
	if d.Rejected > 0 {
		m.log.Warn("feed rows rejected",
			logger.Int("rejected", d.Rejected),
			logger.Int("accepted", len(d.Item.Records)),
		)
	}
	m.rec.FrameAccepted()
	m.queue.Enqueue(d.Item)
}

// closedLocked handles a failed dial or a dropped connection: either a retry
// is scheduled or the manager stays disconnected for good.
func (m *Manager) closedLocked(session uint64) {
	m.setStatusLocked(models.StatusDisconnected)
	if m.ctx.Err() != nil {
		return
	}
	if m.attempts >= m.cfg.ReconnectAttempts {
		m.exhausted = true
		m.log.Error("feed gave up", logger.Error(ErrReconnectExhausted), logger.Int("attempts", m.attempts))
		return
	}
	m.attempts++
	m.rec.ReconnectScheduled()
	m.log.Info("feed reconnect scheduled",
		logger.Int("attempt", m.attempts),
		logger.Int("max", m.cfg.ReconnectAttempts),
		logger.Duration("in_ms", m.cfg.ReconnectInterval),
	)
	m.timer = time.AfterFunc(m.cfg.ReconnectInterval, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if session != m.session {
			return
		}
		m.timer = nil
		m.dialLocked(session)
	})
}

// Disconnect closes the connection, cancels a pending retry and drops queued
// payloads. No payload received before the call is applied after it returns.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	m.session++
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	if m.conn != nil {
		_ = m.conn.Close()
		m.conn = nil
	}
	m.setStatusLocked(models.StatusDisconnected)
	m.mu.Unlock()

	if n := m.queue.Clear(); n > 0 {
		m.log.Info("feed queue cleared", logger.Int("dropped", n))
	}
}

// Reconnect drops the current session, resets the retry counter and
// connects again.
func (m *Manager) Reconnect(ctx context.Context) {
	m.Disconnect()
	m.mu.Lock()
	m.attempts = 0
	m.mu.Unlock()
	m.Connect(ctx)
}

// Close disconnects and waits for background goroutines.
func (m *Manager) Close() {
	m.Disconnect()
	m.wg.Wait()
}

func (m *Manager) Status() models.ConnectionStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

func (m *Manager) ConnectionInfo() ConnectionInfo {
	m.mu.Lock()
	info := ConnectionInfo{
		Connected:         m.status == models.StatusConnected,
		Status:            m.status,
		ReconnectAttempts: m.attempts,
		Exhausted:         m.exhausted,
	}
	m.mu.Unlock()
	info.QueueLength = m.queue.Len()
	info.Draining = m.queue.Draining()
	return info
}

func (m *Manager) setStatusLocked(s models.ConnectionStatus) {
	if m.status == s {
		return
	}
	m.status = s
	for _, fn := range m.observers {
		fn(s)
	}
}
