package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"RegionFeed/internal/service/cache"
	"RegionFeed/internal/service/hub"
	"RegionFeed/internal/service/ratelimit"
	"RegionFeed/internal/usecase"
	xhttp "RegionFeed/pkg/http"
	applogger "RegionFeed/pkg/logger"
)

const maxInboundMessage = 4 << 10

// FeedConfig tunes the push endpoint.
type FeedConfig struct {
	Role           string
	WriteTimeout   time.Duration
	PingInterval   time.Duration
	ConnsPerMinute int
	AllowedOrigins []string
}

// FeedEchoHandler serves the WebSocket push feed and the snapshot read endpoints.
type FeedEchoHandler struct {
	hub      *hub.Hub
	cache    *cache.SnapshotCache
	sched    *usecase.Scheduler
	limiter  *ratelimit.Limiter
	upgrader websocket.Upgrader
	cfg      FeedConfig
	log      *applogger.Logger
}

// NewFeedEchoHandler builds the handler. sched is nil on follower replicas.
func NewFeedEchoHandler(h *hub.Hub, c *cache.SnapshotCache, sched *usecase.Scheduler, cfg FeedConfig, log *applogger.Logger) *FeedEchoHandler {
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	if cfg.ConnsPerMinute <= 0 {
		cfg.ConnsPerMinute = 60
	}
	fh := &FeedEchoHandler{
		hub:     h,
		cache:   c,
		sched:   sched,
		limiter: ratelimit.New(cfg.ConnsPerMinute, time.Minute),
		cfg:     cfg,
		log:     log.With(applogger.String("component", "feed_handler")),
	}
	fh.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     fh.checkOrigin,
	}
	return fh
}

func (h *FeedEchoHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/ws", h.Subscribe)
	g := e.Group("/api")
	g.GET("/snapshot", h.Snapshot)
	g.GET("/health", h.Health)
}

func (h *FeedEchoHandler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(h.cfg.AllowedOrigins) == 0 {
		return true
	}
	for _, o := range h.cfg.AllowedOrigins {
		if o == "*" || o == origin {
			return true
		}
	}
	return false
}

// Subscribe upgrades the request and registers the connection with the hub
// until the peer goes away.
func (h *FeedEchoHandler) Subscribe(c echo.Context) error {
	ip := c.RealIP()
	if !h.limiter.Allow(ip) {
		h.log.Warn("connection rate limited", applogger.String("ip", ip))
		return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("too many connection attempts"))
	}
	if h.limiter.Len() > 4096 {
		h.limiter.Prune(time.Minute)
	}

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// the upgrader has already written the error response
		h.log.Warn("websocket upgrade failed", applogger.String("ip", ip), applogger.Error(err))
		return nil
	}

	sink := &wsSink{conn: conn, writeTimeout: h.cfg.WriteTimeout}
	sub := h.hub.Join(sink)
	h.log.Debug("websocket connected", applogger.String("subscriber", sub.ID()), applogger.String("ip", ip))

	if h.cfg.PingInterval > 0 {
		go h.keepalive(sub, sink)
	}
	h.readUntilClosed(sub, conn)
	h.hub.Leave(sub)
	return nil
}

// readUntilClosed discards inbound frames; it returns when the peer closes,
// the read deadline lapses, or the hub closes the connection.
func (h *FeedEchoHandler) readUntilClosed(sub *hub.Subscriber, conn *websocket.Conn) {
	conn.SetReadLimit(maxInboundMessage)
	if h.cfg.PingInterval > 0 {
		pongWait := h.cfg.PingInterval * 2
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
	}
	for {
		if _, _, err := conn.NextReader(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Debug("websocket read", applogger.String("subscriber", sub.ID()), applogger.Error(err))
			}
			return
		}
	}
}

func (h *FeedEchoHandler) keepalive(sub *hub.Subscriber, sink *wsSink) {
	t := time.NewTicker(h.cfg.PingInterval)
	defer t.Stop()
	for {
		select {
		case <-sub.Done():
			return
		case <-t.C:
			if err := sink.ping(); err != nil {
				h.log.Debug("websocket ping failed", applogger.String("subscriber", sub.ID()), applogger.Error(err))
				h.hub.Leave(sub)
				return
			}
		}
	}
}

// Snapshot returns the current push payload.
func (h *FeedEchoHandler) Snapshot(c echo.Context) error {
	cur := h.cache.Current()
	if cur == nil {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError("no snapshot has been captured yet"))
	}
	b, err := cur.Payload()
	if err != nil {
		h.log.Error("encode snapshot", applogger.Uint64("version", cur.Version()), applogger.Error(err))
		return xhttp.InternalServerErrorResponse(c)
	}
	c.Response().Header().Set("X-Snapshot-Version", strconv.FormatUint(cur.Version(), 10))
	c.Response().Header().Set(echo.HeaderCacheControl, "no-cache")
	return xhttp.RawJSONResponse(c, http.StatusOK, b)
}

type healthResponse struct {
	Role            string                   `json:"role"`
	Scheduler       *usecase.SchedulerStatus `json:"scheduler,omitempty"`
	SnapshotVersion uint64                   `json:"snapshotVersion"`
	CapturedAt      *time.Time               `json:"capturedAt,omitempty"`
	Records         int                      `json:"records"`
	Subscribers     int                      `json:"subscribers"`
}

func (h *FeedEchoHandler) Health(c echo.Context) error {
	res := healthResponse{
		Role:        h.cfg.Role,
		Subscribers: h.hub.Count(),
	}
	if h.sched != nil {
		st := h.sched.Status()
		res.Scheduler = &st
	}
	if cur := h.cache.Current(); cur != nil {
		at := cur.CapturedAt()
		res.SnapshotVersion = cur.Version()
		res.CapturedAt = &at
		res.Records = cur.Len()
	}
	return xhttp.SuccessResponse(c, res)
}

// wsSink adapts a gorilla connection to hub.Sink. Send is called only from
// the subscriber's writer goroutine; ping and Close use WriteControl, which
// gorilla allows concurrently with other writers.
type wsSink struct {
	conn         *websocket.Conn
	writeTimeout time.Duration
}

func (s *wsSink) Send(payload []byte) error {
	if err := s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout)); err != nil {
		return err
	}
	return s.conn.WriteMessage(websocket.TextMessage, payload)
}

func (s *wsSink) ping() error {
	return s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(s.writeTimeout))
}

func (s *wsSink) Close() error {
	msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "")
	_ = s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	return s.conn.Close()
}

var _ hub.Sink = (*wsSink)(nil)
