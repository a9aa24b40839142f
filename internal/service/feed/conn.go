package feed

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// Conn is the read side of a push connection.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	Close() error
}

// Dialer opens push connections.
type Dialer interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

// WebsocketDialer dials with gorilla/websocket.
type WebsocketDialer struct {
	Dialer *websocket.Dialer
	Header http.Header
	// PongWait bounds how long a connection may stay silent; the server
	// pings well within it. Zero disables the read deadline.
	PongWait time.Duration
}

func NewWebsocketDialer(handshakeTimeout, pongWait time.Duration) *WebsocketDialer {
	d := *websocket.DefaultDialer
	d.HandshakeTimeout = handshakeTimeout
	return &WebsocketDialer{Dialer: &d, PongWait: pongWait}
}

func (d *WebsocketDialer) Dial(ctx context.Context, url string) (Conn, error) {
	c, _, err := d.Dialer.DialContext(ctx, url, d.Header)
	if err != nil {
		return nil, err
	}
	if d.PongWait > 0 {
		_ = c.SetReadDeadline(time.Now().Add(d.PongWait))
		// the server pings; answer like the default handler and push the deadline out
		c.SetPingHandler(func(data string) error {
			_ = c.SetReadDeadline(time.Now().Add(d.PongWait))
			err := c.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(time.Second))
			if errors.Is(err, websocket.ErrCloseSent) {
				return nil
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				return nil
			}
			return err
		})
	}
	return &wsConn{Conn: c, pongWait: d.PongWait}, nil
}

type wsConn struct {
	*websocket.Conn
	pongWait time.Duration
}

// ReadMessage extends the read deadline on every data frame too.
func (c *wsConn) ReadMessage() (int, []byte, error) {
	mt, p, err := c.Conn.ReadMessage()
	if err == nil && c.pongWait > 0 {
		_ = c.SetReadDeadline(time.Now().Add(c.pongWait))
	}
	return mt, p, err
}
