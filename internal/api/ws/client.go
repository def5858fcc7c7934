package ws

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofiber/contrib/websocket"

	"github.com/oshokin/safety-relay/internal/domain/alert"
	"github.com/oshokin/safety-relay/internal/logger"
	"github.com/oshokin/safety-relay/internal/relay"
)

// client is one upgraded websocket connection. It implements relay.Conn.
// Only writePump writes to conn.
type client struct {
	id        string
	principal alert.Principal
	format    Format
	conn      *websocket.Conn

	// send queues outbound frames; it is never closed.
	send chan Frame
	// done is closed once the connection is shutting down.
	done      chan struct{}
	closeOnce sync.Once
	dropped   atomic.Uint64

	// allowed caches alert ids the principal passed the access policy for.
	// It is touched by the read loop only.
	allowed map[string]struct{}
}

var _ relay.Conn = (*client)(nil)

func newClient(id string, principal alert.Principal, format Format, conn *websocket.Conn, queue int) *client {
	return &client{
		id:        id,
		principal: principal,
		format:    format,
		conn:      conn,
		send:      make(chan Frame, queue),
		done:      make(chan struct{}),
		allowed:   make(map[string]struct{}),
	}
}

// ID returns the connection id.
func (c *client) ID() string {
	return c.id
}

// Principal returns the identity validated at handshake.
func (c *client) Principal() alert.Principal {
	return c.principal
}

// Send enqueues a hub event without blocking.
func (c *client) Send(ev relay.Event) bool {
	return c.enqueue(FrameFromEvent(ev))
}

func (c *client) enqueue(f Frame) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- f:
		return true
	default:
		c.dropped.Add(1)

		return false
	}
}

// close stops the write pump. Safe to call more than once.
func (c *client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// writePump drains the send queue onto the socket and keeps the peer alive
// with pings. It returns when the client is closed or a write fails.
func (c *client) writePump(ctx context.Context, writeWait, pingPeriod time.Duration) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			_ = c.conn.WriteControl(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))

			return
		case f := <-c.send:
			messageType, data, err := Encode(c.format, f)
			if err != nil {
				logger.WarnKV(ctx, "Dropping unencodable frame", "type", f.Type, "error", err)

				continue
			}

			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))

			if err = c.conn.WriteMessage(messageType, data); err != nil {
				logger.DebugKV(ctx, "Write failed", "error", err)
				c.close()
				_ = c.conn.Close()

				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				logger.DebugKV(ctx, "Ping failed", "error", err)
				c.close()
				_ = c.conn.Close()

				return
			}
		}
	}
}
