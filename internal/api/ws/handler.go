package ws

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/oshokin/safety-relay/internal/auth"
	"github.com/oshokin/safety-relay/internal/config"
	"github.com/oshokin/safety-relay/internal/domain/alert"
	"github.com/oshokin/safety-relay/internal/logger"
	"github.com/oshokin/safety-relay/internal/relay"
)

// Connection timing defaults.
const (
	DefaultWriteWait  = 10 * time.Second
	DefaultPongWait   = 60 * time.Second
	DefaultPingPeriod = DefaultPongWait * 9 / 10
)

const (
	localPrincipal = "ws.principal"
	localFormat    = "ws.format"
)

// Authenticator validates handshake credentials.
type Authenticator interface {
	Authenticate(ctx context.Context, credential string) (alert.Principal, error)
}

// AccessPolicy decides whether a principal may join or broadcast into the
// room of an alert.
type AccessPolicy interface {
	CanJoin(ctx context.Context, actor alert.Principal, alertID string) error
}

// Handler upgrades authenticated requests and feeds their events to the hub.
type Handler struct {
	hub    *relay.Hub
	auth   Authenticator
	policy AccessPolicy

	sendQueue     int
	maxFrameBytes int64
	writeWait     time.Duration
	pongWait      time.Duration
	pingPeriod    time.Duration
	newID         func() string

	// mu guards clients and closing.
	mu sync.Mutex
	// clients tracks open connections so Shutdown can close them.
	clients map[string]*client
	closing bool
	// active counts running connection handlers.
	active sync.WaitGroup
}

// Option configures the handler.
type Option func(*Handler)

// WithRelaySettings applies queue and frame limits from configuration.
func WithRelaySettings(settings config.Relay) Option {
	return func(h *Handler) {
		if settings.SendQueue > 0 {
			h.sendQueue = settings.SendQueue
		}

		if settings.MaxFrameBytes > 0 {
			h.maxFrameBytes = settings.MaxFrameBytes
		}
	}
}

// WithKeepalive overrides the ping schedule. pingPeriod must be shorter
// than pongWait.
func WithKeepalive(writeWait, pongWait, pingPeriod time.Duration) Option {
	return func(h *Handler) {
		if writeWait > 0 && pongWait > 0 && pingPeriod > 0 && pingPeriod < pongWait {
			h.writeWait, h.pongWait, h.pingPeriod = writeWait, pongWait, pingPeriod
		}
	}
}

// NewHandler creates a websocket handler.
func NewHandler(hub *relay.Hub, authenticator Authenticator, policy AccessPolicy, opts ...Option) *Handler {
	h := &Handler{
		hub:           hub,
		auth:          authenticator,
		policy:        policy,
		sendQueue:     config.DefaultSendQueue,
		maxFrameBytes: config.DefaultMaxFrameBytes,
		writeWait:     DefaultWriteWait,
		pongWait:      DefaultPongWait,
		pingPeriod:    DefaultPingPeriod,
		newID:         uuid.NewString,
		clients:       make(map[string]*client),
	}

	for _, opt := range opts {
		opt(h)
	}

	return h
}

// Register mounts the websocket endpoint at path.
func (h *Handler) Register(router fiber.Router, path string) {
	router.Use(path, h.Handshake)
	router.Get(path, websocket.New(h.serve))
}

// Handshake authenticates the upgrade request. Failed credentials end the
// request with 401 before any upgrade happens.
func (h *Handler) Handshake(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	credential := c.Get(fiber.HeaderAuthorization)
	if auth.BearerToken(credential) == "" {
		credential = c.Query("token")
	}

	principal, err := h.auth.Authenticate(c.UserContext(), credential)
	if err != nil {
		return fiber.NewError(fiber.StatusUnauthorized, "invalid or missing token")
	}

	c.Locals(localPrincipal, principal)
	c.Locals(localFormat, ParseFormat(c.Query("format")))

	return c.Next()
}

// Shutdown closes every open connection and waits for their handlers to
// unregister from the hub, or for ctx to expire.
func (h *Handler) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	h.closing = true

	for _, c := range h.clients {
		c.close()
		_ = c.conn.Close()
	}
	h.mu.Unlock()

	done := make(chan struct{})

	go func() {
		h.active.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Handler) serve(conn *websocket.Conn) {
	principal, _ := conn.Locals(localPrincipal).(alert.Principal)
	format, _ := conn.Locals(localFormat).(Format)

	c := newClient(h.newID(), principal, format, conn, h.sendQueue)
	if !h.track(c) {
		return
	}
	defer h.active.Done()

	ctx := logger.WithKV(logger.WithName(context.Background(), "ws"),
		"conn_id", c.id,
		"principal", principal.String())

	h.hub.Connect(ctx, c)

	writerDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		c.writePump(ctx, h.writeWait, h.pingPeriod)
	}()

	defer func() {
		h.hub.Disconnect(ctx, c)
		h.untrack(c)
		c.close()
		<-writerDone

		if dropped := c.dropped.Load(); dropped > 0 {
			logger.InfoKV(ctx, "Connection closed with dropped frames", "dropped", dropped)
		}
	}()

	conn.SetReadLimit(h.maxFrameBytes)
	_ = conn.SetReadDeadline(time.Now().Add(h.pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(h.pongWait))
	})

	logger.DebugKV(ctx, "Websocket connected", "format", format)

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.DebugKV(ctx, "Websocket read failed", "error", err)
			}

			return
		}

		msg, err := Decode(messageType, data)
		if err != nil {
			logger.DebugKV(ctx, "Dropping malformed frame", "error", err)

			continue
		}

		h.dispatch(ctx, c, msg)
	}
}

// track registers a connection unless the handler is shutting down.
func (h *Handler) track(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closing {
		return false
	}

	h.active.Add(1)
	h.clients[c.id] = c

	return true
}

func (h *Handler) untrack(c *client) {
	h.mu.Lock()
	delete(h.clients, c.id)
	h.mu.Unlock()
}

// dispatch applies one inbound event. Unknown or malformed events are dropped.
func (h *Handler) dispatch(ctx context.Context, c *client, msg Message) {
	switch msg.Type {
	case TypeJoinAlert:
		if h.authorize(ctx, c, msg.AlertID) {
			h.hub.Join(ctx, c, msg.AlertID)
		}
	case TypeLeaveAlert:
		h.hub.Leave(ctx, c, msg.AlertID)
	case TypeAudioStart:
		if h.authorize(ctx, c, msg.AlertID) {
			h.hub.AudioStart(ctx, c, msg.AlertID, msg.MimeType)
		}
	case TypeAudioChunk:
		if _, ok := c.allowed[msg.AlertID]; ok {
			h.hub.AudioChunk(ctx, c, msg.AlertID, msg.MimeType, msg.Chunk)
		}
	case TypeAudioEnd:
		h.hub.AudioEnd(ctx, c, msg.AlertID)
	default:
		logger.DebugKV(ctx, "Dropping unknown event", "type", msg.Type)
	}
}

// authorize checks the access policy once per alert and connection.
// A denial is answered with an error event.
func (h *Handler) authorize(ctx context.Context, c *client, alertID string) bool {
	if alertID == "" {
		return false
	}

	if _, ok := c.allowed[alertID]; ok {
		return true
	}

	if h.policy != nil {
		if err := h.policy.CanJoin(ctx, c.principal, alertID); err != nil {
			message := "access denied"
			if errors.Is(err, alert.ErrNotFound) {
				message = "alert not found"
			}

			logger.DebugKV(ctx, "Room access denied", "alert_id", alertID, "error", err)
			c.enqueue(ErrorFrame(alertID, message))

			return false
		}
	}

	c.allowed[alertID] = struct{}{}

	return true
}
