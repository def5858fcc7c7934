package relay

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/oshokin/safety-relay/internal/logger"
)

// Hub routes audio frames between broadcasters and listeners, one room per alert.
type Hub struct {
	// rooms maps alert id to *room.
	rooms sync.Map
	// sessions maps connection id to *session.
	sessions sync.Map

	// publisher optionally forwards global events out of process.
	publisher Publisher
}

// Option configures the hub.
type Option func(*Hub)

// WithPublisher forwards global events to p in addition to local connections.
func WithPublisher(p Publisher) Option {
	return func(h *Hub) {
		h.publisher = p
	}
}

// NewHub creates an empty hub.
func NewHub(opts ...Option) *Hub {
	h := new(Hub)

	for _, opt := range opts {
		opt(h)
	}

	return h
}

// Connect registers an authenticated connection for global events.
// Connecting the same connection twice is a no-op.
func (h *Hub) Connect(ctx context.Context, conn Conn) {
	if _, loaded := h.sessions.LoadOrStore(conn.ID(), newSession(conn)); loaded {
		return
	}

	logger.DebugKV(ctx, "Connection registered", "conn_id", conn.ID(), "principal", conn.Principal())
}

// Disconnect unregisters the connection, leaves every room it touched and
// ends any broadcast it was running.
func (h *Hub) Disconnect(ctx context.Context, conn Conn) {
	value, ok := h.sessions.LoadAndDelete(conn.ID())
	if !ok {
		return
	}

	sess, _ := value.(*session)
	for _, alertID := range sess.drain() {
		h.leave(ctx, conn, alertID)
	}

	logger.DebugKV(ctx, "Connection unregistered", "conn_id", conn.ID())
}

// Join adds the connection to the alert's room, creating the room if needed.
func (h *Hub) Join(ctx context.Context, conn Conn, alertID string) {
	sess := h.session(conn)
	if sess == nil || !validID(alertID) {
		return
	}

	r := h.lockRoom(alertID, true)
	r.members[conn.ID()] = conn
	members := len(r.members)
	r.mu.Unlock()

	sess.add(alertID)

	logger.DebugKV(ctx, "Joined room", "alert_id", alertID, "conn_id", conn.ID(), "members", members)
}

// Leave removes the connection from the alert's room. A departing live
// broadcaster ends the broadcast.
func (h *Hub) Leave(ctx context.Context, conn Conn, alertID string) {
	sess := h.session(conn)
	if sess == nil {
		return
	}

	sess.remove(alertID)
	h.leave(ctx, conn, alertID)
}

// AudioStart marks the room live and announces the broadcast to the room
// and to every connection. A repeated start replaces the mime type and the
// broadcaster without opening a second stream.
func (h *Hub) AudioStart(ctx context.Context, conn Conn, alertID, mimeType string) {
	sess := h.session(conn)
	if sess == nil || !validID(alertID) {
		return
	}

	r := h.lockRoom(alertID, true)
	defer r.mu.Unlock()

	r.live = true
	r.mimeType = mimeType
	r.broadcaster = conn.ID()

	sess.add(alertID)

	r.relay(Event{Type: EventAudioStart, AlertID: alertID, MimeType: mimeType}, conn.ID())
	h.publish(Event{Type: EventLiveStatus, AlertID: alertID, MimeType: mimeType, IsLive: true})

	logger.InfoKV(ctx, "Broadcast started", "alert_id", alertID, "conn_id", conn.ID(), "mime_type", mimeType)
}

// AudioChunk relays one frame to every other member of an existing room.
// Empty frames and unknown rooms are ignored.
func (h *Hub) AudioChunk(ctx context.Context, conn Conn, alertID, mimeType string, chunk []byte) {
	if len(chunk) == 0 || h.session(conn) == nil {
		return
	}

	r := h.lockRoom(alertID, false)
	if r == nil {
		return
	}
	defer r.mu.Unlock()

	_, dropped := r.relay(Event{Type: EventAudioChunk, AlertID: alertID, MimeType: mimeType, Chunk: chunk}, conn.ID())
	if dropped > 0 {
		logger.DebugKV(ctx, "Dropped chunk for slow listeners", "alert_id", alertID, "dropped", dropped)
	}
}

// AudioEnd stops the broadcast the connection is running in the room.
// Unknown rooms, idle rooms and non-broadcasters are ignored.
func (h *Hub) AudioEnd(ctx context.Context, conn Conn, alertID string) {
	if h.session(conn) == nil {
		return
	}

	r := h.lockRoom(alertID, false)
	if r == nil {
		return
	}
	defer r.mu.Unlock()

	if !r.live || r.broadcaster != conn.ID() {
		return
	}

	h.endBroadcast(r)
	h.reclaim(r)

	logger.InfoKV(ctx, "Broadcast ended", "alert_id", alertID, "conn_id", conn.ID())
}

// RecordingSaved tells every connection that a recording was archived for the alert.
func (h *Hub) RecordingSaved(ctx context.Context, alertID string) {
	if !validID(alertID) {
		return
	}

	h.publish(Event{Type: EventRecordingSaved, AlertID: alertID})

	logger.DebugKV(ctx, "Recording saved announced", "alert_id", alertID)
}

// Live returns the rooms that currently carry a broadcast, ordered by alert id.
func (h *Hub) Live() []LiveRoom {
	var live []LiveRoom

	h.rooms.Range(func(_, value any) bool {
		r, _ := value.(*room)

		r.mu.Lock()
		if r.live && !r.dead {
			live = append(live, LiveRoom{AlertID: r.alertID, MimeType: r.mimeType, Members: len(r.members)})
		}
		r.mu.Unlock()

		return true
	})

	sort.Slice(live, func(i, j int) bool { return live[i].AlertID < live[j].AlertID })

	return live
}

// Stats returns current occupancy counters.
func (h *Hub) Stats() Stats {
	var stats Stats

	h.sessions.Range(func(_, _ any) bool {
		stats.Connections++

		return true
	})

	h.rooms.Range(func(_, value any) bool {
		r, _ := value.(*room)

		r.mu.Lock()
		if !r.dead {
			stats.Rooms++

			if r.live {
				stats.Live++
			}
		}
		r.mu.Unlock()

		return true
	})

	return stats
}

// Members returns the connection ids joined to the alert's room.
func (h *Hub) Members(alertID string) []string {
	r := h.lockRoom(alertID, false)
	if r == nil {
		return nil
	}
	defer r.mu.Unlock()

	ids := make([]string, 0, len(r.members))
	for id := range r.members {
		ids = append(ids, id)
	}

	sort.Strings(ids)

	return ids
}

func (h *Hub) leave(ctx context.Context, conn Conn, alertID string) {
	r := h.lockRoom(alertID, false)
	if r == nil {
		return
	}
	defer r.mu.Unlock()

	delete(r.members, conn.ID())

	if r.live && r.broadcaster == conn.ID() {
		h.endBroadcast(r)

		logger.InfoKV(ctx, "Broadcaster left, broadcast ended", "alert_id", alertID, "conn_id", conn.ID())
	}

	h.reclaim(r)

	logger.DebugKV(ctx, "Left room", "alert_id", alertID, "conn_id", conn.ID())
}

// endBroadcast flips the room to idle and announces it. Caller holds r.mu.
func (h *Hub) endBroadcast(r *room) {
	broadcaster := r.broadcaster

	r.live = false
	r.mimeType = ""
	r.broadcaster = ""

	r.relay(Event{Type: EventAudioEnd, AlertID: r.alertID}, broadcaster)
	h.publish(Event{Type: EventLiveStatus, AlertID: r.alertID, IsLive: false})
}

// reclaim removes an idle room from the registry. Caller holds r.mu.
func (h *Hub) reclaim(r *room) {
	if !r.idle() {
		return
	}

	r.dead = true
	h.rooms.CompareAndDelete(r.alertID, r)
}

// lockRoom returns the live room for alertID with its mutex held, or nil
// when the room does not exist and create is false.
func (h *Hub) lockRoom(alertID string, create bool) *room {
	for {
		var (
			value any
			ok    bool
		)

		value, ok = h.rooms.Load(alertID)
		if !ok && create {
			value, _ = h.rooms.LoadOrStore(alertID, newRoom(alertID))
			ok = true
		}

		if !ok {
			return nil
		}

		r, _ := value.(*room)

		r.mu.Lock()
		if !r.dead {
			return r
		}
		r.mu.Unlock()
		// The room was reclaimed between lookup and lock; look again.
	}
}

// publish delivers a global event to every connection and the external publisher.
func (h *Hub) publish(ev Event) {
	h.sessions.Range(func(_, value any) bool {
		sess, _ := value.(*session)
		sess.conn.Send(ev)

		return true
	})

	if h.publisher != nil {
		h.publisher.Publish(ev)
	}
}

func (h *Hub) session(conn Conn) *session {
	value, ok := h.sessions.Load(conn.ID())
	if !ok {
		return nil
	}

	sess, _ := value.(*session)

	return sess
}

func validID(alertID string) bool {
	return strings.TrimSpace(alertID) != ""
}
