package relay

import "github.com/oshokin/safety-relay/internal/domain/alert"

// EventType names an outbound real-time event.
type EventType string

// Outbound event types.
const (
	// EventAudioStart is relayed to room members when a broadcast begins.
	EventAudioStart EventType = "audio-start"
	// EventAudioChunk carries one opaque audio frame to room members.
	EventAudioChunk EventType = "audio-chunk"
	// EventAudioEnd is relayed to room members when a broadcast stops.
	EventAudioEnd EventType = "audio-end"
	// EventLiveStatus is published to every connection.
	EventLiveStatus EventType = "live-status"
	// EventRecordingSaved is published to every connection after an upload is archived.
	EventRecordingSaved EventType = "recording-saved"
)

// Event is one message delivered to a connection.
type Event struct {
	Type     EventType `json:"type"`
	AlertID  string    `json:"alertId"`
	MimeType string    `json:"mimeType,omitempty"`
	Chunk    []byte    `json:"chunk,omitempty"`
	// IsLive is meaningful for live-status events only.
	IsLive bool `json:"isLive"`
}

// Global reports whether the event is published to every connection.
func (e Event) Global() bool {
	return e.Type == EventLiveStatus || e.Type == EventRecordingSaved
}

// Conn is the hub's view of an authenticated real-time connection.
type Conn interface {
	// ID uniquely identifies the connection for its lifetime.
	ID() string
	// Principal is the identity validated at handshake. It never changes.
	Principal() alert.Principal
	// Send enqueues ev without blocking and reports whether it was accepted.
	Send(ev Event) bool
}

// Publisher receives global events for delivery outside this process.
// Publish must not block.
type Publisher interface {
	Publish(ev Event) bool
}

// LiveRoom describes a room with an active broadcast.
type LiveRoom struct {
	AlertID  string `json:"alertId"`
	MimeType string `json:"mimeType"`
	Members  int    `json:"members"`
}

// Stats is a point-in-time view of hub occupancy.
type Stats struct {
	Connections int `json:"connections"`
	Rooms       int `json:"rooms"`
	Live        int `json:"live"`
}
