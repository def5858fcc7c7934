package relay

import (
	"sync"
)

// room is the hub-owned state of one alert's audio channel.
type room struct {
	alertID string

	mu sync.Mutex
	// members maps connection id to connection.
	members map[string]Conn
	// live is true between audio-start and audio-end.
	live bool
	// mimeType of the current broadcast; last writer wins.
	mimeType string
	// broadcaster is the id of the connection that last started the broadcast.
	broadcaster string
	// dead is set once the room is removed from the registry; holders must retry.
	dead bool
}

func newRoom(alertID string) *room {
	return &room{
		alertID: alertID,
		members: make(map[string]Conn),
	}
}

// relay delivers ev to every member except the sender. Caller holds mu.
// It returns the number of members that dropped the event.
func (r *room) relay(ev Event, senderID string) (delivered, dropped int) {
	for id, member := range r.members {
		if id == senderID {
			continue
		}

		if member.Send(ev) {
			delivered++
		} else {
			dropped++
		}
	}

	return delivered, dropped
}

// idle reports whether the room may be reclaimed. Caller holds mu.
func (r *room) idle() bool {
	return len(r.members) == 0 && !r.live
}
