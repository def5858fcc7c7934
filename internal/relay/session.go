package relay

import (
	"sort"
	"sync"
)

// session tracks the rooms one connection joined or broadcast into.
type session struct {
	conn Conn

	mu    sync.Mutex
	rooms map[string]struct{}
}

func newSession(conn Conn) *session {
	return &session{
		conn:  conn,
		rooms: make(map[string]struct{}),
	}
}

func (s *session) add(alertID string) {
	s.mu.Lock()
	s.rooms[alertID] = struct{}{}
	s.mu.Unlock()
}

func (s *session) remove(alertID string) {
	s.mu.Lock()
	delete(s.rooms, alertID)
	s.mu.Unlock()
}

// drain empties the table and returns its rooms in stable order.
func (s *session) drain() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(s.rooms))
	for id := range s.rooms {
		ids = append(ids, id)
	}

	s.rooms = make(map[string]struct{})

	sort.Strings(ids)

	return ids
}
