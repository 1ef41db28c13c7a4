package core

import (
	"sync"
)

// Room groups the sessions that share a space or map.
// mu guards membership, occupancy and call state. Session locks are
// always taken after the room lock.
type Room struct {
	Key RoomKey

	mu       sync.Mutex
	sessions map[*Session]struct{}
	call     *callState
}

// NewRoom constructs a room with no sessions.
func NewRoom(key RoomKey) *Room {
	return &Room{
		Key:      key,
		sessions: make(map[*Session]struct{}),
		call:     newCallState(),
	}
}

// admit places s at the cell chosen by place, sends it the handshake reply
// built by reply and announces it to everybody else. All of it happens under
// the room lock so no other session can take the spawn cell in between.
// delivered is false when the reply could not be queued.
func (r *Room) admit(s *Session, place func(occupied func(Cell) bool) Cell, reply func(spawn Cell, others []Occupant) *Event) (spawn Cell, delivered, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[s]; exists {
		return Cell{}, false, false
	}

	spawn = place(r.occupiedLocked(nil))
	s.place(r.Key, spawn)

	others := make([]Occupant, 0, len(r.sessions))
	for other := range r.sessions {
		others = append(others, other.Occupant())
	}
	r.sessions[s] = struct{}{}

	delivered = s.Send(reply(spawn, others))

	occ := s.Occupant()
	r.broadcastLocked(&Event{Kind: EventUserJoined, Room: r.Key, Occupant: &occ}, s)
	return spawn, delivered, true
}

// RemoveSession deletes s, clears its call state and announces the departure.
// Returns true if removed.
func (r *Room) RemoveSession(s *Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[s]; !exists {
		return false
	}
	delete(r.sessions, s)

	userID := s.UserID()
	if userID != "" && !r.hasUserLocked(userID) {
		r.call.forget(userID)
	}

	r.broadcastLocked(&Event{Kind: EventUserLeft, Room: r.Key, Occupant: &Occupant{SessionID: s.ID, UserID: userID}}, nil)
	return true
}

// moveTo commits target for s unless another session stands there.
// On success the movement event is broadcast to the other sessions.
func (r *Room) moveTo(s *Session, target Cell, ev *Event) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[s]; !exists {
		return false
	}
	if r.occupiedLocked(s)(target) {
		return false
	}
	s.setCell(target)
	r.broadcastLocked(ev, s)
	return true
}

// Broadcast sends an event to all sessions in the room except one.
// It returns the number of sessions that accepted the event.
func (r *Room) Broadcast(ev *Event, except *Session) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.broadcastLocked(ev, except)
}

func (r *Room) broadcastLocked(ev *Event, except *Session) int {
	delivered := 0
	for s := range r.sessions {
		if s == except {
			continue
		}
		if s.Send(ev) {
			delivered++
		}
	}
	return delivered
}

// sendToUserLocked delivers ev to every session of userID in this room.
func (r *Room) sendToUserLocked(userID string, ev *Event) int {
	delivered := 0
	for s := range r.sessions {
		if s.UserID() != userID {
			continue
		}
		if s.Send(ev) {
			delivered++
		}
	}
	return delivered
}

func (r *Room) hasUserLocked(userID string) bool {
	for s := range r.sessions {
		if s.UserID() == userID {
			return true
		}
	}
	return false
}

// occupiedLocked returns a predicate over cells held by sessions other than except.
func (r *Room) occupiedLocked(except *Session) func(Cell) bool {
	taken := make(map[Cell]struct{}, len(r.sessions))
	for s := range r.sessions {
		if s == except {
			continue
		}
		taken[s.Cell()] = struct{}{}
	}
	return func(c Cell) bool {
		_, ok := taken[c]
		return ok
	}
}

// Occupants returns a snapshot of everybody in the room.
func (r *Room) Occupants() []Occupant {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Occupant, 0, len(r.sessions))
	for s := range r.sessions {
		out = append(out, s.Occupant())
	}
	return out
}

// Len returns the number of sessions in the room.
func (r *Room) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Empty returns true if no sessions are in the room.
func (r *Room) Empty() bool {
	return r.Len() == 0
}
