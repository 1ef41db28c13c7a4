package core

import "sync"

// Registry maps room keys to rooms. Rooms are created on first use and
// linger when empty, so a *Room obtained here is never swapped out.
type Registry struct {
	mu    sync.RWMutex
	rooms map[RoomKey]*Room
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{rooms: make(map[RoomKey]*Room)}
}

// Room returns the room for key, creating it if needed.
func (r *Registry) Room(key RoomKey) *Room {
	r.mu.RLock()
	room, ok := r.rooms[key]
	r.mu.RUnlock()
	if ok {
		return room
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if room, ok := r.rooms[key]; ok {
		return room
	}
	room = NewRoom(key)
	r.rooms[key] = room
	return room
}

// Lookup returns the room for key if it was ever created.
func (r *Registry) Lookup(key RoomKey) (*Room, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, ok := r.rooms[key]
	return room, ok
}

// Leave removes s from its room. Returns true if it was a member.
func (r *Registry) Leave(s *Session) bool {
	key, ok := s.Room()
	if !ok {
		return false
	}
	room, ok := r.Lookup(key)
	if !ok {
		return false
	}
	return room.RemoveSession(s)
}

// Broadcast sends ev to every session in key except one.
func (r *Registry) Broadcast(key RoomKey, ev *Event, except *Session) int {
	room, ok := r.Lookup(key)
	if !ok {
		return 0
	}
	return room.Broadcast(ev, except)
}

// SendToUser delivers ev to every session of userID within key only.
func (r *Registry) SendToUser(key RoomKey, userID string, ev *Event) int {
	room, ok := r.Lookup(key)
	if !ok {
		return 0
	}
	room.mu.Lock()
	defer room.mu.Unlock()
	return room.sendToUserLocked(userID, ev)
}

// Occupants returns a snapshot of the sessions in key.
func (r *Registry) Occupants(key RoomKey) []Occupant {
	room, ok := r.Lookup(key)
	if !ok {
		return nil
	}
	return room.Occupants()
}

// Len returns the number of rooms ever created.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}
