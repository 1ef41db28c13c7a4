package core

import (
	"sync"

	"github.com/vovakirdan/gridverse/internal/store"
)

// Session is one accepted connection as seen by the core layer.
// The transport drains Events; the core never closes the channel.
type Session struct {
	ID     string
	Events chan *Event

	mu        sync.Mutex
	closed    bool
	joined    bool
	userID    string
	username  string
	avatarURL string
	cell      Cell
	room      RoomKey
}

// NewSession constructs a session with a bounded event queue.
func NewSession(id string, buffer int) *Session {
	if buffer <= 0 {
		buffer = 64
	}
	return &Session{
		ID:     id,
		Events: make(chan *Event, buffer),
	}
}

// Send queues an event without blocking. It reports false when the
// session is closed or its queue is full; the event is then dropped.
func (s *Session) Send(ev *Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}
	select {
	case s.Events <- ev:
		return true
	default:
		// Drop if slow consumer.
		return false
	}
}

// Close stops further delivery.
func (s *Session) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

// UserID returns the authenticated user id, empty before join.
func (s *Session) UserID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID
}

// Cell returns the last accepted grid position.
func (s *Session) Cell() Cell {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cell
}

// Room returns the room the session joined.
func (s *Session) Room() (RoomKey, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.room, s.room.Kind != ""
}

// Joined reports whether the handshake completed.
func (s *Session) Joined() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.joined
}

// Occupant returns the public view of the session.
func (s *Session) Occupant() Occupant {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.occupantLocked()
}

func (s *Session) occupantLocked() Occupant {
	return Occupant{
		SessionID: s.ID,
		UserID:    s.userID,
		Username:  s.username,
		AvatarURL: s.avatarURL,
		Cell:      s.cell,
	}
}

// claim marks the session as joining so a concurrent second join is refused.
func (s *Session) claim() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.joined || s.closed {
		return false
	}
	s.joined = true
	return true
}

// release undoes claim after a failed handshake.
func (s *Session) release() {
	s.mu.Lock()
	s.joined = false
	s.mu.Unlock()
}

func (s *Session) setProfile(userID, username, avatarURL string) {
	s.mu.Lock()
	s.userID = userID
	s.username = username
	s.avatarURL = avatarURL
	s.mu.Unlock()
}

func (s *Session) place(key RoomKey, cell Cell) {
	s.mu.Lock()
	s.room = key
	s.cell = cell
	s.mu.Unlock()
}

func (s *Session) setCell(cell Cell) {
	s.mu.Lock()
	s.cell = cell
	s.mu.Unlock()
}

// RoomKey identifies a space or a map.
type RoomKey struct {
	Kind store.RoomKind
	ID   string
}

// String returns "space:<id>" or "map:<id>".
func (k RoomKey) String() string {
	return string(k.Kind) + ":" + k.ID
}
