package core

// EventKind is a notification the core emits to clients.
type EventKind int

const (
	// EventJoined answers a successful join with the room snapshot.
	EventJoined EventKind = iota
	// EventUserJoined notifies occupants about a new arrival.
	EventUserJoined
	// EventUserLeft notifies occupants about a departure.
	EventUserLeft
	// EventMovement notifies occupants about an accepted move.
	EventMovement
	// EventMovementAccepted confirms a move to its sender.
	EventMovementAccepted
	// EventMovementRejected tells the sender where it actually is.
	EventMovementRejected
	// EventChat delivers a chat message.
	EventChat
	// EventSignal relays a video call signaling message.
	EventSignal
)

// Event is sent to clients to describe what happened in the system.
// Events are shared between recipients and must not be mutated once sent.
type Event struct {
	Kind     EventKind
	Room     RoomKey
	Joined   *Joined   // EventJoined
	Occupant *Occupant // EventUserJoined, EventUserLeft
	Position *Position // movement events
	Message  *Message  // EventChat
	Signal   *Signal   // EventSignal
}

// Joined is the handshake reply.
type Joined struct {
	Spawn     Cell
	UserID    string
	AvatarURL string
	Users     []Occupant
	Messages  []Message
}

// Occupant is the public view of a session in a room.
type Occupant struct {
	SessionID string
	UserID    string
	Username  string
	AvatarURL string
	Cell      Cell
}

// Position is a location in fine units. UserID is empty in replies to the mover.
type Position struct {
	UserID string
	X      float64
	Y      float64
}
