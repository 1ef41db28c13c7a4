package core

import "encoding/json"

// CommandKind describes what the client wants to do.
type CommandKind int

const (
	// CommandJoin authenticates the session and places it in a room.
	CommandJoin CommandKind = iota
	// CommandMove requests a new avatar position.
	CommandMove
	// CommandChat sends a chat message to the room.
	CommandChat
	// CommandSignal relays a video call signaling message.
	CommandSignal
)

// Command represents an action requested by a client.
// Exactly one of the payload fields matching Kind is set.
type Command struct {
	Kind   CommandKind
	Join   *JoinRequest
	Move   *MoveRequest
	Chat   *ChatRequest
	Signal *Signal
}

// JoinRequest names exactly one of SpaceID or MapID.
type JoinRequest struct {
	SpaceID string
	MapID   string
	Token   string
}

// MoveRequest is an absolute position in fine units.
type MoveRequest struct {
	X        float64
	Y        float64
	Teleport bool
}

// ChatRequest is an outgoing chat message before validation.
type ChatRequest struct {
	Text          string
	DisplayName   string
	TaggedUserIDs []string
}

// Signal is an opaque video call message. Payload fields the server
// attaches (sender ids, initiator flag) overwrite whatever the client sent.
type Signal struct {
	Type    string
	Payload map[string]json.RawMessage
}
