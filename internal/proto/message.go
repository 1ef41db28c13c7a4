package proto

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Inbound is the envelope for messages coming from the client.
type Inbound struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Outbound is the envelope for messages sent to the client.
type Outbound struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

const (
	InboundTypeJoin = "join"
	InboundTypeMove = "move"
	InboundTypeChat = "chat"

	OutboundTypeSpaceJoined      = "space-joined"
	OutboundTypeMapJoined        = "map-joined"
	OutboundTypeUserJoined       = "user-joined"
	OutboundTypeUserLeft         = "user-left"
	OutboundTypeMovement         = "movement"
	OutboundTypeMovementAccepted = "movement-accepted"
	OutboundTypeMovementRejected = "movement-rejected"
	OutboundTypeChat             = "chat"
)

// Signaling types are relayed in both directions under the same name.
const (
	TypeVideoJoinRequest  = "video-join-request"
	TypeVideoJoinAccepted = "video-join-accepted"
	TypeVideoJoinDeclined = "video-join-declined"
	TypeVideoJoin         = "video-join"
	TypeVideoLeave        = "video-leave"
	TypeVideoOffer        = "video-offer"
	TypeVideoAnswer       = "video-answer"
	TypeVideoICECandidate = "video-ice-candidate"
	TypeVideoMediaState   = "video-media-state"
	TypeVideoKick         = "video-kick"
)

// ID is an identifier that clients may send either as a JSON string or a number.
type ID string

// UnmarshalJSON accepts "7", 7 and null.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	*id = ID(n.String())
	return nil
}

// JoinData asks to enter exactly one space or map.
type JoinData struct {
	SpaceID ID     `json:"spaceId,omitempty"`
	MapID   ID     `json:"mapId,omitempty"`
	Token   string `json:"token"`
}

// MoveData is a requested absolute position in fine (pixel) units.
// X and Y are nil when the client omitted them.
type MoveData struct {
	X        *float64 `json:"x"`
	Y        *float64 `json:"y"`
	Teleport bool     `json:"teleport,omitempty"`
}

// ChatData is a chat message from the client.
type ChatData struct {
	Text          string `json:"text"`
	DisplayName   string `json:"displayName,omitempty"`
	TaggedUserIDs []ID   `json:"taggedUserIds,omitempty"`
}

// Cell is a grid position.
type Cell struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Point is a fine-grained position.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Occupant describes another session already present in the room.
type Occupant struct {
	ID        string `json:"id"`
	UserID    string `json:"userId"`
	Username  string `json:"username,omitempty"`
	X         int    `json:"x"`
	Y         int    `json:"y"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

// JoinedData is the handshake reply for space-joined and map-joined.
type JoinedData struct {
	Spawn     Cell          `json:"spawn"`
	UserID    string        `json:"userId"`
	AvatarURL string        `json:"avatarUrl,omitempty"`
	Users     []Occupant    `json:"users"`
	Messages  []ChatMessage `json:"messages"`
}

// UserJoinedData announces a new occupant.
type UserJoinedData struct {
	UserID    string `json:"userId"`
	Username  string `json:"username,omitempty"`
	X         int    `json:"x"`
	Y         int    `json:"y"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

// UserLeftData announces a departed occupant.
type UserLeftData struct {
	UserID string `json:"userId"`
}

// MovementData is broadcast for an accepted move, in fine units.
type MovementData struct {
	UserID string  `json:"userId"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
}

// ChatMessage is a persisted chat message as seen by clients.
type ChatMessage struct {
	ID          int64    `json:"id"`
	UserID      string   `json:"userId"`
	DisplayName string   `json:"displayName"`
	Text        string   `json:"text"`
	CreatedAt   string   `json:"createdAt"`
	TaggedUsers []string `json:"taggedUsers"`
}
