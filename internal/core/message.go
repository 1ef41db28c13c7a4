package core

import "time"

// CreatedAtLayout is how message timestamps travel to clients.
const CreatedAtLayout = "2006-01-02T15:04:05.000Z07:00"

// Message is the domain model for a chat message.
type Message struct {
	ID          int64
	Room        RoomKey
	UserID      string
	DisplayName string
	Text        string
	CreatedAt   time.Time
	TaggedUsers []string
}
