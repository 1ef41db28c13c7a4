package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// User is a user profile.
type User struct {
	ID        int64
	Username  string
	AvatarURL string
	CreatedAt time.Time
}

// RoomKind distinguishes the two kinds of rooms.
type RoomKind string

const (
	RoomKindSpace RoomKind = "space"
	RoomKindMap   RoomKind = "map"
)

// Valid reports whether k is a known room kind.
func (k RoomKind) Valid() bool {
	return k == RoomKindSpace || k == RoomKindMap
}

// Obstacle is a static rectangle of blocked cells.
type Obstacle struct {
	X      int
	Y      int
	Width  int
	Height int
}

// Room is a space or map together with its grid geometry.
type Room struct {
	Kind      RoomKind
	ID        string
	Name      string
	Width     int
	Height    int
	Obstacles []Obstacle
	CreatedAt time.Time
}

// Message represents a persisted chat message.
type Message struct {
	ID            int64
	RoomKind      RoomKind
	RoomID        string
	UserID        int64
	DisplayName   string
	Text          string
	TaggedUserIDs []int64
	CreatedAt     time.Time
}

// MapVisit records the last time a user entered a map.
type MapVisit struct {
	UserID    int64
	MapID     string
	VisitedAt time.Time
}

// UserStore handles user persistence.
type UserStore interface {
	// GetUserByID retrieves a user by ID.
	GetUserByID(ctx context.Context, id int64) (*User, error)
}

// RoomStore handles room geometry lookups.
type RoomStore interface {
	// GetRoom retrieves a room with its obstacles.
	GetRoom(ctx context.Context, kind RoomKind, id string) (*Room, error)
}

// MessageStore handles message persistence.
type MessageStore interface {
	// SaveMessage persists a message and sets its ID.
	SaveMessage(ctx context.Context, msg *Message) error

	// ListMessages retrieves messages from a room in chronological order.
	// If beforeID is provided, returns messages older than that ID.
	ListMessages(ctx context.Context, kind RoomKind, roomID string, limit int, beforeID *int64) ([]*Message, error)

	// ListRoomAuthors returns the subset of candidates that have written
	// at least one message in the room.
	ListRoomAuthors(ctx context.Context, kind RoomKind, roomID string, candidates []int64) ([]int64, error)
}

// VisitStore tracks which maps users have entered.
type VisitStore interface {
	// RecordMapVisit creates the visit row or moves its timestamp.
	RecordMapVisit(ctx context.Context, userID int64, mapID string, at time.Time) error

	// ListMapVisits lists a user's visits, most recent first.
	ListMapVisits(ctx context.Context, userID int64, limit int) ([]*MapVisit, error)
}

// Seeder writes fixture data. Rooms are otherwise owned by external tooling.
type Seeder interface {
	// CreateUser creates a new user.
	CreateUser(ctx context.Context, username, avatarURL string) (*User, error)

	// UpsertRoom creates or replaces a room and its obstacles.
	UpsertRoom(ctx context.Context, room *Room) error
}

// Store aggregates all storage interfaces.
type Store interface {
	UserStore
	RoomStore
	MessageStore
	VisitStore
	Seeder

	// Migrate applies the schema. It is safe to call repeatedly.
	Migrate(ctx context.Context) error

	// Close closes the underlying database connection.
	Close() error
}
