package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/vovakirdan/gridverse/internal/store"
)

//go:embed schema.sql
var schema string

const dsnOptions = "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on"

// SQLiteStore implements store.Store for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

var _ store.Store = (*SQLiteStore)(nil)

// New creates a new SQLite store.
// dbPath is the path to the SQLite database file.
func New(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+dsnOptions)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	// SQLite works best with a single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	return &SQLiteStore{db: db}, nil
}

// NewWithSetup creates a new SQLite store and runs a setup function.
// Useful for tests to apply fixtures on top of or instead of the schema.
func NewWithSetup(dbPath string, setup func(*sql.DB) error) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+dsnOptions)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// Set connection pool limits before setup so :memory: stays on one connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if setup != nil {
		if err := setup(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("setup: %w", err)
		}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Migrate applies the embedded schema.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ==== UserStore implementation ====

// CreateUser creates a new user.
func (s *SQLiteStore) CreateUser(ctx context.Context, username, avatarURL string) (*store.User, error) {
	query := `
		INSERT INTO users (username, avatar_url)
		VALUES (?, ?)
	`
	result, err := s.db.ExecContext(ctx, query, username, avatarURL)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}

	return s.GetUserByID(ctx, id)
}

// GetUserByID retrieves a user by ID.
func (s *SQLiteStore) GetUserByID(ctx context.Context, id int64) (*store.User, error) {
	query := `
		SELECT id, username, avatar_url, created_at
		FROM users
		WHERE id = ?
	`
	var user store.User
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&user.ID,
		&user.Username,
		&user.AvatarURL,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user %d: %w", id, store.ErrNotFound)
		}
		return nil, fmt.Errorf("query user: %w", err)
	}

	return &user, nil
}

// ==== RoomStore implementation ====

// GetRoom retrieves a room with its obstacles.
func (s *SQLiteStore) GetRoom(ctx context.Context, kind store.RoomKind, id string) (*store.Room, error) {
	query := `
		SELECT kind, id, name, width, height, created_at
		FROM rooms
		WHERE kind = ? AND id = ?
	`
	var room store.Room
	var roomKind string
	err := s.db.QueryRowContext(ctx, query, string(kind), id).Scan(
		&roomKind,
		&room.ID,
		&room.Name,
		&room.Width,
		&room.Height,
		&room.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("room %s:%s: %w", kind, id, store.ErrNotFound)
		}
		return nil, fmt.Errorf("query room: %w", err)
	}
	room.Kind = store.RoomKind(roomKind)

	obstacleQuery := `
		SELECT x, y, width, height
		FROM obstacles
		WHERE room_kind = ? AND room_id = ?
		ORDER BY id ASC
	`
	rows, err := s.db.QueryContext(ctx, obstacleQuery, string(kind), id)
	if err != nil {
		return nil, fmt.Errorf("query obstacles: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var o store.Obstacle
		if err := rows.Scan(&o.X, &o.Y, &o.Width, &o.Height); err != nil {
			return nil, fmt.Errorf("scan obstacle: %w", err)
		}
		room.Obstacles = append(room.Obstacles, o)
	}

	return &room, rows.Err()
}

// UpsertRoom creates or replaces a room and its obstacles.
func (s *SQLiteStore) UpsertRoom(ctx context.Context, room *store.Room) error {
	if !room.Kind.Valid() {
		return fmt.Errorf("invalid room kind %q", room.Kind)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback() //nolint:errcheck // Rollback after Commit is a no-op
	}()

	roomQuery := `
		INSERT INTO rooms (kind, id, name, width, height)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (kind, id) DO UPDATE SET
			name = excluded.name,
			width = excluded.width,
			height = excluded.height
	`
	if _, err := tx.ExecContext(ctx, roomQuery, string(room.Kind), room.ID, room.Name, room.Width, room.Height); err != nil {
		return fmt.Errorf("upsert room: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM obstacles WHERE room_kind = ? AND room_id = ?`, string(room.Kind), room.ID); err != nil {
		return fmt.Errorf("clear obstacles: %w", err)
	}

	obstacleQuery := `
		INSERT INTO obstacles (room_kind, room_id, x, y, width, height)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	for _, o := range room.Obstacles {
		if _, err := tx.ExecContext(ctx, obstacleQuery, string(room.Kind), room.ID, o.X, o.Y, o.Width, o.Height); err != nil {
			return fmt.Errorf("insert obstacle: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// ==== MessageStore implementation ====

// SaveMessage persists a message and its tags.
func (s *SQLiteStore) SaveMessage(ctx context.Context, msg *store.Message) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback() //nolint:errcheck // Rollback after Commit is a no-op
	}()

	query := `
		INSERT INTO messages (room_kind, room_id, user_id, display_name, text, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	result, err := tx.ExecContext(ctx, query, string(msg.RoomKind), msg.RoomID, msg.UserID, msg.DisplayName, msg.Text, msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}

	tagQuery := `
		INSERT OR IGNORE INTO message_tags (message_id, user_id)
		VALUES (?, ?)
	`
	for _, userID := range msg.TaggedUserIDs {
		if _, err := tx.ExecContext(ctx, tagQuery, id, userID); err != nil {
			return fmt.Errorf("insert message tag: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	msg.ID = id
	return nil
}

// ListMessages retrieves messages from a room with pagination.
func (s *SQLiteStore) ListMessages(ctx context.Context, kind store.RoomKind, roomID string, limit int, beforeID *int64) ([]*store.Message, error) {
	var query string
	var args []interface{}

	if beforeID != nil {
		query = `
			SELECT id, room_kind, room_id, user_id, display_name, text, created_at
			FROM messages
			WHERE room_kind = ? AND room_id = ? AND id < ?
			ORDER BY id DESC
			LIMIT ?
		`
		args = []interface{}{string(kind), roomID, *beforeID, limit}
	} else {
		query = `
			SELECT id, room_kind, room_id, user_id, display_name, text, created_at
			FROM messages
			WHERE room_kind = ? AND room_id = ?
			ORDER BY id DESC
			LIMIT ?
		`
		args = []interface{}{string(kind), roomID, limit}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var messages []*store.Message
	byID := make(map[int64]*store.Message)
	for rows.Next() {
		var msg store.Message
		var msgKind string
		if err := rows.Scan(&msg.ID, &msgKind, &msg.RoomID, &msg.UserID, &msg.DisplayName, &msg.Text, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msg.RoomKind = store.RoomKind(msgKind)
		messages = append(messages, &msg)
		byID[msg.ID] = &msg
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}

	// Reverse to get chronological order
	for i := 0; i < len(messages)/2; i++ {
		messages[i], messages[len(messages)-1-i] = messages[len(messages)-1-i], messages[i]
	}

	if err := s.attachTags(ctx, byID); err != nil {
		return nil, err
	}

	return messages, nil
}

func (s *SQLiteStore) attachTags(ctx context.Context, byID map[int64]*store.Message) error {
	if len(byID) == 0 {
		return nil
	}

	ids := make([]interface{}, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}

	query := `
		SELECT message_id, user_id
		FROM message_tags
		WHERE message_id IN (` + placeholders(len(ids)) + `)
		ORDER BY rowid ASC
	`
	rows, err := s.db.QueryContext(ctx, query, ids...)
	if err != nil {
		return fmt.Errorf("query message tags: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var messageID, userID int64
		if err := rows.Scan(&messageID, &userID); err != nil {
			return fmt.Errorf("scan message tag: %w", err)
		}
		if msg, ok := byID[messageID]; ok {
			msg.TaggedUserIDs = append(msg.TaggedUserIDs, userID)
		}
	}

	return rows.Err()
}

// ListRoomAuthors returns the candidates that have at least one message in the room.
func (s *SQLiteStore) ListRoomAuthors(ctx context.Context, kind store.RoomKind, roomID string, candidates []int64) ([]int64, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	args := []interface{}{string(kind), roomID}
	for _, id := range candidates {
		args = append(args, id)
	}

	query := `
		SELECT DISTINCT user_id
		FROM messages
		WHERE room_kind = ? AND room_id = ? AND user_id IN (` + placeholders(len(candidates)) + `)
	`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query room authors: %w", err)
	}
	defer rows.Close()

	var authors []int64
	for rows.Next() {
		var userID int64
		if err := rows.Scan(&userID); err != nil {
			return nil, fmt.Errorf("scan room author: %w", err)
		}
		authors = append(authors, userID)
	}

	return authors, rows.Err()
}

// ==== VisitStore implementation ====

// RecordMapVisit creates the visit row or moves its timestamp forward.
func (s *SQLiteStore) RecordMapVisit(ctx context.Context, userID int64, mapID string, at time.Time) error {
	query := `
		INSERT INTO map_visits (user_id, map_id, visited_at)
		VALUES (?, ?, ?)
		ON CONFLICT (user_id, map_id) DO UPDATE SET visited_at = excluded.visited_at
	`
	if _, err := s.db.ExecContext(ctx, query, userID, mapID, at); err != nil {
		return fmt.Errorf("upsert map visit: %w", err)
	}
	return nil
}

// ListMapVisits lists a user's visits, most recent first.
func (s *SQLiteStore) ListMapVisits(ctx context.Context, userID int64, limit int) ([]*store.MapVisit, error) {
	query := `
		SELECT user_id, map_id, visited_at
		FROM map_visits
		WHERE user_id = ?
		ORDER BY visited_at DESC
		LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query map visits: %w", err)
	}
	defer rows.Close()

	var visits []*store.MapVisit
	for rows.Next() {
		var v store.MapVisit
		if err := rows.Scan(&v.UserID, &v.MapID, &v.VisitedAt); err != nil {
			return nil, fmt.Errorf("scan map visit: %w", err)
		}
		visits = append(visits, &v)
	}

	return visits, rows.Err()
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
