package core

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/vovakirdan/gridverse/internal/store"
)

func mustEvent(t *testing.T, ch <-chan *Event, kind EventKind) *Event {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case ev := <-ch:
			if ev == nil {
				continue
			}
			if ev.Kind == kind {
				return ev
			}
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
	t.Fatalf("expected event kind %v not received", kind)
	return nil
}

// nextEvent returns the next queued event without skipping any.
func nextEvent(t *testing.T, s *Session) *Event {
	t.Helper()

	select {
	case ev := <-s.Events:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatalf("session %s: no event received", s.ID)
		return nil
	}
}

// mustSignal waits for a relayed signal of the given type.
func mustSignal(t *testing.T, s *Session, typ string) *Signal {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case ev := <-s.Events:
			if ev.Kind == EventSignal && ev.Signal.Type == typ {
				return ev.Signal
			}
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
	t.Fatalf("session %s: expected signal %s not received", s.ID, typ)
	return nil
}

// expectQuiet asserts that nothing is queued for s.
func expectQuiet(t *testing.T, s *Session) {
	t.Helper()

	select {
	case ev := <-s.Events:
		t.Fatalf("session %s: unexpected event %+v", s.ID, ev)
	default:
	}
}

func drain(s *Session) {
	for {
		select {
		case <-s.Events:
		default:
			return
		}
	}
}

// tokenVerifier accepts tokens of the form "token-<userID>".
type tokenVerifier struct{}

func (tokenVerifier) Verify(token string) (string, error) {
	id, ok := strings.CutPrefix(token, "token-")
	if !ok || id == "" {
		return "", errors.New("invalid token")
	}
	return id, nil
}

type visitKey struct {
	userID int64
	mapID  string
}

// memStore is an in-memory Store with failure switches.
type memStore struct {
	mu       sync.Mutex
	users    map[int64]*store.User
	rooms    map[RoomKey]*store.Room
	messages []*store.Message
	visits   map[visitKey]time.Time
	roomHits int

	saveErr  error
	tagsErr  error
	visitErr error
}

func newMemStore() *memStore {
	return &memStore{
		users:  make(map[int64]*store.User),
		rooms:  make(map[RoomKey]*store.Room),
		visits: make(map[visitKey]time.Time),
	}
}

func (m *memStore) addRoom(kind store.RoomKind, id string, w, h int, obstacles ...store.Obstacle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rooms[RoomKey{Kind: kind, ID: id}] = &store.Room{Kind: kind, ID: id, Width: w, Height: h, Obstacles: obstacles}
}

func (m *memStore) addUser(id int64, username, avatar string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[id] = &store.User{ID: id, Username: username, AvatarURL: avatar}
}

func (m *memStore) hits() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.roomHits
}

func (m *memStore) GetUserByID(_ context.Context, id int64) (*store.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return u, nil
}

func (m *memStore) GetRoom(_ context.Context, kind store.RoomKind, id string) (*store.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.roomHits++
	r, ok := m.rooms[RoomKey{Kind: kind, ID: id}]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *memStore) SaveMessage(_ context.Context, msg *store.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	msg.ID = int64(len(m.messages) + 1)
	cp := *msg
	m.messages = append(m.messages, &cp)
	return nil
}

func (m *memStore) ListMessages(_ context.Context, kind store.RoomKind, roomID string, limit int, _ *int64) ([]*store.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*store.Message
	for _, msg := range m.messages {
		if msg.RoomKind == kind && msg.RoomID == roomID {
			out = append(out, msg)
		}
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (m *memStore) ListRoomAuthors(_ context.Context, kind store.RoomKind, roomID string, candidates []int64) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tagsErr != nil {
		return nil, m.tagsErr
	}
	authors := make(map[int64]struct{})
	for _, msg := range m.messages {
		if msg.RoomKind == kind && msg.RoomID == roomID {
			authors[msg.UserID] = struct{}{}
		}
	}
	var out []int64
	for _, c := range candidates {
		if _, ok := authors[c]; ok {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (m *memStore) RecordMapVisit(_ context.Context, userID int64, mapID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.visitErr != nil {
		return m.visitErr
	}
	m.visits[visitKey{userID: userID, mapID: mapID}] = at
	return nil
}

func (m *memStore) ListMapVisits(_ context.Context, userID int64, _ int) ([]*store.MapVisit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*store.MapVisit
	for k, at := range m.visits {
		if k.userID == userID {
			out = append(out, &store.MapVisit{UserID: k.userID, MapID: k.mapID, VisitedAt: at})
		}
	}
	return out, nil
}

// newTestHub builds a hub whose space spawns always land on (10,10).
func newTestHub(t *testing.T, st *memStore) *Hub {
	t.Helper()

	h := NewHub(st, tokenVerifier{}, DefaultOptions(), nil, nil)
	h.intn = func(n int) int { return min(10, n-1) }
	return h
}

// joinAs joins a fresh session for userID and returns it with the handshake reply.
func joinAs(t *testing.T, h *Hub, connID, userID string, req JoinRequest) (*Session, *Joined) {
	t.Helper()

	s := NewSession(connID, 64)
	req.Token = "token-" + userID
	if err := h.Dispatch(context.Background(), s, &Command{Kind: CommandJoin, Join: &req}); err != nil {
		t.Fatalf("join %s: %v", connID, err)
	}
	ev := nextEvent(t, s)
	if ev.Kind != EventJoined {
		t.Fatalf("expected joined event first, got %+v", ev)
	}
	return s, ev.Joined
}

func move(t *testing.T, h *Hub, s *Session, x, y float64, teleport bool) *Event {
	t.Helper()

	if err := h.Dispatch(context.Background(), s, &Command{Kind: CommandMove, Move: &MoveRequest{X: x, Y: y, Teleport: teleport}}); err != nil {
		t.Fatalf("move: %v", err)
	}
	ev := nextEvent(t, s)
	if ev.Kind != EventMovementAccepted && ev.Kind != EventMovementRejected {
		t.Fatalf("expected movement reply, got %+v", ev)
	}
	return ev
}
