package core

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/rs/zerolog"
	"github.com/vovakirdan/gridverse/internal/metrics"
	"github.com/vovakirdan/gridverse/internal/store"
)

// Store is the persistence the hub needs.
type Store interface {
	store.UserStore
	store.RoomStore
	store.MessageStore
	store.VisitStore
}

// CredentialVerifier turns a join token into a user id.
type CredentialVerifier interface {
	Verify(token string) (string, error)
}

// Options tunes the hub.
type Options struct {
	HistoryLimit  int
	MaxChatLength int
	MapSpawn      Cell
	GeometryTTL   time.Duration
}

// DefaultOptions returns the stock limits.
func DefaultOptions() Options {
	return Options{
		HistoryLimit:  50,
		MaxChatLength: 2000,
		MapSpawn:      Cell{X: 10, Y: 10},
	}
}

// Hub owns the room registry and applies client commands to it.
// One Hub is constructed at startup and shared by all connections.
type Hub struct {
	store    Store
	verifier CredentialVerifier
	opts     Options
	rooms    *Registry
	geometry *GeometryCache
	metrics  *metrics.Counters
	log      *zerolog.Logger

	now  func() time.Time
	intn func(n int) int
}

// NewHub creates a hub. A nil metrics or logger is replaced with a no-op one.
func NewHub(st Store, verifier CredentialVerifier, opts Options, m *metrics.Counters, logger *zerolog.Logger) *Hub {
	def := DefaultOptions()
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = def.HistoryLimit
	}
	if opts.MaxChatLength <= 0 {
		opts.MaxChatLength = def.MaxChatLength
	}
	if m == nil {
		m = metrics.New()
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	return &Hub{
		store:    st,
		verifier: verifier,
		opts:     opts,
		rooms:    NewRegistry(),
		geometry: NewGeometryCache(st, opts.GeometryTTL),
		metrics:  m,
		log:      logger,
		now:      time.Now,
		intn:     rand.Intn,
	}
}

// Dispatch applies one command from s. Handshake failures are reported with
// errors for which IsFatal is true; any other error means the command was dropped.
func (h *Hub) Dispatch(ctx context.Context, s *Session, cmd *Command) error {
	if cmd == nil {
		return ErrBadRequest
	}
	if cmd.Kind != CommandJoin && !s.Joined() {
		return ErrNotInRoom
	}

	switch cmd.Kind {
	case CommandJoin:
		if cmd.Join == nil {
			return ErrBadJoin
		}
		return h.join(ctx, s, cmd.Join)
	case CommandMove:
		if cmd.Move == nil {
			return ErrBadRequest
		}
		return h.move(ctx, s, cmd.Move)
	case CommandChat:
		if cmd.Chat == nil {
			return ErrBadRequest
		}
		return h.chat(ctx, s, cmd.Chat)
	case CommandSignal:
		if cmd.Signal == nil {
			return ErrBadRequest
		}
		return h.signal(s, cmd.Signal)
	default:
		return fmt.Errorf("%w: unknown command kind %d", ErrBadRequest, cmd.Kind)
	}
}

// Disconnect deregisters s and announces its departure. It is safe to call
// for sessions that never joined.
func (h *Hub) Disconnect(s *Session) {
	s.Close()
	if h.rooms.Leave(s) {
		key, _ := s.Room()
		h.log.Debug().Str("conn_id", s.ID).Str("user_id", s.UserID()).Str("room", key.String()).Msg("session left room")
	}
}

// InvalidateGeometry forces the next move in key to reload room geometry.
func (h *Hub) InvalidateGeometry(key RoomKey) {
	h.geometry.Invalidate(key)
}

// Occupants returns who is currently in key.
func (h *Hub) Occupants(key RoomKey) []Occupant {
	return h.rooms.Occupants(key)
}

// Rooms exposes the registry.
func (h *Hub) Rooms() *Registry {
	return h.rooms
}

// Metrics exposes the hub counters.
func (h *Hub) Metrics() *metrics.Counters {
	return h.metrics
}

func (h *Hub) move(ctx context.Context, s *Session, req *MoveRequest) error {
	key, ok := s.Room()
	if !ok {
		return ErrNotInRoom
	}
	room, ok := h.rooms.Lookup(key)
	if !ok {
		return ErrNotInRoom
	}

	target, err := ToCell(req.X, req.Y)
	if err == nil {
		err = CheckStep(s.Cell(), target, req.Teleport)
	}
	if err == nil {
		var geo *Geometry
		geo, err = h.geometry.Get(ctx, key)
		if err == nil {
			err = geo.CheckCell(target)
		}
	}
	if err == nil {
		ev := &Event{Kind: EventMovement, Room: key, Position: &Position{UserID: s.UserID(), X: req.X, Y: req.Y}}
		if !room.moveTo(s, target, ev) {
			err = coreError(ErrCodeOccupied, fmt.Sprintf("cell %v is occupied", target))
		}
	}

	if err != nil {
		h.metrics.IncMovesRejected()
		h.log.Debug().Err(err).Str("conn_id", s.ID).Str("room", key.String()).Msg("move rejected")
		x, y := s.Cell().Fine()
		h.send(s, &Event{Kind: EventMovementRejected, Room: key, Position: &Position{X: x, Y: y}})
		return nil
	}

	h.metrics.IncMovesAccepted()
	h.send(s, &Event{Kind: EventMovementAccepted, Room: key, Position: &Position{X: req.X, Y: req.Y}})
	return nil
}

func (h *Hub) signal(s *Session, sig *Signal) error {
	key, ok := s.Room()
	userID := s.UserID()
	if !ok || userID == "" {
		h.metrics.IncSignalsDropped()
		return ErrNotInRoom
	}
	room, ok := h.rooms.Lookup(key)
	if !ok {
		h.metrics.IncSignalsDropped()
		return ErrNotInRoom
	}

	if _, err := room.relaySignal(s, userID, sig, h.now()); err != nil {
		h.metrics.IncSignalsDropped()
		return fmt.Errorf("%s: %w", sig.Type, err)
	}
	h.metrics.IncSignalsRelayed()
	return nil
}

func (h *Hub) send(s *Session, ev *Event) {
	if !s.Send(ev) {
		h.metrics.IncEventsDropped()
	}
}
