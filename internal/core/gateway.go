package core

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/vovakirdan/gridverse/internal/store"
)

// join performs the handshake: verify, resolve room and profile, place the
// session, hydrate history and announce it.
func (h *Hub) join(ctx context.Context, s *Session, req *JoinRequest) error {
	if !s.claim() {
		return ErrAlreadyJoined
	}

	key, err := joinKey(req)
	if err == nil {
		err = h.admit(ctx, s, key, req.Token)
	}
	if err != nil {
		s.release()
		h.metrics.IncJoinsRejected()
		return err
	}
	h.metrics.IncJoins()
	return nil
}

func (h *Hub) admit(ctx context.Context, s *Session, key RoomKey, token string) error {
	userID, err := h.verifier.Verify(token)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	if userID == "" {
		return fmt.Errorf("%w: empty user id", ErrUnauthorized)
	}

	geo, err := h.geometry.Get(ctx, key)
	if err != nil {
		return err
	}

	logger := h.log.With().Str("conn_id", s.ID).Str("user_id", userID).Str("room", key.String()).Logger()

	var username, avatarURL string
	if uid, ok := numericID(userID); ok {
		user, err := h.store.GetUserByID(ctx, uid)
		switch {
		case err == nil:
			username, avatarURL = user.Username, user.AvatarURL
		case errors.Is(err, store.ErrNotFound):
			logger.Debug().Msg("no profile for user")
		default:
			logger.Warn().Err(err).Msg("failed to load profile")
		}
	}
	s.setProfile(userID, username, avatarURL)

	want := h.opts.MapSpawn
	if key.Kind == store.RoomKindSpace && geo.Width > 0 && geo.Height > 0 {
		want = Cell{X: h.intn(geo.Width), Y: h.intn(geo.Height)}
	}

	if key.Kind == store.RoomKindMap {
		if uid, ok := numericID(userID); ok {
			if err := h.store.RecordMapVisit(ctx, uid, key.ID, h.now()); err != nil {
				h.metrics.IncPersistenceFailures()
				logger.Warn().Err(err).Msg("failed to record map visit")
			}
		}
	}

	history := h.history(ctx, key, &logger)

	room := h.rooms.Room(key)
	spawn, delivered, ok := room.admit(s,
		func(occupied func(Cell) bool) Cell {
			return geo.NearestFree(want, occupied)
		},
		func(spawn Cell, others []Occupant) *Event {
			return &Event{
				Kind: EventJoined,
				Room: key,
				Joined: &Joined{
					Spawn:     spawn,
					UserID:    userID,
					AvatarURL: avatarURL,
					Users:     others,
					Messages:  history,
				},
			}
		},
	)
	if !ok {
		return ErrAlreadyJoined
	}
	if !delivered {
		h.metrics.IncEventsDropped()
		logger.Warn().Msg("handshake reply dropped")
	}

	logger.Info().Int("x", spawn.X).Int("y", spawn.Y).Msg("session joined")
	return nil
}

// joinKey validates that exactly one room was named and a token is present.
func joinKey(req *JoinRequest) (RoomKey, error) {
	switch {
	case req.SpaceID != "" && req.MapID != "":
		return RoomKey{}, fmt.Errorf("%w: both spaceId and mapId", ErrBadJoin)
	case req.SpaceID == "" && req.MapID == "":
		return RoomKey{}, fmt.Errorf("%w: spaceId or mapId required", ErrBadJoin)
	case req.Token == "":
		return RoomKey{}, fmt.Errorf("%w: token required", ErrBadJoin)
	case req.SpaceID != "":
		return RoomKey{Kind: store.RoomKindSpace, ID: req.SpaceID}, nil
	default:
		return RoomKey{Kind: store.RoomKindMap, ID: req.MapID}, nil
	}
}

func numericID(id string) (int64, bool) {
	n, err := strconv.ParseInt(id, 10, 64)
	return n, err == nil
}
