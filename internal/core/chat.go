package core

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/vovakirdan/gridverse/internal/store"
)

func (h *Hub) chat(ctx context.Context, s *Session, req *ChatRequest) error {
	key, ok := s.Room()
	userID := s.UserID()
	if !ok || userID == "" {
		return ErrNotInRoom
	}
	room, ok := h.rooms.Lookup(key)
	if !ok {
		return ErrNotInRoom
	}

	text := strings.TrimSpace(truncate(req.Text, h.opts.MaxChatLength))
	if text == "" {
		return ErrBadRequest
	}
	displayName := strings.TrimSpace(req.DisplayName)
	if displayName == "" {
		displayName = userID
	}

	logger := h.log.With().Str("conn_id", s.ID).Str("user_id", userID).Str("room", key.String()).Logger()

	msg := &Message{
		Room:        key,
		UserID:      userID,
		DisplayName: displayName,
		Text:        text,
		CreatedAt:   h.now().UTC(),
		TaggedUsers: h.filterTags(ctx, key, req.TaggedUserIDs, &logger),
	}
	h.persist(ctx, msg, &logger)

	ev := &Event{Kind: EventChat, Room: key, Message: msg}
	h.send(s, ev)
	room.Broadcast(ev, s)
	h.metrics.IncChatsRelayed()
	return nil
}

// persist stores msg and fills its id. Failures are logged and the message
// is still delivered with id 0.
func (h *Hub) persist(ctx context.Context, msg *Message, logger *zerolog.Logger) {
	uid, ok := numericID(msg.UserID)
	if !ok {
		h.metrics.IncPersistenceFailures()
		logger.Warn().Msg("non-numeric user id, message not persisted")
		return
	}

	tagged := make([]int64, 0, len(msg.TaggedUsers))
	for _, id := range msg.TaggedUsers {
		if n, ok := numericID(id); ok {
			tagged = append(tagged, n)
		}
	}

	rec := &store.Message{
		RoomKind:      msg.Room.Kind,
		RoomID:        msg.Room.ID,
		UserID:        uid,
		DisplayName:   msg.DisplayName,
		Text:          msg.Text,
		TaggedUserIDs: tagged,
		CreatedAt:     msg.CreatedAt,
	}
	if err := h.store.SaveMessage(ctx, rec); err != nil {
		h.metrics.IncPersistenceFailures()
		logger.Warn().Err(err).Msg("failed to persist chat message")
		msg.CreatedAt = h.now().UTC()
		return
	}
	msg.ID = rec.ID
}

// filterTags keeps the tagged ids that have written in the room before.
// Only canonical decimal ids qualify and they are returned as sent.
// A failing lookup drops every tag.
func (h *Hub) filterTags(ctx context.Context, key RoomKey, ids []string, logger *zerolog.Logger) []string {
	if len(ids) == 0 {
		return []string{}
	}

	seen := make(map[int64]struct{}, len(ids))
	candidates := make([]int64, 0, len(ids))
	for _, id := range ids {
		n, ok := numericID(id)
		if !ok || strconv.FormatInt(n, 10) != id {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		candidates = append(candidates, n)
	}
	if len(candidates) == 0 {
		return []string{}
	}

	authors, err := h.store.ListRoomAuthors(ctx, key.Kind, key.ID, candidates)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to filter tagged users")
		return []string{}
	}

	known := make(map[int64]struct{}, len(authors))
	for _, a := range authors {
		known[a] = struct{}{}
	}
	out := make([]string, 0, len(authors))
	for _, n := range candidates {
		if _, ok := known[n]; ok {
			out = append(out, strconv.FormatInt(n, 10))
		}
	}
	return out
}

// history loads the most recent messages in chronological order.
// Failures are logged and yield an empty history.
func (h *Hub) history(ctx context.Context, key RoomKey, logger *zerolog.Logger) []Message {
	recs, err := h.store.ListMessages(ctx, key.Kind, key.ID, h.opts.HistoryLimit, nil)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to load history")
		return []Message{}
	}

	out := make([]Message, 0, len(recs))
	for _, rec := range recs {
		tags := make([]string, 0, len(rec.TaggedUserIDs))
		for _, id := range rec.TaggedUserIDs {
			tags = append(tags, strconv.FormatInt(id, 10))
		}
		out = append(out, Message{
			ID:          rec.ID,
			Room:        key,
			UserID:      strconv.FormatInt(rec.UserID, 10),
			DisplayName: rec.DisplayName,
			Text:        rec.Text,
			CreatedAt:   rec.CreatedAt.UTC(),
			TaggedUsers: tags,
		})
	}
	return out
}

// truncate cuts s to at most n characters.
func truncate(s string, n int) string {
	if n <= 0 {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

// FormatCreatedAt renders a message timestamp for clients.
func FormatCreatedAt(t time.Time) string {
	return t.UTC().Format(CreatedAtLayout)
}
