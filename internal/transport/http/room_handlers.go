package http

import (
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/gridverse/internal/core"
	"github.com/vovakirdan/gridverse/internal/store"
)

// RoomHandlers provides HTTP handlers for live room endpoints.
type RoomHandlers struct {
	hub *core.Hub
	log *zerolog.Logger
}

// NewRoomHandlers creates a new room handlers instance.
func NewRoomHandlers(hub *core.Hub, logger *zerolog.Logger) *RoomHandlers {
	return &RoomHandlers{
		hub: hub,
		log: logger,
	}
}

// OccupantResponse represents a connected session in API responses.
type OccupantResponse struct {
	ID        string `json:"id"`
	UserID    string `json:"userId"`
	Username  string `json:"username,omitempty"`
	AvatarURL string `json:"avatarUrl,omitempty"`
	X         int    `json:"x"`
	Y         int    `json:"y"`
}

// OccupantsResponse lists a room's occupants.
type OccupantsResponse struct {
	Room      string             `json:"room"`
	Occupants []OccupantResponse `json:"occupants"`
}

// Occupants lists who is connected to a room right now.
// GET /api/rooms/:kind/:id/occupants
func (h *RoomHandlers) Occupants(c *gin.Context) {
	key, ok := roomKeyParam(c)
	if !ok {
		return
	}

	occupants := h.hub.Occupants(key)
	sort.Slice(occupants, func(i, j int) bool {
		if occupants[i].UserID != occupants[j].UserID {
			return occupants[i].UserID < occupants[j].UserID
		}
		return occupants[i].SessionID < occupants[j].SessionID
	})

	response := OccupantsResponse{
		Room:      key.String(),
		Occupants: make([]OccupantResponse, 0, len(occupants)),
	}
	for _, o := range occupants {
		response.Occupants = append(response.Occupants, OccupantResponse{
			ID:        o.SessionID,
			UserID:    o.UserID,
			Username:  o.Username,
			AvatarURL: o.AvatarURL,
			X:         o.Cell.X,
			Y:         o.Cell.Y,
		})
	}

	c.JSON(http.StatusOK, response)
}

// InvalidateGeometry drops cached geometry after the room layout changed.
// POST /api/admin/rooms/:kind/:id/invalidate
func (h *RoomHandlers) InvalidateGeometry(c *gin.Context) {
	key, ok := roomKeyParam(c)
	if !ok {
		return
	}

	h.hub.InvalidateGeometry(key)
	h.log.Info().Str("room", key.String()).Msg("room geometry invalidated")
	c.Status(http.StatusNoContent)
}

func roomKeyParam(c *gin.Context) (core.RoomKey, bool) {
	kind := store.RoomKind(c.Param("kind"))
	id := c.Param("id")
	if !kind.Valid() || id == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "room kind must be space or map"})
		return core.RoomKey{}, false
	}
	return core.RoomKey{Kind: kind, ID: id}, true
}
