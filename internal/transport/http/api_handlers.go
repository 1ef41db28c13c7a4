package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/gridverse/internal/metrics"
	"github.com/vovakirdan/gridverse/internal/store"
)

const (
	defaultVisitLimit = 50
	maxVisitLimit     = 200
)

// APIHandlers provides HTTP handlers for read-only REST endpoints.
type APIHandlers struct {
	visits  store.VisitStore
	metrics *metrics.Counters
	log     *zerolog.Logger
}

// NewAPIHandlers creates a new API handlers instance.
func NewAPIHandlers(visits store.VisitStore, m *metrics.Counters, logger *zerolog.Logger) *APIHandlers {
	return &APIHandlers{
		visits:  visits,
		metrics: m,
		log:     logger,
	}
}

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// VisitResponse represents a visited map in API responses.
type VisitResponse struct {
	MapID     string `json:"mapId"`
	VisitedAt string `json:"visitedAt"`
}

// ListVisits lists the maps the caller has entered, most recent first.
// GET /api/visits?limit=N
func (h *APIHandlers) ListVisits(c *gin.Context) {
	userID, exists := c.Get(ContextKeyUserID)
	if !exists {
		h.log.Error().Msg("user_id not found in context")
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	uid, err := strconv.ParseInt(userID.(string), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "user id is not numeric"})
		return
	}

	limit := defaultVisitLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid limit"})
			return
		}
		limit = min(n, maxVisitLimit)
	}

	visits, err := h.visits.ListMapVisits(c.Request.Context(), uid, limit)
	if err != nil {
		h.log.Error().Err(err).Int64("user_id", uid).Msg("failed to list visits")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	response := make([]VisitResponse, 0, len(visits))
	for _, v := range visits {
		response = append(response, VisitResponse{
			MapID:     v.MapID,
			VisitedAt: v.VisitedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		})
	}

	c.JSON(http.StatusOK, response)
}

// Metrics returns the current counters.
// GET /metrics
func (h *APIHandlers) Metrics(c *gin.Context) {
	c.JSON(http.StatusOK, h.metrics.Snapshot())
}
