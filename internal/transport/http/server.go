package http

import (
	"fmt"
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/gridverse/internal/config"
	"github.com/vovakirdan/gridverse/internal/core"
	"github.com/vovakirdan/gridverse/internal/store"
)

// NewServer builds an HTTP server with the WebSocket endpoint and REST routes.
func NewServer(hub *core.Hub, verifier core.CredentialVerifier, st store.VisitStore, cfg *config.Config, logger *zerolog.Logger) *stdhttp.Server {
	mux := stdhttp.NewServeMux()
	mux.HandleFunc("/health", healthHandler)
	mux.Handle("/ws", NewWSHandler(hub, cfg, logger))

	api := newRouter(hub, verifier, st, cfg, logger)
	mux.Handle("/api/", api)
	mux.Handle("/metrics", api)

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

func newRouter(hub *core.Hub, verifier core.CredentialVerifier, st store.VisitStore, cfg *config.Config, logger *zerolog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), LoggerMiddleware(logger))

	apiHandlers := NewAPIHandlers(st, hub.Metrics(), logger)
	roomHandlers := NewRoomHandlers(hub, logger)

	router.GET("/metrics", apiHandlers.Metrics)

	authed := router.Group("/api", AuthMiddleware(verifier, logger))
	authed.GET("/visits", apiHandlers.ListVisits)
	authed.GET("/rooms/:kind/:id/occupants", roomHandlers.Occupants)

	admin := router.Group("/api/admin", AdminMiddleware(cfg.AdminToken, logger))
	admin.POST("/rooms/:kind/:id/invalidate", roomHandlers.InvalidateGeometry)

	return router
}

func healthHandler(w stdhttp.ResponseWriter, _ *stdhttp.Request) {
	_, _ = fmt.Fprint(w, "ok")
}
