package app

import (
	"context"
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/gridverse/internal/auth"
	"github.com/vovakirdan/gridverse/internal/config"
	"github.com/vovakirdan/gridverse/internal/core"
	"github.com/vovakirdan/gridverse/internal/metrics"
	"github.com/vovakirdan/gridverse/internal/store"
	"github.com/vovakirdan/gridverse/internal/store/sqlite"
	transporthttp "github.com/vovakirdan/gridverse/internal/transport/http"
)

// App wires together core and transport layers.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	hub             *core.Hub
	store           store.Store
	log             *zerolog.Logger
}

// OpenStore opens the database and applies the schema.
func OpenStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	st, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return st, nil
}

// New constructs the application with provided configuration.
func New(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	st, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	logger.Info().Str("db_path", cfg.DatabasePath).Msg("database initialized")

	if cfg.JWTSecret == "" {
		logger.Warn().Msg("jwt_secret is empty, every join will be rejected")
	}

	verifier := auth.NewVerifier(&auth.JWTConfig{
		Secret:   []byte(cfg.JWTSecret),
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
	})

	hub := core.NewHub(st, verifier, core.Options{
		HistoryLimit:  cfg.HistoryLimit,
		MaxChatLength: cfg.MaxChatLength,
		MapSpawn:      core.Cell{X: cfg.MapSpawnX, Y: cfg.MapSpawnY},
		GeometryTTL:   cfg.GeometryCacheTTL,
	}, metrics.New(), logger)

	server := transporthttp.NewServer(hub, verifier, st, cfg, logger)

	return &App{
		server:          server,
		shutdownTimeout: cfg.ShutdownTimeout,
		hub:             hub,
		store:           st,
		log:             logger,
	}, nil
}

// Run starts the HTTP server and blocks until context cancellation or fatal error.
func (a *App) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	go func() {
		a.log.Info().Str("addr", a.server.Addr).Msg("http server listening")
		if err := a.server.ListenAndServe(); err != nil && err != stdhttp.ErrServerClosed {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	select {
	case err := <-serverErr:
		a.cleanup()
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down http server")
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			a.cleanup()
			return err
		}

		a.cleanup()
		return <-serverErr
	}
}

// cleanup closes database and other resources.
func (a *App) cleanup() {
	snapshot := a.hub.Metrics().Snapshot()
	a.log.Info().
		Int64("joins", snapshot["joins"]).
		Int64("chats_relayed", snapshot["chats_relayed"]).
		Int64("persistence_failures", snapshot["persistence_failures"]).
		Msg("final counters")

	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close store")
		} else {
			a.log.Info().Msg("store closed")
		}
	}
}
