package app

import (
	"context"
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/huddle-server/internal/auth"
	"github.com/vovakirdan/huddle-server/internal/callengine"
	"github.com/vovakirdan/huddle-server/internal/callengine/livekit"
	"github.com/vovakirdan/huddle-server/internal/camera"
	"github.com/vovakirdan/huddle-server/internal/config"
	"github.com/vovakirdan/huddle-server/internal/core"
	"github.com/vovakirdan/huddle-server/internal/players"
	"github.com/vovakirdan/huddle-server/internal/presence"
	"github.com/vovakirdan/huddle-server/internal/seats"
	"github.com/vovakirdan/huddle-server/internal/store"
	"github.com/vovakirdan/huddle-server/internal/store/sqlite"
	transporthttp "github.com/vovakirdan/huddle-server/internal/transport/http"
)

// App wires together core and transport layers.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	registry        *presence.Registry
	store           store.Store
	log             *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	st, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}
	logger.Info().Str("db_path", cfg.DatabasePath).Msg("database initialized")

	authService := auth.NewService(auth.NewJWTConfig(cfg.ReconnectSecret, cfg.ReconnectTTL), cfg.HostSecretHash, nil)
	if cfg.HostSecretHash != "" {
		logger.Info().Msg("host secret required for host identities")
	}

	var engine callengine.Engine
	if cfg.LiveKitEnabled() {
		engine = livekit.New(cfg.LiveKitAPIKey, cfg.LiveKitAPISecret, cfg.LiveKitURL, cfg.MediaTokenTTL)
		logger.Info().Str("url", cfg.LiveKitURL).Msg("media token issuance enabled")
	}

	bus := core.NewBus()
	registry := presence.New(presence.Deps{
		Bus:       bus,
		Seats:     seats.New(cfg.SeatCount, bus),
		Camera:    camera.New(bus, camera.Options{Debounce: cfg.CameraDebounce, RemoveDelay: cfg.CameraRemoveDelay}),
		Players:   players.New(bus),
		LastSeats: st,
		Auth:      authService,
		Logger:    logger,
	}, presence.Options{
		Room:                cfg.Room,
		HostPrefix:          cfg.HostPrefix,
		GraceWindow:         cfg.GraceWindow,
		HeartbeatInterval:   cfg.HeartbeatInterval,
		InactivityThreshold: cfg.InactivityThreshold,
		IntegrityInterval:   cfg.IntegrityInterval,
	})

	server := transporthttp.NewServer(registry, engine, cfg, logger)

	return &App{
		server:          server,
		shutdownTimeout: cfg.ShutdownTimeout,
		registry:        registry,
		store:           st,
		log:             logger,
	}, nil
}

// Run starts the HTTP server and blocks until context cancellation or fatal error.
func (a *App) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	loopCtx, stopLoop := context.WithCancel(ctx)
	defer stopLoop()
	loopDone := make(chan struct{})
	go func() {
		a.registry.Run(loopCtx)
		close(loopDone)
	}()

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
		stopLoop()
		<-loopDone
		a.cleanup()
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down http server")
		err := a.server.Shutdown(shutdownCtx)
		<-loopDone
		a.cleanup()
		if err != nil {
			return err
		}
		return <-serverErr
	}
}

// cleanup waits for pending writes and closes the database.
func (a *App) cleanup() {
	a.registry.Wait()
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close store")
		} else {
			a.log.Info().Msg("store closed")
		}
	}
}
