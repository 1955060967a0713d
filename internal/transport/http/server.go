package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/huddle-server/internal/callengine"
	"github.com/vovakirdan/huddle-server/internal/config"
)

// NewServer builds the HTTP server. engine may be nil when no media service is configured.
func NewServer(p Presence, engine callengine.Engine, cfg *config.Config, logger *zerolog.Logger) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), LoggerMiddleware(logger))

	ws := NewWSHandler(p, WSOptions{
		MaxMessageBytes: cfg.MaxMessageBytes,
		FramesPerMinute: cfg.FramesPerMinute,
		AllowedOrigins:  cfg.AllowedOrigins,
	}, logger)
	api := NewAPIHandlers(p, engine, cfg.Room, logger)

	router.GET("/health", healthHandler)
	router.GET("/token", api.MediaToken)
	router.GET("/api/state", api.State)

	// The upgrade needs the raw ResponseWriter for hijacking, so /ws stays off gin.
	mux := stdhttp.NewServeMux()
	mux.Handle("/ws", ws)
	mux.Handle("/", router)

	srv := &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
	srv.RegisterOnShutdown(ws.Close)
	return srv
}

func healthHandler(c *gin.Context) {
	c.String(stdhttp.StatusOK, "ok")
}
