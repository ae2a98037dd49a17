// Package statsapi provides a read-only REST introspection API over a
// running resolver channel: health, live server/query state, and recent
// query diagnostics. It never mutates the channel it observes.
package statsapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hydradns/aresgo/internal/diag"
	"github.com/hydradns/aresgo/internal/statsapi/handlers"
	"github.com/hydradns/aresgo/internal/statsapi/middleware"
	"github.com/hydradns/aresgo/internal/store"
)

// Server is the introspection API's HTTP server.
type Server struct {
	logger     *slog.Logger
	engine     *gin.Engine
	httpServer *http.Server
}

// Config controls Server construction.
type Config struct {
	Addr    string
	APIKey  string
	Sampler *diag.Sampler
	Store   *store.Store
}

// New builds a Server backed by snapshots, an optional resource sampler,
// and an optional diagnostics store.
func New(cfg Config, logger *slog.Logger, snapshots handlers.SnapshotSource) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.SlogRequestLogger(logger))

	h := handlers.New(logger, snapshots, cfg.Sampler, cfg.Store)
	RegisterRoutes(engine, h, cfg.APIKey)

	addr := cfg.Addr
	if addr == "" {
		addr = "127.0.0.1:8080"
	}

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           engine,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return &Server{logger: logger, engine: engine, httpServer: httpServer}
}

func (s *Server) Addr() string {
	if s.httpServer == nil {
		return ""
	}
	return s.httpServer.Addr
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
