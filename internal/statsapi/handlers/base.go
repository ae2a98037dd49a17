// Package handlers implements the introspection API endpoint handlers for
// the resolver channel.
//
// @title aresgo Resolver Introspection API
// @version 1.0
// @description Read-only introspection over a running resolver channel: health, live state, recent query diagnostics.
//
// @license.name MIT
// @license.url https://opensource.org/licenses/MIT
//
// @host localhost:8080
// @BasePath /api/v1
//
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-API-Key
package handlers

import (
	"log/slog"
	"time"

	"github.com/hydradns/aresgo/internal/channel"
	"github.com/hydradns/aresgo/internal/diag"
	"github.com/hydradns/aresgo/internal/store"
)

// SnapshotSource hands handlers a thread-safe, already-published view of
// the channel's state (spec §5: the channel itself is never touched from
// an HTTP request goroutine).
type SnapshotSource interface {
	Load() channel.Snapshot
}

// Handler holds the dependencies every introspection endpoint needs.
// sampler and st may be nil — Health degrades gracefully when they are
// absent (e.g. in tests that don't stand up a real sampler/store).
type Handler struct {
	logger    *slog.Logger
	startTime time.Time
	snapshots SnapshotSource
	sampler   *diag.Sampler
	store     *store.Store
}

// New creates a Handler.
func New(logger *slog.Logger, snapshots SnapshotSource, sampler *diag.Sampler, st *store.Store) *Handler {
	return &Handler{
		logger:    logger,
		startTime: time.Now(),
		snapshots: snapshots,
		sampler:   sampler,
		store:     st,
	}
}
