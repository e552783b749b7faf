// Portwatch - Vessel Tracking and Port Call Analytics
// Copyright 2026 Portwatch Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/portwatch/portwatch

package api

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/portwatch/portwatch/internal/cache"
	"github.com/portwatch/portwatch/internal/database"
	"github.com/portwatch/portwatch/internal/models"
	ws "github.com/portwatch/portwatch/internal/websocket"
)

// Store is the read surface handlers need. *database.DB satisfies it.
type Store interface {
	Ping(ctx context.Context) error

	ListPorts(ctx context.Context) ([]*models.Port, error)
	GetPort(ctx context.Context, id string) (*models.Port, error)
	GetPortMetrics7d(ctx context.Context, portID string) (*models.PortMetrics, error)

	GetVessel(ctx context.Context, id uuid.UUID) (*models.Vessel, error)
	SearchVessels(ctx context.Context, query string, limit, offset int) ([]*models.Vessel, int, error)

	LatestPositions(ctx context.Context, cutoff time.Time, limit int) ([]*models.VesselPosition, int, error)
	LatestPositionsInBBox(ctx context.Context, cutoff time.Time, minLon, minLat, maxLon, maxLat float64, limit int) ([]*models.VesselPosition, int, error)
	PositionsForVessel(ctx context.Context, vesselID uuid.UUID, limit, offset int) ([]*models.Position, int, error)

	ListPortCalls(ctx context.Context, filter database.CallFilter) ([]*models.PortCall, int, error)
	ListSignals(ctx context.Context, filter database.SignalFilter) ([]*models.Signal, int, error)
}

// PageConfig bounds list endpoints.
type PageConfig struct {
	DefaultPageSize int
	MaxPageSize     int
}

// Handler carries the dependencies for all API endpoints.
type Handler struct {
	store     Store
	cfg       PageConfig
	hub       *ws.Hub
	startTime time.Time

	// metricsCache absorbs repeated reads of the 7-day port aggregates.
	metricsCache *cache.Cache

	// positionWindow bounds how old a "latest" position may be.
	positionWindow time.Duration

	// allowedOrigins gates websocket upgrades. Set by NewRouter from the
	// configured CORS origins.
	allowedOrigins []string
}

// NewHandler creates a Handler. hub may be nil when the websocket
// endpoint is not mounted.
func NewHandler(store Store, cfg PageConfig, hub *ws.Hub) *Handler {
	if cfg.DefaultPageSize <= 0 {
		cfg.DefaultPageSize = 50
	}
	if cfg.MaxPageSize < cfg.DefaultPageSize {
		cfg.MaxPageSize = 500
	}
	return &Handler{
		store:          store,
		cfg:            cfg,
		hub:            hub,
		startTime:      time.Now(),
		metricsCache:   cache.New(time.Minute),
		positionWindow: 24 * time.Hour,
	}
}
