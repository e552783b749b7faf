// Portwatch - Vessel Tracking and Port Call Analytics
// Copyright 2026 Portwatch Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/portwatch/portwatch

// Package realtime periodically pushes the current fleet picture to
// websocket subscribers.
package realtime

import (
	"context"
	"time"

	"github.com/portwatch/portwatch/internal/logging"
	"github.com/portwatch/portwatch/internal/models"
	"github.com/portwatch/portwatch/internal/websocket"
)

// Store is the read surface the broadcaster needs. *database.DB
// satisfies it.
type Store interface {
	LatestPositions(ctx context.Context, cutoff time.Time, limit int) ([]*models.VesselPosition, int, error)
}

// Hub is the subscriber surface. *websocket.Hub satisfies it.
type Hub interface {
	Broadcast(messageType string, data interface{})
	ClientCount() int
}

// Config holds broadcaster settings.
type Config struct {
	// Interval is the push cadence.
	Interval time.Duration `koanf:"interval"`
	// Window bounds how old a vessel's latest position may be and still
	// be included in the snapshot.
	Window time.Duration `koanf:"window"`
	// MaxVessels caps the snapshot size.
	MaxVessels int `koanf:"max_vessels"`
}

// DefaultConfig returns the default cadence and window.
func DefaultConfig() Config {
	return Config{
		Interval:   10 * time.Second,
		Window:     10 * time.Minute,
		MaxVessels: 2000,
	}
}

// Broadcaster ships position snapshots to the hub on a timer.
type Broadcaster struct {
	store Store
	hub   Hub
	cfg   Config
}

// New creates a Broadcaster.
func New(store Store, hub Hub, cfg Config) *Broadcaster {
	if cfg.Interval <= 0 {
		cfg.Interval = 10 * time.Second
	}
	if cfg.Window <= 0 {
		cfg.Window = 10 * time.Minute
	}
	if cfg.MaxVessels <= 0 {
		cfg.MaxVessels = 2000
	}
	return &Broadcaster{store: store, hub: hub, cfg: cfg}
}

// Run ticks until the context is canceled.
func (b *Broadcaster) Run(ctx context.Context) error {
	ticker := time.NewTicker(b.cfg.Interval)
	defer ticker.Stop()

	logging.Info().
		Dur("interval", b.cfg.Interval).
		Dur("window", b.cfg.Window).
		Msg("realtime broadcaster started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := b.Tick(ctx); err != nil {
				logging.Error().Err(err).Msg("realtime tick failed")
			}
		}
	}
}

// Tick pushes one snapshot. With no subscribers it returns immediately
// without touching the store.
func (b *Broadcaster) Tick(ctx context.Context) error {
	if b.hub.ClientCount() == 0 {
		return nil
	}

	cutoff := time.Now().Add(-b.cfg.Window)
	positions, _, err := b.store.LatestPositions(ctx, cutoff, b.cfg.MaxVessels)
	if err != nil {
		return err
	}

	b.hub.Broadcast(websocket.MessageTypePositions, positions)

	logging.Debug().
		Int("vessels", len(positions)).
		Int("clients", b.hub.ClientCount()).
		Msg("broadcast position snapshot")
	return nil
}
