// Portwatch - Vessel Tracking and Port Call Analytics
// Copyright 2026 Portwatch Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/portwatch/portwatch

package tracker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/portwatch/portwatch/internal/database"
	"github.com/portwatch/portwatch/internal/geo"
	"github.com/portwatch/portwatch/internal/logging"
	"github.com/portwatch/portwatch/internal/metrics"
	"github.com/portwatch/portwatch/internal/models"
)

// Store is the persistence surface the tracker needs. *database.DB
// satisfies it; tests substitute fakes.
type Store interface {
	LatestPositionForVessel(ctx context.Context, vesselID uuid.UUID, cutoff time.Time) (*models.Position, error)
	GetOrCreateVesselPortState(ctx context.Context, vesselID uuid.UUID) (*models.VesselPortState, error)
	OpenPortCall(ctx context.Context, vesselID uuid.UUID, portID string, positionTime time.Time) (*models.PortCall, error)
	ClosePortCall(ctx context.Context, vesselID uuid.UUID, openCallID *uuid.UUID, positionTime time.Time) (*models.PortCall, error)
	AdvanceCheckpoint(ctx context.Context, vesselID uuid.UUID, positionTime time.Time) error
	VesselIDsWithPositionsSince(ctx context.Context, cutoff time.Time) ([]uuid.UUID, error)
	ListPorts(ctx context.Context) ([]*models.Port, error)
}

// EventPublisher receives port-call lifecycle events. Optional; a nil
// publisher disables event emission.
type EventPublisher interface {
	PublishCallOpened(ctx context.Context, call *models.PortCall) error
	PublishCallClosed(ctx context.Context, call *models.PortCall) error
}

// Config holds tracker settings.
type Config struct {
	// SweepInterval is the pause between full sweeps over active vessels.
	SweepInterval time.Duration `koanf:"sweep_interval"`

	// Lookback bounds how old a vessel's latest position may be and still
	// be evaluated.
	Lookback time.Duration `koanf:"lookback"`
}

// DefaultConfig returns the default tracker settings.
func DefaultConfig() Config {
	return Config{
		SweepInterval: 30 * time.Second,
		Lookback:      6 * time.Hour,
	}
}

// Tracker evaluates vessels against port geofences and applies port-call
// transitions through the store.
type Tracker struct {
	store     Store
	publisher EventPublisher
	cfg       Config

	portsMu     sync.Mutex
	ports       []*models.Port
	portsLoaded bool
}

// New creates a Tracker. publisher may be nil.
func New(store Store, publisher EventPublisher, cfg Config) *Tracker {
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = 30 * time.Second
	}
	if cfg.Lookback <= 0 {
		cfg.Lookback = 6 * time.Hour
	}
	return &Tracker{store: store, publisher: publisher, cfg: cfg}
}

// Run sweeps on the configured interval until the context is canceled.
// An in-flight sweep finishes before Run returns.
func (t *Tracker) Run(ctx context.Context) error {
	logging.Info().
		Dur("interval", t.cfg.SweepInterval).
		Dur("lookback", t.cfg.Lookback).
		Msg("tracker started")

	ticker := time.NewTicker(t.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logging.Info().Msg("tracker stopped")
			return ctx.Err()
		case <-ticker.C:
			if err := t.Sweep(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logging.Error().Err(err).Msg("tracker sweep failed")
			}
		}
	}
}

// Sweep evaluates every vessel that reported a position within the
// lookback window. Per-vessel failures are logged and do not abort the
// sweep.
func (t *Tracker) Sweep(ctx context.Context) error {
	start := time.Now()

	ids, err := t.store.VesselIDsWithPositionsSince(ctx, time.Now().UTC().Add(-t.cfg.Lookback))
	if err != nil {
		return fmt.Errorf("failed to list active vessels: %w", err)
	}

	for _, id := range ids {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := t.ProcessVessel(ctx, id); err != nil {
			metrics.RecordTrackerError()
			logging.Error().Err(err).Str("vessel_id", id.String()).Msg("failed to process vessel")
		}
	}

	metrics.RecordTrackerSweep(time.Since(start), len(ids))
	return nil
}

// ProcessVessel loads the vessel's most recent position within the
// lookback window, matches it against the port geofences, and applies the
// resulting transition transactionally. A vessel with no recent position
// is a no-op.
func (t *Tracker) ProcessVessel(ctx context.Context, vesselID uuid.UUID) error {
	cutoff := time.Now().UTC().Add(-t.cfg.Lookback)

	pos, err := t.store.LatestPositionForVessel(ctx, vesselID, cutoff)
	if errors.Is(err, database.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load latest position: %w", err)
	}

	state, err := t.store.GetOrCreateVesselPortState(ctx, vesselID)
	if err != nil {
		return fmt.Errorf("failed to load vessel state: %w", err)
	}

	ports, err := t.loadPorts(ctx)
	if err != nil {
		return fmt.Errorf("failed to load ports: %w", err)
	}

	matched, inside := geo.MatchPort(pos.Lat, pos.Lon, ports)
	matchedID := ""
	if inside {
		matchedID = matched.ID
	}

	action, _ := Transition(state, inside, matchedID, pos.Timestamp)

	switch action {
	case ActionOpen:
		call, err := t.store.OpenPortCall(ctx, vesselID, matchedID, pos.Timestamp)
		if err != nil {
			return fmt.Errorf("failed to open port call: %w", err)
		}
		metrics.RecordPortCallOpened()
		logging.Info().
			Str("vessel_id", vesselID.String()).
			Str("port_id", call.PortID).
			Time("arrived_at", call.ArrivedAt).
			Msg("port call opened")
		t.publishOpened(ctx, call)

	case ActionClose:
		call, err := t.store.ClosePortCall(ctx, vesselID, state.OpenCallID, pos.Timestamp)
		if err != nil {
			return fmt.Errorf("failed to close port call: %w", err)
		}
		metrics.RecordPortCallClosed()
		if call != nil {
			logging.Info().
				Str("vessel_id", vesselID.String()).
				Str("port_id", call.PortID).
				Time("departed_at", *call.DepartedAt).
				Msg("port call closed")
			t.publishClosed(ctx, call)
		}

	case ActionNone:
		if err := t.store.AdvanceCheckpoint(ctx, vesselID, pos.Timestamp); err != nil {
			return fmt.Errorf("failed to advance checkpoint: %w", err)
		}
	}

	return nil
}

// loadPorts caches the port list on the first successful load; ports are
// immutable during a run. A failed load is retried on the next call so a
// transient store error does not wedge the tracker for good.
func (t *Tracker) loadPorts(ctx context.Context) ([]*models.Port, error) {
	t.portsMu.Lock()
	defer t.portsMu.Unlock()

	if t.portsLoaded {
		return t.ports, nil
	}

	ports, err := t.store.ListPorts(ctx)
	if err != nil {
		return nil, err
	}
	t.ports = ports
	t.portsLoaded = true
	return ports, nil
}

func (t *Tracker) publishOpened(ctx context.Context, call *models.PortCall) {
	if t.publisher == nil {
		return
	}
	if err := t.publisher.PublishCallOpened(ctx, call); err != nil {
		logging.Warn().Err(err).Str("call_id", call.ID.String()).Msg("failed to publish call opened event")
	}
}

func (t *Tracker) publishClosed(ctx context.Context, call *models.PortCall) {
	if t.publisher == nil {
		return
	}
	if err := t.publisher.PublishCallClosed(ctx, call); err != nil {
		logging.Warn().Err(err).Str("call_id", call.ID.String()).Msg("failed to publish call closed event")
	}
}
