// Portwatch - Vessel Tracking and Port Call Analytics
// Copyright 2026 Portwatch Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/portwatch/portwatch

// Package signal scores each port's daily arrivals and dwell against its
// 30-day baseline and persists explainable anomaly records. Persistence is
// idempotent: one signal per (type, entity, day), so re-running a day is
// safe.
package signal

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/portwatch/portwatch/internal/logging"
	"github.com/portwatch/portwatch/internal/metrics"
	"github.com/portwatch/portwatch/internal/models"
	"github.com/portwatch/portwatch/internal/stats"
)

// Store is the persistence surface the engine needs. *database.DB
// satisfies it.
type Store interface {
	BaselinesForDay(ctx context.Context, day time.Time) ([]*models.PortDailyBaseline, error)
	InsertSignal(ctx context.Context, s *models.Signal) (bool, error)
}

// EventPublisher receives newly persisted signals. Optional; nil disables
// event emission.
type EventPublisher interface {
	PublishSignal(ctx context.Context, s *models.Signal) error
}

// Config holds z-score severity thresholds.
type Config struct {
	// MediumZ is the |z| at which a candidate becomes MEDIUM severity.
	MediumZ float64 `koanf:"medium_z"`
	// HighZ is the |z| at which a candidate becomes HIGH severity.
	HighZ float64 `koanf:"high_z"`
}

// DefaultConfig returns the default thresholds.
func DefaultConfig() Config {
	return Config{MediumZ: 2, HighZ: 3}
}

// Engine compares observed daily metrics to baselines and emits signals.
type Engine struct {
	store     Store
	publisher EventPublisher
	cfg       Config
}

// New creates an Engine. publisher may be nil.
func New(store Store, publisher EventPublisher, cfg Config) *Engine {
	if cfg.MediumZ <= 0 {
		cfg.MediumZ = 2
	}
	if cfg.HighZ <= 0 {
		cfg.HighZ = 3
	}
	return &Engine{store: store, publisher: publisher, cfg: cfg}
}

// Run scores every port's baseline row for the given day and persists the
// resulting signals. A zero forDate means today (UTC). Returns the number
// of candidates considered; conflict-skipped persists still count.
func (e *Engine) Run(ctx context.Context, forDate time.Time) (int, error) {
	if forDate.IsZero() {
		forDate = time.Now()
	}
	day := stats.Day(forDate)

	baselines, err := e.store.BaselinesForDay(ctx, day)
	if err != nil {
		return 0, fmt.Errorf("failed to load baselines: %w", err)
	}

	candidates := 0
	for _, b := range baselines {
		// Arrivals score both directions: a quiet day is as anomalous as
		// a busy one.
		if s := e.scoreArrivals(b, day); s != nil {
			candidates++
			e.persist(ctx, s)
		}
		// Dwell scores spikes only; short stays are routine.
		if s := e.scoreDwell(b, day); s != nil {
			candidates++
			e.persist(ctx, s)
		}
	}

	logging.Info().
		Time("day", day).
		Int("ports", len(baselines)).
		Int("candidates", candidates).
		Msg("signal engine run complete")
	return candidates, nil
}

func (e *Engine) scoreArrivals(b *models.PortDailyBaseline, day time.Time) *models.Signal {
	observed := float64(b.Arrivals)
	z, deltaPct, ok := score(observed, b.ArrivalsMean30d, b.ArrivalsStddev30d)
	if !ok {
		return nil
	}

	severity := e.severityFor(math.Abs(z))
	if severity == "" {
		return nil
	}

	return &models.Signal{
		Type:       models.SignalArrivalsAnomaly,
		EntityType: models.EntityTypePort,
		EntityID:   b.PortID,
		Severity:   severity,
		Observed:   observed,
		Baseline:   b.ArrivalsMean30d,
		ZScore:     z,
		DeltaPct:   deltaPct,
		Day:        day,
		Explanation: explain("daily_arrivals", b.PortID, day,
			observed, b.ArrivalsMean30d, z, deltaPct),
	}
}

func (e *Engine) scoreDwell(b *models.PortDailyBaseline, day time.Time) *models.Signal {
	observed := b.AvgDwellHours
	z, deltaPct, ok := score(observed, b.DwellMean30d, b.DwellStddev30d)
	if !ok {
		return nil
	}

	// Directional: only dwell spikes are signals.
	if z < e.cfg.MediumZ {
		return nil
	}
	severity := e.severityFor(z)

	return &models.Signal{
		Type:       models.SignalDwellSpike,
		EntityType: models.EntityTypePort,
		EntityID:   b.PortID,
		Severity:   severity,
		Observed:   observed,
		Baseline:   b.DwellMean30d,
		ZScore:     z,
		DeltaPct:   deltaPct,
		Day:        day,
		Explanation: explain("avg_dwell_hours", b.PortID, day,
			observed, b.DwellMean30d, z, deltaPct),
	}
}

// score computes the z-score and percent delta. ok is false when the
// baseline cannot support scoring: zero or non-finite mean, or
// non-positive stddev.
func score(observed, mean, stddev float64) (z, deltaPct float64, ok bool) {
	if mean == 0 || math.IsNaN(mean) || math.IsInf(mean, 0) {
		return 0, 0, false
	}
	if stddev <= 0 || math.IsNaN(stddev) || math.IsInf(stddev, 0) {
		return 0, 0, false
	}
	z = (observed - mean) / stddev
	deltaPct = (observed - mean) / mean * 100
	return z, deltaPct, true
}

func (e *Engine) severityFor(absZ float64) string {
	switch {
	case absZ >= e.cfg.HighZ:
		return models.SeverityHigh
	case absZ >= e.cfg.MediumZ:
		return models.SeverityMedium
	default:
		return ""
	}
}

func explain(metric, portID string, day time.Time, observed, mean, z, deltaPct float64) string {
	return fmt.Sprintf("%s for port %s on %s: observed %.1f vs 30-day mean %.1f (z=%.2f, %+.1f%%)",
		metric, portID, day.Format("2006-01-02"), observed, mean, z, deltaPct)
}

func (e *Engine) persist(ctx context.Context, s *models.Signal) {
	metrics.RecordSignalCandidate(s.Severity)

	written, err := e.store.InsertSignal(ctx, s)
	if err != nil {
		logging.Error().Err(err).
			Str("type", s.Type).
			Str("entity_id", s.EntityID).
			Msg("failed to persist signal")
		return
	}
	if !written {
		// Already scored on a previous run.
		return
	}

	metrics.RecordSignalPersisted()
	logging.Info().
		Str("type", s.Type).
		Str("entity_id", s.EntityID).
		Str("severity", s.Severity).
		Float64("z", s.ZScore).
		Msg("signal raised")

	if e.publisher != nil {
		if err := e.publisher.PublishSignal(ctx, s); err != nil {
			logging.Warn().Err(err).Str("entity_id", s.EntityID).Msg("failed to publish signal event")
		}
	}
}
