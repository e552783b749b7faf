// Portwatch - Vessel Tracking and Port Call Analytics
// Copyright 2026 Portwatch Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/portwatch/portwatch

package ingest

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/portwatch/portwatch/internal/logging"
	"github.com/portwatch/portwatch/internal/metrics"
	"github.com/portwatch/portwatch/internal/models"
)

// Store is the persistence surface the ingestor needs. *database.DB
// satisfies it.
type Store interface {
	ResolveVessel(ctx context.Context, mmsi, imo *string, name string) (*models.Vessel, error)
	InsertPositionsBatch(ctx context.Context, positions []*models.Position) (inserted, duplicates int, err error)
}

// Ingestor pulls samples from a source and persists them.
type Ingestor struct {
	source Source
	store  Store
	cfg    Config
}

// New creates an Ingestor.
func New(source Source, store Store, cfg Config) *Ingestor {
	if cfg.Interval <= 0 {
		cfg.Interval = 10 * time.Second
	}
	return &Ingestor{source: source, store: store, cfg: cfg}
}

// Run ticks until the context is canceled. Individual tick failures are
// logged and counted; the loop keeps going.
func (i *Ingestor) Run(ctx context.Context) error {
	logging.Info().
		Str("source", i.source.Name()).
		Dur("interval", i.cfg.Interval).
		Msg("ingestor started")

	ticker := time.NewTicker(i.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := i.RunTick(ctx); err != nil {
				metrics.RecordIngestError()
				logging.Error().Err(err).Msg("ingest tick failed")
			}
		}
	}
}

// RunTick collects one batch, normalizes it, and persists it.
func (i *Ingestor) RunTick(ctx context.Context) error {
	start := time.Now()

	samples, err := i.source.Collect(ctx)
	if err != nil {
		return fmt.Errorf("collect samples: %w", err)
	}

	positions, dropped := i.normalize(ctx, samples)

	inserted, duplicates, err := i.store.InsertPositionsBatch(ctx, positions)
	if err != nil {
		return fmt.Errorf("insert positions: %w", err)
	}

	metrics.RecordIngestTick(i.source.Name(), inserted, duplicates, dropped, time.Since(start))
	if inserted > 0 || dropped > 0 {
		logging.Debug().
			Int("inserted", inserted).
			Int("duplicates", duplicates).
			Int("dropped", dropped).
			Msg("ingest tick complete")
	}
	return nil
}

// normalize converts samples to positions, resolving vessel identity and
// dropping reports with non-finite coordinates.
func (i *Ingestor) normalize(ctx context.Context, samples []Sample) (positions []*models.Position, dropped int) {
	positions = make([]*models.Position, 0, len(samples))
	for _, sample := range samples {
		if !finiteCoords(sample.Lat, sample.Lon) {
			dropped++
			logging.Debug().
				Str("mmsi", sample.MMSI).
				Float64("lat", sample.Lat).
				Float64("lon", sample.Lon).
				Msg("dropping sample with non-finite coordinates")
			continue
		}
		if sample.Lat < -90 || sample.Lat > 90 || sample.Lon < -180 || sample.Lon > 180 {
			dropped++
			logging.Debug().
				Str("mmsi", sample.MMSI).
				Float64("lat", sample.Lat).
				Float64("lon", sample.Lon).
				Msg("dropping sample with out-of-range coordinates")
			continue
		}

		vessel, err := i.store.ResolveVessel(ctx, strPtr(sample.MMSI), strPtr(sample.IMO), sample.Name)
		if err != nil {
			dropped++
			logging.Warn().Err(err).Str("mmsi", sample.MMSI).Msg("failed to resolve vessel")
			continue
		}

		ts := sample.Timestamp
		if ts.IsZero() {
			ts = time.Now().UTC()
		}

		positions = append(positions, &models.Position{
			VesselID:   vessel.ID,
			Timestamp:  ts,
			Lat:        sample.Lat,
			Lon:        sample.Lon,
			SpeedKnots: sample.SpeedKnots,
			CourseDeg:  sample.CourseDeg,
			HeadingDeg: sample.HeadingDeg,
			NavStatus:  sample.NavStatus,
			Source:     sample.Source,
		})
	}
	return positions, dropped
}

func finiteCoords(lat, lon float64) bool {
	return !math.IsNaN(lat) && !math.IsInf(lat, 0) &&
		!math.IsNaN(lon) && !math.IsInf(lon, 0)
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Close releases the source.
func (i *Ingestor) Close() error {
	return i.source.Close()
}
