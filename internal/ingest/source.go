// Portwatch - Vessel Tracking and Port Call Analytics
// Copyright 2026 Portwatch Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/portwatch/portwatch

package ingest

import (
	"context"
	"time"

	"github.com/portwatch/portwatch/internal/logging"
	"github.com/portwatch/portwatch/internal/models"
)

// Sample is one raw position report before persistence.
type Sample struct {
	MMSI       string
	IMO        string
	Name       string
	Timestamp  time.Time
	Lat        float64
	Lon        float64
	SpeedKnots *float64
	CourseDeg  *float64
	HeadingDeg *float64
	NavStatus  *string
	Source     string
}

// Source produces position samples. Collect blocks until the configured
// collection window elapses, the batch fills, or the context is
// canceled.
type Source interface {
	Collect(ctx context.Context) ([]Sample, error)
	Name() string
	Close() error
}

// NewSource builds the source for the configured mode. Auto mode picks
// the live feed when an API key is present, otherwise the synthetic
// fleet.
func NewSource(cfg Config, ports []*models.Port) (Source, error) {
	mode := cfg.Mode
	if mode == ModeAuto {
		if cfg.APIKey != "" {
			mode = ModeLive
		} else {
			mode = ModeMock
		}
		logging.Info().Str("mode", mode).Msg("ingest source auto-selected")
	}

	switch mode {
	case ModeLive:
		return NewLiveSource(cfg)
	default:
		return NewMockSource(cfg, ports), nil
	}
}
