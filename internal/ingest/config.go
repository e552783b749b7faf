// Portwatch - Vessel Tracking and Port Call Analytics
// Copyright 2026 Portwatch Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/portwatch/portwatch

// Package ingest feeds vessel positions into the store, either from a
// live AIS websocket stream or from a deterministic synthetic fleet.
package ingest

import (
	"fmt"
	"time"
)

// Source selection modes.
const (
	ModeAuto = "auto"
	ModeLive = "live"
	ModeMock = "mock"
)

// Config holds ingestion settings.
type Config struct {
	// Mode selects the source: live, mock, or auto. Auto picks live when
	// an API key is configured and falls back to mock otherwise.
	Mode string `koanf:"mode"`

	// APIKey authenticates against the AIS stream provider.
	APIKey string `koanf:"api_key"`

	// FeedURL is the AIS websocket endpoint.
	FeedURL string `koanf:"feed_url"`

	// BBox bounds the subscription as [minLat, minLon, maxLat, maxLon].
	// Empty means worldwide.
	BBox []float64 `koanf:"bbox"`

	// Interval is the tick cadence.
	Interval time.Duration `koanf:"interval"`

	// CollectWindow bounds how long a single tick drains the source.
	CollectWindow time.Duration `koanf:"collect_window"`

	// BatchSize caps the samples collected per tick.
	BatchSize int `koanf:"batch_size"`

	// MockVessels is the synthetic fleet size.
	MockVessels int `koanf:"mock_vessels"`

	// MockSeed makes the synthetic fleet reproducible.
	MockSeed int64 `koanf:"mock_seed"`
}

// DefaultConfig returns mock-friendly defaults.
func DefaultConfig() Config {
	return Config{
		Mode:          ModeAuto,
		FeedURL:       "wss://stream.aisstream.io/v0/stream",
		Interval:      10 * time.Second,
		CollectWindow: 5 * time.Second,
		BatchSize:     50,
		MockVessels:   25,
		MockSeed:      1,
	}
}

// Validate checks mode and bounds.
func (c Config) Validate() error {
	switch c.Mode {
	case ModeAuto, ModeLive, ModeMock:
	default:
		return fmt.Errorf("ingest.mode must be auto, live, or mock, got %q", c.Mode)
	}
	if c.Mode == ModeLive && c.APIKey == "" {
		return fmt.Errorf("ingest.api_key is required in live mode")
	}
	if len(c.BBox) != 0 && len(c.BBox) != 4 {
		return fmt.Errorf("ingest.bbox needs exactly 4 values, got %d", len(c.BBox))
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("ingest.batch_size must be positive, got %d", c.BatchSize)
	}
	return nil
}
