// Portwatch - Vessel Tracking and Port Call Analytics
// Copyright 2026 Portwatch Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/portwatch/portwatch

package ingest

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/portwatch/portwatch/internal/models"
)

// kmPerDegreeLat approximates one degree of latitude in kilometres.
const kmPerDegreeLat = 111.195

// mockVessel is one synthetic ship tied to a home port.
type mockVessel struct {
	mmsi    string
	imo     string
	name    string
	port    *models.Port
	bearing float64 // radians, fixed offset direction from the port center
	period  time.Duration
	phase   float64
	speed   float64
}

// MockSource simulates a fleet oscillating in and out of the configured
// port geofences so port calls open and close without a live feed. The
// fleet is deterministic for a given seed.
type MockSource struct {
	vessels []mockVessel
	now     func() time.Time
}

// NewMockSource builds the synthetic fleet. Vessels are spread across
// the given ports round-robin.
func NewMockSource(cfg Config, ports []*models.Port) *MockSource {
	n := cfg.MockVessels
	if n <= 0 {
		n = 25
	}
	rng := rand.New(rand.NewSource(cfg.MockSeed))

	vessels := make([]mockVessel, 0, n)
	for i := 0; i < n; i++ {
		var port *models.Port
		if len(ports) > 0 {
			port = ports[i%len(ports)]
		}
		vessels = append(vessels, mockVessel{
			mmsi:    fmt.Sprintf("2440000%02d", i),
			imo:     fmt.Sprintf("93000%03d", i),
			name:    fmt.Sprintf("MV TEST FLEET %02d", i),
			port:    port,
			bearing: rng.Float64() * 2 * math.Pi,
			period:  time.Duration(20+rng.Intn(40)) * time.Minute,
			phase:   rng.Float64() * 2 * math.Pi,
			speed:   5 + rng.Float64()*15,
		})
	}

	return &MockSource{vessels: vessels, now: time.Now}
}

// Name identifies the source in logs and metrics.
func (s *MockSource) Name() string { return ModeMock }

// Collect returns one report per vessel at the current simulation time.
func (s *MockSource) Collect(_ context.Context) ([]Sample, error) {
	now := s.now().UTC()
	samples := make([]Sample, 0, len(s.vessels))
	for i := range s.vessels {
		samples = append(samples, s.vessels[i].at(now))
	}
	return samples, nil
}

// at positions the vessel on its radial oscillation. The distance from
// the port center swings between 0.2 and 1.8 radii, so the vessel
// crosses the geofence twice per period.
func (v *mockVessel) at(now time.Time) Sample {
	mmsi, imo := v.mmsi, v.imo
	speed := v.speed
	course := v.bearing * 180 / math.Pi
	status := "0"

	sample := Sample{
		MMSI:       mmsi,
		IMO:        imo,
		Name:       v.name,
		Timestamp:  now,
		Source:     models.SourceSynthetic,
		SpeedKnots: &speed,
		CourseDeg:  &course,
		NavStatus:  &status,
	}

	if v.port == nil {
		return sample
	}

	t := float64(now.UnixNano()) / float64(v.period.Nanoseconds())
	distanceKm := v.port.RadiusKm * (1 + 0.8*math.Sin(2*math.Pi*t+v.phase))

	dLat := distanceKm * math.Cos(v.bearing) / kmPerDegreeLat
	lonScale := kmPerDegreeLat * math.Cos(v.port.Lat*math.Pi/180)
	dLon := 0.0
	if lonScale != 0 {
		dLon = distanceKm * math.Sin(v.bearing) / lonScale
	}

	sample.Lat = v.port.Lat + dLat
	sample.Lon = v.port.Lon + dLon
	return sample
}

// Close is a no-op.
func (s *MockSource) Close() error { return nil }
