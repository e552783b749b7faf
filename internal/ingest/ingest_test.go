// Portwatch - Vessel Tracking and Port Call Analytics
// Copyright 2026 Portwatch Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/portwatch/portwatch

package ingest

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/portwatch/portwatch/internal/geo"
	"github.com/portwatch/portwatch/internal/models"
)

var testPorts = []*models.Port{
	{ID: "NLRTM", Name: "Rotterdam", Lat: 51.9496, Lon: 4.1453, RadiusKm: 8},
	{ID: "SGSIN", Name: "Singapore", Lat: 1.2644, Lon: 103.8400, RadiusKm: 10},
}

type fakeStore struct {
	vessels   map[string]*models.Vessel
	inserted  []*models.Position
	resolveOK bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{vessels: map[string]*models.Vessel{}, resolveOK: true}
}

func (f *fakeStore) ResolveVessel(_ context.Context, mmsi, imo *string, name string) (*models.Vessel, error) {
	key := ""
	if mmsi != nil {
		key = *mmsi
	} else if imo != nil {
		key = *imo
	}
	if v, ok := f.vessels[key]; ok {
		return v, nil
	}
	v := &models.Vessel{ID: uuid.New(), MMSI: mmsi, IMO: imo, Name: name}
	f.vessels[key] = v
	return v, nil
}

func (f *fakeStore) InsertPositionsBatch(_ context.Context, positions []*models.Position) (int, int, error) {
	f.inserted = append(f.inserted, positions...)
	return len(positions), 0, nil
}

func TestMockSourceIsDeterministic(t *testing.T) {
	cfg := DefaultConfig()
	s1 := NewMockSource(cfg, testPorts)
	s2 := NewMockSource(cfg, testPorts)

	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	s1.now = func() time.Time { return now }
	s2.now = func() time.Time { return now }

	batch1, err := s1.Collect(context.Background())
	require.NoError(t, err)
	batch2, err := s2.Collect(context.Background())
	require.NoError(t, err)

	require.Equal(t, len(batch1), len(batch2))
	for i := range batch1 {
		assert.Equal(t, batch1[i].MMSI, batch2[i].MMSI)
		assert.Equal(t, batch1[i].Lat, batch2[i].Lat)
		assert.Equal(t, batch1[i].Lon, batch2[i].Lon)
	}
}

func TestMockFleetCrossesGeofences(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MockVessels = 10
	source := NewMockSource(cfg, testPorts)

	// Sample the fleet across an hour; every vessel must be seen both
	// inside and outside its port at some point.
	insideSeen := make(map[string]bool)
	outsideSeen := make(map[string]bool)

	base := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)
	for minute := 0; minute < 60; minute++ {
		now := base.Add(time.Duration(minute) * time.Minute)
		source.now = func() time.Time { return now }

		samples, err := source.Collect(context.Background())
		require.NoError(t, err)

		for _, sample := range samples {
			inside := false
			for _, port := range testPorts {
				if geo.IsInside(sample.Lat, sample.Lon, port) {
					inside = true
					break
				}
			}
			if inside {
				insideSeen[sample.MMSI] = true
			} else {
				outsideSeen[sample.MMSI] = true
			}
		}
	}

	assert.Len(t, insideSeen, 10, "every vessel should enter a geofence")
	assert.Len(t, outsideSeen, 10, "every vessel should leave its geofence")
}

func TestRunTickDropsNonFiniteCoordinates(t *testing.T) {
	store := newFakeStore()
	source := &staticSource{samples: []Sample{
		{MMSI: "244000001", Lat: 51.95, Lon: 4.05, Timestamp: time.Now(), Source: models.SourceSynthetic},
		{MMSI: "244000002", Lat: math.NaN(), Lon: 4.05, Timestamp: time.Now(), Source: models.SourceSynthetic},
		{MMSI: "244000003", Lat: 51.95, Lon: math.Inf(1), Timestamp: time.Now(), Source: models.SourceSynthetic},
		{MMSI: "244000004", Lat: 95.0, Lon: 4.05, Timestamp: time.Now(), Source: models.SourceSynthetic},
	}}

	ing := New(source, store, DefaultConfig())
	require.NoError(t, ing.RunTick(context.Background()))

	require.Len(t, store.inserted, 1)
	assert.Equal(t, 51.95, store.inserted[0].Lat)
}

func TestRunTickResolvesVesselIdentity(t *testing.T) {
	store := newFakeStore()
	source := &staticSource{samples: []Sample{
		{MMSI: "244000001", Name: "MV ONE", Lat: 51.95, Lon: 4.05, Timestamp: time.Now(), Source: models.SourceSynthetic},
		{MMSI: "244000001", Name: "MV ONE", Lat: 51.96, Lon: 4.06, Timestamp: time.Now().Add(time.Second), Source: models.SourceSynthetic},
	}}

	ing := New(source, store, DefaultConfig())
	require.NoError(t, ing.RunTick(context.Background()))

	require.Len(t, store.inserted, 2)
	assert.Equal(t, store.inserted[0].VesselID, store.inserted[1].VesselID)
	assert.Len(t, store.vessels, 1)
}

func TestNewSourceAutoSelection(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Mode = ModeAuto

	src, err := NewSource(cfg, testPorts)
	require.NoError(t, err)
	assert.Equal(t, ModeMock, src.Name())

	cfg.APIKey = "some-key"
	src, err = NewSource(cfg, testPorts)
	require.NoError(t, err)
	assert.Equal(t, ModeLive, src.Name())
}

type staticSource struct {
	samples []Sample
}

func (s *staticSource) Collect(context.Context) ([]Sample, error) { return s.samples, nil }
func (s *staticSource) Name() string                              { return ModeMock }
func (s *staticSource) Close() error                              { return nil }
