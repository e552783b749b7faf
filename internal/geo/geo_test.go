// Portwatch - Vessel Tracking and Port Call Analytics
// Copyright 2026 Portwatch Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/portwatch/portwatch

package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/portwatch/portwatch/internal/models"
)

func TestDistanceKnownPairs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		aLat, aLon float64
		bLat, bLon float64
		expectedKm float64
		toleranceK float64
	}{
		{
			name: "rotterdam to hamburg",
			aLat: 51.9496, aLon: 4.1453,
			bLat: 53.5461, bLon: 9.9661,
			expectedKm: 432,
			toleranceK: 10,
		},
		{
			name: "singapore to shanghai",
			aLat: 1.2644, aLon: 103.8400,
			bLat: 31.3389, bLon: 121.6550,
			expectedKm: 3850,
			toleranceK: 60,
		},
		{
			name: "antipodal-ish equator points",
			aLat: 0, aLon: 0,
			bLat: 0, bLon: 180,
			expectedKm: math.Pi * 6371.0,
			toleranceK: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Distance(tt.aLat, tt.aLon, tt.bLat, tt.bLon)
			assert.InDelta(t, tt.expectedKm, got, tt.toleranceK)
		})
	}
}

func TestDistanceSymmetryAndIdentity(t *testing.T) {
	t.Parallel()

	pairs := [][4]float64{
		{51.9496, 4.1453, 53.5461, 9.9661},
		{1.2644, 103.8400, 31.3389, 121.6550},
		{-33.8523, 151.2108, 35.4437, 139.6380},
		{0, 0, 0, 0},
	}

	for _, p := range pairs {
		forward := Distance(p[0], p[1], p[2], p[3])
		backward := Distance(p[2], p[3], p[0], p[1])
		assert.InDelta(t, forward, backward, 1e-9, "distance must be symmetric")
	}

	assert.Zero(t, Distance(51.9496, 4.1453, 51.9496, 4.1453))
}

func TestIsInsideBoundaryInclusive(t *testing.T) {
	t.Parallel()

	port := &models.Port{ID: "NLRTM", Name: "Rotterdam", Lat: 51.9496, Lon: 4.1453, RadiusKm: 10}

	// Walk north until the haversine distance equals the radius, then
	// check classification exactly at that distance.
	const degPerKm = 1.0 / 111.195
	boundaryLat := port.Lat + 10*degPerKm
	d := Distance(boundaryLat, port.Lon, port.Lat, port.Lon)
	require.InDelta(t, 10, d, 0.01)

	inside := &models.Port{ID: "X", Lat: port.Lat, Lon: port.Lon, RadiusKm: d}
	assert.True(t, IsInside(boundaryLat, port.Lon, inside), "position exactly at radius is inside")

	assert.True(t, IsInside(port.Lat, port.Lon, port), "center is inside")
	assert.False(t, IsInside(port.Lat+1, port.Lon, port), "far position is outside")
}

func TestMatchPortNearestWins(t *testing.T) {
	t.Parallel()

	// Two overlapping geofences; the position sits closer to beta's center.
	alpha := &models.Port{ID: "ALPHA", Lat: 10.0, Lon: 10.0, RadiusKm: 50}
	beta := &models.Port{ID: "BETA", Lat: 10.2, Lon: 10.0, RadiusKm: 50}
	gamma := &models.Port{ID: "GAMMA", Lat: 60.0, Lon: 60.0, RadiusKm: 5}

	ports := []*models.Port{alpha, beta, gamma}

	matched, ok := MatchPort(10.18, 10.0, ports)
	require.True(t, ok)
	assert.Equal(t, "BETA", matched.ID)

	matched, ok = MatchPort(10.05, 10.0, ports)
	require.True(t, ok)
	assert.Equal(t, "ALPHA", matched.ID)

	_, ok = MatchPort(-40, -40, ports)
	assert.False(t, ok, "position outside all geofences must not match")
}
