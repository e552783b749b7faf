// Portwatch - Vessel Tracking and Port Call Analytics
// Copyright 2026 Portwatch Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/portwatch/portwatch

// Package geo provides the geodesy primitives used for port geofencing:
// great-circle distance and circular containment checks.
package geo

import (
	"math"

	"github.com/portwatch/portwatch/internal/models"
)

// earthRadiusKm is the mean Earth radius used by the haversine formula.
const earthRadiusKm = 6371.0

// Distance returns the great-circle distance in kilometers between two
// coordinate pairs using the haversine formula. It is deterministic,
// symmetric, and zero for identical inputs.
func Distance(aLat, aLon, bLat, bLon float64) float64 {
	lat1 := aLat * math.Pi / 180
	lat2 := bLat * math.Pi / 180
	dLat := (bLat - aLat) * math.Pi / 180
	dLon := (bLon - aLon) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusKm * c
}

// IsInside reports whether a position lies within the port's geofence.
// A position exactly on the boundary counts as inside.
func IsInside(lat, lon float64, port *models.Port) bool {
	return Distance(lat, lon, port.Lat, port.Lon) <= port.RadiusKm
}

// MatchPort returns the port containing the given position. When the
// position falls inside multiple geofences the nearest center wins; ties
// break on port ID so the result is stable. The second return value is
// false when no port contains the position.
func MatchPort(lat, lon float64, ports []*models.Port) (*models.Port, bool) {
	var best *models.Port
	bestDist := math.MaxFloat64

	for _, p := range ports {
		d := Distance(lat, lon, p.Lat, p.Lon)
		if d > p.RadiusKm {
			continue
		}
		if d < bestDist || (d == bestDist && best != nil && p.ID < best.ID) {
			best = p
			bestDist = d
		}
	}

	return best, best != nil
}
