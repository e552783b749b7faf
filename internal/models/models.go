// Portwatch - Vessel Tracking and Port Call Analytics
// Copyright 2026 Portwatch Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/portwatch/portwatch

// Package models defines the data structures shared across Portwatch:
// vessels, ports, position samples, port calls, baselines, signals, and
// the API response envelope.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Position sample provenance values.
const (
	// SourceLive marks samples received from the external AIS feed.
	SourceLive = "live"
	// SourceSynthetic marks samples produced by the mock generator.
	SourceSynthetic = "synthetic"
)

// Vessel is an identity record keyed by MMSI and/or IMO number. Either key
// may be absent, but at least one must exist. Vessels are created on the
// first seen position and never deleted; the only mutation is backfilling
// a missing key.
type Vessel struct {
	ID        uuid.UUID `json:"id"`
	MMSI      *string   `json:"mmsi,omitempty"`
	IMO       *string   `json:"imo,omitempty"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Port is a named circular geofence: center coordinates plus a radius in
// kilometers. Ports are static reference data, immutable during a run.
type Port struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
	RadiusKm float64 `json:"radius_km"`
}

// Position is one normalized position report. Samples are append-only and
// ordered by timestamp per vessel; the most recent sample per vessel drives
// port-call evaluation.
type Position struct {
	ID         uuid.UUID `json:"id"`
	VesselID   uuid.UUID `json:"vessel_id"`
	Timestamp  time.Time `json:"timestamp"`
	Lat        float64   `json:"lat"`
	Lon        float64   `json:"lon"`
	SpeedKnots *float64  `json:"speed_knots,omitempty"`
	CourseDeg  *float64  `json:"course_deg,omitempty"`
	HeadingDeg *float64  `json:"heading_deg,omitempty"`
	NavStatus  *string   `json:"nav_status,omitempty"`
	Source     string    `json:"source"`
}

// VesselPosition joins a position row with vessel identity for read
// endpoints and the realtime stream.
type VesselPosition struct {
	Position
	MMSI *string `json:"mmsi,omitempty"`
	Name string  `json:"vessel_name"`
}

// VesselPortState is the per-vessel resumability checkpoint: whether the
// vessel is currently inside a port, which port, which open call, and the
// timestamp of the last evaluated position. It always reflects the last
// position processed, even when no transition occurred.
type VesselPortState struct {
	VesselID         uuid.UUID  `json:"vessel_id"`
	InPort           bool       `json:"in_port"`
	PortID           *string    `json:"port_id,omitempty"`
	OpenCallID       *uuid.UUID `json:"open_call_id,omitempty"`
	LastPositionTime *time.Time `json:"last_position_time,omitempty"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// PortCall is one visit instance from detected arrival to detected
// departure. A vessel has at most one open (departure-null) call at a time
// system-wide; a call closes only via departure detection.
type PortCall struct {
	ID         uuid.UUID  `json:"id"`
	VesselID   uuid.UUID  `json:"vessel_id"`
	PortID     string     `json:"port_id"`
	ArrivedAt  time.Time  `json:"arrived_at"`
	DepartedAt *time.Time `json:"departed_at,omitempty"`

	// DwellHours is departure-or-now minus arrival in hours, zero floored.
	// Computed at read time, not stored.
	DwellHours float64 `json:"dwell_hours"`

	VesselName string `json:"vessel_name,omitempty"`
	PortName   string `json:"port_name,omitempty"`
}

// PortMetrics holds the trailing 7-day KPIs for one port. OpenCalls counts
// currently open calls regardless of the window.
type PortMetrics struct {
	PortID          string  `json:"port_id"`
	Arrivals7d      int     `json:"arrivals_7d"`
	Departures7d    int     `json:"departures_7d"`
	UniqueVessels7d int     `json:"unique_vessels_7d"`
	AvgDwellHours7d float64 `json:"avg_dwell_hours_7d"`
	OpenCalls       int     `json:"open_calls"`
}

// PortDailyBaseline is one derived per-port/day row: the day's arrival
// count and average dwell hours plus the 30-day trailing mean and standard
// deviation of each. Recomputed nightly, never hand-edited.
type PortDailyBaseline struct {
	PortID            string    `json:"port_id"`
	Day               time.Time `json:"day"`
	Arrivals          int       `json:"arrivals"`
	ArrivalsMean30d   float64   `json:"arrivals_mean_30d"`
	ArrivalsStddev30d float64   `json:"arrivals_stddev_30d"`
	AvgDwellHours     float64   `json:"avg_dwell_hours"`
	DwellMean30d      float64   `json:"dwell_mean_30d"`
	DwellStddev30d    float64   `json:"dwell_stddev_30d"`
	ComputedAt        time.Time `json:"computed_at"`
}

// Signal severity tiers.
const (
	SeverityMedium = "MEDIUM"
	SeverityHigh   = "HIGH"
)

// Signal types emitted by the signal engine.
const (
	SignalArrivalsAnomaly = "port_arrivals_anomaly"
	SignalDwellSpike      = "port_dwell_spike"
)

// EntityTypePort is the entity type for port-scoped signals.
const EntityTypePort = "port"

// Signal is one explainable anomaly record. At most one signal exists per
// (type, entity type, entity id, day); re-runs must not duplicate.
type Signal struct {
	ID          uuid.UUID `json:"id"`
	Type        string    `json:"type"`
	EntityType  string    `json:"entity_type"`
	EntityID    string    `json:"entity_id"`
	Severity    string    `json:"severity"`
	Observed    float64   `json:"observed"`
	Baseline    float64   `json:"baseline"`
	ZScore      float64   `json:"z_score"`
	DeltaPct    float64   `json:"delta_pct"`
	Explanation string    `json:"explanation"`
	Day         time.Time `json:"day"`
	CreatedAt   time.Time `json:"created_at"`
}
