// Portwatch - Vessel Tracking and Port Call Analytics
// Copyright 2026 Portwatch Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/portwatch/portwatch

/*
schema.go - Database Schema Management

Tables:
  - vessels: identity records keyed by MMSI and/or IMO
  - ports: static circular geofences (center + radius km)
  - positions: append-only normalized position samples
  - vessel_port_state: one checkpoint row per vessel
  - port_calls: visit records (arrival, nullable departure)
  - port_daily_baselines: derived per-port/day rolling statistics
  - signals: anomaly records, unique per (type, entity type, entity id, day)

All columns are defined in the initial CREATE TABLE statements; the schema
is the single source of truth and startup runs no migrations.
*/
package database

import (
	"context"
	"fmt"
	"time"
)

// schemaContext returns a context with timeout for schema operations.
func schemaContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 60*time.Second)
}

// createTables creates the core database tables.
func (db *DB) createTables() error {
	ctx, cancel := schemaContext()
	defer cancel()

	for _, query := range tableCreationQueries() {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %s: %w", query, err)
		}
	}

	return nil
}

// tableCreationQueries returns the table creation SQL statements.
func tableCreationQueries() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS vessels (
			id UUID PRIMARY KEY,
			mmsi TEXT UNIQUE,
			imo TEXT UNIQUE,
			name TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS ports (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			lat DOUBLE NOT NULL,
			lon DOUBLE NOT NULL,
			radius_km DOUBLE NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS positions (
			id UUID PRIMARY KEY,
			vessel_id UUID NOT NULL,
			ts TIMESTAMP NOT NULL,
			lat DOUBLE NOT NULL,
			lon DOUBLE NOT NULL,
			speed_knots DOUBLE,
			course_deg DOUBLE,
			heading_deg DOUBLE,
			nav_status TEXT,
			source TEXT NOT NULL,
			UNIQUE (vessel_id, ts)
		)`,

		`CREATE TABLE IF NOT EXISTS vessel_port_state (
			vessel_id UUID PRIMARY KEY,
			in_port BOOLEAN NOT NULL DEFAULT FALSE,
			port_id TEXT,
			open_call_id UUID,
			last_position_ts TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS port_calls (
			id UUID PRIMARY KEY,
			vessel_id UUID NOT NULL,
			port_id TEXT NOT NULL,
			arrived_at TIMESTAMP NOT NULL,
			departed_at TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS port_daily_baselines (
			port_id TEXT NOT NULL,
			day DATE NOT NULL,
			arrivals INTEGER NOT NULL,
			arrivals_mean_30d DOUBLE NOT NULL,
			arrivals_stddev_30d DOUBLE NOT NULL,
			avg_dwell_hours DOUBLE NOT NULL,
			dwell_mean_30d DOUBLE NOT NULL,
			dwell_stddev_30d DOUBLE NOT NULL,
			computed_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (port_id, day)
		)`,

		`CREATE TABLE IF NOT EXISTS signals (
			id UUID PRIMARY KEY,
			signal_type TEXT NOT NULL,
			entity_type TEXT NOT NULL,
			entity_id TEXT NOT NULL,
			severity TEXT NOT NULL,
			observed DOUBLE NOT NULL,
			baseline DOUBLE NOT NULL,
			z_score DOUBLE NOT NULL,
			delta_pct DOUBLE NOT NULL,
			explanation TEXT NOT NULL,
			day DATE NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (signal_type, entity_type, entity_id, day)
		)`,
	}
}

// createIndexes creates indexes for the common query patterns: latest
// position per vessel, port-call listings, and signal lookups.
func (db *DB) createIndexes() error {
	ctx, cancel := schemaContext()
	defer cancel()

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_positions_vessel_ts ON positions (vessel_id, ts DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_positions_ts ON positions (ts)`,
		`CREATE INDEX IF NOT EXISTS idx_port_calls_vessel ON port_calls (vessel_id)`,
		`CREATE INDEX IF NOT EXISTS idx_port_calls_port_arrived ON port_calls (port_id, arrived_at)`,
		`CREATE INDEX IF NOT EXISTS idx_port_calls_departed ON port_calls (departed_at)`,
		`CREATE INDEX IF NOT EXISTS idx_signals_day ON signals (day)`,
	}

	for _, query := range indexes {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to create index: %s: %w", query, err)
		}
	}

	return nil
}
