// Portwatch - Vessel Tracking and Port Call Analytics
// Copyright 2026 Portwatch Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/portwatch/portwatch

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/portwatch/portwatch/internal/models"
)

// SeedPorts inserts the static port reference data, ignoring ports that
// already exist. Ports are immutable during a run.
func (db *DB) SeedPorts(ctx context.Context, ports []*models.Port) error {
	for _, p := range ports {
		_, err := db.conn.ExecContext(ctx,
			`INSERT INTO ports (id, name, lat, lon, radius_km) VALUES (?, ?, ?, ?, ?)
			 ON CONFLICT DO NOTHING`,
			p.ID, p.Name, p.Lat, p.Lon, p.RadiusKm)
		if err != nil {
			return fmt.Errorf("failed to seed port %s: %w", p.ID, err)
		}
	}
	return nil
}

// ListPorts returns all ports ordered by ID.
func (db *DB) ListPorts(ctx context.Context) ([]*models.Port, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, name, lat, lon, radius_km FROM ports ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list ports: %w", err)
	}
	defer closeWithLog(rows, "port rows")

	var ports []*models.Port
	for rows.Next() {
		var p models.Port
		if err := rows.Scan(&p.ID, &p.Name, &p.Lat, &p.Lon, &p.RadiusKm); err != nil {
			return nil, fmt.Errorf("failed to scan port: %w", err)
		}
		ports = append(ports, &p)
	}
	return ports, rows.Err()
}

// GetPort returns one port by ID, or ErrNotFound.
func (db *DB) GetPort(ctx context.Context, id string) (*models.Port, error) {
	var p models.Port
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, name, lat, lon, radius_km FROM ports WHERE id = ?`, id).
		Scan(&p.ID, &p.Name, &p.Lat, &p.Lon, &p.RadiusKm)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan port: %w", err)
	}
	return &p, nil
}
