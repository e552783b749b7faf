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
	"time"

	"github.com/google/uuid"

	"github.com/portwatch/portwatch/internal/models"
)

// ResolveVessel finds or creates the vessel identified by MMSI and/or IMO.
// Lookup order is MMSI first, then IMO. A vessel found by one key gets the
// other backfilled when it is missing. Creation uses a conflict-aware
// insert followed by a re-read so concurrent ingestion of the same vessel
// cannot produce duplicates.
func (db *DB) ResolveVessel(ctx context.Context, mmsi, imo *string, name string) (*models.Vessel, error) {
	if mmsi == nil && imo == nil {
		return nil, fmt.Errorf("vessel needs at least one of mmsi or imo")
	}

	if v, err := db.findVesselByKeys(ctx, mmsi, imo); err == nil {
		return db.backfillVesselKeys(ctx, v, mmsi, imo)
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	if name == "" {
		if mmsi != nil {
			name = "MMSI " + *mmsi
		} else {
			name = "IMO " + *imo
		}
	}

	// ON CONFLICT DO NOTHING keeps the insert race-safe: if another
	// ingester created the vessel between our lookup and this insert, the
	// insert is a no-op and the re-read below finds the winner's row.
	id := uuid.New()
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO vessels (id, mmsi, imo, name) VALUES (?, ?, ?, ?) ON CONFLICT DO NOTHING`,
		id, mmsi, imo, name)
	if err != nil {
		return nil, fmt.Errorf("failed to insert vessel: %w", err)
	}

	v, err := db.findVesselByKeys(ctx, mmsi, imo)
	if err != nil {
		return nil, fmt.Errorf("failed to re-read vessel after insert: %w", err)
	}
	return db.backfillVesselKeys(ctx, v, mmsi, imo)
}

// findVesselByKeys looks a vessel up by MMSI first, then IMO.
func (db *DB) findVesselByKeys(ctx context.Context, mmsi, imo *string) (*models.Vessel, error) {
	if mmsi != nil {
		v, err := db.scanVessel(db.conn.QueryRowContext(ctx,
			`SELECT id, mmsi, imo, name, created_at, updated_at FROM vessels WHERE mmsi = ?`, *mmsi))
		if err == nil || !errors.Is(err, ErrNotFound) {
			return v, err
		}
	}
	if imo != nil {
		return db.scanVessel(db.conn.QueryRowContext(ctx,
			`SELECT id, mmsi, imo, name, created_at, updated_at FROM vessels WHERE imo = ?`, *imo))
	}
	return nil, ErrNotFound
}

// backfillVesselKeys fills a missing MMSI or IMO on an existing vessel.
// Guarded by IS NULL so a concurrent backfill cannot overwrite a key.
func (db *DB) backfillVesselKeys(ctx context.Context, v *models.Vessel, mmsi, imo *string) (*models.Vessel, error) {
	if v.MMSI == nil && mmsi != nil {
		_, err := db.conn.ExecContext(ctx,
			`UPDATE vessels SET mmsi = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND mmsi IS NULL`,
			*mmsi, v.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to backfill mmsi: %w", err)
		}
		v.MMSI = mmsi
	}
	if v.IMO == nil && imo != nil {
		_, err := db.conn.ExecContext(ctx,
			`UPDATE vessels SET imo = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND imo IS NULL`,
			*imo, v.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to backfill imo: %w", err)
		}
		v.IMO = imo
	}
	return v, nil
}

// GetVessel returns the vessel with the given ID.
func (db *DB) GetVessel(ctx context.Context, id uuid.UUID) (*models.Vessel, error) {
	return db.scanVessel(db.conn.QueryRowContext(ctx,
		`SELECT id, mmsi, imo, name, created_at, updated_at FROM vessels WHERE id = ?`, id))
}

// SearchVessels returns vessels whose name, MMSI, or IMO contains the
// query string. An empty query lists all vessels.
func (db *DB) SearchVessels(ctx context.Context, query string, limit, offset int) ([]*models.Vessel, int, error) {
	pattern := "%" + query + "%"

	var total int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM vessels WHERE name ILIKE ? OR COALESCE(mmsi, '') LIKE ? OR COALESCE(imo, '') LIKE ?`,
		pattern, pattern, pattern).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count vessels: %w", err)
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, mmsi, imo, name, created_at, updated_at
		 FROM vessels
		 WHERE name ILIKE ? OR COALESCE(mmsi, '') LIKE ? OR COALESCE(imo, '') LIKE ?
		 ORDER BY name, id
		 LIMIT ? OFFSET ?`,
		pattern, pattern, pattern, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to search vessels: %w", err)
	}
	defer closeWithLog(rows, "vessel rows")

	var vessels []*models.Vessel
	for rows.Next() {
		var v models.Vessel
		if err := rows.Scan(&v.ID, &v.MMSI, &v.IMO, &v.Name, &v.CreatedAt, &v.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("failed to scan vessel: %w", err)
		}
		vessels = append(vessels, &v)
	}
	return vessels, total, rows.Err()
}

// VesselIDsWithPositionsSince returns the IDs of vessels that have at
// least one position newer than the cutoff. The tracker sweeps this set.
func (db *DB) VesselIDsWithPositionsSince(ctx context.Context, cutoff time.Time) ([]uuid.UUID, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT DISTINCT vessel_id FROM positions WHERE ts >= ?`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to list active vessels: %w", err)
	}
	defer closeWithLog(rows, "vessel id rows")

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan vessel id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// scanVessel scans a single vessel row, mapping sql.ErrNoRows to
// ErrNotFound.
func (db *DB) scanVessel(row *sql.Row) (*models.Vessel, error) {
	var v models.Vessel
	err := row.Scan(&v.ID, &v.MMSI, &v.IMO, &v.Name, &v.CreatedAt, &v.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan vessel: %w", err)
	}
	return &v, nil
}
