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

	"github.com/portwatch/portwatch/internal/logging"
	"github.com/portwatch/portwatch/internal/models"
)

// InsertPositionsBatch writes a batch of normalized position samples in a
// single transaction. Duplicate samples (same vessel and timestamp) are
// skipped via ON CONFLICT DO NOTHING. Returns inserted and duplicate
// counts.
func (db *DB) InsertPositionsBatch(ctx context.Context, positions []*models.Position) (inserted, duplicates int, err error) {
	if len(positions) == 0 {
		return 0, 0, nil
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				logging.Error().Err(rbErr).AnErr("original_error", err).Msg("transaction rollback failed")
			}
		}
	}()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO positions (id, vessel_id, ts, lat, lon, speed_knots, course_deg, heading_deg, nav_status, source)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT DO NOTHING`)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer closeQuietly(stmt)

	for _, p := range positions {
		if p.ID == uuid.Nil {
			p.ID = uuid.New()
		}
		res, execErr := stmt.ExecContext(ctx,
			p.ID, p.VesselID, p.Timestamp.UTC(), p.Lat, p.Lon,
			p.SpeedKnots, p.CourseDeg, p.HeadingDeg, p.NavStatus, p.Source)
		if execErr != nil {
			err = fmt.Errorf("failed to insert position: %w", execErr)
			return 0, 0, err
		}
		affected, raErr := res.RowsAffected()
		if raErr != nil {
			err = fmt.Errorf("failed to read rows affected: %w", raErr)
			return 0, 0, err
		}
		if affected == 0 {
			duplicates++
		} else {
			inserted++
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("failed to commit positions batch: %w", err)
	}
	return inserted, duplicates, nil
}

// LatestPositionForVessel returns the vessel's most recent position at or
// after the cutoff, or ErrNotFound when the vessel has no sample in the
// lookback window.
func (db *DB) LatestPositionForVessel(ctx context.Context, vesselID uuid.UUID, cutoff time.Time) (*models.Position, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT id, vessel_id, ts, lat, lon, speed_knots, course_deg, heading_deg, nav_status, source
		 FROM positions
		 WHERE vessel_id = ? AND ts >= ?
		 ORDER BY ts DESC
		 LIMIT 1`,
		vesselID, cutoff)

	var p models.Position
	err := row.Scan(&p.ID, &p.VesselID, &p.Timestamp, &p.Lat, &p.Lon,
		&p.SpeedKnots, &p.CourseDeg, &p.HeadingDeg, &p.NavStatus, &p.Source)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan position: %w", err)
	}
	return &p, nil
}

// LatestPositions returns the most recent position per vessel with a
// timestamp at or after the cutoff, joined with vessel identity, plus the
// total number of vessels reporting in the window.
func (db *DB) LatestPositions(ctx context.Context, cutoff time.Time, limit int) ([]*models.VesselPosition, int, error) {
	var total int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(DISTINCT vessel_id) FROM positions WHERE ts >= ?`,
		cutoff).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count reporting vessels: %w", err)
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT p.id, p.vessel_id, p.ts, p.lat, p.lon, p.speed_knots, p.course_deg, p.heading_deg, p.nav_status, p.source,
		        v.mmsi, v.name
		 FROM positions p
		 JOIN vessels v ON v.id = p.vessel_id
		 WHERE p.ts >= ?
		 QUALIFY row_number() OVER (PARTITION BY p.vessel_id ORDER BY p.ts DESC) = 1
		 ORDER BY p.ts DESC
		 LIMIT ?`,
		cutoff, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query latest positions: %w", err)
	}
	defer closeWithLog(rows, "position rows")

	positions, err := scanVesselPositions(rows)
	if err != nil {
		return nil, 0, err
	}
	return positions, total, nil
}

// LatestPositionsInBBox returns the most recent position per vessel inside
// the bounding box with a timestamp at or after the cutoff, plus the total
// number of vessels reporting inside the box.
func (db *DB) LatestPositionsInBBox(ctx context.Context, cutoff time.Time, minLon, minLat, maxLon, maxLat float64, limit int) ([]*models.VesselPosition, int, error) {
	var total int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(DISTINCT vessel_id)
		 FROM positions
		 WHERE ts >= ?
		   AND lon BETWEEN ? AND ?
		   AND lat BETWEEN ? AND ?`,
		cutoff, minLon, maxLon, minLat, maxLat).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count vessels in bbox: %w", err)
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT p.id, p.vessel_id, p.ts, p.lat, p.lon, p.speed_knots, p.course_deg, p.heading_deg, p.nav_status, p.source,
		        v.mmsi, v.name
		 FROM positions p
		 JOIN vessels v ON v.id = p.vessel_id
		 WHERE p.ts >= ?
		   AND p.lon BETWEEN ? AND ?
		   AND p.lat BETWEEN ? AND ?
		 QUALIFY row_number() OVER (PARTITION BY p.vessel_id ORDER BY p.ts DESC) = 1
		 ORDER BY p.ts DESC
		 LIMIT ?`,
		cutoff, minLon, maxLon, minLat, maxLat, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query positions in bbox: %w", err)
	}
	defer closeWithLog(rows, "position rows")

	positions, err := scanVesselPositions(rows)
	if err != nil {
		return nil, 0, err
	}
	return positions, total, nil
}

// PositionsForVessel returns a page of a vessel's track ordered newest
// first, plus the total number of samples on record for the vessel.
func (db *DB) PositionsForVessel(ctx context.Context, vesselID uuid.UUID, limit, offset int) ([]*models.Position, int, error) {
	var total int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM positions WHERE vessel_id = ?`,
		vesselID).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count vessel positions: %w", err)
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, vessel_id, ts, lat, lon, speed_knots, course_deg, heading_deg, nav_status, source
		 FROM positions
		 WHERE vessel_id = ?
		 ORDER BY ts DESC
		 LIMIT ? OFFSET ?`,
		vesselID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query vessel positions: %w", err)
	}
	defer closeWithLog(rows, "position rows")

	var positions []*models.Position
	for rows.Next() {
		var p models.Position
		if err := rows.Scan(&p.ID, &p.VesselID, &p.Timestamp, &p.Lat, &p.Lon,
			&p.SpeedKnots, &p.CourseDeg, &p.HeadingDeg, &p.NavStatus, &p.Source); err != nil {
			return nil, 0, fmt.Errorf("failed to scan position: %w", err)
		}
		positions = append(positions, &p)
	}
	return positions, total, rows.Err()
}

func scanVesselPositions(rows *sql.Rows) ([]*models.VesselPosition, error) {
	var positions []*models.VesselPosition
	for rows.Next() {
		var vp models.VesselPosition
		if err := rows.Scan(&vp.ID, &vp.VesselID, &vp.Timestamp, &vp.Lat, &vp.Lon,
			&vp.SpeedKnots, &vp.CourseDeg, &vp.HeadingDeg, &vp.NavStatus, &vp.Source,
			&vp.MMSI, &vp.Name); err != nil {
			return nil, fmt.Errorf("failed to scan position: %w", err)
		}
		positions = append(positions, &vp)
	}
	return positions, rows.Err()
}
