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

// GetOrCreateVesselPortState returns the vessel's checkpoint row, creating
// it lazily (inside=false) on first evaluation. The create is
// conflict-aware so concurrent first evaluations cannot collide.
func (db *DB) GetOrCreateVesselPortState(ctx context.Context, vesselID uuid.UUID) (*models.VesselPortState, error) {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO vessel_port_state (vessel_id, in_port) VALUES (?, FALSE)
		 ON CONFLICT DO NOTHING`,
		vesselID)
	if err != nil {
		return nil, fmt.Errorf("failed to create vessel state: %w", err)
	}

	var s models.VesselPortState
	err = db.conn.QueryRowContext(ctx,
		`SELECT vessel_id, in_port, port_id, open_call_id, last_position_ts, updated_at
		 FROM vessel_port_state WHERE vessel_id = ?`, vesselID).
		Scan(&s.VesselID, &s.InPort, &s.PortID, &s.OpenCallID, &s.LastPositionTime, &s.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to read vessel state: %w", err)
	}
	return &s, nil
}

// OpenPortCall inserts a new open call and marks the vessel in-port, in
// one transaction. If the vessel already has an open call (a concurrent
// sweep got there first) no second call is created; the existing one is
// returned and the state is repointed at it.
func (db *DB) OpenPortCall(ctx context.Context, vesselID uuid.UUID, portID string, positionTime time.Time) (call *models.PortCall, err error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				logging.Error().Err(rbErr).AnErr("original_error", err).Msg("transaction rollback failed")
			}
		}
	}()

	positionTime = positionTime.UTC()

	// One open call per vessel system-wide.
	var existingID uuid.UUID
	var existingPort string
	var existingArrived time.Time
	row := tx.QueryRowContext(ctx,
		`SELECT id, port_id, arrived_at FROM port_calls
		 WHERE vessel_id = ? AND departed_at IS NULL
		 ORDER BY arrived_at DESC LIMIT 1`, vesselID)
	scanErr := row.Scan(&existingID, &existingPort, &existingArrived)

	switch {
	case scanErr == nil:
		call = &models.PortCall{ID: existingID, VesselID: vesselID, PortID: existingPort, ArrivedAt: existingArrived}
	case errors.Is(scanErr, sql.ErrNoRows):
		call = &models.PortCall{ID: uuid.New(), VesselID: vesselID, PortID: portID, ArrivedAt: positionTime}
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO port_calls (id, vessel_id, port_id, arrived_at) VALUES (?, ?, ?, ?)`,
			call.ID, call.VesselID, call.PortID, call.ArrivedAt); err != nil {
			err = fmt.Errorf("failed to insert port call: %w", err)
			return nil, err
		}
	default:
		err = fmt.Errorf("failed to check open calls: %w", scanErr)
		return nil, err
	}

	if _, err = tx.ExecContext(ctx,
		`UPDATE vessel_port_state
		 SET in_port = TRUE, port_id = ?, open_call_id = ?, last_position_ts = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE vessel_id = ?`,
		call.PortID, call.ID, positionTime, vesselID); err != nil {
		err = fmt.Errorf("failed to update vessel state: %w", err)
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit open transition: %w", err)
	}
	return call, nil
}

// ClosePortCall closes the referenced open call and clears the vessel's
// in-port state, in one transaction. When the state's call reference is
// missing or stale, the vessel's most recent still-open call is closed
// instead, healing state drift. Returns the closed call, or nil when
// there was nothing to close.
func (db *DB) ClosePortCall(ctx context.Context, vesselID uuid.UUID, openCallID *uuid.UUID, positionTime time.Time) (call *models.PortCall, err error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				logging.Error().Err(rbErr).AnErr("original_error", err).Msg("transaction rollback failed")
			}
		}
	}()

	positionTime = positionTime.UTC()

	closed := false
	if openCallID != nil {
		var res sql.Result
		res, err = tx.ExecContext(ctx,
			`UPDATE port_calls SET departed_at = ? WHERE id = ? AND departed_at IS NULL`,
			positionTime, *openCallID)
		if err != nil {
			err = fmt.Errorf("failed to close port call: %w", err)
			return nil, err
		}
		affected, raErr := res.RowsAffected()
		if raErr != nil {
			err = fmt.Errorf("failed to read rows affected: %w", raErr)
			return nil, err
		}
		if affected > 0 {
			closed = true
			call = &models.PortCall{ID: *openCallID, VesselID: vesselID, DepartedAt: &positionTime}
		}
	}

	if !closed {
		// Self-healing fallback: close the most recent still-open call.
		var fallbackID uuid.UUID
		row := tx.QueryRowContext(ctx,
			`SELECT id FROM port_calls
			 WHERE vessel_id = ? AND departed_at IS NULL
			 ORDER BY arrived_at DESC LIMIT 1`, vesselID)
		scanErr := row.Scan(&fallbackID)
		switch {
		case scanErr == nil:
			if _, err = tx.ExecContext(ctx,
				`UPDATE port_calls SET departed_at = ? WHERE id = ? AND departed_at IS NULL`,
				positionTime, fallbackID); err != nil {
				err = fmt.Errorf("failed to close fallback call: %w", err)
				return nil, err
			}
			call = &models.PortCall{ID: fallbackID, VesselID: vesselID, DepartedAt: &positionTime}
		case errors.Is(scanErr, sql.ErrNoRows):
			// No open call anywhere; still clear the state below.
		default:
			err = fmt.Errorf("failed to find open call: %w", scanErr)
			return nil, err
		}
	}

	if _, err = tx.ExecContext(ctx,
		`UPDATE vessel_port_state
		 SET in_port = FALSE, port_id = NULL, open_call_id = NULL, last_position_ts = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE vessel_id = ?`,
		positionTime, vesselID); err != nil {
		err = fmt.Errorf("failed to update vessel state: %w", err)
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit close transition: %w", err)
	}

	if call != nil {
		if fullErr := db.fillCall(ctx, call); fullErr != nil {
			logging.Debug().Err(fullErr).Msg("failed to enrich closed call")
		}
	}
	return call, nil
}

// AdvanceCheckpoint persists the evaluated position timestamp when no
// boundary was crossed, so idle vessels still show a fresh checkpoint.
func (db *DB) AdvanceCheckpoint(ctx context.Context, vesselID uuid.UUID, positionTime time.Time) error {
	_, err := db.conn.ExecContext(ctx,
		`UPDATE vessel_port_state
		 SET last_position_ts = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE vessel_id = ?`,
		positionTime.UTC(), vesselID)
	if err != nil {
		return fmt.Errorf("failed to advance checkpoint: %w", err)
	}
	return nil
}

// fillCall loads the arrival details of a call that was closed through the
// fallback path, so published events carry the full record.
func (db *DB) fillCall(ctx context.Context, call *models.PortCall) error {
	return db.conn.QueryRowContext(ctx,
		`SELECT port_id, arrived_at FROM port_calls WHERE id = ?`, call.ID).
		Scan(&call.PortID, &call.ArrivedAt)
}

// CallFilter narrows ListPortCalls results.
type CallFilter struct {
	PortID   string
	VesselID *uuid.UUID
	OpenOnly bool
	Limit    int
	Offset   int
}

// ListPortCalls returns call records newest first with vessel and port
// names joined and dwell hours computed against "now" for open calls.
func (db *DB) ListPortCalls(ctx context.Context, filter CallFilter) ([]*models.PortCall, int, error) {
	where := " WHERE 1=1"
	args := []interface{}{}
	if filter.PortID != "" {
		where += " AND c.port_id = ?"
		args = append(args, filter.PortID)
	}
	if filter.VesselID != nil {
		where += " AND c.vessel_id = ?"
		args = append(args, *filter.VesselID)
	}
	if filter.OpenOnly {
		where += " AND c.departed_at IS NULL"
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM port_calls c` + where
	if err := db.conn.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count port calls: %w", err)
	}

	query := `SELECT c.id, c.vessel_id, c.port_id, c.arrived_at, c.departed_at,
	                 GREATEST(date_diff('second', c.arrived_at, COALESCE(c.departed_at, ?)) / 3600.0, 0) AS dwell_hours,
	                 v.name, p.name
	          FROM port_calls c
	          JOIN vessels v ON v.id = c.vessel_id
	          JOIN ports p ON p.id = c.port_id` + where + `
	          ORDER BY c.arrived_at DESC
	          LIMIT ? OFFSET ?`
	queryArgs := append([]interface{}{time.Now().UTC()}, args...)
	queryArgs = append(queryArgs, filter.Limit, filter.Offset)

	rows, err := db.conn.QueryContext(ctx, query, queryArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list port calls: %w", err)
	}
	defer closeWithLog(rows, "port call rows")

	var calls []*models.PortCall
	for rows.Next() {
		var c models.PortCall
		if err := rows.Scan(&c.ID, &c.VesselID, &c.PortID, &c.ArrivedAt, &c.DepartedAt,
			&c.DwellHours, &c.VesselName, &c.PortName); err != nil {
			return nil, 0, fmt.Errorf("failed to scan port call: %w", err)
		}
		calls = append(calls, &c)
	}
	return calls, total, rows.Err()
}
