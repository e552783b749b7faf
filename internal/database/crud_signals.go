// Portwatch - Vessel Tracking and Port Call Analytics
// Copyright 2026 Portwatch Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/portwatch/portwatch

package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/portwatch/portwatch/internal/models"
)

// InsertSignal persists one anomaly record. The insert is idempotent:
// the unique key (type, entity type, entity id, day) makes re-runs of the
// signal engine silently skip already-scored days. Returns true when a
// new row was written.
func (db *DB) InsertSignal(ctx context.Context, s *models.Signal) (bool, error) {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}

	res, err := db.conn.ExecContext(ctx,
		`INSERT INTO signals
		   (id, signal_type, entity_type, entity_id, severity, observed, baseline, z_score, delta_pct, explanation, day)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT DO NOTHING`,
		s.ID, s.Type, s.EntityType, s.EntityID, s.Severity,
		s.Observed, s.Baseline, s.ZScore, s.DeltaPct, s.Explanation, s.Day)
	if err != nil {
		return false, fmt.Errorf("failed to insert signal: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return affected > 0, nil
}

// SignalFilter narrows ListSignals results.
type SignalFilter struct {
	Severity string
	Type     string
	EntityID string
	Limit    int
	Offset   int
}

// ListSignals returns persisted signals newest first.
func (db *DB) ListSignals(ctx context.Context, filter SignalFilter) ([]*models.Signal, int, error) {
	where := " WHERE 1=1"
	args := []interface{}{}
	if filter.Severity != "" {
		where += " AND severity = ?"
		args = append(args, filter.Severity)
	}
	if filter.Type != "" {
		where += " AND signal_type = ?"
		args = append(args, filter.Type)
	}
	if filter.EntityID != "" {
		where += " AND entity_id = ?"
		args = append(args, filter.EntityID)
	}

	var total int
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM signals`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count signals: %w", err)
	}

	query := `SELECT id, signal_type, entity_type, entity_id, severity, observed, baseline, z_score, delta_pct, explanation, day, created_at
	          FROM signals` + where + `
	          ORDER BY day DESC, created_at DESC
	          LIMIT ? OFFSET ?`
	args = append(args, filter.Limit, filter.Offset)

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list signals: %w", err)
	}
	defer closeWithLog(rows, "signal rows")

	var signals []*models.Signal
	for rows.Next() {
		var s models.Signal
		if err := rows.Scan(&s.ID, &s.Type, &s.EntityType, &s.EntityID, &s.Severity,
			&s.Observed, &s.Baseline, &s.ZScore, &s.DeltaPct, &s.Explanation, &s.Day, &s.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("failed to scan signal: %w", err)
		}
		signals = append(signals, &s)
	}
	return signals, total, rows.Err()
}
