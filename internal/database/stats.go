// Portwatch - Vessel Tracking and Port Call Analytics
// Copyright 2026 Portwatch Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/portwatch/portwatch

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/portwatch/portwatch/internal/models"
)

// GetPortMetrics7d returns the trailing 7-day KPIs for one port, measured
// from now. Arrivals and departures are counted independently: a call can
// arrive before the window and depart inside it, or the reverse. Dwell is
// averaged over calls arriving in the window, zero when there are none.
// Open calls are counted regardless of the window.
func (db *DB) GetPortMetrics7d(ctx context.Context, portID string) (*models.PortMetrics, error) {
	now := time.Now().UTC()
	since := now.AddDate(0, 0, -7)

	m := &models.PortMetrics{PortID: portID}
	err := db.conn.QueryRowContext(ctx,
		`SELECT
			(SELECT COUNT(*) FROM port_calls WHERE port_id = ? AND arrived_at >= ?),
			(SELECT COUNT(*) FROM port_calls WHERE port_id = ? AND departed_at IS NOT NULL AND departed_at >= ?),
			(SELECT COUNT(DISTINCT vessel_id) FROM port_calls WHERE port_id = ? AND arrived_at >= ?),
			(SELECT COALESCE(AVG(GREATEST(date_diff('second', arrived_at, COALESCE(departed_at, ?)) / 3600.0, 0)), 0)
			   FROM port_calls WHERE port_id = ? AND arrived_at >= ?),
			(SELECT COUNT(*) FROM port_calls WHERE port_id = ? AND departed_at IS NULL)`,
		portID, since,
		portID, since,
		portID, since,
		now, portID, since,
		portID).
		Scan(&m.Arrivals7d, &m.Departures7d, &m.UniqueVessels7d, &m.AvgDwellHours7d, &m.OpenCalls)
	if err != nil {
		return nil, fmt.Errorf("failed to compute 7d metrics: %w", err)
	}
	return m, nil
}

// DailyPortActivity holds per-port/day arrival counts and average dwell
// hours, the raw material for baseline computation.
type DailyPortActivity struct {
	PortID        string
	Day           time.Time
	Arrivals      int
	AvgDwellHours float64
}

// DailyPortActivityRange returns per-port/day activity for calls arriving
// in [from, to). Days without arrivals are absent; callers treat them as
// zero.
func (db *DB) DailyPortActivityRange(ctx context.Context, from, to time.Time) ([]*DailyPortActivity, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT port_id, CAST(arrived_at AS DATE) AS day, COUNT(*) AS arrivals,
		        COALESCE(AVG(GREATEST(date_diff('second', arrived_at, COALESCE(departed_at, ?)) / 3600.0, 0)), 0) AS avg_dwell
		 FROM port_calls
		 WHERE arrived_at >= ? AND arrived_at < ?
		 GROUP BY port_id, CAST(arrived_at AS DATE)
		 ORDER BY port_id, day`,
		time.Now().UTC(), from.UTC(), to.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to query daily activity: %w", err)
	}
	defer closeWithLog(rows, "daily activity rows")

	var activity []*DailyPortActivity
	for rows.Next() {
		var a DailyPortActivity
		if err := rows.Scan(&a.PortID, &a.Day, &a.Arrivals, &a.AvgDwellHours); err != nil {
			return nil, fmt.Errorf("failed to scan daily activity: %w", err)
		}
		activity = append(activity, &a)
	}
	return activity, rows.Err()
}

// UpsertDailyBaseline writes or refreshes one per-port/day baseline row.
// The nightly job recomputes rows in place, so conflicts update.
func (db *DB) UpsertDailyBaseline(ctx context.Context, b *models.PortDailyBaseline) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO port_daily_baselines
		   (port_id, day, arrivals, arrivals_mean_30d, arrivals_stddev_30d,
		    avg_dwell_hours, dwell_mean_30d, dwell_stddev_30d, computed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT (port_id, day) DO UPDATE SET
		   arrivals = excluded.arrivals,
		   arrivals_mean_30d = excluded.arrivals_mean_30d,
		   arrivals_stddev_30d = excluded.arrivals_stddev_30d,
		   avg_dwell_hours = excluded.avg_dwell_hours,
		   dwell_mean_30d = excluded.dwell_mean_30d,
		   dwell_stddev_30d = excluded.dwell_stddev_30d,
		   computed_at = CURRENT_TIMESTAMP`,
		b.PortID, b.Day, b.Arrivals, b.ArrivalsMean30d, b.ArrivalsStddev30d,
		b.AvgDwellHours, b.DwellMean30d, b.DwellStddev30d)
	if err != nil {
		return fmt.Errorf("failed to upsert baseline: %w", err)
	}
	return nil
}

// BaselinesForDay returns every port's baseline row for the given day.
func (db *DB) BaselinesForDay(ctx context.Context, day time.Time) ([]*models.PortDailyBaseline, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT port_id, day, arrivals, arrivals_mean_30d, arrivals_stddev_30d,
		        avg_dwell_hours, dwell_mean_30d, dwell_stddev_30d, computed_at
		 FROM port_daily_baselines
		 WHERE day = ?
		 ORDER BY port_id`,
		day)
	if err != nil {
		return nil, fmt.Errorf("failed to query baselines: %w", err)
	}
	defer closeWithLog(rows, "baseline rows")

	var baselines []*models.PortDailyBaseline
	for rows.Next() {
		var b models.PortDailyBaseline
		if err := rows.Scan(&b.PortID, &b.Day, &b.Arrivals, &b.ArrivalsMean30d, &b.ArrivalsStddev30d,
			&b.AvgDwellHours, &b.DwellMean30d, &b.DwellStddev30d, &b.ComputedAt); err != nil {
			return nil, fmt.Errorf("failed to scan baseline: %w", err)
		}
		baselines = append(baselines, &b)
	}
	return baselines, rows.Err()
}
