// Portwatch - Vessel Tracking and Port Call Analytics
// Copyright 2026 Portwatch Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/portwatch/portwatch

// Package stats computes the nightly per-port/day baselines: each day's
// arrival count and average dwell hours together with the 30-day trailing
// mean and standard deviation of both, used by the signal engine.
package stats

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/portwatch/portwatch/internal/database"
	"github.com/portwatch/portwatch/internal/logging"
	"github.com/portwatch/portwatch/internal/metrics"
	"github.com/portwatch/portwatch/internal/models"
)

// BaselineDays is the trailing window used for baseline statistics.
const BaselineDays = 30

// Store is the persistence surface the baseliner needs. *database.DB
// satisfies it.
type Store interface {
	ListPorts(ctx context.Context) ([]*models.Port, error)
	DailyPortActivityRange(ctx context.Context, from, to time.Time) ([]*database.DailyPortActivity, error)
	UpsertDailyBaseline(ctx context.Context, b *models.PortDailyBaseline) error
}

// Mean returns the arithmetic mean of xs, zero for an empty slice.
func Mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// StdDev returns the population standard deviation of xs around mean,
// zero for an empty slice.
func StdDev(xs []float64, mean float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		d := x - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(xs)))
}

// Day truncates t to its UTC calendar day.
func Day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Baseliner recomputes per-port/day baseline rows. Upserts make re-runs
// idempotent.
type Baseliner struct {
	store Store
}

// NewBaseliner creates a Baseliner.
func NewBaseliner(store Store) *Baseliner {
	return &Baseliner{store: store}
}

// ComputeDailyBaselines writes one baseline row per port for the given
// day. The trailing statistics cover the 30 days strictly before the day;
// days without arrivals count as zero. Returns the number of rows written.
func (b *Baseliner) ComputeDailyBaselines(ctx context.Context, day time.Time) (int, error) {
	day = Day(day)
	from := day.AddDate(0, 0, -BaselineDays)
	to := day.AddDate(0, 0, 1)

	ports, err := b.store.ListPorts(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list ports: %w", err)
	}

	activity, err := b.store.DailyPortActivityRange(ctx, from, to)
	if err != nil {
		return 0, fmt.Errorf("failed to load daily activity: %w", err)
	}

	type dayKey struct {
		port string
		day  time.Time
	}
	byDay := make(map[dayKey]*database.DailyPortActivity, len(activity))
	for _, a := range activity {
		byDay[dayKey{a.PortID, Day(a.Day)}] = a
	}

	written := 0
	for _, port := range ports {
		arrivals := make([]float64, 0, BaselineDays)
		dwell := make([]float64, 0, BaselineDays)
		for offset := BaselineDays; offset >= 1; offset-- {
			d := day.AddDate(0, 0, -offset)
			if a, ok := byDay[dayKey{port.ID, d}]; ok {
				arrivals = append(arrivals, float64(a.Arrivals))
				dwell = append(dwell, a.AvgDwellHours)
			} else {
				arrivals = append(arrivals, 0)
				dwell = append(dwell, 0)
			}
		}

		row := &models.PortDailyBaseline{
			PortID: port.ID,
			Day:    day,
		}
		if a, ok := byDay[dayKey{port.ID, day}]; ok {
			row.Arrivals = a.Arrivals
			row.AvgDwellHours = a.AvgDwellHours
		}
		row.ArrivalsMean30d = Mean(arrivals)
		row.ArrivalsStddev30d = StdDev(arrivals, row.ArrivalsMean30d)
		row.DwellMean30d = Mean(dwell)
		row.DwellStddev30d = StdDev(dwell, row.DwellMean30d)

		if err := b.store.UpsertDailyBaseline(ctx, row); err != nil {
			return written, fmt.Errorf("failed to upsert baseline for port %s: %w", port.ID, err)
		}
		written++
	}

	metrics.RecordBaselineRows(written)
	logging.Info().
		Time("day", day).
		Int("rows", written).
		Msg("daily baselines computed")
	return written, nil
}
