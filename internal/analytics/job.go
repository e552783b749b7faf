// Portwatch - Vessel Tracking and Port Call Analytics
// Copyright 2026 Portwatch Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/portwatch/portwatch

// Package analytics schedules the nightly derivation pass: recompute the
// per-port daily baselines for the day that just ended, then score that
// day for signals.
package analytics

import (
	"context"
	"time"

	"github.com/portwatch/portwatch/internal/logging"
	"github.com/portwatch/portwatch/internal/metrics"
)

// BaselineComputer recomputes per-port baselines for one day.
// *stats.Baseliner satisfies it.
type BaselineComputer interface {
	ComputeDailyBaselines(ctx context.Context, day time.Time) (int, error)
}

// SignalRunner scores one day's baselines. *signal.Engine satisfies it.
type SignalRunner interface {
	Run(ctx context.Context, forDate time.Time) (int, error)
}

// Config controls the nightly schedule.
type Config struct {
	// ScheduleHour is the UTC hour (0-23) at which the job runs.
	ScheduleHour int `koanf:"schedule_hour"`

	// RunOnStartup triggers one pass immediately when the service starts,
	// useful after downtime spanning the scheduled hour.
	RunOnStartup bool `koanf:"run_on_startup"`
}

// DefaultConfig runs at 02:00 UTC, after the busiest reporting hours.
func DefaultConfig() Config {
	return Config{ScheduleHour: 2, RunOnStartup: false}
}

// Job is the supervised nightly analytics task.
type Job struct {
	baseliner BaselineComputer
	engine    SignalRunner
	cfg       Config

	now func() time.Time
}

// New creates a Job. engine may be nil to compute baselines without
// scoring.
func New(baseliner BaselineComputer, engine SignalRunner, cfg Config) *Job {
	if cfg.ScheduleHour < 0 || cfg.ScheduleHour > 23 {
		cfg.ScheduleHour = DefaultConfig().ScheduleHour
	}
	return &Job{
		baseliner: baseliner,
		engine:    engine,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Run blocks until the context is canceled, firing one pass at each
// scheduled hour.
func (j *Job) Run(ctx context.Context) error {
	if j.cfg.RunOnStartup {
		j.RunOnce(ctx, j.now())
	}

	for {
		wait := time.Until(nextRun(j.now(), j.cfg.ScheduleHour))
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case fired := <-timer.C:
			j.RunOnce(ctx, fired)
		}
	}
}

// RunOnce recomputes baselines and scores signals for the day before
// asOf. Errors are logged, not returned; the next scheduled pass retries
// over the same trailing window.
func (j *Job) RunOnce(ctx context.Context, asOf time.Time) {
	day := asOf.UTC().AddDate(0, 0, -1)
	started := j.now()

	computed, err := j.baseliner.ComputeDailyBaselines(ctx, day)
	if err != nil {
		logging.Error().Err(err).Time("day", day).Msg("baseline computation failed")
		metrics.RecordAnalyticsRun("error", j.now().Sub(started))
		return
	}

	raised := 0
	if j.engine != nil {
		raised, err = j.engine.Run(ctx, day)
		if err != nil {
			logging.Error().Err(err).Time("day", day).Msg("signal scoring failed")
			metrics.RecordAnalyticsRun("error", j.now().Sub(started))
			return
		}
	}

	logging.Info().
		Str("day", day.Format("2006-01-02")).
		Int("baselines", computed).
		Int("signal_candidates", raised).
		Dur("elapsed", j.now().Sub(started)).
		Msg("nightly analytics pass complete")
	metrics.RecordAnalyticsRun("ok", j.now().Sub(started))
}

// nextRun returns the next occurrence of hour:00 UTC strictly after now.
func nextRun(now time.Time, hour int) time.Time {
	now = now.UTC()
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, time.UTC)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
