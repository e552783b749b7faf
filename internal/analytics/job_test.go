// Portwatch - Vessel Tracking and Port Call Analytics
// Copyright 2026 Portwatch Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/portwatch/portwatch

package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBaseliner struct {
	days []time.Time
	err  error
}

func (f *fakeBaseliner) ComputeDailyBaselines(ctx context.Context, day time.Time) (int, error) {
	f.days = append(f.days, day)
	return 5, f.err
}

type fakeEngine struct {
	days []time.Time
}

func (f *fakeEngine) Run(ctx context.Context, forDate time.Time) (int, error) {
	f.days = append(f.days, forDate)
	return 2, nil
}

func TestRunOnceScoresPreviousDay(t *testing.T) {
	baseliner := &fakeBaseliner{}
	engine := &fakeEngine{}
	job := New(baseliner, engine, DefaultConfig())

	asOf := time.Date(2026, 8, 29, 2, 0, 0, 0, time.UTC)
	job.RunOnce(context.Background(), asOf)

	require.Len(t, baseliner.days, 1)
	require.Len(t, engine.days, 1)
	want := time.Date(2026, 8, 28, 2, 0, 0, 0, time.UTC)
	assert.Equal(t, want, baseliner.days[0])
	assert.Equal(t, want, engine.days[0])
}

func TestRunOnceSkipsScoringWhenBaselinesFail(t *testing.T) {
	baseliner := &fakeBaseliner{err: assert.AnError}
	engine := &fakeEngine{}
	job := New(baseliner, engine, DefaultConfig())

	job.RunOnce(context.Background(), time.Now())

	assert.Len(t, baseliner.days, 1)
	assert.Empty(t, engine.days)
}

func TestRunOnStartupFiresImmediately(t *testing.T) {
	baseliner := &fakeBaseliner{}
	job := New(baseliner, nil, Config{ScheduleHour: 2, RunOnStartup: true})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- job.Run(ctx) }()

	assert.Eventually(t, func() bool { return len(baseliner.days) == 1 },
		time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("job did not stop on cancellation")
	}
}

func TestNextRun(t *testing.T) {
	tests := []struct {
		name string
		now  time.Time
		hour int
		want time.Time
	}{
		{
			name: "before scheduled hour runs same day",
			now:  time.Date(2026, 8, 29, 1, 30, 0, 0, time.UTC),
			hour: 2,
			want: time.Date(2026, 8, 29, 2, 0, 0, 0, time.UTC),
		},
		{
			name: "after scheduled hour rolls to next day",
			now:  time.Date(2026, 8, 29, 3, 0, 0, 0, time.UTC),
			hour: 2,
			want: time.Date(2026, 8, 30, 2, 0, 0, 0, time.UTC),
		},
		{
			name: "exactly at scheduled time rolls forward",
			now:  time.Date(2026, 8, 29, 2, 0, 0, 0, time.UTC),
			hour: 2,
			want: time.Date(2026, 8, 30, 2, 0, 0, 0, time.UTC),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, nextRun(tt.now, tt.hour))
		})
	}
}
