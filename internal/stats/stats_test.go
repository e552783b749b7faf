// Portwatch - Vessel Tracking and Port Call Analytics
// Copyright 2026 Portwatch Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/portwatch/portwatch

package stats

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/portwatch/portwatch/internal/database"
	"github.com/portwatch/portwatch/internal/models"
)

func TestMean(t *testing.T) {
	t.Parallel()

	assert.Zero(t, Mean(nil))
	assert.Equal(t, 2.0, Mean([]float64{1, 2, 3}))
	assert.Equal(t, 10.0, Mean([]float64{10}))
}

func TestStdDev(t *testing.T) {
	t.Parallel()

	assert.Zero(t, StdDev(nil, 0))
	assert.Zero(t, StdDev([]float64{5, 5, 5}, 5))

	xs := []float64{8, 12, 8, 12}
	assert.InDelta(t, 2.0, StdDev(xs, Mean(xs)), 1e-9)
}

func TestDayTruncation(t *testing.T) {
	t.Parallel()

	ts := time.Date(2026, 3, 15, 23, 45, 12, 999, time.FixedZone("CET", 3600))
	day := Day(ts)
	assert.Equal(t, time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC), day)
}

type fakeBaselineStore struct {
	ports    []*models.Port
	activity []*database.DailyPortActivity
	upserts  []*models.PortDailyBaseline
}

func (f *fakeBaselineStore) ListPorts(context.Context) ([]*models.Port, error) {
	return f.ports, nil
}

func (f *fakeBaselineStore) DailyPortActivityRange(context.Context, time.Time, time.Time) ([]*database.DailyPortActivity, error) {
	return f.activity, nil
}

func (f *fakeBaselineStore) UpsertDailyBaseline(_ context.Context, b *models.PortDailyBaseline) error {
	f.upserts = append(f.upserts, b)
	return nil
}

func TestComputeDailyBaselines(t *testing.T) {
	t.Parallel()

	day := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	store := &fakeBaselineStore{
		ports: []*models.Port{{ID: "NLRTM"}, {ID: "SGSIN"}},
	}
	// NLRTM: 10 arrivals every trailing day, 17 today.
	for offset := BaselineDays; offset >= 1; offset-- {
		store.activity = append(store.activity, &database.DailyPortActivity{
			PortID: "NLRTM", Day: day.AddDate(0, 0, -offset), Arrivals: 10, AvgDwellHours: 12,
		})
	}
	store.activity = append(store.activity, &database.DailyPortActivity{
		PortID: "NLRTM", Day: day, Arrivals: 17, AvgDwellHours: 13,
	})

	written, err := NewBaseliner(store).ComputeDailyBaselines(context.Background(), day)
	require.NoError(t, err)
	assert.Equal(t, 2, written)
	require.Len(t, store.upserts, 2)

	var rtm, sin *models.PortDailyBaseline
	for _, u := range store.upserts {
		switch u.PortID {
		case "NLRTM":
			rtm = u
		case "SGSIN":
			sin = u
		}
	}
	require.NotNil(t, rtm)
	require.NotNil(t, sin)

	assert.Equal(t, 17, rtm.Arrivals)
	assert.InDelta(t, 10.0, rtm.ArrivalsMean30d, 1e-9, "today's spike must not leak into the trailing mean")
	assert.Zero(t, rtm.ArrivalsStddev30d)
	assert.InDelta(t, 12.0, rtm.DwellMean30d, 1e-9)
	assert.Equal(t, 13.0, rtm.AvgDwellHours)

	// A port with no calls gets an all-zero row rather than an error.
	assert.Zero(t, sin.Arrivals)
	assert.Zero(t, sin.ArrivalsMean30d)
	assert.Zero(t, sin.ArrivalsStddev30d)
}

func TestComputeDailyBaselinesZeroFillsGaps(t *testing.T) {
	t.Parallel()

	day := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	store := &fakeBaselineStore{ports: []*models.Port{{ID: "NLRTM"}}}
	// Arrivals on only 15 of the 30 trailing days; missing days count as
	// zero, so the mean halves.
	for offset := 1; offset <= 15; offset++ {
		store.activity = append(store.activity, &database.DailyPortActivity{
			PortID: "NLRTM", Day: day.AddDate(0, 0, -offset), Arrivals: 10, AvgDwellHours: 8,
		})
	}

	_, err := NewBaseliner(store).ComputeDailyBaselines(context.Background(), day)
	require.NoError(t, err)
	require.Len(t, store.upserts, 1)

	assert.InDelta(t, 5.0, store.upserts[0].ArrivalsMean30d, 1e-9)
	assert.Greater(t, store.upserts[0].ArrivalsStddev30d, 0.0)
}
