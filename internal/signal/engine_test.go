// Portwatch - Vessel Tracking and Port Call Analytics
// Copyright 2026 Portwatch Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/portwatch/portwatch

package signal

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/portwatch/portwatch/internal/models"
)

type fakeSignalStore struct {
	baselines []*models.PortDailyBaseline
	inserted  []*models.Signal
	seen      map[string]bool
}

func newFakeSignalStore(baselines ...*models.PortDailyBaseline) *fakeSignalStore {
	return &fakeSignalStore{baselines: baselines, seen: map[string]bool{}}
}

func (f *fakeSignalStore) BaselinesForDay(_ context.Context, _ time.Time) ([]*models.PortDailyBaseline, error) {
	return f.baselines, nil
}

func (f *fakeSignalStore) InsertSignal(_ context.Context, s *models.Signal) (bool, error) {
	key := s.Type + "|" + s.EntityType + "|" + s.EntityID + "|" + s.Day.Format("2006-01-02")
	if f.seen[key] {
		return false, nil
	}
	f.seen[key] = true
	f.inserted = append(f.inserted, s)
	return true, nil
}

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestRunRaisesHighArrivalsAnomaly(t *testing.T) {
	d := day("2026-08-28")
	store := newFakeSignalStore(&models.PortDailyBaseline{
		PortID:            "NLRTM",
		Day:               d,
		Arrivals:          17,
		ArrivalsMean30d:   10,
		ArrivalsStddev30d: 2,
	})

	engine := New(store, nil, DefaultConfig())
	candidates, err := engine.Run(context.Background(), d)
	require.NoError(t, err)
	assert.Equal(t, 1, candidates)

	require.Len(t, store.inserted, 1)
	sig := store.inserted[0]
	assert.Equal(t, models.SignalArrivalsAnomaly, sig.Type)
	assert.Equal(t, models.EntityTypePort, sig.EntityType)
	assert.Equal(t, "NLRTM", sig.EntityID)
	assert.Equal(t, models.SeverityHigh, sig.Severity)
	assert.InDelta(t, 3.5, sig.ZScore, 1e-9)
	assert.InDelta(t, 70.0, sig.DeltaPct, 1e-9)
	assert.Contains(t, sig.Explanation, "NLRTM")
	assert.Contains(t, sig.Explanation, "+70.0%")
}

func TestRunMediumSeverityBelowHighThreshold(t *testing.T) {
	d := day("2026-08-28")
	store := newFakeSignalStore(&models.PortDailyBaseline{
		PortID:            "SGSIN",
		Day:               d,
		Arrivals:          5,
		ArrivalsMean30d:   10,
		ArrivalsStddev30d: 2,
	})

	engine := New(store, nil, DefaultConfig())
	candidates, err := engine.Run(context.Background(), d)
	require.NoError(t, err)
	assert.Equal(t, 1, candidates)

	require.Len(t, store.inserted, 1)
	sig := store.inserted[0]
	assert.Equal(t, models.SeverityMedium, sig.Severity)
	assert.InDelta(t, -2.5, sig.ZScore, 1e-9)
	assert.InDelta(t, -50.0, sig.DeltaPct, 1e-9)
}

func TestRunSkipsDegenerateBaselines(t *testing.T) {
	d := day("2026-08-28")
	tests := []struct {
		name     string
		baseline models.PortDailyBaseline
	}{
		{
			name: "zero mean",
			baseline: models.PortDailyBaseline{
				PortID: "P1", Day: d,
				Arrivals: 3, ArrivalsMean30d: 0, ArrivalsStddev30d: 1,
			},
		},
		{
			name: "zero stddev",
			baseline: models.PortDailyBaseline{
				PortID: "P2", Day: d,
				Arrivals: 20, ArrivalsMean30d: 10, ArrivalsStddev30d: 0,
			},
		},
		{
			name: "non-finite mean",
			baseline: models.PortDailyBaseline{
				PortID: "P3", Day: d,
				Arrivals: 20, ArrivalsMean30d: math.NaN(), ArrivalsStddev30d: 2,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := tt.baseline
			store := newFakeSignalStore(&b)
			engine := New(store, nil, DefaultConfig())

			candidates, err := engine.Run(context.Background(), d)
			require.NoError(t, err)
			assert.Zero(t, candidates)
			assert.Empty(t, store.inserted)
		})
	}
}

func TestRunDwellSpikesOnly(t *testing.T) {
	d := day("2026-08-28")
	store := newFakeSignalStore(
		&models.PortDailyBaseline{
			PortID: "SPIKE", Day: d,
			AvgDwellHours: 60, DwellMean30d: 24, DwellStddev30d: 6,
		},
		&models.PortDailyBaseline{
			PortID: "DIP", Day: d,
			AvgDwellHours: 4, DwellMean30d: 24, DwellStddev30d: 6,
		},
	)

	engine := New(store, nil, DefaultConfig())
	candidates, err := engine.Run(context.Background(), d)
	require.NoError(t, err)
	assert.Equal(t, 1, candidates)

	require.Len(t, store.inserted, 1)
	sig := store.inserted[0]
	assert.Equal(t, models.SignalDwellSpike, sig.Type)
	assert.Equal(t, "SPIKE", sig.EntityID)
	assert.Equal(t, models.SeverityHigh, sig.Severity)
	assert.InDelta(t, 6.0, sig.ZScore, 1e-9)
}

func TestRunBelowThresholdRaisesNothing(t *testing.T) {
	d := day("2026-08-28")
	store := newFakeSignalStore(&models.PortDailyBaseline{
		PortID: "QUIET", Day: d,
		Arrivals: 11, ArrivalsMean30d: 10, ArrivalsStddev30d: 2,
		AvgDwellHours: 25, DwellMean30d: 24, DwellStddev30d: 6,
	})

	engine := New(store, nil, DefaultConfig())
	candidates, err := engine.Run(context.Background(), d)
	require.NoError(t, err)
	assert.Zero(t, candidates)
	assert.Empty(t, store.inserted)
}

func TestRunIsIdempotent(t *testing.T) {
	d := day("2026-08-28")
	store := newFakeSignalStore(&models.PortDailyBaseline{
		PortID: "NLRTM", Day: d,
		Arrivals: 17, ArrivalsMean30d: 10, ArrivalsStddev30d: 2,
	})

	engine := New(store, nil, DefaultConfig())
	for i := 0; i < 2; i++ {
		candidates, err := engine.Run(context.Background(), d)
		require.NoError(t, err)
		assert.Equal(t, 1, candidates)
	}

	// Candidate counted twice, persisted once.
	assert.Len(t, store.inserted, 1)
}
