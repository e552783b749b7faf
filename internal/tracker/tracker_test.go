// Portwatch - Vessel Tracking and Port Call Analytics
// Copyright 2026 Portwatch Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/portwatch/portwatch

package tracker

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/portwatch/portwatch/internal/database"
	"github.com/portwatch/portwatch/internal/models"
)

// fakeStore is an in-memory Store for tracker tests.
type fakeStore struct {
	positions map[uuid.UUID]*models.Position
	states    map[uuid.UUID]*models.VesselPortState
	ports     []*models.Port

	openCalls   []*models.PortCall
	closedCalls []*models.PortCall
	checkpoints []time.Time

	listPortsErr   error
	listPortsCalls int
}

func newFakeStore(ports ...*models.Port) *fakeStore {
	return &fakeStore{
		positions: make(map[uuid.UUID]*models.Position),
		states:    make(map[uuid.UUID]*models.VesselPortState),
		ports:     ports,
	}
}

func (f *fakeStore) LatestPositionForVessel(_ context.Context, vesselID uuid.UUID, cutoff time.Time) (*models.Position, error) {
	p, ok := f.positions[vesselID]
	if !ok || p.Timestamp.Before(cutoff) {
		return nil, database.ErrNotFound
	}
	return p, nil
}

func (f *fakeStore) GetOrCreateVesselPortState(_ context.Context, vesselID uuid.UUID) (*models.VesselPortState, error) {
	if s, ok := f.states[vesselID]; ok {
		return s, nil
	}
	s := &models.VesselPortState{VesselID: vesselID}
	f.states[vesselID] = s
	return s, nil
}

func (f *fakeStore) OpenPortCall(_ context.Context, vesselID uuid.UUID, portID string, positionTime time.Time) (*models.PortCall, error) {
	call := &models.PortCall{ID: uuid.New(), VesselID: vesselID, PortID: portID, ArrivedAt: positionTime}
	f.openCalls = append(f.openCalls, call)
	s := f.states[vesselID]
	s.InPort = true
	s.PortID = &call.PortID
	s.OpenCallID = &call.ID
	s.LastPositionTime = &positionTime
	return call, nil
}

func (f *fakeStore) ClosePortCall(_ context.Context, vesselID uuid.UUID, openCallID *uuid.UUID, positionTime time.Time) (*models.PortCall, error) {
	var call *models.PortCall
	if openCallID != nil {
		for _, c := range f.openCalls {
			if c.ID == *openCallID {
				c.DepartedAt = &positionTime
				call = c
			}
		}
	}
	if call != nil {
		f.closedCalls = append(f.closedCalls, call)
	}
	s := f.states[vesselID]
	s.InPort = false
	s.PortID = nil
	s.OpenCallID = nil
	s.LastPositionTime = &positionTime
	return call, nil
}

func (f *fakeStore) AdvanceCheckpoint(_ context.Context, vesselID uuid.UUID, positionTime time.Time) error {
	f.states[vesselID].LastPositionTime = &positionTime
	f.checkpoints = append(f.checkpoints, positionTime)
	return nil
}

func (f *fakeStore) VesselIDsWithPositionsSince(_ context.Context, cutoff time.Time) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	for id, p := range f.positions {
		if !p.Timestamp.Before(cutoff) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (f *fakeStore) ListPorts(_ context.Context) ([]*models.Port, error) {
	f.listPortsCalls++
	if f.listPortsErr != nil {
		return nil, f.listPortsErr
	}
	return f.ports, nil
}

func (f *fakeStore) setPosition(vesselID uuid.UUID, lat, lon float64, ts time.Time) {
	f.positions[vesselID] = &models.Position{
		ID: uuid.New(), VesselID: vesselID, Timestamp: ts, Lat: lat, Lon: lon, Source: models.SourceSynthetic,
	}
}

var rotterdam = &models.Port{ID: "NLRTM", Name: "Rotterdam", Lat: 51.9496, Lon: 4.1453, RadiusKm: 10}

func TestProcessVesselOpensCall(t *testing.T) {
	t.Parallel()

	store := newFakeStore(rotterdam)
	vesselID := uuid.New()
	ts := time.Now().UTC().Add(-time.Minute)
	store.setPosition(vesselID, rotterdam.Lat, rotterdam.Lon, ts)

	tr := New(store, nil, DefaultConfig())
	require.NoError(t, tr.ProcessVessel(context.Background(), vesselID))

	require.Len(t, store.openCalls, 1)
	call := store.openCalls[0]
	assert.Equal(t, "NLRTM", call.PortID)
	assert.Equal(t, ts, call.ArrivedAt)

	state := store.states[vesselID]
	assert.True(t, state.InPort)
	assert.Equal(t, &call.ID, state.OpenCallID)
}

func TestProcessVesselClosesCallOnExit(t *testing.T) {
	t.Parallel()

	store := newFakeStore(rotterdam)
	vesselID := uuid.New()

	enter := time.Now().UTC().Add(-2 * time.Hour)
	store.setPosition(vesselID, rotterdam.Lat, rotterdam.Lon, enter)

	tr := New(store, nil, DefaultConfig())
	require.NoError(t, tr.ProcessVessel(context.Background(), vesselID))
	require.Len(t, store.openCalls, 1)

	exit := time.Now().UTC().Add(-time.Minute)
	store.setPosition(vesselID, rotterdam.Lat+2, rotterdam.Lon, exit)
	require.NoError(t, tr.ProcessVessel(context.Background(), vesselID))

	require.Len(t, store.closedCalls, 1)
	assert.Equal(t, exit, *store.closedCalls[0].DepartedAt)
	assert.False(t, store.states[vesselID].InPort)
}

func TestProcessVesselNoRecentPositionIsNoOp(t *testing.T) {
	t.Parallel()

	store := newFakeStore(rotterdam)
	vesselID := uuid.New()
	// Position is older than the lookback window.
	store.setPosition(vesselID, rotterdam.Lat, rotterdam.Lon, time.Now().UTC().Add(-24*time.Hour))

	tr := New(store, nil, DefaultConfig())
	require.NoError(t, tr.ProcessVessel(context.Background(), vesselID))

	assert.Empty(t, store.openCalls)
	assert.Empty(t, store.states, "state must not be created for a vessel with no recent position")
}

func TestProcessVesselIdleAdvancesCheckpoint(t *testing.T) {
	t.Parallel()

	store := newFakeStore(rotterdam)
	vesselID := uuid.New()
	ts := time.Now().UTC().Add(-time.Minute)
	store.setPosition(vesselID, 0, 0, ts) // far from any port

	tr := New(store, nil, DefaultConfig())
	require.NoError(t, tr.ProcessVessel(context.Background(), vesselID))

	assert.Empty(t, store.openCalls)
	require.Len(t, store.checkpoints, 1)
	assert.Equal(t, ts, store.checkpoints[0])
}

func TestFailedPortLoadIsRetried(t *testing.T) {
	t.Parallel()

	store := newFakeStore(rotterdam)
	vesselID := uuid.New()
	store.setPosition(vesselID, rotterdam.Lat, rotterdam.Lon, time.Now().UTC().Add(-time.Minute))

	tr := New(store, nil, DefaultConfig())

	// A transient store failure on the first load must not stick.
	store.listPortsErr = assert.AnError
	err := tr.ProcessVessel(context.Background(), vesselID)
	require.ErrorIs(t, err, assert.AnError)
	assert.Empty(t, store.openCalls)

	store.listPortsErr = nil
	require.NoError(t, tr.ProcessVessel(context.Background(), vesselID))
	require.Len(t, store.openCalls, 1)
	assert.Equal(t, 2, store.listPortsCalls)

	// The successful load is cached.
	require.NoError(t, tr.ProcessVessel(context.Background(), vesselID))
	assert.Equal(t, 2, store.listPortsCalls)
}

func TestSweepProcessesActiveVessels(t *testing.T) {
	t.Parallel()

	store := newFakeStore(rotterdam)
	inPort := uuid.New()
	atSea := uuid.New()
	now := time.Now().UTC()
	store.setPosition(inPort, rotterdam.Lat, rotterdam.Lon, now.Add(-time.Minute))
	store.setPosition(atSea, 0, 0, now.Add(-time.Minute))

	tr := New(store, nil, Config{SweepInterval: time.Second, Lookback: time.Hour})
	require.NoError(t, tr.Sweep(context.Background()))

	assert.Len(t, store.openCalls, 1)
	assert.Len(t, store.checkpoints, 1)
}
