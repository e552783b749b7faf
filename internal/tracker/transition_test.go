// Portwatch - Vessel Tracking and Port Call Analytics
// Copyright 2026 Portwatch Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/portwatch/portwatch

package tracker

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/portwatch/portwatch/internal/models"
)

func strPtr(s string) *string { return &s }

func TestTransitionOpensOnEntry(t *testing.T) {
	t.Parallel()

	state := &models.VesselPortState{InPort: false}
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	action, next := Transition(state, true, "NLRTM", ts)

	assert.Equal(t, ActionOpen, action)
	assert.True(t, next.InPort)
	require.NotNil(t, next.PortID)
	assert.Equal(t, "NLRTM", *next.PortID)
	assert.Nil(t, next.OpenCallID)
	require.NotNil(t, next.LastPositionTime)
	assert.Equal(t, ts, *next.LastPositionTime)
}

func TestTransitionClosesOnExit(t *testing.T) {
	t.Parallel()

	callID := uuid.New()
	state := &models.VesselPortState{
		InPort:     true,
		PortID:     strPtr("NLRTM"),
		OpenCallID: &callID,
	}
	ts := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)

	action, next := Transition(state, false, "", ts)

	assert.Equal(t, ActionClose, action)
	assert.False(t, next.InPort)
	assert.Nil(t, next.PortID)
	assert.Nil(t, next.OpenCallID)
	require.NotNil(t, next.LastPositionTime)
	assert.Equal(t, ts, *next.LastPositionTime)
}

func TestTransitionNoOpCases(t *testing.T) {
	t.Parallel()

	callID := uuid.New()
	ts := time.Date(2026, 3, 1, 13, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		state     models.VesselPortState
		insideNow bool
		matched   string
	}{
		{
			name:      "still outside",
			state:     models.VesselPortState{InPort: false},
			insideNow: false,
		},
		{
			name:      "still inside same port",
			state:     models.VesselPortState{InPort: true, PortID: strPtr("NLRTM"), OpenCallID: &callID},
			insideNow: true,
			matched:   "NLRTM",
		},
		{
			// A vessel matched to a different port while still marked
			// inside one must not auto-switch; the open call runs to a
			// detected departure first.
			name:      "inside different port",
			state:     models.VesselPortState{InPort: true, PortID: strPtr("NLRTM"), OpenCallID: &callID},
			insideNow: true,
			matched:   "DEHAM",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			action, next := Transition(&tt.state, tt.insideNow, tt.matched, ts)

			assert.Equal(t, ActionNone, action)
			assert.Equal(t, tt.state.InPort, next.InPort)
			assert.Equal(t, tt.state.PortID, next.PortID)
			assert.Equal(t, tt.state.OpenCallID, next.OpenCallID)
			require.NotNil(t, next.LastPositionTime, "checkpoint must advance even without a transition")
			assert.Equal(t, ts, *next.LastPositionTime)
		})
	}
}

func TestTransitionDoesNotMutateInput(t *testing.T) {
	t.Parallel()

	state := &models.VesselPortState{InPort: false}
	_, _ = Transition(state, true, "NLRTM", time.Now())

	assert.False(t, state.InPort)
	assert.Nil(t, state.PortID)
	assert.Nil(t, state.LastPositionTime)
}

func TestTransitionSequenceOpenThenClose(t *testing.T) {
	t.Parallel()

	// outside -> inside -> outside over a single port yields exactly one
	// open then exactly one close with the crossing timestamps.
	state := models.VesselPortState{InPort: false}
	enter := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	still := enter.Add(2 * time.Hour)
	exit := enter.Add(9 * time.Hour)

	var actions []Action
	for _, step := range []struct {
		inside bool
		port   string
		ts     time.Time
	}{
		{false, "", enter.Add(-time.Hour)},
		{true, "SGSIN", enter},
		{true, "SGSIN", still},
		{false, "", exit},
	} {
		var action Action
		action, state = Transition(&state, step.inside, step.port, step.ts)
		actions = append(actions, action)
	}

	assert.Equal(t, []Action{ActionNone, ActionOpen, ActionNone, ActionClose}, actions)
	require.NotNil(t, state.LastPositionTime)
	assert.Equal(t, exit, *state.LastPositionTime)
}
