// Portwatch - Vessel Tracking and Port Call Analytics
// Copyright 2026 Portwatch Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/portwatch/portwatch

package events

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/portwatch/portwatch/internal/models"
)

func TestNewPortCallEventCarriesCallFields(t *testing.T) {
	arrived := time.Date(2026, 8, 28, 6, 0, 0, 0, time.UTC)
	departed := arrived.Add(18 * time.Hour)
	call := &models.PortCall{
		ID:         uuid.New(),
		VesselID:   uuid.New(),
		VesselName: "EVER GIVEN",
		PortID:     "NLRTM",
		PortName:   "Rotterdam",
		ArrivedAt:  arrived,
		DepartedAt: &departed,
		DwellHours: 18,
	}

	ev := NewPortCallEvent(call)
	assert.NotEmpty(t, ev.EventID)
	assert.Equal(t, call.ID, ev.CallID)
	assert.Equal(t, call.VesselID, ev.VesselID)
	assert.Equal(t, "NLRTM", ev.PortID)
	require.NotNil(t, ev.DepartedAt)
	assert.Equal(t, departed, *ev.DepartedAt)
}

func TestDecodeForBroadcast(t *testing.T) {
	call := &models.PortCall{
		ID:        uuid.New(),
		VesselID:  uuid.New(),
		PortID:    "SGSIN",
		ArrivedAt: time.Now().UTC(),
	}
	payload, err := Marshal(NewPortCallEvent(call))
	require.NoError(t, err)

	wsType, data, err := DecodeForBroadcast(TopicCallOpened, payload)
	require.NoError(t, err)
	assert.Equal(t, WSTypeCallOpened, wsType)
	ev, ok := data.(*PortCallEvent)
	require.True(t, ok)
	assert.Equal(t, "SGSIN", ev.PortID)

	sig := &models.Signal{
		Type:     models.SignalDwellSpike,
		EntityID: "SGSIN",
		Severity: models.SeverityHigh,
		ZScore:   3.2,
	}
	payload, err = Marshal(NewSignalEvent(sig))
	require.NoError(t, err)

	wsType, data, err = DecodeForBroadcast(TopicSignalRaised, payload)
	require.NoError(t, err)
	assert.Equal(t, WSTypeSignalRaised, wsType)
	sev, ok := data.(*SignalEvent)
	require.True(t, ok)
	assert.Equal(t, models.SeverityHigh, sev.Severity)

	_, _, err = DecodeForBroadcast("unknown.topic", payload)
	assert.Error(t, err)
}
