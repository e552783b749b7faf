// Portwatch - Vessel Tracking and Port Call Analytics
// Copyright 2026 Portwatch Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/portwatch/portwatch

package realtime

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/portwatch/portwatch/internal/models"
	"github.com/portwatch/portwatch/internal/websocket"
)

type fakeStore struct {
	positions []*models.VesselPosition
	queries   int
	cutoffs   []time.Time
}

func (f *fakeStore) LatestPositions(_ context.Context, cutoff time.Time, _ int) ([]*models.VesselPosition, int, error) {
	f.queries++
	f.cutoffs = append(f.cutoffs, cutoff)
	return f.positions, len(f.positions), nil
}

type fakeHub struct {
	clients  int
	messages []websocket.Message
}

func (f *fakeHub) Broadcast(messageType string, data interface{}) {
	f.messages = append(f.messages, websocket.Message{Type: messageType, Data: data})
}

func (f *fakeHub) ClientCount() int { return f.clients }

func TestTickSkipsStoreWithoutSubscribers(t *testing.T) {
	store := &fakeStore{}
	hub := &fakeHub{clients: 0}
	b := New(store, hub, DefaultConfig())

	require.NoError(t, b.Tick(context.Background()))
	assert.Zero(t, store.queries)
	assert.Empty(t, hub.messages)
}

func TestTickBroadcastsSnapshot(t *testing.T) {
	store := &fakeStore{positions: []*models.VesselPosition{
		{Position: models.Position{Lat: 51.95, Lon: 4.05}},
	}}
	hub := &fakeHub{clients: 2}
	b := New(store, hub, Config{Interval: time.Second, Window: 10 * time.Minute, MaxVessels: 100})

	require.NoError(t, b.Tick(context.Background()))
	assert.Equal(t, 1, store.queries)
	require.Len(t, hub.messages, 1)
	assert.Equal(t, websocket.MessageTypePositions, hub.messages[0].Type)

	// The cutoff reflects the configured window.
	require.Len(t, store.cutoffs, 1)
	assert.WithinDuration(t, time.Now().Add(-10*time.Minute), store.cutoffs[0], time.Minute)
}
