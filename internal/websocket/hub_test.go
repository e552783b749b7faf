// Portwatch - Vessel Tracking and Port Call Analytics
// Copyright 2026 Portwatch Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/portwatch/portwatch

package websocket

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(buffer int) *Client {
	return &Client{
		id:   clientIDCounter.Add(1),
		send: make(chan Message, buffer),
	}
}

func TestHubBroadcastDeliversToRegisteredClients(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		_ = hub.RunWithContext(ctx)
		close(done)
	}()

	c1 := newTestClient(4)
	c2 := newTestClient(4)
	hub.Register <- c1
	hub.Register <- c2

	require.Eventually(t, func() bool {
		return hub.ClientCount() == 2
	}, time.Second, 10*time.Millisecond)

	hub.Broadcast(MessageTypeSignalRaised, map[string]string{"port": "NLRTM"})

	for _, c := range []*Client{c1, c2} {
		select {
		case msg := <-c.send:
			assert.Equal(t, MessageTypeSignalRaised, msg.Type)
		case <-time.After(time.Second):
			t.Fatal("client did not receive broadcast")
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("hub did not stop on context cancel")
	}
	assert.Zero(t, hub.ClientCount())
}

func TestHubPrunesSlowClients(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = hub.RunWithContext(ctx) }()

	slow := newTestClient(0)
	fast := newTestClient(4)
	hub.Register <- slow
	hub.Register <- fast

	require.Eventually(t, func() bool {
		return hub.ClientCount() == 2
	}, time.Second, 10*time.Millisecond)

	hub.Broadcast(MessageTypePositions, nil)

	require.Eventually(t, func() bool {
		return hub.ClientCount() == 1
	}, time.Second, 10*time.Millisecond)

	// The pruned client's channel is closed.
	_, open := <-slow.send
	assert.False(t, open)
}

func TestEnqueueAfterPruneDoesNotPanic(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = hub.RunWithContext(ctx) }()

	slow := newTestClient(0)
	hub.Register <- slow
	require.Eventually(t, func() bool {
		return hub.ClientCount() == 1
	}, time.Second, 10*time.Millisecond)

	hub.Broadcast(MessageTypePositions, nil)
	require.Eventually(t, func() bool {
		return hub.ClientCount() == 0
	}, time.Second, 10*time.Millisecond)

	// The read loop may still answer an inbound ping after the prune
	// closed the send channel; the reply must be dropped, not panic.
	assert.NotPanics(t, func() {
		assert.False(t, slow.enqueue(Message{Type: MessageTypePong}))
	})

	// A second close is a no-op.
	assert.NotPanics(t, slow.closeSend)
}

func TestHubUnregisterClosesSendChannel(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = hub.RunWithContext(ctx) }()

	c := newTestClient(1)
	hub.Register <- c
	require.Eventually(t, func() bool {
		return hub.ClientCount() == 1
	}, time.Second, 10*time.Millisecond)

	hub.Unregister <- c
	require.Eventually(t, func() bool {
		return hub.ClientCount() == 0
	}, time.Second, 10*time.Millisecond)

	_, open := <-c.send
	assert.False(t, open)
}
