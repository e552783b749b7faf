// Portwatch - Vessel Tracking and Port Call Analytics
// Copyright 2026 Portwatch Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/portwatch/portwatch

// Package websocket pushes live position updates, port-call lifecycle
// events, and raised signals to connected browser clients.
package websocket

import (
	"context"
	"sort"
	"sync"

	"github.com/portwatch/portwatch/internal/logging"
	"github.com/portwatch/portwatch/internal/metrics"
)

// Message types pushed to clients.
const (
	MessageTypePositions    = "positions"
	MessageTypePing         = "ping"
	MessageTypePong         = "pong"
	MessageTypeCallOpened   = "portcall_opened"
	MessageTypeCallClosed   = "portcall_closed"
	MessageTypeSignalRaised = "signal_raised"
)

// Message is the envelope sent over the wire.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Hub maintains the set of active clients and fans messages out to them.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan Message
	Register   chan *Client
	Unregister chan *Client
	mu         sync.RWMutex
}

// NewHub creates a Hub. Call RunWithContext to start it.
func NewHub() *Hub {
	return &Hub{
		broadcast:  make(chan Message, 256),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
	}
}

// RunWithContext runs the hub loop until the context is canceled, then
// closes all clients and returns ctx.Err(). Lifecycle events take
// priority over broadcasts so client state is consistent before fan-out.
func (h *Hub) RunWithContext(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.shutdown(ctx)
			return ctx.Err()
		default:
		}

		select {
		case client := <-h.Register:
			h.addClient(client)
			continue
		case client := <-h.Unregister:
			h.removeClient(client)
			continue
		default:
		}

		select {
		case <-ctx.Done():
			h.shutdown(ctx)
			return ctx.Err()
		case client := <-h.Register:
			h.addClient(client)
		case client := <-h.Unregister:
			h.removeClient(client)
		case message := <-h.broadcast:
			h.broadcastToClients(message)
		}
	}
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	n := len(h.clients)
	h.mu.Unlock()

	metrics.SetWSConnectedClients(n)
	logging.Info().Int("total_clients", n).Msg("websocket client connected")
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		client.closeSend()
	}
	n := len(h.clients)
	h.mu.Unlock()

	metrics.SetWSConnectedClients(n)
	logging.Info().Int("total_clients", n).Msg("websocket client disconnected")
}

// broadcastToClients fans a message out in client ID order. Clients
// whose send buffer is full are pruned; a stalled reader must not block
// the hub.
func (h *Hub) broadcastToClients(message Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].id < clients[j].id
	})

	var toRemove []*Client
	delivered := 0
	for _, client := range clients {
		if client.enqueue(message) {
			delivered++
		} else {
			toRemove = append(toRemove, client)
		}
	}

	for _, client := range toRemove {
		client.closeSend()
		delete(h.clients, client)
		metrics.RecordWSClientPruned()
		logging.Warn().Uint64("client_id", client.id).Msg("pruned slow websocket client")
	}
	if len(toRemove) > 0 {
		metrics.SetWSConnectedClients(len(h.clients))
	}

	metrics.RecordWSBroadcast(delivered)
}

func (h *Hub) shutdown(ctx context.Context) {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].id < clients[j].id
	})
	for _, client := range clients {
		client.closeSend()
		delete(h.clients, client)
	}
	h.mu.Unlock()

	metrics.SetWSConnectedClients(0)
	logging.Info().
		Str("component", "websocket-hub").
		Int("clients_closed", len(clients)).
		Msg("websocket hub stopped")
}

// Broadcast queues a typed message for all connected clients. Drops the
// message when the queue is full rather than blocking the caller.
func (h *Hub) Broadcast(messageType string, data interface{}) {
	message := Message{Type: messageType, Data: data}

	select {
	case h.broadcast <- message:
	default:
		logging.Warn().Str("message_type", messageType).Msg("broadcast channel full, dropping message")
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
