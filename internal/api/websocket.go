// Portwatch - Vessel Tracking and Port Call Analytics
// Copyright 2026 Portwatch Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/portwatch/portwatch

package api

import (
	"net/http"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/portwatch/portwatch/internal/logging"
	ws "github.com/portwatch/portwatch/internal/websocket"
)

// checkWSOrigin gates browser upgrades by the configured CORS origins.
// Browsers do not apply CORS to websocket upgrades, so the check has to
// happen here. Requests without an Origin header come from non-browser
// clients and pass; every upgrade still requires a bearer token.
func (h *Handler) checkWSOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range h.allowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	return false
}

// ServeWS upgrades the connection and attaches it to the hub. The client
// starts receiving position snapshots and event notifications immediately.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	if h.hub == nil {
		rw := newResponseWriter(w)
		rw.Error(http.StatusServiceUnavailable, ErrCodeInternal, "realtime feed is disabled")
		return
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     h.checkWSOrigin,
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		logging.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := ws.NewClient(h.hub, conn)
	h.hub.Register <- client
	client.Start()

	logging.Debug().
		Uint64("client_id", client.ID()).
		Str("remote", r.RemoteAddr).
		Msg("websocket client connected")
}
