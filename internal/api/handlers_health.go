// Portwatch - Vessel Tracking and Port Call Analytics
// Copyright 2026 Portwatch Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/portwatch/portwatch

package api

import (
	"net/http"
	"time"
)

type healthPayload struct {
	Status        string  `json:"status"`
	UptimeSeconds float64 `json:"uptime_seconds"`
	Database      string  `json:"database,omitempty"`
}

// Liveness reports that the process is up. It never touches the store.
func (h *Handler) Liveness(w http.ResponseWriter, r *http.Request) {
	rw := newResponseWriter(w)
	rw.Success(healthPayload{
		Status:        "ok",
		UptimeSeconds: time.Since(h.startTime).Seconds(),
	})
}

// Readiness reports whether the service can serve queries.
func (h *Handler) Readiness(w http.ResponseWriter, r *http.Request) {
	rw := newResponseWriter(w)

	if err := h.store.Ping(r.Context()); err != nil {
		rw.Error(http.StatusServiceUnavailable, ErrCodeDatabase, "database unreachable")
		return
	}
	rw.Success(healthPayload{
		Status:        "ok",
		UptimeSeconds: time.Since(h.startTime).Seconds(),
		Database:      "ok",
	})
}
