// Portwatch - Vessel Tracking and Port Call Analytics
// Copyright 2026 Portwatch Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/portwatch/portwatch

package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/portwatch/portwatch/internal/database"
	"github.com/portwatch/portwatch/internal/models"
)

// ListPorts returns every configured port with its geofence.
func (h *Handler) ListPorts(w http.ResponseWriter, r *http.Request) {
	rw := newResponseWriter(w)

	ports, err := h.store.ListPorts(r.Context())
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	rw.SuccessList(ports, models.ListMeta{Total: len(ports), Limit: len(ports)})
}

// GetPort returns one port by ID.
func (h *Handler) GetPort(w http.ResponseWriter, r *http.Request) {
	rw := newResponseWriter(w)
	portID := chi.URLParam(r, "portID")

	port, err := h.store.GetPort(r.Context(), portID)
	if errors.Is(err, database.ErrNotFound) {
		rw.NotFound("port not found")
		return
	}
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	rw.Success(port)
}

// GetPortMetrics returns the rolling 7-day activity summary for a port.
func (h *Handler) GetPortMetrics(w http.ResponseWriter, r *http.Request) {
	rw := newResponseWriter(w)
	portID := chi.URLParam(r, "portID")

	if _, err := h.store.GetPort(r.Context(), portID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			rw.NotFound("port not found")
			return
		}
		rw.DatabaseError(err)
		return
	}

	cacheKey := "metrics:" + portID
	if cached, ok := h.metricsCache.Get(cacheKey); ok {
		rw.Success(cached)
		return
	}

	m, err := h.store.GetPortMetrics7d(r.Context(), portID)
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	h.metricsCache.Set(cacheKey, m)
	rw.Success(m)
}
