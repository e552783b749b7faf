// Portwatch - Vessel Tracking and Port Call Analytics
// Copyright 2026 Portwatch Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/portwatch/portwatch

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/portwatch/portwatch/internal/database"
	"github.com/portwatch/portwatch/internal/models"
)

// LatestPositions returns the newest known position per vessel, optionally
// restricted to a bounding box given as "minLon,minLat,maxLon,maxLat".
func (h *Handler) LatestPositions(w http.ResponseWriter, r *http.Request) {
	rw := newResponseWriter(w)

	list := h.parseListRequest(r)
	if details := validateRequest(&list); details != nil {
		rw.ValidationError("invalid pagination parameters", details)
		return
	}
	cutoff := time.Now().UTC().Add(-h.positionWindow)

	var (
		positions []*models.VesselPosition
		total     int
		err       error
	)
	if raw := r.URL.Query().Get("bbox"); raw != "" {
		bbox, parseErr := parseBBox(raw)
		if parseErr != nil {
			rw.ValidationError(parseErr.Error(), nil)
			return
		}
		positions, total, err = h.store.LatestPositionsInBBox(r.Context(), cutoff,
			bbox.MinLon, bbox.MinLat, bbox.MaxLon, bbox.MaxLat, list.Limit)
	} else {
		positions, total, err = h.store.LatestPositions(r.Context(), cutoff, list.Limit)
	}
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	rw.SuccessList(positions, models.ListMeta{Total: total, Limit: list.Limit})
}

// VesselPositions returns a vessel's position history, newest first.
func (h *Handler) VesselPositions(w http.ResponseWriter, r *http.Request) {
	rw := newResponseWriter(w)

	vesselID, err := uuid.Parse(chi.URLParam(r, "vesselID"))
	if err != nil {
		rw.ValidationError("vessel id must be a UUID", nil)
		return
	}
	list := h.parseListRequest(r)
	if details := validateRequest(&list); details != nil {
		rw.ValidationError("invalid pagination parameters", details)
		return
	}

	if _, err := h.store.GetVessel(r.Context(), vesselID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			rw.NotFound("vessel not found")
			return
		}
		rw.DatabaseError(err)
		return
	}

	positions, total, err := h.store.PositionsForVessel(r.Context(), vesselID, list.Limit, list.Offset)
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	rw.SuccessList(positions, models.ListMeta{Total: total, Limit: list.Limit, Offset: list.Offset})
}
