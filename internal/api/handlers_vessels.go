// Portwatch - Vessel Tracking and Port Call Analytics
// Copyright 2026 Portwatch Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/portwatch/portwatch

package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/portwatch/portwatch/internal/database"
	"github.com/portwatch/portwatch/internal/models"
)

// SearchVessels lists vessels, optionally filtered by a name or MMSI
// substring via the "q" query parameter.
func (h *Handler) SearchVessels(w http.ResponseWriter, r *http.Request) {
	rw := newResponseWriter(w)

	list := h.parseListRequest(r)
	if details := validateRequest(&list); details != nil {
		rw.ValidationError("invalid pagination parameters", details)
		return
	}
	query := strings.TrimSpace(r.URL.Query().Get("q"))

	vessels, total, err := h.store.SearchVessels(r.Context(), query, list.Limit, list.Offset)
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	rw.SuccessList(vessels, models.ListMeta{Total: total, Limit: list.Limit, Offset: list.Offset})
}

// GetVessel returns one vessel by UUID.
func (h *Handler) GetVessel(w http.ResponseWriter, r *http.Request) {
	rw := newResponseWriter(w)

	vesselID, err := uuid.Parse(chi.URLParam(r, "vesselID"))
	if err != nil {
		rw.ValidationError("vessel id must be a UUID", nil)
		return
	}

	vessel, err := h.store.GetVessel(r.Context(), vesselID)
	if errors.Is(err, database.ErrNotFound) {
		rw.NotFound("vessel not found")
		return
	}
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	rw.Success(vessel)
}
