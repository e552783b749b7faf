// Portwatch - Vessel Tracking and Port Call Analytics
// Copyright 2026 Portwatch Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/portwatch/portwatch

package api

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/portwatch/portwatch/internal/database"
	"github.com/portwatch/portwatch/internal/models"
)

// ListPortCalls lists port calls newest first. Supported filters:
// port_id, vessel_id (UUID) and open=true for calls still in progress.
func (h *Handler) ListPortCalls(w http.ResponseWriter, r *http.Request) {
	rw := newResponseWriter(w)

	list := h.parseListRequest(r)
	if details := validateRequest(&list); details != nil {
		rw.ValidationError("invalid pagination parameters", details)
		return
	}

	filter := database.CallFilter{
		PortID:   r.URL.Query().Get("port_id"),
		OpenOnly: r.URL.Query().Get("open") == "true",
		Limit:    list.Limit,
		Offset:   list.Offset,
	}
	if raw := r.URL.Query().Get("vessel_id"); raw != "" {
		vesselID, err := uuid.Parse(raw)
		if err != nil {
			rw.ValidationError("vessel_id must be a UUID", nil)
			return
		}
		filter.VesselID = &vesselID
	}

	calls, total, err := h.store.ListPortCalls(r.Context(), filter)
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	rw.SuccessList(calls, models.ListMeta{Total: total, Limit: list.Limit, Offset: list.Offset})
}
