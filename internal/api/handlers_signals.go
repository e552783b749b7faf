// Portwatch - Vessel Tracking and Port Call Analytics
// Copyright 2026 Portwatch Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/portwatch/portwatch

package api

import (
	"net/http"

	"github.com/portwatch/portwatch/internal/database"
	"github.com/portwatch/portwatch/internal/models"
)

// ListSignals lists raised signals newest first. Supported filters:
// severity (MEDIUM|HIGH), type and entity_id.
func (h *Handler) ListSignals(w http.ResponseWriter, r *http.Request) {
	rw := newResponseWriter(w)

	req := SignalsRequest{
		Severity:    r.URL.Query().Get("severity"),
		Type:        r.URL.Query().Get("type"),
		ListRequest: h.parseListRequest(r),
	}
	if details := validateRequest(&req); details != nil {
		rw.ValidationError("invalid signal filters", details)
		return
	}

	signals, total, err := h.store.ListSignals(r.Context(), database.SignalFilter{
		Severity: req.Severity,
		Type:     req.Type,
		EntityID: r.URL.Query().Get("entity_id"),
		Limit:    req.Limit,
		Offset:   req.Offset,
	})
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	rw.SuccessList(signals, models.ListMeta{Total: total, Limit: req.Limit, Offset: req.Offset})
}
