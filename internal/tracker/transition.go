// Portwatch - Vessel Tracking and Port Call Analytics
// Copyright 2026 Portwatch Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/portwatch/portwatch

// Package tracker turns per-vessel position streams into port-call
// transitions. The transition function is pure; persistence happens in the
// Tracker, which applies each transition inside one transaction per vessel.
package tracker

import (
	"time"

	"github.com/portwatch/portwatch/internal/models"
)

// Action is the outcome of evaluating one position against a vessel's
// persisted state.
type Action string

const (
	// ActionNone means no boundary was crossed.
	ActionNone Action = "none"
	// ActionOpen means the vessel entered a port.
	ActionOpen Action = "open"
	// ActionClose means the vessel left the port it was in.
	ActionClose Action = "close"
)

// Transition computes the port-call action for a vessel's latest position.
// It is pure: the returned next state is a copy, the input is not mutated.
//
// Rules:
//   - outside -> inside a port: open against the matched port.
//   - inside -> outside all ports: close against the previously recorded
//     port; port and call references clear.
//   - anything else: none. In particular, a vessel matched to a different
//     port while still marked inside one stays a no-op: the open call must
//     run to a detected departure before another can begin. An automatic
//     switch would close calls on geofence overlap jitter.
//
// The returned state's LastPositionTime always advances to the evaluated
// position's timestamp, so idle vessels still show a fresh checkpoint.
func Transition(state *models.VesselPortState, insideNow bool, matchedPortID string, positionTime time.Time) (Action, models.VesselPortState) {
	next := *state
	t := positionTime.UTC()
	next.LastPositionTime = &t

	switch {
	case !state.InPort && insideNow:
		next.InPort = true
		portID := matchedPortID
		next.PortID = &portID
		next.OpenCallID = nil // assigned by the store when the call row exists
		return ActionOpen, next

	case state.InPort && !insideNow:
		next.InPort = false
		next.PortID = nil
		next.OpenCallID = nil
		return ActionClose, next

	default:
		return ActionNone, next
	}
}
