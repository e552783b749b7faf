// Portwatch - Vessel Tracking and Port Call Analytics
// Copyright 2026 Portwatch Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/portwatch/portwatch

// Package events carries port-call and signal notifications over an
// embedded NATS JetStream instance, published and consumed through
// Watermill. A forwarder bridges the bus to the websocket hub so browser
// clients see lifecycle events as they happen.
package events

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/portwatch/portwatch/internal/models"
)

// Topics published on the event bus.
const (
	TopicCallOpened   = "portcall.opened"
	TopicCallClosed   = "portcall.closed"
	TopicSignalRaised = "signal.raised"
)

// StreamName is the JetStream stream holding all portwatch subjects.
const StreamName = "PORTWATCH"

// StreamSubjects lists the subject wildcards captured by the stream.
var StreamSubjects = []string{"portcall.>", "signal.>"}

// PortCallEvent is the wire form of a port-call open or close.
type PortCallEvent struct {
	EventID    string     `json:"event_id"`
	CallID     uuid.UUID  `json:"call_id"`
	VesselID   uuid.UUID  `json:"vessel_id"`
	VesselName string     `json:"vessel_name,omitempty"`
	PortID     string     `json:"port_id"`
	PortName   string     `json:"port_name,omitempty"`
	ArrivedAt  time.Time  `json:"arrived_at"`
	DepartedAt *time.Time `json:"departed_at,omitempty"`
	DwellHours float64    `json:"dwell_hours,omitempty"`
	Timestamp  time.Time  `json:"timestamp"`
}

// NewPortCallEvent builds an event from a persisted call.
func NewPortCallEvent(call *models.PortCall) *PortCallEvent {
	return &PortCallEvent{
		EventID:    uuid.New().String(),
		CallID:     call.ID,
		VesselID:   call.VesselID,
		VesselName: call.VesselName,
		PortID:     call.PortID,
		PortName:   call.PortName,
		ArrivedAt:  call.ArrivedAt,
		DepartedAt: call.DepartedAt,
		DwellHours: call.DwellHours,
		Timestamp:  time.Now().UTC(),
	}
}

// SignalEvent is the wire form of a raised anomaly signal.
type SignalEvent struct {
	EventID     string    `json:"event_id"`
	SignalType  string    `json:"signal_type"`
	EntityType  string    `json:"entity_type"`
	EntityID    string    `json:"entity_id"`
	Severity    string    `json:"severity"`
	Observed    float64   `json:"observed"`
	Baseline    float64   `json:"baseline"`
	ZScore      float64   `json:"z_score"`
	DeltaPct    float64   `json:"delta_pct"`
	Explanation string    `json:"explanation"`
	Day         time.Time `json:"day"`
	Timestamp   time.Time `json:"timestamp"`
}

// NewSignalEvent builds an event from a persisted signal.
func NewSignalEvent(s *models.Signal) *SignalEvent {
	return &SignalEvent{
		EventID:     uuid.New().String(),
		SignalType:  s.Type,
		EntityType:  s.EntityType,
		EntityID:    s.EntityID,
		Severity:    s.Severity,
		Observed:    s.Observed,
		Baseline:    s.Baseline,
		ZScore:      s.ZScore,
		DeltaPct:    s.DeltaPct,
		Explanation: s.Explanation,
		Day:         s.Day,
		Timestamp:   time.Now().UTC(),
	}
}

// Marshal serializes an event payload for the bus.
func Marshal(v interface{}) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return data, nil
}

// UnmarshalPortCall deserializes a port-call event payload.
func UnmarshalPortCall(data []byte) (*PortCallEvent, error) {
	var ev PortCallEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, fmt.Errorf("unmarshal port call event: %w", err)
	}
	return &ev, nil
}

// UnmarshalSignal deserializes a signal event payload.
func UnmarshalSignal(data []byte) (*SignalEvent, error) {
	var ev SignalEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, fmt.Errorf("unmarshal signal event: %w", err)
	}
	return &ev, nil
}
