// Portwatch - Vessel Tracking and Port Call Analytics
// Copyright 2026 Portwatch Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/portwatch/portwatch

// Package metrics provides Prometheus instrumentation for ingestion,
// tracking, signal scoring, the event bus, websocket distribution, and the
// HTTP API. Metrics are registered via promauto and exposed on /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Ingestion metrics
	IngestSamples = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portwatch_ingest_samples_total",
			Help: "Total position samples persisted, by provenance",
		},
		[]string{"source"},
	)

	IngestDuplicates = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "portwatch_ingest_duplicates_total",
			Help: "Total position samples skipped as duplicates",
		},
	)

	IngestDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "portwatch_ingest_dropped_total",
			Help: "Total malformed samples dropped during normalization",
		},
	)

	IngestErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "portwatch_ingest_errors_total",
			Help: "Total failed ingest ticks",
		},
	)

	IngestTickDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "portwatch_ingest_tick_duration_seconds",
			Help:    "Duration of ingest ticks in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Tracker metrics
	PortCallsOpened = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "portwatch_port_calls_opened_total",
			Help: "Total port calls opened",
		},
	)

	PortCallsClosed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "portwatch_port_calls_closed_total",
			Help: "Total port calls closed",
		},
	)

	TrackerSweepDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "portwatch_tracker_sweep_duration_seconds",
			Help:    "Duration of tracker sweeps in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	TrackerSweepVessels = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "portwatch_tracker_sweep_vessels",
			Help: "Vessels evaluated in the last tracker sweep",
		},
	)

	TrackerErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "portwatch_tracker_errors_total",
			Help: "Total per-vessel tracker processing failures",
		},
	)

	// Signal engine metrics
	SignalCandidates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portwatch_signal_candidates_total",
			Help: "Total signal candidates considered, by severity",
		},
		[]string{"severity"},
	)

	SignalsPersisted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "portwatch_signals_persisted_total",
			Help: "Total new signal rows written (duplicates excluded)",
		},
	)

	BaselineRows = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "portwatch_baseline_rows_total",
			Help: "Total baseline rows computed by the nightly job",
		},
	)

	AnalyticsRunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "portwatch_analytics_run_duration_seconds",
			Help:    "Duration of nightly analytics passes in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"result"},
	)

	// Event bus metrics
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portwatch_events_published_total",
			Help: "Total events published to the bus, by topic",
		},
		[]string{"topic"},
	)

	EventPublishErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portwatch_event_publish_errors_total",
			Help: "Total failed event publishes, by topic",
		},
		[]string{"topic"},
	)

	// WebSocket metrics
	WSConnectedClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "portwatch_ws_connected_clients",
			Help: "Currently connected websocket clients",
		},
	)

	WSBroadcasts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "portwatch_ws_broadcasts_total",
			Help: "Total messages broadcast to websocket clients",
		},
	)

	WSClientsPruned = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "portwatch_ws_clients_pruned_total",
			Help: "Total websocket clients pruned for slow or dead connections",
		},
	)

	// API metrics
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "portwatch_api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	APIAuthFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "portwatch_api_auth_failures_total",
			Help: "Total rejected bearer tokens",
		},
	)
)

// RecordIngestTick records the result of one ingest tick.
func RecordIngestTick(source string, inserted, duplicates, dropped int, duration time.Duration) {
	IngestSamples.WithLabelValues(source).Add(float64(inserted))
	IngestDuplicates.Add(float64(duplicates))
	IngestDropped.Add(float64(dropped))
	IngestTickDuration.Observe(duration.Seconds())
}

// RecordIngestError counts a failed ingest tick.
func RecordIngestError() {
	IngestErrors.Inc()
}

// RecordPortCallOpened counts an opened port call.
func RecordPortCallOpened() {
	PortCallsOpened.Inc()
}

// RecordPortCallClosed counts a closed port call.
func RecordPortCallClosed() {
	PortCallsClosed.Inc()
}

// RecordTrackerSweep records the duration and breadth of one sweep.
func RecordTrackerSweep(duration time.Duration, vessels int) {
	TrackerSweepDuration.Observe(duration.Seconds())
	TrackerSweepVessels.Set(float64(vessels))
}

// RecordTrackerError counts a per-vessel processing failure.
func RecordTrackerError() {
	TrackerErrors.Inc()
}

// RecordSignalCandidate counts a considered signal candidate.
func RecordSignalCandidate(severity string) {
	SignalCandidates.WithLabelValues(severity).Inc()
}

// RecordSignalPersisted counts a newly written signal row.
func RecordSignalPersisted() {
	SignalsPersisted.Inc()
}

// RecordBaselineRows counts baseline rows written by the nightly job.
func RecordBaselineRows(n int) {
	BaselineRows.Add(float64(n))
}

// RecordAnalyticsRun records the outcome and duration of one nightly pass.
func RecordAnalyticsRun(result string, duration time.Duration) {
	AnalyticsRunDuration.WithLabelValues(result).Observe(duration.Seconds())
}

// RecordEventPublished counts a successful bus publish.
func RecordEventPublished(topic string) {
	EventsPublished.WithLabelValues(topic).Inc()
}

// RecordEventPublishError counts a failed bus publish.
func RecordEventPublishError(topic string) {
	EventPublishErrors.WithLabelValues(topic).Inc()
}

// SetWSConnectedClients tracks the live subscriber count.
func SetWSConnectedClients(n int) {
	WSConnectedClients.Set(float64(n))
}

// RecordWSBroadcast counts messages fanned out to clients.
func RecordWSBroadcast(clients int) {
	WSBroadcasts.Add(float64(clients))
}

// RecordWSClientPruned counts a pruned websocket client.
func RecordWSClientPruned() {
	WSClientsPruned.Inc()
}

// RecordAPIRequest records one handled API request.
func RecordAPIRequest(method, path, status string, duration time.Duration) {
	APIRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// RecordAuthFailure counts a rejected bearer token.
func RecordAuthFailure() {
	APIAuthFailures.Inc()
}
