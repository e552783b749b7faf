// Portwatch - Vessel Tracking and Port Call Analytics
// Copyright 2026 Portwatch Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/portwatch/portwatch

// Package main is the entry point for the Portwatch server.
//
// Portwatch ingests AIS position reports, derives port calls from
// geofence transitions, computes nightly per-port baselines, raises
// explainable anomaly signals and serves everything over a REST API
// plus a realtime WebSocket feed.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: layered load via Koanf v2 (defaults, YAML, env)
//  2. Database: DuckDB with the vessel/position/call schema
//  3. Event bus: embedded NATS JetStream with a Watermill publisher
//  4. Pipeline: AIS ingestor, port-call tracker, nightly analytics job
//  5. Realtime: WebSocket hub, position broadcaster, event forwarder
//  6. HTTP server: REST API with JWT bearer authentication
//
// All long-running components run under a Suture supervisor tree and
// restart independently with backoff on failure.
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest
// priority wins):
//   - Environment variables (PORTWATCH_ prefix, "__" as section separator)
//   - Config file (config.yaml, or PORTWATCH_CONFIG)
//   - Built-in defaults
//
// A 32+ character PORTWATCH_SECURITY__JWT_SECRET is required. With no
// AIS API key configured the server runs against a deterministic
// synthetic fleet, which is enough to exercise the full pipeline.
//
// # Signal Handling
//
// The server shuts down gracefully on SIGINT and SIGTERM: the HTTP
// server drains in-flight requests, pipeline services stop at their
// next tick, then the event bus and database close.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/portwatch/portwatch/internal/analytics"
	"github.com/portwatch/portwatch/internal/api"
	"github.com/portwatch/portwatch/internal/auth"
	"github.com/portwatch/portwatch/internal/config"
	"github.com/portwatch/portwatch/internal/database"
	"github.com/portwatch/portwatch/internal/events"
	"github.com/portwatch/portwatch/internal/ingest"
	"github.com/portwatch/portwatch/internal/logging"
	"github.com/portwatch/portwatch/internal/models"
	"github.com/portwatch/portwatch/internal/realtime"
	signalengine "github.com/portwatch/portwatch/internal/signal"
	"github.com/portwatch/portwatch/internal/stats"
	"github.com/portwatch/portwatch/internal/supervisor"
	"github.com/portwatch/portwatch/internal/tracker"
	ws "github.com/portwatch/portwatch/internal/websocket"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(cfg.Logging)
	logging.Info().Msg("Starting Portwatch")

	db, err := database.New(cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()

	ports := make([]*models.Port, 0, len(cfg.Ports))
	for _, p := range cfg.Ports {
		ports = append(ports, &models.Port{
			ID: p.ID, Name: p.Name, Lat: p.Lat, Lon: p.Lon, RadiusKm: p.RadiusKm,
		})
	}
	if err := db.SeedPorts(context.Background(), ports); err != nil {
		logging.Fatal().Err(err).Msg("Failed to seed ports")
	}
	logging.Info().Int("ports", len(ports)).Msg("Database initialized")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	wsHub := ws.NewHub()

	// Event bus. When disabled the tracker and signal engine simply skip
	// publishing; the REST API is unaffected.
	var (
		eventServer *events.EmbeddedServer
		publisher   *events.Publisher
		forwarder   *events.Forwarder
	)
	if cfg.Events.Enabled {
		eventServer, err = events.NewEmbeddedServer(cfg.Events)
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to start embedded NATS server")
		}
		if err := eventServer.EnsureStream(ctx, cfg.Events); err != nil {
			logging.Fatal().Err(err).Msg("Failed to provision JetStream stream")
		}

		wmLogger := events.NewWatermillLogger()
		publisher, err = events.NewPublisher(eventServer.ClientURL(), cfg.Events, wmLogger)
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to create event publisher")
		}
		forwarder, err = events.NewForwarder(eventServer.ClientURL(), cfg.Events, wsHub, wmLogger)
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to create event forwarder")
		}
		logging.Info().Str("url", eventServer.ClientURL()).Msg("Event bus initialized")
	} else {
		logging.Info().Msg("Event bus disabled")
	}

	var trackerPublisher tracker.EventPublisher
	var signalPublisher signalengine.EventPublisher
	if publisher != nil {
		trackerPublisher = publisher
		signalPublisher = publisher
	}

	trk := tracker.New(db, trackerPublisher, cfg.Tracker)

	baseliner := stats.NewBaseliner(db)
	engine := signalengine.New(db, signalPublisher, cfg.Signals)
	nightly := analytics.New(baseliner, engine, cfg.Analytics)

	source, err := ingest.NewSource(cfg.Ingest, ports)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create AIS source")
	}
	ingestor := ingest.New(source, db, cfg.Ingest)

	broadcaster := realtime.New(db, wsHub, cfg.Realtime)

	jwtManager, err := auth.NewJWTManager(cfg.Security.JWTSecret, cfg.Security.SessionTimeout)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize JWT manager")
	}

	handler := api.NewHandler(db, api.PageConfig{
		DefaultPageSize: cfg.API.DefaultPageSize,
		MaxPageSize:     cfg.API.MaxPageSize,
	}, wsHub)
	router := api.NewRouter(handler, jwtManager, api.RouterConfig{
		CORSOrigins:     cfg.Security.CORSOrigins,
		RateLimitReqs:   cfg.Security.RateLimitReqs,
		RateLimitWindow: cfg.Security.RateLimitWindow,
		RequestTimeout:  cfg.Server.Timeout,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  60 * time.Second,
	}

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())

	tree.AddPipelineService(supervisor.NewRunnerService("ais-ingestor", ingestor))
	tree.AddPipelineService(supervisor.NewRunnerService("portcall-tracker", trk))
	tree.AddPipelineService(supervisor.NewRunnerService("nightly-analytics", nightly))

	tree.AddMessagingService(supervisor.NewHubService(wsHub))
	tree.AddMessagingService(supervisor.NewRunnerService("realtime-broadcaster", broadcaster))
	if forwarder != nil {
		tree.AddMessagingService(supervisor.NewRunnerService("event-forwarder", forwarder))
	}

	tree.AddAPIService(supervisor.NewHTTPService(server, 10*time.Second))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Str("addr", server.Addr).Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	// Bus components close after every producer and consumer has stopped.
	if forwarder != nil {
		if err := forwarder.Close(); err != nil {
			logging.Warn().Err(err).Msg("Error closing event forwarder")
		}
	}
	if publisher != nil {
		if err := publisher.Close(); err != nil {
			logging.Warn().Err(err).Msg("Error closing event publisher")
		}
	}
	if eventServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := eventServer.Shutdown(shutdownCtx); err != nil {
			logging.Warn().Err(err).Msg("Error shutting down embedded NATS server")
		}
		shutdownCancel()
	}
	if err := ingestor.Close(); err != nil {
		logging.Warn().Err(err).Msg("Error closing AIS source")
	}

	logging.Info().Msg("Portwatch stopped gracefully")
}
