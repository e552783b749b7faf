// Portwatch - Vessel Tracking and Port Call Analytics
// Copyright 2026 Portwatch Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/portwatch/portwatch

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/portwatch/portwatch/internal/auth"
	"github.com/portwatch/portwatch/internal/middleware"
)

// RouterConfig holds the cross-cutting HTTP settings.
type RouterConfig struct {
	CORSOrigins     []string
	RateLimitReqs   int
	RateLimitWindow time.Duration
	RequestTimeout  time.Duration
}

// NewRouter wires every endpoint behind the shared middleware chain.
// Health probes and /metrics stay unauthenticated; everything under
// /api/v1 and the websocket endpoint require a bearer token.
func NewRouter(h *Handler, jwtManager *auth.JWTManager, cfg RouterConfig) http.Handler {
	if cfg.RateLimitReqs <= 0 {
		cfg.RateLimitReqs = 100
	}
	if cfg.RateLimitWindow <= 0 {
		cfg.RateLimitWindow = time.Minute
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	h.allowedOrigins = cfg.CORSOrigins

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.PrometheusMetrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health/live", h.Liveness)
	r.Get("/health/ready", h.Readiness)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(httprate.LimitByIP(cfg.RateLimitReqs, cfg.RateLimitWindow))
		r.Use(chimiddleware.Timeout(cfg.RequestTimeout))
		r.Use(jwtManager.Middleware)

		r.Get("/ports", h.ListPorts)
		r.Get("/ports/{portID}", h.GetPort)
		r.Get("/ports/{portID}/metrics", h.GetPortMetrics)

		r.Get("/vessels", h.SearchVessels)
		r.Get("/vessels/{vesselID}", h.GetVessel)
		r.Get("/vessels/{vesselID}/positions", h.VesselPositions)

		r.Get("/positions/latest", h.LatestPositions)

		r.Get("/calls", h.ListPortCalls)
		r.Get("/signals", h.ListSignals)
	})

	// Token auth for the upgrade is carried in the Authorization header
	// like the REST routes. Rate limiting would break long-lived sockets.
	r.Group(func(r chi.Router) {
		r.Use(jwtManager.Middleware)
		r.Get("/ws", h.ServeWS)
	})

	return r
}
