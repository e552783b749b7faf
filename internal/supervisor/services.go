// Portwatch - Vessel Tracking and Port Call Analytics
// Copyright 2026 Portwatch Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/portwatch/portwatch

package supervisor

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/portwatch/portwatch/internal/logging"
	ws "github.com/portwatch/portwatch/internal/websocket"
)

// Runner is anything that blocks in Run until its context is canceled.
// The ingestor, tracker, realtime broadcaster and event forwarder all
// satisfy it.
type Runner interface {
	Run(ctx context.Context) error
}

// RunnerService adapts a Runner to the suture.Service interface.
type RunnerService struct {
	name   string
	runner Runner
}

// NewRunnerService wraps a Runner as a supervised service.
func NewRunnerService(name string, runner Runner) *RunnerService {
	return &RunnerService{name: name, runner: runner}
}

// Serve implements suture.Service.
func (s *RunnerService) Serve(ctx context.Context) error {
	logging.Info().Str("service", s.name).Msg("service starting")
	err := s.runner.Run(ctx)
	logging.Info().Str("service", s.name).Msg("service stopped")
	return err
}

func (s *RunnerService) String() string { return s.name }

// HubService runs the WebSocket hub under supervision.
type HubService struct {
	hub *ws.Hub
}

// NewHubService wraps the hub as a supervised service.
func NewHubService(hub *ws.Hub) *HubService {
	return &HubService{hub: hub}
}

// Serve implements suture.Service.
func (s *HubService) Serve(ctx context.Context) error {
	return s.hub.RunWithContext(ctx)
}

func (s *HubService) String() string { return "websocket-hub" }

// HTTPService runs an http.Server with graceful shutdown on context
// cancellation.
type HTTPService struct {
	server          *http.Server
	shutdownTimeout time.Duration
}

// NewHTTPService wraps an http.Server as a supervised service.
func NewHTTPService(server *http.Server, shutdownTimeout time.Duration) *HTTPService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &HTTPService{server: server, shutdownTimeout: shutdownTimeout}
}

// Serve implements suture.Service. ListenAndServe runs in a goroutine so
// the service can react to context cancellation; a listen failure is
// returned to the supervisor for restart with backoff.
func (s *HTTPService) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.server.ListenAndServe()
	}()

	logging.Info().Str("addr", s.server.Addr).Msg("http server listening")

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			logging.Warn().Err(err).Msg("http server shutdown incomplete")
		}
		<-errCh
		logging.Info().Msg("http server stopped")
		return ctx.Err()
	}
}

func (s *HTTPService) String() string { return "http-server" }
