// Portwatch - Vessel Tracking and Port Call Analytics
// Copyright 2026 Portwatch Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/portwatch/portwatch

package supervisor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/portwatch/portwatch/internal/logging"
	ws "github.com/portwatch/portwatch/internal/websocket"
)

type blockingRunner struct {
	started chan struct{}
}

func (r *blockingRunner) Run(ctx context.Context) error {
	close(r.started)
	<-ctx.Done()
	return ctx.Err()
}

func TestRunnerServiceStopsOnCancel(t *testing.T) {
	runner := &blockingRunner{started: make(chan struct{})}
	svc := NewRunnerService("test-runner", runner)
	assert.Equal(t, "test-runner", svc.String())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	select {
	case <-runner.started:
	case <-time.After(time.Second):
		t.Fatal("runner did not start")
	}

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("service did not stop")
	}
}

func TestTreeSupervisesServices(t *testing.T) {
	tree := NewTree(logging.NewSlogLogger(), DefaultTreeConfig())

	runner := &blockingRunner{started: make(chan struct{})}
	tree.AddPipelineService(NewRunnerService("pipeline-probe", runner))
	tree.AddMessagingService(NewHubService(ws.NewHub()))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := tree.ServeBackground(ctx)

	select {
	case <-runner.started:
	case <-time.After(2 * time.Second):
		t.Fatal("supervised service did not start")
	}

	cancel()
	for err := range errCh {
		if err != nil {
			require.ErrorIs(t, err, context.Canceled)
		}
	}
}
