// Portwatch - Vessel Tracking and Port Call Analytics
// Copyright 2026 Portwatch Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/portwatch/portwatch

package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	natsgo "github.com/nats-io/nats.go"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/portwatch/portwatch/internal/metrics"
	"github.com/portwatch/portwatch/internal/models"
)

// Publisher wraps a Watermill NATS publisher with circuit breaker
// protection. It satisfies the tracker and signal publisher interfaces.
type Publisher struct {
	publisher      message.Publisher
	circuitBreaker *gobreaker.CircuitBreaker[interface{}]
	mu             sync.RWMutex
	closed         bool
	logger         watermill.LoggerAdapter
}

// NewPublisher creates a resilient Watermill NATS publisher connected to
// the given server URL. JetStream message ID tracking deduplicates
// republished events.
func NewPublisher(url string, cfg Config, logger watermill.LoggerAdapter) (*Publisher, error) {
	if logger == nil {
		logger = watermill.NewStdLogger(false, false)
	}

	natsOpts := []natsgo.Option{
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(cfg.MaxReconnects),
		natsgo.ReconnectWait(cfg.ReconnectWait),
		natsgo.DisconnectErrHandler(func(nc *natsgo.Conn, err error) {
			if err != nil {
				logger.Error("NATS disconnected", err, nil)
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info("NATS reconnected", watermill.LogFields{
				"url": nc.ConnectedUrl(),
			})
		}),
	}

	wmConfig := wmNats.PublisherConfig{
		URL:         url,
		NatsOptions: natsOpts,
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			Disabled:      false,
			AutoProvision: false, // stream is created by EnsureStream
			TrackMsgId:    true,
			PublishOptions: []natsgo.PubOpt{
				natsgo.RetryAttempts(3),
				natsgo.RetryWait(100 * time.Millisecond),
			},
		},
	}

	pub, err := wmNats.NewPublisher(wmConfig, logger)
	if err != nil {
		return nil, fmt.Errorf("create watermill publisher: %w", err)
	}

	cb := gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
		Name:    "events-publish",
		Timeout: 15 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	return &Publisher{
		publisher:      pub,
		circuitBreaker: cb,
		logger:         logger,
	}, nil
}

// Publish sends a message to the given topic. The message UUID is used
// as Nats-Msg-Id for deduplication when not already set.
func (p *Publisher) Publish(ctx context.Context, topic string, msg *message.Message) error {
	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return fmt.Errorf("publisher is closed")
	}
	p.mu.RUnlock()

	if msg.Metadata.Get(natsgo.MsgIdHdr) == "" {
		msg.Metadata.Set(natsgo.MsgIdHdr, msg.UUID)
	}

	_, err := p.circuitBreaker.Execute(func() (interface{}, error) {
		return nil, p.publisher.Publish(topic, msg)
	})
	if err != nil {
		metrics.RecordEventPublishError(topic)
		return err
	}

	metrics.RecordEventPublished(topic)
	return nil
}

// PublishCallOpened publishes a port-call open event.
func (p *Publisher) PublishCallOpened(ctx context.Context, call *models.PortCall) error {
	return p.publishCall(ctx, TopicCallOpened, call)
}

// PublishCallClosed publishes a port-call close event.
func (p *Publisher) PublishCallClosed(ctx context.Context, call *models.PortCall) error {
	return p.publishCall(ctx, TopicCallClosed, call)
}

func (p *Publisher) publishCall(ctx context.Context, topic string, call *models.PortCall) error {
	ev := NewPortCallEvent(call)
	data, err := Marshal(ev)
	if err != nil {
		return err
	}

	msg := message.NewMessage(ev.EventID, data)
	msg.Metadata.Set("port_id", ev.PortID)
	msg.Metadata.Set("vessel_id", ev.VesselID.String())
	return p.Publish(ctx, topic, msg)
}

// PublishSignal publishes a raised signal event.
func (p *Publisher) PublishSignal(ctx context.Context, s *models.Signal) error {
	ev := NewSignalEvent(s)
	data, err := Marshal(ev)
	if err != nil {
		return err
	}

	msg := message.NewMessage(ev.EventID, data)
	msg.Metadata.Set("entity_id", ev.EntityID)
	msg.Metadata.Set("severity", ev.Severity)
	return p.Publish(ctx, TopicSignalRaised, msg)
}

// Close gracefully shuts down the publisher.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true

	return p.publisher.Close()
}
