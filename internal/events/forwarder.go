// Portwatch - Vessel Tracking and Port Call Analytics
// Copyright 2026 Portwatch Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/portwatch/portwatch

package events

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	natsgo "github.com/nats-io/nats.go"
)

// Broadcaster pushes events to connected websocket clients. The
// websocket hub satisfies it.
type Broadcaster interface {
	Broadcast(messageType string, data interface{})
}

// Websocket message types emitted by the forwarder.
const (
	WSTypeCallOpened   = "portcall_opened"
	WSTypeCallClosed   = "portcall_closed"
	WSTypeSignalRaised = "signal_raised"
)

// Forwarder consumes bus events and pushes them to the websocket hub.
type Forwarder struct {
	subscriber message.Subscriber
	hub        Broadcaster
	logger     watermill.LoggerAdapter
}

// NewForwarder creates a durable JetStream subscriber bound to the
// portwatch stream and wires it to the hub.
func NewForwarder(url string, cfg Config, hub Broadcaster, logger watermill.LoggerAdapter) (*Forwarder, error) {
	if logger == nil {
		logger = watermill.NewStdLogger(false, false)
	}

	natsOpts := []natsgo.Option{
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(cfg.MaxReconnects),
		natsgo.ReconnectWait(cfg.ReconnectWait),
	}

	subOpts := []natsgo.SubOpt{
		natsgo.MaxDeliver(3),
		natsgo.AckWait(30 * time.Second),
		natsgo.DeliverNew(),
		natsgo.BindStream(StreamName),
	}

	wmConfig := wmNats.SubscriberConfig{
		URL:            url,
		AckWaitTimeout: 30 * time.Second,
		CloseTimeout:   10 * time.Second,
		NatsOptions:    natsOpts,
		Unmarshaler:    &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			Disabled:         false,
			AutoProvision:    false,
			SubscribeOptions: subOpts,
			DurablePrefix:    "ws-forwarder",
		},
	}

	sub, err := wmNats.NewSubscriber(wmConfig, logger)
	if err != nil {
		return nil, fmt.Errorf("create watermill subscriber: %w", err)
	}

	return &Forwarder{
		subscriber: sub,
		hub:        hub,
		logger:     logger,
	}, nil
}

// Run consumes all topics until context cancellation. Events that fail
// to decode are acked and dropped; redelivery cannot fix a bad payload.
func (f *Forwarder) Run(ctx context.Context) error {
	topics := []string{TopicCallOpened, TopicCallClosed, TopicSignalRaised}
	channels := make([]<-chan *message.Message, 0, len(topics))
	for _, topic := range topics {
		msgs, err := f.subscriber.Subscribe(ctx, topic)
		if err != nil {
			return fmt.Errorf("subscribe to %s: %w", topic, err)
		}
		channels = append(channels, msgs)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-channels[0]:
			if !ok {
				return nil
			}
			f.handle(TopicCallOpened, msg)
		case msg, ok := <-channels[1]:
			if !ok {
				return nil
			}
			f.handle(TopicCallClosed, msg)
		case msg, ok := <-channels[2]:
			if !ok {
				return nil
			}
			f.handle(TopicSignalRaised, msg)
		}
	}
}

func (f *Forwarder) handle(topic string, msg *message.Message) {
	defer msg.Ack()

	wsType, data, err := DecodeForBroadcast(topic, msg.Payload)
	if err != nil {
		f.logger.Error("dropping undecodable event", err, watermill.LogFields{
			"message_uuid": msg.UUID,
			"topic":        topic,
		})
		return
	}

	f.hub.Broadcast(wsType, data)
}

// DecodeForBroadcast maps a bus payload to its websocket message type
// and decoded body.
func DecodeForBroadcast(topic string, payload []byte) (string, interface{}, error) {
	switch topic {
	case TopicCallOpened:
		ev, err := UnmarshalPortCall(payload)
		return WSTypeCallOpened, ev, err
	case TopicCallClosed:
		ev, err := UnmarshalPortCall(payload)
		return WSTypeCallClosed, ev, err
	case TopicSignalRaised:
		ev, err := UnmarshalSignal(payload)
		return WSTypeSignalRaised, ev, err
	default:
		return "", nil, fmt.Errorf("unknown topic %q", topic)
	}
}

// Close shuts down the subscriber.
func (f *Forwarder) Close() error {
	return f.subscriber.Close()
}
