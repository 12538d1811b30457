// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package bus carries snapshots and notifications from the core to whatever
// presentation layer is attached.
//
// It is an in-process watermill gochannel pub/sub. Publishing blocks until
// every subscriber acks, so subscribers see messages in publish order.
// Subscribers must ack before doing anything that could call back into a
// publisher.
package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/rs/zerolog/log"
)

// Topics.
const (
	TopicSnapshots     = "session.snapshots"
	TopicConversations = "conversations.list"
	TopicNotifications = "ui.notifications"
)

// Bus is a typed wrapper around a gochannel pub/sub.
type Bus struct {
	pubsub *gochannel.GoChannel

	mu     sync.Mutex
	closed bool
}

// New creates a bus. A nil logger discards watermill's own logging.
func New(logger watermill.LoggerAdapter) *Bus {
	if logger == nil {
		logger = watermill.NopLogger{}
	}
	return &Bus{
		pubsub: gochannel.NewGoChannel(gochannel.Config{
			BlockPublishUntilSubscriberAck: true,
		}, logger),
	}
}

// Publish JSON-encodes v and publishes it on topic.
func (b *Bus) Publish(topic string, v any) error {
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return fmt.Errorf("publish %s: bus closed", topic)
	}

	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set("published_at", time.Now().UTC().Format(time.RFC3339Nano))
	return b.pubsub.Publish(topic, msg)
}

// Subscribe returns the raw message channel for topic. The channel closes
// when ctx ends or the bus is closed.
func (b *Bus) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	return b.pubsub.Subscribe(ctx, topic)
}

// Close shuts the pub/sub down. Subsequent publishes fail.
func (b *Bus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()
	return b.pubsub.Close()
}

// Decode acks msg and unmarshals its payload.
func Decode[T any](msg *message.Message) (T, error) {
	var v T
	msg.Ack()
	if err := json.Unmarshal(msg.Payload, &v); err != nil {
		return v, fmt.Errorf("decode message %s: %w", msg.UUID, err)
	}
	return v, nil
}

// Listen decodes every message on topic and hands it to fn until ctx ends.
// Messages are acked before fn runs. Undecodable messages are logged and
// skipped.
func Listen[T any](ctx context.Context, b *Bus, topic string, fn func(T)) error {
	messages, err := b.Subscribe(ctx, topic)
	if err != nil {
		return err
	}
	go func() {
		for msg := range messages {
			v, err := Decode[T](msg)
			if err != nil {
				log.Warn().Err(err).Str("topic", topic).Msg("dropping undecodable message")
				continue
			}
			fn(v)
		}
	}()
	return nil
}
