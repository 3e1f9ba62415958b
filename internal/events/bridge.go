// Fudi - Restaurant Data Synchronization for Poster POS
// Copyright 2026 The Fudi Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fudi-pos/fudi

package events

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"
	"github.com/thejerf/suture/v4"

	"github.com/fudi-pos/fudi/internal/logging"
	"github.com/fudi-pos/fudi/internal/models"
)

// Broadcaster is the websocket side of the bridge.
type Broadcaster interface {
	BroadcastToTenant(tenantID, messageType string, data interface{})
}

// WebSocketBridge relays sync events to websocket clients.
type WebSocketBridge struct {
	sub message.Subscriber
	hub Broadcaster
}

// NewWebSocketBridge creates a bridge.
func NewWebSocketBridge(sub message.Subscriber, hub Broadcaster) *WebSocketBridge {
	return &WebSocketBridge{sub: sub, hub: hub}
}

// Serve subscribes to both sync topics and relays until ctx is done or the
// bus closes. It implements suture.Service.
func (b *WebSocketBridge) Serve(ctx context.Context) error {
	completed, err := b.sub.Subscribe(ctx, TopicSyncCompleted)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", TopicSyncCompleted, err)
	}
	failed, err := b.sub.Subscribe(ctx, TopicSyncFailed)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", TopicSyncFailed, err)
	}
	logging.Info().Msg("event to websocket bridge started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-completed:
			if !ok {
				return b.closed(ctx)
			}
			b.relay(msg, "sync_completed")
		case msg, ok := <-failed:
			if !ok {
				return b.closed(ctx)
			}
			b.relay(msg, "sync_failed")
		}
	}
}

// closed is returned when a subscription channel closes. Without a
// canceled context that means the bus itself shut down.
func (b *WebSocketBridge) closed(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return suture.ErrDoNotRestart
}

func (b *WebSocketBridge) String() string { return "events-websocket-bridge" }

// relay acks every message. A payload that does not decode is dropped;
// redelivering it would fail the same way.
func (b *WebSocketBridge) relay(msg *message.Message, messageType string) {
	defer msg.Ack()

	var run models.SyncRun
	if err := json.Unmarshal(msg.Payload, &run); err != nil {
		logging.Warn().Err(err).Str("message_uuid", msg.UUID).Msg("dropping undecodable sync event")
		return
	}
	tenantID := msg.Metadata.Get(MetadataTenantID)
	if tenantID == "" {
		tenantID = run.TenantID
	}
	b.hub.BroadcastToTenant(tenantID, messageType, &run)
}
