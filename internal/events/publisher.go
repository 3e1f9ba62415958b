// Fudi - Restaurant Data Synchronization for Poster POS
// Copyright 2026 The Fudi Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fudi-pos/fudi

package events

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"

	"github.com/fudi-pos/fudi/internal/logging"
	"github.com/fudi-pos/fudi/internal/metrics"
	"github.com/fudi-pos/fudi/internal/models"
)

// Topics.
const (
	TopicSyncCompleted = "sync.completed"
	TopicSyncFailed    = "sync.failed"
)

// Metadata keys set on every message.
const (
	MetadataTenantID = "tenant_id"
	MetadataRunID    = "run_id"
)

// ErrClosed is returned when publishing after Close.
var ErrClosed = errors.New("event bus closed")

// TopicFor returns the topic a finished run is published on.
func TopicFor(run *models.SyncRun) string {
	if run.Status == models.SyncStatusCompleted {
		return TopicSyncCompleted
	}
	return TopicSyncFailed
}

// Bus is the in-process pub/sub. It satisfies the orchestrator's
// EventPublisher.
type Bus struct {
	pubsub *gochannel.GoChannel

	mu     sync.RWMutex
	closed bool
}

// NewBus creates a GoChannel bus. bufferSize is the per-subscriber output
// buffer.
func NewBus(bufferSize int64) *Bus {
	if bufferSize < 0 {
		bufferSize = 0
	}
	ps := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: bufferSize,
	}, logging.NewWatermillAdapter())
	return &Bus{pubsub: ps}
}

// Publisher exposes the raw Watermill publisher.
func (b *Bus) Publisher() message.Publisher { return b.pubsub }

// Subscriber exposes the raw Watermill subscriber.
func (b *Bus) Subscriber() message.Subscriber { return b.pubsub }

// PublishSyncRun publishes a finished run.
func (b *Bus) PublishSyncRun(ctx context.Context, run *models.SyncRun) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrClosed
	}

	topic := TopicFor(run)
	payload, err := json.Marshal(run)
	if err != nil {
		metrics.RecordEventPublished(topic, err)
		return fmt.Errorf("marshal sync run %s: %w", run.ID, err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set(MetadataTenantID, run.TenantID)
	msg.Metadata.Set(MetadataRunID, run.ID)
	msg.SetContext(ctx)

	err = b.pubsub.Publish(topic, msg)
	metrics.RecordEventPublished(topic, err)
	if err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	logging.Ctx(ctx).Debug().Str("topic", topic).Str("run_id", run.ID).Msg("sync event published")
	return nil
}

// Close shuts the bus down. Subscriber channels are closed.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	return b.pubsub.Close()
}
