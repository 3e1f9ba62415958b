// Fudi - Restaurant Data Synchronization for Poster POS
// Copyright 2026 The Fudi Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fudi-pos/fudi

// Package events carries terminal sync run events over an in-process
// Watermill GoChannel.
//
// The orchestrator publishes each finished run to TopicSyncCompleted or
// TopicSyncFailed with the run as JSON payload and tenant_id / run_id
// metadata. WebSocketBridge subscribes to both topics and relays them to
// the tenant's websocket clients. The bridge runs as a supervised service.
package events
