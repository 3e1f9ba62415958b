// Fudi - Restaurant Data Synchronization for Poster POS
// Copyright 2026 The Fudi Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fudi-pos/fudi

// Package services adapts Fudi components to suture.Service.
//
//   - HTTPServerService: ListenAndServe/Shutdown to Serve
//   - WebSocketHubService: websocket.Hub.RunWithContext
//   - SchedulerService: sync.Scheduler Start/Stop to Serve
//
// store.GCService and events.WebSocketBridge implement suture.Service
// themselves and are added to the tree directly.
package services
