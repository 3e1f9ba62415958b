// Fudi - Restaurant Data Synchronization for Poster POS
// Copyright 2026 The Fudi Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fudi-pos/fudi

package models

import (
	"time"
)

// SourcePoster tags every record synchronized from Poster.
const SourcePoster = "poster"

// Resource names one synchronized data set.
type Resource string

const (
	ResourceMenu       Resource = "menu"
	ResourceInventory  Resource = "inventory"
	ResourceSales      Resource = "sales"
	ResourceRestaurant Resource = "restaurant"
)

// AllResources lists resources in the order results are reported.
var AllResources = []Resource{ResourceMenu, ResourceInventory, ResourceSales, ResourceRestaurant}

// Sync run states.
const (
	SyncStatusProcessing = "processing"
	SyncStatusCompleted  = "completed"
	SyncStatusError      = "error"
)

// Sync triggers.
const (
	TriggerManual    = "manual"
	TriggerCallback  = "callback"
	TriggerScheduled = "scheduled"
)

// Credential is a tenant's Poster OAuth connection plus the summary of the
// last sync. One record per tenant; revoking flips Connected instead of
// deleting it.
type Credential struct {
	TenantID     string    `json:"tenant_id"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	AccountID    string    `json:"account_id,omitempty"`
	Connected    bool      `json:"connected"`

	LastSync       *time.Time  `json:"last_sync,omitempty"`
	SyncInProgress bool        `json:"sync_in_progress"`
	SyncStartedAt  *time.Time  `json:"sync_started_at,omitempty"`
	SyncError      string      `json:"sync_error,omitempty"`
	SyncErrorCode  string      `json:"sync_error_code,omitempty"`
	SyncErrorAt    *time.Time  `json:"sync_error_at,omitempty"`
	SyncCounts     *SyncCounts `json:"sync_counts,omitempty"`
	LastRunID      string      `json:"last_run_id,omitempty"`
	// NeedsReconnect is set when the last run failed in a way only a new
	// OAuth authorization can fix.
	NeedsReconnect bool `json:"needs_reconnect,omitempty"`

	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	DisconnectedAt *time.Time `json:"disconnected_at,omitempty"`
}

// Expired reports whether the access token must be refreshed at now.
// A token exactly at its expiry counts as expired.
func (c *Credential) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// SyncCounts is the per-resource record count persisted on the credential
// and on each run.
type SyncCounts struct {
	Menu         int `json:"menu"`
	Inventory    int `json:"inventory"`
	Transactions int `json:"transactions"`
	Restaurant   int `json:"restaurant"`
}

// Set stores n under the given resource.
func (c *SyncCounts) Set(r Resource, n int) {
	switch r {
	case ResourceMenu:
		c.Menu = n
	case ResourceInventory:
		c.Inventory = n
	case ResourceSales:
		c.Transactions = n
	case ResourceRestaurant:
		c.Restaurant = n
	}
}

// Counts is the outward-facing shape of SyncCounts.
type Counts struct {
	Products   int `json:"products"`
	Inventory  int `json:"inventory"`
	Sales      int `json:"sales"`
	Restaurant int `json:"restaurant"`
}

// Outbound converts stored counts to the API shape.
func (c SyncCounts) Outbound() Counts {
	return Counts{Products: c.Menu, Inventory: c.Inventory, Sales: c.Transactions, Restaurant: c.Restaurant}
}

// SyncRun records one execution of the pipeline for a tenant.
type SyncRun struct {
	ID             string              `json:"id"`
	TenantID       string              `json:"tenant_id"`
	Trigger        string              `json:"trigger"`
	Status         string              `json:"status"`
	Resources      []Resource          `json:"resources"`
	StartedAt      time.Time           `json:"started_at"`
	CompletedAt    *time.Time          `json:"completed_at,omitempty"`
	Counts         SyncCounts          `json:"counts"`
	ResourceErrors map[Resource]string `json:"resource_errors,omitempty"`
	Error          string              `json:"error,omitempty"`
	ErrorCode      string              `json:"error_code,omitempty"`
}

// Duration returns the elapsed time of a finished run, or 0.
func (r *SyncRun) Duration() time.Duration {
	if r.CompletedAt == nil {
		return 0
	}
	return r.CompletedAt.Sub(r.StartedAt)
}

// ResourceControl tracks one resource within a run.
type ResourceControl struct {
	RunID       string     `json:"run_id"`
	TenantID    string     `json:"tenant_id"`
	Resource    Resource   `json:"resource"`
	Status      string     `json:"status"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	ItemCount   int        `json:"item_count"`
	Error       string     `json:"error,omitempty"`
}

// SyncResult is returned by SyncAll and SyncSelective.
type SyncResult struct {
	Success bool   `json:"success"`
	RunID   string `json:"run_id,omitempty"`
	Counts  Counts `json:"counts"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
}

// ConnectionStatus answers checkConnection.
type ConnectionStatus struct {
	Connected      bool        `json:"connected"`
	AccountID      string      `json:"account_id,omitempty"`
	LastSync       *time.Time  `json:"last_sync"`
	SyncInProgress bool        `json:"sync_in_progress"`
	SyncCounts     *SyncCounts `json:"sync_counts,omitempty"`
	SyncError      string      `json:"sync_error,omitempty"`
	NeedsReconnect bool        `json:"needs_reconnect"`
	NeedsSync      bool        `json:"needs_sync"`
}

// ActionResult answers handleCallback and disconnect.
type ActionResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// ErrorLog is a best-effort audit entry written when a tenant-facing
// operation fails.
type ErrorLog struct {
	TenantID        string    `json:"tenant_id"`
	Source          string    `json:"source"`
	Operation       string    `json:"operation"`
	Code            string    `json:"code"`
	Message         string    `json:"message"`
	FriendlyMessage string    `json:"friendly_message"`
	Timestamp       time.Time `json:"timestamp"`
}
