// Fudi - Restaurant Data Synchronization for Poster POS
// Copyright 2026 The Fudi Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fudi-pos/fudi

package models

import (
	"time"

	"github.com/goccy/go-json"
)

// UncategorizedName is used when a product's category cannot be resolved.
const UncategorizedName = "Uncategorized"

// Transaction statuses after normalization.
const (
	TransactionCompleted = "completed"
	TransactionPending   = "pending"
)

// AlertStatusActive marks a low-stock alert that has not been acknowledged.
const AlertStatusActive = "active"

// MenuItem is a normalized Poster product. Optional text fields are
// omitted when empty so a partial payload never blanks stored values.
type MenuItem struct {
	ID           string          `json:"id"`
	TenantID     string          `json:"tenant_id"`
	Name         string          `json:"name"`
	Description  string          `json:"description,omitempty"`
	Price        float64         `json:"price"`
	CategoryID   string          `json:"category_id,omitempty"`
	CategoryName string          `json:"category_name"`
	ImageURL     string          `json:"image_url,omitempty"`
	IsActive     bool            `json:"is_active"`
	SourceSystem string          `json:"source_system"`
	SourceData   json.RawMessage `json:"source_data,omitempty"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// InventoryItem is a normalized Poster ingredient stock level.
type InventoryItem struct {
	ID           string          `json:"id"`
	TenantID     string          `json:"tenant_id"`
	Name         string          `json:"name"`
	Category     string          `json:"category,omitempty"`
	Unit         string          `json:"unit,omitempty"`
	Quantity     float64         `json:"quantity"`
	MinimumLevel float64         `json:"minimum_level"`
	Cost         float64         `json:"cost"`
	SourceSystem string          `json:"source_system"`
	SourceData   json.RawMessage `json:"source_data,omitempty"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// LowStock reports whether the item is below a configured minimum.
func (i *InventoryItem) LowStock() bool {
	return i.MinimumLevel > 0 && i.Quantity < i.MinimumLevel
}

// Transaction is a normalized Poster sale.
type Transaction struct {
	ID            string          `json:"id"`
	TenantID      string          `json:"tenant_id"`
	Date          time.Time       `json:"date"`
	Amount        float64         `json:"amount"`
	Status        string          `json:"status"`
	PaymentMethod string          `json:"payment_method,omitempty"`
	SourceSystem  string          `json:"source_system"`
	SourceData    json.RawMessage `json:"source_data,omitempty"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// LowStockAlert is keyed by ingredient so repeated syncs update one
// document. Alerts stay active after stock recovers.
type LowStockAlert struct {
	ID             string    `json:"id"`
	TenantID       string    `json:"tenant_id"`
	IngredientID   string    `json:"ingredient_id"`
	IngredientName string    `json:"ingredient_name"`
	CurrentLevel   float64   `json:"current_level"`
	MinimumLevel   float64   `json:"minimum_level"`
	Status         string    `json:"status"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// RestaurantProfileID is the document id of a tenant's single restaurant
// profile.
const RestaurantProfileID = "profile"

// Restaurant is the tenant's venue profile, combined from the Poster spot
// and the account settings.
type Restaurant struct {
	ID           string          `json:"id"`
	TenantID     string          `json:"tenant_id"`
	Name         string          `json:"name"`
	Address      string          `json:"address,omitempty"`
	Phone        string          `json:"phone,omitempty"`
	Email        string          `json:"email,omitempty"`
	Timezone     string          `json:"timezone,omitempty"`
	Country      string          `json:"country,omitempty"`
	Currency     string          `json:"currency,omitempty"`
	AccountID    string          `json:"poster_account_id,omitempty"`
	SourceSystem string          `json:"source_system"`
	SourceData   json.RawMessage `json:"source_data,omitempty"`
	UpdatedAt    time.Time       `json:"updated_at"`
}
