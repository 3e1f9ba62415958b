// Fudi - Restaurant Data Synchronization for Poster POS
// Copyright 2026 The Fudi Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fudi-pos/fudi

package api

import (
	"net/http"
	"time"

	"github.com/fudi-pos/fudi/internal/validation"
)

// Menu returns the tenant's synchronized menu items.
//
// @Summary Get menu items
// @Description Returns the synchronized menu ordered by category, then name.
// @Tags Data
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.APIResponse{data=[]models.MenuItem} "Menu items"
// @Failure 401 {object} models.APIResponse "Authentication required"
// @Failure 404 {object} models.APIResponse "Never synchronized"
// @Router /data/menu [get]
func (h *Handler) Menu(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenant(w, r)
	if !ok {
		return
	}
	start := time.Now()
	items, err := h.data.GetMenu(r.Context(), tenantID)
	if err != nil {
		h.respondFailure(w, r, err, nil)
		return
	}
	respondData(w, http.StatusOK, items, len(items), start)
}

// Inventory returns the tenant's stock levels.
//
// @Summary Get inventory
// @Tags Data
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.APIResponse{data=[]models.InventoryItem} "Stock levels"
// @Failure 404 {object} models.APIResponse "Never synchronized"
// @Router /data/inventory [get]
func (h *Handler) Inventory(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenant(w, r)
	if !ok {
		return
	}
	start := time.Now()
	items, err := h.data.GetInventory(r.Context(), tenantID)
	if err != nil {
		h.respondFailure(w, r, err, nil)
		return
	}
	respondData(w, http.StatusOK, items, len(items), start)
}

// Sales returns the tenant's transactions, newest first, filtered by
// date range and status.
//
// @Summary Get sales
// @Tags Data
// @Produce json
// @Security BearerAuth
// @Param date_from query string false "Start date (YYYY-MM-DD)"
// @Param date_to query string false "End date, inclusive (YYYY-MM-DD)"
// @Param status query string false "Transaction status" Enums(completed, pending)
// @Param limit query int false "Maximum rows (0 means all)"
// @Success 200 {object} models.APIResponse{data=[]models.Transaction} "Transactions, newest first"
// @Failure 400 {object} models.APIResponse "Invalid filter"
// @Failure 404 {object} models.APIResponse "Never synchronized"
// @Router /data/sales [get]
func (h *Handler) Sales(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenant(w, r)
	if !ok {
		return
	}

	limit, err := intParam(r, "limit", 0)
	if err != nil {
		respondBadRequest(w, err.Error())
		return
	}
	q := r.URL.Query()
	req := SalesRequest{
		DateFrom: q.Get("date_from"),
		DateTo:   q.Get("date_to"),
		Status:   q.Get("status"),
		Limit:    limit,
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		respondValidation(w, verr)
		return
	}
	filter, err := req.Filter()
	if err != nil {
		respondBadRequest(w, err.Error())
		return
	}

	start := time.Now()
	sales, err := h.data.GetSales(r.Context(), tenantID, filter)
	if err != nil {
		h.respondFailure(w, r, err, nil)
		return
	}
	respondData(w, http.StatusOK, sales, len(sales), start)
}

// Alerts returns the tenant's low-stock alerts.
//
// @Summary Get low-stock alerts
// @Tags Data
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.APIResponse{data=[]models.LowStockAlert} "Alerts, most critical first"
// @Router /data/alerts [get]
func (h *Handler) Alerts(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenant(w, r)
	if !ok {
		return
	}
	start := time.Now()
	alerts, err := h.data.GetLowStockAlerts(r.Context(), tenantID)
	if err != nil {
		h.respondFailure(w, r, err, nil)
		return
	}
	respondData(w, http.StatusOK, alerts, len(alerts), start)
}

// Restaurant returns the tenant's restaurant profile.
//
// @Summary Get restaurant profile
// @Tags Data
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.APIResponse{data=models.Restaurant} "Restaurant profile"
// @Failure 404 {object} models.APIResponse "Never synchronized"
// @Router /data/restaurant [get]
func (h *Handler) Restaurant(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenant(w, r)
	if !ok {
		return
	}
	start := time.Now()
	profile, err := h.data.GetRestaurant(r.Context(), tenantID)
	if err != nil {
		h.respondFailure(w, r, err, nil)
		return
	}
	respondData(w, http.StatusOK, profile, -1, start)
}
