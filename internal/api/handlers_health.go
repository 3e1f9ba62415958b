// Fudi - Restaurant Data Synchronization for Poster POS
// Copyright 2026 The Fudi Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fudi-pos/fudi

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/fudi-pos/fudi/internal/models"
)

const readyCheckTimeout = 2 * time.Second

// HealthLive reports that the process is up, regardless of dependencies.
//
// @Summary Liveness check
// @Tags Health
// @Produce json
// @Success 200 {object} models.APIResponse "Process is up"
// @Router /health/live [get]
func (h *Handler) HealthLive(w http.ResponseWriter, _ *http.Request) {
	respondData(w, http.StatusOK, map[string]interface{}{
		"alive":  true,
		"uptime": time.Since(h.startTime).Seconds(),
	}, -1, time.Time{})
}

// HealthReady returns 200 only when the document store answers. Poster
// availability is not part of readiness; a Poster outage is reported
// per tenant through sync results.
//
// @Summary Readiness check
// @Tags Health
// @Produce json
// @Success 200 {object} models.APIResponse "Document store reachable"
// @Failure 503 {object} models.APIResponse "Document store unavailable"
// @Router /health/ready [get]
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyCheckTimeout)
	defer cancel()

	storeOK := h.store != nil && h.store.Ping(ctx) == nil
	wsClients := 0
	if h.wsHub != nil {
		wsClients = h.wsHub.GetClientCount()
	}
	body := map[string]interface{}{
		"store":             storeOK,
		"websocket_clients": wsClients,
		"uptime":            time.Since(h.startTime).Seconds(),
	}

	if !storeOK {
		respondJSON(w, http.StatusServiceUnavailable, &models.APIResponse{
			Status:   "error",
			Data:     body,
			Metadata: models.Metadata{Timestamp: time.Now().UTC()},
			Error:    &models.APIError{Code: codeUnavailable, Message: "document store unavailable"},
		})
		return
	}
	body["status"] = "ready"
	respondData(w, http.StatusOK, body, -1, time.Time{})
}
