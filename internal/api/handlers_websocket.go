// Fudi - Restaurant Data Synchronization for Poster POS
// Copyright 2026 The Fudi Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fudi-pos/fudi

package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/fudi-pos/fudi/internal/logging"
	"github.com/fudi-pos/fudi/internal/models"
	ws "github.com/fudi-pos/fudi/internal/websocket"
)

// WebSocket upgrades the connection and registers a client scoped to the
// authenticated tenant. The client receives that tenant's sync progress.
//
// @Summary Sync progress websocket
// @Tags Poster
// @Security BearerAuth
// @Param token query string false "JWT for browsers that cannot set headers"
// @Success 101 "Switching protocols"
// @Router /ws [get]
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenant(w, r)
	if !ok {
		return
	}
	if h.wsHub == nil {
		respondError(w, http.StatusServiceUnavailable, &models.APIError{Code: codeUnavailable, Message: "websocket service unavailable"})
		return
	}

	upgrader := h.getUpgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := ws.NewClient(h.wsHub, conn, tenantID)
	h.wsHub.Register <- client
	client.Start()
}

func (h *Handler) getUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		CheckOrigin:      h.checkWebSocketOrigin,
		HandshakeTimeout: 10 * time.Second,
	}
}

// checkWebSocketOrigin accepts requests without an Origin header (non-browser
// clients still need a valid token) and browser requests from a configured
// CORS origin.
func (h *Handler) checkWebSocketOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range h.corsOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	logging.Warn().Str("origin", sanitizeLogValue(origin)).Msg("websocket connection rejected from unauthorized origin")
	return false
}
