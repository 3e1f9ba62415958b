// Fudi - Restaurant Data Synchronization for Poster POS
// Copyright 2026 The Fudi Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fudi-pos/fudi

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fudi-pos/fudi/internal/auth"
	"github.com/fudi-pos/fudi/internal/data"
	"github.com/fudi-pos/fudi/internal/logging"
	"github.com/fudi-pos/fudi/internal/models"
	"github.com/fudi-pos/fudi/internal/validation"
)

// tenant returns the authenticated tenant, writing a 401 when there is none.
func tenant(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := auth.TenantFromContext(r.Context())
	if id == "" {
		respondError(w, http.StatusUnauthorized, &models.APIError{Code: "AUTHENTICATION_ERROR", Message: "authentication required"})
		return "", false
	}
	return id, true
}

// PosterConnect returns the Poster authorization URL for the tenant.
//
// @Summary Start Poster OAuth
// @Tags Poster
// @Produce json
// @Security BearerAuth
// @Param redirect query bool false "Respond with a 302 to Poster instead of JSON"
// @Success 200 {object} models.APIResponse "Authorization URL"
// @Success 302 "Redirect to Poster"
// @Router /poster/connect [get]
func (h *Handler) PosterConnect(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenant(w, r)
	if !ok {
		return
	}

	authURL, err := h.connector.Connect(r.Context(), tenantID)
	if err != nil {
		h.respondFailure(w, r, err, nil)
		return
	}
	if boolParam(r, "redirect") {
		http.Redirect(w, r, authURL, http.StatusFound)
		return
	}
	respondData(w, http.StatusOK, map[string]string{"url": authURL}, -1, time.Time{})
}

// PosterCallback completes the OAuth flow. Poster redirects the browser
// here, so the route carries no bearer token; the state identifies the
// tenant.
//
// @Summary Complete Poster OAuth
// @Tags Poster
// @Produce json
// @Param code query string false "Authorization code"
// @Param state query string false "State issued by /poster/connect"
// @Param error query string false "Set by Poster when the owner denies access"
// @Success 200 {object} models.APIResponse{data=models.ActionResult} "Connected"
// @Failure 400 {object} models.APIResponse "Denied, or unknown state"
// @Failure 502 {object} models.APIResponse "Token exchange failed"
// @Router /poster/callback [get]
func (h *Handler) PosterCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if denied := q.Get("error"); denied != "" {
		logging.Ctx(r.Context()).Info().Str("error", sanitizeLogValue(denied)).Msg("poster authorization denied")
		respondError(w, http.StatusBadRequest, &models.APIError{
			Code:    "AUTHORIZATION_DENIED",
			Message: "Poster authorization was not granted.",
		})
		return
	}

	res, err := h.connector.HandleCallback(r.Context(), q.Get("code"), q.Get("state"))
	if err != nil {
		h.respondFailure(w, r, err, res)
		return
	}
	respondData(w, http.StatusOK, res, -1, time.Time{})
}

// PosterStatus reports the tenant's connection state.
//
// @Summary Get connection status
// @Tags Poster
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.APIResponse{data=models.ConnectionStatus} "Connection and last sync state"
// @Router /poster/status [get]
func (h *Handler) PosterStatus(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenant(w, r)
	if !ok {
		return
	}
	status, err := h.connector.CheckConnection(r.Context(), tenantID)
	if err != nil {
		h.respondFailure(w, r, err, nil)
		return
	}
	respondData(w, http.StatusOK, status, -1, time.Time{})
}

// PosterSync runs a sync for the tenant. With ?async=true the run is
// started in the background and 202 is returned with its id.
//
// @Summary Run a sync
// @Description Omitted keys in the body select their resource; an all-false body is rejected.
// @Tags Poster
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param async query bool false "Start in the background and return 202"
// @Param request body SyncRequest false "Resource selection"
// @Success 200 {object} models.APIResponse{data=models.SyncResult} "Run completed"
// @Success 202 {object} models.APIResponse "Run started"
// @Failure 400 {object} models.APIResponse "Invalid body or nothing selected"
// @Failure 401 {object} models.APIResponse "Reconnect required"
// @Failure 404 {object} models.APIResponse "Not connected"
// @Failure 409 {object} models.APIResponse "Sync already in progress"
// @Failure 502 {object} models.APIResponse "Poster failure"
// @Router /poster/sync [post]
func (h *Handler) PosterSync(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenant(w, r)
	if !ok {
		return
	}
	req, err := decodeSyncRequest(r)
	if err != nil {
		respondBadRequest(w, err.Error())
		return
	}
	opts := req.Options()
	if len(opts.Resources()) == 0 {
		respondBadRequest(w, "select at least one resource")
		return
	}

	if boolParam(r, "async") {
		runID, err := h.sync.StartAsync(r.Context(), tenantID, opts, models.TriggerManual)
		if err != nil {
			h.respondFailure(w, r, err, nil)
			return
		}
		respondData(w, http.StatusAccepted, map[string]string{
			"run_id": runID,
			"status": models.SyncStatusProcessing,
		}, -1, time.Time{})
		return
	}

	start := time.Now()
	res, err := h.sync.Run(r.Context(), tenantID, opts, models.TriggerManual)
	if err != nil {
		h.respondFailure(w, r, err, res)
		return
	}
	respondData(w, http.StatusOK, res, -1, start)
}

// PosterDisconnect revokes the tenant's Poster credential.
//
// @Summary Disconnect Poster
// @Tags Poster
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.APIResponse{data=models.ActionResult} "Disconnected"
// @Failure 404 {object} models.APIResponse "Not connected"
// @Router /poster/disconnect [post]
func (h *Handler) PosterDisconnect(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenant(w, r)
	if !ok {
		return
	}
	res, err := h.connector.Disconnect(r.Context(), tenantID)
	if err != nil {
		h.respondFailure(w, r, err, res)
		return
	}
	respondData(w, http.StatusOK, res, -1, time.Time{})
}

// PosterRuns lists recent sync runs, newest first.
//
// @Summary List sync runs
// @Tags Poster
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Maximum runs (1-100)" default(20)
// @Success 200 {object} models.APIResponse{data=[]models.SyncRun} "Runs, newest first"
// @Router /poster/runs [get]
func (h *Handler) PosterRuns(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenant(w, r)
	if !ok {
		return
	}
	limit, err := intParam(r, "limit", defaultRunsLimit)
	if err != nil {
		respondBadRequest(w, err.Error())
		return
	}
	req := RunsRequest{Limit: limit}
	if verr := validation.ValidateStruct(&req); verr != nil {
		respondValidation(w, verr)
		return
	}

	start := time.Now()
	runs, err := h.data.GetSyncRuns(r.Context(), tenantID, req.Limit)
	if err != nil {
		h.respondFailure(w, r, err, nil)
		return
	}
	respondData(w, http.StatusOK, runs, len(runs), start)
}

// PosterRun returns one sync run with its per-resource records.
//
// @Summary Get a sync run
// @Tags Poster
// @Produce json
// @Security BearerAuth
// @Param id path string true "Run ID"
// @Success 200 {object} models.APIResponse{data=RunDetail} "Run with per-resource records"
// @Failure 404 {object} models.APIResponse "Unknown run"
// @Router /poster/runs/{id} [get]
func (h *Handler) PosterRun(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenant(w, r)
	if !ok {
		return
	}
	runID := chi.URLParam(r, "id")

	start := time.Now()
	run, err := h.data.GetRun(r.Context(), tenantID, runID)
	if data.IsNotFound(err) {
		respondError(w, http.StatusNotFound, &models.APIError{Code: "NOT_FOUND", Message: "sync run not found"})
		return
	}
	if err != nil {
		h.respondFailure(w, r, err, nil)
		return
	}
	controls, err := h.data.GetControls(r.Context(), tenantID, run.ID)
	if err != nil {
		h.respondFailure(w, r, err, nil)
		return
	}
	respondData(w, http.StatusOK, RunDetail{SyncRun: *run, Controls: controls}, -1, start)
}

// PosterErrors lists the tenant's recent error log entries, newest first.
//
// @Summary List error log entries
// @Tags Poster
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Maximum entries (1-200)" default(50)
// @Success 200 {object} models.APIResponse{data=[]models.ErrorLog} "Entries, newest first"
// @Router /poster/errors [get]
func (h *Handler) PosterErrors(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenant(w, r)
	if !ok {
		return
	}
	limit, err := intParam(r, "limit", defaultErrorsLimit)
	if err != nil {
		respondBadRequest(w, err.Error())
		return
	}
	req := ErrorLogRequest{Limit: limit}
	if verr := validation.ValidateStruct(&req); verr != nil {
		respondValidation(w, verr)
		return
	}

	start := time.Now()
	logs, err := h.data.GetErrorLogs(r.Context(), tenantID, req.Limit)
	if err != nil {
		h.respondFailure(w, r, err, nil)
		return
	}
	respondData(w, http.StatusOK, logs, len(logs), start)
}
