// Fudi - Restaurant Data Synchronization for Poster POS
// Copyright 2026 The Fudi Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fudi-pos/fudi

package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/fudi-pos/fudi/internal/logging"
	"github.com/fudi-pos/fudi/internal/models"
	syncpkg "github.com/fudi-pos/fudi/internal/sync"
	"github.com/fudi-pos/fudi/internal/validation"
)

// Error codes produced by the API layer itself.
const (
	codeValidation   = validation.CodeValidation
	codeInvalidState = "INVALID_STATE"
	codeUnavailable  = "SERVICE_UNAVAILABLE"
)

// sanitizeLogValue escapes control characters so request input cannot
// forge log lines.
func sanitizeLogValue(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r < 0x20 || r == 0x7F {
			fmt.Fprintf(&b, "\\x%02x", r)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func respondJSON(w http.ResponseWriter, status int, response *models.APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "private, no-store")

	body, err := json.Marshal(response)
	if err != nil {
		logging.Error().Err(err).Msg("failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		logging.Debug().Err(err).Msg("failed to write JSON response")
	}
}

// respondData sends a success envelope. count is reported for list
// responses and ignored when negative.
func respondData(w http.ResponseWriter, status int, data interface{}, count int, start time.Time) {
	meta := models.Metadata{Timestamp: time.Now().UTC()}
	if !start.IsZero() {
		meta.QueryTimeMS = time.Since(start).Milliseconds()
	}
	if count >= 0 {
		meta.Count = count
	}
	respondJSON(w, status, &models.APIResponse{Status: "success", Data: data, Metadata: meta})
}

func respondError(w http.ResponseWriter, status int, apiErr *models.APIError) {
	respondJSON(w, status, &models.APIResponse{
		Status:   "error",
		Metadata: models.Metadata{Timestamp: time.Now().UTC()},
		Error:    apiErr,
	})
}

// respondFailure maps err onto the status and error code tables. data, if
// set, is carried in the error details under "result".
func (h *Handler) respondFailure(w http.ResponseWriter, r *http.Request, err error, data interface{}) {
	status := statusForError(err)
	code := models.ErrorCode(err)
	switch {
	case errors.Is(err, syncpkg.ErrInvalidState):
		code = codeInvalidState
	case errors.Is(err, syncpkg.ErrNoResources):
		code = codeValidation
	}

	apiErr := &models.APIError{Code: code, Message: models.FriendlyMessage(err)}
	if models.NeedsReconnect(err) {
		apiErr.Details = map[string]interface{}{"needs_reconnect": true}
	}
	if data != nil {
		if apiErr.Details == nil {
			apiErr.Details = map[string]interface{}{}
		}
		apiErr.Details["result"] = data
	}

	evt := logging.Ctx(r.Context()).Warn()
	if status >= http.StatusInternalServerError {
		evt = logging.Ctx(r.Context()).Error()
	}
	evt.Str("code", code).Int("status", status).Str("error", sanitizeLogValue(err.Error())).Msg("request failed")

	respondError(w, status, apiErr)
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, syncpkg.ErrInvalidState), errors.Is(err, syncpkg.ErrNoResources):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrNotConnected), errors.Is(err, models.ErrNotSynced):
		return http.StatusNotFound
	case models.NeedsReconnect(err):
		return http.StatusUnauthorized
	case errors.Is(err, models.ErrAlreadyInProgress):
		return http.StatusConflict
	case errors.Is(err, models.ErrUnreachable),
		errors.Is(err, models.ErrAPIRejected),
		errors.Is(err, models.ErrAPIUnavailable),
		errors.Is(err, models.ErrUpstreamDataMissing):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func respondValidation(w http.ResponseWriter, verr *validation.RequestValidationError) {
	apiErr := verr.ToAPIError()
	respondError(w, http.StatusBadRequest, &models.APIError{
		Code:    apiErr.Code,
		Message: apiErr.Message,
		Details: apiErr.Details,
	})
}

func respondBadRequest(w http.ResponseWriter, message string) {
	respondError(w, http.StatusBadRequest, &models.APIError{Code: codeValidation, Message: message})
}
