// Fudi - Restaurant Data Synchronization for Poster POS
// Copyright 2026 The Fudi Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fudi-pos/fudi

package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/goccy/go-json"

	"github.com/fudi-pos/fudi/internal/data"
	"github.com/fudi-pos/fudi/internal/models"
	syncpkg "github.com/fudi-pos/fudi/internal/sync"
	"github.com/fudi-pos/fudi/internal/validation"
)

const (
	defaultRunsLimit   = 20
	defaultErrorsLimit = 50
	maxRequestBody     = 1 << 16
)

// SyncRequest selects resources for POST /poster/sync. An omitted key
// selects its resource, so an empty body syncs everything and
// {"sales": false} syncs everything but sales.
type SyncRequest struct {
	Products   *bool `json:"products,omitempty"`
	Inventory  *bool `json:"inventory,omitempty"`
	Sales      *bool `json:"sales,omitempty"`
	Restaurant *bool `json:"restaurant,omitempty"`
}

// Options converts the request to orchestrator options.
func (r SyncRequest) Options() syncpkg.Options {
	return syncpkg.Options{
		Products:   selected(r.Products),
		Inventory:  selected(r.Inventory),
		Sales:      selected(r.Sales),
		Restaurant: selected(r.Restaurant),
	}
}

func selected(v *bool) bool {
	return v == nil || *v
}

// SalesRequest holds the GET /data/sales query.
type SalesRequest struct {
	DateFrom string `json:"date_from" validate:"omitempty,ymd"`
	DateTo   string `json:"date_to" validate:"omitempty,ymd"`
	Status   string `json:"status" validate:"omitempty,oneof=completed pending"`
	Limit    int    `json:"limit" validate:"min=0,max=10000"`
}

// Filter converts a validated request into a sales filter. date_to covers
// the whole day.
func (r SalesRequest) Filter() (data.SalesFilter, error) {
	f := data.SalesFilter{Status: r.Status, Limit: r.Limit}
	if r.DateFrom != "" {
		from, _ := time.Parse(validation.DateLayout, r.DateFrom)
		f.DateFrom = &from
	}
	if r.DateTo != "" {
		to, _ := time.Parse(validation.DateLayout, r.DateTo)
		to = to.Add(24*time.Hour - time.Nanosecond)
		f.DateTo = &to
	}
	if f.DateFrom != nil && f.DateTo != nil && f.DateTo.Before(*f.DateFrom) {
		return f, errors.New("date_to must not be before date_from")
	}
	return f, nil
}

// RunsRequest holds the GET /poster/runs query.
type RunsRequest struct {
	Limit int `json:"limit" validate:"min=1,max=100"`
}

// ErrorLogRequest holds the GET /poster/errors query.
type ErrorLogRequest struct {
	Limit int `json:"limit" validate:"min=1,max=200"`
}

// RunDetail is a sync run with its per-resource records.
type RunDetail struct {
	models.SyncRun
	Controls []models.ResourceControl `json:"controls"`
}

// decodeSyncRequest reads the optional JSON body.
func decodeSyncRequest(r *http.Request) (SyncRequest, error) {
	var req SyncRequest
	if r.Body == nil {
		return req, nil
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		return req, fmt.Errorf("invalid request body: %w", err)
	}
	return req, nil
}

// intParam parses an integer query parameter. A missing value yields def;
// a malformed one is an error.
func intParam(r *http.Request, key string, def int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", key)
	}
	return n, nil
}

func boolParam(r *http.Request, key string) bool {
	v, err := strconv.ParseBool(r.URL.Query().Get(key))
	return err == nil && v
}
