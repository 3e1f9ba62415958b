// Fudi - Restaurant Data Synchronization for Poster POS
// Copyright 2026 The Fudi Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fudi-pos/fudi

// Package metrics holds the Prometheus collectors for Fudi. Collectors are
// registered on the default registry at init and exposed at /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Sync pipeline
	SyncRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fudi_sync_runs_total",
			Help: "Sync runs by trigger and final status",
		},
		[]string{"trigger", "status"},
	)

	SyncRunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fudi_sync_run_duration_seconds",
			Help:    "Wall time of complete sync runs",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
	)

	SyncResourceTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fudi_sync_resource_total",
			Help: "Resource syncs by resource and status",
		},
		[]string{"resource", "status"},
	)

	SyncRecordsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fudi_sync_records_processed_total",
			Help: "Normalized records upserted per resource",
		},
		[]string{"resource"},
	)

	SyncInProgressRejections = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fudi_sync_already_in_progress_total",
			Help: "Sync requests rejected because a run was already processing",
		},
	)

	LowStockAlertsWritten = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fudi_low_stock_alerts_written_total",
			Help: "Low-stock alert upserts",
		},
	)

	SyncLastSuccess = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fudi_sync_last_success_timestamp_seconds",
			Help: "Unix time of the most recent successful run",
		},
	)

	// Poster API
	PosterRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fudi_poster_requests_total",
			Help: "Poster API requests by method and outcome",
		},
		[]string{"method", "outcome"},
	)

	PosterRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fudi_poster_request_duration_seconds",
			Help:    "Latency of Poster API requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	PosterRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fudi_poster_retries_total",
			Help: "Retry attempts made after a failed Poster request",
		},
		[]string{"method"},
	)

	TokenRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fudi_token_refreshes_total",
			Help: "OAuth refresh grants by result",
		},
		[]string{"result"},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "fudi_circuit_breaker_state",
			Help: "Breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fudi_circuit_breaker_transitions_total",
			Help: "Breaker state changes",
		},
		[]string{"name", "from", "to"},
	)

	// HTTP API
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fudi_api_requests_total",
			Help: "HTTP requests by method, route and status",
		},
		[]string{"method", "route", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fudi_api_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fudi_api_active_requests",
			Help: "In-flight HTTP requests",
		},
	)

	// Realtime
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fudi_websocket_connections",
			Help: "Connected websocket clients",
		},
	)

	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fudi_events_published_total",
			Help: "Events published to the bus by topic and result",
		},
		[]string{"topic", "result"},
	)
)

// RecordSyncRun records a finished orchestrator run.
func RecordSyncRun(trigger, status string, duration time.Duration) {
	SyncRunsTotal.WithLabelValues(trigger, status).Inc()
	SyncRunDuration.Observe(duration.Seconds())
	if status == "completed" {
		SyncLastSuccess.Set(float64(time.Now().Unix()))
	}
}

// RecordResourceSync records one syncer's outcome.
func RecordResourceSync(resource string, count int, err error) {
	if err != nil {
		SyncResourceTotal.WithLabelValues(resource, "error").Inc()
		return
	}
	SyncResourceTotal.WithLabelValues(resource, "completed").Inc()
	SyncRecordsProcessed.WithLabelValues(resource).Add(float64(count))
}

// RecordPosterRequest records one Poster call. outcome is "ok" or an error class.
func RecordPosterRequest(method, outcome string, duration time.Duration) {
	PosterRequestsTotal.WithLabelValues(method, outcome).Inc()
	PosterRequestDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// RecordTokenRefresh records a refresh grant result.
func RecordTokenRefresh(success bool) {
	result := "success"
	if !success {
		result = "failure"
	}
	TokenRefreshes.WithLabelValues(result).Inc()
}

// RecordAPIRequest records one HTTP request.
func RecordAPIRequest(method, route string, status int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordEventPublished records a publish attempt.
func RecordEventPublished(topic string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	EventsPublished.WithLabelValues(topic, result).Inc()
}
