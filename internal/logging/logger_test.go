// Fudi - Restaurant Data Synchronization for Poster POS
// Copyright 2026 The Fudi Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fudi-pos/fudi

package logging

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"WARNING", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"disabled", zerolog.Disabled},
		{"", zerolog.InfoLevel},
		{"nonsense", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestCtxAddsIdentifiers(t *testing.T) {
	var buf bytes.Buffer
	prev := Logger()
	SetLogger(NewTestLogger(&buf))
	t.Cleanup(func() { SetLogger(prev) })

	ctx := ContextWithCorrelationID(context.Background(), "abc12345")
	ctx = ContextWithRequestID(ctx, "req-1")
	ctx = ContextWithTenantID(ctx, "tenant-9")
	Ctx(ctx).Info().Msg("hello")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log output is not JSON: %v (%s)", err, buf.String())
	}
	for key, want := range map[string]string{
		"correlation_id": "abc12345",
		"request_id":     "req-1",
		"tenant_id":      "tenant-9",
		"message":        "hello",
	} {
		if entry[key] != want {
			t.Errorf("%s = %v, want %s", key, entry[key], want)
		}
	}
}

func TestContextGettersEmpty(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	if CorrelationIDFromContext(ctx) != "" || RequestIDFromContext(ctx) != "" || TenantIDFromContext(ctx) != "" {
		t.Error("expected empty identifiers on bare context")
	}
	if id := CorrelationIDFromContext(ContextWithNewCorrelationID(ctx)); len(id) != 8 {
		t.Errorf("generated correlation id %q should be 8 chars", id)
	}
}

func TestRedactToken(t *testing.T) {
	t.Parallel()

	if got := RedactToken(""); got != "" {
		t.Errorf("empty token redacted to %q", got)
	}
	if got := RedactToken("short"); got != "****" {
		t.Errorf("short token redacted to %q", got)
	}
	got := RedactToken("1234567890abcdef")
	if got != "1234****" || strings.Contains(got, "abcdef") {
		t.Errorf("long token redacted to %q", got)
	}
}

func TestSlogHandlerWritesThroughZerolog(t *testing.T) {
	var buf bytes.Buffer
	prev := Logger()
	SetLogger(NewTestLogger(&buf))
	t.Cleanup(func() { SetLogger(prev) })

	NewSlogLogger().With("service", "scheduler").WithGroup("run").Info("restarted", "attempt", 2)

	out := buf.String()
	for _, want := range []string{`"service":"scheduler"`, `"run.attempt":2`, `"message":"restarted"`} {
		if !strings.Contains(out, want) {
			t.Errorf("output %s missing %s", out, want)
		}
	}
}

func TestWatermillAdapter(t *testing.T) {
	var buf bytes.Buffer
	prev := Logger()
	SetLogger(NewTestLogger(&buf))
	t.Cleanup(func() { SetLogger(prev) })

	adapter := NewWatermillAdapter().With(watermill.LogFields{"topic": "sync.completed"})
	adapter.Error("publish failed", errors.New("closed"), watermill.LogFields{"attempt": 1})

	out := buf.String()
	for _, want := range []string{`"topic":"sync.completed"`, `"attempt":1`, `"error":"closed"`, `"component":"events"`} {
		if !strings.Contains(out, want) {
			t.Errorf("output %s missing %s", out, want)
		}
	}
}
