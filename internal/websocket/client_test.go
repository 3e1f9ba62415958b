// Fudi - Restaurant Data Synchronization for Poster POS
// Copyright 2026 The Fudi Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fudi-pos/fudi

package websocket

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// serveTenant upgrades every request into a client of tenantID.
func serveTenant(t *testing.T, hub *Hub, tenantID string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := (&websocket.Upgrader{}).Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		c := NewClient(hub, conn, tenantID)
		hub.Register <- c
		c.Start()
	}))
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	conn, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func waitForClients(t *testing.T, hub *Hub, tenantID string, n int) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for hub.TenantClientCount(tenantID) != n {
		if time.Now().After(deadline) {
			t.Fatalf("tenant %s has %d clients, want %d", tenantID, hub.TenantClientCount(tenantID), n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestClientReceivesTenantMessages(t *testing.T) {
	hub := runHub(t)
	conn := dial(t, serveTenant(t, hub, "t1"))
	waitForClients(t, hub, "t1", 1)

	hub.BroadcastToTenant("t1", MessageTypeSyncCompleted, map[string]string{"run_id": "r1"})

	_ = conn.SetReadDeadline(time.Now().Add(time.Second))
	var msg struct {
		Type string            `json:"type"`
		Data map[string]string `json:"data"`
	}
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatal(err)
	}
	if msg.Type != MessageTypeSyncCompleted || msg.Data["run_id"] != "r1" {
		t.Errorf("message = %+v", msg)
	}
}

func TestClientPingPong(t *testing.T) {
	hub := runHub(t)
	conn := dial(t, serveTenant(t, hub, "t1"))

	if err := conn.WriteJSON(Message{Type: MessageTypePing}); err != nil {
		t.Fatal(err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(time.Second))
	var msg Message
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatal(err)
	}
	if msg.Type != MessageTypePong {
		t.Errorf("type = %q, want pong", msg.Type)
	}
}

func TestClientCloseUnregisters(t *testing.T) {
	hub := runHub(t)
	conn := dial(t, serveTenant(t, hub, "t1"))
	waitForClients(t, hub, "t1", 1)

	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	_ = conn.Close()
	waitForClients(t, hub, "t1", 0)
}
