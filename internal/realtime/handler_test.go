// AutoMedia - Social Media Aggregation and AI Content Platform
// Copyright 2026 Jonas Qin (jonasqin)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jonasqin/automedia

package realtime

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/jonasqin/automedia/internal/auth"
)

const testSecret = "0123456789abcdef0123456789abcdef"

// setupHandler starts a full handshake stack: token manager, registry, hub
// run loop and an httptest server on /ws.
func setupHandler(t *testing.T) (*httptest.Server, *Hub, *auth.TokenManager) {
	t.Helper()

	tokens, err := auth.NewTokenManager(testSecret, time.Hour)
	if err != nil {
		t.Fatalf("token manager: %v", err)
	}

	hub := NewHub(NewRegistry())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = hub.Serve(ctx)
		close(done)
	}()

	srv := httptest.NewServer(NewHandler(hub, tokens, []string{"*"}))
	t.Cleanup(func() {
		srv.Close()
		cancel()
		<-done
	})
	return srv, hub, tokens
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

// dial opens an authenticated websocket connection and consumes the
// connected acknowledgment.
func dial(t *testing.T, srv *httptest.Server, token string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv)+"/?token="+token, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	var msg Message
	if err := readMessage(conn, &msg); err != nil {
		t.Fatalf("read connected ack: %v", err)
	}
	if msg.Type != EventConnected {
		t.Fatalf("expected %s ack, got %s", EventConnected, msg.Type)
	}
	return conn
}

func readMessage(conn *websocket.Conn, msg *Message) error {
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		return err
	}
	return json.Unmarshal(payload, msg)
}

func TestHandshakeRejectsMissingToken(t *testing.T) {
	srv, _, _ := setupHandler(t)

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if got := strings.TrimSpace(string(body)); got != "Authentication error" {
		t.Errorf("expected body %q, got %q", "Authentication error", got)
	}
}

func TestHandshakeRejectsInvalidToken(t *testing.T) {
	srv, hub, _ := setupHandler(t)

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv)+"/?token=garbage", nil)
	if err == nil {
		t.Fatal("expected dial to fail with invalid token")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 handshake response, got %+v", resp)
	}
	if hub.Registry().ClientCount() != 0 {
		t.Error("rejected handshake must not register a client")
	}
}

func TestHandshakeAcceptsQueryToken(t *testing.T) {
	srv, hub, tokens := setupHandler(t)

	token, err := tokens.GenerateToken("user-1", "user-1@example.com")
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	dial(t, srv, token)

	waitFor(t, func() bool { return hub.Registry().IsConnected("user-1") })
}

func TestHandshakeAcceptsBearerHeader(t *testing.T) {
	srv, hub, tokens := setupHandler(t)

	token, err := tokens.GenerateToken("user-2", "user-2@example.com")
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	header := http.Header{"Authorization": []string{"Bearer " + token}}
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv), header)
	if err != nil {
		t.Fatalf("dial with bearer header: %v", err)
	}
	defer conn.Close()

	waitFor(t, func() bool { return hub.Registry().IsConnected("user-2") })
}

func TestJoinTopicRoomOverWire(t *testing.T) {
	srv, hub, tokens := setupHandler(t)

	token, _ := tokens.GenerateToken("user-1", "user-1@example.com")
	conn := dial(t, srv, token)

	join, _ := json.Marshal(map[string]interface{}{
		"type": "join-topic",
		"data": map[string]string{"topicId": "golang"},
	})
	if err := conn.WriteMessage(websocket.TextMessage, join); err != nil {
		t.Fatalf("write join: %v", err)
	}

	room := TopicRoom("golang")
	waitFor(t, func() bool { return len(hub.Registry().MembersOf(room)) == 1 })

	hub.PublishToRoom(room, EventTweetCollected, map[string]string{"id": "42"})

	var msg Message
	if err := readMessage(conn, &msg); err != nil {
		t.Fatalf("read room event: %v", err)
	}
	if msg.Type != EventTweetCollected {
		t.Errorf("expected %s, got %s", EventTweetCollected, msg.Type)
	}
}

func TestMalformedFrameKeepsChannelAlive(t *testing.T) {
	srv, hub, tokens := setupHandler(t)

	token, _ := tokens.GenerateToken("user-1", "user-1@example.com")
	conn := dial(t, srv, token)

	if err := conn.WriteMessage(websocket.TextMessage, []byte("{not json")); err != nil {
		t.Fatalf("write malformed: %v", err)
	}

	// The channel survives and still receives events.
	waitFor(t, func() bool { return hub.Registry().IsConnected("user-1") })
	hub.PublishToUser("user-1", EventNotification, nil)

	var msg Message
	if err := readMessage(conn, &msg); err != nil {
		t.Fatalf("channel dead after malformed frame: %v", err)
	}
	if msg.Type != EventNotification {
		t.Errorf("expected %s, got %s", EventNotification, msg.Type)
	}
}

func TestClientDisconnectPrunesMemberships(t *testing.T) {
	srv, hub, tokens := setupHandler(t)

	token, _ := tokens.GenerateToken("user-1", "user-1@example.com")
	conn := dial(t, srv, token)

	join, _ := json.Marshal(map[string]interface{}{"type": "subscribe-tweets"})
	_ = conn.WriteMessage(websocket.TextMessage, join)
	waitFor(t, func() bool { return len(hub.Registry().MembersOf(FeedRoom)) == 1 })

	_ = conn.Close()

	waitFor(t, func() bool { return hub.Registry().ClientCount() == 0 })
	if members := hub.Registry().MembersOf(FeedRoom); len(members) != 0 {
		t.Errorf("feed room still has %d members after disconnect", len(members))
	}
}

// waitFor polls until cond holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}
