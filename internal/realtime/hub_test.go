// AutoMedia - Social Media Aggregation and AI Content Platform
// Copyright 2026 Jonas Qin (jonasqin)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jonasqin/automedia

package realtime

import (
	"context"
	"testing"
	"time"
)

// setupHub starts a hub for testing and stops it on cleanup.
func setupHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(NewRegistry())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = hub.Serve(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return hub
}

// receive waits for one message on the client's send queue.
func receive(t *testing.T, client *Client) Message {
	t.Helper()
	select {
	case msg := <-client.send:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
		return Message{}
	}
}

// expectNothing asserts no message arrives within a short window.
func expectNothing(t *testing.T, client *Client) {
	t.Helper()
	select {
	case msg := <-client.send:
		t.Fatalf("unexpected message %s delivered", msg.Type)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestPublishToUserDeliversToAllConnections(t *testing.T) {
	hub := setupHub(t)
	registry := hub.Registry()

	c1 := newTestClient(registry, "user-1")
	c2 := newTestClient(registry, "user-1")
	other := newTestClient(registry, "user-2")
	registry.Register(c1)
	registry.Register(c2)
	registry.Register(other)

	hub.PublishToUser("user-1", EventNotification, map[string]string{"hello": "world"})

	for _, c := range []*Client{c1, c2} {
		msg := receive(t, c)
		if msg.Type != EventNotification {
			t.Errorf("expected %s, got %s", EventNotification, msg.Type)
		}
		if msg.Timestamp.IsZero() {
			t.Error("message timestamp not stamped")
		}
	}
	expectNothing(t, other)
}

func TestPublishToDisconnectedUserIsSilent(t *testing.T) {
	hub := setupHub(t)

	// No connections at all; the publish must not panic or block.
	hub.PublishToUser("ghost", EventNotification, nil)

	client := newTestClient(hub.Registry(), "user-1")
	hub.Registry().Register(client)
	expectNothing(t, client)
}

func TestPublishToRoomScopesDelivery(t *testing.T) {
	hub := setupHub(t)
	registry := hub.Registry()

	joined := newTestClient(registry, "user-1")
	outside := newTestClient(registry, "user-2")
	registry.Register(joined)
	registry.Register(outside)

	room := TopicRoom("golang")
	registry.JoinRoom(joined.ID(), room)

	hub.PublishToRoom(room, EventTweetCollected, map[string]string{"id": "42"})

	msg := receive(t, joined)
	if msg.Type != EventTweetCollected {
		t.Errorf("expected %s, got %s", EventTweetCollected, msg.Type)
	}
	expectNothing(t, outside)
}

func TestRoomDeliveryStopsAfterLeave(t *testing.T) {
	hub := setupHub(t)
	registry := hub.Registry()

	client := newTestClient(registry, "user-1")
	registry.Register(client)

	room := TrendsRoom("global")
	registry.JoinRoom(client.ID(), room)
	hub.PublishToRoom(room, EventTrendUpdated, nil)
	receive(t, client)

	registry.LeaveRoom(client.ID(), room)
	hub.PublishToRoom(room, EventTrendUpdated, nil)
	expectNothing(t, client)
}

func TestPublishToAllReachesEveryClient(t *testing.T) {
	hub := setupHub(t)
	registry := hub.Registry()

	clients := []*Client{
		newTestClient(registry, "user-1"),
		newTestClient(registry, "user-2"),
		newTestClient(registry, "user-3"),
	}
	for _, c := range clients {
		registry.Register(c)
	}

	hub.PublishToAll(EventSystemStatus, SystemStatusData{Status: StatusRateLimitWarning})

	for _, c := range clients {
		msg := receive(t, c)
		if msg.Type != EventSystemStatus {
			t.Errorf("expected %s, got %s", EventSystemStatus, msg.Type)
		}
	}
}

func TestDisconnectedClientGetsNoFurtherEvents(t *testing.T) {
	hub := setupHub(t)
	registry := hub.Registry()

	client := newTestClient(registry, "user-1")
	registry.Register(client)
	registry.JoinRoom(client.ID(), FeedRoom)
	registry.Unregister(client.ID())

	hub.PublishToRoom(FeedRoom, EventTweetCollected, nil)
	hub.PublishToUser("user-1", EventNotification, nil)
	expectNothing(t, client)
}

func TestHubShutdownClosesClients(t *testing.T) {
	hub := NewHub(NewRegistry())
	client := newTestClient(hub.Registry(), "user-1")
	hub.Registry().Register(client)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = hub.Serve(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("hub did not stop after cancellation")
	}

	if hub.Registry().ClientCount() != 0 {
		t.Error("expected all clients unregistered after shutdown")
	}
	select {
	case <-client.done:
	default:
		t.Error("expected client close signal after shutdown")
	}
}
