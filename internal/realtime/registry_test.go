// AutoMedia - Social Media Aggregation and AI Content Platform
// Copyright 2026 Jonas Qin (jonasqin)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jonasqin/automedia

package realtime

import (
	"io"
	"testing"

	"github.com/jonasqin/automedia/internal/auth"
	"github.com/jonasqin/automedia/internal/logging"
)

func init() {
	// Initialize logging for tests with discard output
	logging.Init(logging.Config{
		Level:  "info",
		Format: "console",
		Output: io.Discard,
	})
}

// newTestClient creates a client without a network connection. The pumps are
// never started, so the nil conn is never touched.
func newTestClient(registry *Registry, userID string) *Client {
	return NewClient(nil, auth.Identity{ID: userID, Email: userID + "@example.com"}, registry)
}

func TestRegisterAutoJoinsUserRoom(t *testing.T) {
	registry := NewRegistry()
	client := newTestClient(registry, "user-1")
	registry.Register(client)

	members := registry.MembersOf(UserRoom("user-1"))
	if len(members) != 1 {
		t.Fatalf("expected 1 member in user room, got %d", len(members))
	}
	if members[0].ID != "user-1" {
		t.Errorf("expected member user-1, got %s", members[0].ID)
	}
}

func TestMultipleConnectionsPerUser(t *testing.T) {
	registry := NewRegistry()
	c1 := newTestClient(registry, "user-1")
	c2 := newTestClient(registry, "user-1")
	registry.Register(c1)
	registry.Register(c2)

	if got := registry.ClientCount(); got != 2 {
		t.Fatalf("expected 2 clients, got %d", got)
	}
	if conns := registry.ConnectionsFor("user-1"); len(conns) != 2 {
		t.Fatalf("expected 2 connections for user-1, got %d", len(conns))
	}

	// Closing one connection must leave the other registered.
	registry.Unregister(c1.ID())
	if !registry.IsConnected("user-1") {
		t.Error("user-1 should still be connected through the second connection")
	}
	if conns := registry.ConnectionsFor("user-1"); len(conns) != 1 {
		t.Fatalf("expected 1 connection after unregister, got %d", len(conns))
	}
}

func TestJoinLeaveRoomRoundTrip(t *testing.T) {
	registry := NewRegistry()
	client := newTestClient(registry, "user-1")
	registry.Register(client)

	room := TopicRoom("golang")
	registry.JoinRoom(client.ID(), room)
	if members := registry.MembersOf(room); len(members) != 1 {
		t.Fatalf("expected 1 member after join, got %d", len(members))
	}

	registry.LeaveRoom(client.ID(), room)
	if members := registry.MembersOf(room); len(members) != 0 {
		t.Fatalf("expected empty room after leave, got %d members", len(members))
	}
}

func TestJoinRoomIdempotent(t *testing.T) {
	registry := NewRegistry()
	client := newTestClient(registry, "user-1")
	registry.Register(client)

	room := TopicRoom("golang")
	registry.JoinRoom(client.ID(), room)
	registry.JoinRoom(client.ID(), room)

	if members := registry.MembersOf(room); len(members) != 1 {
		t.Fatalf("double join should not duplicate membership, got %d members", len(members))
	}

	// A single leave undoes the join completely.
	registry.LeaveRoom(client.ID(), room)
	if members := registry.MembersOf(room); len(members) != 0 {
		t.Fatalf("expected empty room, got %d members", len(members))
	}
}

func TestLeaveRoomNotJoined(t *testing.T) {
	registry := NewRegistry()
	client := newTestClient(registry, "user-1")
	registry.Register(client)

	// Leaving a room never joined and leaving on an unknown connection are
	// both silent no-ops.
	registry.LeaveRoom(client.ID(), TopicRoom("never-joined"))
	registry.LeaveRoom("no-such-connection", TopicRoom("golang"))
}

func TestUnregisterPrunesAllRooms(t *testing.T) {
	registry := NewRegistry()
	client := newTestClient(registry, "user-1")
	registry.Register(client)

	rooms := []string{TopicRoom("a"), TopicRoom("b"), TrendsRoom("global"), FeedRoom}
	for _, room := range rooms {
		registry.JoinRoom(client.ID(), room)
	}

	registry.Unregister(client.ID())

	for _, room := range rooms {
		if members := registry.MembersOf(room); len(members) != 0 {
			t.Errorf("room %s still has %d members after unregister", room, len(members))
		}
	}
	if names := registry.RoomNames(); len(names) != 0 {
		t.Errorf("expected no rooms left, got %v", names)
	}
	if registry.IsConnected("user-1") {
		t.Error("user-1 should not be connected")
	}
}

func TestUnregisterUnknownConnection(t *testing.T) {
	registry := NewRegistry()
	registry.Unregister("no-such-connection")
}

func TestConnectedUsersSorted(t *testing.T) {
	registry := NewRegistry()
	for _, id := range []string{"charlie", "alice", "bob"} {
		registry.Register(newTestClient(registry, id))
	}

	users := registry.ConnectedUsers()
	if len(users) != 3 {
		t.Fatalf("expected 3 users, got %d", len(users))
	}
	for i, want := range []string{"alice", "bob", "charlie"} {
		if users[i].ID != want {
			t.Errorf("users[%d] = %s, want %s", i, users[i].ID, want)
		}
	}
}

func TestBlankRoomIgnored(t *testing.T) {
	registry := NewRegistry()
	client := newTestClient(registry, "user-1")
	registry.Register(client)

	registry.JoinRoom(client.ID(), "")
	// Only the auto-joined user room should exist.
	names := registry.RoomNames()
	if len(names) != 1 || names[0] != UserRoom("user-1") {
		t.Errorf("expected only the user room, got %v", names)
	}
}
