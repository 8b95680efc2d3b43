// AutoMedia - Social Media Aggregation and AI Content Platform
// Copyright 2026 Jonas Qin (jonasqin)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jonasqin/automedia

package realtime

import (
	"sort"
	"sync"
	"time"

	"github.com/jonasqin/automedia/internal/auth"
	"github.com/jonasqin/automedia/internal/logging"
	"github.com/jonasqin/automedia/internal/metrics"
	"github.com/jonasqin/automedia/internal/models"
)

// Registry maintains the live mapping between connections, authenticated
// users, and room memberships. It is an explicitly constructed instance, not
// a process global, so multiple registries can coexist in tests.
//
// All operations are safe under concurrent access from connection
// open/close events and orchestrator ticks. Removal on connection close is
// O(1) amortized: the per-connection room set is walked, never the full
// room index.
type Registry struct {
	mu sync.RWMutex

	// clients indexes every live connection by connection id.
	clients map[string]*Client

	// userConns indexes connection ids per user; a user may hold several
	// open connections (multiple tabs/devices).
	userConns map[string]map[string]*Client

	// roomConns indexes connections per room for O(audience) publish.
	roomConns map[string]map[string]*Client

	// connRooms is the inverse index used for pruning on close.
	connRooms map[string]map[string]bool
}

// NewRegistry creates an empty connection registry.
func NewRegistry() *Registry {
	return &Registry{
		clients:   make(map[string]*Client),
		userConns: make(map[string]map[string]*Client),
		roomConns: make(map[string]map[string]*Client),
		connRooms: make(map[string]map[string]bool),
	}
}

// Register records an authenticated connection and auto-joins the user's
// personal room. The connected acknowledgment is the caller's concern; the
// registry only tracks state.
func (r *Registry) Register(client *Client) {
	r.mu.Lock()
	r.clients[client.id] = client
	if r.userConns[client.userID] == nil {
		r.userConns[client.userID] = make(map[string]*Client)
	}
	r.userConns[client.userID][client.id] = client
	r.connRooms[client.id] = make(map[string]bool)
	r.joinRoomLocked(client, UserRoom(client.userID))
	total := len(r.clients)
	r.mu.Unlock()

	metrics.ConnectedClients.Set(float64(total))
	logging.Info().
		Str("connection_id", client.id).
		Str("user_id", client.userID).
		Int("total_clients", total).
		Msg("realtime client connected")
}

// Unregister removes a connection and, if it was the user's last one, all of
// that user's room memberships. Safe to call for unknown ids; disconnect
// callbacks may fire more than once.
func (r *Registry) Unregister(connectionID string) {
	r.mu.Lock()
	client, ok := r.clients[connectionID]
	if !ok {
		r.mu.Unlock()
		return
	}

	for room := range r.connRooms[connectionID] {
		r.leaveRoomLocked(client, room)
	}
	delete(r.connRooms, connectionID)
	delete(r.clients, connectionID)

	if conns := r.userConns[client.userID]; conns != nil {
		delete(conns, connectionID)
		if len(conns) == 0 {
			delete(r.userConns, client.userID)
		}
	}
	total := len(r.clients)
	r.mu.Unlock()

	client.closeSend()
	metrics.ConnectedClients.Set(float64(total))
	logging.Info().
		Str("connection_id", connectionID).
		Str("user_id", client.userID).
		Int("total_clients", total).
		Msg("realtime client disconnected")
}

// JoinRoom adds a connection to a room. Idempotent: joining a room the
// connection is already in is a no-op. Blank room names are ignored rather
// than rejected so a bad request never takes the channel down.
func (r *Registry) JoinRoom(connectionID, room string) {
	if room == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	client, ok := r.clients[connectionID]
	if !ok {
		return
	}
	r.joinRoomLocked(client, room)
}

// LeaveRoom removes a connection from a room. Leaving a room the connection
// never joined is a no-op.
func (r *Registry) LeaveRoom(connectionID, room string) {
	if room == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	client, ok := r.clients[connectionID]
	if !ok {
		return
	}
	r.leaveRoomLocked(client, room)
}

// joinRoomLocked adds membership under r.mu.
func (r *Registry) joinRoomLocked(client *Client, room string) {
	if r.connRooms[client.id][room] {
		return
	}
	if r.roomConns[room] == nil {
		r.roomConns[room] = make(map[string]*Client)
	}
	r.roomConns[room][client.id] = client
	r.connRooms[client.id][room] = true
	metrics.RoomMembers.WithLabelValues(metrics.RoomKind(room)).Inc()
}

// leaveRoomLocked removes membership under r.mu.
func (r *Registry) leaveRoomLocked(client *Client, room string) {
	conns, ok := r.roomConns[room]
	if !ok || conns[client.id] == nil {
		return
	}
	delete(conns, client.id)
	if len(conns) == 0 {
		delete(r.roomConns, room)
	}
	delete(r.connRooms[client.id], room)
	metrics.RoomMembers.WithLabelValues(metrics.RoomKind(room)).Dec()
}

// Touch refreshes a connection's liveness timestamp on a pong response.
func (r *Registry) Touch(connectionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if client, ok := r.clients[connectionID]; ok {
		client.connectedAt = time.Now()
	}
}

// IsConnected reports whether the user has at least one open connection.
func (r *Registry) IsConnected(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.userConns[userID]) > 0
}

// ConnectedUsers returns a summary of every user with a live connection,
// sorted by user id for stable output.
func (r *Registry) ConnectedUsers() []models.UserSummary {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]models.UserSummary, 0, len(r.userConns))
	for userID, conns := range r.userConns {
		summary := models.UserSummary{ID: userID, Connections: len(conns)}
		for _, c := range conns {
			summary.Email = c.email
			break
		}
		users = append(users, summary)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users
}

// ConnectionsFor returns the connection ids currently open for a user.
func (r *Registry) ConnectionsFor(userID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.userConns[userID]))
	for id := range r.userConns[userID] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// MembersOf returns the distinct users joined to a room, sorted by user id.
func (r *Registry) MembersOf(room string) []models.UserSummary {
	r.mu.RLock()
	defer r.mu.RUnlock()

	byUser := make(map[string]*models.UserSummary)
	for _, client := range r.roomConns[room] {
		if existing, ok := byUser[client.userID]; ok {
			existing.Connections++
			continue
		}
		byUser[client.userID] = &models.UserSummary{ID: client.userID, Email: client.email, Connections: 1}
	}

	members := make([]models.UserSummary, 0, len(byUser))
	for _, m := range byUser {
		members = append(members, *m)
	}
	sort.Slice(members, func(i, j int) bool { return members[i].ID < members[j].ID })
	return members
}

// ClientCount returns the number of live connections.
func (r *Registry) ClientCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

// RoomNames returns the names of all rooms with at least one member.
func (r *Registry) RoomNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.roomConns))
	for room := range r.roomConns {
		names = append(names, room)
	}
	sort.Strings(names)
	return names
}

// clientsInRoom snapshots a room's connections sorted by registration
// sequence. Sorting keeps fan-out order deterministic within one publish.
func (r *Registry) clientsInRoom(room string) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortClients(r.roomConns[room])
}

// clientsForUser snapshots a user's connections in sequence order.
func (r *Registry) clientsForUser(userID string) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortClients(r.userConns[userID])
}

// allClients snapshots every live connection in sequence order.
func (r *Registry) allClients() []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	clients := make([]*Client, 0, len(r.clients))
	for _, c := range r.clients {
		clients = append(clients, c)
	}
	sort.Slice(clients, func(i, j int) bool { return clients[i].seq < clients[j].seq })
	return clients
}

// sortClients copies a connection set into a slice ordered by registration
// sequence.
func sortClients(set map[string]*Client) []*Client {
	clients := make([]*Client, 0, len(set))
	for _, c := range set {
		clients = append(clients, c)
	}
	sort.Slice(clients, func(i, j int) bool { return clients[i].seq < clients[j].seq })
	return clients
}

// Identity re-exports the authenticated principal type for callers that
// register connections.
type Identity = auth.Identity
