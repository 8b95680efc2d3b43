// AutoMedia - Social Media Aggregation and AI Content Platform
// Copyright 2026 Jonas Qin (jonasqin)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jonasqin/automedia

package realtime

import (
	"context"

	"github.com/jonasqin/automedia/internal/logging"
	"github.com/jonasqin/automedia/internal/metrics"
)

// Publish scopes.
const (
	scopeUser = "user"
	scopeRoom = "room"
	scopeAll  = "all"
)

// publication is one queued fan-out request. The hub run loop resolves the
// audience at delivery time, so membership reflects publish time, not
// enqueue time, within the loop's serialization.
type publication struct {
	scope  string
	target string
	msg    Message
}

// Hub fans distribution events out to the right audience with no delivery
// guarantee beyond "delivered to channels live at publish time". A single
// run loop drains the publish queue, which gives every target of one publish
// call the same relative order.
type Hub struct {
	registry *Registry
	publish  chan publication
}

// NewHub creates a hub over the given registry.
func NewHub(registry *Registry) *Hub {
	return &Hub{
		registry: registry,
		publish:  make(chan publication, 256),
	}
}

// Registry exposes the underlying connection registry.
func (h *Hub) Registry() *Registry {
	return h.registry
}

// PublishToUser delivers an event to the user's current connections only.
// If the user has none the event is dropped; there is no queueing.
func (h *Hub) PublishToUser(userID, eventType string, data interface{}) {
	h.enqueue(publication{scope: scopeUser, target: userID, msg: NewMessage(eventType, data)})
}

// PublishToRoom delivers an event to every connection currently joined to
// the room.
func (h *Hub) PublishToRoom(room, eventType string, data interface{}) {
	h.enqueue(publication{scope: scopeRoom, target: room, msg: NewMessage(eventType, data)})
}

// PublishToAll delivers an event to every live connection regardless of room.
func (h *Hub) PublishToAll(eventType string, data interface{}) {
	h.enqueue(publication{scope: scopeAll, msg: NewMessage(eventType, data)})
}

// enqueue hands a publication to the run loop without blocking the caller.
// A full queue drops the event; the orchestrator must never stall on a slow
// distribution layer.
func (h *Hub) enqueue(p publication) {
	select {
	case h.publish <- p:
		metrics.EventsPublished.WithLabelValues(p.msg.Type, p.scope).Inc()
	default:
		metrics.EventsDropped.WithLabelValues("queue_full").Inc()
		logging.Warn().Str("event_type", p.msg.Type).Msg("publish queue full, dropping event")
	}
}

// Serve runs the fan-out loop until the context is canceled. Designed for
// suture supervision: on cancellation all connected clients are closed and
// ctx.Err() is returned so a restart begins from a clean registry.
func (h *Hub) Serve(ctx context.Context) error {
	for {
		// Shutdown has priority over pending publications.
		select {
		case <-ctx.Done():
			h.shutdown()
			return ctx.Err()
		default:
		}

		select {
		case <-ctx.Done():
			h.shutdown()
			return ctx.Err()
		case p := <-h.publish:
			h.deliver(p)
		}
	}
}

// deliver resolves the audience and writes to each client's send queue.
// Clients are visited in registration-sequence order so delivery order is
// deterministic for a single publication.
func (h *Hub) deliver(p publication) {
	var targets []*Client
	switch p.scope {
	case scopeUser:
		targets = h.registry.clientsForUser(p.target)
	case scopeRoom:
		targets = h.registry.clientsInRoom(p.target)
	case scopeAll:
		targets = h.registry.allClients()
	}

	if len(targets) == 0 {
		metrics.EventsDropped.WithLabelValues("no_audience").Inc()
		return
	}

	for _, client := range targets {
		if !client.trySend(p.msg) {
			// Send queue full: the client is not keeping up. Drop it rather
			// than let one slow consumer stall the loop.
			metrics.EventsDropped.WithLabelValues("slow_client").Inc()
			logging.Warn().
				Str("connection_id", client.id).
				Str("user_id", client.userID).
				Msg("send queue full, dropping slow client")
			h.registry.Unregister(client.id)
		}
	}
}

// sendToClient delivers a message to exactly one connection, bypassing the
// audience resolution. Used for the connected acknowledgment.
func (h *Hub) sendToClient(client *Client, msg Message) {
	if !client.trySend(msg) {
		metrics.EventsDropped.WithLabelValues("queue_full").Inc()
	}
}

// shutdown closes every live client so a supervisor restart does not leave
// orphaned connections.
func (h *Hub) shutdown() {
	clients := h.registry.allClients()
	for _, client := range clients {
		h.registry.Unregister(client.id)
	}
	logging.Info().
		Str("component", "realtime-hub").
		Int("clients_closed", len(clients)).
		Msg("realtime hub stopped")
}
