// AutoMedia - Social Media Aggregation and AI Content Platform
// Copyright 2026 Jonas Qin (jonasqin)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jonasqin/automedia

package realtime

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/jonasqin/automedia/internal/auth"
	"github.com/jonasqin/automedia/internal/logging"
	"github.com/jonasqin/automedia/internal/metrics"
)

// Handler upgrades authenticated channel-open requests and hands them to the
// hub. Authentication failure is terminal for the channel: the handshake is
// rejected with "Authentication error" and nothing is registered, so no
// partial or anonymous session can ever join a room.
type Handler struct {
	hub            *Hub
	tokens         *auth.TokenManager
	allowedOrigins []string
}

// NewHandler creates the channel handshake handler.
func NewHandler(hub *Hub, tokens *auth.TokenManager, allowedOrigins []string) *Handler {
	return &Handler{hub: hub, tokens: tokens, allowedOrigins: allowedOrigins}
}

// upgrader builds a websocket upgrader with origin checking and a handshake
// timeout against slow-client attacks.
func (h *Handler) upgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		CheckOrigin:      h.checkOrigin,
		HandshakeTimeout: 10 * time.Second,
	}
}

// checkOrigin validates the Origin header against the configured allow list.
// Non-browser clients (no Origin header) are admitted; they still have to
// present a valid token.
func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range h.allowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	logging.Warn().Str("origin", origin).Msg("websocket connection rejected from unauthorized origin")
	return false
}

// ServeHTTP handles GET /ws. The credential token is read from the `token`
// query parameter or the Authorization bearer header; a missing or invalid
// token rejects the handshake before the upgrade, so the channel never
// opens.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	identity, err := h.tokens.Authenticate(extractToken(r))
	if err != nil {
		metrics.AuthFailures.Inc()
		logging.Warn().Err(err).Msg("channel handshake rejected")
		http.Error(w, auth.ErrAuthFailed.Error(), http.StatusUnauthorized)
		return
	}

	upgrader := h.upgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Error().Err(err).Msg("websocket upgrade error")
		return
	}

	client := NewClient(conn, identity, h.hub.Registry())
	h.hub.Registry().Register(client)

	// Acknowledge to the new connection only, before any other traffic can
	// reach it.
	h.hub.sendToClient(client, NewMessage(EventConnected, ConnectedData{
		Message: "Connected to AutoMedia real-time service",
		UserID:  identity.ID,
	}))

	client.Start()
}

// extractToken pulls the bearer credential from the handshake request.
func extractToken(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}
