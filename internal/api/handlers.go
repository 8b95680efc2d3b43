// AutoMedia - Social Media Aggregation and AI Content Platform
// Copyright 2026 Jonas Qin (jonasqin)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jonasqin/automedia

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/jonasqin/automedia/internal/collector"
	"github.com/jonasqin/automedia/internal/logging"
	"github.com/jonasqin/automedia/internal/models"
	"github.com/jonasqin/automedia/internal/realtime"
)

// Handlers serves the introspection and health endpoints. Everything here
// reads volatile in-process state; nothing mutates.
type Handlers struct {
	registry     *realtime.Registry
	orchestrator *collector.Orchestrator
	tracker      *collector.RateLimitTracker
	storeReady   func() bool
	startTime    time.Time
}

func NewHandlers(registry *realtime.Registry, orch *collector.Orchestrator, tracker *collector.RateLimitTracker, storeReady func() bool) *Handlers {
	return &Handlers{
		registry:     registry,
		orchestrator: orch,
		tracker:      tracker,
		storeReady:   storeReady,
		startTime:    time.Now(),
	}
}

// Health reports overall status: connected client count, task states and
// store readiness.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	ready := h.storeReady == nil || h.storeReady()
	status := "healthy"
	if !ready {
		status = "degraded"
	}

	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data: map[string]interface{}{
			"status":            status,
			"store_ready":       ready,
			"connected_clients": h.registry.ClientCount(),
			"tasks":             h.orchestrator.TaskStates(),
			"uptime":            time.Since(h.startTime).Seconds(),
		},
		Metadata: models.Metadata{Timestamp: time.Now()},
	})
}

// HealthLive is the liveness probe: 200 whenever the process runs.
func (h *Handlers) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data: map[string]interface{}{
			"alive":  true,
			"uptime": time.Since(h.startTime).Seconds(),
		},
		Metadata: models.Metadata{Timestamp: time.Now()},
	})
}

// HealthReady is the readiness probe: 503 until the content store is open.
func (h *Handlers) HealthReady(w http.ResponseWriter, r *http.Request) {
	ready := h.storeReady == nil || h.storeReady()
	statusCode := http.StatusOK
	status := "ready"
	if !ready {
		statusCode = http.StatusServiceUnavailable
		status = "not_ready"
	}

	respondJSON(w, statusCode, &models.APIResponse{
		Status: status,
		Data: map[string]interface{}{
			"store_ready":    ready,
			"ready_to_serve": ready,
		},
		Metadata: models.Metadata{Timestamp: time.Now()},
	})
}

// Connections lists currently connected users with their connection counts.
func (h *Handlers) Connections(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data: map[string]interface{}{
			"total": h.registry.ClientCount(),
			"users": h.registry.ConnectedUsers(),
		},
		Metadata: models.Metadata{Timestamp: time.Now()},
	})
}

// Rooms lists all rooms that currently have members.
func (h *Handlers) Rooms(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status:   "success",
		Data:     map[string]interface{}{"rooms": h.registry.RoomNames()},
		Metadata: models.Metadata{Timestamp: time.Now()},
	})
}

// RoomMembers lists the users joined to one room.
func (h *Handlers) RoomMembers(w http.ResponseWriter, r *http.Request) {
	room := chi.URLParam(r, "room")
	if room == "" {
		respondError(w, http.StatusBadRequest, "INVALID_ROOM", "room name required", nil)
		return
	}

	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data: map[string]interface{}{
			"room":    room,
			"members": h.registry.MembersOf(room),
		},
		Metadata: models.Metadata{Timestamp: time.Now()},
	})
}

// Trends serves the cached trends for a location. Never triggers an
// external call.
func (h *Handlers) Trends(w http.ResponseWriter, r *http.Request) {
	location := chi.URLParam(r, "location")
	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data: map[string]interface{}{
			"location": location,
			"trends":   h.orchestrator.CachedTrends(location),
		},
		Metadata: models.Metadata{Timestamp: time.Now()},
	})
}

// Quota serves the last known quota snapshots per upstream endpoint.
func (h *Handlers) Quota(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status:   "success",
		Data:     h.tracker.Snapshots(),
		Metadata: models.Metadata{Timestamp: time.Now()},
	})
}

// UserStats serves the cached usage statistics for one user.
func (h *Handlers) UserStats(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	stats, ok := h.orchestrator.CachedStats(userID)
	if !ok {
		respondError(w, http.StatusNotFound, "STATS_NOT_FOUND", "no stats computed for user yet", nil)
		return
	}

	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status:   "success",
		Data:     stats,
		Metadata: models.Metadata{Timestamp: time.Now()},
	})
}

// respondJSON sends a JSON response with proper headers.
func respondJSON(w http.ResponseWriter, status int, response *models.APIResponse) {
	w.Header().Set("Content-Type", "application/json")

	data, err := json.Marshal(response)
	if err != nil {
		logging.Error().Err(err).Msg("failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Error().Err(err).Msg("failed to write JSON response")
	}
}

func respondError(w http.ResponseWriter, status int, code, message string, err error) {
	if err != nil {
		logging.Error().Str("code", code).Err(err).Msg("api error")
	}

	respondJSON(w, status, &models.APIResponse{
		Status:   "error",
		Metadata: models.Metadata{Timestamp: time.Now()},
		Error:    &models.APIError{Code: code, Message: message},
	})
}
