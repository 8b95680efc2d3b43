// AutoMedia - Social Media Aggregation and AI Content Platform
// Copyright 2026 Jonas Qin (jonasqin)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jonasqin/automedia

// Package api provides the HTTP surface: the websocket upgrade endpoint,
// health probes, introspection endpoints and Prometheus metrics.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jonasqin/automedia/internal/config"
	"github.com/jonasqin/automedia/internal/realtime"
)

// Router assembles the chi handler tree.
type Router struct {
	cfg      *config.Config
	ws       *realtime.Handler
	handlers *Handlers
}

func NewRouter(cfg *config.Config, ws *realtime.Handler, handlers *Handlers) *Router {
	return &Router{cfg: cfg, ws: ws, handlers: handlers}
}

// Setup builds the full route tree.
func (rt *Router) Setup() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   rt.cfg.Security.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// The websocket endpoint sits outside the rate limited tree: a single
	// long-lived connection per client, authenticated before upgrade.
	r.Get("/ws", rt.ws.ServeHTTP)

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(httprate.LimitByIP(rt.cfg.Security.RateLimitReqs, rt.cfg.Security.RateLimitWindow))

		r.Route("/health", func(r chi.Router) {
			r.Get("/", rt.handlers.Health)
			r.Get("/live", rt.handlers.HealthLive)
			r.Get("/ready", rt.handlers.HealthReady)
		})

		r.Route("/realtime", func(r chi.Router) {
			r.Get("/connections", rt.handlers.Connections)
			r.Get("/rooms", rt.handlers.Rooms)
			r.Get("/rooms/{room}", rt.handlers.RoomMembers)
		})

		r.Get("/trends/{location}", rt.handlers.Trends)
		r.Get("/quota", rt.handlers.Quota)
		r.Get("/users/{userID}/stats", rt.handlers.UserStats)
	})

	return r
}
