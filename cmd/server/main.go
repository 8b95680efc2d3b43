// AutoMedia - Social Media Aggregation and AI Content Platform
// Copyright 2026 Jonas Qin (jonasqin)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jonasqin/automedia

// Command server runs the AutoMedia real-time distribution and collection
// service: the websocket hub, the scheduled collection tasks and the ops
// HTTP API, all under one suture supervision tree.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonasqin/automedia/internal/api"
	"github.com/jonasqin/automedia/internal/auth"
	"github.com/jonasqin/automedia/internal/collector"
	"github.com/jonasqin/automedia/internal/config"
	"github.com/jonasqin/automedia/internal/logging"
	"github.com/jonasqin/automedia/internal/realtime"
	"github.com/jonasqin/automedia/internal/source"
	"github.com/jonasqin/automedia/internal/store"
	"github.com/jonasqin/automedia/internal/supervisor"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("host", cfg.Server.Host).
		Int("port", cfg.Server.Port).
		Str("store_path", cfg.Store.Path).
		Str("source_url", cfg.Source.BaseURL).
		Msg("Configuration loaded")

	db, err := store.Open(&cfg.Store)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open content store")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing content store")
		}
	}()

	tokens, err := auth.NewTokenManager(cfg.Security.JWTSecret, cfg.Security.SessionTimeout)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize token manager")
	}

	// Realtime distribution.
	registry := realtime.NewRegistry()
	hub := realtime.NewHub(registry)
	wsHandler := realtime.NewHandler(hub, tokens, cfg.Security.CORSOrigins)

	// External source behind client-side pacing and a circuit breaker, with
	// quota headers feeding the tracker on every call.
	httpSource := source.NewHTTPClient(&cfg.Source)
	src := source.NewBreakerClient(httpSource)
	tracker := collector.NewRateLimitTracker(src)
	httpSource.SetQuotaObserver(tracker)

	orch := collector.New(cfg.Collector, cfg.Source.SearchPageSize, src, db, db, db, tracker, hub)

	// HTTP surface.
	handlers := api.NewHandlers(registry, orch, tracker, db.Ready)
	router := api.NewRouter(cfg, wsHandler, handlers)
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Supervision tree: hub in the realtime layer, tasks in the collector
	// layer, HTTP server in the API layer.
	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	tree.AddRealtimeService(hub)
	for _, task := range orch.Tasks() {
		tree.AddCollectorService(task)
		logging.Info().Str("task", task.Name()).Msg("Collection task added to supervisor tree")
	}
	tree.AddAPIService(api.NewServerService(server, cfg.Server.ShutdownTimeout))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	// Drain until the supervisor has fully stopped.
	drainDeadline := time.After(cfg.Server.ShutdownTimeout + 5*time.Second)
	for {
		select {
		case err, ok := <-errCh:
			if !ok {
				reportUnstopped(tree)
				logging.Info().Msg("Application stopped gracefully")
				return
			}
			if err != nil && !errors.Is(err, context.Canceled) {
				logging.Error().Err(err).Msg("Supervisor shutdown error")
			}
		case <-drainDeadline:
			reportUnstopped(tree)
			logging.Warn().Msg("Shutdown deadline exceeded, exiting")
			return
		}
	}
}

func reportUnstopped(tree *supervisor.Tree) {
	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}
}
