// Rangerscope - Wildlife Tracking and Anti-Poaching Field Operations
// Copyright 2026 Rangerscope Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rangerscope/rangerscope

// Package main is the entry point for the Rangerscope field station.
//
// A station connects to the backend tracking stream, maintains the live
// animal and alert model, and re-serves it to field tablets over a local
// HTTP and WebSocket API. When the stream is down the station degrades to
// REST polling and keeps serving the last known model.
//
// # Startup Order
//
//  1. Configuration: Koanf v2 layered load (env > config file > defaults)
//  2. Logging: zerolog, structured JSON by default
//  3. Core model: state store, path tracker, alert deduplicator (session)
//  4. Supervisor tree: ingest layer (stream, poller, hub) + API layer
//
// # Signal Handling
//
// SIGINT and SIGTERM trigger graceful shutdown: the HTTP server drains
// in-flight requests, the stream disconnects cleanly, and every tablet
// connection is closed.
//
// # Example Usage
//
//	export STREAM_URL=wss://api.example.org/stream
//	export FALLBACK_BASE_URL=https://api.example.org
//	./rangerscope
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

	"github.com/rangerscope/rangerscope/internal/api"
	"github.com/rangerscope/rangerscope/internal/config"
	"github.com/rangerscope/rangerscope/internal/fallback"
	"github.com/rangerscope/rangerscope/internal/logging"
	"github.com/rangerscope/rangerscope/internal/session"
	"github.com/rangerscope/rangerscope/internal/stream"
	"github.com/rangerscope/rangerscope/internal/supervisor"
	"github.com/rangerscope/rangerscope/internal/supervisor/services"
	ws "github.com/rangerscope/rangerscope/internal/websocket"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Config is not available yet, so the default logger reports this.
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("stream_url", cfg.Stream.URL).
		Bool("fallback_enabled", cfg.Fallback.Enabled).
		Str("listen", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)).
		Msg("Starting Rangerscope field station")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// zerolog bridges to slog for sutureslog supervision events.
	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	hub := ws.NewHub()

	manager, err := stream.NewManager(cfg.Stream.URL)
	if err != nil {
		logging.Fatal().Err(err).Msg("Invalid stream URL")
	}

	var fb *fallback.Client
	if cfg.Fallback.Enabled {
		fb, err = fallback.NewClient(fallback.Config{
			BaseURL:           cfg.Fallback.BaseURL,
			Timeout:           cfg.Fallback.Timeout,
			RequestsPerMinute: cfg.Fallback.RequestsPerMinute,
		})
		if err != nil {
			logging.Fatal().Err(err).Msg("Invalid fallback configuration")
		}
	} else {
		logging.Warn().Msg("REST fallback disabled; stream outages will leave the model stale")
	}

	sess := session.New(manager, fb, hub, cfg.Paths.MaxPoints)
	defer sess.Close()

	handler := api.NewHandler(sess, hub, cfg.Server.CORSOrigins)
	router := api.NewRouter(handler, &api.MiddlewareConfig{
		CORSAllowedOrigins: cfg.Server.CORSOrigins,
		CORSAllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		CORSAllowedHeaders: []string{"Content-Type"},
		CORSMaxAge:         86400,
		RateLimitRequests:  cfg.Server.RateLimitReqs,
		RateLimitWindow:    time.Minute,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  60 * time.Second,
	}

	// Ingest layer services
	tree.AddIngestService(services.NewHubService(hub))
	if cfg.Stream.ConnectOnStart {
		streamSvc := stream.NewService(manager)
		streamSvc.RestartDelay = cfg.Stream.RestartDelay
		tree.AddIngestService(streamSvc)
	} else {
		logging.Warn().Msg("Stream connect on start disabled; running on fallback polling only")
	}
	tree.AddIngestService(session.NewPoller(sess, cfg.Fallback.PollInterval))

	// API layer services
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))

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
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}

	logging.Info().Msg("Station stopped gracefully")
}
