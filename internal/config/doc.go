// Rangerscope - Wildlife Tracking and Anti-Poaching Field Operations
// Copyright 2026 Rangerscope Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rangerscope/rangerscope

/*
Package config provides centralized configuration management for
Rangerscope field stations.

Configuration is loaded in layers with clear precedence:

	Environment variables > YAML config file > built-in defaults

# Configuration Structure

  - StreamConfig: upstream WebSocket tracking feed (STREAM_URL)
  - FallbackConfig: REST fallback polling while the stream is down
  - ServerConfig: local HTTP/WebSocket API for field tablets
  - PathsConfig: per-animal movement trail retention
  - LoggingConfig: structured log level and format

# Environment Variables

Stream:
  - STREAM_URL: Backend stream endpoint (required; ws/wss/http/https)
  - STREAM_CONNECT_ON_START: Dial the stream at boot (default: true)
  - STREAM_RESTART_DELAY: Supervisor restart backoff (default: 2s)

Fallback:
  - FALLBACK_ENABLED: Enable degraded-mode REST polling (default: true)
  - FALLBACK_BASE_URL: Backend REST base URL (required when enabled)
  - FALLBACK_TIMEOUT: Per-request timeout (default: 8s)
  - FALLBACK_POLL_INTERVAL: Poll cadence while disconnected (default: 30s)
  - FALLBACK_RATE_LIMIT: Max requests per minute (default: 30)

Server:
  - HTTP_HOST: Bind address (default: 0.0.0.0)
  - HTTP_PORT: Listen port (default: 8091)
  - HTTP_TIMEOUT: Read/write timeout (default: 30s)
  - CORS_ORIGINS: Comma-separated allowed origins (default: *)
  - RATE_LIMIT_REQUESTS: Requests per client per minute, 0 disables (default: 100)

Paths:
  - PATH_MAX_POINTS: Trail cap per animal (default: 50)

Logging:
  - LOG_LEVEL: trace, debug, info, warn, error, fatal (default: info)
  - LOG_FORMAT: json or console (default: json)
  - LOG_CALLER: Annotate log lines with file:line (default: false)

A config file is searched at config.yaml, config.yml, then under
/etc/rangerscope/, and can be pinned with CONFIG_PATH.
*/
package config
