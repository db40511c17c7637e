// Rangerscope - Wildlife Tracking and Anti-Poaching Field Operations
// Copyright 2026 Rangerscope Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rangerscope/rangerscope

/*
Package supervisor provides process supervision for Rangerscope using
suture v4.

The tree organizes the station's long-running services into two layers
for failure isolation:

	RootSupervisor ("rangerscope")
	├── IngestSupervisor ("ingest-layer")
	│   ├── stream-manager     upstream WebSocket feed
	│   ├── fallback-poller    degraded-mode REST polling
	│   └── websocket-hub      local tablet re-broadcast
	└── APISupervisor ("api-layer")
	    └── http-server        local HTTP/WebSocket API

A stream transport failure restarts only the stream service; the HTTP
server keeps serving the last known model while the connection comes
back. Suture restarts crashed services with exponential backoff, and
structured supervision events flow into zerolog through the sutureslog
slog adapter.

Services implement suture.Service:

	Serve(ctx context.Context) error

Serve blocks until the context is canceled or the service fails. A
returned error triggers a supervised restart; ctx.Err() on shutdown
does not.
*/
package supervisor
