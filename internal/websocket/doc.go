// Rangerscope - Wildlife Tracking and Anti-Poaching Field Operations
// Copyright 2026 Rangerscope Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rangerscope/rangerscope

// Package websocket re-broadcasts the reconciled field model to local
// clients over WebSocket.
//
// Field tablets on the station LAN connect to /api/v1/ws and receive push
// frames whenever the model changes: full snapshots on (re)connect of the
// backend stream, per-animal updates, ingested alerts, alert stats, and
// backend stream status changes.
//
// The Hub owns all client state and runs on a single goroutine via
// RunWithContext, supervised by suture. Clients that cannot keep up with
// the broadcast rate are dropped rather than allowed to stall the hub.
package websocket
