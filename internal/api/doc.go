// Rangerscope - Wildlife Tracking and Anti-Poaching Field Operations
// Copyright 2026 Rangerscope Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rangerscope/rangerscope

/*
Package api provides the local HTTP and WebSocket API of a Rangerscope
field station, built on the chi router.

Field tablets on the station LAN read the live model through these
endpoints and subscribe to /api/v1/ws for push updates:

	GET    /api/v1/animals                live animal states
	GET    /api/v1/animals/{id}           one animal
	GET    /api/v1/animals/{id}/path      movement trail
	POST   /api/v1/animals/{id}/subscribe per-animal backend subscription
	DELETE /api/v1/animals/{id}/subscribe
	GET    /api/v1/alerts                 alerts, newest first (?status=active)
	GET    /api/v1/alerts/stats           severity band summary
	POST   /api/v1/alerts/{id}/status     advance handling status
	GET    /api/v1/status                 session health
	GET    /api/v1/ws                     WebSocket re-broadcast feed
	GET    /api/v1/health/live            liveness
	GET    /api/v1/health/ready           readiness (model populated)
	GET    /metrics                       Prometheus metrics

Every JSON endpoint wraps its payload in models.APIResponse. Writes go
through the session, never directly to the stores, so the single
mutation path is preserved.
*/
package api
