// Rangerscope - Wildlife Tracking and Anti-Poaching Field Operations
// Copyright 2026 Rangerscope Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rangerscope/rangerscope

/*
Package services adapts the station's components to suture.Service so the
supervisor tree can manage them.

Three wrapping patterns cover everything here and in the component
packages themselves:

  - Already context-aware (websocket.Hub.RunWithContext,
    stream.Service.Serve, session.Poller.Serve): delegate directly.
  - Blocking start with separate shutdown (*http.Server): run the
    blocking call in a goroutine, select on ctx.Done(), then call the
    shutdown method with its own deadline.

Every wrapper implements fmt.Stringer; suture uses the name in
supervision log events.
*/
package services
