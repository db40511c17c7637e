// Rangerscope - Wildlife Tracking and Anti-Poaching Field Operations
// Copyright 2026 Rangerscope Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rangerscope/rangerscope

// Package models defines the canonical domain types for Rangerscope:
// animal state, partial updates, alerts, path points, and the wire-boundary
// normalization that converts the backend's historical payload shapes into
// those types.
//
// Two conventions matter everywhere:
//
//   - Absence is structural. AnimalUpdate fields are pointers; nil means
//     "not present in this update" and never overwrites prior state.
//   - (0, 0) is never a location. Collars with no GPS fix report the zero
//     sentinel, detected with CoordinateEpsilon and rejected by
//     Position.Valid.
//
// All JSON decoding goes through goccy/go-json.
package models
