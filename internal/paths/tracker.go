// Rangerscope - Wildlife Tracking and Anti-Poaching Field Operations
// Copyright 2026 Rangerscope Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rangerscope/rangerscope

// Package paths maintains per-animal movement trails.
//
// A trail records where an animal has actually moved. Resting positions and
// invalid fixes are gated out, and each trail is capped so memory stays flat
// over multi-day field sessions.
package paths

import (
	"sync"

	"github.com/rangerscope/rangerscope/internal/logging"
	"github.com/rangerscope/rangerscope/internal/metrics"
	"github.com/rangerscope/rangerscope/internal/models"
	"github.com/rs/zerolog"
)

// DefaultMaxPoints is the per-animal trail cap. When a trail is full the
// oldest point is evicted first.
const DefaultMaxPoints = 50

// Tracker keeps a bounded movement trail per animal. Safe for concurrent
// use.
type Tracker struct {
	mu        sync.RWMutex
	trails    map[string][]models.PathPoint
	maxPoints int
	log       zerolog.Logger
}

// NewTracker creates a Tracker with the given per-animal cap. A cap of zero
// or less falls back to DefaultMaxPoints.
func NewTracker(maxPoints int) *Tracker {
	if maxPoints <= 0 {
		maxPoints = DefaultMaxPoints
	}
	return &Tracker{
		trails:    make(map[string][]models.PathPoint),
		maxPoints: maxPoints,
		log:       logging.WithComponent("paths"),
	}
}

// Record appends a trail point for the animal if the state passes gating:
// the animal must not be resting and must have a valid position. Returns
// true when a point was recorded.
func (t *Tracker) Record(state models.AnimalState) bool {
	if state.ActivityType == models.ActivityResting {
		metrics.PathPointsDropped.WithLabelValues("resting").Inc()
		return false
	}
	if state.Position == nil || !state.Position.Valid() {
		metrics.PathPointsDropped.WithLabelValues("invalid_position").Inc()
		return false
	}

	point := models.PathPoint{
		Lat:       state.Position.Lat,
		Lon:       state.Position.Lon,
		Timestamp: state.LastUpdated,
		Color:     state.PathColor,
		Activity:  state.ActivityType,
	}

	t.mu.Lock()
	trail := append(t.trails[state.ID], point)
	if len(trail) > t.maxPoints {
		trail = trail[len(trail)-t.maxPoints:]
	}
	t.trails[state.ID] = trail
	t.mu.Unlock()

	metrics.PathPointsRecorded.Inc()
	t.log.Debug().
		Str("animal_id", state.ID).
		Float64("lat", point.Lat).
		Float64("lon", point.Lon).
		Msg("path point recorded")
	return true
}

// Get returns a copy of the animal's trail, oldest first. An unknown animal
// yields an empty trail.
func (t *Tracker) Get(animalID string) []models.PathPoint {
	t.mu.RLock()
	defer t.mu.RUnlock()
	trail := t.trails[animalID]
	out := make([]models.PathPoint, len(trail))
	copy(out, trail)
	return out
}

// Len returns the number of points currently retained for the animal.
func (t *Tracker) Len(animalID string) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.trails[animalID])
}

// Clear removes the trail for one animal.
func (t *Tracker) Clear(animalID string) {
	t.mu.Lock()
	delete(t.trails, animalID)
	t.mu.Unlock()
}

// ClearAll removes every trail. Called when a fresh initial snapshot
// replaces the world.
func (t *Tracker) ClearAll() {
	t.mu.Lock()
	t.trails = make(map[string][]models.PathPoint)
	t.mu.Unlock()
}
