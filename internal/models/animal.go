// Rangerscope - Wildlife Tracking and Anti-Poaching Field Operations
// Copyright 2026 Rangerscope Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rangerscope/rangerscope

package models

import (
	"math"
	"time"
)

// CoordinateEpsilon is the threshold for considering coordinates as
// effectively zero. Collars that have no fix report the sentinel (0, 0),
// which must never be treated as a real location. A direct float comparison
// against zero is unreliable under IEEE 754, so an epsilon is used instead.
//
// 1e-7 degrees is roughly 1.1cm at the equator, well below GPS accuracy.
const CoordinateEpsilon = 1e-7

// ActivityType classifies what an animal is currently doing.
type ActivityType string

const (
	ActivityMoving  ActivityType = "moving"
	ActivityFeeding ActivityType = "feeding"
	ActivityResting ActivityType = "resting"
	ActivityUnknown ActivityType = "unknown"
)

// RiskLevel grades the threat assessment for an animal.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// Position is a WGS84 coordinate pair.
type Position struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// IsUnknown returns true if the position is the (0, 0) no-fix sentinel.
func (p Position) IsUnknown() bool {
	return math.Abs(p.Lat) < CoordinateEpsilon && math.Abs(p.Lon) < CoordinateEpsilon
}

// Valid returns true if the position is inside latitude/longitude bounds
// and is not the no-fix sentinel.
func (p Position) Valid() bool {
	if p.IsUnknown() {
		return false
	}
	return p.Lat >= -90 && p.Lat <= 90 && p.Lon >= -180 && p.Lon <= 180
}

// ConflictZone identifies a named area an animal is in conflict with,
// such as a farm boundary or a known poaching hotspot.
type ConflictZone struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// AnimalState is the latest known, merged view of one tracked animal.
//
// Position is a pointer because "unknown" and "at (0,0)" are different
// things: an absent position stays absent until a fix arrives.
// MarkerColor, PathColor and ActivityType are derived during merge and are
// never authoritative on the wire. ReportedActivity holds the last activity
// the collar explicitly transmitted, kept apart from the derived
// ActivityType so the classifier can re-derive from speed on every merge
// instead of reading back its own previous output.
type AnimalState struct {
	ID               string        `json:"id"`
	Species          string        `json:"species,omitempty"`
	Name             string        `json:"name,omitempty"`
	Position         *Position     `json:"position,omitempty"`
	ActivityType     ActivityType  `json:"activity_type"`
	ReportedActivity *ActivityType `json:"-"`
	SpeedKmh         float64       `json:"speed_kmh"`
	RiskLevel        RiskLevel     `json:"risk_level"`
	ConflictZone     *ConflictZone `json:"conflict_zone,omitempty"`
	BatteryPercent   float64       `json:"battery_percent"`
	LastUpdated      time.Time     `json:"last_updated"`
	MarkerColor      string        `json:"marker_color"`
	PathColor        string        `json:"path_color"`
}

// Clone returns a deep copy of the state. Snapshots handed to readers are
// always copies so no reader can observe a partially merged record.
func (a AnimalState) Clone() AnimalState {
	out := a
	if a.Position != nil {
		p := *a.Position
		out.Position = &p
	}
	if a.ReportedActivity != nil {
		act := *a.ReportedActivity
		out.ReportedActivity = &act
	}
	if a.ConflictZone != nil {
		z := *a.ConflictZone
		out.ConflictZone = &z
	}
	return out
}

// AnimalUpdate is an explicit partial update for one animal. Every field
// except ID is a pointer: nil means "not present in this update" and must
// never overwrite prior state. This replaces the undefined-means-absent
// convention of the wire payloads with a structural distinction.
type AnimalUpdate struct {
	ID             string
	Species        *string
	Name           *string
	Position       *Position
	ActivityType   *ActivityType
	SpeedKmh       *float64
	RiskLevel      *RiskLevel
	ConflictZone   *ConflictZone
	BatteryPercent *float64
	LastUpdated    *time.Time
}

// Merge applies the update onto prev and returns the merged state. Only
// fields explicitly present in the update overwrite; everything else is
// retained from prev. Derived fields are NOT recomputed here - callers run
// the classifier after merging.
func (u AnimalUpdate) Merge(prev AnimalState) AnimalState {
	next := prev.Clone()
	if u.Species != nil {
		next.Species = *u.Species
	}
	if u.Name != nil {
		next.Name = *u.Name
	}
	if u.Position != nil {
		p := *u.Position
		next.Position = &p
	}
	if u.ActivityType != nil {
		// Record the collar's own report; the display ActivityType is
		// recomputed by the classifier after every merge.
		act := *u.ActivityType
		next.ReportedActivity = &act
		next.ActivityType = act
	}
	if u.SpeedKmh != nil {
		next.SpeedKmh = *u.SpeedKmh
	}
	if u.RiskLevel != nil {
		next.RiskLevel = *u.RiskLevel
	}
	if u.ConflictZone != nil {
		z := *u.ConflictZone
		next.ConflictZone = &z
	}
	if u.BatteryPercent != nil {
		next.BatteryPercent = *u.BatteryPercent
	}
	if u.LastUpdated != nil {
		next.LastUpdated = *u.LastUpdated
	}
	return next
}

// Baseline converts a first-seen update into a full state record.
// Missing fields take zero values; ActivityType defaults to unknown so the
// classifier derives it from speed.
func (u AnimalUpdate) Baseline() AnimalState {
	state := AnimalState{
		ID:           u.ID,
		ActivityType: ActivityUnknown,
		RiskLevel:    RiskLow,
	}
	return u.Merge(state)
}

// PathPoint is one entry in an animal's movement trail.
type PathPoint struct {
	Lat       float64      `json:"lat"`
	Lon       float64      `json:"lon"`
	Timestamp time.Time    `json:"timestamp"`
	Color     string       `json:"color"`
	Activity  ActivityType `json:"activity"`
}
