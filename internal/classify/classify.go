// Rangerscope - Wildlife Tracking and Anti-Poaching Field Operations
// Copyright 2026 Rangerscope Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rangerscope/rangerscope

// Package classify derives display attributes from animal and alert state.
//
// Everything in this package is a pure function of its inputs. The state
// store runs the classifier after every merge so derived fields are always
// consistent with the data they were derived from.
package classify

import (
	"strings"

	"github.com/rangerscope/rangerscope/internal/models"
)

// Marker and path colors. Field tablets render these directly, so the
// exact strings are part of the local API contract.
const (
	ColorDangerRed     = "danger-red"
	ColorCautionYellow = "caution-yellow"
	ColorSafeGreen     = "safe-green"
	ColorNeutralGray   = "neutral-gray"
)

// Severity display colors for alerts.
const (
	SeverityColorCritical = "red"
	SeverityColorHigh     = "orange"
	SeverityColorMedium   = "amber"
	SeverityColorLow      = "blue"
)

// Speed thresholds, in km/h, for deriving activity when the collar does not
// report one.
const (
	movingSpeedThreshold  = 2.0
	feedingSpeedThreshold = 0.5
)

// slowSpeedThreshold is the cutoff below which a low-risk animal is shown
// as caution rather than safe.
const slowSpeedThreshold = 1.0

// Result is the derived display classification for one animal.
type Result struct {
	MarkerColor string
	PathColor   string
	Activity    models.ActivityType
}

// DeriveActivity infers activity from speed. Used when the wire record has
// no activity field.
func DeriveActivity(speedKmh float64) models.ActivityType {
	switch {
	case speedKmh > movingSpeedThreshold:
		return models.ActivityMoving
	case speedKmh > feedingSpeedThreshold:
		return models.ActivityFeeding
	default:
		return models.ActivityResting
	}
}

// Classify computes the display classification for a merged animal state.
//
// Activity comes from the collar's explicit report when one exists,
// otherwise it is derived from the current speed. The previously displayed
// ActivityType is never an input: it is this function's own output, and
// reading it back would freeze the first derivation forever.
//
// Priority order:
//  1. risk critical or high: danger, regardless of activity
//  2. resting, feeding, or slow movement: caution
//  3. moving: safe
//  4. anything else: neutral
func Classify(state models.AnimalState) Result {
	activity := models.ActivityUnknown
	if state.ReportedActivity != nil {
		activity = *state.ReportedActivity
	}
	if activity == "" || activity == models.ActivityUnknown {
		activity = DeriveActivity(state.SpeedKmh)
	}

	var color string
	switch {
	case state.RiskLevel == models.RiskCritical || state.RiskLevel == models.RiskHigh:
		color = ColorDangerRed
	case activity == models.ActivityResting || activity == models.ActivityFeeding ||
		state.SpeedKmh < slowSpeedThreshold:
		color = ColorCautionYellow
	case activity == models.ActivityMoving:
		color = ColorSafeGreen
	default:
		color = ColorNeutralGray
	}

	return Result{
		MarkerColor: color,
		PathColor:   color,
		Activity:    activity,
	}
}

// Apply runs Classify and writes the derived fields back onto the state.
func Apply(state models.AnimalState) models.AnimalState {
	r := Classify(state)
	state.MarkerColor = r.MarkerColor
	state.PathColor = r.PathColor
	state.ActivityType = r.Activity
	return state
}

// SeverityColor maps an alert severity onto its display color.
func SeverityColor(s models.AlertSeverity) string {
	switch s {
	case models.SeverityCritical:
		return SeverityColorCritical
	case models.SeverityHigh:
		return SeverityColorHigh
	case models.SeverityMedium:
		return SeverityColorMedium
	case models.SeverityLow:
		return SeverityColorLow
	default:
		return SeverityColorMedium
	}
}

// alertIcons maps alert type keywords to display icons, checked in order.
// First match wins, so more specific keywords come first.
var alertIcons = []struct {
	keyword string
	icon    string
}{
	{"poaching", "siren"},
	{"battery", "battery"},
	{"corridor", "location"},
	{"exit", "location"},
	{"entry", "location"},
	{"signal", "antenna"},
	{"conflict", "shield"},
}

// AlertIcon maps an alert type onto its display icon by keyword.
func AlertIcon(alertType string) string {
	t := strings.ToLower(alertType)
	for _, entry := range alertIcons {
		if strings.Contains(t, entry.keyword) {
			return entry.icon
		}
	}
	return "warning"
}
