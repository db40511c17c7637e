// Rangerscope - Wildlife Tracking and Anti-Poaching Field Operations
// Copyright 2026 Rangerscope Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rangerscope/rangerscope

package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// AlertSeverity grades an alert. The four levels map onto fixed display
// colors in the classify package.
type AlertSeverity string

const (
	SeverityLow      AlertSeverity = "low"
	SeverityMedium   AlertSeverity = "medium"
	SeverityHigh     AlertSeverity = "high"
	SeverityCritical AlertSeverity = "critical"
)

// AlertStatus tracks the handling lifecycle of an alert. Transitions are
// monotonic forward: active -> acknowledged -> resolved.
type AlertStatus string

const (
	StatusActive       AlertStatus = "active"
	StatusAcknowledged AlertStatus = "acknowledged"
	StatusResolved     AlertStatus = "resolved"
)

// statusRank orders alert statuses for the monotonic-forward rule.
func statusRank(s AlertStatus) int {
	switch s {
	case StatusActive:
		return 0
	case StatusAcknowledged:
		return 1
	case StatusResolved:
		return 2
	default:
		return -1
	}
}

// CanTransition reports whether moving from s to next is a forward step.
// Re-asserting the current status counts as forward (idempotent re-receipt).
func (s AlertStatus) CanTransition(next AlertStatus) bool {
	from, to := statusRank(s), statusRank(next)
	if from < 0 || to < 0 {
		return false
	}
	return to >= from
}

// Alert is one notable event: a poaching risk, a corridor breach, a collar
// battery warning and so on.
type Alert struct {
	ID         string        `json:"id"`
	Severity   AlertSeverity `json:"severity"`
	AlertType  string        `json:"alert_type"`
	AnimalID   string        `json:"animal_id,omitempty"`
	AnimalName string        `json:"animal_name,omitempty"`
	Position   *Position     `json:"position,omitempty"`
	Message    string        `json:"message,omitempty"`
	Status     AlertStatus   `json:"status"`
	DetectedAt time.Time     `json:"detected_at"`
}

// Clone returns a deep copy of the alert.
func (a Alert) Clone() Alert {
	out := a
	if a.Position != nil {
		p := *a.Position
		out.Position = &p
	}
	return out
}

// IsCriticalBand reports whether the alert counts into the critical stats
// band: severity critical, or a type naming an emergency outright.
func (a Alert) IsCriticalBand() bool {
	t := strings.ToLower(a.AlertType)
	return a.Severity == SeverityCritical ||
		strings.Contains(t, "critical") || strings.Contains(t, "emergency")
}

// IsHighBand reports whether the alert counts into the high stats band.
// Alerts already in the critical band are excluded by the caller.
func (a Alert) IsHighBand() bool {
	return a.Severity == SeverityHigh || strings.Contains(strings.ToLower(a.AlertType), "high")
}

// alertIdentityNamespace is the fixed UUIDv5 namespace for derived alert
// identities. Changing it would change every derived ID, breaking dedup
// across sessions, so it is a constant.
var alertIdentityNamespace = uuid.MustParse("7f1ab3c4-32a9-4e0f-9a57-6c2dc15f38b1")

// DeriveAlertID computes the deterministic fallback identity for an alert
// whose origin supplied no ID. Coordinates are rounded to three decimals
// (~110m) so GPS jitter does not split one event into many identities.
func DeriveAlertID(animalID, alertType string, detectedAt time.Time, pos *Position) string {
	lat, lon := 0.0, 0.0
	if pos != nil {
		lat, lon = roundCoord(pos.Lat), roundCoord(pos.Lon)
	}
	seed := fmt.Sprintf("%s|%s|%s|%.3f|%.3f",
		animalID,
		strings.ToLower(alertType),
		detectedAt.UTC().Format(time.RFC3339),
		lat, lon,
	)
	return uuid.NewSHA1(alertIdentityNamespace, []byte(seed)).String()
}

// roundCoord rounds a coordinate to three decimal places.
func roundCoord(v float64) float64 {
	if v >= 0 {
		return float64(int64(v*1000+0.5)) / 1000
	}
	return float64(int64(v*1000-0.5)) / 1000
}
