// Rangerscope - Wildlife Tracking and Anti-Poaching Field Operations
// Copyright 2026 Rangerscope Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rangerscope/rangerscope

package models

import (
	"testing"
	"time"
)

func TestPositionValid(t *testing.T) {
	tests := []struct {
		name string
		pos  Position
		want bool
	}{
		{"nairobi", Position{Lat: -1.2921, Lon: 36.8219}, true},
		{"zero sentinel", Position{Lat: 0, Lon: 0}, false},
		{"near-zero sentinel", Position{Lat: 1e-9, Lon: -1e-9}, false},
		{"equator crossing", Position{Lat: 0, Lon: 36.8}, true},
		{"prime meridian", Position{Lat: 51.5, Lon: 0}, true},
		{"lat too high", Position{Lat: 90.1, Lon: 10}, false},
		{"lat too low", Position{Lat: -90.1, Lon: 10}, false},
		{"lon too high", Position{Lat: 10, Lon: 180.1}, false},
		{"lon too low", Position{Lat: 10, Lon: -180.1}, false},
		{"poles", Position{Lat: -90, Lon: 180}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.pos.Valid(); got != tt.want {
				t.Errorf("Valid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPositionIsUnknown(t *testing.T) {
	if !(Position{}).IsUnknown() {
		t.Error("zero position should be unknown")
	}
	if (Position{Lat: -1.29, Lon: 36.82}).IsUnknown() {
		t.Error("real position should not be unknown")
	}
}

func TestAnimalUpdateMergeNonClobber(t *testing.T) {
	prev := AnimalState{
		ID:             "elephant-007",
		Species:        "elephant",
		Name:           "Tembo",
		Position:       &Position{Lat: -1.30, Lon: 36.80},
		ActivityType:   ActivityFeeding,
		SpeedKmh:       1.2,
		RiskLevel:      RiskHigh,
		BatteryPercent: 82,
		LastUpdated:    time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}

	speed := 3.4
	pos := Position{Lat: -1.31, Lon: 36.81}
	ts := time.Date(2026, 3, 1, 10, 5, 0, 0, time.UTC)
	update := AnimalUpdate{
		ID:          "elephant-007",
		Position:    &pos,
		SpeedKmh:    &speed,
		LastUpdated: &ts,
	}

	next := update.Merge(prev)

	if next.Position == nil || next.Position.Lat != -1.31 {
		t.Errorf("position not applied: %+v", next.Position)
	}
	if next.SpeedKmh != 3.4 {
		t.Errorf("SpeedKmh = %v, want 3.4", next.SpeedKmh)
	}
	if !next.LastUpdated.Equal(ts) {
		t.Errorf("LastUpdated = %v, want %v", next.LastUpdated, ts)
	}

	// Fields absent from the update must survive untouched.
	if next.Species != "elephant" || next.Name != "Tembo" {
		t.Errorf("identity fields clobbered: %+v", next)
	}
	if next.RiskLevel != RiskHigh {
		t.Errorf("RiskLevel = %v, want high", next.RiskLevel)
	}
	if next.ActivityType != ActivityFeeding {
		t.Errorf("ActivityType = %v, want feeding", next.ActivityType)
	}
	if next.BatteryPercent != 82 {
		t.Errorf("BatteryPercent = %v, want 82", next.BatteryPercent)
	}
}

func TestAnimalUpdateMergeRecordsReportedActivity(t *testing.T) {
	act := ActivityResting
	next := AnimalUpdate{ID: "e1", ActivityType: &act}.Merge(AnimalState{ID: "e1"})
	if next.ReportedActivity == nil || *next.ReportedActivity != ActivityResting {
		t.Errorf("ReportedActivity = %v, want resting recorded", next.ReportedActivity)
	}

	// A speed-only follow-up keeps the report but never creates one.
	speed := 5.0
	next = AnimalUpdate{ID: "e1", SpeedKmh: &speed}.Merge(next)
	if next.ReportedActivity == nil || *next.ReportedActivity != ActivityResting {
		t.Errorf("ReportedActivity = %v, want report retained", next.ReportedActivity)
	}
	if fresh := (AnimalUpdate{ID: "e2", SpeedKmh: &speed}).Baseline(); fresh.ReportedActivity != nil {
		t.Errorf("ReportedActivity = %v, want nil without a collar report", fresh.ReportedActivity)
	}
}

func TestAnimalUpdateMergeDoesNotAliasPrev(t *testing.T) {
	prev := AnimalState{
		ID:       "rhino-001",
		Position: &Position{Lat: -2.0, Lon: 35.0},
	}
	next := AnimalUpdate{ID: "rhino-001"}.Merge(prev)

	next.Position.Lat = 99
	if prev.Position.Lat != -2.0 {
		t.Error("merge result shares Position pointer with prev")
	}
}

func TestAnimalUpdateBaseline(t *testing.T) {
	name := "Kifaru"
	u := AnimalUpdate{ID: "rhino-002", Name: &name}
	state := u.Baseline()

	if state.ID != "rhino-002" || state.Name != "Kifaru" {
		t.Errorf("baseline = %+v", state)
	}
	if state.ActivityType != ActivityUnknown {
		t.Errorf("ActivityType = %v, want unknown", state.ActivityType)
	}
	if state.RiskLevel != RiskLow {
		t.Errorf("RiskLevel = %v, want low", state.RiskLevel)
	}
	if state.Position != nil {
		t.Error("baseline must not invent a position")
	}
}

func TestAnimalStateClone(t *testing.T) {
	act := ActivityFeeding
	orig := AnimalState{
		ID:               "lion-003",
		Position:         &Position{Lat: -1.4, Lon: 36.9},
		ReportedActivity: &act,
		ConflictZone:     &ConflictZone{Name: "north farm", Type: "farmland"},
	}
	cp := orig.Clone()
	cp.Position.Lat = 0
	*cp.ReportedActivity = ActivityMoving
	cp.ConflictZone.Name = "changed"

	if orig.Position.Lat != -1.4 {
		t.Error("clone shares Position pointer")
	}
	if *orig.ReportedActivity != ActivityFeeding {
		t.Error("clone shares ReportedActivity pointer")
	}
	if orig.ConflictZone.Name != "north farm" {
		t.Error("clone shares ConflictZone pointer")
	}
}
