// Rangerscope - Wildlife Tracking and Anti-Poaching Field Operations
// Copyright 2026 Rangerscope Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rangerscope/rangerscope

package paths

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rangerscope/rangerscope/internal/models"
)

func movingState(id string, lat, lon float64) models.AnimalState {
	return models.AnimalState{
		ID:           id,
		Position:     &models.Position{Lat: lat, Lon: lon},
		ActivityType: models.ActivityMoving,
		SpeedKmh:     4,
		PathColor:    "safe-green",
		LastUpdated:  time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestRecordGating(t *testing.T) {
	tr := NewTracker(0)

	t.Run("moving with valid position recorded", func(t *testing.T) {
		if !tr.Record(movingState("e1", -1.29, 36.82)) {
			t.Error("expected point to be recorded")
		}
		if tr.Len("e1") != 1 {
			t.Errorf("Len = %d, want 1", tr.Len("e1"))
		}
	})

	t.Run("resting not recorded", func(t *testing.T) {
		s := movingState("e1", -1.30, 36.83)
		s.ActivityType = models.ActivityResting
		if tr.Record(s) {
			t.Error("resting state must not be recorded")
		}
	})

	t.Run("feeding recorded", func(t *testing.T) {
		s := movingState("e1", -1.30, 36.83)
		s.ActivityType = models.ActivityFeeding
		if !tr.Record(s) {
			t.Error("feeding state should be recorded")
		}
	})

	t.Run("missing position not recorded", func(t *testing.T) {
		s := movingState("e1", 0, 0)
		s.Position = nil
		if tr.Record(s) {
			t.Error("nil position must not be recorded")
		}
	})

	t.Run("zero sentinel not recorded", func(t *testing.T) {
		if tr.Record(movingState("e1", 0, 0)) {
			t.Error("(0,0) sentinel must not be recorded")
		}
	})

	t.Run("out of bounds not recorded", func(t *testing.T) {
		if tr.Record(movingState("e1", 95, 36.82)) {
			t.Error("out-of-bounds position must not be recorded")
		}
	})
}

func TestTrailCapFIFO(t *testing.T) {
	tr := NewTracker(50)

	for i := 0; i < 60; i++ {
		s := movingState("e1", -1.0-float64(i)*0.25, 36.0)
		if !tr.Record(s) {
			t.Fatalf("point %d not recorded", i)
		}
	}

	trail := tr.Get("e1")
	if len(trail) != 50 {
		t.Fatalf("trail length = %d, want 50", len(trail))
	}
	// Oldest 10 evicted: first retained point is the 11th recorded.
	if trail[0].Lat != -3.5 {
		t.Errorf("first retained Lat = %v, want -3.5", trail[0].Lat)
	}
	if trail[49].Lat != -15.75 {
		t.Errorf("last retained Lat = %v, want -15.75", trail[49].Lat)
	}
}

func TestGetReturnsCopy(t *testing.T) {
	tr := NewTracker(10)
	tr.Record(movingState("e1", -1.29, 36.82))

	trail := tr.Get("e1")
	trail[0].Lat = 99

	if tr.Get("e1")[0].Lat != -1.29 {
		t.Error("Get returned a slice aliasing internal storage")
	}
}

func TestGetUnknownAnimal(t *testing.T) {
	tr := NewTracker(10)
	if trail := tr.Get("ghost"); len(trail) != 0 {
		t.Errorf("unknown animal trail length = %d, want 0", len(trail))
	}
}

func TestClear(t *testing.T) {
	tr := NewTracker(10)
	tr.Record(movingState("e1", -1.29, 36.82))
	tr.Record(movingState("e2", -1.30, 36.83))

	tr.Clear("e1")
	if tr.Len("e1") != 0 {
		t.Error("Clear did not remove trail")
	}
	if tr.Len("e2") != 1 {
		t.Error("Clear removed the wrong trail")
	}

	tr.ClearAll()
	if tr.Len("e2") != 0 {
		t.Error("ClearAll did not remove all trails")
	}
}

func TestConcurrentRecordAndGet(t *testing.T) {
	tr := NewTracker(50)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		id := fmt.Sprintf("animal-%d", i%4)
		go func(id string) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				tr.Record(movingState(id, -1.0, 36.0))
			}
		}(id)
		go func(id string) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				tr.Get(id)
			}
		}(id)
	}
	wg.Wait()
}
