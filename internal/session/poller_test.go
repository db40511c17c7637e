// Rangerscope - Wildlife Tracking and Anti-Poaching Field Operations
// Copyright 2026 Rangerscope Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rangerscope/rangerscope

package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rangerscope/rangerscope/internal/classify"
	"github.com/rangerscope/rangerscope/internal/fallback"
	"github.com/rangerscope/rangerscope/internal/models"
	"github.com/rangerscope/rangerscope/internal/stream"
)

func newRESTServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/animals/live":
			w.Write([]byte(`{"results": [{"id": "e1", "lat": -1.29, "lon": 36.82, "speed": 3}]}`))
		case "/api/alerts/active":
			w.Write([]byte(`[{"id": "a1", "alert_type": "poaching_risk", "severity": "high"}]`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newDegradedSession(t *testing.T) (*Session, *fakeHub) {
	t.Helper()
	rest := newRESTServer(t)
	fb, err := fallback.NewClient(fallback.Config{BaseURL: rest.URL, RequestsPerMinute: 6000})
	if err != nil {
		t.Fatal(err)
	}
	// The stream manager points nowhere and stays disconnected.
	m, err := stream.NewManager("ws://127.0.0.1:1/stream")
	if err != nil {
		t.Fatal(err)
	}
	hub := &fakeHub{}
	s := New(m, fb, hub, 50)
	t.Cleanup(s.Close)
	return s, hub
}

func TestPollerAppliesWhileDisconnected(t *testing.T) {
	s, hub := newDegradedSession(t)
	p := NewPoller(s, time.Hour)

	p.poll(context.Background())

	if len(s.Animals()) != 1 {
		t.Fatalf("animals = %d, want 1 from fallback", len(s.Animals()))
	}
	if len(s.ActiveAlerts()) != 1 {
		t.Fatalf("alerts = %d, want 1 from fallback", len(s.ActiveAlerts()))
	}
	if hub.updateCount() != 1 {
		t.Errorf("hub updates = %d, want 1", hub.updateCount())
	}

	// Polling again replaces, not duplicates.
	p.poll(context.Background())
	if len(s.Animals()) != 1 || len(s.ActiveAlerts()) != 1 {
		t.Error("fallback poll duplicated records")
	}
}

func TestPollerEscalatesFromFallbackAlerts(t *testing.T) {
	rest := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/animals/live":
			w.Write([]byte(`{"results": [{"id": "e1", "lat": -1.29, "lon": 36.82, "speed": 3, "risk_level": "low"}]}`))
		case "/api/alerts/active":
			w.Write([]byte(`[{"id": "a1", "alert_type": "poaching_risk", "severity": "critical",
				"animal_id": "e1", "message": "shots heard"}]`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(rest.Close)

	fb, err := fallback.NewClient(fallback.Config{BaseURL: rest.URL, RequestsPerMinute: 6000})
	if err != nil {
		t.Fatal(err)
	}
	m, err := stream.NewManager("ws://127.0.0.1:1/stream")
	if err != nil {
		t.Fatal(err)
	}
	hub := &fakeHub{}
	s := New(m, fb, hub, 50)
	t.Cleanup(s.Close)

	// A critical alert arriving over REST must escalate exactly like one
	// arriving over the stream.
	NewPoller(s, time.Hour).poll(context.Background())

	got, ok := s.Animal("e1")
	if !ok {
		t.Fatal("e1 missing after poll")
	}
	if got.RiskLevel != models.RiskCritical {
		t.Errorf("RiskLevel = %v, want critical from fallback alert", got.RiskLevel)
	}
	if got.MarkerColor != classify.ColorDangerRed {
		t.Errorf("MarkerColor = %q, want danger", got.MarkerColor)
	}
	if got.ConflictZone == nil || got.ConflictZone.Name != "shots heard" {
		t.Errorf("ConflictZone = %+v, want zone from alert", got.ConflictZone)
	}
	// One broadcast for the merge, one for the escalation.
	if hub.updateCount() != 2 {
		t.Errorf("hub updates = %d, want 2", hub.updateCount())
	}
}

func TestPollerDefaultInterval(t *testing.T) {
	s, _ := newDegradedSession(t)
	p := NewPoller(s, 0)
	if p.interval != DefaultPollInterval {
		t.Errorf("interval = %v, want default", p.interval)
	}
}

func TestPollerServeStopsOnCancel(t *testing.T) {
	s, _ := newDegradedSession(t)
	p := NewPoller(s, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Serve(ctx) }()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("Serve returned %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Serve did not stop")
	}
}
