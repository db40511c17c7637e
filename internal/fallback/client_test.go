// Rangerscope - Wildlife Tracking and Anti-Poaching Field Operations
// Copyright 2026 Rangerscope Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rangerscope/rangerscope

package fallback

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func newClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	c, err := NewClient(Config{
		BaseURL:           baseURL,
		Timeout:           2 * time.Second,
		RequestsPerMinute: 6000,
	})
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestLiveAnimals(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/animals/live" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"results": [{"id": "e1", "species": "elephant"}, {"id": 2}]}`))
	}))
	defer srv.Close()

	c := newClient(t, srv.URL)
	updates, err := c.LiveAnimals(context.Background())
	if err != nil {
		t.Fatalf("LiveAnimals: %v", err)
	}
	if len(updates) != 2 {
		t.Fatalf("len = %d, want 2", len(updates))
	}
	if updates[0].ID != "e1" || updates[1].ID != "2" {
		t.Errorf("IDs = %s, %s", updates[0].ID, updates[1].ID)
	}

	cached, at, err := c.LastKnownAnimals()
	if err != nil || len(cached) != 2 || at.IsZero() {
		t.Errorf("cache not populated: %v, %d, %v", err, len(cached), at)
	}
}

func TestActiveAlertsBareArray(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/alerts/active" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`[{"id": "a1", "alert_type": "poaching_risk", "severity": "high"}]`))
	}))
	defer srv.Close()

	c := newClient(t, srv.URL)
	alerts, err := c.ActiveAlerts(context.Background())
	if err != nil {
		t.Fatalf("ActiveAlerts: %v", err)
	}
	if len(alerts) != 1 || alerts[0].ID != "a1" {
		t.Errorf("alerts = %+v", alerts)
	}
}

func TestHTTPErrorDoesNotClobberCache(t *testing.T) {
	var fail atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`[{"id": "e1"}]`))
	}))
	defer srv.Close()

	c := newClient(t, srv.URL)
	if _, err := c.LiveAnimals(context.Background()); err != nil {
		t.Fatal(err)
	}

	fail.Store(true)
	if _, err := c.LiveAnimals(context.Background()); err == nil {
		t.Fatal("expected error on HTTP 502")
	}

	cached, _, err := c.LastKnownAnimals()
	if err != nil || len(cached) != 1 {
		t.Errorf("cache lost after failure: %v, %d", err, len(cached))
	}
}

func TestNoCachedData(t *testing.T) {
	c := newClient(t, "http://127.0.0.1:1")
	if _, _, err := c.LastKnownAnimals(); err != ErrNoCachedData {
		t.Errorf("err = %v, want ErrNoCachedData", err)
	}
	if _, _, err := c.LastKnownAlerts(); err != ErrNoCachedData {
		t.Errorf("err = %v, want ErrNoCachedData", err)
	}
}

func TestCircuitOpensAfterRepeatedFailures(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := newClient(t, srv.URL)
	for i := 0; i < 10; i++ {
		c.LiveAnimals(context.Background())
	}

	// With the breaker open, further requests never reach the server.
	reached := hits.Load()
	if _, err := c.LiveAnimals(context.Background()); err == nil {
		t.Fatal("expected rejection with open breaker")
	}
	if hits.Load() != reached {
		t.Error("request reached the server with open breaker")
	}
}

func TestMalformedPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status": "ok"}`))
	}))
	defer srv.Close()

	c := newClient(t, srv.URL)
	if _, err := c.LiveAnimals(context.Background()); err == nil {
		t.Error("expected error for non-list payload")
	}
}

func TestInvalidBaseURL(t *testing.T) {
	if _, err := NewClient(Config{BaseURL: "not a url"}); err == nil {
		t.Error("expected error for invalid base url")
	}
	if _, err := NewClient(Config{BaseURL: ""}); err == nil {
		t.Error("expected error for empty base url")
	}
}
