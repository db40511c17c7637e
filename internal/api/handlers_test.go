// Rangerscope - Wildlife Tracking and Anti-Poaching Field Operations
// Copyright 2026 Rangerscope Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rangerscope/rangerscope

package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/rangerscope/rangerscope/internal/fallback"
	"github.com/rangerscope/rangerscope/internal/models"
	"github.com/rangerscope/rangerscope/internal/session"
	"github.com/rangerscope/rangerscope/internal/stream"
)

// envelope mirrors models.APIResponse with a raw payload for per-test
// decoding.
type envelope struct {
	Status string           `json:"status"`
	Data   json.RawMessage  `json:"data"`
	Error  *models.APIError `json:"error"`
}

// newTestSession builds a session fed once over the REST fallback. The
// stream manager points at a dead address so the poller applies its data.
func newTestSession(t *testing.T) *session.Session {
	t.Helper()
	rest := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/animals/live":
			w.Write([]byte(`{"results": [
				{"id": "e1", "species": "elephant", "name": "Tembo", "lat": -1.29, "lon": 36.82, "speed": 4},
				{"id": "r1", "species": "rhino", "lat": -1.31, "lon": 36.80, "activity": "resting"}
			]}`))
		case "/api/alerts/active":
			w.Write([]byte(`[
				{"id": "a1", "alert_type": "poaching_risk", "severity": "critical", "animal_id": "e1", "message": "shots heard"},
				{"id": "a2", "alert_type": "battery_low", "severity": "medium", "animal_id": "r1"}
			]`))
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
	s := session.New(m, fb, nil, 50)
	t.Cleanup(s.Close)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		session.NewPoller(s, 5*time.Millisecond).Serve(ctx)
	}()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && (len(s.Animals()) < 2 || len(s.Alerts()) < 2) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	<-done
	if len(s.Animals()) < 2 || len(s.Alerts()) < 2 {
		t.Fatal("session did not populate from fallback")
	}
	return s
}

func newTestAPI(t *testing.T) (*httptest.Server, *session.Session) {
	t.Helper()
	s := newTestSession(t)
	router := NewRouter(NewHandler(s, nil, []string{"*"}), nil)
	srv := httptest.NewServer(router.Setup())
	t.Cleanup(srv.Close)
	return srv, s
}

func get(t *testing.T, srv *httptest.Server, path string) (int, envelope) {
	t.Helper()
	resp, err := http.Get(srv.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	defer resp.Body.Close()
	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("decode %s: %v", path, err)
	}
	return resp.StatusCode, env
}

func post(t *testing.T, srv *httptest.Server, path, body string) (int, envelope) {
	t.Helper()
	resp, err := http.Post(srv.URL+path, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	defer resp.Body.Close()
	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("decode %s: %v", path, err)
	}
	return resp.StatusCode, env
}

func TestAnimalsEndpoint(t *testing.T) {
	srv, _ := newTestAPI(t)

	code, env := get(t, srv, "/api/v1/animals")
	if code != http.StatusOK || env.Status != "success" {
		t.Fatalf("code = %d, status = %q", code, env.Status)
	}
	var animals []models.AnimalState
	if err := json.Unmarshal(env.Data, &animals); err != nil {
		t.Fatal(err)
	}
	if len(animals) != 2 || animals[0].ID != "e1" {
		t.Errorf("animals = %+v", animals)
	}
	if animals[0].MarkerColor == "" {
		t.Error("animal not classified")
	}
}

func TestAnimalNotFound(t *testing.T) {
	srv, _ := newTestAPI(t)

	code, env := get(t, srv, "/api/v1/animals/ghost")
	if code != http.StatusNotFound {
		t.Fatalf("code = %d, want 404", code)
	}
	if env.Error == nil || env.Error.Code != "ANIMAL_NOT_FOUND" {
		t.Errorf("error = %+v", env.Error)
	}
}

func TestAnimalPathEndpoint(t *testing.T) {
	srv, _ := newTestAPI(t)

	// e1 is moving with a valid position, so one poll leaves one point.
	code, env := get(t, srv, "/api/v1/animals/e1/path")
	if code != http.StatusOK {
		t.Fatalf("code = %d", code)
	}
	var trail []models.PathPoint
	if err := json.Unmarshal(env.Data, &trail); err != nil {
		t.Fatal(err)
	}
	if len(trail) == 0 {
		t.Error("expected at least one path point")
	}

	// r1 is resting and leaves no trail, but the endpoint still succeeds.
	code, env = get(t, srv, "/api/v1/animals/r1/path")
	if code != http.StatusOK {
		t.Fatalf("code = %d", code)
	}
	var resting []models.PathPoint
	if err := json.Unmarshal(env.Data, &resting); err != nil {
		t.Fatal(err)
	}
	if len(resting) != 0 {
		t.Errorf("resting trail = %d points", len(resting))
	}
}

func TestAlertsEndpointAndFilter(t *testing.T) {
	srv, s := newTestAPI(t)

	code, env := get(t, srv, "/api/v1/alerts")
	if code != http.StatusOK {
		t.Fatalf("code = %d", code)
	}
	var all []models.Alert
	if err := json.Unmarshal(env.Data, &all); err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Fatalf("alerts = %d, want 2", len(all))
	}

	// Resolve one alert and filter to active.
	s.SetAlertStatus("a2", models.StatusResolved)
	code, env = get(t, srv, "/api/v1/alerts?status=active")
	if code != http.StatusOK {
		t.Fatalf("code = %d", code)
	}
	var active []models.Alert
	if err := json.Unmarshal(env.Data, &active); err != nil {
		t.Fatal(err)
	}
	if len(active) != 1 || active[0].ID != "a1" {
		t.Errorf("active = %+v", active)
	}
}

func TestAlertsRejectsUnknownFilter(t *testing.T) {
	srv, _ := newTestAPI(t)

	code, env := get(t, srv, "/api/v1/alerts?status=archived")
	if code != http.StatusBadRequest {
		t.Fatalf("code = %d, want 400", code)
	}
	if env.Error == nil || env.Error.Code != "VALIDATION_ERROR" {
		t.Errorf("error = %+v", env.Error)
	}
}

func TestAlertStatsEndpoint(t *testing.T) {
	srv, _ := newTestAPI(t)

	code, env := get(t, srv, "/api/v1/alerts/stats")
	if code != http.StatusOK {
		t.Fatalf("code = %d", code)
	}
	var stats struct {
		Active   int `json:"active"`
		Critical int `json:"critical"`
		Medium   int `json:"medium"`
		Total    int `json:"total"`
	}
	if err := json.Unmarshal(env.Data, &stats); err != nil {
		t.Fatal(err)
	}
	if stats.Total != 2 || stats.Critical != 1 || stats.Medium != 1 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestSetAlertStatusEndpoint(t *testing.T) {
	srv, _ := newTestAPI(t)

	code, env := post(t, srv, "/api/v1/alerts/a1/status", `{"status": "acknowledged"}`)
	if code != http.StatusOK {
		t.Fatalf("code = %d: %+v", code, env.Error)
	}
	var result struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(env.Data, &result); err != nil {
		t.Fatal(err)
	}
	if result.Status != "acknowledged" {
		t.Errorf("status = %q", result.Status)
	}

	// Backward transition reports the status actually kept.
	code, env = post(t, srv, "/api/v1/alerts/a1/status", `{"status": "active"}`)
	if code != http.StatusOK {
		t.Fatalf("code = %d", code)
	}
	if err := json.Unmarshal(env.Data, &result); err != nil {
		t.Fatal(err)
	}
	if result.Status != "acknowledged" {
		t.Errorf("backward transition stored %q, want acknowledged", result.Status)
	}
}

func TestSetAlertStatusValidation(t *testing.T) {
	srv, _ := newTestAPI(t)

	code, _ := post(t, srv, "/api/v1/alerts/a1/status", `{"status": "archived"}`)
	if code != http.StatusBadRequest {
		t.Errorf("bad status: code = %d, want 400", code)
	}

	code, _ = post(t, srv, "/api/v1/alerts/a1/status", `not json`)
	if code != http.StatusBadRequest {
		t.Errorf("bad body: code = %d, want 400", code)
	}

	code, env := post(t, srv, "/api/v1/alerts/ghost/status", `{"status": "resolved"}`)
	if code != http.StatusNotFound {
		t.Errorf("unknown alert: code = %d, want 404", code)
	}
	if env.Error == nil || env.Error.Code != "ALERT_NOT_FOUND" {
		t.Errorf("error = %+v", env.Error)
	}
}

func TestStatusEndpointDegraded(t *testing.T) {
	srv, _ := newTestAPI(t)

	code, env := get(t, srv, "/api/v1/status")
	if code != http.StatusOK {
		t.Fatalf("code = %d", code)
	}
	var st session.Status
	if err := json.Unmarshal(env.Data, &st); err != nil {
		t.Fatal(err)
	}
	if !st.Degraded {
		t.Error("Degraded = false with a dead stream")
	}
	if st.AnimalsTracked != 2 {
		t.Errorf("AnimalsTracked = %d", st.AnimalsTracked)
	}
}

func TestSubscribeWithoutStream(t *testing.T) {
	srv, _ := newTestAPI(t)

	code, env := post(t, srv, "/api/v1/animals/e1/subscribe", "")
	if code != http.StatusServiceUnavailable {
		t.Fatalf("code = %d, want 503", code)
	}
	if env.Error == nil || env.Error.Code != "STREAM_UNAVAILABLE" {
		t.Errorf("error = %+v", env.Error)
	}
}

func TestHealthEndpoints(t *testing.T) {
	srv, _ := newTestAPI(t)

	code, _ := get(t, srv, "/api/v1/health/live")
	if code != http.StatusOK {
		t.Errorf("live: code = %d", code)
	}

	// Model has data, so ready even while the stream is down.
	code, _ = get(t, srv, "/api/v1/health/ready")
	if code != http.StatusOK {
		t.Errorf("ready: code = %d", code)
	}
}

func TestHealthReadyEmptyModel(t *testing.T) {
	m, err := stream.NewManager("ws://127.0.0.1:1/stream")
	if err != nil {
		t.Fatal(err)
	}
	s := session.New(m, nil, nil, 50)
	t.Cleanup(s.Close)
	router := NewRouter(NewHandler(s, nil, []string{"*"}), nil)
	srv := httptest.NewServer(router.Setup())
	t.Cleanup(srv.Close)

	code, env := get(t, srv, "/api/v1/health/ready")
	if code != http.StatusServiceUnavailable {
		t.Fatalf("code = %d, want 503", code)
	}
	if env.Error == nil || env.Error.Code != "NOT_READY" {
		t.Errorf("error = %+v", env.Error)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestAPI(t)

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("code = %d", resp.StatusCode)
	}
}
