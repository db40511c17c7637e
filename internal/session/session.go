// Rangerscope - Wildlife Tracking and Anti-Poaching Field Operations
// Copyright 2026 Rangerscope Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rangerscope/rangerscope

// Package session wires the stream, state store, path tracker, alert
// deduplicator, REST fallback, and local re-broadcast hub into one field
// session.
//
// All model mutation happens on the stream dispatch goroutine (or, in
// degraded mode, the fallback poller goroutine, which only runs while the
// stream is down). Readers go through the accessors and always get copies.
package session

import (
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/rangerscope/rangerscope/internal/alerts"
	"github.com/rangerscope/rangerscope/internal/fallback"
	"github.com/rangerscope/rangerscope/internal/logging"
	"github.com/rangerscope/rangerscope/internal/metrics"
	"github.com/rangerscope/rangerscope/internal/models"
	"github.com/rangerscope/rangerscope/internal/paths"
	"github.com/rangerscope/rangerscope/internal/state"
	"github.com/rangerscope/rangerscope/internal/stream"
	"github.com/rangerscope/rangerscope/internal/websocket"
	"github.com/rs/zerolog"
)

// Broadcaster is the subset of the websocket hub the session pushes to.
type Broadcaster interface {
	BroadcastSnapshot(animals []models.AnimalState)
	BroadcastAnimalUpdate(state models.AnimalState)
	BroadcastAlert(alert models.Alert)
	BroadcastAlertStats(stats alerts.Stats)
	BroadcastStreamStatus(status, message string)
}

var _ Broadcaster = (*websocket.Hub)(nil)

// Session is one field monitoring session. Safe for concurrent use.
type Session struct {
	stream   *stream.Manager
	store    *state.Store
	tracker  *paths.Tracker
	dedup    *alerts.Deduplicator
	fallback *fallback.Client
	hub      Broadcaster

	unsubscribes []func()
	log          zerolog.Logger
}

// New wires a session. The fallback client and hub are optional; a nil
// hub disables re-broadcast and a nil fallback disables degraded polling.
func New(sm *stream.Manager, fb *fallback.Client, hub Broadcaster, maxPathPoints int) *Session {
	s := &Session{
		stream:   sm,
		store:    state.NewStore(),
		tracker:  paths.NewTracker(maxPathPoints),
		dedup:    alerts.NewDeduplicator(),
		fallback: fb,
		hub:      hub,
		log:      logging.WithComponent("session"),
	}

	s.unsubscribes = append(s.unsubscribes,
		sm.On(stream.EventConnection, s.onConnection),
		sm.On(stream.EventInitialData, s.onInitialData),
		sm.On(stream.EventPositionUpdate, s.onPositionUpdate),
		sm.On(stream.EventStateChange, s.onPositionUpdate),
		sm.On(stream.EventAlert, s.onAlert),
		sm.On(stream.EventError, s.onStreamError),
	)
	return s
}

// Close detaches the session from the stream. The stream manager itself is
// owned by the supervisor and is not stopped here.
func (s *Session) Close() {
	for _, off := range s.unsubscribes {
		off()
	}
	s.unsubscribes = nil
}

// onConnection relays stream lifecycle transitions to local clients.
func (s *Session) onConnection(e stream.Event) {
	var payload struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(e.Data, &payload); err != nil {
		return
	}
	s.log.Info().Str("status", payload.Status).Msg("stream connection status")
	if s.hub != nil {
		s.hub.BroadcastStreamStatus(payload.Status, payload.Message)
	}
}

// onInitialData replaces the world with the snapshot the backend sends on
// connect. Path trails reset with it: the old trails belong to the old
// world.
func (s *Session) onInitialData(e stream.Event) {
	updates, skipped, err := models.ParseAnimalUpdates(e.Data)
	if err != nil {
		metrics.StreamMessageErrors.WithLabelValues("initial_data").Inc()
		s.log.Warn().Err(err).Msg("malformed initial snapshot ignored")
		return
	}
	if skipped > 0 {
		metrics.StateRecordsSkipped.WithLabelValues("malformed").Add(float64(skipped))
	}

	if s.store.ApplyInitialSnapshot(updates) == 0 {
		return
	}
	s.tracker.ClearAll()
	s.publishAge()
	if s.hub != nil {
		s.hub.BroadcastSnapshot(s.store.Snapshot())
	}
}

// onPositionUpdate merges a batch of partial updates, one animal at a time
// in arrival order.
func (s *Session) onPositionUpdate(e stream.Event) {
	updates, skipped, err := models.ParseAnimalUpdates(e.Data)
	if err != nil {
		// Some backends send a single animal object for state changes.
		if u, ok := parseSingleAnimal(e.Data); ok {
			updates = []models.AnimalUpdate{u}
		} else {
			metrics.StreamMessageErrors.WithLabelValues("position_update").Inc()
			s.log.Warn().Err(err).Msg("malformed position update ignored")
			return
		}
	}
	if skipped > 0 {
		metrics.StateRecordsSkipped.WithLabelValues("malformed").Add(float64(skipped))
		s.log.Debug().Int("skipped", skipped).Msg("skipped malformed animal records")
	}

	for _, u := range updates {
		s.applyUpdate(u)
	}
	s.publishAge()
}

// applyUpdate runs one update through merge, path gating, and broadcast.
func (s *Session) applyUpdate(u models.AnimalUpdate) {
	next, ok := s.store.ApplyUpdate(u)
	if !ok {
		return
	}
	s.tracker.Record(next)
	if s.hub != nil {
		s.hub.BroadcastAnimalUpdate(next)
	}
}

// onAlert ingests one alert and, for critical or high alerts naming an
// animal, escalates that animal's risk until the next authoritative risk
// update arrives.
func (s *Session) onAlert(e stream.Event) {
	raw, err := models.ParseRawAlert(e.Data)
	if err != nil {
		metrics.StreamMessageErrors.WithLabelValues("alert").Inc()
		s.log.Warn().Err(err).Msg("malformed alert ignored")
		return
	}

	alert, ok := s.dedup.Ingest(raw)
	if !ok {
		return
	}
	if s.hub != nil {
		s.hub.BroadcastAlert(alert)
		s.hub.BroadcastAlertStats(s.dedup.Stats())
	}
	s.escalateFromAlert(alert)
}

// escalateFromAlert force-raises the referenced animal's risk and conflict
// zone for critical and high alerts. Both ingest paths call it, so the
// escalation holds whether the alert arrived over the stream or over the
// REST fallback.
func (s *Session) escalateFromAlert(alert models.Alert) {
	if alert.AnimalID == "" {
		return
	}
	var risk models.RiskLevel
	switch {
	case alert.IsCriticalBand():
		risk = models.RiskCritical
	case alert.Severity == models.SeverityHigh:
		risk = models.RiskHigh
	default:
		return
	}
	if escalated, ok := s.store.ApplyEscalation(alert.AnimalID, risk, escalationZone(alert)); ok {
		if s.hub != nil {
			s.hub.BroadcastAnimalUpdate(escalated)
		}
	}
}

// escalationZone builds conflict-zone metadata from an alert. The zone name
// prefers the human-readable message, falling back to the alert type.
func escalationZone(a models.Alert) *models.ConflictZone {
	name := a.Message
	if name == "" {
		name = a.AlertType
	}
	return &models.ConflictZone{
		Name: name,
		Type: strings.ToLower(a.AlertType),
	}
}

// onStreamError logs backend-reported errors.
func (s *Session) onStreamError(e stream.Event) {
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(e.Data, &payload); err != nil {
		return
	}
	msg := payload.Error
	if msg == "" {
		msg = payload.Message
	}
	s.log.Warn().Str("backend_error", msg).Msg("backend stream reported an error")
}

// parseSingleAnimal decodes a lone animal record, flat or under an
// "animal" key.
func parseSingleAnimal(data []byte) (models.AnimalUpdate, bool) {
	var wrapped struct {
		Animal *models.RawAnimal `json:"animal"`
	}
	if err := json.Unmarshal(data, &wrapped); err == nil && wrapped.Animal != nil {
		return wrapped.Animal.Update()
	}
	var raw models.RawAnimal
	if err := json.Unmarshal(data, &raw); err != nil {
		return models.AnimalUpdate{}, false
	}
	return raw.Update()
}

// publishAge refreshes the staleness gauge.
func (s *Session) publishAge() {
	if last := s.store.LastApplied(); !last.IsZero() {
		metrics.LastUpdateAge.Set(time.Since(last).Seconds())
	}
}

// Stream returns the underlying stream manager.
func (s *Session) Stream() *stream.Manager {
	return s.stream
}

// Animals returns the current snapshot in first-seen order.
func (s *Session) Animals() []models.AnimalState {
	return s.store.Snapshot()
}

// Animal returns one animal's current state.
func (s *Session) Animal(id string) (models.AnimalState, bool) {
	return s.store.Get(id)
}

// Path returns one animal's movement trail.
func (s *Session) Path(id string) []models.PathPoint {
	return s.tracker.Get(id)
}

// Alerts returns every retained alert, newest first.
func (s *Session) Alerts() []models.Alert {
	return s.dedup.All()
}

// ActiveAlerts returns the unresolved alerts, newest first.
func (s *Session) ActiveAlerts() []models.Alert {
	return s.dedup.Active()
}

// AlertStats returns the alert severity summary.
func (s *Session) AlertStats() alerts.Stats {
	return s.dedup.Stats()
}

// SetAlertStatus advances an alert's handling status.
func (s *Session) SetAlertStatus(alertID string, next models.AlertStatus) (models.AlertStatus, bool) {
	status, ok := s.dedup.SetStatus(alertID, next)
	if ok && s.hub != nil {
		s.hub.BroadcastAlertStats(s.dedup.Stats())
	}
	return status, ok
}

// SubscribeToAnimal forwards a per-animal subscription to the backend.
func (s *Session) SubscribeToAnimal(animalID string) error {
	return s.stream.SubscribeToAnimal(animalID)
}

// UnsubscribeFromAnimal cancels a per-animal subscription.
func (s *Session) UnsubscribeFromAnimal(animalID string) error {
	return s.stream.UnsubscribeFromAnimal(animalID)
}

// Status summarizes the session for the status endpoint.
type Status struct {
	StreamState    string    `json:"stream_state"`
	AnimalsTracked int       `json:"animals_tracked"`
	ActiveAlerts   int       `json:"active_alerts"`
	TotalAlerts    int       `json:"total_alerts"`
	LastUpdate     time.Time `json:"last_update"`
	Degraded       bool      `json:"degraded"`
}

// Status reports the current session health.
func (s *Session) Status() Status {
	stats := s.dedup.Stats()
	return Status{
		StreamState:    s.stream.State().String(),
		AnimalsTracked: s.store.Len(),
		ActiveAlerts:   stats.Active,
		TotalAlerts:    stats.Total,
		LastUpdate:     s.store.LastApplied(),
		Degraded:       !s.stream.IsConnected(),
	}
}
