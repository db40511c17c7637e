// Rangerscope - Wildlife Tracking and Anti-Poaching Field Operations
// Copyright 2026 Rangerscope Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rangerscope/rangerscope

// Package alerts maintains the deduplicated alert collection.
//
// The backend re-broadcasts alerts on reconnect and on periodic refresh, so
// the same event arrives many times. Identity-based replacement keeps
// exactly one record per event while letting later copies carry updated
// fields.
package alerts

import (
	"sort"
	"sync"

	"github.com/rangerscope/rangerscope/internal/logging"
	"github.com/rangerscope/rangerscope/internal/metrics"
	"github.com/rangerscope/rangerscope/internal/models"
	"github.com/rs/zerolog"
)

// Stats summarizes the retained alerts. The severity bands are mutually
// exclusive and exhaustive: Critical + High + Medium == Total.
type Stats struct {
	Active   int `json:"active"`
	Critical int `json:"critical"`
	High     int `json:"high"`
	Medium   int `json:"medium"`
	Total    int `json:"total"`
}

// entry pairs an alert with its arrival sequence number, used to break
// ties when two alerts share a detection timestamp.
type entry struct {
	alert models.Alert
	seq   uint64
}

// Deduplicator keeps at most one alert per identity. Safe for concurrent
// use.
type Deduplicator struct {
	mu      sync.RWMutex
	byID    map[string]*entry
	nextSeq uint64
	log     zerolog.Logger
}

// NewDeduplicator creates an empty Deduplicator.
func NewDeduplicator() *Deduplicator {
	return &Deduplicator{
		byID: make(map[string]*entry),
		log:  logging.WithComponent("alerts"),
	}
}

// Ingest filters and normalizes a raw alert, then inserts or replaces by
// identity. Returns the canonical alert and true when it was retained.
func (d *Deduplicator) Ingest(raw models.RawAlert) (models.Alert, bool) {
	alert, ok := raw.Normalize()
	if !ok {
		metrics.AlertsDiscarded.WithLabelValues("not_actionable").Inc()
		d.log.Debug().Msg("alert discarded, not actionable")
		return models.Alert{}, false
	}

	d.mu.Lock()
	prev, exists := d.byID[alert.ID]
	if exists {
		// Replacement carries the newer fields but never regresses the
		// handling status a ranger already advanced.
		if !prev.alert.Status.CanTransition(alert.Status) {
			alert.Status = prev.alert.Status
		}
		prev.alert = alert
		prev.seq = d.nextSeq
	} else {
		d.byID[alert.ID] = &entry{alert: alert, seq: d.nextSeq}
	}
	d.nextSeq++
	active := d.activeCountLocked()
	d.mu.Unlock()

	metrics.AlertsIngested.Inc()
	if exists {
		metrics.AlertsReplaced.Inc()
	}
	metrics.AlertsActive.Set(float64(active))

	d.log.Debug().
		Str("alert_id", alert.ID).
		Str("alert_type", alert.AlertType).
		Str("severity", string(alert.Severity)).
		Bool("replaced", exists).
		Msg("alert ingested")
	return alert, true
}

// SetStatus advances an alert's handling status. Backward transitions are
// no-ops and the stored status is returned unchanged.
func (d *Deduplicator) SetStatus(alertID string, next models.AlertStatus) (models.AlertStatus, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	e, ok := d.byID[alertID]
	if !ok {
		metrics.AlertStatusChanges.WithLabelValues(string(next), "unknown_alert").Inc()
		return "", false
	}
	if !e.alert.Status.CanTransition(next) {
		metrics.AlertStatusChanges.WithLabelValues(string(next), "rejected").Inc()
		d.log.Debug().
			Str("alert_id", alertID).
			Str("from", string(e.alert.Status)).
			Str("to", string(next)).
			Msg("backward status transition ignored")
		return e.alert.Status, true
	}
	e.alert.Status = next
	metrics.AlertStatusChanges.WithLabelValues(string(next), "applied").Inc()
	metrics.AlertsActive.Set(float64(d.activeCountLocked()))
	return next, true
}

// Get returns a copy of one alert by identity.
func (d *Deduplicator) Get(alertID string) (models.Alert, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	e, ok := d.byID[alertID]
	if !ok {
		return models.Alert{}, false
	}
	return e.alert.Clone(), true
}

// All returns every retained alert, newest detection first. Alerts with the
// same detection timestamp are ordered most-recently-arrived first.
func (d *Deduplicator) All() []models.Alert {
	d.mu.RLock()
	entries := make([]entry, 0, len(d.byID))
	for _, e := range d.byID {
		entries = append(entries, entry{alert: e.alert.Clone(), seq: e.seq})
	}
	d.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool {
		ti, tj := entries[i].alert.DetectedAt, entries[j].alert.DetectedAt
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return entries[i].seq > entries[j].seq
	})

	out := make([]models.Alert, len(entries))
	for i, e := range entries {
		out[i] = e.alert
	}
	return out
}

// Active returns the retained alerts that are not resolved, newest first.
func (d *Deduplicator) Active() []models.Alert {
	all := d.All()
	out := all[:0]
	for _, a := range all {
		if a.Status != models.StatusResolved {
			out = append(out, a)
		}
	}
	return out
}

// Stats computes the severity band summary over all retained alerts.
// Every alert lands in exactly one band: critical first, then high, then
// medium as the catch-all.
func (d *Deduplicator) Stats() Stats {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var s Stats
	for _, e := range d.byID {
		s.Total++
		if e.alert.Status != models.StatusResolved {
			s.Active++
		}
		switch {
		case e.alert.IsCriticalBand():
			s.Critical++
		case e.alert.IsHighBand():
			s.High++
		default:
			s.Medium++
		}
	}
	return s
}

// Len returns the number of retained alerts.
func (d *Deduplicator) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.byID)
}

// Clear discards every retained alert.
func (d *Deduplicator) Clear() {
	d.mu.Lock()
	d.byID = make(map[string]*entry)
	d.mu.Unlock()
	metrics.AlertsActive.Set(0)
}

// activeCountLocked counts unresolved alerts. Callers hold mu.
func (d *Deduplicator) activeCountLocked() int {
	n := 0
	for _, e := range d.byID {
		if e.alert.Status != models.StatusResolved {
			n++
		}
	}
	return n
}
