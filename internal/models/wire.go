// Rangerscope - Wildlife Tracking and Anti-Poaching Field Operations
// Copyright 2026 Rangerscope Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rangerscope/rangerscope

package models

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// This file is the wire boundary. The backend and the stream emit several
// historical shapes for the same data: flat and nested alert payloads, bare
// arrays and {results: [...]} wrappers, string and numeric IDs, flat lat/lon
// and nested position objects. Everything is converted to the canonical
// AnimalState/AnimalUpdate/Alert types here; the core packages never see a
// raw payload.

// ErrNotAList is returned when a payload is neither a JSON array nor a
// recognized list wrapper.
var ErrNotAList = errors.New("payload is not a list")

// FlexID accepts a JSON string or number and stores it as a string.
type FlexID string

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexID) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		*f = ""
		return nil
	}
	if len(s) >= 2 && s[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*f = FlexID(str)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = FlexID(n.String())
	return nil
}

// FlexTime accepts an RFC3339 string or a Unix epoch (seconds or
// milliseconds) and stores the parsed time. A zero FlexTime means the field
// was absent or unparseable.
type FlexTime struct {
	time.Time
}

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexTime) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" || s == `""` {
		f.Time = time.Time{}
		return nil
	}
	if len(s) >= 2 && s[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05"} {
			if t, err := time.Parse(layout, str); err == nil {
				f.Time = t
				return nil
			}
		}
		f.Time = time.Time{}
		return nil
	}
	epoch, err := strconv.ParseFloat(s, 64)
	if err != nil {
		f.Time = time.Time{}
		return nil //nolint:nilerr // unparseable timestamps degrade to zero, not errors
	}
	// Heuristic: epochs past the year 33658 in seconds are milliseconds.
	if epoch > 1e12 {
		epoch /= 1000
	}
	f.Time = time.Unix(int64(epoch), 0).UTC()
	return nil
}

// rawPosition accepts {lat, lon} with lng/longitude/latitude aliases.
type rawPosition struct {
	Lat       *float64 `json:"lat"`
	Latitude  *float64 `json:"latitude"`
	Lon       *float64 `json:"lon"`
	Lng       *float64 `json:"lng"`
	Longitude *float64 `json:"longitude"`
}

// position resolves the alias fields into a Position, or nil when
// coordinates are missing or invalid.
func (r *rawPosition) position() *Position {
	if r == nil {
		return nil
	}
	lat := firstFloat(r.Lat, r.Latitude)
	lon := firstFloat(r.Lon, r.Lng, r.Longitude)
	if lat == nil || lon == nil {
		return nil
	}
	p := Position{Lat: *lat, Lon: *lon}
	if !p.Valid() {
		return nil
	}
	return &p
}

// RawAnimal is the union of every animal shape the backend and stream emit.
// All fields are optional; normalization decides what is present.
type RawAnimal struct {
	ID       FlexID `json:"id"`
	AnimalID FlexID `json:"animal_id"`

	Species *string `json:"species"`
	Name    *string `json:"name"`

	Position *rawPosition `json:"position"`
	Lat      *float64     `json:"lat"`
	Latitude *float64     `json:"latitude"`
	Lon      *float64     `json:"lon"`
	Lng      *float64     `json:"lng"`

	Activity     *string `json:"activity"`
	ActivityType *string `json:"activity_type"`

	Speed    *float64 `json:"speed"`
	SpeedKmh *float64 `json:"speed_kmh"`

	Risk      *string `json:"risk"`
	RiskLevel *string `json:"risk_level"`

	ConflictZone *ConflictZone `json:"conflict_zone"`

	Battery        *float64 `json:"battery"`
	BatteryPercent *float64 `json:"battery_percent"`

	LastUpdated FlexTime `json:"last_updated"`
	Timestamp   FlexTime `json:"timestamp"`
}

// Update converts the raw record into a canonical partial update.
// Returns false when the record carries no usable identity.
func (r RawAnimal) Update() (AnimalUpdate, bool) {
	id := string(r.ID)
	if id == "" {
		id = string(r.AnimalID)
	}
	if id == "" {
		return AnimalUpdate{}, false
	}

	u := AnimalUpdate{ID: id}
	u.Species = r.Species
	u.Name = r.Name

	// Nested position wins over flat lat/lon.
	if p := r.Position.position(); p != nil {
		u.Position = p
	} else if lat, lon := firstFloat(r.Lat, r.Latitude), firstFloat(r.Lon, r.Lng); lat != nil && lon != nil {
		p := Position{Lat: *lat, Lon: *lon}
		if p.Valid() {
			u.Position = &p
		}
	}

	if raw := firstString(r.Activity, r.ActivityType); raw != nil {
		a := normalizeActivity(*raw)
		u.ActivityType = &a
	}

	if speed := firstFloat(r.SpeedKmh, r.Speed); speed != nil {
		// Negative speeds are sensor noise, normalized to zero.
		s := *speed
		if s < 0 {
			s = 0
		}
		u.SpeedKmh = &s
	}

	if raw := firstString(r.RiskLevel, r.Risk); raw != nil {
		if risk, ok := normalizeRisk(*raw); ok {
			u.RiskLevel = &risk
		}
	}

	u.ConflictZone = r.ConflictZone
	u.BatteryPercent = firstFloat(r.BatteryPercent, r.Battery)

	if ts := firstTime(r.LastUpdated, r.Timestamp); ts != nil {
		u.LastUpdated = ts
	}

	return u, true
}

// normalizeActivity maps wire activity strings onto the canonical enum.
// "active" is a legacy alias for moving.
func normalizeActivity(raw string) ActivityType {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "moving", "active":
		return ActivityMoving
	case "feeding", "grazing":
		return ActivityFeeding
	case "resting", "sleeping":
		return ActivityResting
	default:
		return ActivityUnknown
	}
}

// normalizeRisk maps wire risk strings onto the canonical enum.
func normalizeRisk(raw string) (RiskLevel, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "low":
		return RiskLow, true
	case "medium", "moderate":
		return RiskMedium, true
	case "high":
		return RiskHigh, true
	case "critical":
		return RiskCritical, true
	default:
		return "", false
	}
}

// normalizeSeverity maps wire severity strings onto the canonical enum.
// Unknown severities default to medium, the neutral stats band.
func normalizeSeverity(raw string) AlertSeverity {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "low", "info":
		return SeverityLow
	case "high", "warning":
		return SeverityHigh
	case "critical", "emergency":
		return SeverityCritical
	default:
		return SeverityMedium
	}
}

// normalizeStatus maps wire status strings onto the canonical enum.
func normalizeStatus(raw string) AlertStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "acknowledged", "ack":
		return StatusAcknowledged
	case "resolved", "closed":
		return StatusResolved
	default:
		return StatusActive
	}
}

// RawAlert is the union of every alert shape the backend and stream emit.
type RawAlert struct {
	ID FlexID `json:"id"`

	Severity  *string `json:"severity"`
	AlertType *string `json:"alert_type"`
	Type      *string `json:"type"`

	AnimalID   FlexID  `json:"animal_id"`
	AnimalName *string `json:"animal_name"`

	Position *rawPosition `json:"position"`
	Lat      *float64     `json:"lat"`
	Lon      *float64     `json:"lon"`

	Message     *string `json:"message"`
	Description *string `json:"description"`

	Status *string `json:"status"`

	DetectedAt FlexTime `json:"detected_at"`
	Timestamp  FlexTime `json:"timestamp"`
	CreatedAt  FlexTime `json:"created_at"`
}

// alertTypeNormalized returns the lowercase alert type.
func (r RawAlert) alertTypeNormalized() string {
	raw := firstString(r.AlertType, r.Type)
	if raw == nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(*raw))
}

// messageText returns the alert message, falling back to description.
func (r RawAlert) messageText() string {
	if s := firstString(r.Message, r.Description); s != nil {
		return strings.TrimSpace(*s)
	}
	return ""
}

// actionableTypeKeywords marks alert types that carry meaning on their own.
// A raw alert lacking both a message and one of these keywords is a bare
// location ping and is dropped before ingestion.
var actionableTypeKeywords = []string{
	"risk", "danger", "breach", "emergency", "poaching",
	"conflict", "battery", "signal", "exit", "entry",
}

// Actionable reports whether the alert carries information beyond a bare
// location ping.
func (r RawAlert) Actionable() bool {
	if r.messageText() != "" {
		return true
	}
	t := r.alertTypeNormalized()
	for _, kw := range actionableTypeKeywords {
		if strings.Contains(t, kw) {
			return true
		}
	}
	return false
}

// Normalize converts the raw record into a canonical Alert. The identity is
// the origin-supplied ID when present, otherwise the deterministic derived
// identity. Returns false for records that are not actionable.
func (r RawAlert) Normalize() (Alert, bool) {
	if !r.Actionable() {
		return Alert{}, false
	}

	a := Alert{
		AlertType: r.alertTypeNormalized(),
		AnimalID:  string(r.AnimalID),
		Message:   r.messageText(),
		Status:    StatusActive,
		Severity:  SeverityMedium,
	}
	if r.AnimalName != nil {
		a.AnimalName = strings.TrimSpace(*r.AnimalName)
	}
	if r.Severity != nil {
		a.Severity = normalizeSeverity(*r.Severity)
	}
	if r.Status != nil {
		a.Status = normalizeStatus(*r.Status)
	}

	if p := r.Position.position(); p != nil {
		a.Position = p
	} else if r.Lat != nil && r.Lon != nil {
		p := Position{Lat: *r.Lat, Lon: *r.Lon}
		if p.Valid() {
			a.Position = &p
		}
	}

	if ts := firstTime(r.DetectedAt, r.Timestamp, r.CreatedAt); ts != nil {
		a.DetectedAt = *ts
	} else {
		a.DetectedAt = time.Now().UTC()
	}

	if id := string(r.ID); id != "" {
		a.ID = id
	} else {
		a.ID = DeriveAlertID(a.AnimalID, a.AlertType, a.DetectedAt, a.Position)
	}

	return a, true
}

// alertEnvelope is the nested stream shape {"alert": {...}}.
type alertEnvelope struct {
	Alert *RawAlert `json:"alert"`
}

// ParseRawAlert decodes a single alert payload, accepting both the nested
// {"alert": {...}} envelope and the flat shape. The nested key wins when
// both could apply.
func ParseRawAlert(data []byte) (RawAlert, error) {
	var env alertEnvelope
	if err := json.Unmarshal(data, &env); err == nil && env.Alert != nil {
		return *env.Alert, nil
	}
	var raw RawAlert
	if err := json.Unmarshal(data, &raw); err != nil {
		return RawAlert{}, err
	}
	return raw, nil
}

// listEnvelope is the paginated REST shape {"results": [...]}.
type listEnvelope struct {
	Results json.RawMessage `json:"results"`
	Animals json.RawMessage `json:"animals"`
	Alerts  json.RawMessage `json:"alerts"`
}

// unwrapList returns the raw JSON array inside data, accepting a bare array
// or a {results}/{animals}/{alerts} wrapper.
func unwrapList(data []byte) (json.RawMessage, error) {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		return json.RawMessage(trimmed), nil
	}
	var env listEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, ErrNotAList
	}
	for _, candidate := range []json.RawMessage{env.Results, env.Animals, env.Alerts} {
		if len(candidate) > 0 && strings.HasPrefix(strings.TrimSpace(string(candidate)), "[") {
			return candidate, nil
		}
	}
	return nil, ErrNotAList
}

// ParseAnimalUpdates decodes a list payload into canonical partial updates.
// Malformed individual records are skipped; the count of skipped records is
// returned so callers can log and count them without failing the batch.
func ParseAnimalUpdates(data []byte) (updates []AnimalUpdate, skipped int, err error) {
	arr, err := unwrapList(data)
	if err != nil {
		return nil, 0, err
	}
	var items []json.RawMessage
	if err := json.Unmarshal(arr, &items); err != nil {
		return nil, 0, ErrNotAList
	}
	for _, item := range items {
		var raw RawAnimal
		if err := json.Unmarshal(item, &raw); err != nil {
			skipped++
			continue
		}
		u, ok := raw.Update()
		if !ok {
			skipped++
			continue
		}
		updates = append(updates, u)
	}
	return updates, skipped, nil
}

// ParseRawAlerts decodes a list payload into raw alerts. Malformed
// individual records are skipped.
func ParseRawAlerts(data []byte) (alerts []RawAlert, skipped int, err error) {
	arr, err := unwrapList(data)
	if err != nil {
		return nil, 0, err
	}
	var items []json.RawMessage
	if err := json.Unmarshal(arr, &items); err != nil {
		return nil, 0, ErrNotAList
	}
	for _, item := range items {
		var raw RawAlert
		if err := json.Unmarshal(item, &raw); err != nil {
			skipped++
			continue
		}
		alerts = append(alerts, raw)
	}
	return alerts, skipped, nil
}

// firstFloat returns the first non-nil value.
func firstFloat(candidates ...*float64) *float64 {
	for _, c := range candidates {
		if c != nil {
			return c
		}
	}
	return nil
}

// firstString returns the first non-nil, non-empty value.
func firstString(candidates ...*string) *string {
	for _, c := range candidates {
		if c != nil && strings.TrimSpace(*c) != "" {
			return c
		}
	}
	return nil
}

// firstTime returns the first non-zero timestamp.
func firstTime(candidates ...FlexTime) *time.Time {
	for _, c := range candidates {
		if !c.IsZero() {
			t := c.Time
			return &t
		}
	}
	return nil
}
