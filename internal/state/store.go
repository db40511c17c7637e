// Rangerscope - Wildlife Tracking and Anti-Poaching Field Operations
// Copyright 2026 Rangerscope Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rangerscope/rangerscope

// Package state holds the merged, classified view of every tracked animal.
//
// The store is the single point where partial updates become full records.
// Writers are serialized by the stream dispatch loop; readers get cloned
// snapshots and can never observe a partially merged record.
package state

import (
	"sync"
	"time"

	"github.com/rangerscope/rangerscope/internal/classify"
	"github.com/rangerscope/rangerscope/internal/logging"
	"github.com/rangerscope/rangerscope/internal/metrics"
	"github.com/rangerscope/rangerscope/internal/models"
	"github.com/rs/zerolog"
)

// Store is the animal state store. Safe for concurrent use.
type Store struct {
	mu          sync.RWMutex
	animals     map[string]models.AnimalState
	order       []string
	lastApplied time.Time
	log         zerolog.Logger
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		animals: make(map[string]models.AnimalState),
		log:     logging.WithComponent("state"),
	}
}

// ApplyInitialSnapshot replaces the whole world with the given records.
// An empty update list is a silent no-op: a malformed or empty snapshot
// must never wipe a model the rangers are already looking at.
func (s *Store) ApplyInitialSnapshot(updates []models.AnimalUpdate) int {
	if len(updates) == 0 {
		s.log.Warn().Msg("empty initial snapshot ignored")
		return 0
	}

	animals := make(map[string]models.AnimalState, len(updates))
	order := make([]string, 0, len(updates))
	for _, u := range updates {
		if u.ID == "" {
			metrics.StateRecordsSkipped.WithLabelValues("no_identity").Inc()
			continue
		}
		if _, dup := animals[u.ID]; dup {
			// Later records in the same snapshot win, order keeps the
			// first appearance.
			animals[u.ID] = classify.Apply(u.Merge(animals[u.ID]))
			continue
		}
		animals[u.ID] = classify.Apply(u.Baseline())
		order = append(order, u.ID)
	}
	if len(animals) == 0 {
		s.log.Warn().Msg("initial snapshot had no usable records, ignored")
		return 0
	}

	s.mu.Lock()
	s.animals = animals
	s.order = order
	s.lastApplied = time.Now().UTC()
	s.mu.Unlock()

	metrics.StateSnapshotsApplied.Inc()
	metrics.AnimalsTracked.Set(float64(len(animals)))
	s.log.Info().Int("animals", len(animals)).Msg("initial snapshot applied")
	return len(animals)
}

// ApplyUpdate merges one partial update. Unknown animals are created from
// the update as a baseline record. Returns the merged, classified state.
func (s *Store) ApplyUpdate(u models.AnimalUpdate) (models.AnimalState, bool) {
	if u.ID == "" {
		metrics.StateRecordsSkipped.WithLabelValues("no_identity").Inc()
		return models.AnimalState{}, false
	}

	s.mu.Lock()
	prev, known := s.animals[u.ID]
	var next models.AnimalState
	if known {
		next = classify.Apply(u.Merge(prev))
	} else {
		next = classify.Apply(u.Baseline())
		s.order = append(s.order, u.ID)
	}
	s.animals[u.ID] = next
	s.lastApplied = time.Now().UTC()
	count := len(s.animals)
	s.mu.Unlock()

	metrics.StateMerges.Inc()
	metrics.AnimalsTracked.Set(float64(count))
	return next.Clone(), true
}

// ApplyEscalation force-overwrites an animal's risk level and conflict
// zone in response to a critical or high alert. The escalation never
// lowers risk, but the zone is overwritten whenever one is supplied, and
// a later stream update that carries a risk level overrides the risk
// through the normal merge.
func (s *Store) ApplyEscalation(animalID string, risk models.RiskLevel, zone *models.ConflictZone) (models.AnimalState, bool) {
	s.mu.Lock()
	prev, known := s.animals[animalID]
	if !known {
		s.mu.Unlock()
		return models.AnimalState{}, false
	}
	raised := riskRank(risk) > riskRank(prev.RiskLevel)
	if !raised && zone == nil {
		s.mu.Unlock()
		return prev.Clone(), true
	}
	next := prev.Clone()
	if raised {
		next.RiskLevel = risk
	}
	if zone != nil {
		z := *zone
		next.ConflictZone = &z
	}
	next = classify.Apply(next)
	s.animals[animalID] = next
	s.mu.Unlock()

	if raised {
		metrics.SeverityEscalations.Inc()
	}
	s.log.Info().
		Str("animal_id", animalID).
		Str("risk_level", string(next.RiskLevel)).
		Msg("risk escalated by alert")
	return next.Clone(), true
}

// Get returns a copy of one animal's state.
func (s *Store) Get(animalID string) (models.AnimalState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.animals[animalID]
	if !ok {
		return models.AnimalState{}, false
	}
	return state.Clone(), true
}

// Snapshot returns a copy of every animal in first-seen order. Each call
// allocates fresh records, so callers comparing successive snapshots see
// distinct values.
func (s *Store) Snapshot() []models.AnimalState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.AnimalState, 0, len(s.order))
	for _, id := range s.order {
		if state, ok := s.animals[id]; ok {
			out = append(out, state.Clone())
		}
	}
	return out
}

// Len returns the number of tracked animals.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.animals)
}

// LastApplied returns the time of the last applied snapshot or update.
func (s *Store) LastApplied() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastApplied
}

// riskRank orders risk levels for the never-lower escalation rule.
func riskRank(r models.RiskLevel) int {
	switch r {
	case models.RiskLow:
		return 0
	case models.RiskMedium:
		return 1
	case models.RiskHigh:
		return 2
	case models.RiskCritical:
		return 3
	default:
		return -1
	}
}
