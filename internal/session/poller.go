// Rangerscope - Wildlife Tracking and Anti-Poaching Field Operations
// Copyright 2026 Rangerscope Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rangerscope/rangerscope

package session

import (
	"context"
	"time"

	"github.com/rangerscope/rangerscope/internal/logging"
	"github.com/rs/zerolog"
)

// DefaultPollInterval is how often the poller checks the REST fallback
// while the stream is down.
const DefaultPollInterval = 30 * time.Second

// Poller keeps the model fresh over REST while the stream is down. It is a
// suture service: Serve blocks until the context is canceled.
//
// Stream-wins guard: results fetched while the stream was down are dropped
// if the stream reconnected before they could be applied, so a slow REST
// response can never overwrite fresher stream data.
type Poller struct {
	session  *Session
	interval time.Duration
	log      zerolog.Logger
}

// NewPoller creates a poller for the session. A non-positive interval
// falls back to DefaultPollInterval.
func NewPoller(s *Session, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Poller{
		session:  s,
		interval: interval,
		log:      logging.WithComponent("fallback-poller"),
	}
}

// Serve implements suture.Service.
func (p *Poller) Serve(ctx context.Context) error {
	if p.session.fallback == nil {
		<-ctx.Done()
		return ctx.Err()
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

// String names the service in supervisor logs.
func (p *Poller) String() string {
	return "fallback-poller"
}

// poll fetches one round of animals and alerts if the stream is down.
func (p *Poller) poll(ctx context.Context) {
	if p.session.stream.IsConnected() {
		return
	}

	updates, err := p.session.fallback.LiveAnimals(ctx)
	if err != nil {
		p.log.Warn().Err(err).Msg("fallback animal poll failed, keeping last known data")
	} else if !p.session.stream.IsConnected() {
		for _, u := range updates {
			p.session.applyUpdate(u)
		}
		p.session.publishAge()
		p.log.Debug().Int("animals", len(updates)).Msg("applied fallback animal poll")
	}

	raws, err := p.session.fallback.ActiveAlerts(ctx)
	if err != nil {
		p.log.Warn().Err(err).Msg("fallback alert poll failed, keeping last known data")
		return
	}
	if p.session.stream.IsConnected() {
		return
	}
	for _, raw := range raws {
		alert, ok := p.session.dedup.Ingest(raw)
		if !ok {
			continue
		}
		if p.session.hub != nil {
			p.session.hub.BroadcastAlert(alert)
		}
		p.session.escalateFromAlert(alert)
	}
	if len(raws) > 0 && p.session.hub != nil {
		p.session.hub.BroadcastAlertStats(p.session.dedup.Stats())
	}
}
