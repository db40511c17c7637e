// Rangerscope - Wildlife Tracking and Anti-Poaching Field Operations
// Copyright 2026 Rangerscope Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rangerscope/rangerscope

package stream

import (
	"context"
	"time"
)

// Service adapts a Manager to suture.Service. Run returns an error on
// transport failure, which the supervisor turns into a restart after
// backoff; a requested Disconnect returns nil and ends supervision of this
// attempt.
type Service struct {
	manager *Manager

	// RestartDelay spaces out restarts beyond the supervisor's own
	// backoff, so a flapping backend is not hammered.
	RestartDelay time.Duration
}

// NewService wraps the manager for supervision.
func NewService(m *Manager) *Service {
	return &Service{manager: m, RestartDelay: 2 * time.Second}
}

// Serve implements suture.Service.
func (s *Service) Serve(ctx context.Context) error {
	err := s.manager.Run(ctx)
	if err != nil && ctx.Err() == nil {
		select {
		case <-time.After(s.RestartDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if ctx.Err() != nil {
		s.manager.Disconnect()
		return ctx.Err()
	}
	return err
}

// String names the service in supervisor logs.
func (s *Service) String() string {
	return "stream-manager"
}
