// Rangerscope - Wildlife Tracking and Anti-Poaching Field Operations
// Copyright 2026 Rangerscope Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rangerscope/rangerscope

package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/rangerscope/rangerscope/internal/validation"
)

// Config is the root configuration for a Rangerscope field station.
type Config struct {
	Stream   StreamConfig   `koanf:"stream"`
	Fallback FallbackConfig `koanf:"fallback"`
	Server   ServerConfig   `koanf:"server"`
	Paths    PathsConfig    `koanf:"paths"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// StreamConfig configures the upstream WebSocket tracking feed.
type StreamConfig struct {
	// URL of the backend stream endpoint. ws://, wss://, http:// and
	// https:// are accepted; HTTP schemes are converted on dial.
	URL string `koanf:"url" validate:"required"`

	// ConnectOnStart dials the stream as soon as the station boots.
	ConnectOnStart bool `koanf:"connect_on_start"`

	// RestartDelay is how long the supervisor waits before restarting the
	// stream service after a transport failure.
	RestartDelay time.Duration `koanf:"restart_delay" validate:"min=0"`
}

// FallbackConfig configures the REST fallback used while the stream is down.
type FallbackConfig struct {
	Enabled bool `koanf:"enabled"`

	// BaseURL of the backend REST API, e.g. https://api.example.org.
	BaseURL string `koanf:"base_url" validate:"required_if=Enabled true,omitempty,url"`

	// Timeout bounds each fallback request.
	Timeout time.Duration `koanf:"timeout" validate:"min=0"`

	// PollInterval is how often the poller checks the REST API while the
	// stream is disconnected.
	PollInterval time.Duration `koanf:"poll_interval" validate:"min=0"`

	// RequestsPerMinute caps outbound fallback traffic.
	RequestsPerMinute int `koanf:"requests_per_minute" validate:"min=1,max=600"`
}

// ServerConfig configures the local HTTP and WebSocket API.
type ServerConfig struct {
	Host    string        `koanf:"host" validate:"required"`
	Port    int           `koanf:"port" validate:"min=1,max=65535"`
	Timeout time.Duration `koanf:"timeout" validate:"min=0"`

	// CORSOrigins lists origins allowed to reach the local API. Field
	// tablets on the station LAN typically need "*".
	CORSOrigins []string `koanf:"cors_origins"`

	// RateLimitReqs caps requests per client per minute. 0 disables.
	RateLimitReqs int `koanf:"rate_limit_requests" validate:"min=0"`
}

// PathsConfig configures movement trail retention.
type PathsConfig struct {
	// MaxPoints is the per-animal trail cap. Oldest points are dropped
	// first.
	MaxPoints int `koanf:"max_points" validate:"min=1,max=10000"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error fatal"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// Validate checks the configuration. Struct tags cover ranges and enums;
// URL schemes get checked by hand because the stream accepts ws schemes
// that the url tag rejects.
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := validateStreamURL(c.Stream.URL); err != nil {
		return fmt.Errorf("STREAM_URL is invalid: %w", err)
	}
	if c.Fallback.Enabled {
		if err := validateHTTPURL(c.Fallback.BaseURL); err != nil {
			return fmt.Errorf("FALLBACK_BASE_URL is invalid: %w", err)
		}
	}
	return nil
}

func validateStreamURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	switch u.Scheme {
	case "ws", "wss", "http", "https":
	default:
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("missing host")
	}
	return nil
}

func validateHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("missing host")
	}
	return nil
}
