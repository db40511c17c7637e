// Rangerscope - Wildlife Tracking and Anti-Poaching Field Operations
// Copyright 2026 Rangerscope Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rangerscope/rangerscope

// Package fallback is the REST degradation path. When the stream is down,
// the session polls these endpoints so the field model goes stale instead
// of empty.
//
// The client is defensive about the backend: a circuit breaker stops
// hammering a failing API, a rate limiter caps poll pressure, and the last
// successful response is retained so callers can keep serving known-good
// data while the backend recovers.
package fallback

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/rangerscope/rangerscope/internal/logging"
	"github.com/rangerscope/rangerscope/internal/metrics"
	"github.com/rangerscope/rangerscope/internal/models"
	"github.com/rs/zerolog"
)

// DefaultTimeout bounds one REST request end to end.
const DefaultTimeout = 8 * time.Second

// maxResponseBytes caps response bodies so a misbehaving backend cannot
// exhaust memory on a field device.
const maxResponseBytes = 8 << 20

// ErrNoCachedData is returned by the LastKnown accessors before any
// successful fetch.
var ErrNoCachedData = errors.New("fallback: no cached data")

// Config holds REST fallback configuration.
type Config struct {
	// BaseURL is the backend API root, e.g. "https://api.example.org".
	BaseURL string

	// Timeout bounds each request. Default: DefaultTimeout.
	Timeout time.Duration

	// RequestsPerMinute caps outbound request rate. Default: 30.
	RequestsPerMinute int
}

// Client fetches animal and alert data over REST. Safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[[]byte]
	limiter *rate.Limiter
	log     zerolog.Logger

	mu            sync.RWMutex
	lastAnimals   []models.AnimalUpdate
	lastAnimalsAt time.Time
	lastAlerts    []models.RawAlert
	lastAlertsAt  time.Time
}

// NewClient creates a fallback client.
func NewClient(cfg Config) (*Client, error) {
	u, err := url.Parse(cfg.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("fallback: invalid base url %q", cfg.BaseURL)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = 30
	}

	cbName := "fallback-api"
	metrics.CircuitBreakerState.WithLabelValues(cbName).Set(0)

	breaker := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        cbName,
		MaxRequests: 2,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.Requests >= 5 &&
				float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().
				Str("breaker", name).
				Str("from", stateToString(from)).
				Str("to", stateToString(to)).
				Msg("fallback circuit breaker state change")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, stateToString(from), stateToString(to)).Inc()
		},
	})

	return &Client{
		baseURL: u.String(),
		http:    &http.Client{Timeout: cfg.Timeout},
		breaker: breaker,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), 5),
		log:     logging.WithComponent("fallback"),
	}, nil
}

// LiveAnimals fetches the current animal list. On success the result is
// cached as last known good.
func (c *Client) LiveAnimals(ctx context.Context) ([]models.AnimalUpdate, error) {
	body, err := c.get(ctx, "/api/animals/live", "animals")
	if err != nil {
		return nil, err
	}
	updates, skipped, err := models.ParseAnimalUpdates(body)
	if err != nil {
		return nil, fmt.Errorf("fallback: animals payload: %w", err)
	}
	if skipped > 0 {
		metrics.StateRecordsSkipped.WithLabelValues("malformed").Add(float64(skipped))
		c.log.Warn().Int("skipped", skipped).Msg("malformed animal records in fallback response")
	}

	c.mu.Lock()
	c.lastAnimals = updates
	c.lastAnimalsAt = time.Now().UTC()
	c.mu.Unlock()
	return updates, nil
}

// ActiveAlerts fetches the current alert list. On success the result is
// cached as last known good.
func (c *Client) ActiveAlerts(ctx context.Context) ([]models.RawAlert, error) {
	body, err := c.get(ctx, "/api/alerts/active", "alerts")
	if err != nil {
		return nil, err
	}
	raws, skipped, err := models.ParseRawAlerts(body)
	if err != nil {
		return nil, fmt.Errorf("fallback: alerts payload: %w", err)
	}
	if skipped > 0 {
		metrics.AlertsDiscarded.WithLabelValues("malformed").Add(float64(skipped))
		c.log.Warn().Int("skipped", skipped).Msg("malformed alert records in fallback response")
	}

	c.mu.Lock()
	c.lastAlerts = raws
	c.lastAlertsAt = time.Now().UTC()
	c.mu.Unlock()
	return raws, nil
}

// LastKnownAnimals returns the most recent successful animal fetch and its
// age. Returns ErrNoCachedData before the first success.
func (c *Client) LastKnownAnimals() ([]models.AnimalUpdate, time.Time, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.lastAnimalsAt.IsZero() {
		return nil, time.Time{}, ErrNoCachedData
	}
	out := make([]models.AnimalUpdate, len(c.lastAnimals))
	copy(out, c.lastAnimals)
	return out, c.lastAnimalsAt, nil
}

// LastKnownAlerts returns the most recent successful alert fetch and its
// age. Returns ErrNoCachedData before the first success.
func (c *Client) LastKnownAlerts() ([]models.RawAlert, time.Time, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.lastAlertsAt.IsZero() {
		return nil, time.Time{}, ErrNoCachedData
	}
	out := make([]models.RawAlert, len(c.lastAlerts))
	copy(out, c.lastAlerts)
	return out, c.lastAlertsAt, nil
}

// get performs one GET through the rate limiter and circuit breaker.
func (c *Client) get(ctx context.Context, path, endpoint string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("fallback: rate limit wait: %w", err)
	}

	start := time.Now()
	body, err := c.breaker.Execute(func() ([]byte, error) {
		return c.doGet(ctx, path)
	})
	duration := time.Since(start)

	switch {
	case err == nil:
		metrics.RecordFallbackRequest(endpoint, "success", duration)
		return body, nil
	case errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.RecordFallbackRequest(endpoint, "rejected", duration)
		return nil, fmt.Errorf("fallback: circuit open: %w", err)
	default:
		metrics.RecordFallbackRequest(endpoint, "error", duration)
		return nil, err
	}
}

// doGet issues the HTTP request and reads the bounded body.
func (c *Client) doGet(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("fallback: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fallback: %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fallback: %s: HTTP %d", path, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("fallback: read body: %w", err)
	}
	return body, nil
}

// stateToFloat maps a breaker state onto its gauge value.
func stateToFloat(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// stateToString names a breaker state for labels.
func stateToString(s gobreaker.State) string {
	switch s {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}
