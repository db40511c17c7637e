// Rangerscope - Wildlife Tracking and Anti-Poaching Field Operations
// Copyright 2026 Rangerscope Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rangerscope/rangerscope

// Package stream manages the WebSocket connection to the tracking backend.
//
// One Manager owns one connection. All incoming messages are read and
// dispatched by a single goroutine, so handler invocations for one
// connection never overlap: the state store sees one mutation at a time in
// arrival order.
//
// The Manager never reconnects on its own. A transport failure moves it to
// StateFailed and returns from Run; the supervisor decides whether to start
// a fresh attempt.
package stream

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/rangerscope/rangerscope/internal/logging"
	"github.com/rangerscope/rangerscope/internal/metrics"
	"github.com/rs/zerolog"
)

// Connection lifecycle states.
type ConnState int32

const (
	StateDisconnected ConnState = iota
	StateConnecting
	StateConnected
	StateFailed
)

// String returns the lowercase state name.
func (s ConnState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Event names dispatched to handlers.
const (
	EventConnection     = "connection"
	EventInitialData    = "initial_data"
	EventPositionUpdate = "position_update"
	EventAlert          = "alert"
	EventStateChange    = "state_change"
	EventError          = "error"
)

// knownEvents is the set of message types the backend emits.
var knownEvents = map[string]struct{}{
	EventConnection:     {},
	EventInitialData:    {},
	EventPositionUpdate: {},
	EventAlert:          {},
	EventStateChange:    {},
	EventError:          {},
}

// Event is one dispatched stream message. Data is the full raw payload;
// handlers normalize it through the models package.
type Event struct {
	Name string
	Data json.RawMessage
}

// Handler processes one event. Handlers run on the read loop goroutine and
// must not block.
type Handler func(Event)

// Keepalive and write deadlines, matching common gorilla/websocket client
// practice.
const (
	writeWait        = 10 * time.Second
	pongWait         = 60 * time.Second
	pingPeriod       = pongWait * 9 / 10
	handshakeTimeout = 10 * time.Second
)

// ErrNotConnected is returned by write operations when there is no live
// connection.
var ErrNotConnected = errors.New("stream: not connected")

// envelope carries the routing type of a stream message.
type envelope struct {
	Type string `json:"type"`
}

// subscribeMessage is the outbound per-animal subscription request.
type subscribeMessage struct {
	Type     string `json:"type"`
	AnimalID string `json:"animal_id"`
}

// Manager owns the backend stream connection. Safe for concurrent use.
type Manager struct {
	url    string
	dialer websocket.Dialer

	mu        sync.RWMutex
	conn      *websocket.Conn
	state     ConnState
	stopping  bool
	readDone  chan struct{}
	connEpoch uint64

	writeMu sync.Mutex

	handlerMu sync.RWMutex
	handlers  map[string]map[uint64]Handler
	nextID    uint64

	log zerolog.Logger
}

// NewManager creates a Manager for the given ws:// or wss:// URL.
// http:// and https:// URLs are converted.
func NewManager(rawURL string) (*Manager, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse stream url: %w", err)
	}
	switch u.Scheme {
	case "ws", "wss":
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return nil, fmt.Errorf("unsupported stream url scheme %q", u.Scheme)
	}

	return &Manager{
		url: u.String(),
		dialer: websocket.Dialer{
			HandshakeTimeout:  handshakeTimeout,
			EnableCompression: true,
		},
		state:    StateDisconnected,
		handlers: make(map[string]map[uint64]Handler),
		log:      logging.WithComponent("stream"),
	}, nil
}

// State returns the current connection state.
func (m *Manager) State() ConnState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// IsConnected reports whether a live connection exists.
func (m *Manager) IsConnected() bool {
	return m.State() == StateConnected
}

// On registers a handler for the named event and returns an unsubscribe
// function. The unsubscribe function is idempotent: calling it more than
// once removes only the one registration it belongs to.
func (m *Manager) On(event string, h Handler) func() {
	m.handlerMu.Lock()
	id := m.nextID
	m.nextID++
	if m.handlers[event] == nil {
		m.handlers[event] = make(map[uint64]Handler)
	}
	m.handlers[event][id] = h
	m.handlerMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.handlerMu.Lock()
			delete(m.handlers[event], id)
			m.handlerMu.Unlock()
		})
	}
}

// Connect starts a connection attempt in the background. A call while a
// connection is live or already being established is a no-op.
func (m *Manager) Connect(ctx context.Context) {
	m.mu.Lock()
	if m.state == StateConnecting || m.state == StateConnected {
		m.mu.Unlock()
		m.log.Debug().Str("state", m.state.String()).Msg("connect ignored")
		return
	}
	m.setStateLocked(StateConnecting)
	m.stopping = false
	m.mu.Unlock()

	go func() {
		if err := m.dialAndRead(ctx); err != nil {
			m.log.Error().Err(err).Msg("stream connection ended")
		}
	}()
}

// Run connects and blocks until the connection ends. It returns a non-nil
// error on transport failure, which a supervisor treats as a restart
// signal, and nil after a requested Disconnect.
func (m *Manager) Run(ctx context.Context) error {
	m.mu.Lock()
	if m.state == StateConnecting || m.state == StateConnected {
		m.mu.Unlock()
		return errors.New("stream: already running")
	}
	m.setStateLocked(StateConnecting)
	m.stopping = false
	m.mu.Unlock()

	return m.dialAndRead(ctx)
}

// Disconnect closes the connection and moves to StateDisconnected.
// Idempotent: disconnecting while already disconnected is a no-op. A
// disconnect issued while a dial is still in flight wins: the handshake
// result is discarded instead of going connected.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	if m.conn == nil {
		if m.state == StateConnecting {
			m.stopping = true
		}
		if m.state != StateDisconnected {
			m.setStateLocked(StateDisconnected)
		}
		m.mu.Unlock()
		return
	}
	m.stopping = true
	conn := m.conn
	done := m.readDone
	m.mu.Unlock()

	_ = conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	_ = conn.Close()
	if done != nil {
		<-done
	}
	metrics.StreamDisconnects.WithLabelValues("requested").Inc()
}

// SubscribeToAnimal requests per-animal updates. Fire and forget: the
// backend does not acknowledge, and failures surface only as an error
// return.
func (m *Manager) SubscribeToAnimal(animalID string) error {
	err := m.writeJSON(subscribeMessage{Type: "subscribe_animal", AnimalID: animalID})
	if err == nil {
		metrics.StreamSubscriptions.WithLabelValues("subscribe").Inc()
	}
	return err
}

// UnsubscribeFromAnimal cancels a per-animal subscription. Fire and forget.
func (m *Manager) UnsubscribeFromAnimal(animalID string) error {
	err := m.writeJSON(subscribeMessage{Type: "unsubscribe_animal", AnimalID: animalID})
	if err == nil {
		metrics.StreamSubscriptions.WithLabelValues("unsubscribe").Inc()
	}
	return err
}

// dialAndRead establishes the connection and runs the read loop to
// completion. Callers have already moved the state to StateConnecting.
func (m *Manager) dialAndRead(ctx context.Context) error {
	metrics.StreamConnects.Inc()

	conn, resp, err := m.dialer.DialContext(ctx, m.url, nil)
	if resp != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		m.mu.Lock()
		requested := m.stopping
		m.stopping = false
		if requested {
			m.setStateLocked(StateDisconnected)
		} else {
			m.setStateLocked(StateFailed)
		}
		m.mu.Unlock()
		if requested {
			m.emitConnectionEvent("disconnected", "")
			return nil
		}
		metrics.StreamDisconnects.WithLabelValues("dial_failed").Inc()
		m.emitConnectionEvent("failed", err.Error())
		if resp != nil {
			return fmt.Errorf("stream dial (HTTP %d): %w", resp.StatusCode, err)
		}
		return fmt.Errorf("stream dial: %w", err)
	}

	done := make(chan struct{})
	m.mu.Lock()
	if m.stopping {
		// Disconnect won the race against the handshake.
		m.stopping = false
		m.setStateLocked(StateDisconnected)
		m.mu.Unlock()
		_ = conn.Close()
		metrics.StreamDisconnects.WithLabelValues("requested").Inc()
		m.emitConnectionEvent("disconnected", "")
		return nil
	}
	m.conn = conn
	m.readDone = done
	m.connEpoch++
	epoch := m.connEpoch
	m.setStateLocked(StateConnected)
	m.mu.Unlock()

	m.log.Info().Str("url", m.url).Msg("stream connected")
	m.emitConnectionEvent("connected", "")

	pingCtx, cancelPing := context.WithCancel(ctx)
	go m.pingLoop(pingCtx, conn)

	err = m.readLoop(conn)
	cancelPing()
	close(done)

	m.mu.Lock()
	requested := m.stopping
	if m.connEpoch == epoch {
		m.conn = nil
		m.readDone = nil
		if requested || err == nil {
			m.setStateLocked(StateDisconnected)
		} else {
			m.setStateLocked(StateFailed)
		}
	}
	m.mu.Unlock()

	if requested || err == nil {
		m.log.Info().Msg("stream disconnected")
		m.emitConnectionEvent("disconnected", "")
		return nil
	}
	metrics.StreamDisconnects.WithLabelValues("read_error").Inc()
	m.emitConnectionEvent("failed", err.Error())
	return err
}

// readLoop reads and dispatches messages until the connection dies. Runs on
// exactly one goroutine per connection.
func (m *Manager) readLoop(conn *websocket.Conn) error {
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("stream read: %w", err)
		}
		m.dispatch(message)
	}
}

// dispatch routes one raw message to registered handlers. Unknown message
// types are counted and ignored.
func (m *Manager) dispatch(message []byte) {
	var env envelope
	if err := json.Unmarshal(message, &env); err != nil {
		metrics.StreamMessageErrors.WithLabelValues("decode").Inc()
		m.log.Warn().Err(err).Msg("undecodable stream message dropped")
		return
	}
	if _, known := knownEvents[env.Type]; !known {
		metrics.RecordStreamMessage("unknown")
		m.log.Debug().Str("type", env.Type).Msg("unknown stream message type ignored")
		return
	}
	metrics.RecordStreamMessage(env.Type)
	m.emit(Event{Name: env.Type, Data: json.RawMessage(message)})
}

// emit invokes every handler registered for the event, synchronously and
// in registration order within one map iteration.
func (m *Manager) emit(e Event) {
	m.handlerMu.RLock()
	hs := make([]Handler, 0, len(m.handlers[e.Name]))
	for _, h := range m.handlers[e.Name] {
		hs = append(hs, h)
	}
	m.handlerMu.RUnlock()

	for _, h := range hs {
		h(e)
	}
}

// emitConnectionEvent synthesizes a connection event so handlers observe
// lifecycle transitions the same way they observe backend messages.
func (m *Manager) emitConnectionEvent(status, message string) {
	payload, err := json.Marshal(map[string]string{
		"type":    EventConnection,
		"status":  status,
		"message": message,
	})
	if err != nil {
		return
	}
	m.emit(Event{Name: EventConnection, Data: payload})
}

// pingLoop keeps the connection alive until the context is canceled.
func (m *Manager) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				m.log.Debug().Err(err).Msg("stream ping failed")
				return
			}
		}
	}
}

// writeJSON sends one JSON message on the live connection. Writes are
// serialized; gorilla connections allow only one concurrent writer.
func (m *Manager) writeJSON(v any) error {
	m.mu.RLock()
	conn := m.conn
	connected := m.state == StateConnected
	m.mu.RUnlock()
	if conn == nil || !connected {
		return ErrNotConnected
	}

	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(v)
}

// setStateLocked updates the state and its gauge. Callers hold mu.
func (m *Manager) setStateLocked(s ConnState) {
	m.state = s
	metrics.SetStreamState(int(s))
}
