// Rangerscope - Wildlife Tracking and Anti-Poaching Field Operations
// Copyright 2026 Rangerscope Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rangerscope/rangerscope

package websocket

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rangerscope/rangerscope/internal/alerts"
	"github.com/rangerscope/rangerscope/internal/logging"
	"github.com/rangerscope/rangerscope/internal/metrics"
	"github.com/rangerscope/rangerscope/internal/models"
)

// Message types pushed to local clients.
const (
	MessageTypeSnapshot     = "animals_snapshot"
	MessageTypeAnimalUpdate = "animal_update"
	MessageTypeAlert        = "alert"
	MessageTypeAlertStats   = "alert_stats"
	MessageTypeStreamStatus = "stream_status"
	MessageTypePing         = "ping"
	MessageTypePong         = "pong"
)

// Message is one frame pushed to local clients.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Hub maintains the set of connected field tablets and re-broadcasts model
// changes to them.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan Message
	Register   chan *Client
	Unregister chan *Client
	mu         sync.RWMutex
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		broadcast:  make(chan Message, 256),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
	}
}

// RunWithContext runs the hub loop until the context is canceled, then
// closes every client and returns ctx.Err(). Designed for suture
// supervision.
//
// DETERMINISM: Uses priority-based selection so behavior is predictable
// when multiple channels are ready:
// - Priority 1: Context cancellation (shutdown)
// - Priority 2: Client lifecycle events (Register/Unregister)
// - Priority 3: Broadcast messages
func (h *Hub) RunWithContext(ctx context.Context) error {
	for {
		// Priority 1: Check for shutdown (non-blocking)
		select {
		case <-ctx.Done():
			h.shutdown()
			return ctx.Err()
		default:
		}

		// Priority 2: Handle client lifecycle events (non-blocking check)
		select {
		case client := <-h.Register:
			h.addClient(client)
			continue
		case client := <-h.Unregister:
			h.removeClient(client)
			continue
		default:
		}

		// Priority 3: Broadcast messages or wait for any event (blocking)
		select {
		case <-ctx.Done():
			h.shutdown()
			return ctx.Err()
		case client := <-h.Register:
			h.addClient(client)
		case client := <-h.Unregister:
			h.removeClient(client)
		case message := <-h.broadcast:
			h.broadcastToClients(message)
		}
	}
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	count := len(h.clients)
	h.mu.Unlock()
	metrics.WSConnections.Set(float64(count))
	logging.Info().Int("total_clients", count).Msg("websocket client connected")
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
	}
	count := len(h.clients)
	h.mu.Unlock()
	metrics.WSConnections.Set(float64(count))
	logging.Info().Int("total_clients", count).Msg("websocket client disconnected")
}

// broadcastToClients sends a message to all connected clients.
// DETERMINISM: Clients are sorted by their monotonic IDs so delivery order
// is consistent between runs.
func (h *Hub) broadcastToClients(message Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].id < clients[j].id
	})

	var toRemove []*Client
	for _, client := range clients {
		select {
		case client.send <- message:
			metrics.WSMessagesSent.Inc()
		default:
			// Slow client, drop it rather than block the hub.
			toRemove = append(toRemove, client)
		}
	}
	for _, client := range toRemove {
		metrics.WSMessagesDropped.Inc()
		close(client.send)
		delete(h.clients, client)
	}
	if len(toRemove) > 0 {
		metrics.WSConnections.Set(float64(len(h.clients)))
	}
}

// shutdown closes all clients in ID order.
func (h *Hub) shutdown() {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].id < clients[j].id
	})
	for _, client := range clients {
		close(client.send)
		delete(h.clients, client)
	}
	count := len(clients)
	h.mu.Unlock()

	metrics.WSConnections.Set(0)
	logging.Info().
		Str("component", "websocket-hub").
		Int("clients_closed", count).
		Msg("websocket hub stopped")
}

// enqueue pushes a message onto the broadcast channel without blocking the
// caller. The dispatch loop must never stall on a full hub.
func (h *Hub) enqueue(message Message) {
	select {
	case h.broadcast <- message:
	default:
		metrics.WSMessagesDropped.Inc()
		logging.Warn().Str("message_type", message.Type).Msg("broadcast channel full, dropping message")
	}
}

// BroadcastSnapshot pushes the full animal snapshot to all clients.
func (h *Hub) BroadcastSnapshot(animals []models.AnimalState) {
	h.enqueue(Message{Type: MessageTypeSnapshot, Data: animals})
}

// BroadcastAnimalUpdate pushes one merged animal state to all clients.
func (h *Hub) BroadcastAnimalUpdate(state models.AnimalState) {
	h.enqueue(Message{Type: MessageTypeAnimalUpdate, Data: state})
}

// BroadcastAlert pushes one ingested alert to all clients.
func (h *Hub) BroadcastAlert(alert models.Alert) {
	h.enqueue(Message{Type: MessageTypeAlert, Data: alert})
}

// BroadcastAlertStats pushes the alert summary to all clients.
func (h *Hub) BroadcastAlertStats(stats alerts.Stats) {
	h.enqueue(Message{Type: MessageTypeAlertStats, Data: stats})
}

// StreamStatusData reports the backend stream state to local clients.
type StreamStatusData struct {
	Status    string `json:"status"`
	Message   string `json:"message,omitempty"`
	Timestamp string `json:"timestamp"`
}

// BroadcastStreamStatus tells clients whether the backend stream is live,
// so tablets can show a degraded-data banner.
func (h *Hub) BroadcastStreamStatus(status, message string) {
	h.enqueue(Message{
		Type: MessageTypeStreamStatus,
		Data: StreamStatusData{
			Status:    status,
			Message:   message,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		},
	})
}

// GetClientCount returns the number of connected clients.
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
