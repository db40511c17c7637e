// Rangerscope - Wildlife Tracking and Anti-Poaching Field Operations
// Copyright 2026 Rangerscope Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rangerscope/rangerscope

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	gorilla "github.com/gorilla/websocket"

	"github.com/rangerscope/rangerscope/internal/logging"
	"github.com/rangerscope/rangerscope/internal/models"
	"github.com/rangerscope/rangerscope/internal/session"
	"github.com/rangerscope/rangerscope/internal/validation"
	ws "github.com/rangerscope/rangerscope/internal/websocket"
)

// Handler serves the local API from the session's live model.
type Handler struct {
	session        *session.Session
	hub            *ws.Hub
	allowedOrigins []string
}

// NewHandler creates the API handler. The hub may be nil, which disables
// the /ws endpoint.
func NewHandler(s *session.Session, hub *ws.Hub, allowedOrigins []string) *Handler {
	return &Handler{
		session:        s,
		hub:            hub,
		allowedOrigins: allowedOrigins,
	}
}

// respondJSON writes the response envelope.
func respondJSON(w http.ResponseWriter, status int, response *models.APIResponse) {
	w.Header().Set("Content-Type", "application/json")

	data, err := json.Marshal(response)
	if err != nil {
		logging.Error().Err(err).Msg("failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Error().Err(err).Msg("failed to write JSON response")
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, models.NewErrorResponse(code, message, nil))
}

// Animals returns the current animal states in first-seen order.
func (h *Handler) Animals(w http.ResponseWriter, r *http.Request) {
	animals := h.session.Animals()
	resp := models.NewSuccessResponse(animals)
	resp.Metadata.Count = len(animals)
	respondJSON(w, http.StatusOK, resp)
}

// Animal returns one animal's current state.
func (h *Handler) Animal(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	state, ok := h.session.Animal(id)
	if !ok {
		respondError(w, http.StatusNotFound, "ANIMAL_NOT_FOUND", "no such animal: "+id)
		return
	}
	respondJSON(w, http.StatusOK, models.NewSuccessResponse(state))
}

// AnimalPath returns one animal's movement trail, oldest point first.
func (h *Handler) AnimalPath(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := h.session.Animal(id); !ok {
		respondError(w, http.StatusNotFound, "ANIMAL_NOT_FOUND", "no such animal: "+id)
		return
	}
	trail := h.session.Path(id)
	resp := models.NewSuccessResponse(trail)
	resp.Metadata.Count = len(trail)
	respondJSON(w, http.StatusOK, resp)
}

// alertListRequest holds validated /alerts query parameters.
type alertListRequest struct {
	Status string `validate:"omitempty,oneof=active all"`
}

// Alerts lists alerts newest first. ?status=active filters out resolved
// alerts; the default is all retained alerts.
func (h *Handler) Alerts(w http.ResponseWriter, r *http.Request) {
	req := alertListRequest{Status: r.URL.Query().Get("status")}
	if err := validation.ValidateStruct(&req); err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	var list []models.Alert
	if req.Status == "active" {
		list = h.session.ActiveAlerts()
	} else {
		list = h.session.Alerts()
	}
	resp := models.NewSuccessResponse(list)
	resp.Metadata.Count = len(list)
	respondJSON(w, http.StatusOK, resp)
}

// AlertStats returns the severity band summary.
func (h *Handler) AlertStats(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, models.NewSuccessResponse(h.session.AlertStats()))
}

// alertStatusRequest is the POST /alerts/{id}/status body.
type alertStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=active acknowledged resolved"`
}

// alertStatusResponse reports the status actually stored, which stays at
// the more advanced value when a backward transition is requested.
type alertStatusResponse struct {
	ID     string             `json:"id"`
	Status models.AlertStatus `json:"status"`
}

// SetAlertStatus advances an alert's handling status.
func (h *Handler) SetAlertStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req alertStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_BODY", "request body must be JSON with a status field")
		return
	}
	if err := validation.ValidateStruct(&req); err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	status, ok := h.session.SetAlertStatus(id, models.AlertStatus(req.Status))
	if !ok {
		respondError(w, http.StatusNotFound, "ALERT_NOT_FOUND", "no such alert: "+id)
		return
	}
	respondJSON(w, http.StatusOK, models.NewSuccessResponse(alertStatusResponse{
		ID:     id,
		Status: status,
	}))
}

// Status reports session health: stream state, model size, staleness.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, models.NewSuccessResponse(h.session.Status()))
}

// Subscribe forwards a per-animal subscription to the backend stream.
func (h *Handler) Subscribe(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.session.SubscribeToAnimal(id); err != nil {
		respondError(w, http.StatusServiceUnavailable, "STREAM_UNAVAILABLE", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, models.NewSuccessResponse(map[string]string{"animal_id": id, "subscription": "active"}))
}

// Unsubscribe cancels a per-animal backend subscription.
func (h *Handler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.session.UnsubscribeFromAnimal(id); err != nil {
		respondError(w, http.StatusServiceUnavailable, "STREAM_UNAVAILABLE", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, models.NewSuccessResponse(map[string]string{"animal_id": id, "subscription": "cancelled"}))
}

// HealthLive is the liveness probe.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, models.NewSuccessResponse(map[string]string{"status": "alive"}))
}

// HealthReady reports ready once the model holds data or the stream is
// connected. A freshly booted station with neither is still warming up.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	st := h.session.Status()
	if st.AnimalsTracked == 0 && st.StreamState != "connected" {
		respondJSON(w, http.StatusServiceUnavailable, models.NewErrorResponse(
			"NOT_READY", "no stream connection and no model data yet", nil))
		return
	}
	respondJSON(w, http.StatusOK, models.NewSuccessResponse(st))
}

// WebSocket upgrades the connection and registers the client with the hub.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	if h.hub == nil {
		respondError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "websocket service unavailable")
		return
	}

	upgrader := gorilla.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		HandshakeTimeout: 10 * time.Second,
		CheckOrigin:      h.checkOrigin,
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Error().Err(err).Msg("websocket upgrade error")
		return
	}

	client := ws.NewClient(h.hub, conn)
	h.hub.Register <- client
	client.Start()
}

// checkOrigin matches the request origin against the configured CORS
// origins. Same-origin requests send no Origin header and always pass.
func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range h.allowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}
