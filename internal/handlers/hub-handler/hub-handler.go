package hub_handler

import (
	"encoding/json"
	"net/http"
	"time"

	app_error "github.com/commune-hq/realtime/internal/errors"
	"github.com/commune-hq/realtime/internal/handlers"
	"github.com/commune-hq/realtime/internal/middleware"
	"github.com/commune-hq/realtime/internal/presence"
	"github.com/commune-hq/realtime/internal/websocket"
	"github.com/go-chi/chi/v5"
)

type HubHandler struct {
	Hub      *websocket.Hub
	Presence *presence.Registry
}

func NewHubHandler(hub *websocket.Hub, registry *presence.Registry) *HubHandler {
	return &HubHandler{
		Hub:      hub,
		Presence: registry,
	}
}

func (h *HubHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	handlers.WriteJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().Unix(),
		"service":   "realtime-server",
	})
}

func (h *HubHandler) HandleGetStats(w http.ResponseWriter, r *http.Request) *app_error.AppError {
	stats := h.Hub.GetHubStats()
	reqID, ok := r.Context().Value(middleware.RequestIdKey).(string)
	if !ok {
		reqID = "unknown"
	}
	handlers.WriteJSON(w, http.StatusOK, handlers.CreateResponse("get websocket stats", stats, reqID))
	return nil
}

func (h *HubHandler) HandleGetRoomStats(w http.ResponseWriter, r *http.Request) *app_error.AppError {
	roomID := chi.URLParam(r, "roomId")
	stats := h.Hub.GetRoomStats(roomID)
	reqID, ok := r.Context().Value(middleware.RequestIdKey).(string)
	if !ok {
		reqID = "unknown"
	}

	handlers.WriteJSON(w, http.StatusOK, handlers.CreateResponse("get websocket room stats", stats, reqID))

	return nil
}

// HandleGetUserStatus answers presence for a single user, cross-instance via
// the registry rather than this process's hub alone.
func (h *HubHandler) HandleGetUserStatus(w http.ResponseWriter, r *http.Request) *app_error.AppError {
	userID := chi.URLParam(r, "userId")

	clients := h.Hub.GetUserClients(userID)
	isOnline := h.Presence.IsOnline(r.Context(), userID)

	resp := map[string]any{
		"user_id":        userID,
		"online":         isOnline,
		"active_clients": len(clients),
	}

	reqID, ok := r.Context().Value(middleware.RequestIdKey).(string)
	if !ok {
		reqID = "unknown"
	}

	handlers.WriteJSON(w, http.StatusOK, handlers.CreateResponse("successful get user status", resp, reqID))

	return nil
}

// HandleBroadcastToRoom lets an admin push an arbitrary event to a room.
// Routed behind RequireAdmin.
func (h *HubHandler) HandleBroadcastToRoom(w http.ResponseWriter, r *http.Request) *app_error.AppError {
	roomID := chi.URLParam(r, "roomId")

	var payload struct {
		Event string         `json:"event"`
		Data  map[string]any `json:"data"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		return app_error.BadRequest("Invalid request body", "request-body-broadcast")
	}

	if payload.Event == "" {
		payload.Event = "system_announcement"
	}

	h.Hub.EmitToRoom(roomID, payload.Event, payload.Data)

	resp := map[string]any{
		"status":    "sent",
		"room_id":   roomID,
		"event":     payload.Event,
		"timestamp": time.Now().Unix(),
	}

	reqID, ok := r.Context().Value(middleware.RequestIdKey).(string)
	if !ok {
		reqID = "unknown"
	}
	handlers.WriteJSON(w, http.StatusOK, handlers.CreateResponse("successfully broadcast to room", resp, reqID))
	return nil
}

// HandleBroadcastToUser pushes an event to every connection a user holds.
// Routed behind RequireAdmin.
func (h *HubHandler) HandleBroadcastToUser(w http.ResponseWriter, r *http.Request) *app_error.AppError {
	userID := chi.URLParam(r, "userId")

	var payload struct {
		Event string         `json:"event"`
		Data  map[string]any `json:"data"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		return app_error.BadRequest("invalid request body", "request-body-broadcast-user")
	}

	if payload.Event == "" {
		payload.Event = "system_announcement"
	}

	h.Hub.EmitToUser(userID, payload.Event, payload.Data)

	resp := map[string]any{
		"status":    "sent",
		"user_id":   userID,
		"event":     payload.Event,
		"timestamp": time.Now().Unix(),
	}

	reqID, ok := r.Context().Value(middleware.RequestIdKey).(string)
	if !ok {
		reqID = "unknown"
	}
	handlers.WriteJSON(w, http.StatusOK, handlers.CreateResponse("successfully broadcast to user", resp, reqID))

	return nil
}
