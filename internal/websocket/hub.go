package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

type Hub struct {
	// Room management
	rooms map[string]map[*Client]struct{}
	mu    sync.RWMutex

	// User tracking
	userClients map[string][]*Client // userID -> [clients]
	userMu      sync.RWMutex

	// Connected admin tracking, fed by registration
	admins  map[*Client]struct{}
	adminMu sync.RWMutex

	// Hub lifecycle
	ctx    context.Context
	cancel context.CancelFunc

	// Metrics
	stats   HubStats
	statsMu sync.RWMutex

	cleanupTicker *time.Ticker
}

type HubStats struct {
	TotalRooms       int       `json:"total_rooms"`
	TotalClients     int       `json:"total_clients"`
	TotalConnections int64     `json:"total_connections"`
	MessageSent      int64     `json:"message_sent"`
	LastReset        time.Time `json:"last_reset"`
}

func NewHub() *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	hub := &Hub{
		rooms:       make(map[string]map[*Client]struct{}),
		userClients: make(map[string][]*Client),
		admins:      make(map[*Client]struct{}),
		ctx:         ctx,
		cancel:      cancel,
		stats: HubStats{
			LastReset: time.Now(),
		},
		cleanupTicker: time.NewTicker(1 * time.Minute),
	}

	go hub.cleanupRoutine()

	return hub
}

// RegisterClient indexes a freshly authenticated connection. Room membership
// comes later, through Join.
func (h *Hub) RegisterClient(client *Client) {
	h.userMu.Lock()
	h.userClients[client.UserID] = append(h.userClients[client.UserID], client)
	h.userMu.Unlock()

	if client.Role == "admin" {
		h.adminMu.Lock()
		h.admins[client] = struct{}{}
		h.adminMu.Unlock()
	}

	h.updateStats(func(stats *HubStats) {
		stats.TotalConnections++
	})

	log.Info().Str("clientID", client.ID).Str("userID", client.UserID).Str("role", client.Role).Msg("ws: client registered")
}

// RemoveClient sweeps the connection out of every room it joined and out of
// the user and admin indexes.
func (h *Hub) RemoveClient(client *Client) {
	for _, roomID := range client.Rooms() {
		h.Leave(roomID, client)
	}

	h.userMu.Lock()
	clients := h.userClients[client.UserID]
	for i, c := range clients {
		if c == client {
			h.userClients[client.UserID] = append(clients[:i], clients[i+1:]...)
			break
		}
	}
	if len(h.userClients[client.UserID]) == 0 {
		delete(h.userClients, client.UserID)
	}
	h.userMu.Unlock()

	h.adminMu.Lock()
	delete(h.admins, client)
	h.adminMu.Unlock()

	log.Info().Str("clientID", client.ID).Str("userID", client.UserID).Msg("ws: client removed")
}

// Join subscribes a connection to a room.
func (h *Hub) Join(roomID string, client *Client) {
	h.mu.Lock()
	if h.rooms[roomID] == nil {
		h.rooms[roomID] = make(map[*Client]struct{})
	}
	h.rooms[roomID][client] = struct{}{}
	roomSize := len(h.rooms[roomID])
	h.mu.Unlock()

	client.joinRoom(roomID)

	log.Info().Str("roomID", roomID).Str("clientID", client.ID).Str("userID", client.UserID).Int("roomSize", roomSize).Msg("ws: client joined room")
}

// Leave unsubscribes a connection from a room, dropping the room once empty.
func (h *Hub) Leave(roomID string, client *Client) {
	h.mu.Lock()
	if clients, ok := h.rooms[roomID]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.rooms, roomID)
		}
	}
	h.mu.Unlock()

	client.leaveRoom(roomID)

	log.Info().Str("roomID", roomID).Str("clientID", client.ID).Str("userID", client.UserID).Msg("ws: client left room")
}

// EmitToRoom sends an event to every connection in a room.
func (h *Hub) EmitToRoom(roomID, event string, data any) {
	h.emitToRoomInternal(roomID, event, data, nil)
}

// EmitToRoomExcept sends an event to a room, skipping one connection.
// Typing indicators use this so the typist never echoes.
func (h *Hub) EmitToRoomExcept(roomID, event string, data any, except *Client) {
	h.emitToRoomInternal(roomID, event, data, except)
}

func (h *Hub) emitToRoomInternal(roomID, event string, data any, except *Client) {
	raw, err := json.Marshal(OutgoingEvent{
		Event:     event,
		RoomID:    roomID,
		Data:      data,
		Timestamp: time.Now().Unix(),
	})
	if err != nil {
		log.Error().Err(err).Str("roomID", roomID).Str("event", event).Msg("ws: failed to marshal broadcast")
		return
	}

	// Snapshot targets under the read lock, send outside it
	h.mu.RLock()
	var targets []*Client
	if clients, ok := h.rooms[roomID]; ok {
		targets = make([]*Client, 0, len(clients))
		for client := range clients {
			if except != nil && client == except {
				continue
			}
			if client.IsClientActive() {
				targets = append(targets, client)
			}
		}
	}
	h.mu.RUnlock()

	if len(targets) == 0 {
		return
	}

	h.deliver(targets, raw, roomID, event)
}

func (h *Hub) deliver(targets []*Client, raw []byte, scope, event string) {
	var wg sync.WaitGroup
	semaphore := make(chan struct{}, 50) // limit concurrent sends

	for _, client := range targets {
		wg.Add(1)
		go func(c *Client) {
			defer wg.Done()
			semaphore <- struct{}{}
			defer func() {
				<-semaphore
			}()
			select {
			case c.Send <- raw:
			case <-c.ctx.Done():
				// client is closing
			default:
				// buffer full - slow consumer
				log.Warn().Str("scope", scope).Str("clientID", c.ID).Msg("ws: slow consumer, dropping connection")
				go c.Close()
			}
		}(client)
	}

	wg.Wait()

	h.updateStats(func(stats *HubStats) {
		stats.MessageSent += int64(len(targets))
	})

	log.Debug().Str("scope", scope).Int("targets", len(targets)).Str("event", event).Msg("ws: broadcast completed")
}

// EmitToUser sends an event to every connection a user holds, regardless of
// room membership.
func (h *Hub) EmitToUser(userID, event string, data any) {
	h.userMu.RLock()
	clients := make([]*Client, len(h.userClients[userID]))
	copy(clients, h.userClients[userID])
	h.userMu.RUnlock()

	if len(clients) == 0 {
		return
	}

	raw, err := json.Marshal(OutgoingEvent{
		Event:     event,
		Data:      data,
		Timestamp: time.Now().Unix(),
	})
	if err != nil {
		log.Error().Err(err).Str("userID", userID).Str("event", event).Msg("ws: failed to marshal user push")
		return
	}

	var targets []*Client
	for _, client := range clients {
		if client.IsClientActive() {
			targets = append(targets, client)
		}
	}
	if len(targets) == 0 {
		return
	}

	h.deliver(targets, raw, "user:"+userID, event)
}

// NotifyAdmins fans an event out to every connected admin, optionally
// skipping one (the admin who triggered it).
func (h *Hub) NotifyAdmins(event string, data any, exceptAdminID string) {
	h.adminMu.RLock()
	targets := make([]*Client, 0, len(h.admins))
	for client := range h.admins {
		if exceptAdminID != "" && client.UserID == exceptAdminID {
			continue
		}
		if client.IsClientActive() {
			targets = append(targets, client)
		}
	}
	h.adminMu.RUnlock()

	if len(targets) == 0 {
		return
	}

	raw, err := json.Marshal(OutgoingEvent{
		Event:     event,
		Data:      data,
		Timestamp: time.Now().Unix(),
	})
	if err != nil {
		log.Error().Err(err).Str("event", event).Msg("ws: failed to marshal admin fanout")
		return
	}

	h.deliver(targets, raw, "admins", event)
}

// SendTo pushes an event to a single connection, used for direct replies to
// a client's own request.
func (h *Hub) SendTo(client *Client, event string, data any) {
	raw, err := json.Marshal(OutgoingEvent{
		Event:     event,
		Data:      data,
		Timestamp: time.Now().Unix(),
	})
	if err != nil {
		log.Error().Err(err).Str("clientID", client.ID).Str("event", event).Msg("ws: failed to marshal direct reply")
		return
	}

	if !client.IsClientActive() {
		return
	}

	select {
	case client.Send <- raw:
	case <-client.ctx.Done():
	default:
		log.Warn().Str("clientID", client.ID).Msg("ws: client buffer full on direct reply")
	}
}

// GetRoomClients returns all active clients in a room.
func (h *Hub) GetRoomClients(roomID string) []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var clients []*Client
	if roomClients, ok := h.rooms[roomID]; ok {
		for client := range roomClients {
			if client.IsClientActive() {
				clients = append(clients, client)
			}
		}
	}

	return clients
}

// GetUserClients returns all active clients for a user.
func (h *Hub) GetUserClients(userID string) []*Client {
	h.userMu.RLock()
	defer h.userMu.RUnlock()

	var activeClients []*Client
	for _, client := range h.userClients[userID] {
		if client.IsClientActive() {
			activeClients = append(activeClients, client)
		}
	}

	return activeClients
}

// IsUserOnlineInRoom checks if a user has any active connection in a room.
func (h *Hub) IsUserOnlineInRoom(roomID, userID string) bool {
	h.mu.RLock()
	roomClients, ok := h.rooms[roomID]
	h.mu.RUnlock()

	if !ok {
		return false
	}

	for client := range roomClients {
		if client.UserID == userID && client.IsClientActive() {
			return true
		}
	}

	return false
}

// GetRoomStats returns statistics for a room.
func (h *Hub) GetRoomStats(roomID string) map[string]interface{} {
	h.mu.RLock()
	defer h.mu.RUnlock()

	stats := map[string]interface{}{
		"room_id": roomID,
		"exists":  false,
	}

	if clients, ok := h.rooms[roomID]; ok {
		activeClients := 0
		uniqueUsers := make(map[string]bool)

		for client := range clients {
			if client.IsClientActive() {
				activeClients++
				uniqueUsers[client.UserID] = true
			}
		}

		stats["exists"] = true
		stats["total_connections"] = len(clients)
		stats["active_connections"] = activeClients
		stats["unique_users"] = len(uniqueUsers)
	}

	return stats
}

// GetHubStats returns overall hub statistics.
func (h *Hub) GetHubStats() HubStats {
	h.statsMu.RLock()
	defer h.statsMu.RUnlock()

	h.mu.RLock()
	h.stats.TotalRooms = len(h.rooms)

	totalClients := 0
	for _, clients := range h.rooms {
		for client := range clients {
			if client.IsClientActive() {
				totalClients++
			}
		}
	}
	h.stats.TotalClients = totalClients
	h.mu.RUnlock()

	return h.stats
}

func (h *Hub) updateStats(fn func(*HubStats)) {
	h.statsMu.Lock()
	fn(&h.stats)
	h.statsMu.Unlock()
}

func (h *Hub) cleanupRoutine() {
	defer h.cleanupTicker.Stop()

	for {
		select {
		case <-h.ctx.Done():
			return
		case <-h.cleanupTicker.C:
			h.performCleanup()
		}
	}
}

func (h *Hub) performCleanup() {
	now := time.Now()
	inactiveThreshold := 2 * time.Minute

	var toRemove []*Client

	h.userMu.RLock()
	for _, clients := range h.userClients {
		for _, client := range clients {
			if !client.IsClientActive() || now.Sub(client.GetLastSeen()) > inactiveThreshold {
				toRemove = append(toRemove, client)
			}
		}
	}
	h.userMu.RUnlock()

	for _, client := range toRemove {
		log.Info().
			Str("clientID", client.ID).
			Str("userID", client.UserID).
			Msg("ws: cleaning up inactive client")
		client.Close()
	}

	log.Debug().Int("cleaned", len(toRemove)).Msg("ws: cleanup routine completed")
}

// Close gracefully shuts down the hub.
func (h *Hub) Close() {
	log.Info().Msg("ws: shutting down hub")

	h.cancel()

	h.userMu.RLock()
	var allClients []*Client
	for _, clients := range h.userClients {
		allClients = append(allClients, clients...)
	}
	h.userMu.RUnlock()

	for _, client := range allClients {
		client.Close()
	}

	log.Info().Int("clients", len(allClients)).Msg("ws: hub shutdown completed")
}
