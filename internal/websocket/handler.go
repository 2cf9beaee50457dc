package websocket

import (
	"context"
	"net/http"
	"time"

	"github.com/commune-hq/realtime/internal/presence"
	user_repo "github.com/commune-hq/realtime/internal/repo/user"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// TODO: limit your cors, don't get true so easy in production
	CheckOrigin: func(r *http.Request) bool { return true },
}

type WebSocketHandler struct {
	hub           *Hub
	router        *EventRouter
	presence      *presence.Registry
	users         user_repo.UserRepoContract
	authenticator AuthenticatorFunc
}

func NewWebSocketHandler(hub *Hub, router *EventRouter, registry *presence.Registry, users user_repo.UserRepoContract, authenticator AuthenticatorFunc) *WebSocketHandler {
	return &WebSocketHandler{
		hub:           hub,
		router:        router,
		presence:      registry,
		users:         users,
		authenticator: authenticator,
	}
}

// ServeWS authenticates the handshake, upgrades the connection and wires the
// client into the hub. Authentication happens before the upgrade so a bad
// token is refused with a plain 401 instead of a doomed socket.
func (h *WebSocketHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	identity, err := h.authenticator(r)
	if err != nil {
		log.Warn().Err(err).Str("remote", r.RemoteAddr).Msg("ws: handshake rejected")
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("ws: upgrade failed")
		return
	}

	client := NewClient(uuid.New().String(), identity, conn)
	client.onFrame = h.router.Dispatch
	client.onClose = h.onDisconnect

	h.hub.RegisterClient(client)
	h.presence.MarkOnline(client.ctx, client.UserID, client.ID)

	client.Start()

	log.Info().Str("clientID", client.ID).Str("userID", client.UserID).Msg("ws: connection established")
}

// onDisconnect runs once per connection. Presence only clears when the user's
// last connection goes away, so a second tab never flips them offline.
func (h *WebSocketHandler) onDisconnect(client *Client) {
	h.hub.RemoveClient(client)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if len(h.hub.GetUserClients(client.UserID)) == 0 {
		h.presence.MarkOffline(ctx, client.UserID)
	}

	if appErr := h.users.UpdateLastActiveAt(ctx, client.UserID); appErr != nil {
		log.Warn().Str("userID", client.UserID).Msg("ws: failed to record last active timestamp")
	}
}
