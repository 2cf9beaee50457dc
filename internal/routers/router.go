package routers

import (
	"net/http"

	"github.com/commune-hq/realtime/internal/middleware"
	"github.com/commune-hq/realtime/internal/presence"
	chat_service "github.com/commune-hq/realtime/internal/use-case/chat-case"
	livechat_service "github.com/commune-hq/realtime/internal/use-case/livechat-case"
	"github.com/commune-hq/realtime/internal/websocket"
	"github.com/commune-hq/realtime/state"
	"github.com/go-chi/chi/v5"
)

// Deps carries the wired components the routes hang off. The services are
// shared with the websocket dispatcher so both surfaces run the same flows.
type Deps struct {
	State     *state.AppState
	Hub       *websocket.Hub
	Presence  *presence.Registry
	WSHandler *websocket.WebSocketHandler
	Chat      chat_service.ChatServiceContract
	LiveChat  livechat_service.LiveChatServiceContract
}

func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.WithRequestId)

	UserRouter(r, deps.State)
	ChatRouter(r, deps)
	LiveChatRouter(r, deps)
	HubRouter(r, deps)

	r.Get("/ws", deps.WSHandler.ServeWS)

	return r
}
