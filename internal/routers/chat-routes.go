package routers

import (
	"github.com/commune-hq/realtime/internal/handlers"
	chat_handler "github.com/commune-hq/realtime/internal/handlers/chat-handler"
	"github.com/commune-hq/realtime/internal/middleware"
	"github.com/go-chi/chi/v5"
)

func ChatRouter(r chi.Router, deps Deps) {
	chatHandler := chat_handler.NewChatHandler(deps.Chat)

	r.Group(func(protected chi.Router) {
		protected.Use(middleware.JWTAuth(deps.State.JwtSecret.Public))
		protected.Get("/api/v1/chats/{chatId}/messages", handlers.WrapHandler(chatHandler.GetChatHistory))
		protected.Post("/api/v1/chats/{chatId}/messages", handlers.WrapHandler(chatHandler.SendMessage))
	})
}
