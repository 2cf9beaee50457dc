package routers

import (
	"github.com/commune-hq/realtime/internal/handlers"
	livechat_handler "github.com/commune-hq/realtime/internal/handlers/livechat-handler"
	"github.com/commune-hq/realtime/internal/middleware"
	"github.com/go-chi/chi/v5"
)

func LiveChatRouter(r chi.Router, deps Deps) {
	liveChatHandler := livechat_handler.NewLiveChatHandler(deps.LiveChat)

	r.Group(func(protected chi.Router) {
		protected.Use(middleware.JWTAuth(deps.State.JwtSecret.Public))

		protected.Route("/api/v1/live-chat/sessions", func(r chi.Router) {
			r.Post("/", handlers.WrapHandler(liveChatHandler.StartSession))
			r.Post("/{sessionId}/messages", handlers.WrapHandler(liveChatHandler.PostMessage))
			r.Get("/{sessionId}/messages", handlers.WrapHandler(liveChatHandler.GetTranscript))
			r.Post("/{sessionId}/end", handlers.WrapHandler(liveChatHandler.EndSession))
			r.Post("/{sessionId}/cancel", handlers.WrapHandler(liveChatHandler.CancelSession))

			r.Group(func(admin chi.Router) {
				admin.Use(middleware.RequireAdmin)
				admin.Get("/available", handlers.WrapHandler(liveChatHandler.AvailableSessions))
				admin.Post("/{sessionId}/claim", handlers.WrapHandler(liveChatHandler.ClaimSession))
			})
		})
	})
}
