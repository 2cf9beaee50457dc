package routers

import (
	"github.com/commune-hq/realtime/internal/handlers"
	hub_handler "github.com/commune-hq/realtime/internal/handlers/hub-handler"
	"github.com/commune-hq/realtime/internal/middleware"
	"github.com/go-chi/chi/v5"
)

func HubRouter(r chi.Router, deps Deps) {
	hubHandler := hub_handler.NewHubHandler(deps.Hub, deps.Presence)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", hubHandler.HandleHealth)

		r.Group(func(protected chi.Router) {
			protected.Use(middleware.JWTAuth(deps.State.JwtSecret.Public))
			protected.Get("/users/{userId}/status", handlers.WrapHandler(hubHandler.HandleGetUserStatus))

			protected.Group(func(admin chi.Router) {
				admin.Use(middleware.RequireAdmin)
				admin.Get("/stats", handlers.WrapHandler(hubHandler.HandleGetStats))
				admin.Get("/rooms/{roomId}/stats", handlers.WrapHandler(hubHandler.HandleGetRoomStats))
				admin.Post("/rooms/{roomId}/broadcast", handlers.WrapHandler(hubHandler.HandleBroadcastToRoom))
				admin.Post("/users/{userId}/broadcast", handlers.WrapHandler(hubHandler.HandleBroadcastToUser))
			})
		})
	})
}
