package routers

import (
	"github.com/commune-hq/realtime/internal/handlers"
	user_handler "github.com/commune-hq/realtime/internal/handlers/user-handler"
	"github.com/commune-hq/realtime/state"
	"github.com/go-chi/chi/v5"
)

func UserRouter(r chi.Router, appState *state.AppState) {
	userHandler := user_handler.NewUserHandler(appState)

	r.Post("/api/v1/users/register", handlers.WrapHandler(userHandler.CreateUser))
	r.Post("/api/v1/users/login", handlers.WrapHandler(userHandler.LoginUser))
}
