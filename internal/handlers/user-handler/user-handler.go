package user_handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/commune-hq/realtime/internal/dtos/user_dto"
	app_error "github.com/commune-hq/realtime/internal/errors"
	"github.com/commune-hq/realtime/internal/handlers"
	"github.com/commune-hq/realtime/internal/middleware"
	user_repo "github.com/commune-hq/realtime/internal/repo/user"
	user_service "github.com/commune-hq/realtime/internal/use-case/user-case"
	"github.com/commune-hq/realtime/state"
	"github.com/go-playground/validator/v10"
)

type UserHandler struct {
	State    *state.AppState
	Validate *validator.Validate
	Service  user_service.UserServiceContract
}

func NewUserHandler(appState *state.AppState) *UserHandler {
	return &UserHandler{
		State:    appState,
		Validate: validator.New(),
		Service:  user_service.NewUserService(user_repo.NewUserRepo(appState), appState.JwtSecret.Private),
	}
}

func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) *app_error.AppError {
	var req user_dto.CreateUserRequest
	defer r.Body.Close()

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return app_error.BadRequest("Invalid JSON", "body")
	}

	if err := h.Validate.Struct(req); err != nil {
		return app_error.BadRequest(fmt.Sprintf("Invalid fields: %v", err), "validation")
	}

	resp, appErr := h.Service.Register(r.Context(), req)
	if appErr != nil {
		return appErr
	}

	reqID, ok := r.Context().Value(middleware.RequestIdKey).(string)
	if !ok {
		reqID = "unknown"
	}

	handlers.WriteJSON(w, http.StatusCreated, handlers.CreateResponse("user registered successfully", *resp, reqID))

	return nil
}

func (h *UserHandler) LoginUser(w http.ResponseWriter, r *http.Request) *app_error.AppError {
	var req user_dto.LoginRequest
	defer r.Body.Close()

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return app_error.BadRequest("Invalid JSON", "body")
	}

	if err := h.Validate.Struct(req); err != nil {
		return app_error.BadRequest(fmt.Sprintf("Invalid fields: %v", err), "validation")
	}

	resp, appErr := h.Service.Login(r.Context(), req)
	if appErr != nil {
		return appErr
	}

	reqID, ok := r.Context().Value(middleware.RequestIdKey).(string)
	if !ok {
		reqID = "unknown"
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "refresh_token",
		Value:    resp.RefreshToken,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
		Path:     "/",
		Expires:  time.Now().Add(7 * 24 * time.Hour),
	})

	handlers.WriteJSON(w, http.StatusOK, handlers.CreateResponse("login successful", *resp, reqID))

	return nil
}
