package chat_handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/commune-hq/realtime/internal/dtos"
	"github.com/commune-hq/realtime/internal/dtos/chat_dto"
	app_error "github.com/commune-hq/realtime/internal/errors"
	"github.com/commune-hq/realtime/internal/handlers"
	"github.com/commune-hq/realtime/internal/middleware"
	chat_service "github.com/commune-hq/realtime/internal/use-case/chat-case"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

type ChatHandler struct {
	Validate *validator.Validate
	Service  chat_service.ChatServiceContract
}

func NewChatHandler(service chat_service.ChatServiceContract) *ChatHandler {
	validate := validator.New()
	_ = validate.RegisterValidation("objectID", chat_dto.ObjectIDValidator)
	return &ChatHandler{
		Validate: validate,
		Service:  service,
	}
}

// GetChatHistory pages backwards through a chat's messages. Only active
// participants may read.
func (h *ChatHandler) GetChatHistory(w http.ResponseWriter, r *http.Request) *app_error.AppError {
	chatID := chi.URLParam(r, "chatId")

	actor, appErr := actorFromContext(r)
	if appErr != nil {
		return appErr
	}

	if appErr := h.Service.CanJoin(r.Context(), actor, chatID); appErr != nil {
		return appErr
	}

	req := chat_dto.HistoryRequest{}
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil {
			return app_error.BadRequest("limit must be a number", "limit")
		}
		req.Limit = limit
	}
	if v := r.URL.Query().Get("before_id"); v != "" {
		req.BeforeID = &v
	}

	if err := h.Validate.Struct(req); err != nil {
		return app_error.BadRequest(fmt.Sprintf("Invalid fields: %v", err), "validation")
	}

	resp, appErr := h.Service.History(r.Context(), chatID, req)
	if appErr != nil {
		return appErr
	}

	reqID, ok := r.Context().Value(middleware.RequestIdKey).(string)
	if !ok {
		reqID = "unknown"
	}

	handlers.WriteJSON(w, http.StatusOK, handlers.CreateResponse("chat history", *resp, reqID))

	return nil
}

// SendMessage is the HTTP fallback for clients without a live socket; the
// realtime fan-out still happens through the service.
func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) *app_error.AppError {
	var req chat_dto.SendMessageRequest
	defer r.Body.Close()

	actor, appErr := actorFromContext(r)
	if appErr != nil {
		return appErr
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return app_error.BadRequest("Invalid JSON", "body")
	}

	// the path decides the chat, not the body
	req.ChatID = chi.URLParam(r, "chatId")

	if err := h.Validate.Struct(req); err != nil {
		return app_error.BadRequest(fmt.Sprintf("Invalid fields: %v", err), "validation")
	}

	resp, appErr := h.Service.SendMessage(r.Context(), actor, req)
	if appErr != nil {
		return appErr
	}

	reqID, ok := r.Context().Value(middleware.RequestIdKey).(string)
	if !ok {
		reqID = "unknown"
	}

	handlers.WriteJSON(w, http.StatusCreated, handlers.CreateResponse("message sent", *resp, reqID))

	return nil
}

func actorFromContext(r *http.Request) (dtos.Actor, *app_error.AppError) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		return dtos.Actor{}, app_error.AuthenticationFailed("Missing authentication")
	}
	return dtos.Actor{
		UserID:   claims.Sub,
		Username: claims.Username,
		Role:     claims.Role,
	}, nil
}
