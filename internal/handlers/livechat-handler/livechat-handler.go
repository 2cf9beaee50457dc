package livechat_handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/commune-hq/realtime/internal/dtos"
	"github.com/commune-hq/realtime/internal/dtos/livechat_dto"
	app_error "github.com/commune-hq/realtime/internal/errors"
	"github.com/commune-hq/realtime/internal/handlers"
	"github.com/commune-hq/realtime/internal/middleware"
	livechat_service "github.com/commune-hq/realtime/internal/use-case/livechat-case"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

type LiveChatHandler struct {
	Validate *validator.Validate
	Service  livechat_service.LiveChatServiceContract
}

func NewLiveChatHandler(service livechat_service.LiveChatServiceContract) *LiveChatHandler {
	return &LiveChatHandler{
		Validate: validator.New(),
		Service:  service,
	}
}

// StartSession opens a queued hand-off session for the authenticated user.
func (h *LiveChatHandler) StartSession(w http.ResponseWriter, r *http.Request) *app_error.AppError {
	actor, appErr := actorFromContext(r)
	if appErr != nil {
		return appErr
	}

	resp, appErr := h.Service.Start(r.Context(), actor)
	if appErr != nil {
		return appErr
	}

	writeResponse(w, r, "live chat session started", *resp)
	return nil
}

// ClaimSession assigns the session to the calling admin. Routed behind
// RequireAdmin; the service re-checks the role anyway.
func (h *LiveChatHandler) ClaimSession(w http.ResponseWriter, r *http.Request) *app_error.AppError {
	sessionID := chi.URLParam(r, "sessionId")

	actor, appErr := actorFromContext(r)
	if appErr != nil {
		return appErr
	}

	resp, appErr := h.Service.Claim(r.Context(), actor, sessionID)
	if appErr != nil {
		return appErr
	}

	writeResponse(w, r, "live chat session claimed", *resp)
	return nil
}

func (h *LiveChatHandler) PostMessage(w http.ResponseWriter, r *http.Request) *app_error.AppError {
	sessionID := chi.URLParam(r, "sessionId")

	actor, appErr := actorFromContext(r)
	if appErr != nil {
		return appErr
	}

	var req livechat_dto.PostMessageRequest
	defer r.Body.Close()

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return app_error.BadRequest("Invalid JSON", "body")
	}

	if err := h.Validate.Struct(req); err != nil {
		return app_error.BadRequest(fmt.Sprintf("Invalid fields: %v", err), "validation")
	}

	resp, appErr := h.Service.PostMessage(r.Context(), actor, sessionID, req.Message)
	if appErr != nil {
		return appErr
	}

	writeResponse(w, r, "message posted", *resp)
	return nil
}

func (h *LiveChatHandler) EndSession(w http.ResponseWriter, r *http.Request) *app_error.AppError {
	sessionID := chi.URLParam(r, "sessionId")

	actor, appErr := actorFromContext(r)
	if appErr != nil {
		return appErr
	}

	var req livechat_dto.EndSessionRequest
	defer r.Body.Close()

	// body is optional for an end request
	_ = json.NewDecoder(r.Body).Decode(&req)

	if err := h.Validate.Struct(req); err != nil {
		return app_error.BadRequest(fmt.Sprintf("Invalid fields: %v", err), "validation")
	}

	resp, appErr := h.Service.End(r.Context(), actor, sessionID, req.Reason, req.Notes)
	if appErr != nil {
		return appErr
	}

	writeResponse(w, r, "live chat session ended", *resp)
	return nil
}

// CancelSession withdraws a still-unclaimed request; only its owner may call.
func (h *LiveChatHandler) CancelSession(w http.ResponseWriter, r *http.Request) *app_error.AppError {
	sessionID := chi.URLParam(r, "sessionId")

	actor, appErr := actorFromContext(r)
	if appErr != nil {
		return appErr
	}

	var req livechat_dto.EndSessionRequest
	defer r.Body.Close()
	_ = json.NewDecoder(r.Body).Decode(&req)

	resp, appErr := h.Service.Cancel(r.Context(), actor, sessionID, req.Reason)
	if appErr != nil {
		return appErr
	}

	writeResponse(w, r, "live chat session cancelled", *resp)
	return nil
}

// AvailableSessions lists unclaimed active sessions, oldest first.
func (h *LiveChatHandler) AvailableSessions(w http.ResponseWriter, r *http.Request) *app_error.AppError {
	sessions, appErr := h.Service.Available(r.Context())
	if appErr != nil {
		return appErr
	}

	writeResponse(w, r, "available live chat sessions", sessions)
	return nil
}

func (h *LiveChatHandler) GetTranscript(w http.ResponseWriter, r *http.Request) *app_error.AppError {
	sessionID := chi.URLParam(r, "sessionId")

	actor, appErr := actorFromContext(r)
	if appErr != nil {
		return appErr
	}

	messages, appErr := h.Service.Transcript(r.Context(), actor, sessionID)
	if appErr != nil {
		return appErr
	}

	writeResponse(w, r, "live chat transcript", messages)
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

func writeResponse[T any](w http.ResponseWriter, r *http.Request, message string, data T) {
	reqID, ok := r.Context().Value(middleware.RequestIdKey).(string)
	if !ok {
		reqID = "unknown"
	}

	handlers.WriteJSON(w, http.StatusOK, handlers.CreateResponse(message, data, reqID))
}
