package websocket

import (
	"context"
	"encoding/json"

	"github.com/commune-hq/realtime/internal/dtos"
	"github.com/commune-hq/realtime/internal/dtos/chat_dto"
	app_error "github.com/commune-hq/realtime/internal/errors"
	chat_service "github.com/commune-hq/realtime/internal/use-case/chat-case"
	livechat_service "github.com/commune-hq/realtime/internal/use-case/livechat-case"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
)

// PresenceReader answers batch online-status queries for connected clients.
type PresenceReader interface {
	OnlineStatus(ctx context.Context, userIDs []string) map[string]bool
}

// EventRouter turns inbound frames into service calls. Every frame carries
// the authenticated identity of its connection; payload-supplied sender ids
// never reach the services.
type EventRouter struct {
	hub      *Hub
	chat     chat_service.ChatServiceContract
	livechat livechat_service.LiveChatServiceContract
	presence PresenceReader
	validate *validator.Validate
}

func NewEventRouter(hub *Hub, chat chat_service.ChatServiceContract, livechat livechat_service.LiveChatServiceContract, presence PresenceReader) *EventRouter {
	validate := validator.New()
	_ = validate.RegisterValidation("objectID", chat_dto.ObjectIDValidator)

	return &EventRouter{
		hub:      hub,
		chat:     chat,
		livechat: livechat,
		presence: presence,
		validate: validate,
	}
}

func (r *EventRouter) Dispatch(client *Client, raw []byte) {
	var event IncomingEvent
	if err := json.Unmarshal(raw, &event); err != nil {
		r.sendError(client, EventError, app_error.BadRequest("malformed event frame", "frame"), "")
		return
	}

	ctx := client.ctx
	actor := dtos.Actor{
		UserID:      client.UserID,
		Username:    client.Username,
		DisplayName: client.DisplayName,
		Role:        client.Role,
	}

	switch event.Event {
	case EventJoinChat:
		r.handleJoinChat(ctx, client, actor, event.Data)
	case EventLeaveChat:
		r.handleLeaveChat(client, event.Data)
	case EventSendMessage:
		r.handleSendMessage(ctx, client, actor, event.Data)
	case EventTypingStart, EventTypingStop:
		r.handleTyping(client, event.Event, event.Data)
	case EventMarkRead:
		r.handleMarkRead(ctx, client, actor, event.Data)
	case EventGetOnlineStatus:
		r.handleOnlineStatus(ctx, client, event.Data)

	case EventJoinLiveChat:
		r.handleJoinLiveChat(ctx, client, actor, event.Data)
	case EventLeaveLiveChat:
		r.handleLeaveLiveChat(client, event.Data)
	case EventSendLiveChatMessage:
		r.handleLiveChatMessage(ctx, client, actor, event.Data)
	case EventNewLiveChatSession:
		r.handleAnnounceSession(ctx, client, actor, event.Data)
	case EventAdminJoinLiveChat:
		r.handleAdminJoin(ctx, client, actor, event.Data)
	case EventAdminLeaveLiveChat:
		r.handleAdminLeave(ctx, client, actor, event.Data)
	case EventEndLiveChatSession:
		r.handleEndSession(ctx, client, actor, event.Data)

	default:
		log.Debug().Str("event", event.Event).Str("clientID", client.ID).Msg("ws: unknown event")
		r.sendError(client, EventError, app_error.BadRequest("unknown event", "event"), event.Event)
	}
}

func (r *EventRouter) handleJoinChat(ctx context.Context, client *Client, actor dtos.Actor, data json.RawMessage) {
	var payload joinChatPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.ChatID == "" {
		r.sendError(client, EventError, app_error.BadRequest("chatId is required", "chatId"), EventJoinChat)
		return
	}

	if appErr := r.chat.CanJoin(ctx, actor, payload.ChatID); appErr != nil {
		r.sendError(client, EventError, appErr, EventJoinChat)
		return
	}

	r.hub.Join(payload.ChatID, client)
}

func (r *EventRouter) handleLeaveChat(client *Client, data json.RawMessage) {
	var payload joinChatPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.ChatID == "" {
		r.sendError(client, EventError, app_error.BadRequest("chatId is required", "chatId"), EventLeaveChat)
		return
	}

	r.hub.Leave(payload.ChatID, client)
}

func (r *EventRouter) handleSendMessage(ctx context.Context, client *Client, actor dtos.Actor, data json.RawMessage) {
	var req chat_dto.SendMessageRequest
	if err := json.Unmarshal(data, &req); err != nil {
		r.sendError(client, EventError, app_error.BadRequest("malformed message payload", "payload"), EventSendMessage)
		return
	}
	if err := r.validate.Struct(req); err != nil {
		r.sendError(client, EventError, app_error.BadRequest(err.Error(), "payload"), EventSendMessage)
		return
	}

	if _, appErr := r.chat.SendMessage(ctx, actor, req); appErr != nil {
		r.sendError(client, EventError, appErr, EventSendMessage)
	}
}

// handleTyping rebroadcasts the indicator to everyone else in the room. It is
// ephemeral: nothing is persisted and the typist never hears an echo.
func (r *EventRouter) handleTyping(client *Client, event string, data json.RawMessage) {
	var payload typingPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.ChatID == "" {
		r.sendError(client, EventError, app_error.BadRequest("chatId is required", "chatId"), event)
		return
	}

	if !r.hub.IsUserOnlineInRoom(payload.ChatID, client.UserID) {
		r.sendError(client, EventError, app_error.AccessDenied("join the chat before typing"), event)
		return
	}

	r.hub.EmitToRoomExcept(payload.ChatID, event, map[string]any{
		"chatId":   payload.ChatID,
		"userId":   client.UserID,
		"username": client.Username,
	}, client)
}

func (r *EventRouter) handleMarkRead(ctx context.Context, client *Client, actor dtos.Actor, data json.RawMessage) {
	var req chat_dto.MarkReadRequest
	if err := json.Unmarshal(data, &req); err != nil {
		r.sendError(client, EventError, app_error.BadRequest("malformed mark-read payload", "payload"), EventMarkRead)
		return
	}
	if err := r.validate.Struct(req); err != nil {
		r.sendError(client, EventError, app_error.BadRequest(err.Error(), "payload"), EventMarkRead)
		return
	}

	if _, appErr := r.chat.MarkRead(ctx, actor, req); appErr != nil {
		r.sendError(client, EventError, appErr, EventMarkRead)
	}
}

// handleOnlineStatus answers directly on the requesting connection, no room
// involved.
func (r *EventRouter) handleOnlineStatus(ctx context.Context, client *Client, data json.RawMessage) {
	var payload onlineStatusPayload
	if err := json.Unmarshal(data, &payload); err != nil || len(payload.UserIDs) == 0 {
		r.sendError(client, EventError, app_error.BadRequest("userIds is required", "userIds"), EventGetOnlineStatus)
		return
	}

	status := r.presence.OnlineStatus(ctx, payload.UserIDs)

	r.hub.SendTo(client, EventOnlineStatusResponse, map[string]any{
		"status": status,
	})
}

func (r *EventRouter) handleJoinLiveChat(ctx context.Context, client *Client, actor dtos.Actor, data json.RawMessage) {
	var payload sessionPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.SessionID == "" {
		r.sendError(client, EventLiveChatError, app_error.BadRequest("sessionId is required", "sessionId"), EventJoinLiveChat)
		return
	}

	if appErr := r.livechat.CanJoin(ctx, actor, payload.SessionID); appErr != nil {
		r.sendError(client, EventLiveChatError, appErr, EventJoinLiveChat)
		return
	}

	r.hub.Join(payload.SessionID, client)
}

func (r *EventRouter) handleLeaveLiveChat(client *Client, data json.RawMessage) {
	var payload sessionPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.SessionID == "" {
		r.sendError(client, EventLiveChatError, app_error.BadRequest("sessionId is required", "sessionId"), EventLeaveLiveChat)
		return
	}

	r.hub.Leave(payload.SessionID, client)
}

func (r *EventRouter) handleLiveChatMessage(ctx context.Context, client *Client, actor dtos.Actor, data json.RawMessage) {
	var payload liveChatMessagePayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.SessionID == "" || payload.Message == "" {
		r.sendError(client, EventLiveChatError, app_error.BadRequest("sessionId and message are required", "payload"), EventSendLiveChatMessage)
		return
	}

	if _, appErr := r.livechat.PostMessage(ctx, actor, payload.SessionID, payload.Message); appErr != nil {
		r.sendError(client, EventLiveChatError, appErr, EventSendLiveChatMessage)
	}
}

func (r *EventRouter) handleAnnounceSession(ctx context.Context, client *Client, actor dtos.Actor, data json.RawMessage) {
	var payload sessionPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.SessionID == "" {
		r.sendError(client, EventLiveChatError, app_error.BadRequest("sessionId is required", "sessionId"), EventNewLiveChatSession)
		return
	}

	if appErr := r.livechat.Announce(ctx, actor, payload.SessionID); appErr != nil {
		r.sendError(client, EventLiveChatError, appErr, EventNewLiveChatSession)
	}
}

// handleAdminJoin claims the session and subscribes the winning admin to its
// room in one step.
func (r *EventRouter) handleAdminJoin(ctx context.Context, client *Client, actor dtos.Actor, data json.RawMessage) {
	var payload sessionPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.SessionID == "" {
		r.sendError(client, EventLiveChatError, app_error.BadRequest("sessionId is required", "sessionId"), EventAdminJoinLiveChat)
		return
	}

	if _, appErr := r.livechat.Claim(ctx, actor, payload.SessionID); appErr != nil {
		r.sendError(client, EventLiveChatError, appErr, EventAdminJoinLiveChat)
		return
	}

	r.hub.Join(payload.SessionID, client)
}

func (r *EventRouter) handleAdminLeave(ctx context.Context, client *Client, actor dtos.Actor, data json.RawMessage) {
	var payload sessionPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.SessionID == "" {
		r.sendError(client, EventLiveChatError, app_error.BadRequest("sessionId is required", "sessionId"), EventAdminLeaveLiveChat)
		return
	}

	if appErr := r.livechat.Unclaim(ctx, actor, payload.SessionID); appErr != nil {
		r.sendError(client, EventLiveChatError, appErr, EventAdminLeaveLiveChat)
		return
	}

	r.hub.Leave(payload.SessionID, client)
}

func (r *EventRouter) handleEndSession(ctx context.Context, client *Client, actor dtos.Actor, data json.RawMessage) {
	var payload endSessionPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.SessionID == "" {
		r.sendError(client, EventLiveChatError, app_error.BadRequest("sessionId is required", "sessionId"), EventEndLiveChatSession)
		return
	}

	if _, appErr := r.livechat.End(ctx, actor, payload.SessionID, payload.Reason, payload.Notes); appErr != nil {
		r.sendError(client, EventLiveChatError, appErr, EventEndLiveChatSession)
	}
}

// sendError pushes a structured error to the offending connection only.
func (r *EventRouter) sendError(client *Client, errorEvent string, appErr *app_error.AppError, sourceEvent string) {
	r.hub.SendTo(client, errorEvent, errorPayload{
		Code:    appErr.Code,
		Message: appErr.Message,
		Event:   sourceEvent,
	})
}
