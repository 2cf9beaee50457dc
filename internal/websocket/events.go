package websocket

import "encoding/json"

// Client -> server event names.
const (
	EventJoinChat        = "join_chat"
	EventLeaveChat       = "leave_chat"
	EventSendMessage     = "send_message"
	EventTypingStart     = "typing_start"
	EventTypingStop      = "typing_stop"
	EventMarkRead        = "mark_read"
	EventGetOnlineStatus = "get_online_status"

	EventJoinLiveChat        = "join_live_chat"
	EventLeaveLiveChat       = "leave_live_chat"
	EventSendLiveChatMessage = "send_live_chat_message"
	EventNewLiveChatSession  = "new_live_chat_session"
	EventAdminJoinLiveChat   = "admin_join_live_chat"
	EventAdminLeaveLiveChat  = "admin_leave_live_chat"
	EventEndLiveChatSession  = "end_live_chat_session"
)

// Server -> client event names that originate here rather than in a service.
const (
	EventOnlineStatusResponse = "online_status_response"
	EventError                = "error"
	EventLiveChatError        = "live_chat_error"
)

// IncomingEvent is the envelope every client frame must parse into.
type IncomingEvent struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// OutgoingEvent is the envelope for every server push.
type OutgoingEvent struct {
	Event     string `json:"event"`
	RoomID    string `json:"roomId,omitempty"`
	Data      any    `json:"data,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

type joinChatPayload struct {
	ChatID string `json:"chatId"`
}

type typingPayload struct {
	ChatID string `json:"chatId"`
}

type onlineStatusPayload struct {
	UserIDs []string `json:"userIds"`
}

type sessionPayload struct {
	SessionID string `json:"sessionId"`
}

type liveChatMessagePayload struct {
	SessionID string `json:"sessionId"`
	Message   string `json:"message"`
}

type endSessionPayload struct {
	SessionID string `json:"sessionId"`
	Reason    string `json:"reason"`
	Notes     string `json:"notes"`
}

type errorPayload struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Event   string `json:"event,omitempty"`
}
