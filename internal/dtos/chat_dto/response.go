package chat_dto

import (
	"time"

	"github.com/commune-hq/realtime/internal/entity"
)

// SenderPreview is the minimal projection broadcast with messages. The full
// user record never crosses the realtime surface.
type SenderPreview struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName,omitempty"`
}

type MessageResponse struct {
	MessageID string                `json:"messageId"`
	ChatID    string                `json:"chatId"`
	Sender    SenderPreview         `json:"sender"`
	Type      string                `json:"type"`
	Content   entity.MessageContent `json:"content"`
	ReplyTo   *string               `json:"replyToId,omitempty"`
	CreatedAt time.Time             `json:"createdAt"`
}

type HistoryMessage struct {
	MessageID string                `json:"messageId"`
	SenderID  string                `json:"senderId"`
	Type      string                `json:"type"`
	Content   entity.MessageContent `json:"content"`
	ReplyTo   *string               `json:"replyToId,omitempty"`
	ReadBy    []string              `json:"readBy"`
	CreatedAt time.Time             `json:"createdAt"`
}

type HistoryResponse struct {
	Messages   []HistoryMessage `json:"messages"`
	NextCursor *string          `json:"next_cursor,omitempty"`
	HasMore    bool             `json:"has_more"`
}

type MessagesReadEvent struct {
	ChatID     string   `json:"chatId"`
	UserID     string   `json:"userId"`
	MessageIDs []string `json:"messageIds"`
}
