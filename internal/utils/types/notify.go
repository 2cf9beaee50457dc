package types

import "time"

type OfflinePushPayload struct {
	UserID     string    `json:"user_id"`
	ChatID     string    `json:"chat_id"`
	MessageID  string    `json:"message_id"`
	SenderID   string    `json:"sender_id"`
	SenderName string    `json:"sender_name"`
	Preview    string    `json:"preview"`
	CreatedAt  time.Time `json:"created_at"`
}

type AdminSessionAlertPayload struct {
	SessionID string    `json:"session_id"`
	UserID    string    `json:"user_id"`
	StartedAt time.Time `json:"started_at"`
}
