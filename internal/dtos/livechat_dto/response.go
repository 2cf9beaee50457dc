package livechat_dto

import "time"

type SessionResponse struct {
	SessionID string     `json:"sessionId"`
	UserID    string     `json:"userId"`
	AdminID   *string    `json:"adminId,omitempty"`
	Status    string     `json:"status"`
	Notes     string     `json:"notes,omitempty"`
	StartedAt time.Time  `json:"startedAt"`
	EndedAt   *time.Time `json:"endedAt,omitempty"`
}

type LiveChatMessageResponse struct {
	MessageID  string    `json:"messageId"`
	SessionID  string    `json:"sessionId"`
	SenderID   string    `json:"senderId"`
	SenderRole string    `json:"senderRole"`
	Text       string    `json:"text"`
	CreatedAt  time.Time `json:"createdAt"`
}

type SessionEndedEvent struct {
	SessionID string `json:"sessionId"`
	Status    string `json:"status"`
	EndedBy   string `json:"endedBy"`
	Reason    string `json:"reason,omitempty"`
}

type AdminJoinedEvent struct {
	SessionID string `json:"sessionId"`
	AdminID   string `json:"adminId"`
}
