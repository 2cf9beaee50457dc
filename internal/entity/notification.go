package entity

import (
	"time"
)

const (
	NotificationLiveChatQueued = "live_chat_queued"
	NotificationOfflineMessage = "offline_message"
)

type Notification struct {
	ID        string `gorm:"primaryKey"`
	UserID    string `gorm:"not null;index"`
	Type      string `gorm:"not null"`
	Payload   string // json blob, shaped per Type
	ReadAt    *time.Time
	CreatedAt time.Time `gorm:"autoCreateTime"`
}
