package entity

import (
	"time"

	"github.com/google/uuid"
)

type Chat struct {
	ID            uuid.UUID `gorm:"primaryKey"`
	Type          string    `gorm:"not null"` // direct | group
	Name          string
	CreatedBy     string    `gorm:"not null"`
	LastMessageAt time.Time `gorm:"index"`
	CreatedAt     time.Time `gorm:"autoCreateTime"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime"`
}

type ChatParticipant struct {
	ID       int64     `gorm:"primaryKey"`
	ChatID   string    `gorm:"not null;index"`
	UserID   string    `gorm:"not null;index"`
	IsActive bool      `gorm:"not null;default:true"`
	JoinedAt time.Time `gorm:"autoCreateTime"`
	LeftAt   *time.Time
}
