package entity

import (
	"time"

	"github.com/google/uuid"
)

const (
	LiveChatStatusActive    = "active"
	LiveChatStatusEnded     = "ended"
	LiveChatStatusCancelled = "cancelled"
)

// LiveChatSession is a support hand-off instance. Status "active" covers both
// the queued (AdminID nil) and claimed (AdminID set) phases; "ended" and
// "cancelled" are terminal.
type LiveChatSession struct {
	ID        uuid.UUID `gorm:"primaryKey"`
	UserID    string    `gorm:"not null;index"`
	AdminID   *string   `gorm:"index"`
	Status    string    `gorm:"not null;index"`
	Notes     string
	StartedAt time.Time `gorm:"not null"`
	EndedAt   *time.Time
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}
