package entity

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	MessageTypeText     = "text"
	MessageTypeMedia    = "media"
	MessageTypeLocation = "location"
	MessageTypeContact  = "contact"
)

// MessageContent is the tagged content union. Exactly one variant is set per
// message; Type on the Message names which one.
type MessageContent struct {
	Text     string       `bson:"text,omitempty" json:"text,omitempty"`
	Media    *MediaRef    `bson:"media,omitempty" json:"media,omitempty"`
	Location *GeoLocation `bson:"location,omitempty" json:"location,omitempty"`
	Contact  *ContactCard `bson:"contact,omitempty" json:"contact,omitempty"`
}

type MediaRef struct {
	URL      string `bson:"url" json:"url"`
	MimeType string `bson:"mimeType,omitempty" json:"mimeType,omitempty"`
	Size     int64  `bson:"size,omitempty" json:"size,omitempty"`
}

type GeoLocation struct {
	Latitude  float64 `bson:"latitude" json:"latitude"`
	Longitude float64 `bson:"longitude" json:"longitude"`
	Label     string  `bson:"label,omitempty" json:"label,omitempty"`
}

type ContactCard struct {
	Name  string `bson:"name" json:"name"`
	Phone string `bson:"phone,omitempty" json:"phone,omitempty"`
}

type Message struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ChatID    string             `bson:"chatId" json:"chatId"`
	SenderID  string             `bson:"senderId" json:"senderId"`
	Type      string             `bson:"type" json:"type"`
	Content   MessageContent     `bson:"content" json:"content"`
	ReplyTo   *string            `bson:"replyTo,omitempty" json:"replyTo,omitempty"`
	ReadBy    []string           `bson:"readBy" json:"readBy"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}

// LiveChatMessage is append-only; SenderRole is derived from the posting
// connection, never taken from the client payload.
type LiveChatMessage struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	SessionID  string             `bson:"sessionId" json:"sessionId"`
	SenderID   string             `bson:"senderId" json:"senderId"`
	SenderRole string             `bson:"senderRole" json:"senderRole"`
	Text       string             `bson:"text" json:"text"`
	CreatedAt  time.Time          `bson:"createdAt" json:"createdAt"`
}
