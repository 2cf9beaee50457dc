package chat_dto

import (
	"encoding/json"

	"github.com/commune-hq/realtime/internal/entity"
	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type SendMessageRequest struct {
	ChatID   string               `json:"chatId" validate:"required,uuid"`
	Content  json.RawMessage      `json:"content"`
	Type     string               `json:"type" validate:"omitempty,oneof=text media location contact"`
	Media    *entity.MediaRef     `json:"media,omitempty"`
	Location *entity.GeoLocation  `json:"location,omitempty"`
	ReplyTo  *string              `json:"replyToId,omitempty" validate:"omitempty,objectID"`
}

type HistoryRequest struct {
	Limit    int     `json:"limit" validate:"omitempty,min=1,max=100"`
	BeforeID *string `json:"before_id,omitempty" validate:"omitempty,objectID"`
}

type MarkReadRequest struct {
	ChatID     string   `json:"chatId" validate:"required,uuid"`
	MessageIDs []string `json:"messageIds" validate:"required,min=1,dive,objectID"`
}

// NormalizeContent resolves the dynamic content shape once at the boundary:
// a JSON string becomes {text}, a structured object passes through, anything
// else collapses to an empty text body.
func NormalizeContent(raw json.RawMessage) entity.MessageContent {
	if len(raw) == 0 {
		return entity.MessageContent{Text: ""}
	}

	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return entity.MessageContent{Text: text}
	}

	var content entity.MessageContent
	if err := json.Unmarshal(raw, &content); err == nil {
		return content
	}

	return entity.MessageContent{Text: ""}
}

func ObjectIDValidator(fl validator.FieldLevel) bool {
	id := fl.Field().String()
	_, err := primitive.ObjectIDFromHex(id)
	return err == nil
}
