package chat_service

import (
	"context"

	"github.com/commune-hq/realtime/internal/dtos"
	"github.com/commune-hq/realtime/internal/dtos/chat_dto"
	app_error "github.com/commune-hq/realtime/internal/errors"
)

type ChatServiceContract interface {
	SendMessage(ctx context.Context, sender dtos.Actor, req chat_dto.SendMessageRequest) (*chat_dto.MessageResponse, *app_error.AppError)
	MarkRead(ctx context.Context, sender dtos.Actor, req chat_dto.MarkReadRequest) (*chat_dto.MessagesReadEvent, *app_error.AppError)
	History(ctx context.Context, chatID string, req chat_dto.HistoryRequest) (*chat_dto.HistoryResponse, *app_error.AppError)
	CanJoin(ctx context.Context, actor dtos.Actor, chatID string) *app_error.AppError
}

// Broadcaster is the fan-out surface the flow needs from the realtime hub.
type Broadcaster interface {
	EmitToRoom(roomID, event string, data any)
	EmitToUser(userID, event string, data any)
}

// PresenceChecker answers whether a user currently holds a live connection.
type PresenceChecker interface {
	IsOnline(ctx context.Context, userID string) bool
}
