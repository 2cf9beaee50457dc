package chat_repo

import (
	"context"

	"github.com/commune-hq/realtime/internal/entity"
	app_error "github.com/commune-hq/realtime/internal/errors"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ChatRepoContract interface {
	FindChatByID(ctx context.Context, chatID string) (*entity.Chat, *app_error.AppError)
	FindParticipants(ctx context.Context, chatID string) ([]*entity.ChatParticipant, *app_error.AppError)
	IsActiveParticipant(ctx context.Context, chatID, userID string) (bool, *app_error.AppError)
	TouchLastMessageAt(ctx context.Context, chatID string) *app_error.AppError
	InsertMessage(ctx context.Context, msg *entity.Message) (primitive.ObjectID, *app_error.AppError)
	FindMessageByID(ctx context.Context, messageID string) (*entity.Message, *app_error.AppError)
	GetMessages(ctx context.Context, chatID string, limit int, beforeID *string) ([]*entity.Message, *app_error.AppError)
	MarkMessagesRead(ctx context.Context, chatID, userID string, messageIDs []string) *app_error.AppError
}
