package livechat_repo

import (
	"context"

	"github.com/commune-hq/realtime/internal/entity"
	app_error "github.com/commune-hq/realtime/internal/errors"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type LiveChatRepoContract interface {
	CreateSession(ctx context.Context, userID string) (*entity.LiveChatSession, *app_error.AppError)
	FindSessionByID(ctx context.Context, sessionID string) (*entity.LiveChatSession, *app_error.AppError)
	ClaimSession(ctx context.Context, sessionID, adminID string) (*entity.LiveChatSession, *app_error.AppError)
	CloseSession(ctx context.Context, sessionID, status, notes string) (*entity.LiveChatSession, *app_error.AppError)
	AvailableSessions(ctx context.Context) ([]*entity.LiveChatSession, *app_error.AppError)
	InsertLiveChatMessage(ctx context.Context, msg *entity.LiveChatMessage) (primitive.ObjectID, *app_error.AppError)
	GetSessionMessages(ctx context.Context, sessionID string, limit int) ([]*entity.LiveChatMessage, *app_error.AppError)
	CreateNotifications(ctx context.Context, notifications []*entity.Notification) *app_error.AppError
}
