package livechat_service

import (
	"context"

	"github.com/commune-hq/realtime/internal/dtos"
	"github.com/commune-hq/realtime/internal/dtos/livechat_dto"
	app_error "github.com/commune-hq/realtime/internal/errors"
)

type LiveChatServiceContract interface {
	Start(ctx context.Context, user dtos.Actor) (*livechat_dto.SessionResponse, *app_error.AppError)
	Claim(ctx context.Context, admin dtos.Actor, sessionID string) (*livechat_dto.SessionResponse, *app_error.AppError)
	Unclaim(ctx context.Context, admin dtos.Actor, sessionID string) *app_error.AppError
	PostMessage(ctx context.Context, actor dtos.Actor, sessionID, text string) (*livechat_dto.LiveChatMessageResponse, *app_error.AppError)
	End(ctx context.Context, actor dtos.Actor, sessionID, reason, notes string) (*livechat_dto.SessionEndedEvent, *app_error.AppError)
	Cancel(ctx context.Context, actor dtos.Actor, sessionID, reason string) (*livechat_dto.SessionEndedEvent, *app_error.AppError)
	Available(ctx context.Context) ([]*livechat_dto.SessionResponse, *app_error.AppError)
	Transcript(ctx context.Context, actor dtos.Actor, sessionID string) ([]*livechat_dto.LiveChatMessageResponse, *app_error.AppError)
	CanJoin(ctx context.Context, actor dtos.Actor, sessionID string) *app_error.AppError
	Announce(ctx context.Context, actor dtos.Actor, sessionID string) *app_error.AppError
}

// Notifier is the fan-out surface the hand-off flow needs: session-room
// broadcast, direct user push, and the admin fan-out that reaches on-duty
// admins before any of them is room-scoped to the session.
type Notifier interface {
	EmitToRoom(roomID, event string, data any)
	EmitToUser(userID, event string, data any)
	NotifyAdmins(event string, data any, exceptAdminID string)
}
