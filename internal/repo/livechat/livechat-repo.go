package livechat_repo

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/commune-hq/realtime/internal/entity"
	app_error "github.com/commune-hq/realtime/internal/errors"
	"github.com/commune-hq/realtime/state"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"gorm.io/gorm"
)

type LiveChatRepo struct {
	AppState *state.AppState
}

func NewLiveChatRepo(appState *state.AppState) LiveChatRepoContract {
	return &LiveChatRepo{
		AppState: appState,
	}
}

// CreateSession creates a queued session for the user. The duplicate-active
// check runs inside the same transaction as the insert so two concurrent
// starts cannot both pass it.
func (r *LiveChatRepo) CreateSession(ctx context.Context, userID string) (*entity.LiveChatSession, *app_error.AppError) {
	var session *entity.LiveChatSession

	err := r.AppState.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&entity.LiveChatSession{}).
			Where("user_id = ? AND status = ?", userID, entity.LiveChatStatusActive).
			Count(&count).Error; err != nil {
			return err
		}

		if count > 0 {
			return app_error.DuplicateSession("You already have an active chat session")
		}

		session = &entity.LiveChatSession{
			ID:        uuid.New(),
			UserID:    userID,
			Status:    entity.LiveChatStatusActive,
			StartedAt: time.Now(),
		}

		return tx.Create(session).Error
	})

	if err != nil {
		var appErr *app_error.AppError
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		log.Error().Err(err).Str("userID", userID).Msg("failed to create live chat session")
		return nil, app_error.PersistenceFailure("failed to create live chat session")
	}

	return session, nil
}

func (r *LiveChatRepo) FindSessionByID(ctx context.Context, sessionID string) (*entity.LiveChatSession, *app_error.AppError) {
	var session entity.LiveChatSession
	if err := r.AppState.DB.WithContext(ctx).Where("id = ?", sessionID).First(&session).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, app_error.NotFound("live chat session not found")
		}
		return nil, app_error.PersistenceFailure("failed to fetch live chat session")
	}
	return &session, nil
}

// ClaimSession assigns the admin with a single conditional update: the write
// only lands while the session is active and unassigned, so of two racing
// claims exactly one sees a row affected.
func (r *LiveChatRepo) ClaimSession(ctx context.Context, sessionID, adminID string) (*entity.LiveChatSession, *app_error.AppError) {
	result := r.AppState.DB.WithContext(ctx).Model(&entity.LiveChatSession{}).
		Where("id = ? AND status = ? AND admin_id IS NULL", sessionID, entity.LiveChatStatusActive).
		Update("admin_id", adminID)

	if result.Error != nil {
		return nil, app_error.PersistenceFailure("failed to claim live chat session")
	}

	if result.RowsAffected == 0 {
		session, appErr := r.FindSessionByID(ctx, sessionID)
		if appErr != nil {
			return nil, appErr
		}
		if session.Status != entity.LiveChatStatusActive {
			return nil, app_error.AccessDenied("live chat session has already ended")
		}
		return nil, app_error.AccessDenied("live chat session is already being handled")
	}

	return r.FindSessionByID(ctx, sessionID)
}

// CloseSession moves an active session to a terminal status. Conditional on
// the current status so a second end/cancel is rejected rather than applied.
func (r *LiveChatRepo) CloseSession(ctx context.Context, sessionID, status, notes string) (*entity.LiveChatSession, *app_error.AppError) {
	now := time.Now()
	result := r.AppState.DB.WithContext(ctx).Model(&entity.LiveChatSession{}).
		Where("id = ? AND status = ?", sessionID, entity.LiveChatStatusActive).
		Updates(map[string]any{
			"status":   status,
			"notes":    notes,
			"ended_at": now,
		})

	if result.Error != nil {
		return nil, app_error.PersistenceFailure("failed to close live chat session")
	}

	if result.RowsAffected == 0 {
		session, appErr := r.FindSessionByID(ctx, sessionID)
		if appErr != nil {
			return nil, appErr
		}
		return nil, app_error.AccessDenied(fmt.Sprintf("live chat session is already %s", session.Status))
	}

	return r.FindSessionByID(ctx, sessionID)
}

// AvailableSessions lists unclaimed active sessions oldest-first, so admins
// drain the queue fairly.
func (r *LiveChatRepo) AvailableSessions(ctx context.Context) ([]*entity.LiveChatSession, *app_error.AppError) {
	var sessions []*entity.LiveChatSession
	if err := r.AppState.DB.WithContext(ctx).
		Where("status = ? AND admin_id IS NULL", entity.LiveChatStatusActive).
		Order("started_at ASC").
		Find(&sessions).Error; err != nil {
		return nil, app_error.PersistenceFailure("failed to fetch available live chat sessions")
	}

	return sessions, nil
}

func (r *LiveChatRepo) InsertLiveChatMessage(ctx context.Context, msg *entity.LiveChatMessage) (primitive.ObjectID, *app_error.AppError) {
	collection := r.AppState.LiveChatMessageCollection()
	if msg.ID.IsZero() {
		msg.ID = primitive.NewObjectID()
	}

	if _, err := collection.InsertOne(ctx, msg); err != nil {
		return primitive.NilObjectID, app_error.NewAppError(http.StatusInternalServerError, fmt.Sprintf("failed to create live chat message: %v", err), "mongo")
	}
	return msg.ID, nil
}

func (r *LiveChatRepo) GetSessionMessages(ctx context.Context, sessionID string, limit int) ([]*entity.LiveChatMessage, *app_error.AppError) {
	collection := r.AppState.LiveChatMessageCollection()

	cur, err := collection.Find(ctx, bson.M{"sessionId": sessionID},
		options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}).SetLimit(int64(limit)))
	if err != nil {
		return nil, app_error.NewAppError(http.StatusInternalServerError, fmt.Sprintf("failed to fetch live chat messages: %v", err), "mongo")
	}

	defer cur.Close(ctx)

	var messages []*entity.LiveChatMessage
	if err := cur.All(ctx, &messages); err != nil {
		return nil, app_error.NewAppError(http.StatusInternalServerError, fmt.Sprintf("failed to decode live chat messages: %v", err), "mongo")
	}

	return messages, nil
}

func (r *LiveChatRepo) CreateNotifications(ctx context.Context, notifications []*entity.Notification) *app_error.AppError {
	if len(notifications) == 0 {
		return nil
	}

	if err := r.AppState.DB.WithContext(ctx).Create(&notifications).Error; err != nil {
		return app_error.PersistenceFailure("failed to create notifications")
	}

	return nil
}
