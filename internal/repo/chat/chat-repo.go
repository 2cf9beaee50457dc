package chat_repo

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/commune-hq/realtime/internal/entity"
	app_error "github.com/commune-hq/realtime/internal/errors"
	"github.com/commune-hq/realtime/state"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"gorm.io/gorm"
)

type ChatRepo struct {
	AppState *state.AppState
}

func NewChatRepo(appState *state.AppState) ChatRepoContract {
	return &ChatRepo{
		AppState: appState,
	}
}

func (r *ChatRepo) FindChatByID(ctx context.Context, chatID string) (*entity.Chat, *app_error.AppError) {
	var chat entity.Chat
	if err := r.AppState.DB.WithContext(ctx).Where("id = ?", chatID).First(&chat).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, app_error.NotFound("chat not found")
		}
		log.Error().Err(err).Msgf("failed to fetch chat: %v", err)
		return nil, app_error.PersistenceFailure("failed to fetch chat")
	}
	return &chat, nil
}

func (r *ChatRepo) FindParticipants(ctx context.Context, chatID string) ([]*entity.ChatParticipant, *app_error.AppError) {
	var participants []*entity.ChatParticipant
	if err := r.AppState.DB.WithContext(ctx).Where("chat_id = ?", chatID).Find(&participants).Error; err != nil {
		return nil, app_error.PersistenceFailure("failed to fetch chat participants")
	}

	return participants, nil
}

func (r *ChatRepo) IsActiveParticipant(ctx context.Context, chatID, userID string) (bool, *app_error.AppError) {
	var count int64
	if err := r.AppState.DB.WithContext(ctx).Model(&entity.ChatParticipant{}).
		Where("chat_id = ? AND user_id = ? AND is_active = ?", chatID, userID, true).
		Count(&count).Error; err != nil {
		return false, app_error.PersistenceFailure("failed to check chat membership")
	}

	return count > 0, nil
}

func (r *ChatRepo) TouchLastMessageAt(ctx context.Context, chatID string) *app_error.AppError {
	if err := r.AppState.DB.WithContext(ctx).Model(&entity.Chat{}).
		Where("id = ?", chatID).
		Update("last_message_at", time.Now()).Error; err != nil {
		return app_error.PersistenceFailure("failed to update last message timestamp")
	}

	return nil
}

func (r *ChatRepo) InsertMessage(ctx context.Context, msg *entity.Message) (primitive.ObjectID, *app_error.AppError) {
	collection := r.AppState.MessageCollection()
	if msg.ID.IsZero() {
		msg.ID = primitive.NewObjectID()
	}
	if msg.ReadBy == nil {
		msg.ReadBy = []string{}
	}

	if _, err := collection.InsertOne(ctx, msg); err != nil {
		return primitive.NilObjectID, app_error.NewAppError(http.StatusInternalServerError, fmt.Sprintf("failed to create message: %v", err), "mongo")
	}
	return msg.ID, nil
}

func (r *ChatRepo) FindMessageByID(ctx context.Context, messageID string) (*entity.Message, *app_error.AppError) {
	collection := r.AppState.MessageCollection()
	objID, err := primitive.ObjectIDFromHex(messageID)
	if err != nil {
		return nil, app_error.NewAppError(http.StatusBadRequest, fmt.Sprintf("invalid message ID: %v", err), "invalid-id")
	}
	var message entity.Message
	if err := collection.FindOne(ctx, bson.M{"_id": objID}).Decode(&message); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, app_error.NotFound("message not found or has been deleted")
		}
		return nil, app_error.NewAppError(http.StatusInternalServerError, fmt.Sprintf("failed to fetch message: %v", err), "mongo")
	}

	return &message, nil
}

func (r *ChatRepo) GetMessages(ctx context.Context, chatID string, limit int, beforeID *string) ([]*entity.Message, *app_error.AppError) {
	collection := r.AppState.MessageCollection()

	// base filter: all messages in the chat
	filter := bson.M{"chatId": chatID}

	// if beforeID is provided -> filter messages with ID < beforeID
	if beforeID != nil {
		objID, err := primitive.ObjectIDFromHex(*beforeID)
		if err != nil {
			return nil, app_error.NewAppError(http.StatusBadRequest, fmt.Sprintf("error when trying to parse before_id: %v", err), "before-id")
		}
		filter["_id"] = bson.M{"$lt": objID}
	}

	cur, err := collection.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "_id", Value: -1}}).SetLimit(int64(limit)))
	if err != nil {
		return nil, app_error.NewAppError(http.StatusInternalServerError, fmt.Sprintf("failed to fetch messages: %v", err), "mongo")
	}

	defer cur.Close(ctx)

	var messages []*entity.Message

	if err := cur.All(ctx, &messages); err != nil {
		return nil, app_error.NewAppError(http.StatusInternalServerError, fmt.Sprintf("failed to decode messages: %v", err), "mongo")
	}

	// reverse messages to be in ascending order (oldest to newest)
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, nil
}

func (r *ChatRepo) MarkMessagesRead(ctx context.Context, chatID, userID string, messageIDs []string) *app_error.AppError {
	collection := r.AppState.MessageCollection()

	objIDs := make([]primitive.ObjectID, 0, len(messageIDs))
	for _, id := range messageIDs {
		objID, err := primitive.ObjectIDFromHex(id)
		if err != nil {
			return app_error.NewAppError(http.StatusBadRequest, fmt.Sprintf("invalid message ID: %v", err), "invalid-id")
		}
		objIDs = append(objIDs, objID)
	}

	filter := bson.M{"_id": bson.M{"$in": objIDs}, "chatId": chatID}
	update := bson.M{"$addToSet": bson.M{"readBy": userID}}

	if _, err := collection.UpdateMany(ctx, filter, update); err != nil {
		return app_error.NewAppError(http.StatusInternalServerError, fmt.Sprintf("failed to mark messages read: %v", err), "mongo")
	}

	return nil
}
