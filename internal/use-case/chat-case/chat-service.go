package chat_service

import (
	"context"
	"time"

	"github.com/commune-hq/realtime/internal/dtos"
	"github.com/commune-hq/realtime/internal/dtos/chat_dto"
	"github.com/commune-hq/realtime/internal/entity"
	app_error "github.com/commune-hq/realtime/internal/errors"
	"github.com/commune-hq/realtime/internal/queue"
	chat_repo "github.com/commune-hq/realtime/internal/repo/chat"
	"github.com/commune-hq/realtime/internal/utils/types"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const EventNewMessage = "new_message"
const EventMessagesRead = "messages_read"

type ChatService struct {
	ChatRepo  chat_repo.ChatRepoContract
	Broadcast Broadcaster
	Presence  PresenceChecker
	Producer  queue.Producer
}

func NewChatService(chatRepo chat_repo.ChatRepoContract, broadcast Broadcaster, presence PresenceChecker, producer queue.Producer) ChatServiceContract {
	return &ChatService{
		ChatRepo:  chatRepo,
		Broadcast: broadcast,
		Presence:  presence,
		Producer:  producer,
	}
}

// SendMessage validates membership, persists the message, bumps the chat's
// last-message timestamp and fans the event out to the chat's room. The chat
// id and sender id on the persisted row always come from the loaded chat and
// the authenticated actor, regardless of what the payload carried.
func (c *ChatService) SendMessage(ctx context.Context, sender dtos.Actor, req chat_dto.SendMessageRequest) (*chat_dto.MessageResponse, *app_error.AppError) {
	chat, appErr := c.ChatRepo.FindChatByID(ctx, req.ChatID)
	if appErr != nil {
		return nil, appErr
	}

	isMember, appErr := c.ChatRepo.IsActiveParticipant(ctx, chat.ID.String(), sender.UserID)
	if appErr != nil {
		return nil, appErr
	}
	if !isMember {
		return nil, app_error.AccessDenied("you are not a participant of this chat")
	}

	content := chat_dto.NormalizeContent(req.Content)
	msgType := resolveType(req, content)
	if req.Media != nil {
		content.Media = req.Media
	}
	if req.Location != nil {
		content.Location = req.Location
	}

	msg := &entity.Message{
		ChatID:    chat.ID.String(),
		SenderID:  sender.UserID,
		Type:      msgType,
		Content:   content,
		ReplyTo:   req.ReplyTo,
		CreatedAt: time.Now(),
	}

	msgID, appErr := c.ChatRepo.InsertMessage(ctx, msg)
	if appErr != nil {
		return nil, appErr
	}

	if appErr := c.ChatRepo.TouchLastMessageAt(ctx, chat.ID.String()); appErr != nil {
		// the message is durable; metadata lag is tolerable
		log.Warn().Str("chatID", chat.ID.String()).Msg("failed to bump last message timestamp")
	}

	resp := &chat_dto.MessageResponse{
		MessageID: msgID.Hex(),
		ChatID:    chat.ID.String(),
		Sender: chat_dto.SenderPreview{
			ID:          sender.UserID,
			Username:    sender.Username,
			DisplayName: sender.DisplayName,
		},
		Type:      msgType,
		Content:   content,
		ReplyTo:   req.ReplyTo,
		CreatedAt: msg.CreatedAt,
	}

	c.Broadcast.EmitToRoom(chat.ID.String(), EventNewMessage, resp)

	c.notifyOfflineParticipants(ctx, chat.ID.String(), sender, resp)

	return resp, nil
}

// notifyOfflineParticipants is the push-dispatch hook: every other active
// participant without a live connection gets a queued notification job.
// Failures here never surface to the sender.
func (c *ChatService) notifyOfflineParticipants(ctx context.Context, chatID string, sender dtos.Actor, msg *chat_dto.MessageResponse) {
	participants, appErr := c.ChatRepo.FindParticipants(ctx, chatID)
	if appErr != nil {
		log.Warn().Str("chatID", chatID).Msg("failed to load participants for offline push")
		return
	}

	for _, p := range participants {
		if !p.IsActive || p.UserID == sender.UserID {
			continue
		}
		if c.Presence.IsOnline(ctx, p.UserID) {
			continue
		}

		payload := types.OfflinePushPayload{
			UserID:     p.UserID,
			ChatID:     chatID,
			MessageID:  msg.MessageID,
			SenderID:   sender.UserID,
			SenderName: sender.Username,
			Preview:    msg.Content.Text,
			CreatedAt:  msg.CreatedAt,
		}

		job := queue.Job{
			ID:        uuid.New().String(),
			Type:      queue.JobOfflinePush,
			Payload:   queue.MustMarshal(payload),
			Priority:  1,
			MaxRetry:  3,
			CreatedAt: time.Now().Unix(),
			ExpireAt:  time.Now().Add(1 * time.Hour).Unix(),
		}

		if err := c.Producer.Enqueue(ctx, job); err != nil {
			log.Warn().Err(err).Str("userID", p.UserID).Msg("failed to enqueue offline push")
		}
	}
}

// MarkRead appends the acting user to each message's read-by list and
// broadcasts the receipt to the chat's room.
func (c *ChatService) MarkRead(ctx context.Context, sender dtos.Actor, req chat_dto.MarkReadRequest) (*chat_dto.MessagesReadEvent, *app_error.AppError) {
	if appErr := c.ChatRepo.MarkMessagesRead(ctx, req.ChatID, sender.UserID, req.MessageIDs); appErr != nil {
		return nil, appErr
	}

	event := &chat_dto.MessagesReadEvent{
		ChatID:     req.ChatID,
		UserID:     sender.UserID,
		MessageIDs: req.MessageIDs,
	}

	c.Broadcast.EmitToRoom(req.ChatID, EventMessagesRead, event)

	return event, nil
}

func (c *ChatService) History(ctx context.Context, chatID string, req chat_dto.HistoryRequest) (*chat_dto.HistoryResponse, *app_error.AppError) {
	chat, appErr := c.ChatRepo.FindChatByID(ctx, chatID)
	if appErr != nil {
		return nil, appErr
	}

	limit := req.Limit
	if limit == 0 {
		limit = 20
	}

	messages, appErr := c.ChatRepo.GetMessages(ctx, chat.ID.String(), limit, req.BeforeID)
	if appErr != nil {
		return nil, appErr
	}

	respMessages := make([]chat_dto.HistoryMessage, 0, len(messages))
	for _, msg := range messages {
		respMessages = append(respMessages, chat_dto.HistoryMessage{
			MessageID: msg.ID.Hex(),
			SenderID:  msg.SenderID,
			Type:      msg.Type,
			Content:   msg.Content,
			ReplyTo:   msg.ReplyTo,
			ReadBy:    msg.ReadBy,
			CreatedAt: msg.CreatedAt,
		})
	}

	var nextCursor *string
	if len(messages) > 0 {
		firstMsgID := messages[0].ID.Hex()
		nextCursor = &firstMsgID
	}

	hasMore := len(messages) == limit
	return &chat_dto.HistoryResponse{
		Messages:   respMessages,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}

// CanJoin gates chat-room membership on active participation.
func (c *ChatService) CanJoin(ctx context.Context, actor dtos.Actor, chatID string) *app_error.AppError {
	chat, appErr := c.ChatRepo.FindChatByID(ctx, chatID)
	if appErr != nil {
		return appErr
	}

	isMember, appErr := c.ChatRepo.IsActiveParticipant(ctx, chat.ID.String(), actor.UserID)
	if appErr != nil {
		return appErr
	}
	if !isMember {
		return app_error.AccessDenied("you are not a participant of this chat")
	}

	return nil
}

func resolveType(req chat_dto.SendMessageRequest, content entity.MessageContent) string {
	if req.Type != "" {
		return req.Type
	}
	switch {
	case req.Media != nil || content.Media != nil:
		return entity.MessageTypeMedia
	case req.Location != nil || content.Location != nil:
		return entity.MessageTypeLocation
	case content.Contact != nil:
		return entity.MessageTypeContact
	default:
		return entity.MessageTypeText
	}
}
