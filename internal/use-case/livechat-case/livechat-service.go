package livechat_service

import (
	"context"
	"time"

	"github.com/commune-hq/realtime/internal/dtos"
	"github.com/commune-hq/realtime/internal/dtos/livechat_dto"
	"github.com/commune-hq/realtime/internal/entity"
	app_error "github.com/commune-hq/realtime/internal/errors"
	"github.com/commune-hq/realtime/internal/queue"
	livechat_repo "github.com/commune-hq/realtime/internal/repo/livechat"
	"github.com/commune-hq/realtime/internal/utils/types"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	EventNewSession   = "new_live_chat_session"
	EventAdminJoined  = "admin_joined_live_chat"
	EventAdminLeft    = "admin_left_live_chat"
	EventNewMessage   = "new_live_chat_message"
	EventSessionEnded = "live_chat_session_ended"
)

type LiveChatService struct {
	Repo     livechat_repo.LiveChatRepoContract
	Notify   Notifier
	Producer queue.Producer
}

func NewLiveChatService(repo livechat_repo.LiveChatRepoContract, notify Notifier, producer queue.Producer) LiveChatServiceContract {
	return &LiveChatService{
		Repo:     repo,
		Notify:   notify,
		Producer: producer,
	}
}

// Start creates a queued session for the user, fans a queue notification out
// to every connected admin, and enqueues persistence of per-admin
// notification records. A user with a non-terminal session is rejected.
func (s *LiveChatService) Start(ctx context.Context, user dtos.Actor) (*livechat_dto.SessionResponse, *app_error.AppError) {
	session, appErr := s.Repo.CreateSession(ctx, user.UserID)
	if appErr != nil {
		return nil, appErr
	}

	resp := sessionResponse(session)

	s.Notify.NotifyAdmins(EventNewSession, resp, "")

	job := queue.Job{
		ID:   uuid.New().String(),
		Type: queue.JobAdminSessionAlert,
		Payload: queue.MustMarshal(types.AdminSessionAlertPayload{
			SessionID: session.ID.String(),
			UserID:    session.UserID,
			StartedAt: session.StartedAt,
		}),
		Priority:  1,
		MaxRetry:  3,
		CreatedAt: time.Now().Unix(),
		ExpireAt:  time.Now().Add(1 * time.Hour).Unix(),
	}
	if err := s.Producer.Enqueue(ctx, job); err != nil {
		// notification records are best-effort, the session itself is durable
		log.Warn().Err(err).Str("sessionID", session.ID.String()).Msg("failed to enqueue admin session alert")
	}

	return resp, nil
}

// Claim assigns the session to the admin. At most one admin wins; the
// conditional update in the store decides the race, and the winner's join is
// announced to the session room.
func (s *LiveChatService) Claim(ctx context.Context, admin dtos.Actor, sessionID string) (*livechat_dto.SessionResponse, *app_error.AppError) {
	if !admin.IsAdmin() {
		return nil, app_error.AccessDenied("only admins can claim live chat sessions")
	}

	session, appErr := s.Repo.ClaimSession(ctx, sessionID, admin.UserID)
	if appErr != nil {
		return nil, appErr
	}

	s.Notify.EmitToRoom(sessionID, EventAdminJoined, livechat_dto.AdminJoinedEvent{
		SessionID: sessionID,
		AdminID:   admin.UserID,
	})

	return sessionResponse(session), nil
}

// Unclaim is a room-membership departure, not a state transition: the session
// stays active and assigned, the room is just told the admin stepped out.
func (s *LiveChatService) Unclaim(ctx context.Context, admin dtos.Actor, sessionID string) *app_error.AppError {
	if !admin.IsAdmin() {
		return app_error.AccessDenied("only admins can leave live chat sessions this way")
	}

	session, appErr := s.Repo.FindSessionByID(ctx, sessionID)
	if appErr != nil {
		return appErr
	}

	s.Notify.EmitToRoom(session.ID.String(), EventAdminLeft, livechat_dto.AdminJoinedEvent{
		SessionID: session.ID.String(),
		AdminID:   admin.UserID,
	})

	return nil
}

// PostMessage appends a message while the session is active. The sender role
// comes from the authenticated actor. When the requesting user writes and an
// admin is assigned, the admin also gets a direct push that does not depend
// on room membership.
func (s *LiveChatService) PostMessage(ctx context.Context, actor dtos.Actor, sessionID, text string) (*livechat_dto.LiveChatMessageResponse, *app_error.AppError) {
	session, appErr := s.Repo.FindSessionByID(ctx, sessionID)
	if appErr != nil {
		return nil, appErr
	}

	if session.Status != entity.LiveChatStatusActive {
		return nil, app_error.AccessDenied("live chat session is no longer active")
	}

	if appErr := checkSessionAccess(actor, session); appErr != nil {
		return nil, appErr
	}

	msg := &entity.LiveChatMessage{
		SessionID:  session.ID.String(),
		SenderID:   actor.UserID,
		SenderRole: actor.Role,
		Text:       text,
		CreatedAt:  time.Now(),
	}

	msgID, appErr := s.Repo.InsertLiveChatMessage(ctx, msg)
	if appErr != nil {
		return nil, appErr
	}

	resp := &livechat_dto.LiveChatMessageResponse{
		MessageID:  msgID.Hex(),
		SessionID:  session.ID.String(),
		SenderID:   actor.UserID,
		SenderRole: actor.Role,
		Text:       text,
		CreatedAt:  msg.CreatedAt,
	}

	s.Notify.EmitToRoom(session.ID.String(), EventNewMessage, resp)

	if !actor.IsAdmin() && session.AdminID != nil {
		s.Notify.EmitToUser(*session.AdminID, EventNewMessage, resp)
	}

	return resp, nil
}

// End moves the session to its terminal ended state. The requesting user, the
// assigned admin, or any admin (who may not have joined the room) can end it.
func (s *LiveChatService) End(ctx context.Context, actor dtos.Actor, sessionID, reason, notes string) (*livechat_dto.SessionEndedEvent, *app_error.AppError) {
	session, appErr := s.Repo.FindSessionByID(ctx, sessionID)
	if appErr != nil {
		return nil, appErr
	}

	if appErr := checkSessionAccess(actor, session); appErr != nil {
		return nil, appErr
	}

	closed, appErr := s.Repo.CloseSession(ctx, sessionID, entity.LiveChatStatusEnded, notes)
	if appErr != nil {
		return nil, appErr
	}

	event := &livechat_dto.SessionEndedEvent{
		SessionID: closed.ID.String(),
		Status:    closed.Status,
		EndedBy:   actor.UserID,
		Reason:    reason,
	}

	s.Notify.EmitToRoom(sessionID, EventSessionEnded, event)

	return event, nil
}

// Cancel withdraws a queued session. Only the requesting user cancels; the
// status check in the store is the only guard, matching the end transition.
func (s *LiveChatService) Cancel(ctx context.Context, actor dtos.Actor, sessionID, reason string) (*livechat_dto.SessionEndedEvent, *app_error.AppError) {
	session, appErr := s.Repo.FindSessionByID(ctx, sessionID)
	if appErr != nil {
		return nil, appErr
	}

	if session.UserID != actor.UserID {
		return nil, app_error.AccessDenied("only the requesting user can cancel this session")
	}

	closed, appErr := s.Repo.CloseSession(ctx, sessionID, entity.LiveChatStatusCancelled, "")
	if appErr != nil {
		return nil, appErr
	}

	event := &livechat_dto.SessionEndedEvent{
		SessionID: closed.ID.String(),
		Status:    closed.Status,
		EndedBy:   actor.UserID,
		Reason:    reason,
	}

	s.Notify.EmitToRoom(sessionID, EventSessionEnded, event)

	return event, nil
}

func (s *LiveChatService) Available(ctx context.Context) ([]*livechat_dto.SessionResponse, *app_error.AppError) {
	sessions, appErr := s.Repo.AvailableSessions(ctx)
	if appErr != nil {
		return nil, appErr
	}

	resp := make([]*livechat_dto.SessionResponse, 0, len(sessions))
	for _, session := range sessions {
		resp = append(resp, sessionResponse(session))
	}

	return resp, nil
}

func (s *LiveChatService) Transcript(ctx context.Context, actor dtos.Actor, sessionID string) ([]*livechat_dto.LiveChatMessageResponse, *app_error.AppError) {
	session, appErr := s.Repo.FindSessionByID(ctx, sessionID)
	if appErr != nil {
		return nil, appErr
	}

	if appErr := checkSessionAccess(actor, session); appErr != nil {
		return nil, appErr
	}

	messages, appErr := s.Repo.GetSessionMessages(ctx, session.ID.String(), 200)
	if appErr != nil {
		return nil, appErr
	}

	resp := make([]*livechat_dto.LiveChatMessageResponse, 0, len(messages))
	for _, msg := range messages {
		resp = append(resp, &livechat_dto.LiveChatMessageResponse{
			MessageID:  msg.ID.Hex(),
			SessionID:  msg.SessionID,
			SenderID:   msg.SenderID,
			SenderRole: msg.SenderRole,
			Text:       msg.Text,
			CreatedAt:  msg.CreatedAt,
		})
	}

	return resp, nil
}

// CanJoin gates session-room membership: the requesting user, the assigned
// admin, or any admin (previewing before a claim) may subscribe.
func (s *LiveChatService) CanJoin(ctx context.Context, actor dtos.Actor, sessionID string) *app_error.AppError {
	session, appErr := s.Repo.FindSessionByID(ctx, sessionID)
	if appErr != nil {
		return appErr
	}

	return checkSessionAccess(actor, session)
}

// Announce re-broadcasts a queued session to connected admins, used when a
// client signals a freshly created session over the realtime surface.
func (s *LiveChatService) Announce(ctx context.Context, actor dtos.Actor, sessionID string) *app_error.AppError {
	session, appErr := s.Repo.FindSessionByID(ctx, sessionID)
	if appErr != nil {
		return appErr
	}

	if session.UserID != actor.UserID && !actor.IsAdmin() {
		return app_error.AccessDenied("you do not own this live chat session")
	}

	s.Notify.NotifyAdmins(EventNewSession, sessionResponse(session), "")
	return nil
}

func checkSessionAccess(actor dtos.Actor, session *entity.LiveChatSession) *app_error.AppError {
	if session.UserID == actor.UserID {
		return nil
	}
	if actor.IsAdmin() {
		return nil
	}
	return app_error.AccessDenied("you do not have access to this live chat session")
}

func sessionResponse(session *entity.LiveChatSession) *livechat_dto.SessionResponse {
	return &livechat_dto.SessionResponse{
		SessionID: session.ID.String(),
		UserID:    session.UserID,
		AdminID:   session.AdminID,
		Status:    session.Status,
		Notes:     session.Notes,
		StartedAt: session.StartedAt,
		EndedAt:   session.EndedAt,
	}
}
