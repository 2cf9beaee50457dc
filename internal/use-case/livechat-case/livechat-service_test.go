package livechat_service

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/commune-hq/realtime/internal/dtos"
	"github.com/commune-hq/realtime/internal/entity"
	app_error "github.com/commune-hq/realtime/internal/errors"
	"github.com/commune-hq/realtime/internal/queue"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// fakeRepo mirrors the store semantics the service relies on: transactional
// duplicate check on create and conditional updates on claim/close.
type fakeRepo struct {
	mu       sync.Mutex
	sessions map[string]*entity.LiveChatSession
	messages []*entity.LiveChatMessage
	notifs   []*entity.Notification
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{sessions: make(map[string]*entity.LiveChatSession)}
}

func (f *fakeRepo) CreateSession(ctx context.Context, userID string) (*entity.LiveChatSession, *app_error.AppError) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.sessions {
		if s.UserID == userID && s.Status == entity.LiveChatStatusActive {
			return nil, app_error.DuplicateSession("You already have an active chat session")
		}
	}
	session := &entity.LiveChatSession{
		ID:        uuid.New(),
		UserID:    userID,
		Status:    entity.LiveChatStatusActive,
		StartedAt: time.Now(),
	}
	f.sessions[session.ID.String()] = session
	return session, nil
}

func (f *fakeRepo) FindSessionByID(ctx context.Context, sessionID string) (*entity.LiveChatSession, *app_error.AppError) {
	f.mu.Lock()
	defer f.mu.Unlock()
	session, ok := f.sessions[sessionID]
	if !ok {
		return nil, app_error.NotFound("live chat session not found")
	}
	copied := *session
	return &copied, nil
}

func (f *fakeRepo) ClaimSession(ctx context.Context, sessionID, adminID string) (*entity.LiveChatSession, *app_error.AppError) {
	f.mu.Lock()
	defer f.mu.Unlock()
	session, ok := f.sessions[sessionID]
	if !ok {
		return nil, app_error.NotFound("live chat session not found")
	}
	if session.Status != entity.LiveChatStatusActive {
		return nil, app_error.AccessDenied("live chat session has already ended")
	}
	if session.AdminID != nil {
		return nil, app_error.AccessDenied("live chat session is already being handled")
	}
	session.AdminID = &adminID
	copied := *session
	return &copied, nil
}

func (f *fakeRepo) CloseSession(ctx context.Context, sessionID, status, notes string) (*entity.LiveChatSession, *app_error.AppError) {
	f.mu.Lock()
	defer f.mu.Unlock()
	session, ok := f.sessions[sessionID]
	if !ok {
		return nil, app_error.NotFound("live chat session not found")
	}
	if session.Status != entity.LiveChatStatusActive {
		return nil, app_error.AccessDenied("live chat session is already " + session.Status)
	}
	now := time.Now()
	session.Status = status
	session.Notes = notes
	session.EndedAt = &now
	copied := *session
	return &copied, nil
}

func (f *fakeRepo) AvailableSessions(ctx context.Context) ([]*entity.LiveChatSession, *app_error.AppError) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*entity.LiveChatSession
	for _, s := range f.sessions {
		if s.Status == entity.LiveChatStatusActive && s.AdminID == nil {
			copied := *s
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (f *fakeRepo) InsertLiveChatMessage(ctx context.Context, msg *entity.LiveChatMessage) (primitive.ObjectID, *app_error.AppError) {
	f.mu.Lock()
	defer f.mu.Unlock()
	msg.ID = primitive.NewObjectID()
	f.messages = append(f.messages, msg)
	return msg.ID, nil
}

func (f *fakeRepo) GetSessionMessages(ctx context.Context, sessionID string, limit int) ([]*entity.LiveChatMessage, *app_error.AppError) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*entity.LiveChatMessage
	for _, m := range f.messages {
		if m.SessionID == sessionID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeRepo) CreateNotifications(ctx context.Context, notifications []*entity.Notification) *app_error.AppError {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notifs = append(f.notifs, notifications...)
	return nil
}

type emitted struct {
	kind   string // room | user | admins
	target string
	event  string
	data   any
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []emitted
}

func (f *fakeNotifier) EmitToRoom(roomID, event string, data any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, emitted{kind: "room", target: roomID, event: event, data: data})
}

func (f *fakeNotifier) EmitToUser(userID, event string, data any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, emitted{kind: "user", target: userID, event: event, data: data})
}

func (f *fakeNotifier) NotifyAdmins(event string, data any, exceptAdminID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, emitted{kind: "admins", event: event, data: data})
}

func (f *fakeNotifier) byEvent(event string) []emitted {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []emitted
	for _, e := range f.events {
		if e.event == event {
			out = append(out, e)
		}
	}
	return out
}

type fakeProducer struct {
	mu   sync.Mutex
	jobs []queue.Job
}

func (f *fakeProducer) Enqueue(ctx context.Context, job queue.Job) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs = append(f.jobs, job)
	return nil
}

func newService() (*fakeRepo, *fakeNotifier, *fakeProducer, LiveChatServiceContract) {
	repo := newFakeRepo()
	notifier := &fakeNotifier{}
	producer := &fakeProducer{}
	return repo, notifier, producer, NewLiveChatService(repo, notifier, producer)
}

var (
	requester = dtos.Actor{UserID: "user-1", Username: "alice", Role: "user"}
	adminX    = dtos.Actor{UserID: "admin-x", Username: "xenia", Role: "admin"}
	adminY    = dtos.Actor{UserID: "admin-y", Username: "yuri", Role: "admin"}
	outsider  = dtos.Actor{UserID: "user-2", Username: "bob", Role: "user"}
)

func TestStart_NotifiesAdminsAndQueuesAlert(t *testing.T) {
	_, notifier, producer, svc := newService()
	ctx := context.Background()

	resp, appErr := svc.Start(ctx, requester)
	require.Nil(t, appErr)
	assert.Equal(t, entity.LiveChatStatusActive, resp.Status)
	assert.Nil(t, resp.AdminID)

	fanouts := notifier.byEvent(EventNewSession)
	require.Len(t, fanouts, 1)
	assert.Equal(t, "admins", fanouts[0].kind)

	require.Len(t, producer.jobs, 1)
	assert.Equal(t, queue.JobAdminSessionAlert, producer.jobs[0].Type)
}

func TestStart_SecondActiveSessionRejected(t *testing.T) {
	_, _, _, svc := newService()
	ctx := context.Background()

	_, appErr := svc.Start(ctx, requester)
	require.Nil(t, appErr)

	_, appErr = svc.Start(ctx, requester)
	require.NotNil(t, appErr)
	assert.Equal(t, http.StatusConflict, appErr.Code)
	assert.Equal(t, "You already have an active chat session", appErr.Message)
}

func TestClaim_HappyPathBroadcastsOnce(t *testing.T) {
	_, notifier, _, svc := newService()
	ctx := context.Background()

	resp, appErr := svc.Start(ctx, requester)
	require.Nil(t, appErr)

	claimed, appErr := svc.Claim(ctx, adminX, resp.SessionID)
	require.Nil(t, appErr)
	require.NotNil(t, claimed.AdminID)
	assert.Equal(t, adminX.UserID, *claimed.AdminID)

	joins := notifier.byEvent(EventAdminJoined)
	require.Len(t, joins, 1, "exactly one admin_joined_live_chat broadcast")
	assert.Equal(t, resp.SessionID, joins[0].target)
}

func TestClaim_NonAdminRejected(t *testing.T) {
	_, _, _, svc := newService()
	ctx := context.Background()

	resp, appErr := svc.Start(ctx, requester)
	require.Nil(t, appErr)

	_, appErr = svc.Claim(ctx, outsider, resp.SessionID)
	require.NotNil(t, appErr)
	assert.Equal(t, http.StatusForbidden, appErr.Code)
}

func TestClaim_ConcurrentAdmins_ExactlyOneWins(t *testing.T) {
	_, notifier, _, svc := newService()
	ctx := context.Background()

	resp, appErr := svc.Start(ctx, requester)
	require.Nil(t, appErr)

	var wg sync.WaitGroup
	errs := make([]*app_error.AppError, 2)
	for i, admin := range []dtos.Actor{adminX, adminY} {
		wg.Add(1)
		go func(i int, admin dtos.Actor) {
			defer wg.Done()
			_, errs[i] = svc.Claim(ctx, admin, resp.SessionID)
		}(i, admin)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
		} else {
			assert.Equal(t, http.StatusForbidden, err.Code)
		}
	}
	assert.Equal(t, 1, winners, "either admin may win but never both")
	assert.Len(t, notifier.byEvent(EventAdminJoined), 1)
}

func TestPostMessage_RoleDerivedFromConnection(t *testing.T) {
	repo, _, _, svc := newService()
	ctx := context.Background()

	resp, appErr := svc.Start(ctx, requester)
	require.Nil(t, appErr)

	msg, appErr := svc.PostMessage(ctx, requester, resp.SessionID, "hello")
	require.Nil(t, appErr)
	assert.Equal(t, "user", msg.SenderRole)

	require.Len(t, repo.messages, 1)
	assert.Equal(t, requester.UserID, repo.messages[0].SenderID)
	assert.Equal(t, "user", repo.messages[0].SenderRole)
}

func TestPostMessage_UserMessagePushedToAssignedAdmin(t *testing.T) {
	_, notifier, _, svc := newService()
	ctx := context.Background()

	resp, appErr := svc.Start(ctx, requester)
	require.Nil(t, appErr)
	_, appErr = svc.Claim(ctx, adminX, resp.SessionID)
	require.Nil(t, appErr)

	_, appErr = svc.PostMessage(ctx, requester, resp.SessionID, "help please")
	require.Nil(t, appErr)

	events := notifier.byEvent(EventNewMessage)
	require.Len(t, events, 2)
	assert.Equal(t, "room", events[0].kind)
	assert.Equal(t, resp.SessionID, events[0].target)
	assert.Equal(t, "user", events[1].kind)
	assert.Equal(t, adminX.UserID, events[1].target)
}

func TestPostMessage_AdminMessageNotDoublePushed(t *testing.T) {
	_, notifier, _, svc := newService()
	ctx := context.Background()

	resp, appErr := svc.Start(ctx, requester)
	require.Nil(t, appErr)
	_, appErr = svc.Claim(ctx, adminX, resp.SessionID)
	require.Nil(t, appErr)

	_, appErr = svc.PostMessage(ctx, adminX, resp.SessionID, "how can I help?")
	require.Nil(t, appErr)

	events := notifier.byEvent(EventNewMessage)
	require.Len(t, events, 1)
	assert.Equal(t, "room", events[0].kind)
}

func TestPostMessage_OutsiderDenied(t *testing.T) {
	repo, notifier, _, svc := newService()
	ctx := context.Background()

	resp, appErr := svc.Start(ctx, requester)
	require.Nil(t, appErr)

	_, appErr = svc.PostMessage(ctx, outsider, resp.SessionID, "let me in")
	require.NotNil(t, appErr)
	assert.Equal(t, http.StatusForbidden, appErr.Code)
	assert.Empty(t, repo.messages, "denied message must not be persisted")
	assert.Empty(t, notifier.byEvent(EventNewMessage), "denied message must not broadcast")
}

func TestPostMessage_TerminalSessionRejected(t *testing.T) {
	_, _, _, svc := newService()
	ctx := context.Background()

	resp, appErr := svc.Start(ctx, requester)
	require.Nil(t, appErr)
	_, appErr = svc.End(ctx, requester, resp.SessionID, "", "")
	require.Nil(t, appErr)

	_, appErr = svc.PostMessage(ctx, requester, resp.SessionID, "too late")
	require.NotNil(t, appErr)
	assert.Equal(t, http.StatusForbidden, appErr.Code)
}

func TestEnd_BroadcastsSessionEnded(t *testing.T) {
	_, notifier, _, svc := newService()
	ctx := context.Background()

	resp, appErr := svc.Start(ctx, requester)
	require.Nil(t, appErr)

	// an admin who never joined the room can still end the session
	event, appErr := svc.End(ctx, adminY, resp.SessionID, "resolved elsewhere", "dup ticket")
	require.Nil(t, appErr)
	assert.Equal(t, entity.LiveChatStatusEnded, event.Status)
	assert.Equal(t, adminY.UserID, event.EndedBy)

	ends := notifier.byEvent(EventSessionEnded)
	require.Len(t, ends, 1)
	assert.Equal(t, resp.SessionID, ends[0].target)
}

func TestCancel_OnlyRequesterMayCancel(t *testing.T) {
	_, _, _, svc := newService()
	ctx := context.Background()

	resp, appErr := svc.Start(ctx, requester)
	require.Nil(t, appErr)

	_, appErr = svc.Cancel(ctx, outsider, resp.SessionID, "")
	require.NotNil(t, appErr)
	assert.Equal(t, http.StatusForbidden, appErr.Code)

	event, appErr := svc.Cancel(ctx, requester, resp.SessionID, "changed my mind")
	require.Nil(t, appErr)
	assert.Equal(t, entity.LiveChatStatusCancelled, event.Status)
}

func TestCanJoin_AccessRules(t *testing.T) {
	_, _, _, svc := newService()
	ctx := context.Background()

	resp, appErr := svc.Start(ctx, requester)
	require.Nil(t, appErr)

	assert.Nil(t, svc.CanJoin(ctx, requester, resp.SessionID))
	assert.Nil(t, svc.CanJoin(ctx, adminX, resp.SessionID), "admins may preview before claiming")

	appErr = svc.CanJoin(ctx, outsider, resp.SessionID)
	require.NotNil(t, appErr)
	assert.Equal(t, http.StatusForbidden, appErr.Code)
}

func TestAvailable_OmitsClaimedSessions(t *testing.T) {
	_, _, _, svc := newService()
	ctx := context.Background()

	first, appErr := svc.Start(ctx, requester)
	require.Nil(t, appErr)
	second, appErr := svc.Start(ctx, outsider)
	require.Nil(t, appErr)

	_, appErr = svc.Claim(ctx, adminX, first.SessionID)
	require.Nil(t, appErr)

	available, appErr := svc.Available(ctx)
	require.Nil(t, appErr)
	require.Len(t, available, 1)
	assert.Equal(t, second.SessionID, available[0].SessionID)
}
