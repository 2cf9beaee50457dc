package chat_service

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/commune-hq/realtime/internal/dtos"
	"github.com/commune-hq/realtime/internal/dtos/chat_dto"
	"github.com/commune-hq/realtime/internal/entity"
	app_error "github.com/commune-hq/realtime/internal/errors"
	"github.com/commune-hq/realtime/internal/queue"
	"github.com/commune-hq/realtime/internal/utils/types"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fakeChatRepo struct {
	mu           sync.Mutex
	chat         *entity.Chat
	participants []*entity.ChatParticipant
	messages     []*entity.Message
	touched      int
}

func newFakeChatRepo(members ...string) *fakeChatRepo {
	repo := &fakeChatRepo{
		chat: &entity.Chat{ID: uuid.New(), Type: "group", Name: "general"},
	}
	for _, userID := range members {
		repo.participants = append(repo.participants, &entity.ChatParticipant{
			ChatID:   repo.chat.ID.String(),
			UserID:   userID,
			IsActive: true,
		})
	}
	return repo
}

func (f *fakeChatRepo) FindChatByID(ctx context.Context, chatID string) (*entity.Chat, *app_error.AppError) {
	if chatID != f.chat.ID.String() {
		return nil, app_error.NotFound("chat not found")
	}
	return f.chat, nil
}

func (f *fakeChatRepo) FindParticipants(ctx context.Context, chatID string) ([]*entity.ChatParticipant, *app_error.AppError) {
	return f.participants, nil
}

func (f *fakeChatRepo) IsActiveParticipant(ctx context.Context, chatID, userID string) (bool, *app_error.AppError) {
	for _, p := range f.participants {
		if p.UserID == userID && p.IsActive {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeChatRepo) TouchLastMessageAt(ctx context.Context, chatID string) *app_error.AppError {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.touched++
	return nil
}

func (f *fakeChatRepo) InsertMessage(ctx context.Context, msg *entity.Message) (primitive.ObjectID, *app_error.AppError) {
	f.mu.Lock()
	defer f.mu.Unlock()
	msg.ID = primitive.NewObjectID()
	msg.ReadBy = []string{}
	f.messages = append(f.messages, msg)
	return msg.ID, nil
}

func (f *fakeChatRepo) FindMessageByID(ctx context.Context, messageID string) (*entity.Message, *app_error.AppError) {
	for _, m := range f.messages {
		if m.ID.Hex() == messageID {
			return m, nil
		}
	}
	return nil, app_error.NotFound("message not found")
}

func (f *fakeChatRepo) GetMessages(ctx context.Context, chatID string, limit int, beforeID *string) ([]*entity.Message, *app_error.AppError) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*entity.Message
	for _, m := range f.messages {
		if m.ChatID == chatID {
			out = append(out, m)
		}
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (f *fakeChatRepo) MarkMessagesRead(ctx context.Context, chatID, userID string, messageIDs []string) *app_error.AppError {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.messages {
		for _, id := range messageIDs {
			if m.ID.Hex() == id && m.ChatID == chatID {
				m.ReadBy = append(m.ReadBy, userID)
			}
		}
	}
	return nil
}

type roomEvent struct {
	roomID string
	event  string
	data   any
}

type fakeBroadcaster struct {
	mu     sync.Mutex
	events []roomEvent
}

func (f *fakeBroadcaster) EmitToRoom(roomID, event string, data any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, roomEvent{roomID: roomID, event: event, data: data})
}

func (f *fakeBroadcaster) EmitToUser(userID, event string, data any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, roomEvent{roomID: "user:" + userID, event: event, data: data})
}

type fakePresence struct {
	online map[string]bool
}

func (f *fakePresence) IsOnline(ctx context.Context, userID string) bool {
	return f.online[userID]
}

type fakeJobQueue struct {
	mu   sync.Mutex
	jobs []queue.Job
}

func (f *fakeJobQueue) Enqueue(ctx context.Context, job queue.Job) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs = append(f.jobs, job)
	return nil
}

var (
	alice = dtos.Actor{UserID: "user-alice", Username: "alice", DisplayName: "Alice", Role: "user"}
	bob   = dtos.Actor{UserID: "user-bob", Username: "bob", DisplayName: "Bob", Role: "user"}
	eve   = dtos.Actor{UserID: "user-eve", Username: "eve", DisplayName: "Eve", Role: "user"}
)

func textPayload(t *testing.T, text string) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(text)
	require.NoError(t, err)
	return raw
}

func sendReq(repo *fakeChatRepo, content json.RawMessage) chat_dto.SendMessageRequest {
	return chat_dto.SendMessageRequest{
		ChatID:  repo.chat.ID.String(),
		Content: content,
	}
}

func markReadReq(repo *fakeChatRepo, messageIDs ...string) chat_dto.MarkReadRequest {
	return chat_dto.MarkReadRequest{
		ChatID:     repo.chat.ID.String(),
		MessageIDs: messageIDs,
	}
}

func historyReq(limit int) chat_dto.HistoryRequest {
	return chat_dto.HistoryRequest{Limit: limit}
}

func TestSendMessage_PersistsAndBroadcasts(t *testing.T) {
	repo := newFakeChatRepo(alice.UserID, bob.UserID)
	broadcast := &fakeBroadcaster{}
	presence := &fakePresence{online: map[string]bool{bob.UserID: true}}
	producer := &fakeJobQueue{}
	svc := NewChatService(repo, broadcast, presence, producer)

	resp, appErr := svc.SendMessage(context.Background(), alice, sendReq(repo, textPayload(t, "hello room")))
	require.Nil(t, appErr)

	assert.Equal(t, "hello room", resp.Content.Text)
	assert.Equal(t, entity.MessageTypeText, resp.Type)
	assert.Equal(t, alice.UserID, resp.Sender.ID)

	require.Len(t, repo.messages, 1)
	assert.Equal(t, alice.UserID, repo.messages[0].SenderID, "sender comes from the connection, not the payload")
	assert.Equal(t, repo.chat.ID.String(), repo.messages[0].ChatID)
	assert.Equal(t, 1, repo.touched)

	require.Len(t, broadcast.events, 1)
	assert.Equal(t, repo.chat.ID.String(), broadcast.events[0].roomID)
	assert.Equal(t, EventNewMessage, broadcast.events[0].event)

	assert.Empty(t, producer.jobs, "everyone online, no push jobs")
}

func TestSendMessage_NonParticipantRejected(t *testing.T) {
	repo := newFakeChatRepo(alice.UserID, bob.UserID)
	broadcast := &fakeBroadcaster{}
	svc := NewChatService(repo, broadcast, &fakePresence{online: map[string]bool{}}, &fakeJobQueue{})

	_, appErr := svc.SendMessage(context.Background(), eve, sendReq(repo, textPayload(t, "sneaky")))
	require.NotNil(t, appErr)
	assert.Equal(t, http.StatusForbidden, appErr.Code)

	assert.Empty(t, repo.messages, "rejected message must not be persisted")
	assert.Empty(t, broadcast.events, "rejected message must not broadcast")
}

func TestSendMessage_UnknownChat(t *testing.T) {
	repo := newFakeChatRepo(alice.UserID)
	svc := NewChatService(repo, &fakeBroadcaster{}, &fakePresence{online: map[string]bool{}}, &fakeJobQueue{})

	req := sendReq(repo, textPayload(t, "hi"))
	req.ChatID = uuid.New().String()

	_, appErr := svc.SendMessage(context.Background(), alice, req)
	require.NotNil(t, appErr)
	assert.Equal(t, http.StatusNotFound, appErr.Code)
}

func TestSendMessage_StructuredContentPassesThrough(t *testing.T) {
	repo := newFakeChatRepo(alice.UserID)
	svc := NewChatService(repo, &fakeBroadcaster{}, &fakePresence{online: map[string]bool{}}, &fakeJobQueue{})

	raw := json.RawMessage(`{"text":"look at this","media":{"url":"https://cdn.example/x.png","mimeType":"image/png"}}`)
	resp, appErr := svc.SendMessage(context.Background(), alice, sendReq(repo, raw))
	require.Nil(t, appErr)

	assert.Equal(t, "look at this", resp.Content.Text)
	require.NotNil(t, resp.Content.Media)
	assert.Equal(t, "https://cdn.example/x.png", resp.Content.Media.URL)
	assert.Equal(t, entity.MessageTypeMedia, resp.Type)
}

func TestSendMessage_MalformedContentCollapsesToEmptyText(t *testing.T) {
	repo := newFakeChatRepo(alice.UserID)
	svc := NewChatService(repo, &fakeBroadcaster{}, &fakePresence{online: map[string]bool{}}, &fakeJobQueue{})

	resp, appErr := svc.SendMessage(context.Background(), alice, sendReq(repo, json.RawMessage(`42`)))
	require.Nil(t, appErr)
	assert.Equal(t, "", resp.Content.Text)
	assert.Equal(t, entity.MessageTypeText, resp.Type)
}

func TestSendMessage_OfflineParticipantsGetPushJobs(t *testing.T) {
	repo := newFakeChatRepo(alice.UserID, bob.UserID, eve.UserID)
	presence := &fakePresence{online: map[string]bool{bob.UserID: true}} // eve is offline
	producer := &fakeJobQueue{}
	svc := NewChatService(repo, &fakeBroadcaster{}, presence, producer)

	_, appErr := svc.SendMessage(context.Background(), alice, sendReq(repo, textPayload(t, "ping")))
	require.Nil(t, appErr)

	require.Len(t, producer.jobs, 1)
	assert.Equal(t, queue.JobOfflinePush, producer.jobs[0].Type)

	var payload types.OfflinePushPayload
	require.NoError(t, json.Unmarshal(producer.jobs[0].Payload, &payload))
	assert.Equal(t, eve.UserID, payload.UserID)
}

func TestMarkRead_PersistsThenBroadcasts(t *testing.T) {
	repo := newFakeChatRepo(alice.UserID, bob.UserID)
	broadcast := &fakeBroadcaster{}
	svc := NewChatService(repo, broadcast, &fakePresence{online: map[string]bool{}}, &fakeJobQueue{})

	sent, appErr := svc.SendMessage(context.Background(), alice, sendReq(repo, textPayload(t, "read me")))
	require.Nil(t, appErr)

	event, appErr := svc.MarkRead(context.Background(), bob, markReadReq(repo, sent.MessageID))
	require.Nil(t, appErr)
	assert.Equal(t, bob.UserID, event.UserID)
	assert.Equal(t, []string{sent.MessageID}, event.MessageIDs)

	require.Len(t, repo.messages, 1)
	assert.Contains(t, repo.messages[0].ReadBy, bob.UserID)

	last := broadcast.events[len(broadcast.events)-1]
	assert.Equal(t, EventMessagesRead, last.event)
	assert.Equal(t, repo.chat.ID.String(), last.roomID)
}

func TestHistory_RoundTripsContent(t *testing.T) {
	repo := newFakeChatRepo(alice.UserID)
	svc := NewChatService(repo, &fakeBroadcaster{}, &fakePresence{online: map[string]bool{}}, &fakeJobQueue{})

	sent, appErr := svc.SendMessage(context.Background(), alice, sendReq(repo, textPayload(t, "keep me intact")))
	require.Nil(t, appErr)

	history, appErr := svc.History(context.Background(), repo.chat.ID.String(), historyReq(0))
	require.Nil(t, appErr)
	require.Len(t, history.Messages, 1)

	got := history.Messages[0]
	assert.Equal(t, sent.MessageID, got.MessageID)
	assert.Equal(t, alice.UserID, got.SenderID)
	assert.Equal(t, "keep me intact", got.Content.Text)
	assert.Equal(t, entity.MessageTypeText, got.Type)
	assert.False(t, history.HasMore)
}

func TestHistory_DefaultLimitAndCursor(t *testing.T) {
	repo := newFakeChatRepo(alice.UserID)
	svc := NewChatService(repo, &fakeBroadcaster{}, &fakePresence{online: map[string]bool{}}, &fakeJobQueue{})

	for i := 0; i < 25; i++ {
		_, appErr := svc.SendMessage(context.Background(), alice, sendReq(repo, textPayload(t, "msg")))
		require.Nil(t, appErr)
		time.Sleep(time.Millisecond)
	}

	history, appErr := svc.History(context.Background(), repo.chat.ID.String(), historyReq(0))
	require.Nil(t, appErr)
	assert.Len(t, history.Messages, 20)
	assert.True(t, history.HasMore)
	require.NotNil(t, history.NextCursor)
	assert.Equal(t, history.Messages[0].MessageID, *history.NextCursor, "cursor points at the oldest returned message")
}
