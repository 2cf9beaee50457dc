package livechat_repo

import (
	"context"
	"net/http"
	"sync"
	"testing"

	"github.com/commune-hq/realtime/internal/entity"
	"github.com/commune-hq/realtime/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestRepo(t *testing.T) LiveChatRepoContract {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared&_pragma=busy_timeout(5000)"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(&entity.LiveChatSession{}, &entity.Notification{}))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	return NewLiveChatRepo(&state.AppState{DB: db})
}

func TestCreateSession_RejectsDuplicateActive(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	first, appErr := repo.CreateSession(ctx, "user-1")
	require.Nil(t, appErr)
	assert.Equal(t, entity.LiveChatStatusActive, first.Status)
	assert.Nil(t, first.AdminID)

	_, appErr = repo.CreateSession(ctx, "user-1")
	require.NotNil(t, appErr)
	assert.Equal(t, http.StatusConflict, appErr.Code)
	assert.Equal(t, "You already have an active chat session", appErr.Message)
}

func TestCreateSession_AllowedAfterTerminal(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	first, appErr := repo.CreateSession(ctx, "user-1")
	require.Nil(t, appErr)

	_, appErr = repo.CloseSession(ctx, first.ID.String(), entity.LiveChatStatusEnded, "")
	require.Nil(t, appErr)

	second, appErr := repo.CreateSession(ctx, "user-1")
	require.Nil(t, appErr)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestClaimSession_FirstWriterWins(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	session, appErr := repo.CreateSession(ctx, "user-1")
	require.Nil(t, appErr)

	claimed, appErr := repo.ClaimSession(ctx, session.ID.String(), "admin-1")
	require.Nil(t, appErr)
	require.NotNil(t, claimed.AdminID)
	assert.Equal(t, "admin-1", *claimed.AdminID)

	// second claim loses regardless of who it comes from
	_, appErr = repo.ClaimSession(ctx, session.ID.String(), "admin-2")
	require.NotNil(t, appErr)
	assert.Equal(t, http.StatusForbidden, appErr.Code)

	// the original assignment is untouched
	reloaded, appErr := repo.FindSessionByID(ctx, session.ID.String())
	require.Nil(t, appErr)
	assert.Equal(t, "admin-1", *reloaded.AdminID)
}

func TestClaimSession_ConcurrentClaims_ExactlyOneWinner(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	session, appErr := repo.CreateSession(ctx, "user-1")
	require.Nil(t, appErr)

	admins := []string{"admin-x", "admin-y"}
	results := make([]error, len(admins))

	var wg sync.WaitGroup
	for i, admin := range admins {
		wg.Add(1)
		go func(i int, admin string) {
			defer wg.Done()
			if _, appErr := repo.ClaimSession(ctx, session.ID.String(), admin); appErr != nil {
				results[i] = appErr
			}
		}(i, admin)
	}
	wg.Wait()

	winners := 0
	for _, err := range results {
		if err == nil {
			winners++
		}
	}
	assert.Equal(t, 1, winners, "exactly one claim must win")

	reloaded, appErr := repo.FindSessionByID(ctx, session.ID.String())
	require.Nil(t, appErr)
	require.NotNil(t, reloaded.AdminID)
	assert.Contains(t, admins, *reloaded.AdminID)
}

func TestClaimSession_NotFoundAndTerminal(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	_, appErr := repo.ClaimSession(ctx, "3b7e4b2c-0000-0000-0000-000000000000", "admin-1")
	require.NotNil(t, appErr)
	assert.Equal(t, http.StatusNotFound, appErr.Code)

	session, appErr := repo.CreateSession(ctx, "user-1")
	require.Nil(t, appErr)
	_, appErr = repo.CloseSession(ctx, session.ID.String(), entity.LiveChatStatusCancelled, "")
	require.Nil(t, appErr)

	_, appErr = repo.ClaimSession(ctx, session.ID.String(), "admin-1")
	require.NotNil(t, appErr)
	assert.Equal(t, http.StatusForbidden, appErr.Code)
}

func TestCloseSession_SecondCloseRejected(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	session, appErr := repo.CreateSession(ctx, "user-1")
	require.Nil(t, appErr)

	closed, appErr := repo.CloseSession(ctx, session.ID.String(), entity.LiveChatStatusEnded, "resolved")
	require.Nil(t, appErr)
	assert.Equal(t, entity.LiveChatStatusEnded, closed.Status)
	assert.Equal(t, "resolved", closed.Notes)
	require.NotNil(t, closed.EndedAt)

	_, appErr = repo.CloseSession(ctx, session.ID.String(), entity.LiveChatStatusCancelled, "")
	require.NotNil(t, appErr)
	assert.Equal(t, http.StatusForbidden, appErr.Code)
}

func TestAvailableSessions_FIFOAndExcludesClaimed(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	oldest, appErr := repo.CreateSession(ctx, "user-1")
	require.Nil(t, appErr)
	middle, appErr := repo.CreateSession(ctx, "user-2")
	require.Nil(t, appErr)
	newest, appErr := repo.CreateSession(ctx, "user-3")
	require.Nil(t, appErr)

	_, appErr = repo.ClaimSession(ctx, middle.ID.String(), "admin-1")
	require.Nil(t, appErr)

	available, appErr := repo.AvailableSessions(ctx)
	require.Nil(t, appErr)
	require.Len(t, available, 2)
	assert.Equal(t, oldest.ID, available[0].ID, "oldest session first")
	assert.Equal(t, newest.ID, available[1].ID)
}
