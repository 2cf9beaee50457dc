package user_repo

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/commune-hq/realtime/internal/entity"
	app_error "github.com/commune-hq/realtime/internal/errors"
	"github.com/commune-hq/realtime/state"
	"gorm.io/gorm"
)

type UserRepo struct {
	AppState *state.AppState
}

func NewUserRepo(appState *state.AppState) UserRepoContract {
	return &UserRepo{
		AppState: appState,
	}
}

func (r *UserRepo) CountUser(ctx context.Context, filter entity.UserFilter) (int64, *app_error.AppError) {
	var count int64

	query := r.AppState.DB.WithContext(ctx).Model(&entity.User{})

	// Both filters together form a duplicate probe: a user holding either
	// value makes the pair unavailable, so they combine with OR.
	switch {
	case filter.Email != nil && filter.Username != nil:
		query = query.Where("email = ? OR username = ?", filter.Email, filter.Username)
	case filter.Email != nil:
		query = query.Where("email = ?", filter.Email)
	case filter.Username != nil:
		query = query.Where("username = ?", filter.Username)
	}

	err := query.Count(&count).Error
	if err != nil {
		if errors.Is(err, gorm.ErrEmptySlice) {
			return 0, nil
		}
		return 0, app_error.NewAppError(http.StatusInternalServerError, "unexpected server error", "db-count")
	}
	return count, nil
}

func (r *UserRepo) SaveUser(ctx context.Context, model entity.User) *app_error.AppError {
	if err := r.AppState.DB.WithContext(ctx).Create(&model).Error; err != nil {
		return app_error.NewAppError(http.StatusInternalServerError, "unexpected error occur when trying to create user", "db-create")
	}

	return nil
}

func (r *UserRepo) FindUserByID(ctx context.Context, userId string) (*entity.User, *app_error.AppError) {
	var user entity.User

	if err := r.AppState.DB.WithContext(ctx).Where("id = ?", userId).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, app_error.NotFound("cannot find user")
		}
		return nil, app_error.PersistenceFailure("unexpected error occur when fetch user")
	}

	return &user, nil
}

func (r *UserRepo) FindUserByCredential(ctx context.Context, username string) (*entity.User, *app_error.AppError) {
	var user entity.User

	if err := r.AppState.DB.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, app_error.NotFound("cannot find user")
		}
		return nil, app_error.PersistenceFailure("unexpected error occur when fetch user")
	}

	return &user, nil
}

func (r *UserRepo) ListActiveAdmins(ctx context.Context) ([]*entity.User, *app_error.AppError) {
	var admins []*entity.User

	if err := r.AppState.DB.WithContext(ctx).
		Where("role = ? AND is_active = ?", entity.RoleAdmin, true).
		Find(&admins).Error; err != nil {
		return nil, app_error.PersistenceFailure("failed to fetch active admins")
	}

	return admins, nil
}

func (r *UserRepo) UpdateLastActiveAt(ctx context.Context, userId string) *app_error.AppError {
	if err := r.AppState.DB.WithContext(ctx).Model(&entity.User{}).
		Where("id = ?", userId).
		Update("last_active_at", time.Now()).Error; err != nil {
		return app_error.PersistenceFailure("failed to update last active timestamp")
	}

	return nil
}
