package user_service

import (
	"context"
	"crypto/rsa"
	"time"

	"github.com/commune-hq/realtime/internal/dtos/user_dto"
	"github.com/commune-hq/realtime/internal/entity"
	app_error "github.com/commune-hq/realtime/internal/errors"
	user_repo "github.com/commune-hq/realtime/internal/repo/user"
	"github.com/commune-hq/realtime/internal/utils"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type UserService struct {
	Repo       user_repo.UserRepoContract
	PrivateKey *rsa.PrivateKey
}

func NewUserService(repo user_repo.UserRepoContract, privateKey *rsa.PrivateKey) UserServiceContract {
	return &UserService{
		Repo:       repo,
		PrivateKey: privateKey,
	}
}

func (s *UserService) Register(ctx context.Context, req user_dto.CreateUserRequest) (*user_dto.UserResponse, *app_error.AppError) {
	count, appErr := s.Repo.CountUser(ctx, entity.UserFilter{
		Email:    &req.Email,
		Username: &req.Username,
	})
	if appErr != nil {
		return nil, appErr
	}
	if count > 0 {
		return nil, app_error.BadRequest("username or email already taken", "username")
	}

	hash, err := utils.GenerateHash(req.Password)
	if err != nil {
		log.Error().Err(err).Msg("failed to hash password")
		return nil, app_error.PersistenceFailure("failed to process credentials")
	}

	user := entity.User{
		ID:           uuid.New().String(),
		Username:     req.Username,
		Email:        req.Email,
		DisplayName:  req.DisplayName,
		PasswordHash: hash,
		Role:         entity.RoleUser,
		IsActive:     true,
		LastActiveAt: time.Now(),
	}

	if appErr := s.Repo.SaveUser(ctx, user); appErr != nil {
		return nil, appErr
	}

	return &user_dto.UserResponse{
		ID:          user.ID,
		Username:    user.Username,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		Role:        user.Role,
		CreatedAt:   user.CreatedAt,
	}, nil
}

func (s *UserService) Login(ctx context.Context, req user_dto.LoginRequest) (*user_dto.LoginResponse, *app_error.AppError) {
	user, appErr := s.Repo.FindUserByCredential(ctx, req.Username)
	if appErr != nil {
		// same answer for unknown user and bad password
		return nil, app_error.AuthenticationFailed("invalid credentials")
	}

	ok, err := utils.VerifyHash(user.PasswordHash, req.Password)
	if err != nil || !ok {
		return nil, app_error.AuthenticationFailed("invalid credentials")
	}

	if !user.IsActive {
		return nil, app_error.AccessDenied("account disabled")
	}

	access, refresh, _, err := utils.IssueNewTokens(user.ID, user.Username, user.Role, s.PrivateKey)
	if err != nil {
		log.Error().Err(err).Str("userID", user.ID).Msg("failed to issue tokens")
		return nil, app_error.PersistenceFailure("failed to issue tokens")
	}

	if appErr := s.Repo.UpdateLastActiveAt(ctx, user.ID); appErr != nil {
		log.Warn().Str("userID", user.ID).Msg("failed to record login timestamp")
	}

	return &user_dto.LoginResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		User: user_dto.UserResponse{
			ID:          user.ID,
			Username:    user.Username,
			Email:       user.Email,
			DisplayName: user.DisplayName,
			Role:        user.Role,
			CreatedAt:   user.CreatedAt,
		},
	}, nil
}
