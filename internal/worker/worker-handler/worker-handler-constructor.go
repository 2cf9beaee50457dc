package worker_handler

import (
	livechat_repo "github.com/commune-hq/realtime/internal/repo/livechat"
	user_repo "github.com/commune-hq/realtime/internal/repo/user"
	"github.com/redis/go-redis/v9"
)

type WorkerHandler struct {
	Redis    *redis.Client
	Users    user_repo.UserRepoContract
	LiveChat livechat_repo.LiveChatRepoContract
}

func NewWorkerHandler(redis *redis.Client, users user_repo.UserRepoContract, livechat livechat_repo.LiveChatRepoContract) *WorkerHandler {
	return &WorkerHandler{
		Redis:    redis,
		Users:    users,
		LiveChat: livechat,
	}
}
