package worker_handler

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/commune-hq/realtime/internal/entity"
	"github.com/commune-hq/realtime/internal/utils/types"
	worker_service "github.com/commune-hq/realtime/internal/worker/worker-service"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// HandleOfflinePush notifies a participant who had no live connection when a
// chat message arrived: a persisted notification record plus a best-effort
// email.
func (h *WorkerHandler) HandleOfflinePush(ctx context.Context, payload json.RawMessage) error {
	var push types.OfflinePushPayload
	if err := json.Unmarshal(payload, &push); err != nil {
		return fmt.Errorf("invalid offline push payload: %w", err)
	}

	notifPayload, _ := json.Marshal(push)
	notification := &entity.Notification{
		ID:      uuid.New().String(),
		UserID:  push.UserID,
		Type:    entity.NotificationOfflineMessage,
		Payload: string(notifPayload),
	}

	if appErr := h.LiveChat.CreateNotifications(ctx, []*entity.Notification{notification}); appErr != nil {
		return fmt.Errorf("failed to persist offline notification: %s", appErr.Message)
	}

	user, appErr := h.Users.FindUserByID(ctx, push.UserID)
	if appErr != nil {
		return fmt.Errorf("failed to resolve recipient: %s", appErr.Message)
	}

	if err := worker_service.SendOfflineMessageMail(user.Email, push.SenderName, push.Preview); err != nil {
		// the durable notification row already exists
		log.Warn().Err(err).Str("userID", push.UserID).Msg("worker: offline push mail failed")
	}

	return nil
}
