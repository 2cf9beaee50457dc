package worker_handler

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/commune-hq/realtime/internal/entity"
	"github.com/commune-hq/realtime/internal/utils/types"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// HandleAdminSessionAlert persists one notification record per active admin
// when a support session enters the queue, so admins who were offline during
// the realtime fan-out still see it.
func (h *WorkerHandler) HandleAdminSessionAlert(ctx context.Context, payload json.RawMessage) error {
	var alert types.AdminSessionAlertPayload
	if err := json.Unmarshal(payload, &alert); err != nil {
		return fmt.Errorf("invalid admin session alert payload: %w", err)
	}

	admins, appErr := h.Users.ListActiveAdmins(ctx)
	if appErr != nil {
		return fmt.Errorf("failed to list admins: %s", appErr.Message)
	}
	if len(admins) == 0 {
		log.Warn().Str("sessionID", alert.SessionID).Msg("worker: no active admins to notify")
		return nil
	}

	notifPayload, _ := json.Marshal(alert)
	notifications := make([]*entity.Notification, 0, len(admins))
	for _, admin := range admins {
		notifications = append(notifications, &entity.Notification{
			ID:      uuid.New().String(),
			UserID:  admin.ID,
			Type:    entity.NotificationLiveChatQueued,
			Payload: string(notifPayload),
		})
	}

	if appErr := h.LiveChat.CreateNotifications(ctx, notifications); appErr != nil {
		return fmt.Errorf("failed to persist admin notifications: %s", appErr.Message)
	}

	log.Info().Str("sessionID", alert.SessionID).Int("admins", len(notifications)).Msg("worker: admin session alerts persisted")
	return nil
}
