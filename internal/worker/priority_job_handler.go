package worker

import (
	"context"
	"fmt"

	"github.com/commune-hq/realtime/internal/queue"
	worker_handler "github.com/commune-hq/realtime/internal/worker/worker-handler"
)

func HandleJob(ctx context.Context, job queue.Job, handler *worker_handler.WorkerHandler) error {
	switch job.Type {
	case queue.JobOfflinePush:
		return handler.HandleOfflinePush(ctx, job.Payload)
	case queue.JobAdminSessionAlert:
		return handler.HandleAdminSessionAlert(ctx, job.Payload)
	default:
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
}
