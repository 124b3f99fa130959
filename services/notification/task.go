package notification

import (
	"context"
	"time"

	"goreal-engine/pkg/taskname"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// NewCleanupTask builds the expired-notification purge job.
func NewCleanupTask() *asynq.Task {
	return asynq.NewTask(taskname.NotificationCleanupExpired, nil)
}

// HandleCleanupTask deletes notifications past their expiry.
func (s *Service) HandleCleanupTask(ctx context.Context, t *asynq.Task) error {
	res := s.db.WithContext(ctx).
		Where("expires_at < ?", time.Now()).
		Delete(&Notification{})
	if res.Error != nil {
		return res.Error
	}

	zap.L().Info("expired notifications purged", zap.Int64("deleted", res.RowsAffected))
	return nil
}
