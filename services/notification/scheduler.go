package notification

import (
	"context"
	"time"

	"goreal-engine/pkg/task"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Scheduler struct {
	enqueuer task.Enqueuer
}

func NewScheduler(enqueuer task.Enqueuer) *Scheduler {
	return &Scheduler{enqueuer: enqueuer}
}

// StartScheduler is invoked by FX on service start.
func StartScheduler(lc fx.Lifecycle, s *Scheduler) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go s.run(ctx)
			return nil
		},
	})
}

// run enqueues the purge job once a day, off-peak.
func (s *Scheduler) run(ctx context.Context) {
	zap.L().Info("[Scheduler] started notification cleanup scheduler")

	for {
		now := time.Now()
		next := nextRunTime(now, 2, 0)

		select {
		case <-time.After(next.Sub(now)):
			if _, err := s.enqueuer.Enqueue(NewCleanupTask()); err != nil {
				zap.L().Error("[Scheduler] failed to enqueue cleanup task", zap.Error(err))
			}
		case <-ctx.Done():
			zap.L().Warn("[Scheduler] stopped")
			return
		}
	}
}

func nextRunTime(now time.Time, hour, minute int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if now.After(next) {
		next = next.Add(24 * time.Hour)
	}
	return next
}
