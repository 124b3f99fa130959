package ranking

import (
	"context"
	"time"

	"goreal-engine/pkg/config"
	"goreal-engine/pkg/task"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Scheduler struct {
	service  *Service
	enqueuer task.Enqueuer
	interval time.Duration
}

func NewScheduler(svc *Service, enqueuer task.Enqueuer, cfg *config.Config) *Scheduler {
	return &Scheduler{
		service:  svc,
		enqueuer: enqueuer,
		interval: cfg.Ranking.Interval,
	}
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

func (s *Scheduler) run(ctx context.Context) {
	zap.L().Info("[Scheduler] started ranking recompute scheduler",
		zap.Duration("interval", s.interval),
	)

	// First pass right away so a fresh deployment has snapshots to serve.
	s.enqueueAll(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.enqueueAll(ctx)
		case <-ctx.Done():
			zap.L().Warn("[Scheduler] stopped")
			return
		}
	}
}

// enqueueAll enqueues one recompute job per scope so a failing scope retries
// on its own without blocking the others.
func (s *Scheduler) enqueueAll(ctx context.Context) {
	start := time.Now()

	scopes, err := s.service.Scopes(ctx)
	if err != nil {
		zap.L().Error("[Scheduler] failed to list ranking scopes", zap.Error(err))
		return
	}

	for _, scope := range scopes {
		t, err := NewRecomputeTask(scope)
		if err != nil {
			zap.L().Error("[Scheduler] failed to build recompute task",
				zap.String("scope", scope),
				zap.Error(err),
			)
			continue
		}
		if _, err := s.enqueuer.Enqueue(t); err != nil {
			zap.L().Error("[Scheduler] failed to enqueue recompute task",
				zap.String("scope", scope),
				zap.Error(err),
			)
		}
	}

	zap.L().Info("[Scheduler] finished enqueue recompute jobs",
		zap.Int("scopes", len(scopes)),
		zap.Duration("duration", time.Since(start)),
	)
}
