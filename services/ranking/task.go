package ranking

import (
	"context"
	"encoding/json"

	"goreal-engine/pkg/taskname"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

type RecomputePayload struct {
	Scope string `json:"scope"`
}

// NewRecomputeTask builds a recompute job for one scope.
func NewRecomputeTask(scope string) (*asynq.Task, error) {
	payload, err := json.Marshal(RecomputePayload{Scope: scope})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(taskname.RankingRecompute, payload, asynq.Queue("ranking")), nil
}

// HandleRecomputeTask processes one recompute job. The rollover runs before
// every scope; it is idempotent, so repeating it per job is harmless.
func (s *Service) HandleRecomputeTask(ctx context.Context, t *asynq.Task) error {
	var payload RecomputePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		zap.L().Error("malformed recompute payload", zap.Error(err))
		return err
	}

	if err := s.RolloverWindows(ctx); err != nil {
		return err
	}

	if err := s.Recompute(ctx, payload.Scope); err != nil {
		zap.L().Error("ranking recompute failed",
			zap.String("scope", payload.Scope),
			zap.Error(err),
		)
		return err
	}

	zap.L().Info("ranking recompute completed", zap.String("scope", payload.Scope))
	return nil
}
