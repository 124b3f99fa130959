package main

import (
	"log"

	"github.com/bwmarrin/snowflake"
	"github.com/hibiken/asynq"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"goreal-engine/pkg/config"
	"goreal-engine/pkg/db"
	"goreal-engine/pkg/logger"
	"goreal-engine/pkg/redis"
	"goreal-engine/pkg/task"
	"goreal-engine/pkg/taskname"
	"goreal-engine/services/notification"
	"goreal-engine/services/ranking"
)

// The worker role owns the ranking recompute queue and the periodic
// notification cleanup. It serves no HTTP traffic.
func main() {
	opts := []fx.Option{
		config.Module,
		logger.Module,
		db.Module,
		redis.Module,
		task.Client,
		task.Server,
		fx.Provide(provideSnowflakeNode),
		notification.Module,
		notification.SchedulerModule,
		ranking.Module,
		ranking.SchedulerModule,
		fx.Invoke(registerTaskHandlers),
		fxLogger,
	}

	if err := fx.ValidateApp(opts...); err != nil {
		log.Fatalf("fx validation failed: %v", err)
	}

	app := fx.New(opts...)

	app.Run()
}

var fxLogger = fx.WithLogger(func(cfg *config.Config, logger *zap.Logger) fxevent.Logger {
	return fxevent.NopLogger
})

func provideSnowflakeNode() (*snowflake.Node, error) {
	return snowflake.NewNode(2)
}

func registerTaskHandlers(mux *asynq.ServeMux, rankingSvc *ranking.Service, notificationSvc *notification.Service) {
	mux.HandleFunc(taskname.RankingRecompute, rankingSvc.HandleRecomputeTask)
	mux.HandleFunc(taskname.NotificationCleanupExpired, notificationSvc.HandleCleanupTask)
}
