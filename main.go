package main

import (
	"log"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"goreal-engine/internal/httpapi"
	"goreal-engine/pkg/config"
	"goreal-engine/pkg/db"
	"goreal-engine/pkg/health"
	"goreal-engine/pkg/logger"
	"goreal-engine/pkg/redis"
	"goreal-engine/pkg/server"
	"goreal-engine/services/account"
	"goreal-engine/services/ledger"
	"goreal-engine/services/notification"
	"goreal-engine/services/ranking"
	"goreal-engine/services/strava"
	syncsvc "goreal-engine/services/sync"
	"goreal-engine/services/tokenvault"
)

func main() {
	opts := []fx.Option{
		config.Module,
		logger.Module,
		db.Module,
		redis.Module,
		fx.Provide(
			provideSnowflakeNode,
			provideNotifier,
		),
		strava.Module,
		account.Module,
		tokenvault.Module,
		notification.Module,
		ledger.Module,
		syncsvc.Module,
		ranking.Module,
		health.Module,
		httpapi.Module,
		server.ProvideHTTPServer,
		fx.Invoke(autoMigrate),
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
	return snowflake.NewNode(1)
}

func provideNotifier(svc *notification.Service) ledger.Notifier {
	return svc
}

func autoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&account.UserAccount{},
		&tokenvault.Credential{},
		&ledger.ActivityRecord{},
		&ranking.Snapshot{},
		&notification.Notification{},
	)
}
