package notification

import "go.uber.org/fx"

var Module = fx.Module("notification.service",
	fx.Provide(NewService),
)

// SchedulerModule runs in the worker role only.
var SchedulerModule = fx.Module("notification.scheduler",
	fx.Provide(NewScheduler),
	fx.Invoke(StartScheduler),
)
