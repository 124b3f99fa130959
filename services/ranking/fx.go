package ranking

import "go.uber.org/fx"

var Module = fx.Module("ranking.service",
	fx.Provide(NewService),
)

// SchedulerModule runs in the worker role only.
var SchedulerModule = fx.Module("ranking.scheduler",
	fx.Provide(NewScheduler),
	fx.Invoke(StartScheduler),
)
