package sync

import "go.uber.org/fx"

var Module = fx.Module("sync.service",
	fx.Provide(NewService),
)
