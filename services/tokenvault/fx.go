package tokenvault

import "go.uber.org/fx"

var Module = fx.Module("tokenvault.service",
	fx.Provide(NewService),
)
