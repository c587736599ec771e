package alertqueue

import "go.uber.org/fx"

var Module = fx.Module("alertqueue",
	fx.Provide(New),
)
