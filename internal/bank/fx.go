package bank

import "go.uber.org/fx"

var Module = fx.Module("bank.client",
	fx.Provide(NewClient),
)
