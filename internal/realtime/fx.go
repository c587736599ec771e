package realtime

import (
	txdomain "github.com/tipcast/tipcast/internal/transaction/domain"
	"go.uber.org/fx"
)

var Module = fx.Module("realtime",
	fx.Provide(
		NewHub,
		NewGateway,
		NewDispatcher,
		func(h *Hub) txdomain.TotalPublisher { return h },
	),
)
