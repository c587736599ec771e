package streamer

import (
	"github.com/tipcast/tipcast/internal/streamer/repository"
	"github.com/tipcast/tipcast/internal/streamer/service"
	"go.uber.org/fx"
)

var Module = fx.Module("streamer.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
