package security

import (
	"github.com/tipcast/tipcast/internal/security/cache"
	"github.com/tipcast/tipcast/internal/security/repository"
	"github.com/tipcast/tipcast/internal/security/service"
	"go.uber.org/fx"
)

// Module wires the security gate: settings storage, replay/rate
// caches and the validation service.
var Module = fx.Module("security",
	cache.Module,
	fx.Provide(
		repository.Provide,
		service.New,
	),
)
