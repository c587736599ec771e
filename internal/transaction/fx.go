package transaction

import (
	"github.com/tipcast/tipcast/internal/transaction/repository"
	"github.com/tipcast/tipcast/internal/transaction/service"
	"go.uber.org/fx"
)

var Module = fx.Module("transaction.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
